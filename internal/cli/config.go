package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/codalotl/pydocify/internal/llmmodel"
	"github.com/codalotl/pydocify/internal/prompt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is pydocify's configuration. Sources, lowest precedence first: built-in defaults, ~/.pydocify/config.json, the nearest .pydocify.json at or above the
// working directory, PYDOCIFY_* env vars (ex: PYDOCIFY_PRICING_FILE), and finally flags.
type Config struct {
	Provider     string `mapstructure:"provider" json:"provider"`
	Model        string `mapstructure:"model" json:"model"`
	Mode         string `mapstructure:"mode" json:"mode"`
	OutputDir    string `mapstructure:"output_dir" json:"output_dir"`
	PricingFile  string `mapstructure:"pricing_file" json:"pricing_file"`
	OpenAIAPIKey string `mapstructure:"openai_api_key" json:"openai_api_key"` // takes precedence over OPENAI_API_KEY
}

const (
	envPrefix       = "PYDOCIFY"
	localConfigName = ".pydocify.json"
)

var configDefaults = map[string]any{
	"provider":       "",
	"model":          "",
	"mode":           string(prompt.ModeRewrite),
	"output_dir":     "ai_output",
	"pricing_file":   "",
	"openai_api_key": "",
}

// flagKeys maps flag names to config keys. Only flags that the command defines are bound, so strip's --output-dir keeps its own default.
var flagKeys = map[string]string{
	"provider":   "provider",
	"model":      "model",
	"mode":       "mode",
	"output-dir": "output_dir",
	"pricing":    "pricing_file",
}

// loadConfig resolves the configuration for cmd.
func loadConfig(cmd *cobra.Command) (Config, error) {
	v := viper.New()
	for k, d := range configDefaults {
		v.SetDefault(k, d)
	}

	for _, path := range configFiles() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return Config{}, fmt.Errorf("load configuration %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, fmt.Errorf("bind flag --%s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse configuration: %w", err)
	}
	return cfg, nil
}

// configFiles returns candidate config files, lowest precedence first. Files that don't exist are skipped by the caller.
func configFiles() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".pydocify", "config.json"))
	}
	if local := nearestFile(localConfigName); local != "" {
		paths = append(paths, local)
	}
	return paths
}

// nearestFile returns the path of name in the working directory or its closest ancestor that has it, or "".
func nearestFile(name string) string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// selection is a validated provider/model/mode choice.
type selection struct {
	provider llmmodel.ProviderID
	model    string
	mode     prompt.Mode
}

// resolveSelection validates the provider, model, and mode in cfg. Problems are usage errors; whether the model is priced is checked separately.
func resolveSelection(cfg Config) (selection, error) {
	var errs []error
	var sel selection

	switch strings.TrimSpace(cfg.Provider) {
	case "":
		errs = append(errs, errors.New("--provider is required (or set provider in config, or PYDOCIFY_PROVIDER)"))
	default:
		sel.provider = llmmodel.ParseProviderID(cfg.Provider)
		if sel.provider == llmmodel.ProviderIDUnknown {
			errs = append(errs, fmt.Errorf("invalid value for --provider: %q (choose from %s)", cfg.Provider, providerChoices()))
		}
	}

	sel.model = strings.TrimSpace(cfg.Model)
	if sel.model == "" {
		errs = append(errs, errors.New("--model is required (or set model in config, or PYDOCIFY_MODEL)"))
	}

	mode, err := prompt.ParseMode(cfg.Mode)
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid value for --mode: %w", err))
	}
	sel.mode = mode

	if len(errs) > 0 {
		return selection{}, usageError{err: errors.Join(errs...)}
	}
	return sel, nil
}

func providerChoices() string {
	var names []string
	for _, pid := range llmmodel.AllProviderIDs {
		names = append(names, string(pid))
	}
	return strings.Join(names, ", ")
}

// applyConfig installs cfg's process-wide settings: the pricing registry and the OpenAI key override. A pricing file that can't be loaded is reported and the
// built-in prices are used.
func (e *env) applyConfig(cfg Config) {
	llmmodel.ConfigureProviderKey(llmmodel.ProviderIDOpenAI, cfg.OpenAIAPIKey)

	if err := llmmodel.ConfigurePricingFile(cfg.PricingFile); err != nil {
		e.logger.Error("pricing file not loaded", "path", cfg.PricingFile, "err", err)
		fmt.Fprintf(e.err, "%s could not load pricing file: %v (using built-in prices)\n", e.styles.warn.Render("Warning:"), err)
		_ = llmmodel.ConfigurePricingFile("")
	}
}
