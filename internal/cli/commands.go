package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/codalotl/pydocify/internal/diff"
	"github.com/codalotl/pydocify/internal/docubot"
	"github.com/codalotl/pydocify/internal/llmmodel"
	"github.com/codalotl/pydocify/internal/prompt"
	"github.com/codalotl/pydocify/internal/updatedocs"

	"github.com/spf13/cobra"
)

const (
	defaultStripDir = "stripped_scripts"
	diffContext     = 3
)

func newRootCommand(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:   "pydocify FILE",
		Short: "pydocify adds NumPy/Sphinx style docstrings to a Python file using an LLM.",
		Long: `pydocify sends a Python file to an LLM and writes a documented copy to the output directory.

In rewrite mode (the default) the model returns the whole file with docstrings added. In inject mode the model only names
docstrings through function calls, and pydocify inserts them without touching any other line.`,
		Example: "  pydocify src/my_script.py --provider openai --model gpt-5-mini --mode rewrite",
		Version: Version,
		Args:    fileArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runGenerate(cmd, args[0])
		},
	}
	addModelFlags(root)
	root.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt.")
	root.Flags().String("output-dir", configDefaults["output_dir"].(string), "Directory to save output files.")
	root.Flags().Bool("diff", false, "Print a unified diff of the documented file against the original.")
	root.PersistentFlags().String("pricing", "", "Path to a pricing.json that replaces the built-in model prices.")

	root.AddCommand(newEstimateCommand(e), newStripCommand(e), newCleanCommand(e))
	return root
}

func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().String("provider", "", fmt.Sprintf("The AI provider (%s); it must be in the pricing registry.", providerChoices()))
	cmd.Flags().String("model", "", "The model name; it must be in the pricing registry for the provider.")
	cmd.Flags().String("mode", string(prompt.ModeRewrite), "Operation mode: 'rewrite' regenerates the file, 'inject' inserts docstrings through function calling.")
}

// fileArg requires exactly one argument naming an existing regular file.
func fileArg(_ *cobra.Command, args []string) error {
	if len(args) != 1 {
		return usageErrorf("expected exactly one FILE argument, got %d", len(args))
	}
	info, err := os.Stat(args[0])
	if err != nil {
		return usageErrorf("invalid value for FILE: %q does not exist", args[0])
	}
	if info.IsDir() {
		return usageErrorf("invalid value for FILE: %q is a directory", args[0])
	}
	return nil
}

func noArgs(_ *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usageErrorf("unexpected arguments: %s", strings.Join(args, " "))
	}
	return nil
}

// prepare loads the configuration, installs it, and validates the model selection against the pricing registry.
func (e *env) prepare(cmd *cobra.Command) (Config, selection, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return Config{}, selection{}, err
	}
	sel, err := resolveSelection(cfg)
	if err != nil {
		return Config{}, selection{}, err
	}
	e.applyConfig(cfg)
	if !llmmodel.ValidateModel(string(sel.provider), sel.model) {
		return Config{}, selection{}, fmt.Errorf("model %q is not configured for provider %q in the pricing registry", sel.model, sel.provider)
	}
	return cfg, sel, nil
}

func (e *env) printChecking(path string, mode prompt.Mode) {
	fmt.Fprintf(e.out, "%s: Checking %s in %s mode\n", e.styles.title.Render("pydocify"), e.styles.accent.Render(path), e.styles.warn.Render(strings.ToUpper(string(mode))))
}

// runGenerate documents the file at path and writes <stem>.doc.py to the output directory.
func (e *env) runGenerate(cmd *cobra.Command, path string) error {
	cfg, sel, err := e.prepare(cmd)
	if err != nil {
		return err
	}
	e.logger.Info("generate", "file", path, "provider", sel.provider, "model", sel.model, "mode", sel.mode)
	e.printChecking(path, sel.mode)

	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	content := string(b)

	est, err := docubot.EstimateCost(content, string(sel.provider), sel.model, sel.mode)
	if err != nil {
		fmt.Fprintf(e.out, "%s could not estimate cost: %v\n", e.styles.warn.Render("Warning:"), err)
	} else {
		e.printEstimate(est)
	}

	if !mustGetBool(cmd, "yes") {
		ok, err := e.confirm("Do you want to proceed?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(e.out, e.styles.warn.Render("Aborted by user."))
			return nil
		}
	}

	if e.completer == nil && llmmodel.GetAPIKey(sel.provider) == "" {
		if envVar := llmmodel.ProviderKeyEnvVars()[sel.provider]; envVar != "" {
			return fmt.Errorf("%s environment variable is not set", envVar)
		}
	}

	fmt.Fprintf(e.out, "\nGenerating docs using %s...\n", e.styles.accent.Render(sel.model))
	result, err := docubot.GenerateDocumentation(cmd.Context(), content, docubot.Options{
		Provider:  sel.provider,
		Model:     sel.model,
		Mode:      sel.mode,
		Completer: e.completer,
		Logger:    e.logger,
	})
	if err != nil {
		return fmt.Errorf("generate documentation: %w", err)
	}

	outPath, err := writeOutputFile(cfg.OutputDir, fileStem(path)+".doc.py", result.Source)
	if err != nil {
		return err
	}
	e.logger.Info("generate done", append([]any{"output", outPath}, result.Usage.LogPairs()...)...)

	fmt.Fprintln(e.out)
	fmt.Fprintln(e.out, e.styles.success.Render("Successfully generated documentation!"))
	fmt.Fprintf(e.out, "%sOutput saved to: %s\n", reportIndent, e.styles.warn.Render(outPath))
	if sel.mode == prompt.ModeInject {
		e.printInjectReport(result.Report)
	}

	if mustGetBool(cmd, "diff") {
		fmt.Fprintln(e.out)
		if d := diff.Unified(content, result.Source, path, outPath, diffContext, e.color); d != "" {
			fmt.Fprint(e.out, d)
		} else {
			fmt.Fprintln(e.out, "No changes.")
		}
	}

	e.printUsageReport(result.Usage, sel.provider, sel.model)
	return nil
}

func newEstimateCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimate FILE",
		Short: "Estimate the input tokens and cost of documenting a file, without calling the model.",
		Args:  fileArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sel, err := e.prepare(cmd)
			if err != nil {
				return err
			}
			path := args[0]
			e.printChecking(path, sel.mode)
			b, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			est, err := docubot.EstimateCost(string(b), string(sel.provider), sel.model, sel.mode)
			if err != nil {
				return fmt.Errorf("estimate cost: %w", err)
			}
			e.printEstimate(est)
			return nil
		},
	}
	addModelFlags(cmd)
	return cmd
}

func newStripCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strip FILE",
		Short: "Remove the docstrings from a Python file, writing <stem>_strip.py to the output directory.",
		Args:  fileArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			b, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			stripped, symbols, err := updatedocs.StripDocstrings(string(b))
			if err != nil {
				return fmt.Errorf("strip %s: %w", path, err)
			}
			dir, _ := cmd.Flags().GetString("output-dir")
			outPath, err := writeOutputFile(dir, fileStem(path)+"_strip.py", stripped)
			if err != nil {
				return err
			}
			e.logger.Info("strip", "file", path, "output", outPath, "stripped", len(symbols))

			fmt.Fprintf(e.out, "%s (%d removed)\n", e.styles.success.Render("Successfully stripped docstrings"), len(symbols))
			fmt.Fprintf(e.out, "%sOutput saved to: %s\n", reportIndent, e.styles.warn.Render(outPath))
			return nil
		},
	}
	cmd.Flags().String("output-dir", defaultStripDir, "Directory to save the stripped file.")
	return cmd
}

func newCleanCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete the files in the output directory.",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return e.runClean(cfg.OutputDir, mustGetBool(cmd, "yes"))
		},
	}
	cmd.Flags().String("output-dir", configDefaults["output_dir"].(string), "Directory to clean.")
	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt.")
	return cmd
}

// runClean deletes the regular files directly inside dir. Subdirectories are left alone. A missing or empty dir is reported, not an error.
func (e *env) runClean(dir string, yes bool) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(e.out, "Directory %s not found. Nothing to clean.\n", dir)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	if len(files) == 0 {
		fmt.Fprintf(e.out, "Directory %s is already empty.\n", dir)
		return nil
	}

	fmt.Fprintf(e.out, "Found %d file(s) in %s.\n", len(files), dir)
	if !yes {
		ok, err := e.confirm("Delete them?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(e.out, e.styles.warn.Render("Aborted by user."))
			return nil
		}
	}

	var errs []error
	deleted := 0
	for _, f := range files {
		if err := os.Remove(f); err != nil {
			errs = append(errs, err)
			continue
		}
		deleted++
	}
	e.logger.Info("clean", "dir", dir, "deleted", deleted, "failed", len(errs))
	if deleted > 0 {
		fmt.Fprintf(e.out, "%s %d file(s) from %s.\n", e.styles.success.Render("Successfully deleted"), deleted, dir)
	}
	return errors.Join(errs...)
}

func mustGetBool(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic(err)
	}
	return v
}

// fileStem returns the base name of path without its extension ("src/my_script.py" -> "my_script").
func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// writeOutputFile writes content to dir/name, creating dir if needed, and returns the path written.
func writeOutputFile(dir string, name string, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
