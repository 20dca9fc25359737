package llmmodel

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// ModelID is the model identifier sent to the provider's API (ex: "gpt-5-mini", "llama3.1:8b").
type ModelID string

// ProviderID identifies an LLM provider. Provider IDs are lowercase; lookups lowercase their input first.
type ProviderID string

// Constants for provider IDs. Each provider needs code in llmcomplete to talk to it, so unlike models, providers are not configurable.
const (
	ProviderIDUnknown ProviderID = ""
	ProviderIDOpenAI  ProviderID = "openai"
	ProviderIDOllama  ProviderID = "ollama"
)

// AllProviderIDs are all supported provider ids.
var AllProviderIDs = []ProviderID{
	ProviderIDOpenAI,
	ProviderIDOllama,
}

// ParseProviderID returns the provider named by s, case-insensitively. It returns ProviderIDUnknown if s is not a supported provider.
func ParseProviderID(s string) ProviderID {
	pid := ProviderID(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllProviderIDs {
		if pid == known {
			return pid
		}
	}
	return ProviderIDUnknown
}

// ErrUnknownModel is returned when a provider/model pair is not in the pricing registry.
var ErrUnknownModel = errors.New("model not configured")

// ModelInfo is the pricing entry for one model.
type ModelInfo struct {
	ID           ModelID
	ProviderID   ProviderID
	CostPer1MIn  float64 // CostPer1MIn is the price per 1M input tokens. Zero (or less) means the model is free to run, typically because it's local.
	CostPer1MOut float64 // CostPer1MOut is the price per 1M output tokens.
}

// Free reports whether input tokens cost nothing for this model.
func (info ModelInfo) Free() bool {
	return info.CostPer1MIn <= 0
}

// Currency is the unit in which costs of this model are reported: "USD" for priced models and "Free/Local" otherwise.
func (info ModelInfo) Currency() string {
	if info.Free() {
		return "Free/Local"
	}
	return "USD"
}

// Registry is a set of models with their prices, keyed by provider. The zero value is an empty registry. A Registry is immutable once loaded.
type Registry struct {
	models map[ProviderID]map[ModelID]ModelInfo
}

// pricingPayload is the pricing file format: provider -> model -> prices.
type pricingPayload map[string]map[string]struct {
	InputCostPerMillion  float64 `json:"input_cost_per_million"`
	OutputCostPerMillion float64 `json:"output_cost_per_million"`
}

// ParseRegistry parses a pricing document:
//
//	{"openai": {"gpt-5-mini": {"input_cost_per_million": 0.25, "output_cost_per_million": 2.0}}}
//
// Provider keys are lowercased. Providers that no code supports are kept, but cannot be used to make requests.
func ParseRegistry(data []byte) (*Registry, error) {
	var payload pricingPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("invalid pricing config: %w", err)
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("invalid pricing config: no providers")
	}

	r := &Registry{models: make(map[ProviderID]map[ModelID]ModelInfo, len(payload))}
	for rawProvider, models := range payload {
		pid := ProviderID(strings.ToLower(rawProvider))
		if pid == ProviderIDUnknown {
			return nil, fmt.Errorf("invalid pricing config: blank provider")
		}
		byID, ok := r.models[pid]
		if !ok {
			byID = make(map[ModelID]ModelInfo, len(models))
			r.models[pid] = byID
		}
		for rawModel, price := range models {
			if rawModel == "" {
				return nil, fmt.Errorf("invalid pricing config: provider %q has a blank model", pid)
			}
			byID[ModelID(rawModel)] = ModelInfo{
				ID:           ModelID(rawModel),
				ProviderID:   pid,
				CostPer1MIn:  price.InputCostPerMillion,
				CostPer1MOut: price.OutputCostPerMillion,
			}
		}
	}
	return r, nil
}

// LoadRegistryFile reads and parses the pricing document at path.
func LoadRegistryFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing config: %w", err)
	}
	r, err := ParseRegistry(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Lookup returns the model's pricing. provider is case-insensitive; model is matched exactly. It returns an error wrapping ErrUnknownModel if the pair is not present.
func (r *Registry) Lookup(provider string, model string) (ModelInfo, error) {
	pid := ProviderID(strings.ToLower(provider))
	if r != nil {
		if info, ok := r.models[pid][ModelID(model)]; ok {
			return info, nil
		}
	}
	return ModelInfo{}, fmt.Errorf("model %q for provider %q: %w", model, provider, ErrUnknownModel)
}

// Valid reports whether model is configured for provider.
func (r *Registry) Valid(provider string, model string) bool {
	_, err := r.Lookup(provider, model)
	return err == nil
}

// Providers returns the providers in r, sorted.
func (r *Registry) Providers() []ProviderID {
	if r == nil {
		return nil
	}
	out := make([]ProviderID, 0, len(r.models))
	for pid := range r.models {
		out = append(out, pid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Models returns the models configured for provider (case-insensitive), sorted.
func (r *Registry) Models(provider string) []ModelID {
	if r == nil {
		return nil
	}
	byID := r.models[ProviderID(strings.ToLower(provider))]
	out := make([]ModelID, 0, len(byID))
	for id := range byID {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

//go:embed config/pricing.json
var embeddedPricing []byte

var (
	registryMu sync.RWMutex
	active     *Registry
	defaults   *Registry

	providerKeyOverrides = make(map[ProviderID]string)
)

func init() {
	r, err := ParseRegistry(embeddedPricing)
	if err != nil {
		panic(err)
	}
	defaults = r
	active = r
}

// DefaultRegistry returns the registry built from the embedded pricing config.
func DefaultRegistry() *Registry {
	return defaults
}

// ActiveRegistry returns the registry used by ValidateModel and GetModelPrice.
func ActiveRegistry() *Registry {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return active
}

// ConfigurePricingFile replaces the active registry with the one in the file at path. An empty path restores the embedded defaults. On error, the active registry is
// unchanged; callers are expected to log the error and carry on with it.
func ConfigurePricingFile(path string) error {
	if path == "" {
		registryMu.Lock()
		active = defaults
		registryMu.Unlock()
		return nil
	}
	r, err := LoadRegistryFile(path)
	if err != nil {
		return err
	}
	registryMu.Lock()
	active = r
	registryMu.Unlock()
	return nil
}

// ValidateModel reports whether model is configured for provider in the active registry.
func ValidateModel(provider string, model string) bool {
	return ActiveRegistry().Valid(provider, model)
}

// GetModelPrice returns the pricing of model in the active registry. See Registry.Lookup.
func GetModelPrice(provider string, model string) (ModelInfo, error) {
	return ActiveRegistry().Lookup(provider, model)
}

// providerEndpoints are the OpenAI-compatible base URLs of each provider.
var providerEndpoints = map[ProviderID]string{
	ProviderIDOpenAI: "https://api.openai.com/v1",
	ProviderIDOllama: "http://localhost:11434/v1",
}

// providerEnvVars are the env vars holding each provider's API key. Ollama is local and needs no key.
var providerEnvVars = map[ProviderID]string{
	ProviderIDOpenAI: "OPENAI_API_KEY",
}

// ollamaAPIKey is sent to Ollama, which ignores it. The OpenAI client refuses to send a request without a key.
const ollamaAPIKey = "ollama"

// APIEndpointURL returns the default API base URL for pid ("" if unknown).
func APIEndpointURL(pid ProviderID) string {
	return providerEndpoints[pid]
}

// ProviderKeyEnvVars returns a map of provider id to the env var holding its key, for providers that need one. Ex: {ProviderIDOpenAI: "OPENAI_API_KEY"}
func ProviderKeyEnvVars() map[ProviderID]string {
	out := make(map[ProviderID]string, len(providerEnvVars))
	for pid, env := range providerEnvVars {
		out[pid] = env
	}
	return out
}

// ConfigureProviderKey configures the provider to use the provided API key, taking precedence over the env. An empty key removes the override.
func ConfigureProviderKey(pid ProviderID, key string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if key == "" {
		delete(providerKeyOverrides, pid)
		return
	}
	providerKeyOverrides[pid] = key
}

// GetAPIKey returns the API key for pid ("" if none is available). This is the precedence:
//  1. Value from ConfigureProviderKey
//  2. Env[ProviderKeyEnvVars()[pid]]
//  3. For Ollama, a placeholder key
func GetAPIKey(pid ProviderID) string {
	registryMu.RLock()
	override := providerKeyOverrides[pid]
	registryMu.RUnlock()
	if override != "" {
		return override
	}
	if env := providerEnvVars[pid]; env != "" {
		return os.Getenv(env)
	}
	if pid == ProviderIDOllama {
		return ollamaAPIKey
	}
	return ""
}
