package provider

import (
	"fmt"
	"net/http"
	"strings"

	"chatgate/model"
)

const (
	DefaultProvider = ProviderTypeOpenAI
	DefaultModel    = "gpt-4o"
)

// NewProvider creates a provider based on configuration.
func NewProvider(cfg Config, httpClient *http.Client) (model.Provider, error) {
	switch cfg.Type {
	case ProviderTypeOpenAI:
		return NewOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Model, httpClient), nil
	case ProviderTypeDeepSeek:
		return NewDeepSeekProvider(cfg.BaseURL, cfg.APIKey, cfg.Model, httpClient), nil
	case ProviderTypePerplexity:
		return NewPerplexityProvider(cfg.BaseURL, cfg.APIKey, cfg.Model, httpClient), nil
	case ProviderTypeAnthropic:
		return NewAnthropicProvider(cfg.BaseURL, cfg.APIKey, cfg.Model, httpClient), nil
	case ProviderTypeOllama:
		return NewOllamaProvider(cfg.BaseURL, cfg.Model, httpClient)
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}

// ModelRef names a backend and a model on it.
type ModelRef struct {
	Provider ProviderType
	Model    string
}

func (r ModelRef) String() string {
	return string(r.Provider) + "/" + r.Model
}

var knownPrefixes = map[string]ProviderType{
	"openai":     ProviderTypeOpenAI,
	"deepseek":   ProviderTypeDeepSeek,
	"perplexity": ProviderTypePerplexity,
	"anthropic":  ProviderTypeAnthropic,
	"ollama":     ProviderTypeOllama,
}

// reasoningPrefixes are the backends a client may pick for the reasoning
// route.
var reasoningPrefixes = []string{"openai/", "deepseek/"}

// ResolveModel parses a "provider/model" string. The prefix is matched
// case-sensitively and stripped before the name reaches the backend. Empty
// input, an unknown prefix, a missing prefix or an empty model name all
// resolve to openai/gpt-4o.
func ResolveModel(spec string) ModelRef {
	prefix, name, ok := strings.Cut(strings.TrimSpace(spec), "/")
	if !ok || name == "" {
		return ModelRef{Provider: DefaultProvider, Model: DefaultModel}
	}
	pt, known := knownPrefixes[prefix]
	if !known {
		return ModelRef{Provider: DefaultProvider, Model: DefaultModel}
	}
	return ModelRef{Provider: pt, Model: name}
}

// ReasoningModel restricts a model requested by a client to the openai and
// deepseek backends. Anything else becomes openai/gpt-4o.
func ReasoningModel(spec string) string {
	for _, prefix := range reasoningPrefixes {
		if strings.HasPrefix(spec, prefix) && len(spec) > len(prefix) {
			return spec
		}
	}
	return ModelRef{Provider: DefaultProvider, Model: DefaultModel}.String()
}
