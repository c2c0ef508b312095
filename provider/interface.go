// Package provider adapts hosted and local LLM backends to the
// model.Provider contract.
//
// Every adapter turns its SDK's streaming response into a model.EventStream
// of text deltas, reasoning deltas, sources, complete tool calls and a final
// finish event. Backends that speak the OpenAI chat-completions protocol
// (OpenAI, DeepSeek, Perplexity) share one implementation and differ only in
// which vendor extensions they read from each chunk.
//
// Providers are cheap to build and hold no per-request state, so the
// gateway creates one per request through a Resolver.
package provider

// ProviderType identifies the provider implementation.
type ProviderType string

const (
	ProviderTypeOpenAI     ProviderType = "openai"
	ProviderTypeDeepSeek   ProviderType = "deepseek"
	ProviderTypePerplexity ProviderType = "perplexity"
	ProviderTypeAnthropic  ProviderType = "anthropic"
	ProviderTypeOllama     ProviderType = "ollama"
)

// Config holds provider-specific configuration.
type Config struct {
	Type    ProviderType
	BaseURL string
	Model   string
	// APIKey may be empty; the backend then rejects the call.
	APIKey string
}
