package config

import "time"

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: GetDefaultDataDir(),
		Security: SecurityConfig{
			CredentialStorage: SecurityPlainText,
		},
	}
}

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		Server: ServerConfig{
			Listen:       "127.0.0.1:8790",
			MaxDuration:  Duration{30 * time.Second},
			MaxBodyBytes: 1 << 20,
			RateLimit:    10,
			RateBurst:    20,
			MaxSteps:     5,
		},
		Providers: defaultProviders(),
		Routes: RoutesConfig{
			ChatModel:             "openai/gpt-4o",
			SearchModel:           "openai/gpt-4o",
			SearchPerplexityModel: "perplexity/sonar",
			TasksModel:            "openai/gpt-4o",
			DefaultReasoningModel: "openai/gpt-4o",
		},
		Tools: defaultTools(),
		Usage: UsageConfig{Enabled: true},
		Client: ClientConfig{
			GatewayURL: "http://127.0.0.1:8790",
		},
	}
}

func defaultProviders() map[string]ProviderConfig {
	return map[string]ProviderConfig{
		"openai":     {BaseURL: "https://api.openai.com/v1", DefaultModel: "gpt-4o"},
		"deepseek":   {BaseURL: "https://api.deepseek.com", DefaultModel: "deepseek-reasoner"},
		"perplexity": {BaseURL: "https://api.perplexity.ai", DefaultModel: "sonar"},
		"anthropic":  {BaseURL: "https://api.anthropic.com", DefaultModel: "claude-sonnet-4-5-20250929"},
		"ollama":     {BaseURL: "http://localhost:11434", DefaultModel: "qwen3:latest"},
	}
}

func defaultTools() map[string]ToolConfig {
	return map[string]ToolConfig{
		"fetch_weather_data": {RequireApproval: false, Latency: Duration{1500 * time.Millisecond}},
	}
}

func GenerateSystemConfigTemplate() string {
	return `# chatgate System Configuration
# Location: ~/.config/chatgate/settings.toml
# This file uses TOML format: https://toml.io

# Directory holding config.toml, credentials and the usage ledger
data_directory = "~/.local/share/chatgate"

[security]
# "plaintext" (credentials.toml) or "ssh_key" (credentials.enc)
credential_storage = "plaintext"
# ssh_key_path = "~/.ssh/id_ed25519"
`
}

func GenerateUserConfigTemplate() string {
	return `# chatgate User Configuration
# Location: <data_directory>/config.toml
# This file uses TOML format: https://toml.io
#
# API keys are read from OPENAI_API_KEY, DEEPSEEK_API_KEY,
# PERPLEXITY_API_KEY and ANTHROPIC_API_KEY, then from the credential store.

[server]
listen = "127.0.0.1:8790"
# Hard limit for a single streamed response
max_duration = "30s"
max_body_bytes = 1048576
# Requests per second per client address
rate_limit = 10
rate_burst = 20
# Tool-call rounds per request
max_steps = 5

[routes]
chat_model = "openai/gpt-4o"
search_model = "openai/gpt-4o"
search_pplx_model = "perplexity/sonar"
tasks_model = "openai/gpt-4o"
default_reasoning_model = "openai/gpt-4o"

[providers.openai]
base_url = "https://api.openai.com/v1"

[providers.deepseek]
base_url = "https://api.deepseek.com"

[providers.perplexity]
base_url = "https://api.perplexity.ai"

[providers.anthropic]
base_url = "https://api.anthropic.com"

[providers.ollama]
base_url = "http://localhost:11434"

[tools.fetch_weather_data]
require_approval = false
latency = "1500ms"

[usage]
# Record route, model, duration and token counts (never message content)
enabled = true

[client]
gateway_url = "http://127.0.0.1:8790"
`
}
