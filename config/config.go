package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type SystemConfig struct {
	DataDirectory string         `toml:"data_directory"`
	Security      SecurityConfig `toml:"security"`
}

type SecurityConfig struct {
	CredentialStorage SecurityMethod `toml:"credential_storage"`
	SSHKeyPath        string         `toml:"ssh_key_path,omitempty"`
}

type ServerConfig struct {
	Listen       string   `toml:"listen"`
	MaxDuration  Duration `toml:"max_duration"`
	MaxBodyBytes int64    `toml:"max_body_bytes"`
	RateLimit    float64  `toml:"rate_limit"`
	RateBurst    int      `toml:"rate_burst"`
	MaxSteps     int      `toml:"max_steps"`
}

type ProviderConfig struct {
	BaseURL      string `toml:"base_url,omitempty"`
	DefaultModel string `toml:"default_model,omitempty"`
}

// RoutesConfig holds "provider/model" strings for each gateway route.
type RoutesConfig struct {
	ChatModel             string `toml:"chat_model"`
	SearchModel           string `toml:"search_model"`
	SearchPerplexityModel string `toml:"search_pplx_model"`
	TasksModel            string `toml:"tasks_model"`
	DefaultReasoningModel string `toml:"default_reasoning_model"`
}

type ToolConfig struct {
	RequireApproval bool     `toml:"require_approval"`
	Latency         Duration `toml:"latency"`
}

type UsageConfig struct {
	Enabled bool `toml:"enabled"`
}

type ClientConfig struct {
	GatewayURL string `toml:"gateway_url"`
}

type UserConfig struct {
	Server    ServerConfig              `toml:"server"`
	Providers map[string]ProviderConfig `toml:"providers"`
	Routes    RoutesConfig              `toml:"routes"`
	Tools     map[string]ToolConfig     `toml:"tools"`
	Usage     UsageConfig               `toml:"usage"`
	Client    ClientConfig              `toml:"client"`
}

// Config is the resolved runtime configuration.
type Config struct {
	DataDirectory string
	Server        ServerConfig
	Providers     map[string]ProviderConfig
	Routes        RoutesConfig
	Tools         map[string]ToolConfig
	UsageEnabled  bool
	GatewayURL    string

	CredentialStore *CredentialStore
}

var Debug = false
var DebugLog *log.Logger

// credentialEnv maps provider ids to the environment variable holding their key.
var credentialEnv = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"deepseek":   "DEEPSEEK_API_KEY",
	"perplexity": "PERPLEXITY_API_KEY",
	"anthropic":  "ANTHROPIC_API_KEY",
}

// Duration is a time.Duration that decodes from TOML strings like "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

// APIKey resolves the credential for a provider. The environment wins over
// the credential store. A missing credential is the empty string.
func (c *Config) APIKey(providerID string) string {
	if env, ok := credentialEnv[providerID]; ok {
		if key := os.Getenv(env); key != "" {
			return key
		}
	}
	if c.CredentialStore != nil {
		return c.CredentialStore.Get(providerID)
	}
	return ""
}

// Provider returns the provider section merged over the built-in defaults.
func (c *Config) Provider(id string) ProviderConfig {
	pc := defaultProviders()[id]
	if override, ok := c.Providers[id]; ok {
		if override.BaseURL != "" {
			pc.BaseURL = override.BaseURL
		}
		if override.DefaultModel != "" {
			pc.DefaultModel = override.DefaultModel
		}
	}
	return pc
}

// Tool returns the settings for a tool, falling back to defaults.
func (c *Config) Tool(name string) ToolConfig {
	tc, ok := c.Tools[name]
	if !ok {
		tc = defaultTools()[name]
	}
	if tc.Latency.Duration == 0 {
		tc.Latency = defaultTools()[name].Latency
	}
	return tc
}

func (c *Config) applyEnvOverrides() {
	if dataDir := os.Getenv("CHATGATE_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
	if listen := os.Getenv("CHATGATE_LISTEN"); listen != "" {
		c.Server.Listen = listen
	}
	if url := os.Getenv("CHATGATE_GATEWAY_URL"); url != "" {
		c.GatewayURL = url
	}
}

func (c *Config) applyUserConfig(u *UserConfig) {
	def := DefaultUserConfig()

	c.Server = u.Server
	if c.Server.Listen == "" {
		c.Server.Listen = def.Server.Listen
	}
	if c.Server.MaxDuration.Duration <= 0 {
		c.Server.MaxDuration = def.Server.MaxDuration
	}
	if c.Server.MaxBodyBytes <= 0 {
		c.Server.MaxBodyBytes = def.Server.MaxBodyBytes
	}
	if c.Server.RateLimit <= 0 {
		c.Server.RateLimit = def.Server.RateLimit
	}
	if c.Server.RateBurst <= 0 {
		c.Server.RateBurst = def.Server.RateBurst
	}
	if c.Server.MaxSteps <= 0 {
		c.Server.MaxSteps = def.Server.MaxSteps
	}

	c.Routes = u.Routes
	if c.Routes.ChatModel == "" {
		c.Routes.ChatModel = def.Routes.ChatModel
	}
	if c.Routes.SearchModel == "" {
		c.Routes.SearchModel = def.Routes.SearchModel
	}
	if c.Routes.SearchPerplexityModel == "" {
		c.Routes.SearchPerplexityModel = def.Routes.SearchPerplexityModel
	}
	if c.Routes.TasksModel == "" {
		c.Routes.TasksModel = def.Routes.TasksModel
	}
	if c.Routes.DefaultReasoningModel == "" {
		c.Routes.DefaultReasoningModel = def.Routes.DefaultReasoningModel
	}

	c.Providers = u.Providers
	c.Tools = u.Tools
	c.UsageEnabled = u.Usage.Enabled
	c.GatewayURL = u.Client.GatewayURL
	if c.GatewayURL == "" {
		c.GatewayURL = def.Client.GatewayURL
	}
}

func CheckDebug() bool {
	debug := strings.ToLower(os.Getenv("CHATGATE_DEBUG"))
	return debug == "true" || debug == "1"
}

func InitDebugLog(dataDir string) {
	if !CheckDebug() {
		return
	}

	Debug = true
	logPath := filepath.Join(dataDir, "debug.log")

	// 0600, the log may contain request payloads
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	DebugLog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
	DebugLog.Printf("=== Debug logging started (CHATGATE_DEBUG=%s) ===", os.Getenv("CHATGATE_DEBUG"))
	DebugLog.Printf("Log path: %s", logPath)
}

// Load reads settings.toml and the user config from the data directory,
// creating both from templates when missing, then loads the credential store.
func Load() (*Config, error) {
	cfg := &Config{}

	systemCfg, err := LoadSystemConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load system config: %w", err)
	}
	cfg.DataDirectory = systemCfg.DataDirectory
	if dataDir := os.Getenv("CHATGATE_DATA_DIR"); dataDir != "" {
		cfg.DataDirectory = dataDir
	}

	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to set data directory permissions: %w", err)
	}

	userCfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	cfg.applyUserConfig(userCfg)
	cfg.applyEnvOverrides()

	store, err := openCredentialStore(systemCfg.Security, dataDir)
	if err != nil {
		// Keys may still come from the environment.
		if DebugLog != nil {
			DebugLog.Printf("[Config] credential store unavailable: %v", err)
		}
	}
	cfg.CredentialStore = store

	return cfg, nil
}

func openCredentialStore(sec SecurityConfig, dataDir string) (*CredentialStore, error) {
	method := sec.CredentialStorage
	if method == "" {
		method = SecurityPlainText
	}

	keyPath := ExpandPath(sec.SSHKeyPath)
	if method == SecuritySSHKey && keyPath == "" {
		keys, err := FindSSHKeys()
		if err != nil || len(keys) == 0 {
			return nil, fmt.Errorf("no SSH key found for encrypted credentials")
		}
		keyPath = keys[0]
	}

	store := NewCredentialStore(method, keyPath)
	if pass := os.Getenv("CHATGATE_SSH_PASSPHRASE"); pass != "" {
		store.SetPassphrase(pass)
	}
	if err := store.Load(dataDir); err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	return store, nil
}
