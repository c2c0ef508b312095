package config

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("CHATGATE_CONFIG_DIR", "")
	t.Setenv("CHATGATE_DATA_DIR", "")
	t.Setenv("CHATGATE_LISTEN", "")
	t.Setenv("CHATGATE_GATEWAY_URL", "")
	for _, env := range credentialEnv {
		t.Setenv(env, "")
	}
	return home
}

func TestLoadCreatesTemplatesWithDefaults(t *testing.T) {
	home := isolate(t)
	dataDir := filepath.Join(home, "data")
	t.Setenv("CHATGATE_DATA_DIR", dataDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !FileExists(filepath.Join(home, ".config", "chatgate", "settings.toml")) {
		t.Error("settings.toml was not created")
	}
	if !FileExists(filepath.Join(dataDir, "config.toml")) {
		t.Error("config.toml was not created")
	}
	if cfg.Server.MaxDuration.Duration != 30*time.Second {
		t.Errorf("MaxDuration = %v, want 30s", cfg.Server.MaxDuration)
	}
	if cfg.Routes.DefaultReasoningModel != "openai/gpt-4o" {
		t.Errorf("DefaultReasoningModel = %q", cfg.Routes.DefaultReasoningModel)
	}
	if cfg.Routes.SearchPerplexityModel != "perplexity/sonar" {
		t.Errorf("SearchPerplexityModel = %q", cfg.Routes.SearchPerplexityModel)
	}
	if !cfg.UsageEnabled {
		t.Error("usage ledger should be enabled by default")
	}
}

func TestLoadReadsTemplateBack(t *testing.T) {
	home := isolate(t)
	dataDir := filepath.Join(home, "data")
	t.Setenv("CHATGATE_DATA_DIR", dataDir)

	if _, err := Load(); err != nil {
		t.Fatalf("first Load() error = %v", err)
	}
	// Second load parses the generated template instead of using defaults.
	cfg, err := Load()
	if err != nil {
		t.Fatalf("second Load() error = %v", err)
	}

	if got := cfg.Tool("fetch_weather_data").Latency.Duration; got != 1500*time.Millisecond {
		t.Errorf("weather latency = %v, want 1.5s", got)
	}
	if cfg.Server.MaxSteps != 5 {
		t.Errorf("MaxSteps = %d, want 5", cfg.Server.MaxSteps)
	}
	if got := cfg.Provider("deepseek").BaseURL; got != "https://api.deepseek.com" {
		t.Errorf("deepseek base url = %q", got)
	}
}

func TestUserConfigOverrides(t *testing.T) {
	home := isolate(t)
	dataDir := filepath.Join(home, "data")
	t.Setenv("CHATGATE_DATA_DIR", dataDir)
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		t.Fatal(err)
	}

	content := `
[server]
max_duration = "5s"
max_steps = 2

[tools.fetch_weather_data]
require_approval = true

[providers.openai]
base_url = "http://localhost:9999/v1"
`
	if err := os.WriteFile(filepath.Join(dataDir, "config.toml"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.MaxDuration.Duration != 5*time.Second {
		t.Errorf("MaxDuration = %v, want 5s", cfg.Server.MaxDuration)
	}
	if cfg.Server.Listen != "127.0.0.1:8790" {
		t.Errorf("Listen = %q, default expected", cfg.Server.Listen)
	}
	tool := cfg.Tool("fetch_weather_data")
	if !tool.RequireApproval {
		t.Error("RequireApproval override lost")
	}
	if tool.Latency.Duration != 1500*time.Millisecond {
		t.Errorf("latency = %v, want default", tool.Latency)
	}
	pc := cfg.Provider("openai")
	if pc.BaseURL != "http://localhost:9999/v1" {
		t.Errorf("BaseURL = %q", pc.BaseURL)
	}
	if pc.DefaultModel != "gpt-4o" {
		t.Errorf("DefaultModel = %q, want default", pc.DefaultModel)
	}
}

func TestAPIKeyResolution(t *testing.T) {
	isolate(t)

	store := NewCredentialStore(SecurityPlainText, "")
	store.Set("openai", "stored-openai")
	store.Set("deepseek", "stored-deepseek")
	cfg := &Config{CredentialStore: store}

	t.Setenv("OPENAI_API_KEY", "env-openai")

	tests := []struct {
		name     string
		provider string
		want     string
	}{
		{"environment wins", "openai", "env-openai"},
		{"store fallback", "deepseek", "stored-deepseek"},
		{"absent is empty", "perplexity", ""},
		{"unknown provider", "nope", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.APIKey(tt.provider); got != tt.want {
				t.Errorf("APIKey(%q) = %q, want %q", tt.provider, got, tt.want)
			}
		})
	}
}

func TestPlainTextCredentialsRoundTrip(t *testing.T) {
	dir := t.TempDir()

	store := NewCredentialStore(SecurityPlainText, "")
	store.Set("anthropic", "sk-ant")
	if err := store.Save(dir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "credentials.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("credentials perms = %o, want 600", info.Mode().Perm())
	}

	loaded := NewCredentialStore(SecurityPlainText, "")
	if err := loaded.Load(dir); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := loaded.Get("anthropic"); got != "sk-ant" {
		t.Errorf("Get() = %q", got)
	}
	if ids := loaded.Providers(); len(ids) != 1 || ids[0] != "anthropic" {
		t.Errorf("Providers() = %v", ids)
	}
}

func writeTestKey(t *testing.T, dir string) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	block, err := ssh.MarshalPrivateKey(priv, "test")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "id_ed25519")
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSSHEncryptedCredentialsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	keyPath := writeTestKey(t, dir)

	store := NewCredentialStore(SecuritySSHKey, keyPath)
	store.Set("perplexity", "pplx-key")
	if err := store.Save(dir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) == `{"perplexity":"pplx-key"}` {
		t.Fatal("credentials were written unencrypted")
	}

	loaded := NewCredentialStore(SecuritySSHKey, keyPath)
	if err := loaded.Load(dir); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := loaded.Get("perplexity"); got != "pplx-key" {
		t.Errorf("Get() = %q", got)
	}
}

func TestDurationUnmarshalText(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"30s", 30 * time.Second, false},
		{"1500ms", 1500 * time.Millisecond, false},
		{"soon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalText([]byte(tt.in))
			if (err != nil) != tt.wantErr {
				t.Fatalf("UnmarshalText(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && d.Duration != tt.want {
				t.Errorf("got %v, want %v", d.Duration, tt.want)
			}
		})
	}
}
