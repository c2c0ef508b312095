package ollama

import "testing"

func TestModelSupportsToolCalling(t *testing.T) {
	tests := []struct {
		model string
		want  bool
	}{
		{"llama3.1:latest", true},
		{"llama3:8b", false},
		{"qwen3:14b", true},
		{"gpt-oss:20b", true},
		{"deepseek-r1:7b", false},
		{"Mistral-Nemo", true},
		{"unknown-model", false},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := ModelSupportsToolCalling(tt.model); got != tt.want {
				t.Errorf("ModelSupportsToolCalling(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

func TestNewClientDefaults(t *testing.T) {
	c, err := NewClient("", "", nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if c.GetModel() != "qwen3:latest" {
		t.Errorf("GetModel() = %q", c.GetModel())
	}
	if c.baseURL != "http://localhost:11434" {
		t.Errorf("baseURL = %q", c.baseURL)
	}

	c.SetModel("llama3.1")
	if !c.SupportsToolCalling() {
		t.Error("llama3.1 should support tools")
	}
}

func TestNewClientInvalidURL(t *testing.T) {
	if _, err := NewClient("://bad", "m", nil); err == nil {
		t.Error("expected error for invalid URL")
	}
}
