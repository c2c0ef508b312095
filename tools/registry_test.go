package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"chatgate/config"
)

func echoTool(name string) Tool {
	return Tool{
		Definition: mcptypes.NewTool(name),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return args, nil
		},
	}
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(echoTool("a")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(echoTool("b")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(echoTool("a")); err == nil {
		t.Error("duplicate name should fail")
	}
	if err := r.Register(Tool{Definition: mcptypes.NewTool("c")}); err == nil {
		t.Error("missing handler should fail")
	}

	defs := r.Definitions()
	if len(defs) != 2 || defs[0].Name != "a" || defs[1].Name != "b" {
		t.Errorf("Definitions() = %v", defs)
	}
}

func TestRegistryExecute(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(echoTool("echo"))
	_ = r.Register(Tool{
		Definition: mcptypes.NewTool("fail"),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return nil, errors.New("service unavailable")
		},
	})

	tests := []struct {
		name    string
		tool    string
		args    string
		want    string
		wantErr bool
	}{
		{"object args", "echo", `{"x":1}`, `{"x":1}`, false},
		{"empty args", "echo", "", `{}`, false},
		{"null args", "echo", "null", `{}`, false},
		{"malformed args", "echo", `{"x":`, "", true},
		{"unknown tool", "missing", "{}", "", true},
		{"handler error", "fail", "{}", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := r.Execute(context.Background(), tt.tool, tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && string(out) != tt.want {
				t.Errorf("Execute() = %s, want %s", out, tt.want)
			}
		})
	}
}

func TestDefaultRegistryUsesConfig(t *testing.T) {
	cfg := &config.Config{Tools: map[string]config.ToolConfig{
		WeatherToolName: {RequireApproval: true, Latency: config.Duration{Duration: time.Millisecond}},
	}}

	r := NewDefaultRegistry(cfg)
	if !r.RequiresApproval(WeatherToolName) {
		t.Error("approval setting not applied")
	}
	if r.RequiresApproval("missing") {
		t.Error("unknown tool cannot require approval")
	}

	out, err := r.Execute(context.Background(), WeatherToolName, `{"location":"Lima","units":"fahrenheit"}`)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	var report WeatherReport
	if err := json.Unmarshal(out, &report); err != nil {
		t.Fatal(err)
	}
	if report.Location != "Lima" || report.Temperature < 41 || report.Temperature > 103 {
		t.Errorf("report = %+v", report)
	}
}
