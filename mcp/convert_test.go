package mcp

import (
	"encoding/json"
	"testing"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"
)

func weatherTool() mcptypes.Tool {
	return mcptypes.NewTool("fetch_weather_data",
		mcptypes.WithDescription("Fetch weather information for a specific location"),
		mcptypes.WithString("location", mcptypes.Required(), mcptypes.Description("City")),
		mcptypes.WithString("units", mcptypes.Enum("celsius", "fahrenheit")),
	)
}

func TestToOllamaTools(t *testing.T) {
	tests := []struct {
		name     string
		input    []mcptypes.Tool
		expected int
		validate func(t *testing.T, result []api.Tool)
	}{
		{
			name:     "empty tools",
			input:    nil,
			expected: 0,
		},
		{
			name: "bare schema defaults to object",
			input: []mcptypes.Tool{
				{Name: "ping", Description: "Ping"},
			},
			expected: 1,
			validate: func(t *testing.T, result []api.Tool) {
				if result[0].Type != "function" {
					t.Errorf("expected type 'function', got %q", result[0].Type)
				}
				if result[0].Function.Parameters.Type != "object" {
					t.Errorf("expected parameters type 'object', got %q", result[0].Function.Parameters.Type)
				}
			},
		},
		{
			name:     "string enum survives",
			input:    []mcptypes.Tool{weatherTool()},
			expected: 1,
			validate: func(t *testing.T, result []api.Tool) {
				fn := result[0].Function
				if fn.Name != "fetch_weather_data" {
					t.Errorf("name = %q", fn.Name)
				}
				if len(fn.Parameters.Required) != 1 || fn.Parameters.Required[0] != "location" {
					t.Errorf("required = %v", fn.Parameters.Required)
				}
				units := fn.Parameters.Properties["units"]
				if len(units.Enum) != 2 || units.Enum[0] != "celsius" {
					t.Errorf("units enum = %v", units.Enum)
				}
				loc := fn.Parameters.Properties["location"]
				if len(loc.Type) != 1 || loc.Type[0] != "string" || loc.Description != "City" {
					t.Errorf("location = %+v", loc)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToOllamaTools(tt.input)
			if len(result) != tt.expected {
				t.Fatalf("expected %d tools, got %d", tt.expected, len(result))
			}
			if tt.validate != nil {
				tt.validate(t, result)
			}
		})
	}
}

func TestToOpenAITools(t *testing.T) {
	if got := ToOpenAITools(nil); got != nil {
		t.Errorf("expected nil for no tools, got %v", got)
	}

	result := ToOpenAITools([]mcptypes.Tool{weatherTool(), {Name: "ping"}})
	if len(result) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(result))
	}

	raw, err := json.Marshal(result[0])
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Type     string `json:"type"`
		Function struct {
			Name       string         `json:"name"`
			Parameters map[string]any `json:"parameters"`
		} `json:"function"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Type != "function" || decoded.Function.Name != "fetch_weather_data" {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.Function.Parameters["type"] != "object" {
		t.Errorf("parameters type = %v", decoded.Function.Parameters["type"])
	}

	fn := result[1].OfFunction
	if fn == nil {
		t.Fatal("expected function tool")
	}
	if props, ok := fn.Function.Parameters["properties"].(map[string]any); !ok || props == nil {
		t.Errorf("properties must be a non-nil object, got %#v", fn.Function.Parameters["properties"])
	}
	if _, ok := fn.Function.Parameters["required"]; ok {
		t.Error("empty required list should be omitted")
	}
}

func TestToAnthropicTools(t *testing.T) {
	result := ToAnthropicTools([]mcptypes.Tool{weatherTool()})
	if len(result) != 1 || result[0].OfTool == nil {
		t.Fatalf("result = %+v", result)
	}
	tool := result[0].OfTool
	if tool.Name != "fetch_weather_data" {
		t.Errorf("name = %q", tool.Name)
	}
	if !tool.Description.Valid() || tool.Description.Value == "" {
		t.Error("description not set")
	}
	if len(tool.InputSchema.Required) != 1 {
		t.Errorf("required = %v", tool.InputSchema.Required)
	}
}
