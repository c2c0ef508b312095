package mcp

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"
)

// ToOllamaTools converts MCP tool definitions to Ollama function tools.
func ToOllamaTools(tools []mcptypes.Tool) []api.Tool {
	if len(tools) == 0 {
		return nil
	}

	result := make([]api.Tool, 0, len(tools))
	for _, tool := range tools {
		params := api.ToolFunctionParameters{
			Type:       schemaType(tool.InputSchema),
			Required:   tool.InputSchema.Required,
			Properties: make(map[string]api.ToolProperty, len(tool.InputSchema.Properties)),
		}
		if tool.InputSchema.Defs != nil {
			params.Defs = tool.InputSchema.Defs
		}
		for name, prop := range tool.InputSchema.Properties {
			params.Properties[name] = ollamaProperty(prop)
		}

		result = append(result, api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  params,
			},
		})
	}
	return result
}

func ollamaProperty(raw any) api.ToolProperty {
	var prop api.ToolProperty

	propMap, ok := raw.(map[string]any)
	if !ok {
		// Typed schema values round-trip through JSON into a plain map.
		data, err := json.Marshal(raw)
		if err != nil {
			return prop
		}
		if err := json.Unmarshal(data, &propMap); err != nil {
			return prop
		}
	}

	switch t := propMap["type"].(type) {
	case string:
		prop.Type = api.PropertyType{t}
	case []string:
		prop.Type = api.PropertyType(t)
	case []any:
		types := make([]string, 0, len(t))
		for _, v := range t {
			if s, ok := v.(string); ok {
				types = append(types, s)
			}
		}
		prop.Type = api.PropertyType(types)
	}

	if desc, ok := propMap["description"].(string); ok {
		prop.Description = desc
	}

	switch enum := propMap["enum"].(type) {
	case []any:
		prop.Enum = enum
	case []string:
		for _, v := range enum {
			prop.Enum = append(prop.Enum, v)
		}
	}

	if items, ok := propMap["items"]; ok {
		prop.Items = items
	}

	if anyOf, ok := propMap["anyOf"].([]any); ok {
		for _, item := range anyOf {
			prop.AnyOf = append(prop.AnyOf, ollamaProperty(item))
		}
	}

	return prop
}

// ToOpenAITools converts MCP tool definitions to chat-completions function
// tools. OpenAI, DeepSeek and Perplexity share this format.
func ToOpenAITools(tools []mcptypes.Tool) []openai.ChatCompletionToolUnionParam {
	if len(tools) == 0 {
		return nil
	}

	result := make([]openai.ChatCompletionToolUnionParam, len(tools))
	for i, tool := range tools {
		params := openai.FunctionParameters{
			"type":       schemaType(tool.InputSchema),
			"properties": nonNilProperties(tool.InputSchema.Properties),
		}
		if len(tool.InputSchema.Required) > 0 {
			params["required"] = tool.InputSchema.Required
		}
		if tool.InputSchema.Defs != nil {
			params["$defs"] = tool.InputSchema.Defs
		}

		result[i] = openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        tool.Name,
			Description: openai.String(tool.Description),
			Parameters:  params,
		})
	}
	return result
}

// ToAnthropicTools converts MCP tool definitions to Anthropic tool params.
func ToAnthropicTools(tools []mcptypes.Tool) []anthropic.ToolUnionParam {
	if len(tools) == 0 {
		return nil
	}

	result := make([]anthropic.ToolUnionParam, len(tools))
	for i, tool := range tools {
		schema := anthropic.ToolInputSchemaParam{
			Properties: nonNilProperties(tool.InputSchema.Properties),
		}
		if len(tool.InputSchema.Required) > 0 {
			schema.Required = tool.InputSchema.Required
		}
		if tool.InputSchema.Defs != nil {
			schema.ExtraFields = map[string]any{"$defs": tool.InputSchema.Defs}
		}

		result[i] = anthropic.ToolUnionParamOfTool(schema, tool.Name)
		if tool.Description != "" {
			result[i].OfTool.Description = anthropic.String(tool.Description)
		}
	}
	return result
}

func schemaType(schema mcptypes.ToolInputSchema) string {
	if schema.Type == "" {
		return "object"
	}
	return schema.Type
}

func nonNilProperties(props map[string]any) map[string]any {
	if props == nil {
		return map[string]any{}
	}
	return props
}
