package provider

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"

	"chatgate/model"
)

// ConvertToOpenAIMessages converts provider-agnostic turns to chat-completions
// params. A non-empty system prompt is sent first.
func ConvertToOpenAIMessages(system string, messages []model.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if system != "" {
		result = append(result, openai.SystemMessage(system))
	}

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))
		case model.RoleUser:
			result = append(result, openai.UserMessage(msg.Content))
		case model.RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				result = append(result, openai.AssistantMessage(msg.Content))
				continue
			}
			asst := openai.ChatCompletionAssistantMessageParam{}
			if msg.Content != "" {
				asst.Content.OfString = openai.String(msg.Content)
			}
			for _, tc := range msg.ToolCalls {
				asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: tc.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      tc.Name,
							Arguments: tc.Arguments,
						},
					},
				})
			}
			result = append(result, openai.ChatCompletionMessageParamUnion{OfAssistant: &asst})
		case model.RoleTool:
			result = append(result, openai.ToolMessage(msg.Content, msg.ToolCallID))
		}
	}
	return result
}

// ConvertToAnthropicMessages converts turns to Anthropic params. System
// turns move to the separate system parameter and consecutive tool results
// share one user message.
func ConvertToAnthropicMessages(system string, messages []model.ChatMessage) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var systemBlocks []anthropic.TextBlockParam
	if system != "" {
		systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: system})
	}

	result := make([]anthropic.MessageParam, 0, len(messages))
	lastWasToolResult := false

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: msg.Content})
			lastWasToolResult = false

		case model.RoleUser:
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
			lastWasToolResult = false

		case model.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, json.RawMessage(argumentsOrEmpty(tc.Arguments)), tc.Name))
			}
			if len(blocks) > 0 {
				result = append(result, anthropic.NewAssistantMessage(blocks...))
			}
			lastWasToolResult = false

		case model.RoleTool:
			block := anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false)
			if lastWasToolResult {
				last := &result[len(result)-1]
				last.Content = append(last.Content, block)
			} else {
				result = append(result, anthropic.NewUserMessage(block))
			}
			lastWasToolResult = true
		}
	}

	return result, systemBlocks
}

// ConvertToOllamaMessages converts turns to Ollama messages.
func ConvertToOllamaMessages(system string, messages []model.ChatMessage) []api.Message {
	result := make([]api.Message, 0, len(messages)+1)
	if system != "" {
		result = append(result, api.Message{Role: model.RoleSystem, Content: system})
	}

	for _, msg := range messages {
		out := api.Message{Role: msg.Role, Content: msg.Content}
		for _, tc := range msg.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, api.ToolCall{
				Function: api.ToolCallFunction{
					Name:      tc.Name,
					Arguments: ParseToolArguments(tc.Arguments),
				},
			})
		}
		result = append(result, out)
	}
	return result
}

// ParseToolArguments parses a JSON arguments string into a map. Invalid
// JSON yields an empty map.
func ParseToolArguments(argsJSON string) map[string]any {
	var args map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil || args == nil {
		return make(map[string]any)
	}
	return args
}

func argumentsOrEmpty(args string) string {
	if args == "" {
		return "{}"
	}
	return args
}
