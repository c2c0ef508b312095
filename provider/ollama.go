package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"chatgate/config"
	"chatgate/mcp"
	"chatgate/model"
	"chatgate/ollama"
)

// OllamaProvider wraps the local Ollama client. Thinking-capable models
// report reasoning in message.thinking, which is forwarded as reasoning.
type OllamaProvider struct {
	client *ollama.Client
}

func NewOllamaProvider(baseURL, modelName string, httpClient *http.Client) (*OllamaProvider, error) {
	client, err := ollama.NewClient(baseURL, modelName, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}
	return &OllamaProvider{client: client}, nil
}

func (p *OllamaProvider) Stream(ctx context.Context, req model.ChatRequest) (model.EventStream, error) {
	messages := ConvertToOllamaMessages(req.System, req.Messages)
	tools := mcp.ToOllamaTools(req.Tools)

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Provider] ollama stream: model=%s messages=%d tools=%d", p.client.GetModel(), len(messages), len(tools))
	}

	return newChanStream(ctx, func(ctx context.Context, emit emitFunc) error {
		var (
			usage  model.Usage
			reason string
			calls  []model.ToolCall
		)
		err := p.client.Chat(ctx, messages, tools, func(chunk ollama.Chunk) error {
			if chunk.Thinking != "" {
				if err := emit(model.StreamEvent{Kind: model.StreamReasoningDelta, Text: chunk.Thinking}); err != nil {
					return err
				}
			}
			if chunk.Content != "" {
				if err := emit(model.StreamEvent{Kind: model.StreamTextDelta, Text: chunk.Content}); err != nil {
					return err
				}
			}
			for _, tc := range chunk.ToolCalls {
				args, err := json.Marshal(tc.Function.Arguments)
				if err != nil {
					args = []byte("{}")
				}
				calls = append(calls, model.ToolCall{
					ID:        "call_" + uuid.NewString(),
					Name:      tc.Function.Name,
					Arguments: string(args),
				})
			}
			if chunk.Done {
				reason = chunk.DoneReason
				usage = model.Usage{
					PromptTokens:     int64(chunk.PromptTokens),
					CompletionTokens: int64(chunk.CompletionTokens),
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("ollama stream: %w", err)
		}

		for _, call := range calls {
			if err := emit(model.StreamEvent{Kind: model.StreamToolCall, ToolCall: call}); err != nil {
				return err
			}
		}
		if reason == "" {
			reason = "stop"
		}
		if len(calls) > 0 {
			reason = "tool_calls"
		}
		return emit(model.StreamEvent{Kind: model.StreamFinish, FinishReason: reason, Usage: usage})
	}), nil
}

func (p *OllamaProvider) Name() string {
	return string(ProviderTypeOllama)
}

func (p *OllamaProvider) GetModel() string {
	return p.client.GetModel()
}

func (p *OllamaProvider) SetModel(modelName string) {
	p.client.SetModel(modelName)
}

func (p *OllamaProvider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}
