package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"chatgate/config"
	"chatgate/mcp"
	"chatgate/model"
)

const (
	anthropicMaxTokens      = 4096
	anthropicThinkingBudget = 2048
)

// AnthropicProvider streams from the Messages API. Thinking is enabled when
// the request asks for reasoning.
type AnthropicProvider struct {
	client  anthropic.Client
	model   anthropic.Model
	baseURL string
}

func NewAnthropicProvider(baseURL, apiKey, modelName string, httpClient *http.Client) *AnthropicProvider {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	m := anthropic.Model(modelName)
	if modelName == "" {
		m = anthropic.ModelClaudeSonnet4_5_20250929
	}

	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	return &AnthropicProvider{
		client:  anthropic.NewClient(opts...),
		model:   m,
		baseURL: baseURL,
	}
}

func (p *AnthropicProvider) Stream(ctx context.Context, req model.ChatRequest) (model.EventStream, error) {
	messages, system := ConvertToAnthropicMessages(req.System, req.Messages)

	params := anthropic.MessageNewParams{
		Model:     p.model,
		Messages:  messages,
		MaxTokens: anthropicMaxTokens,
	}
	if len(system) > 0 {
		params.System = system
	}
	if len(req.Tools) > 0 {
		params.Tools = mcp.ToAnthropicTools(req.Tools)
	}
	if req.Reasoning {
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(anthropicThinkingBudget)
		params.MaxTokens = anthropicMaxTokens + anthropicThinkingBudget
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Provider] anthropic stream: model=%s messages=%d thinking=%v", p.model, len(messages), req.Reasoning)
	}

	stream := p.client.Messages.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}
	return &anthropicStream{stream: stream, seen: make(map[string]bool)}, nil
}

func (p *AnthropicProvider) Name() string {
	return string(ProviderTypeAnthropic)
}

func (p *AnthropicProvider) GetModel() string {
	return string(p.model)
}

func (p *AnthropicProvider) SetModel(modelName string) {
	p.model = anthropic.Model(modelName)
}

// Ping sends a one-token request; the API has no health endpoint.
func (p *AnthropicProvider) Ping(ctx context.Context) error {
	_, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	if err != nil {
		return fmt.Errorf("anthropic ping failed: %w", err)
	}
	return nil
}

type anthropicStream struct {
	stream *ssestream.Stream[anthropic.MessageStreamEventUnion]
	msg    anthropic.Message
	queue  eventQueue
	seen   map[string]bool
	done   bool
	err    error
}

func (s *anthropicStream) Next() bool {
	for !s.queue.ready() {
		if s.done {
			return false
		}
		if !s.stream.Next() {
			s.done = true
			if err := s.stream.Err(); err != nil {
				s.err = fmt.Errorf("anthropic stream: %w", err)
				return false
			}
			s.finish()
			continue
		}
		if err := s.handle(s.stream.Current()); err != nil {
			s.done = true
			s.err = err
			return false
		}
	}
	return s.queue.pop()
}

func (s *anthropicStream) Current() model.StreamEvent { return s.queue.current }

func (s *anthropicStream) Err() error { return s.err }

func (s *anthropicStream) Close() error { return s.stream.Close() }

func (s *anthropicStream) handle(event anthropic.MessageStreamEventUnion) error {
	if err := s.msg.Accumulate(event); err != nil {
		return fmt.Errorf("anthropic accumulate: %w", err)
	}

	delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
	if !ok {
		return nil
	}
	switch d := delta.Delta.AsAny().(type) {
	case anthropic.TextDelta:
		if d.Text != "" {
			s.queue.push(model.StreamEvent{Kind: model.StreamTextDelta, Text: d.Text})
		}
	case anthropic.ThinkingDelta:
		if d.Thinking != "" {
			s.queue.push(model.StreamEvent{Kind: model.StreamReasoningDelta, Text: d.Thinking})
		}
	case anthropic.CitationsDelta:
		url := d.Citation.URL
		if url != "" && !s.seen[url] {
			s.seen[url] = true
			s.queue.push(model.StreamEvent{
				Kind:   model.StreamSource,
				Source: model.Source{ID: fmt.Sprintf("src-%d", len(s.seen)), URL: url, Title: d.Citation.Title},
			})
		}
	}
	return nil
}

// finish emits tool_use blocks from the accumulated message, then the finish event.
func (s *anthropicStream) finish() {
	for _, block := range s.msg.Content {
		toolUse, ok := block.AsAny().(anthropic.ToolUseBlock)
		if !ok {
			continue
		}
		s.queue.push(model.StreamEvent{
			Kind: model.StreamToolCall,
			ToolCall: model.ToolCall{
				ID:        toolUse.ID,
				Name:      toolUse.Name,
				Arguments: string(toolUse.Input),
			},
		})
	}

	reason := string(s.msg.StopReason)
	if reason == "" {
		reason = "stop"
	}
	s.queue.push(model.StreamEvent{
		Kind:         model.StreamFinish,
		FinishReason: reason,
		Usage: model.Usage{
			PromptTokens:     s.msg.Usage.InputTokens,
			CompletionTokens: s.msg.Usage.OutputTokens,
		},
	})
}
