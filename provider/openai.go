package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/respjson"
	"github.com/openai/openai-go/v3/packages/ssestream"
	"github.com/openai/openai-go/v3/shared"

	"chatgate/config"
	"chatgate/mcp"
	"chatgate/model"
)

// OpenAIProvider talks to any chat-completions compatible endpoint. The
// provider type selects which vendor extensions are read from the stream:
// DeepSeek's reasoning_content and Perplexity's citations/search_results.
type OpenAIProvider struct {
	client  openai.Client
	kind    ProviderType
	model   string
	baseURL string
}

func newCompatProvider(kind ProviderType, defaultURL, defaultModel, baseURL, apiKey, modelName string, httpClient *http.Client) *OpenAIProvider {
	if baseURL == "" {
		baseURL = defaultURL
	}
	if modelName == "" {
		modelName = defaultModel
	}

	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		// A streamed response cannot be replayed once the gateway has forwarded part of it.
		option.WithMaxRetries(0),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	return &OpenAIProvider{
		client:  openai.NewClient(opts...),
		kind:    kind,
		model:   modelName,
		baseURL: baseURL,
	}
}

func NewOpenAIProvider(baseURL, apiKey, modelName string, httpClient *http.Client) *OpenAIProvider {
	return newCompatProvider(ProviderTypeOpenAI, "https://api.openai.com/v1", "gpt-4o", baseURL, apiKey, modelName, httpClient)
}

func NewDeepSeekProvider(baseURL, apiKey, modelName string, httpClient *http.Client) *OpenAIProvider {
	return newCompatProvider(ProviderTypeDeepSeek, "https://api.deepseek.com", "deepseek-reasoner", baseURL, apiKey, modelName, httpClient)
}

func NewPerplexityProvider(baseURL, apiKey, modelName string, httpClient *http.Client) *OpenAIProvider {
	return newCompatProvider(ProviderTypePerplexity, "https://api.perplexity.ai", "sonar", baseURL, apiKey, modelName, httpClient)
}

func (p *OpenAIProvider) Stream(ctx context.Context, req model.ChatRequest) (model.EventStream, error) {
	params := openai.ChatCompletionNewParams{
		Messages: ConvertToOpenAIMessages(req.System, req.Messages),
		Model:    openai.ChatModel(p.model),
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		},
	}
	if len(req.Tools) > 0 {
		params.Tools = mcp.ToOpenAITools(req.Tools)
	}
	if rs := req.ResponseSchema; rs != nil {
		schema := shared.ResponseFormatJSONSchemaJSONSchemaParam{
			Name:   rs.Name,
			Schema: rs.Schema,
			Strict: openai.Bool(rs.Strict),
		}
		if rs.Description != "" {
			schema.Description = openai.String(rs.Description)
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{JSONSchema: schema},
		}
	}

	var opts []option.RequestOption
	if p.kind == ProviderTypePerplexity && req.Search {
		opts = append(opts,
			option.WithJSONSet("search_mode", "web"),
			option.WithJSONSet("disable_search", false),
		)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Provider] %s stream: model=%s messages=%d tools=%d", p.kind, p.model, len(params.Messages), len(req.Tools))
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params, opts...)
	if err := stream.Err(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("%s request failed: %w", p.kind, err)
	}

	return &openAIStream{
		stream: stream,
		kind:   p.kind,
		seen:   make(map[string]bool),
	}, nil
}

func (p *OpenAIProvider) Name() string {
	return string(p.kind)
}

func (p *OpenAIProvider) GetModel() string {
	return p.model
}

func (p *OpenAIProvider) SetModel(modelName string) {
	p.model = modelName
}

// Ping lists models, which every compatible backend serves.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx); err != nil {
		return fmt.Errorf("%s ping failed: %w", p.kind, err)
	}
	return nil
}

type openAIStream struct {
	stream *ssestream.Stream[openai.ChatCompletionChunk]
	acc    openai.ChatCompletionAccumulator
	kind   ProviderType
	queue  eventQueue

	seen         map[string]bool
	sources      int
	finishReason string
	usage        model.Usage
	done         bool
	err          error
}

func (s *openAIStream) Next() bool {
	for !s.queue.ready() {
		if s.done {
			return false
		}
		if !s.stream.Next() {
			s.done = true
			if err := s.stream.Err(); err != nil {
				s.err = fmt.Errorf("%s stream: %w", s.kind, err)
				return false
			}
			s.finish()
			continue
		}
		s.handle(s.stream.Current())
	}
	return s.queue.pop()
}

func (s *openAIStream) Current() model.StreamEvent { return s.queue.current }

func (s *openAIStream) Err() error { return s.err }

func (s *openAIStream) Close() error { return s.stream.Close() }

func (s *openAIStream) handle(chunk openai.ChatCompletionChunk) {
	if !s.acc.AddChunk(chunk) && config.DebugLog != nil {
		config.DebugLog.Printf("[Provider] %s: chunk %s could not be accumulated", s.kind, chunk.ID)
	}

	if chunk.JSON.Usage.Valid() {
		s.usage = model.Usage{
			PromptTokens:     chunk.Usage.PromptTokens,
			CompletionTokens: chunk.Usage.CompletionTokens,
		}
	}

	if s.kind == ProviderTypePerplexity {
		s.perplexitySources(chunk.JSON.ExtraFields)
	}

	for _, choice := range chunk.Choices {
		if choice.Index != 0 {
			continue
		}
		delta := choice.Delta

		if s.kind != ProviderTypePerplexity {
			for _, key := range []string{"reasoning_content", "reasoning"} {
				if text := extraString(delta.JSON.ExtraFields, key); text != "" {
					s.queue.push(model.StreamEvent{Kind: model.StreamReasoningDelta, Text: text})
					break
				}
			}
		}
		if delta.Content != "" {
			s.queue.push(model.StreamEvent{Kind: model.StreamTextDelta, Text: delta.Content})
		}
		s.annotationSources(delta.JSON.ExtraFields)

		if choice.FinishReason != "" {
			s.finishReason = choice.FinishReason
		}
	}
}

// finish emits accumulated tool calls and the finish event.
func (s *openAIStream) finish() {
	if len(s.acc.Choices) > 0 {
		for _, tc := range s.acc.Choices[0].Message.ToolCalls {
			if tc.Function.Name == "" {
				continue
			}
			id := tc.ID
			if id == "" {
				id = "call_" + uuid.NewString()
			}
			s.queue.push(model.StreamEvent{
				Kind: model.StreamToolCall,
				ToolCall: model.ToolCall{
					ID:        id,
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
			if s.finishReason == "" {
				s.finishReason = "tool_calls"
			}
		}
	}
	if s.finishReason == "" {
		s.finishReason = "stop"
	}
	s.queue.push(model.StreamEvent{Kind: model.StreamFinish, FinishReason: s.finishReason, Usage: s.usage})
}

func (s *openAIStream) addSource(url, title string) {
	if url == "" {
		return
	}
	s.sources++
	s.queue.push(model.StreamEvent{
		Kind:   model.StreamSource,
		Source: model.Source{ID: fmt.Sprintf("src-%d", s.sources), URL: url, Title: title},
	})
}

// addNewSource emits url only the first time it is reported.
func (s *openAIStream) addNewSource(url, title string) {
	if url == "" || s.seen[url] {
		return
	}
	s.seen[url] = true
	s.addSource(url, title)
}

// rawExtra returns the raw JSON of a vendor extension field, if present and
// not null.
func rawExtra(extra map[string]respjson.Field, key string) (string, bool) {
	field, ok := extra[key]
	if !ok {
		return "", false
	}
	raw := field.Raw()
	if raw == "" || raw == respjson.Null {
		return "", false
	}
	return raw, true
}

// annotationSources reads url_citation annotations from search models.
func (s *openAIStream) annotationSources(extra map[string]respjson.Field) {
	raw, ok := rawExtra(extra, "annotations")
	if !ok {
		return
	}
	var annotations []struct {
		Type        string `json:"type"`
		URLCitation struct {
			URL   string `json:"url"`
			Title string `json:"title"`
		} `json:"url_citation"`
	}
	if err := json.Unmarshal([]byte(raw), &annotations); err != nil {
		return
	}
	for _, a := range annotations {
		if a.Type == "url_citation" {
			s.addSource(a.URLCitation.URL, a.URLCitation.Title)
		}
	}
}

// perplexitySources reads search_results (with titles) before the bare
// citations list. Perplexity repeats both on every chunk.
func (s *openAIStream) perplexitySources(extra map[string]respjson.Field) {
	if raw, ok := rawExtra(extra, "search_results"); ok {
		var results []struct {
			URL   string `json:"url"`
			Title string `json:"title"`
		}
		if err := json.Unmarshal([]byte(raw), &results); err == nil {
			for _, r := range results {
				s.addNewSource(r.URL, r.Title)
			}
		}
	}
	if raw, ok := rawExtra(extra, "citations"); ok {
		var urls []string
		if err := json.Unmarshal([]byte(raw), &urls); err == nil {
			for _, u := range urls {
				s.addNewSource(u, "")
			}
		}
	}
}

func extraString(extra map[string]respjson.Field, key string) string {
	raw, ok := rawExtra(extra, key)
	if !ok {
		return ""
	}
	var text string
	if err := json.Unmarshal([]byte(raw), &text); err != nil {
		return ""
	}
	return text
}
