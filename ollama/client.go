package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

type Client struct {
	client  *api.Client
	model   string
	baseURL string
}

// Chunk is one streamed piece of an Ollama chat response.
type Chunk struct {
	Content    string
	Thinking   string
	ToolCalls  []api.ToolCall
	Done       bool
	DoneReason string

	PromptTokens     int
	CompletionTokens int
}

type StreamCallback func(chunk Chunk) error

func NewClient(baseURL, model string, httpClient *http.Client) (*Client, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "qwen3:latest"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	return &Client{
		client:  api.NewClient(parsedURL, httpClient),
		model:   model,
		baseURL: baseURL,
	}, nil
}

// Chat streams a chat completion. Tools are dropped for models that are not
// known to support Ollama's tool calling API.
func (c *Client) Chat(ctx context.Context, messages []api.Message, tools []api.Tool, callback StreamCallback) error {
	stream := true
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   &stream,
	}
	if len(tools) > 0 && c.SupportsToolCalling() {
		req.Tools = tools
	}

	return c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		if callback == nil {
			return nil
		}
		return callback(Chunk{
			Content:          resp.Message.Content,
			Thinking:         resp.Message.Thinking,
			ToolCalls:        resp.Message.ToolCalls,
			Done:             resp.Done,
			DoneReason:       resp.DoneReason,
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
		})
	})
}

func (c *Client) SetModel(model string) {
	c.model = model
}

func (c *Client) GetModel() string {
	return c.model
}

func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := c.client.List(ctx)
	return err
}

// toolCallingModels is a curated list of model families and whether they
// support tool calling.
var toolCallingModels = map[string]bool{
	"qwen3":       true,
	"qwen":        true,
	"llama3.3":    true,
	"llama3.2":    true,
	"llama3.1":    true,
	"gpt-oss":     true,
	"mistral":     true,
	"command-r":   true,
	"granite3":    true,
	"deepseek-r1": false,
	"llama3":      false,
	"gemma":       false,
	"phi":         false,
}

// orderedPrefixes lists prefixes most specific first so "llama3.1" is
// matched before "llama3".
var orderedPrefixes = []string{
	"llama3.3", "llama3.2", "llama3.1",
	"qwen3", "gpt-oss", "deepseek-r1",
	"command-r", "qwen", "mistral", "granite3",
	"llama3", "gemma", "phi",
}

func (c *Client) SupportsToolCalling() bool {
	return ModelSupportsToolCalling(c.model)
}

// ModelSupportsToolCalling reports whether a model family is known to
// support tools. Unknown models are treated as unsupported.
func ModelSupportsToolCalling(modelName string) bool {
	modelName = strings.ToLower(modelName)
	for _, prefix := range orderedPrefixes {
		if strings.HasPrefix(modelName, prefix) {
			return toolCallingModels[prefix]
		}
	}
	return false
}
