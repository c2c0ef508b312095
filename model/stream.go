package model

import (
	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// StreamEventKind identifies a backend stream event.
type StreamEventKind int

const (
	StreamTextDelta StreamEventKind = iota
	StreamReasoningDelta
	StreamSource
	StreamToolCall
	StreamFinish
)

func (k StreamEventKind) String() string {
	switch k {
	case StreamTextDelta:
		return "text-delta"
	case StreamReasoningDelta:
		return "reasoning-delta"
	case StreamSource:
		return "source"
	case StreamToolCall:
		return "tool-call"
	case StreamFinish:
		return "finish"
	default:
		return "unknown"
	}
}

type Source struct {
	ID    string
	URL   string
	Title string
}

// ToolCall is a complete tool invocation requested by the model.
// Arguments is the raw JSON object text.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
}

// StreamEvent is a normalized event from any provider stream.
type StreamEvent struct {
	Kind         StreamEventKind
	Text         string
	Source       Source
	ToolCall     ToolCall
	FinishReason string
	Usage        Usage
}

// EventStream is a lazy single-pass sequence of backend events. Next
// advances and reports whether Current holds an event; once it returns
// false, Err reports why. Close releases the backend connection and may be
// called at any point.
type EventStream interface {
	Next() bool
	Current() StreamEvent
	Err() error
	Close() error
}

// ChatMessage is the provider-facing form of a conversation turn.
type ChatMessage struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// ResponseSchema requests structured JSON output from providers that support it.
type ResponseSchema struct {
	Name        string
	Description string
	Schema      any
	// Strict requires every property to be present; schemas with optional
	// fields leave it off.
	Strict bool
}

type ChatRequest struct {
	System   string
	Messages []ChatMessage
	Tools    []mcptypes.Tool

	// Reasoning asks the backend to produce reasoning deltas when it can.
	Reasoning bool
	// Search forces web search on backends that make it optional.
	Search bool

	ResponseSchema *ResponseSchema
}
