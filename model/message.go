package model

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// PartKind classifies a Part by its wire type.
type PartKind int

const (
	PartUnknown PartKind = iota
	PartText
	PartReasoning
	PartSourceURL
	PartTool
	PartStepStart
)

// Tool part states, in lifecycle order.
const (
	ToolInputAvailable    = "input-available"
	ToolApprovalRequested = "approval-requested"
	ToolApprovalResponded = "approval-responded"
	ToolOutputAvailable   = "output-available"
	ToolOutputError       = "output-error"
	ToolOutputDenied      = "output-denied"
)

// Text and reasoning part states.
const (
	PartStreaming = "streaming"
	PartDone      = "done"
)

// Approval is attached to a tool part that needs user confirmation.
// Approved is nil until the user responds.
type Approval struct {
	ID       string `json:"id"`
	Approved *bool  `json:"approved,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Part is one ordered piece of a message. Type is the wire tag: "text",
// "reasoning", "source-url", "step-start" or "tool-<name>". Parts with any
// other tag are kept as-is and classified PartUnknown.
type Part struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	State string `json:"state,omitempty"`

	SourceID string `json:"sourceId,omitempty"`
	URL      string `json:"url,omitempty"`
	Title    string `json:"title,omitempty"`

	ToolCallID string          `json:"toolCallId,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	Output     json.RawMessage `json:"output,omitempty"`
	ErrorText  string          `json:"errorText,omitempty"`
	Approval   *Approval       `json:"approval,omitempty"`
}

func (p Part) Kind() PartKind {
	switch {
	case p.Type == "text":
		return PartText
	case p.Type == "reasoning":
		return PartReasoning
	case p.Type == "source-url":
		return PartSourceURL
	case p.Type == "step-start":
		return PartStepStart
	case strings.HasPrefix(p.Type, "tool-") && len(p.Type) > len("tool-"):
		return PartTool
	default:
		return PartUnknown
	}
}

// ToolName returns the tool name of a tool part, or "".
func (p Part) ToolName() string {
	if p.Kind() != PartTool {
		return ""
	}
	return strings.TrimPrefix(p.Type, "tool-")
}

// Message is a conversation entry made of ordered parts.
type Message struct {
	ID    string `json:"id"`
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

func NewMessageID() string {
	return uuid.NewString()
}

// NewUserMessage builds a user message with a single text part.
func NewUserMessage(text string) Message {
	return Message{
		ID:    NewMessageID(),
		Role:  RoleUser,
		Parts: []Part{{Type: "text", Text: text}},
	}
}

// Text concatenates the message's text parts.
func (m Message) Text() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Kind() == PartText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// Sources returns the message's source-url parts in arrival order.
func (m Message) Sources() []Part {
	var out []Part
	for _, p := range m.Parts {
		if p.Kind() == PartSourceURL {
			out = append(out, p)
		}
	}
	return out
}

// Reasoning concatenates the message's reasoning parts.
func (m Message) Reasoning() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Kind() == PartReasoning {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}
