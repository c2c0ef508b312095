package model

import "encoding/json"

// UI stream event types.
const (
	EventStart      = "start"
	EventStartStep  = "start-step"
	EventFinishStep = "finish-step"
	EventFinish     = "finish"
	EventError      = "error"

	EventTextStart = "text-start"
	EventTextDelta = "text-delta"
	EventTextEnd   = "text-end"

	EventReasoningStart = "reasoning-start"
	EventReasoningDelta = "reasoning-delta"
	EventReasoningEnd   = "reasoning-end"

	EventSourceURL = "source-url"

	EventToolInputAvailable  = "tool-input-available"
	EventToolApprovalRequest = "tool-approval-request"
	EventToolOutputAvailable = "tool-output-available"
	EventToolOutputError     = "tool-output-error"
	EventToolOutputDenied    = "tool-output-denied"
)

// UIEvent is one frame of the UI message stream sent to clients.
type UIEvent struct {
	Type string `json:"type"`

	MessageID string `json:"messageId,omitempty"`
	ID        string `json:"id,omitempty"`
	Delta     string `json:"delta,omitempty"`

	SourceID string `json:"sourceId,omitempty"`
	URL      string `json:"url,omitempty"`
	Title    string `json:"title,omitempty"`

	ToolCallID string          `json:"toolCallId,omitempty"`
	ToolName   string          `json:"toolName,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	Output     json.RawMessage `json:"output,omitempty"`
	ApprovalID string          `json:"approvalId,omitempty"`

	ErrorText    string `json:"errorText,omitempty"`
	FinishReason string `json:"finishReason,omitempty"`
}
