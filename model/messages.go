package model

// Bubble Tea messages shared between the client plumbing and the UI.

type StreamEventMsg struct {
	Event UIEvent
}

type StreamDoneMsg struct{}

type StreamErrorMsg struct {
	Err error
}

type TasksChunkMsg struct {
	Text string
}

type TasksDoneMsg struct {
	Err error
}

// MarkdownRenderedMsg carries the rendered form of one text part.
type MarkdownRenderedMsg struct {
	MessageID string
	PartIndex int
	Width     int
	Rendered  string
}

type ClipboardCopiedMsg struct {
	Err error
}

type FlashTickMsg struct{}
