package model

import (
	"encoding/json"
	"testing"
)

func applyAll(c *Conversation, events ...UIEvent) {
	for _, ev := range events {
		c.Apply(ev)
	}
}

func TestConversationApplyOrdersParts(t *testing.T) {
	c := &Conversation{}
	c.AddUser("why is the sky blue?")

	applyAll(c,
		UIEvent{Type: EventStart, MessageID: "m1"},
		UIEvent{Type: EventStartStep},
		UIEvent{Type: EventReasoningStart, ID: "r0"},
		UIEvent{Type: EventReasoningDelta, ID: "r0", Delta: "Rayleigh "},
		UIEvent{Type: EventReasoningDelta, ID: "r0", Delta: "scattering"},
		UIEvent{Type: EventReasoningEnd, ID: "r0"},
		UIEvent{Type: EventTextStart, ID: "t1"},
		UIEvent{Type: EventTextDelta, ID: "t1", Delta: "Short "},
		UIEvent{Type: EventTextDelta, ID: "t1", Delta: "wavelengths."},
		UIEvent{Type: EventTextEnd, ID: "t1"},
		UIEvent{Type: EventSourceURL, SourceID: "s1", URL: "https://a.example", Title: "A"},
		UIEvent{Type: EventFinishStep},
		UIEvent{Type: EventFinish},
	)

	if c.Streaming() {
		t.Fatal("conversation still streaming after finish")
	}
	msg, _ := c.Last()
	if msg.ID != "m1" || msg.Role != RoleAssistant {
		t.Fatalf("last message = %+v", msg)
	}

	wantKinds := []PartKind{PartStepStart, PartReasoning, PartText, PartSourceURL}
	if len(msg.Parts) != len(wantKinds) {
		t.Fatalf("got %d parts, want %d: %+v", len(msg.Parts), len(wantKinds), msg.Parts)
	}
	for i, k := range wantKinds {
		if msg.Parts[i].Kind() != k {
			t.Errorf("part %d kind = %v, want %v", i, msg.Parts[i].Kind(), k)
		}
	}
	if got := msg.Reasoning(); got != "Rayleigh scattering" {
		t.Errorf("Reasoning() = %q", got)
	}
	if got := msg.Text(); got != "Short wavelengths." {
		t.Errorf("Text() = %q", got)
	}
	if msg.Parts[2].State != PartDone {
		t.Errorf("text part state = %q, want done", msg.Parts[2].State)
	}
}

func TestConversationIgnoresEventsAfterFinish(t *testing.T) {
	c := &Conversation{}
	applyAll(c,
		UIEvent{Type: EventStart, MessageID: "m1"},
		UIEvent{Type: EventTextStart, ID: "t1"},
		UIEvent{Type: EventTextDelta, ID: "t1", Delta: "done"},
		UIEvent{Type: EventFinish},
		UIEvent{Type: EventTextDelta, ID: "t1", Delta: " more"},
		UIEvent{Type: EventSourceURL, URL: "https://late.example"},
	)

	if len(c.Messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(c.Messages))
	}
	if got := c.Messages[0].Text(); got != "done" {
		t.Errorf("Text() = %q, sealed message was mutated", got)
	}
	if n := len(c.Messages[0].Sources()); n != 0 {
		t.Errorf("got %d sources after finish", n)
	}
}

func TestConversationKeepsUnknownEvents(t *testing.T) {
	c := &Conversation{}
	applyAll(c,
		UIEvent{Type: EventStart},
		UIEvent{Type: "data-weather"},
	)

	msg, _ := c.Last()
	if len(msg.Parts) != 1 {
		t.Fatalf("got %d parts, want 1", len(msg.Parts))
	}
	if msg.Parts[0].Kind() != PartUnknown || msg.Parts[0].Type != "data-weather" {
		t.Errorf("unknown part = %+v", msg.Parts[0])
	}
}

func TestConversationToolLifecycle(t *testing.T) {
	c := &Conversation{}
	applyAll(c,
		UIEvent{Type: EventStart, MessageID: "m1"},
		UIEvent{Type: EventToolInputAvailable, ToolCallID: "call_1", ToolName: "fetch_weather_data", Input: json.RawMessage(`{"location":"Paris"}`)},
		UIEvent{Type: EventToolApprovalRequest, ToolCallID: "call_1", ApprovalID: "ap_1"},
		UIEvent{Type: EventFinish},
	)

	if got := c.PendingApprovals(); len(got) != 1 || got[0] != "ap_1" {
		t.Fatalf("PendingApprovals() = %v", got)
	}
	if err := c.RespondToApproval("ap_1", true); err != nil {
		t.Fatalf("RespondToApproval() error = %v", err)
	}
	if err := c.RespondToApproval("ap_1", false); err == nil {
		t.Error("second response should fail")
	}
	if err := c.RespondToApproval("missing", true); err == nil {
		t.Error("unknown approval should fail")
	}

	p := c.Messages[0].Parts[0]
	if p.State != ToolApprovalResponded || p.Approval.Approved == nil || !*p.Approval.Approved {
		t.Errorf("tool part = %+v", p)
	}
	if p.ToolName() != "fetch_weather_data" {
		t.Errorf("ToolName() = %q", p.ToolName())
	}
	if len(c.PendingApprovals()) != 0 {
		t.Error("approval still pending")
	}
}

func TestToChatMessagesSplitsToolSteps(t *testing.T) {
	msgs := []Message{
		NewUserMessage("weather in Paris?"),
		{
			ID:   "a1",
			Role: RoleAssistant,
			Parts: []Part{
				{Type: "step-start"},
				{Type: "text", Text: "Checking."},
				{Type: "tool-fetch_weather_data", ToolCallID: "c1", State: ToolOutputAvailable,
					Input: json.RawMessage(`{"location":"Paris"}`), Output: json.RawMessage(`{"temperature":20}`)},
				{Type: "step-start"},
				{Type: "reasoning", Text: "hidden"},
				{Type: "text", Text: "It is 20°C."},
				{Type: "source-url", URL: "https://a.example"},
			},
		},
	}

	got := ToChatMessages(msgs)

	tests := []struct {
		role       string
		content    string
		toolCalls  int
		toolCallID string
	}{
		{RoleUser, "weather in Paris?", 0, ""},
		{RoleAssistant, "Checking.", 1, ""},
		{RoleTool, `{"temperature":20}`, 0, "c1"},
		{RoleAssistant, "It is 20°C.", 0, ""},
	}
	if len(got) != len(tests) {
		t.Fatalf("got %d chat messages, want %d: %+v", len(got), len(tests), got)
	}
	for i, tt := range tests {
		m := got[i]
		if m.Role != tt.role || m.Content != tt.content || len(m.ToolCalls) != tt.toolCalls || m.ToolCallID != tt.toolCallID {
			t.Errorf("message %d = %+v, want %+v", i, m, tt)
		}
	}
	if got[1].ToolCalls[0].Name != "fetch_weather_data" {
		t.Errorf("tool call name = %q", got[1].ToolCalls[0].Name)
	}
}

func TestToChatMessagesToolOutcomes(t *testing.T) {
	tests := []struct {
		name  string
		part  Part
		want  string
		found bool
	}{
		{"error", Part{Type: "tool-x", ToolCallID: "1", State: ToolOutputError, ErrorText: "boom"}, "Error: boom", true},
		{"denied", Part{Type: "tool-x", ToolCallID: "1", State: ToolOutputDenied}, "The user denied this tool call.", true},
		{"dangling", Part{Type: "tool-x", ToolCallID: "1", State: ToolInputAvailable}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToChatMessages([]Message{{Role: RoleAssistant, Parts: []Part{tt.part}}})
			if !tt.found {
				if len(got) != 0 {
					t.Errorf("dangling tool call produced %+v", got)
				}
				return
			}
			if len(got) != 2 || got[1].Content != tt.want {
				t.Errorf("got %+v, want tool result %q", got, tt.want)
			}
			if got[0].ToolCalls[0].Arguments != "{}" {
				t.Errorf("arguments = %q, want {}", got[0].ToolCalls[0].Arguments)
			}
		})
	}
}

func TestConversationSealAfterBrokenStream(t *testing.T) {
	c := &Conversation{}
	c.AddUser("hi")
	applyAll(c,
		UIEvent{Type: EventStart, MessageID: "m1"},
		UIEvent{Type: EventTextDelta, ID: "t1", Delta: "partial"},
		UIEvent{Type: EventError, ErrorText: "upstream closed"},
	)
	c.Seal()

	if c.Streaming() {
		t.Fatal("sealed conversation still streaming")
	}
	msg, _ := c.Last()
	if got := msg.Parts[0].State; got != PartDone {
		t.Errorf("part state = %q, want %q", got, PartDone)
	}
	if c.Err != "upstream closed" {
		t.Errorf("Err = %q", c.Err)
	}

	c.Apply(UIEvent{Type: EventTextDelta, ID: "t1", Delta: "late"})
	msg, _ = c.Last()
	if msg.Text() != "partial" {
		t.Errorf("text = %q, want events after seal dropped", msg.Text())
	}
}
