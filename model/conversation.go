package model

import (
	"encoding/json"
	"fmt"
)

// Conversation accumulates messages on the client. The assistant message
// being streamed is append-only; once a finish event is applied it is
// sealed and later events are ignored until the next start.
type Conversation struct {
	Messages []Message
	// Err holds the text of the last error event, if any.
	Err string

	open    bool
	current int
	byID    map[string]int
}

// AddUser appends a user message and returns it.
func (c *Conversation) AddUser(text string) Message {
	msg := NewUserMessage(text)
	c.Messages = append(c.Messages, msg)
	return msg
}

// Streaming reports whether an assistant message is still open.
func (c *Conversation) Streaming() bool {
	return c.open
}

// Last returns the last message, or false when the conversation is empty.
func (c *Conversation) Last() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

func (c *Conversation) begin(id string) {
	if id == "" {
		id = NewMessageID()
	}
	c.Messages = append(c.Messages, Message{ID: id, Role: RoleAssistant})
	c.current = len(c.Messages) - 1
	c.byID = make(map[string]int)
	c.open = true
	c.Err = ""
}

func (c *Conversation) appendPart(key string, p Part) {
	msg := &c.Messages[c.current]
	msg.Parts = append(msg.Parts, p)
	if key != "" {
		c.byID[key] = len(msg.Parts) - 1
	}
}

func (c *Conversation) part(key string) *Part {
	idx, ok := c.byID[key]
	if !ok {
		return nil
	}
	return &c.Messages[c.current].Parts[idx]
}

// Apply folds one stream event into the conversation.
func (c *Conversation) Apply(ev UIEvent) {
	if ev.Type == EventStart {
		c.begin(ev.MessageID)
		return
	}
	if !c.open {
		// Events before start open a message implicitly; events after finish are dropped.
		if len(c.Messages) > 0 && c.Messages[len(c.Messages)-1].Role == RoleAssistant && c.byID != nil {
			return
		}
		c.begin("")
	}

	switch ev.Type {
	case EventTextStart:
		c.appendPart("text:"+ev.ID, Part{Type: "text", State: PartStreaming})
	case EventTextDelta:
		if p := c.part("text:" + ev.ID); p != nil {
			p.Text += ev.Delta
		} else {
			c.appendPart("text:"+ev.ID, Part{Type: "text", Text: ev.Delta, State: PartStreaming})
		}
	case EventTextEnd:
		if p := c.part("text:" + ev.ID); p != nil {
			p.State = PartDone
		}

	case EventReasoningStart:
		c.appendPart("reasoning:"+ev.ID, Part{Type: "reasoning", State: PartStreaming})
	case EventReasoningDelta:
		if p := c.part("reasoning:" + ev.ID); p != nil {
			p.Text += ev.Delta
		} else {
			c.appendPart("reasoning:"+ev.ID, Part{Type: "reasoning", Text: ev.Delta, State: PartStreaming})
		}
	case EventReasoningEnd:
		if p := c.part("reasoning:" + ev.ID); p != nil {
			p.State = PartDone
		}

	case EventSourceURL:
		c.appendPart("", Part{Type: "source-url", SourceID: ev.SourceID, URL: ev.URL, Title: ev.Title})

	case EventStartStep:
		c.appendPart("", Part{Type: "step-start"})
	case EventFinishStep:

	case EventToolInputAvailable:
		c.appendPart("tool:"+ev.ToolCallID, Part{
			Type:       "tool-" + ev.ToolName,
			ToolCallID: ev.ToolCallID,
			State:      ToolInputAvailable,
			Input:      ev.Input,
		})
	case EventToolApprovalRequest:
		if p := c.part("tool:" + ev.ToolCallID); p != nil {
			p.State = ToolApprovalRequested
			p.Approval = &Approval{ID: ev.ApprovalID}
		}
	case EventToolOutputAvailable:
		if p := c.part("tool:" + ev.ToolCallID); p != nil {
			p.State = ToolOutputAvailable
			p.Output = ev.Output
		}
	case EventToolOutputError:
		if p := c.part("tool:" + ev.ToolCallID); p != nil {
			p.State = ToolOutputError
			p.ErrorText = ev.ErrorText
		}
	case EventToolOutputDenied:
		if p := c.part("tool:" + ev.ToolCallID); p != nil {
			p.State = ToolOutputDenied
		}

	case EventError:
		c.Err = ev.ErrorText
	case EventFinish:
		c.open = false

	default:
		c.appendPart("", Part{Type: ev.Type})
	}
}

// Seal closes the open assistant message when a stream ends without a
// finish event. Parts still streaming are marked done.
func (c *Conversation) Seal() {
	if !c.open {
		return
	}
	c.open = false
	parts := c.Messages[c.current].Parts
	for i := range parts {
		if parts[i].State == PartStreaming {
			parts[i].State = PartDone
		}
	}
}

// PendingApprovals returns the approval ids still waiting for a user decision.
func (c *Conversation) PendingApprovals() []string {
	var ids []string
	for _, msg := range c.Messages {
		for _, p := range msg.Parts {
			if p.Kind() == PartTool && p.State == ToolApprovalRequested && p.Approval != nil {
				ids = append(ids, p.Approval.ID)
			}
		}
	}
	return ids
}

// RespondToApproval records the user's decision on a pending tool approval.
// This is the only mutation allowed on a sealed message; the gateway acts on
// it when the conversation is submitted again.
func (c *Conversation) RespondToApproval(approvalID string, approved bool) error {
	for i := range c.Messages {
		parts := c.Messages[i].Parts
		for j := range parts {
			p := &parts[j]
			if p.Kind() != PartTool || p.Approval == nil || p.Approval.ID != approvalID {
				continue
			}
			if p.State != ToolApprovalRequested {
				return fmt.Errorf("approval %s already resolved", approvalID)
			}
			p.Approval.Approved = &approved
			p.State = ToolApprovalResponded
			return nil
		}
	}
	return fmt.Errorf("approval %s not found", approvalID)
}

// ToChatMessages converts UI messages into provider turns. Assistant
// messages are split at tool boundaries so each tool call is followed by its
// result. Reasoning, sources and tool parts without a result are omitted.
func ToChatMessages(msgs []Message) []ChatMessage {
	var out []ChatMessage
	for _, msg := range msgs {
		switch msg.Role {
		case RoleUser, RoleSystem:
			if text := msg.Text(); text != "" {
				out = append(out, ChatMessage{Role: msg.Role, Content: text})
			}
		case RoleAssistant:
			out = append(out, assistantTurns(msg)...)
		}
	}
	return out
}

func assistantTurns(msg Message) []ChatMessage {
	var (
		out     []ChatMessage
		cur     = ChatMessage{Role: RoleAssistant}
		results []ChatMessage
	)
	flush := func() {
		if cur.Content != "" || len(cur.ToolCalls) > 0 {
			out = append(out, cur)
			out = append(out, results...)
		}
		cur = ChatMessage{Role: RoleAssistant}
		results = nil
	}

	for _, p := range msg.Parts {
		switch p.Kind() {
		case PartText:
			if len(cur.ToolCalls) > 0 {
				flush()
			}
			cur.Content += p.Text
		case PartStepStart:
			if len(cur.ToolCalls) > 0 {
				flush()
			}
		case PartTool:
			content, ok := toolResultContent(p)
			if !ok {
				continue
			}
			cur.ToolCalls = append(cur.ToolCalls, ToolCall{
				ID:        p.ToolCallID,
				Name:      p.ToolName(),
				Arguments: string(orEmptyObject(p.Input)),
			})
			results = append(results, ChatMessage{Role: RoleTool, ToolCallID: p.ToolCallID, Content: content})
		}
	}
	flush()
	return out
}

func toolResultContent(p Part) (string, bool) {
	switch p.State {
	case ToolOutputAvailable:
		return string(p.Output), true
	case ToolOutputError:
		return "Error: " + p.ErrorText, true
	case ToolOutputDenied:
		return "The user denied this tool call.", true
	default:
		return "", false
	}
}

func orEmptyObject(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("{}")
	}
	return raw
}

// SourceCount returns the number of source parts in the last assistant
// message.
func (c *Conversation) SourceCount() int {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleAssistant {
			return len(c.Messages[i].Sources())
		}
	}
	return 0
}
