package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"chatgate/config"
	"chatgate/model"
	"chatgate/storage"
	"chatgate/tools"
)

const maxDurationMessage = "request exceeded maximum duration"

// Options control what a Runner forwards and how many model steps it takes.
type Options struct {
	SendReasoning bool
	SendSources   bool
	// MaxSteps bounds the model calls made for one request. Values below
	// one mean a single step.
	MaxSteps int
}

// Result summarizes a finished run.
type Result struct {
	Status       string
	FinishReason string
	Usage        model.Usage
	Steps        int
	Err          error
}

type partFrame struct {
	start, delta, end string
	prefix            string
}

var (
	textFrame      = partFrame{model.EventTextStart, model.EventTextDelta, model.EventTextEnd, "text"}
	reasoningFrame = partFrame{model.EventReasoningStart, model.EventReasoningDelta, model.EventReasoningEnd, "reasoning"}
)

// Runner turns provider streams into one UI message stream. It owns all
// per-request generation state and is not safe for concurrent use.
type Runner struct {
	provider model.Provider
	tools    *tools.Registry
	opts     Options

	req      model.ChatRequest
	stream   model.EventStream
	resolved []model.Part

	out      Emitter
	writeErr error
	open     *partFrame
	openID   string
	seq      int
	result   Result
}

// NewRunner creates a runner. registry may be nil for routes without tools.
func NewRunner(p model.Provider, registry *tools.Registry, opts Options) *Runner {
	if opts.MaxSteps < 1 {
		opts.MaxSteps = 1
	}
	return &Runner{provider: p, tools: registry, opts: opts}
}

// Open settles answered tool approvals from history and starts the first
// model step. Nothing is written to the client before it returns, so an
// error here can still be reported as a plain HTTP failure.
func (r *Runner) Open(ctx context.Context, req model.ChatRequest, history []model.Message) error {
	history, r.resolved = r.resolveApprovals(ctx, history)

	req.Messages = model.ToChatMessages(history)
	if r.tools != nil {
		req.Tools = r.tools.Definitions()
	}

	stream, err := r.provider.Stream(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to start %s stream: %w", r.provider.Name(), err)
	}
	r.req = req
	r.stream = stream
	return nil
}

// resolveApprovals executes or denies the tool calls the user answered in
// the last assistant message. Only tools registered as needing approval are
// settled this way; other answered parts are left as they are. It returns a copy of history with those parts
// settled, plus the settled parts for replay to the client.
func (r *Runner) resolveApprovals(ctx context.Context, history []model.Message) ([]model.Message, []model.Part) {
	last := -1
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == model.RoleAssistant {
			last = i
			break
		}
	}
	if last < 0 {
		return history, nil
	}

	msg := history[last]
	parts := append([]model.Part(nil), msg.Parts...)
	var resolved []model.Part
	for i := range parts {
		p := &parts[i]
		if p.Kind() != model.PartTool || p.State != model.ToolApprovalResponded ||
			p.Approval == nil || p.Approval.ID == "" || p.Approval.Approved == nil {
			continue
		}
		if r.tools == nil || !r.tools.RequiresApproval(p.ToolName()) {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[Gateway] ignoring approval %s for %s: tool does not require approval", p.Approval.ID, p.ToolName())
			}
			continue
		}

		if *p.Approval.Approved {
			output, err := r.execute(ctx, p.ToolName(), string(p.Input))
			if err != nil {
				p.State = model.ToolOutputError
				p.ErrorText = err.Error()
			} else {
				p.State = model.ToolOutputAvailable
				p.Output = output
			}
		} else {
			p.State = model.ToolOutputDenied
		}
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Gateway] approval %s for %s settled as %s", p.Approval.ID, p.ToolCallID, p.State)
		}
		resolved = append(resolved, *p)
	}
	if len(resolved) == 0 {
		return history, nil
	}

	out := append([]model.Message(nil), history...)
	msg.Parts = parts
	out[last] = msg
	return out, resolved
}

func (r *Runner) execute(ctx context.Context, name, args string) (json.RawMessage, error) {
	if r.tools == nil {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
	return r.tools.Execute(ctx, name, args)
}

// Stream writes the whole response to out: settled approvals first, then
// model steps until one ends without tool calls, a call is parked for
// approval, or MaxSteps is reached. The caller writes the terminator.
func (r *Runner) Stream(ctx context.Context, out Emitter) Result {
	r.out = out
	r.result = Result{Status: storage.StatusOK}

	r.emit(model.UIEvent{Type: model.EventStart, MessageID: model.NewMessageID()})
	if len(r.resolved) > 0 {
		r.emit(model.UIEvent{Type: model.EventStartStep})
		for _, p := range r.resolved {
			r.emit(model.UIEvent{
				Type:       model.EventToolInputAvailable,
				ToolCallID: p.ToolCallID,
				ToolName:   p.ToolName(),
				Input:      toolInput(string(p.Input)),
			})
			r.emit(outcomeEvent(p))
		}
		r.emit(model.UIEvent{Type: model.EventFinishStep})
	}

	stream := r.stream
	for {
		r.result.Steps++
		r.emit(model.UIEvent{Type: model.EventStartStep})

		calls, text, err := r.pump(stream)
		r.closePart()
		if err != nil {
			return r.fail(ctx, err)
		}
		if len(calls) == 0 {
			r.emit(model.UIEvent{Type: model.EventFinishStep})
			break
		}

		parked, results := r.runTools(ctx, calls)
		r.emit(model.UIEvent{Type: model.EventFinishStep})
		if r.writeErr != nil {
			return r.fail(ctx, r.writeErr)
		}
		if parked || r.result.Steps >= r.opts.MaxSteps {
			break
		}

		r.req.Messages = append(r.req.Messages, model.ChatMessage{
			Role:      model.RoleAssistant,
			Content:   text,
			ToolCalls: calls,
		})
		r.req.Messages = append(r.req.Messages, results...)

		stream, err = r.provider.Stream(ctx, r.req)
		if err != nil {
			return r.fail(ctx, err)
		}
	}

	r.emit(model.UIEvent{Type: model.EventFinish, FinishReason: r.result.FinishReason})
	if r.writeErr != nil {
		r.result.Status = storage.StatusAborted
		r.result.Err = r.writeErr
	}
	return r.result
}

// pump forwards one step's events and collects its tool calls and text.
func (r *Runner) pump(stream model.EventStream) ([]model.ToolCall, string, error) {
	defer stream.Close()

	var (
		calls []model.ToolCall
		text  strings.Builder
	)
	for stream.Next() {
		ev := stream.Current()
		switch ev.Kind {
		case model.StreamTextDelta:
			text.WriteString(ev.Text)
			r.delta(&textFrame, ev.Text)
		case model.StreamReasoningDelta:
			if r.opts.SendReasoning {
				r.delta(&reasoningFrame, ev.Text)
			}
		case model.StreamSource:
			if r.opts.SendSources {
				r.source(ev.Source)
			}
		case model.StreamToolCall:
			calls = append(calls, ev.ToolCall)
		case model.StreamFinish:
			r.result.Usage.PromptTokens += ev.Usage.PromptTokens
			r.result.Usage.CompletionTokens += ev.Usage.CompletionTokens
			r.result.FinishReason = ev.FinishReason
		}
		if r.writeErr != nil {
			return nil, "", r.writeErr
		}
	}
	return calls, text.String(), stream.Err()
}

// delta appends to the open part of the given kind, closing a part of the
// other kind first.
func (r *Runner) delta(frame *partFrame, text string) {
	if text == "" {
		return
	}
	if r.open != frame {
		r.closePart()
		r.seq++
		r.open = frame
		r.openID = fmt.Sprintf("%s-%d", frame.prefix, r.seq)
		r.emit(model.UIEvent{Type: frame.start, ID: r.openID})
	}
	r.emit(model.UIEvent{Type: frame.delta, ID: r.openID, Delta: text})
}

func (r *Runner) closePart() {
	if r.open == nil {
		return
	}
	r.emit(model.UIEvent{Type: r.open.end, ID: r.openID})
	r.open = nil
	r.openID = ""
}

// source forwards a citation. Provider ids restart with every step, so the
// step number keeps them unique within the message.
func (r *Runner) source(src model.Source) {
	var id string
	if src.ID != "" {
		id = fmt.Sprintf("step%d-%s", r.result.Steps, src.ID)
	} else {
		r.seq++
		id = fmt.Sprintf("source-%d", r.seq)
	}
	r.emit(model.UIEvent{Type: model.EventSourceURL, SourceID: id, URL: src.URL, Title: src.Title})
}

// runTools announces and runs one step's tool calls. Calls that need
// approval are parked; parked reports whether any were.
func (r *Runner) runTools(ctx context.Context, calls []model.ToolCall) (parked bool, results []model.ChatMessage) {
	for _, call := range calls {
		r.emit(model.UIEvent{
			Type:       model.EventToolInputAvailable,
			ToolCallID: call.ID,
			ToolName:   call.Name,
			Input:      toolInput(call.Arguments),
		})

		if r.tools != nil && r.tools.RequiresApproval(call.Name) {
			r.emit(model.UIEvent{
				Type:       model.EventToolApprovalRequest,
				ApprovalID: uuid.NewString(),
				ToolCallID: call.ID,
			})
			parked = true
			continue
		}

		output, err := r.execute(ctx, call.Name, call.Arguments)
		if err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[Gateway] tool %s (%s) failed: %v", call.Name, call.ID, err)
			}
			r.emit(model.UIEvent{Type: model.EventToolOutputError, ToolCallID: call.ID, ErrorText: err.Error()})
			results = append(results, model.ChatMessage{
				Role:       model.RoleTool,
				ToolCallID: call.ID,
				Content:    "Error: " + err.Error(),
			})
			continue
		}

		r.emit(model.UIEvent{Type: model.EventToolOutputAvailable, ToolCallID: call.ID, Output: output})
		results = append(results, model.ChatMessage{
			Role:       model.RoleTool,
			ToolCallID: call.ID,
			Content:    string(output),
		})
	}
	return parked, results
}

// fail ends the stream after a backend or write failure. A client that went
// away gets nothing more; a deadline gets an error and a finish; anything
// else gets the backend's error text.
func (r *Runner) fail(ctx context.Context, err error) Result {
	r.closePart()
	r.result.Err = err

	switch {
	case r.writeErr != nil || errors.Is(ctx.Err(), context.Canceled):
		r.result.Status = storage.StatusAborted
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		r.result.Status = storage.StatusAborted
		r.emit(model.UIEvent{Type: model.EventError, ErrorText: maxDurationMessage})
		r.emit(model.UIEvent{Type: model.EventFinish})
	default:
		r.result.Status = storage.StatusError
		r.emit(model.UIEvent{Type: model.EventError, ErrorText: err.Error()})
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Gateway] %s stream ended with %s: %v", r.provider.Name(), r.result.Status, err)
	}
	return r.result
}

func (r *Runner) emit(ev model.UIEvent) {
	if r.writeErr != nil {
		return
	}
	r.writeErr = r.out.Emit(ev)
}

func outcomeEvent(p model.Part) model.UIEvent {
	switch p.State {
	case model.ToolOutputAvailable:
		return model.UIEvent{Type: model.EventToolOutputAvailable, ToolCallID: p.ToolCallID, Output: p.Output}
	case model.ToolOutputError:
		return model.UIEvent{Type: model.EventToolOutputError, ToolCallID: p.ToolCallID, ErrorText: p.ErrorText}
	default:
		return model.UIEvent{Type: model.EventToolOutputDenied, ToolCallID: p.ToolCallID}
	}
}

// toolInput returns call arguments as JSON. Empty arguments become {} and
// text that is not JSON is sent as a JSON string.
func toolInput(args string) json.RawMessage {
	args = strings.TrimSpace(args)
	if args == "" {
		return json.RawMessage("{}")
	}
	if json.Valid([]byte(args)) {
		return json.RawMessage(args)
	}
	quoted, _ := json.Marshal(args)
	return quoted
}
