package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"chatgate/config"
	"chatgate/model"
)

// Generator requests task lists from a provider.
type Generator struct {
	provider model.Provider
}

func NewGenerator(p model.Provider) *Generator {
	return &Generator{provider: p}
}

// Request builds the structured-output request for prompt. Providers
// without response formats get the schema in the system prompt.
func Request(prompt string) (model.ChatRequest, error) {
	schema := Schema()
	raw, err := json.Marshal(schema)
	if err != nil {
		return model.ChatRequest{}, fmt.Errorf("failed to encode task schema: %w", err)
	}

	return model.ChatRequest{
		System: "Respond only with a JSON object matching this JSON Schema:\n" + string(raw),
		Messages: []model.ChatMessage{
			{Role: model.RoleUser, Content: BuildPrompt(prompt)},
		},
		ResponseSchema: &model.ResponseSchema{
			Name:        "tasks",
			Description: "Development task workflow",
			Schema:      schema,
		},
	}, nil
}

// Open starts a generation. Errors returned here happen before any output
// was produced.
func (g *Generator) Open(ctx context.Context, prompt string) (*Stream, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("prompt is required")
	}

	req, err := Request(prompt)
	if err != nil {
		return nil, err
	}

	events, err := g.provider.Stream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to start task generation: %w", err)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Tasks] generating with %s/%s", g.provider.Name(), g.provider.GetModel())
	}
	return &Stream{events: events}, nil
}

// Stream yields the raw JSON text of a task list as it arrives. Every task
// that is complete so far is validated before the delta that completes it
// is released; the stream stops at the first violation.
type Stream struct {
	events  model.EventStream
	text    strings.Builder
	checked int
	delta   string
	usage   model.Usage
	result  TaskList
	err     error
	done    bool
}

func (s *Stream) Next() bool {
	if s.done {
		return false
	}
	for s.events.Next() {
		ev := s.events.Current()
		switch ev.Kind {
		case model.StreamTextDelta:
			if ev.Text == "" {
				continue
			}
			s.text.WriteString(ev.Text)
			if err := s.check(); err != nil {
				s.fail(err)
				return false
			}
			s.delta = ev.Text
			return true
		case model.StreamFinish:
			s.usage = ev.Usage
		}
	}

	s.done = true
	if err := s.events.Err(); err != nil {
		s.err = err
		return false
	}
	s.err = s.finish()
	return false
}

// Delta returns the text released by the last successful Next.
func (s *Stream) Delta() string { return s.delta }

// Err reports why the stream stopped: a backend failure, a schema violation
// or unparseable final output.
func (s *Stream) Err() error { return s.err }

// Result returns the validated task list once the stream ended cleanly.
func (s *Stream) Result() TaskList { return s.result }

func (s *Stream) Text() string { return s.text.String() }

func (s *Stream) Usage() model.Usage { return s.usage }

func (s *Stream) Close() error { return s.events.Close() }

func (s *Stream) fail(err error) {
	s.done = true
	s.err = err
	if config.DebugLog != nil {
		config.DebugLog.Printf("[Tasks] aborting stream: %v", err)
	}
}

// check validates tasks that can no longer change. The last parsed task is
// still open while the stream runs.
func (s *Stream) check() error {
	list, err := ParsePartial(s.text.String())
	if err != nil {
		return err
	}
	complete := len(list.Tasks) - 1
	for i := s.checked; i < complete; i++ {
		if err := list.Tasks[i].validate(fmt.Sprintf("tasks[%d]", i)); err != nil {
			return err
		}
	}
	if complete > s.checked {
		s.checked = complete
	}
	return nil
}

func (s *Stream) finish() error {
	var list TaskList
	if err := json.Unmarshal([]byte(s.text.String()), &list); err != nil {
		return fmt.Errorf("failed to parse tasks: %w", err)
	}
	if err := list.Validate(); err != nil {
		return err
	}
	s.result = list
	return nil
}
