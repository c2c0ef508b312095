package testutil

import (
	"context"
	"sync"

	"chatgate/model"
)

// MockProvider implements model.Provider for testing. Each call to Stream
// records the request and delegates to StreamFunc.
type MockProvider struct {
	StreamFunc func(ctx context.Context, req model.ChatRequest) (model.EventStream, error)
	PingFunc   func(ctx context.Context) error

	ProviderName string

	mu           sync.Mutex
	requests     []model.ChatRequest
	currentModel string
}

// NewMockProvider creates a mock that replies "Mock response" and finishes.
func NewMockProvider(modelName string) *MockProvider {
	m := &MockProvider{ProviderName: "mock", currentModel: modelName}
	m.StreamFunc = func(ctx context.Context, req model.ChatRequest) (model.EventStream, error) {
		return NewSliceStream(TextEvents("Mock response")...), nil
	}
	m.PingFunc = func(ctx context.Context) error { return nil }
	return m
}

// NewScriptedProvider returns one scripted stream per call, in order. Calls
// beyond the script reuse the last entry.
func NewScriptedProvider(modelName string, steps ...[]model.StreamEvent) *MockProvider {
	m := NewMockProvider(modelName)
	var call int
	m.StreamFunc = func(ctx context.Context, req model.ChatRequest) (model.EventStream, error) {
		m.mu.Lock()
		idx := call
		call++
		m.mu.Unlock()
		if idx >= len(steps) {
			idx = len(steps) - 1
		}
		return NewSliceStream(steps[idx]...), nil
	}
	return m
}

func (m *MockProvider) Stream(ctx context.Context, req model.ChatRequest) (model.EventStream, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.StreamFunc(ctx, req)
}

// Requests returns the requests seen so far.
func (m *MockProvider) Requests() []model.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.ChatRequest(nil), m.requests...)
}

func (m *MockProvider) Name() string {
	return m.ProviderName
}

func (m *MockProvider) GetModel() string {
	return m.currentModel
}

func (m *MockProvider) SetModel(modelName string) {
	m.currentModel = modelName
}

func (m *MockProvider) Ping(ctx context.Context) error {
	return m.PingFunc(ctx)
}

// SliceStream replays fixed events, then ends with Err.
type SliceStream struct {
	events  []model.StreamEvent
	pos     int
	current model.StreamEvent
	Failure error
	Closed  bool
}

func NewSliceStream(events ...model.StreamEvent) *SliceStream {
	return &SliceStream{events: events}
}

// NewFailingStream replays events and then fails with err.
func NewFailingStream(err error, events ...model.StreamEvent) *SliceStream {
	return &SliceStream{events: events, Failure: err}
}

func (s *SliceStream) Next() bool {
	if s.Closed || s.pos >= len(s.events) {
		return false
	}
	s.current = s.events[s.pos]
	s.pos++
	return true
}

func (s *SliceStream) Current() model.StreamEvent { return s.current }

func (s *SliceStream) Err() error {
	if s.pos >= len(s.events) {
		return s.Failure
	}
	return nil
}

func (s *SliceStream) Close() error {
	s.Closed = true
	return nil
}

// BlockingStream yields its events, then blocks until ctx is done and
// reports the context error.
type BlockingStream struct {
	Ctx     context.Context
	events  []model.StreamEvent
	pos     int
	current model.StreamEvent
	err     error
}

func NewBlockingStream(ctx context.Context, events ...model.StreamEvent) *BlockingStream {
	return &BlockingStream{Ctx: ctx, events: events}
}

func (s *BlockingStream) Next() bool {
	if s.pos < len(s.events) {
		s.current = s.events[s.pos]
		s.pos++
		return true
	}
	<-s.Ctx.Done()
	s.err = s.Ctx.Err()
	return false
}

func (s *BlockingStream) Current() model.StreamEvent { return s.current }

func (s *BlockingStream) Err() error { return s.err }

func (s *BlockingStream) Close() error { return nil }
