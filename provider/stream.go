package provider

import (
	"context"
	"sync"

	"chatgate/model"
)

// eventQueue buffers the events produced by one backend chunk, which may
// carry several (reasoning, text and a citation in the same frame).
type eventQueue struct {
	pending []model.StreamEvent
	current model.StreamEvent
}

func (q *eventQueue) push(ev model.StreamEvent) {
	q.pending = append(q.pending, ev)
}

func (q *eventQueue) ready() bool {
	return len(q.pending) > 0
}

func (q *eventQueue) pop() bool {
	if len(q.pending) == 0 {
		return false
	}
	q.current = q.pending[0]
	q.pending = q.pending[1:]
	return true
}

// chanStream adapts callback-style SDKs to model.EventStream. The producer
// runs in its own goroutine and blocks on each emit until the consumer calls
// Next, so nothing is generated ahead of demand.
type chanStream struct {
	events  chan model.StreamEvent
	errc    chan error
	cancel  context.CancelFunc
	current model.StreamEvent
	err     error
	done    bool
	once    sync.Once
}

type emitFunc func(model.StreamEvent) error

func newChanStream(ctx context.Context, run func(ctx context.Context, emit emitFunc) error) *chanStream {
	ctx, cancel := context.WithCancel(ctx)
	s := &chanStream{
		events: make(chan model.StreamEvent),
		errc:   make(chan error, 1),
		cancel: cancel,
	}

	emit := func(ev model.StreamEvent) error {
		select {
		case s.events <- ev:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	go func() {
		defer close(s.events)
		s.errc <- run(ctx, emit)
	}()
	return s
}

func (s *chanStream) Next() bool {
	if s.done {
		return false
	}
	ev, ok := <-s.events
	if !ok {
		s.done = true
		s.err = <-s.errc
		return false
	}
	s.current = ev
	return true
}

func (s *chanStream) Current() model.StreamEvent { return s.current }

func (s *chanStream) Err() error { return s.err }

func (s *chanStream) Close() error {
	s.once.Do(func() {
		s.cancel()
		for range s.events {
		}
	})
	return nil
}
