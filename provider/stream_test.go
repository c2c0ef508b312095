package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"chatgate/model"
)

func TestChanStreamDeliversThenReportsError(t *testing.T) {
	boom := errors.New("boom")
	s := newChanStream(context.Background(), func(ctx context.Context, emit emitFunc) error {
		if err := emit(model.StreamEvent{Kind: model.StreamTextDelta, Text: "a"}); err != nil {
			return err
		}
		return boom
	})
	defer s.Close()

	if !s.Next() || s.Current().Text != "a" {
		t.Fatalf("first event = %+v", s.Current())
	}
	if s.Next() {
		t.Fatal("expected end of stream")
	}
	if !errors.Is(s.Err(), boom) {
		t.Errorf("Err() = %v", s.Err())
	}
	if s.Next() {
		t.Error("Next after end must stay false")
	}
}

func TestChanStreamCloseStopsProducer(t *testing.T) {
	stopped := make(chan error, 1)
	s := newChanStream(context.Background(), func(ctx context.Context, emit emitFunc) error {
		for {
			if err := emit(model.StreamEvent{Kind: model.StreamTextDelta, Text: "x"}); err != nil {
				stopped <- err
				return err
			}
		}
	})

	if !s.Next() {
		t.Fatal("expected an event")
	}
	s.Close()

	select {
	case err := <-stopped:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("producer stopped with %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("producer still running after Close")
	}
}

func TestEventQueue(t *testing.T) {
	var q eventQueue
	if q.ready() || q.pop() {
		t.Fatal("empty queue reported ready")
	}
	q.push(model.StreamEvent{Text: "1"})
	q.push(model.StreamEvent{Text: "2"})

	var got string
	for q.pop() {
		got += q.current.Text
	}
	if got != "12" {
		t.Errorf("order = %q", got)
	}
}
