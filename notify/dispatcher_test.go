package notify

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, Event) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(context.Context, Event) {
	<-s.gate
}

func TestDispatcherDeliversToSink(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(DispatcherConfig{BufferSize: 8}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), NewEvent(KindInfo, "test", ""))
	}
	d.Close()

	if got := sink.count.Load(); got != 5 {
		t.Fatalf("expected 5 delivered events, got %d", got)
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(DispatcherConfig{BufferSize: 1, DropIfFull: true}, sink)
	defer close(sink.gate)

	// First event occupies the sink, second fills the buffer, the rest drop.
	for i := 0; i < 6; i++ {
		d.Emit(context.Background(), NewEvent(KindError, "pressure", ""))
	}

	deadline := time.After(time.Second)
	for d.Dropped() == 0 {
		select {
		case <-deadline:
			t.Fatalf("expected dropped events under backpressure")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestNilDispatcherIsSafe(t *testing.T) {
	var d *Dispatcher
	d.Emit(context.Background(), NewEvent(KindInfo, "noop", ""))
	d.Close()
	if d.Dropped() != 0 {
		t.Fatalf("nil dispatcher must report zero drops")
	}
}

func TestEmitAfterCloseIsDropped(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(DispatcherConfig{BufferSize: 4}, sink)
	d.Close()

	d.Emit(context.Background(), NewEvent(KindInfo, "late", ""))
	if got := sink.count.Load(); got != 0 {
		t.Fatalf("expected no deliveries after close, got %d", got)
	}
}
