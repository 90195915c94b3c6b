// Package notify carries abstract user-facing events out of the core.
//
// The core never formats UI strings; it emits an [Event] with a kind and a
// stable code, and the embedding application's sink renders it. Delivery is
// asynchronous through a [Dispatcher] so a slow sink cannot stall a store
// mutation. Navigation intents are the same idea for routing: the core
// signals "go to login" or "access denied", the application decides the
// concrete route.
package notify

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind classifies an event for sink-side presentation.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Event is one abstract notification. Code is stable and machine-readable
// ("login_failed", "cart_item_skipped"); Message is a developer-facing
// default the sink may replace.
type Event struct {
	ID      string            `json:"id"`
	Time    time.Time         `json:"time"`
	Kind    Kind              `json:"kind"`
	Code    string            `json:"code"`
	Message string            `json:"message,omitempty"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// NewEvent stamps an event with an ID and the current time.
func NewEvent(kind Kind, code, message string) Event {
	return Event{
		ID:      uuid.NewString(),
		Time:    time.Now().UTC(),
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// Sink receives rendered-agnostic events. Implementations must be safe for
// concurrent use.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops everything.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink forwards events into a buffered channel, for applications
// that drain notifications from their own event loop.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan Event, buffer)}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON line per event.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// Intent is an abstract navigation signal. The core never knows routes.
type Intent int

const (
	// IntentLogin asks the application to show its login surface.
	IntentLogin Intent = iota
	// IntentAccessDenied asks the application to show its access-denied
	// surface. Emitted on Forbidden; the navigation policy stays external.
	IntentAccessDenied
)

// Navigator receives navigation intents synchronously.
type Navigator interface {
	Navigate(intent Intent)
}

// NoOpNavigator ignores all intents.
type NoOpNavigator struct{}

func (NoOpNavigator) Navigate(Intent) {}
