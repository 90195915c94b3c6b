package state

import (
	"sync"
	"sync/atomic"
)

// Store holds a current value of type T and a list of subscribers.
// The zero value is not usable; construct with [New].
type Store[T any] struct {
	// replaceMu serializes mutations. It is held across the value swap and
	// the whole notification pass, so one Replace finishes delivering
	// before the next is accepted.
	replaceMu sync.Mutex

	mu    sync.Mutex
	value T
	subs  []*subscriber[T]
}

type subscriber[T any] struct {
	fn     func(T)
	active atomic.Bool
}

// New returns a Store seeded with initial.
func New[T any](initial T) *Store[T] {
	return &Store[T]{value: initial}
}

// Snapshot returns the current value without side effects.
func (s *Store[T]) Snapshot() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Replace swaps the current value and synchronously notifies all
// subscribers present at the time of the swap, in subscription order.
func (s *Store[T]) Replace(next T) {
	s.replaceMu.Lock()
	defer s.replaceMu.Unlock()

	s.mu.Lock()
	s.value = next
	observers := make([]*subscriber[T], len(s.subs))
	copy(observers, s.subs)
	s.mu.Unlock()

	for _, sub := range observers {
		// An observer unsubscribed mid-pass is skipped without
		// disturbing delivery to the rest.
		if sub.active.Load() {
			sub.fn(next)
		}
	}
}

// Subscribe registers an observer and returns its unsubscribe handle.
// The observer is not called with the current value on registration;
// callers needing it should read Snapshot first.
func (s *Store[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	sub := &subscriber[T]{fn: fn}
	sub.active.Store(true)

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	return func() {
		if !sub.active.CompareAndSwap(true, false) {
			return
		}
		s.mu.Lock()
		for i, candidate := range s.subs {
			if candidate == sub {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
	}
}

// Subscribers reports the number of registered observers.
func (s *Store[T]) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
