// Package metrics exposes lock-free counters for the storecore hot paths.
// Recording is allocation-free; exporters read point-in-time snapshots.
// A nil *Metrics is valid and records nothing.
package metrics

import "sync/atomic"

// ID indexes one counter.
type ID uint16

const (
	// IDLoginSuccess counts committed credential logins.
	IDLoginSuccess ID = iota
	// IDLoginFailure counts rejected or failed credential logins.
	IDLoginFailure
	// IDRegisterSuccess counts committed registrations.
	IDRegisterSuccess
	// IDRegisterFailure counts rejected or failed registrations.
	IDRegisterFailure
	// IDSocialLoginSuccess counts committed social logins.
	IDSocialLoginSuccess
	// IDSocialLoginFailure counts provider or exchange failures.
	IDSocialLoginFailure
	// IDLogout counts explicit logouts.
	IDLogout
	// IDRefreshStarted counts refresh network calls actually issued.
	IDRefreshStarted
	// IDRefreshShared counts callers that joined an in-flight refresh
	// instead of issuing their own call.
	IDRefreshShared
	// IDRefreshSuccess counts refreshes that produced a new token.
	IDRefreshSuccess
	// IDRefreshFailure counts refreshes that exhausted their retries.
	IDRefreshFailure
	// IDRefreshRetry counts individual retry attempts inside one refresh.
	IDRefreshRetry
	// IDSessionRestored counts sessions reconstructed from storage.
	IDSessionRestored
	// IDSessionDiscarded counts persisted sessions rejected at startup.
	IDSessionDiscarded
	// IDSessionPersisted counts session blobs written.
	IDSessionPersisted
	// IDCartMutation counts committed cart mutations.
	IDCartMutation
	// IDCartRejected counts cart writes rejected by validation.
	IDCartRejected
	// IDCartRestored counts carts reconstructed from storage.
	IDCartRestored
	// IDPersistWriteError counts failed durable writes.
	IDPersistWriteError
	// IDRequestRetried counts requests replayed after a refresh.
	IDRequestRetried
	// IDRequestExpired counts requests surfaced as SessionExpired.
	IDRequestExpired
	// IDRequestForbidden counts terminal 403s.
	IDRequestForbidden
	idCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is the counter set. Construct with [New]; a disabled instance
// keeps every Inc a cheap no-op.
type Metrics struct {
	enabled  bool
	counters [idCount]paddedCounter
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Counters map[ID]uint64
}

// New returns a counter set; when enabled is false all recording is dropped.
func New(enabled bool) *Metrics {
	return &Metrics{enabled: enabled}
}

// Enabled reports whether recording is active.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter. Safe on nil and disabled receivers.
func (m *Metrics) Inc(id ID) {
	if m == nil || !m.enabled || id >= idCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value reads one counter.
func (m *Metrics) Value(id ID) uint64 {
	if m == nil || id >= idCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters. On a nil or disabled receiver the maps are
// empty, never nil.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil || !m.enabled {
		return Snapshot{Counters: map[ID]uint64{}}
	}

	s := Snapshot{Counters: make(map[ID]uint64, int(idCount))}
	for id := ID(0); id < idCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
