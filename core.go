package storecore

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ferreye/storecore/apiclient"
	"github.com/ferreye/storecore/cart"
	"github.com/ferreye/storecore/metrics"
	"github.com/ferreye/storecore/notify"
	"github.com/ferreye/storecore/session"
)

// Core bundles the wired stores. Construct it through [Builder.Build], call
// [Core.Initialize] once at startup, and [Core.Close] at shutdown.
type Core struct {
	// Sessions owns authentication state and the token lifecycle.
	Sessions *session.Manager
	// Cart owns the cart state.
	Cart *cart.Store
	// Client issues authenticated requests against the backend.
	Client *apiclient.Client

	config      Config
	metrics     *metrics.Metrics
	notifier    *notify.Dispatcher
	log         *zap.Logger
	initialized atomic.Bool
	closed      atomic.Bool
}

// Initialize restores persisted session and cart state. Without storage it
// is a cheap no-op; either way the core is usable afterwards. Calling it
// twice is safe, the second call does nothing.
func (c *Core) Initialize(ctx context.Context) error {
	if c.closed.Load() {
		return ErrCoreNotReady
	}
	if !c.initialized.CompareAndSwap(false, true) {
		return nil
	}
	c.Sessions.Initialize(ctx)
	c.Cart.Initialize(ctx)
	c.log.Debug("core initialized",
		zap.Bool("authenticated", c.Sessions.Snapshot().IsAuthenticated()))
	return nil
}

// MetricsSnapshot copies the counter set.
func (c *Core) MetricsSnapshot() metrics.Snapshot {
	return c.metrics.Snapshot()
}

// NotificationsDropped reports events discarded under backpressure.
func (c *Core) NotificationsDropped() uint64 {
	return c.notifier.Dropped()
}

// Close drains the notification queue and stops background delivery. The
// stores stay readable; mutations after Close are not prevented but their
// notifications are dropped.
func (c *Core) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.notifier.Close()
}
