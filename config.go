package storecore

import (
	"errors"
	"time"

	"github.com/ferreye/storecore/cart"
	"github.com/ferreye/storecore/notify"
	"github.com/ferreye/storecore/session"
)

// Config carries every tunable of the core. Zero values mean "use the
// default"; Validate runs after defaults are applied.
type Config struct {
	// BaseURL targets the backend API. Required.
	BaseURL string

	// HTTPTimeout bounds every outbound request end to end.
	HTTPTimeout time.Duration

	Session       session.Config
	Cart          cart.Config
	Notifications notify.DispatcherConfig
	Metrics       MetricsConfig
}

// MetricsConfig toggles counter recording.
type MetricsConfig struct {
	Enabled bool
}

func defaultConfig() Config {
	return Config{
		HTTPTimeout: 30 * time.Second,
		Session: session.Config{
			PersistKey:       "session",
			TokenTTLFallback: 15 * time.Minute,
			Refresh: session.RefreshConfig{
				AttemptTimeout: 10 * time.Second,
				MaxTries:       3,
				InitialBackoff: 500 * time.Millisecond,
				MaxBackoff:     5 * time.Second,
			},
		},
		Cart: cart.Config{
			PersistKey: "cart",
		},
		Notifications: notify.DispatcherConfig{
			BufferSize: 64,
			DropIfFull: true,
		},
	}
}

// applyDefaults fills zero values in place. Session and cart keep their own
// defaulting for fields they own; only the core-level fields are handled
// here.
func (c *Config) applyDefaults() {
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	if c.Session.PersistKey == "" {
		c.Session.PersistKey = "session"
	}
	if c.Cart.PersistKey == "" {
		c.Cart.PersistKey = "cart"
	}
	if c.Notifications.BufferSize <= 0 {
		c.Notifications.BufferSize = 64
		c.Notifications.DropIfFull = true
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Session.DefaultPermissions = append([]string(nil), cfg.Session.DefaultPermissions...)
	return out
}

// Validate rejects configurations the core cannot run with.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("BaseURL is required")
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("HTTPTimeout must be positive")
	}
	if c.Session.PersistKey == c.Cart.PersistKey {
		return errors.New("session and cart must use distinct persist keys")
	}
	return nil
}
