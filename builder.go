package storecore

import (
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ferreye/storecore/apiclient"
	"github.com/ferreye/storecore/cart"
	"github.com/ferreye/storecore/metrics"
	"github.com/ferreye/storecore/notify"
	"github.com/ferreye/storecore/persist"
	"github.com/ferreye/storecore/session"
)

// Builder assembles a [Core]. Configure it during startup, call Build once,
// and treat the result as immutable wiring.
type Builder struct {
	config Config

	backend    persist.Backend
	httpClient *http.Client
	authAPI    session.AuthAPI
	providers  []session.SocialProvider
	sink       notify.Sink
	navigator  notify.Navigator
	logger     *zap.Logger

	built bool
}

// New returns a builder preloaded with defaults.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL targets the backend API.
func (b *Builder) WithBaseURL(url string) *Builder {
	b.config.BaseURL = url
	return b
}

// WithHTTPClient supplies the outbound client; its transport is wrapped
// with authentication, not replaced.
func (b *Builder) WithHTTPClient(hc *http.Client) *Builder {
	b.httpClient = hc
	return b
}

// WithStorage persists session and cart through backend. Without it, state
// lives only in memory and every launch starts logged out with an empty
// cart.
func (b *Builder) WithStorage(backend persist.Backend) *Builder {
	b.backend = backend
	return b
}

// WithRedis is shorthand for WithStorage over a Redis backend.
func (b *Builder) WithRedis(client *redis.Client, prefix string, ttl time.Duration) *Builder {
	b.backend = persist.NewRedisBackend(client, prefix, ttl)
	return b
}

// WithAuthAPI overrides the HTTP auth service, mainly for tests and
// non-HTTP backends.
func (b *Builder) WithAuthAPI(api session.AuthAPI) *Builder {
	b.authAPI = api
	return b
}

// WithSocialProvider registers one provider flow. Repeatable.
func (b *Builder) WithSocialProvider(p session.SocialProvider) *Builder {
	b.providers = append(b.providers, p)
	return b
}

// WithNotificationSink receives the core's user-facing events.
func (b *Builder) WithNotificationSink(sink notify.Sink) *Builder {
	b.sink = sink
	return b
}

// WithNavigator receives navigation intents (login, access denied).
func (b *Builder) WithNavigator(nav notify.Navigator) *Builder {
	b.navigator = nav
	return b
}

// WithLogger sets the structured logger shared by every component.
func (b *Builder) WithLogger(log *zap.Logger) *Builder {
	b.logger = log
	return b
}

// WithMetricsEnabled toggles counter recording.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build wires the core. The builder is single-use.
func (b *Builder) Build() (*Core, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := b.logger
	if log == nil {
		log = zap.NewNop()
	}

	m := metrics.New(cfg.Metrics.Enabled)
	dispatcher := notify.NewDispatcher(cfg.Notifications, b.sink)
	navigator := b.navigator
	if navigator == nil {
		navigator = notify.NoOpNavigator{}
	}

	var persister *persist.Adapter
	if b.backend != nil {
		persister = persist.NewAdapter(b.backend, log)
	}

	httpClient := b.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}

	authAPI := b.authAPI
	if authAPI == nil {
		var err error
		authAPI, err = apiclient.NewAuthService(cfg.BaseURL, httpClient)
		if err != nil {
			return nil, err
		}
	}

	sessions, err := session.NewManager(cfg.Session, session.Deps{
		API:       authAPI,
		Providers: b.providers,
		Persist:   persister,
		Logger:    log,
		Metrics:   m,
		Notifier:  dispatcher,
	})
	if err != nil {
		dispatcher.Close()
		return nil, err
	}

	cartStore := cart.NewStore(cfg.Cart, cart.Deps{
		Persist:  persister,
		Logger:   log,
		Metrics:  m,
		Notifier: dispatcher,
	})

	client, err := apiclient.NewClient(apiclient.ClientConfig{
		BaseURL:    cfg.BaseURL,
		HTTPClient: httpClient,
		Tokens:     sessions,
		Navigator:  navigator,
		Metrics:    m,
		Logger:     log,
	})
	if err != nil {
		dispatcher.Close()
		return nil, err
	}

	b.built = true
	return &Core{
		Sessions: sessions,
		Cart:     cartStore,
		Client:   client,
		config:   cfg,
		metrics:  m,
		notifier: dispatcher,
		log:      log,
	}, nil
}
