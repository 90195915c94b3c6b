package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ferreye/storecore/coreerrors"
	"github.com/ferreye/storecore/metrics"
	"github.com/ferreye/storecore/notify"
	"github.com/ferreye/storecore/persist"
	"github.com/ferreye/storecore/state"
)

// Credentials is the local login input.
type Credentials struct {
	Email      string
	Password   string
	RememberMe bool
}

// RegistrationInput is the local registration input. Registration behaves
// like login on success: the returned tokens open a session immediately.
type RegistrationInput struct {
	Name       string
	Email      string
	Password   string
	RememberMe bool
}

// ExternalIdentity is the normalized result of a social provider flow.
// Every provider must resolve to this shape before a session is built.
type ExternalIdentity struct {
	ID        string
	Name      string
	Email     string
	AvatarURL string
}

// SocialProvider runs one provider's interactive flow.
type SocialProvider interface {
	Name() string
	Authenticate(ctx context.Context) (ExternalIdentity, error)
}

// Profile is the user object carried by auth responses.
type Profile struct {
	ID    string
	Name  string
	Email string
	Role  string
}

// AuthResponse is what the auth endpoints resolve to.
type AuthResponse struct {
	Token        string
	RefreshToken string
	// TokenExpiry may be zero; the manager then derives it from the access
	// token's exp claim, falling back to the configured TTL.
	TokenExpiry time.Time
	// User is nil when the response carries no profile (refresh responses
	// may omit it; the current profile is kept).
	User        *Profile
	Permissions map[string]bool
}

// AuthAPI is the outbound auth contract the manager drives.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*AuthResponse, error)
	Register(ctx context.Context, input RegistrationInput) (*AuthResponse, error)
	LoginSocial(ctx context.Context, provider string, identity ExternalIdentity) (*AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error)
}

// RefreshConfig bounds the refresh operation. An unresponsive network must
// never leave waiters blocked: each attempt is capped, attempts retry with
// exponential backoff, and the try count is finite.
type RefreshConfig struct {
	AttemptTimeout time.Duration
	MaxTries       uint
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Config carries the manager's tunables.
type Config struct {
	// PersistKey is the storage key for the session blob.
	PersistKey string
	// DefaultPermissions are granted to the unauthenticated session.
	DefaultPermissions []string
	// MinPasswordLength is the local password policy floor.
	MinPasswordLength int
	// TokenTTLFallback is used when neither the response nor the token
	// itself carries an expiry.
	TokenTTLFallback time.Duration
	Refresh          RefreshConfig
}

func (c *Config) applyDefaults() {
	if c.PersistKey == "" {
		c.PersistKey = "session"
	}
	if c.MinPasswordLength <= 0 {
		c.MinPasswordLength = 8
	}
	if c.TokenTTLFallback <= 0 {
		c.TokenTTLFallback = 15 * time.Minute
	}
	if c.Refresh.AttemptTimeout <= 0 {
		c.Refresh.AttemptTimeout = 10 * time.Second
	}
	if c.Refresh.MaxTries == 0 {
		c.Refresh.MaxTries = 3
	}
	if c.Refresh.InitialBackoff <= 0 {
		c.Refresh.InitialBackoff = 500 * time.Millisecond
	}
	if c.Refresh.MaxBackoff <= 0 {
		c.Refresh.MaxBackoff = 5 * time.Second
	}
}

// Deps carries the manager's collaborators. API is required; everything
// else degrades to a no-op when nil.
type Deps struct {
	API       AuthAPI
	Providers []SocialProvider
	Persist   *persist.Adapter
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Notifier  *notify.Dispatcher
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Manager owns the Session state. All mutation goes through its commands;
// observers subscribe to the published snapshots.
type Manager struct {
	cfg       Config
	api       AuthAPI
	providers map[string]SocialProvider
	store     *state.Store[Session]
	persister *persist.Adapter
	log       *zap.Logger
	metrics   *metrics.Metrics
	notifier  *notify.Dispatcher
	now       func() time.Time

	mu         sync.Mutex
	inflight   *refreshCall
	remembered bool
}

// NewManager builds a manager in the unauthenticated default state.
// Call Initialize to restore a persisted session.
func NewManager(cfg Config, deps Deps) (*Manager, error) {
	if deps.API == nil {
		return nil, fmt.Errorf("session: AuthAPI is required")
	}
	cfg.applyDefaults()

	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	providers := make(map[string]SocialProvider, len(deps.Providers))
	for _, p := range deps.Providers {
		name := strings.ToLower(p.Name())
		if _, dup := providers[name]; dup {
			return nil, fmt.Errorf("session: duplicate social provider %q", name)
		}
		providers[name] = p
	}

	m := &Manager{
		cfg:       cfg,
		api:       deps.API,
		providers: providers,
		persister: deps.Persist,
		log:       log,
		metrics:   deps.Metrics,
		notifier:  deps.Notifier,
		now:       now,
	}
	m.store = state.New(m.defaultSession(""))
	return m, nil
}

func (m *Manager) defaultSession(failureMessage string) Session {
	perms := make(PermissionSet, len(m.cfg.DefaultPermissions))
	for _, p := range m.cfg.DefaultPermissions {
		perms[p] = true
	}
	return Session{Permissions: perms, FailureMessage: failureMessage}
}

// Snapshot returns the current session.
func (m *Manager) Snapshot() Session {
	return m.store.Snapshot()
}

// Subscribe registers an observer of session changes.
func (m *Manager) Subscribe(fn func(Session)) (unsubscribe func()) {
	return m.store.Subscribe(fn)
}

// Initialize restores the persisted session, if any. An absent, corrupt, or
// expired blob publishes the unauthenticated default instead. Expired here
// means the access token is past its expiry and no refresh token survives.
func (m *Manager) Initialize(ctx context.Context) {
	if m.persister == nil {
		m.store.Replace(m.defaultSession(""))
		return
	}

	blob, ok := persist.Load[persistedSession](ctx, m.persister, m.cfg.PersistKey)
	if !ok {
		m.store.Replace(m.defaultSession(""))
		return
	}

	restored := fromPersisted(blob)
	if restored.Token == "" || (!restored.TokenValidAt(m.now()) && restored.RefreshToken == "") {
		m.metrics.Inc(metrics.IDSessionDiscarded)
		m.log.Info("session: discarding expired persisted session")
		_ = m.persister.Clear(ctx, m.cfg.PersistKey)
		m.store.Replace(m.defaultSession(""))
		return
	}

	m.mu.Lock()
	m.remembered = true
	m.mu.Unlock()

	m.metrics.Inc(metrics.IDSessionRestored)
	m.store.Replace(restored)
}

// Login validates the credential shape locally, then exchanges it. On
// success the session is published and, only when RememberMe was requested,
// persisted. On failure the published state is unauthenticated and carries
// the failure message.
func (m *Manager) Login(ctx context.Context, creds Credentials) (Session, error) {
	if verr := validateEmail(creds.Email); verr != nil {
		m.metrics.Inc(metrics.IDLoginFailure)
		return Session{}, verr
	}
	if verr := validatePassword(creds.Password, m.cfg.MinPasswordLength); verr != nil {
		m.metrics.Inc(metrics.IDLoginFailure)
		return Session{}, verr
	}

	resp, err := m.api.Login(ctx, strings.TrimSpace(creds.Email), creds.Password)
	if err != nil {
		m.metrics.Inc(metrics.IDLoginFailure)
		m.store.Replace(m.defaultSession(err.Error()))
		m.notifier.Emit(ctx, notify.NewEvent(notify.KindError, "login_failed", err.Error()))
		return Session{}, fmt.Errorf("session: login: %w", err)
	}

	sess := m.commitAuthenticated(ctx, resp, creds.RememberMe)
	m.metrics.Inc(metrics.IDLoginSuccess)
	m.notifier.Emit(ctx, notify.NewEvent(notify.KindSuccess, "login_succeeded", ""))
	return sess, nil
}

// Register validates the registration shape locally, creates the account,
// and opens a session from the returned tokens.
func (m *Manager) Register(ctx context.Context, input RegistrationInput) (Session, error) {
	if verr := validateDisplayName(input.Name); verr != nil {
		m.metrics.Inc(metrics.IDRegisterFailure)
		return Session{}, verr
	}
	if verr := validateEmail(input.Email); verr != nil {
		m.metrics.Inc(metrics.IDRegisterFailure)
		return Session{}, verr
	}
	if verr := validatePassword(input.Password, m.cfg.MinPasswordLength); verr != nil {
		m.metrics.Inc(metrics.IDRegisterFailure)
		return Session{}, verr
	}

	resp, err := m.api.Register(ctx, input)
	if err != nil {
		m.metrics.Inc(metrics.IDRegisterFailure)
		m.store.Replace(m.defaultSession(err.Error()))
		m.notifier.Emit(ctx, notify.NewEvent(notify.KindError, "registration_failed", err.Error()))
		return Session{}, fmt.Errorf("session: register: %w", err)
	}

	sess := m.commitAuthenticated(ctx, resp, input.RememberMe)
	m.metrics.Inc(metrics.IDRegisterSuccess)
	m.notifier.Emit(ctx, notify.NewEvent(notify.KindSuccess, "registration_succeeded", ""))
	return sess, nil
}

// LoginWithProvider runs the named provider's flow and exchanges the
// normalized identity for a session. Any provider or exchange failure maps
// to ErrSocialAuth. Social sessions are always persisted; the provider
// holds the durable grant, so "remember" is implied.
func (m *Manager) LoginWithProvider(ctx context.Context, provider string) (Session, error) {
	p, ok := m.providers[strings.ToLower(provider)]
	if !ok {
		m.metrics.Inc(metrics.IDSocialLoginFailure)
		return Session{}, fmt.Errorf("session: %w: %s", coreerrors.ErrUnknownProvider, provider)
	}

	identity, err := p.Authenticate(ctx)
	if err != nil {
		m.metrics.Inc(metrics.IDSocialLoginFailure)
		m.store.Replace(m.defaultSession("social login failed"))
		m.notifier.Emit(ctx, notify.NewEvent(notify.KindError, "social_login_failed", provider))
		return Session{}, fmt.Errorf("session: provider %s: %w: %v", provider, coreerrors.ErrSocialAuth, err)
	}

	resp, err := m.api.LoginSocial(ctx, strings.ToLower(provider), identity)
	if err != nil {
		m.metrics.Inc(metrics.IDSocialLoginFailure)
		m.store.Replace(m.defaultSession("social login failed"))
		m.notifier.Emit(ctx, notify.NewEvent(notify.KindError, "social_login_failed", provider))
		return Session{}, fmt.Errorf("session: exchange %s: %w: %v", provider, coreerrors.ErrSocialAuth, err)
	}

	sess := m.commitAuthenticated(ctx, resp, true)
	m.metrics.Inc(metrics.IDSocialLoginSuccess)
	m.notifier.Emit(ctx, notify.NewEvent(notify.KindSuccess, "login_succeeded", ""))
	return sess, nil
}

// Logout clears the persisted blob, resolves any pending refresh waiters
// with ErrSessionExpired, and publishes the unauthenticated default.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.remembered = false
	m.resolveInflightLocked("", coreerrors.ErrSessionExpired)
	m.mu.Unlock()

	if m.persister != nil {
		_ = m.persister.Clear(ctx, m.cfg.PersistKey)
	}
	m.metrics.Inc(metrics.IDLogout)
	m.store.Replace(m.defaultSession(""))
	m.notifier.Emit(ctx, notify.NewEvent(notify.KindInfo, "logged_out", ""))
}

// GetValidToken returns the current token only while it is unexpired,
// otherwise the empty string. Callers needing a fresh token call Refresh.
func (m *Manager) GetValidToken() string {
	snap := m.store.Snapshot()
	if !snap.TokenValidAt(m.now()) {
		return ""
	}
	return snap.Token
}

// HasPermission reports whether the current session grants p.
func (m *Manager) HasPermission(p string) bool {
	return m.store.Snapshot().Permissions.Has(p)
}

// HasAnyPermission reports whether the current session grants any of ps.
func (m *Manager) HasAnyPermission(ps ...string) bool {
	return m.store.Snapshot().Permissions.HasAny(ps...)
}

// HasAllPermissions reports whether the current session grants all of ps.
func (m *Manager) HasAllPermissions(ps ...string) bool {
	return m.store.Snapshot().Permissions.HasAll(ps...)
}

// commitAuthenticated builds the session from resp, publishes it, and
// persists it when remember is set.
func (m *Manager) commitAuthenticated(ctx context.Context, resp *AuthResponse, remember bool) Session {
	sess := m.sessionFromResponse(resp, m.store.Snapshot())

	m.mu.Lock()
	m.remembered = remember
	m.mu.Unlock()

	m.store.Replace(sess)
	if remember {
		m.persistSession(ctx, sess)
	}
	return sess
}

// sessionFromResponse merges resp onto prior. Prior profile fields survive
// when the response omits the user object; prior permissions survive when
// the response omits the permission map.
func (m *Manager) sessionFromResponse(resp *AuthResponse, prior Session) Session {
	sess := Session{
		UserID:       prior.UserID,
		DisplayName:  prior.DisplayName,
		Email:        prior.Email,
		Role:         prior.Role,
		Permissions:  prior.Permissions.clone(),
		Token:        resp.Token,
		RefreshToken: resp.RefreshToken,
		TokenExpiry:  resp.TokenExpiry,
	}
	if resp.User != nil {
		sess.UserID = resp.User.ID
		sess.DisplayName = resp.User.Name
		sess.Email = resp.User.Email
		sess.Role = resp.User.Role
	}
	if resp.Permissions != nil {
		sess.Permissions = PermissionSet(resp.Permissions).clone()
	}
	if sess.TokenExpiry.IsZero() {
		if exp, ok := tokenExpiry(sess.Token); ok {
			sess.TokenExpiry = exp
		} else {
			sess.TokenExpiry = m.now().Add(m.cfg.TokenTTLFallback)
		}
	}
	return sess
}

func (m *Manager) persistSession(ctx context.Context, sess Session) {
	if m.persister == nil {
		return
	}
	if err := persist.Save(ctx, m.persister, m.cfg.PersistKey, toPersisted(sess)); err != nil {
		// The in-memory session stays usable; the failure is reported only.
		m.metrics.Inc(metrics.IDPersistWriteError)
		m.log.Warn("session: persist failed", zap.Error(err))
		m.notifier.Emit(ctx, notify.NewEvent(notify.KindError, "session_persist_failed", err.Error()))
		return
	}
	m.metrics.Inc(metrics.IDSessionPersisted)
}
