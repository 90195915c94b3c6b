package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/ferreye/storecore/coreerrors"
	"github.com/ferreye/storecore/metrics"
	"github.com/ferreye/storecore/notify"
)

// refreshCall is one in-flight refresh shared by every concurrent caller.
// token and err are written exactly once, before done is closed.
type refreshCall struct {
	done   chan struct{}
	cancel context.CancelFunc
	token  string
	err    error
}

// Refresh returns a fresh access token, issuing at most one network call
// regardless of how many callers arrive while it is pending. Every waiter
// receives the same result. A failed refresh resolves all waiters with
// ErrSessionExpired and forces logout.
//
// A caller whose own ctx is cancelled stops waiting, but the shared call
// keeps running for the others.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	if call := m.inflight; call != nil {
		m.mu.Unlock()
		m.metrics.Inc(metrics.IDRefreshShared)
		return awaitRefresh(ctx, call)
	}

	refreshToken := m.store.Snapshot().RefreshToken
	if refreshToken == "" {
		m.mu.Unlock()
		return "", coreerrors.ErrSessionExpired
	}

	call := &refreshCall{done: make(chan struct{})}
	// The call's lifetime is detached from the triggering caller: its
	// result is shared, so the first caller's cancellation must not kill
	// the refresh for everyone else. Logout cancels it explicitly.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	call.cancel = cancel
	m.inflight = call
	m.mu.Unlock()

	m.metrics.Inc(metrics.IDRefreshStarted)
	go m.runRefresh(runCtx, call, refreshToken)

	return awaitRefresh(ctx, call)
}

func awaitRefresh(ctx context.Context, call *refreshCall) (string, error) {
	select {
	case <-call.done:
		return call.token, call.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (m *Manager) runRefresh(ctx context.Context, call *refreshCall, refreshToken string) {
	defer call.cancel()

	resp, err := m.refreshWithRetry(ctx, refreshToken)

	m.mu.Lock()
	if m.inflight != call {
		// Logout already resolved this call and its waiters.
		m.mu.Unlock()
		return
	}
	m.inflight = nil
	if err != nil {
		remembered := m.remembered
		m.remembered = false
		m.resolveCallLocked(call, "", fmt.Errorf("%w: %v", coreerrors.ErrSessionExpired, err))
		m.mu.Unlock()

		m.metrics.Inc(metrics.IDRefreshFailure)
		m.log.Warn("session: refresh failed, forcing logout", zap.Error(err))
		if remembered && m.persister != nil {
			_ = m.persister.Clear(ctx, m.cfg.PersistKey)
		}
		m.store.Replace(m.defaultSession("session expired"))
		m.notifier.Emit(ctx, notify.NewEvent(notify.KindError, "session_expired", ""))
		return
	}

	sess := m.sessionFromResponse(resp, m.store.Snapshot())
	remembered := m.remembered
	m.resolveCallLocked(call, sess.Token, nil)
	m.mu.Unlock()

	m.metrics.Inc(metrics.IDRefreshSuccess)
	m.store.Replace(sess)
	if remembered {
		m.persistSession(ctx, sess)
	}
}

// resolveCallLocked publishes the result to every waiter. Caller holds m.mu.
func (m *Manager) resolveCallLocked(call *refreshCall, token string, err error) {
	call.token = token
	call.err = err
	close(call.done)
}

// resolveInflightLocked detaches and fails the pending refresh, if any.
// Caller holds m.mu.
func (m *Manager) resolveInflightLocked(token string, err error) {
	call := m.inflight
	if call == nil {
		return
	}
	m.inflight = nil
	call.cancel()
	m.resolveCallLocked(call, token, err)
}

// refreshWithRetry runs the network refresh with a per-attempt timeout and
// bounded exponential backoff. A 401-class rejection is permanent; retrying
// a revoked refresh token cannot succeed.
func (m *Manager) refreshWithRetry(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = m.cfg.Refresh.InitialBackoff
	policy.MaxInterval = m.cfg.Refresh.MaxBackoff

	operation := func() (*AuthResponse, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, m.cfg.Refresh.AttemptTimeout)
		defer cancel()

		resp, err := m.api.Refresh(attemptCtx, refreshToken)
		if err != nil {
			if errors.Is(err, coreerrors.ErrUnauthorized) ||
				errors.Is(err, coreerrors.ErrInvalidCredentials) ||
				errors.Is(err, coreerrors.ErrForbidden) {
				return nil, backoff.Permanent(err)
			}
			if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
				err = fmt.Errorf("%w: %v", coreerrors.ErrTimeout, err)
			}
			return nil, err
		}
		if resp.Token == "" {
			return nil, backoff.Permanent(errors.New("refresh response missing token"))
		}
		return resp, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(m.cfg.Refresh.MaxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			m.metrics.Inc(metrics.IDRefreshRetry)
			m.log.Warn("session: refresh attempt failed",
				zap.Error(err), zap.Duration("retry_in", next))
		}),
	)
}

// tokenExpiry reads the exp claim of a JWT access token without verifying
// its signature. Verification is the backend's job; the client only needs
// the expiry to schedule refreshes.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
