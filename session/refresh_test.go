package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ferreye/storecore/coreerrors"
	"github.com/ferreye/storecore/metrics"
	"github.com/ferreye/storecore/persist"
)

func loginRemembered(t *testing.T, mgr *Manager) {
	t.Helper()
	if _, err := mgr.Login(context.Background(), Credentials{
		Email: "a@a.com", Password: "validpass1", RememberMe: true,
	}); err != nil {
		t.Fatalf("login failed: %v", err)
	}
}

func TestRefreshSingleFlight(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAuthAPI{
		loginResp:   authedResponse("tok1"),
		refreshResp: authedResponse("tok2"),
		refreshGate: gate,
	}
	mgr, m := newTestManager(t, api, persist.NewMemoryBackend())
	loginRemembered(t, mgr)

	const n = 16
	var group errgroup.Group
	tokens := make(chan string, n)
	for i := 0; i < n; i++ {
		group.Go(func() error {
			token, err := mgr.Refresh(context.Background())
			if err != nil {
				return err
			}
			tokens <- token
			return nil
		})
	}

	// Wait until one network call is in flight and the remaining callers
	// have joined it, then let the call finish.
	deadline := time.After(5 * time.Second)
	for m.Value(metrics.IDRefreshShared) < n-1 || api.refreshCallCount() < 1 {
		select {
		case <-deadline:
			t.Fatalf("callers never converged: shared=%d calls=%d",
				m.Value(metrics.IDRefreshShared), api.refreshCallCount())
		default:
			time.Sleep(time.Millisecond)
		}
	}
	close(gate)

	if err := group.Wait(); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	close(tokens)

	if got := api.refreshCallCount(); got != 1 {
		t.Fatalf("expected exactly one refresh network call, got %d", got)
	}
	count := 0
	for token := range tokens {
		count++
		if token != "tok2" {
			t.Fatalf("waiter received wrong token %q", token)
		}
	}
	if count != n {
		t.Fatalf("expected %d resolved waiters, got %d", n, count)
	}
}

func TestRefreshFailureResolvesAllWaitersAndForcesLogout(t *testing.T) {
	backend := persist.NewMemoryBackend()
	gate := make(chan struct{})
	api := &fakeAuthAPI{
		loginResp:   authedResponse("tok1"),
		refreshErr:  coreerrors.ErrUnauthorized,
		refreshGate: gate,
	}
	mgr, m := newTestManager(t, api, backend)
	loginRemembered(t, mgr)

	const n = 8
	var group errgroup.Group
	for i := 0; i < n; i++ {
		group.Go(func() error {
			_, err := mgr.Refresh(context.Background())
			if !errors.Is(err, coreerrors.ErrSessionExpired) {
				return errors.New("waiter did not receive ErrSessionExpired")
			}
			return nil
		})
	}

	deadline := time.After(5 * time.Second)
	for m.Value(metrics.IDRefreshShared) < n-1 || api.refreshCallCount() < 1 {
		select {
		case <-deadline:
			t.Fatalf("callers never converged")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	close(gate)

	if err := group.Wait(); err != nil {
		t.Fatalf("%v", err)
	}

	if mgr.Snapshot().IsAuthenticated() {
		t.Fatalf("failed refresh must force logout")
	}
	if _, err := backend.Get(context.Background(), "session"); !errors.Is(err, persist.ErrNotFound) {
		t.Fatalf("failed refresh must clear the persisted blob")
	}
	// 401-class rejection is permanent: no retries.
	if got := api.refreshCallCount(); got != 1 {
		t.Fatalf("expected one refresh attempt for permanent failure, got %d", got)
	}
}

func TestRefreshRetriesAreBounded(t *testing.T) {
	api := &fakeAuthAPI{
		loginResp:  authedResponse("tok1"),
		refreshErr: coreerrors.ErrConnectionFailed,
	}
	mgr, _ := newTestManager(t, api, nil)
	loginRemembered(t, mgr)

	_, err := mgr.Refresh(context.Background())
	if !errors.Is(err, coreerrors.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired after exhausted retries, got %v", err)
	}
	if got := api.refreshCallCount(); got != 3 {
		t.Fatalf("expected MaxTries=3 refresh attempts, got %d", got)
	}
	if mgr.Snapshot().IsAuthenticated() {
		t.Fatalf("exhausted retries must end unauthenticated")
	}
}

func TestLogoutResolvesPendingRefresh(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)

	api := &fakeAuthAPI{
		loginResp:   authedResponse("tok1"),
		refreshResp: authedResponse("tok2"),
		refreshGate: gate,
	}
	mgr, _ := newTestManager(t, api, nil)
	loginRemembered(t, mgr)

	done := make(chan error, 1)
	go func() {
		_, err := mgr.Refresh(context.Background())
		done <- err
	}()

	deadline := time.After(5 * time.Second)
	for api.refreshCallCount() < 1 {
		select {
		case <-deadline:
			t.Fatalf("refresh never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	mgr.Logout(context.Background())

	select {
	case err := <-done:
		if !errors.Is(err, coreerrors.ErrSessionExpired) {
			t.Fatalf("logout must resolve waiters with ErrSessionExpired, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("waiter left hanging after logout")
	}
}

func TestRefreshWithoutSessionFailsImmediately(t *testing.T) {
	mgr, _ := newTestManager(t, &fakeAuthAPI{}, nil)

	_, err := mgr.Refresh(context.Background())
	if !errors.Is(err, coreerrors.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired without a refresh token, got %v", err)
	}
}

func TestRefreshSuccessExtendsSessionAndPersists(t *testing.T) {
	backend := persist.NewMemoryBackend()
	next := authedResponse("tok2")
	next.User = &Profile{ID: "u1", Name: "Alice Renamed", Email: "a@a.com", Role: "customer"}
	api := &fakeAuthAPI{
		loginResp:   authedResponse("tok1"),
		refreshResp: next,
	}
	mgr, _ := newTestManager(t, api, backend)
	loginRemembered(t, mgr)

	token, err := mgr.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if token != "tok2" {
		t.Fatalf("expected tok2, got %q", token)
	}

	snap := mgr.Snapshot()
	if snap.Token != "tok2" {
		t.Fatalf("published session must carry the new token")
	}
	if snap.DisplayName != "Alice Renamed" {
		t.Fatalf("profile carried by the refresh response must propagate")
	}

	blob, ok := persist.Load[persistedSession](context.Background(),
		persist.NewAdapter(backend, nil), "session")
	if !ok || blob.Token != "tok2" {
		t.Fatalf("remembered session must be re-persisted after refresh")
	}
}
