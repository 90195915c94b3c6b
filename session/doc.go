// Package session owns the authenticated-session lifecycle: credential and
// social login, startup restore, logout, permission predicates, and token
// refresh.
//
// The [Manager] is the single writer of [Session] state. Observers read it
// through the underlying state store; every committed change is published as
// one atomic snapshot.
//
// # Refresh is single-flight
//
// At most one refresh network call is in flight per Manager. Concurrent
// callers of [Manager.Refresh] join the pending call and all receive the
// same result. Each attempt has a timeout and failed attempts retry with
// bounded exponential backoff; exhausting the retries resolves every waiter
// with failure and forces logout, so no caller is ever left blocked on a
// dead refresh. [Manager.Logout] resolves pending waiters the same way.
//
// # Lifecycle
//
//	Unauthenticated -> login/register/social -> Authenticated
//	Authenticated   -> refresh success       -> Authenticated (expiry extended)
//	Authenticated   -> refresh failure | logout | expiry -> Unauthenticated
//
// There is no externally visible "refreshing" state; the single-flight
// coordination is internal.
package session
