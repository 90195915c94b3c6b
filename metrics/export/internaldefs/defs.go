// Package internaldefs holds the shared counter name table used by the
// metric exporters. It is internal to the export layer; applications
// consume exporters, not these definitions.
package internaldefs

import "github.com/ferreye/storecore/metrics"

// CounterDef binds one metrics.ID to its exported instrument name.
type CounterDef struct {
	ID   metrics.ID
	Name string
	Help string
}

// CounterDefs enumerates every exported counter.
var CounterDefs = []CounterDef{
	{ID: metrics.IDLoginSuccess, Name: "storecore_login_success_total", Help: "Committed credential logins."},
	{ID: metrics.IDLoginFailure, Name: "storecore_login_failure_total", Help: "Rejected or failed credential logins."},
	{ID: metrics.IDRegisterSuccess, Name: "storecore_register_success_total", Help: "Committed registrations."},
	{ID: metrics.IDRegisterFailure, Name: "storecore_register_failure_total", Help: "Rejected or failed registrations."},
	{ID: metrics.IDSocialLoginSuccess, Name: "storecore_social_login_success_total", Help: "Committed social logins."},
	{ID: metrics.IDSocialLoginFailure, Name: "storecore_social_login_failure_total", Help: "Failed social logins."},
	{ID: metrics.IDLogout, Name: "storecore_logout_total", Help: "Explicit logouts."},
	{ID: metrics.IDRefreshStarted, Name: "storecore_refresh_started_total", Help: "Refresh network calls issued."},
	{ID: metrics.IDRefreshShared, Name: "storecore_refresh_shared_total", Help: "Callers joined to an in-flight refresh."},
	{ID: metrics.IDRefreshSuccess, Name: "storecore_refresh_success_total", Help: "Refreshes that produced a new token."},
	{ID: metrics.IDRefreshFailure, Name: "storecore_refresh_failure_total", Help: "Refreshes that exhausted their retries."},
	{ID: metrics.IDRefreshRetry, Name: "storecore_refresh_retry_total", Help: "Retry attempts inside refresh operations."},
	{ID: metrics.IDSessionRestored, Name: "storecore_session_restored_total", Help: "Sessions reconstructed from storage."},
	{ID: metrics.IDSessionDiscarded, Name: "storecore_session_discarded_total", Help: "Persisted sessions rejected at startup."},
	{ID: metrics.IDSessionPersisted, Name: "storecore_session_persisted_total", Help: "Session blobs written."},
	{ID: metrics.IDCartMutation, Name: "storecore_cart_mutation_total", Help: "Committed cart mutations."},
	{ID: metrics.IDCartRejected, Name: "storecore_cart_rejected_total", Help: "Cart writes rejected by validation."},
	{ID: metrics.IDCartRestored, Name: "storecore_cart_restored_total", Help: "Carts reconstructed from storage."},
	{ID: metrics.IDPersistWriteError, Name: "storecore_persist_write_error_total", Help: "Failed durable writes."},
	{ID: metrics.IDRequestRetried, Name: "storecore_request_retried_total", Help: "Requests replayed after a refresh."},
	{ID: metrics.IDRequestExpired, Name: "storecore_request_expired_total", Help: "Requests surfaced as session expired."},
	{ID: metrics.IDRequestForbidden, Name: "storecore_request_forbidden_total", Help: "Terminal 403 responses."},
}
