// Package storecore is the client-side state core of a storefront
// application: session lifecycle, cart contents, durable persistence, and
// authenticated HTTP access, independent of any UI toolkit.
//
// The package is the public surface. It exposes [Core], [Builder], [Config],
// and re-exported error sentinels; the moving parts live in sub-packages
// (session, cart, persist, apiclient, notify, metrics, state) and are wired
// together by [Builder.Build].
//
// # State model
//
// Session and cart are each an observable store: commands mutate, observers
// receive immutable snapshots. The UI layer subscribes and renders; it never
// reaches into the stores directly.
//
// # Concurrency contract
//
// All Core methods and the stores they expose are safe for concurrent use
// after Build. Token refresh is single-flighted: any number of concurrent
// 401s or expired-token reads collapse into one network call, and every
// waiter receives that call's result.
package storecore
