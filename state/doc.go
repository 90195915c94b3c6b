// Package state provides the observable value container every store in
// storecore is built on.
//
// A [Store] holds one immutable snapshot of type T. Mutations go through
// [Store.Replace], which swaps the value atomically and notifies every
// current subscriber synchronously, in subscription order, before the next
// mutation is accepted. Subscribers therefore never observe a partially
// updated value and never miss an intermediate one.
//
// # Contract
//
//   - [Store.Snapshot] has no side effects and never blocks on notification.
//   - Unsubscribing while a notification pass is running is safe: the
//     unsubscribed observer stops receiving events, the others are unaffected.
//   - Callers must treat snapshots as immutable. Replace is the only write path.
//   - A subscriber must not call Replace on the store it observes; mutations
//     are serialized and a re-entrant Replace would deadlock.
package state
