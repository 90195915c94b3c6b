// Package cart owns the shopping-cart state: line items keyed by
// fingerprint, merge-on-add semantics, and the derived totals.
//
// A line's identity is its fingerprint: the product ID plus the
// canonicalized selected-option map. Two adds with equal fingerprints merge
// into one line whose quantity is the sum; different option selections of
// the same product stay separate lines.
//
// Total and ItemCount are derived. Every mutation recomputes them from the
// resulting line list before publishing, so they can never drift from the
// lines. Money is decimal; floats never touch a price.
//
// The [Store] is the single writer. Mutations are validated first and apply
// atomically or not at all; a rejected write leaves the published state
// untouched.
package cart
