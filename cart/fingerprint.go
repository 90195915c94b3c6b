package cart

import (
	"sort"
	"strings"
)

// fingerprint derives the line identity from a product ID and its selected
// options. Options are canonicalized by key order, so two maps with the
// same keys and values produce the same fingerprint regardless of
// insertion order. Nil and empty selections canonicalize identically.
func fingerprint(productID string, opts map[string]string) string {
	if len(opts) == 0 {
		return productID
	}

	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(productID)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(opts[k])
	}
	return b.String()
}
