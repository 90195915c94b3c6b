package storecore

import (
	"github.com/ferreye/storecore/cart"
	"github.com/ferreye/storecore/session"
)

// Aliases for the value types callers handle most, so simple integrations
// only import this package.
type (
	Session     = session.Session
	Credentials = session.Credentials
	Profile     = session.Profile

	Product   = cart.Product
	CartLine  = cart.Line
	CartState = cart.State
)
