package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalog view of an item as the cart needs it.
type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
	Stock int
	// Options declares the product's customizable options: option name to
	// the set of allowed values. Selections are checked against it at
	// write time. A product without options declares none.
	Options map[string][]string
}

// Line is one cart entry.
type Line struct {
	ProductID       string
	ProductName     string
	UnitPrice       decimal.Decimal
	Quantity        int
	SelectedOptions map[string]string
	AddedAt         time.Time
}

// Subtotal is UnitPrice times Quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// State is one immutable cart snapshot.
//
// Invariants: at most one line per fingerprint; Total and ItemCount equal
// the sums over Lines.
type State struct {
	Lines     []Line
	Total     decimal.Decimal
	ItemCount int
}

// IsEmpty reports whether the cart has no lines.
func (s State) IsEmpty() bool {
	return len(s.Lines) == 0
}

// recompute derives Total and ItemCount from lines. Derived fields are
// never patched incrementally.
func recompute(lines []Line) State {
	total := decimal.Zero
	count := 0
	for _, l := range lines {
		total = total.Add(l.Subtotal())
		count += l.Quantity
	}
	return State{Lines: lines, Total: total, ItemCount: count}
}

func emptyState() State {
	return State{Total: decimal.Zero}
}
