package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// persistedCart is the durable wire form. Field names are an external
// contract; unitPrice and productName travel alongside so the cart can be
// reconstructed without a catalog round-trip. Totals are re-derived on
// load, never trusted from storage.
type persistedCart struct {
	Items     []persistedCartItem `json:"items"`
	Total     decimal.Decimal     `json:"total"`
	ItemCount int                 `json:"itemCount"`
}

type persistedCartItem struct {
	ProductID       string            `json:"productId"`
	ProductName     string            `json:"productName,omitempty"`
	UnitPrice       decimal.Decimal   `json:"unitPrice"`
	Quantity        int               `json:"quantity"`
	SelectedOptions map[string]string `json:"selectedOptions,omitempty"`
	AddedAt         time.Time         `json:"addedAt"`
}

func toPersisted(s State) persistedCart {
	items := make([]persistedCartItem, 0, len(s.Lines))
	for _, l := range s.Lines {
		items = append(items, persistedCartItem{
			ProductID:       l.ProductID,
			ProductName:     l.ProductName,
			UnitPrice:       l.UnitPrice,
			Quantity:        l.Quantity,
			SelectedOptions: l.SelectedOptions,
			AddedAt:         l.AddedAt,
		})
	}
	return persistedCart{Items: items, Total: s.Total, ItemCount: s.ItemCount}
}

// fromPersisted rebuilds the state, dropping unusable items and
// recomputing the derived fields from what survives.
func fromPersisted(p persistedCart) State {
	lines := make([]Line, 0, len(p.Items))
	for _, item := range p.Items {
		if item.ProductID == "" || item.Quantity <= 0 {
			continue
		}
		lines = append(lines, Line{
			ProductID:       item.ProductID,
			ProductName:     item.ProductName,
			UnitPrice:       item.UnitPrice,
			Quantity:        item.Quantity,
			SelectedOptions: item.SelectedOptions,
			AddedAt:         item.AddedAt,
		})
	}
	return recompute(lines)
}
