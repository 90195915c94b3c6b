package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ferreye/storecore/coreerrors"
	"github.com/ferreye/storecore/metrics"
	"github.com/ferreye/storecore/notify"
	"github.com/ferreye/storecore/persist"
	"github.com/ferreye/storecore/state"
)

// Config carries the cart store's tunables.
type Config struct {
	// PersistKey is the storage key for the cart blob.
	PersistKey string
}

// Deps carries the cart store's collaborators; all degrade to no-ops.
type Deps struct {
	Persist  *persist.Adapter
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Notifier *notify.Dispatcher
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// BatchItem is one entry of an AddMultiple call.
type BatchItem struct {
	Product         Product
	Quantity        int
	SelectedOptions map[string]string
}

// Store owns the cart state. Validation happens before any change is
// applied; every committed mutation republishes a recomputed State and
// writes the blob.
type Store struct {
	cfg       Config
	store     *state.Store[State]
	persister *persist.Adapter
	log       *zap.Logger
	metrics   *metrics.Metrics
	notifier  *notify.Dispatcher
	now       func() time.Time

	// mu serializes read-modify-write cycles across mutating commands.
	mu sync.Mutex
}

// NewStore builds an empty cart. Call Initialize to restore a persisted one.
func NewStore(cfg Config, deps Deps) *Store {
	if cfg.PersistKey == "" {
		cfg.PersistKey = "cart"
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		cfg:       cfg,
		store:     state.New(emptyState()),
		persister: deps.Persist,
		log:       log,
		metrics:   deps.Metrics,
		notifier:  deps.Notifier,
		now:       now,
	}
}

// Snapshot returns the current cart state.
func (s *Store) Snapshot() State {
	return s.store.Snapshot()
}

// Subscribe registers an observer of cart changes.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	return s.store.Subscribe(fn)
}

// Initialize restores the persisted cart. A missing or corrupt blob yields
// the empty cart; the corrupt case is logged and discarded, never an error.
func (s *Store) Initialize(ctx context.Context) {
	if s.persister == nil {
		return
	}
	blob, ok := persist.Load[persistedCart](ctx, s.persister, s.cfg.PersistKey)
	if !ok {
		return
	}
	restored := fromPersisted(blob)
	if restored.IsEmpty() {
		return
	}
	s.metrics.Inc(metrics.IDCartRestored)
	s.store.Replace(restored)
}

// AddItem validates and merges one item into the cart. An existing line
// with the same fingerprint absorbs the quantity; otherwise a new line is
// appended. A validation failure leaves the cart unchanged.
func (s *Store) AddItem(ctx context.Context, product Product, quantity int, selectedOptions map[string]string) error {
	if err := validateAdd(product, quantity, selectedOptions); err != nil {
		s.metrics.Inc(metrics.IDCartRejected)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prior := s.store.Snapshot()
	fp := fingerprint(product.ID, selectedOptions)

	lines := cloneLines(prior.Lines)
	merged := false
	for i := range lines {
		if fingerprint(lines[i].ProductID, lines[i].SelectedOptions) == fp {
			lines[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		lines = append(lines, Line{
			ProductID:       product.ID,
			ProductName:     product.Name,
			UnitPrice:       product.Price,
			Quantity:        quantity,
			SelectedOptions: cloneOptions(selectedOptions),
			AddedAt:         s.now(),
		})
	}

	s.commit(ctx, recompute(lines))
	return nil
}

// AddMultiple applies each item independently: invalid items are skipped
// and logged, valid ones merge as in AddItem. The batch never fails as a
// unit. It returns the number of items applied.
func (s *Store) AddMultiple(ctx context.Context, items []BatchItem) int {
	added := 0
	for _, item := range items {
		if err := s.AddItem(ctx, item.Product, item.Quantity, item.SelectedOptions); err != nil {
			s.log.Warn("cart: batch item skipped",
				zap.String("product_id", item.Product.ID), zap.Error(err))
			s.notifier.Emit(ctx, notify.NewEvent(notify.KindInfo, "cart_item_skipped", err.Error()))
			continue
		}
		added++
	}
	return added
}

// RemoveItem deletes the line matching the fingerprint. Removing an absent
// fingerprint is a no-op, not an error.
func (s *Store) RemoveItem(ctx context.Context, productID string, selectedOptions map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prior := s.store.Snapshot()
	fp := fingerprint(productID, selectedOptions)

	lines := make([]Line, 0, len(prior.Lines))
	removed := false
	for _, l := range prior.Lines {
		if !removed && fingerprint(l.ProductID, l.SelectedOptions) == fp {
			removed = true
			continue
		}
		lines = append(lines, l)
	}
	if !removed {
		return
	}
	s.commit(ctx, recompute(lines))
}

// UpdateQuantity replaces the matching line's quantity atomically. A
// newQuantity of zero or less is equivalent to RemoveItem.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, selectedOptions map[string]string, newQuantity int) {
	if newQuantity <= 0 {
		s.RemoveItem(ctx, productID, selectedOptions)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prior := s.store.Snapshot()
	fp := fingerprint(productID, selectedOptions)

	lines := cloneLines(prior.Lines)
	changed := false
	for i := range lines {
		if fingerprint(lines[i].ProductID, lines[i].SelectedOptions) == fp {
			lines[i].Quantity = newQuantity
			changed = true
			break
		}
	}
	if !changed {
		return
	}
	s.commit(ctx, recompute(lines))
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commit(ctx, emptyState())
}

// Contains reports whether a line with the given fingerprint exists.
func (s *Store) Contains(productID string, selectedOptions map[string]string) bool {
	return s.Quantity(productID, selectedOptions) > 0
}

// Quantity returns the matching line's quantity, or zero when absent.
func (s *Store) Quantity(productID string, selectedOptions map[string]string) int {
	fp := fingerprint(productID, selectedOptions)
	for _, l := range s.store.Snapshot().Lines {
		if fingerprint(l.ProductID, l.SelectedOptions) == fp {
			return l.Quantity
		}
	}
	return 0
}

// commit publishes next and writes the blob. Caller holds s.mu.
func (s *Store) commit(ctx context.Context, next State) {
	s.metrics.Inc(metrics.IDCartMutation)
	s.store.Replace(next)

	if s.persister == nil {
		return
	}
	if err := persist.Save(ctx, s.persister, s.cfg.PersistKey, toPersisted(next)); err != nil {
		// In-memory cart stays authoritative; the write failure is
		// reported, not rolled back.
		s.metrics.Inc(metrics.IDPersistWriteError)
		s.log.Warn("cart: persist failed", zap.Error(err))
		s.notifier.Emit(ctx, notify.NewEvent(notify.KindError, "cart_persist_failed", err.Error()))
	}
}

// validateAdd enforces the write-time rules, first violation only.
func validateAdd(product Product, quantity int, selectedOptions map[string]string) error {
	if product.ID == "" {
		return coreerrors.NewValidation("product", "required")
	}
	if quantity <= 0 {
		return coreerrors.NewValidation("quantity", "must be positive")
	}
	if product.Stock >= 0 && quantity > product.Stock {
		return coreerrors.NewValidation("quantity",
			fmt.Sprintf("exceeds available stock (%d)", product.Stock))
	}
	for name, value := range selectedOptions {
		allowed, declared := product.Options[name]
		if !declared {
			return coreerrors.NewValidation("options", fmt.Sprintf("unknown option %q", name))
		}
		if len(allowed) > 0 && !containsValue(allowed, value) {
			return coreerrors.NewValidation("options",
				fmt.Sprintf("value %q not allowed for option %q", value, name))
		}
	}
	return nil
}

func containsValue(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func cloneLines(lines []Line) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}

func cloneOptions(opts map[string]string) map[string]string {
	if opts == nil {
		return nil
	}
	out := make(map[string]string, len(opts))
	for k, v := range opts {
		out[k] = v
	}
	return out
}
