package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferreye/storecore/coreerrors"
	"github.com/ferreye/storecore/metrics"
	"github.com/ferreye/storecore/persist"
)

var (
	boot = Product{
		ID:    "prod-boot",
		Name:  "Trail Boot",
		Price: decimal.RequireFromString("89.90"),
		Stock: 10,
		Options: map[string][]string{
			"Tamanho": {"16", "17", "18"},
		},
	}
	mug = Product{
		ID:    "prod-mug",
		Name:  "Camp Mug",
		Price: decimal.RequireFromString("12.50"),
		Stock: 25,
	}
)

func newTestStore(t *testing.T) (*Store, *persist.MemoryBackend) {
	t.Helper()
	backend := persist.NewMemoryBackend()
	return NewStore(Config{}, Deps{
		Persist: persist.NewAdapter(backend, nil),
		Metrics: metrics.New(true),
	}), backend
}

func TestAddSameFingerprintSumsQuantity(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddItem(ctx, boot, 1, map[string]string{"Tamanho": "17"}))
	require.NoError(t, s.AddItem(ctx, boot, 2, map[string]string{"Tamanho": "17"}))

	got := s.Snapshot()
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 3, got.Lines[0].Quantity)
	assert.Equal(t, 3, got.ItemCount)
	assert.True(t, got.Total.Equal(decimal.RequireFromString("269.70")),
		"total %s", got.Total)
}

func TestAddDistinctOptionsKeepsSeparateLines(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddItem(ctx, boot, 1, map[string]string{"Tamanho": "16"}))
	require.NoError(t, s.AddItem(ctx, boot, 1, map[string]string{"Tamanho": "17"}))

	got := s.Snapshot()
	assert.Len(t, got.Lines, 2)
	assert.Equal(t, 2, got.ItemCount)
}

func TestNilAndEmptyOptionsShareFingerprint(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddItem(ctx, mug, 1, nil))
	require.NoError(t, s.AddItem(ctx, mug, 1, map[string]string{}))

	got := s.Snapshot()
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 2, got.Lines[0].Quantity)
}

func TestDerivedFieldsTrackEveryMutation(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddItem(ctx, boot, 2, map[string]string{"Tamanho": "18"}))
	require.NoError(t, s.AddItem(ctx, mug, 3, nil))

	got := s.Snapshot()
	assert.Equal(t, 5, got.ItemCount)
	assert.True(t, got.Total.Equal(decimal.RequireFromString("217.30")),
		"total %s", got.Total)

	s.UpdateQuantity(ctx, mug.ID, nil, 1)
	got = s.Snapshot()
	assert.Equal(t, 3, got.ItemCount)
	assert.True(t, got.Total.Equal(decimal.RequireFromString("192.30")),
		"total %s", got.Total)

	s.RemoveItem(ctx, boot.ID, map[string]string{"Tamanho": "18"})
	got = s.Snapshot()
	assert.Equal(t, 1, got.ItemCount)
	assert.True(t, got.Total.Equal(decimal.RequireFromString("12.50")),
		"total %s", got.Total)
}

func TestRemoveAbsentFingerprintIsNoOp(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddItem(ctx, mug, 1, nil))
	before := s.Snapshot()

	s.RemoveItem(ctx, "prod-missing", nil)
	s.RemoveItem(ctx, mug.ID, map[string]string{"Cor": "azul"})

	assert.Equal(t, before, s.Snapshot())
}

func TestUpdateQuantityZeroRemovesLine(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddItem(ctx, mug, 4, nil))
	s.UpdateQuantity(ctx, mug.ID, nil, 0)

	got := s.Snapshot()
	assert.True(t, got.IsEmpty())
	assert.False(t, s.Contains(mug.ID, nil))
}

func TestUpdateQuantityReplacesNotAdds(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddItem(ctx, mug, 4, nil))
	s.UpdateQuantity(ctx, mug.ID, nil, 2)

	assert.Equal(t, 2, s.Quantity(mug.ID, nil))
}

func TestAddItemValidationLeavesCartUnchanged(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.AddItem(ctx, mug, 1, nil))
	before := s.Snapshot()

	cases := []struct {
		name string
		run  func() error
	}{
		{"zero quantity", func() error { return s.AddItem(ctx, mug, 0, nil) }},
		{"negative quantity", func() error { return s.AddItem(ctx, mug, -2, nil) }},
		{"over stock", func() error { return s.AddItem(ctx, mug, 26, nil) }},
		{"missing product id", func() error { return s.AddItem(ctx, Product{}, 1, nil) }},
		{"unknown option", func() error {
			return s.AddItem(ctx, boot, 1, map[string]string{"Cor": "azul"})
		}},
		{"disallowed option value", func() error {
			return s.AddItem(ctx, boot, 1, map[string]string{"Tamanho": "44"})
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run()
			require.Error(t, err)
			assert.True(t, errors.Is(err, coreerrors.ErrValidation), "got %v", err)
			assert.Equal(t, before, s.Snapshot())
		})
	}

	if got := s.metrics.Value(metrics.IDCartRejected); got != uint64(len(cases)) {
		t.Fatalf("rejected counter = %d, want %d", got, len(cases))
	}
}

func TestMergedQuantityMayExceedStock(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	// Each add is capped against stock on its own; the merged line keeps
	// the sum of accepted adds.
	require.NoError(t, s.AddItem(ctx, boot, 10, map[string]string{"Tamanho": "17"}))
	require.NoError(t, s.AddItem(ctx, boot, 10, map[string]string{"Tamanho": "17"}))

	assert.Equal(t, 20, s.Quantity(boot.ID, map[string]string{"Tamanho": "17"}))
}

func TestAddMultipleSkipsInvalidItems(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	added := s.AddMultiple(ctx, []BatchItem{
		{Product: mug, Quantity: 2},
		{Product: boot, Quantity: 0, SelectedOptions: map[string]string{"Tamanho": "16"}},
		{Product: boot, Quantity: 1, SelectedOptions: map[string]string{"Tamanho": "16"}},
		{Product: boot, Quantity: 1, SelectedOptions: map[string]string{"Cor": "azul"}},
	})

	assert.Equal(t, 2, added)
	got := s.Snapshot()
	assert.Len(t, got.Lines, 2)
	assert.Equal(t, 3, got.ItemCount)
}

func TestClearEmptiesCartAndPersists(t *testing.T) {
	s, backend := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddItem(ctx, mug, 2, nil))
	s.Clear(ctx)

	assert.True(t, s.Snapshot().IsEmpty())

	restored := NewStore(Config{}, Deps{Persist: persist.NewAdapter(backend, nil)})
	restored.Initialize(ctx)
	assert.True(t, restored.Snapshot().IsEmpty())
}

func TestInitializeRestoresPersistedCart(t *testing.T) {
	s, backend := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddItem(ctx, boot, 2, map[string]string{"Tamanho": "17"}))
	require.NoError(t, s.AddItem(ctx, mug, 1, nil))
	want := s.Snapshot()

	restored := NewStore(Config{}, Deps{Persist: persist.NewAdapter(backend, nil)})
	restored.Initialize(ctx)

	got := restored.Snapshot()
	require.Len(t, got.Lines, 2)
	assert.Equal(t, want.ItemCount, got.ItemCount)
	assert.True(t, want.Total.Equal(got.Total), "total %s != %s", got.Total, want.Total)

	// Merging keeps working against restored lines.
	require.NoError(t, restored.AddItem(ctx, boot, 1, map[string]string{"Tamanho": "17"}))
	assert.Equal(t, 3, restored.Quantity(boot.ID, map[string]string{"Tamanho": "17"}))
}

func TestInitializeDiscardsCorruptBlob(t *testing.T) {
	backend := persist.NewMemoryBackend()
	ctx := context.Background()
	require.NoError(t, backend.Put(ctx, "cart", []byte("{definitely not json")))

	s := NewStore(Config{}, Deps{Persist: persist.NewAdapter(backend, nil)})
	s.Initialize(ctx)

	assert.True(t, s.Snapshot().IsEmpty())
	_, err := backend.Get(ctx, "cart")
	assert.ErrorIs(t, err, persist.ErrNotFound)
}

func TestPersistFailureKeepsInMemoryState(t *testing.T) {
	m := metrics.New(true)
	s := NewStore(Config{}, Deps{
		Persist: persist.NewAdapter(failingBackend{}, nil),
		Metrics: m,
	})
	ctx := context.Background()

	require.NoError(t, s.AddItem(ctx, mug, 2, nil))

	assert.Equal(t, 2, s.Quantity(mug.ID, nil))
	assert.Equal(t, uint64(1), m.Value(metrics.IDPersistWriteError))
}

func TestSubscriberSeesCommittedStates(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var seen []State
	unsub := s.Subscribe(func(st State) { seen = append(seen, st) })
	defer unsub()

	require.NoError(t, s.AddItem(ctx, mug, 1, nil))
	require.NoError(t, s.AddItem(ctx, mug, 2, nil))
	s.Clear(ctx)

	require.Len(t, seen, 3)
	assert.Equal(t, 1, seen[0].ItemCount)
	assert.Equal(t, 3, seen[1].ItemCount)
	assert.True(t, seen[2].IsEmpty())
}

func TestAddedAtUsesInjectedClock(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(Config{}, Deps{Now: func() time.Time { return fixed }})

	require.NoError(t, s.AddItem(context.Background(), mug, 1, nil))
	assert.Equal(t, fixed, s.Snapshot().Lines[0].AddedAt)
}

type failingBackend struct{}

func (failingBackend) Put(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func (failingBackend) Get(context.Context, string) ([]byte, error) {
	return nil, persist.ErrNotFound
}

func (failingBackend) Delete(context.Context, string) error {
	return errors.New("disk full")
}
