package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront-core/internal/domain/inventory"
	"github.com/example/storefront-core/internal/infrastructure/store/mocks"
)

func newLedger(t *testing.T) (*inventory.Ledger, *mocks.MockStore) {
	t.Helper()
	store := mocks.NewMockStore()
	require.NoError(t, store.PutProduct(context.Background(), &inventory.Product{
		ID:    "p1",
		Name:  "Hoodie",
		Price: 4500,
		Stock: map[string]int{"S": 0, "M": 3},
	}))
	return inventory.NewLedger(store), store
}

// ============================================
// GetAvailable Tests
// ============================================

func TestLedger_GetAvailable(t *testing.T) {
	ledger, _ := newLedger(t)
	ctx := context.Background()

	n, err := ledger.GetAvailable(ctx, "p1", "M")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = ledger.GetAvailable(ctx, "p1", "S")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestLedger_GetAvailable_MissingSize(t *testing.T) {
	ledger, _ := newLedger(t)

	_, err := ledger.GetAvailable(context.Background(), "p1", "XXL")
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestLedger_GetAvailable_MissingProduct(t *testing.T) {
	ledger, _ := newLedger(t)

	_, err := ledger.GetAvailable(context.Background(), "nope", "M")
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}

// ============================================
// Credit / Debit Tests
// ============================================

func TestLedger_Credit(t *testing.T) {
	ledger, store := newLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.Credit(ctx, "p1", "M", 2))

	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock["M"])
}

func TestLedger_Credit_InvalidAmount(t *testing.T) {
	ledger, _ := newLedger(t)

	assert.ErrorIs(t, ledger.Credit(context.Background(), "p1", "M", 0), inventory.ErrInvalidQuantity)
	assert.ErrorIs(t, ledger.Credit(context.Background(), "p1", "M", -1), inventory.ErrInvalidQuantity)
}

func TestLedger_Debit(t *testing.T) {
	ledger, store := newLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.Debit(ctx, "p1", "M", 3))

	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock["M"])
}

func TestLedger_Debit_BelowZero(t *testing.T) {
	ledger, store := newLedger(t)
	ctx := context.Background()

	err := ledger.Debit(ctx, "p1", "M", 4)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)

	// A rejected debit leaves the count untouched.
	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock["M"])
}

func TestLedger_Debit_ZeroStock(t *testing.T) {
	ledger, _ := newLedger(t)

	err := ledger.Debit(context.Background(), "p1", "S", 1)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
}

// ============================================
// Put Tests
// ============================================

func TestLedger_Put_RejectsNegativeStock(t *testing.T) {
	ledger, _ := newLedger(t)

	err := ledger.Put(context.Background(), &inventory.Product{
		ID:    "p2",
		Name:  "Cap",
		Price: 1200,
		Stock: map[string]int{"one-size": -1},
	})
	assert.ErrorIs(t, err, inventory.ErrInvalidQuantity)
}
