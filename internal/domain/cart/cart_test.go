package cart_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront-core/internal/domain/cart"
	"github.com/example/storefront-core/internal/domain/inventory"
	"github.com/example/storefront-core/internal/infrastructure/store/mocks"
)

func newCartService(t *testing.T) (*cart.Service, *mocks.MockStore) {
	t.Helper()
	store := mocks.NewMockStore()
	require.NoError(t, store.PutProduct(context.Background(), &inventory.Product{
		ID:    "p1",
		Name:  "Sneaker",
		Price: 8900,
		Stock: map[string]int{"41": 5, "42": 0},
	}))
	return cart.NewService(store, inventory.NewLedger(store)), store
}

// ============================================
// AddItem Tests
// ============================================

func TestService_AddItem_Success(t *testing.T) {
	svc, _ := newCartService(t)

	line, err := svc.AddItem(context.Background(), "user-1", "p1", "41", 2)

	require.NoError(t, err)
	assert.NotEmpty(t, line.ID)
	assert.Equal(t, 2, line.Quantity)
	assert.Equal(t, "41", line.Size)
}

func TestService_AddItem_MergesExistingLine(t *testing.T) {
	svc, _ := newCartService(t)
	ctx := context.Background()

	first, err := svc.AddItem(ctx, "user-1", "p1", "41", 2)
	require.NoError(t, err)

	second, err := svc.AddItem(ctx, "user-1", "p1", "41", 1)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 3, second.Quantity)

	lines, err := svc.ListLines(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestService_AddItem_SizeUnavailable(t *testing.T) {
	svc, _ := newCartService(t)

	_, err := svc.AddItem(context.Background(), "user-1", "p1", "45", 1)
	assert.ErrorIs(t, err, cart.ErrSizeUnavailable)
}

func TestService_AddItem_OutOfStock(t *testing.T) {
	svc, _ := newCartService(t)

	_, err := svc.AddItem(context.Background(), "user-1", "p1", "42", 1)
	assert.ErrorIs(t, err, cart.ErrOutOfStock)
}

func TestService_AddItem_ExceedsStock(t *testing.T) {
	svc, _ := newCartService(t)

	_, err := svc.AddItem(context.Background(), "user-1", "p1", "41", 6)
	assert.ErrorIs(t, err, cart.ErrExceedsStock)
}

func TestService_AddItem_MergeExceedsStock(t *testing.T) {
	svc, _ := newCartService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "user-1", "p1", "41", 4)
	require.NoError(t, err)

	// 4 already staged + 2 more would pass the ceiling of 5.
	_, err = svc.AddItem(ctx, "user-1", "p1", "41", 2)
	assert.ErrorIs(t, err, cart.ErrExceedsStock)
}

func TestService_AddItem_InvalidQuantity(t *testing.T) {
	svc, _ := newCartService(t)

	_, err := svc.AddItem(context.Background(), "user-1", "p1", "41", 0)
	assert.ErrorIs(t, err, cart.ErrInvalidQuantity)
}

// ============================================
// SetQuantity Tests
// ============================================

func TestService_SetQuantity_Success(t *testing.T) {
	svc, _ := newCartService(t)
	ctx := context.Background()

	line, err := svc.AddItem(ctx, "user-1", "p1", "41", 1)
	require.NoError(t, err)

	updated, err := svc.SetQuantity(ctx, line.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Quantity)
}

func TestService_SetQuantity_ExceedsStock(t *testing.T) {
	svc, _ := newCartService(t)
	ctx := context.Background()

	line, err := svc.AddItem(ctx, "user-1", "p1", "41", 1)
	require.NoError(t, err)

	_, err = svc.SetQuantity(ctx, line.ID, 6)
	assert.ErrorIs(t, err, cart.ErrExceedsStock)
}

func TestService_SetQuantity_LineNotFound(t *testing.T) {
	svc, _ := newCartService(t)

	_, err := svc.SetQuantity(context.Background(), "nope", 1)
	assert.ErrorIs(t, err, cart.ErrLineNotFound)
}

// ============================================
// RemoveItem Tests
// ============================================

func TestService_RemoveItem_Idempotent(t *testing.T) {
	svc, _ := newCartService(t)
	ctx := context.Background()

	line, err := svc.AddItem(ctx, "user-1", "p1", "41", 1)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveItem(ctx, line.ID))
	// Removing an absent line is not an error.
	require.NoError(t, svc.RemoveItem(ctx, line.ID))

	lines, err := svc.ListLines(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, lines)
}
