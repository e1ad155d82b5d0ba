package checkout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront-core/internal/domain/cart"
	"github.com/example/storefront-core/internal/domain/inventory"
	"github.com/example/storefront-core/internal/domain/order"
	"github.com/example/storefront-core/internal/domain/user"
	"github.com/example/storefront-core/internal/infrastructure/store/mocks"
)

// ============================================
// ComputeTotals Tests
// ============================================

func TestComputeTotals(t *testing.T) {
	items := []order.LineItem{
		{ProductID: "p1", Quantity: 2, Price: 2500},
		{ProductID: "p2", Quantity: 1, Price: 5000},
	}

	totals := ComputeTotals(items, 10, 100)

	assert.Equal(t, int64(10000), totals.Subtotal)
	assert.Equal(t, int64(1000), totals.Discount)
	assert.Equal(t, int64(100), totals.ShippingFee)
	assert.Equal(t, int64(9100), totals.Total)
}

func TestComputeTotals_NoDiscount(t *testing.T) {
	items := []order.LineItem{{ProductID: "p1", Quantity: 3, Price: 333}}

	totals := ComputeTotals(items, 0, 100)

	assert.Equal(t, int64(999), totals.Subtotal)
	assert.Equal(t, int64(0), totals.Discount)
	assert.Equal(t, int64(1099), totals.Total)
}

func TestComputeTotals_RoundsDiscountHalfUp(t *testing.T) {
	// 1005 * 10% = 100.5 cents, rounds up to 101.
	items := []order.LineItem{{ProductID: "p1", Quantity: 1, Price: 1005}}

	totals := ComputeTotals(items, 10, 0)

	assert.Equal(t, int64(101), totals.Discount)
	assert.Equal(t, int64(904), totals.Total)

	// 1004 * 10% = 100.4 cents, rounds down to 100.
	items[0].Price = 1004
	totals = ComputeTotals(items, 10, 0)
	assert.Equal(t, int64(100), totals.Discount)
}

// ============================================
// PlaceOrder Tests
// ============================================

func newTestOrchestrator(t *testing.T) (*Orchestrator, *mocks.MockStore) {
	t.Helper()
	store := mocks.NewMockStore()
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, &user.User{
		ID:              "user-1",
		Email:           "shopper@example.com",
		MembershipLevel: user.MembershipGold,
		Role:            "customer",
	}))
	require.NoError(t, store.PutProduct(ctx, &inventory.Product{
		ID:    "p1",
		Name:  "Jacket",
		Price: 5000,
		Stock: map[string]int{"M": 2},
	}))

	ledger := inventory.NewLedger(store)
	users := user.NewService(store)
	return NewOrchestrator(store, store, ledger, users, nil, nil, 100), store
}

func stageLine(t *testing.T, store *mocks.MockStore, qty int) string {
	t.Helper()
	svc := cart.NewService(store, inventory.NewLedger(store))
	line, err := svc.AddItem(context.Background(), "user-1", "p1", "M", qty)
	require.NoError(t, err)
	return line.ID
}

func TestOrchestrator_PlaceOrder_Success(t *testing.T) {
	oc, store := newTestOrchestrator(t)
	ctx := context.Background()
	lineID := stageLine(t, store, 2)

	result, err := oc.PlaceOrder(ctx, "user-1", []string{lineID}, "12 Main St", "555-0100")

	require.NoError(t, err)
	o := result.Order
	assert.Equal(t, order.StatusAwaitingPayment, o.Status)
	assert.Equal(t, "12 Main St", o.Address)
	require.Len(t, o.Items, 1)

	// Name and price snapshotted from the catalog at order time.
	assert.Equal(t, "Jacket", o.Items[0].Name)
	assert.Equal(t, int64(5000), o.Items[0].Price)

	// Gold membership: 5% of 10000 = 500, plus 100 shipping.
	assert.Equal(t, int64(10000), o.Subtotal)
	assert.Equal(t, int64(500), o.Discount)
	assert.Equal(t, int64(9600), o.Total)

	// Purchased lines leave the cart.
	lines, err := store.ListLines(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, lines)

	// Stock is never debited at order time.
	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Stock["M"])
}

func TestOrchestrator_PlaceOrder_StockShortfallBlocksWholeOrder(t *testing.T) {
	oc, store := newTestOrchestrator(t)
	ctx := context.Background()
	lineID := stageLine(t, store, 2)

	// Stock drops after the line was staged.
	require.NoError(t, store.AdjustStock(ctx, "p1", "M", -1))

	_, err := oc.PlaceOrder(ctx, "user-1", []string{lineID}, "12 Main St", "555-0100")
	assert.ErrorIs(t, err, cart.ErrExceedsStock)

	// Nothing was created, the cart line survives.
	orders, listErr := store.ListByUser(ctx, "user-1")
	require.NoError(t, listErr)
	assert.Empty(t, orders)

	lines, listErr := store.ListLines(ctx, "user-1")
	require.NoError(t, listErr)
	assert.Len(t, lines, 1)
}

func TestOrchestrator_PlaceOrder_DuplicateLineIDsCountOnce(t *testing.T) {
	oc, store := newTestOrchestrator(t)
	ctx := context.Background()

	// Line quantity equals the full stock: counting it twice would demand
	// 4 of 2 while still passing each per-line check.
	lineID := stageLine(t, store, 2)

	result, err := oc.PlaceOrder(ctx, "user-1", []string{lineID, lineID}, "12 Main St", "555-0100")

	require.NoError(t, err)
	o := result.Order
	require.Len(t, o.Items, 1)
	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.Equal(t, int64(10000), o.Subtotal)
}

func TestOrchestrator_PlaceOrder_NoLines(t *testing.T) {
	oc, _ := newTestOrchestrator(t)

	_, err := oc.PlaceOrder(context.Background(), "user-1", nil, "addr", "phone")
	assert.ErrorIs(t, err, ErrNoLinesSelected)
}

func TestOrchestrator_PlaceOrder_ForeignLine(t *testing.T) {
	oc, store := newTestOrchestrator(t)
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, &user.User{
		ID:              "user-2",
		Email:           "other@example.com",
		MembershipLevel: user.MembershipStandard,
	}))
	lineID := stageLine(t, store, 1)

	_, err := oc.PlaceOrder(ctx, "user-2", []string{lineID}, "addr", "phone")
	assert.ErrorIs(t, err, ErrLineNotOwned)
}
