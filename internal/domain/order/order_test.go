package order_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront-core/internal/domain/inventory"
	"github.com/example/storefront-core/internal/domain/order"
	"github.com/example/storefront-core/internal/infrastructure/store/mocks"
)

func newAwaitingOrder(t *testing.T, store *mocks.MockStore, id string) *order.Order {
	t.Helper()
	o := &order.Order{
		ID:     id,
		UserID: "user-1",
		Items: []order.LineItem{
			{ProductID: "p1", Name: "Tee", Size: "M", Quantity: 2, Price: 1500},
		},
		Subtotal:   3000,
		Total:      3100,
		Status:     order.StatusAwaitingPayment,
		OrderTime:  time.Now().Add(-time.Hour),
		UpdateTime: time.Now().Add(-time.Hour),
	}
	require.NoError(t, store.Create(context.Background(), o))
	return o
}

// ============================================
// State Machine Tests
// ============================================

func TestOrder_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from    order.Status
		to      order.Status
		allowed bool
	}{
		{order.StatusAwaitingPayment, order.StatusActive, true},
		{order.StatusAwaitingPayment, order.StatusCancelled, true},
		{order.StatusAwaitingPayment, order.StatusCompleted, false},
		{order.StatusActive, order.StatusCompleted, true},
		{order.StatusActive, order.StatusCancelled, false},
		{order.StatusActive, order.StatusAwaitingPayment, false},
		{order.StatusCompleted, order.StatusAwaitingPayment, false},
		{order.StatusCompleted, order.StatusCancelled, false},
		{order.StatusCompleted, order.StatusActive, false},
		{order.StatusCancelled, order.StatusAwaitingPayment, false},
		{order.StatusCancelled, order.StatusActive, false},
		{order.StatusCancelled, order.StatusCompleted, false},
	}

	for _, tc := range cases {
		o := &order.Order{Status: tc.from}
		assert.Equal(t, tc.allowed, o.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestOrder_TransitionError(t *testing.T) {
	cancelled := &order.Order{Status: order.StatusCancelled}
	assert.ErrorIs(t, cancelled.TransitionError(order.StatusActive), order.ErrOrderCancelled)

	completed := &order.Order{Status: order.StatusCompleted}
	assert.ErrorIs(t, completed.TransitionError(order.StatusActive), order.ErrOrderCompleted)

	active := &order.Order{Status: order.StatusActive}
	assert.ErrorIs(t, active.TransitionError(order.StatusActive), order.ErrOrderAlreadyPaid)

	awaiting := &order.Order{Status: order.StatusAwaitingPayment}
	assert.ErrorIs(t, awaiting.TransitionError(order.StatusCompleted), order.ErrOrderNotPaid)
}

// ============================================
// MarkPaid Tests
// ============================================

func TestService_MarkPaid_Success(t *testing.T) {
	store := mocks.NewMockStore()
	svc := order.NewService(store, nil)
	ctx := context.Background()

	newAwaitingOrder(t, store, "order-1")

	o, err := svc.MarkPaid(ctx, "order-1")

	require.NoError(t, err)
	assert.Equal(t, order.StatusActive, o.Status)
}

func TestService_MarkPaid_Duplicate(t *testing.T) {
	store := mocks.NewMockStore()
	svc := order.NewService(store, nil)
	ctx := context.Background()

	newAwaitingOrder(t, store, "order-1")

	first, err := svc.MarkPaid(ctx, "order-1")
	require.NoError(t, err)

	// Second delivery must not move update_time again.
	second, err := svc.MarkPaid(ctx, "order-1")
	assert.ErrorIs(t, err, order.ErrOrderAlreadyPaid)
	assert.Equal(t, first.UpdateTime, second.UpdateTime)
}

func TestService_MarkPaid_CancelledOrder(t *testing.T) {
	store := mocks.NewMockStore()
	svc := order.NewService(store, nil)
	ctx := context.Background()

	require.NoError(t, store.PutProduct(ctx, productWithStock("p1", map[string]int{"M": 0})))
	newAwaitingOrder(t, store, "order-1")
	require.NoError(t, svc.CancelUnpaid(ctx, "order-1", "test"))

	_, err := svc.MarkPaid(ctx, "order-1")
	assert.ErrorIs(t, err, order.ErrOrderCancelled)
}

func TestService_MarkPaid_NotFound(t *testing.T) {
	store := mocks.NewMockStore()
	svc := order.NewService(store, nil)

	_, err := svc.MarkPaid(context.Background(), "nope")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

// ============================================
// Complete Tests
// ============================================

func TestService_Complete_Success(t *testing.T) {
	store := mocks.NewMockStore()
	svc := order.NewService(store, nil)
	ctx := context.Background()

	newAwaitingOrder(t, store, "order-1")
	_, err := svc.MarkPaid(ctx, "order-1")
	require.NoError(t, err)

	require.NoError(t, svc.Complete(ctx, "order-1"))

	o, err := svc.Get(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusCompleted, o.Status)
}

func TestService_Complete_NotPaid(t *testing.T) {
	store := mocks.NewMockStore()
	svc := order.NewService(store, nil)
	ctx := context.Background()

	newAwaitingOrder(t, store, "order-1")

	err := svc.Complete(ctx, "order-1")
	assert.ErrorIs(t, err, order.ErrOrderNotPaid)
}

// ============================================
// CancelUnpaid Tests
// ============================================

func TestService_CancelUnpaid_RestocksItems(t *testing.T) {
	store := mocks.NewMockStore()
	svc := order.NewService(store, nil)
	ctx := context.Background()

	require.NoError(t, store.PutProduct(ctx, productWithStock("p1", map[string]int{"M": 3})))
	newAwaitingOrder(t, store, "order-1")

	require.NoError(t, svc.CancelUnpaid(ctx, "order-1", "abandoned"))

	o, err := svc.Get(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, o.Status)

	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock["M"])
}

func TestService_CancelUnpaid_AlreadyPaid(t *testing.T) {
	store := mocks.NewMockStore()
	svc := order.NewService(store, nil)
	ctx := context.Background()

	newAwaitingOrder(t, store, "order-1")
	_, err := svc.MarkPaid(ctx, "order-1")
	require.NoError(t, err)

	err = svc.CancelUnpaid(ctx, "order-1", "abandoned")
	assert.ErrorIs(t, err, order.ErrInvalidTransition)
}

func productWithStock(id string, stock map[string]int) *inventory.Product {
	return &inventory.Product{ID: id, Name: id, Price: 1000, Stock: stock}
}
