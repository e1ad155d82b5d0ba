package reaper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront-core/internal/domain/inventory"
	"github.com/example/storefront-core/internal/domain/order"
	"github.com/example/storefront-core/internal/infrastructure/store/mocks"
)

func newTestSweeper(t *testing.T) (*Sweeper, *mocks.MockStore) {
	t.Helper()
	store := mocks.NewMockStore()
	require.NoError(t, store.PutProduct(context.Background(), &inventory.Product{
		ID:    "p1",
		Name:  "Tee",
		Price: 2000,
		Stock: map[string]int{"M": 1},
	}))
	return NewSweeper(store, inventory.NewLedger(store), nil), store
}

func seedAwaiting(t *testing.T, store *mocks.MockStore, id string, age time.Duration, now time.Time) {
	t.Helper()
	require.NoError(t, store.Create(context.Background(), &order.Order{
		ID:     id,
		UserID: "user-1",
		Items: []order.LineItem{
			{ProductID: "p1", Name: "Tee", Size: "M", Quantity: 2, Price: 2000},
		},
		Total:     4100,
		Status:    order.StatusAwaitingPayment,
		OrderTime: now.Add(-age),
	}))
}

// ============================================
// Sweep Tests
// ============================================

func TestSweeper_Run_CancelsExpiredAndRestocks(t *testing.T) {
	sweeper, store := newTestSweeper(t)
	ctx := context.Background()
	now := time.Now()

	seedAwaiting(t, store, "old-1", 80*time.Hour, now)
	seedAwaiting(t, store, "old-2", 73*time.Hour, now)
	seedAwaiting(t, store, "fresh", 2*time.Hour, now)

	summary, err := sweeper.Run(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, 2, summary.Scanned)
	assert.Equal(t, 2, summary.Cancelled)
	assert.Equal(t, 0, summary.Failed)

	for _, id := range []string{"old-1", "old-2"} {
		o, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, order.StatusCancelled, o.Status)
	}

	fresh, err := store.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, order.StatusAwaitingPayment, fresh.Status)

	// 1 starting + 2 per cancelled order.
	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock["M"])
}

func TestSweeper_Run_ExactDeadlineBoundary(t *testing.T) {
	sweeper, store := newTestSweeper(t)
	now := time.Now()

	// Exactly 72h old is eligible; a second younger is not.
	seedAwaiting(t, store, "boundary", 72*time.Hour, now)
	seedAwaiting(t, store, "just-under", 72*time.Hour-time.Second, now)

	summary, err := sweeper.Run(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Scanned)
	assert.Equal(t, 1, summary.Cancelled)
}

func TestSweeper_Run_EmptyBatch(t *testing.T) {
	sweeper, _ := newTestSweeper(t)

	summary, err := sweeper.Run(context.Background(), time.Now())

	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary)
}

// ============================================
// Race and Failure Tests
// ============================================

func TestSweeper_Run_PaymentWinsRace(t *testing.T) {
	sweeper, store := newTestSweeper(t)
	ctx := context.Background()
	now := time.Now()

	seedAwaiting(t, store, "old-1", 80*time.Hour, now)

	// Payment callback lands between listing and the conditional cancel.
	store.CancelErrFor["old-1"] = order.ErrStatusConflict
	require.NoError(t, store.Transition(ctx, "old-1", order.StatusAwaitingPayment, order.StatusActive, now))

	summary, err := sweeper.Run(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Scanned)
	assert.Equal(t, 0, summary.Cancelled)
	assert.Equal(t, 1, summary.Skipped)

	// Exactly one of the two transitions committed.
	o, err := store.Get(ctx, "old-1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusActive, o.Status)
}

func TestSweeper_Run_PartialFailureLeavesOrderForRetry(t *testing.T) {
	sweeper, store := newTestSweeper(t)
	ctx := context.Background()
	now := time.Now()

	seedAwaiting(t, store, "old-1", 80*time.Hour, now)
	store.CancelErrFor["old-1"] = errors.New("provisioned throughput exceeded")

	summary, err := sweeper.Run(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)

	// Order still matches the sweep condition, next run retries it.
	o, err := store.Get(ctx, "old-1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusAwaitingPayment, o.Status)

	delete(store.CancelErrFor, "old-1")
	summary, err = sweeper.Run(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Cancelled)
}

func TestSweeper_Run_VanishedSizeSkipsCreditOnly(t *testing.T) {
	sweeper, store := newTestSweeper(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Create(ctx, &order.Order{
		ID:     "old-1",
		UserID: "user-1",
		Items: []order.LineItem{
			{ProductID: "p1", Name: "Tee", Size: "M", Quantity: 1, Price: 2000},
			{ProductID: "gone", Name: "Retired", Size: "S", Quantity: 1, Price: 900},
		},
		Total:     3000,
		Status:    order.StatusAwaitingPayment,
		OrderTime: now.Add(-80 * time.Hour),
	}))

	summary, err := sweeper.Run(ctx, now)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Cancelled)

	// The surviving line is credited, the vanished one forfeited.
	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Stock["M"])

	o, err := store.Get(ctx, "old-1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, o.Status)
}

func TestSweeper_WithDeadline(t *testing.T) {
	sweeper, store := newTestSweeper(t)
	sweeper.WithDeadline(time.Hour)
	now := time.Now()

	seedAwaiting(t, store, "old-1", 2*time.Hour, now)

	summary, err := sweeper.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Cancelled)
}
