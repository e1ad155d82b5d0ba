package reaper

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/storefront-core/internal/domain/inventory"
	"github.com/example/storefront-core/internal/domain/order"
)

const (
	// DefaultDeadline is how long an order may sit unpaid before the
	// sweeper cancels it.
	DefaultDeadline = 72 * time.Hour

	defaultConcurrency = 8

	cancelReason = "abandoned: unpaid past deadline"
)

// Summary reports one sweep run.
type Summary struct {
	Scanned   int
	Cancelled int
	Skipped   int
	Failed    int
}

// Sweeper cancels orders stuck in AwaitingPayment past the deadline and
// credits their line items back to stock. Each cancellation commits the
// status transition and the stock credits in one atomic batch, so a failed
// order stays AwaitingPayment and is retried on the next run.
type Sweeper struct {
	orders      order.Store
	ledger      *inventory.Ledger
	pub         order.Publisher
	deadline    time.Duration
	concurrency int
}

func NewSweeper(orders order.Store, ledger *inventory.Ledger, pub order.Publisher) *Sweeper {
	return &Sweeper{
		orders:      orders,
		ledger:      ledger,
		pub:         pub,
		deadline:    DefaultDeadline,
		concurrency: defaultConcurrency,
	}
}

// WithDeadline overrides the abandonment deadline.
func (s *Sweeper) WithDeadline(d time.Duration) *Sweeper {
	s.deadline = d
	return s
}

// Run executes one sweep against the clock value now. Orders are processed
// concurrently; per-order failures are counted and logged, never propagated,
// so one bad order cannot stop the rest of the batch.
func (s *Sweeper) Run(ctx context.Context, now time.Time) (Summary, error) {
	cutoff := now.Add(-s.deadline)
	matched, err := s.orders.ListAwaitingBefore(ctx, cutoff)
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	summary.Scanned = len(matched)
	if len(matched) == 0 {
		log.Printf("[Reaper] No orders past deadline (cutoff %s)", cutoff.Format(time.RFC3339))
		return summary, nil
	}

	results := make(chan outcome, len(matched))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, o := range matched {
		o := o
		g.Go(func() error {
			results <- s.reap(gctx, o, now)
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	for r := range results {
		switch r {
		case reaped:
			summary.Cancelled++
		case skipped:
			summary.Skipped++
		case failed:
			summary.Failed++
		}
	}

	log.Printf("[Reaper] Sweep done: scanned=%d cancelled=%d skipped=%d failed=%d",
		summary.Scanned, summary.Cancelled, summary.Skipped, summary.Failed)
	return summary, nil
}

type outcome int

const (
	reaped outcome = iota
	skipped
	failed
)

func (s *Sweeper) reap(ctx context.Context, o *order.Order, now time.Time) outcome {
	// A size record can vanish between order creation and the sweep if the
	// catalog was edited. Credit only the lines that still exist; the rest
	// are logged and forfeited rather than blocking the cancellation forever.
	restock := make([]order.LineItem, 0, len(o.Items))
	for _, item := range o.Items {
		if _, err := s.ledger.GetAvailable(ctx, item.ProductID, item.Size); err != nil {
			if errors.Is(err, inventory.ErrNotFound) {
				log.Printf("[Reaper] Order %s: size record %s/%s gone, skipping credit of %d",
					o.ID, item.ProductID, item.Size, item.Quantity)
				continue
			}
			log.Printf("[Reaper] Order %s: failed to check %s/%s: %v", o.ID, item.ProductID, item.Size, err)
			return failed
		}
		restock = append(restock, item)
	}

	err := s.orders.CancelAndRestock(ctx, o.ID, restock, now)
	switch {
	case err == nil:
		log.Printf("[Reaper] Cancelled order %s (unpaid since %s), restocked %d lines",
			o.ID, o.OrderTime.Format(time.RFC3339), len(restock))
		s.publishCancelled(ctx, o, now)
		return reaped
	case errors.Is(err, order.ErrStatusConflict):
		// Payment confirmation won the race after we listed the order.
		log.Printf("[Reaper] Order %s left AwaitingPayment concurrently, skipping", o.ID)
		return skipped
	case errors.Is(err, order.ErrOrderNotFound):
		log.Printf("[Reaper] Order %s disappeared mid-sweep, skipping", o.ID)
		return skipped
	default:
		log.Printf("[Reaper] Failed to cancel order %s: %v", o.ID, err)
		return failed
	}
}

func (s *Sweeper) publishCancelled(ctx context.Context, o *order.Order, now time.Time) {
	if s.pub == nil {
		return
	}
	env, err := order.NewEnvelope(order.EventOrderCancelled, order.OrderCancelled{
		OrderID:     o.ID,
		UserID:      o.UserID,
		Reason:      cancelReason,
		CancelledAt: now,
	})
	if err != nil {
		log.Printf("[Reaper] Failed to build OrderCancelled event for order %s: %v", o.ID, err)
		return
	}
	if err := s.pub.Publish(ctx, o.ID, env); err != nil {
		log.Printf("[Reaper] Failed to publish OrderCancelled event for order %s: %v", o.ID, err)
	}
}
