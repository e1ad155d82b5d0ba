package order

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Status string

const (
	StatusAwaitingPayment Status = "awaiting_payment"
	StatusActive          Status = "active"
	StatusCompleted       Status = "completed"
	StatusCancelled       Status = "cancelled"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrEmptyOrder        = errors.New("order must have at least one item")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrOrderAlreadyPaid  = errors.New("order is already paid")
	ErrOrderCancelled    = errors.New("order is already cancelled")
	ErrOrderCompleted    = errors.New("order is already completed")
	ErrOrderNotPaid      = errors.New("order must be paid before completion")
	ErrStatusConflict    = errors.New("order status changed concurrently")
	ErrTransIDSet        = errors.New("payment transaction id already set")
)

// validTransitions defines allowed state transitions. Completed and
// Cancelled are terminal; nothing ever returns to AwaitingPayment.
var validTransitions = map[Status][]Status{
	StatusAwaitingPayment: {StatusActive, StatusCancelled},
	StatusActive:          {StatusCompleted},
	StatusCompleted:       {},
	StatusCancelled:       {},
}

// LineItem captures product name and price at order-creation time, so the
// order is immune to later product edits.
type LineItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"` // unit price in cents
}

type Order struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Items       []LineItem `json:"items"`
	Subtotal    int64      `json:"subtotal"`
	Discount    int64      `json:"discount"`
	ShippingFee int64      `json:"shipping_fee"`
	Total       int64      `json:"total"`
	Status      Status     `json:"status"`
	Address     string     `json:"address"`
	Phone       string     `json:"phone"`
	AppTransID  string     `json:"app_trans_id,omitempty"`
	OrderTime   time.Time  `json:"order_time"`
	UpdateTime  time.Time  `json:"update_time"`
}

// CanTransitionTo checks if the order can transition to the target status.
func (o *Order) CanTransitionTo(target Status) bool {
	for _, s := range validTransitions[o.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// TransitionError returns an appropriate error for an invalid transition.
func (o *Order) TransitionError(target Status) error {
	switch {
	case o.Status == StatusCancelled:
		return ErrOrderCancelled
	case o.Status == StatusCompleted:
		return ErrOrderCompleted
	case o.Status == StatusActive && target == StatusActive:
		return ErrOrderAlreadyPaid
	case o.Status == StatusAwaitingPayment && target == StatusCompleted:
		return ErrOrderNotPaid
	default:
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, o.Status, target)
	}
}

// Store is the persistence contract for orders. Transition and
// CancelAndRestock must be conditional on the current status: a write that
// loses a race reports ErrStatusConflict, it is never applied blindly.
type Store interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	GetByAppTransID(ctx context.Context, appTransID string) (*Order, error)
	// SetAppTransID records the payment correlation token. Set once; a
	// second write fails with ErrTransIDSet.
	SetAppTransID(ctx context.Context, orderID, appTransID string) error
	Transition(ctx context.Context, orderID string, from, to Status, at time.Time) error
	// CancelAndRestock commits the AwaitingPayment -> Cancelled transition
	// together with the per-size stock credits in one atomic batch.
	CancelAndRestock(ctx context.Context, orderID string, restock []LineItem, at time.Time) error
	ListByUser(ctx context.Context, userID string) ([]*Order, error)
	ListAwaitingBefore(ctx context.Context, cutoff time.Time) ([]*Order, error)
}
