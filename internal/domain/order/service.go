package order

import (
	"context"
	"errors"
	"log"
	"time"
)

type Service struct {
	store Store
	pub   Publisher
}

func NewService(store Store, pub Publisher) *Service {
	return &Service{store: store, pub: pub}
}

func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	return s.store.Get(ctx, orderID)
}

func (s *Service) GetByAppTransID(ctx context.Context, appTransID string) (*Order, error) {
	return s.store.GetByAppTransID(ctx, appTransID)
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]*Order, error) {
	return s.store.ListByUser(ctx, userID)
}

// MarkPaid transitions AwaitingPayment -> Active with a conditional write.
// If the write loses a race the order is reloaded and the error describes
// where it actually ended up, so callers can detect duplicate deliveries
// (ErrOrderAlreadyPaid) versus a reaped order (ErrOrderCancelled).
func (s *Service) MarkPaid(ctx context.Context, orderID string) (*Order, error) {
	now := time.Now()
	err := s.store.Transition(ctx, orderID, StatusAwaitingPayment, StatusActive, now)
	if errors.Is(err, ErrStatusConflict) {
		o, getErr := s.store.Get(ctx, orderID)
		if getErr != nil {
			return nil, getErr
		}
		return o, o.TransitionError(StatusActive)
	}
	if err != nil {
		return nil, err
	}

	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, EventOrderPaid, o.ID, OrderPaid{
		OrderID:    o.ID,
		UserID:     o.UserID,
		AppTransID: o.AppTransID,
		Total:      o.Total,
		PaidAt:     now,
	})
	return o, nil
}

// Complete transitions Active -> Completed (fulfillment finished).
func (s *Service) Complete(ctx context.Context, orderID string) error {
	err := s.store.Transition(ctx, orderID, StatusActive, StatusCompleted, time.Now())
	if errors.Is(err, ErrStatusConflict) {
		o, getErr := s.store.Get(ctx, orderID)
		if getErr != nil {
			return getErr
		}
		return o.TransitionError(StatusCompleted)
	}
	return err
}

// CancelUnpaid cancels an order still awaiting payment and credits its line
// items back to stock in the same atomic batch.
func (s *Service) CancelUnpaid(ctx context.Context, orderID, reason string) error {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if !o.CanTransitionTo(StatusCancelled) {
		return o.TransitionError(StatusCancelled)
	}

	now := time.Now()
	err = s.store.CancelAndRestock(ctx, orderID, o.Items, now)
	if errors.Is(err, ErrStatusConflict) {
		cur, getErr := s.store.Get(ctx, orderID)
		if getErr != nil {
			return getErr
		}
		return cur.TransitionError(StatusCancelled)
	}
	if err != nil {
		return err
	}

	s.publish(ctx, EventOrderCancelled, orderID, OrderCancelled{
		OrderID:     orderID,
		UserID:      o.UserID,
		Reason:      reason,
		CancelledAt: now,
	})
	return nil
}

func (s *Service) publish(ctx context.Context, eventType, key string, data any) {
	if s.pub == nil {
		return
	}
	env, err := NewEnvelope(eventType, data)
	if err != nil {
		log.Printf("[Order] Failed to build %s event for order %s: %v", eventType, key, err)
		return
	}
	if err := s.pub.Publish(ctx, key, env); err != nil {
		log.Printf("[Order] Failed to publish %s event for order %s: %v", eventType, key, err)
	}
}
