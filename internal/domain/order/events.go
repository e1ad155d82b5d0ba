package order

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderCreated   = "OrderCreated"
	EventOrderPaid      = "OrderPaid"
	EventOrderCancelled = "OrderCancelled"
)

type OrderCreated struct {
	OrderID   string     `json:"order_id"`
	UserID    string     `json:"user_id"`
	Items     []LineItem `json:"items"`
	Total     int64      `json:"total"`
	CreatedAt time.Time  `json:"created_at"`
}

type OrderPaid struct {
	OrderID    string    `json:"order_id"`
	UserID     string    `json:"user_id"`
	AppTransID string    `json:"app_trans_id"`
	Total      int64     `json:"total"`
	PaidAt     time.Time `json:"paid_at"`
}

type OrderCancelled struct {
	OrderID     string    `json:"order_id"`
	UserID      string    `json:"user_id"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// Envelope is the wire format for order lifecycle events on the events topic.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

func NewEnvelope(eventType string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:         uuid.New().String(),
		Type:       eventType,
		OccurredAt: time.Now(),
		Data:       raw,
	}, nil
}

// Publisher is satisfied by the Kafka producer. A nil Publisher disables
// event emission.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}
