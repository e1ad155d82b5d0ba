package notification

import (
	"context"
	"encoding/json"
	"log"

	"github.com/example/storefront-core/internal/domain/order"
	"github.com/example/storefront-core/internal/domain/user"
	"github.com/example/storefront-core/internal/email"
)

// Handler turns order lifecycle events into customer emails.
type Handler struct {
	emailService *email.Service
	users        user.Store
}

func NewHandler(emailSvc *email.Service, users user.Store) *Handler {
	return &Handler{
		emailService: emailSvc,
		users:        users,
	}
}

// HandleEvent processes one event from the events topic. Lookup and send
// failures are logged, not returned: a broken email must not wedge the
// consumer group behind one message.
func (h *Handler) HandleEvent(ctx context.Context, env order.Envelope) error {
	switch env.Type {
	case order.EventOrderCreated:
		return h.handleOrderCreated(ctx, env)
	case order.EventOrderPaid:
		return h.handleOrderPaid(ctx, env)
	case order.EventOrderCancelled:
		return h.handleOrderCancelled(ctx, env)
	default:
		return nil
	}
}

func (h *Handler) handleOrderCreated(ctx context.Context, env order.Envelope) error {
	var e order.OrderCreated
	if err := json.Unmarshal(env.Data, &e); err != nil {
		log.Printf("[Notifier] Failed to unmarshal OrderCreated event: %v", err)
		return err
	}

	addr, ok := h.lookupEmail(ctx, e.UserID)
	if !ok {
		return nil
	}

	emailItems := make([]email.OrderItem, len(e.Items))
	for i, item := range e.Items {
		emailItems[i] = email.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Size:      item.Size,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}

	if err := h.emailService.SendOrderConfirmation(addr, e.OrderID, e.Total, emailItems); err != nil {
		log.Printf("[Notifier] Failed to send confirmation to %s: %v", addr, err)
		return nil
	}
	log.Printf("[Notifier] Order confirmation sent to %s for order %s", addr, e.OrderID)
	return nil
}

func (h *Handler) handleOrderPaid(ctx context.Context, env order.Envelope) error {
	var e order.OrderPaid
	if err := json.Unmarshal(env.Data, &e); err != nil {
		log.Printf("[Notifier] Failed to unmarshal OrderPaid event: %v", err)
		return err
	}

	addr, ok := h.lookupEmail(ctx, e.UserID)
	if !ok {
		return nil
	}
	if err := h.emailService.SendPaymentReceipt(addr, e.OrderID, e.Total); err != nil {
		log.Printf("[Notifier] Failed to send receipt to %s: %v", addr, err)
		return nil
	}
	log.Printf("[Notifier] Payment receipt sent to %s for order %s", addr, e.OrderID)
	return nil
}

func (h *Handler) handleOrderCancelled(ctx context.Context, env order.Envelope) error {
	var e order.OrderCancelled
	if err := json.Unmarshal(env.Data, &e); err != nil {
		log.Printf("[Notifier] Failed to unmarshal OrderCancelled event: %v", err)
		return err
	}

	addr, ok := h.lookupEmail(ctx, e.UserID)
	if !ok {
		return nil
	}
	if err := h.emailService.SendOrderCancellation(addr, e.OrderID, e.Reason); err != nil {
		log.Printf("[Notifier] Failed to send cancellation notice to %s: %v", addr, err)
		return nil
	}
	log.Printf("[Notifier] Cancellation notice sent to %s for order %s", addr, e.OrderID)
	return nil
}

func (h *Handler) lookupEmail(ctx context.Context, userID string) (string, bool) {
	u, err := h.users.GetUser(ctx, userID)
	if err != nil {
		log.Printf("[Notifier] Failed to look up user %s: %v", userID, err)
		return "", false
	}
	return u.Email, true
}
