package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/example/storefront-core/internal/domain/cart"
	"github.com/example/storefront-core/internal/domain/inventory"
	"github.com/example/storefront-core/internal/domain/order"
	"github.com/example/storefront-core/internal/domain/user"
	"github.com/example/storefront-core/internal/payment"
)

var (
	ErrNoLinesSelected = errors.New("no cart lines selected")
	ErrLineNotOwned    = errors.New("cart line does not belong to user")
)

// Totals is the priced breakdown of a checkout. All amounts are in cents.
type Totals struct {
	Subtotal    int64 `json:"subtotal"`
	Discount    int64 `json:"discount"`
	ShippingFee int64 `json:"shipping_fee"`
	Total       int64 `json:"total"`
}

// ComputeTotals prices a set of order lines. discountRate is a whole
// percentage (0-100) from the user's membership level. The discount is
// rounded half up to the nearest cent.
func ComputeTotals(items []order.LineItem, discountRate int, shippingFee int64) Totals {
	var subtotal int64
	for _, item := range items {
		subtotal += item.Price * int64(item.Quantity)
	}
	discount := (subtotal*int64(discountRate) + 50) / 100
	return Totals{
		Subtotal:    subtotal,
		Discount:    discount,
		ShippingFee: shippingFee,
		Total:       subtotal - discount + shippingFee,
	}
}

// Orchestrator drives checkout: it re-checks stock, snapshots prices into a
// new order, registers the payment with the gateway and clears the
// purchased cart lines.
type Orchestrator struct {
	orders      order.Store
	carts       cart.Store
	ledger      *inventory.Ledger
	users       *user.Service
	gateway     *payment.Client
	pub         order.Publisher
	shippingFee int64
}

func NewOrchestrator(orders order.Store, carts cart.Store, ledger *inventory.Ledger, users *user.Service, gateway *payment.Client, pub order.Publisher, shippingFee int64) *Orchestrator {
	return &Orchestrator{
		orders:      orders,
		carts:       carts,
		ledger:      ledger,
		users:       users,
		gateway:     gateway,
		pub:         pub,
		shippingFee: shippingFee,
	}
}

// PlaceOrderResult is returned to the client app so it can open the payment
// page.
type PlaceOrderResult struct {
	Order      *order.Order `json:"order"`
	PaymentURL string       `json:"payment_url,omitempty"`
}

// PlaceOrder creates an order from the user's selected cart lines.
//
// Stock is re-checked line by line before anything is written: any shortfall
// blocks the whole order, there is no partial order. Stock is not debited
// here, availability at the product level is the gate. Product name and
// price are snapshotted into the order so later catalog edits cannot change
// what the customer agreed to pay.
func (oc *Orchestrator) PlaceOrder(ctx context.Context, userID string, lineIDs []string, address, phone string) (*PlaceOrderResult, error) {
	if len(lineIDs) == 0 {
		return nil, ErrNoLinesSelected
	}

	u, err := oc.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	// A repeated line ID counts once: duplicates would pass each per-line
	// stock check while doubling the aggregate demand.
	seen := make(map[string]struct{}, len(lineIDs))
	lines := make([]*cart.Line, 0, len(lineIDs))
	for _, id := range lineIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		line, err := oc.carts.GetLine(ctx, id)
		if err != nil {
			return nil, err
		}
		if line.UserID != userID {
			return nil, ErrLineNotOwned
		}
		lines = append(lines, line)
	}

	items := make([]order.LineItem, 0, len(lines))
	for _, line := range lines {
		p, err := oc.ledger.Product(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, inventory.ErrNotFound) {
				return nil, fmt.Errorf("%w: product %s", cart.ErrSizeUnavailable, line.ProductID)
			}
			return nil, err
		}
		available, ok := p.Available(line.Size)
		if !ok {
			return nil, fmt.Errorf("%w: product %s size %s", cart.ErrSizeUnavailable, line.ProductID, line.Size)
		}
		if line.Quantity > available {
			return nil, fmt.Errorf("%w: product %s size %s (%d requested, %d available)",
				cart.ErrExceedsStock, line.ProductID, line.Size, line.Quantity, available)
		}
		items = append(items, order.LineItem{
			ProductID: p.ID,
			Name:      p.Name,
			Size:      line.Size,
			Quantity:  line.Quantity,
			Price:     p.Price,
		})
	}

	now := time.Now()
	totals := ComputeTotals(items, user.DiscountRate(u.MembershipLevel), oc.shippingFee)
	o := &order.Order{
		ID:          uuid.New().String(),
		UserID:      userID,
		Items:       items,
		Subtotal:    totals.Subtotal,
		Discount:    totals.Discount,
		ShippingFee: totals.ShippingFee,
		Total:       totals.Total,
		Status:      order.StatusAwaitingPayment,
		Address:     address,
		Phone:       phone,
		OrderTime:   now,
		UpdateTime:  now,
	}
	if err := oc.orders.Create(ctx, o); err != nil {
		return nil, err
	}

	result := &PlaceOrderResult{Order: o}
	if oc.gateway != nil {
		appTransID := payment.NewAppTransID(now)
		payRes, err := oc.gateway.CreateOrder(ctx, appTransID, userID, o.Total, items)
		if err != nil {
			// The order stays AwaitingPayment; the reaper reclaims it if the
			// customer never retries payment.
			log.Printf("[Checkout] Failed to register payment for order %s: %v", o.ID, err)
			return result, nil
		}
		if err := oc.orders.SetAppTransID(ctx, o.ID, appTransID); err != nil {
			log.Printf("[Checkout] Failed to record app_trans_id for order %s: %v", o.ID, err)
			return result, nil
		}
		o.AppTransID = appTransID
		result.PaymentURL = payRes.OrderURL
	}

	for _, line := range lines {
		if err := oc.carts.DeleteLine(ctx, line.ID); err != nil {
			log.Printf("[Checkout] Failed to remove cart line %s after order %s: %v", line.ID, o.ID, err)
		}
	}

	oc.publishCreated(ctx, o)
	return result, nil
}

func (oc *Orchestrator) publishCreated(ctx context.Context, o *order.Order) {
	if oc.pub == nil {
		return
	}
	env, err := order.NewEnvelope(order.EventOrderCreated, order.OrderCreated{
		OrderID:   o.ID,
		UserID:    o.UserID,
		Items:     o.Items,
		Total:     o.Total,
		CreatedAt: o.OrderTime,
	})
	if err != nil {
		log.Printf("[Checkout] Failed to build OrderCreated event for order %s: %v", o.ID, err)
		return
	}
	if err := oc.pub.Publish(ctx, o.ID, env); err != nil {
		log.Printf("[Checkout] Failed to publish OrderCreated event for order %s: %v", o.ID, err)
	}
}
