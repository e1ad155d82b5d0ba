package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/example/storefront-core/internal/api/middleware"
	"github.com/example/storefront-core/internal/assistant"
	"github.com/example/storefront-core/internal/checkout"
	"github.com/example/storefront-core/internal/domain/cart"
	"github.com/example/storefront-core/internal/domain/inventory"
	"github.com/example/storefront-core/internal/domain/order"
	"github.com/example/storefront-core/internal/payment"
)

type Handlers struct {
	ledger    *inventory.Ledger
	carts     *cart.Service
	orders    *order.Service
	checkout  *checkout.Orchestrator
	verifier  *payment.Verifier
	assistant *assistant.Client
}

func NewHandlers(ledger *inventory.Ledger, carts *cart.Service, orders *order.Service, co *checkout.Orchestrator, verifier *payment.Verifier, assistant *assistant.Client) *Handlers {
	return &Handlers{
		ledger:    ledger,
		carts:     carts,
		orders:    orders,
		checkout:  co,
		verifier:  verifier,
		assistant: assistant,
	}
}

// Product Handlers

func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.ledger.List(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/products/")
	product, err := h.ledger.Product(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var p inventory.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.ledger.Put(r.Context(), &p); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// Cart Handlers

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	lines, err := h.carts.ListLines(r.Context(), userID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if lines == nil {
		lines = []*cart.Line{}
	}
	respondJSON(w, http.StatusOK, lines)
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		ProductID string `json:"product_id"`
		Size      string `json:"size"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	line, err := h.carts.AddItem(r.Context(), userID, req.ProductID, req.Size, req.Quantity)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, line)
}

func (h *Handlers) UpdateCartLine(w http.ResponseWriter, r *http.Request) {
	lineID := extractPathParam(r.URL.Path, "/cart/items/")

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	line, err := h.carts.SetQuantity(r.Context(), lineID, req.Quantity)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, line)
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	lineID := extractPathParam(r.URL.Path, "/cart/items/")
	if err := h.carts.RemoveItem(r.Context(), lineID); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Order Handlers

func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		LineIDs []string `json:"line_ids"`
		Address string   `json:"address"`
		Phone   string   `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.checkout.PlaceOrder(r.Context(), userID, req.LineIDs, req.Address, req.Phone)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	orders, err := h.orders.ListByUser(r.Context(), userID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if orders == nil {
		orders = []*order.Order{}
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/orders/")
	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	// A user may only read their own orders; admins may read all.
	userID := middleware.GetUserID(r.Context())
	if o.UserID != userID && !isAdmin(r) {
		respondJSONError(w, "Forbidden", http.StatusForbidden)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) CompleteOrder(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(extractPathParam(r.URL.Path, "/orders/"), "/complete")
	if err := h.orders.Complete(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Order completed"})
}

// Payment Webhook

// PaymentCallback receives the gateway's asynchronous payment notification.
// Status and body come straight from the verifier so the gateway's retry
// contract is honored exactly.
func (h *Handlers) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	var req payment.CallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, payment.Ack{ReturnCode: -1, ReturnMessage: "Invalid request data or MAC"})
		return
	}
	status, ack := h.verifier.HandleCallback(r.Context(), req)
	respondJSON(w, status, ack)
}

// Assistant Proxy

func (h *Handlers) DetectIntent(w http.ResponseWriter, r *http.Request) {
	if h.assistant == nil {
		respondJSONError(w, "assistant not configured", http.StatusServiceUnavailable)
		return
	}

	var req assistant.IntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := h.assistant.DetectIntent(r.Context(), req)
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusBadGateway)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// respondDomainError maps domain errors to HTTP statuses.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, inventory.ErrNotFound):
		respondJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrSizeUnavailable),
		errors.Is(err, cart.ErrOutOfStock),
		errors.Is(err, cart.ErrExceedsStock),
		errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, checkout.ErrNoLinesSelected),
		errors.Is(err, order.ErrEmptyOrder):
		respondJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, checkout.ErrLineNotOwned):
		respondJSONError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, order.ErrOrderAlreadyPaid),
		errors.Is(err, order.ErrOrderCancelled),
		errors.Is(err, order.ErrOrderCompleted),
		errors.Is(err, order.ErrOrderNotPaid),
		errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, order.ErrStatusConflict):
		respondJSONError(w, err.Error(), http.StatusConflict)
	default:
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
	}
}

func extractPathParam(path, prefix string) string {
	return strings.TrimPrefix(path, prefix)
}

// isAdmin checks if the current user has admin role
func isAdmin(r *http.Request) bool {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		return false
	}
	return claims.Role == "admin"
}
