package payment

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/example/storefront-core/internal/domain/order"
)

// CallbackRequest is the webhook body the gateway POSTs after a payment
// attempt: a JSON-encoded transaction envelope plus its hex HMAC-SHA256.
type CallbackRequest struct {
	Data string `json:"data"`
	MAC  string `json:"mac"`
}

// Ack is the acknowledgment envelope the gateway expects. return_code 1
// stops retries, -1 signals a permanent rejection, 0 asks for a retry.
type Ack struct {
	ReturnCode    int    `json:"return_code"`
	ReturnMessage string `json:"return_message"`
}

// callbackData is the transaction envelope inside CallbackRequest.Data.
type callbackData struct {
	AppTransID string `json:"app_trans_id"`
	AppUser    string `json:"app_user"`
	Amount     int64  `json:"amount"`
	ZPTransID  int64  `json:"zp_trans_id"`
}

// Verifier authenticates inbound payment callbacks and applies the resulting
// order transition.
type Verifier struct {
	key2   string
	orders *order.Service
}

func NewVerifier(key2 string, orders *order.Service) *Verifier {
	return &Verifier{key2: key2, orders: orders}
}

// HandleCallback verifies and applies one webhook delivery. It returns the
// HTTP status and acknowledgment body to send back. Duplicate deliveries for
// an already paid order acknowledge success without a second update, so the
// gateway stops retrying. Nothing is mutated unless the MAC checks out.
func (v *Verifier) HandleCallback(ctx context.Context, req CallbackRequest) (int, Ack) {
	if req.Data == "" || req.MAC == "" {
		return http.StatusBadRequest, Ack{ReturnCode: -1, ReturnMessage: "Invalid request data or MAC"}
	}

	if !VerifyMAC(v.key2, req.Data, req.MAC) {
		log.Printf("[Payment] Callback MAC mismatch (payload length %d)", len(req.Data))
		return http.StatusUnauthorized, Ack{ReturnCode: -1, ReturnMessage: "MAC mismatch"}
	}

	var data callbackData
	if err := json.Unmarshal([]byte(req.Data), &data); err != nil || data.AppTransID == "" {
		return http.StatusBadRequest, Ack{ReturnCode: -1, ReturnMessage: "Invalid request data or MAC"}
	}

	o, err := v.orders.GetByAppTransID(ctx, data.AppTransID)
	if errors.Is(err, order.ErrOrderNotFound) {
		log.Printf("[Payment] Callback for unknown transaction %s", data.AppTransID)
		return http.StatusNotFound, Ack{ReturnCode: -1, ReturnMessage: "Order not found"}
	}
	if err != nil {
		log.Printf("[Payment] Failed to look up transaction %s: %v", data.AppTransID, err)
		return http.StatusInternalServerError, Ack{ReturnCode: 0, ReturnMessage: "Error processing request: " + err.Error()}
	}

	_, err = v.orders.MarkPaid(ctx, o.ID)
	switch {
	case err == nil:
		log.Printf("[Payment] Order %s confirmed paid (app_trans_id=%s)", o.ID, data.AppTransID)
		return http.StatusOK, Ack{ReturnCode: 1, ReturnMessage: "Success"}
	case errors.Is(err, order.ErrOrderAlreadyPaid), errors.Is(err, order.ErrOrderCompleted):
		// Duplicate delivery: already applied, acknowledge so retries stop.
		log.Printf("[Payment] Duplicate callback for order %s, already paid", o.ID)
		return http.StatusOK, Ack{ReturnCode: 1, ReturnMessage: "Success"}
	case errors.Is(err, order.ErrOrderCancelled):
		// Payment lost the race with the reaper. Acknowledge so the gateway
		// stops retrying a transition that can never apply.
		log.Printf("[Payment] Callback for cancelled order %s ignored", o.ID)
		return http.StatusOK, Ack{ReturnCode: -1, ReturnMessage: "Order already cancelled"}
	case errors.Is(err, order.ErrOrderNotFound):
		return http.StatusNotFound, Ack{ReturnCode: -1, ReturnMessage: "Order not found"}
	default:
		log.Printf("[Payment] Failed to mark order %s paid: %v", o.ID, err)
		return http.StatusInternalServerError, Ack{ReturnCode: 0, ReturnMessage: "Error processing request: " + err.Error()}
	}
}
