package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront-core/internal/domain/inventory"
	"github.com/example/storefront-core/internal/domain/order"
	"github.com/example/storefront-core/internal/infrastructure/store/mocks"
)

const testKey2 = "test-callback-key"

func newTestVerifier(t *testing.T) (*Verifier, *mocks.MockStore) {
	t.Helper()
	store := mocks.NewMockStore()
	orderSvc := order.NewService(store, nil)
	return NewVerifier(testKey2, orderSvc), store
}

func seedOrder(t *testing.T, store *mocks.MockStore, appTransID string) *order.Order {
	t.Helper()
	o := &order.Order{
		ID:     "order-1",
		UserID: "user-1",
		Items: []order.LineItem{
			{ProductID: "p1", Name: "Tee", Size: "M", Quantity: 1, Price: 2000},
		},
		Total:      2100,
		Status:     order.StatusAwaitingPayment,
		AppTransID: appTransID,
		OrderTime:  time.Now().Add(-time.Minute),
	}
	require.NoError(t, store.Create(context.Background(), o))
	return o
}

func signedCallback(appTransID string) CallbackRequest {
	data := fmt.Sprintf(`{"app_trans_id":%q,"app_user":"user-1","amount":2100,"zp_trans_id":123456}`, appTransID)
	return CallbackRequest{
		Data: data,
		MAC:  ComputeMAC(testKey2, data),
	}
}

// ============================================
// Success and Idempotency Tests
// ============================================

func TestVerifier_HandleCallback_Success(t *testing.T) {
	v, store := newTestVerifier(t)
	ctx := context.Background()
	seedOrder(t, store, "240101_abc")

	status, ack := v.HandleCallback(ctx, signedCallback("240101_abc"))

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, Ack{ReturnCode: 1, ReturnMessage: "Success"}, ack)

	o, err := store.Get(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusActive, o.Status)
}

func TestVerifier_HandleCallback_DuplicateDelivery(t *testing.T) {
	v, store := newTestVerifier(t)
	ctx := context.Background()
	seedOrder(t, store, "240101_abc")
	req := signedCallback("240101_abc")

	status, ack := v.HandleCallback(ctx, req)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, ack.ReturnCode)

	first, err := store.Get(ctx, "order-1")
	require.NoError(t, err)

	// Same payload delivered again: acknowledged, nothing re-applied.
	status, ack = v.HandleCallback(ctx, req)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, Ack{ReturnCode: 1, ReturnMessage: "Success"}, ack)

	second, err := store.Get(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusActive, second.Status)
	assert.Equal(t, first.UpdateTime, second.UpdateTime)
}

func TestVerifier_HandleCallback_CancelledOrder(t *testing.T) {
	v, store := newTestVerifier(t)
	ctx := context.Background()
	seedOrder(t, store, "240101_abc")

	require.NoError(t, store.PutProduct(ctx, &inventory.Product{
		ID: "p1", Name: "Tee", Price: 2000, Stock: map[string]int{"M": 0},
	}))
	orderSvc := order.NewService(store, nil)
	require.NoError(t, orderSvc.CancelUnpaid(ctx, "order-1", "abandoned"))

	status, ack := v.HandleCallback(ctx, signedCallback("240101_abc"))

	// Acknowledged so the gateway stops retrying, but not reported as paid.
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, Ack{ReturnCode: -1, ReturnMessage: "Order already cancelled"}, ack)

	o, err := store.Get(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, o.Status)
}

// ============================================
// Rejection Tests
// ============================================

func TestVerifier_HandleCallback_MACMismatch(t *testing.T) {
	v, store := newTestVerifier(t)
	ctx := context.Background()
	seedOrder(t, store, "240101_abc")

	req := signedCallback("240101_abc")
	req.MAC = ComputeMAC("wrong-key", req.Data)

	status, ack := v.HandleCallback(ctx, req)

	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, Ack{ReturnCode: -1, ReturnMessage: "MAC mismatch"}, ack)

	// Fail closed: no order mutated.
	o, err := store.Get(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusAwaitingPayment, o.Status)
}

func TestVerifier_HandleCallback_TamperedData(t *testing.T) {
	v, store := newTestVerifier(t)
	seedOrder(t, store, "240101_abc")

	req := signedCallback("240101_abc")
	req.Data = strings.Replace(req.Data, `"amount":2100`, `"amount":1`, 1)

	status, ack := v.HandleCallback(context.Background(), req)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, -1, ack.ReturnCode)
}

func TestVerifier_HandleCallback_MissingFields(t *testing.T) {
	v, _ := newTestVerifier(t)

	status, ack := v.HandleCallback(context.Background(), CallbackRequest{})

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, Ack{ReturnCode: -1, ReturnMessage: "Invalid request data or MAC"}, ack)
}

func TestVerifier_HandleCallback_MalformedEnvelope(t *testing.T) {
	v, _ := newTestVerifier(t)

	data := "not json"
	req := CallbackRequest{Data: data, MAC: ComputeMAC(testKey2, data)}

	status, ack := v.HandleCallback(context.Background(), req)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, Ack{ReturnCode: -1, ReturnMessage: "Invalid request data or MAC"}, ack)
}

func TestVerifier_HandleCallback_OrderNotFound(t *testing.T) {
	v, _ := newTestVerifier(t)

	status, ack := v.HandleCallback(context.Background(), signedCallback("240101_unknown"))

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, Ack{ReturnCode: -1, ReturnMessage: "Order not found"}, ack)
}

// ============================================
// MAC Helpers
// ============================================

func TestVerifyMAC(t *testing.T) {
	data := `{"app_trans_id":"240101_abc"}`

	assert.True(t, VerifyMAC(testKey2, data, ComputeMAC(testKey2, data)))
	assert.False(t, VerifyMAC(testKey2, data, ComputeMAC("other", data)))
	assert.False(t, VerifyMAC(testKey2, data, "zz-not-hex"))
}

func TestNewAppTransID_Format(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	id := NewAppTransID(now)

	assert.Regexp(t, `^260831_[0-9a-f]{12}$`, id)

	// Tokens must be unique within a day.
	assert.NotEqual(t, id, NewAppTransID(now))
}

func TestAckJSONShape(t *testing.T) {
	b, err := json.Marshal(Ack{ReturnCode: 1, ReturnMessage: "Success"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"return_code":1,"return_message":"Success"}`, string(b))
}
