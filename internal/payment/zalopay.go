package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config holds the ZaloPay merchant credentials. Key1 signs outbound order
// creation requests, Key2 verifies inbound callbacks. Both come from the
// environment, never from source.
type Config struct {
	AppID    int
	Key1     string
	Key2     string
	Endpoint string
}

// Client creates payment orders against the ZaloPay gateway.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateOrderResult is the subset of the gateway response the storefront
// cares about.
type CreateOrderResult struct {
	AppTransID    string
	OrderURL      string
	ZPTransToken  string
	ReturnCode    int
	ReturnMessage string
}

type gatewayResponse struct {
	ReturnCode    int    `json:"return_code"`
	ReturnMessage string `json:"return_message"`
	OrderURL      string `json:"order_url"`
	ZPTransToken  string `json:"zp_trans_token"`
}

// NewAppTransID builds a gateway correlation token. The gateway requires the
// yymmdd date prefix and uniqueness within that day.
func NewAppTransID(now time.Time) string {
	token := strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	return fmt.Sprintf("%s_%s", now.Format("060102"), token)
}

// CreateOrder registers a payment order with the gateway and returns the
// payment URL the client app opens. The request MAC covers the fields the
// gateway specifies, joined with '|' and signed with Key1.
func (c *Client) CreateOrder(ctx context.Context, appTransID, appUser string, amountCents int64, items any) (*CreateOrderResult, error) {
	itemJSON, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order items: %w", err)
	}
	embedData := "{}"
	appTime := time.Now().UnixMilli()

	macInput := fmt.Sprintf("%d|%s|%s|%d|%d|%s|%s",
		c.cfg.AppID, appTransID, appUser, amountCents, appTime, embedData, itemJSON)
	mac := ComputeMAC(c.cfg.Key1, macInput)

	form := url.Values{}
	form.Set("app_id", strconv.Itoa(c.cfg.AppID))
	form.Set("app_trans_id", appTransID)
	form.Set("app_user", appUser)
	form.Set("amount", strconv.FormatInt(amountCents, 10))
	form.Set("app_time", strconv.FormatInt(appTime, 10))
	form.Set("embed_data", embedData)
	form.Set("item", string(itemJSON))
	form.Set("description", "Storefront order "+appTransID)
	form.Set("mac", mac)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	var gw gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&gw); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	if gw.ReturnCode != 1 {
		return nil, fmt.Errorf("payment gateway rejected order: %d %s", gw.ReturnCode, gw.ReturnMessage)
	}

	return &CreateOrderResult{
		AppTransID:    appTransID,
		OrderURL:      gw.OrderURL,
		ZPTransToken:  gw.ZPTransToken,
		ReturnCode:    gw.ReturnCode,
		ReturnMessage: gw.ReturnMessage,
	}, nil
}

// ComputeMAC returns the hex HMAC-SHA256 of data under key.
func ComputeMAC(key, data string) string {
	h := hmac.New(sha256.New, []byte(key))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyMAC reports whether mac is the correct signature for data under key.
// Comparison is constant-time.
func VerifyMAC(key, data, mac string) bool {
	expected, err := hex.DecodeString(ComputeMAC(key, data))
	if err != nil {
		return false
	}
	provided, err := hex.DecodeString(mac)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, provided)
}
