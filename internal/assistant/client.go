package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Client proxies chat queries to the external dialogue engine. The storefront
// core does not depend on it; it only shares the deployment surface.
type Client struct {
	endpoint string
	http     *http.Client
}

func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

type IntentRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"sessionId,omitempty"`
}

type IntentResponse struct {
	SessionID     string   `json:"sessionId"`
	Messages      []string `json:"messages"`
	MatchedIntent string   `json:"matchedIntent"`
	CurrentPage   string   `json:"currentPage"`
	CustomPayload struct {
		RichContent json.RawMessage `json:"richContent"`
	} `json:"customPayload"`
}

// DetectIntent forwards one query to the dialogue engine. A missing session
// ID starts a new conversation.
func (c *Client) DetectIntent(ctx context.Context, req IntentRequest) (*IntentResponse, error) {
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("dialogue engine request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dialogue engine returned %d", resp.StatusCode)
	}

	var out IntentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode dialogue engine response: %w", err)
	}
	if out.SessionID == "" {
		out.SessionID = req.SessionID
	}
	return &out, nil
}
