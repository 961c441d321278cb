package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultTimeout is applied when Config.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// ErrNotFound is returned by Get for unknown transaction ids.
var ErrNotFound = errors.New("transaction not found")

// Webhook is the notification payload POSTed to the service.
type Webhook struct {
	TransactionID      string          `json:"transaction_id"`
	SourceAccount      string          `json:"source_account"`
	DestinationAccount string          `json:"destination_account"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
}

// MarshalJSON writes the amount as a JSON number, the way processors send it.
func (w Webhook) MarshalJSON() ([]byte, error) {
	type wire Webhook
	return json.Marshal(struct {
		wire
		Amount json.Number `json:"amount"`
	}{wire: wire(w), Amount: json.Number(w.Amount.String())})
}

// MessageAlreadyReceived is the acknowledgement text for a repeated delivery.
const MessageAlreadyReceived = "Webhook already received"

// Ack is the service's answer to a delivered webhook.
type Ack struct {
	Message       string `json:"message"`
	TransactionID string `json:"transaction_id"`
}

// Transaction is the record view returned by the query endpoint.
type Transaction struct {
	TransactionID      string          `json:"transaction_id"`
	SourceAccount      string          `json:"source_account"`
	DestinationAccount string          `json:"destination_account"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	Status             string          `json:"status"`
	CreatedAt          time.Time       `json:"created_at"`
	ProcessedAt        *time.Time      `json:"processed_at"`
}

// APIError carries a non-success response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// Retryable reports whether the same request may succeed later.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusServiceUnavailable || e.StatusCode >= http.StatusInternalServerError
}

// Config contains configuration for the webhook service client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to a running webhook service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Submit delivers one webhook. Both first and repeated deliveries are
// acknowledged with 202.
func (c *Client) Submit(ctx context.Context, w Webhook) (Ack, error) {
	body, err := json.Marshal(w)
	if err != nil {
		return Ack{}, fmt.Errorf("encode webhook: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/webhooks/transactions", bytes.NewReader(body))
	if err != nil {
		return Ack{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var ack Ack
	if err := c.do(req, http.StatusAccepted, &ack); err != nil {
		return Ack{}, err
	}
	return ack, nil
}

// Get fetches the current record for id.
func (c *Client) Get(ctx context.Context, id string) (Transaction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/transactions/"+url.PathEscape(id), nil)
	if err != nil {
		return Transaction{}, fmt.Errorf("create request: %w", err)
	}

	var tx Transaction
	if err := c.do(req, http.StatusOK, &tx); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return Transaction{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Transaction{}, err
	}
	return tx, nil
}

func (c *Client) do(req *http.Request, want int, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
