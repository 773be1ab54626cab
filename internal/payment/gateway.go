// Package payment integrates the external payment gateway: creating
// split payments at purchase time and applying the webhook events the
// gateway delivers afterwards.
package payment

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrGatewayFailure reports that the gateway could not be reached or
// kept failing after retries. The purchase flow aborts on it; no
// subscription row is written without a payment identifier.
var ErrGatewayFailure = errors.New("payment gateway failure")

// Trainer share of every split payment; the platform retains the rest.
const trainerShare = 70

// GatewayConfig carries the gateway credentials and endpoints.
type GatewayConfig struct {
	ShopID    string
	SecretKey string
	BaseURL   string
	ReturnURL string
}

// Gateway is the HTTP client for the payment provider. It is injected
// into the purchase handler so tests can point it at a stub server.
type Gateway struct {
	cfg       GatewayConfig
	client    *http.Client
	attempts  int
	baseDelay time.Duration
}

// NewGateway builds a gateway client. client may be nil, in which case
// a default with a request timeout is used.
func NewGateway(cfg GatewayConfig, client *http.Client) *Gateway {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Gateway{
		cfg:       cfg,
		client:    client,
		attempts:  3,
		baseDelay: 500 * time.Millisecond,
	}
}

// Payment is the gateway's answer to a created payment.
type Payment struct {
	ID              string
	ConfirmationURL string
}

type amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type transfer struct {
	AccountID string `json:"account_id"`
	Amount    amount `json:"amount"`
}

type createPaymentRequest struct {
	Amount       amount     `json:"amount"`
	Capture      bool       `json:"capture"`
	Description  string     `json:"description"`
	Confirmation any        `json:"confirmation"`
	Transfers    []transfer `json:"transfers,omitempty"`
}

type createPaymentResponse struct {
	ID           string `json:"id"`
	Confirmation struct {
		ConfirmationURL string `json:"confirmation_url"`
	} `json:"confirmation"`
}

// moneyValue renders cents as the gateway's decimal string ("1050" ->
// "10.50").
func moneyValue(cents uint32) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

func idempotenceKey() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

// CreateSplitPayment registers a payment with the gateway, routing the
// trainer's share to their payout account and retaining the rest. The
// same idempotence key is reused across retries, so a retried request
// the gateway already accepted does not create a second payment.
// Transport errors and 5xx answers are retried with doubling backoff;
// exhausting the attempts yields ErrGatewayFailure.
func (g *Gateway) CreateSplitPayment(ctx context.Context, priceCents uint32, description, payoutAccountID string) (*Payment, error) {
	trainerCents := priceCents * trainerShare / 100
	reqBody := createPaymentRequest{
		Amount:      amount{Value: moneyValue(priceCents), Currency: "RUB"},
		Capture:     true,
		Description: description,
		Confirmation: map[string]string{
			"type":       "redirect",
			"return_url": g.cfg.ReturnURL,
		},
	}
	if payoutAccountID != "" && trainerCents > 0 {
		reqBody.Transfers = []transfer{{
			AccountID: payoutAccountID,
			Amount:    amount{Value: moneyValue(trainerCents), Currency: "RUB"},
		}}
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	key := idempotenceKey()
	delay := g.baseDelay
	var lastErr error
	for attempt := 0; attempt < g.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
		payment, retry, err := g.send(ctx, payload, key)
		if err == nil {
			return payment, nil
		}
		lastErr = err
		if !retry {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrGatewayFailure, lastErr)
}

// send performs one request. The second return value reports whether
// the failure is retryable.
func (g *Gateway) send(ctx context.Context, payload []byte, idemKey string) (*Payment, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.cfg.BaseURL+"/payments", bytes.NewReader(payload))
	if err != nil {
		return nil, false, err
	}
	req.SetBasicAuth(g.cfg.ShopID, g.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotence-Key", idemKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return nil, true, fmt.Errorf("gateway status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, false, fmt.Errorf("%w: status %d: %s", ErrGatewayFailure, resp.StatusCode, body)
	}

	var out createPaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, false, err
	}
	if out.ID == "" {
		return nil, false, fmt.Errorf("%w: empty payment id", ErrGatewayFailure)
	}
	return &Payment{ID: out.ID, ConfirmationURL: out.Confirmation.ConfirmationURL}, false, nil
}
