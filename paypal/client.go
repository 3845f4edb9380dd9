// Package paypal reads checkout orders from the PayPal REST API so that
// client-reported payments can be checked server-side. It never captures or
// charges.
package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var (
	// ErrUnavailable means PayPal could not be reached or answered with a server error.
	ErrUnavailable = errors.New("paypal unavailable")
	// ErrOrderNotFound means PayPal does not know the order id.
	ErrOrderNotFound = errors.New("paypal order not found")
)

type Amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type Capture struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount Amount `json:"amount"`
}

type PurchaseUnit struct {
	ReferenceID string `json:"reference_id"`
	CustomID    string `json:"custom_id"`
	Amount      Amount `json:"amount"`
	Payments    struct {
		Captures []Capture `json:"captures"`
	} `json:"payments"`
}

type Order struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units"`
	Payer         struct {
		EmailAddress string `json:"email_address"`
	} `json:"payer"`
	UpdateTime string `json:"update_time"`
}

type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       *zap.Logger

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

func NewClient(baseURL, clientID, clientSecret string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
	}
}

// GetOrder fetches GET /v2/checkout/orders/{id}.
func (c *Client) GetOrder(ctx context.Context, id string) (*Order, error) {
	ctx, span := otel.Tracer("paypal").Start(ctx, "PayPal.GetOrder")
	defer span.End()
	span.SetAttributes(attribute.String("paypal.order_id", id))

	token, err := c.token(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "token")
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v2/checkout/orders/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrOrderNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		c.resetToken()
		return nil, fmt.Errorf("%w: access token rejected", ErrUnavailable)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: unexpected status %d: %s", ErrUnavailable, resp.StatusCode, body)
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("%w: failed to decode order: %v", ErrUnavailable, err)
	}
	return &order, nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.expiresAt) {
		return c.accessToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token",
		strings.NewReader(url.Values{"grant_type": {"client_credentials"}}.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token request returned %d", ErrUnavailable, resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: failed to decode token: %v", ErrUnavailable, err)
	}

	c.accessToken = body.AccessToken
	// refresh a minute early
	c.expiresAt = time.Now().Add(time.Duration(body.ExpiresIn)*time.Second - time.Minute)
	c.logger.Debug("PayPal access token refreshed", zap.Int("expires_in", body.ExpiresIn))
	return c.accessToken, nil
}

func (c *Client) resetToken() {
	c.mu.Lock()
	c.accessToken = ""
	c.mu.Unlock()
}
