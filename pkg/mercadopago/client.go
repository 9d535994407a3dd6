package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mercadito-dev/mercadito-backend/pkg/config"
	pkgerrors "github.com/mercadito-dev/mercadito-backend/pkg/errors"
)

// Provider is the ledger name for this gateway.
const Provider = "mercadopago"

// Client is a thin wrapper over the MercadoPago REST API. Every call carries
// an explicit deadline; transport and 5xx failures come back retryable,
// 4xx come back terminal.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	accessToken   string
	webhookSecret string
	timeout       time.Duration
}

// PaymentView is the gateway's authoritative view of a payment.
type PaymentView struct {
	ID                json.Number     `json:"id"`
	Status            string          `json:"status"`
	StatusDetail      string          `json:"status_detail"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	CurrencyID        string          `json:"currency_id"`
	ExternalReference string          `json:"external_reference"`
	Payer             PaymentPayer    `json:"payer"`

	// Raw keeps the exact body for the attempt ledger.
	Raw json.RawMessage `json:"-"`
}

// PaymentPayer carries the payer identity subset we persist.
type PaymentPayer struct {
	Email string `json:"email"`
}

// PaymentID returns the payment id as a string regardless of JSON shape.
func (v *PaymentView) PaymentID() string {
	if v == nil {
		return ""
	}
	return v.ID.String()
}

// PreferenceRequest describes the checkout preference to create.
type PreferenceRequest struct {
	ExternalReference string           `json:"external_reference"`
	Items             []PreferenceItem `json:"items"`
	NotificationURL   string           `json:"notification_url,omitempty"`
	BackURLs          *BackURLs        `json:"back_urls,omitempty"`
	AutoReturn        string           `json:"auto_return,omitempty"`
}

// PreferenceItem is one purchasable line inside a preference.
type PreferenceItem struct {
	Title      string          `json:"title"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	CurrencyID string          `json:"currency_id"`
}

// BackURLs are the browser return targets after checkout.
type BackURLs struct {
	Success string `json:"success,omitempty"`
	Failure string `json:"failure,omitempty"`
	Pending string `json:"pending,omitempty"`
}

// Preference is the created gateway preference.
type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// MerchantOrder groups the payments the gateway collected for one preference.
type MerchantOrder struct {
	ID                json.Number            `json:"id"`
	PreferenceID      string                 `json:"preference_id"`
	ExternalReference string                 `json:"external_reference"`
	Payments          []MerchantOrderPayment `json:"payments"`
}

// MerchantOrderPayment is one payment reference inside a merchant order.
type MerchantOrderPayment struct {
	ID     json.Number `json:"id"`
	Status string      `json:"status"`
}

// NewClient validates configuration and builds the gateway client.
func NewClient(cfg config.MercadoPagoConfig) (*Client, error) {
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, fmt.Errorf("mercadopago access token is required")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.mercadopago.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		httpClient:    &http.Client{},
		baseURL:       base,
		accessToken:   token,
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		timeout:       timeout,
	}, nil
}

// WebhookSecret returns the shared secret used by the signature verifier.
func (c *Client) WebhookSecret() string {
	return c.webhookSecret
}

// GetPayment fetches the current view of a payment by gateway id.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*PaymentView, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}

	body, err := c.doJSON(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil)
	if err != nil {
		return nil, err
	}

	var view PaymentView
	if err := json.Unmarshal(body, &view); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment view")
	}
	view.Raw = body
	return &view, nil
}

// GetMerchantOrder fetches a merchant order, the gateway's grouping of
// payments under one preference. Used when the returning browser only carries
// a merchant_order_id.
func (c *Client) GetMerchantOrder(ctx context.Context, merchantOrderID string) (*MerchantOrder, error) {
	if strings.TrimSpace(merchantOrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant order id is required")
	}

	body, err := c.doJSON(ctx, http.MethodGet, "/merchant_orders/"+merchantOrderID, nil)
	if err != nil {
		return nil, err
	}

	var order MerchantOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode merchant order")
	}
	return &order, nil
}

// CreatePreference creates a checkout preference for a draft.
func (c *Client) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	if req.ExternalReference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external reference is required")
	}
	if len(req.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "preference needs at least one item")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode preference request")
	}

	body, err := c.doJSON(ctx, http.MethodPost, "/checkout/preferences", payload)
	if err != nil {
		return nil, err
	}

	var pref Preference
	if err := json.Unmarshal(body, &pref); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode preference")
	}
	return &pref, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build gateway request")
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// timeouts and transport errors are retryable upstream failures
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read gateway response")
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("gateway resource not found (%s)", path))
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("gateway rejected request: %d %s", resp.StatusCode, truncate(body, 256)))
	default:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("gateway error: %d", resp.StatusCode))
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
