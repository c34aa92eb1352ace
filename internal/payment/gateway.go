package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/jazjo-app/jazjo/internal/config"
)

// LineItem is one billable line sent to the gateway. Amount is in the smallest
// currency unit (centavos).
type LineItem struct {
	Name     string
	Amount   int64
	Currency string
	Quantity int
}

// CheckoutSessionInput describes the hosted checkout page to create.
type CheckoutSessionInput struct {
	OrderCode   string
	Description string
	LineItems   []LineItem
	SuccessURL  string
	CancelURL   string
}

// Session references a hosted gateway checkout page.
type Session struct {
	ID          string
	CheckoutURL string
}

// Client is the pluggable payment gateway abstraction.
type Client interface {
	CreateCheckoutSession(ctx context.Context, input CheckoutSessionInput) (*Session, error)
	VerifySignature(rawBody []byte, signatureHeader string) bool
	Provider() string
}

// Module wires the payment gateway client.
var Module = fx.Provide(NewClient)

// NewClient builds a gateway client based on configuration.
func NewClient(cfg config.Config, logger *zap.Logger) (Client, error) {
	if !cfg.Payment.Enabled || cfg.Payment.Driver == "noop" {
		logger.Info("payment gateway disabled; using noop client")

		return noopClient{successURL: cfg.Payment.SuccessURL}, nil
	}

	switch cfg.Payment.Driver {
	case "paymongo":
		return newPayMongoClient(cfg.Payment, logger), nil
	default:
		return nil, fmt.Errorf("unsupported payment driver: %s", cfg.Payment.Driver)
	}
}

// ToCentavos converts a display-currency amount to the smallest currency unit,
// rounding to the nearest integer.
func ToCentavos(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// VerifySignature checks a gateway webhook signature header against the raw,
// unparsed request body. The header carries comma-separated key=value pairs: a
// unix timestamp under "t" and hex HMAC candidates under "te" (test mode) and
// "li" (live mode). The expected value is HMAC-SHA256(secret, "<t>.<body>");
// any matching candidate is accepted. Re-serialising parsed JSON would break
// verification, so callers must pass the exact bytes received.
func VerifySignature(secret string, rawBody []byte, signatureHeader string) bool {
	if secret == "" || signatureHeader == "" {
		return false
	}

	var timestamp string
	var candidates []string
	for _, part := range strings.Split(signatureHeader, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found || value == "" {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "te", "li":
			candidates = append(candidates, value)
		}
	}
	if timestamp == "" || len(candidates) == 0 {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, candidate := range candidates {
		if hmac.Equal([]byte(expected), []byte(candidate)) {
			return true
		}
	}
	return false
}

// noopClient is used when the gateway is disabled. It fabricates a session so
// local checkout flows still complete; webhook signatures are always rejected.
type noopClient struct {
	successURL string
}

func (n noopClient) CreateCheckoutSession(_ context.Context, input CheckoutSessionInput) (*Session, error) {
	return &Session{
		ID:          "noop_" + input.OrderCode,
		CheckoutURL: n.successURL,
	}, nil
}

func (noopClient) VerifySignature([]byte, string) bool { return false }

func (noopClient) Provider() string { return "noop" }

// payMongoClient talks to a PayMongo-style REST API.
type payMongoClient struct {
	cfg    config.Payment
	http   *http.Client
	logger *zap.Logger
}

func newPayMongoClient(cfg config.Payment, logger *zap.Logger) *payMongoClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &payMongoClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (c *payMongoClient) Provider() string { return "paymongo" }

func (c *payMongoClient) VerifySignature(rawBody []byte, signatureHeader string) bool {
	return VerifySignature(c.cfg.WebhookSecret, rawBody, signatureHeader)
}

type checkoutSessionRequest struct {
	Data struct {
		Attributes struct {
			Description        string                `json:"description"`
			LineItems          []checkoutSessionLine `json:"line_items"`
			PaymentMethodTypes []string              `json:"payment_method_types"`
			ReferenceNumber    string                `json:"reference_number"`
			SuccessURL         string                `json:"success_url"`
			CancelURL          string                `json:"cancel_url"`
		} `json:"attributes"`
	} `json:"data"`
}

type checkoutSessionLine struct {
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Quantity int    `json:"quantity"`
}

type checkoutSessionResponse struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			CheckoutURL string `json:"checkout_url"`
		} `json:"attributes"`
	} `json:"data"`
}

func (c *payMongoClient) CreateCheckoutSession(ctx context.Context, input CheckoutSessionInput) (*Session, error) {
	if len(input.LineItems) == 0 {
		return nil, fmt.Errorf("checkout session needs at least one line item")
	}

	var payload checkoutSessionRequest
	payload.Data.Attributes.Description = input.Description
	payload.Data.Attributes.ReferenceNumber = input.OrderCode
	payload.Data.Attributes.PaymentMethodTypes = []string{"qrph", "gcash"}
	payload.Data.Attributes.SuccessURL = input.SuccessURL
	payload.Data.Attributes.CancelURL = input.CancelURL
	for _, item := range input.LineItems {
		payload.Data.Attributes.LineItems = append(payload.Data.Attributes.LineItems, checkoutSessionLine(item))
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/checkout_sessions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.cfg.SecretKey+":")))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("checkout session creation rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("order", input.OrderCode),
		)
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var out checkoutSessionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if out.Data.ID == "" || out.Data.Attributes.CheckoutURL == "" {
		return nil, fmt.Errorf("gateway response missing session id or checkout url")
	}

	return &Session{
		ID:          out.Data.ID,
		CheckoutURL: out.Data.Attributes.CheckoutURL,
	}, nil
}
