package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jazjo-app/jazjo/internal/config"
)

func signBody(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	secret := "whsk_test_secret"
	body := []byte(`{"data":{"id":"evt_001"}}`)
	header := fmt.Sprintf("t=1717243200,te=%s", signBody(secret, "1717243200", body))

	assert.True(t, VerifySignature(secret, body, header))

	// Live-mode candidate is accepted too.
	liveHeader := fmt.Sprintf("t=1717243200,li=%s", signBody(secret, "1717243200", body))
	assert.True(t, VerifySignature(secret, body, liveHeader))
}

func TestVerifySignatureRejectsTamperedBody(t *testing.T) {
	secret := "whsk_test_secret"
	body := []byte(`{"data":{"id":"evt_001"}}`)
	header := fmt.Sprintf("t=1717243200,te=%s", signBody(secret, "1717243200", body))

	tampered := append([]byte(nil), body...)
	tampered[len(tampered)-2] = 'X'
	assert.False(t, VerifySignature(secret, tampered, header))

	// The same tampered body verifies once the HMAC is recomputed over it.
	recomputed := fmt.Sprintf("t=1717243200,te=%s", signBody(secret, "1717243200", tampered))
	assert.True(t, VerifySignature(secret, tampered, recomputed))
}

func TestVerifySignatureRejectsMalformedHeaders(t *testing.T) {
	secret := "whsk_test_secret"
	body := []byte(`{}`)
	valid := signBody(secret, "1717243200", body)

	assert.False(t, VerifySignature("", body, "t=1717243200,te="+valid))
	assert.False(t, VerifySignature(secret, body, ""))
	assert.False(t, VerifySignature(secret, body, "te="+valid))
	assert.False(t, VerifySignature(secret, body, "t=1717243200"))
	assert.False(t, VerifySignature(secret, body, "t=1717243201,te="+valid))
}

func TestToCentavos(t *testing.T) {
	assert.Equal(t, int64(5500), ToCentavos(55))
	assert.Equal(t, int64(17050), ToCentavos(170.5))
	assert.Equal(t, int64(7999), ToCentavos(79.99))
	assert.Equal(t, int64(0), ToCentavos(0))
}

func TestParseWebhookEvent(t *testing.T) {
	raw := []byte(`{
		"data": {
			"id": "evt_001",
			"attributes": {
				"type": "checkout_session.payment.paid",
				"data": {
					"id": "cs_test_abc",
					"attributes": {
						"reference_number": "ORD-20250601-123",
						"payments": [{"id": "pay_001"}]
					}
				}
			}
		}
	}`)

	event, err := ParseWebhookEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, "evt_001", event.EventID)
	assert.Equal(t, "ORD-20250601-123", event.OrderCode)
	assert.Equal(t, "cs_test_abc", event.CheckoutSessionID)
	assert.Equal(t, "pay_001", event.GatewayPaymentID)
	assert.True(t, event.Paid())
	assert.Equal(t, raw, event.Raw)

	_, err = ParseWebhookEvent([]byte(`{"data":{}}`))
	assert.Error(t, err)

	_, err = ParseWebhookEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestParseWebhookEventIgnoredType(t *testing.T) {
	raw := []byte(`{"data":{"id":"evt_002","attributes":{"type":"checkout_session.payment.failed"}}}`)
	event, err := ParseWebhookEvent(raw)
	require.NoError(t, err)
	assert.False(t, event.Paid())
}

func TestPayMongoCreateCheckoutSession(t *testing.T) {
	var captured checkoutSessionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout_sessions", r.URL.Path)
		user, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "sk_test_key", user)

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":{"id":"cs_test_abc","attributes":{"checkout_url":"https://pay.example/cs_test_abc"}}}`)
	}))
	defer server.Close()

	client := newPayMongoClient(config.Payment{
		BaseURL:   server.URL,
		SecretKey: "sk_test_key",
	}, zap.NewNop())

	session, err := client.CreateCheckoutSession(context.Background(), CheckoutSessionInput{
		OrderCode:   "ORD-20250601-123",
		Description: "Jazjo order ORD-20250601-123",
		LineItems: []LineItem{
			{Name: "Purified Water Round", Amount: 5500, Currency: "PHP", Quantity: 2},
			{Name: "Delivery fee", Amount: 6000, Currency: "PHP", Quantity: 1},
		},
		SuccessURL: "https://jazjo.example/thanks",
		CancelURL:  "https://jazjo.example/cart",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_abc", session.ID)
	assert.Equal(t, "https://pay.example/cs_test_abc", session.CheckoutURL)

	assert.Equal(t, "ORD-20250601-123", captured.Data.Attributes.ReferenceNumber)
	require.Len(t, captured.Data.Attributes.LineItems, 2)
	assert.Equal(t, int64(5500), captured.Data.Attributes.LineItems[0].Amount)
}

func TestPayMongoCreateCheckoutSessionGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newPayMongoClient(config.Payment{BaseURL: server.URL, SecretKey: "bad"}, zap.NewNop())

	_, err := client.CreateCheckoutSession(context.Background(), CheckoutSessionInput{
		OrderCode: "ORD-1",
		LineItems: []LineItem{{Name: "x", Amount: 100, Currency: "PHP", Quantity: 1}},
	})
	assert.Error(t, err)
}

func TestNoopClient(t *testing.T) {
	client := noopClient{successURL: "https://jazjo.example/thanks"}

	session, err := client.CreateCheckoutSession(context.Background(), CheckoutSessionInput{OrderCode: "ORD-1"})
	require.NoError(t, err)
	assert.Equal(t, "noop_ORD-1", session.ID)
	assert.Equal(t, "https://jazjo.example/thanks", session.CheckoutURL)

	assert.False(t, client.VerifySignature([]byte(`{}`), "t=1,te=abc"))
}
