package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Payment records the gateway side of an order's settlement. Logically 1:1
// with an order; the schema allows more than one row per order for future
// partial or retried payments. Gateway identifiers double as idempotency keys
// for webhook deliveries.
type Payment struct {
	bun.BaseModel `bun:"table:payments"`

	ID                int64         `bun:",pk,autoincrement" json:"id"`
	OrderID           int64         `bun:"order_id" json:"orderId"`
	Provider          string        `bun:"provider" json:"provider"`
	Status            PaymentStatus `bun:"status" json:"status"`
	Amount            float64       `bun:"amount" json:"amount"`
	Currency          string        `bun:"currency" json:"currency"`
	GatewayEventID    string        `bun:"gateway_event_id,nullzero" json:"gatewayEventId,omitempty"`
	CheckoutSessionID string        `bun:"checkout_session_id,nullzero" json:"checkoutSessionId,omitempty"`
	GatewayPaymentID  string        `bun:"gateway_payment_id,nullzero" json:"gatewayPaymentId,omitempty"`
	RawPayload        []byte        `bun:"raw_payload,nullzero" json:"-"`
	CreatedAt         time.Time     `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt         time.Time     `bun:"updated_at,nullzero" json:"updatedAt"`
}
