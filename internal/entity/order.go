package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Order is the purchase header. Item rows and the customer snapshot fields are
// immutable after creation; only the lifecycle manager mutates status and
// payment fields.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID                int64         `bun:",pk,autoincrement" json:"id"`
	Code              string        `bun:"code" json:"code"`
	ProfileID         int64         `bun:"profile_id" json:"profileId"`
	CustomerName      string        `bun:"customer_name" json:"customerName"`
	Contact           string        `bun:"contact" json:"contact"`
	Address           string        `bun:"address" json:"address"`
	Subtotal          float64       `bun:"subtotal" json:"subtotal"`
	DeliveryFee       float64       `bun:"delivery_fee" json:"deliveryFee"`
	Total             float64       `bun:"total" json:"total"`
	Status            OrderStatus   `bun:"status" json:"status"`
	PaymentStatus     PaymentStatus `bun:"payment_status" json:"paymentStatus"`
	PaymentMethod     string        `bun:"payment_method" json:"paymentMethod"`
	CheckoutSessionID string        `bun:"checkout_session_id,nullzero" json:"checkoutSessionId,omitempty"`
	GatewayPaymentID  string        `bun:"gateway_payment_id,nullzero" json:"gatewayPaymentId,omitempty"`
	PaidAt            *time.Time    `bun:"paid_at" json:"paidAt,omitempty"`
	CreatedAt         time.Time     `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt         time.Time     `bun:"updated_at,nullzero" json:"updatedAt"`

	Items []*OrderItem `bun:"rel:has-many,join:id=order_id" json:"items,omitempty"`
}

// OrderItem snapshots a product at order time so later catalog edits never
// alter historical orders.
type OrderItem struct {
	bun.BaseModel `bun:"table:order_items"`

	ID        int64     `bun:",pk,autoincrement" json:"id"`
	OrderID   int64     `bun:"order_id" json:"orderId"`
	SKU       string    `bun:"sku" json:"sku"`
	Name      string    `bun:"name" json:"name"`
	Category  string    `bun:"category" json:"category"`
	Unit      string    `bun:"unit" json:"unit"`
	UnitPrice float64   `bun:"unit_price" json:"unitPrice"`
	Quantity  int       `bun:"quantity" json:"quantity"`
	LineTotal float64   `bun:"line_total" json:"lineTotal"`
	ImageURL  string    `bun:"image_url" json:"imageUrl"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// OrderStatusEvent is one entry in an order's append-only audit trail.
// ActorID is nil for system-generated events such as webhook confirmations.
type OrderStatusEvent struct {
	bun.BaseModel `bun:"table:order_status_events"`

	ID        int64       `bun:",pk,autoincrement" json:"id"`
	OrderID   int64       `bun:"order_id" json:"orderId"`
	Status    OrderStatus `bun:"status" json:"status"`
	Note      string      `bun:"note" json:"note"`
	ActorID   *int64      `bun:"actor_id" json:"actorId,omitempty"`
	CreatedAt time.Time   `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// StockDeductedNote marks the audit event appended once stock has been
// deducted for an order. Its presence is the second idempotency check during
// payment confirmation.
const StockDeductedNote = "Stock deducted for paid order"
