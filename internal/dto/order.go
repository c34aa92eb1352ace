package dto

import "time"

// OrderResponse represents an order as exposed via HTTP.
type OrderResponse struct {
	Code          string              `json:"code"`
	CustomerName  string              `json:"customerName"`
	Contact       string              `json:"contact"`
	Address       string              `json:"address"`
	Subtotal      float64             `json:"subtotal"`
	DeliveryFee   float64             `json:"deliveryFee"`
	Total         float64             `json:"total"`
	Status        string              `json:"status"`
	StatusLabel   string              `json:"statusLabel"`
	PaymentStatus string              `json:"paymentStatus"`
	PaymentMethod string              `json:"paymentMethod"`
	PaidAt        *time.Time          `json:"paidAt,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	Items         []OrderItemResponse `json:"items"`
}

// OrderItemResponse is an order line snapshot as exposed via HTTP.
type OrderItemResponse struct {
	SKU       string  `json:"sku"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Unit      string  `json:"unit"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"lineTotal"`
}

// OrderEventResponse is one audit-trail entry as exposed via HTTP.
type OrderEventResponse struct {
	Status      string    `json:"status"`
	StatusLabel string    `json:"statusLabel"`
	Note        string    `json:"note"`
	CreatedAt   time.Time `json:"createdAt"`
}
