package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/jazjo-app/jazjo/internal/config"
	"github.com/jazjo-app/jazjo/internal/entity"
	"github.com/jazjo-app/jazjo/internal/messaging"
	"github.com/jazjo-app/jazjo/internal/payment"
	orderrepo "github.com/jazjo-app/jazjo/internal/repository/order"
	paymentrepo "github.com/jazjo-app/jazjo/internal/repository/payment"
	"github.com/jazjo-app/jazjo/internal/service/catalog"
	"github.com/jazjo-app/jazjo/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/jazjo-app/jazjo/service/checkout")

// CreatedNote is the audit note on an order's initial status event.
const CreatedNote = "Order created from web checkout."

// CatalogReader resolves cart SKUs against the authoritative catalog.
type CatalogReader interface {
	FindBySKUs(ctx context.Context, skus []string) ([]*entity.Product, error)
}

// OrderWriter is the order repository surface checkout needs.
type OrderWriter interface {
	Create(ctx context.Context, order *entity.Order) error
	InsertItems(ctx context.Context, items []*entity.OrderItem) error
	AppendEvent(ctx context.Context, event *entity.OrderStatusEvent) error
	SetCheckoutSession(ctx context.Context, orderID int64, sessionID string) error
	Delete(ctx context.Context, orderID int64) error
	DeleteItems(ctx context.Context, orderID int64) error
}

// PaymentWriter is the payment repository surface checkout needs.
type PaymentWriter interface {
	Create(ctx context.Context, p *entity.Payment) error
	SetCheckoutSession(ctx context.Context, paymentID int64, sessionID string) error
	Delete(ctx context.Context, paymentID int64) error
}

// ItemInput is one cart line as submitted by the client. Prices are never
// taken from the client.
type ItemInput struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// Input is the checkout payload.
type Input struct {
	CustomerName  string      `json:"customerName"`
	Contact       string      `json:"contact"`
	Address       string      `json:"address"`
	PaymentMethod string      `json:"paymentMethod"`
	Items         []ItemInput `json:"items"`
}

// Result is a successfully created order, plus the hosted checkout URL when
// the payment method settles asynchronously.
type Result struct {
	Order       *entity.Order
	CheckoutURL string
}

// Service builds orders: validates the cart, re-prices it server-side, and
// persists the order with its item snapshots, initial audit event, and
// placeholder payment row.
type Service struct {
	catalog   CatalogReader
	orders    OrderWriter
	payments  PaymentWriter
	gateway   payment.Client
	publisher messaging.Client
	policy    config.Checkout
	urls      config.Payment
	messaging messagingConfig
	logger    *zap.Logger
	now       func() time.Time
}

type messagingConfig struct {
	enabled bool
	topic   string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Catalog  *catalog.Service
	Orders   *orderrepo.Repository
	Payments *paymentrepo.Repository
	Gateway  payment.Client
	Config   config.Config
	Logger   *zap.Logger
	Client   messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		catalog:   p.Catalog,
		orders:    p.Orders,
		payments:  p.Payments,
		gateway:   p.Gateway,
		publisher: p.Client,
		policy:    p.Config.Checkout,
		urls:      p.Config.Payment,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
			topic:   p.Config.Messaging.Kafka.Topic,
		},
		logger: p.Logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// DeliveryFee applies the flat-fee policy: free delivery at or above the
// threshold, the flat fee below it.
func (s *Service) DeliveryFee(subtotal float64) float64 {
	if subtotal <= 0 || subtotal >= s.policy.FreeDeliveryThreshold {
		return 0
	}
	return s.policy.DeliveryFee
}

// Create validates, re-prices, and persists a new order for the requester.
func (s *Service) Create(ctx context.Context, requester *entity.Profile, input Input) (*Result, error) {
	ctx, span := serviceTracer.Start(ctx, "CheckoutService.Create")
	defer span.End()

	if requester == nil {
		return nil, errorbank.Unauthorized("sign in to place an order")
	}
	if strings.TrimSpace(input.CustomerName) == "" ||
		strings.TrimSpace(input.Contact) == "" ||
		strings.TrimSpace(input.Address) == "" {
		return nil, errorbank.BadRequest("customer name, contact, and address are required")
	}
	if strings.TrimSpace(input.PaymentMethod) == "" {
		return nil, errorbank.BadRequest("payment method is required")
	}
	if len(input.Items) == 0 {
		return nil, errorbank.BadRequest("order must contain at least one item")
	}

	merged, skus := mergeItems(input.Items)
	for _, sku := range skus {
		if merged[sku] <= 0 {
			return nil, errorbank.BadRequest(fmt.Sprintf("quantity for %s must be greater than zero", sku))
		}
	}

	products, err := s.catalog.FindBySKUs(ctx, skus)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "catalog lookup failed")
		return nil, err
	}

	now := s.now()
	var subtotal float64
	items := make([]*entity.OrderItem, 0, len(products))
	for _, product := range products {
		qty := merged[product.SKU]
		if product.StockCases < qty {
			return nil, errorbank.BadRequest(
				fmt.Sprintf("not enough stock for %s: %d case(s) left", product.Name, product.StockCases),
				errorbank.WithDetail("sku", product.SKU),
			)
		}
		lineTotal := product.Price * float64(qty)
		subtotal += lineTotal
		items = append(items, &entity.OrderItem{
			SKU:       product.SKU,
			Name:      product.Name,
			Category:  product.Category,
			Unit:      product.Unit,
			UnitPrice: product.Price,
			Quantity:  qty,
			LineTotal: lineTotal,
			ImageURL:  product.ImageURL,
			CreatedAt: now,
		})
	}

	fee := s.DeliveryFee(subtotal)
	async := entity.PaymentMethodRequiresConfirmation(input.PaymentMethod)
	status := entity.StatusOrderPlaced
	if async {
		status = entity.StatusPendingPayment
	}

	order := &entity.Order{
		Code:          generateOrderCode(now),
		ProfileID:     requester.ID,
		CustomerName:  strings.TrimSpace(input.CustomerName),
		Contact:       strings.TrimSpace(input.Contact),
		Address:       strings.TrimSpace(input.Address),
		Subtotal:      subtotal,
		DeliveryFee:   fee,
		Total:         subtotal + fee,
		Status:        status,
		PaymentStatus: entity.PaymentPending,
		PaymentMethod: input.PaymentMethod,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	span.SetAttributes(
		attribute.String("order.code", order.Code),
		attribute.Float64("order.total", order.Total),
		attribute.Bool("order.async_payment", async),
	)

	payRow := &entity.Payment{
		Provider:  s.gateway.Provider(),
		Status:    entity.PaymentPending,
		Amount:    order.Total,
		Currency:  s.policy.Currency,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var checkoutURL string
	steps := []sagaStep{
		{
			name: "insert order",
			run: func(ctx context.Context) error {
				return s.orders.Create(ctx, order)
			},
			compensate: func(ctx context.Context) error {
				return s.orders.Delete(ctx, order.ID)
			},
		},
		{
			name: "insert items",
			run: func(ctx context.Context) error {
				for _, item := range items {
					item.OrderID = order.ID
				}
				return s.orders.InsertItems(ctx, items)
			},
			compensate: func(ctx context.Context) error {
				return s.orders.DeleteItems(ctx, order.ID)
			},
		},
		{
			name: "initial status event",
			run: func(ctx context.Context) error {
				actorID := requester.ID
				return s.orders.AppendEvent(ctx, &entity.OrderStatusEvent{
					OrderID:   order.ID,
					Status:    status,
					Note:      CreatedNote,
					ActorID:   &actorID,
					CreatedAt: now,
				})
			},
		},
		{
			name: "placeholder payment",
			run: func(ctx context.Context) error {
				payRow.OrderID = order.ID
				return s.payments.Create(ctx, payRow)
			},
			compensate: func(ctx context.Context) error {
				return s.payments.Delete(ctx, payRow.ID)
			},
		},
	}

	if async {
		steps = append(steps, sagaStep{
			name: "create checkout session",
			run: func(ctx context.Context) error {
				session, err := s.gateway.CreateCheckoutSession(ctx, payment.CheckoutSessionInput{
					OrderCode:   order.Code,
					Description: "Jazjo order " + order.Code,
					LineItems:   s.gatewayLineItems(items, fee),
					SuccessURL:  s.urls.SuccessURL,
					CancelURL:   s.urls.CancelURL,
				})
				if err != nil {
					return err
				}
				if err := s.orders.SetCheckoutSession(ctx, order.ID, session.ID); err != nil {
					return err
				}
				if err := s.payments.SetCheckoutSession(ctx, payRow.ID, session.ID); err != nil {
					return err
				}
				order.CheckoutSessionID = session.ID
				checkoutURL = session.CheckoutURL
				return nil
			},
		})
	}

	if err := runSaga(ctx, s.logger, steps); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order creation failed")
		return nil, errorbank.Upstream("failed to create order", errorbank.WithCause(err))
	}

	order.Items = items
	s.publishOrderPlaced(ctx, order)

	return &Result{Order: order, CheckoutURL: checkoutURL}, nil
}

// gatewayLineItems converts item snapshots to smallest-unit gateway lines,
// appending the delivery fee as its own line when charged.
func (s *Service) gatewayLineItems(items []*entity.OrderItem, fee float64) []payment.LineItem {
	lines := make([]payment.LineItem, 0, len(items)+1)
	for _, item := range items {
		lines = append(lines, payment.LineItem{
			Name:     item.Name,
			Amount:   payment.ToCentavos(item.UnitPrice),
			Currency: s.policy.Currency,
			Quantity: item.Quantity,
		})
	}
	if fee > 0 {
		lines = append(lines, payment.LineItem{
			Name:     "Delivery fee",
			Amount:   payment.ToCentavos(fee),
			Currency: s.policy.Currency,
			Quantity: 1,
		})
	}
	return lines
}

func (s *Service) publishOrderPlaced(ctx context.Context, order *entity.Order) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	event := OrderPlacedEvent{
		Type:      "order.placed",
		Code:      order.Code,
		Status:    string(order.Status),
		Total:     order.Total,
		CreatedAt: order.CreatedAt,
	}
	value, err := json.Marshal(event)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("marshal order placed", zap.Error(err))
		}
		return
	}
	if err := s.publisher.Publish(ctx, []byte(order.Code), value); err != nil {
		if s.logger != nil {
			s.logger.Error("publish order placed", zap.Error(err))
		}
	}
}

// mergeItems collapses duplicate SKUs by summing their quantities, preserving
// first-seen order.
func mergeItems(items []ItemInput) (map[string]int, []string) {
	merged := make(map[string]int, len(items))
	skus := make([]string, 0, len(items))
	for _, item := range items {
		sku := strings.TrimSpace(item.SKU)
		if sku == "" {
			continue
		}
		if _, seen := merged[sku]; !seen {
			skus = append(skus, sku)
		}
		merged[sku] += item.Quantity
	}
	return merged, skus
}

// generateOrderCode produces a human-readable code: date plus random suffix.
func generateOrderCode(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%d", now.Format("20060102"), rand.IntN(900)+100)
}

// OrderPlacedEvent is emitted when a new order is persisted.
type OrderPlacedEvent struct {
	Type      string    `json:"type"`
	Code      string    `json:"code"`
	Status    string    `json:"status"`
	Total     float64   `json:"total"`
	CreatedAt time.Time `json:"createdAt"`
}
