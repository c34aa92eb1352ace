package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/jazjo-app/jazjo/internal/config"
	"github.com/jazjo-app/jazjo/internal/entity"
	"github.com/jazjo-app/jazjo/internal/messaging"
	"github.com/jazjo-app/jazjo/internal/payment"
	orderrepo "github.com/jazjo-app/jazjo/internal/repository/order"
	paymentrepo "github.com/jazjo-app/jazjo/internal/repository/payment"
	productrepo "github.com/jazjo-app/jazjo/internal/repository/product"
	"github.com/jazjo-app/jazjo/internal/service/catalog"
	"github.com/jazjo-app/jazjo/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/jazjo-app/jazjo/service/lifecycle")

// OrderStore is the order repository surface the lifecycle manager needs.
type OrderStore interface {
	FindByCode(ctx context.Context, code string) (*entity.Order, error)
	FindByCheckoutSession(ctx context.Context, sessionID string) (*entity.Order, error)
	List(ctx context.Context) ([]*entity.Order, error)
	ListByProfile(ctx context.Context, profileID int64) ([]*entity.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, status entity.OrderStatus) error
	MarkPaid(ctx context.Context, orderID int64, gatewayPaymentID string, paidAt time.Time) error
	AppendEvent(ctx context.Context, event *entity.OrderStatusEvent) error
	ListEvents(ctx context.Context, orderID int64) ([]*entity.OrderStatusEvent, error)
	HasEventWithNote(ctx context.Context, orderID int64, note string) (bool, error)
}

// PaymentStore is the payment repository surface the lifecycle manager needs.
type PaymentStore interface {
	FindByGatewayEvent(ctx context.Context, eventID string) (*entity.Payment, error)
	FindByOrder(ctx context.Context, orderID int64) (*entity.Payment, error)
	MarkPaid(ctx context.Context, paymentID int64, eventID, sessionID, gatewayPaymentID string, rawPayload []byte) error
}

// StockDeducter lowers product stock after payment confirmation.
type StockDeducter interface {
	DeductStock(ctx context.Context, sku string, qty int) error
}

// CacheInvalidator drops the cached catalog listing after stock changes.
type CacheInvalidator interface {
	InvalidateCache(ctx context.Context) error
}

// Service is the only sanctioned mutator of order status. It enforces the
// transition chain, guards unpaid asynchronous-payment orders, keeps the
// audit trail, and reconciles gateway webhook notifications idempotently.
type Service struct {
	orders    OrderStore
	payments  PaymentStore
	stock     StockDeducter
	catalog   CacheInvalidator
	publisher messaging.Client
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

	Orders   *orderrepo.Repository
	Payments *paymentrepo.Repository
	Products *productrepo.Repository
	Catalog  *catalog.Service
	Config   config.Config
	Logger   *zap.Logger
	Client   messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		orders:    p.Orders,
		payments:  p.Payments,
		stock:     p.Products,
		catalog:   p.Catalog,
		publisher: p.Client,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
			topic:   p.Config.Messaging.Kafka.Topic,
		},
		logger: p.Logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Get returns one order by code. Customers can only see their own orders;
// the response for someone else's order is indistinguishable from a missing
// one.
func (s *Service) Get(ctx context.Context, code string, requester *entity.Profile) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "LifecycleService.Get", trace.WithAttributes(attribute.String("order.code", code)))
	defer span.End()

	order, err := s.findByCode(ctx, span, code)
	if err != nil {
		return nil, err
	}
	if requester != nil && requester.Role == entity.RoleCustomer && order.ProfileID != requester.ID {
		return nil, errorbank.NotFound("order not found")
	}
	return order, nil
}

// ListForRequester returns all orders for staff and admins, and only the
// requester's own orders for customers.
func (s *Service) ListForRequester(ctx context.Context, requester *entity.Profile) ([]*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "LifecycleService.ListForRequester")
	defer span.End()

	if requester == nil {
		return nil, errorbank.Unauthorized("sign in to view orders")
	}

	var (
		orders []*entity.Order
		err    error
	)
	if requester.Role == entity.RoleCustomer {
		orders, err = s.orders.ListByProfile(ctx, requester.ID)
	} else {
		orders, err = s.orders.List(ctx)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Upstream("failed to load orders", errorbank.WithCause(err))
	}
	return orders, nil
}

// Events returns an order's audit trail, applying the same visibility rule
// as Get.
func (s *Service) Events(ctx context.Context, code string, requester *entity.Profile) ([]*entity.OrderStatusEvent, error) {
	ctx, span := serviceTracer.Start(ctx, "LifecycleService.Events", trace.WithAttributes(attribute.String("order.code", code)))
	defer span.End()

	order, err := s.Get(ctx, code, requester)
	if err != nil {
		return nil, err
	}
	events, err := s.orders.ListEvents(ctx, order.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Upstream("failed to load order events", errorbank.WithCause(err))
	}
	return events, nil
}

// AdvanceStatus moves an order to the requested status. Orders with an
// asynchronous payment method that has not settled may only stay pending or
// be cancelled; everything else is a conflict, never a silent coercion.
func (s *Service) AdvanceStatus(ctx context.Context, code string, requested string, actor *entity.Profile) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "LifecycleService.AdvanceStatus", trace.WithAttributes(
		attribute.String("order.code", code),
		attribute.String("order.requested_status", requested),
	))
	defer span.End()

	target, ok := entity.ParseOrderStatus(requested)
	if !ok {
		return nil, errorbank.BadRequest(fmt.Sprintf("unknown order status: %s", requested))
	}

	order, err := s.findByCode(ctx, span, code)
	if err != nil {
		return nil, err
	}

	if entity.PaymentMethodRequiresConfirmation(order.PaymentMethod) &&
		order.PaymentStatus != entity.PaymentPaid &&
		target != entity.StatusPendingPayment && target != entity.StatusCancelled {
		return nil, errorbank.Conflict("payment not confirmed for this order")
	}

	if !order.Status.CanTransitionTo(target) {
		return nil, errorbank.Conflict(
			fmt.Sprintf("cannot move order from %s to %s", order.Status.Label(), target.Label()),
		)
	}

	if err := s.orders.UpdateStatus(ctx, order.ID, target); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return nil, errorbank.Upstream("failed to update order status", errorbank.WithCause(err))
	}

	now := s.now()
	event := &entity.OrderStatusEvent{
		OrderID:   order.ID,
		Status:    target,
		CreatedAt: now,
	}
	if actor != nil {
		actorID := actor.ID
		event.ActorID = &actorID
		event.Note = fmt.Sprintf("Status set to %s by %s", target.Label(), actor.Role)
	} else {
		event.Note = fmt.Sprintf("Status set to %s", target.Label())
	}
	if err := s.orders.AppendEvent(ctx, event); err != nil {
		span.RecordError(err)
		if s.logger != nil {
			s.logger.Error("failed to append status event", zap.String("order", code), zap.Error(err))
		}
	}

	order.Status = target
	order.UpdatedAt = now
	return order, nil
}

// ConfirmPayment reconciles a gateway webhook notification. Gateways retry
// deliveries, so the whole sequence is idempotent: the gateway event id is
// the outer duplicate check, and the stock-deduction audit marker guards the
// deduction on its own so stock can never double-apply. Returns true when the
// event was a duplicate no-op.
func (s *Service) ConfirmPayment(ctx context.Context, event *payment.WebhookEvent) (bool, error) {
	ctx, span := serviceTracer.Start(ctx, "LifecycleService.ConfirmPayment", trace.WithAttributes(
		attribute.String("gateway.event_id", event.EventID),
	))
	defer span.End()

	if event.EventID == "" {
		return false, errorbank.BadRequest("webhook event missing identifier")
	}

	_, err := s.payments.FindByGatewayEvent(ctx, event.EventID)
	if err == nil {
		span.SetAttributes(attribute.Bool("webhook.duplicate", true))
		if s.logger != nil {
			s.logger.Info("duplicate webhook delivery ignored", zap.String("event", event.EventID))
		}
		return true, nil
	}
	if !errors.Is(err, paymentrepo.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "idempotency lookup failed")
		return false, errorbank.Upstream("failed to check webhook event", errorbank.WithCause(err))
	}

	order, err := s.resolveOrder(ctx, event)
	if err != nil {
		span.RecordError(err)
		return false, err
	}

	now := s.now()
	if err := s.orders.MarkPaid(ctx, order.ID, event.GatewayPaymentID, now); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "mark paid failed")
		return false, errorbank.Upstream("failed to mark order paid", errorbank.WithCause(err))
	}

	deducted, err := s.orders.HasEventWithNote(ctx, order.ID, entity.StockDeductedNote)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stock marker lookup failed")
		return false, errorbank.Upstream("failed to check stock marker", errorbank.WithCause(err))
	}
	if !deducted {
		for _, item := range order.Items {
			if err := s.stock.DeductStock(ctx, item.SKU, item.Quantity); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "stock deduction failed")
				return false, errorbank.Upstream("failed to deduct stock", errorbank.WithCause(err))
			}
		}
		if err := s.orders.AppendEvent(ctx, &entity.OrderStatusEvent{
			OrderID:   order.ID,
			Status:    entity.StatusOrderPlaced,
			Note:      entity.StockDeductedNote,
			CreatedAt: now,
		}); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "stock marker append failed")
			return false, errorbank.Upstream("failed to record stock deduction", errorbank.WithCause(err))
		}
		if s.catalog != nil {
			if err := s.catalog.InvalidateCache(ctx); err != nil && s.logger != nil {
				s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
			}
		}
	}

	payRow, err := s.payments.FindByOrder(ctx, order.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "payment lookup failed")
		return false, errorbank.Upstream("failed to load payment record", errorbank.WithCause(err))
	}
	if err := s.payments.MarkPaid(ctx, payRow.ID, event.EventID, event.CheckoutSessionID, event.GatewayPaymentID, event.Raw); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "payment update failed")
		return false, errorbank.Upstream("failed to update payment record", errorbank.WithCause(err))
	}

	if err := s.orders.AppendEvent(ctx, &entity.OrderStatusEvent{
		OrderID:   order.ID,
		Status:    entity.StatusOrderPlaced,
		Note:      "Payment confirmed via gateway webhook",
		CreatedAt: now,
	}); err != nil {
		span.RecordError(err)
		if s.logger != nil {
			s.logger.Error("failed to append payment event", zap.String("order", order.Code), zap.Error(err))
		}
	}

	s.publishPaymentConfirmed(ctx, order, event)

	if s.logger != nil {
		s.logger.Info("payment confirmed",
			zap.String("order", order.Code),
			zap.String("event", event.EventID),
			zap.String("gateway_payment", event.GatewayPaymentID),
		)
	}
	return false, nil
}

func (s *Service) findByCode(ctx context.Context, span trace.Span, code string) (*entity.Order, error) {
	order, err := s.orders.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, orderrepo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Upstream("failed to load order", errorbank.WithCause(err))
	}
	return order, nil
}

// resolveOrder locates the order a webhook refers to: by reference code when
// the gateway echoed one, otherwise by the stored checkout session id.
func (s *Service) resolveOrder(ctx context.Context, event *payment.WebhookEvent) (*entity.Order, error) {
	if event.OrderCode != "" {
		order, err := s.orders.FindByCode(ctx, event.OrderCode)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, orderrepo.ErrNotFound) {
			return nil, errorbank.Upstream("failed to load order", errorbank.WithCause(err))
		}
	}
	if event.CheckoutSessionID != "" {
		order, err := s.orders.FindByCheckoutSession(ctx, event.CheckoutSessionID)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, orderrepo.ErrNotFound) {
			return nil, errorbank.Upstream("failed to load order", errorbank.WithCause(err))
		}
	}
	return nil, errorbank.NotFound("no order matches webhook event")
}

func (s *Service) publishPaymentConfirmed(ctx context.Context, order *entity.Order, event *payment.WebhookEvent) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	payload, err := json.Marshal(PaymentConfirmedEvent{
		Type:             "order.payment_confirmed",
		Code:             order.Code,
		GatewayEventID:   event.EventID,
		GatewayPaymentID: event.GatewayPaymentID,
		Total:            order.Total,
		ConfirmedAt:      s.now(),
	})
	if err != nil {
		if s.logger != nil {
			s.logger.Error("marshal payment confirmed", zap.Error(err))
		}
		return
	}
	if err := s.publisher.Publish(ctx, []byte(order.Code), payload); err != nil {
		if s.logger != nil {
			s.logger.Error("publish payment confirmed", zap.Error(err))
		}
	}
}

// PaymentConfirmedEvent is emitted after a webhook settles an order.
type PaymentConfirmedEvent struct {
	Type             string    `json:"type"`
	Code             string    `json:"code"`
	GatewayEventID   string    `json:"gatewayEventId"`
	GatewayPaymentID string    `json:"gatewayPaymentId"`
	Total            float64   `json:"total"`
	ConfirmedAt      time.Time `json:"confirmedAt"`
}
