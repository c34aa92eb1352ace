package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jazjo-app/jazjo/internal/entity"
	"github.com/jazjo-app/jazjo/internal/payment"
	orderrepo "github.com/jazjo-app/jazjo/internal/repository/order"
	paymentrepo "github.com/jazjo-app/jazjo/internal/repository/payment"
	"github.com/jazjo-app/jazjo/pkg/errorbank"
)

type fakeOrderStore struct {
	orders []*entity.Order
	events []*entity.OrderStatusEvent
}

func (f *fakeOrderStore) FindByCode(_ context.Context, code string) (*entity.Order, error) {
	for _, o := range f.orders {
		if o.Code == code {
			return o, nil
		}
	}
	return nil, orderrepo.ErrNotFound
}

func (f *fakeOrderStore) FindByCheckoutSession(_ context.Context, sessionID string) (*entity.Order, error) {
	for _, o := range f.orders {
		if o.CheckoutSessionID == sessionID {
			return o, nil
		}
	}
	return nil, orderrepo.ErrNotFound
}

func (f *fakeOrderStore) List(_ context.Context) ([]*entity.Order, error) {
	return f.orders, nil
}

func (f *fakeOrderStore) ListByProfile(_ context.Context, profileID int64) ([]*entity.Order, error) {
	var out []*entity.Order
	for _, o := range f.orders {
		if o.ProfileID == profileID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrderStore) UpdateStatus(_ context.Context, orderID int64, status entity.OrderStatus) error {
	for _, o := range f.orders {
		if o.ID == orderID {
			o.Status = status
			return nil
		}
	}
	return orderrepo.ErrNotFound
}

func (f *fakeOrderStore) MarkPaid(_ context.Context, orderID int64, gatewayPaymentID string, paidAt time.Time) error {
	for _, o := range f.orders {
		if o.ID == orderID {
			o.PaymentStatus = entity.PaymentPaid
			o.Status = entity.StatusOrderPlaced
			o.GatewayPaymentID = gatewayPaymentID
			o.PaidAt = &paidAt
			return nil
		}
	}
	return orderrepo.ErrNotFound
}

func (f *fakeOrderStore) AppendEvent(_ context.Context, event *entity.OrderStatusEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOrderStore) ListEvents(_ context.Context, orderID int64) ([]*entity.OrderStatusEvent, error) {
	var out []*entity.OrderStatusEvent
	for _, e := range f.events {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeOrderStore) HasEventWithNote(_ context.Context, orderID int64, note string) (bool, error) {
	for _, e := range f.events {
		if e.OrderID == orderID && e.Note == note {
			return true, nil
		}
	}
	return false, nil
}

type fakePaymentStore struct {
	payments []*entity.Payment
}

func (f *fakePaymentStore) FindByGatewayEvent(_ context.Context, eventID string) (*entity.Payment, error) {
	for _, p := range f.payments {
		if p.GatewayEventID == eventID {
			return p, nil
		}
	}
	return nil, paymentrepo.ErrNotFound
}

func (f *fakePaymentStore) FindByOrder(_ context.Context, orderID int64) (*entity.Payment, error) {
	for _, p := range f.payments {
		if p.OrderID == orderID {
			return p, nil
		}
	}
	return nil, paymentrepo.ErrNotFound
}

func (f *fakePaymentStore) MarkPaid(_ context.Context, paymentID int64, eventID, sessionID, gatewayPaymentID string, rawPayload []byte) error {
	for _, p := range f.payments {
		if p.ID == paymentID {
			p.Status = entity.PaymentPaid
			p.GatewayEventID = eventID
			p.CheckoutSessionID = sessionID
			p.GatewayPaymentID = gatewayPaymentID
			p.RawPayload = rawPayload
			return nil
		}
	}
	return paymentrepo.ErrNotFound
}

type fakeStock struct {
	levels     map[string]int
	deductions []string
}

func (f *fakeStock) DeductStock(_ context.Context, sku string, qty int) error {
	f.deductions = append(f.deductions, sku)
	remaining := f.levels[sku] - qty
	if remaining < 0 {
		remaining = 0
	}
	f.levels[sku] = remaining
	return nil
}

type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) InvalidateCache(context.Context) error {
	f.calls++
	return nil
}

func newTestService(orders *fakeOrderStore, payments *fakePaymentStore, stock *fakeStock, inv *fakeInvalidator) *Service {
	return &Service{
		orders:   orders,
		payments: payments,
		stock:    stock,
		catalog:  inv,
		logger:   zap.NewNop(),
		now:      func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func gcashOrder() *entity.Order {
	return &entity.Order{
		ID:                1,
		Code:              "ORD-20250601-123",
		ProfileID:         7,
		Status:            entity.StatusPendingPayment,
		PaymentStatus:     entity.PaymentPending,
		PaymentMethod:     "gcash",
		CheckoutSessionID: "cs_test_abc",
		Total:             170,
		Items: []*entity.OrderItem{
			{OrderID: 1, SKU: "P001", Quantity: 2},
		},
	}
}

func codOrder() *entity.Order {
	return &entity.Order{
		ID:            2,
		Code:          "ORD-20250601-456",
		ProfileID:     8,
		Status:        entity.StatusOrderPlaced,
		PaymentStatus: entity.PaymentPending,
		PaymentMethod: "cod",
		Total:         260,
	}
}

func staff() *entity.Profile {
	return &entity.Profile{ID: 42, Role: entity.RoleStaff}
}

func TestAdvanceStatusRejectsUnknownStatus(t *testing.T) {
	svc := newTestService(&fakeOrderStore{orders: []*entity.Order{codOrder()}}, &fakePaymentStore{}, nil, nil)

	_, err := svc.AdvanceStatus(context.Background(), "ORD-20250601-456", "shipped", staff())
	assert.True(t, errorbank.IsKind(err, errorbank.KindBadRequest))
}

func TestAdvanceStatusOrderNotFound(t *testing.T) {
	svc := newTestService(&fakeOrderStore{}, &fakePaymentStore{}, nil, nil)

	_, err := svc.AdvanceStatus(context.Background(), "ORD-MISSING", "preparing", staff())
	assert.True(t, errorbank.IsKind(err, errorbank.KindNotFound))
}

func TestAdvanceStatusGuardsUnpaidAsyncOrders(t *testing.T) {
	orders := &fakeOrderStore{orders: []*entity.Order{gcashOrder()}}
	svc := newTestService(orders, &fakePaymentStore{}, nil, nil)

	for _, target := range []string{"order_placed", "preparing", "in_transit", "out_for_delivery", "delivered"} {
		_, err := svc.AdvanceStatus(context.Background(), "ORD-20250601-123", target, staff())
		require.Error(t, err, target)
		assert.True(t, errorbank.IsKind(err, errorbank.KindConflict), target)
	}

	// Cancellation stays open even while payment is pending.
	order, err := svc.AdvanceStatus(context.Background(), "ORD-20250601-123", "cancelled", staff())
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCancelled, order.Status)
}

func TestAdvanceStatusRejectsChainSkips(t *testing.T) {
	orders := &fakeOrderStore{orders: []*entity.Order{codOrder()}}
	svc := newTestService(orders, &fakePaymentStore{}, nil, nil)

	_, err := svc.AdvanceStatus(context.Background(), "ORD-20250601-456", "delivered", staff())
	assert.True(t, errorbank.IsKind(err, errorbank.KindConflict))
}

func TestAdvanceStatusAppendsAuditEvent(t *testing.T) {
	orders := &fakeOrderStore{orders: []*entity.Order{codOrder()}}
	svc := newTestService(orders, &fakePaymentStore{}, nil, nil)

	order, err := svc.AdvanceStatus(context.Background(), "ORD-20250601-456", "preparing", staff())
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPreparing, order.Status)

	require.Len(t, orders.events, 1)
	event := orders.events[0]
	assert.Equal(t, entity.StatusPreparing, event.Status)
	assert.Contains(t, event.Note, "Preparing")
	assert.Contains(t, event.Note, "staff")
	require.NotNil(t, event.ActorID)
	assert.Equal(t, int64(42), *event.ActorID)
}

func TestGetHidesOtherCustomersOrders(t *testing.T) {
	orders := &fakeOrderStore{orders: []*entity.Order{gcashOrder()}}
	svc := newTestService(orders, &fakePaymentStore{}, nil, nil)

	other := &entity.Profile{ID: 99, Role: entity.RoleCustomer}
	_, err := svc.Get(context.Background(), "ORD-20250601-123", other)
	assert.True(t, errorbank.IsKind(err, errorbank.KindNotFound))

	owner := &entity.Profile{ID: 7, Role: entity.RoleCustomer}
	order, err := svc.Get(context.Background(), "ORD-20250601-123", owner)
	require.NoError(t, err)
	assert.Equal(t, "ORD-20250601-123", order.Code)

	order, err = svc.Get(context.Background(), "ORD-20250601-123", staff())
	require.NoError(t, err)
	assert.Equal(t, "ORD-20250601-123", order.Code)
}

func paidEvent() *payment.WebhookEvent {
	return &payment.WebhookEvent{
		EventID:           "evt_001",
		Type:              payment.EventCheckoutSessionPaid,
		OrderCode:         "ORD-20250601-123",
		CheckoutSessionID: "cs_test_abc",
		GatewayPaymentID:  "pay_001",
		Raw:               []byte(`{"data":{"id":"evt_001"}}`),
	}
}

func TestConfirmPaymentSettlesOrder(t *testing.T) {
	order := gcashOrder()
	orders := &fakeOrderStore{orders: []*entity.Order{order}}
	payments := &fakePaymentStore{payments: []*entity.Payment{{ID: 1, OrderID: 1, Status: entity.PaymentPending}}}
	stock := &fakeStock{levels: map[string]int{"P001": 20}}
	inv := &fakeInvalidator{}
	svc := newTestService(orders, payments, stock, inv)

	duplicate, err := svc.ConfirmPayment(context.Background(), paidEvent())
	require.NoError(t, err)
	assert.False(t, duplicate)

	assert.Equal(t, entity.PaymentPaid, order.PaymentStatus)
	assert.Equal(t, entity.StatusOrderPlaced, order.Status)
	assert.Equal(t, "pay_001", order.GatewayPaymentID)
	require.NotNil(t, order.PaidAt)

	assert.Equal(t, 18, stock.levels["P001"])
	assert.Equal(t, 1, inv.calls)

	assert.Equal(t, entity.PaymentPaid, payments.payments[0].Status)
	assert.Equal(t, "evt_001", payments.payments[0].GatewayEventID)
	assert.NotEmpty(t, payments.payments[0].RawPayload)

	deducted, err := orders.HasEventWithNote(context.Background(), 1, entity.StockDeductedNote)
	require.NoError(t, err)
	assert.True(t, deducted)
}

func TestConfirmPaymentDuplicateEventIsNoOp(t *testing.T) {
	order := gcashOrder()
	orders := &fakeOrderStore{orders: []*entity.Order{order}}
	payments := &fakePaymentStore{payments: []*entity.Payment{{ID: 1, OrderID: 1, Status: entity.PaymentPending}}}
	stock := &fakeStock{levels: map[string]int{"P001": 20}}
	svc := newTestService(orders, payments, stock, &fakeInvalidator{})

	duplicate, err := svc.ConfirmPayment(context.Background(), paidEvent())
	require.NoError(t, err)
	require.False(t, duplicate)
	require.Equal(t, 18, stock.levels["P001"])

	duplicate, err = svc.ConfirmPayment(context.Background(), paidEvent())
	require.NoError(t, err)
	assert.True(t, duplicate)

	// Redelivery changes nothing.
	assert.Equal(t, 18, stock.levels["P001"])
	assert.Len(t, stock.deductions, 1)
	assert.Equal(t, entity.PaymentPaid, order.PaymentStatus)
}

func TestConfirmPaymentStockMarkerGuardsDeduction(t *testing.T) {
	order := gcashOrder()
	orders := &fakeOrderStore{orders: []*entity.Order{order}}
	// Marker already present from an earlier partial run.
	orders.events = append(orders.events, &entity.OrderStatusEvent{
		OrderID: 1,
		Status:  entity.StatusOrderPlaced,
		Note:    entity.StockDeductedNote,
	})
	payments := &fakePaymentStore{payments: []*entity.Payment{{ID: 1, OrderID: 1, Status: entity.PaymentPending}}}
	stock := &fakeStock{levels: map[string]int{"P001": 18}}
	svc := newTestService(orders, payments, stock, &fakeInvalidator{})

	duplicate, err := svc.ConfirmPayment(context.Background(), paidEvent())
	require.NoError(t, err)
	assert.False(t, duplicate)

	assert.Empty(t, stock.deductions)
	assert.Equal(t, 18, stock.levels["P001"])
	assert.Equal(t, entity.PaymentPaid, payments.payments[0].Status)
}

func TestConfirmPaymentResolvesByCheckoutSession(t *testing.T) {
	order := gcashOrder()
	orders := &fakeOrderStore{orders: []*entity.Order{order}}
	payments := &fakePaymentStore{payments: []*entity.Payment{{ID: 1, OrderID: 1, Status: entity.PaymentPending}}}
	stock := &fakeStock{levels: map[string]int{"P001": 20}}
	svc := newTestService(orders, payments, stock, &fakeInvalidator{})

	event := paidEvent()
	event.OrderCode = ""

	duplicate, err := svc.ConfirmPayment(context.Background(), event)
	require.NoError(t, err)
	assert.False(t, duplicate)
	assert.Equal(t, entity.PaymentPaid, order.PaymentStatus)
}

func TestConfirmPaymentUnmatchedEvent(t *testing.T) {
	svc := newTestService(&fakeOrderStore{}, &fakePaymentStore{}, &fakeStock{levels: map[string]int{}}, nil)

	event := paidEvent()
	_, err := svc.ConfirmPayment(context.Background(), event)
	assert.True(t, errorbank.IsKind(err, errorbank.KindNotFound))

	event.EventID = ""
	_, err = svc.ConfirmPayment(context.Background(), event)
	assert.True(t, errorbank.IsKind(err, errorbank.KindBadRequest))
}
