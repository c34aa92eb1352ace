package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jazjo-app/jazjo/internal/config"
	"github.com/jazjo-app/jazjo/internal/entity"
	"github.com/jazjo-app/jazjo/internal/payment"
	"github.com/jazjo-app/jazjo/pkg/errorbank"
)

type fakeCatalog struct {
	products []*entity.Product
	err      error
}

func (f *fakeCatalog) FindBySKUs(_ context.Context, skus []string) ([]*entity.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	wanted := make(map[string]bool, len(skus))
	for _, sku := range skus {
		wanted[sku] = true
	}
	var out []*entity.Product
	for _, p := range f.products {
		if wanted[p.SKU] {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeOrders struct {
	nextID       int64
	created      []*entity.Order
	items        []*entity.OrderItem
	events       []*entity.OrderStatusEvent
	sessions     map[int64]string
	deleted      []int64
	deletedItems []int64

	failCreate      error
	failInsertItems error
	failAppendEvent error
}

func (f *fakeOrders) Create(_ context.Context, order *entity.Order) error {
	if f.failCreate != nil {
		return f.failCreate
	}
	f.nextID++
	order.ID = f.nextID
	f.created = append(f.created, order)
	return nil
}

func (f *fakeOrders) InsertItems(_ context.Context, items []*entity.OrderItem) error {
	if f.failInsertItems != nil {
		return f.failInsertItems
	}
	f.items = append(f.items, items...)
	return nil
}

func (f *fakeOrders) AppendEvent(_ context.Context, event *entity.OrderStatusEvent) error {
	if f.failAppendEvent != nil {
		return f.failAppendEvent
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOrders) SetCheckoutSession(_ context.Context, orderID int64, sessionID string) error {
	if f.sessions == nil {
		f.sessions = make(map[int64]string)
	}
	f.sessions[orderID] = sessionID
	return nil
}

func (f *fakeOrders) Delete(_ context.Context, orderID int64) error {
	f.deleted = append(f.deleted, orderID)
	return nil
}

func (f *fakeOrders) DeleteItems(_ context.Context, orderID int64) error {
	f.deletedItems = append(f.deletedItems, orderID)
	return nil
}

type fakePayments struct {
	nextID     int64
	created    []*entity.Payment
	sessions   map[int64]string
	deleted    []int64
	failCreate error
}

func (f *fakePayments) Create(_ context.Context, p *entity.Payment) error {
	if f.failCreate != nil {
		return f.failCreate
	}
	f.nextID++
	p.ID = f.nextID
	f.created = append(f.created, p)
	return nil
}

func (f *fakePayments) SetCheckoutSession(_ context.Context, paymentID int64, sessionID string) error {
	if f.sessions == nil {
		f.sessions = make(map[int64]string)
	}
	f.sessions[paymentID] = sessionID
	return nil
}

func (f *fakePayments) Delete(_ context.Context, paymentID int64) error {
	f.deleted = append(f.deleted, paymentID)
	return nil
}

type fakeGateway struct {
	sessions int
	err      error
}

func (f *fakeGateway) CreateCheckoutSession(_ context.Context, input payment.CheckoutSessionInput) (*payment.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sessions++
	return &payment.Session{ID: "cs_test_" + input.OrderCode, CheckoutURL: "https://pay.example/" + input.OrderCode}, nil
}

func (f *fakeGateway) VerifySignature([]byte, string) bool { return false }

func (f *fakeGateway) Provider() string { return "paymongo" }

func newTestService(cat *fakeCatalog, orders *fakeOrders, payments *fakePayments, gw *fakeGateway) *Service {
	return &Service{
		catalog:  cat,
		orders:   orders,
		payments: payments,
		gateway:  gw,
		policy: config.Checkout{
			Currency:              "PHP",
			DeliveryFee:           60,
			FreeDeliveryThreshold: 800,
		},
		urls: config.Payment{
			SuccessURL: "https://jazjo.example/thanks",
			CancelURL:  "https://jazjo.example/cart",
		},
		logger: zap.NewNop(),
		now:    func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) },
	}
}

func customer() *entity.Profile {
	return &entity.Profile{ID: 7, Email: "buyer@example.com", Role: entity.RoleCustomer}
}

func waterCatalog() *fakeCatalog {
	return &fakeCatalog{products: []*entity.Product{
		{SKU: "P001", Name: "Purified Water Round", Category: "Water", Unit: "case", Price: 55, StockCases: 20, Active: true},
		{SKU: "P002", Name: "Purified Water Slim", Category: "Water", Unit: "case", Price: 50, StockCases: 3, Active: true},
		{SKU: "P003", Name: "Mineral Water 500ml", Category: "Water", Unit: "case", Price: 180, StockCases: 50, Active: true},
	}}
}

func TestDeliveryFeeStepFunction(t *testing.T) {
	svc := newTestService(waterCatalog(), &fakeOrders{}, &fakePayments{}, &fakeGateway{})

	assert.Equal(t, 0.0, svc.DeliveryFee(0))
	assert.Equal(t, 60.0, svc.DeliveryFee(799.99))
	assert.Equal(t, 0.0, svc.DeliveryFee(800))
	assert.Equal(t, 0.0, svc.DeliveryFee(1500))
}

func TestCreateNonAsyncOrder(t *testing.T) {
	orders := &fakeOrders{}
	payments := &fakePayments{}
	gw := &fakeGateway{}
	svc := newTestService(waterCatalog(), orders, payments, gw)

	result, err := svc.Create(context.Background(), customer(), Input{
		CustomerName:  "Maria Santos",
		Contact:       "09171234567",
		Address:       "12 Mabini St",
		PaymentMethod: "cod",
		Items:         []ItemInput{{SKU: "P001", Quantity: 2}},
	})
	require.NoError(t, err)

	order := result.Order
	assert.Equal(t, 110.0, order.Subtotal)
	assert.Equal(t, 60.0, order.DeliveryFee)
	assert.Equal(t, 170.0, order.Total)
	assert.Equal(t, entity.StatusOrderPlaced, order.Status)
	assert.Equal(t, entity.PaymentPending, order.PaymentStatus)
	assert.Empty(t, result.CheckoutURL)
	assert.Zero(t, gw.sessions)

	require.Len(t, orders.events, 1)
	assert.Equal(t, CreatedNote, orders.events[0].Note)
	assert.Equal(t, entity.StatusOrderPlaced, orders.events[0].Status)
	require.NotNil(t, orders.events[0].ActorID)
	assert.Equal(t, int64(7), *orders.events[0].ActorID)

	require.Len(t, payments.created, 1)
	assert.Equal(t, order.Total, payments.created[0].Amount)
	assert.Equal(t, "PHP", payments.created[0].Currency)
	assert.Equal(t, order.ID, payments.created[0].OrderID)
}

func TestCreateAsyncOrderStartsPendingWithSession(t *testing.T) {
	orders := &fakeOrders{}
	payments := &fakePayments{}
	gw := &fakeGateway{}
	svc := newTestService(waterCatalog(), orders, payments, gw)

	result, err := svc.Create(context.Background(), customer(), Input{
		CustomerName:  "Maria Santos",
		Contact:       "09171234567",
		Address:       "12 Mabini St",
		PaymentMethod: "gcash",
		Items:         []ItemInput{{SKU: "P003", Quantity: 1}},
	})
	require.NoError(t, err)

	assert.Equal(t, entity.StatusPendingPayment, result.Order.Status)
	assert.Equal(t, 1, gw.sessions)
	assert.NotEmpty(t, result.CheckoutURL)
	assert.Equal(t, result.Order.CheckoutSessionID, orders.sessions[result.Order.ID])
	assert.Equal(t, result.Order.CheckoutSessionID, payments.sessions[payments.created[0].ID])
}

func TestCreateMergesDuplicateSKUs(t *testing.T) {
	orders := &fakeOrders{}
	svc := newTestService(waterCatalog(), orders, &fakePayments{}, &fakeGateway{})

	result, err := svc.Create(context.Background(), customer(), Input{
		CustomerName:  "Maria Santos",
		Contact:       "09171234567",
		Address:       "12 Mabini St",
		PaymentMethod: "cod",
		Items: []ItemInput{
			{SKU: "P001", Quantity: 2},
			{SKU: "P003", Quantity: 1},
			{SKU: "P001", Quantity: 3},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Order.Items, 2)
	assert.Equal(t, "P001", result.Order.Items[0].SKU)
	assert.Equal(t, 5, result.Order.Items[0].Quantity)
	assert.Equal(t, 275.0, result.Order.Items[0].LineTotal)
	assert.Equal(t, "P003", result.Order.Items[1].SKU)
}

func TestCreateTotalInvariant(t *testing.T) {
	svc := newTestService(waterCatalog(), &fakeOrders{}, &fakePayments{}, &fakeGateway{})

	result, err := svc.Create(context.Background(), customer(), Input{
		CustomerName:  "Maria Santos",
		Contact:       "09171234567",
		Address:       "12 Mabini St",
		PaymentMethod: "cod",
		Items: []ItemInput{
			{SKU: "P001", Quantity: 3},
			{SKU: "P002", Quantity: 2},
			{SKU: "P003", Quantity: 2},
		},
	})
	require.NoError(t, err)

	var lineSum float64
	for _, item := range result.Order.Items {
		assert.Equal(t, item.UnitPrice*float64(item.Quantity), item.LineTotal)
		lineSum += item.LineTotal
	}
	assert.Equal(t, lineSum, result.Order.Subtotal)
	assert.Equal(t, result.Order.Subtotal+result.Order.DeliveryFee, result.Order.Total)
	// 625 < 800, so the flat fee applies.
	assert.Equal(t, 60.0, result.Order.DeliveryFee)
}

func TestCreateRejectsInsufficientStock(t *testing.T) {
	svc := newTestService(waterCatalog(), &fakeOrders{}, &fakePayments{}, &fakeGateway{})

	_, err := svc.Create(context.Background(), customer(), Input{
		CustomerName:  "Maria Santos",
		Contact:       "09171234567",
		Address:       "12 Mabini St",
		PaymentMethod: "cod",
		Items:         []ItemInput{{SKU: "P002", Quantity: 4}},
	})
	require.Error(t, err)
	assert.True(t, errorbank.IsKind(err, errorbank.KindBadRequest))
	assert.Contains(t, err.Error(), "Purified Water Slim")
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(waterCatalog(), &fakeOrders{}, &fakePayments{}, &fakeGateway{})

	valid := Input{
		CustomerName:  "Maria Santos",
		Contact:       "09171234567",
		Address:       "12 Mabini St",
		PaymentMethod: "cod",
		Items:         []ItemInput{{SKU: "P001", Quantity: 1}},
	}

	_, err := svc.Create(context.Background(), nil, valid)
	assert.True(t, errorbank.IsKind(err, errorbank.KindUnauthorized))

	missingName := valid
	missingName.CustomerName = "  "
	_, err = svc.Create(context.Background(), customer(), missingName)
	assert.True(t, errorbank.IsKind(err, errorbank.KindBadRequest))

	noItems := valid
	noItems.Items = nil
	_, err = svc.Create(context.Background(), customer(), noItems)
	assert.True(t, errorbank.IsKind(err, errorbank.KindBadRequest))

	zeroQty := valid
	zeroQty.Items = []ItemInput{{SKU: "P001", Quantity: 0}}
	_, err = svc.Create(context.Background(), customer(), zeroQty)
	assert.True(t, errorbank.IsKind(err, errorbank.KindBadRequest))
}

func TestCreateCompensatesOnPaymentFailure(t *testing.T) {
	orders := &fakeOrders{}
	payments := &fakePayments{failCreate: errors.New("payments table unavailable")}
	svc := newTestService(waterCatalog(), orders, payments, &fakeGateway{})

	_, err := svc.Create(context.Background(), customer(), Input{
		CustomerName:  "Maria Santos",
		Contact:       "09171234567",
		Address:       "12 Mabini St",
		PaymentMethod: "cod",
		Items:         []ItemInput{{SKU: "P001", Quantity: 1}},
	})
	require.Error(t, err)
	assert.True(t, errorbank.IsKind(err, errorbank.KindUpstream))

	// Earlier writes are rolled back in reverse.
	require.Len(t, orders.created, 1)
	assert.Equal(t, []int64{orders.created[0].ID}, orders.deletedItems)
	assert.Equal(t, []int64{orders.created[0].ID}, orders.deleted)
}

func TestCreateCompensatesOnGatewayFailure(t *testing.T) {
	orders := &fakeOrders{}
	payments := &fakePayments{}
	gw := &fakeGateway{err: errors.New("gateway returned status 500")}
	svc := newTestService(waterCatalog(), orders, payments, gw)

	_, err := svc.Create(context.Background(), customer(), Input{
		CustomerName:  "Maria Santos",
		Contact:       "09171234567",
		Address:       "12 Mabini St",
		PaymentMethod: "gcash",
		Items:         []ItemInput{{SKU: "P001", Quantity: 1}},
	})
	require.Error(t, err)
	assert.True(t, errorbank.IsKind(err, errorbank.KindUpstream))

	require.Len(t, payments.created, 1)
	assert.Equal(t, []int64{payments.created[0].ID}, payments.deleted)
	require.Len(t, orders.created, 1)
	assert.Equal(t, []int64{orders.created[0].ID}, orders.deleted)
}

func TestGatewayLineItemsIncludeDeliveryFee(t *testing.T) {
	svc := newTestService(waterCatalog(), &fakeOrders{}, &fakePayments{}, &fakeGateway{})

	items := []*entity.OrderItem{
		{Name: "Purified Water Round", UnitPrice: 55, Quantity: 2},
	}
	lines := svc.gatewayLineItems(items, 60)
	require.Len(t, lines, 2)
	assert.Equal(t, int64(5500), lines[0].Amount)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, "Delivery fee", lines[1].Name)
	assert.Equal(t, int64(6000), lines[1].Amount)

	lines = svc.gatewayLineItems(items, 0)
	require.Len(t, lines, 1)
}
