package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jazjo-app/jazjo/internal/database"
	"github.com/jazjo-app/jazjo/internal/entity"
)

var repoTracer = otel.Tracer("github.com/jazjo-app/jazjo/repository/order")

// ErrNotFound is returned when an order is missing.
var ErrNotFound = errors.New("order not found")

// Repository encapsulates read/write access for orders, their item snapshots,
// and the append-only status event log.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Create persists a new order header using the write connection.
func (r *Repository) Create(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Create", trace.WithAttributes(attribute.String("order.code", order.Code)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(order).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// InsertItems persists the item snapshots for an order.
func (r *Repository) InsertItems(ctx context.Context, items []*entity.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.InsertItems", trace.WithAttributes(attribute.Int("item.count", len(items))))
	defer span.End()

	_, err := r.writer.NewInsert().Model(&items).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// FindByCode fetches an order with its items by human-readable code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.FindByCode", trace.WithAttributes(attribute.String("order.code", code)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).
		Relation("Items").
		Where("code = ?", code).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// FindByCheckoutSession resolves an order by the gateway checkout session id
// stored at order creation time.
func (r *Repository) FindByCheckoutSession(ctx context.Context, sessionID string) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.FindByCheckoutSession")
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).
		Relation("Items").
		Where("checkout_session_id = ?", sessionID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// List returns all orders, newest first.
func (r *Repository) List(ctx context.Context) ([]*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.List")
	defer span.End()

	var orders []*entity.Order
	err := r.reader.NewSelect().Model(&orders).
		Relation("Items").
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// ListByProfile returns one customer's orders, newest first.
func (r *Repository) ListByProfile(ctx context.Context, profileID int64) ([]*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListByProfile", trace.WithAttributes(attribute.Int64("profile.id", profileID)))
	defer span.End()

	var orders []*entity.Order
	err := r.reader.NewSelect().Model(&orders).
		Relation("Items").
		Where("profile_id = ?", profileID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// ListByStatus returns orders currently in any of the given statuses.
func (r *Repository) ListByStatus(ctx context.Context, statuses ...entity.OrderStatus) ([]*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListByStatus")
	defer span.End()

	if len(statuses) == 0 {
		return nil, nil
	}

	var orders []*entity.Order
	err := r.reader.NewSelect().Model(&orders).
		Relation("Items").
		Where("status IN (?)", bun.In(statuses)).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// UpdateStatus persists a status change on the order header.
func (r *Repository) UpdateStatus(ctx context.Context, orderID int64, status entity.OrderStatus) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.UpdateStatus", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.String("order.status", string(status)),
	))
	defer span.End()

	_, err := r.writer.NewUpdate().Model((*entity.Order)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", orderID).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
	}
	return err
}

// MarkPaid flips the order to paid/order_placed and records the gateway
// payment reference and paid timestamp.
func (r *Repository) MarkPaid(ctx context.Context, orderID int64, gatewayPaymentID string, paidAt time.Time) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.MarkPaid", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	_, err := r.writer.NewUpdate().Model((*entity.Order)(nil)).
		Set("payment_status = ?", entity.PaymentPaid).
		Set("status = ?", entity.StatusOrderPlaced).
		Set("gateway_payment_id = ?", gatewayPaymentID).
		Set("paid_at = ?", paidAt).
		Set("updated_at = ?", paidAt).
		Where("id = ?", orderID).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
	}
	return err
}

// SetCheckoutSession stores the gateway checkout session reference on the
// order header.
func (r *Repository) SetCheckoutSession(ctx context.Context, orderID int64, sessionID string) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.SetCheckoutSession", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	_, err := r.writer.NewUpdate().Model((*entity.Order)(nil)).
		Set("checkout_session_id = ?", sessionID).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", orderID).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
	}
	return err
}

// AppendEvent adds an entry to the order's audit trail. Events are never
// updated or deleted.
func (r *Repository) AppendEvent(ctx context.Context, event *entity.OrderStatusEvent) error {
	if event == nil {
		return errors.New("nil event")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.AppendEvent", trace.WithAttributes(attribute.Int64("order.id", event.OrderID)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(event).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// ListEvents returns an order's audit trail in chronological order.
func (r *Repository) ListEvents(ctx context.Context, orderID int64) ([]*entity.OrderStatusEvent, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListEvents", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	var events []*entity.OrderStatusEvent
	err := r.reader.NewSelect().Model(&events).
		Where("order_id = ?", orderID).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return events, nil
}

// HasEventWithNote reports whether the order's audit trail already contains an
// event with the exact note. Reads through the write connection so a marker
// appended moments ago is always seen.
func (r *Repository) HasEventWithNote(ctx context.Context, orderID int64, note string) (bool, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.HasEventWithNote", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	count, err := r.writer.NewSelect().Model((*entity.OrderStatusEvent)(nil)).
		Where("order_id = ?", orderID).
		Where("note = ?", note).
		Count(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count failed")
		return false, err
	}
	return count > 0, nil
}

// Delete removes an order header. Compensation path only; live orders are
// never deleted.
func (r *Repository) Delete(ctx context.Context, orderID int64) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Delete", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	_, err := r.writer.NewDelete().Model((*entity.Order)(nil)).Where("id = ?", orderID).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
	}
	return err
}

// DeleteItems removes an order's item rows. Compensation path only.
func (r *Repository) DeleteItems(ctx context.Context, orderID int64) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.DeleteItems", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	_, err := r.writer.NewDelete().Model((*entity.OrderItem)(nil)).Where("order_id = ?", orderID).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
	}
	return err
}
