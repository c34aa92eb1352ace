package payment

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

var repoTracer = otel.Tracer("github.com/jazjo-app/jazjo/repository/payment")

// ErrNotFound is returned when a payment row is missing.
var ErrNotFound = errors.New("payment not found")

// Repository encapsulates read/write access for payment records.
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

// Create persists a new payment row.
func (r *Repository) Create(ctx context.Context, payment *entity.Payment) error {
	if payment == nil {
		return errors.New("nil payment")
	}
	ctx, span := repoTracer.Start(ctx, "PaymentRepository.Create", trace.WithAttributes(attribute.Int64("order.id", payment.OrderID)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(payment).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// FindByGatewayEvent looks up a payment by the gateway's event identifier.
// This is the primary webhook idempotency check, so it reads through the
// write connection.
func (r *Repository) FindByGatewayEvent(ctx context.Context, eventID string) (*entity.Payment, error) {
	ctx, span := repoTracer.Start(ctx, "PaymentRepository.FindByGatewayEvent")
	defer span.End()

	payment := new(entity.Payment)
	err := r.writer.NewSelect().Model(payment).Where("gateway_event_id = ?", eventID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return payment, nil
}

// FindByOrder returns the payment row for an order.
func (r *Repository) FindByOrder(ctx context.Context, orderID int64) (*entity.Payment, error) {
	ctx, span := repoTracer.Start(ctx, "PaymentRepository.FindByOrder", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	payment := new(entity.Payment)
	err := r.writer.NewSelect().Model(payment).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Limit(1).
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
	return payment, nil
}

// SetCheckoutSession stores the gateway checkout session reference.
func (r *Repository) SetCheckoutSession(ctx context.Context, paymentID int64, sessionID string) error {
	ctx, span := repoTracer.Start(ctx, "PaymentRepository.SetCheckoutSession")
	defer span.End()

	_, err := r.writer.NewUpdate().Model((*entity.Payment)(nil)).
		Set("checkout_session_id = ?", sessionID).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", paymentID).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
	}
	return err
}

// MarkPaid records settlement of a payment together with the gateway
// identifiers and the raw provider payload kept for audit.
func (r *Repository) MarkPaid(ctx context.Context, paymentID int64, eventID, sessionID, gatewayPaymentID string, rawPayload []byte) error {
	ctx, span := repoTracer.Start(ctx, "PaymentRepository.MarkPaid")
	defer span.End()

	q := r.writer.NewUpdate().Model((*entity.Payment)(nil)).
		Set("status = ?", entity.PaymentPaid).
		Set("gateway_event_id = ?", eventID).
		Set("gateway_payment_id = ?", gatewayPaymentID).
		Set("raw_payload = ?", rawPayload).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", paymentID)
	if sessionID != "" {
		q = q.Set("checkout_session_id = ?", sessionID)
	}
	_, err := q.Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
	}
	return err
}

// Delete removes a payment row. Compensation path only.
func (r *Repository) Delete(ctx context.Context, paymentID int64) error {
	ctx, span := repoTracer.Start(ctx, "PaymentRepository.Delete")
	defer span.End()

	_, err := r.writer.NewDelete().Model((*entity.Payment)(nil)).Where("id = ?", paymentID).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
	}
	return err
}
