package product

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

var repoTracer = otel.Tracer("github.com/jazjo-app/jazjo/repository/product")

// ErrNotFound is returned when a product is missing.
var ErrNotFound = errors.New("product not found")

// Repository encapsulates read/write access for catalog products.
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

// ListActive returns all orderable products, ordered by category and name.
func (r *Repository) ListActive(ctx context.Context) ([]*entity.Product, error) {
	ctx, span := repoTracer.Start(ctx, "ProductRepository.ListActive")
	defer span.End()

	var products []*entity.Product
	err := r.reader.NewSelect().Model(&products).
		Where("active = ?", true).
		Order("category ASC", "name ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return products, nil
}

// List returns every product, including deactivated ones, for inventory views.
func (r *Repository) List(ctx context.Context) ([]*entity.Product, error) {
	ctx, span := repoTracer.Start(ctx, "ProductRepository.List")
	defer span.End()

	var products []*entity.Product
	err := r.reader.NewSelect().Model(&products).
		Order("category ASC", "name ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return products, nil
}

// FindBySKUs fetches active products for the given SKU set. Callers must
// verify the result covers every requested SKU; a shortfall means a product
// was removed or deactivated since the cart was built.
func (r *Repository) FindBySKUs(ctx context.Context, skus []string) ([]*entity.Product, error) {
	ctx, span := repoTracer.Start(ctx, "ProductRepository.FindBySKUs", trace.WithAttributes(attribute.Int("sku.count", len(skus))))
	defer span.End()

	if len(skus) == 0 {
		return nil, nil
	}

	var products []*entity.Product
	err := r.reader.NewSelect().Model(&products).
		Where("active = ?", true).
		Where("sku IN (?)", bun.In(skus)).
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return products, nil
}

// DeductStock lowers a product's case count by qty, flooring at zero. Uses the
// write connection so the updated count is immediately visible to checkout.
func (r *Repository) DeductStock(ctx context.Context, sku string, qty int) error {
	ctx, span := repoTracer.Start(ctx, "ProductRepository.DeductStock", trace.WithAttributes(
		attribute.String("product.sku", sku),
		attribute.Int("qty", qty),
	))
	defer span.End()

	if qty <= 0 {
		return nil
	}

	product := new(entity.Product)
	err := r.writer.NewSelect().Model(product).Where("sku = ?", sku).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return err
	}

	remaining := product.StockCases - qty
	if remaining < 0 {
		remaining = 0
	}

	_, err = r.writer.NewUpdate().Model((*entity.Product)(nil)).
		Set("stock_cases = ?", remaining).
		Set("updated_at = ?", time.Now().UTC()).
		Where("sku = ?", sku).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
	}
	return err
}
