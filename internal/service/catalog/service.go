package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/jazjo-app/jazjo/internal/cache"
	"github.com/jazjo-app/jazjo/internal/config"
	"github.com/jazjo-app/jazjo/internal/entity"
	repo "github.com/jazjo-app/jazjo/internal/repository/product"
	"github.com/jazjo-app/jazjo/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/jazjo-app/jazjo/service/catalog")

const activeCacheKey = "products:active"

// ProductReader is the repository surface the catalog service needs.
type ProductReader interface {
	ListActive(ctx context.Context) ([]*entity.Product, error)
	FindBySKUs(ctx context.Context, skus []string) ([]*entity.Product, error)
}

// Service exposes read access to the product catalog.
type Service struct {
	repo     ProductReader
	cache    cache.Store
	cacheTTL time.Duration
	logger   *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Cache      cache.Store
	Config     config.Config
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:     p.Repository,
		cache:    p.Cache,
		cacheTTL: p.Config.Cache.DefaultTTL,
		logger:   p.Logger,
	}
}

// ListActive returns all orderable products, consulting cache when available.
func (s *Service) ListActive(ctx context.Context) ([]*entity.Product, error) {
	ctx, span := serviceTracer.Start(ctx, "CatalogService.ListActive")
	defer span.End()

	if products, err := s.listFromCache(ctx); err == nil {
		return products, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		if s.logger != nil {
			s.logger.Warn("catalog cache read failed", zap.Error(err))
		}
	}

	products, err := s.repo.ListActive(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Upstream("failed to load products", errorbank.WithCause(err))
	}

	if err := s.storeInCache(ctx, products); err != nil {
		if s.logger != nil {
			s.logger.Warn("catalog cache write failed", zap.Error(err))
		}
	}

	return products, nil
}

// FindBySKUs resolves the requested SKU set to active products. Every
// requested SKU must resolve; a shortfall means a product was removed or
// deactivated between cart build and checkout and fails validation.
func (s *Service) FindBySKUs(ctx context.Context, skus []string) ([]*entity.Product, error) {
	ctx, span := serviceTracer.Start(ctx, "CatalogService.FindBySKUs", trace.WithAttributes(attribute.Int("sku.count", len(skus))))
	defer span.End()

	if len(skus) == 0 {
		return nil, errorbank.BadRequest("no products requested")
	}

	products, err := s.repo.FindBySKUs(ctx, skus)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Upstream("failed to load products", errorbank.WithCause(err))
	}

	if len(products) != len(skus) {
		found := make(map[string]bool, len(products))
		for _, p := range products {
			found[p.SKU] = true
		}
		var missing []string
		for _, sku := range skus {
			if !found[sku] {
				missing = append(missing, sku)
			}
		}
		sort.Strings(missing)
		return nil, errorbank.BadRequest("some products are no longer available", errorbank.WithDetail("skus", missing))
	}

	return products, nil
}

// InvalidateCache drops the cached active-product listing. Called after stock
// counts change so stale counts are not served.
func (s *Service) InvalidateCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, activeCacheKey)
}

func (s *Service) listFromCache(ctx context.Context) ([]*entity.Product, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, activeCacheKey)
	if err != nil {
		return nil, err
	}
	var products []*entity.Product
	if err := json.Unmarshal(bytes, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Service) storeInCache(ctx context.Context, products []*entity.Product) error {
	if s.cache == nil {
		return nil
	}
	bytes, err := json.Marshal(products)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, activeCacheKey, bytes, s.cacheTTL)
}
