package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jazjo-app/jazjo/internal/cache"
	"github.com/jazjo-app/jazjo/internal/entity"
	"github.com/jazjo-app/jazjo/pkg/errorbank"
)

type fakeProducts struct {
	products  []*entity.Product
	listCalls int
}

func (f *fakeProducts) ListActive(context.Context) ([]*entity.Product, error) {
	f.listCalls++
	return f.products, nil
}

func (f *fakeProducts) FindBySKUs(_ context.Context, skus []string) ([]*entity.Product, error) {
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

type memoryCache struct {
	values map[string][]byte
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	if v, ok := m.values[key]; ok {
		return v, nil
	}
	return nil, cache.ErrCacheMiss
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	if m.values == nil {
		m.values = make(map[string][]byte)
	}
	m.values[key] = value
	return nil
}

func (m *memoryCache) Delete(_ context.Context, key string) error {
	delete(m.values, key)
	return nil
}

func newTestService(repo *fakeProducts, store cache.Store) *Service {
	return &Service{
		repo:     repo,
		cache:    store,
		cacheTTL: time.Minute,
		logger:   zap.NewNop(),
	}
}

func sampleProducts() []*entity.Product {
	return []*entity.Product{
		{SKU: "P001", Name: "Purified Water Round", Price: 55, StockCases: 20, Active: true},
		{SKU: "P002", Name: "Purified Water Slim", Price: 50, StockCases: 3, Active: true},
	}
}

func TestListActiveUsesCache(t *testing.T) {
	repo := &fakeProducts{products: sampleProducts()}
	store := &memoryCache{}
	svc := newTestService(repo, store)

	first, err := svc.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, 1, repo.listCalls)

	second, err := svc.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, second, 2)
	// Served from cache, the repository is not consulted again.
	assert.Equal(t, 1, repo.listCalls)

	require.NoError(t, svc.InvalidateCache(context.Background()))
	_, err = svc.ListActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)
}

func TestFindBySKUsReportsMissing(t *testing.T) {
	svc := newTestService(&fakeProducts{products: sampleProducts()}, &memoryCache{})

	products, err := svc.FindBySKUs(context.Background(), []string{"P001", "P002"})
	require.NoError(t, err)
	assert.Len(t, products, 2)

	_, err = svc.FindBySKUs(context.Background(), []string{"P001", "P404", "P999"})
	require.Error(t, err)
	assert.True(t, errorbank.IsKind(err, errorbank.KindBadRequest))
	details := errorbank.From(err).Details()
	assert.Equal(t, []string{"P404", "P999"}, details["skus"])

	_, err = svc.FindBySKUs(context.Background(), nil)
	assert.True(t, errorbank.IsKind(err, errorbank.KindBadRequest))
}
