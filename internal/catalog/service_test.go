package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-wms/meridian-wms/internal/platform/httpx"
)

type memoryRepo struct {
	products map[int64]Product
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: make(map[int64]Product)}
}

func (r *memoryRepo) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	var out []Product
	for id := int64(1); id <= r.nextID; id++ {
		p, ok := r.products[id]
		if !ok {
			continue
		}
		if filters.Category != "" && p.Category != filters.Category {
			continue
		}
		if filters.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filters.Search)) {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Product, error) {
	if p, ok := r.products[id]; ok {
		return p, nil
	}
	return Product{}, httpx.ErrNotFound
}

func (r *memoryRepo) GetBySKU(ctx context.Context, sku string) (Product, error) {
	for _, p := range r.products {
		if p.SKU == sku {
			return p, nil
		}
	}
	return Product{}, httpx.ErrNotFound
}

func (r *memoryRepo) Create(ctx context.Context, product Product) (Product, error) {
	for _, p := range r.products {
		if p.SKU == product.SKU {
			return Product{}, httpx.ErrDuplicate
		}
	}
	r.nextID++
	product.ID = r.nextID
	product.Quantity = 0
	r.products[product.ID] = product
	return product, nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, product Product) error {
	current, ok := r.products[id]
	if !ok {
		return httpx.ErrNotFound
	}
	product.ID = id
	product.Quantity = current.Quantity
	r.products[id] = product
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.products[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, Product{Name: "No SKU"})
	require.Error(t, err)

	_, err = svc.Create(ctx, Product{SKU: "SKU-1", Name: "  "})
	require.Error(t, err)

	_, err = svc.Create(ctx, Product{SKU: "SKU-1", Name: "Widget", Price: -1})
	require.Error(t, err)
}

func TestCreateStartsWithZeroQuantity(t *testing.T) {
	svc := NewService(newMemoryRepo())

	created, err := svc.Create(context.Background(), Product{SKU: "SKU-1", Name: "Widget", Quantity: 99})
	require.NoError(t, err)
	require.Zero(t, created.Quantity, "aggregate quantity belongs to the movement engine")
}

func TestCreateRejectsDuplicateSKU(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, Product{SKU: "SKU-1", Name: "Widget"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, Product{SKU: "SKU-1", Name: "Other"})
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestUpdatePreservesQuantity(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, Product{SKU: "SKU-1", Name: "Widget", Price: 2})
	require.NoError(t, err)

	p := repo.products[created.ID]
	p.Quantity = 40
	repo.products[created.ID] = p

	require.NoError(t, svc.Update(ctx, created.ID, Product{SKU: "SKU-1", Name: "Widget v2", Price: 3}))

	updated, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Widget v2", updated.Name)
	require.Equal(t, int64(40), updated.Quantity)
}

func TestListFilters(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, Product{SKU: "SKU-1", Name: "Steel Bolt", Category: "hardware"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, Product{SKU: "SKU-2", Name: "Label Roll", Category: "consumables"})
	require.NoError(t, err)

	products, total, err := svc.List(ctx, ListFilters{Category: "hardware"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "Steel Bolt", products[0].Name)

	products, _, err = svc.List(ctx, ListFilters{Search: "label"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, "SKU-2", products[0].SKU)
}
