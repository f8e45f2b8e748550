package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sachintha-Prasad/retail-management-system/internal/dto"
	"github.com/Sachintha-Prasad/retail-management-system/internal/model"
	"github.com/Sachintha-Prasad/retail-management-system/internal/repository"
)

type mockProductRepo struct {
	products map[uuid.UUID]*model.Product
}

func newMockProductRepo() *mockProductRepo {
	return &mockProductRepo{products: make(map[uuid.UUID]*model.Product)}
}

func (m *mockProductRepo) Create(_ context.Context, p *model.Product) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.products[p.ID] = p
	return nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	return m.products[id], nil
}

func (m *mockProductRepo) List(_ context.Context, filter repository.ProductFilter) ([]model.Product, int, error) {
	var all []model.Product
	for _, p := range m.products {
		all = append(all, *p)
	}
	return all, len(all), nil
}

func (m *mockProductRepo) Update(_ context.Context, p *model.Product) error {
	m.products[p.ID] = p
	return nil
}

func (m *mockProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.products, id)
	return nil
}

func (m *mockProductRepo) AdjustStock(_ context.Context, id uuid.UUID, delta int) (int, error) {
	p, ok := m.products[id]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	if p.Stock+delta < 0 {
		return p.Stock, repository.ErrStockConflict
	}
	p.Stock += delta
	return p.Stock, nil
}

func TestProductService_Create(t *testing.T) {
	svc := NewProductService(newMockProductRepo(), nil)
	resp, err := svc.Create(context.Background(), dto.CreateProductRequest{
		Name: "Mug", Price: decimal.NewFromFloat(9.99), Category: "kitchen", Stock: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, "Mug", resp.Name)
	assert.Equal(t, "kitchen", resp.Category)
	assert.Equal(t, 100, resp.Stock)
}

func TestProductService_GetByID_NotFound(t *testing.T) {
	svc := NewProductService(newMockProductRepo(), nil)
	_, err := svc.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductService_Update_PartialFields(t *testing.T) {
	repo := newMockProductRepo()
	svc := NewProductService(repo, nil)

	p := &model.Product{Name: "Mug", Price: decimal.NewFromInt(5), Stock: 10}
	require.NoError(t, repo.Create(context.Background(), p))

	newPrice := decimal.NewFromInt(7)
	resp, err := svc.Update(context.Background(), p.ID, dto.UpdateProductRequest{Price: &newPrice})
	require.NoError(t, err)
	assert.Equal(t, "Mug", resp.Name, "omitted fields keep their values")
	assert.True(t, resp.Price.Equal(newPrice))
}

func TestProductService_Delete(t *testing.T) {
	repo := newMockProductRepo()
	id := uuid.New()
	repo.products[id] = &model.Product{ID: id}
	svc := NewProductService(repo, nil)
	err := svc.Delete(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, repo.products)
}

func TestProductService_AdjustStock(t *testing.T) {
	repo := newMockProductRepo()
	svc := NewProductService(repo, nil)

	p := &model.Product{Name: "Mug", Price: decimal.NewFromInt(5), Stock: 10}
	require.NoError(t, repo.Create(context.Background(), p))

	resp, err := svc.AdjustStock(context.Background(), p.ID, -4)
	require.NoError(t, err)
	assert.Equal(t, 6, resp.Stock)

	_, err = svc.AdjustStock(context.Background(), p.ID, -7)
	assert.ErrorIs(t, err, repository.ErrStockConflict)

	_, err = svc.AdjustStock(context.Background(), uuid.New(), 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}
