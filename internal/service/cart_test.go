package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sachintha-Prasad/retail-management-system/internal/model"
	"github.com/Sachintha-Prasad/retail-management-system/internal/repository"
)

// mockCartRepo stores carts keyed by customer id and enforces the same
// version guard as the real repository, so the service's retry loop is
// exercised for real.
type mockCartRepo struct {
	mu    sync.Mutex
	carts map[uuid.UUID]*model.Cart
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{carts: make(map[uuid.UUID]*model.Cart)}
}

func copyCart(cart *model.Cart) *model.Cart {
	clone := *cart
	clone.Items = make([]model.CartLineItem, len(cart.Items))
	copy(clone.Items, cart.Items)
	return &clone
}

func (m *mockCartRepo) GetByCustomerID(_ context.Context, customerID uuid.UUID) (*model.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[customerID]
	if !ok {
		return nil, nil
	}
	return copyCart(cart), nil
}

func (m *mockCartRepo) Create(_ context.Context, cart *model.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.carts[cart.CustomerID]; ok {
		return repository.ErrVersionConflict
	}
	cart.ID = uuid.New()
	cart.Version = 1
	m.carts[cart.CustomerID] = copyCart(cart)
	return nil
}

func (m *mockCartRepo) Save(_ context.Context, cart *model.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.carts[cart.CustomerID]
	if !ok || stored.Version != cart.Version {
		return repository.ErrVersionConflict
	}
	cart.Version++
	m.carts[cart.CustomerID] = copyCart(cart)
	return nil
}

func newCartFixture(t *testing.T, price float64) (*CartService, uuid.UUID, uuid.UUID) {
	t.Helper()
	cartRepo := newMockCartRepo()
	productRepo := newMockProductRepo()
	userRepo := newMockUserRepo()

	product := &model.Product{Name: "Widget", Price: decimal.NewFromFloat(price), Image: "widget.png", Stock: 100}
	require.NoError(t, productRepo.Create(context.Background(), product))

	user := &model.User{Name: "Jane", Email: "jane@example.com", Role: model.RoleCustomer}
	require.NoError(t, userRepo.Create(context.Background(), user))

	return NewCartService(cartRepo, productRepo, userRepo), user.ID, product.ID
}

// foldTotal mirrors the recompute rule: a left-to-right fold of
// price*quantity over the items.
func foldTotal(items []model.CartLineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

func assertTotalConsistent(t *testing.T, cart *model.Cart) {
	t.Helper()
	assert.True(t, cart.Total.Equal(foldTotal(cart.Items)),
		"total %s != recomputed %s", cart.Total, foldTotal(cart.Items))
}

func TestCartService_AddItem_MergesQuantities(t *testing.T) {
	svc, customerID, productID := newCartFixture(t, 4.50)
	ctx := context.Background()

	cart, err := svc.AddItem(ctx, customerID, productID, 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)

	cart, err = svc.AddItem(ctx, customerID, productID, 3)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1, "same product must merge, not duplicate")
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.True(t, cart.Total.Equal(decimal.NewFromFloat(22.50)))
	assertTotalConsistent(t, cart)
}

func TestCartService_AddItem_SnapshotsProduct(t *testing.T) {
	svc, customerID, productID := newCartFixture(t, 10)
	ctx := context.Background()

	cart, err := svc.AddItem(ctx, customerID, productID, 1)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "Widget", cart.Items[0].Name)
	assert.Equal(t, "widget.png", cart.Items[0].Image)
	assert.True(t, cart.Items[0].Price.Equal(decimal.NewFromInt(10)))
}

func TestCartService_AddItem_ProductNotFound(t *testing.T) {
	svc, customerID, _ := newCartFixture(t, 10)
	_, err := svc.AddItem(context.Background(), customerID, uuid.New(), 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCartService_AddItem_UserNotFound(t *testing.T) {
	svc, _, productID := newCartFixture(t, 10)
	_, err := svc.AddItem(context.Background(), uuid.New(), productID, 1)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCartService_GetCart_NotFoundBeforeFirstAdd(t *testing.T) {
	svc, customerID, productID := newCartFixture(t, 10)
	ctx := context.Background()

	// Get never creates a cart; only Add does.
	_, err := svc.GetCart(ctx, customerID)
	assert.ErrorIs(t, err, ErrCartNotFound)

	_, err = svc.AddItem(ctx, customerID, productID, 1)
	require.NoError(t, err)

	cart, err := svc.GetCart(ctx, customerID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
}

func TestCartService_UpdateItem_SetsAbsoluteQuantity(t *testing.T) {
	svc, customerID, productID := newCartFixture(t, 3)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, customerID, productID, 2)
	require.NoError(t, err)

	cart, err := svc.UpdateItem(ctx, customerID, productID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, cart.Items[0].Quantity, "update sets, it does not increment")
	assert.True(t, cart.Total.Equal(decimal.NewFromInt(21)))
	assertTotalConsistent(t, cart)
}

func TestCartService_UpdateItem_ZeroQuantityKeepsLine(t *testing.T) {
	svc, customerID, productID := newCartFixture(t, 5)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, customerID, productID, 2)
	require.NoError(t, err)

	// Zero is stored as sent; the line stays in the cart.
	cart, err := svc.UpdateItem(ctx, customerID, productID, 0)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 0, cart.Items[0].Quantity)
	assert.True(t, cart.Total.Equal(decimal.Zero))
	assertTotalConsistent(t, cart)
}

func TestCartService_UpdateItem_CartNotFound(t *testing.T) {
	svc, customerID, productID := newCartFixture(t, 5)
	_, err := svc.UpdateItem(context.Background(), customerID, productID, 1)
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestCartService_UpdateItem_ProductNotInCart(t *testing.T) {
	svc, customerID, productID := newCartFixture(t, 5)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, customerID, productID, 1)
	require.NoError(t, err)

	_, err = svc.UpdateItem(ctx, customerID, uuid.New(), 1)
	assert.ErrorIs(t, err, ErrItemNotInCart)
}

func TestCartService_RemoveItem_AbsentProductIsNoop(t *testing.T) {
	svc, customerID, productID := newCartFixture(t, 5)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, customerID, productID, 2)
	require.NoError(t, err)

	cart, err := svc.RemoveItem(ctx, customerID, uuid.New())
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.True(t, cart.Total.Equal(decimal.NewFromInt(10)))
}

func TestCartService_Clear(t *testing.T) {
	svc, customerID, productID := newCartFixture(t, 5)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Clear(ctx, customerID), ErrCartNotFound)

	_, err := svc.AddItem(ctx, customerID, productID, 3)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, customerID))
	cart, err := svc.GetCart(ctx, customerID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.Total.Equal(decimal.Zero))

	// Clearing an already-empty cart succeeds again.
	require.NoError(t, svc.Clear(ctx, customerID))
}

func TestCartService_Lifecycle(t *testing.T) {
	svc, customerID, productID := newCartFixture(t, 10)
	ctx := context.Background()

	cart, err := svc.AddItem(ctx, customerID, productID, 2)
	require.NoError(t, err)
	assert.True(t, cart.Total.Equal(decimal.NewFromInt(20)))
	assertTotalConsistent(t, cart)

	cart, err = svc.AddItem(ctx, customerID, productID, 1)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.True(t, cart.Total.Equal(decimal.NewFromInt(30)))
	assertTotalConsistent(t, cart)

	cart, err = svc.UpdateItem(ctx, customerID, productID, 5)
	require.NoError(t, err)
	assert.True(t, cart.Total.Equal(decimal.NewFromInt(50)))
	assertTotalConsistent(t, cart)

	cart, err = svc.RemoveItem(ctx, customerID, productID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.Total.Equal(decimal.Zero))
	assertTotalConsistent(t, cart)
}

// Two adds racing on the same cart must both land: the version guard
// turns the lost-update race into a retry with a fresh read.
func TestCartService_ConcurrentAddsBothLand(t *testing.T) {
	svc, customerID, productID := newCartFixture(t, 2)
	ctx := context.Background()

	// Each conflict a writer sees corresponds to another writer's
	// successful save, so with 4 writers nobody can exhaust the retry
	// budget.
	const writers = 4
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.AddItem(ctx, customerID, productID, 1)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	cart, err := svc.GetCart(ctx, customerID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, writers, cart.Items[0].Quantity)
	assert.True(t, cart.Total.Equal(decimal.NewFromInt(2*writers)))
	assertTotalConsistent(t, cart)
}
