package client

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sachintha-Prasad/retail-management-system/internal/handler"
	"github.com/Sachintha-Prasad/retail-management-system/internal/middleware"
	"github.com/Sachintha-Prasad/retail-management-system/internal/model"
	"github.com/Sachintha-Prasad/retail-management-system/internal/repository"
	"github.com/Sachintha-Prasad/retail-management-system/internal/service"
)

// The session tests run against the real handler stack over in-memory
// repositories, so the mirror is exercised end to end through HTTP.

type memCartRepo struct {
	carts map[uuid.UUID]*model.Cart
}

func (m *memCartRepo) GetByCustomerID(_ context.Context, customerID uuid.UUID) (*model.Cart, error) {
	cart, ok := m.carts[customerID]
	if !ok {
		return nil, nil
	}
	clone := *cart
	clone.Items = append([]model.CartLineItem(nil), cart.Items...)
	return &clone, nil
}

func (m *memCartRepo) Create(_ context.Context, cart *model.Cart) error {
	if _, ok := m.carts[cart.CustomerID]; ok {
		return repository.ErrVersionConflict
	}
	cart.ID = uuid.New()
	cart.Version = 1
	clone := *cart
	m.carts[cart.CustomerID] = &clone
	return nil
}

func (m *memCartRepo) Save(_ context.Context, cart *model.Cart) error {
	stored, ok := m.carts[cart.CustomerID]
	if !ok || stored.Version != cart.Version {
		return repository.ErrVersionConflict
	}
	cart.Version++
	clone := *cart
	m.carts[cart.CustomerID] = &clone
	return nil
}

type memProductRepo struct {
	products map[uuid.UUID]*model.Product
}

func (m *memProductRepo) Create(_ context.Context, product *model.Product) error {
	product.ID = uuid.New()
	m.products[product.ID] = product
	return nil
}

func (m *memProductRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	return m.products[id], nil
}

func (m *memProductRepo) List(_ context.Context, _ repository.ProductFilter) ([]model.Product, int, error) {
	return nil, 0, nil
}

func (m *memProductRepo) Update(_ context.Context, product *model.Product) error {
	m.products[product.ID] = product
	return nil
}

func (m *memProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.products, id)
	return nil
}

func (m *memProductRepo) AdjustStock(_ context.Context, id uuid.UUID, delta int) (int, error) {
	product := m.products[id]
	product.Stock += delta
	return product.Stock, nil
}

type memUserRepo struct {
	users map[uuid.UUID]*model.User
}

func (m *memUserRepo) Create(_ context.Context, user *model.User) error {
	user.ID = uuid.New()
	m.users[user.ID] = user
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	return m.users[id], nil
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, nil
}

func (m *memUserRepo) Update(_ context.Context, user *model.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *memUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.users, id)
	return nil
}

type testEnv struct {
	server     *httptest.Server
	cartSvc    *service.CartService
	customerID uuid.UUID
	productID  uuid.UUID
	secondID   uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cartRepo := &memCartRepo{carts: make(map[uuid.UUID]*model.Cart)}
	productRepo := &memProductRepo{products: make(map[uuid.UUID]*model.Product)}
	userRepo := &memUserRepo{users: make(map[uuid.UUID]*model.User)}

	user := &model.User{Name: "Jane", Email: "jane@example.com", Role: model.RoleCustomer}
	require.NoError(t, userRepo.Create(context.Background(), user))

	widget := &model.Product{Name: "Widget", Price: decimal.RequireFromString("4.50"), Image: "widget.png", Stock: 100}
	require.NoError(t, productRepo.Create(context.Background(), widget))
	gadget := &model.Product{Name: "Gadget", Price: decimal.RequireFromString("12.00"), Stock: 100}
	require.NoError(t, productRepo.Create(context.Background(), gadget))

	cartSvc := service.NewCartService(cartRepo, productRepo, userRepo)
	cartHandler := handler.NewCartHandler(cartSvc)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := gin.New()
	router.Use(gin.Recovery(), middleware.ErrorHandler(log))

	carts := router.Group("/api/cart")
	{
		carts.POST("/add", cartHandler.AddItem)
		carts.GET("/:customerId", cartHandler.GetCart)
		carts.PUT("/update", cartHandler.UpdateItem)
		carts.DELETE("/remove", cartHandler.RemoveItem)
		carts.DELETE("/clear", cartHandler.Clear)
	}

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testEnv{
		server:     server,
		cartSvc:    cartSvc,
		customerID: user.ID,
		productID:  widget.ID,
		secondID:   gadget.ID,
	}
}

func TestCartSession_AddAdoptsServerState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	session := NewCartSession(New(env.server.URL), env.customerID)

	require.NoError(t, session.AddItem(ctx, env.productID, 2))
	require.Len(t, session.Items(), 1)
	assert.Equal(t, "Widget", session.Items()[0].Name)
	assert.Equal(t, 2, session.TotalItems())
	assert.True(t, session.Subtotal().Equal(decimal.RequireFromString("9.00")))

	// Adding the same product again merges into the existing line.
	require.NoError(t, session.AddItem(ctx, env.productID, 3))
	require.Len(t, session.Items(), 1)
	assert.Equal(t, 5, session.TotalItems())
	assert.True(t, session.Subtotal().Equal(decimal.RequireFromString("22.50")))
}

func TestCartSession_RefreshConvergesAfterServerMutation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	session := NewCartSession(New(env.server.URL), env.customerID)

	require.NoError(t, session.AddItem(ctx, env.productID, 1))

	// Another caller mutates the cart behind the session's back.
	_, err := env.cartSvc.AddItem(ctx, env.customerID, env.secondID, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, session.TotalItems(), "mirror is stale until refreshed")

	session.Refresh(ctx)
	require.Len(t, session.Items(), 2)
	assert.Equal(t, 5, session.TotalItems())
	assert.True(t, session.Subtotal().Equal(decimal.RequireFromString("52.50")))
}

func TestCartSession_RefreshFallsBackToEmpty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	session := NewCartSession(New(env.server.URL), env.customerID)

	// No cart exists yet; the not-found collapses to an empty mirror.
	session.Refresh(ctx)
	assert.Empty(t, session.Items())
	assert.Equal(t, 0, session.TotalItems())

	require.NoError(t, session.AddItem(ctx, env.productID, 2))
	require.Equal(t, 2, session.TotalItems())

	// An unreachable server also falls back to empty rather than erroring.
	unreachable := NewCartSession(New("http://127.0.0.1:1"), env.customerID)
	unreachable.Refresh(ctx)
	assert.Empty(t, unreachable.Items())
}

func TestCartSession_UpdateZeroQuantityKeepsLine(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	session := NewCartSession(New(env.server.URL), env.customerID)

	require.NoError(t, session.AddItem(ctx, env.productID, 2))
	require.NoError(t, session.UpdateQuantity(ctx, env.productID, 0))

	require.Len(t, session.Items(), 1, "a zero quantity keeps the line in place")
	assert.Equal(t, 0, session.TotalItems())
	assert.True(t, session.Subtotal().IsZero())
}

func TestCartSession_RemoveAbsentIsNoop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	session := NewCartSession(New(env.server.URL), env.customerID)

	require.NoError(t, session.AddItem(ctx, env.productID, 2))
	require.NoError(t, session.RemoveItem(ctx, env.secondID))

	require.Len(t, session.Items(), 1)
	assert.Equal(t, 2, session.TotalItems())
}

func TestCartSession_Clear(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	session := NewCartSession(New(env.server.URL), env.customerID)

	require.NoError(t, session.AddItem(ctx, env.productID, 2))
	require.NoError(t, session.Clear(ctx))
	assert.Empty(t, session.Items())

	// The server cart still exists, just with no lines.
	session.Refresh(ctx)
	assert.Empty(t, session.Items())
}

func TestClient_GetCart_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := New(env.server.URL).GetCart(context.Background(), env.customerID)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.NotEmpty(t, apiErr.Message)
}

func TestClient_ContextCancellation(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := New(env.server.URL).GetCart(ctx, env.customerID)
	assert.Error(t, err)
}
