package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Sachintha-Prasad/retail-management-system/internal/model"
	"github.com/Sachintha-Prasad/retail-management-system/internal/repository"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidOrderStatus = errors.New("invalid order status")
)

type OrderService struct {
	orderRepo repository.OrderRepository
	cartRepo  repository.CartRepository
	userRepo  repository.UserRepository
	amqpCh    *amqp.Channel
}

func NewOrderService(orderRepo repository.OrderRepository, cartRepo repository.CartRepository, userRepo repository.UserRepository, amqpCh *amqp.Channel) *OrderService {
	return &OrderService{orderRepo: orderRepo, cartRepo: cartRepo, userRepo: userRepo, amqpCh: amqpCh}
}

// Checkout snapshots the customer's cart into a pending order, clears the
// cart and publishes an order-created message for the stats worker. Stock
// is deliberately not touched here.
func (s *OrderService) Checkout(ctx context.Context, customerID uuid.UUID, address model.Address) (*model.Order, error) {
	user, err := s.userRepo.GetByID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	cart, err := s.cartRepo.GetByCustomerID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	items := make([]model.OrderItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		items = append(items, model.OrderItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			Price:     line.Price,
			Image:     line.Image,
			Quantity:  line.Quantity,
		})
	}
	cart.RecomputeTotal()

	order := &model.Order{
		CustomerID: customerID,
		Items:      items,
		Total:      cart.Total,
		Status:     model.OrderStatusPending,
		Address:    address,
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if s.amqpCh != nil {
		msg, _ := json.Marshal(model.OrderMessage{
			OrderID: order.ID, CustomerID: customerID, Total: order.Total,
		})
		_ = s.amqpCh.PublishWithContext(ctx, "", "orders", false, false, amqp.Publishing{
			ContentType:  "application/json",
			Body:         msg,
			DeliveryMode: amqp.Persistent,
		})
	}

	// Best effort: a conflicting concurrent cart write wins and the cart
	// simply keeps its items.
	cart.Items = nil
	cart.RecomputeTotal()
	_ = s.cartRepo.Save(ctx, cart)

	return order, nil
}

func (s *OrderService) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) ListAll(ctx context.Context) ([]model.Order, error) {
	return s.orderRepo.ListAll(ctx)
}

func (s *OrderService) ListByCustomerID(ctx context.Context, customerID uuid.UUID) ([]model.Order, error) {
	return s.orderRepo.ListByCustomerID(ctx, customerID)
}

// UpdateStatus sets the order's status. Any known status is accepted in
// any order; there is no forward-only transition guard.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	if !model.ValidOrderStatus(status) {
		return nil, ErrInvalidOrderStatus
	}
	if err := s.orderRepo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *OrderService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.orderRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}
