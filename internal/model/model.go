package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Password  string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

type Product struct {
	ID          uuid.UUID
	Name        string
	Description string
	Price       decimal.Decimal
	Image       string
	Category    string
	Stock       int
	Featured    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CartLineItem snapshots the product's name, price and image at the moment
// it was added; later product edits do not flow back into open carts.
type CartLineItem struct {
	ProductID uuid.UUID
	Name      string
	Price     decimal.Decimal
	Image     string
	Quantity  int
}

// Cart is the one active cart of a customer. Every lookup and mutation is
// keyed by CustomerID, never by the cart's own id. Total is recomputed from
// the items on every mutation rather than maintained incrementally, and
// Version backs the conditional save in the repository.
type Cart struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	Items      []CartLineItem
	Total      decimal.Decimal
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RecomputeTotal derives Total as a left-to-right fold of price*quantity
// over the current items, discarding the previous value.
func (c *Cart) RecomputeTotal() {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	c.Total = total
}

// FindItem returns the index of the line holding productID, or -1.
func (c *Cart) FindItem(productID uuid.UUID) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
)

// ValidOrderStatus reports whether s is a known status. There is no
// transition guard: an admin may move an order backward.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusShipped, OrderStatusDelivered:
		return true
	}
	return false
}

type Address struct {
	Line1      string
	City       string
	State      string
	PostalCode string
	Country    string
}

type OrderItem struct {
	ProductID uuid.UUID
	Name      string
	Price     decimal.Decimal
	Image     string
	Quantity  int
}

// Order freezes the selected cart lines at checkout. It never references
// the cart it came from and never mutates product stock.
type Order struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	Items      []OrderItem
	Total      decimal.Decimal
	Status     OrderStatus
	Address    Address
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type OrderMessage struct {
	OrderID    uuid.UUID       `json:"order_id"`
	CustomerID uuid.UUID       `json:"customer_id"`
	Total      decimal.Decimal `json:"total"`
}
