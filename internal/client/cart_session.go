package client

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartSession mirrors one customer's server cart. The server is
// authoritative: every mutating call adopts the full cart body the server
// returns instead of patching the local list, so the mirror can never
// drift from the stored total between calls. Derived values are computed
// from the local list on demand and never stored.
type CartSession struct {
	client     *Client
	customerID uuid.UUID
	items      []CartItem
}

func NewCartSession(client *Client, customerID uuid.UUID) *CartSession {
	return &CartSession{client: client, customerID: customerID}
}

// Refresh re-fetches the server cart. A fetch failure (including the
// not-found of a customer with no cart yet) falls back to an empty local
// list instead of surfacing an error.
func (s *CartSession) Refresh(ctx context.Context) {
	cart, err := s.client.GetCart(ctx, s.customerID)
	if err != nil {
		s.items = nil
		return
	}
	s.items = cart.Items
}

// AddItem adds quantity units of the product and adopts the server's
// updated cart.
func (s *CartSession) AddItem(ctx context.Context, productID uuid.UUID, quantity int) error {
	cart, err := s.client.AddToCart(ctx, s.customerID, productID, quantity)
	if err != nil {
		return err
	}
	s.items = cart.Items
	return nil
}

// UpdateQuantity sets the absolute quantity of the product's line and
// adopts the server's updated cart.
func (s *CartSession) UpdateQuantity(ctx context.Context, productID uuid.UUID, quantity int) error {
	cart, err := s.client.UpdateCartItem(ctx, s.customerID, productID, quantity)
	if err != nil {
		return err
	}
	s.items = cart.Items
	return nil
}

// RemoveItem removes the product's line and adopts the server's updated
// cart.
func (s *CartSession) RemoveItem(ctx context.Context, productID uuid.UUID) error {
	cart, err := s.client.RemoveFromCart(ctx, s.customerID, productID)
	if err != nil {
		return err
	}
	s.items = cart.Items
	return nil
}

// Clear empties the server cart and the local mirror. The clear endpoint
// returns only a confirmation message, so the mirror is emptied directly.
func (s *CartSession) Clear(ctx context.Context) error {
	if err := s.client.ClearCart(ctx, s.customerID); err != nil {
		return err
	}
	s.items = nil
	return nil
}

// Items returns a copy of the mirrored line items.
func (s *CartSession) Items() []CartItem {
	items := make([]CartItem, len(s.items))
	copy(items, s.items)
	return items
}

// TotalItems sums the quantities across all mirrored lines.
func (s *CartSession) TotalItems() int {
	total := 0
	for _, item := range s.items {
		total += item.Quantity
	}
	return total
}

// Subtotal folds price*quantity over the mirrored lines left to right.
func (s *CartSession) Subtotal() decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range s.items {
		subtotal = subtotal.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return subtotal
}
