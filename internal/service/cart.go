package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Sachintha-Prasad/retail-management-system/internal/model"
	"github.com/Sachintha-Prasad/retail-management-system/internal/repository"
)

var (
	ErrCartNotFound  = errors.New("cart not found")
	ErrItemNotInCart = errors.New("product not found in cart")
)

// maxSaveAttempts bounds the read-merge-save retry loop. Each retry
// re-reads the cart, so a conflicting writer's change is merged rather
// than overwritten.
const maxSaveAttempts = 5

// CartService owns the cart rules: a product appears on at most one line,
// adding an already-present product increments its quantity, and the
// stored total is recomputed from the items after every mutation.
type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository, userRepo repository.UserRepository) *CartService {
	return &CartService{cartRepo: cartRepo, productRepo: productRepo, userRepo: userRepo}
}

// GetCart returns the customer's cart. Carts are created lazily by AddItem
// only, so a customer who never added anything gets ErrCartNotFound.
func (s *CartService) GetCart(ctx context.Context, customerID uuid.UUID) (*model.Cart, error) {
	cart, err := s.cartRepo.GetByCustomerID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}
	return cart, nil
}

// AddItem puts quantity units of a product into the customer's cart,
// creating the cart if this is the customer's first add. If the product is
// already on a line its quantity is incremented; otherwise a new line
// snapshots the product's current name, price and image. There is no
// stock check: the quantity may exceed what is available.
func (s *CartService) AddItem(ctx context.Context, customerID, productID uuid.UUID, quantity int) (*model.Cart, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	user, err := s.userRepo.GetByID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	line := model.CartLineItem{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Image:     product.Image,
		Quantity:  quantity,
	}

	return s.mutate(ctx, customerID, true, func(cart *model.Cart) error {
		if i := cart.FindItem(productID); i >= 0 {
			cart.Items[i].Quantity += quantity
		} else {
			cart.Items = append(cart.Items, line)
		}
		return nil
	})
}

// UpdateItem sets the absolute quantity of an existing line. Zero and
// negative quantities are stored as sent and the line is not removed;
// callers that want the line gone use RemoveItem.
func (s *CartService) UpdateItem(ctx context.Context, customerID, productID uuid.UUID, quantity int) (*model.Cart, error) {
	return s.mutate(ctx, customerID, false, func(cart *model.Cart) error {
		i := cart.FindItem(productID)
		if i < 0 {
			return ErrItemNotInCart
		}
		cart.Items[i].Quantity = quantity
		return nil
	})
}

// RemoveItem drops the product's line from the cart. Removing a product
// that was never added is a no-op, not an error.
func (s *CartService) RemoveItem(ctx context.Context, customerID, productID uuid.UUID) (*model.Cart, error) {
	return s.mutate(ctx, customerID, false, func(cart *model.Cart) error {
		kept := cart.Items[:0]
		for _, item := range cart.Items {
			if item.ProductID != productID {
				kept = append(kept, item)
			}
		}
		cart.Items = kept
		return nil
	})
}

// Clear empties the cart and resets its total to zero. Clearing an
// already-empty cart succeeds; a customer without a cart gets
// ErrCartNotFound.
func (s *CartService) Clear(ctx context.Context, customerID uuid.UUID) error {
	_, err := s.mutate(ctx, customerID, false, func(cart *model.Cart) error {
		cart.Items = nil
		return nil
	})
	return err
}

// mutate runs the read-modify-save cycle under the repository's version
// guard, retrying with a fresh read when a concurrent writer got there
// first. createIfMissing is true only for AddItem.
func (s *CartService) mutate(ctx context.Context, customerID uuid.UUID, createIfMissing bool, apply func(*model.Cart) error) (*model.Cart, error) {
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		cart, err := s.cartRepo.GetByCustomerID(ctx, customerID)
		if err != nil {
			return nil, fmt.Errorf("get cart: %w", err)
		}

		created := false
		if cart == nil {
			if !createIfMissing {
				return nil, ErrCartNotFound
			}
			cart = &model.Cart{CustomerID: customerID}
			created = true
		}

		if err := apply(cart); err != nil {
			return nil, err
		}
		cart.RecomputeTotal()

		if created {
			err = s.cartRepo.Create(ctx, cart)
		} else {
			err = s.cartRepo.Save(ctx, cart)
		}
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, fmt.Errorf("save cart: %w", err)
		}
	}
	return nil, fmt.Errorf("save cart: %w", repository.ErrVersionConflict)
}
