package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Sachintha-Prasad/retail-management-system/internal/model"
)

// ErrVersionConflict signals that the cart changed between the read and
// the save. Callers re-read the cart and retry the mutation.
var ErrVersionConflict = errors.New("cart version conflict")

type CartRepository interface {
	GetByCustomerID(ctx context.Context, customerID uuid.UUID) (*model.Cart, error)
	Create(ctx context.Context, cart *model.Cart) error
	Save(ctx context.Context, cart *model.Cart) error
}

type pgCartRepo struct{ pool *pgxpool.Pool }

func NewCartRepository(pool *pgxpool.Pool) CartRepository {
	return &pgCartRepo{pool: pool}
}

func (r *pgCartRepo) GetByCustomerID(ctx context.Context, customerID uuid.UUID) (*model.Cart, error) {
	cart := &model.Cart{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, customer_id, total, version, created_at, updated_at FROM carts WHERE customer_id = $1`,
		customerID,
	).Scan(&cart.ID, &cart.CustomerID, &cart.Total, &cart.Version, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT product_id, name, price, image, quantity FROM cart_items
		 WHERE cart_id = $1 ORDER BY position`, cart.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.CartLineItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Price, &item.Image, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}
	return cart, nil
}

// Create inserts a brand new cart for a customer. A concurrent request
// may have created one first; the unique customer_id constraint turns
// that into ErrVersionConflict so the caller re-reads instead of failing.
func (r *pgCartRepo) Create(ctx context.Context, cart *model.Cart) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	cart.ID = uuid.New()
	cart.Version = 1
	err = tx.QueryRow(ctx,
		`INSERT INTO carts (id, customer_id, total, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW())
		 ON CONFLICT (customer_id) DO NOTHING
		 RETURNING created_at, updated_at`,
		cart.ID, cart.CustomerID, cart.Total, cart.Version,
	).Scan(&cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrVersionConflict
		}
		return fmt.Errorf("create cart: %w", err)
	}

	if err := insertItems(ctx, tx, cart.ID, cart.Items); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Save writes the whole aggregate back, guarded by the version read by
// GetByCustomerID. The guarded UPDATE plays the role of a compare-and-swap:
// zero rows affected means someone else saved first.
func (r *pgCartRepo) Save(ctx context.Context, cart *model.Cart) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`UPDATE carts SET total = $2, version = version + 1, updated_at = NOW()
		 WHERE id = $1 AND version = $3 RETURNING updated_at`,
		cart.ID, cart.Total, cart.Version,
	).Scan(&cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrVersionConflict
		}
		return fmt.Errorf("save cart: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cart.ID); err != nil {
		return fmt.Errorf("clear cart items: %w", err)
	}
	if err := insertItems(ctx, tx, cart.ID, cart.Items); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	cart.Version++
	return nil
}

func insertItems(ctx context.Context, tx pgx.Tx, cartID uuid.UUID, items []model.CartLineItem) error {
	for i, item := range items {
		_, err := tx.Exec(ctx,
			`INSERT INTO cart_items (cart_id, position, product_id, name, price, image, quantity)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			cartID, i, item.ProductID, item.Name, item.Price, item.Image, item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert cart item: %w", err)
		}
	}
	return nil
}
