package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evermart/storefront/internal/domain/cart"
)

const (
	getCartSQL = `SELECT items, updated_at FROM carts WHERE user_id = $1`

	// Ensures a row exists so the subsequent FOR UPDATE always has something
	// to lock. Losing the conflict race is fine: the winner's row is locked
	// instead.
	ensureCartSQL = `INSERT INTO carts (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`

	lockCartSQL = `SELECT items FROM carts WHERE user_id = $1 FOR UPDATE`

	saveCartSQL = `UPDATE carts SET items = $2, updated_at = now() WHERE user_id = $1
		RETURNING updated_at`

	deleteCartSQL = `DELETE FROM carts WHERE user_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. Line items
// live in a JSONB column; every mutation locks the cart row for the duration
// of the transaction, which serializes concurrent mutations of the same cart
// and closes the lost-update window of a plain read-modify-write.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Get returns the user's cart, or cart.ErrNotFound when none exists.
func (r *CartRepository) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	return withRetry(ctx, func() (*cart.Cart, error) {
		var (
			itemsJSON []byte
			updatedAt time.Time
		)
		err := r.pool.QueryRow(ctx, getCartSQL, userID).Scan(&itemsJSON, &updatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, cart.ErrNotFound
			}
			return nil, fmt.Errorf("getting cart for %q: %w", userID, err)
		}

		items, err := decodeItems(itemsJSON)
		if err != nil {
			return nil, err
		}
		return &cart.Cart{UserID: userID, Items: items, UpdatedAt: updatedAt}, nil
	})
}

// AddItem merges the item into the user's cart, creating the cart when
// absent. The merge itself is the aggregate's AddLine; this method only
// provides the per-user serialization around it.
func (r *CartRepository) AddItem(ctx context.Context, userID string, item cart.Item) (*cart.Cart, error) {
	var result *cart.Cart
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, ensureCartSQL, userID); err != nil {
			return fmt.Errorf("ensuring cart for %q: %w", userID, err)
		}

		c, err := lockCart(ctx, tx, userID)
		if err != nil {
			return err
		}

		c.AddLine(item)

		if err := saveCart(ctx, tx, c); err != nil {
			return err
		}
		result = c
		return nil
	})
	return result, err
}

// SetItemQuantity overwrites a line's quantity. The cart and the line must
// both exist.
func (r *CartRepository) SetItemQuantity(ctx context.Context, userID, productID string, quantity int) (*cart.Cart, error) {
	var result *cart.Cart
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		c, err := lockCart(ctx, tx, userID)
		if err != nil {
			return err
		}

		if err := c.SetQuantity(productID, quantity); err != nil {
			return err
		}

		if err := saveCart(ctx, tx, c); err != nil {
			return err
		}
		result = c
		return nil
	})
	return result, err
}

// RemoveItem drops a line from the user's cart. The cart must exist; an
// absent line is a no-op.
func (r *CartRepository) RemoveItem(ctx context.Context, userID, productID string) (*cart.Cart, error) {
	var result *cart.Cart
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		c, err := lockCart(ctx, tx, userID)
		if err != nil {
			return err
		}

		c.RemoveLine(productID)

		if err := saveCart(ctx, tx, c); err != nil {
			return err
		}
		result = c
		return nil
	})
	return result, err
}

// Delete removes the cart row. Deleting an absent cart succeeds.
func (r *CartRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, deleteCartSQL, userID); err != nil {
		return fmt.Errorf("deleting cart for %q: %w", userID, err)
	}
	return nil
}

// lockCart loads the user's cart under FOR UPDATE, returning cart.ErrNotFound
// when no row exists.
func lockCart(ctx context.Context, tx pgx.Tx, userID string) (*cart.Cart, error) {
	var itemsJSON []byte
	err := tx.QueryRow(ctx, lockCartSQL, userID).Scan(&itemsJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("locking cart for %q: %w", userID, err)
	}

	items, err := decodeItems(itemsJSON)
	if err != nil {
		return nil, err
	}
	return &cart.Cart{UserID: userID, Items: items}, nil
}

// saveCart writes the cart's items back and refreshes updated_at.
func saveCart(ctx context.Context, tx pgx.Tx, c *cart.Cart) error {
	itemsJSON, err := json.Marshal(c.Items)
	if err != nil {
		return fmt.Errorf("marshaling cart items: %w", err)
	}

	if err := tx.QueryRow(ctx, saveCartSQL, c.UserID, itemsJSON).Scan(&c.UpdatedAt); err != nil {
		return fmt.Errorf("saving cart for %q: %w", c.UserID, err)
	}
	return nil
}

func decodeItems(itemsJSON []byte) ([]cart.Item, error) {
	items := []cart.Item{}
	if err := json.Unmarshal(itemsJSON, &items); err != nil {
		return nil, fmt.Errorf("unmarshaling cart items: %w", err)
	}
	return items, nil
}
