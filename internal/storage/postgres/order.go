package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evermart/storefront/internal/domain/order"
)

const (
	orderColumns = `id, user_id, items, total, status,
		ship_street, ship_city, ship_state, ship_zip, ship_country, created_at`

	createOrderSQL = `INSERT INTO orders
		(id, user_id, items, total, status, ship_street, ship_city, ship_state, ship_zip, ship_country)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC, id`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE id = $1 AND user_id = $2`

	updateOrderStatusSQL = `UPDATE orders SET status = $3
		WHERE id = $1 AND user_id = $2
		RETURNING ` + orderColumns
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Ownership
// checks are part of every lookup predicate rather than a separate step, so a
// foreign order behaves exactly like a missing one.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order and deletes the owner's cart in the same
// transaction: either the order exists and the cart is gone, or neither
// happened. The item snapshot is serialized to the JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		addr := o.ShippingAddress
		err := tx.QueryRow(ctx, createOrderSQL,
			o.ID, o.UserID, itemsJSON, o.Total, string(o.Status),
			addr.Street, addr.City, addr.State, addr.Zip, addr.Country,
		).Scan(&o.CreatedAt)
		if err != nil {
			return fmt.Errorf("creating order %q: %w", o.ID, err)
		}

		if _, err := tx.Exec(ctx, deleteCartSQL, o.UserID); err != nil {
			return fmt.Errorf("clearing cart for %q: %w", o.UserID, err)
		}
		return nil
	})
}

// ListByUser returns the user's orders, most recent first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	return withRetry(ctx, func() ([]order.Order, error) {
		rows, err := r.pool.Query(ctx, listOrdersSQL, userID)
		if err != nil {
			return nil, fmt.Errorf("listing orders for %q: %w", userID, err)
		}
		return pgx.CollectRows(rows, scanOrder)
	})
}

// GetByID returns the order only when it is owned by userID.
func (r *OrderRepository) GetByID(ctx context.Context, userID, orderID string) (*order.Order, error) {
	return withRetry(ctx, func() (*order.Order, error) {
		rows, err := r.pool.Query(ctx, getOrderSQL, orderID, userID)
		if err != nil {
			return nil, fmt.Errorf("getting order %q: %w", orderID, err)
		}

		o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, order.ErrNotFound
			}
			return nil, fmt.Errorf("getting order %q: %w", orderID, err)
		}
		return &o, nil
	})
}

// UpdateStatus overwrites the status of an order owned by userID and returns
// the updated order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, userID, orderID string, status order.Status) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, updateOrderStatusSQL, orderID, userID, string(status))
	if err != nil {
		return nil, fmt.Errorf("updating order %q status: %w", orderID, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("updating order %q status: %w", orderID, err)
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		itemsJSON []byte
		status    string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &itemsJSON, &o.Total, &status,
		&o.ShippingAddress.Street, &o.ShippingAddress.City, &o.ShippingAddress.State,
		&o.ShippingAddress.Zip, &o.ShippingAddress.Country, &o.CreatedAt,
	)
	if err != nil {
		return o, err
	}

	o.Status = order.Status(status)
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling order items: %w", err)
	}
	return o, nil
}
