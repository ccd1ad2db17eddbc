package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evermart/storefront/internal/domain/product"
)

const (
	productColumns = `id, name, description, price, stock, category, image_url, created_at`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	createProductSQL = `INSERT INTO products (id, name, description, price, stock, category, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	updateProductSQL = `UPDATE products
		SET name = $2, description = $3, price = $4, stock = $5, category = $6, image_url = $7
		WHERE id = $1
		RETURNING created_at`

	adjustStockSQL = `UPDATE products SET stock = stock + $2 WHERE id = $1
		RETURNING ` + productColumns

	upsertProductSQL = `INSERT INTO products (id, name, description, price, stock, category, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, description = EXCLUDED.description, price = EXCLUDED.price,
			stock = EXCLUDED.stock, category = EXCLUDED.category, image_url = EXCLUDED.image_url`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns catalog products matching the filter, ordered by creation
// time. The name search is a case-insensitive substring match.
func (r *ProductRepository) List(ctx context.Context, f product.Filter) ([]product.Product, error) {
	sql := `SELECT ` + productColumns + ` FROM products`
	var (
		conds []string
		args  []any
	)
	if f.Category != "" {
		args = append(args, f.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+escapeLike(f.Search)+"%")
		conds = append(conds, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if len(conds) > 0 {
		sql += " WHERE " + strings.Join(conds, " AND ")
	}
	sql += " ORDER BY created_at, id"

	return withRetry(ctx, func() ([]product.Product, error) {
		rows, err := r.pool.Query(ctx, sql, args...)
		if err != nil {
			return nil, fmt.Errorf("listing products: %w", err)
		}
		return pgx.CollectRows(rows, scanProduct)
	})
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	return withRetry(ctx, func() (*product.Product, error) {
		rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
		if err != nil {
			return nil, fmt.Errorf("getting product %q: %w", id, err)
		}

		p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, product.ErrNotFound
			}
			return nil, fmt.Errorf("getting product %q: %w", id, err)
		}
		return &p, nil
	})
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	return withRetry(ctx, func() ([]product.Product, error) {
		rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
		if err != nil {
			return nil, fmt.Errorf("getting products by ids: %w", err)
		}
		return pgx.CollectRows(rows, scanProduct)
	})
}

// Create persists a new product, assigning it a fresh identifier.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	err := r.pool.QueryRow(ctx, createProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.Category, p.ImageURL,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.Name, err)
	}
	return nil
}

// Update overwrites all mutable fields of an existing product.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	err := r.pool.QueryRow(ctx, updateProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.Category, p.ImageURL,
	).Scan(&p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return product.ErrNotFound
		}
		return fmt.Errorf("updating product %q: %w", p.ID, err)
	}
	return nil
}

// AdjustStock applies a relative delta to a product's stock count in a single
// statement, so concurrent adjustments compose. A delta that would drive the
// count negative violates the CHECK constraint and is reported as
// product.ErrInsufficientStock.
func (r *ProductRepository) AdjustStock(ctx context.Context, id string, delta int) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, adjustStockSQL, id, delta)
	if err != nil {
		return nil, fmt.Errorf("adjusting stock for %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		if pgErrCode(err) == pgCheckViolation {
			return nil, product.ErrInsufficientStock
		}
		return nil, fmt.Errorf("adjusting stock for %q: %w", id, err)
	}
	return &p, nil
}

// Upsert inserts or fully replaces a product, keeping the caller-supplied ID.
// Used by the seeder; the API path goes through Create and Update.
func (r *ProductRepository) Upsert(ctx context.Context, p *product.Product) error {
	_, err := r.pool.Exec(ctx, upsertProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.Category, p.ImageURL,
	)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock,
		&p.Category, &p.ImageURL, &p.CreatedAt,
	)
	return p, err
}

// escapeLike escapes LIKE metacharacters so user input matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
