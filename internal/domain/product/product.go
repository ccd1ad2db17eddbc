package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrInsufficientStock is returned when a stock adjustment would drive
	// the stock count below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Product represents a catalog item available for purchase.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Category    string
	ImageURL    string
	CreatedAt   time.Time
}

// Filter narrows a catalog listing. Zero-value fields are ignored.
// Search matches the product name as a case-insensitive substring.
type Filter struct {
	Category string
	Search   string
}

// Repository defines persistence operations for the product catalog.
// Products are never deleted; stock changes are relative deltas so that
// concurrent adjustments compose instead of overwriting each other.
type Repository interface {
	List(ctx context.Context, f Filter) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	AdjustStock(ctx context.Context, id string, delta int) (*Product, error)
}
