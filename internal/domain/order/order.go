package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when an order does not exist or is owned by a
	// different user. Ownership is part of the lookup predicate, so foreign
	// orders are indistinguishable from absent ones.
	ErrNotFound = errors.New("order not found")
	// ErrEmptyItems is returned when an order is placed with no items.
	ErrEmptyItems = errors.New("items required")
)

// Status is the fulfillment state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// InvalidStatusError indicates a status value outside the closed enumeration.
type InvalidStatusError struct {
	Value string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid order status %q", e.Value)
}

// ParseStatus validates a raw status value against the closed enumeration.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return Status(s), nil
	}
	return "", &InvalidStatusError{Value: s}
}

// InvalidQuantityError indicates a line item with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// Item is an immutable line in an order: the product reference, quantity, and
// the unit price the order was charged at.
type Item struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Address is a free-text shipping destination. No field-level validation is
// applied; all fields are optional.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// Order is an immutable, totaled purchase record. The total equals the sum of
// price * quantity over its own items at creation time and is never
// recomputed afterward; only the status may change.
type Order struct {
	ID              string
	UserID          string
	Items           []Item
	Total           decimal.Decimal
	Status          Status
	ShippingAddress Address
	CreatedAt       time.Time
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists the order and deletes the owner's cart in the same
	// transaction. The cart may be absent; its deletion is then a no-op.
	Create(ctx context.Context, o *Order) error
	// ListByUser returns the user's orders, most recent first.
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// GetByID returns the order only when it is owned by userID, otherwise
	// ErrNotFound.
	GetByID(ctx context.Context, userID, orderID string) (*Order, error)
	// UpdateStatus overwrites the order's status and returns the updated
	// order, or ErrNotFound when absent or foreign-owned.
	UpdateStatus(ctx context.Context, userID, orderID string, status Status) (*Order, error)
}
