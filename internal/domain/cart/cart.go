package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when no cart exists for the given user.
	ErrNotFound = errors.New("cart not found")
	// ErrItemNotFound is returned when a cart has no line for the given product.
	ErrItemNotFound = errors.New("item not found")
)

// InvalidQuantityError indicates a requested quantity below the allowed minimum.
type InvalidQuantityError struct {
	ProductID string
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s, got %d", e.ProductID, e.Quantity)
}

// Item is a single cart line: a product reference, a quantity, and the price
// captured when the line was first added. The snapshot is never re-fetched
// from the catalog on later reads.
type Item struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Cart is the per-user collection of pending purchase lines. Lines keep
// insertion order and hold at most one entry per product.
type Cart struct {
	UserID    string
	Items     []Item
	UpdatedAt time.Time
}

// Empty returns a non-persisted cart with no items for the given user.
// Reading an absent cart yields this value rather than an error.
func Empty(userID string) *Cart {
	return &Cart{UserID: userID, Items: []Item{}}
}

// AddLine merges an item into the cart. An existing line for the same product
// has its quantity incremented; its price snapshot is left untouched.
// Otherwise the item is appended as a new line.
func (c *Cart) AddLine(item Item) {
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			c.Items[i].Quantity += item.Quantity
			return
		}
	}
	c.Items = append(c.Items, item)
}

// SetQuantity overwrites the quantity of the line for productID.
// It returns ErrItemNotFound when no such line exists.
func (c *Cart) SetQuantity(productID string, quantity int) error {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			return nil
		}
	}
	return ErrItemNotFound
}

// RemoveLine drops the line for productID. Removing an absent line is a no-op,
// not an error.
func (c *Cart) RemoveLine(productID string) {
	kept := c.Items[:0]
	for _, item := range c.Items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	c.Items = kept
}

// Repository defines persistence operations for carts. Mutating operations
// are atomic per user: implementations must serialize concurrent mutations of
// the same cart so a read-modify-write cannot lose an update.
type Repository interface {
	// Get returns the user's cart, or ErrNotFound when none exists.
	Get(ctx context.Context, userID string) (*Cart, error)
	// AddItem merges the item into the user's cart, creating the cart when
	// absent, and returns the resulting cart.
	AddItem(ctx context.Context, userID string, item Item) (*Cart, error)
	// SetItemQuantity overwrites a line's quantity. Returns ErrNotFound when
	// the cart is absent and ErrItemNotFound when the line is.
	SetItemQuantity(ctx context.Context, userID, productID string, quantity int) (*Cart, error)
	// RemoveItem drops a line. Returns ErrNotFound when the cart is absent;
	// an absent line is a no-op.
	RemoveItem(ctx context.Context, userID, productID string) (*Cart, error)
	// Delete removes the cart entirely. Deleting an absent cart is a no-op.
	Delete(ctx context.Context, userID string) error
}
