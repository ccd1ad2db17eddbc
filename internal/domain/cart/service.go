package cart

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/evermart/storefront/internal/domain/product"
)

// Service encapsulates cart business logic. Prices are always resolved from
// the product catalog at add time; a client-submitted price is never trusted.
type Service struct {
	carts    Repository
	products product.Repository
}

// NewService creates a cart Service with the required domain dependencies.
func NewService(carts Repository, products product.Repository) *Service {
	return &Service{
		carts:    carts,
		products: products,
	}
}

// Get returns the user's cart, or an empty non-persisted cart when none
// exists. Absence is not a failure.
func (s *Service) Get(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Empty(userID), nil
		}
		return nil, errors.Wrap(err, "get cart")
	}
	return c, nil
}

// AddItem resolves the current catalog price for the product and merges a
// line into the user's cart, creating the cart when absent. The quantity must
// be positive; the product must exist.
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return nil, &InvalidQuantityError{ProductID: productID, Quantity: quantity}
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %s", productID)
	}

	c, err := s.carts.AddItem(ctx, userID, Item{
		ProductID: productID,
		Quantity:  quantity,
		Price:     p.Price,
	})
	if err != nil {
		return nil, errors.Wrap(err, "add item")
	}
	return c, nil
}

// SetItemQuantity overwrites a line's quantity. The data model requires
// quantity >= 1, so this boundary rejects anything lower; removal goes
// through RemoveItem instead.
func (s *Service) SetItemQuantity(ctx context.Context, userID, productID string, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return nil, &InvalidQuantityError{ProductID: productID, Quantity: quantity}
	}

	c, err := s.carts.SetItemQuantity(ctx, userID, productID, quantity)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrItemNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, "set item quantity")
	}
	return c, nil
}

// RemoveItem drops a line from the user's cart. The cart must exist; the line
// need not.
func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*Cart, error) {
	c, err := s.carts.RemoveItem(ctx, userID, productID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, "remove item")
	}
	return c, nil
}

// Clear deletes the user's cart entirely. Clearing an absent cart succeeds.
func (s *Service) Clear(ctx context.Context, userID string) error {
	if err := s.carts.Delete(ctx, userID); err != nil {
		return errors.Wrap(err, "clear cart")
	}
	return nil
}
