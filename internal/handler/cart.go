package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/labstack/echo/v4"

	"github.com/evermart/storefront/internal/domain/cart"
	"github.com/evermart/storefront/internal/domain/product"
)

// addItemRequest carries the product reference and quantity. A price field
// submitted by the client is deliberately ignored: the unit price is resolved
// from the catalog server-side.
type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type cartItemResponse struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type cartResponse struct {
	UserID    string             `json:"userId"`
	Items     []cartItemResponse `json:"items"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

func toCartResponse(c *cart.Cart) cartResponse {
	items := make([]cartItemResponse, len(c.Items))
	for i, item := range c.Items {
		items[i] = cartItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price.InexactFloat64(),
		}
	}
	return cartResponse{
		UserID:    c.UserID,
		Items:     items,
		UpdatedAt: c.UpdatedAt,
	}
}

func (h *Handler) getCart(c echo.Context) error {
	crt, err := h.carts.Get(c.Request().Context(), identity(c))
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, toCartResponse(crt))
}

func (h *Handler) addCartItem(c echo.Context) error {
	var req addItemRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}

	crt, err := h.carts.AddItem(c.Request().Context(), identity(c), req.ProductID, req.Quantity)
	if err != nil {
		return h.cartError(c, err)
	}
	return c.JSON(http.StatusOK, toCartResponse(crt))
}

func (h *Handler) setCartItemQuantity(c echo.Context) error {
	var req setQuantityRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}

	crt, err := h.carts.SetItemQuantity(c.Request().Context(), identity(c), c.Param("productId"), req.Quantity)
	if err != nil {
		return h.cartError(c, err)
	}
	return c.JSON(http.StatusOK, toCartResponse(crt))
}

func (h *Handler) removeCartItem(c echo.Context) error {
	crt, err := h.carts.RemoveItem(c.Request().Context(), identity(c), c.Param("productId"))
	if err != nil {
		return h.cartError(c, err)
	}
	return c.JSON(http.StatusOK, toCartResponse(crt))
}

func (h *Handler) clearCart(c echo.Context) error {
	if err := h.carts.Clear(c.Request().Context(), identity(c)); err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "cart cleared"})
}

// cartError maps cart domain errors to HTTP responses.
func (h *Handler) cartError(c echo.Context, err error) error {
	var iqErr *cart.InvalidQuantityError
	switch {
	case errors.As(err, &iqErr):
		return fail(c, http.StatusBadRequest, iqErr.Error())
	case errors.Is(err, product.ErrNotFound):
		return fail(c, http.StatusNotFound, "product not found")
	case errors.Is(err, cart.ErrNotFound):
		return fail(c, http.StatusNotFound, "cart not found")
	case errors.Is(err, cart.ErrItemNotFound):
		return fail(c, http.StatusNotFound, "item not found")
	}
	return internalError(c, err)
}
