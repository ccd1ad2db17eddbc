package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/labstack/echo/v4"

	"github.com/evermart/storefront/internal/domain/order"
)

type placeOrderRequest struct {
	Items           []orderItemRequest `json:"items"`
	ShippingAddress order.Address      `json:"shippingAddress"`
}

type orderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderItemResponse struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type orderResponse struct {
	ID              string              `json:"id"`
	UserID          string              `json:"userId"`
	Items           []orderItemResponse `json:"items"`
	Total           float64             `json:"total"`
	Status          string              `json:"status"`
	ShippingAddress order.Address       `json:"shippingAddress"`
	CreatedAt       time.Time           `json:"createdAt"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = orderItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price.InexactFloat64(),
		}
	}
	return orderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		Items:           items,
		Total:           o.Total.InexactFloat64(),
		Status:          string(o.Status),
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       o.CreatedAt,
	}
}

func (h *Handler) placeOrder(c echo.Context) error {
	var req placeOrderRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}

	items := make([]order.ItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.ItemRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
	}

	o, err := h.orders.PlaceOrder(c.Request().Context(), identity(c), order.PlaceOrderRequest{
		Items:           items,
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		return h.orderError(c, err)
	}
	return c.JSON(http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) listOrders(c echo.Context) error {
	orders, err := h.orders.List(c.Request().Context(), identity(c))
	if err != nil {
		return internalError(c, err)
	}

	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) getOrder(c echo.Context) error {
	o, err := h.orders.Get(c.Request().Context(), identity(c), c.Param("id"))
	if err != nil {
		return h.orderError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResponse(o))
}

func (h *Handler) updateOrderStatus(c echo.Context) error {
	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}

	o, err := h.orders.UpdateStatus(c.Request().Context(), identity(c), c.Param("id"), req.Status)
	if err != nil {
		return h.orderError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResponse(o))
}

// orderError maps order domain errors to HTTP responses.
func (h *Handler) orderError(c echo.Context, err error) error {
	var (
		iqErr  *order.InvalidQuantityError
		pnfErr *order.ProductNotFoundError
		isErr  *order.InvalidStatusError
	)
	switch {
	case errors.Is(err, order.ErrEmptyItems):
		return fail(c, http.StatusBadRequest, err.Error())
	case errors.As(err, &iqErr):
		return fail(c, http.StatusBadRequest, iqErr.Error())
	case errors.As(err, &isErr):
		return fail(c, http.StatusBadRequest, isErr.Error())
	case errors.As(err, &pnfErr):
		return fail(c, http.StatusUnprocessableEntity, pnfErr.Error())
	case errors.Is(err, order.ErrNotFound):
		return fail(c, http.StatusNotFound, "order not found")
	}
	return internalError(c, err)
}
