package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/evermart/storefront/internal/domain/product"
)

type productRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"imageUrl"`
}

type adjustStockRequest struct {
	Quantity int `json:"quantity"`
}

type productResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	Category    string    `json:"category"`
	ImageURL    string    `json:"imageUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toProductResponse(p product.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.InexactFloat64(),
		Stock:       p.Stock,
		Category:    p.Category,
		ImageURL:    p.ImageURL,
		CreatedAt:   p.CreatedAt,
	}
}

func (h *Handler) listProducts(c echo.Context) error {
	filter := product.Filter{
		Category: c.QueryParam("category"),
		Search:   c.QueryParam("search"),
	}

	products, err := h.products.List(c.Request().Context(), filter)
	if err != nil {
		return internalError(c, err)
	}

	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = toProductResponse(p)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) getProduct(c echo.Context) error {
	p, err := h.products.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return fail(c, http.StatusNotFound, "product not found")
		}
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, toProductResponse(*p))
}

func (h *Handler) createProduct(c echo.Context) error {
	var req productRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if msg, ok := validateProduct(req); !ok {
		return fail(c, http.StatusBadRequest, msg)
	}

	p := product.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
	}
	if err := h.products.Create(c.Request().Context(), &p); err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusCreated, toProductResponse(p))
}

func (h *Handler) updateProduct(c echo.Context) error {
	var req productRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if msg, ok := validateProduct(req); !ok {
		return fail(c, http.StatusBadRequest, msg)
	}

	p := product.Product{
		ID:          c.Param("id"),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
	}
	if err := h.products.Update(c.Request().Context(), &p); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return fail(c, http.StatusNotFound, "product not found")
		}
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, toProductResponse(p))
}

func (h *Handler) adjustStock(c echo.Context) error {
	var req adjustStockRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}

	p, err := h.products.AdjustStock(c.Request().Context(), c.Param("id"), req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, product.ErrNotFound):
			return fail(c, http.StatusNotFound, "product not found")
		case errors.Is(err, product.ErrInsufficientStock):
			return fail(c, http.StatusBadRequest, err.Error())
		}
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, toProductResponse(*p))
}

func validateProduct(req productRequest) (string, bool) {
	if req.Name == "" {
		return "name is required", false
	}
	if req.Price.IsNegative() {
		return "price must not be negative", false
	}
	if req.Stock < 0 {
		return "stock must not be negative", false
	}
	return "", true
}
