// Package handler exposes the storefront API over HTTP. Routing and binding
// use echo; identity is carried by a bearer JWT and handed to the domain
// services as an opaque user ID.
package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/evermart/storefront/internal/domain/cart"
	"github.com/evermart/storefront/internal/domain/order"
	"github.com/evermart/storefront/internal/domain/product"
	"github.com/evermart/storefront/internal/domain/user"
)

// Handler wires the HTTP routes to the domain services.
type Handler struct {
	products product.Repository
	carts    *cart.Service
	orders   *order.Service
	users    *user.Service
}

// New constructs a Handler with the required domain dependencies.
func New(
	products product.Repository,
	carts *cart.Service,
	orders *order.Service,
	users *user.Service,
) *Handler {
	return &Handler{
		products: products,
		carts:    carts,
		orders:   orders,
		users:    users,
	}
}

// NewEcho builds an echo instance with all routes registered. Cart and order
// routes require a valid bearer token signed with jwtSecret.
func (h *Handler) NewEcho(jwtSecret []byte) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	authn := echojwt.WithConfig(echojwt.Config{
		SigningKey: jwtSecret,
		NewClaimsFunc: func(echo.Context) jwt.Claims {
			return new(user.Claims)
		},
	})

	api := e.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", h.register)
	auth.POST("/login", h.login)
	auth.POST("/verify", h.verify, authn)

	products := api.Group("/products")
	products.GET("", h.listProducts)
	products.GET("/:id", h.getProduct)
	products.POST("", h.createProduct)
	products.PUT("/:id", h.updateProduct)
	products.PATCH("/:id/stock", h.adjustStock)

	carts := api.Group("/cart", authn)
	carts.GET("", h.getCart)
	carts.POST("/items", h.addCartItem)
	carts.PUT("/items/:productId", h.setCartItemQuantity)
	carts.DELETE("/items/:productId", h.removeCartItem)
	carts.DELETE("", h.clearCart)

	orders := api.Group("/orders", authn)
	orders.POST("", h.placeOrder)
	orders.GET("", h.listOrders)
	orders.GET("/:id", h.getOrder)
	orders.PATCH("/:id/status", h.updateOrderStatus)

	return e
}

// identity extracts the authenticated user ID from the verified JWT.
func identity(c echo.Context) string {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return ""
	}
	claims, ok := token.Claims.(*user.Claims)
	if !ok {
		return ""
	}
	return claims.Subject
}

// errorBody is the uniform JSON error envelope.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func fail(c echo.Context, status int, message string) error {
	return c.JSON(status, errorBody{Code: status, Message: message})
}

// internalError logs the failure with request context and responds 500
// without leaking details. Infrastructure failures (store unreachable) land
// here after the storage layer's bounded retries are exhausted.
func internalError(c echo.Context, err error) error {
	zctx.From(c.Request().Context()).Error("request failed",
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return fail(c, http.StatusInternalServerError, "internal error")
}

// errorHandler renders echo-level failures (unknown routes, failed auth,
// malformed requests) in the same envelope as handler errors.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "internal error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		if msg, ok := he.Message.(string); ok {
			message = msg
		} else {
			message = http.StatusText(status)
		}
	}

	if status >= http.StatusInternalServerError {
		zctx.From(c.Request().Context()).Error("request failed",
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, errorBody{Code: status, Message: message})
}
