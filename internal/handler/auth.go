package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/labstack/echo/v4"

	"github.com/evermart/storefront/internal/domain/user"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (h *Handler) register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}

	u, token, err := h.users.Register(c.Request().Context(), req.Email, req.Password, req.Name)
	if err != nil {
		var vErr *user.ValidationError
		switch {
		case errors.As(err, &vErr):
			return fail(c, http.StatusBadRequest, vErr.Error())
		case errors.Is(err, user.ErrEmailTaken):
			return fail(c, http.StatusConflict, err.Error())
		}
		return internalError(c, err)
	}

	return c.JSON(http.StatusCreated, authResponse{
		Token: token,
		User:  userResponse{ID: u.ID, Email: u.Email, Name: u.Name},
	})
}

func (h *Handler) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}

	u, token, err := h.users.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			return fail(c, http.StatusUnauthorized, err.Error())
		}
		return internalError(c, err)
	}

	return c.JSON(http.StatusOK, authResponse{
		Token: token,
		User:  userResponse{ID: u.ID, Email: u.Email, Name: u.Name},
	})
}

func (h *Handler) verify(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"valid":  true,
		"userId": identity(c),
	})
}
