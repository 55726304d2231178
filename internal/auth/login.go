package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/servigo/servigo/internal/respond"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies the credentials and returns the user plus a signed token.
func (h *Handler) Login(c echo.Context) error {
	req := new(LoginRequest)
	if err := c.Bind(req); err != nil {
		return respond.Error(c, respond.Invalid("invalid request body"))
	}
	if req.Email == "" || req.Password == "" {
		return respond.Error(c, respond.Invalid("email and password are required"))
	}

	user, err := h.users.FindUserByEmail(c.Request().Context(), req.Email)
	if err != nil {
		// Do not leak whether the account exists.
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid credentials"})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		h.log.Warn("login rejected", zap.String("email", req.Email))
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid credentials"})
	}

	token, err := h.signToken(user)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Login successful",
		"user":    user,
		"token":   token,
	})
}
