package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/servigo/servigo/internal/models"
	"github.com/servigo/servigo/internal/respond"
	"github.com/servigo/servigo/internal/storage"
	"github.com/servigo/servigo/internal/uploads"
)

// Handler serves registration, login and profile lookup.
type Handler struct {
	users     storage.UserStore
	saver     *uploads.Saver
	jwtSecret string
	jwtTTL    time.Duration
	log       *zap.Logger
}

func NewHandler(users storage.UserStore, saver *uploads.Saver, jwtSecret string, jwtTTL time.Duration, log *zap.Logger) *Handler {
	return &Handler{users: users, saver: saver, jwtSecret: jwtSecret, jwtTTL: jwtTTL, log: log}
}

// Register creates a user from a multipart form with an optional photo file.
// The address arrives as a JSON object in the `address` form field.
func (h *Handler) Register(c echo.Context) error {
	name := strings.TrimSpace(c.FormValue("name"))
	email := strings.TrimSpace(c.FormValue("email"))
	phone := strings.TrimSpace(c.FormValue("phoneNumber"))
	password := c.FormValue("password")

	if name == "" || email == "" || phone == "" || password == "" {
		return respond.Error(c, respond.Invalid("name, email, phoneNumber and password are required"))
	}

	var addr models.Address
	if raw := c.FormValue("address"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &addr); err != nil {
			return respond.Error(c, respond.Invalid("address must be a JSON object"))
		}
	}
	if err := addr.Validate(); err != nil {
		return respond.Error(c, err)
	}

	photo := ""
	if fh, err := c.FormFile("photo"); err == nil {
		path, err := h.saver.SaveImage("photo", fh)
		if err != nil {
			var unsupported *uploads.ErrUnsupportedType
			if errors.As(err, &unsupported) {
				return respond.Error(c, respond.Invalid(err.Error()))
			}
			h.log.Error("photo upload failed", zap.String("email", email), zap.Error(err))
			return respond.Error(c, err)
		}
		photo = path
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return respond.Error(c, err)
	}

	user, err := h.users.CreateUser(c.Request().Context(), models.User{
		ID:          uuid.New().String(),
		Name:        name,
		Email:       email,
		PhoneNumber: phone,
		Address:     addr,
		Password:    string(hashed),
		Photo:       photo,
		Role:        models.RoleUser,
	})
	if err != nil {
		h.log.Warn("registration failed", zap.String("email", email), zap.Error(err))
		return respond.Error(c, err)
	}

	h.log.Info("user registered", zap.String("user_id", user.ID))
	return c.JSON(http.StatusCreated, user)
}

// Me returns the authenticated user's own record.
func (h *Handler) Me(c echo.Context) error {
	uid, _ := c.Get("user_id").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	user, err := h.users.FindUserByID(c.Request().Context(), uid)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *Handler) signToken(user models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"role":    user.Role,
		"exp":     time.Now().Add(h.jwtTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.jwtSecret))
}
