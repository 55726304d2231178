package respond

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/servigo/servigo/internal/models"
	"github.com/servigo/servigo/internal/storage"
)

// ValidationError marks a request that failed field validation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Invalid builds a ValidationError for a malformed request.
func Invalid(reason string) error {
	return &ValidationError{Reason: reason}
}

// Status maps taxonomy errors onto HTTP status codes. Anything unrecognized
// is an internal failure.
func Status(err error) int {
	var fieldErr *models.FieldError
	var valErr *ValidationError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidTransition),
		errors.Is(err, storage.ErrConflict),
		errors.Is(err, storage.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, storage.ErrForbidden):
		return http.StatusForbidden
	case errors.As(err, &fieldErr), errors.As(err, &valErr):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Error writes the error as the standard {message} JSON body. Internal
// failures hide their detail behind a generic message.
func Error(c echo.Context, err error) error {
	status := Status(err)
	if status == http.StatusInternalServerError {
		return c.JSON(status, echo.Map{"message": "internal error", "error": err.Error()})
	}
	return c.JSON(status, echo.Map{"message": err.Error()})
}
