package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/servigo/servigo/internal/models"
)

// AdminGuard ensures only admin users reach the admin route group. It runs
// after JWT, which stores the role on the context.
func AdminGuard(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		role, ok := c.Get("role").(string)
		if !ok || role != models.RoleAdmin {
			return c.JSON(http.StatusForbidden, echo.Map{"message": "admin access only"})
		}
		return next(c)
	}
}
