package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/servigo/servigo/internal/metrics"
	"github.com/servigo/servigo/internal/models"
	"github.com/servigo/servigo/internal/respond"
	"github.com/servigo/servigo/internal/storage"
)

// Handler serves the admin dashboard and moderation endpoints. Routes using
// it sit behind the JWT middleware and the admin guard.
type Handler struct {
	users    storage.UserStore
	services storage.ServiceStore
	payments storage.PaymentStore
	stats    storage.StatsStore
	log      *zap.Logger
}

func NewHandler(users storage.UserStore, services storage.ServiceStore, payments storage.PaymentStore, stats storage.StatsStore, log *zap.Logger) *Handler {
	return &Handler{users: users, services: services, payments: payments, stats: stats, log: log}
}

// Stats returns headline counts for the dashboard.
func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.stats.CollectStats(c.Request().Context())
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// ListUsers returns every registered user.
func (h *Handler) ListUsers(c echo.Context) error {
	users, err := h.users.ListUsers(c.Request().Context())
	if err != nil {
		return respond.Error(c, err)
	}
	if users == nil {
		users = []models.User{}
	}
	return c.JSON(http.StatusOK, users)
}

// ListServices returns every service regardless of status.
func (h *Handler) ListServices(c echo.Context) error {
	services, err := h.services.ListServices(c.Request().Context())
	if err != nil {
		return respond.Error(c, err)
	}
	if services == nil {
		services = []models.Service{}
	}
	return c.JSON(http.StatusOK, services)
}

// ListPayments returns every payment.
func (h *Handler) ListPayments(c echo.Context) error {
	payments, err := h.payments.ListPayments(c.Request().Context())
	if err != nil {
		return respond.Error(c, err)
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	return c.JSON(http.StatusOK, payments)
}

// RemoveService force-cancels an open service, for moderation. The same
// compare-and-swap rules apply: a service that already left open answers 409.
func (h *Handler) RemoveService(c echo.Context) error {
	serviceID := c.Param("id")
	actor, _ := c.Get("user_id").(string)

	svc, err := h.services.TransitionService(c.Request().Context(), serviceID,
		models.ServiceOpen, models.ServiceCanceled, nil)
	if err != nil {
		metrics.RecordTransition("service", string(models.ServiceCanceled), "error")
		return respond.Error(c, err)
	}

	h.log.Info("service removed by admin",
		zap.String("service_id", serviceID),
		zap.String("admin", actor))
	metrics.RecordTransition("service", string(models.ServiceCanceled), "ok")
	return c.JSON(http.StatusOK, svc)
}
