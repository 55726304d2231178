package payment

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/servigo/servigo/internal/models"
	"github.com/servigo/servigo/internal/respond"
	"github.com/servigo/servigo/internal/storage"
)

// Handler serves payment recording and the gateway callback.
type Handler struct {
	payments storage.PaymentStore
	log      *zap.Logger
}

func NewHandler(payments storage.PaymentStore, log *zap.Logger) *Handler {
	return &Handler{payments: payments, log: log}
}

type payRequest struct {
	Service           string  `json:"service"`
	Customer          string  `json:"customer"`
	Provider          string  `json:"provider"`
	Amount            float64 `json:"amount"`
	PaymentMethod     string  `json:"paymentMethod"`
	PaymentProviderID string  `json:"paymentProviderId"`
}

// Create records one payment attempt in pending status.
func (h *Handler) Create(c echo.Context) error {
	var req payRequest
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, respond.Invalid("invalid request body"))
	}
	if req.Service == "" || req.Customer == "" || req.Provider == "" {
		return respond.Error(c, respond.Invalid("service, customer and provider are required"))
	}
	if req.Amount <= 0 {
		return respond.Error(c, respond.Invalid("amount must be greater than zero"))
	}

	created, err := h.payments.CreatePayment(c.Request().Context(), models.Payment{
		ID:                uuid.New().String(),
		Service:           req.Service,
		Customer:          req.Customer,
		Provider:          req.Provider,
		Amount:            req.Amount,
		PaymentMethod:     req.PaymentMethod,
		PaymentProviderID: req.PaymentProviderID,
	})
	if err != nil {
		h.log.Error("payment creation failed",
			zap.String("service_id", req.Service),
			zap.String("customer", req.Customer),
			zap.Error(err))
		return respond.Error(c, err)
	}

	h.log.Info("payment recorded",
		zap.String("payment_id", created.ID),
		zap.String("service_id", created.Service),
		zap.Float64("amount", created.Amount))
	return c.JSON(http.StatusCreated, created)
}

// List returns every payment in the system.
func (h *Handler) List(c echo.Context) error {
	payments, err := h.payments.ListPayments(c.Request().Context())
	if err != nil {
		return respond.Error(c, err)
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	return c.JSON(http.StatusOK, payments)
}
