package payment

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/servigo/servigo/internal/metrics"
	"github.com/servigo/servigo/internal/models"
	"github.com/servigo/servigo/internal/respond"
	"github.com/servigo/servigo/internal/storage"
)

type webhookRequest struct {
	PaymentProviderID string               `json:"paymentProviderId"`
	Status            models.PaymentStatus `json:"status"`
}

// Webhook is the gateway's callback: it moves a payment out of pending.
// Repeated deliveries of the same event answer 409 rather than flipping the
// status twice.
func (h *Handler) Webhook(c echo.Context) error {
	var req webhookRequest
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, respond.Invalid("invalid request body"))
	}
	if req.PaymentProviderID == "" {
		return respond.Error(c, respond.Invalid("paymentProviderId is required"))
	}
	if !models.ValidPaymentTransition(models.PaymentPending, req.Status) {
		return respond.Error(c, fmt.Errorf("payments may only move to completed or failed: %w",
			storage.ErrInvalidTransition))
	}

	updated, err := h.payments.ResolvePaymentByProviderID(c.Request().Context(),
		req.PaymentProviderID, req.Status)
	if err != nil {
		metrics.RecordTransition("payment", string(req.Status), "error")
		h.log.Warn("webhook resolution failed",
			zap.String("provider_ref", req.PaymentProviderID),
			zap.String("to", string(req.Status)),
			zap.Error(err))
		return respond.Error(c, err)
	}

	h.log.Info("payment resolved",
		zap.String("payment_id", updated.ID),
		zap.String("provider_ref", req.PaymentProviderID),
		zap.String("to", string(updated.PaymentStatus)))
	metrics.RecordTransition("payment", string(updated.PaymentStatus), "ok")
	return c.JSON(http.StatusOK, updated)
}
