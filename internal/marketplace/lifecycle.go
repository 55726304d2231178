package marketplace

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/servigo/servigo/internal/metrics"
	"github.com/servigo/servigo/internal/models"
	"github.com/servigo/servigo/internal/respond"
	"github.com/servigo/servigo/internal/storage"
)

// UpdateStatus moves a service through its lifecycle. Cancel and complete
// belong to the creator; accepting belongs to a proposer with a pending
// request and routes through the transactional accept so the winning request
// and its siblings change together with the service.
func (h *Handler) UpdateStatus(c echo.Context) error {
	serviceID := c.Param("id")

	var req struct {
		RequestedStatus models.ServiceStatus `json:"requestedStatus"`
		ActorID         string               `json:"actorId"`
	}
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, respond.Invalid("invalid request body"))
	}
	if req.ActorID == "" {
		return respond.Error(c, respond.Invalid("actorId is required"))
	}
	if !models.ValidServiceStatus(req.RequestedStatus) {
		return respond.Error(c, respond.Invalid("unknown status "+string(req.RequestedStatus)))
	}

	ctx := c.Request().Context()
	svc, err := h.services.GetService(ctx, serviceID)
	if err != nil {
		return respond.Error(c, err)
	}

	if !models.ValidServiceTransition(svc.Status, req.RequestedStatus) {
		h.log.Warn("transition rejected",
			zap.String("service_id", serviceID),
			zap.String("from", string(svc.Status)),
			zap.String("to", string(req.RequestedStatus)),
			zap.String("actor", req.ActorID))
		metrics.RecordTransition("service", string(req.RequestedStatus), "invalid")
		return respond.Error(c, fmt.Errorf("service %s cannot move %s -> %s: %w",
			serviceID, svc.Status, req.RequestedStatus, storage.ErrInvalidTransition))
	}

	var updated models.Service
	if req.RequestedStatus == models.ServiceAccepted {
		updated, err = h.acceptAsProposer(c, svc, req.ActorID)
	} else {
		updated, err = h.transitionAsCreator(c, svc, req.RequestedStatus, req.ActorID)
	}
	if err != nil {
		metrics.RecordTransition("service", string(req.RequestedStatus), "error")
		return respond.Error(c, err)
	}

	h.log.Info("service transitioned",
		zap.String("service_id", serviceID),
		zap.String("from", string(svc.Status)),
		zap.String("to", string(updated.Status)),
		zap.String("actor", req.ActorID))
	metrics.RecordTransition("service", string(updated.Status), "ok")
	return c.JSON(http.StatusOK, updated)
}

// acceptAsProposer resolves the actor's own pending request, which carries
// the service to accepted and declines the siblings in one transaction.
func (h *Handler) acceptAsProposer(c echo.Context, svc models.Service, actorID string) (models.Service, error) {
	ctx := c.Request().Context()
	pending, err := h.requests.FindPendingRequest(ctx, svc.ID, actorID)
	if errors.Is(err, storage.ErrNotFound) {
		return models.Service{}, fmt.Errorf("actor %s has no pending request on service %s: %w",
			actorID, svc.ID, storage.ErrForbidden)
	}
	if err != nil {
		return models.Service{}, err
	}

	_, accepted, err := h.requests.AcceptRequest(ctx, pending.ID)
	if err != nil {
		return models.Service{}, err
	}
	return accepted, nil
}

func (h *Handler) transitionAsCreator(c echo.Context, svc models.Service, to models.ServiceStatus, actorID string) (models.Service, error) {
	if svc.Creator != actorID {
		return models.Service{}, fmt.Errorf("actor %s is not the creator of service %s: %w",
			actorID, svc.ID, storage.ErrForbidden)
	}
	return h.services.TransitionService(c.Request().Context(), svc.ID, svc.Status, to, nil)
}
