package negotiation

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/servigo/servigo/internal/metrics"
	"github.com/servigo/servigo/internal/models"
	"github.com/servigo/servigo/internal/respond"
	"github.com/servigo/servigo/internal/storage"
)

// Handler serves service-request creation, listing, and resolution.
type Handler struct {
	requests storage.RequestStore
	services storage.ServiceStore
	log      *zap.Logger
}

func NewHandler(requests storage.RequestStore, services storage.ServiceStore, log *zap.Logger) *Handler {
	return &Handler{requests: requests, services: services, log: log}
}

type createRequest struct {
	Service       string    `json:"service"`
	Proposer      string    `json:"proposer"`
	ProposedValue float64   `json:"proposedValue"`
	ProposedDate  time.Time `json:"proposedDate"`
}

// Create files a proposal against an open service.
func (h *Handler) Create(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, respond.Invalid("invalid request body"))
	}
	if req.Service == "" || req.Proposer == "" {
		return respond.Error(c, respond.Invalid("service and proposer are required"))
	}
	if req.ProposedValue <= 0 {
		return respond.Error(c, respond.Invalid("proposedValue must be greater than zero"))
	}
	if req.ProposedDate.Before(time.Now()) {
		return respond.Error(c, respond.Invalid("proposedDate must not be in the past"))
	}

	ctx := c.Request().Context()
	svc, err := h.services.GetService(ctx, req.Service)
	if err != nil {
		return respond.Error(c, err)
	}
	if svc.Creator == req.Proposer {
		return respond.Error(c, fmt.Errorf("creator may not propose on own service %s: %w",
			svc.ID, storage.ErrForbidden))
	}

	created, err := h.requests.CreateRequest(ctx, models.ServiceRequest{
		ID:            uuid.New().String(),
		Service:       req.Service,
		Proposer:      req.Proposer,
		ProposedValue: req.ProposedValue,
		ProposedDate:  req.ProposedDate,
	})
	if err != nil {
		h.log.Warn("request creation failed",
			zap.String("service_id", req.Service),
			zap.String("proposer", req.Proposer),
			zap.Error(err))
		return respond.Error(c, err)
	}

	h.log.Info("request created",
		zap.String("request_id", created.ID),
		zap.String("service_id", created.Service),
		zap.String("proposer", created.Proposer))
	return c.JSON(http.StatusCreated, created)
}

// ListByService returns every proposal filed against one service.
func (h *Handler) ListByService(c echo.Context) error {
	requests, err := h.requests.ListRequestsByService(c.Request().Context(), c.Param("serviceId"))
	if err != nil {
		return respond.Error(c, err)
	}
	if requests == nil {
		requests = []models.ServiceRequest{}
	}
	return c.JSON(http.StatusOK, requests)
}

type resolveRequest struct {
	Decision string `json:"decision"`
	ActorID  string `json:"actorId"`
}

// Resolve accepts or declines a pending proposal. Only the service creator
// may resolve. Accepting also carries the service to accepted and declines
// every sibling pending request, atomically.
func (h *Handler) Resolve(c echo.Context) error {
	requestID := c.Param("id")

	var req resolveRequest
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, respond.Invalid("invalid request body"))
	}
	if req.ActorID == "" {
		return respond.Error(c, respond.Invalid("actorId is required"))
	}
	if req.Decision != models.DecisionAccept && req.Decision != models.DecisionDecline {
		return respond.Error(c, respond.Invalid("decision must be accept or decline"))
	}

	ctx := c.Request().Context()
	request, err := h.requests.GetRequest(ctx, requestID)
	if err != nil {
		return respond.Error(c, err)
	}
	svc, err := h.services.GetService(ctx, request.Service)
	if err != nil {
		return respond.Error(c, err)
	}
	if svc.Creator != req.ActorID {
		h.log.Warn("resolution rejected",
			zap.String("request_id", requestID),
			zap.String("actor", req.ActorID))
		return respond.Error(c, fmt.Errorf("actor %s is not the creator of service %s: %w",
			req.ActorID, svc.ID, storage.ErrForbidden))
	}

	if req.Decision == models.DecisionDecline {
		declined, err := h.requests.DeclineRequest(ctx, requestID)
		if err != nil {
			metrics.RecordTransition("request", string(models.RequestDeclined), "error")
			return respond.Error(c, err)
		}
		h.log.Info("request declined",
			zap.String("request_id", requestID),
			zap.String("service_id", svc.ID),
			zap.String("actor", req.ActorID))
		metrics.RecordTransition("request", string(models.RequestDeclined), "ok")
		return c.JSON(http.StatusOK, echo.Map{"request": declined, "service": svc})
	}

	accepted, updatedSvc, err := h.requests.AcceptRequest(ctx, requestID)
	if err != nil {
		metrics.RecordTransition("request", string(models.RequestAccepted), "error")
		h.log.Warn("accept failed",
			zap.String("request_id", requestID),
			zap.String("service_id", svc.ID),
			zap.Error(err))
		return respond.Error(c, err)
	}

	h.log.Info("request accepted",
		zap.String("request_id", accepted.ID),
		zap.String("service_id", updatedSvc.ID),
		zap.String("accepted_by", accepted.Proposer))
	metrics.RecordTransition("request", string(models.RequestAccepted), "ok")
	return c.JSON(http.StatusOK, echo.Map{"request": accepted, "service": updatedSvc})
}
