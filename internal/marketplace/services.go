package marketplace

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/servigo/servigo/internal/models"
	"github.com/servigo/servigo/internal/respond"
	"github.com/servigo/servigo/internal/storage"
	"github.com/servigo/servigo/internal/uploads"
)

// Handler serves service listing creation, discovery, and lifecycle.
type Handler struct {
	services storage.ServiceStore
	requests storage.RequestStore
	saver    *uploads.Saver
	log      *zap.Logger
}

func NewHandler(services storage.ServiceStore, requests storage.RequestStore, saver *uploads.Saver, log *zap.Logger) *Handler {
	return &Handler{services: services, requests: requests, saver: saver, log: log}
}

// Create lists a new service. The form carries the descriptive fields, the
// location as a JSON object, and up to ten image files.
func (h *Handler) Create(c echo.Context) error {
	name := strings.TrimSpace(c.FormValue("name"))
	description := strings.TrimSpace(c.FormValue("description"))
	creator := strings.TrimSpace(c.FormValue("creator"))
	serviceType := c.FormValue("serviceType")

	if name == "" || description == "" || creator == "" {
		return respond.Error(c, respond.Invalid("name, description and creator are required"))
	}
	if !models.ValidServiceType(serviceType) {
		return respond.Error(c, respond.Invalid("unknown serviceType "+serviceType))
	}

	value, err := strconv.ParseFloat(c.FormValue("value"), 64)
	if err != nil || value <= 0 {
		return respond.Error(c, respond.Invalid("value must be a number greater than zero"))
	}

	var location models.Address
	if raw := c.FormValue("location"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &location); err != nil {
			return respond.Error(c, respond.Invalid("location must be a JSON object"))
		}
	}
	if err := location.Validate(); err != nil {
		return respond.Error(c, err)
	}

	images, err := h.saveImages(c)
	if err != nil {
		return respond.Error(c, err)
	}

	svc, err := h.services.CreateService(c.Request().Context(), models.Service{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		Value:       value,
		Location:    location,
		ServiceType: serviceType,
		Creator:     creator,
		Images:      images,
	})
	if err != nil {
		h.log.Error("service creation failed", zap.String("creator", creator), zap.Error(err))
		return respond.Error(c, err)
	}

	h.log.Info("service created",
		zap.String("service_id", svc.ID),
		zap.String("creator", svc.Creator))
	return c.JSON(http.StatusCreated, svc)
}

// List returns every service in the system.
func (h *Handler) List(c echo.Context) error {
	services, err := h.services.ListServices(c.Request().Context())
	if err != nil {
		return respond.Error(c, err)
	}
	if services == nil {
		services = []models.Service{}
	}
	return c.JSON(http.StatusOK, services)
}

// UpdateDetails edits the descriptive fields of an open service. Only the
// creator may edit, and only before the service leaves open.
func (h *Handler) UpdateDetails(c echo.Context) error {
	serviceID := c.Param("id")

	var req struct {
		ActorID     string   `json:"actorId"`
		Name        *string  `json:"name"`
		Description *string  `json:"description"`
		Value       *float64 `json:"value"`
	}
	if err := c.Bind(&req); err != nil {
		return respond.Error(c, respond.Invalid("invalid request body"))
	}
	if req.ActorID == "" {
		return respond.Error(c, respond.Invalid("actorId is required"))
	}
	if req.Name == nil && req.Description == nil && req.Value == nil {
		return respond.Error(c, respond.Invalid("nothing to update"))
	}
	if req.Value != nil && *req.Value <= 0 {
		return respond.Error(c, respond.Invalid("value must be greater than zero"))
	}

	ctx := c.Request().Context()
	svc, err := h.services.GetService(ctx, serviceID)
	if err != nil {
		return respond.Error(c, err)
	}
	if svc.Creator != req.ActorID {
		h.log.Warn("detail edit rejected",
			zap.String("service_id", serviceID),
			zap.String("actor", req.ActorID))
		return respond.Error(c, fmt.Errorf("only the creator may edit service %s: %w", serviceID, storage.ErrForbidden))
	}
	if svc.Status != models.ServiceOpen {
		return respond.Error(c, fmt.Errorf("service %s is no longer open: %w", serviceID, storage.ErrConflict))
	}

	updated, err := h.services.UpdateServiceDetails(ctx, serviceID, storage.ServiceDetails{
		Name:        req.Name,
		Description: req.Description,
		Value:       req.Value,
	})
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) saveImages(c echo.Context) ([]string, error) {
	images := []string{}
	form, err := c.MultipartForm()
	if err != nil {
		// No multipart body at all means no images were sent.
		return images, nil
	}
	files := form.File["images"]
	if len(files) > models.MaxServiceImages {
		return nil, respond.Invalid("at most 10 images are allowed")
	}
	for _, fh := range files {
		path, err := h.saver.SaveImage("images", fh)
		if err != nil {
			var unsupported *uploads.ErrUnsupportedType
			if errors.As(err, &unsupported) {
				return nil, respond.Invalid(err.Error())
			}
			return nil, err
		}
		images = append(images, path)
	}
	return images, nil
}
