package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/pdmews/internal/application/dto"
	"github.com/turtacn/pdmews/internal/application/service"
)

// SignalHandler serves exposures and misuse events.
type SignalHandler struct {
	exposures service.ExposureService
	events    service.MisuseEventService
}

// NewSignalHandler creates a new SignalHandler.
func NewSignalHandler(exposures service.ExposureService, events service.MisuseEventService) *SignalHandler {
	return &SignalHandler{exposures: exposures, events: events}
}

// AddExposure handles POST /api/v1/sources.
func (h *SignalHandler) AddExposure(c *gin.Context) {
	var req dto.AddExposureRequest
	if !bindJSON(c, &req) {
		return
	}
	exposure, err := h.exposures.AddExposure(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, exposure)
}

// ListExposures handles GET /api/v1/sources/:user_id.
func (h *SignalHandler) ListExposures(c *gin.Context) {
	userID, ok := pathUUID(c, "user_id")
	if !ok {
		return
	}
	exposures, err := h.exposures.ListExposures(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, exposures)
}

// ReportEvent handles POST /api/v1/events.
func (h *SignalHandler) ReportEvent(c *gin.Context) {
	var req dto.ReportEventRequest
	if !bindJSON(c, &req) {
		return
	}
	event, err := h.events.ReportEvent(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, event)
}

// ListEvents handles GET /api/v1/events/:user_id.
func (h *SignalHandler) ListEvents(c *gin.Context) {
	userID, ok := pathUUID(c, "user_id")
	if !ok {
		return
	}
	events, err := h.events.ListEvents(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, events)
}
