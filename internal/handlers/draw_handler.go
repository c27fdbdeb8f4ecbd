package handlers

import (
	"context"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gravadigital/drawnames-api/internal/domain/event"
	"github.com/gravadigital/drawnames-api/internal/logger"
	"github.com/gravadigital/drawnames-api/internal/middleware/auth"
	"github.com/gravadigital/drawnames-api/internal/response"
	"github.com/gravadigital/drawnames-api/internal/services"
)

type DrawHandler struct {
	draws *services.DrawService
	log   *log.Logger
}

func NewDrawHandler(draws *services.DrawService) *DrawHandler {
	return &DrawHandler{
		draws: draws,
		log:   logger.Handler("draw_handler"),
	}
}

type ConfigureExclusionsRequest struct {
	Edits []services.ExclusionEdit `json:"edits" binding:"required,dive"`
}

// GetExclusions handles GET /api/events/:id/exclusions
func (h *DrawHandler) GetExclusions(c *gin.Context) {
	eventID, err := auth.PathUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	pairs, err := h.draws.ListExclusions(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", gin.H{
		"exclusions": pairs,
		"count":      len(pairs),
	})
}

// ConfigureExclusions handles PUT /api/events/:id/exclusions
func (h *DrawHandler) ConfigureExclusions(c *gin.Context) {
	eventID, err := auth.PathUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req ConfigureExclusionsRequest
	if !bind(c, &req) {
		return
	}

	feasibility, err := h.draws.ConfigureExclusions(c.Request.Context(), eventID, req.Edits)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "Exclusions updated", feasibility)
}

// GetFeasibility handles GET /api/events/:id/feasibility
func (h *DrawHandler) GetFeasibility(c *gin.Context) {
	eventID, err := auth.PathUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	feasibility, err := h.draws.CheckFeasibility(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", feasibility)
}

// Lock handles POST /api/events/:id/lock
func (h *DrawHandler) Lock(c *gin.Context) {
	h.transition(c, "Event locked", h.draws.Lock)
}

// Unlock handles POST /api/events/:id/unlock
func (h *DrawHandler) Unlock(c *gin.Context) {
	h.transition(c, "Event reopened", h.draws.Unlock)
}

func (h *DrawHandler) transition(c *gin.Context, message string, fn func(context.Context, uuid.UUID) (*event.Event, error)) {
	eventID, err := auth.PathUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	e, err := fn(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, message, e)
}

// Assign handles POST /api/events/:id/assign
func (h *DrawHandler) Assign(c *gin.Context) {
	eventID, err := auth.PathUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	assigned, err := h.draws.Assign(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "Names drawn", assigned)
}

// Reveal handles POST /api/events/:id/participants/:pid/reveal
func (h *DrawHandler) Reveal(c *gin.Context) {
	eventID, err := auth.PathUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	participantID := c.MustGet(auth.ParticipantKey).(uuid.UUID)

	revealed, err := h.draws.Reveal(c.Request.Context(), eventID, participantID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", revealed)
}

// GetProgress handles GET /api/events/:id/progress
func (h *DrawHandler) GetProgress(c *gin.Context) {
	eventID, err := auth.PathUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	progress, err := h.draws.Progress(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", progress)
}
