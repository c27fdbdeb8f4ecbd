package handlers

import (
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/drawnames-api/internal/domain/common"
	"github.com/gravadigital/drawnames-api/internal/logger"
	"github.com/gravadigital/drawnames-api/internal/middleware/auth"
	"github.com/gravadigital/drawnames-api/internal/response"
	"github.com/gravadigital/drawnames-api/internal/services"
)

type EventHandler struct {
	events *services.EventService
	log    *log.Logger
}

func NewEventHandler(events *services.EventService) *EventHandler {
	return &EventHandler{
		events: events,
		log:    logger.Handler("event_handler"),
	}
}

// bind decodes the JSON body into req, answering 400 on failure.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, fmt.Errorf("%w: invalid request payload: %v", common.ErrInvalidInput, err))
		return false
	}
	return true
}

// CreateEvent handles POST /api/events
func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req services.CreateEventRequest
	if !bind(c, &req) {
		return
	}

	created, err := h.events.CreateEvent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusCreated, "Event created; keep the organizer key, it is shown only once", created)
}

// GetAllEvents handles GET /api/events
func (h *EventHandler) GetAllEvents(c *gin.Context) {
	events, err := h.events.ListEvents(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", gin.H{
		"events": events,
		"count":  len(events),
	})
}

// GetEvent handles GET /api/events/:id
func (h *EventHandler) GetEvent(c *gin.Context) {
	eventID, err := auth.PathUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	e, err := h.events.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", e)
}

// RegisterParticipant handles POST /api/events/:id/participants
func (h *EventHandler) RegisterParticipant(c *gin.Context) {
	eventID, err := auth.PathUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req services.JoinRequest
	if !bind(c, &req) {
		return
	}

	joined, err := h.events.AddParticipant(c.Request.Context(), eventID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusCreated, "Participant registered; keep the token to reveal your draw", joined)
}

// GetParticipants handles GET /api/events/:id/participants
func (h *EventHandler) GetParticipants(c *gin.Context) {
	eventID, err := auth.PathUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	participants, err := h.events.ListParticipants(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", gin.H{
		"participants": participants,
		"count":        len(participants),
	})
}

// RemoveParticipant handles DELETE /api/events/:id/participants/:pid
func (h *EventHandler) RemoveParticipant(c *gin.Context) {
	eventID, err := auth.PathUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	participantID, err := auth.PathUUID(c, "pid")
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.events.RemoveParticipant(c.Request.Context(), eventID, participantID); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "Participant removed", nil)
}
