// Package auth guards organizer and participant routes.
package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	drawauth "github.com/gravadigital/drawnames-api/internal/auth"
	"github.com/gravadigital/drawnames-api/internal/domain/common"
	"github.com/gravadigital/drawnames-api/internal/response"
)

// OrganizerKeyHeader carries the key returned when the event was created.
const OrganizerKeyHeader = "X-Organizer-Key"

// ParticipantKey is the context key holding the authenticated participant ID.
const ParticipantKey = "participant_id"

// OrganizerAuthorizer checks an organizer key for an event.
type OrganizerAuthorizer interface {
	AuthorizeOrganizer(ctx context.Context, eventID uuid.UUID, key string) error
}

// RequireOrganizer lets the request through only with the event's organizer
// key. The event ID comes from the :id path parameter.
func RequireOrganizer(authz OrganizerAuthorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, err := PathUUID(c, "id")
		if err != nil {
			response.Error(c, err)
			return
		}
		key := c.GetHeader(OrganizerKeyHeader)
		if key == "" {
			response.Error(c, fmt.Errorf("%w: missing %s header", common.ErrUnauthorized, OrganizerKeyHeader))
			return
		}
		if err := authz.AuthorizeOrganizer(c.Request.Context(), eventID, key); err != nil {
			response.Error(c, err)
			return
		}
		c.Next()
	}
}

// RequireParticipant checks the bearer token against the :id and :pid path
// parameters. A participant can only act as themselves.
func RequireParticipant(tokens *drawauth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, err := PathUUID(c, "id")
		if err != nil {
			response.Error(c, err)
			return
		}
		participantID, err := PathUUID(c, "pid")
		if err != nil {
			response.Error(c, err)
			return
		}

		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" {
			response.Error(c, fmt.Errorf("%w: missing bearer token", common.ErrUnauthorized))
			return
		}
		claims, err := tokens.Parse(raw)
		if err != nil {
			response.Error(c, err)
			return
		}
		subject, _ := claims.ParticipantID()
		if claims.EventID != eventID.String() || subject != participantID {
			response.Error(c, fmt.Errorf("%w: token belongs to someone else", common.ErrUnauthorized))
			return
		}

		c.Set(ParticipantKey, participantID)
		c.Next()
	}
}

// PathUUID parses a UUID path parameter.
func PathUUID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s must be a UUID", common.ErrInvalidInput, name)
	}
	return id, nil
}
