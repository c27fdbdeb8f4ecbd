package services

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gravadigital/drawnames-api/internal/auth"
	"github.com/gravadigital/drawnames-api/internal/domain/common"
	"github.com/gravadigital/drawnames-api/internal/domain/event"
	"github.com/gravadigital/drawnames-api/internal/domain/participant"
	"github.com/gravadigital/drawnames-api/internal/logger"
	"github.com/gravadigital/drawnames-api/internal/validation"
)

// EventService maneja la lógica de negocio de eventos y su roster
type EventService struct {
	events    event.Repository
	keys      *auth.OrganizerKeys
	tokens    *auth.TokenIssuer
	validator validation.EventValidation
	people    validation.ParticipantValidation
	log       *log.Logger
}

// NewEventService crea una nueva instancia del servicio de eventos
func NewEventService(events event.Repository, keys *auth.OrganizerKeys, tokens *auth.TokenIssuer) *EventService {
	return &EventService{
		events: events,
		keys:   keys,
		tokens: tokens,
		log:    logger.Service("event"),
	}
}

// CreateEventRequest representa una solicitud para crear un evento
type CreateEventRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// CreatedEvent carries the organizer key. It is shown once and never stored.
type CreatedEvent struct {
	Event        *event.Event `json:"event"`
	OrganizerKey string       `json:"organizer_key"`
}

// CreateEvent crea un nuevo evento abierto
func (s *EventService) CreateEvent(ctx context.Context, req CreateEventRequest) (*CreatedEvent, error) {
	if err := s.validator.ValidateEventName(req.Name); err != nil {
		return nil, invalid(err)
	}
	if err := s.validator.ValidateEventDescription(req.Description); err != nil {
		return nil, invalid(err)
	}

	key, hash, err := s.keys.Generate()
	if err != nil {
		return nil, err
	}

	e := event.NewEvent(req.Name, req.Description, hash)
	if err := s.events.Create(ctx, e); err != nil {
		return nil, err
	}

	s.log.Info("Event created", "event_id", e.ID, "name", e.Name)
	return &CreatedEvent{Event: e, OrganizerKey: key}, nil
}

// GetEvent obtiene un evento por su ID
func (s *EventService) GetEvent(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	return s.events.GetByID(ctx, id)
}

// ListEvents obtiene todos los eventos
func (s *EventService) ListEvents(ctx context.Context) ([]*event.Event, error) {
	return s.events.GetAll(ctx)
}

// AuthorizeOrganizer checks key against the event's stored hash.
func (s *EventService) AuthorizeOrganizer(ctx context.Context, eventID uuid.UUID, key string) error {
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	return s.keys.Check(e.OrganizerKeyHash, key)
}

// JoinRequest representa una solicitud para unirse a un evento
type JoinRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email"`
}

// Joined is a new participant and the token that lets them reveal later.
type Joined struct {
	Participant *participant.Participant `json:"participant"`
	Token       string                   `json:"token"`
}

// AddParticipant registra un participante mientras el evento está abierto
func (s *EventService) AddParticipant(ctx context.Context, eventID uuid.UUID, req JoinRequest) (*Joined, error) {
	if err := s.people.ValidateParticipantName(req.Name); err != nil {
		return nil, invalid(err)
	}
	if err := s.people.ValidateParticipantEmail(req.Email); err != nil {
		return nil, invalid(err)
	}

	p := participant.NewParticipant(eventID, req.Name, req.Email)
	err := s.events.Transact(ctx, eventID, func(tx event.Tx) error {
		if err := requireOpen(tx.Event()); err != nil {
			return err
		}
		return tx.AddParticipant(p)
	})
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(eventID, p.ID)
	if err != nil {
		return nil, err
	}

	s.log.Info("Participant joined", "event_id", eventID, "participant_id", p.ID)
	return &Joined{Participant: p, Token: token}, nil
}

// RemoveParticipant quita a un participante y sus exclusiones
func (s *EventService) RemoveParticipant(ctx context.Context, eventID, participantID uuid.UUID) error {
	err := s.events.Transact(ctx, eventID, func(tx event.Tx) error {
		if err := requireOpen(tx.Event()); err != nil {
			return err
		}
		return tx.RemoveParticipant(participantID)
	})
	if err != nil {
		return err
	}

	s.log.Info("Participant removed", "event_id", eventID, "participant_id", participantID)
	return nil
}

// ListParticipants devuelve el roster del evento
func (s *EventService) ListParticipants(ctx context.Context, eventID uuid.UUID) ([]*participant.Participant, error) {
	return s.events.ListParticipants(ctx, eventID)
}

func requireOpen(e *event.Event) error {
	if !e.IsOpen() {
		return fmt.Errorf("%w: event is %s; the roster and exclusions are frozen", common.ErrStageConflict, e.Stage)
	}
	return nil
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
}
