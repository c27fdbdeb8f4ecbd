package event

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gravadigital/drawnames-api/internal/domain/draw"
	"github.com/gravadigital/drawnames-api/internal/domain/exclusion"
	"github.com/gravadigital/drawnames-api/internal/domain/participant"
)

// Repository persists events together with their roster, exclusions and
// committed assignment.
type Repository interface {
	Create(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	GetAll(ctx context.Context) ([]*Event, error)
	ListParticipants(ctx context.Context, eventID uuid.UUID) ([]*participant.Participant, error)
	ListExclusions(ctx context.Context, eventID uuid.UUID) ([]exclusion.Pair, error)

	// Tickets returns the committed assignment, or ErrNotReady before one exists.
	Tickets(ctx context.Context, eventID uuid.UUID) ([]draw.Ticket, error)

	// RevealTicket marks participantID's ticket revealed on the first call and
	// returns it. The bool reports whether this call made the transition.
	RevealTicket(ctx context.Context, eventID, participantID uuid.UUID, at time.Time) (draw.Ticket, bool, error)

	// Transact runs fn with exclusive access to one event. Everything fn writes
	// through tx is committed together when fn returns nil and discarded
	// otherwise.
	Transact(ctx context.Context, eventID uuid.UUID, fn func(tx Tx) error) error
}

// Tx is the read-modify-write view of one event inside Transact.
type Tx interface {
	Event() *Event
	Participants() ([]*participant.Participant, error)
	Exclusions() ([]exclusion.Pair, error)
	AddParticipant(p *participant.Participant) error
	// RemoveParticipant also drops every exclusion naming the participant.
	RemoveParticipant(id uuid.UUID) error
	ReplaceExclusions(pairs []exclusion.Pair) error
	// SetStage moves the event from one stage to another and fails with
	// ErrStageConflict when the stored stage is not from.
	SetStage(from, to Stage, at time.Time) error
	SaveTickets(tickets []draw.Ticket) error
	Tickets() ([]draw.Ticket, error)
}
