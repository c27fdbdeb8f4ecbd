// Package memory is the in-process event store used for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gravadigital/drawnames-api/internal/domain/common"
	"github.com/gravadigital/drawnames-api/internal/domain/draw"
	"github.com/gravadigital/drawnames-api/internal/domain/event"
	"github.com/gravadigital/drawnames-api/internal/domain/exclusion"
	"github.com/gravadigital/drawnames-api/internal/domain/participant"
	"github.com/gravadigital/drawnames-api/internal/logger"
)

// record is everything stored for one event. mu serialises transactions on
// the event; reveals go through gate and only take the ticket's own lock.
type record struct {
	mu           sync.Mutex
	event        event.Event
	participants []*participant.Participant
	pairs        []exclusion.Pair
	gate         *draw.Gate
}

// EventRepository implements event.Repository in memory.
type EventRepository struct {
	mu     sync.RWMutex
	events map[uuid.UUID]*record
	order  []uuid.UUID
	log    *log.Logger
}

var _ event.Repository = (*EventRepository)(nil)

func NewEventRepository() *EventRepository {
	return &EventRepository{
		events: make(map[uuid.UUID]*record),
		log:    logger.Repository("memory_event"),
	}
}

func (r *EventRepository) Create(_ context.Context, e *event.Event) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.events[e.ID]; exists {
		return fmt.Errorf("%w: event %s", common.ErrDuplicateEntry, e.ID)
	}
	r.events[e.ID] = &record{event: *e}
	r.order = append(r.order, e.ID)

	r.log.Debug("Event created", "event_id", e.ID, "name", e.Name)
	return nil
}

func (r *EventRepository) get(id uuid.UUID) (*record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.events[id]
	if !ok {
		return nil, fmt.Errorf("%w: event %s", common.ErrNotFound, id)
	}
	return rec, nil
}

func (r *EventRepository) GetByID(_ context.Context, id uuid.UUID) (*event.Event, error) {
	rec, err := r.get(id)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	e := rec.event
	return &e, nil
}

func (r *EventRepository) GetAll(ctx context.Context) ([]*event.Event, error) {
	r.mu.RLock()
	ids := slices.Clone(r.order)
	r.mu.RUnlock()

	events := make([]*event.Event, 0, len(ids))
	for _, id := range ids {
		e, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

func (r *EventRepository) ListParticipants(_ context.Context, eventID uuid.UUID) ([]*participant.Participant, error) {
	rec, err := r.get(eventID)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return cloneParticipants(rec.participants), nil
}

func (r *EventRepository) ListExclusions(_ context.Context, eventID uuid.UUID) ([]exclusion.Pair, error) {
	rec, err := r.get(eventID)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return slices.Clone(rec.pairs), nil
}

func (r *EventRepository) gate(eventID uuid.UUID) (*draw.Gate, error) {
	rec, err := r.get(eventID)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.gate, nil
}

func (r *EventRepository) Tickets(_ context.Context, eventID uuid.UUID) ([]draw.Ticket, error) {
	g, err := r.gate(eventID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("%w: event %s has no assignment", common.ErrNotReady, eventID)
	}
	return g.Tickets(), nil
}

func (r *EventRepository) RevealTicket(_ context.Context, eventID, participantID uuid.UUID, at time.Time) (draw.Ticket, bool, error) {
	g, err := r.gate(eventID)
	if err != nil {
		return draw.Ticket{}, false, err
	}
	return g.Reveal(participantID.String(), at)
}

func (r *EventRepository) Transact(ctx context.Context, eventID uuid.UUID, fn func(tx event.Tx) error) error {
	rec, err := r.get(eventID)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{
		event:        rec.event,
		participants: cloneParticipants(rec.participants),
		pairs:        slices.Clone(rec.pairs),
		committed:    rec.gate,
	}
	if err := fn(tx); err != nil {
		r.log.Debug("Transaction rolled back", "event_id", eventID, "error", err)
		return err
	}

	var gate *draw.Gate
	if tx.tickets != nil {
		if gate, err = draw.NewGate(tx.tickets); err != nil {
			return fmt.Errorf("failed to store assignment: %w", err)
		}
	}

	tx.event.UpdatedAt = time.Now().UTC()
	rec.event = tx.event
	rec.participants = tx.participants
	rec.pairs = tx.pairs
	if gate != nil {
		rec.gate = gate
	}
	r.log.Debug("Transaction committed", "event_id", eventID, "stage", rec.event.Stage)
	return nil
}

// memTx stages writes on copies; Transact swaps them in on success.
type memTx struct {
	event        event.Event
	participants []*participant.Participant
	pairs        []exclusion.Pair
	tickets      []draw.Ticket
	committed    *draw.Gate
}

func (tx *memTx) Event() *event.Event {
	e := tx.event
	return &e
}

func (tx *memTx) Participants() ([]*participant.Participant, error) {
	return cloneParticipants(tx.participants), nil
}

func (tx *memTx) Exclusions() ([]exclusion.Pair, error) {
	return slices.Clone(tx.pairs), nil
}

func (tx *memTx) AddParticipant(p *participant.Participant) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	for _, existing := range tx.participants {
		if existing.ID == p.ID {
			return fmt.Errorf("%w: participant %s", common.ErrDuplicateEntry, p.ID)
		}
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	c := *p
	tx.participants = append(tx.participants, &c)
	return nil
}

func (tx *memTx) RemoveParticipant(id uuid.UUID) error {
	i := slices.IndexFunc(tx.participants, func(p *participant.Participant) bool { return p.ID == id })
	if i < 0 {
		return fmt.Errorf("%w: participant %s", common.ErrNotFound, id)
	}
	tx.participants = slices.Delete(tx.participants, i, i+1)

	key := id.String()
	tx.pairs = slices.DeleteFunc(tx.pairs, func(p exclusion.Pair) bool {
		return p.A == key || p.B == key
	})
	return nil
}

func (tx *memTx) ReplaceExclusions(pairs []exclusion.Pair) error {
	tx.pairs = slices.Clone(pairs)
	return nil
}

func (tx *memTx) SetStage(from, to event.Stage, at time.Time) error {
	if tx.event.Stage != from {
		return fmt.Errorf("%w: event is %s, not %s", common.ErrStageConflict, tx.event.Stage, from)
	}
	return tx.event.UpdateStage(to, at)
}

func (tx *memTx) SaveTickets(tickets []draw.Ticket) error {
	if tx.committed != nil || tx.tickets != nil {
		return fmt.Errorf("%w: assignment already stored", common.ErrDuplicateEntry)
	}
	tx.tickets = slices.Clone(tickets)
	return nil
}

func (tx *memTx) Tickets() ([]draw.Ticket, error) {
	if tx.tickets != nil {
		return slices.Clone(tx.tickets), nil
	}
	if tx.committed == nil {
		return nil, fmt.Errorf("%w: no assignment yet", common.ErrNotReady)
	}
	return tx.committed.Tickets(), nil
}

func cloneParticipants(ps []*participant.Participant) []*participant.Participant {
	out := make([]*participant.Participant, len(ps))
	for i, p := range ps {
		c := *p
		out[i] = &c
	}
	return out
}
