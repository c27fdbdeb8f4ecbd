package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/gravadigital/drawnames-api/internal/domain/common"
	"github.com/gravadigital/drawnames-api/internal/domain/draw"
	"github.com/gravadigital/drawnames-api/internal/domain/event"
	"github.com/gravadigital/drawnames-api/internal/domain/exclusion"
	"github.com/gravadigital/drawnames-api/internal/domain/participant"
	"github.com/gravadigital/drawnames-api/internal/logger"
	"github.com/gravadigital/drawnames-api/internal/metrics"
)

// DrawService runs the assignment lifecycle of an event: exclusions,
// feasibility, lock, assign and reveal.
type DrawService struct {
	events    event.Repository
	generator *draw.Generator
	metrics   *metrics.DrawMetrics
	group     singleflight.Group
	now       func() time.Time
	log       *log.Logger
}

func NewDrawService(events event.Repository, generator *draw.Generator, m *metrics.DrawMetrics) *DrawService {
	if m == nil {
		m = metrics.New(nil)
	}
	return &DrawService{
		events:    events,
		generator: generator,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
		log:       logger.Service("draw"),
	}
}

// ParticipantRef names a participant in responses.
type ParticipantRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// InfeasibleError is draw.InfeasibleError with display names resolved.
type InfeasibleError struct {
	Blocking []ParticipantRef
}

func (e *InfeasibleError) Error() string {
	names := make([]string, len(e.Blocking))
	for i, p := range e.Blocking {
		names[i] = p.Name
	}
	return fmt.Sprintf("no valid assignment exists: %s cannot all be given a recipient", strings.Join(names, ", "))
}

func (e *InfeasibleError) Is(target error) bool {
	return target == common.ErrInfeasible
}

// roster is the roster of an event loaded for the engine.
type roster struct {
	participants []*participant.Participant
	byKey        map[string]*participant.Participant
	set          *exclusion.Set
}

func newRoster(ps []*participant.Participant, pairs []exclusion.Pair) (*roster, error) {
	set, err := exclusion.NewSetWithPairs(participant.Keys(ps), pairs)
	if err != nil {
		return nil, err
	}
	r := &roster{participants: ps, set: set, byKey: make(map[string]*participant.Participant, len(ps))}
	for _, p := range ps {
		r.byKey[p.Key()] = p
	}
	return r, nil
}

func loadRoster(tx event.Tx) (*roster, error) {
	ps, err := tx.Participants()
	if err != nil {
		return nil, err
	}
	pairs, err := tx.Exclusions()
	if err != nil {
		return nil, err
	}
	return newRoster(ps, pairs)
}

func (r *roster) ref(key string) ParticipantRef {
	if p, ok := r.byKey[key]; ok {
		return ParticipantRef{ID: p.ID, Name: p.Name}
	}
	id, _ := uuid.Parse(key)
	return ParticipantRef{ID: id}
}

func (r *roster) refs(keys []string) []ParticipantRef {
	out := make([]ParticipantRef, len(keys))
	for i, k := range keys {
		out[i] = r.ref(k)
	}
	return out
}

// named resolves IDs in an engine error to display names.
func (r *roster) named(err error) error {
	var infeasible *draw.InfeasibleError
	if errors.As(err, &infeasible) {
		return &InfeasibleError{Blocking: r.refs(infeasible.Blocking)}
	}
	return err
}

// Candidates is the advisory count of recipients left for one participant.
type Candidates struct {
	Participant ParticipantRef `json:"participant"`
	Remaining   int            `json:"remaining"`
}

// Feasibility is the verdict shown to organizers.
type Feasibility struct {
	Feasible     bool             `json:"feasible"`
	Participants int              `json:"participants"`
	Blocking     []ParticipantRef `json:"blocking_participants,omitempty"`
	Candidates   []Candidates     `json:"remaining_candidates"`
	Message      string           `json:"message,omitempty"`
}

func (s *DrawService) feasibility(r *roster) (*Feasibility, error) {
	f := &Feasibility{Participants: r.set.Len(), Candidates: make([]Candidates, 0, r.set.Len())}
	for _, key := range r.set.Participants() {
		n, err := r.set.RemainingCandidates(key)
		if err != nil {
			return nil, err
		}
		f.Candidates = append(f.Candidates, Candidates{Participant: r.ref(key), Remaining: n})
	}

	report, err := draw.Check(r.set)
	switch {
	case errors.Is(err, common.ErrTooFewParticipants):
		f.Message = fmt.Sprintf("at least %d participants are required", common.MinParticipants)
		return f, nil
	case err != nil:
		return nil, err
	}

	s.metrics.ObserveFeasibility(report.Feasible)
	f.Feasible = report.Feasible
	if !report.Feasible {
		f.Blocking = r.refs(report.Blocking)
		f.Message = (&InfeasibleError{Blocking: f.Blocking}).Error()
	}
	return f, nil
}

// ExclusionOp is the kind of an exclusion edit.
type ExclusionOp string

const (
	ExclusionAdd    ExclusionOp = "add"
	ExclusionRemove ExclusionOp = "remove"
)

// ExclusionEdit adds or removes the exclusion between A and B.
type ExclusionEdit struct {
	Op ExclusionOp `json:"op" binding:"required,oneof=add remove"`
	A  uuid.UUID   `json:"a" binding:"required"`
	B  uuid.UUID   `json:"b" binding:"required"`
}

// ConfigureExclusions applies edits as one batch while the event is open and
// returns the feasibility of the result. Any invalid edit rejects the batch.
func (s *DrawService) ConfigureExclusions(ctx context.Context, eventID uuid.UUID, edits []ExclusionEdit) (*Feasibility, error) {
	var f *Feasibility
	err := s.events.Transact(ctx, eventID, func(tx event.Tx) error {
		if err := requireOpen(tx.Event()); err != nil {
			return err
		}
		r, err := loadRoster(tx)
		if err != nil {
			return err
		}

		for i, edit := range edits {
			a, b := edit.A.String(), edit.B.String()
			switch edit.Op {
			case ExclusionAdd:
				err = r.set.Add(a, b)
			case ExclusionRemove:
				err = r.set.Remove(a, b)
			default:
				err = fmt.Errorf("%w: unknown op %q", common.ErrInvalidInput, edit.Op)
			}
			if err != nil {
				return fmt.Errorf("edit %d: %w", i, err)
			}
		}

		if err := tx.ReplaceExclusions(r.set.Pairs()); err != nil {
			return err
		}
		f, err = s.feasibility(r)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Exclusions configured", "event_id", eventID, "edits", len(edits), "feasible", f.Feasible)
	return f, nil
}

// ListExclusions devuelve las exclusiones del evento
func (s *DrawService) ListExclusions(ctx context.Context, eventID uuid.UUID) ([]exclusion.Pair, error) {
	return s.events.ListExclusions(ctx, eventID)
}

// CheckFeasibility reports whether any valid assignment exists right now.
func (s *DrawService) CheckFeasibility(ctx context.Context, eventID uuid.UUID) (*Feasibility, error) {
	ps, err := s.events.ListParticipants(ctx, eventID)
	if err != nil {
		return nil, err
	}
	pairs, err := s.events.ListExclusions(ctx, eventID)
	if err != nil {
		return nil, err
	}
	r, err := newRoster(ps, pairs)
	if err != nil {
		return nil, err
	}
	return s.feasibility(r)
}

// Lock freezes the roster and exclusions. Feasibility is checked again first;
// an infeasible event stays open.
func (s *DrawService) Lock(ctx context.Context, eventID uuid.UUID) (*event.Event, error) {
	var locked *event.Event
	err := s.events.Transact(ctx, eventID, func(tx event.Tx) error {
		if err := requireOpen(tx.Event()); err != nil {
			return err
		}
		r, err := loadRoster(tx)
		if err != nil {
			return err
		}

		report, err := draw.Check(r.set)
		if err != nil {
			return err
		}
		s.metrics.ObserveFeasibility(report.Feasible)
		if err := report.Err(); err != nil {
			return r.named(err)
		}

		if err := tx.SetStage(event.StageOpen, event.StageLocked, s.now()); err != nil {
			return err
		}
		locked = tx.Event()
		return nil
	})
	if err != nil {
		s.log.Warn("Lock rejected", "event_id", eventID, "error", err)
		return nil, err
	}

	s.log.Info("Event locked", "event_id", eventID)
	return locked, nil
}

// Unlock reopens a locked event for edits. Nothing leaves Assigned.
func (s *DrawService) Unlock(ctx context.Context, eventID uuid.UUID) (*event.Event, error) {
	var opened *event.Event
	err := s.events.Transact(ctx, eventID, func(tx event.Tx) error {
		if err := tx.SetStage(event.StageLocked, event.StageOpen, s.now()); err != nil {
			return err
		}
		opened = tx.Event()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Event unlocked", "event_id", eventID)
	return opened, nil
}

// Assigned is what every caller of Assign observes. The assignment itself is
// kept out of the JSON form.
type Assigned struct {
	Event        *event.Event     `json:"event"`
	Participants int              `json:"participants"`
	Method       draw.Method      `json:"method,omitempty"`
	Assignment   *draw.Assignment `json:"-"`
}

// Assign generates and commits the assignment of a locked event exactly once.
// Concurrent calls in this process share one generation; callers that find
// the event already assigned read the committed result instead. The shared
// generation does not stop when the first caller's context is cancelled.
func (s *DrawService) Assign(ctx context.Context, eventID uuid.UUID) (*Assigned, error) {
	shared := context.WithoutCancel(ctx)
	v, err, coalesced := s.group.Do(eventID.String(), func() (any, error) {
		return s.assign(shared, eventID)
	})
	if coalesced {
		s.metrics.ObserveAssignCall(metrics.AssignCoalesced)
	}
	if err != nil {
		return nil, err
	}
	return v.(*Assigned), nil
}

func (s *DrawService) assign(ctx context.Context, eventID uuid.UUID) (*Assigned, error) {
	var (
		out       *Assigned
		generated *draw.Result
	)
	err := s.events.Transact(ctx, eventID, func(tx event.Tx) error {
		e := tx.Event()
		switch e.Stage {
		case event.StageOpen:
			return fmt.Errorf("%w: event must be locked before assigning", common.ErrStageConflict)
		case event.StageAssigned:
			committed, err := committedAssignment(tx)
			if err != nil {
				return err
			}
			out = &Assigned{Event: e, Participants: committed.Len(), Assignment: committed}
			return nil
		}

		r, err := loadRoster(tx)
		if err != nil {
			return err
		}
		res, err := s.generator.Generate(r.set)
		if err != nil {
			return r.named(err)
		}
		if err := tx.SetStage(event.StageLocked, event.StageAssigned, s.now()); err != nil {
			return err
		}
		if err := tx.SaveTickets(draw.TicketsFor(res.Assignment)); err != nil {
			return err
		}

		generated = res
		out = &Assigned{Event: tx.Event(), Participants: res.Assignment.Len(), Method: res.Method, Assignment: res.Assignment}
		return nil
	})

	if errors.Is(err, common.ErrStageConflict) {
		// another writer committed between our read and our update
		if again, rerr := s.readAssigned(ctx, eventID); rerr == nil {
			s.metrics.ObserveAssignCall(metrics.AssignLostRace)
			return again, nil
		}
	}
	if err != nil {
		s.log.Warn("Assign failed", "event_id", eventID, "error", err)
		return nil, err
	}

	if generated == nil {
		s.metrics.ObserveAssignCall(metrics.AssignLostRace)
		return out, nil
	}
	s.metrics.ObserveAssignCall(metrics.AssignCommitted)
	s.metrics.ObserveAssignment(string(generated.Method), generated.Attempts)
	s.log.Info("Assignment committed", "event_id", eventID, "participants", out.Participants, "method", generated.Method)
	return out, nil
}

func committedAssignment(tx event.Tx) (*draw.Assignment, error) {
	tickets, err := tx.Tickets()
	if err != nil {
		return nil, err
	}
	return draw.AssignmentOf(tickets)
}

func (s *DrawService) readAssigned(ctx context.Context, eventID uuid.UUID) (*Assigned, error) {
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e.Stage != event.StageAssigned {
		return nil, fmt.Errorf("%w: event is %s", common.ErrStageConflict, e.Stage)
	}
	tickets, err := s.events.Tickets(ctx, eventID)
	if err != nil {
		return nil, err
	}
	a, err := draw.AssignmentOf(tickets)
	if err != nil {
		return nil, err
	}
	return &Assigned{Event: e, Participants: a.Len(), Assignment: a}, nil
}

// Revealed is one participant's view of their draw.
type Revealed struct {
	Giver      ParticipantRef `json:"giver"`
	Recipient  ParticipantRef `json:"recipient"`
	RevealedAt time.Time      `json:"revealed_at"`
	First      bool           `json:"first_reveal"`
}

// Reveal returns who participantID gives to. Repeated calls return the same
// recipient; before the event is assigned it fails with ErrNotReady.
func (s *DrawService) Reveal(ctx context.Context, eventID, participantID uuid.UUID) (*Revealed, error) {
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e.Stage != event.StageAssigned {
		return nil, fmt.Errorf("%w: event is %s", common.ErrNotReady, e.Stage)
	}

	ticket, first, err := s.events.RevealTicket(ctx, eventID, participantID, s.now())
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveReveal(first)

	ps, err := s.events.ListParticipants(ctx, eventID)
	if err != nil {
		return nil, err
	}
	r, err := newRoster(ps, nil)
	if err != nil {
		return nil, err
	}

	out := &Revealed{
		Giver:     r.ref(ticket.Giver),
		Recipient: r.ref(ticket.Recipient),
		First:     first,
	}
	if ticket.RevealedAt != nil {
		out.RevealedAt = *ticket.RevealedAt
	}
	if first {
		s.log.Info("Draw revealed", "event_id", eventID, "participant_id", participantID)
	}
	return out, nil
}

// Progress counts reveals. It never says who drew whom.
type Progress struct {
	Stage    event.Stage `json:"stage"`
	Revealed int         `json:"revealed"`
	Total    int         `json:"total"`
}

func (s *DrawService) Progress(ctx context.Context, eventID uuid.UUID) (*Progress, error) {
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e.Stage != event.StageAssigned {
		ps, err := s.events.ListParticipants(ctx, eventID)
		if err != nil {
			return nil, err
		}
		return &Progress{Stage: e.Stage, Total: len(ps)}, nil
	}

	tickets, err := s.events.Tickets(ctx, eventID)
	if err != nil {
		return nil, err
	}
	p := &Progress{Stage: e.Stage, Total: len(tickets)}
	for _, t := range tickets {
		if t.State == draw.Revealed {
			p.Revealed++
		}
	}
	return p, nil
}
