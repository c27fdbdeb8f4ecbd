package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gravadigital/drawnames-api/internal/domain/common"
	"github.com/gravadigital/drawnames-api/internal/domain/draw"
	"github.com/gravadigital/drawnames-api/internal/domain/event"
	"github.com/gravadigital/drawnames-api/internal/domain/exclusion"
	"github.com/gravadigital/drawnames-api/internal/domain/participant"
	"github.com/gravadigital/drawnames-api/internal/logger"
	"github.com/gravadigital/drawnames-api/internal/storage/migrations"
)

// PostgresEventRepository implements event.Repository using GORM. Only plain
// SQL is issued so the same code runs on the SQLite dialect.
type PostgresEventRepository struct {
	db  *gorm.DB
	log *log.Logger
}

var _ event.Repository = (*PostgresEventRepository)(nil)

// NewPostgresEventRepository creates a new event repository over db
func NewPostgresEventRepository(db *gorm.DB) *PostgresEventRepository {
	return &PostgresEventRepository{
		db:  db,
		log: logger.Repository("event"),
	}
}

func (r *PostgresEventRepository) Create(ctx context.Context, e *event.Event) error {
	r.log.Debug("Creating event", "name", e.Name)

	if err := e.Validate(); err != nil {
		r.log.Error("Event validation failed", "error", err)
		return fmt.Errorf("event validation failed: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: event %s", common.ErrDuplicateEntry, e.ID)
		}
		r.log.Error("Failed to create event", "error", err, "name", e.Name)
		return fmt.Errorf("failed to create event: %w", err)
	}

	r.log.Info("Event created successfully", "id", e.ID, "name", e.Name)
	return nil
}

func (r *PostgresEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	return findEvent(r.db.WithContext(ctx), id)
}

func findEvent(db *gorm.DB, id uuid.UUID) (*event.Event, error) {
	var e event.Event
	if err := db.First(&e, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: event %s", common.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &e, nil
}

func (r *PostgresEventRepository) GetAll(ctx context.Context) ([]*event.Event, error) {
	var events []*event.Event
	if err := r.db.WithContext(ctx).Order("created_at, id").Find(&events).Error; err != nil {
		r.log.Error("Failed to get all events", "error", err)
		return nil, fmt.Errorf("failed to get events: %w", err)
	}

	r.log.Debug("Retrieved all events", "count", len(events))
	return events, nil
}

func (r *PostgresEventRepository) ListParticipants(ctx context.Context, eventID uuid.UUID) ([]*participant.Participant, error) {
	db := r.db.WithContext(ctx)
	if _, err := findEvent(db, eventID); err != nil {
		return nil, err
	}
	return listParticipants(db, eventID)
}

func listParticipants(db *gorm.DB, eventID uuid.UUID) ([]*participant.Participant, error) {
	var ps []*participant.Participant
	if err := db.Where("event_id = ?", eventID).Order("created_at, id").Find(&ps).Error; err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return ps, nil
}

func (r *PostgresEventRepository) ListExclusions(ctx context.Context, eventID uuid.UUID) ([]exclusion.Pair, error) {
	db := r.db.WithContext(ctx)
	if _, err := findEvent(db, eventID); err != nil {
		return nil, err
	}
	return listExclusions(db, eventID)
}

func listExclusions(db *gorm.DB, eventID uuid.UUID) ([]exclusion.Pair, error) {
	var rows []migrations.Exclusion
	if err := db.Where("event_id = ?", eventID).Order("participant_a, participant_b").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list exclusions: %w", err)
	}
	pairs := make([]exclusion.Pair, len(rows))
	for i, row := range rows {
		pairs[i] = exclusion.NewPair(row.ParticipantA.String(), row.ParticipantB.String())
	}
	return pairs, nil
}

func (r *PostgresEventRepository) Tickets(ctx context.Context, eventID uuid.UUID) ([]draw.Ticket, error) {
	db := r.db.WithContext(ctx)
	if _, err := findEvent(db, eventID); err != nil {
		return nil, err
	}
	return listTickets(db, eventID)
}

func listTickets(db *gorm.DB, eventID uuid.UUID) ([]draw.Ticket, error) {
	var rows []migrations.Assignment
	if err := db.Where("event_id = ?", eventID).Order("position").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list assignment: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: event %s has no assignment", common.ErrNotReady, eventID)
	}
	tickets := make([]draw.Ticket, len(rows))
	for i, row := range rows {
		tickets[i] = toTicket(row)
	}
	return tickets, nil
}

func toTicket(row migrations.Assignment) draw.Ticket {
	t := draw.Ticket{
		Giver:     row.GiverID.String(),
		Recipient: row.RecipientID.String(),
		State:     draw.NotRevealed,
	}
	if row.RevealedAt != nil {
		at := row.RevealedAt.UTC()
		t.State = draw.Revealed
		t.RevealedAt = &at
	}
	return t
}

// RevealTicket sets revealed_at only while it is still NULL, so concurrent
// reveals of the same ticket agree on the first reveal time.
func (r *PostgresEventRepository) RevealTicket(ctx context.Context, eventID, participantID uuid.UUID, at time.Time) (draw.Ticket, bool, error) {
	db := r.db.WithContext(ctx)
	if _, err := findEvent(db, eventID); err != nil {
		return draw.Ticket{}, false, err
	}

	res := db.Model(&migrations.Assignment{}).
		Where("event_id = ? AND giver_id = ? AND revealed_at IS NULL", eventID, participantID).
		Update("revealed_at", at.UTC())
	if res.Error != nil {
		r.log.Error("Failed to reveal ticket", "event_id", eventID, "participant_id", participantID, "error", res.Error)
		return draw.Ticket{}, false, fmt.Errorf("failed to reveal ticket: %w", res.Error)
	}

	var row migrations.Assignment
	if err := db.Where("event_id = ? AND giver_id = ?", eventID, participantID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return draw.Ticket{}, false, fmt.Errorf("%w: %s has no ticket", common.ErrNotReady, participantID)
		}
		return draw.Ticket{}, false, fmt.Errorf("failed to read ticket: %w", err)
	}

	first := res.RowsAffected == 1
	if first {
		r.log.Info("Ticket revealed", "event_id", eventID, "participant_id", participantID)
	}
	return toTicket(row), first, nil
}

// Transact runs fn inside a database transaction. On PostgreSQL the event row
// is locked with SELECT ... FOR UPDATE; SQLite serialises writers itself.
func (r *PostgresEventRepository) Transact(ctx context.Context, eventID uuid.UUID, fn func(tx event.Tx) error) error {
	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		q := db
		if db.Dialector.Name() == "postgres" {
			q = db.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		e, err := findEvent(q, eventID)
		if err != nil {
			return err
		}
		return fn(&gormTx{db: db, event: e, log: r.log})
	})
}

type gormTx struct {
	db    *gorm.DB
	event *event.Event
	log   *log.Logger
}

func (tx *gormTx) Event() *event.Event {
	e := *tx.event
	return &e
}

func (tx *gormTx) Participants() ([]*participant.Participant, error) {
	return listParticipants(tx.db, tx.event.ID)
}

func (tx *gormTx) Exclusions() ([]exclusion.Pair, error) {
	return listExclusions(tx.db, tx.event.ID)
}

func (tx *gormTx) AddParticipant(p *participant.Participant) error {
	p.EventID = tx.event.ID
	if err := tx.db.Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: participant %s", common.ErrDuplicateEntry, p.ID)
		}
		return fmt.Errorf("failed to add participant: %w", err)
	}
	tx.log.Debug("Participant added", "event_id", tx.event.ID, "participant_id", p.ID)
	return nil
}

func (tx *gormTx) RemoveParticipant(id uuid.UUID) error {
	if err := tx.db.Where("event_id = ? AND (participant_a = ? OR participant_b = ?)", tx.event.ID, id, id).
		Delete(&migrations.Exclusion{}).Error; err != nil {
		return fmt.Errorf("failed to remove exclusions: %w", err)
	}

	res := tx.db.Where("event_id = ? AND id = ?", tx.event.ID, id).Delete(&participant.Participant{})
	if res.Error != nil {
		return fmt.Errorf("failed to remove participant: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: participant %s", common.ErrNotFound, id)
	}
	tx.log.Debug("Participant removed", "event_id", tx.event.ID, "participant_id", id)
	return nil
}

func (tx *gormTx) ReplaceExclusions(pairs []exclusion.Pair) error {
	if err := tx.db.Where("event_id = ?", tx.event.ID).Delete(&migrations.Exclusion{}).Error; err != nil {
		return fmt.Errorf("failed to clear exclusions: %w", err)
	}
	if len(pairs) == 0 {
		return nil
	}

	rows := make([]migrations.Exclusion, len(pairs))
	for i, p := range pairs {
		p = exclusion.NewPair(p.A, p.B)
		a, errA := uuid.Parse(p.A)
		b, errB := uuid.Parse(p.B)
		if errA != nil || errB != nil {
			return fmt.Errorf("%w: exclusion %s-%s", common.ErrInvalidParticipant, p.A, p.B)
		}
		rows[i] = migrations.Exclusion{EventID: tx.event.ID, ParticipantA: a, ParticipantB: b}
	}
	if err := tx.db.CreateInBatches(rows, 200).Error; err != nil {
		return fmt.Errorf("failed to store exclusions: %w", err)
	}
	return nil
}

// SetStage is a compare-and-swap: the UPDATE only matches while the stored
// stage is still from.
func (tx *gormTx) SetStage(from, to event.Stage, at time.Time) error {
	next := *tx.event
	if next.Stage != from {
		return fmt.Errorf("%w: event is %s, not %s", common.ErrStageConflict, next.Stage, from)
	}
	if err := next.UpdateStage(to, at.UTC()); err != nil {
		return err
	}

	res := tx.db.Model(&event.Event{}).
		Where("id = ? AND stage = ?", next.ID, from).
		Updates(map[string]any{
			"stage":       next.Stage,
			"locked_at":   next.LockedAt,
			"assigned_at": next.AssignedAt,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update stage: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: event %s left %s", common.ErrStageConflict, next.ID, from)
	}

	tx.event = &next
	tx.log.Info("Event stage changed", "event_id", next.ID, "from", from, "to", to)
	return nil
}

func (tx *gormTx) SaveTickets(tickets []draw.Ticket) error {
	rows := make([]migrations.Assignment, len(tickets))
	for i, t := range tickets {
		giver, errG := uuid.Parse(t.Giver)
		recipient, errR := uuid.Parse(t.Recipient)
		if errG != nil || errR != nil {
			return fmt.Errorf("%w: ticket %s -> %s", common.ErrInvalidParticipant, t.Giver, t.Recipient)
		}
		rows[i] = migrations.Assignment{
			ID:          uuid.New(),
			EventID:     tx.event.ID,
			GiverID:     giver,
			RecipientID: recipient,
			Position:    i,
		}
	}

	if err := tx.db.CreateInBatches(rows, 200).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: assignment already stored", common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to store assignment: %w", err)
	}
	return nil
}

func (tx *gormTx) Tickets() ([]draw.Ticket, error) {
	return listTickets(tx.db, tx.event.ID)
}
