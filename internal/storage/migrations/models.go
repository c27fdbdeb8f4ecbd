package migrations

import (
	"time"

	"github.com/google/uuid"

	"github.com/gravadigital/drawnames-api/internal/domain/event"
	"github.com/gravadigital/drawnames-api/internal/domain/participant"
)

// Exclusion is one undirected "must not draw" pair, stored once with
// ParticipantA < ParticipantB.
type Exclusion struct {
	EventID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"event_id"`
	ParticipantA uuid.UUID `gorm:"type:uuid;primaryKey" json:"participant_a"`
	ParticipantB uuid.UUID `gorm:"type:uuid;primaryKey" json:"participant_b"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Exclusion) TableName() string {
	return "exclusions"
}

// Assignment is one committed giver -> recipient edge and its reveal state.
// The two unique indexes make a second assignment for the same event fail
// at the database.
type Assignment struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	EventID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_assignments_event_giver,priority:1;uniqueIndex:idx_assignments_event_recipient,priority:1" json:"event_id"`
	GiverID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_assignments_event_giver,priority:2" json:"giver_id"`
	RecipientID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_assignments_event_recipient,priority:2" json:"recipient_id"`
	Position    int        `gorm:"not null" json:"position"`
	RevealedAt  *time.Time `json:"revealed_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (Assignment) TableName() string {
	return "assignments"
}

// AllModels returns every model the schema is built from, parents first.
func AllModels() []any {
	return []any{
		&event.Event{},
		&participant.Participant{},
		&Exclusion{},
		&Assignment{},
	}
}

// Tables lists the managed tables, children first.
func Tables() []string {
	return []string{"assignments", "exclusions", "participants", "events"}
}
