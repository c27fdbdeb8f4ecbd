package event

import (
	"database/sql/driver"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gravadigital/drawnames-api/internal/domain/common"
)

// Event is one gift exchange and its assignment lifecycle.
type Event struct {
	ID               uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Name             string     `json:"name" gorm:"not null"`
	Description      string     `json:"description"`
	Stage            Stage      `json:"stage" gorm:"type:varchar(16);not null"`
	OrganizerKeyHash string     `json:"-" gorm:"not null"`
	LockedAt         *time.Time `json:"locked_at,omitempty"`
	AssignedAt       *time.Time `json:"assigned_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the table name used by GORM
func (Event) TableName() string {
	return "events"
}

// BeforeCreate sets a UUID before creating the record
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// NewEvent creates an open event guarded by the given organizer key hash.
func NewEvent(name, description, organizerKeyHash string) *Event {
	return &Event{
		ID:               uuid.New(),
		Name:             strings.TrimSpace(name),
		Description:      strings.TrimSpace(description),
		Stage:            StageOpen,
		OrganizerKeyHash: organizerKeyHash,
		CreatedAt:        time.Now().UTC(),
	}
}

var transitions = map[Stage][]Stage{
	StageOpen:     {StageLocked},
	StageLocked:   {StageOpen, StageAssigned},
	StageAssigned: {}, // nothing leaves Assigned
}

// CanTransitionTo checks if the event can transition to a new stage
func (e *Event) CanTransitionTo(newStage Stage) bool {
	return slices.Contains(transitions[e.Stage], newStage)
}

// UpdateStage moves the event to newStage and stamps the lifecycle times.
func (e *Event) UpdateStage(newStage Stage, at time.Time) error {
	if !e.CanTransitionTo(newStage) {
		return fmt.Errorf("%w: cannot transition from %s to %s", common.ErrStageConflict, e.Stage, newStage)
	}
	switch newStage {
	case StageOpen:
		e.LockedAt = nil
	case StageLocked:
		e.LockedAt = &at
	case StageAssigned:
		e.AssignedAt = &at
	}
	e.Stage = newStage
	return nil
}

// IsOpen reports whether the roster and exclusions may still change.
func (e *Event) IsOpen() bool {
	return e.Stage == StageOpen
}

// Validate checks if the event data is valid
func (e *Event) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(e.Name) > 200 {
		return fmt.Errorf("name must be at most 200 characters")
	}
	if e.OrganizerKeyHash == "" {
		return fmt.Errorf("organizer key is required")
	}
	return nil
}

// Stage is the assignment lifecycle of an event.
type Stage byte

const (
	StageOpen Stage = iota
	StageLocked
	StageAssigned
)

func (s Stage) String() string {
	switch s {
	case StageOpen:
		return "open"
	case StageLocked:
		return "locked"
	case StageAssigned:
		return "assigned"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaler interface
func (s Stage) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (s *Stage) UnmarshalJSON(data []byte) error {
	str := string(data)
	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}

	stage, valid := StageFromString(str)
	if !valid {
		return fmt.Errorf("invalid stage: %s", str)
	}
	*s = stage
	return nil
}

// StageFromString converts a string to a Stage
func StageFromString(s string) (Stage, bool) {
	switch s {
	case "open":
		return StageOpen, true
	case "locked":
		return StageLocked, true
	case "assigned":
		return StageAssigned, true
	default:
		return StageOpen, false
	}
}

// Scan implements the sql.Scanner interface for database deserialization
func (s *Stage) Scan(value any) error {
	var str string
	switch v := value.(type) {
	case nil:
		*s = StageOpen
		return nil
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Stage", value)
	}

	stage, valid := StageFromString(str)
	if !valid {
		return fmt.Errorf("invalid stage value: %s", str)
	}
	*s = stage
	return nil
}

// Value implements the driver.Valuer interface for database serialization
func (s Stage) Value() (driver.Value, error) {
	return s.String(), nil
}
