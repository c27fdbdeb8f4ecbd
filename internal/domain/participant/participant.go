package participant

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Participant is one member of an event roster. Its ID is the identifier the
// draw engine works with; name and email are display attributes only.
type Participant struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	EventID   uuid.UUID `json:"event_id" gorm:"type:uuid;not null;index"`
	Name      string    `json:"name" gorm:"not null"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName overrides the table name used by GORM
func (Participant) TableName() string {
	return "participants"
}

// BeforeCreate sets a UUID before creating the record
func (p *Participant) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// NewParticipant crea un nuevo participante para el evento
func NewParticipant(eventID uuid.UUID, name, email string) *Participant {
	return &Participant{
		ID:        uuid.New(),
		EventID:   eventID,
		Name:      strings.TrimSpace(name),
		Email:     strings.TrimSpace(email),
		CreatedAt: time.Now().UTC(),
	}
}

// Key is the identifier used by the exclusion set and the assignment.
func (p *Participant) Key() string {
	return p.ID.String()
}

// Validate checks if the participant data is valid
func (p *Participant) Validate() error {
	if p.EventID == uuid.Nil {
		return fmt.Errorf("event_id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.Email != "" {
		if _, err := mail.ParseAddress(p.Email); err != nil {
			return fmt.Errorf("invalid email: %s", p.Email)
		}
	}
	return nil
}

// Keys returns the roster keys in order.
func Keys(ps []*Participant) []string {
	keys := make([]string, len(ps))
	for i, p := range ps {
		keys[i] = p.Key()
	}
	return keys
}

// Names maps roster keys to display names.
func Names(ps []*Participant) map[string]string {
	names := make(map[string]string, len(ps))
	for _, p := range ps {
		names[p.Key()] = p.Name
	}
	return names
}
