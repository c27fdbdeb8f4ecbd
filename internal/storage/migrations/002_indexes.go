package migrations

import (
	"github.com/lib/pq"
	"gorm.io/gorm"
)

var indexes = []struct {
	name string
	sql  string
}{
	{"idx_events_stage", "CREATE INDEX IF NOT EXISTS idx_events_stage ON events(stage)"},
	{"idx_events_created_at", "CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at DESC)"},
	{"idx_participants_event_created", "CREATE INDEX IF NOT EXISTS idx_participants_event_created ON participants(event_id, created_at)"},
	{"idx_exclusions_event", "CREATE INDEX IF NOT EXISTS idx_exclusions_event ON exclusions(event_id)"},
	{"idx_assignments_event_position", "CREATE INDEX IF NOT EXISTS idx_assignments_event_position ON assignments(event_id, position)"},
}

// migration002Up creates lookup indexes
func migration002Up(db *gorm.DB) error {
	for _, idx := range indexes {
		if err := db.Exec(idx.sql).Error; err != nil {
			return err
		}
	}
	return nil
}

// migration002Down drops lookup indexes
func migration002Down(db *gorm.DB) error {
	for _, idx := range indexes {
		if err := db.Exec("DROP INDEX IF EXISTS " + pq.QuoteIdentifier(idx.name)).Error; err != nil {
			return err
		}
	}
	return nil
}
