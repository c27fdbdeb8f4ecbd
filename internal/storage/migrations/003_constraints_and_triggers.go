package migrations

import "gorm.io/gorm"

var constraints = []struct {
	table, name, check string
}{
	{"events", "valid_event_stage", "CHECK (stage IN ('open', 'locked', 'assigned'))"},
	{"exclusions", "canonical_exclusion_pair", "CHECK (participant_a::text < participant_b::text)"},
	{"assignments", "no_self_assignment", "CHECK (giver_id <> recipient_id)"},
	{"participants", "fk_participants_event", "FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE"},
	{"exclusions", "fk_exclusions_event", "FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE"},
	{"exclusions", "fk_exclusions_participant_a", "FOREIGN KEY (participant_a) REFERENCES participants(id) ON DELETE CASCADE"},
	{"exclusions", "fk_exclusions_participant_b", "FOREIGN KEY (participant_b) REFERENCES participants(id) ON DELETE CASCADE"},
	{"assignments", "fk_assignments_event", "FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE"},
	{"assignments", "fk_assignments_giver", "FOREIGN KEY (giver_id) REFERENCES participants(id)"},
	{"assignments", "fk_assignments_recipient", "FOREIGN KEY (recipient_id) REFERENCES participants(id)"},
}

// migration003Up adds the constraints and the trigger that keeps committed
// assignments immutable. PostgreSQL only.
func migration003Up(db *gorm.DB) error {
	// Stage is a byte in Go, so the text default lives here and not in the model tag.
	if err := db.Exec("ALTER TABLE events ALTER COLUMN stage SET DEFAULT 'open'").Error; err != nil {
		return err
	}
	for _, c := range constraints {
		if err := db.Exec("ALTER TABLE " + c.table + " ADD CONSTRAINT " + c.name + " " + c.check).Error; err != nil {
			return err
		}
	}

	if err := db.Exec(`CREATE OR REPLACE FUNCTION guard_assignment_update()
        RETURNS TRIGGER AS $$
        BEGIN
            IF NEW.giver_id <> OLD.giver_id OR NEW.recipient_id <> OLD.recipient_id THEN
                RAISE EXCEPTION 'assignment % is immutable', OLD.id;
            END IF;
            IF OLD.revealed_at IS NOT NULL AND NEW.revealed_at IS DISTINCT FROM OLD.revealed_at THEN
                RAISE EXCEPTION 'assignment % was already revealed', OLD.id;
            END IF;
            RETURN NEW;
        END;
        $$ LANGUAGE plpgsql`).Error; err != nil {
		return err
	}

	return db.Exec("CREATE TRIGGER trigger_guard_assignment BEFORE UPDATE ON assignments FOR EACH ROW EXECUTE FUNCTION guard_assignment_update()").Error
}

// migration003Down drops the trigger and constraints
func migration003Down(db *gorm.DB) error {
	if err := db.Exec("DROP TRIGGER IF EXISTS trigger_guard_assignment ON assignments").Error; err != nil {
		return err
	}
	if err := db.Exec("DROP FUNCTION IF EXISTS guard_assignment_update()").Error; err != nil {
		return err
	}
	if err := db.Exec("ALTER TABLE events ALTER COLUMN stage DROP DEFAULT").Error; err != nil {
		return err
	}
	for i := len(constraints) - 1; i >= 0; i-- {
		c := constraints[i]
		if err := db.Exec("ALTER TABLE " + c.table + " DROP CONSTRAINT IF EXISTS " + c.name).Error; err != nil {
			return err
		}
	}
	return nil
}
