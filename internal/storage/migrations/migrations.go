package migrations

import (
	"errors"
	"fmt"
	"slices"

	"gorm.io/gorm"

	"github.com/gravadigital/drawnames-api/internal/logger"
)

// ErrNothingToRollback is returned by RollbackMigration on an empty history.
var ErrNothingToRollback = errors.New("no migrations to rollback")

// Migration is one numbered schema step. IDs sort in apply order.
type Migration struct {
	ID   string
	Name string
	Up   func(*gorm.DB) error
	Down func(*gorm.DB) error
	// PostgresOnly migrations are skipped on other dialects.
	PostgresOnly bool
}

// State is where a migration stands on a given database.
type State string

const (
	StatePending State = "pending"
	StateApplied State = "applied"
	// StateSkipped marks a PostgresOnly migration on another dialect.
	StateSkipped State = "skipped"
)

// MigrationStatus pairs a migration with its state.
type MigrationStatus struct {
	ID    string
	Name  string
	State State
}

// GetMigrations returns all available migrations in order
func GetMigrations() []Migration {
	return []Migration{
		{ID: "001", Name: "create_core_tables", Up: migration001Up, Down: migration001Down},
		{ID: "002", Name: "create_indexes", Up: migration002Up, Down: migration002Down},
		{ID: "003", Name: "create_constraints_and_triggers", Up: migration003Up, Down: migration003Down, PostgresOnly: true},
	}
}

// checkOrder rejects duplicate or out-of-order IDs.
func checkOrder(list []Migration) error {
	for i := 1; i < len(list); i++ {
		if list[i-1].ID >= list[i].ID {
			return fmt.Errorf("migration %s must sort after %s", list[i].ID, list[i-1].ID)
		}
	}
	return nil
}

func isPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}

func applies(m Migration, db *gorm.DB) bool {
	return !m.PostgresOnly || isPostgres(db)
}

// RunMigrations applies every pending migration, each in its own transaction.
func RunMigrations(db *gorm.DB) error {
	return run(db, GetMigrations())
}

func run(db *gorm.DB, list []Migration) error {
	log := logger.Migration()

	if err := checkOrder(list); err != nil {
		return err
	}
	if err := createMigrationsTable(db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	done, err := Applied(db)
	if err != nil {
		return err
	}

	ran := 0
	for _, m := range list {
		if slices.Contains(done, m.ID) || !applies(m, db) {
			continue
		}

		log.Info("Running migration", "id", m.ID, "name", m.Name)
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.Up(tx); err != nil {
				return fmt.Errorf("failed to run migration %s: %w", m.ID, err)
			}
			return tx.Exec("INSERT INTO schema_migrations (id, name) VALUES (?, ?)", m.ID, m.Name).Error
		})
		if err != nil {
			return err
		}
		ran++
	}

	log.Info("Migrations up to date", "applied", ran, "dialect", db.Dialector.Name())
	return nil
}

func createMigrationsTable(db *gorm.DB) error {
	return db.Exec(`
        CREATE TABLE IF NOT EXISTS schema_migrations (
            id VARCHAR(10) PRIMARY KEY,
            name VARCHAR(255) NOT NULL,
            applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `).Error
}

// Applied returns the IDs of applied migrations in order. A database that
// was never migrated has none.
func Applied(db *gorm.DB) ([]string, error) {
	if !db.Migrator().HasTable("schema_migrations") {
		return nil, nil
	}
	var ids []string
	if err := db.Raw("SELECT id FROM schema_migrations ORDER BY id").Scan(&ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list applied migrations: %w", err)
	}
	return ids, nil
}

// Status reports the state of every known migration on db.
func Status(db *gorm.DB) ([]MigrationStatus, error) {
	done, err := Applied(db)
	if err != nil {
		return nil, err
	}

	list := GetMigrations()
	out := make([]MigrationStatus, 0, len(list))
	for _, m := range list {
		s := MigrationStatus{ID: m.ID, Name: m.Name, State: StatePending}
		switch {
		case slices.Contains(done, m.ID):
			s.State = StateApplied
		case !applies(m, db):
			s.State = StateSkipped
		}
		out = append(out, s)
	}
	return out, nil
}

// RollbackMigration reverts the most recently applied migration.
func RollbackMigration(db *gorm.DB) error {
	return rollback(db, GetMigrations())
}

func rollback(db *gorm.DB, list []Migration) error {
	done, err := Applied(db)
	if err != nil {
		return err
	}
	if len(done) == 0 {
		return ErrNothingToRollback
	}

	// ids sort in apply order; applied_at has one-second resolution on SQLite
	last := done[len(done)-1]
	i := slices.IndexFunc(list, func(m Migration) bool { return m.ID == last })
	if i < 0 {
		return fmt.Errorf("migration %s not found", last)
	}
	m := list[i]

	logger.Migration().Info("Rolling back migration", "id", m.ID, "name", m.Name)
	return db.Transaction(func(tx *gorm.DB) error {
		if err := m.Down(tx); err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", m.ID, err)
		}
		return tx.Exec("DELETE FROM schema_migrations WHERE id = ?", m.ID).Error
	})
}
