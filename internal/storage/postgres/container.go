package postgres

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	"github.com/gravadigital/drawnames-api/internal/config"
	"github.com/gravadigital/drawnames-api/internal/domain/event"
	"github.com/gravadigital/drawnames-api/internal/logger"
	"github.com/gravadigital/drawnames-api/internal/storage/migrations"
)

// Container owns the database connection and the repositories built on it
type Container struct {
	db        *gorm.DB
	log       *log.Logger
	eventRepo *PostgresEventRepository
}

// NewContainer connects to PostgreSQL, runs migrations and builds the repositories
func NewContainer(cfg *config.Config) (*Container, error) {
	log := logger.Repository("postgres_container")
	log.Info("Initializing PostgreSQL repository container...")

	db, err := Connect(cfg)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	container, err := NewMigratedContainer(db)
	if err != nil {
		_ = Close(db)
		return nil, err
	}

	log.Info("PostgreSQL repository container initialized successfully")
	return container, nil
}

// NewMigratedContainer runs migrations on an open connection of any dialect
// and wraps it.
func NewMigratedContainer(db *gorm.DB) (*Container, error) {
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	container := NewContainerWithDB(db)
	if err := container.Health(); err != nil {
		container.log.Error("Container health check failed", "error", err)
		return nil, fmt.Errorf("container health check failed: %w", err)
	}
	return container, nil
}

// NewContainerWithDB creates a container with an existing database connection
func NewContainerWithDB(db *gorm.DB) *Container {
	return &Container{
		db:        db,
		log:       logger.Repository("postgres_container"),
		eventRepo: NewPostgresEventRepository(db),
	}
}

// Events returns the event repository
func (c *Container) Events() event.Repository {
	return c.eventRepo
}

// Health pings the database and checks that every draw table exists
func (c *Container) Health() error {
	if err := HealthCheck(c.db); err != nil {
		c.log.Error("Database health check failed", "error", err)
		return err
	}

	migrator := c.db.Migrator()
	for _, table := range migrations.Tables() {
		if !migrator.HasTable(table) {
			c.log.Error("Draw table missing", "table", table)
			return fmt.Errorf("table %s is missing", table)
		}
	}
	return nil
}

// Close gracefully shuts down the container and closes database connections
func (c *Container) Close() error {
	if c.db == nil {
		return nil
	}
	if err := Close(c.db); err != nil {
		return err
	}
	c.db = nil
	c.eventRepo = nil
	return nil
}

// GetInfo describes the backend for the health endpoint
func (c *Container) GetInfo() map[string]any {
	info := map[string]any{"type": "sql"}
	if c.db == nil {
		info["connected"] = false
		return info
	}

	info["dialect"] = c.db.Dialector.Name()
	stats, ok := PoolStats(c.db)
	info["connected"] = ok
	info["open_connections"] = stats.OpenConnections
	info["in_use_connections"] = stats.InUse
	return info
}

// Stats collects table and connection statistics.
func (c *Container) Stats(ctx context.Context) (*DatabaseStats, error) {
	if c.db == nil {
		return nil, fmt.Errorf("container is closed")
	}
	return CollectStats(ctx, c.db)
}

// GetDB returns the underlying database connection (for advanced usage)
func (c *Container) GetDB() *gorm.DB {
	return c.db
}
