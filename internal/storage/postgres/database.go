package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/gravadigital/drawnames-api/internal/config"
	"github.com/gravadigital/drawnames-api/internal/logger"
	"github.com/gravadigital/drawnames-api/internal/storage/migrations"
)

const pingTimeout = 5 * time.Second

// Pool is the connection pool shape applied to a freshly opened database.
type Pool struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// PoolFromConfig reads the pool settings, filling unset values.
func PoolFromConfig(cfg *config.Config) Pool {
	p := Pool{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	}
	if p.MaxOpenConns < 1 {
		p.MaxOpenConns = 25
	}
	if p.MaxIdleConns < 0 || p.MaxIdleConns > p.MaxOpenConns {
		p.MaxIdleConns = p.MaxOpenConns
	}
	if p.ConnMaxLifetime <= 0 {
		p.ConnMaxLifetime = time.Hour
	}
	return p
}

// Apply sets the pool limits on db.
func (p Pool) Apply(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(p.MaxOpenConns)
	sqlDB.SetMaxIdleConns(p.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(p.ConnMaxLifetime)
	return nil
}

func gormConfig(ginMode string) *gorm.Config {
	level := gormLogger.Silent
	if ginMode == "debug" {
		level = gormLogger.Info
	}
	return &gorm.Config{
		Logger: gormLogger.Default.LogMode(level),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		TranslateError: true,
	}
}

// Connect opens the PostgreSQL database named by cfg.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	return ConnectContext(context.Background(), cfg)
}

// ConnectContext opens the database, retrying with a doubling delay until
// cfg.DB.ConnectRetries attempts fail or ctx is done.
func ConnectContext(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	log := logger.Database()

	if err := validateDatabaseConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	log.Debug("Connecting to database", "host", cfg.DB.Host, "port", cfg.DB.Port, "database", cfg.DB.Name)

	var db *gorm.DB
	err := retry(ctx, cfg.DB.ConnectRetries, cfg.DB.RetryDelay, func(attempt int) error {
		var err error
		db, err = gorm.Open(postgres.Open(cfg.GetDatabaseURL()), gormConfig(cfg.Server.GinMode))
		if err != nil {
			log.Warn("Database connection failed", "attempt", attempt, "error", err)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	pool := PoolFromConfig(cfg)
	if err := pool.Apply(db); err != nil {
		_ = Close(db)
		return nil, err
	}
	if err := Ping(ctx, db); err != nil {
		_ = Close(db)
		return nil, err
	}

	log.Info("Connected to PostgreSQL",
		"host", cfg.DB.Host,
		"database", cfg.DB.Name,
		"max_open_conns", pool.MaxOpenConns)
	return db, nil
}

// retry calls fn up to attempts times. The wait starts at delay and doubles.
func retry(ctx context.Context, attempts int, delay time.Duration, fn func(attempt int) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(attempt); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Join(ctx.Err(), err)
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("gave up after %d attempts: %w", attempts, err)
}

func validateDatabaseConfig(cfg *config.Config) error {
	switch {
	case cfg == nil:
		return errors.New("config cannot be nil")
	case cfg.DB.Host == "":
		return errors.New("database host cannot be empty")
	case cfg.DB.Port == "":
		return errors.New("database port cannot be empty")
	case cfg.DB.Name == "":
		return errors.New("database name cannot be empty")
	case cfg.DB.User == "":
		return errors.New("database user cannot be empty")
	}
	return nil
}

// PoolStats reports the client-side pool counters. ok is false when the
// connection is unusable.
func PoolStats(db *gorm.DB) (stats sql.DBStats, ok bool) {
	if db == nil {
		return stats, false
	}
	sqlDB, err := db.DB()
	if err != nil {
		return stats, false
	}
	return sqlDB.Stats(), true
}

// Ping checks the connection, giving up after five seconds.
func Ping(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("database connection is nil")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// HealthCheck pings the database.
func HealthCheck(db *gorm.DB) error {
	return Ping(context.Background(), db)
}

// AutoMigrate runs the numbered migrations.
func AutoMigrate(db *gorm.DB) error {
	log := logger.Migration()

	if err := HealthCheck(db); err != nil {
		return err
	}

	start := time.Now()
	if err := migrations.RunMigrations(db); err != nil {
		log.Error("Database migrations failed", "error", err, "duration", time.Since(start))
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("Database migrations completed", "dialect", db.Dialector.Name(), "duration", time.Since(start))
	return nil
}

// Close closes the underlying connection pool. A nil db is a no-op.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	stats := sqlDB.Stats()
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	logger.Database().Info("Database connection closed", "in_use", stats.InUse, "wait_count", stats.WaitCount)
	return nil
}
