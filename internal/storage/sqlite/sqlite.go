// Package sqlite opens the embedded single-file database used for small
// deployments and tests.
package sqlite

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/gravadigital/drawnames-api/internal/logger"
)

// Open opens (creating if needed) the database at path. The pool is limited
// to one connection: SQLite allows a single writer, and a lone connection
// makes every transaction run to completion before the next one begins.
func Open(path, ginMode string) (*gorm.DB, error) {
	log := logger.Database()

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	level := gormLogger.Silent
	if ginMode == "debug" {
		level = gormLogger.Info
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(level),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		TranslateError: true,
	})
	if err != nil {
		log.Error("Failed to open SQLite database", "path", path, "error", err)
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	log.Info("Opened SQLite database", "path", path)
	return db, nil
}
