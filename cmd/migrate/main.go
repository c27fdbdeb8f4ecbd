package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/gravadigital/drawnames-api/internal/config"
	"github.com/gravadigital/drawnames-api/internal/logger"
	"github.com/gravadigital/drawnames-api/internal/storage/migrations"
	"github.com/gravadigital/drawnames-api/internal/storage/postgres"
	"github.com/gravadigital/drawnames-api/internal/storage/sqlite"
)

func main() {
	cfg := config.Load()

	logger.Initialize(cfg.Log.Level)
	log := logger.Migration()

	rollback := flag.Bool("rollback", false, "Rollback the last migration")
	status := flag.Bool("status", false, "Show migration state and table sizes")
	flag.Parse()

	log.Info("Starting migration process", "storage", cfg.Storage.Type, "rollback", *rollback)

	db, err := open(cfg)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = postgres.Close(db) }()

	switch {
	case *status:
		states, err := migrations.Status(db)
		if err != nil {
			log.Error("Failed to read migration status", "error", err)
			os.Exit(1)
		}
		for _, m := range states {
			fmt.Printf("%s %-32s %s\n", m.ID, m.Name, m.State)
		}
		stats, err := postgres.CollectStats(context.Background(), db)
		if err != nil {
			log.Error("Failed to collect table stats", "error", err)
			os.Exit(1)
		}
		for _, t := range stats.Tables {
			fmt.Printf("%-14s %8d rows %s\n", t.TableName, t.RowCount, t.TableSize)
		}
		return
	case *rollback:
		log.Info("Rolling back migrations...")
		if err := migrations.RollbackMigration(db); err != nil {
			log.Error("Migration rollback failed", "error", err)
			os.Exit(1)
		}
		log.Info("Migration rollback completed successfully")
	default:
		log.Info("Running migrations...")
		if err := migrations.RunMigrations(db); err != nil {
			log.Error("Migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("Migrations completed successfully")
	}

	fmt.Println("Migration process completed!")
}

func open(cfg *config.Config) (*gorm.DB, error) {
	switch cfg.Storage.Type {
	case "sqlite":
		return sqlite.Open(cfg.Storage.SQLitePath, cfg.Server.GinMode)
	case "postgres":
		return postgres.Connect(cfg)
	default:
		return nil, fmt.Errorf("storage type %q has no schema to migrate", cfg.Storage.Type)
	}
}
