package migrations

import (
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// migration001Up creates all core tables using GORM AutoMigrate
func migration001Up(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}

// migration001Down drops all core tables
func migration001Down(db *gorm.DB) error {
	for _, table := range Tables() {
		stmt := "DROP TABLE IF EXISTS " + pq.QuoteIdentifier(table)
		if isPostgres(db) {
			stmt += " CASCADE"
		}
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
