package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/gravadigital/drawnames-api/internal/storage/migrations"
)

// TableStats represents table statistics
type TableStats struct {
	TableName string `json:"table_name"`
	RowCount  int64  `json:"row_count"`
	TableSize string `json:"table_size,omitempty"`
}

// ConnectionStats represents server-side connection statistics
type ConnectionStats struct {
	TotalConnections   int     `json:"total_connections"`
	ActiveConnections  int     `json:"active_connections"`
	IdleConnections    int     `json:"idle_connections"`
	MaxConnections     int     `json:"max_connections"`
	ConnectionsPercent float64 `json:"connections_percent"`
}

// DatabaseStats is a point-in-time view of the draw tables.
type DatabaseStats struct {
	Dialect     string           `json:"dialect"`
	Tables      []TableStats     `json:"tables"`
	Connections *ConnectionStats `json:"connections,omitempty"`
}

// CollectStats counts rows in every draw table. Sizes and connection counts
// come from the pg_stat views and are only filled on PostgreSQL.
func CollectStats(ctx context.Context, db *gorm.DB) (*DatabaseStats, error) {
	db = db.WithContext(ctx)
	stats := &DatabaseStats{Dialect: db.Dialector.Name()}
	pg := stats.Dialect == "postgres"

	for _, table := range migrations.Tables() {
		s := TableStats{TableName: table}
		if err := db.Table(table).Count(&s.RowCount).Error; err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		if pg {
			if err := db.Raw("SELECT pg_size_pretty(pg_total_relation_size(?::regclass))", table).Scan(&s.TableSize).Error; err != nil {
				return nil, fmt.Errorf("failed to size %s: %w", table, err)
			}
		}
		stats.Tables = append(stats.Tables, s)
	}

	if pg {
		conns, err := connectionStats(db)
		if err != nil {
			return nil, err
		}
		stats.Connections = conns
	}
	return stats, nil
}

func connectionStats(db *gorm.DB) (*ConnectionStats, error) {
	var stats ConnectionStats

	row := db.Raw(`
		SELECT
			count(*) as total,
			count(*) FILTER (WHERE state = 'active') as active,
			count(*) FILTER (WHERE state = 'idle') as idle,
			(SELECT setting::int FROM pg_settings WHERE name = 'max_connections') as max_conn
		FROM pg_stat_activity
		WHERE datname = current_database()
	`).Row()

	if err := row.Scan(&stats.TotalConnections, &stats.ActiveConnections, &stats.IdleConnections, &stats.MaxConnections); err != nil {
		return nil, fmt.Errorf("failed to read connection stats: %w", err)
	}

	if stats.MaxConnections > 0 {
		stats.ConnectionsPercent = (float64(stats.TotalConnections) / float64(stats.MaxConnections)) * 100
	}

	return &stats, nil
}
