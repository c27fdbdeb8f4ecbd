package storage

import (
	"fmt"

	"github.com/gravadigital/drawnames-api/internal/config"
	"github.com/gravadigital/drawnames-api/internal/domain/event"
	"github.com/gravadigital/drawnames-api/internal/storage/memory"
	"github.com/gravadigital/drawnames-api/internal/storage/postgres"
	"github.com/gravadigital/drawnames-api/internal/storage/sqlite"
)

// StorageType represents the type of storage backend
type StorageType string

const (
	StorageTypePostgres StorageType = "postgres"
	StorageTypeSQLite   StorageType = "sqlite"
	StorageTypeMemory   StorageType = "memory"
)

// RepositoryContainer is what the application needs from a backend
type RepositoryContainer interface {
	Events() event.Repository
	Health() error
	Close() error
	GetInfo() map[string]any
}

// Factory provides a factory pattern for creating storage containers
type Factory struct {
	storageType StorageType
}

// NewFactory creates a new storage factory
func NewFactory(storageType StorageType) *Factory {
	return &Factory{
		storageType: storageType,
	}
}

// CreateContainer creates a storage container based on the configured type
func (f *Factory) CreateContainer(cfg *config.Config) (RepositoryContainer, error) {
	switch f.storageType {
	case StorageTypePostgres:
		return postgres.NewContainer(cfg)
	case StorageTypeSQLite:
		db, err := sqlite.Open(cfg.Storage.SQLitePath, cfg.Server.GinMode)
		if err != nil {
			return nil, err
		}
		c, err := postgres.NewMigratedContainer(db)
		if err != nil {
			_ = postgres.Close(db)
			return nil, err
		}
		return c, nil
	case StorageTypeMemory:
		return memory.NewContainer(), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", f.storageType)
	}
}

// GetSupportedTypes returns a list of supported storage types
func GetSupportedTypes() []StorageType {
	return []StorageType{
		StorageTypePostgres,
		StorageTypeSQLite,
		StorageTypeMemory,
	}
}

// ValidateStorageType validates if a storage type is supported
func ValidateStorageType(storageType string) (StorageType, error) {
	st := StorageType(storageType)

	for _, supported := range GetSupportedTypes() {
		if st == supported {
			return st, nil
		}
	}

	return "", fmt.Errorf("unsupported storage type: %s. Supported types: %v", storageType, GetSupportedTypes())
}

// DefaultFactory returns a factory configured with the default storage type
func DefaultFactory() *Factory {
	return NewFactory(StorageTypePostgres)
}
