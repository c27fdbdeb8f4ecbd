package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/drawnames-api/internal/config"
)

func TestValidateStorageType(t *testing.T) {
	for _, st := range GetSupportedTypes() {
		got, err := ValidateStorageType(string(st))
		require.NoError(t, err)
		assert.Equal(t, st, got)
	}

	_, err := ValidateStorageType("mongo")
	assert.Error(t, err)
}

func TestCreateContainer(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.GinMode = "release"
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "draw.db")

	for _, st := range []StorageType{StorageTypeMemory, StorageTypeSQLite} {
		t.Run(string(st), func(t *testing.T) {
			c, err := NewFactory(st).CreateContainer(cfg)
			require.NoError(t, err)
			t.Cleanup(func() { _ = c.Close() })

			assert.NoError(t, c.Health())
			assert.NotNil(t, c.Events())
		})
	}

	_, err := NewFactory("mongo").CreateContainer(cfg)
	assert.Error(t, err)
}
