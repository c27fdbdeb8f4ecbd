package memory

import (
	"testing"

	"github.com/gravadigital/drawnames-api/internal/domain/event"
	"github.com/gravadigital/drawnames-api/internal/storage/storagetest"
)

func TestEventRepository(t *testing.T) {
	storagetest.RunRepositorySuite(t, func(t *testing.T) event.Repository {
		return NewEventRepository()
	})
}
