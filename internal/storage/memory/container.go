package memory

import "github.com/gravadigital/drawnames-api/internal/domain/event"

// Container holds the in-memory repositories. Data lives as long as the process.
type Container struct {
	events *EventRepository
}

func NewContainer() *Container {
	return &Container{events: NewEventRepository()}
}

func (c *Container) Events() event.Repository {
	return c.events
}

func (c *Container) Health() error {
	return nil
}

func (c *Container) Close() error {
	return nil
}

func (c *Container) GetInfo() map[string]any {
	c.events.mu.RLock()
	defer c.events.mu.RUnlock()
	return map[string]any{"type": "memory", "events": len(c.events.events)}
}
