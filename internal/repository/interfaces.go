package repository

import (
	"context"

	"github.com/BarkinBalci/synthesis-engine/internal/domain"
)

// EventFilter narrows a fetch beyond its time window
type EventFilter struct {
	// EventType matches event_type exactly when set
	EventType domain.EventType
	// DataContains matches a substring of the serialized event_data when set
	DataContains string
}

// EventRepository defines the read-only interface over the persisted event log
type EventRepository interface {
	// Fetch returns the events inside period ordered by identity then timestamp
	Fetch(ctx context.Context, period Period, filter EventFilter) ([]domain.Event, error)

	// InitSchema initializes the database schema (creates tables if they don't exist)
	InitSchema(ctx context.Context) error

	// Ping checks if the database connection is alive
	Ping(ctx context.Context) error

	// Close closes the repository and releases resources
	Close() error
}
