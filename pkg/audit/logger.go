package audit

import (
	"context"
	"time"
)

// Logger is the interface for audit logging
type Logger interface {
	// Log records an audit event
	Log(ctx context.Context, event *Event) error

	// Search returns events matching the filter, newest first
	Search(ctx context.Context, filter SearchFilter) ([]*Event, error)

	// Close closes the logger and flushes any buffered events
	Close() error
}

// NewEvent builds an event with the timestamp filled in.
func NewEvent(eventType EventType, status EventStatus) *Event {
	return &Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Status:    status,
	}
}

// NopLogger discards every event. Used when auditing is disabled and
// by tests that do not care about the trail.
type NopLogger struct{}

func (NopLogger) Log(ctx context.Context, event *Event) error { return nil }

func (NopLogger) Search(ctx context.Context, filter SearchFilter) ([]*Event, error) {
	return nil, nil
}

func (NopLogger) Close() error { return nil }
