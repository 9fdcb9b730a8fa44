package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrVersionConflict reports that another writer claimed the aggregate version
// first.
var ErrVersionConflict = errors.New("version conflict")

// maxAppendAttempts bounds how often an append re-reads the version after a
// conflict.
const maxAppendAttempts = 5

// EventStoreInterface is the append-only activity journal.
type EventStoreInterface interface {
	Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error)
	GetEvents(ctx context.Context, aggregateID string) ([]Event, error)
	GetAllEvents(ctx context.Context) ([]Event, error)
}

// Publisher forwards appended events to a message broker.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// retryOnConflict runs attempt until it stops failing with ErrVersionConflict,
// at most maxAppendAttempts times.
func retryOnConflict(ctx context.Context, attempt func() (Event, error)) (Event, error) {
	var err error
	for i := 0; i < maxAppendAttempts; i++ {
		var event Event
		event, err = attempt()
		if !errors.Is(err, ErrVersionConflict) {
			return event, err
		}
		if ctx.Err() != nil {
			return Event{}, ctx.Err()
		}
	}
	return Event{}, fmt.Errorf("append after %d attempts: %w", maxAppendAttempts, err)
}
