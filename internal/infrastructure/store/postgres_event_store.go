package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// uniqueViolation is the Postgres error code raised by UNIQUE (aggregate_id, version).
const uniqueViolation = "23505"

// PostgresEventStore stores the journal in the events table.
type PostgresEventStore struct {
	db        *sqlx.DB
	publisher Publisher
}

type eventRow struct {
	ID            string    `db:"id"`
	AggregateID   string    `db:"aggregate_id"`
	AggregateType string    `db:"aggregate_type"`
	EventType     string    `db:"event_type"`
	Data          []byte    `db:"data"`
	Version       int       `db:"version"`
	CreatedAt     time.Time `db:"created_at"`
}

func (r eventRow) toEvent() Event {
	return Event{
		ID:            r.ID,
		AggregateID:   r.AggregateID,
		AggregateType: r.AggregateType,
		EventType:     r.EventType,
		Data:          json.RawMessage(r.Data),
		Timestamp:     r.CreatedAt,
		Version:       r.Version,
	}
}

func NewPostgresEventStore(db *sqlx.DB, publisher Publisher) *PostgresEventStore {
	return &PostgresEventStore{
		db:        db,
		publisher: publisher,
	}
}

// Append inserts the event with the next version of its aggregate and
// publishes it. A concurrent writer claiming the same version makes the
// insert retry with a fresh version.
func (es *PostgresEventStore) Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	event, err := retryOnConflict(ctx, func() (Event, error) {
		return es.insertNext(ctx, aggregateID, aggregateType, eventType, jsonData)
	})
	if err != nil {
		return nil, err
	}

	if es.publisher != nil {
		if err := es.publisher.Publish(ctx, aggregateID, event); err != nil {
			return &event, fmt.Errorf("publish %s: %w", eventType, err)
		}
	}

	return &event, nil
}

func (es *PostgresEventStore) insertNext(ctx context.Context, aggregateID, aggregateType, eventType string, jsonData []byte) (Event, error) {
	var currentVersion int
	err := es.db.GetContext(ctx, &currentVersion,
		"SELECT COALESCE(MAX(version), 0) FROM events WHERE aggregate_id = $1",
		aggregateID,
	)
	if err != nil {
		return Event{}, fmt.Errorf("read version: %w", err)
	}

	row := eventRow{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Version:       currentVersion + 1,
		CreatedAt:     time.Now().UTC(),
	}

	_, err = es.db.NamedExecContext(ctx,
		`INSERT INTO events (id, aggregate_id, aggregate_type, event_type, data, version, created_at)
		 VALUES (:id, :aggregate_id, :aggregate_type, :event_type, :data, :version, :created_at)`,
		row,
	)
	if isUniqueViolation(err) {
		return Event{}, fmt.Errorf("insert %s v%d: %w", aggregateID, row.Version, ErrVersionConflict)
	}
	if err != nil {
		return Event{}, fmt.Errorf("insert event: %w", err)
	}
	return row.toEvent(), nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func (es *PostgresEventStore) GetEvents(ctx context.Context, aggregateID string) ([]Event, error) {
	var rows []eventRow
	err := es.db.SelectContext(ctx, &rows,
		`SELECT id, aggregate_id, aggregate_type, event_type, data, version, created_at
		 FROM events
		 WHERE aggregate_id = $1
		 ORDER BY version ASC`,
		aggregateID,
	)
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	return toEvents(rows), nil
}

func (es *PostgresEventStore) GetAllEvents(ctx context.Context) ([]Event, error) {
	var rows []eventRow
	err := es.db.SelectContext(ctx, &rows,
		`SELECT id, aggregate_id, aggregate_type, event_type, data, version, created_at
		 FROM events
		 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	return toEvents(rows), nil
}

func toEvents(rows []eventRow) []Event {
	events := make([]Event, len(rows))
	for i, r := range rows {
		events[i] = r.toEvent()
	}
	return events
}

// ConnectPostgres opens and pings a pooled connection.
func ConnectPostgres(ctx context.Context, connStr string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}
