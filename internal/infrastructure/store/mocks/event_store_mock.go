package mocks

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/example/promo-cart/internal/infrastructure/store"
	"github.com/google/uuid"
)

// MockEventStore is an in-memory EventStoreInterface that records calls.
type MockEventStore struct {
	mu     sync.RWMutex
	events map[string][]store.Event
	order  []store.Event

	AppendCalls    []AppendCall
	AppendErr      error
	GetErr         error
	AppendCallback func(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*store.Event, error)
}

// AppendCall records parameters passed to Append
type AppendCall struct {
	AggregateID   string
	AggregateType string
	EventType     string
	Data          any
}

func NewMockEventStore() *MockEventStore {
	return &MockEventStore{
		events:      make(map[string][]store.Event),
		AppendCalls: make([]AppendCall, 0),
	}
}

func (m *MockEventStore) Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*store.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AppendCalls = append(m.AppendCalls, AppendCall{
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          data,
	})

	if m.AppendCallback != nil {
		return m.AppendCallback(ctx, aggregateID, aggregateType, eventType, data)
	}

	if m.AppendErr != nil {
		return nil, m.AppendErr
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	event := store.Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Timestamp:     time.Now(),
		Version:       len(m.events[aggregateID]) + 1,
	}

	m.events[aggregateID] = append(m.events[aggregateID], event)
	m.order = append(m.order, event)
	return &event, nil
}

func (m *MockEventStore) GetEvents(_ context.Context, aggregateID string) ([]store.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return append([]store.Event(nil), m.events[aggregateID]...), nil
}

// GetAllEvents returns events in append order.
func (m *MockEventStore) GetAllEvents(_ context.Context) ([]store.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return append([]store.Event(nil), m.order...), nil
}

// EventTypes lists the event types appended so far, in order.
func (m *MockEventStore) EventTypes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	types := make([]string, len(m.AppendCalls))
	for i, c := range m.AppendCalls {
		types[i] = c.EventType
	}
	return types
}

// Reset clears all events and recorded calls
func (m *MockEventStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = make(map[string][]store.Event)
	m.order = nil
	m.AppendCalls = make([]AppendCall, 0)
	m.AppendErr = nil
	m.GetErr = nil
	m.AppendCallback = nil
}
