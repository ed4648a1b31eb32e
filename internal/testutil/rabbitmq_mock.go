package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

// PublishedEvent is one event captured by MockPublisher.
type PublishedEvent struct {
	RoutingKey string
	EventData  interface{}
	Timestamp  time.Time
	RawJSON    []byte
}

// MockPublisher captures published events in memory. Setting Err makes
// every Publish fail.
type MockPublisher struct {
	mu     sync.RWMutex
	events []PublishedEvent
	Err    error
}

// NewMockPublisher creates an empty MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// Publish marshals eventData the way the broker publisher does and keeps it.
func (m *MockPublisher) Publish(ctx context.Context, routingKey string, eventData interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}

	jsonData, err := json.Marshal(eventData)
	if err != nil {
		return err
	}

	m.events = append(m.events, PublishedEvent{
		RoutingKey: routingKey,
		EventData:  eventData,
		Timestamp:  time.Now(),
		RawJSON:    jsonData,
	})
	return nil
}

// Close is a no-op.
func (m *MockPublisher) Close() error {
	return nil
}

// GetEventsByKey returns all events with the specified routing key
func (m *MockPublisher) GetEventsByKey(routingKey string) []PublishedEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var filtered []PublishedEvent
	for _, event := range m.events {
		if event.RoutingKey == routingKey {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

// GetEventCount returns the total number of events published
func (m *MockPublisher) GetEventCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

// AssertEventCount asserts the exact number of events with the given routing key
func (m *MockPublisher) AssertEventCount(t *testing.T, routingKey string, expected int) {
	t.Helper()

	if count := len(m.GetEventsByKey(routingKey)); count != expected {
		t.Errorf("Expected %d events with routing key '%s', got %d", expected, routingKey, count)
	}
}

// DecodeLastEvent unmarshals the most recent event with routingKey into dst.
func (m *MockPublisher) DecodeLastEvent(t *testing.T, routingKey string, dst interface{}) {
	t.Helper()

	events := m.GetEventsByKey(routingKey)
	if len(events) == 0 {
		t.Fatalf("Expected event with routing key '%s', found none", routingKey)
	}
	if err := json.Unmarshal(events[len(events)-1].RawJSON, dst); err != nil {
		t.Fatalf("Failed to decode event %s: %v", routingKey, err)
	}
}

// ErrPublishFailed is a ready-made broker failure for MockPublisher.Err.
var ErrPublishFailed = errors.New("broker unavailable")
