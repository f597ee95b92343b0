package eventlog

import (
	"context"
	"sync"
	"time"

	"github.com/rony4d/go-relay-accord/inter"
)

// DefaultMemoryCapacity bounds the in-memory journal when no capacity is given.
const DefaultMemoryCapacity = 1024

// Memory keeps the most recent notifications in a bounded ring.
type Memory struct {
	mu      sync.Mutex
	cap     int
	next    int64
	records []Record
	events  []inter.Event
}

// NewMemory creates a journal holding at most capacity notifications.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &Memory{cap: capacity}
}

// Publish implements ledger.Sink.
func (m *Memory) Publish(ev inter.Event) {
	payload, _ := encode(ev)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.next++
	m.records = append(m.records, Record{ID: m.next, Name: ev.EventName(), Payload: payload, CreatedAt: time.Now()})
	m.events = append(m.events, ev)
	if over := len(m.records) - m.cap; over > 0 {
		m.records = append(m.records[:0:0], m.records[over:]...)
		m.events = append(m.events[:0:0], m.events[over:]...)
	}
}

// Events returns the retained notifications in publication order.
func (m *Memory) Events() []inter.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]inter.Event, len(m.events))
	copy(out, m.events)
	return out
}

// Len returns the number of retained notifications.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// Recent implements History.
func (m *Memory) Recent(_ context.Context, limit int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 || limit > len(m.records) {
		limit = len(m.records)
	}
	out := make([]Record, 0, limit)
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}
