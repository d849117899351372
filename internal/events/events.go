// Package events publishes notifications about mutations of the ledger.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type names an event.
type Type string

// Event types.
const (
	TransactionReclassified Type = "transaction.reclassified"
	TransactionLinked       Type = "transaction.linked"
	TransactionCarried      Type = "transaction.carried_over"
	TiersRefreshed          Type = "tiers.refreshed"
	ConfigurationUpdated    Type = "configuration.updated"
	OccurrencesGenerated    Type = "occurrences.generated"
)

// Event is a lightweight notification. Consumers fetch full records from the store.
type Event struct {
	At            time.Time `json:"at"`
	ID            string    `json:"id"`
	Type          Type      `json:"type"`
	TransactionID string    `json:"transaction_id,omitempty"`
	ScheduleID    string    `json:"schedule_id,omitempty"`
	Period        string    `json:"period,omitempty"`
	Detail        string    `json:"detail,omitempty"`
}

// New creates an event with a fresh id.
func New(t Type, at time.Time) Event {
	return Event{ID: uuid.NewString(), Type: t, At: at}
}

// ToJSON encodes the event.
func (e Event) ToJSON() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// FromJSON decodes an event.
func FromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return e, nil
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	events []Event
	mu     sync.Mutex
}

// Publish records e.
func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
