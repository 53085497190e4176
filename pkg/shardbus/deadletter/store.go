// Package deadletter persists events whose handlers faulted during
// dispatch, for inspection and manual reprocessing.
package deadletter

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Record captures one handler fault against one event.
type Record struct {
	ID         string    `json:"id"`
	EventType  string    `json:"event_type"`
	Payload    []byte    `json:"payload,omitempty"`
	Handler    string    `json:"handler"`
	Reason     string    `json:"reason"`
	Shard      int       `json:"shard"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewRecord builds a record for a failed dispatch. The payload is a
// best-effort JSON encoding of the event data; nil or unencodable data
// leaves Payload nil.
func NewRecord(eventType string, data any, handler, reason string, shard int) *Record {
	var payload []byte
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			payload = b
		}
	}

	return &Record{
		ID:         uuid.New().String(),
		EventType:  eventType,
		Payload:    payload,
		Handler:    handler,
		Reason:     reason,
		Shard:      shard,
		OccurredAt: time.Now().UTC(),
	}
}

// Store persists dead letter records.
// Implementations must be safe for concurrent use.
type Store interface {
	// Append stores a record, assigning an ID if it has none.
	Append(ctx context.Context, rec *Record) error

	// List returns up to limit records, oldest first.
	// limit <= 0 returns everything.
	List(ctx context.Context, limit int) ([]*Record, error)

	// ListByType returns up to limit records for one event type,
	// oldest first. limit <= 0 returns everything.
	ListByType(ctx context.Context, eventType string, limit int) ([]*Record, error)

	// Get retrieves a record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	Get(ctx context.Context, id string) (*Record, error)

	// Delete removes a record. Returns nil if the record doesn't exist.
	Delete(ctx context.Context, id string) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// CountByType returns record counts grouped by event type.
	CountByType(ctx context.Context) (map[string]int, error)

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for dead letter operations.
var (
	// ErrNotFound indicates a record doesn't exist.
	ErrNotFound = errors.New("dead letter record not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("dead letter store closed")
)
