package ledger

import (
	"context"
	"errors"
	"time"
)

// ErrAlreadyMarked is returned when the student already has a record for
// the event.
var ErrAlreadyMarked = errors.New("attendance already marked")

// Record is one confirmed presence. Records are append-only: never updated,
// never deleted.
type Record struct {
	ID         string    `json:"id"`
	EventID    string    `json:"event_id"`
	StudentID  string    `json:"student_id"`
	MarkedBy   string    `json:"marked_by"`
	MarkedAt   time.Time `json:"marked_at"`
	RawPayload string    `json:"raw_payload,omitempty"`
}

// Ledger stores attendance records with at-most-one semantics per
// (event, student). Record must be atomic against concurrent writers;
// implementations enforce uniqueness in the store, not with a read
// followed by a write.
type Ledger interface {
	Record(ctx context.Context, rec Record) (Record, error)
	ListForEvent(ctx context.Context, eventID string) ([]Record, error)
}
