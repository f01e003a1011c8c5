package session

import (
	"context"
	"errors"
	"time"
)

// Purpose labels what a collection window gates.
type Purpose string

const (
	// Attendance windows gate QR check-ins.
	Attendance Purpose = "attendance"
	// Feedback windows gate post-event feedback submission.
	Feedback Purpose = "feedback"
)

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	return p == Attendance || p == Feedback
}

// Session is one faculty-controlled collection window for an event.
type Session struct {
	ID       string     `json:"id"`
	EventID  string     `json:"event_id"`
	Purpose  Purpose    `json:"purpose"`
	OpenedBy string     `json:"opened_by"`
	OpenedAt time.Time  `json:"opened_at"`
	ClosedAt *time.Time `json:"closed_at,omitempty"`
}

// Active reports whether the session is still accepting submissions at the
// given instant. A session past maxAge counts as closed even when faculty
// never closed it.
func (s Session) Active(now time.Time, maxAge time.Duration) bool {
	if s.ClosedAt != nil {
		return false
	}
	if maxAge > 0 && now.Sub(s.OpenedAt) > maxAge {
		return false
	}
	return true
}

var (
	// ErrAlreadyOpen is returned by Open when the event already has an
	// active window of the same purpose.
	ErrAlreadyOpen = errors.New("session already open")
	// ErrNotFound is returned for lookups of unknown session ids.
	ErrNotFound = errors.New("session not found")
)

// Registry is the source of truth for which events currently accept
// check-ins or feedback. Open and Close are serialized per (event, purpose)
// by the backing store so two faculty devices cannot race duplicate windows.
type Registry interface {
	// Open starts a new window. Returns ErrAlreadyOpen (with the existing
	// session) when one is already active for the event and purpose.
	Open(ctx context.Context, eventID, openedBy string, purpose Purpose) (Session, error)
	// Close ends a window. Closing an already-closed or expired session is
	// a no-op.
	Close(ctx context.Context, sessionID string) error
	// Active returns the currently open window for the event and purpose,
	// or nil when there is none.
	Active(ctx context.Context, eventID string, purpose Purpose) (*Session, error)
}
