package feedback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"checkin/internal/session"
)

var (
	// ErrSessionClosed is returned when no feedback window is open for
	// the event.
	ErrSessionClosed = errors.New("feedback session not active")
	// ErrAlreadySubmitted is returned when the student already left
	// feedback for the event.
	ErrAlreadySubmitted = errors.New("feedback already submitted")
	// ErrInvalidRating is returned for ratings outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

// Entry is one student's feedback for one event.
type Entry struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	StudentID   string    `json:"student_id"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Store persists feedback entries with the same atomic unique-insert
// contract as the attendance ledger: (event, student) pairs are unique.
type Store interface {
	Insert(ctx context.Context, e Entry) (Entry, error)
	ListForEvent(ctx context.Context, eventID string) ([]Entry, error)
}

// Service gates feedback submission behind a faculty-opened window.
type Service struct {
	sessions session.Registry
	store    Store
	now      func() time.Time
}

// NewService creates a feedback service. now may be nil for wall clock.
func NewService(sessions session.Registry, store Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{sessions: sessions, store: store, now: now}
}

// Submit records one student's feedback while the event's feedback window
// is open. Duplicate submissions and closed windows are business rejections.
func (s *Service) Submit(ctx context.Context, eventID, studentID string, rating int, comment string) (Entry, error) {
	if rating < 1 || rating > 5 {
		return Entry{}, ErrInvalidRating
	}

	active, err := s.sessions.Active(ctx, eventID, session.Feedback)
	if err != nil {
		return Entry{}, fmt.Errorf("session lookup: %w", err)
	}
	if active == nil {
		return Entry{}, ErrSessionClosed
	}

	return s.store.Insert(ctx, Entry{
		EventID:     eventID,
		StudentID:   studentID,
		Rating:      rating,
		Comment:     comment,
		SubmittedAt: s.now().UTC(),
	})
}

// Summary aggregates an event's feedback for the faculty view.
type Summary struct {
	Entries       []Entry `json:"entries"`
	Count         int     `json:"count"`
	AverageRating float64 `json:"average_rating"`
}

// ForEvent returns the event's feedback and its average rating.
func (s *Service) ForEvent(ctx context.Context, eventID string) (Summary, error) {
	entries, err := s.store.ListForEvent(ctx, eventID)
	if err != nil {
		return Summary{}, fmt.Errorf("list feedback: %w", err)
	}
	sum := Summary{Entries: entries, Count: len(entries)}
	if len(entries) > 0 {
		total := 0
		for _, e := range entries {
			total += e.Rating
		}
		sum.AverageRating = float64(total) / float64(len(entries))
	}
	return sum, nil
}
