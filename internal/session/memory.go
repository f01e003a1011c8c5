package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is a mutex-guarded in-process registry for dev and tests.
type Memory struct {
	mu     sync.Mutex
	byKey  map[string]*Session // (eventID, purpose) -> active session
	byID   map[string]*Session
	maxAge time.Duration
	now    func() time.Time
}

// NewMemory creates an in-memory registry. now may be nil for wall clock.
func NewMemory(maxAge time.Duration, now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		byKey:  make(map[string]*Session),
		byID:   make(map[string]*Session),
		maxAge: maxAge,
		now:    now,
	}
}

func key(eventID string, purpose Purpose) string {
	return eventID + "|" + string(purpose)
}

// Open starts a window, rejecting a second active window for the same
// event and purpose. A stale active window is closed and replaced.
func (m *Memory) Open(_ context.Context, eventID, openedBy string, purpose Purpose) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	k := key(eventID, purpose)
	if existing, ok := m.byKey[k]; ok {
		if existing.Active(now, m.maxAge) {
			return *existing, ErrAlreadyOpen
		}
		if existing.ClosedAt == nil {
			closed := now
			existing.ClosedAt = &closed
		}
		delete(m.byKey, k)
	}

	s := &Session{
		ID:       uuid.NewString(),
		EventID:  eventID,
		Purpose:  purpose,
		OpenedBy: openedBy,
		OpenedAt: now,
	}
	m.byKey[k] = s
	m.byID[s.ID] = s
	return *s, nil
}

// Close marks a window inactive. Unknown ids return ErrNotFound; closing
// twice is a no-op.
func (m *Memory) Close(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.byID[sessionID]
	if !ok {
		return ErrNotFound
	}
	if s.ClosedAt == nil {
		closed := m.now().UTC()
		s.ClosedAt = &closed
	}
	// A replaced stale session must not evict its successor.
	if cur, ok := m.byKey[key(s.EventID, s.Purpose)]; ok && cur == s {
		delete(m.byKey, key(s.EventID, s.Purpose))
	}
	return nil
}

// Active returns the open window for the event and purpose, if any.
func (m *Memory) Active(_ context.Context, eventID string, purpose Purpose) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.byKey[key(eventID, purpose)]
	if !ok {
		return nil, nil
	}
	if !s.Active(m.now().UTC(), m.maxAge) {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}
