package feedback

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is a mutex-guarded in-process store for dev and tests.
type MemoryStore struct {
	mu      sync.Mutex
	byEvent map[string]map[string]Entry // eventID -> studentID -> entry
}

// NewMemoryStore creates an in-memory feedback store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byEvent: make(map[string]map[string]Entry)}
}

// Insert stores e, rejecting a second entry for the same (event, student).
func (m *MemoryStore) Insert(_ context.Context, e Entry) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	students, ok := m.byEvent[e.EventID]
	if !ok {
		students = make(map[string]Entry)
		m.byEvent[e.EventID] = students
	}
	if _, dup := students[e.StudentID]; dup {
		return Entry{}, ErrAlreadySubmitted
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	students[e.StudentID] = e
	return e, nil
}

// ListForEvent returns the event's entries ordered by submission time.
func (m *MemoryStore) ListForEvent(_ context.Context, eventID string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res []Entry
	for _, e := range m.byEvent[eventID] {
		res = append(res, e)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].SubmittedAt.Before(res[j].SubmittedAt) })
	return res, nil
}
