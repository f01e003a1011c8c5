package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is a mutex-guarded in-process ledger for dev and tests. The
// check-and-insert happens under one lock so concurrent duplicate scans
// cannot both land.
type Memory struct {
	mu      sync.Mutex
	byEvent map[string]map[string]Record // eventID -> studentID -> record
	now     func() time.Time
}

// NewMemory creates an in-memory ledger. now may be nil for wall clock.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{byEvent: make(map[string]map[string]Record), now: now}
}

// Record inserts rec, rejecting a second mark for the same (event, student).
func (m *Memory) Record(_ context.Context, rec Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	students, ok := m.byEvent[rec.EventID]
	if !ok {
		students = make(map[string]Record)
		m.byEvent[rec.EventID] = students
	}
	if _, dup := students[rec.StudentID]; dup {
		return Record{}, ErrAlreadyMarked
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.MarkedAt.IsZero() {
		rec.MarkedAt = m.now().UTC()
	}
	students[rec.StudentID] = rec
	return rec, nil
}

// ListForEvent returns the event's records ordered by MarkedAt ascending.
func (m *Memory) ListForEvent(_ context.Context, eventID string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res []Record
	for _, rec := range m.byEvent[eventID] {
		res = append(res, rec)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].MarkedAt.Before(res[j].MarkedAt) })
	return res, nil
}
