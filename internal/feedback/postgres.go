package feedback

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// PostgresStore persists feedback entries with a unique (event_id,
// student_id) constraint, resolved at the insert like the ledger.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Postgres-backed feedback store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Insert stores e; a conflicting insert maps to ErrAlreadySubmitted.
func (p *PostgresStore) Insert(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	row := p.db.QueryRowContext(ctx, `
		INSERT INTO event_feedback (id, event_id, student_id, rating, comment, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id, student_id) DO NOTHING
		RETURNING id
	`, e.ID, e.EventID, e.StudentID, e.Rating, e.Comment, e.SubmittedAt)

	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrAlreadySubmitted
		}
		return Entry{}, fmt.Errorf("insert feedback: %w", err)
	}
	return e, nil
}

// ListForEvent returns the event's entries ordered by submitted_at.
func (p *PostgresStore) ListForEvent(ctx context.Context, eventID string) ([]Entry, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, event_id, student_id, rating, comment, submitted_at
		FROM event_feedback
		WHERE event_id = $1
		ORDER BY submitted_at ASC
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	var res []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.EventID, &e.StudentID, &e.Rating, &e.Comment, &e.SubmittedAt); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
