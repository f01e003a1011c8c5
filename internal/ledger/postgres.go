package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Postgres persists attendance records. Uniqueness on (event_id, student_id)
// is a table constraint, so two devices scanning the same student within
// milliseconds resolve at the insert, not in application code.
type Postgres struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgres creates a Postgres-backed ledger. now may be nil.
func NewPostgres(db *sql.DB, now func() time.Time) *Postgres {
	if now == nil {
		now = time.Now
	}
	return &Postgres{db: db, now: now}
}

// Record inserts rec with ON CONFLICT DO NOTHING; a conflicting insert
// returns no row, which maps to ErrAlreadyMarked. Retrying the same scan
// after a transient failure is safe for the same reason.
func (p *Postgres) Record(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.MarkedAt.IsZero() {
		rec.MarkedAt = p.now().UTC()
	}

	row := p.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (id, event_id, student_id, marked_by, marked_at, raw_payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id, student_id) DO NOTHING
		RETURNING id
	`, rec.ID, rec.EventID, rec.StudentID, rec.MarkedBy, rec.MarkedAt, rec.RawPayload)

	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrAlreadyMarked
		}
		return Record{}, fmt.Errorf("insert attendance record: %w", err)
	}
	return rec, nil
}

// ListForEvent returns the event's records ordered by marked_at ascending.
func (p *Postgres) ListForEvent(ctx context.Context, eventID string) ([]Record, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, event_id, student_id, marked_by, marked_at, raw_payload
		FROM attendance_records
		WHERE event_id = $1
		ORDER BY marked_at ASC
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	defer rows.Close()

	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.StudentID, &rec.MarkedBy, &rec.MarkedAt, &rec.RawPayload); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}
