package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres persists collection windows. The partial unique index on
// (event_id, purpose) WHERE closed_at IS NULL makes duplicate opens
// impossible even across concurrent API instances.
type Postgres struct {
	db     *sql.DB
	maxAge time.Duration
	now    func() time.Time
}

// NewPostgres creates a Postgres-backed registry. now may be nil.
func NewPostgres(db *sql.DB, maxAge time.Duration, now func() time.Time) *Postgres {
	if now == nil {
		now = time.Now
	}
	return &Postgres{db: db, maxAge: maxAge, now: now}
}

// Open closes any stale window first, then inserts a fresh one. The unique
// index turns a lost race into ErrAlreadyOpen rather than a duplicate.
func (p *Postgres) Open(ctx context.Context, eventID, openedBy string, purpose Purpose) (Session, error) {
	now := p.now().UTC()

	if p.maxAge > 0 {
		_, err := p.db.ExecContext(ctx, `
			UPDATE collection_sessions
			SET closed_at = $1
			WHERE event_id = $2 AND purpose = $3 AND closed_at IS NULL AND opened_at <= $4
		`, now, eventID, purpose, now.Add(-p.maxAge))
		if err != nil {
			return Session{}, fmt.Errorf("expire stale session: %w", err)
		}
	}

	s := Session{
		ID:       uuid.NewString(),
		EventID:  eventID,
		Purpose:  purpose,
		OpenedBy: openedBy,
		OpenedAt: now,
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO collection_sessions (id, event_id, purpose, opened_by, opened_at)
		VALUES ($1, $2, $3, $4, $5)
	`, s.ID, s.EventID, s.Purpose, s.OpenedBy, s.OpenedAt)
	if err != nil {
		if isUniqueViolation(err) {
			if existing, aerr := p.Active(ctx, eventID, purpose); aerr == nil && existing != nil {
				return *existing, ErrAlreadyOpen
			}
			return Session{}, ErrAlreadyOpen
		}
		return Session{}, fmt.Errorf("open session: %w", err)
	}
	return s, nil
}

// Close is idempotent: only the first call flips closed_at.
func (p *Postgres) Close(ctx context.Context, sessionID string) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE collection_sessions
		SET closed_at = $1
		WHERE id = $2 AND closed_at IS NULL
	`, p.now().UTC(), sessionID)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists bool
		if err := p.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM collection_sessions WHERE id = $1)`, sessionID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("close session: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}

// Active returns the open, unexpired window for the event and purpose.
func (p *Postgres) Active(ctx context.Context, eventID string, purpose Purpose) (*Session, error) {
	now := p.now().UTC()
	cutoff := time.Time{}
	if p.maxAge > 0 {
		cutoff = now.Add(-p.maxAge)
	}

	row := p.db.QueryRowContext(ctx, `
		SELECT id, event_id, purpose, opened_by, opened_at, closed_at
		FROM collection_sessions
		WHERE event_id = $1 AND purpose = $2 AND closed_at IS NULL AND opened_at > $3
		ORDER BY opened_at DESC
		LIMIT 1
	`, eventID, purpose, cutoff)

	var s Session
	if err := row.Scan(&s.ID, &s.EventID, &s.Purpose, &s.OpenedBy, &s.OpenedAt, &s.ClosedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	return &s, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
