package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"checkin/internal/ledger"
	"checkin/internal/qrtoken"
	"checkin/internal/session"
)

// Reason classifies why a scan was rejected.
type Reason string

const (
	MalformedToken  Reason = "malformed_token"
	ExpiredToken    Reason = "expired_token"
	NoActiveSession Reason = "no_active_session"
	DuplicateScan   Reason = "duplicate_scan"
)

// Outcome is the business result of one scan. Rejections are outcomes, not
// errors; only storage failures surface as errors from HandleScan.
type Outcome struct {
	Accepted bool           `json:"accepted"`
	Reason   Reason         `json:"reason,omitempty"`
	Record   *ledger.Record `json:"record,omitempty"`
}

func rejected(r Reason) Outcome { return Outcome{Reason: r} }

// Coordinator is the single entry point for decoded QR reads. It validates
// the token, checks the attendance window, and writes the ledger, in that
// order, so each failure mode maps to one precise rejection.
type Coordinator struct {
	sessions session.Registry
	records  ledger.Ledger
	maxAge   time.Duration
	now      func() time.Time
}

// New creates a coordinator. maxAge <= 0 falls back to the codec default;
// now may be nil for wall clock.
func New(sessions session.Registry, records ledger.Ledger, maxAge time.Duration, now func() time.Time) *Coordinator {
	if maxAge <= 0 {
		maxAge = qrtoken.DefaultMaxAge
	}
	if now == nil {
		now = time.Now
	}
	return &Coordinator{sessions: sessions, records: records, maxAge: maxAge, now: now}
}

// HandleScan runs one decode-validate-record cycle. A non-nil error means
// storage was unavailable and the outcome is unknown; the caller may retry
// the identical scan because the ledger insert is idempotent.
func (c *Coordinator) HandleScan(ctx context.Context, eventID, token, scannedBy string) (Outcome, error) {
	claim, err := qrtoken.Decode(token)
	if err != nil {
		scansTotal.WithLabelValues(string(MalformedToken)).Inc()
		return rejected(MalformedToken), nil
	}

	now := c.now().UTC()
	if !claim.FreshAt(now, c.maxAge) {
		scansTotal.WithLabelValues(string(ExpiredToken)).Inc()
		return rejected(ExpiredToken), nil
	}

	active, err := c.sessions.Active(ctx, eventID, session.Attendance)
	if err != nil {
		return Outcome{}, fmt.Errorf("session lookup: %w", err)
	}
	if active == nil {
		scansTotal.WithLabelValues(string(NoActiveSession)).Inc()
		return rejected(NoActiveSession), nil
	}

	rec, err := c.records.Record(ctx, ledger.Record{
		EventID:    eventID,
		StudentID:  claim.StudentID,
		MarkedBy:   scannedBy,
		MarkedAt:   now,
		RawPayload: token,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrAlreadyMarked) {
			scansTotal.WithLabelValues(string(DuplicateScan)).Inc()
			return rejected(DuplicateScan), nil
		}
		return Outcome{}, fmt.Errorf("ledger insert: %w", err)
	}

	scansTotal.WithLabelValues("accepted").Inc()
	return Outcome{Accepted: true, Record: &rec}, nil
}
