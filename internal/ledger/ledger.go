// Package ledger appends verification and enrollment outcomes to the
// attendance log. Records are written once and never mutated; negative
// attempts are recorded too so they stay auditable.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/facegate/facegate/internal/database"
	"github.com/facegate/facegate/internal/session"
)

// Entry is one attendance event to append. ClassID overrides the current
// session when set; otherwise the active session (if any) is used.
// CaptureTime defaults to the write time when zero.
type Entry struct {
	MatricNo    string
	ClassID     *int64
	Level       string
	Department  string
	Verified    bool
	Confidence  *float64
	CaptureTime time.Time
	EvidenceRef string
}

// Ledger owns AttendanceRecord creation.
type Ledger struct {
	store    database.AttendanceWriter
	sessions *session.Context
}

// New creates a ledger writing through the given store, stamping records
// with the current session from the session context.
func New(store database.AttendanceWriter, sessions *session.Context) *Ledger {
	return &Ledger{store: store, sessions: sessions}
}

// Append writes one record and returns its id. The log timestamp is always
// server-assigned here; the capture timestamp is the caller's if provided.
// Storage failures surface as database.ErrStorage with nothing committed.
func (l *Ledger) Append(ctx context.Context, e Entry) (int64, error) {
	now := time.Now()

	captureTime := e.CaptureTime
	if captureTime.IsZero() {
		captureTime = now
	}

	classID := e.ClassID
	if classID == nil {
		if cur := l.sessions.Current(); cur != nil {
			classID = &cur.ID
		}
	}

	id, err := l.store.Append(ctx, database.AttendanceRecord{
		MatricNo:   e.MatricNo,
		ClassID:    classID,
		Level:      e.Level,
		Department: e.Department,
		Verified:   e.Verified,
		Confidence: e.Confidence,
		ScanTime:   captureTime,
		LogTime:    now,
		ImageURL:   e.EvidenceRef,
	})
	if err != nil {
		return 0, fmt.Errorf("logging attendance for %s: %w", e.MatricNo, err)
	}
	return id, nil
}
