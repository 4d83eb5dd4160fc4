package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/facegate/facegate/internal/database"
	"github.com/facegate/facegate/internal/database/mock"
	"github.com/facegate/facegate/internal/session"
)

func newTestLedger() (*Ledger, *mock.AttendanceStore, *session.Context) {
	store := mock.NewAttendanceStore()
	sessions := session.NewContext(mock.NewClassStore())
	return New(store, sessions), store, sessions
}

func TestAppendDefaultsCaptureTime(t *testing.T) {
	l, store, _ := newTestLedger()

	before := time.Now()
	id, err := l.Append(context.Background(), Entry{MatricNo: "S100", Verified: true})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if id != 1 {
		t.Errorf("expected record id 1, got %d", id)
	}

	rec := store.Records[0]
	if rec.ScanTime.Before(before) {
		t.Errorf("capture time should default to now, got %v", rec.ScanTime)
	}
	if rec.LogTime.Before(before) {
		t.Errorf("log time should be server-assigned, got %v", rec.LogTime)
	}
}

func TestAppendKeepsExplicitCaptureTime(t *testing.T) {
	l, store, _ := newTestLedger()

	captured := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	if _, err := l.Append(context.Background(), Entry{MatricNo: "S100", CaptureTime: captured}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	rec := store.Records[0]
	if !rec.ScanTime.Equal(captured) {
		t.Errorf("expected capture time %v, got %v", captured, rec.ScanTime)
	}
	if rec.LogTime.Equal(captured) {
		t.Error("log time must be assigned at write time, not the capture time")
	}
}

func TestAppendUsesCurrentSession(t *testing.T) {
	l, store, sessions := newTestLedger()

	classID, err := sessions.Start(context.Background(), session.Details{CourseCode: "MEE527", StartTime: time.Now()})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if _, err := l.Append(context.Background(), Entry{MatricNo: "S100"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	rec := store.Records[0]
	if rec.ClassID == nil || *rec.ClassID != classID {
		t.Errorf("expected class id %d from session context, got %v", classID, rec.ClassID)
	}
}

func TestAppendWithoutSessionLeavesClassNil(t *testing.T) {
	l, store, _ := newTestLedger()

	if _, err := l.Append(context.Background(), Entry{MatricNo: "S100"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if store.Records[0].ClassID != nil {
		t.Errorf("expected nil class id with no active session, got %v", *store.Records[0].ClassID)
	}
}

func TestAppendExplicitClassOverridesSession(t *testing.T) {
	l, store, sessions := newTestLedger()

	if _, err := sessions.Start(context.Background(), session.Details{CourseCode: "MEE527", StartTime: time.Now()}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	override := int64(99)
	if _, err := l.Append(context.Background(), Entry{MatricNo: "S100", ClassID: &override}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if rec := store.Records[0]; rec.ClassID == nil || *rec.ClassID != 99 {
		t.Errorf("expected explicit class id 99, got %v", rec.ClassID)
	}
}

func TestAppendSurfacesStorageError(t *testing.T) {
	l, store, _ := newTestLedger()
	store.AppendError = database.ErrStorage

	if _, err := l.Append(context.Background(), Entry{MatricNo: "S100"}); !errors.Is(err, database.ErrStorage) {
		t.Errorf("expected storage error, got %v", err)
	}
	if len(store.Records) != 0 {
		t.Error("no record should be visible after a failed append")
	}
}

func TestReplayProducesDistinctRecords(t *testing.T) {
	l, store, _ := newTestLedger()

	e := Entry{MatricNo: "S100", Verified: true, CaptureTime: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	first, err := l.Append(context.Background(), e)
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	second, err := l.Append(context.Background(), e)
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if first == second {
		t.Error("replaying an identical entry must produce a distinct record")
	}
	if len(store.Records) != 2 {
		t.Errorf("expected 2 records, got %d", len(store.Records))
	}
}
