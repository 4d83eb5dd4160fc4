package database

import (
	"context"
	"errors"
	"time"
)

// ErrStorage wraps any persistence failure. Callers may retry idempotently:
// failed writes never leave a partial record behind.
var ErrStorage = errors.New("storage error")

// Identity is a biodata row keyed by matriculation number. Embedding is nil
// until the identity is enrolled biometrically; an identity with no embedding
// cannot be matched by similarity search.
type Identity struct {
	ID           int64
	MatricNo     string
	FirstName    string
	MiddleName   string
	LastName     string
	DepartmentID int64
	CollegeID    int64
	Level        string
	FprintID     string
	CardUID      string
	Embedding    []float32
	CreatedAt    time.Time
}

// ClassSession is one time-bounded class. Immutable once created; the current
// session pointer is superseded by the next start, never cleared.
type ClassSession struct {
	ID            int64
	CourseCode    string
	Venue         string
	StartTime     time.Time
	DurationHours int
	AuthMode      string
	Department    string
	Level         string
	Date          time.Time
}

// AttendanceRecord is one append-only ledger row. Verified is derived from
// Confidence and the threshold at write time and never mutated afterwards.
type AttendanceRecord struct {
	ID         int64
	MatricNo   string
	ClassID    *int64
	Level      string
	Department string
	Verified   bool
	Confidence *float64
	ScanTime   time.Time
	LogTime    time.Time
	ImageURL   string
}

// Candidate is the nearest identity returned by a similarity search.
type Candidate struct {
	MatricNo string
	Distance float64
}

// BiodataUpdate carries the fields of a biodata-only enrollment. The row is
// located by MatricNo; absent rows are not created.
type BiodataUpdate struct {
	MatricNo   string
	FirstName  string
	MiddleName string
	LastName   string
	CollegeID  int64
	FprintID   string
	CardUID    string
}

// IdentityReader provides identity lookup and nearest-neighbour search.
type IdentityReader interface {
	// Get retrieves an identity by matric number, returns nil if not found.
	Get(ctx context.Context, matricNo string) (*Identity, error)
	// NearestAll finds the closest enrolled identity to the query embedding
	// across the whole registry. Returns nil if no identity has an embedding.
	NearestAll(ctx context.Context, embedding []float32) (*Candidate, error)
	// NearestTo measures the distance between the query embedding and one
	// named identity. Returns nil if that identity has no embedding.
	NearestTo(ctx context.Context, embedding []float32, matricNo string) (*Candidate, error)
	// AllEnrolled returns every identity that has an embedding.
	AllEnrolled(ctx context.Context) ([]Identity, error)
}

// IdentityWriter mutates identity rows.
type IdentityWriter interface {
	// UpsertEnrollment creates or updates an identity with its face embedding.
	UpsertEnrollment(ctx context.Context, id Identity) error
	// UpdateBiodata updates biographic fields on an existing row. Returns
	// false if no row matched the matric number.
	UpdateBiodata(ctx context.Context, upd BiodataUpdate) (bool, error)
	// Provision creates a bare identity row if the matric number is new.
	Provision(ctx context.Context, id Identity) error
}

// ClassWriter persists class sessions.
type ClassWriter interface {
	// Insert stores a session and returns the generated id. The id comes
	// from the write itself, never a follow-up max-id query.
	Insert(ctx context.Context, s ClassSession) (int64, error)
}

// AttendanceWriter appends ledger rows.
type AttendanceWriter interface {
	// Append writes one record and returns its id. Never updates or
	// deduplicates; replays produce distinct rows.
	Append(ctx context.Context, rec AttendanceRecord) (int64, error)
}

// CampusReader resolves department and college codes to ids. Absent or
// unknown codes resolve to 0.
type CampusReader interface {
	DepartmentID(ctx context.Context, code string) (int64, error)
	CollegeID(ctx context.Context, code string) (int64, error)
}
