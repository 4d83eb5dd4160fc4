// Package mock provides in-memory implementations of database interfaces
// for testing.
package mock

import (
	"context"
	"math"
	"sync"

	"github.com/facegate/facegate/internal/database"
)

// IdentityStore is an in-memory identity repository.
type IdentityStore struct {
	mu         sync.RWMutex
	identities map[string]*database.Identity
	nextID     int64

	// Error injection
	GetError         error
	NearestAllError  error
	NearestToError   error
	AllEnrolledError error
	UpsertError      error
	UpdateError      error
	ProvisionError   error
}

// NewIdentityStore creates a new in-memory identity store.
func NewIdentityStore() *IdentityStore {
	return &IdentityStore{
		identities: make(map[string]*database.Identity),
		nextID:     1,
	}
}

// Add inserts an identity directly, bypassing the writer interface.
func (s *IdentityStore) Add(id database.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id.ID == 0 {
		id.ID = s.nextID
	}
	s.nextID = id.ID + 1
	s.identities[id.MatricNo] = &id
}

// Get retrieves an identity by matric number.
func (s *IdentityStore) Get(ctx context.Context, matricNo string) (*database.Identity, error) {
	if s.GetError != nil {
		return nil, s.GetError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.identities[matricNo]; ok {
		cp := *id
		return &cp, nil
	}
	return nil, nil
}

// NearestAll finds the closest enrolled identity by brute-force L2 scan.
// Ties break by insertion order (lowest id wins).
func (s *IdentityStore) NearestAll(ctx context.Context, embedding []float32) (*database.Candidate, error) {
	if s.NearestAllError != nil {
		return nil, s.NearestAllError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *database.Candidate
	var bestID int64
	for _, id := range s.identities {
		if len(id.Embedding) == 0 {
			continue
		}
		d := l2(embedding, id.Embedding)
		if best == nil || d < best.Distance || (d == best.Distance && id.ID < bestID) {
			best = &database.Candidate{MatricNo: id.MatricNo, Distance: d}
			bestID = id.ID
		}
	}
	return best, nil
}

// NearestTo measures the distance to one named identity.
func (s *IdentityStore) NearestTo(ctx context.Context, embedding []float32, matricNo string) (*database.Candidate, error) {
	if s.NearestToError != nil {
		return nil, s.NearestToError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.identities[matricNo]
	if !ok || len(id.Embedding) == 0 {
		return nil, nil
	}
	return &database.Candidate{MatricNo: matricNo, Distance: l2(embedding, id.Embedding)}, nil
}

// AllEnrolled returns every identity with an embedding.
func (s *IdentityStore) AllEnrolled(ctx context.Context) ([]database.Identity, error) {
	if s.AllEnrolledError != nil {
		return nil, s.AllEnrolledError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []database.Identity
	for _, id := range s.identities {
		if len(id.Embedding) > 0 {
			out = append(out, *id)
		}
	}
	return out, nil
}

// UpsertEnrollment creates or updates an identity with its embedding.
func (s *IdentityStore) UpsertEnrollment(ctx context.Context, id database.Identity) error {
	if s.UpsertError != nil {
		return s.UpsertError
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.identities[id.MatricNo]; ok {
		existing.Level = id.Level
		existing.DepartmentID = id.DepartmentID
		existing.Embedding = id.Embedding
		return nil
	}
	id.ID = s.nextID
	s.nextID++
	s.identities[id.MatricNo] = &id
	return nil
}

// UpdateBiodata updates biographic fields on an existing row.
func (s *IdentityStore) UpdateBiodata(ctx context.Context, upd database.BiodataUpdate) (bool, error) {
	if s.UpdateError != nil {
		return false, s.UpdateError
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.identities[upd.MatricNo]
	if !ok {
		return false, nil
	}
	id.FirstName = upd.FirstName
	id.MiddleName = upd.MiddleName
	id.LastName = upd.LastName
	id.CollegeID = upd.CollegeID
	id.FprintID = upd.FprintID
	id.CardUID = upd.CardUID
	return true, nil
}

// Provision creates a bare identity row if the matric number is new.
func (s *IdentityStore) Provision(ctx context.Context, id database.Identity) error {
	if s.ProvisionError != nil {
		return s.ProvisionError
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.identities[id.MatricNo]; ok {
		return nil
	}
	id.ID = s.nextID
	s.nextID++
	s.identities[id.MatricNo] = &id
	return nil
}

func l2(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.MaxFloat64
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// ClassStore is an in-memory class session repository with monotonically
// increasing ids.
type ClassStore struct {
	mu      sync.Mutex
	nextID  int64
	Classes []database.ClassSession

	// Error injection
	InsertError error
}

// NewClassStore creates a new in-memory class store.
func NewClassStore() *ClassStore {
	return &ClassStore{nextID: 1}
}

// Insert stores a session and returns the generated id.
func (s *ClassStore) Insert(ctx context.Context, c database.ClassSession) (int64, error) {
	if s.InsertError != nil {
		return 0, s.InsertError
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = s.nextID
	s.nextID++
	s.Classes = append(s.Classes, c)
	return c.ID, nil
}

// AttendanceStore is an in-memory append-only attendance repository.
type AttendanceStore struct {
	mu      sync.Mutex
	nextID  int64
	Records []database.AttendanceRecord

	// Error injection
	AppendError error
}

// NewAttendanceStore creates a new in-memory attendance store.
func NewAttendanceStore() *AttendanceStore {
	return &AttendanceStore{nextID: 1}
}

// Append writes one record and returns its id.
func (s *AttendanceStore) Append(ctx context.Context, rec database.AttendanceRecord) (int64, error) {
	if s.AppendError != nil {
		return 0, s.AppendError
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = s.nextID
	s.nextID++
	s.Records = append(s.Records, rec)
	return rec.ID, nil
}

// CampusStore is an in-memory code-to-id lookup.
type CampusStore struct {
	Departments map[string]int64
	Colleges    map[string]int64

	// Error injection
	LookupError error
}

// NewCampusStore creates a new in-memory campus store.
func NewCampusStore() *CampusStore {
	return &CampusStore{
		Departments: make(map[string]int64),
		Colleges:    make(map[string]int64),
	}
}

// DepartmentID resolves a department code, 0 when unknown.
func (s *CampusStore) DepartmentID(ctx context.Context, code string) (int64, error) {
	if s.LookupError != nil {
		return 0, s.LookupError
	}
	return s.Departments[code], nil
}

// CollegeID resolves a college code, 0 when unknown.
func (s *CampusStore) CollegeID(ctx context.Context, code string) (int64, error) {
	if s.LookupError != nil {
		return 0, s.LookupError
	}
	return s.Colleges[code], nil
}

// Verify interface compliance.
var _ database.IdentityReader = (*IdentityStore)(nil)
var _ database.IdentityWriter = (*IdentityStore)(nil)
var _ database.ClassWriter = (*ClassStore)(nil)
var _ database.AttendanceWriter = (*AttendanceStore)(nil)
var _ database.CampusReader = (*CampusStore)(nil)
