// Package registry manages identity enrollment: binding a face template to
// a matriculation number, and filling in biographic fields on rows that a
// portal import provisioned earlier.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/facegate/facegate/internal/database"
	"github.com/facegate/facegate/internal/faceid"
)

// ErrInvalidUsername rejects a biodata enrollment with an empty name.
var ErrInvalidUsername = errors.New("username cannot be empty")

// IdentityStore combines the read and write halves the registry needs.
type IdentityStore interface {
	database.IdentityReader
	database.IdentityWriter
}

// IndexWriter receives newly enrolled identities so the in-memory search
// index stays consistent with the database.
type IndexWriter interface {
	Add(id *database.Identity) error
}

// Biodata carries the fields of a biodata-only enrollment request.
type Biodata struct {
	Username    string
	MatricNo    string
	CollegeCode string
	FprintID    string
	CardUID     string
}

// Registry performs enrollments against the identity store.
type Registry struct {
	identities IdentityStore
	campus     database.CampusReader
	encoder    faceid.Encoder
	index      IndexWriter
}

// New creates a registry. index may be nil when no in-memory index is in
// use; enrollments then rely on database search alone.
func New(identities IdentityStore, campus database.CampusReader, encoder faceid.Encoder, index IndexWriter) *Registry {
	return &Registry{
		identities: identities,
		campus:     campus,
		encoder:    encoder,
		index:      index,
	}
}

// EnrollWithFace encodes the image and binds the resulting template to the
// matric number, creating the identity row if needed. The image must show
// exactly one face; faceid.ErrNoFaceDetected and
// faceid.ErrMultipleFacesDetected pass through unwrapped.
func (r *Registry) EnrollWithFace(ctx context.Context, matricNo, level, departmentCode string, imageData []byte) error {
	embedding, err := r.encoder.Encode(ctx, imageData)
	if err != nil {
		return err
	}

	deptID, err := r.campus.DepartmentID(ctx, departmentCode)
	if err != nil {
		return fmt.Errorf("resolving department %q: %w", departmentCode, err)
	}

	if err := r.identities.UpsertEnrollment(ctx, database.Identity{
		MatricNo:     matricNo,
		Level:        level,
		DepartmentID: deptID,
		Embedding:    embedding,
	}); err != nil {
		return fmt.Errorf("enrolling %s: %w", matricNo, err)
	}

	// The row is committed at this point. The index only accelerates
	// search, so an indexing failure downgrades to a log line; lookups
	// fall back to the database until the index is rebuilt.
	if r.index != nil {
		stored, err := r.identities.Get(ctx, matricNo)
		switch {
		case err != nil:
			log.Printf("reloading %s for indexing: %v", matricNo, err)
		case stored != nil:
			if err := r.index.Add(stored); err != nil {
				log.Printf("indexing %s: %v", matricNo, err)
			}
		}
	}
	return nil
}

// EnrollBiodata updates biographic fields on an already provisioned row.
// The full name is split into first, middle and last parts. A matric
// number with no row is a silent no-op: provisioning is the portal
// import's job, not this path's.
func (r *Registry) EnrollBiodata(ctx context.Context, b Biodata) error {
	if strings.TrimSpace(b.Username) == "" {
		return ErrInvalidUsername
	}

	first, middle, last := splitName(b.Username)

	collegeID, err := r.campus.CollegeID(ctx, b.CollegeCode)
	if err != nil {
		return fmt.Errorf("resolving college %q: %w", b.CollegeCode, err)
	}

	if _, err := r.identities.UpdateBiodata(ctx, database.BiodataUpdate{
		MatricNo:   b.MatricNo,
		FirstName:  first,
		MiddleName: middle,
		LastName:   last,
		CollegeID:  collegeID,
		FprintID:   b.FprintID,
		CardUID:    b.CardUID,
	}); err != nil {
		return fmt.Errorf("updating biodata for %s: %w", b.MatricNo, err)
	}
	return nil
}
