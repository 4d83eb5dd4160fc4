package portal

import (
	"context"
	"fmt"

	"github.com/facegate/facegate/internal/database"
)

// ImportResult summarizes one provisioning run.
type ImportResult struct {
	Provisioned int
	Skipped     int
}

// Importer provisions identity rows from portal records.
type Importer struct {
	identities database.IdentityWriter
	campus     database.CampusReader
}

// NewImporter creates an importer writing through the given store.
func NewImporter(identities database.IdentityWriter, campus database.CampusReader) *Importer {
	return &Importer{identities: identities, campus: campus}
}

// Run provisions a bare identity row for each student. Existing rows are
// left untouched, so the import is safe to re-run each semester. progress
// is called once per student when non-nil.
func (im *Importer) Run(ctx context.Context, students []Student, progress func()) (*ImportResult, error) {
	result := &ImportResult{}

	for _, s := range students {
		if progress != nil {
			progress()
		}
		if s.MatricNo == "" {
			result.Skipped++
			continue
		}

		deptID, err := im.campus.DepartmentID(ctx, s.Department)
		if err != nil {
			return result, fmt.Errorf("resolving department %q for %s: %w", s.Department, s.MatricNo, err)
		}
		collegeID, err := im.campus.CollegeID(ctx, s.College)
		if err != nil {
			return result, fmt.Errorf("resolving college %q for %s: %w", s.College, s.MatricNo, err)
		}

		if err := im.identities.Provision(ctx, database.Identity{
			MatricNo:     s.MatricNo,
			FirstName:    s.FirstName,
			MiddleName:   s.MiddleName,
			LastName:     s.LastName,
			Level:        s.Level,
			DepartmentID: deptID,
			CollegeID:    collegeID,
		}); err != nil {
			return result, fmt.Errorf("provisioning %s: %w", s.MatricNo, err)
		}
		result.Provisioned++
	}

	return result, nil
}
