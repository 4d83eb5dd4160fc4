package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/facegate/facegate/internal/database"
)

// CampusRepository resolves department and college codes to row ids.
type CampusRepository struct {
	pool *Pool
}

// NewCampusRepository creates a new PostgreSQL campus repository.
func NewCampusRepository(pool *Pool) *CampusRepository {
	return &CampusRepository{pool: pool}
}

// DepartmentID returns the id for a department code. Absent or unknown
// codes resolve to 0, matching how biodata rows treat missing values.
func (r *CampusRepository) DepartmentID(ctx context.Context, code string) (int64, error) {
	if code == "" {
		return 0, nil
	}
	var id int64
	err := r.pool.QueryRow(ctx, "SELECT id FROM departments WHERE code = $1", code).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query department id: %w", err)
	}
	return id, nil
}

// CollegeID returns the id for a college code, or 0 when absent or unknown.
func (r *CampusRepository) CollegeID(ctx context.Context, code string) (int64, error) {
	if code == "" {
		return 0, nil
	}
	var id int64
	err := r.pool.QueryRow(ctx, "SELECT id FROM colleges WHERE code = $1", code).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query college id: %w", err)
	}
	return id, nil
}

// Verify interface compliance.
var _ database.CampusReader = (*CampusRepository)(nil)
