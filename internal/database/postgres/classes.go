package postgres

import (
	"context"
	"fmt"

	"github.com/facegate/facegate/internal/database"
)

// ClassRepository provides PostgreSQL-backed class session storage.
type ClassRepository struct {
	pool *Pool
}

// NewClassRepository creates a new PostgreSQL class repository.
func NewClassRepository(pool *Pool) *ClassRepository {
	return &ClassRepository{pool: pool}
}

// Insert stores a class session and returns the generated id. The id comes
// straight from the INSERT's RETURNING clause, so concurrent starts for the
// same course can never observe each other's ids.
func (r *ClassRepository) Insert(ctx context.Context, s database.ClassSession) (int64, error) {
	query := `
		INSERT INTO classes (course_code, venue, start_time, duration_hours, auth_mode, dept, level, date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	var id int64
	err := r.pool.QueryRow(ctx, query,
		s.CourseCode, s.Venue, s.StartTime, s.DurationHours,
		s.AuthMode, s.Department, s.Level, s.Date,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert class: %w", err)
	}
	return id, nil
}

// Verify interface compliance.
var _ database.ClassWriter = (*ClassRepository)(nil)
