package postgres

import (
	"context"
	"fmt"

	"github.com/facegate/facegate/internal/database"
)

// AttendanceRepository provides PostgreSQL-backed attendance log storage.
// Rows are append-only; nothing here updates or deletes.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// Append writes one attendance record and returns its id. The write is a
// single statement: on failure nothing is visible, and every error is
// wrapped as a storage error so callers can retry idempotently.
func (r *AttendanceRepository) Append(ctx context.Context, rec database.AttendanceRecord) (int64, error) {
	query := `
		INSERT INTO attendance_log
			(matric_no, class_id, level, department, verified, confidence, scan_timestamp, log_timestamp, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	var id int64
	err := r.pool.QueryRow(ctx, query,
		rec.MatricNo, rec.ClassID, rec.Level, rec.Department,
		rec.Verified, rec.Confidence, rec.ScanTime, rec.LogTime, rec.ImageURL,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: append attendance: %v", database.ErrStorage, err)
	}
	return id, nil
}

// Verify interface compliance.
var _ database.AttendanceWriter = (*AttendanceRepository)(nil)
