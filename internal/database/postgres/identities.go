package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/facegate/facegate/internal/database"
)

// IdentityRepository provides PostgreSQL-backed identity storage with
// pgvector nearest-neighbour search over face embeddings.
type IdentityRepository struct {
	pool *Pool
}

// NewIdentityRepository creates a new PostgreSQL identity repository.
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// Get retrieves an identity by matric number, returns nil if not found.
func (r *IdentityRepository) Get(ctx context.Context, matricNo string) (*database.Identity, error) {
	query := `
		SELECT id, matric_no, COALESCE(first_name, ''), COALESCE(middle_name, ''),
		       COALESCE(last_name, ''), COALESCE(department_id, 0), COALESCE(college_id, 0),
		       COALESCE(level, ''), COALESCE(fprint_id, ''), COALESCE(card_uid, ''),
		       face_embed, created_at
		FROM students_biodata
		WHERE matric_no = $1
	`

	var id database.Identity
	var vec *pgvector.Vector

	err := r.pool.QueryRow(ctx, query, matricNo).Scan(
		&id.ID,
		&id.MatricNo,
		&id.FirstName,
		&id.MiddleName,
		&id.LastName,
		&id.DepartmentID,
		&id.CollegeID,
		&id.Level,
		&id.FprintID,
		&id.CardUID,
		&vec,
		&id.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query identity: %w", err)
	}

	if vec != nil {
		id.Embedding = vec.Slice()
	}
	return &id, nil
}

// NearestAll finds the closest enrolled identity to the query embedding
// across the whole registry using pgvector L2 distance. Ties break by
// insertion order. Returns nil if no identity has an embedding.
func (r *IdentityRepository) NearestAll(ctx context.Context, embedding []float32) (*database.Candidate, error) {
	query := `
		SELECT matric_no, face_embed <-> $1::vector AS distance
		FROM students_biodata
		WHERE face_embed IS NOT NULL
		ORDER BY distance ASC, id ASC
		LIMIT 1
	`

	var cand database.Candidate
	err := r.pool.QueryRow(ctx, query, pgvector.NewVector(embedding)).Scan(&cand.MatricNo, &cand.Distance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query nearest identity: %w", err)
	}
	return &cand, nil
}

// NearestTo measures the L2 distance between the query embedding and one
// named identity. Returns nil if that identity is absent or has no embedding.
func (r *IdentityRepository) NearestTo(ctx context.Context, embedding []float32, matricNo string) (*database.Candidate, error) {
	query := `
		SELECT matric_no, face_embed <-> $1::vector AS distance
		FROM students_biodata
		WHERE matric_no = $2 AND face_embed IS NOT NULL
	`

	var cand database.Candidate
	err := r.pool.QueryRow(ctx, query, pgvector.NewVector(embedding), matricNo).Scan(&cand.MatricNo, &cand.Distance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query identity distance: %w", err)
	}
	return &cand, nil
}

// AllEnrolled returns every identity that has an embedding, ordered by id.
func (r *IdentityRepository) AllEnrolled(ctx context.Context) ([]database.Identity, error) {
	query := `
		SELECT id, matric_no, face_embed
		FROM students_biodata
		WHERE face_embed IS NOT NULL
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query enrolled identities: %w", err)
	}
	defer rows.Close()

	var identities []database.Identity
	for rows.Next() {
		var id database.Identity
		var vec pgvector.Vector
		if err := rows.Scan(&id.ID, &id.MatricNo, &vec); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		id.Embedding = vec.Slice()
		identities = append(identities, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return identities, nil
}

// UpsertEnrollment creates or updates an identity with its face embedding.
func (r *IdentityRepository) UpsertEnrollment(ctx context.Context, id database.Identity) error {
	query := `
		INSERT INTO students_biodata (matric_no, level, department_id, face_embed)
		VALUES ($1, $2, $3, $4::vector)
		ON CONFLICT (matric_no) DO UPDATE SET
			level = EXCLUDED.level,
			department_id = EXCLUDED.department_id,
			face_embed = EXCLUDED.face_embed
	`

	_, err := r.pool.Exec(ctx, query, id.MatricNo, id.Level, id.DepartmentID, pgvector.NewVector(id.Embedding))
	if err != nil {
		return fmt.Errorf("save enrollment: %w", err)
	}
	return nil
}

// UpdateBiodata updates biographic fields on an existing row. Returns false
// if no row matched the matric number; absent rows are never created here.
func (r *IdentityRepository) UpdateBiodata(ctx context.Context, upd database.BiodataUpdate) (bool, error) {
	query := `
		UPDATE students_biodata SET
			first_name = $2,
			middle_name = $3,
			last_name = $4,
			college_id = $5,
			fprint_id = $6,
			card_uid = $7
		WHERE matric_no = $1
	`

	result, err := r.pool.Exec(ctx, query,
		upd.MatricNo, upd.FirstName, upd.MiddleName, upd.LastName,
		upd.CollegeID, upd.FprintID, upd.CardUID)
	if err != nil {
		return false, fmt.Errorf("update biodata: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}
	return affected > 0, nil
}

// Provision creates a bare identity row if the matric number is new.
// Used by the portal import to pre-provision rows for biodata updates.
func (r *IdentityRepository) Provision(ctx context.Context, id database.Identity) error {
	query := `
		INSERT INTO students_biodata (matric_no, first_name, middle_name, last_name, department_id, level)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (matric_no) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		id.MatricNo, id.FirstName, id.MiddleName, id.LastName, id.DepartmentID, id.Level)
	if err != nil {
		return fmt.Errorf("provision identity: %w", err)
	}
	return nil
}

// Verify interface compliance.
var _ database.IdentityReader = (*IdentityRepository)(nil)
var _ database.IdentityWriter = (*IdentityRepository)(nil)
