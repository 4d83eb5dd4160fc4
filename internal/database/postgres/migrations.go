package postgres

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/facegate/facegate/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// embedDimPlaceholder is substituted with the encoder's embedding dimension
// when a migration is applied. The dimension is fixed per deployment by the
// encoder model, not by the schema.
const embedDimPlaceholder = "__EMBED_DIM__"

// getAppliedMigrations returns a set of already-applied migration versions.
func (p *Pool) getAppliedMigrations(ctx context.Context) (map[string]bool, error) {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("create migrations table: %w", err)
	}

	applied := make(map[string]bool)
	rows, err := p.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}
	return applied, nil
}

// getPendingMigrationFiles returns sorted SQL migration filenames not yet applied.
func getPendingMigrationFiles(applied map[string]bool) ([]string, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") && !applied[e.Name()] {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// Migrate applies all pending migrations automatically on startup.
func (p *Pool) Migrate(ctx context.Context, embedDim int) error {
	applied, err := p.getAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	files, err := getPendingMigrationFiles(applied)
	if err != nil {
		return err
	}

	for _, file := range files {
		content, err := migrationsFS.ReadFile("migrations/" + file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		stmt := strings.ReplaceAll(string(content), embedDimPlaceholder, strconv.Itoa(embedDim))

		tx, err := p.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction for %s: %w", file, err)
		}

		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %s: %w", file, err)
		}

		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", file); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}

		fmt.Printf("Applied migration: %s\n", file)
	}

	return nil
}

// SeedCampus loads department and college codes into their lookup tables.
// Existing codes are left untouched.
func (p *Pool) SeedCampus(ctx context.Context, seed config.CampusSeed) error {
	for _, d := range seed.Departments {
		_, err := p.db.ExecContext(ctx,
			"INSERT INTO departments (code, name) VALUES ($1, $2) ON CONFLICT (code) DO NOTHING",
			d.Code, d.Name)
		if err != nil {
			return fmt.Errorf("seed department %s: %w", d.Code, err)
		}
	}
	for _, c := range seed.Colleges {
		_, err := p.db.ExecContext(ctx,
			"INSERT INTO colleges (code, name) VALUES ($1, $2) ON CONFLICT (code) DO NOTHING",
			c.Code, c.Name)
		if err != nil {
			return fmt.Errorf("seed college %s: %w", c.Code, err)
		}
	}
	return nil
}
