// Package portal reads student records from the school portal's MySQL
// database and provisions bare identity rows for them. Enrollment then only
// ever updates rows this import created.
package portal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Pool manages a connection pool to the portal database.
type Pool struct {
	db *sql.DB
}

// NewPool opens and pings the portal database.
func NewPool(dsn string) (*Pool, error) {
	if dsn == "" {
		return nil, errors.New("portal DSN is required")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open portal database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping portal database: %w", err)
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing portal connection: %w", err)
		}
	}
	return nil
}

// Student is one portal record worth provisioning.
type Student struct {
	MatricNo   string
	FirstName  string
	MiddleName string
	LastName   string
	Level      string
	Department string
	College    string
}

// Students streams all registered students from the portal, ordered by
// matric number so repeated imports walk the same sequence.
func (p *Pool) Students(ctx context.Context) ([]Student, error) {
	query := `
		SELECT matric_no, first_name, COALESCE(middle_name, ''), surname,
		       level, department, college
		FROM students
		WHERE status = 'registered'
		ORDER BY matric_no
	`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query portal students: %w", err)
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.MatricNo, &s.FirstName, &s.MiddleName, &s.LastName,
			&s.Level, &s.Department, &s.College); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return students, nil
}
