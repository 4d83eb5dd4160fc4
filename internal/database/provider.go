package database

import (
	"context"
	"fmt"
)

var (
	postgresIdentityReader   func() IdentityReader
	postgresIdentityWriter   func() IdentityWriter
	postgresClassWriter      func() ClassWriter
	postgresAttendanceWriter func() AttendanceWriter
	postgresCampusReader     func() CampusReader
	postgresInitialized      bool
)

// RegisterPostgresBackend registers PostgreSQL repository constructors.
// This is called by the postgres package to avoid import cycles.
func RegisterPostgresBackend(
	identityReader func() IdentityReader,
	identityWriter func() IdentityWriter,
	classWriter func() ClassWriter,
	attendanceWriter func() AttendanceWriter,
	campusReader func() CampusReader,
) {
	postgresIdentityReader = identityReader
	postgresIdentityWriter = identityWriter
	postgresClassWriter = classWriter
	postgresAttendanceWriter = attendanceWriter
	postgresCampusReader = campusReader
	postgresInitialized = true
}

// IsInitialized returns whether the PostgreSQL backend has been initialized.
func IsInitialized() bool {
	return postgresInitialized
}

// GetIdentityReader returns an IdentityReader from the PostgreSQL backend.
func GetIdentityReader(ctx context.Context) (IdentityReader, error) {
	if !postgresInitialized {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	return postgresIdentityReader(), nil
}

// GetIdentityWriter returns an IdentityWriter from the PostgreSQL backend.
func GetIdentityWriter(ctx context.Context) (IdentityWriter, error) {
	if !postgresInitialized {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	return postgresIdentityWriter(), nil
}

// GetClassWriter returns a ClassWriter from the PostgreSQL backend.
func GetClassWriter(ctx context.Context) (ClassWriter, error) {
	if !postgresInitialized {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	return postgresClassWriter(), nil
}

// GetAttendanceWriter returns an AttendanceWriter from the PostgreSQL backend.
func GetAttendanceWriter(ctx context.Context) (AttendanceWriter, error) {
	if !postgresInitialized {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	return postgresAttendanceWriter(), nil
}

// GetCampusReader returns a CampusReader from the PostgreSQL backend.
func GetCampusReader(ctx context.Context) (CampusReader, error) {
	if !postgresInitialized {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	return postgresCampusReader(), nil
}
