//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/database"
)

const testEmbedDim = 4

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if err := pool.Migrate(ctx, testEmbedDim); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func TestIdentityRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewIdentityRepository(pool)

	t.Run("UpsertAndGet", func(t *testing.T) {
		err := repo.UpsertEnrollment(ctx, database.Identity{
			MatricNo:  "S100",
			Level:     "500",
			Embedding: []float32{1, 0, 0, 0},
		})
		if err != nil {
			t.Fatalf("Failed to upsert: %v", err)
		}

		got, err := repo.Get(ctx, "S100")
		if err != nil {
			t.Fatalf("Failed to get: %v", err)
		}
		if got == nil {
			t.Fatal("Expected identity, got nil")
		}
		if got.Level != "500" || len(got.Embedding) != testEmbedDim {
			t.Errorf("Unexpected identity: %+v", got)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		got, err := repo.Get(ctx, "NOPE")
		if err != nil {
			t.Fatalf("Failed to get: %v", err)
		}
		if got != nil {
			t.Errorf("Expected nil for missing identity, got %+v", got)
		}
	})

	t.Run("NearestAll", func(t *testing.T) {
		if err := repo.UpsertEnrollment(ctx, database.Identity{
			MatricNo:  "S200",
			Embedding: []float32{0, 1, 0, 0},
		}); err != nil {
			t.Fatalf("Failed to upsert: %v", err)
		}

		cand, err := repo.NearestAll(ctx, []float32{0.9, 0.1, 0, 0})
		if err != nil {
			t.Fatalf("NearestAll failed: %v", err)
		}
		if cand == nil || cand.MatricNo != "S100" {
			t.Errorf("Expected S100, got %+v", cand)
		}
	})

	t.Run("NearestTo", func(t *testing.T) {
		cand, err := repo.NearestTo(ctx, []float32{0, 1, 0, 0}, "S200")
		if err != nil {
			t.Fatalf("NearestTo failed: %v", err)
		}
		if cand == nil || cand.MatricNo != "S200" || cand.Distance > 0.001 {
			t.Errorf("Unexpected candidate: %+v", cand)
		}

		cand, err = repo.NearestTo(ctx, []float32{0, 1, 0, 0}, "NOPE")
		if err != nil {
			t.Fatalf("NearestTo failed: %v", err)
		}
		if cand != nil {
			t.Errorf("Expected nil for unknown identity, got %+v", cand)
		}
	})

	t.Run("ProvisionDoesNotOverwrite", func(t *testing.T) {
		if err := repo.Provision(ctx, database.Identity{MatricNo: "S100", FirstName: "Portal"}); err != nil {
			t.Fatalf("Provision failed: %v", err)
		}
		got, err := repo.Get(ctx, "S100")
		if err != nil {
			t.Fatalf("Failed to get: %v", err)
		}
		if len(got.Embedding) != testEmbedDim {
			t.Error("Provision must not clobber an enrolled row")
		}
	})

	t.Run("UpdateBiodata", func(t *testing.T) {
		ok, err := repo.UpdateBiodata(ctx, database.BiodataUpdate{
			MatricNo:  "S100",
			FirstName: "Ada",
			LastName:  "Obi",
		})
		if err != nil {
			t.Fatalf("UpdateBiodata failed: %v", err)
		}
		if !ok {
			t.Fatal("Expected update to match a row")
		}

		ok, err = repo.UpdateBiodata(ctx, database.BiodataUpdate{MatricNo: "NOPE", FirstName: "X"})
		if err != nil {
			t.Fatalf("UpdateBiodata failed: %v", err)
		}
		if ok {
			t.Error("Update of an absent key must report no match")
		}
	})

	t.Run("AllEnrolled", func(t *testing.T) {
		enrolled, err := repo.AllEnrolled(ctx)
		if err != nil {
			t.Fatalf("AllEnrolled failed: %v", err)
		}
		if len(enrolled) != 2 {
			t.Errorf("Expected 2 enrolled identities, got %d", len(enrolled))
		}
	})
}

func TestClassAndAttendanceRepositories(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	classes := NewClassRepository(pool)
	attendance := NewAttendanceRepository(pool)

	t.Run("InsertReturnsIncreasingIDs", func(t *testing.T) {
		var last int64
		for i := 0; i < 3; i++ {
			id, err := classes.Insert(ctx, database.ClassSession{
				CourseCode:    "MEE527",
				Venue:         "LT1",
				StartTime:     time.Now(),
				DurationHours: 1,
				AuthMode:      "face",
				Date:          time.Now(),
			})
			if err != nil {
				t.Fatalf("Insert failed: %v", err)
			}
			if id <= last {
				t.Fatalf("Session ids must be strictly increasing: %d after %d", id, last)
			}
			last = id
		}
	})

	t.Run("AppendOnlyReplay", func(t *testing.T) {
		conf := 0.42
		rec := database.AttendanceRecord{
			MatricNo:   "S100",
			Verified:   true,
			Confidence: &conf,
			ScanTime:   time.Now(),
			LogTime:    time.Now(),
		}

		first, err := attendance.Append(ctx, rec)
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		second, err := attendance.Append(ctx, rec)
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if first == second {
			t.Error("Replayed append must create a distinct row")
		}
	})
}

func TestCampusRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	if err := pool.SeedCampus(ctx, config.CampusSeed{
		Departments: []config.CampusUnit{{Code: "MEE", Name: "Mechanical Engineering"}},
		Colleges:    []config.CampusUnit{{Code: "COLENG", Name: "College of Engineering"}},
	}); err != nil {
		t.Fatalf("SeedCampus failed: %v", err)
	}

	repo := NewCampusRepository(pool)

	id, err := repo.DepartmentID(ctx, "MEE")
	if err != nil {
		t.Fatalf("DepartmentID failed: %v", err)
	}
	if id == 0 {
		t.Error("Expected seeded department id")
	}

	id, err = repo.CollegeID(ctx, "NOPE")
	if err != nil {
		t.Fatalf("CollegeID failed: %v", err)
	}
	if id != 0 {
		t.Errorf("Unknown code must resolve to 0, got %d", id)
	}
}
