package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/database"
	"github.com/facegate/facegate/internal/database/identityindex"
	"github.com/facegate/facegate/internal/database/postgres"
	"github.com/facegate/facegate/internal/evidence"
	"github.com/facegate/facegate/internal/faceid"
	"github.com/facegate/facegate/internal/gate"
	"github.com/facegate/facegate/internal/ledger"
	"github.com/facegate/facegate/internal/registry"
	"github.com/facegate/facegate/internal/session"
)

// services bundles the wired application components shared by commands.
type services struct {
	encoder  *faceid.Client
	matcher  *faceid.Matcher
	registry *registry.Registry
	sessions *session.Context
	ledger   *ledger.Ledger
	gate     *gate.Service
	index    *identityindex.Index
}

// initBackend connects to PostgreSQL, runs migrations and seeds the campus
// tables.
func initBackend(cfg *config.Config) error {
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	if err := postgres.Initialize(cfg); err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	return nil
}

// buildServices wires the application services on top of the registered
// backend. When the in-memory index is enabled it is built from every
// enrolled identity up front.
func buildServices(ctx context.Context, cfg *config.Config) (*services, error) {
	identityReader, err := database.GetIdentityReader(ctx)
	if err != nil {
		return nil, err
	}
	identityWriter, err := database.GetIdentityWriter(ctx)
	if err != nil {
		return nil, err
	}
	classWriter, err := database.GetClassWriter(ctx)
	if err != nil {
		return nil, err
	}
	attendanceWriter, err := database.GetAttendanceWriter(ctx)
	if err != nil {
		return nil, err
	}
	campusReader, err := database.GetCampusReader(ctx)
	if err != nil {
		return nil, err
	}

	var index *identityindex.Index
	if cfg.Matcher.UseIndex {
		index = identityindex.New()
		enrolled, err := identityReader.AllEnrolled(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading enrolled identities: %w", err)
		}
		if err := index.Build(enrolled); err != nil {
			return nil, fmt.Errorf("building identity index: %w", err)
		}
		fmt.Printf("Identity index built with %d enrolled identities\n", index.Count())
	}

	evidenceStore, err := evidence.NewStore(cfg.Evidence.Dir, cfg.Evidence.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("creating evidence store: %w", err)
	}

	encoder := faceid.NewClient(cfg.Encoder.URL)
	var matcherIndex faceid.Index
	var registryIndex registry.IndexWriter
	if index != nil {
		matcherIndex = index
		registryIndex = index
	}
	matcher := faceid.NewMatcher(identityReader, matcherIndex, cfg.Matcher.Threshold)

	type identityStore struct {
		database.IdentityReader
		database.IdentityWriter
	}

	sessions := session.NewContext(classWriter)
	lg := ledger.New(attendanceWriter, sessions)

	return &services{
		encoder:  encoder,
		matcher:  matcher,
		registry: registry.New(identityStore{identityReader, identityWriter}, campusReader, encoder, registryIndex),
		sessions: sessions,
		ledger:   lg,
		gate:     gate.New(encoder, matcher, evidenceStore, lg),
		index:    index,
	}, nil
}
