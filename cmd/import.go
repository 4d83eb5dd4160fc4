package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/database"
	"github.com/facegate/facegate/internal/portal"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Provision identities from the school portal",
	Long: `Read registered students from the school portal's MySQL database and
provision a biodata row for each. Existing rows are left untouched, so
the import is safe to re-run every semester.`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Portal.DSN == "" {
		return errors.New("PORTAL_DATABASE_URL environment variable is required")
	}
	if err := initBackend(cfg); err != nil {
		return err
	}

	ctx := context.Background()

	identityWriter, err := database.GetIdentityWriter(ctx)
	if err != nil {
		return err
	}
	campusReader, err := database.GetCampusReader(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Connecting to school portal...\n")
	pool, err := portal.NewPool(cfg.Portal.DSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	students, err := pool.Students(ctx)
	if err != nil {
		return fmt.Errorf("reading portal students: %w", err)
	}
	fmt.Printf("Students to provision: %d\n\n", len(students))

	bar := progressbar.NewOptions(len(students),
		progressbar.OptionSetDescription("Provisioning identities"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("students"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	result, err := portal.NewImporter(identityWriter, campusReader).Run(ctx, students, func() {
		_ = bar.Add(1)
	})
	fmt.Println()
	if err != nil {
		return fmt.Errorf("import failed after %d rows: %w", result.Provisioned, err)
	}

	fmt.Printf("Provisioned %d identities (%d skipped)\n", result.Provisioned, result.Skipped)
	return nil
}
