package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/facegate/facegate/internal/config"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll [matric-no] [image-path]",
	Short: "Enroll an identity from an image file",
	Long: `Enroll a face template for the given matriculation number from an
image on disk. The image must contain exactly one face.`,
	Args: cobra.ExactArgs(2),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("level", "", "Student level (e.g. 500)")
	enrollCmd.Flags().String("department", "", "Department code (e.g. MEE)")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if err := initBackend(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Matcher.CommandTimeout)
	defer cancel()

	svc, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}

	matricNo := args[0]
	imageData, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	level := mustGetString(cmd, "level")
	department := mustGetString(cmd, "department")

	if err := svc.registry.EnrollWithFace(ctx, matricNo, level, department, imageData); err != nil {
		return fmt.Errorf("enrolling %s: %w", matricNo, err)
	}

	fmt.Printf("%s enrolled successfully\n", matricNo)
	return nil
}
