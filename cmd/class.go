package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/session"
)

var classCmd = &cobra.Command{
	Use:   "class [course-code]",
	Short: "Start a class session",
	Long: `Create a class session row and print its id. Attendance logged
afterwards by terminals references the most recently started session.`,
	Args: cobra.ExactArgs(1),
	RunE: runClass,
}

func init() {
	rootCmd.AddCommand(classCmd)

	classCmd.Flags().String("venue", "", "Venue (e.g. LT1)")
	classCmd.Flags().String("start", "", "Start time as 'YYYY-MM-DD HH' (defaults to now)")
	classCmd.Flags().Int("duration", 1, "Duration in hours")
	classCmd.Flags().String("auth-mode", "face", "Authentication mode")
	classCmd.Flags().String("department", "", "Department code")
	classCmd.Flags().String("level", "", "Student level")
}

func runClass(cmd *cobra.Command, args []string) error {
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

	startTime := time.Now()
	if s := mustGetString(cmd, "start"); s != "" {
		startTime, err = time.Parse("2006-01-02 15", s)
		if err != nil {
			return fmt.Errorf("parsing --start: %w", err)
		}
	}

	id, err := svc.sessions.Start(ctx, session.Details{
		CourseCode:    args[0],
		Venue:         mustGetString(cmd, "venue"),
		StartTime:     startTime,
		DurationHours: mustGetInt(cmd, "duration"),
		AuthMode:      mustGetString(cmd, "auth-mode"),
		Department:    mustGetString(cmd, "department"),
		Level:         mustGetString(cmd, "level"),
	})
	if err != nil {
		return err
	}

	fmt.Printf("Class %d started successfully\n", id)
	return nil
}
