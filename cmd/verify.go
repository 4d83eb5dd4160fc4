package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/faceid"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [image-path]",
	Short: "Verify an image against enrolled identities",
	Long: `Encode the image and match it against the registry. With --matric the
check runs one-to-one against that identity; otherwise the whole registry
is searched. No attendance is recorded.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().String("matric", "", "Matric number for a one-to-one check")
}

func runVerify(cmd *cobra.Command, args []string) error {
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

	imageData, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	embedding, err := svc.encoder.Encode(ctx, imageData)
	if err != nil {
		return fmt.Errorf("encoding image: %w", err)
	}

	matricNo := mustGetString(cmd, "matric")
	var match *faceid.Match
	if matricNo != "" {
		match, err = svc.matcher.VerifyOne(ctx, embedding, matricNo)
	} else {
		match, err = svc.matcher.VerifyAll(ctx, embedding)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Nearest:  %s\n", match.MatricNo)
	fmt.Printf("Distance: %.4f (threshold %.2f)\n", match.Distance, svc.matcher.Threshold())
	fmt.Printf("Verified: %t\n", match.Verified)
	return nil
}
