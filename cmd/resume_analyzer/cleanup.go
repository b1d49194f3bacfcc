package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-analyzer/internal/email"
)

var (
	cleanupDays    int
	cleanupSummary bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete stale cached version comparisons",
	Long: `Delete cached version comparisons older than --days. With --email-summary the
feedback backlog in the email backup file is also mailed to the feedback inbox.`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 7, "Delete comparisons older than this many days")
	cleanupCmd.Flags().BoolVar(&cleanupSummary, "email-summary", false, "Also mail the feedback backup summary")
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	if cleanupDays < 1 {
		return fmt.Errorf("--days must be at least 1")
	}
	ctx := context.Background()

	c, err := newComponents()
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.connectDB(ctx, true); err != nil {
		return err
	}
	n, err := c.versions.CleanupComparisons(ctx, time.Duration(cleanupDays)*24*time.Hour)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d cached comparisons\n", n)

	if cleanupSummary {
		sent, err := email.New(c.cfg.Email, c.log).SendBackupSummary(ctx)
		if err != nil {
			return fmt.Errorf("failed to send feedback summary: %w", err)
		}
		if sent {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "feedback summary sent")
		}
	}
	return nil
}
