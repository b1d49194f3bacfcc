package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-analyzer/internal/db"
)

var migratePrint bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long:  "Apply the embedded schema to the database at DATABASE_URL. Statements are idempotent, so running it twice is safe.",
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migratePrint, "print", false, "Print the schema instead of applying it")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	if migratePrint {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), db.Schema())
		return err
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
	if err := c.db.Migrate(ctx); err != nil {
		return err
	}
	c.log.Info("Database schema applied")
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
	return nil
}
