// Package main provides the entry point for the resume analyzer API server,
// its worker and its maintenance commands.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonathan/resume-analyzer/internal/config"
	"github.com/jonathan/resume-analyzer/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:          "resume_analyzer",
	Short:        "Resume analysis HTTP API server",
	Long:         "Resume analyzer extracts structured data from uploaded resumes, scores them for ATS compatibility against a job description and tracks tailored resume versions.",
	SilenceUsage: true,
}

var (
	configPath string
	verbose    bool
)

// getenv is replaced in tests.
var getenv = os.Getenv

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a JSON config file (environment variables override it)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level with the console encoder")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads --config, applies the environment and validates the
// result.
func loadConfig(getenv func(string) string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return nil, err
	}
	if verbose {
		cfg.LogMode = "development"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return log, nil
}
