package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/resume-analyzer/internal/pipeline"
)

var (
	analyzeJob      string
	analyzeJobURL   string
	analyzeSTAR     bool
	analyzeSave     bool
	analyzeCompany  string
	analyzePosition string
	analyzeOutput   string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <resume-file>",
	Short: "Analyze one resume file",
	Long: `Run the full analysis pipeline on a local PDF, DOCX, TXT or Markdown resume and
print the result as JSON.

With --save the analyzed resume is stored as a guest version (requires DATABASE_URL).`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeJob, "job", "j", "", "Path to a job description text file")
	analyzeCmd.Flags().StringVar(&analyzeJobURL, "job-url", "", "URL to fetch the job description from")
	analyzeCmd.Flags().BoolVar(&analyzeSTAR, "star", false, "Include per-experience STAR rewrites")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "Store the result as a resume version")
	analyzeCmd.Flags().StringVar(&analyzeCompany, "company", "", "Target company for the saved version")
	analyzeCmd.Flags().StringVar(&analyzePosition, "position", "", "Target position for the saved version")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "out", "o", "", "Write the JSON result to this file instead of stdout")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if analyzeJob != "" && analyzeJobURL != "" {
		return fmt.Errorf("--job and --job-url are mutually exclusive")
	}
	ctx := context.Background()

	c, err := newComponents()
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.connectDB(ctx, analyzeSave); err != nil {
		return err
	}
	if err := c.buildAnalysis(ctx); err != nil {
		return err
	}

	opts := pipeline.Options{
		Path:        args[0],
		JobURL:      analyzeJobURL,
		IncludeSTAR: analyzeSTAR,
		Save:        analyzeSave,
		Company:     analyzeCompany,
		Position:    analyzePosition,
		RunID:       uuid.NewString(),
	}
	if analyzeJob != "" {
		data, err := os.ReadFile(analyzeJob)
		if err != nil {
			return fmt.Errorf("failed to read job description: %w", err)
		}
		opts.JobDescription = string(data)
	}
	if verbose {
		opts.OnProgress = func(ev pipeline.ProgressEvent) {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %s\n", ev.Step, ev.Message)
		}
	}

	result, err := c.analyzer.Run(ctx, opts)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	return writeJSON(cmd, analyzeOutput, result)
}

// writeJSON prints v indented to path, or to the command output when path
// is empty.
func writeJSON(cmd *cobra.Command, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	data = append(data, '\n')
	if path == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
