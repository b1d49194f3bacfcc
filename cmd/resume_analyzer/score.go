package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-analyzer/internal/scoring"
	"github.com/jonathan/resume-analyzer/internal/types"
)

var (
	scoreRecord   string
	scoreJob      string
	scoreKeywords []string
	scoreOutput   string
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score an extracted resume record",
	Long: `Compute the ATS score and the rule-based optimization suggestions for a resume
record in JSON (the "record" of an analysis result). No model calls are made.`,
	RunE: runScore,
}

func init() {
	scoreCmd.Flags().StringVarP(&scoreRecord, "record", "r", "", "Path to a resume record JSON file (required)")
	scoreCmd.Flags().StringVarP(&scoreJob, "job", "j", "", "Path to a job description text file")
	scoreCmd.Flags().StringSliceVarP(&scoreKeywords, "keywords", "k", nil, "Job keywords to match (comma separated)")
	scoreCmd.Flags().StringVarP(&scoreOutput, "out", "o", "", "Write the JSON result to this file instead of stdout")
	_ = scoreCmd.MarkFlagRequired("record")
	rootCmd.AddCommand(scoreCmd)
}

// scoreOutputDoc is what the score command prints.
type scoreOutputDoc struct {
	Score       types.ScoreReport              `json:"score"`
	Suggestions []types.OptimizationSuggestion `json:"suggestions"`
}

func runScore(cmd *cobra.Command, _ []string) error {
	data, err := os.ReadFile(scoreRecord)
	if err != nil {
		return fmt.Errorf("failed to read record: %w", err)
	}
	record := types.NewEmptyRecord()
	if err := json.Unmarshal(data, record); err != nil {
		return fmt.Errorf("failed to parse record JSON: %w", err)
	}
	record.Normalize()

	var jd *types.JobDescription
	if scoreJob != "" || len(scoreKeywords) > 0 {
		jd = &types.JobDescription{}
		if scoreJob != "" {
			text, err := os.ReadFile(scoreJob)
			if err != nil {
				return fmt.Errorf("failed to read job description: %w", err)
			}
			jd.Text = string(text)
		}
		for _, k := range scoreKeywords {
			if k = strings.TrimSpace(k); k != "" {
				jd.Keywords = append(jd.Keywords, k)
			}
		}
	}

	engine := scoring.NewEngine(nil)
	report := engine.Score(record, jd)
	return writeJSON(cmd, scoreOutput, scoreOutputDoc{
		Score:       report,
		Suggestions: engine.Optimize(record, report),
	})
}
