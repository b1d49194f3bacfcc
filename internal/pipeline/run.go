// Package pipeline orchestrates a full resume analysis: text extraction,
// structured extraction, job keyword analysis, scoring, suggestions and
// optional version storage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/resume-analyzer/internal/analysis"
	"github.com/jonathan/resume-analyzer/internal/extraction"
	"github.com/jonathan/resume-analyzer/internal/keywords"
	"github.com/jonathan/resume-analyzer/internal/logger"
	"github.com/jonathan/resume-analyzer/internal/scoring"
	"github.com/jonathan/resume-analyzer/internal/types"
	"github.com/jonathan/resume-analyzer/internal/versions"
)

// Step names reported in progress events.
const (
	StepExtractText    = "extract_text"
	StepJobDescription = "job_description"
	StepParseResume    = "parse_resume"
	StepJobKeywords    = "job_keywords"
	StepScore          = "score"
	StepSuggestions    = "suggestions"
	StepSaveVersion    = "save_version"
	StepDone           = "done"
)

// Step categories.
const (
	CategoryIngestion = "ingestion"
	CategoryAnalysis  = "analysis"
	CategoryScoring   = "scoring"
	CategoryStorage   = "storage"
)

// maxSTARRewrites caps the per-experience rewrite calls of one run.
const maxSTARRewrites = 3

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step     string `json:"step"`
	Category string `json:"category"`
	Message  string `json:"message"`
	RunID    string `json:"run_id,omitempty"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// TextExtractor turns a stored or uploaded document into text.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (*extraction.Document, error)
	ExtractBytes(ctx context.Context, filename string, data []byte) (*extraction.Document, error)
}

// JobFetcher downloads a job description from a URL.
type JobFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// VersionCreator stores analyzed resumes.
type VersionCreator interface {
	Create(ctx context.Context, in versions.CreateInput) (string, error)
}

// Options holds configuration for one analysis run. The document is either
// the file at Path or, when Data is set, an in-memory upload named Filename.
type Options struct {
	Path           string
	Filename       string
	Data           []byte
	JobDescription string
	JobURL         string
	IncludeSTAR    bool
	Save           bool
	Owner          *uuid.UUID
	Company        string
	Position       string
	VersionName    string
	RunID          string
	OnProgress     ProgressCallback
}

// Analyzer runs the analysis pipeline. Jobs and Versions are optional.
type Analyzer struct {
	Extractor TextExtractor
	Client    *analysis.Client
	Engine    *scoring.Engine
	Jobs      JobFetcher
	Versions  VersionCreator
	Log       *logger.Logger
}

// ErrNoPath is returned when Options names no document.
var ErrNoPath = errors.New("no document path given")

// emitProgress calls the progress callback if configured
func emitProgress(opts *Options, step, category, message string, content any) {
	if opts.OnProgress != nil {
		opts.OnProgress(ProgressEvent{
			Step:     step,
			Category: category,
			Message:  message,
			RunID:    opts.RunID,
			Content:  content,
		})
	}
}

// Run analyzes the document at opts.Path. Model failures degrade to
// fallback results and are reported as warnings; only text extraction and
// storage failures abort the run.
func (a *Analyzer) Run(ctx context.Context, opts Options) (*types.AnalysisResult, error) {
	if opts.Path == "" && len(opts.Data) == 0 {
		return nil, ErrNoPath
	}
	log := logger.OrNop(a.Log).With("run_id", opts.RunID)
	result := &types.AnalysisResult{}

	doc, err := a.extract(ctx, &opts)
	if err != nil {
		return nil, fmt.Errorf("text extraction failed: %w", err)
	}
	text := extraction.Preprocess(doc.Text)
	result.ExtractionMode = doc.Method
	result.Warnings = append(result.Warnings, doc.Warnings...)
	if doc.OCRErr != nil {
		result.Warnings = append(result.Warnings, doc.OCRErr.Error())
	}
	emitProgress(&opts, StepExtractText, CategoryIngestion,
		fmt.Sprintf("Extracted %d characters via %s", len([]rune(doc.Text)), doc.Method), nil)

	jd := strings.TrimSpace(opts.JobDescription)
	if jd == "" && opts.JobURL != "" && a.Jobs != nil {
		fetched, err := a.Jobs.Fetch(ctx, opts.JobURL)
		if err != nil {
			log.Warn("job description fetch failed", "url", opts.JobURL, "error", err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("job description could not be fetched: %v", err))
		} else {
			jd = fetched
			emitProgress(&opts, StepJobDescription, CategoryIngestion,
				fmt.Sprintf("Fetched job description from %s", opts.JobURL), nil)
		}
	}

	// Resume extraction, soft skills and job keyword analysis are
	// independent model calls.
	g, gCtx := errgroup.WithContext(ctx)
	var parsed analysis.Result
	var softSkills []string
	var jobKeywords *types.JobKeywords

	g.Go(func() error {
		parsed = a.Client.Extract(gCtx, text)
		return nil
	})
	g.Go(func() error {
		softSkills = a.Client.SoftSkills(gCtx, text)
		return nil
	})
	if jd != "" {
		g.Go(func() error {
			kws := a.Client.JobKeywords(gCtx, jd)
			jobKeywords = &kws
			return nil
		})
	}
	_ = g.Wait()

	result.Record = parsed.Record
	result.Record.TechnicalSkills.SoftSkills = keywords.MergeUnique(result.Record.TechnicalSkills.SoftSkills, softSkills)
	result.Outcome = string(parsed.Outcome)
	if parsed.Err != nil {
		log.Warn("resume extraction fell back", "error", parsed.Err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("structured extraction degraded: %v", parsed.Err))
	}
	emitProgress(&opts, StepParseResume, CategoryAnalysis,
		fmt.Sprintf("Parsed resume (%s, confidence %.2f)", parsed.Outcome, parsed.Record.Confidence), parsed.Record)

	var jdInput *types.JobDescription
	if jd != "" {
		jdInput = &types.JobDescription{Text: jd}
		if jobKeywords != nil {
			jdInput.Keywords = jobKeywords.All()
			result.JobKeywords = jobKeywords
			emitProgress(&opts, StepJobKeywords, CategoryAnalysis,
				fmt.Sprintf("Found %d job keywords", len(jdInput.Keywords)), jobKeywords)
		}
	}

	result.Score = a.Engine.Score(result.Record, jdInput)
	emitProgress(&opts, StepScore, CategoryScoring,
		fmt.Sprintf("Overall score %d", result.Score.OverallScore), result.Score)

	result.Suggestions = a.Engine.Optimize(result.Record, result.Score)
	a.adviseOnRecord(ctx, result, jd, opts.IncludeSTAR)
	result.Quantified = keywords.ExtractQuantified(text)
	emitProgress(&opts, StepSuggestions, CategoryScoring,
		fmt.Sprintf("Generated %d suggestions", len(result.Suggestions)+len(result.JobSuggestions)), nil)

	if opts.Save && a.Versions != nil {
		id, err := a.Versions.Create(ctx, versions.CreateInput{
			Owner:          opts.Owner,
			Name:           opts.VersionName,
			Content:        result.Record,
			Score:          &result.Score,
			TargetCompany:  opts.Company,
			TargetPosition: opts.Position,
			JobDescription: jd,
		})
		if err != nil {
			return nil, fmt.Errorf("saving version failed: %w", err)
		}
		result.VersionID = id
		emitProgress(&opts, StepSaveVersion, CategoryStorage, fmt.Sprintf("Saved version %s", id), nil)
	}

	if result.Suggestions == nil {
		result.Suggestions = []types.OptimizationSuggestion{}
	}
	log.Info("analysis completed", "outcome", result.Outcome, "overall_score", result.Score.OverallScore)
	emitProgress(&opts, StepDone, CategoryStorage, "Analysis complete", nil)
	return result, nil
}

func (a *Analyzer) extract(ctx context.Context, opts *Options) (*extraction.Document, error) {
	if len(opts.Data) > 0 {
		return a.Extractor.ExtractBytes(ctx, opts.Filename, opts.Data)
	}
	return a.Extractor.Extract(ctx, opts.Path)
}

// adviseOnRecord runs the model rounds that need the parsed record: missing
// keywords and job suggestions when a job description is given, and the STAR
// analysis and rewrites when requested. Each falls back to an empty list.
func (a *Analyzer) adviseOnRecord(ctx context.Context, result *types.AnalysisResult, jd string, includeSTAR bool) {
	record := result.Record
	var star []types.OptimizationSuggestion

	g, gCtx := errgroup.WithContext(ctx)
	if jd != "" {
		g.Go(func() error {
			result.MissingKeywords = a.Client.MissingKeywords(gCtx, record, jd)
			return nil
		})
		g.Go(func() error {
			result.JobSuggestions = a.Client.Suggestions(gCtx, record, jd)
			return nil
		})
	}
	if includeSTAR {
		g.Go(func() error {
			result.STARAnalysis = a.Client.AnalyzeSTAR(gCtx, record)
			return nil
		})
		if jd != "" {
			g.Go(func() error {
				star = a.starSuggestions(gCtx, record, jd)
				return nil
			})
		}
	}
	_ = g.Wait()

	result.Suggestions = append(result.Suggestions, star...)
}

// starSuggestions rewrites the first experiences with the STAR method, in
// parallel. Entries whose rewrite fails are skipped.
func (a *Analyzer) starSuggestions(ctx context.Context, record *types.ResumeRecord, jd string) []types.OptimizationSuggestion {
	n := min(len(record.WorkExperience), maxSTARRewrites)
	found := make([]*types.OptimizationSuggestion, n)

	g, gCtx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			exp := record.WorkExperience[i]
			star := a.Client.RewriteSTAR(gCtx, exp, jd)
			current := strings.Join(append(append([]string{}, exp.Responsibilities...), exp.Achievements...), "\n")
			if s, ok := scoring.FromSTAR(fmt.Sprintf("work_experience[%d]", i), current, star); ok {
				found[i] = &s
			}
			return nil
		})
	}
	_ = g.Wait()

	out := []types.OptimizationSuggestion{}
	for _, s := range found {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}
