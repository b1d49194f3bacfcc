package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonathan/resume-analyzer/internal/analysis"
	"github.com/jonathan/resume-analyzer/internal/config"
	"github.com/jonathan/resume-analyzer/internal/db"
	"github.com/jonathan/resume-analyzer/internal/extraction"
	"github.com/jonathan/resume-analyzer/internal/jobdesc"
	"github.com/jonathan/resume-analyzer/internal/llm"
	"github.com/jonathan/resume-analyzer/internal/logger"
	"github.com/jonathan/resume-analyzer/internal/pipeline"
	"github.com/jonathan/resume-analyzer/internal/scoring"
	"github.com/jonathan/resume-analyzer/internal/versions"
)

// components are the pieces shared by serve, worker and analyze. Close
// releases whatever was opened.
type components struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *db.DB
	llm      llm.Client
	client   *analysis.Client
	engine   *scoring.Engine
	versions *versions.Service
	analyzer *pipeline.Analyzer
	closers  []func()
}

func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func (c *components) onClose(fn func()) { c.closers = append(c.closers, fn) }

// connectDB opens Postgres when a URL is configured. required makes a
// missing URL an error.
func (c *components) connectDB(ctx context.Context, required bool) error {
	if c.cfg.Database.URL == "" {
		if required {
			return fmt.Errorf("DATABASE_URL environment variable is required")
		}
		c.log.Warn("DATABASE_URL not set, running without persistence")
		return nil
	}
	database, err := db.Connect(ctx, c.cfg.Database.URL)
	if err != nil {
		return err
	}
	c.db = database
	c.onClose(database.Close)
	c.versions = versions.NewService(database, versions.WithLogger(c.log))
	return nil
}

// buildAnalysis creates the model client, the extractor and the pipeline.
// Without an API key the pipeline still runs on the rule-based fallbacks.
func (c *components) buildAnalysis(ctx context.Context) error {
	if c.cfg.LLM.APIKey != "" {
		client, err := llm.NewClient(ctx, c.cfg.LLM.ModelConfig(), c.cfg.LLM.APIKey, c.log)
		if err != nil {
			return fmt.Errorf("failed to create LLM client: %w", err)
		}
		c.llm = client
		c.onClose(func() { _ = client.Close() })
	} else {
		c.log.Warn("GEMINI_API_KEY not set, model-backed analysis is disabled")
		c.llm = unavailableLLM{}
	}

	extractor, err := c.buildExtractor(ctx)
	if err != nil {
		return err
	}

	c.client = analysis.NewClient(c.llm, nil, c.log)
	c.engine = scoring.NewEngine(nil)
	c.analyzer = &pipeline.Analyzer{
		Extractor: extractor,
		Client:    c.client,
		Engine:    c.engine,
		Jobs:      jobdesc.New(c.cfg.JobFetch, c.log),
		Log:       c.log,
	}
	// a nil *versions.Service must not become a non-nil interface
	if c.versions != nil {
		c.analyzer.Versions = c.versions
	}
	return nil
}

func (c *components) buildExtractor(ctx context.Context) (*extraction.Extractor, error) {
	opts := extraction.Options{
		MinTextLength: c.cfg.OCR.MinTextLength,
		RenderDPI:     c.cfg.OCR.RenderDPI,
	}
	renderer := extraction.NewPopplerRenderer("")

	switch c.cfg.OCR.Engine {
	case "vision":
		engine, err := extraction.NewVisionEngine(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create vision client: %w", err)
		}
		c.onClose(func() { _ = engine.Close() })
		return extraction.New(renderer, engine, opts, c.log), nil
	default:
		return extraction.New(renderer, extraction.NewTesseractEngine(c.cfg.OCR.Languages), opts, c.log), nil
	}
}

// unavailableLLM fails every call so the analysis client falls back to its
// rule-based results.
type unavailableLLM struct{}

var errNoAPIKey = errors.New("language model not configured")

func (unavailableLLM) GenerateContent(context.Context, string, llm.ModelTier) (string, error) {
	return "", errNoAPIKey
}

func (unavailableLLM) GenerateJSON(context.Context, string, llm.ModelTier) (string, error) {
	return "", errNoAPIKey
}

func (unavailableLLM) GetModel(llm.ModelTier) string { return "" }

func (unavailableLLM) Close() error { return nil }

// newComponents loads configuration and the logger.
func newComponents() (*components, error) {
	cfg, err := loadConfig(getenv)
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	c := &components{cfg: cfg, log: log}
	c.onClose(log.Sync)
	return c, nil
}
