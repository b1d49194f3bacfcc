package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-analyzer/internal/config"
	"github.com/jonathan/resume-analyzer/internal/email"
	"github.com/jonathan/resume-analyzer/internal/queue"
	"github.com/jonathan/resume-analyzer/internal/server"
	"github.com/jonathan/resume-analyzer/internal/server/ratelimit"
	"github.com/jonathan/resume-analyzer/internal/storage"
	"github.com/jonathan/resume-analyzer/internal/verification"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that exposes the resume analysis, version and account endpoints.

Redis (email verification), RabbitMQ (asynchronous analysis) and SMTP/SendGrid
(email) are optional; the endpoints that need them answer 503 when missing.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT and the config file)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := newComponents()
	if err != nil {
		return err
	}
	defer c.Close()
	if cmd.Flags().Changed("port") {
		c.cfg.Server.Port = servePort
	}

	jwtConfig, err := config.NewJWTConfig(getenv)
	if err != nil {
		return err
	}
	passwords, err := config.NewPasswordConfig(getenv)
	if err != nil {
		return err
	}

	if err := c.connectDB(ctx, true); err != nil {
		return err
	}
	if err := c.buildAnalysis(ctx); err != nil {
		return err
	}

	files, err := storage.New(ctx, c.cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open upload storage: %w", err)
	}
	notifier := email.New(c.cfg.Email, c.log)

	deps := server.Deps{
		Config:    c.cfg,
		Users:     c.db,
		Feedback:  c.db,
		Jobs:      c.db,
		Versions:  c.versions,
		Analyzer:  c.analyzer,
		Client:    c.client,
		Engine:    c.engine,
		Notifier:  notifier,
		Files:     files,
		JWT:       server.NewJWTService(jwtConfig),
		Passwords: passwords,
		Log:       c.log,
	}

	codes, err := verification.NewRedisStore(ctx, c.cfg.Redis)
	if err != nil {
		c.log.Warn("Redis unavailable, email verification disabled", "error", err)
	} else {
		c.onClose(func() { _ = codes.Close() })
		deps.Verifier = verification.NewService(codes, c.db, notifier, c.cfg.Email.BaseURL, c.log)
	}

	if c.cfg.Queue.URL != "" {
		broker, err := queue.Dial(c.cfg.Queue)
		if err != nil {
			c.log.Warn("RabbitMQ unavailable, asynchronous analysis disabled", "error", err)
		} else {
			c.onClose(func() { _ = broker.Close() })
			deps.Queue = broker
		}
	}

	limiter := ratelimit.NewLimiter(ratelimit.LoadConfig(getenv, c.cfg.Server.AnalyzeRatePerHour))
	defer limiter.Stop()
	deps.Limiter = limiter

	return server.New(deps).Start(ctx)
}
