package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-analyzer/internal/queue"
	"github.com/jonathan/resume-analyzer/internal/storage"
)

var (
	workerCount   int
	workerTimeout time.Duration
	workerTempDir string
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process queued analysis jobs",
	Long: `Consume analysis jobs from RabbitMQ with a pool of workers. Each job downloads
the stored upload, runs the analysis pipeline, records the result on the job row
and publishes status updates on the status exchange.`,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().IntVar(&workerCount, "workers", 0, "Number of concurrent workers (overrides WORKER_COUNT)")
	workerCmd.Flags().DurationVar(&workerTimeout, "timeout", 5*time.Minute, "Time limit for one analysis")
	workerCmd.Flags().StringVar(&workerTempDir, "temp-dir", "", "Directory for downloaded uploads (default: system temp)")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := newComponents()
	if err != nil {
		return err
	}
	defer c.Close()
	if cmd.Flags().Changed("workers") {
		c.cfg.Queue.Workers = workerCount
	}
	if c.cfg.Queue.Workers < 1 {
		return fmt.Errorf("--workers must be at least 1")
	}
	if c.cfg.Queue.URL == "" {
		return fmt.Errorf("RABBITMQ_URL environment variable is required")
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

	broker, err := queue.Dial(c.cfg.Queue)
	if err != nil {
		return err
	}
	c.onClose(func() { _ = broker.Close() })

	deliveries, err := broker.Consume(ctx, c.cfg.Queue.Workers)
	if err != nil {
		return err
	}

	w := &queue.Worker{
		Runner:  c.analyzer,
		Jobs:    c.db,
		Files:   files,
		Status:  broker,
		TempDir: workerTempDir,
		Timeout: workerTimeout,
		Log:     c.log,
	}
	c.log.Info("Worker pool started", "workers", c.cfg.Queue.Workers, "queue", c.cfg.Queue.JobQueue)
	w.Serve(ctx, deliveries, c.cfg.Queue.Workers)
	c.log.Info("Worker pool stopped")
	return nil
}
