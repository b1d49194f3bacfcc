package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-analyzer/internal/db"
	"github.com/jonathan/resume-analyzer/internal/logger"
	"github.com/jonathan/resume-analyzer/internal/pipeline"
	"github.com/jonathan/resume-analyzer/internal/storage"
	"github.com/jonathan/resume-analyzer/internal/types"
)

// Runner executes one analysis.
type Runner interface {
	Run(ctx context.Context, opts pipeline.Options) (*types.AnalysisResult, error)
}

// JobStore records job state.
type JobStore interface {
	MarkAnalysisJobRunning(ctx context.Context, id uuid.UUID) error
	CompleteAnalysisJob(ctx context.Context, id uuid.UUID, result []byte, errMsg string) error
}

// StatusPublisher broadcasts job status changes.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, update StatusUpdate) error
}

// Worker processes analysis jobs.
type Worker struct {
	Runner  Runner
	Jobs    JobStore
	Files   storage.Store
	Status  StatusPublisher
	TempDir string
	Timeout time.Duration
	Log     *logger.Logger
	now     func() time.Time
}

// Serve runs n workers over deliveries until the channel closes. Malformed
// messages are dropped; processing failures are recorded on the job and the
// message is acknowledged so it is not redelivered forever.
func (w *Worker) Serve(ctx context.Context, deliveries <-chan Delivery, n int) {
	if n < 1 {
		n = 1
	}
	log := logger.OrNop(w.Log)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for d := range deliveries {
				var job Job
				if err := json.Unmarshal(d.Body, &job); err != nil || job.ID == uuid.Nil {
					log.Error("Dropping malformed job message", "worker", id, "error", err)
					_ = d.Nack(false)
					continue
				}
				log.Info("Processing analysis job", "worker", id, "job_id", job.ID.String())
				if err := w.Process(ctx, job); err != nil {
					log.Warn("Analysis job failed", "worker", id, "job_id", job.ID.String(), "error", err)
				}
				if err := d.Ack(); err != nil {
					log.Error("Failed to ack job", "job_id", job.ID.String(), "error", err)
				}
			}
		}(i + 1)
	}
	wg.Wait()
}

// Process runs one job end to end. The returned error is also stored on the
// job row.
func (w *Worker) Process(ctx context.Context, job Job) error {
	log := logger.OrNop(w.Log).With("job_id", job.ID.String())
	if w.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.Timeout)
		defer cancel()
	}

	if err := w.Jobs.MarkAnalysisJobRunning(ctx, job.ID); err != nil {
		log.Warn("Failed to mark job running", "error", err)
	}
	w.publish(ctx, job.ID, db.JobStatusRunning, "", "analysis started", "")

	result, runErr := w.run(ctx, job)
	if runErr != nil {
		if err := w.Jobs.CompleteAnalysisJob(context.WithoutCancel(ctx), job.ID, nil, runErr.Error()); err != nil {
			log.Error("Failed to record job failure", "error", err)
		}
		w.publish(ctx, job.ID, db.JobStatusFailed, "", runErr.Error(), "")
		return runErr
	}

	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode analysis result: %w", err)
	}
	if err := w.Jobs.CompleteAnalysisJob(context.WithoutCancel(ctx), job.ID, body, ""); err != nil {
		return fmt.Errorf("failed to store analysis result: %w", err)
	}
	w.publish(ctx, job.ID, db.JobStatusCompleted, pipeline.StepDone, "analysis complete", result.VersionID)
	log.Info("Analysis job completed", "version_id", result.VersionID, "score", result.Score.OverallScore)
	return nil
}

func (w *Worker) run(ctx context.Context, job Job) (*types.AnalysisResult, error) {
	path, cleanup, err := storage.Download(ctx, w.Files, job.StorageKey, w.TempDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load upload: %w", err)
	}
	defer cleanup()

	return w.Runner.Run(ctx, pipeline.Options{
		Path:           path,
		JobDescription: job.Options.JobDescription,
		JobURL:         job.Options.JobURL,
		IncludeSTAR:    job.Options.IncludeSTAR,
		Save:           job.Options.Save,
		Owner:          job.Owner,
		Company:        job.Options.Company,
		Position:       job.Options.Position,
		VersionName:    job.Options.VersionName,
		RunID:          job.ID.String(),
		OnProgress: func(ev pipeline.ProgressEvent) {
			if ev.Step == pipeline.StepDone {
				return
			}
			w.publish(ctx, job.ID, db.JobStatusRunning, ev.Step, ev.Message, "")
		},
	})
}

func (w *Worker) publish(ctx context.Context, id uuid.UUID, status, step, msg, versionID string) {
	if w.Status == nil {
		return
	}
	now := time.Now
	if w.now != nil {
		now = w.now
	}
	err := w.Status.PublishStatus(ctx, StatusUpdate{
		JobID:     id,
		Status:    status,
		Step:      step,
		Message:   msg,
		VersionID: versionID,
		Timestamp: now().UTC(),
	})
	if err != nil {
		logger.OrNop(w.Log).Warn("Failed to publish job status", "job_id", id.String(), "error", err)
	}
}
