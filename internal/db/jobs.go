package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// CreateAnalysisJob records a queued analysis and fills in its ID
func (db *DB) CreateAnalysisJob(ctx context.Context, job *AnalysisJob) error {
	if job.Status == "" {
		job.Status = JobStatusQueued
	}
	options := []byte(job.Options)
	if len(options) == 0 {
		options = []byte("{}")
	}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO analysis_jobs (owner_id, filename, storage_key, status, options)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		job.OwnerID, job.Filename, job.StorageKey, job.Status, options,
	).Scan(&job.ID, &job.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create analysis job: %w", err)
	}
	return nil
}

// GetAnalysisJob retrieves a job by ID
func (db *DB) GetAnalysisJob(ctx context.Context, id uuid.UUID) (*AnalysisJob, error) {
	var job AnalysisJob
	var options, result []byte
	err := db.pool.QueryRow(ctx,
		`SELECT id, owner_id, filename, storage_key, status, options, result, error, created_at, completed_at
		 FROM analysis_jobs WHERE id = $1`, id,
	).Scan(&job.ID, &job.OwnerID, &job.Filename, &job.StorageKey, &job.Status,
		&options, &result, &job.Error, &job.CreatedAt, &job.CompletedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get analysis job: %w", err)
	}
	job.Options = options
	if len(result) > 0 {
		job.Result = result
	}
	return &job, nil
}

// MarkAnalysisJobRunning moves a queued job to running
func (db *DB) MarkAnalysisJobRunning(ctx context.Context, id uuid.UUID) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE analysis_jobs SET status = $2 WHERE id = $1`, id, JobStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to mark job running: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteAnalysisJob stores the outcome of a job. A non-empty errMsg marks
// the job failed.
func (db *DB) CompleteAnalysisJob(ctx context.Context, id uuid.UUID, result []byte, errMsg string) error {
	status := JobStatusCompleted
	var errPtr *string
	if errMsg != "" {
		status = JobStatusFailed
		errPtr = &errMsg
	}
	var resultArg any
	if len(result) > 0 {
		resultArg = result
	}
	tag, err := db.pool.Exec(ctx,
		`UPDATE analysis_jobs SET status = $2, result = $3, error = $4, completed_at = NOW() WHERE id = $1`,
		id, status, resultArg, errPtr,
	)
	if err != nil {
		return fmt.Errorf("failed to complete analysis job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
