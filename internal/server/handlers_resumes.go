package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/resume-analyzer/internal/db"
	"github.com/jonathan/resume-analyzer/internal/extraction"
	"github.com/jonathan/resume-analyzer/internal/pipeline"
	"github.com/jonathan/resume-analyzer/internal/queue"
	"github.com/jonathan/resume-analyzer/internal/scoring"
	"github.com/jonathan/resume-analyzer/internal/server/middleware"
	"github.com/jonathan/resume-analyzer/internal/storage"
	"github.com/jonathan/resume-analyzer/internal/types"
)

const defaultMaxUploadMB = 10

// upload is a parsed multipart analysis request.
type upload struct {
	Filename string
	Data     []byte
	Options  queue.JobOptions
}

func (s *Server) maxUploadBytes() int64 {
	mb := s.Config.Server.MaxUploadMB
	if mb <= 0 {
		mb = defaultMaxUploadMB
	}
	return int64(mb) << 20
}

// parseUpload reads the "file" part and the analysis form fields.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	limit := s.maxUploadBytes()
	// form fields ride along with the file
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, &ErrValidation{Field: "file", Message: "multipart form with a file is required"}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, &ErrValidation{Field: "file", Message: "required"}
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !extraction.IsSupported(name) {
		return nil, &extraction.UnsupportedFormatError{Extension: strings.ToLower(filepath.Ext(name))}
	}

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, &http.MaxBytesError{Limit: limit}
	}
	if len(data) == 0 {
		return nil, &ErrValidation{Field: "file", Message: "file is empty"}
	}

	form := func(key string) string { return strings.TrimSpace(r.FormValue(key)) }
	return &upload{
		Filename: name,
		Data:     data,
		Options: queue.JobOptions{
			JobDescription: form("job_description"),
			JobURL:         form("job_url"),
			IncludeSTAR:    boolParam(form("include_star")),
			Save:           boolParam(form("save")),
			Company:        form("company"),
			Position:       form("position"),
			VersionName:    form("version_name"),
		},
	}, nil
}

func (u *upload) pipelineOptions(owner *uuid.UUID) pipeline.Options {
	return pipeline.Options{
		Filename:       u.Filename,
		Data:           u.Data,
		JobDescription: u.Options.JobDescription,
		JobURL:         u.Options.JobURL,
		IncludeSTAR:    u.Options.IncludeSTAR,
		Save:           u.Options.Save,
		Owner:          owner,
		Company:        u.Options.Company,
		Position:       u.Options.Position,
		VersionName:    u.Options.VersionName,
		RunID:          uuid.NewString(),
	}
}

// archiveOriginal keeps a copy of the upload in object storage when one
// is configured. Failures are logged only.
func (s *Server) archiveOriginal(ctx context.Context, u *upload) {
	if s.Files == nil {
		return
	}
	key := storage.NewKey(u.Filename, time.Now())
	if err := s.Files.Put(ctx, key, u.Data, storage.ContentType(u.Filename)); err != nil {
		s.Log.Warn("failed to archive upload", "filename", u.Filename, "error", err)
		return
	}
	s.Log.Debug("upload archived", "storage_key", key)
}

// handleAnalyze runs the pipeline on an uploaded resume. With ?async=true
// the upload is queued for the worker pool instead.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if s.Analyzer == nil {
		s.fail(w, r, &errUnavailable{Feature: "analysis"})
		return
	}
	u, err := s.parseUpload(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	owner := middleware.Owner(r)

	if boolParam(r.URL.Query().Get("async")) {
		s.enqueueAnalysis(w, r, u, owner)
		return
	}

	s.archiveOriginal(r.Context(), u)
	result, err := s.Analyzer.Run(r.Context(), u.pipelineOptions(owner))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) enqueueAnalysis(w http.ResponseWriter, r *http.Request, u *upload, owner *uuid.UUID) {
	if s.Files == nil || s.Jobs == nil || s.Queue == nil {
		s.fail(w, r, &errUnavailable{Feature: "asynchronous analysis"})
		return
	}
	ctx := r.Context()

	key := storage.NewKey(u.Filename, time.Now())
	if err := s.Files.Put(ctx, key, u.Data, storage.ContentType(u.Filename)); err != nil {
		s.fail(w, r, err)
		return
	}

	options, err := json.Marshal(u.Options)
	if err != nil {
		s.fail(w, r, fmt.Errorf("failed to marshal job options: %w", err))
		return
	}
	job := &db.AnalysisJob{
		OwnerID:    owner,
		Filename:   u.Filename,
		StorageKey: key,
		Status:     db.JobStatusQueued,
		Options:    options,
	}
	if err := s.Jobs.CreateAnalysisJob(ctx, job); err != nil {
		s.fail(w, r, err)
		return
	}

	msg := queue.Job{
		ID:         job.ID,
		Owner:      owner,
		Filename:   u.Filename,
		StorageKey: key,
		Options:    u.Options,
	}
	if err := s.Queue.PublishJob(ctx, msg); err != nil {
		s.Log.Error("failed to publish analysis job", "job_id", job.ID.String(), "error", err)
		if cerr := s.Jobs.CompleteAnalysisJob(context.WithoutCancel(ctx), job.ID, nil, "failed to enqueue job"); cerr != nil {
			s.Log.Warn("failed to mark job failed", "job_id", job.ID.String(), "error", cerr)
		}
		s.fail(w, r, err)
		return
	}

	s.Log.Info("analysis queued", "job_id", job.ID.String(), "user_id", ownerString(owner))
	w.Header().Set("Location", "/jobs/"+job.ID.String())
	s.jsonResponse(w, http.StatusAccepted, map[string]any{
		"job_id": job.ID,
		"status": job.Status,
	})
}

// handleAnalyzeStream runs the pipeline and streams progress as SSE
// "progress" events, ending with "result" or "error".
func (s *Server) handleAnalyzeStream(w http.ResponseWriter, r *http.Request) {
	if s.Analyzer == nil {
		s.fail(w, r, &errUnavailable{Feature: "analysis"})
		return
	}
	u, err := s.parseUpload(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.archiveOriginal(r.Context(), u)

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	opts := u.pipelineOptions(middleware.Owner(r))
	opts.OnProgress = func(event pipeline.ProgressEvent) {
		if err := sse.WriteEvent("progress", event); err != nil {
			s.Log.Debug("failed to write progress event", "run_id", event.RunID, "error", err)
		}
	}

	result, err := s.Analyzer.Run(r.Context(), opts)
	if err != nil {
		s.Log.Warn("streamed analysis failed", "run_id", opts.RunID, "error", err)
		sse.WriteError(err.Error())
		return
	}
	if err := sse.WriteEvent("result", result); err != nil {
		s.Log.Debug("failed to write result event", "run_id", opts.RunID, "error", err)
	}
}

// scoreRequest scores an already extracted record.
type scoreRequest struct {
	Record         *types.ResumeRecord `json:"record" validate:"required"`
	JobDescription string              `json:"job_description" validate:"max=100000"`
	JobKeywords    []string            `json:"job_keywords" validate:"max=500"`
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := s.decodeAndValidate(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	req.Record.Normalize()

	var jd *types.JobDescription
	if req.JobDescription != "" || len(req.JobKeywords) > 0 {
		jd = &types.JobDescription{Text: req.JobDescription, Keywords: req.JobKeywords}
	}
	report := s.Engine.Score(req.Record, jd)
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"score":       report,
		"suggestions": s.Engine.Optimize(req.Record, report),
	})
}

// starRequest analyzes a whole record, or rewrites one experience entry.
type starRequest struct {
	Record         *types.ResumeRecord   `json:"record"`
	Experience     *types.WorkExperience `json:"experience"`
	JobDescription string                `json:"job_description" validate:"max=100000"`
}

func (s *Server) handleSTAR(w http.ResponseWriter, r *http.Request) {
	if s.Client == nil {
		s.fail(w, r, &errUnavailable{Feature: "analysis"})
		return
	}
	var req starRequest
	if err := s.decodeAndValidate(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	switch {
	case req.Experience != nil:
		exp := *req.Experience
		rewrite := s.Client.RewriteSTAR(r.Context(), exp, req.JobDescription)
		resp := map[string]any{"rewrite": rewrite}
		current := strings.Join(append(append([]string{}, exp.Responsibilities...), exp.Achievements...), "\n")
		if suggestion, ok := scoring.FromSTAR("work_experience", current, rewrite); ok {
			resp["suggestion"] = suggestion
		}
		s.jsonResponse(w, http.StatusOK, resp)
	case req.Record != nil:
		req.Record.Normalize()
		s.jsonResponse(w, http.StatusOK, map[string]any{
			"analyses": s.Client.AnalyzeSTAR(r.Context(), req.Record),
		})
	default:
		s.fail(w, r, &ErrValidation{Field: "record", Message: "record or experience is required"})
	}
}

type suggestionsRequest struct {
	Record         *types.ResumeRecord `json:"record" validate:"required"`
	JobDescription string              `json:"job_description" validate:"max=100000"`
}

// handleSuggestions returns model suggestions, missing keywords and the
// rule-based optimizations for a record.
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	if s.Client == nil {
		s.fail(w, r, &errUnavailable{Feature: "analysis"})
		return
	}
	var req suggestionsRequest
	if err := s.decodeAndValidate(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	req.Record.Normalize()

	var (
		suggestions []string
		missing     []string
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		suggestions = s.Client.Suggestions(ctx, req.Record, req.JobDescription)
		return nil
	})
	if req.JobDescription != "" {
		g.Go(func() error {
			missing = s.Client.MissingKeywords(ctx, req.Record, req.JobDescription)
			return nil
		})
	}
	_ = g.Wait()

	var jd *types.JobDescription
	if req.JobDescription != "" {
		jd = &types.JobDescription{Text: req.JobDescription}
	}
	report := s.Engine.Score(req.Record, jd)

	if missing == nil {
		missing = []string{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"suggestions":      suggestions,
		"missing_keywords": missing,
		"optimizations":    s.Engine.Optimize(req.Record, report),
	})
}

// handleGetJob reports an asynchronous analysis. Jobs of other users are
// reported as missing.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	if s.Jobs == nil {
		s.fail(w, r, &errUnavailable{Feature: "asynchronous analysis"})
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid job id")
		return
	}
	job, err := s.Jobs.GetAnalysisJob(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	owner := middleware.Owner(r)
	if job == nil || (job.OwnerID != nil && (owner == nil || *owner != *job.OwnerID)) {
		s.errorResponse(w, http.StatusNotFound, "job not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}
