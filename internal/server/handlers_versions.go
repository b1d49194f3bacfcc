package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/resume-analyzer/internal/db"
	"github.com/jonathan/resume-analyzer/internal/server/middleware"
	"github.com/jonathan/resume-analyzer/internal/types"
	"github.com/jonathan/resume-analyzer/internal/versions"
)

const maxListLimit = 200

// CreateVersionRequest is the body of POST /versions.
type CreateVersionRequest struct {
	Name           string              `json:"name" validate:"max=200"`
	Content        *types.ResumeRecord `json:"content" validate:"required"`
	Score          *types.ScoreReport  `json:"score"`
	TargetCompany  string              `json:"target_company" validate:"max=200"`
	TargetPosition string              `json:"target_position" validate:"max=200"`
	JobDescription string              `json:"job_description" validate:"max=100000"`
	ParentID       *string             `json:"parent_id"`
	Notes          string              `json:"notes" validate:"max=5000"`
}

// UpdateVersionRequest is the body of PUT /versions/{id}. Absent fields
// are left unchanged.
type UpdateVersionRequest struct {
	Name           *string             `json:"name" validate:"omitempty,max=200"`
	TargetCompany  *string             `json:"target_company" validate:"omitempty,max=200"`
	TargetPosition *string             `json:"target_position" validate:"omitempty,max=200"`
	Notes          *string             `json:"notes" validate:"omitempty,max=5000"`
	Content        *types.ResumeRecord `json:"content"`
	Score          *types.ScoreReport  `json:"score"`
}

// PerformanceRequest records one outcome for a version.
type PerformanceRequest struct {
	Event    string `json:"event" validate:"required,oneof=application interview feedback"`
	ATSScore *int   `json:"ats_score" validate:"omitempty,gte=0,lte=100"`
	Feedback string `json:"feedback" validate:"max=5000"`
}

// visibleVersion loads id and checks that owner may see it.
func (s *Server) visibleVersion(ctx context.Context, id string, owner *uuid.UUID) (*db.Version, error) {
	v, err := s.Versions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, versions.ErrVersionNotFound
	}
	if !versions.Visible(v, owner) {
		return nil, versions.ErrForbidden
	}
	return v, nil
}

func (s *Server) versionsAvailable(w http.ResponseWriter, r *http.Request) bool {
	if s.Versions == nil {
		s.fail(w, r, &errUnavailable{Feature: "version storage"})
		return false
	}
	return true
}

// handleListVersions supports include_archived, company and limit.
func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	if !s.versionsAvailable(w, r) {
		return
	}
	q := r.URL.Query()
	opts := versions.ListOptions{
		IncludeArchived: boolParam(q.Get("include_archived")),
		Company:         strings.TrimSpace(q.Get("company")),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			s.errorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		opts.Limit = min(limit, maxListLimit)
	}

	list, err := s.Versions.List(r.Context(), middleware.Owner(r), opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if list == nil {
		list = []db.Version{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"versions": list, "count": len(list)})
}

func (s *Server) handleCreateVersion(w http.ResponseWriter, r *http.Request) {
	if !s.versionsAvailable(w, r) {
		return
	}
	var req CreateVersionRequest
	if err := s.decodeAndValidate(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	owner := middleware.Owner(r)
	if req.ParentID != nil && *req.ParentID != "" {
		if _, err := s.visibleVersion(r.Context(), *req.ParentID, owner); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	req.Content.Normalize()

	id, err := s.Versions.Create(r.Context(), versions.CreateInput{
		Owner:          owner,
		Name:           strings.TrimSpace(req.Name),
		Content:        req.Content,
		Score:          req.Score,
		TargetCompany:  strings.TrimSpace(req.TargetCompany),
		TargetPosition: strings.TrimSpace(req.TargetPosition),
		JobDescription: req.JobDescription,
		ParentID:       req.ParentID,
		Notes:          req.Notes,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	if !s.versionsAvailable(w, r) {
		return
	}
	v, err := s.visibleVersion(r.Context(), r.PathValue("id"), middleware.Owner(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, v)
}

func (s *Server) handleUpdateVersion(w http.ResponseWriter, r *http.Request) {
	if !s.versionsAvailable(w, r) {
		return
	}
	id := r.PathValue("id")
	if _, err := s.visibleVersion(r.Context(), id, middleware.Owner(r)); err != nil {
		s.fail(w, r, err)
		return
	}

	var req UpdateVersionRequest
	if err := s.decodeAndValidate(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Content != nil {
		req.Content.Normalize()
	}

	err := s.Versions.Update(r.Context(), id, versions.UpdateInput{
		Name:           req.Name,
		TargetCompany:  req.TargetCompany,
		TargetPosition: req.TargetPosition,
		Notes:          req.Notes,
		Content:        req.Content,
		Score:          req.Score,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"id": id, "message": "Version updated"})
}

// handleDeleteVersion archives a version; ?purge=true deletes it for good.
func (s *Server) handleDeleteVersion(w http.ResponseWriter, r *http.Request) {
	if !s.versionsAvailable(w, r) {
		return
	}
	id := r.PathValue("id")
	if _, err := s.visibleVersion(r.Context(), id, middleware.Owner(r)); err != nil {
		s.fail(w, r, err)
		return
	}

	purge := boolParam(r.URL.Query().Get("purge"))
	var err error
	if purge {
		err = s.Versions.Delete(r.Context(), id)
	} else {
		err = s.Versions.Archive(r.Context(), id)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"id": id, "deleted": purge, "archived": !purge})
}

func (s *Server) handleActivateVersion(w http.ResponseWriter, r *http.Request) {
	if !s.versionsAvailable(w, r) {
		return
	}
	id := r.PathValue("id")
	if err := s.Versions.SetActive(r.Context(), middleware.Owner(r), id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"id": id, "is_active": true})
}

func (s *Server) handleActiveVersion(w http.ResponseWriter, r *http.Request) {
	if !s.versionsAvailable(w, r) {
		return
	}
	v, err := s.Versions.Active(r.Context(), middleware.Owner(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if v == nil {
		s.errorResponse(w, http.StatusNotFound, "no active version")
		return
	}
	s.jsonResponse(w, http.StatusOK, v)
}

// handleCompareVersions diffs ?a= against ?b=.
func (s *Server) handleCompareVersions(w http.ResponseWriter, r *http.Request) {
	if !s.versionsAvailable(w, r) {
		return
	}
	a, b := r.URL.Query().Get("a"), r.URL.Query().Get("b")
	if a == "" || b == "" {
		s.errorResponse(w, http.StatusBadRequest, "query parameters a and b are required")
		return
	}
	owner := middleware.Owner(r)
	for _, id := range []string{a, b} {
		if _, err := s.visibleVersion(r.Context(), id, owner); err != nil {
			s.fail(w, r, err)
			return
		}
	}

	c, err := s.Versions.Compare(r.Context(), a, b)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	cache := "MISS"
	if c.Cached {
		cache = "HIT"
	}
	w.Header().Set("X-Cache", cache)
	s.jsonResponse(w, http.StatusOK, c)
}

func (s *Server) handleRecordPerformance(w http.ResponseWriter, r *http.Request) {
	if !s.versionsAvailable(w, r) {
		return
	}
	id := r.PathValue("id")
	if _, err := s.visibleVersion(r.Context(), id, middleware.Owner(r)); err != nil {
		s.fail(w, r, err)
		return
	}

	var req PerformanceRequest
	if err := s.decodeAndValidate(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	var err error
	switch req.Event {
	case "application":
		err = s.Versions.RecordApplication(r.Context(), id, req.ATSScore)
	case "interview":
		err = s.Versions.RecordInterview(r.Context(), id)
	case "feedback":
		err = s.Versions.AddFeedback(r.Context(), id, strings.TrimSpace(req.Feedback))
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	metrics, err := s.Versions.Performance(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, metrics)
}

func (s *Server) handleGetPerformance(w http.ResponseWriter, r *http.Request) {
	if !s.versionsAvailable(w, r) {
		return
	}
	id := r.PathValue("id")
	if _, err := s.visibleVersion(r.Context(), id, middleware.Owner(r)); err != nil {
		s.fail(w, r, err)
		return
	}
	metrics, err := s.Versions.Performance(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, metrics)
}

func (s *Server) handleVersionReport(w http.ResponseWriter, r *http.Request) {
	if !s.versionsAvailable(w, r) {
		return
	}
	report, err := s.Versions.Report(r.Context(), middleware.Owner(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, report)
}
