package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/resume-analyzer/internal/db"
	"github.com/jonathan/resume-analyzer/internal/email"
	"github.com/jonathan/resume-analyzer/internal/server/middleware"
	"github.com/jonathan/resume-analyzer/internal/types"
)

// handleFeedback mails the message to the operators and records it. A
// message that could not be mailed is still stored, and is in the backup
// file.
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req types.FeedbackRequest
	if err := s.decodeAndValidate(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	owner := middleware.Owner(r)
	meta := email.FeedbackMeta{
		UserID:    ownerString(owner),
		Email:     req.Email,
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
	}

	delivered := false
	if s.Notifier != nil {
		err := s.Notifier.SendFeedback(r.Context(), feedbackBody(req), meta)
		switch {
		case err == nil:
			delivered = true
		case errors.Is(err, email.ErrUndelivered):
			s.Log.Warn("feedback not delivered", "error", err)
		default:
			s.fail(w, r, err)
			return
		}
	}

	fb := &db.Feedback{
		UserID:    owner,
		Name:      req.Name,
		Email:     req.Email,
		Subject:   req.Subject,
		Message:   req.Message,
		Delivered: delivered,
	}
	if s.Feedback != nil {
		if err := s.Feedback.CreateFeedback(r.Context(), fb); err != nil {
			s.fail(w, r, err)
			return
		}
	}

	s.jsonResponse(w, http.StatusCreated, map[string]any{
		"id":        fb.ID,
		"delivered": delivered,
	})
}

func feedbackBody(req types.FeedbackRequest) string {
	var b strings.Builder
	if req.Name != "" {
		fmt.Fprintf(&b, "From: %s\n", req.Name)
	}
	if req.Subject != "" {
		fmt.Fprintf(&b, "Subject: %s\n", req.Subject)
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(req.Message)
	return b.String()
}

// handleCleanup removes cached version comparisons older than
// older_than_days (default 7).
func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	if s.Versions == nil {
		s.fail(w, r, &errUnavailable{Feature: "version storage"})
		return
	}
	var req struct {
		OlderThanDays int `json:"older_than_days" validate:"gte=0,lte=3650"`
	}
	if r.ContentLength != 0 {
		if err := s.decodeAndValidate(w, r, &req); err != nil {
			s.fail(w, r, err)
			return
		}
	}

	n, err := s.Versions.CleanupComparisons(r.Context(), time.Duration(req.OlderThanDays)*24*time.Hour)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]int64{"deleted": n})
}

// handleEmailBackup reports the backup file summary; ?entries=true adds
// the stored messages.
func (s *Server) handleEmailBackup(w http.ResponseWriter, r *http.Request) {
	if s.Notifier == nil || s.Notifier.Backup() == nil {
		s.fail(w, r, &errUnavailable{Feature: "email backup"})
		return
	}
	backup := s.Notifier.Backup()
	resp := map[string]any{"summary": backup.Summary()}
	if boolParam(r.URL.Query().Get("entries")) {
		entries := backup.Entries()
		if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 && limit < len(entries) {
			entries = entries[len(entries)-limit:]
		}
		resp["entries"] = entries
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleEmailBackupSummary mails the feedback backlog to the feedback inbox.
func (s *Server) handleEmailBackupSummary(w http.ResponseWriter, r *http.Request) {
	if s.Notifier == nil {
		s.fail(w, r, &errUnavailable{Feature: "email"})
		return
	}
	sent, err := s.Notifier.SendBackupSummary(r.Context())
	if err != nil && !errors.Is(err, email.ErrUndelivered) {
		s.fail(w, r, err)
		return
	}
	resp := map[string]any{"sent": sent && err == nil}
	if err != nil {
		resp["error"] = err.Error()
	}
	s.jsonResponse(w, http.StatusOK, resp)
}
