package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-analyzer/internal/analysis"
	"github.com/jonathan/resume-analyzer/internal/config"
	"github.com/jonathan/resume-analyzer/internal/db"
	"github.com/jonathan/resume-analyzer/internal/email"
	"github.com/jonathan/resume-analyzer/internal/logger"
	"github.com/jonathan/resume-analyzer/internal/pipeline"
	"github.com/jonathan/resume-analyzer/internal/queue"
	"github.com/jonathan/resume-analyzer/internal/scoring"
	"github.com/jonathan/resume-analyzer/internal/server/middleware"
	"github.com/jonathan/resume-analyzer/internal/server/ratelimit"
	"github.com/jonathan/resume-analyzer/internal/storage"
	"github.com/jonathan/resume-analyzer/internal/types"
	"github.com/jonathan/resume-analyzer/internal/versions"
)

// Analyzer runs the full analysis pipeline on a stored document.
type Analyzer interface {
	Run(ctx context.Context, opts pipeline.Options) (*types.AnalysisResult, error)
}

// Verifier sends and confirms email verification codes.
type Verifier interface {
	Send(ctx context.Context, userID uuid.UUID) error
	Confirm(ctx context.Context, code string) (uuid.UUID, error)
}

// FeedbackStore records feedback messages.
type FeedbackStore interface {
	CreateFeedback(ctx context.Context, f *db.Feedback) error
}

// JobStore records asynchronous analysis jobs.
type JobStore interface {
	CreateAnalysisJob(ctx context.Context, job *db.AnalysisJob) error
	GetAnalysisJob(ctx context.Context, id uuid.UUID) (*db.AnalysisJob, error)
	CompleteAnalysisJob(ctx context.Context, id uuid.UUID, result []byte, errMsg string) error
}

// JobPublisher hands analysis jobs to the worker pool.
type JobPublisher interface {
	PublishJob(ctx context.Context, job queue.Job) error
}

// Deps holds everything the HTTP layer talks to. Verifier, Notifier, Files,
// Jobs and Queue are optional; the endpoints that need them answer 503
// when they are missing.
type Deps struct {
	Config    *config.Config
	Users     UserStore
	Feedback  FeedbackStore
	Jobs      JobStore
	Versions  *versions.Service
	Analyzer  Analyzer
	Client    *analysis.Client
	Engine    *scoring.Engine
	Verifier  Verifier
	Notifier  *email.Notifier
	Files     storage.Store
	Queue     JobPublisher
	JWT       *JWTService
	Passwords *config.PasswordConfig
	Limiter   *ratelimit.Limiter
	Log       *logger.Logger
}

// Server represents the HTTP server
type Server struct {
	Deps
	users   *UserService
	handler http.Handler
}

// New builds the server and its routes.
func New(d Deps) *Server {
	if d.Config == nil {
		cfg := config.Default()
		d.Config = &cfg
	}
	if d.Limiter == nil {
		d.Limiter = ratelimit.NewLimiter(&ratelimit.Config{Enabled: false})
	}
	d.Log = logger.OrNop(d.Log)

	s := &Server{Deps: d, users: NewUserService(d.Users, d.Passwords)}

	tokens := d.JWT.AsTokenValidator()
	auth := middleware.AuthMiddleware(tokens)
	open := middleware.OptionalAuth(tokens)
	admin := middleware.AdminToken(d.Config.AdminToken)

	mux := http.NewServeMux()
	// authenticated
	private := func(pattern string, h http.HandlerFunc) { mux.Handle(pattern, auth(h)) }
	// guests allowed; a token, when sent, scopes the request to its user
	public := func(pattern string, h http.HandlerFunc) { mux.Handle(pattern, open(h)) }
	maintenance := func(pattern string, h http.HandlerFunc) { mux.Handle(pattern, admin(h)) }

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/verify/confirm", s.handleConfirmEmail)
	private("GET /auth/me", s.handleMe)
	private("PUT /auth/password", s.handleUpdatePassword)
	private("POST /auth/verify/send", s.handleSendVerification)

	public("POST /resumes/analyze", s.handleAnalyze)
	public("POST /resumes/analyze/stream", s.handleAnalyzeStream)
	public("POST /resumes/score", s.handleScore)
	public("POST /resumes/star", s.handleSTAR)
	public("POST /resumes/suggestions", s.handleSuggestions)
	public("GET /jobs/{id}", s.handleGetJob)

	public("GET /versions", s.handleListVersions)
	public("POST /versions", s.handleCreateVersion)
	public("GET /versions/active", s.handleActiveVersion)
	public("GET /versions/compare", s.handleCompareVersions)
	public("GET /versions/report", s.handleVersionReport)
	public("GET /versions/{id}", s.handleGetVersion)
	public("PUT /versions/{id}", s.handleUpdateVersion)
	public("DELETE /versions/{id}", s.handleDeleteVersion)
	public("POST /versions/{id}/activate", s.handleActivateVersion)
	public("POST /versions/{id}/performance", s.handleRecordPerformance)
	public("GET /versions/{id}/performance", s.handleGetPerformance)

	public("POST /feedback", s.handleFeedback)

	maintenance("POST /admin/cleanup", s.handleCleanup)
	maintenance("GET /admin/email-backup", s.handleEmailBackup)
	maintenance("POST /admin/email-backup/summary", s.handleEmailBackupSummary)

	s.handler = s.withRateLimit(s.withLogging(s.withCORS(mux)))
	return s
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler { return s.handler }

// Start listens on the configured port until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	port := s.Config.Server.Port
	if port == 0 {
		port = 8080
	}
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      300 * time.Second, // analyses can take minutes
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Log.Info("server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.Log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.Limiter.Stop()
	s.Log.Info("server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for request logs.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streaming working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		kv := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote", clientIP(r),
		}
		switch {
		case rec.status >= 500:
			s.Log.Error("request failed", kv...)
		case r.URL.Path == "/health":
			s.Log.Debug("request", kv...)
		default:
			s.Log.Info("request", kv...)
		}
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.Limiter.Allow(clientIP(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP uses RemoteAddr only; forwarded headers are not trusted.
func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	body := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}
	if info.RetryAfter > 0 {
		secs := int(info.RetryAfter.Seconds()) + 1
		body["retry_after"] = secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	s.Log.Warn("rate limit exceeded", "path", r.URL.Path, "remote", clientIP(r), "limit", info.Limit)
	s.jsonResponse(w, http.StatusTooManyRequests, body)
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.Log.Warn("failed to encode response", "error", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// fail maps err to a status. Internal errors are logged and hidden from the
// client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= 500 && status != http.StatusServiceUnavailable {
		s.Log.Error("request error", "path", r.URL.Path, "error", err)
		s.errorResponse(w, status, "internal server error")
		return
	}
	s.errorResponse(w, status, err.Error())
}

// decodeJSON reads a JSON body of at most 1 MiB.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	return nil
}

// ownerString is "guest" for anonymous requests.
func ownerString(owner *uuid.UUID) string {
	if owner == nil {
		return "guest"
	}
	return owner.String()
}

func boolParam(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}
