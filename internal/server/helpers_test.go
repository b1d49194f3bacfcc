package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-analyzer/internal/analysis"
	"github.com/jonathan/resume-analyzer/internal/config"
	"github.com/jonathan/resume-analyzer/internal/db"
	"github.com/jonathan/resume-analyzer/internal/email"
	"github.com/jonathan/resume-analyzer/internal/llm/llmtest"
	"github.com/jonathan/resume-analyzer/internal/pipeline"
	"github.com/jonathan/resume-analyzer/internal/queue"
	"github.com/jonathan/resume-analyzer/internal/scoring"
	"github.com/jonathan/resume-analyzer/internal/storage"
	"github.com/jonathan/resume-analyzer/internal/types"
	"github.com/jonathan/resume-analyzer/internal/verification"
	"github.com/jonathan/resume-analyzer/internal/versions"
	"github.com/jonathan/resume-analyzer/internal/versions/versionstest"
)

// memUsers is an in-memory UserStore.
type memUsers struct {
	mu        sync.Mutex
	users     map[uuid.UUID]*db.User
	failOnPwd error
}

func newMemUsers() *memUsers { return &memUsers{users: map[uuid.UUID]*db.User{}} }

func (m *memUsers) CheckEmailExists(_ context.Context, email string) (bool, error) {
	u, _ := m.GetUserByEmail(context.Background(), email)
	return u != nil, nil
}

func (m *memUsers) CreateUser(_ context.Context, name, email, phone string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	now := time.Now()
	m.users[id] = &db.User{ID: id, Name: name, Email: email, Phone: phone, CreatedAt: now, UpdatedAt: now}
	return id, nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOnPwd != nil {
		return m.failOnPwd
	}
	u, ok := m.users[id]
	if !ok {
		return db.ErrNotFound
	}
	u.PasswordHash, u.PasswordSet = hash, true
	return nil
}

func (m *memUsers) GetUser(_ context.Context, id uuid.UUID) (*db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, nil
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (*db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memUsers) DeleteUser(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	return nil
}

type memFeedback struct {
	mu    sync.Mutex
	saved []db.Feedback
}

func (m *memFeedback) CreateFeedback(_ context.Context, f *db.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f.ID = uuid.New()
	f.CreatedAt = time.Now()
	m.saved = append(m.saved, *f)
	return nil
}

type memJobs struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*db.AnalysisJob
}

func newMemJobs() *memJobs { return &memJobs{jobs: map[uuid.UUID]*db.AnalysisJob{}} }

func (m *memJobs) CreateAnalysisJob(_ context.Context, job *db.AnalysisJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job.ID = uuid.New()
	job.CreatedAt = time.Now()
	c := *job
	m.jobs[job.ID] = &c
	return nil
}

func (m *memJobs) GetAnalysisJob(_ context.Context, id uuid.UUID) (*db.AnalysisJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		c := *j
		return &c, nil
	}
	return nil, nil
}

func (m *memJobs) CompleteAnalysisJob(_ context.Context, id uuid.UUID, result []byte, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return db.ErrNotFound
	}
	j.Result = result
	j.Status = db.JobStatusCompleted
	if errMsg != "" {
		j.Status = db.JobStatusFailed
		j.Error = &errMsg
	}
	return nil
}

type fakePublisher struct {
	mu   sync.Mutex
	jobs []queue.Job
	err  error
}

func (f *fakePublisher) PublishJob(_ context.Context, job queue.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

// fakeAnalyzer records the uploaded document and returns a fixed result.
type fakeAnalyzer struct {
	mu   sync.Mutex
	opts []pipeline.Options
	text string
	err  error
}

func (f *fakeAnalyzer) Run(_ context.Context, opts pipeline.Options) (*types.AnalysisResult, error) {
	f.mu.Lock()
	f.opts = append(f.opts, opts)
	f.text = string(opts.Data)
	f.mu.Unlock()

	if opts.OnProgress != nil {
		opts.OnProgress(pipeline.ProgressEvent{Step: pipeline.StepExtractText, RunID: opts.RunID, Message: "extracting"})
		opts.OnProgress(pipeline.ProgressEvent{Step: pipeline.StepDone, RunID: opts.RunID, Message: "done"})
	}
	if f.err != nil {
		return nil, f.err
	}
	return &types.AnalysisResult{
		Record:         types.NewEmptyRecord(),
		Score:          types.ScoreReport{OverallScore: 81},
		Outcome:        "success",
		Suggestions:    []types.OptimizationSuggestion{},
		ExtractionMode: "text",
	}, nil
}

type fakeVerifier struct {
	mu    sync.Mutex
	sent  []uuid.UUID
	codes map[string]uuid.UUID
	err   error
}

func (f *fakeVerifier) Send(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, userID)
	return f.err
}

func (f *fakeVerifier) Confirm(_ context.Context, code string) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.codes[code]
	if !ok {
		return uuid.Nil, verification.ErrInvalidCode
	}
	return id, nil
}

type stubSender struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (s *stubSender) Name() string { return "stub" }

func (s *stubSender) Send(_ context.Context, _ string, msg email.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

const adminToken = "admin-secret"

type testEnv struct {
	srv      *Server
	users    *memUsers
	store    *versionstest.Store
	analyzer *fakeAnalyzer
	llm      *llmtest.Client
	jobs     *memJobs
	queue    *fakePublisher
	files    *storage.LocalStore
	verifier *fakeVerifier
	sender   *stubSender
	feedback *memFeedback
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.Server.MaxUploadMB = 1
	cfg.AdminToken = adminToken

	files, err := storage.NewLocalStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	env := &testEnv{
		users:    newMemUsers(),
		store:    versionstest.New(),
		analyzer: &fakeAnalyzer{},
		llm:      llmtest.New(),
		jobs:     newMemJobs(),
		queue:    &fakePublisher{},
		files:    files,
		verifier: &fakeVerifier{codes: map[string]uuid.UUID{}},
		sender:   &stubSender{},
		feedback: &memFeedback{},
	}
	backup := email.NewBackup(filepath.Join(t.TempDir(), "email_backup.json"))
	notifier := email.NewNotifier("noreply@example.com", "team@example.com", backup, []email.Sender{env.sender}, nil)

	env.srv = New(Deps{
		Config:    &cfg,
		Users:     env.users,
		Feedback:  env.feedback,
		Jobs:      env.jobs,
		Versions:  versions.NewService(env.store),
		Analyzer:  env.analyzer,
		Client:    analysis.NewClient(env.llm, nil, nil),
		Engine:    scoring.NewEngine(nil),
		Verifier:  env.verifier,
		Notifier:  notifier,
		Files:     files,
		Queue:     env.queue,
		JWT:       NewJWTService(&config.JWTConfig{Secret: "test-secret-key-for-jwt-signing-32b", ExpirationHours: 1}),
		Passwords: &config.PasswordConfig{BcryptCost: 4},
	})
	return env
}

// do sends a request through the full middleware chain.
func (e *testEnv) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, _ := json.Marshal(b)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

// upload posts a multipart form with a "file" part.
func (e *testEnv) upload(path, filename string, content []byte, fields map[string]string, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if filename != "" {
		fw, _ := mw.CreateFormFile("file", filename)
		_, _ = fw.Write(content)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

// register creates an account and returns its token and id.
func (e *testEnv) register(t *testing.T, name, email string) (string, uuid.UUID) {
	t.Helper()
	rec := e.do(http.MethodPost, "/auth/register", map[string]string{
		"name": name, "email": email, "password": "correct-horse-battery",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp types.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token, resp.User.ID
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func sampleRecord() *types.ResumeRecord {
	r := types.NewEmptyRecord()
	r.PersonalInfo.FullName = "Jane Doe"
	r.PersonalInfo.Email = "jane@example.com"
	r.WorkExperience = []types.WorkExperience{{
		JobTitle:         "Backend Engineer",
		Company:          "Acme",
		Responsibilities: []string{"Built Go services", "Improved latency by 40%"},
	}}
	r.TechnicalSkills.SetCategory(types.SkillProgrammingLanguages, []string{"Go", "Python"})
	return r
}
