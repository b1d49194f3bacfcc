package server

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-analyzer/internal/config"
	"github.com/jonathan/resume-analyzer/internal/server/ratelimit"
	"github.com/jonathan/resume-analyzer/internal/types"
)

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodOptions, "/versions", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestRegisterLoginFlow(t *testing.T) {
	env := newTestEnv(t)
	token, userID := env.register(t, "Jane", "jane@example.com")
	require.NotEmpty(t, token)
	assert.Equal(t, []uuid.UUID{userID}, env.verifier.sent, "verification sent on register")

	rec := env.do(http.MethodPost, "/auth/register", map[string]string{
		"name": "Jane", "email": "JANE@example.com", "password": "another-password",
	}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodPost, "/auth/login", map[string]string{
		"email": "jane@example.com", "password": "correct-horse-battery",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[types.LoginResponse](t, rec)
	assert.Equal(t, userID, login.User.ID)

	rec = env.do(http.MethodPost, "/auth/login", map[string]string{
		"email": "jane@example.com", "password": "wrong-password",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodGet, "/auth/me", nil, login.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[types.User](t, rec)
	assert.Equal(t, "jane@example.com", me.Email)

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/auth/me", nil, "").Code)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name string
		body any
	}{
		{"bad json", "{"},
		{"missing name", map[string]string{"email": "a@example.com", "password": "long-enough"}},
		{"bad email", map[string]string{"name": "A", "email": "nope", "password": "long-enough"}},
		{"short password", map[string]string{"name": "A", "email": "a@example.com", "password": "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/auth/register", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "validation error")
		})
	}
	assert.Empty(t, env.users.users)
}

func TestLoginClaimsGuestVersions(t *testing.T) {
	env := newTestEnv(t)
	_, userID := env.register(t, "Sam", "sam@example.com")

	rec := env.do(http.MethodPost, "/versions", map[string]any{"name": "draft", "content": sampleRecord()}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	guestID := decode[map[string]string](t, rec)["id"]

	rec = env.do(http.MethodPost, "/auth/login", map[string]any{
		"email": "sam@example.com", "password": "correct-horse-battery",
		"guest_version_ids": []string{guestID, "v_missing"},
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[types.LoginResponse](t, rec).ClaimedVersions)

	v := env.store.Versions[guestID]
	require.NotNil(t, v.OwnerID)
	assert.Equal(t, userID, *v.OwnerID)
}

func TestUpdatePassword(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "Pat", "pat@example.com")

	rec := env.do(http.MethodPut, "/auth/password", map[string]string{
		"current_password": "wrong", "new_password": "new-password-1",
	}, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodPut, "/auth/password", map[string]string{
		"current_password": "correct-horse-battery", "new_password": "new-password-1",
	}, token)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost, "/auth/login", map[string]string{
		"email": "pat@example.com", "password": "new-password-1",
	}, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPut, "/auth/password", map[string]string{
		"current_password": "x", "new_password": "new-password-2",
	}, "").Code)
}

func TestEmailVerification(t *testing.T) {
	env := newTestEnv(t)
	token, userID := env.register(t, "Vic", "vic@example.com")

	rec := env.do(http.MethodPost, "/auth/verify/send", nil, token)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, env.verifier.sent, 2)

	code := strings.Repeat("ab", 16)
	env.verifier.codes[code] = userID
	rec = env.do(http.MethodPost, "/auth/verify/confirm", map[string]string{"code": code}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID.String(), decode[map[string]any](t, rec)["user_id"])

	rec = env.do(http.MethodPost, "/auth/verify/confirm", map[string]string{"code": strings.Repeat("cd", 16)}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/auth/verify/confirm", map[string]string{"code": "short"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvalidTokenIsRejectedOnPublicRoutes(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/versions", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/versions", nil, "garbage").Code)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)
	userToken, _ := env.register(t, "Ann", "ann@example.com")

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/admin/email-backup", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/admin/email-backup", nil, userToken).Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/admin/email-backup", nil, adminToken).Code)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t)
	limiter := ratelimit.NewLimiter(&ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
		EndpointConfigs: []ratelimit.EndpointConfig{
			{Path: "/auth/login", Method: http.MethodPost, Limit: 2, Window: time.Hour},
		},
	})
	defer limiter.Stop()
	cfg := config.Default()
	env.srv = New(Deps{Config: &cfg, Users: env.users, JWT: env.srv.JWT, Passwords: env.srv.Passwords, Limiter: limiter})

	body := map[string]string{"email": "x@example.com", "password": "whatever"}
	for i := 0; i < 2; i++ {
		rec := env.do(http.MethodPost, "/auth/login", body, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}
	rec := env.do(http.MethodPost, "/auth/login", body, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit_exceeded", decode[map[string]any](t, rec)["error"])

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health", nil, "").Code)
}

func TestUnavailableFeatures(t *testing.T) {
	cfg := config.Default()
	srv := New(Deps{
		Config:    &cfg,
		Users:     newMemUsers(),
		JWT:       newJWT(1),
		Passwords: &config.PasswordConfig{BcryptCost: 4},
	})
	env := &testEnv{srv: srv}

	assert.Equal(t, http.StatusServiceUnavailable, env.do(http.MethodGet, "/versions", nil, "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, env.do(http.MethodPost, "/auth/verify/confirm",
		map[string]string{"code": strings.Repeat("ab", 16)}, "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, env.upload("/resumes/analyze", "cv.txt", []byte("x"), nil, "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, env.do(http.MethodGet, "/jobs/"+uuid.NewString(), nil, "").Code)
}
