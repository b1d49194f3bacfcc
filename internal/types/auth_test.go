//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		request CreateUserRequest
		errMsg  string
	}{
		{
			name:    "valid request",
			request: CreateUserRequest{Name: "Ada Lovelace", Email: "ada@example.com", Password: "password123"},
		},
		{
			name:    "missing name",
			request: CreateUserRequest{Email: "ada@example.com", Password: "password123"},
			errMsg:  "required",
		},
		{
			name:    "invalid email",
			request: CreateUserRequest{Name: "Ada", Email: "not-an-email", Password: "password123"},
			errMsg:  "email",
		},
		{
			name:    "short password",
			request: CreateUserRequest{Name: "Ada", Email: "ada@example.com", Password: "short"},
			errMsg:  "min",
		},
		{
			name:    "password exactly 8 characters",
			request: CreateUserRequest{Name: "Ada", Email: "ada@example.com", Password: "12345678"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if tt.errMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoginRequest_Validate(t *testing.T) {
	req := LoginRequest{Email: "ada@example.com", Password: "x"}
	require.NoError(t, req.Validate())

	req.Email = "bad"
	require.Error(t, req.Validate())

	req.Email = "ada@example.com"
	req.GuestVersionIDs = make([]string, 51)
	require.Error(t, req.Validate())
}

func TestUpdatePasswordRequest_Validate(t *testing.T) {
	req := UpdatePasswordRequest{CurrentPassword: "oldpassword", NewPassword: "newpassword"}
	require.NoError(t, req.Validate())

	req.NewPassword = "short"
	err := req.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min")
}

func TestFeedbackRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		request FeedbackRequest
		wantErr bool
	}{
		{name: "message only", request: FeedbackRequest{Message: "Great tool"}},
		{name: "with email", request: FeedbackRequest{Message: "hi", Email: "ada@example.com"}},
		{name: "bad email", request: FeedbackRequest{Message: "hi", Email: "nope"}, wantErr: true},
		{name: "empty message", request: FeedbackRequest{}, wantErr: true},
		{name: "message too long", request: FeedbackRequest{Message: strings.Repeat("a", 5001)}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoginResponse_OmitsPasswordHash(t *testing.T) {
	now := time.Now()
	resp := LoginResponse{
		User:  &User{ID: uuid.New(), Name: "Ada", Email: "ada@example.com", PasswordSet: true, CreatedAt: now, UpdatedAt: now},
		Token: "jwt",
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "password_hash")
	assert.NotContains(t, string(data), "claimed_versions")
	assert.Contains(t, string(data), `"email_verified":false`)
}
