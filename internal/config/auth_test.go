package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJWTConfig(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		wantHours int
		wantErr   string
	}{
		{"defaults", map[string]string{"JWT_SECRET": "s"}, 24, ""},
		{"custom expiration", map[string]string{"JWT_SECRET": "s", "JWT_EXPIRATION_HOURS": "48"}, 48, ""},
		{"missing secret", map[string]string{}, 0, "JWT_SECRET is required"},
		{"non-numeric", map[string]string{"JWT_SECRET": "s", "JWT_EXPIRATION_HOURS": "day"}, 0, "invalid JWT_EXPIRATION_HOURS"},
		{"zero hours", map[string]string{"JWT_SECRET": "s", "JWT_EXPIRATION_HOURS": "0"}, 0, "at least 1 hour"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewJWTConfig(envMap(tt.env))
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "s", cfg.Secret)
			assert.Equal(t, tt.wantHours, cfg.ExpirationHours)
		})
	}
}

func TestNewPasswordConfig(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		wantCost int
		wantErr  bool
	}{
		{"default cost", map[string]string{}, 12, false},
		{"lowest cost", map[string]string{"BCRYPT_COST": "10"}, 10, false},
		{"cost too low", map[string]string{"BCRYPT_COST": "9"}, 0, true},
		{"cost too high", map[string]string{"BCRYPT_COST": "15"}, 0, true},
		{"invalid cost", map[string]string{"BCRYPT_COST": "high"}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewPasswordConfig(envMap(tt.env))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCost, cfg.BcryptCost)
		})
	}
}

func TestPasswordConfig_HashAndVerify(t *testing.T) {
	cfg := &PasswordConfig{BcryptCost: 10}

	hash, err := cfg.HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2a$10$"))
	assert.True(t, cfg.VerifyPassword("correct horse", hash))
	assert.False(t, cfg.VerifyPassword("wrong horse", hash))

	again, err := cfg.HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "salts differ per hash")
}

func TestPasswordConfig_Pepper(t *testing.T) {
	peppered := &PasswordConfig{BcryptCost: 10, Pepper: "pepper-1"}
	hash, err := peppered.HashPassword("secret")
	require.NoError(t, err)

	assert.True(t, peppered.VerifyPassword("secret", hash))
	assert.False(t, (&PasswordConfig{BcryptCost: 10}).VerifyPassword("secret", hash))
	assert.False(t, (&PasswordConfig{BcryptCost: 10, Pepper: "pepper-2"}).VerifyPassword("secret", hash))
}

func TestPasswordConfig_TooLong(t *testing.T) {
	cfg := &PasswordConfig{BcryptCost: 10}
	_, err := cfg.HashPassword(strings.Repeat("a", 73))
	assert.ErrorContains(t, err, "failed to hash password")
}
