// Package verification issues and confirms email verification codes.
package verification

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-analyzer/internal/db"
	"github.com/jonathan/resume-analyzer/internal/email"
	"github.com/jonathan/resume-analyzer/internal/logger"
)

// CodeTTL is how long a verification code stays valid.
const CodeTTL = 24 * time.Hour

var (
	// ErrInvalidCode is returned for unknown, used or expired codes.
	ErrInvalidCode = errors.New("invalid or expired verification code")
	// ErrAlreadyVerified is returned when the address is already confirmed.
	ErrAlreadyVerified = errors.New("email already verified")
	// ErrUserNotFound is returned when the user does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// CodeStore persists codes with an expiry.
type CodeStore interface {
	Save(ctx context.Context, code, userID string, ttl time.Duration) error
	Take(ctx context.Context, code string) (string, error)
}

// Users is the account storage the service needs.
type Users interface {
	GetUser(ctx context.Context, id uuid.UUID) (*db.User, error)
	MarkEmailVerified(ctx context.Context, id uuid.UUID) error
}

// Mailer sends the verification link.
type Mailer interface {
	SendVerification(ctx context.Context, to, name, link string) error
}

// Service sends and confirms verification codes.
type Service struct {
	codes   CodeStore
	users   Users
	mailer  Mailer
	baseURL string
	rand    io.Reader
	log     *logger.Logger
}

// NewService creates a verification service. baseURL is the public address
// used to build the confirmation link.
func NewService(codes CodeStore, users Users, mailer Mailer, baseURL string, log *logger.Logger) *Service {
	return &Service{
		codes:   codes,
		users:   users,
		mailer:  mailer,
		baseURL: strings.TrimRight(baseURL, "/"),
		rand:    rand.Reader,
		log:     logger.OrNop(log).With("component", "verification"),
	}
}

// Send generates a code for the user and mails the confirmation link. An
// undelivered email is logged but not treated as a failure; the message is
// kept in the email backup.
func (s *Service) Send(ctx context.Context, userID uuid.UUID) error {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}
	if user.EmailVerified {
		return ErrAlreadyVerified
	}

	code, err := s.newCode()
	if err != nil {
		return err
	}
	if err := s.codes.Save(ctx, code, userID.String(), CodeTTL); err != nil {
		return err
	}

	link := s.baseURL + "/verify_email?code=" + url.QueryEscape(code)
	if err := s.mailer.SendVerification(ctx, user.Email, user.Name, link); err != nil {
		if !errors.Is(err, email.ErrUndelivered) {
			return fmt.Errorf("failed to send verification email: %w", err)
		}
		s.log.Warn("Verification email not delivered", "user_id", userID.String(), "error", err)
	}
	s.log.Info("Verification code issued", "user_id", userID.String())
	return nil
}

// Confirm consumes code and marks the owner's email as verified.
func (s *Service) Confirm(ctx context.Context, code string) (uuid.UUID, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return uuid.Nil, ErrInvalidCode
	}
	raw, err := s.codes.Take(ctx, code)
	if err != nil {
		return uuid.Nil, err
	}
	if raw == "" {
		return uuid.Nil, ErrInvalidCode
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrInvalidCode
	}
	if err := s.users.MarkEmailVerified(ctx, userID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return uuid.Nil, ErrUserNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to mark email verified: %w", err)
	}
	s.log.Info("Email verified", "user_id", userID.String())
	return userID, nil
}

// newCode returns 16 random bytes as 32 lowercase hex characters.
func (s *Service) newCode() (string, error) {
	b := make([]byte, 16)
	if _, err := io.ReadFull(s.rand, b); err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return hex.EncodeToString(b), nil
}
