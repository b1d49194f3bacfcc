package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/resume-analyzer/internal/server/middleware"
	"github.com/jonathan/resume-analyzer/internal/types"
)

// validate is safe for concurrent use.
var validate = validator.New()

// validationError turns the first validator failure into an ErrValidation.
func validationError(err error) error {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return &ErrValidation{Field: strings.ToLower(ve[0].Field()), Message: ve[0].Tag()}
	}
	return &ErrValidation{Field: "body", Message: "invalid request"}
}

func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := decodeJSON(w, r, dst); err != nil {
		return err
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// handleRegister creates an account and returns a session token. The
// verification email is best effort.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req types.CreateUserRequest
	if err := s.decodeAndValidate(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	user, err := s.users.Register(r.Context(), &req)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	token, err := s.JWT.GenerateToken(user.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if s.Verifier != nil {
		if err := s.Verifier.Send(r.Context(), user.ID); err != nil {
			s.Log.Warn("verification email not sent", "user_id", user.ID.String(), "error", err)
		}
	}

	s.Log.Info("user registered", "user_id", user.ID.String())
	s.jsonResponse(w, http.StatusCreated, types.LoginResponse{User: user, Token: token})
}

// handleLogin authenticates and moves any guest versions the client created
// before logging in into the account.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := s.decodeAndValidate(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	user, err := s.users.Login(r.Context(), &req)
	if err != nil {
		var badCreds *ErrInvalidCredentials
		if errors.As(err, &badCreds) {
			s.Log.Info("login failed", "email", req.Email)
		}
		s.fail(w, r, err)
		return
	}

	token, err := s.JWT.GenerateToken(user.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := types.LoginResponse{User: user, Token: token}
	if len(req.GuestVersionIDs) > 0 && s.Versions != nil {
		n, err := s.Versions.ClaimGuestVersions(r.Context(), user.ID, req.GuestVersionIDs)
		if err != nil {
			s.Log.Warn("failed to claim guest versions", "user_id", user.ID.String(), "error", err)
		}
		resp.ClaimedVersions = n
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	user, err := s.users.Get(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, user)
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req types.UpdatePasswordRequest
	if err := s.decodeAndValidate(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.users.UpdatePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		s.fail(w, r, err)
		return
	}

	s.Log.Info("password updated", "user_id", userID.String())
	s.jsonResponse(w, http.StatusOK, map[string]string{"message": "Password updated successfully"})
}

// handleSendVerification (re)sends the verification email to the caller.
func (s *Server) handleSendVerification(w http.ResponseWriter, r *http.Request) {
	if s.Verifier == nil {
		s.fail(w, r, &errUnavailable{Feature: "email verification"})
		return
	}
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err := s.Verifier.Send(r.Context(), userID); err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusAccepted, map[string]string{"message": "Verification email sent"})
}

// handleConfirmEmail accepts the code from the verification link. It needs
// no session: the code identifies the user.
func (s *Server) handleConfirmEmail(w http.ResponseWriter, r *http.Request) {
	if s.Verifier == nil {
		s.fail(w, r, &errUnavailable{Feature: "email verification"})
		return
	}
	var req types.ConfirmEmailRequest
	if err := s.decodeAndValidate(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	userID, err := s.Verifier.Confirm(r.Context(), req.Code)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"user_id": userID, "email_verified": true})
}
