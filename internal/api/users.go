package api

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gbcatalog/internal/storage/postgres"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AccountResponse wraps the account returned by register and login.
type AccountResponse struct {
	Message string           `json:"message"`
	User    postgres.Account `json:"user"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var reg postgres.Registration
	if err := decodeBody(w, r, &reg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", "the request body must be a JSON object")
		return
	}
	if strings.TrimSpace(reg.Username) == "" || reg.Email == "" || reg.Password == "" {
		writeError(w, http.StatusBadRequest, "missing fields", "username, email and password are required")
		return
	}

	acct, err := s.accounts.Create(r.Context(), reg)
	switch {
	case errors.Is(err, postgres.ErrInvalidRegistration):
		writeError(w, http.StatusBadRequest, "invalid registration", err.Error())
		return
	case errors.Is(err, postgres.ErrAccountExists):
		writeError(w, http.StatusConflict, "account exists", "username or email already in use")
		return
	case err != nil:
		s.serverError(w, r, "failed to register user", err)
		return
	}

	s.logger.Info("user registered", zap.Int64("user_id", acct.ID), zap.String("username", acct.Username))
	writeJSON(w, http.StatusCreated, AccountResponse{Message: "user created", User: acct})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := decodeBody(w, r, &creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", "the request body must be a JSON object")
		return
	}
	if creds.Username == "" || creds.Password == "" {
		writeError(w, http.StatusBadRequest, "missing fields", "username and password are required")
		return
	}

	acct, err := s.accounts.Authenticate(r.Context(), creds.Username, creds.Password)
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials", "incorrect username or password")
			return
		}
		s.serverError(w, r, "failed to authenticate user", err)
		return
	}
	writeJSON(w, http.StatusOK, AccountResponse{Message: "login successful", User: acct})
}
