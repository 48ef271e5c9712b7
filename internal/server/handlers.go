package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dev-ayush21/Pvtwingo/pkg/game"
	"github.com/dev-ayush21/Pvtwingo/pkg/pagination"
	"github.com/dev-ayush21/Pvtwingo/pkg/users"
)

// Client-facing messages. Internal causes are only logged.
const (
	msgInvalidGame   = "Invalid or missing game type specified."
	msgInsufficient  = "Failed to fetch sufficient game history."
	msgUpstream      = "Failed to fetch or process data from the provider API."
	msgShortUsername = "Username must be at least 3 characters long."
	msgNoUsername    = "Username is required."
	msgUserNotFound  = "User not found."
	msgBadBody       = "Invalid request body."
	msgInternal      = "Internal server error."
)

// handlePredict handles GET /api/predict?game=WinGo_1M
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	g, err := game.ParseType(r.URL.Query().Get("game"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, msgInvalidGame)
		return
	}

	resp, err := s.predictor.Predict(r.Context(), g)
	if err != nil {
		switch pagination.KindOf(err) {
		case pagination.KindInvalidGame:
			s.writeError(w, http.StatusBadRequest, msgInvalidGame)
		case pagination.KindInsufficient:
			s.log.Warn().Err(err).Str("game", string(g)).Msg("Prediction refused")
			s.writeError(w, http.StatusInternalServerError, msgInsufficient)
		default:
			s.log.Error().Err(err).Str("game", string(g)).Msg("Error in predictor")
			s.writeError(w, http.StatusInternalServerError, msgUpstream)
		}
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

type usernameRequest struct {
	Username string `json:"username"`
}

type userResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	User    *users.User `json:"user,omitempty"`
}

// handleRegister handles POST /api/users/register
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req usernameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeUserError(w, http.StatusBadRequest, msgBadBody)
		return
	}

	user, err := s.users.Register(r.Context(), req.Username)
	if err != nil {
		s.handleUserError(w, err, msgShortUsername)
		return
	}
	s.writeJSON(w, http.StatusOK, userResponse{Success: true, User: user})
}

// handleConfirmDeposit handles POST /api/users/deposit
func (s *Server) handleConfirmDeposit(w http.ResponseWriter, r *http.Request) {
	var req usernameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeUserError(w, http.StatusBadRequest, msgBadBody)
		return
	}

	user, err := s.users.ConfirmDeposit(r.Context(), req.Username)
	if err != nil {
		s.handleUserError(w, err, msgNoUsername)
		return
	}
	s.writeJSON(w, http.StatusOK, userResponse{Success: true, Message: "Access granted!", User: user})
}

// handleUserStatus handles GET /api/users/{username}
func (s *Server) handleUserStatus(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.Status(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		s.handleUserError(w, err, msgNoUsername)
		return
	}
	s.writeJSON(w, http.StatusOK, userResponse{Success: true, User: user})
}

func (s *Server) handleUserError(w http.ResponseWriter, err error, invalidMsg string) {
	switch {
	case errors.Is(err, users.ErrInvalidUsername):
		s.writeUserError(w, http.StatusBadRequest, invalidMsg)
	case errors.Is(err, users.ErrUserNotFound):
		s.writeUserError(w, http.StatusNotFound, msgUserNotFound)
	default:
		s.log.Error().Err(err).Msg("User registry failure")
		s.writeUserError(w, http.StatusInternalServerError, msgInternal)
	}
}

func (s *Server) writeUserError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, userResponse{Success: false, Message: message})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
