package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/thomaskoefod/digestr/internal/database"
	"github.com/thomaskoefod/digestr/internal/sanitize"
	"github.com/thomaskoefod/digestr/internal/scheduler"
	"github.com/thomaskoefod/digestr/pkg/models"
)

type registerRequest struct {
	Email     string   `json:"email"`
	Interests []any    `json:"interests"`
	Frequency string   `json:"frequency"`
}

type registerResponse struct {
	ID        int64            `json:"id"`
	Email     string           `json:"email"`
	Frequency models.Frequency `json:"frequency"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	interests := make([]string, len(req.Interests))
	for i, v := range req.Interests {
		interests[i] = sanitize.Value(v)
	}
	email, keywords, err := models.NormalizeRegistration(req.Email, interests)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if strings.TrimSpace(req.Frequency) == "" {
		req.Frequency = string(models.Daily)
	}
	freq, err := models.ParseFrequency(req.Frequency)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "frequency must be daily, weekly or monthly")
		return
	}

	user, err := s.users.CreateUser(r.Context(), email, freq, keywords)
	if errors.Is(err, database.ErrUserExists) {
		s.respondError(w, http.StatusConflict, "email already registered")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("registration failed")
		s.respondError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	s.log.Info().Int64("user_id", user.ID).Str("frequency", string(freq)).Msg("user registered")
	s.respondJSON(w, http.StatusCreated, registerResponse{ID: user.ID, Email: user.Email, Frequency: user.Frequency})
}

func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	job := chi.URLParam(r, "job")

	err := s.jobs.Trigger(job)
	switch {
	case errors.Is(err, scheduler.ErrUnknownTask):
		s.respondError(w, http.StatusNotFound, "unknown job "+job)
	case errors.Is(err, scheduler.ErrTaskRunning):
		s.respondError(w, http.StatusConflict, "job "+job+" is already running")
	case err != nil:
		s.respondError(w, http.StatusInternalServerError, err.Error())
	default:
		s.respondJSON(w, http.StatusAccepted, map[string]string{"job": job, "status": "started"})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"jobs":   s.jobs.Status(),
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"status":  status,
			"message": message,
		},
	})
}
