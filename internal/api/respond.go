package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/supportdesk/intake-engine/internal/domain"
)

type errorResponse struct {
	Error string        `json:"error"`
	From  domain.Status `json:"from,omitempty"`
	To    domain.Status `json:"to,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}

// respondAgentError translates core errors into transport responses. The
// core itself knows nothing about HTTP.
func respondAgentError(w http.ResponseWriter, err error) {
	var transition *domain.InvalidTransitionError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "work item not found")
	case errors.As(err, &transition):
		respondJSON(w, http.StatusConflict, errorResponse{
			Error: "invalid transition",
			From:  transition.From,
			To:    transition.To,
		})
	case errors.Is(err, domain.ErrInvalidEvent):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrPresetNotFound):
		respondError(w, http.StatusInternalServerError, "preset not configured")
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
