package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/supportdesk/intake-engine/internal/domain"
)

type IntakeHandler struct {
	agent IntakeAgent
}

func NewIntakeHandler(agent IntakeAgent) *IntakeHandler {
	return &IntakeHandler{agent: agent}
}

type intakeResponse struct {
	Duplicated bool             `json:"duplicated"`
	WorkItem   *domain.WorkItem `json:"work_item"`
	Warning    string           `json:"warning,omitempty"`
}

// Create ingests one inbound event for the authenticated tenant. The
// tenant id always comes from the verified header, never from the body.
func (h *IntakeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var ev domain.InboundEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ev.TenantID = tenantFrom(r)
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = time.Now().UTC()
	}

	result, err := h.agent.Intake(r.Context(), ev)
	if err != nil {
		respondAgentError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Duplicated {
		status = http.StatusOK
	}
	respondJSON(w, status, intakeResponse{
		Duplicated: result.Duplicated,
		WorkItem:   result.WorkItem,
		Warning:    result.Warning,
	})
}
