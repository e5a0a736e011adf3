package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/supportdesk/intake-engine/internal/agent"
	"github.com/supportdesk/intake-engine/internal/domain"
	"github.com/supportdesk/intake-engine/internal/store"
)

// IntakeAgent is the slice of the agent the HTTP layer consumes.
type IntakeAgent interface {
	Intake(ctx context.Context, ev domain.InboundEvent) (agent.Result, error)
	UpdateStatus(ctx context.Context, tenantID, id string, next domain.Status) (agent.Result, error)
	AssignOwner(ctx context.Context, tenantID, id string, ownerID *string) (agent.Result, error)
	Get(ctx context.Context, tenantID, id string) (*domain.WorkItem, error)
	List(ctx context.Context, tenantID string, opts store.ListOptions) ([]domain.WorkItem, error)
	Audit(ctx context.Context, tenantID, workItemID string, limit int) ([]domain.AuditEvent, error)
}

type WorkItemHandler struct {
	agent IntakeAgent
}

func NewWorkItemHandler(agent IntakeAgent) *WorkItemHandler {
	return &WorkItemHandler{agent: agent}
}

func (h *WorkItemHandler) List(w http.ResponseWriter, r *http.Request) {
	opts := store.ListOptions{
		Search: r.URL.Query().Get("search"),
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}

	if status := r.URL.Query().Get("status"); status != "" {
		if !domain.ValidStatus(domain.Status(status)) {
			respondError(w, http.StatusBadRequest, "unknown status")
			return
		}
		opts.Status = domain.Status(status)
	}

	items, err := h.agent.List(r.Context(), tenantFrom(r), opts)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list work items")
		return
	}

	respondJSON(w, http.StatusOK, items)
}

func (h *WorkItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.agent.Get(r.Context(), tenantFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		respondAgentError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

type updateStatusRequest struct {
	Status domain.Status `json:"status"`
}

type mutationResponse struct {
	WorkItem *domain.WorkItem `json:"work_item"`
	Warning  string           `json:"warning,omitempty"`
}

func (h *WorkItemHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !domain.ValidStatus(req.Status) {
		respondError(w, http.StatusBadRequest, "unknown status")
		return
	}

	result, err := h.agent.UpdateStatus(r.Context(), tenantFrom(r), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		respondAgentError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, mutationResponse{WorkItem: result.WorkItem, Warning: result.Warning})
}

type assignOwnerRequest struct {
	// OwnerID null unassigns.
	OwnerID *string `json:"owner_id"`
}

func (h *WorkItemHandler) AssignOwner(w http.ResponseWriter, r *http.Request) {
	var req assignOwnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.agent.AssignOwner(r.Context(), tenantFrom(r), chi.URLParam(r, "id"), req.OwnerID)
	if err != nil {
		respondAgentError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, mutationResponse{WorkItem: result.WorkItem, Warning: result.Warning})
}

func (h *WorkItemHandler) Audit(w http.ResponseWriter, r *http.Request) {
	events, err := h.agent.Audit(r.Context(), tenantFrom(r), chi.URLParam(r, "id"), queryInt(r, "limit"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list audit events")
		return
	}
	respondJSON(w, http.StatusOK, events)
}

func queryInt(r *http.Request, key string) int {
	if val := r.URL.Query().Get(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return n
		}
	}
	return 0
}
