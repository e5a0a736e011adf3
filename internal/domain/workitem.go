package domain

import (
	"time"
)

// Source identifies the channel an inbound message arrived on.
type Source string

const (
	SourceEmail Source = "email"
	SourceChat  Source = "chat"
	SourceForm  Source = "form"
	SourceAPI   Source = "api"
)

// ValidSource reports whether s is a known inbound source.
func ValidSource(s Source) bool {
	switch s {
	case SourceEmail, SourceChat, SourceForm, SourceAPI:
		return true
	}
	return false
}

// Priority of a work item, derived from the active preset.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Status of a work item in its lifecycle.
type Status string

const (
	StatusNew        Status = "new"
	StatusTriage     Status = "triage"
	StatusInProgress Status = "in_progress"
	StatusWaiting    Status = "waiting"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// Statuses lists every lifecycle status in declaration order.
var Statuses = []Status{
	StatusNew, StatusTriage, StatusInProgress,
	StatusWaiting, StatusResolved, StatusClosed,
}

// ValidStatus reports whether s is a known lifecycle status.
func ValidStatus(s Status) bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// WorkItem is the tracked unit of work created from an inbound message.
// All operations on a work item are scoped by TenantID; an item from one
// tenant must never be visible under another.
type WorkItem struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`

	Source         Source  `json:"source"`
	Sender         string  `json:"sender"`
	Subject        *string `json:"subject,omitempty"`
	RawBody        string  `json:"raw_body"`
	NormalizedBody string  `json:"normalized_body"`

	Category string   `json:"category"`
	Priority Priority `json:"priority"`
	// PresetID records which rule set produced the classification. It is
	// retained even if the rules later change, so results stay reproducible.
	PresetID string `json:"preset_id"`

	Status  Status  `json:"status"`
	OwnerID *string `json:"owner_id,omitempty"`

	SLASeconds int        `json:"sla_seconds"`
	DueAt      *time.Time `json:"due_at,omitempty"`

	// Fingerprint is the content-derived dedupe key:
	// sha256 hex of tenant|sender|preset|normalizedBody.
	Fingerprint string `json:"fingerprint"`

	Tags []string `json:"tags"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
