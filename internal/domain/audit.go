package domain

import (
	"time"
)

// Audit event types emitted by the intake agent.
const (
	AuditCreated           = "created"
	AuditDuplicateReceived = "duplicate_received"
	AuditStatusChanged     = "status_changed"
	AuditOwnerAssigned     = "owner_assigned"
)

// ActorSystem is the actor recorded for automated transitions.
const ActorSystem = "system"

// AuditEvent is an immutable record of a state-affecting operation against
// a work item. Events are append-only: never mutated, never deleted.
type AuditEvent struct {
	ID         string         `json:"id"`
	TenantID   string         `json:"tenant_id"`
	WorkItemID string         `json:"work_item_id"`
	Type       string         `json:"type"`
	Actor      string         `json:"actor"`
	Payload    map[string]any `json:"payload"`
	At         time.Time      `json:"at"`
}
