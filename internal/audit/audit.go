// Package audit builds immutable audit records for state-affecting
// operations on work items.
package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/supportdesk/intake-engine/internal/domain"
)

// New creates an audit event with a fresh id. An empty actor defaults to
// the system actor, and a nil payload becomes an empty map so consumers
// never see null payloads.
func New(tenantID, workItemID, eventType, actor string, payload map[string]any, at time.Time) domain.AuditEvent {
	if actor == "" {
		actor = domain.ActorSystem
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return domain.AuditEvent{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		WorkItemID: workItemID,
		Type:       eventType,
		Actor:      actor,
		Payload:    payload,
		At:         at,
	}
}
