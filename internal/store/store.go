// Package store provides persistence for work items and their audit trail.
// Two backends implement the same Store interface: Postgres for production
// and a file-backed store for single-node deployments and tests.
package store

import (
	"context"

	"github.com/supportdesk/intake-engine/internal/domain"
)

const (
	// MaxListLimit caps work-item page sizes regardless of what the caller
	// asks for.
	MaxListLimit = 200

	// DefaultListLimit applies when the caller passes no limit.
	DefaultListLimit = 50

	// MaxAuditLimit caps audit reads.
	MaxAuditLimit = 1000

	// DefaultAuditLimit applies when the caller passes no limit.
	DefaultAuditLimit = 200
)

// ListOptions filter and page a tenant's work items.
type ListOptions struct {
	// Status filters to a single lifecycle status when non-empty.
	Status domain.Status
	// Search is a case-insensitive substring match over normalized body,
	// sender, and subject.
	Search string
	Limit  int
	Offset int
}

// Store is the storage port consumed by the intake agent. Every method is
// tenant-scoped; an implementation must never let one tenant's rows leak
// into another tenant's results.
//
// UpdateStatus and AssignOwner are silent no-ops when the id does not
// exist; callers detect absence via a preceding or follow-up read, not
// via these calls.
type Store interface {
	CreateWorkItem(ctx context.Context, item domain.WorkItem) error
	GetWorkItem(ctx context.Context, tenantID, id string) (*domain.WorkItem, error)
	ListWorkItems(ctx context.Context, tenantID string, opts ListOptions) ([]domain.WorkItem, error)

	// FindByFingerprint returns the most recent item with this fingerprint,
	// but only if it was created within windowSeconds of now. An older
	// most-recent match means no match: the window gates recency, it is not
	// a rolling membership check across all historical matches.
	FindByFingerprint(ctx context.Context, tenantID, fingerprint string, windowSeconds int) (*domain.WorkItem, error)

	UpdateStatus(ctx context.Context, tenantID, id string, next domain.Status) error
	AssignOwner(ctx context.Context, tenantID, id string, ownerID *string) error

	AppendAudit(ctx context.Context, ev domain.AuditEvent) error
	// ListAudit returns the oldest-first audit stream for one work item.
	ListAudit(ctx context.Context, tenantID, workItemID string, limit int) ([]domain.AuditEvent, error)
}

func clampListLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

func clampAuditLimit(limit int) int {
	if limit <= 0 {
		return DefaultAuditLimit
	}
	if limit > MaxAuditLimit {
		return MaxAuditLimit
	}
	return limit
}
