// Package agent implements the intake orchestrator: it validates inbound
// events, builds candidate work items, runs the dedupe gate, and exposes
// the two sanctioned mutations (status change, owner assignment), each
// paired with exactly one audit event.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/supportdesk/intake-engine/internal/audit"
	"github.com/supportdesk/intake-engine/internal/domain"
	"github.com/supportdesk/intake-engine/internal/engine"
	"github.com/supportdesk/intake-engine/internal/preset"
	"github.com/supportdesk/intake-engine/internal/store"
)

// DefaultDedupeWindowSeconds is the span after a work item's creation
// during which a matching fingerprint is treated as a duplicate.
const DefaultDedupeWindowSeconds = 3600

// Notifier receives best-effort notifications about work-item activity.
// Failures are logged by the agent and never surfaced to intake callers.
type Notifier interface {
	Enqueue(ctx context.Context, kind string, item domain.WorkItem) error
}

// Result is the outcome of an agent operation. Warning carries a
// degraded-success note: the mutation committed but its audit append
// failed. It is never an excuse to roll back.
type Result struct {
	WorkItem   *domain.WorkItem
	Duplicated bool
	Warning    string
}

// Agent orchestrates intake and lifecycle operations over an injected
// storage port and preset registry.
type Agent struct {
	store               store.Store
	presets             *preset.Registry
	presetID            string
	dedupeWindowSeconds int
	notifier            Notifier
	logger              *slog.Logger

	locks *keyedMutex
	now   func() time.Time
}

// New builds an agent. notifier may be nil to disable notifications.
func New(s store.Store, presets *preset.Registry, presetID string, dedupeWindowSeconds int, notifier Notifier, logger *slog.Logger) *Agent {
	if dedupeWindowSeconds <= 0 {
		dedupeWindowSeconds = DefaultDedupeWindowSeconds
	}
	return &Agent{
		store:               s,
		presets:             presets,
		presetID:            presetID,
		dedupeWindowSeconds: dedupeWindowSeconds,
		notifier:            notifier,
		logger:              logger,
		locks:               newKeyedMutex(),
		now:                 time.Now,
	}
}

// SetNowFunc overrides the clock used for work-item and audit timestamps.
// nil restores the wall clock.
func (a *Agent) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	a.now = now
}

// Intake turns an inbound event into a work item, or records a duplicate
// against an existing one. The dedupe check and create run under a
// per-(tenant, fingerprint) lock so two racing intakes of the same message
// cannot both create a live item.
func (a *Agent) Intake(ctx context.Context, ev domain.InboundEvent) (Result, error) {
	if err := ev.Validate(); err != nil {
		return Result{}, err
	}

	p, err := a.presets.Get(a.presetID)
	if err != nil {
		return Result{}, err
	}

	candidate := engine.Build(ev, p, a.now())

	unlock := a.locks.lock(ev.TenantID + "|" + candidate.Fingerprint)
	defer unlock()

	existing, err := a.store.FindByFingerprint(ctx, ev.TenantID, candidate.Fingerprint, a.dedupeWindowSeconds)
	if err != nil {
		return Result{}, fmt.Errorf("dedupe lookup: %w", err)
	}

	if existing != nil {
		// Duplicate: the candidate is discarded, only an audit note of the
		// attempt is kept.
		warning := a.appendAudit(ctx, audit.New(ev.TenantID, existing.ID, domain.AuditDuplicateReceived, "", map[string]any{
			"source": ev.Source,
			"sender": ev.Sender,
		}, a.now()))

		a.logger.Info("duplicate received",
			"tenant_id", ev.TenantID,
			"work_item_id", existing.ID,
			"fingerprint", candidate.Fingerprint,
		)
		return Result{WorkItem: existing, Duplicated: true, Warning: warning}, nil
	}

	if err := a.store.CreateWorkItem(ctx, candidate); err != nil {
		return Result{}, fmt.Errorf("creating work item: %w", err)
	}

	warning := a.appendAudit(ctx, audit.New(ev.TenantID, candidate.ID, domain.AuditCreated, "", map[string]any{
		"source":    ev.Source,
		"sender":    ev.Sender,
		"preset_id": a.presetID,
	}, a.now()))

	a.notify(ctx, domain.AuditCreated, candidate)

	a.logger.Info("work item created",
		"tenant_id", ev.TenantID,
		"work_item_id", candidate.ID,
		"category", candidate.Category,
		"priority", candidate.Priority,
	)
	return Result{WorkItem: &candidate, Warning: warning}, nil
}

// UpdateStatus applies a status change gated by the transition table. An
// illegal transition mutates nothing and reports the attempted from/to
// pair.
func (a *Agent) UpdateStatus(ctx context.Context, tenantID, id string, next domain.Status) (Result, error) {
	unlock := a.locks.lock(tenantID + "|" + id)
	defer unlock()

	current, err := a.store.GetWorkItem(ctx, tenantID, id)
	if err != nil {
		return Result{}, fmt.Errorf("loading work item: %w", err)
	}
	if current == nil {
		return Result{}, domain.ErrNotFound
	}

	if !engine.CanTransition(current.Status, next) {
		return Result{}, &domain.InvalidTransitionError{From: current.Status, To: next}
	}

	if err := a.store.UpdateStatus(ctx, tenantID, id, next); err != nil {
		return Result{}, fmt.Errorf("updating status: %w", err)
	}

	warning := a.appendAudit(ctx, audit.New(tenantID, id, domain.AuditStatusChanged, "", map[string]any{
		"from": current.Status,
		"to":   next,
	}, a.now()))

	updated, err := a.store.GetWorkItem(ctx, tenantID, id)
	if err != nil {
		return Result{}, fmt.Errorf("reloading work item: %w", err)
	}

	if updated != nil {
		a.notify(ctx, domain.AuditStatusChanged, *updated)
	}

	a.logger.Info("status changed",
		"tenant_id", tenantID,
		"work_item_id", id,
		"from", current.Status,
		"to", next,
	)
	return Result{WorkItem: updated, Warning: warning}, nil
}

// AssignOwner sets or clears (nil) the owner. Any owner may be assigned
// regardless of status.
func (a *Agent) AssignOwner(ctx context.Context, tenantID, id string, ownerID *string) (Result, error) {
	unlock := a.locks.lock(tenantID + "|" + id)
	defer unlock()

	current, err := a.store.GetWorkItem(ctx, tenantID, id)
	if err != nil {
		return Result{}, fmt.Errorf("loading work item: %w", err)
	}
	if current == nil {
		return Result{}, domain.ErrNotFound
	}

	if err := a.store.AssignOwner(ctx, tenantID, id, ownerID); err != nil {
		return Result{}, fmt.Errorf("assigning owner: %w", err)
	}

	warning := a.appendAudit(ctx, audit.New(tenantID, id, domain.AuditOwnerAssigned, "", map[string]any{
		"from": current.OwnerID,
		"to":   ownerID,
	}, a.now()))

	updated, err := a.store.GetWorkItem(ctx, tenantID, id)
	if err != nil {
		return Result{}, fmt.Errorf("reloading work item: %w", err)
	}

	return Result{WorkItem: updated, Warning: warning}, nil
}

// Get is a tenant-scoped read-through. Missing items surface ErrNotFound.
func (a *Agent) Get(ctx context.Context, tenantID, id string) (*domain.WorkItem, error) {
	item, err := a.store.GetWorkItem(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("loading work item: %w", err)
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

// List is a tenant-scoped read-through to the store's list operation.
func (a *Agent) List(ctx context.Context, tenantID string, opts store.ListOptions) ([]domain.WorkItem, error) {
	return a.store.ListWorkItems(ctx, tenantID, opts)
}

// Audit returns the oldest-first audit stream for one work item.
func (a *Agent) Audit(ctx context.Context, tenantID, workItemID string, limit int) ([]domain.AuditEvent, error) {
	return a.store.ListAudit(ctx, tenantID, workItemID, limit)
}

// appendAudit records an audit event and converts a failure into a
// degraded-success warning. The preceding mutation stands either way.
func (a *Agent) appendAudit(ctx context.Context, ev domain.AuditEvent) string {
	if err := a.store.AppendAudit(ctx, ev); err != nil {
		a.logger.Error("audit append failed",
			"tenant_id", ev.TenantID,
			"work_item_id", ev.WorkItemID,
			"type", ev.Type,
			"error", err,
		)
		return fmt.Sprintf("audit append failed for %s: %v", ev.Type, err)
	}
	return ""
}

func (a *Agent) notify(ctx context.Context, kind string, item domain.WorkItem) {
	if a.notifier == nil {
		return
	}
	if err := a.notifier.Enqueue(ctx, kind, item); err != nil {
		a.logger.Error("notification enqueue failed",
			"tenant_id", item.TenantID,
			"work_item_id", item.ID,
			"kind", kind,
			"error", err,
		)
	}
}
