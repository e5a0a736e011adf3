package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/supportdesk/intake-engine/internal/domain"
	"github.com/supportdesk/intake-engine/internal/preset"
)

// Build assembles a fully-formed, not-yet-persisted work item from an
// inbound event: normalize, classify, fingerprint, stamp. Critical items
// skip the default queue and enter triage immediately; that is intended
// operator behavior.
//
// The caller supplies now so timestamps (and the SLA deadline derived from
// them) stay deterministic under test.
func Build(ev domain.InboundEvent, p *preset.Preset, now time.Time) domain.WorkItem {
	normalized := Normalize(ev.Body)
	category := p.ClassifyCategory(normalized)
	prio := p.ClassifyPriority(normalized, category)
	slaSeconds := p.SLAFor(prio)

	status := domain.StatusNew
	if prio == domain.PriorityCritical {
		status = domain.StatusTriage
	}

	dueAt := now.Add(time.Duration(slaSeconds) * time.Second)

	return domain.WorkItem{
		ID:             uuid.NewString(),
		TenantID:       ev.TenantID,
		Source:         ev.Source,
		Sender:         ev.Sender,
		Subject:        ev.Subject,
		RawBody:        ev.Body,
		NormalizedBody: normalized,
		Category:       category,
		Priority:       prio,
		PresetID:       p.ID,
		Status:         status,
		SLASeconds:     slaSeconds,
		DueAt:          &dueAt,
		Fingerprint:    Fingerprint(ev.TenantID, ev.Sender, normalized, p.ID),
		Tags:           []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
