package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/supportdesk/intake-engine/internal/domain"
)

func (s *PostgresStore) AppendAudit(ctx context.Context, ev domain.AuditEvent) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("marshaling audit payload: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO audit_events (id, tenant_id, work_item_id, type, actor, payload, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ev.ID, ev.TenantID, ev.WorkItemID, ev.Type, ev.Actor, payload, ev.At)
	if err != nil {
		return fmt.Errorf("inserting audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAudit(ctx context.Context, tenantID, workItemID string, limit int) ([]domain.AuditEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, work_item_id, type, actor, payload, at
		FROM audit_events
		WHERE tenant_id = $1 AND work_item_id = $2
		ORDER BY at ASC
		LIMIT $3
	`, tenantID, workItemID, clampAuditLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying audit events: %w", err)
	}
	defer rows.Close()

	events := []domain.AuditEvent{}
	for rows.Next() {
		var ev domain.AuditEvent
		var payload []byte
		if err := rows.Scan(&ev.ID, &ev.TenantID, &ev.WorkItemID, &ev.Type, &ev.Actor, &payload, &ev.At); err != nil {
			return nil, fmt.Errorf("scanning audit event: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &ev.Payload); err != nil {
				return nil, fmt.Errorf("unmarshaling audit payload: %w", err)
			}
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading audit events: %w", err)
	}

	return events, nil
}
