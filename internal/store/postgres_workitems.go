package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/supportdesk/intake-engine/internal/domain"
)

const workItemColumns = `id, tenant_id, source, sender, subject, raw_body, normalized_body,
	category, priority, preset_id, status, owner_id, sla_seconds, due_at,
	fingerprint, tags, created_at, updated_at`

func (s *PostgresStore) CreateWorkItem(ctx context.Context, item domain.WorkItem) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO work_items (
			id, tenant_id, source, sender, subject, raw_body, normalized_body,
			category, priority, preset_id, status, owner_id, sla_seconds, due_at,
			fingerprint, tags, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`,
		item.ID, item.TenantID, item.Source, item.Sender, item.Subject,
		item.RawBody, item.NormalizedBody, item.Category, item.Priority,
		item.PresetID, item.Status, item.OwnerID, item.SLASeconds, item.DueAt,
		item.Fingerprint, item.Tags, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateID
		}
		return fmt.Errorf("inserting work item: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetWorkItem(ctx context.Context, tenantID, id string) (*domain.WorkItem, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+workItemColumns+`
		FROM work_items WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)

	item, err := scanWorkItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying work item: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) ListWorkItems(ctx context.Context, tenantID string, opts ListOptions) ([]domain.WorkItem, error) {
	limit := clampListLimit(opts.Limit)
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + workItemColumns + ` FROM work_items WHERE tenant_id = $1`
	args := []any{tenantID}
	argIdx := 2

	if opts.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, opts.Status)
		argIdx++
	}
	if opts.Search != "" {
		query += fmt.Sprintf(" AND (normalized_body ILIKE $%d OR sender ILIKE $%d OR COALESCE(subject, '') ILIKE $%d)", argIdx, argIdx, argIdx)
		args = append(args, "%"+escapeLike(opts.Search)+"%")
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY updated_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying work items: %w", err)
	}
	defer rows.Close()

	items := []domain.WorkItem{}
	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning work item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading work items: %w", err)
	}

	return items, nil
}

func (s *PostgresStore) FindByFingerprint(ctx context.Context, tenantID, fingerprint string, windowSeconds int) (*domain.WorkItem, error) {
	// Most recent match only; an older match means no match.
	row := s.pool.QueryRow(ctx, `
		SELECT `+workItemColumns+`
		FROM work_items
		WHERE tenant_id = $1 AND fingerprint = $2
		  AND created_at >= NOW() - make_interval(secs => $3)
		ORDER BY created_at DESC
		LIMIT 1
	`, tenantID, fingerprint, windowSeconds)

	item, err := scanWorkItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying fingerprint: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, tenantID, id string, next domain.Status) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE work_items SET status = $1, updated_at = NOW()
		WHERE tenant_id = $2 AND id = $3
	`, next, tenantID, id)
	if err != nil {
		return fmt.Errorf("updating status: %w", err)
	}
	return nil
}

func (s *PostgresStore) AssignOwner(ctx context.Context, tenantID, id string, ownerID *string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE work_items SET owner_id = $1, updated_at = NOW()
		WHERE tenant_id = $2 AND id = $3
	`, ownerID, tenantID, id)
	if err != nil {
		return fmt.Errorf("assigning owner: %w", err)
	}
	return nil
}

// escapeLike neutralizes LIKE/ILIKE metacharacters so a search string
// matches literally, the same semantics the file store's substring match
// has.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

func scanWorkItem(row pgx.Row) (*domain.WorkItem, error) {
	var item domain.WorkItem
	err := row.Scan(
		&item.ID, &item.TenantID, &item.Source, &item.Sender, &item.Subject,
		&item.RawBody, &item.NormalizedBody, &item.Category, &item.Priority,
		&item.PresetID, &item.Status, &item.OwnerID, &item.SLASeconds, &item.DueAt,
		&item.Fingerprint, &item.Tags, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if item.Tags == nil {
		item.Tags = []string{}
	}
	return &item, nil
}
