package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/supportdesk/intake-engine/internal/domain"
)

// FileStore implements Store on local files, for single-node deployments
// without Postgres and for tests.
//
// Durability contract: the audit trail is an append-only JSONL log opened
// with O_APPEND; the mutable work-item table is a JSON snapshot rewritten
// through a temp file and an atomic rename on every mutation, so a partial
// write is never observable. Both files are mirrored in memory and guarded
// by a single RWMutex: reads see either the pre- or post-write state,
// never a torn record.
type FileStore struct {
	dir       string
	workPath  string
	auditPath string

	now func() time.Time

	mu    sync.RWMutex
	items map[string]domain.WorkItem   // tenantID::id -> item
	audit map[string][]domain.AuditEvent // tenantID::workItemID -> stream
}

// OpenFileStore creates the data directory if needed and loads any
// existing snapshot and audit log.
func OpenFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	s := &FileStore{
		dir:       dir,
		workPath:  filepath.Join(dir, "workitems.json"),
		auditPath: filepath.Join(dir, "audit.jsonl"),
		now:       time.Now,
		items:     make(map[string]domain.WorkItem),
		audit:     make(map[string][]domain.AuditEvent),
	}

	if err := s.loadWorkItems(); err != nil {
		return nil, err
	}
	if err := s.loadAudit(); err != nil {
		return nil, err
	}
	return s, nil
}

// SetNowFunc overrides the clock used for update timestamps and dedupe
// window checks. nil restores the wall clock.
func (s *FileStore) SetNowFunc(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now == nil {
		now = time.Now
	}
	s.now = now
}

func storeKey(tenantID, id string) string {
	return tenantID + "::" + id
}

func (s *FileStore) loadWorkItems() error {
	data, err := os.ReadFile(s.workPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading work item snapshot: %w", err)
	}

	var items []domain.WorkItem
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("parsing work item snapshot: %w", err)
	}
	for _, item := range items {
		s.items[storeKey(item.TenantID, item.ID)] = item
	}
	return nil
}

func (s *FileStore) loadAudit() error {
	f, err := os.Open(s.auditPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev domain.AuditEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			// A torn trailing line from a crash is skipped, not fatal.
			continue
		}
		k := storeKey(ev.TenantID, ev.WorkItemID)
		s.audit[k] = append(s.audit[k], ev)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanning audit log: %w", err)
	}
	return nil
}

// persistLocked writes the work-item snapshot via temp-file-then-rename.
// Callers must hold the write lock.
func (s *FileStore) persistLocked() error {
	items := make([]domain.WorkItem, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshaling work item snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "workitems-*.tmp")
	if err != nil {
		return fmt.Errorf("creating snapshot temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.workPath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

func (s *FileStore) CreateWorkItem(ctx context.Context, item domain.WorkItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := storeKey(item.TenantID, item.ID)
	if _, exists := s.items[k]; exists {
		return domain.ErrDuplicateID
	}
	s.items[k] = item
	if err := s.persistLocked(); err != nil {
		delete(s.items, k)
		return err
	}
	return nil
}

func (s *FileStore) GetWorkItem(ctx context.Context, tenantID, id string) (*domain.WorkItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[storeKey(tenantID, id)]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *FileStore) ListWorkItems(ctx context.Context, tenantID string, opts ListOptions) ([]domain.WorkItem, error) {
	limit := clampListLimit(opts.Limit)
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	search := strings.ToLower(strings.TrimSpace(opts.Search))

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := []domain.WorkItem{}
	for _, item := range s.items {
		if item.TenantID != tenantID {
			continue
		}
		if opts.Status != "" && item.Status != opts.Status {
			continue
		}
		if search != "" {
			subject := ""
			if item.Subject != nil {
				subject = *item.Subject
			}
			hay := strings.ToLower(item.NormalizedBody + " " + item.Sender + " " + subject)
			if !strings.Contains(hay, search) {
				continue
			}
		}
		matched = append(matched, item)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})

	if offset >= len(matched) {
		return []domain.WorkItem{}, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *FileStore) FindByFingerprint(ctx context.Context, tenantID, fingerprint string, windowSeconds int) (*domain.WorkItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var newest *domain.WorkItem
	for k := range s.items {
		item := s.items[k]
		if item.TenantID != tenantID || item.Fingerprint != fingerprint {
			continue
		}
		if newest == nil || item.CreatedAt.After(newest.CreatedAt) {
			newest = &item
		}
	}
	if newest == nil {
		return nil, nil
	}

	// Only the recency of the most recent match matters.
	cutoff := s.now().Add(-time.Duration(windowSeconds) * time.Second)
	if newest.CreatedAt.Before(cutoff) {
		return nil, nil
	}
	return newest, nil
}

func (s *FileStore) UpdateStatus(ctx context.Context, tenantID, id string, next domain.Status) error {
	return s.mutate(tenantID, id, func(item *domain.WorkItem) {
		item.Status = next
	})
}

func (s *FileStore) AssignOwner(ctx context.Context, tenantID, id string, ownerID *string) error {
	return s.mutate(tenantID, id, func(item *domain.WorkItem) {
		item.OwnerID = ownerID
	})
}

// mutate applies fn to an existing item and persists. Missing ids are a
// silent no-op per the Store contract.
func (s *FileStore) mutate(tenantID, id string, fn func(*domain.WorkItem)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := storeKey(tenantID, id)
	prev, ok := s.items[k]
	if !ok {
		return nil
	}

	item := prev
	fn(&item)
	item.UpdatedAt = s.now()

	s.items[k] = item
	if err := s.persistLocked(); err != nil {
		s.items[k] = prev
		return err
	}
	return nil
}

func (s *FileStore) AppendAudit(ctx context.Context, ev domain.AuditEvent) error {
	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling audit event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending audit event: %w", err)
	}

	k := storeKey(ev.TenantID, ev.WorkItemID)
	s.audit[k] = append(s.audit[k], ev)
	return nil
}

func (s *FileStore) ListAudit(ctx context.Context, tenantID, workItemID string, limit int) ([]domain.AuditEvent, error) {
	limit = clampAuditLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	stream := s.audit[storeKey(tenantID, workItemID)]
	if len(stream) > limit {
		stream = stream[:limit]
	}

	out := make([]domain.AuditEvent, len(stream))
	copy(out, stream)
	return out, nil
}
