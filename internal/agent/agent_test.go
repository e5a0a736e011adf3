package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/supportdesk/intake-engine/internal/domain"
	"github.com/supportdesk/intake-engine/internal/preset"
	"github.com/supportdesk/intake-engine/internal/store"
)

type recordingNotifier struct {
	mu    sync.Mutex
	kinds []string
}

func (n *recordingNotifier) Enqueue(ctx context.Context, kind string, item domain.WorkItem) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kinds = append(n.kinds, kind)
	return nil
}

func newTestAgent(t *testing.T) (*Agent, *store.FileStore, *recordingNotifier) {
	t.Helper()
	fs, err := store.OpenFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("opening file store: %v", err)
	}
	notifier := &recordingNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := New(fs, preset.NewRegistry("", 0), preset.ITSupportV1ID, 3600, notifier, logger)
	return a, fs, notifier
}

func outageEvent(tenantID, sender, body string) domain.InboundEvent {
	return domain.InboundEvent{
		TenantID:   tenantID,
		Source:     domain.SourceEmail,
		Sender:     sender,
		Body:       body,
		ReceivedAt: time.Now(),
	}
}

func TestIntake_CreatesWorkItem(t *testing.T) {
	a, _, notifier := newTestAgent(t)
	ctx := context.Background()

	res, err := a.Intake(ctx, outageEvent("t1", "user@example.com", "Production outage, everything is down"))
	if err != nil {
		t.Fatalf("intake: %v", err)
	}
	if res.Duplicated {
		t.Error("first intake must not be a duplicate")
	}
	if res.WorkItem == nil {
		t.Fatal("expected a work item")
	}
	if res.WorkItem.Category != "server_outage" {
		t.Errorf("category = %s, want server_outage", res.WorkItem.Category)
	}
	if res.WorkItem.Priority != domain.PriorityCritical {
		t.Errorf("priority = %s, want critical", res.WorkItem.Priority)
	}
	if res.WorkItem.Status != domain.StatusTriage {
		t.Errorf("status = %s, want triage for critical items", res.WorkItem.Status)
	}

	audit, err := a.Audit(ctx, "t1", res.WorkItem.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(audit) != 1 || audit[0].Type != domain.AuditCreated {
		t.Errorf("audit = %+v, want single created event", audit)
	}
	if audit[0].Actor != domain.ActorSystem {
		t.Errorf("actor = %s, want system", audit[0].Actor)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.kinds) != 1 || notifier.kinds[0] != domain.AuditCreated {
		t.Errorf("notifications = %v, want [created]", notifier.kinds)
	}
}

func TestIntake_DedupeWithinWindow(t *testing.T) {
	a, _, _ := newTestAgent(t)
	ctx := context.Background()

	first, err := a.Intake(ctx, outageEvent("t1", "user@example.com", "VPN will not connect"))
	if err != nil {
		t.Fatal(err)
	}

	// Different raw casing and spacing, same normalized body: same fingerprint.
	second, err := a.Intake(ctx, outageEvent("t1", "user@example.com", "  VPN   Will Not Connect "))
	if err != nil {
		t.Fatal(err)
	}
	if !second.Duplicated {
		t.Fatal("second intake within window must be a duplicate")
	}
	if second.WorkItem.ID != first.WorkItem.ID {
		t.Errorf("duplicate must return the existing item, got %s want %s", second.WorkItem.ID, first.WorkItem.ID)
	}

	items, err := a.List(ctx, "t1", store.ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Errorf("stored items = %d, want 1", len(items))
	}

	audit, err := a.Audit(ctx, "t1", first.WorkItem.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(audit) != 2 {
		t.Fatalf("audit len = %d, want 2", len(audit))
	}
	if audit[0].Type != domain.AuditCreated || audit[1].Type != domain.AuditDuplicateReceived {
		t.Errorf("audit types = [%s %s], want [created duplicate_received]", audit[0].Type, audit[1].Type)
	}
}

func TestIntake_WindowElapsedCreatesNewItem(t *testing.T) {
	a, fs, _ := newTestAgent(t)
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	a.SetNowFunc(clock)
	fs.SetNowFunc(clock)

	first, err := a.Intake(ctx, outageEvent("t1", "user@example.com", "Wifi keeps dropping"))
	if err != nil {
		t.Fatal(err)
	}

	now = now.Add(2 * time.Hour)

	second, err := a.Intake(ctx, outageEvent("t1", "user@example.com", "Wifi keeps dropping"))
	if err != nil {
		t.Fatal(err)
	}
	if second.Duplicated {
		t.Error("intake after the window must create a fresh item")
	}
	if second.WorkItem.ID == first.WorkItem.ID {
		t.Error("expected a new work item id after the window elapsed")
	}
}

func TestIntake_DifferentTenantsNeverDedupe(t *testing.T) {
	a, _, _ := newTestAgent(t)
	ctx := context.Background()

	first, err := a.Intake(ctx, outageEvent("tenant-a", "user@example.com", "Printer jammed"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := a.Intake(ctx, outageEvent("tenant-b", "user@example.com", "Printer jammed"))
	if err != nil {
		t.Fatal(err)
	}
	if second.Duplicated {
		t.Error("identical bodies across tenants must not dedupe")
	}
	if second.WorkItem.ID == first.WorkItem.ID {
		t.Error("tenants must get distinct work items")
	}
}

func TestIntake_RejectsInvalidEvent(t *testing.T) {
	a, _, _ := newTestAgent(t)

	_, err := a.Intake(context.Background(), domain.InboundEvent{
		TenantID:   "t1",
		Source:     domain.SourceEmail,
		Sender:     "user@example.com",
		ReceivedAt: time.Now(),
		// Body missing.
	})
	if !errors.Is(err, domain.ErrInvalidEvent) {
		t.Errorf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestIntake_ConcurrentSameFingerprint(t *testing.T) {
	a, _, _ := newTestAgent(t)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	results := make([]Result, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := a.Intake(ctx, outageEvent("t1", "user@example.com", "Out of disk space"))
			if err != nil {
				t.Errorf("intake %d: %v", i, err)
				return
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	created := 0
	for _, res := range results {
		if !res.Duplicated {
			created++
		}
	}
	if created != 1 {
		t.Errorf("created = %d, want exactly 1 across %d racing intakes", created, n)
	}

	items, err := a.List(ctx, "t1", store.ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Errorf("stored items = %d, want 1", len(items))
	}
}

func TestUpdateStatus_LegalTransition(t *testing.T) {
	a, _, notifier := newTestAgent(t)
	ctx := context.Background()

	res, err := a.Intake(ctx, outageEvent("t1", "user@example.com", "Need access to the shared drive"))
	if err != nil {
		t.Fatal(err)
	}
	id := res.WorkItem.ID

	updated, err := a.UpdateStatus(ctx, "t1", id, domain.StatusTriage)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.WorkItem.Status != domain.StatusTriage {
		t.Errorf("status = %s, want triage", updated.WorkItem.Status)
	}

	audit, err := a.Audit(ctx, "t1", id, 0)
	if err != nil {
		t.Fatal(err)
	}
	last := audit[len(audit)-1]
	if last.Type != domain.AuditStatusChanged {
		t.Errorf("last audit type = %s, want status_changed", last.Type)
	}
	if fmt.Sprint(last.Payload["from"]) != "new" || fmt.Sprint(last.Payload["to"]) != "triage" {
		t.Errorf("payload = %+v, want from=new to=triage", last.Payload)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.kinds) != 2 || notifier.kinds[1] != domain.AuditStatusChanged {
		t.Errorf("notifications = %v, want [created status_changed]", notifier.kinds)
	}
}

func TestUpdateStatus_IllegalTransitionMutatesNothing(t *testing.T) {
	a, _, _ := newTestAgent(t)
	ctx := context.Background()

	res, err := a.Intake(ctx, outageEvent("t1", "user@example.com", "Laptop screen flickering"))
	if err != nil {
		t.Fatal(err)
	}
	id := res.WorkItem.ID

	if _, err := a.UpdateStatus(ctx, "t1", id, domain.StatusResolved); err != nil {
		t.Fatalf("new->resolved should be legal: %v", err)
	}

	_, err = a.UpdateStatus(ctx, "t1", id, domain.StatusInProgress)
	var invalid *domain.InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if invalid.From != domain.StatusResolved || invalid.To != domain.StatusInProgress {
		t.Errorf("error pair = %s->%s, want resolved->in_progress", invalid.From, invalid.To)
	}

	// Stored item is untouched and no extra audit event was appended.
	got, err := a.Get(ctx, "t1", id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusResolved {
		t.Errorf("status = %s, want unchanged resolved", got.Status)
	}
	audit, _ := a.Audit(ctx, "t1", id, 0)
	if len(audit) != 2 {
		t.Errorf("audit len = %d, want created + one status_changed", len(audit))
	}
}

func TestUpdateStatus_SelfTransitionRejected(t *testing.T) {
	a, _, _ := newTestAgent(t)
	ctx := context.Background()

	res, err := a.Intake(ctx, outageEvent("t1", "user@example.com", "Monitor dead pixels"))
	if err != nil {
		t.Fatal(err)
	}

	_, err = a.UpdateStatus(ctx, "t1", res.WorkItem.ID, domain.StatusNew)
	var invalid *domain.InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Errorf("self-transition must be rejected, got %v", err)
	}
}

func TestUpdateStatus_ClosedIsTerminal(t *testing.T) {
	a, _, _ := newTestAgent(t)
	ctx := context.Background()

	res, err := a.Intake(ctx, outageEvent("t1", "user@example.com", "Old request, please close"))
	if err != nil {
		t.Fatal(err)
	}
	id := res.WorkItem.ID

	if _, err := a.UpdateStatus(ctx, "t1", id, domain.StatusClosed); err != nil {
		t.Fatalf("new->closed should be legal: %v", err)
	}
	for _, next := range domain.Statuses {
		if _, err := a.UpdateStatus(ctx, "t1", id, next); err == nil {
			t.Errorf("closed->%s must be rejected", next)
		}
	}
}

func TestUpdateStatus_NotFound(t *testing.T) {
	a, _, _ := newTestAgent(t)

	_, err := a.UpdateStatus(context.Background(), "t1", "missing", domain.StatusTriage)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAssignOwner_SetAndClear(t *testing.T) {
	a, _, _ := newTestAgent(t)
	ctx := context.Background()

	res, err := a.Intake(ctx, outageEvent("t1", "user@example.com", "Keyboard not working"))
	if err != nil {
		t.Fatal(err)
	}
	id := res.WorkItem.ID

	owner := "agent-42"
	assigned, err := a.AssignOwner(ctx, "t1", id, &owner)
	if err != nil {
		t.Fatalf("assign owner: %v", err)
	}
	if assigned.WorkItem.OwnerID == nil || *assigned.WorkItem.OwnerID != owner {
		t.Errorf("owner = %v, want agent-42", assigned.WorkItem.OwnerID)
	}

	cleared, err := a.AssignOwner(ctx, "t1", id, nil)
	if err != nil {
		t.Fatalf("clear owner: %v", err)
	}
	if cleared.WorkItem.OwnerID != nil {
		t.Errorf("owner = %v, want nil after clearing", cleared.WorkItem.OwnerID)
	}

	audit, err := a.Audit(ctx, "t1", id, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(audit) != 3 {
		t.Fatalf("audit len = %d, want created + two owner_assigned", len(audit))
	}
	if audit[1].Type != domain.AuditOwnerAssigned || audit[2].Type != domain.AuditOwnerAssigned {
		t.Errorf("audit types = [%s %s], want owner_assigned twice", audit[1].Type, audit[2].Type)
	}
}

func TestAssignOwner_NotFound(t *testing.T) {
	a, _, _ := newTestAgent(t)

	owner := "agent-1"
	_, err := a.AssignOwner(context.Background(), "t1", "missing", &owner)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// flakyAuditStore fails audit appends on demand while every other
// operation keeps working.
type flakyAuditStore struct {
	*store.FileStore
	failAudit bool
}

func (s *flakyAuditStore) AppendAudit(ctx context.Context, ev domain.AuditEvent) error {
	if s.failAudit {
		return errors.New("audit log unavailable")
	}
	return s.FileStore.AppendAudit(ctx, ev)
}

func newFlakyAgent(t *testing.T) (*Agent, *flakyAuditStore) {
	t.Helper()
	fs, err := store.OpenFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("opening file store: %v", err)
	}
	flaky := &flakyAuditStore{FileStore: fs}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(flaky, preset.NewRegistry("", 0), preset.ITSupportV1ID, 3600, nil, logger), flaky
}

func TestIntake_AuditFailureDegradesToWarning(t *testing.T) {
	a, flaky := newFlakyAgent(t)
	ctx := context.Background()
	flaky.failAudit = true

	res, err := a.Intake(ctx, outageEvent("t1", "user@example.com", "Cannot print anything"))
	if err != nil {
		t.Fatalf("audit failure must not fail the intake: %v", err)
	}
	if res.Warning == "" {
		t.Error("expected a warning when the audit append fails")
	}

	// The work item committed regardless.
	got, err := a.Get(ctx, "t1", res.WorkItem.ID)
	if err != nil {
		t.Fatalf("created item must be readable: %v", err)
	}
	if got.ID != res.WorkItem.ID {
		t.Errorf("stored item = %+v, want %s", got, res.WorkItem.ID)
	}
}

func TestUpdateStatus_AuditFailureDegradesToWarning(t *testing.T) {
	a, flaky := newFlakyAgent(t)
	ctx := context.Background()

	created, err := a.Intake(ctx, outageEvent("t1", "user@example.com", "Screen went dark"))
	if err != nil {
		t.Fatal(err)
	}
	if created.Warning != "" {
		t.Fatalf("unexpected warning before the store degrades: %q", created.Warning)
	}

	flaky.failAudit = true

	res, err := a.UpdateStatus(ctx, "t1", created.WorkItem.ID, domain.StatusInProgress)
	if err != nil {
		t.Fatalf("audit failure must not fail the status change: %v", err)
	}
	if res.Warning == "" {
		t.Error("expected a warning when the audit append fails")
	}
	if res.WorkItem.Status != domain.StatusInProgress {
		t.Errorf("returned status = %s, want in_progress", res.WorkItem.Status)
	}

	// The mutation stands: never rolled back for the sake of the audit row.
	got, err := a.Get(ctx, "t1", created.WorkItem.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusInProgress {
		t.Errorf("stored status = %s, want committed in_progress", got.Status)
	}
}

func TestAssignOwner_AuditFailureDegradesToWarning(t *testing.T) {
	a, flaky := newFlakyAgent(t)
	ctx := context.Background()

	created, err := a.Intake(ctx, outageEvent("t1", "user@example.com", "Mouse double-clicks"))
	if err != nil {
		t.Fatal(err)
	}

	flaky.failAudit = true

	owner := "agent-9"
	res, err := a.AssignOwner(ctx, "t1", created.WorkItem.ID, &owner)
	if err != nil {
		t.Fatalf("audit failure must not fail the assignment: %v", err)
	}
	if res.Warning == "" {
		t.Error("expected a warning when the audit append fails")
	}
	got, err := a.Get(ctx, "t1", created.WorkItem.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.OwnerID == nil || *got.OwnerID != owner {
		t.Errorf("stored owner = %v, want committed agent-9", got.OwnerID)
	}
}

func TestGet_NotFound(t *testing.T) {
	a, _, _ := newTestAgent(t)

	_, err := a.Get(context.Background(), "t1", "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
