package engine

import (
	"testing"
	"time"

	"github.com/supportdesk/intake-engine/internal/domain"
	"github.com/supportdesk/intake-engine/internal/preset"
)

func testEvent(body string) domain.InboundEvent {
	return domain.InboundEvent{
		TenantID:   "tenant-1",
		Source:     domain.SourceEmail,
		Sender:     "user@example.com",
		Body:       body,
		ReceivedAt: time.Now(),
	}
}

func TestBuild_ServerOutageIsCritical(t *testing.T) {
	now := time.Date(2025, 10, 26, 12, 0, 0, 0, time.UTC)
	p := preset.ITSupportV1()

	item := Build(testEvent("Server is down, production outage!"), p, now)

	if item.Category != "server_outage" {
		t.Errorf("category = %s, want server_outage", item.Category)
	}
	if item.Priority != domain.PriorityCritical {
		t.Errorf("priority = %s, want critical", item.Priority)
	}
	// Critical items skip the default queue.
	if item.Status != domain.StatusTriage {
		t.Errorf("status = %s, want triage", item.Status)
	}
	if item.SLASeconds != 3600 {
		t.Errorf("sla_seconds = %d, want 3600", item.SLASeconds)
	}
	if item.DueAt == nil || !item.DueAt.Equal(now.Add(time.Hour)) {
		t.Errorf("due_at = %v, want %v", item.DueAt, now.Add(time.Hour))
	}
	if !item.CreatedAt.Equal(now) || !item.UpdatedAt.Equal(now) {
		t.Errorf("timestamps = %v/%v, want %v", item.CreatedAt, item.UpdatedAt, now)
	}
	if item.ID == "" {
		t.Error("id must be generated")
	}
	if len(item.Fingerprint) != 64 {
		t.Errorf("fingerprint length = %d, want 64", len(item.Fingerprint))
	}
	if item.PresetID != preset.ITSupportV1ID {
		t.Errorf("preset_id = %s, want %s", item.PresetID, preset.ITSupportV1ID)
	}
}

func TestBuild_PasswordResetIsNormal(t *testing.T) {
	now := time.Date(2025, 10, 26, 12, 0, 0, 0, time.UTC)
	p := preset.ITSupportV1()

	item := Build(testEvent("I forgot my password"), p, now)

	if item.Category != "auth_password" {
		t.Errorf("category = %s, want auth_password", item.Category)
	}
	if item.Priority != domain.PriorityNormal {
		t.Errorf("priority = %s, want normal", item.Priority)
	}
	if item.Status != domain.StatusNew {
		t.Errorf("status = %s, want new", item.Status)
	}
	if item.SLASeconds != 86400 {
		t.Errorf("sla_seconds = %d, want 86400", item.SLASeconds)
	}
}

func TestBuild_NormalizesBody(t *testing.T) {
	now := time.Now()
	p := preset.ITSupportV1()

	item := Build(testEvent("  My  LAPTOP broke\r\n"), p, now)

	if item.RawBody != "  My  LAPTOP broke\r\n" {
		t.Errorf("raw body must be preserved, got %q", item.RawBody)
	}
	if item.NormalizedBody != "my laptop broke" {
		t.Errorf("normalized body = %q, want %q", item.NormalizedBody, "my laptop broke")
	}
	if item.Category != "hardware_device" {
		t.Errorf("category = %s, want hardware_device", item.Category)
	}
}

func TestBuild_FingerprintUsesNormalizedBody(t *testing.T) {
	now := time.Now()
	p := preset.ITSupportV1()

	a := Build(testEvent("printer BROKEN  today"), p, now)
	b := Build(testEvent("Printer broken today"), p, now)

	if a.Fingerprint != b.Fingerprint {
		t.Error("equivalent bodies must share a fingerprint after normalization")
	}
	if a.ID == b.ID {
		t.Error("each build must generate a fresh id")
	}
}
