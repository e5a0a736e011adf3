package domain

import (
	"errors"
	"testing"
	"time"
)

func TestInboundEvent_Validate(t *testing.T) {
	valid := InboundEvent{
		TenantID:   "t1",
		Source:     SourceEmail,
		Sender:     "user@example.com",
		Body:       "printer broken",
		ReceivedAt: time.Now(),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*InboundEvent)
	}{
		{"missing tenant id", func(e *InboundEvent) { e.TenantID = "" }},
		{"unknown source", func(e *InboundEvent) { e.Source = "carrier_pigeon" }},
		{"missing sender", func(e *InboundEvent) { e.Sender = "" }},
		{"missing body", func(e *InboundEvent) { e.Body = "" }},
		{"missing received_at", func(e *InboundEvent) { e.ReceivedAt = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := valid
			tt.mutate(&ev)
			if err := ev.Validate(); !errors.Is(err, ErrInvalidEvent) {
				t.Errorf("expected ErrInvalidEvent, got %v", err)
			}
		})
	}
}
