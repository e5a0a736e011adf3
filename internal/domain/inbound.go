package domain

import (
	"fmt"
	"time"
)

// InboundEvent is a provider-agnostic inbound message, produced by an
// adapter that has already verified provider authenticity. The core never
// persists the raw event itself.
type InboundEvent struct {
	TenantID   string            `json:"tenant_id"`
	Source     Source            `json:"source"`
	Sender     string            `json:"sender"`
	Subject    *string           `json:"subject,omitempty"`
	Body       string            `json:"body"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	ReceivedAt time.Time         `json:"received_at"`
}

// Validate checks the required fields. Failures wrap ErrInvalidEvent so
// callers can branch on the error class while keeping the field detail.
func (e *InboundEvent) Validate() error {
	if e.TenantID == "" {
		return fmt.Errorf("%w: missing tenant_id", ErrInvalidEvent)
	}
	if !ValidSource(e.Source) {
		return fmt.Errorf("%w: unknown source %q", ErrInvalidEvent, e.Source)
	}
	if e.Sender == "" {
		return fmt.Errorf("%w: missing sender", ErrInvalidEvent)
	}
	if e.Body == "" {
		return fmt.Errorf("%w: missing body", ErrInvalidEvent)
	}
	if e.ReceivedAt.IsZero() {
		return fmt.Errorf("%w: missing received_at", ErrInvalidEvent)
	}
	return nil
}
