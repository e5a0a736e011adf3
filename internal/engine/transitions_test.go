package engine

import (
	"testing"

	"github.com/supportdesk/intake-engine/internal/domain"
)

// wantAllowed is the full transition table; everything absent is illegal.
var wantAllowed = map[domain.Status]map[domain.Status]bool{
	domain.StatusNew:        {domain.StatusTriage: true, domain.StatusInProgress: true, domain.StatusWaiting: true, domain.StatusResolved: true, domain.StatusClosed: true},
	domain.StatusTriage:     {domain.StatusInProgress: true, domain.StatusWaiting: true, domain.StatusResolved: true, domain.StatusClosed: true},
	domain.StatusInProgress: {domain.StatusWaiting: true, domain.StatusResolved: true, domain.StatusClosed: true},
	domain.StatusWaiting:    {domain.StatusInProgress: true, domain.StatusResolved: true, domain.StatusClosed: true},
	domain.StatusResolved:   {domain.StatusClosed: true},
	domain.StatusClosed:     {},
}

func TestCanTransition_FullMatrix(t *testing.T) {
	for _, from := range domain.Statuses {
		for _, to := range domain.Statuses {
			want := wantAllowed[from][to]
			got := CanTransition(from, to)
			if got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestCanTransition_SelfTransitionsRejected(t *testing.T) {
	for _, s := range domain.Statuses {
		if CanTransition(s, s) {
			t.Errorf("self-transition %s -> %s must be rejected", s, s)
		}
	}
}

func TestCanTransition_ClosedIsTerminal(t *testing.T) {
	for _, to := range domain.Statuses {
		if CanTransition(domain.StatusClosed, to) {
			t.Errorf("closed must have no outbound transition, but closed -> %s allowed", to)
		}
	}
}
