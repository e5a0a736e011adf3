package engine

import (
	"github.com/supportdesk/intake-engine/internal/domain"
)

// allowedTransitions is the full lifecycle graph. closed is terminal and
// self-transitions are absent on purpose: an idempotent "set to same
// status" request must be rejected so callers detect and handle it
// explicitly instead of silently succeeding.
var allowedTransitions = map[domain.Status][]domain.Status{
	domain.StatusNew:        {domain.StatusTriage, domain.StatusInProgress, domain.StatusWaiting, domain.StatusResolved, domain.StatusClosed},
	domain.StatusTriage:     {domain.StatusInProgress, domain.StatusWaiting, domain.StatusResolved, domain.StatusClosed},
	domain.StatusInProgress: {domain.StatusWaiting, domain.StatusResolved, domain.StatusClosed},
	domain.StatusWaiting:    {domain.StatusInProgress, domain.StatusResolved, domain.StatusClosed},
	domain.StatusResolved:   {domain.StatusClosed},
	domain.StatusClosed:     {},
}

// CanTransition reports whether a status change from -> to is legal.
func CanTransition(from, to domain.Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
