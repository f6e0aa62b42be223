// Package assignment owns the ticket lifecycle: the state machine and the
// serializable single-winner acceptance transaction.
package assignment

import (
	svcerrors "contractor-matching/internal/common/errors"
	"contractor-matching/internal/models"
)

// transitions is the legal ticket state graph. cancelled is reachable from
// every non-terminal state.
var transitions = map[models.TicketStatus][]models.TicketStatus{
	models.TicketStatusNew:        {models.TicketStatusTriaged, models.TicketStatusAssigned, models.TicketStatusCancelled},
	models.TicketStatusTriaged:    {models.TicketStatusAssigned, models.TicketStatusCancelled},
	models.TicketStatusAssigned:   {models.TicketStatusInProgress, models.TicketStatusCancelled},
	models.TicketStatusInProgress: {models.TicketStatusCompleted, models.TicketStatusCancelled},
	models.TicketStatusCompleted:  {},
	models.TicketStatusCancelled:  {},
}

// CanTransition reports whether from → to is a legal transition.
func CanTransition(from, to models.TicketStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a conflict error when from → to is illegal.
func ValidateTransition(from, to models.TicketStatus) error {
	if !CanTransition(from, to) {
		return svcerrors.NewInvalidTransitionError(string(from), string(to))
	}
	return nil
}

// IsTerminal reports whether a status has no outgoing transitions.
func IsTerminal(status models.TicketStatus) bool {
	return len(transitions[status]) == 0
}

// Acceptable reports whether a ticket in this status can still be accepted.
func Acceptable(status models.TicketStatus) bool {
	return status == models.TicketStatusNew || status == models.TicketStatusTriaged
}
