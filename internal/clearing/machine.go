// Package clearing implements the mutual-consent message-clearing protocol:
// the status transition rules shared by the HTTP handlers and the privileged
// executor, and the client-side coordinator that turns clear-request state
// into the single prompt a user should currently see.
package clearing

import (
	"pairlink-server/internal/models"
)

// transitions is the complete set of legal status moves. Statuses are
// monotonic: nothing ever returns to pending, and denied/completed are
// terminal.
var transitions = map[models.ClearRequestStatus][]models.ClearRequestStatus{
	models.ClearRequestStatusPending: {
		models.ClearRequestStatusAccepted,
		models.ClearRequestStatusDenied,
	},
	models.ClearRequestStatusAccepted: {
		models.ClearRequestStatusCompleted,
	},
}

// CanTransition reports whether a clear request may move from one status to
// another.
func CanTransition(from, to models.ClearRequestStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status admits no further transitions.
func IsTerminal(s models.ClearRequestStatus) bool {
	return len(transitions[s]) == 0
}

// ResponseStatus maps a counterparty response action to the target status.
// Only "accepted" and "denied" are valid responses to a pending request.
func ResponseStatus(action string) (models.ClearRequestStatus, bool) {
	switch models.ClearRequestStatus(action) {
	case models.ClearRequestStatusAccepted:
		return models.ClearRequestStatusAccepted, true
	case models.ClearRequestStatusDenied:
		return models.ClearRequestStatusDenied, true
	}
	return "", false
}
