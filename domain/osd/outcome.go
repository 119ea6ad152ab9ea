// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package osd

import (
	"github.com/canonical/microceph-osd/core/status"
)

// OutcomeKind is the terminal state of handling a signal.
type OutcomeKind string

const (
	// Applied indicates the signal changed the cluster or the index.
	Applied OutcomeKind = "applied"

	// Skipped indicates there was nothing to do.
	Skipped OutcomeKind = "skipped"

	// Deferred indicates the signal must be handled again later.
	Deferred OutcomeKind = "deferred"

	// Blocked indicates operator intervention is required.
	Blocked OutcomeKind = "blocked"
)

// Outcome is returned by the service for every handled signal. Status,
// when set, is the workload status the unit should report.
type Outcome struct {
	Kind   OutcomeKind
	Status *status.StatusInfo
}

// AppliedOutcome returns an Applied outcome reporting the unit ready.
func AppliedOutcome() Outcome {
	ready := status.Ready()
	return Outcome{Kind: Applied, Status: &ready}
}

// SkippedOutcome returns a Skipped outcome with no status change.
func SkippedOutcome() Outcome {
	return Outcome{Kind: Skipped}
}

// DeferredOutcome returns a Deferred outcome with no status change.
func DeferredOutcome() Outcome {
	return Outcome{Kind: Deferred}
}

// BlockedOutcome returns a Blocked outcome with the given message.
func BlockedOutcome(message string) Outcome {
	return Outcome{
		Kind: Blocked,
		Status: &status.StatusInfo{
			Status:  status.Blocked,
			Message: message,
		},
	}
}
