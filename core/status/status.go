// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package status

import (
	"fmt"
)

// Status represents the workload status a unit reports for the OSDs it
// manages.
type Status string

// String returns a string representation of the Status.
func (s Status) String() string {
	return string(s)
}

// StatusInfo holds a Status and associated information.
type StatusInfo struct {
	Status  Status
	Message string
}

// String returns the status and message as "status: message".
func (i StatusInfo) String() string {
	if i.Message == "" {
		return i.Status.String()
	}
	return fmt.Sprintf("%s: %s", i.Status, i.Message)
}

const (
	// Maintenance is set when:
	// The unit is not yet providing services, but is actively doing stuff
	// in preparation for providing those services.
	// This is a "spinning" state, not an error state.
	Maintenance Status = "maintenance"

	// Waiting is set when:
	// The unit is unable to progress to an active state because the
	// cluster it belongs to is not ready yet.
	Waiting Status = "waiting"

	// Blocked is set when:
	// The unit needs manual intervention to get back to the Running state.
	Blocked Status = "blocked"

	// Active is set when:
	// The unit believes it is correctly offering all the services it has
	// been asked to offer.
	Active Status = "active"
)

// MessageReady is the message reported alongside Active once a
// reconciliation pass has completed.
const MessageReady = "charm is ready"

// ValidWorkloadStatus returns true if status has a valid value (that is to say,
// a value that it's OK to set) for units.
func ValidWorkloadStatus(status Status) bool {
	switch status {
	case
		Blocked,
		Maintenance,
		Waiting,
		Active:
		return true
	default:
		return false
	}
}

// Ready returns the active status reported after a successful pass.
func Ready() StatusInfo {
	return StatusInfo{Status: Active, Message: MessageReady}
}
