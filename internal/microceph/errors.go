// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package microceph

import (
	"strings"

	"github.com/juju/errors"

	osderrors "github.com/canonical/microceph-osd/domain/osd/errors"
	"github.com/canonical/microceph-osd/internal/command"
)

// signatures maps diagnostics printed by microceph to the sentinel errors
// callers act on.
var signatures = []struct {
	match func(msg string) bool
	err   error
}{{
	match: func(msg string) bool {
		return strings.Contains(strings.ToLower(msg), "no devices matched")
	},
	err: osderrors.NoDevicesMatched,
}, {
	match: func(msg string) bool {
		return strings.Contains(msg, "need at least 3 OSDs")
	},
	err: osderrors.SafetyPolicyViolation,
}}

// classifiedError keeps the tool's diagnostic as its message while also
// matching a sentinel.
type classifiedError struct {
	kind  error
	cause error
}

func (e *classifiedError) Error() string {
	return e.cause.Error()
}

func (e *classifiedError) Unwrap() []error {
	return []error{e.kind, e.cause}
}

// classify maps a failed microceph invocation onto the sentinel errors.
// Errors matching no signature are returned unchanged.
func classify(err error) error {
	var cmdErr *command.Error
	if !errors.As(err, &cmdErr) {
		return err
	}
	for _, sig := range signatures {
		if sig.match(cmdErr.Error()) {
			return &classifiedError{kind: sig.err, cause: err}
		}
	}
	return err
}
