// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package errors

import (
	"github.com/juju/errors"
)

const (
	// NotReady is used when the local node has not yet joined the
	// microceph cluster.
	NotReady = errors.ConstError("node not yet joined in microceph cluster")

	// SafetyPolicyViolation is used when microceph refuses to remove an
	// OSD because the cluster would drop below its minimum OSD count.
	SafetyPolicyViolation = errors.ConstError("removal violates cluster safety policy")

	// NoDevicesMatched is used when a device selection expression
	// matched no available disk.
	NoDevicesMatched = errors.ConstError("no devices matched")

	// RecordNotFound is used when the OSD index holds no record for a
	// disk.
	RecordNotFound = errors.ConstError("osd record not found")
)
