// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package microceph

import (
	"strconv"

	"github.com/canonical/microceph-osd/internal/deviceflags"
)

// Command is the microceph CLI binary run when no other is configured.
const Command = "microceph"

// StatusArgs returns the arguments used to probe cluster membership.
func StatusArgs() []string {
	return []string{"status"}
}

// DiskAddMatchArgs returns the arguments enrolling every available disk
// matched by the device selection expression.
func DiskAddMatchArgs(expr string, flags deviceflags.Flags) []string {
	return append([]string{"disk", "add", "--osd-match", expr}, flags.Args()...)
}

// DiskAddArgs returns the arguments enrolling the given device paths or
// specs in a single call.
func DiskAddArgs(specs []string, flags deviceflags.Flags) []string {
	args := append([]string{"disk", "add"}, specs...)
	return append(args, flags.Args()...)
}

// DiskRemoveArgs returns the arguments removing an OSD. Forced removal
// bypasses the cluster safety checks.
func DiskRemoveArgs(osd int, force bool) []string {
	args := []string{"disk", "remove", strconv.Itoa(osd)}
	if force {
		args = append(args, "--bypass-safety-checks")
	}
	return args
}

// DiskListArgs returns the arguments listing disks as JSON.
func DiskListArgs(hostOnly bool) []string {
	args := []string{"disk", "list", "--json"}
	if hostOnly {
		args = append(args, "--host-only")
	}
	return args
}
