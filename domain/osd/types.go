// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package osd

import (
	"github.com/canonical/microceph-osd/internal/deviceflags"
)

// Source records which driving path enrolled an OSD.
type Source string

const (
	// SourceLifecycle marks OSDs enrolled from an attached storage
	// instance. Their disk ID is the storage ID.
	SourceLifecycle Source = "lifecycle"

	// SourceConfigMatch marks OSDs enrolled by the osd-devices
	// expression. Their disk ID is the device path.
	SourceConfigMatch Source = "config-match"

	// SourceAction marks OSDs enrolled by the add-osd action. Their disk
	// ID is the device path.
	SourceAction Source = "action"
)

// IsValid reports whether the source is known.
func (s Source) IsValid() bool {
	switch s {
	case SourceLifecycle, SourceConfigMatch, SourceAction:
		return true
	}
	return false
}

// Record associates a cluster OSD number with the local disk backing it.
type Record struct {
	Number int    `yaml:"number"`
	DiskID string `yaml:"disk-id"`
	Source Source `yaml:"source"`
}

// ConfigCache is the last declarative configuration that was applied.
type ConfigCache struct {
	Expression string            `yaml:"expression"`
	Flags      deviceflags.Flags `yaml:"flags"`
}

// Disk is a disk reported by "microceph disk list". Configured disks have
// an OSD number; available disks do not.
type Disk struct {
	OSD      int
	Location string
	Path     string

	// Attributes holds every field reported for the disk with the keys
	// lower-cased.
	Attributes map[string]any
}

// DiskList is the result of listing disks.
type DiskList struct {
	Configured []Disk
	Available  []Disk
}

// OSDNumbers returns the OSD numbers of the configured disks.
func (l DiskList) OSDNumbers() []int {
	numbers := make([]int, 0, len(l.Configured))
	for _, d := range l.Configured {
		numbers = append(numbers, d.OSD)
	}
	return numbers
}
