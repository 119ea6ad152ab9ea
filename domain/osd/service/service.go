// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package service

import (
	"context"

	"github.com/juju/loggo"

	"github.com/canonical/microceph-osd/core/status"
	"github.com/canonical/microceph-osd/core/storage"
	"github.com/canonical/microceph-osd/domain/osd"
	"github.com/canonical/microceph-osd/internal/deviceflags"
)

var logger = loggo.GetLogger("microceph.domain.osd.service")

// ManagedStorage is the storage directive whose instances are enrolled
// as OSDs when attached.
const ManagedStorage storage.Name = "osd-standalone"

// State describes retrieval and persistence methods for the OSD index
// and the declarative config cache.
type State interface {
	// Records returns every record, sorted by OSD number.
	Records(ctx context.Context) ([]osd.Record, error)

	// RecordByDiskID returns the record for the disk, or an error
	// satisfying [osderrors.RecordNotFound].
	RecordByDiskID(ctx context.Context, diskID string) (osd.Record, error)

	// SetRecord stores the record under its OSD number.
	SetRecord(ctx context.Context, record osd.Record) error

	// DeleteRecord removes the record for the OSD number, if any.
	DeleteRecord(ctx context.Context, number int) error

	// PruneRecords removes every record whose OSD number is not in live
	// and returns the removed records.
	PruneRecords(ctx context.Context, live []int) ([]osd.Record, error)

	// ConfigCache returns the cached declarative configuration and
	// whether one is present.
	ConfigCache(ctx context.Context) (osd.ConfigCache, bool, error)

	// SetConfigCache stores the declarative configuration that was
	// applied.
	SetConfigCache(ctx context.Context, cache osd.ConfigCache) error

	// DeleteConfigCache forgets the cached declarative configuration.
	DeleteConfigCache(ctx context.Context) error
}

// Cluster describes the microceph operations the service drives.
type Cluster interface {
	// Ready reports whether the local node has joined the cluster.
	Ready(ctx context.Context) (bool, error)

	// AddByMatch enrolls every available disk matched by expr.
	AddByMatch(ctx context.Context, expr string, flags deviceflags.Flags) error

	// AddByPath enrolls the device paths in one call.
	AddByPath(ctx context.Context, paths []string, flags deviceflags.Flags) error

	// AddSpec enrolls a single device path or loop spec.
	AddSpec(ctx context.Context, spec string, flags deviceflags.Flags) error

	// Remove removes an OSD, bypassing the safety checks when force is
	// set.
	Remove(ctx context.Context, number int, force bool) error

	// ListDisks returns the configured and available disks.
	ListDisks(ctx context.Context, hostOnly bool) (osd.DiskList, error)
}

// StorageProvider describes the storage attached to the unit.
type StorageProvider interface {
	// StorageList returns the attached storage instances of the named
	// directive.
	StorageList(ctx context.Context, name storage.Name) ([]storage.ID, error)

	// StorageLocation returns the device path of a storage instance.
	StorageLocation(ctx context.Context, id storage.ID) (string, error)
}

// StatusSetter reports progress while a signal is handled.
type StatusSetter interface {
	SetStatus(ctx context.Context, info status.StatusInfo) error
}

// DeviceResolver returns the kernel device name for a device path.
type DeviceResolver func(path string) (string, error)

// Service reconciles the OSDs of the local node with the lifecycle,
// declarative and operator driven sources of intent.
type Service struct {
	st            State
	cluster       Cluster
	storage       StorageProvider
	status        StatusSetter
	resolveDevice DeviceResolver
}

// NewService returns a new Service.
func NewService(
	st State,
	cluster Cluster,
	storage StorageProvider,
	statusSetter StatusSetter,
	resolveDevice DeviceResolver,
) *Service {
	return &Service{
		st:            st,
		cluster:       cluster,
		storage:       storage,
		status:        statusSetter,
		resolveDevice: resolveDevice,
	}
}

// setStatus reports progress. Failing to do so does not fail the
// operation.
func (s *Service) setStatus(ctx context.Context, st status.Status, message string) {
	info := status.StatusInfo{Status: st, Message: message}
	if err := s.status.SetStatus(ctx, info); err != nil {
		logger.Warningf("setting status %q: %v", info, err)
	}
}
