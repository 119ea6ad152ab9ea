// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package service

import (
	"context"

	"github.com/juju/errors"

	"github.com/canonical/microceph-osd/core/status"
	"github.com/canonical/microceph-osd/core/storage"
	"github.com/canonical/microceph-osd/domain/osd"
	osderrors "github.com/canonical/microceph-osd/domain/osd/errors"
	"github.com/canonical/microceph-osd/internal/deviceflags"
)

// pendingStorage is an attached storage instance awaiting enrollment.
type pendingStorage struct {
	id       storage.ID
	location string
}

// EnrollAttached enrolls every attached osd-standalone storage instance
// that has no OSD yet, in a single microceph call.
func (s *Service) EnrollAttached(ctx context.Context) (osd.Outcome, error) {
	ready, err := s.cluster.Ready(ctx)
	if err != nil {
		return osd.Outcome{}, errors.Trace(err)
	}
	if !ready {
		logger.Warningf("microceph not ready yet, deferring storage event")
		return osd.DeferredOutcome(), nil
	}

	if err := s.Prune(ctx); err != nil {
		return osd.Outcome{}, errors.Trace(err)
	}

	ids, err := s.storage.StorageList(ctx, ManagedStorage)
	if err != nil {
		return osd.Outcome{}, errors.Annotatef(err, "listing %s storage", ManagedStorage)
	}
	var enroll []storage.ID
	for _, id := range ids {
		_, err := s.st.RecordByDiskID(ctx, id.String())
		if errors.Is(err, osderrors.RecordNotFound) {
			enroll = append(enroll, id)
			continue
		} else if err != nil {
			return osd.Outcome{}, errors.Trace(err)
		}
		logger.Debugf("storage %s already enrolled", id)
	}
	logger.Debugf("storage to enroll: %v", enroll)
	if len(enroll) == 0 {
		return osd.Outcome{Kind: osd.Applied}, nil
	}

	s.setStatus(ctx, status.Maintenance, "Enrolling OSDs")

	pending := make([]pendingStorage, 0, len(enroll))
	paths := make([]string, 0, len(enroll))
	for _, id := range enroll {
		location, err := s.storage.StorageLocation(ctx, id)
		if err != nil {
			return osd.Outcome{}, errors.Annotatef(err, "resolving location of %s", id)
		}
		pending = append(pending, pendingStorage{id: id, location: location})
		paths = append(paths, location)
	}

	if err := s.cluster.AddByPath(ctx, paths, deviceflags.Flags{}); err != nil {
		return osd.Outcome{}, errors.Annotatef(err, "enrolling %v", paths)
	}

	if err := s.recordAttached(ctx, pending); err != nil {
		return osd.Outcome{}, errors.Trace(err)
	}
	return osd.AppliedOutcome(), nil
}

// recordAttached correlates newly enrolled storage with the OSDs the
// cluster reports for this host by comparing kernel device names.
func (s *Service) recordAttached(ctx context.Context, pending []pendingStorage) error {
	list, err := s.cluster.ListDisks(ctx, true)
	if err != nil {
		return errors.Annotate(err, "listing host disks")
	}

	byDevice := make(map[string]osd.Disk, len(list.Configured))
	for _, disk := range list.Configured {
		name, err := s.resolveDevice(disk.Path)
		if err != nil {
			logger.Debugf("cannot resolve osd.%d device %q: %v", disk.OSD, disk.Path, err)
			continue
		}
		byDevice[name] = disk
	}

	for _, p := range pending {
		name, err := s.resolveDevice(p.location)
		if err != nil {
			logger.Debugf("cannot resolve %s location %q: %v", p.id, p.location, err)
			continue
		}
		disk, ok := byDevice[name]
		if !ok {
			logger.Debugf("no osd found for %s on %s", p.id, name)
			continue
		}
		record := osd.Record{
			Number: disk.OSD,
			DiskID: p.id.String(),
			Source: osd.SourceLifecycle,
		}
		if err := s.st.SetRecord(ctx, record); err != nil {
			return errors.Annotatef(err, "recording osd.%d for %s", disk.OSD, p.id)
		}
		logger.Infof("added osd.%d with storage %s", disk.OSD, p.id)
	}
	return nil
}
