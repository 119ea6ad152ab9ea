// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package service

import (
	"context"

	"github.com/juju/collections/set"
	"github.com/juju/errors"

	"github.com/canonical/microceph-osd/domain/osd"
)

// Records returns the OSD index.
func (s *Service) Records(ctx context.Context) ([]osd.Record, error) {
	records, err := s.st.Records(ctx)
	return records, errors.Annotate(err, "reading osd index")
}

// Prune drops every record whose OSD the cluster no longer reports as
// configured.
func (s *Service) Prune(ctx context.Context) error {
	list, err := s.cluster.ListDisks(ctx, false)
	if err != nil {
		return errors.Annotate(err, "listing disks")
	}
	stale, err := s.st.PruneRecords(ctx, list.OSDNumbers())
	if err != nil {
		return errors.Trace(err)
	}
	for _, r := range stale {
		logger.Debugf("pruned osd.%d (%s, %s)", r.Number, r.DiskID, r.Source)
	}
	return nil
}

// syncRecords records every configured disk on this host that the index
// does not know about yet, attributing it to source, then prunes.
func (s *Service) syncRecords(ctx context.Context, source osd.Source) error {
	list, err := s.cluster.ListDisks(ctx, true)
	if err != nil {
		return errors.Annotate(err, "listing host disks")
	}
	records, err := s.st.Records(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	known := set.NewInts()
	for _, r := range records {
		known.Add(r.Number)
	}
	for _, disk := range list.Configured {
		if known.Contains(disk.OSD) || disk.Path == "" {
			continue
		}
		record := osd.Record{
			Number: disk.OSD,
			DiskID: disk.Path,
			Source: source,
		}
		if err := s.st.SetRecord(ctx, record); err != nil {
			return errors.Annotatef(err, "recording osd.%d", disk.OSD)
		}
		logger.Infof("recorded osd.%d on %s (%s)", disk.OSD, disk.Path, source)
	}
	return errors.Trace(s.Prune(ctx))
}
