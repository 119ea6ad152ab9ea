// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package service

import (
	"context"
	"fmt"

	"github.com/juju/errors"

	"github.com/canonical/microceph-osd/core/storage"
	"github.com/canonical/microceph-osd/domain/osd"
	osderrors "github.com/canonical/microceph-osd/domain/osd/errors"
)

// RemoveDetaching removes the OSD backed by a detaching storage
// instance. The platform removes the device regardless, so when the
// cluster refuses a graceful removal the OSD is removed forcefully and the
// unit is blocked until a replacement is provided.
func (s *Service) RemoveDetaching(ctx context.Context, id storage.ID) (osd.Outcome, error) {
	record, err := s.st.RecordByDiskID(ctx, id.String())
	if errors.Is(err, osderrors.RecordNotFound) {
		logger.Debugf("storage %s backs no osd", id)
		return osd.SkippedOutcome(), nil
	} else if err != nil {
		return osd.Outcome{}, errors.Trace(err)
	}
	logger.Debugf("storage %s backs osd.%d", id, record.Number)

	err = s.remove(ctx, record.Number, false)
	if err == nil {
		return osd.Outcome{Kind: osd.Applied}, nil
	}
	if !errors.Is(err, osderrors.SafetyPolicyViolation) {
		return osd.Outcome{}, errors.Annotatef(err, "removing osd.%d", record.Number)
	}

	message := fmt.Sprintf("Storage %s detached, provide replacement for osd.%d.", id, record.Number)
	logger.Warningf("%s", message)
	if err := s.remove(ctx, record.Number, true); err != nil {
		return osd.Outcome{}, errors.Annotatef(err, "forcefully removing osd.%d", record.Number)
	}
	return osd.BlockedOutcome(message), nil
}

// remove removes the OSD and drops it from the index. A forced removal
// may have partially succeeded, so the index is pruned even when it
// fails.
func (s *Service) remove(ctx context.Context, number int, force bool) error {
	err := s.cluster.Remove(ctx, number, force)
	if err != nil {
		if force {
			s.pruneAfterRemoval(ctx)
		}
		return err
	}
	if err := s.st.DeleteRecord(ctx, number); err != nil {
		return errors.Annotatef(err, "deleting record for osd.%d", number)
	}
	s.pruneAfterRemoval(ctx)
	return nil
}

func (s *Service) pruneAfterRemoval(ctx context.Context) {
	if err := s.Prune(ctx); err != nil {
		logger.Warningf("pruning osd index after removal: %v", err)
	}
}
