// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/juju/errors"

	"github.com/canonical/microceph-osd/core/status"
	"github.com/canonical/microceph-osd/domain/osd"
	osderrors "github.com/canonical/microceph-osd/domain/osd/errors"
	"github.com/canonical/microceph-osd/internal/deviceflags"
)

// ReconcileConfig applies the osd-devices selection expression with the
// device-add-flags options. An expression and flag pair is applied at
// most once; clearing the expression forgets the pair without touching
// enrolled OSDs.
func (s *Service) ReconcileConfig(ctx context.Context, expression, flagExpr string) (osd.Outcome, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		logger.Debugf("osd-devices not set, skipping config based enrollment")
		if err := s.st.DeleteConfigCache(ctx); err != nil {
			return osd.Outcome{}, errors.Annotate(err, "resetting osd-devices cache")
		}
		return osd.SkippedOutcome(), nil
	}

	ready, err := s.cluster.Ready(ctx)
	if err != nil {
		return osd.Outcome{}, errors.Trace(err)
	}
	if !ready {
		logger.Warningf("microceph not ready yet, deferring osd-devices processing")
		return osd.DeferredOutcome(), nil
	}

	flags, err := deviceflags.Parse(flagExpr)
	if err != nil {
		logger.Errorf("invalid device-add-flags %q: %v", flagExpr, err)
		return osd.BlockedOutcome(fmt.Sprintf("Invalid device-add-flags: %v", err)), nil
	}

	desired := osd.ConfigCache{Expression: expression, Flags: flags}
	cached, ok, err := s.st.ConfigCache(ctx)
	if err != nil {
		return osd.Outcome{}, errors.Annotate(err, "reading osd-devices cache")
	}
	if ok && cached == desired {
		logger.Debugf("skipping osd-devices processing: unchanged config %q flags %q", expression, flags)
		return osd.SkippedOutcome(), nil
	}

	logger.Infof("processing osd-devices config %q flags %q", expression, flags)
	s.setStatus(ctx, status.Maintenance, "Processing osd-devices config")

	err = s.cluster.AddByMatch(ctx, expression, flags)
	matched := err == nil
	switch {
	case errors.Is(err, osderrors.NoDevicesMatched):
		logger.Infof("no devices matched osd-devices expression %q", expression)
	case err != nil:
		logger.Errorf("failed to process osd-devices config %q: %v", expression, err)
		return osd.BlockedOutcome(fmt.Sprintf("Failed to add OSDs via config: %v", err)), nil
	}

	// The add went through, so the pair is cached even if recording fails.
	if err := s.st.SetConfigCache(ctx, desired); err != nil {
		return osd.Outcome{}, errors.Annotate(err, "updating osd-devices cache")
	}
	if matched {
		if err := s.syncRecords(ctx, osd.SourceConfigMatch); err != nil {
			logger.Warningf("recording config matched osds: %v", err)
		}
	}
	return osd.AppliedOutcome(), nil
}
