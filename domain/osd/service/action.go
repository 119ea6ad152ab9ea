// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package service

import (
	"context"
	"strings"

	"github.com/juju/errors"

	"github.com/canonical/microceph-osd/domain/osd"
	osderrors "github.com/canonical/microceph-osd/domain/osd/errors"
	"github.com/canonical/microceph-osd/internal/deviceflags"
)

// AddOSDArgs holds the parameters of an add-osd request.
type AddOSDArgs struct {
	// DeviceIDs is a comma separated list of device paths.
	DeviceIDs string

	// LoopSpec, when set, requests a file backed OSD, e.g. "4G,3".
	LoopSpec string

	Wipe    bool
	Encrypt bool
}

// Specs returns the disk add specs requested, loop spec first.
func (a AddOSDArgs) Specs() []string {
	var specs []string
	if a.LoopSpec != "" {
		specs = append(specs, "loop,"+a.LoopSpec)
	}
	for _, id := range strings.Split(a.DeviceIDs, ",") {
		if id = strings.TrimSpace(id); id != "" {
			specs = append(specs, id)
		}
	}
	return specs
}

// AddOSDStatus is the outcome of enrolling a single spec.
type AddOSDStatus string

const (
	AddOSDSuccess AddOSDStatus = "success"
	AddOSDFailure AddOSDStatus = "failure"
)

// AddOSDResult is reported for every requested spec.
type AddOSDResult struct {
	Spec    string
	Status  AddOSDStatus
	Message string
}

// AddOSDs enrolls every requested spec independently. A failing spec
// does not stop the others; when any fails the returned error says so
// alongside the complete results.
func (s *Service) AddOSDs(ctx context.Context, args AddOSDArgs) ([]AddOSDResult, error) {
	if err := s.checkReady(ctx); err != nil {
		return nil, errors.Trace(err)
	}

	specs := args.Specs()
	if len(specs) == 0 {
		return nil, errors.NotValidf("add-osd without device-id or loop-spec")
	}

	flags := deviceflags.Flags{Wipe: args.Wipe, Encrypt: args.Encrypt}
	results := make([]AddOSDResult, 0, len(specs))
	var failed, succeeded int
	for _, spec := range specs {
		err := s.cluster.AddSpec(ctx, spec, flags)
		if err != nil {
			logger.Errorf("failed add-osd for spec=%s flags=%q: %v", spec, flags, err)
			results = append(results, AddOSDResult{
				Spec:    spec,
				Status:  AddOSDFailure,
				Message: err.Error(),
			})
			failed++
			continue
		}
		results = append(results, AddOSDResult{Spec: spec, Status: AddOSDSuccess})
		succeeded++
	}

	if succeeded > 0 {
		if err := s.syncRecords(ctx, osd.SourceAction); err != nil {
			logger.Warningf("recording osds added by action: %v", err)
		}
	}
	if failed > 0 {
		return results, errors.Errorf("%d of %d specs failed", failed, len(specs))
	}
	return results, nil
}

// ListDisks returns the configured and available disks, restricted to
// this host when hostOnly is set.
func (s *Service) ListDisks(ctx context.Context, hostOnly bool) (osd.DiskList, error) {
	if err := s.checkReady(ctx); err != nil {
		return osd.DiskList{}, errors.Trace(err)
	}
	list, err := s.cluster.ListDisks(ctx, hostOnly)
	return list, errors.Annotate(err, "listing disks")
}

func (s *Service) checkReady(ctx context.Context) error {
	ready, err := s.cluster.Ready(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	if !ready {
		return osderrors.NotReady
	}
	return nil
}
