// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package service

import (
	"context"

	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	"go.uber.org/mock/gomock"
	gc "gopkg.in/check.v1"

	"github.com/canonical/microceph-osd/core/status"
	"github.com/canonical/microceph-osd/domain/osd"
	osderrors "github.com/canonical/microceph-osd/domain/osd/errors"
	"github.com/canonical/microceph-osd/internal/deviceflags"
)

type configSuite struct {
	baseSuite
}

var _ = gc.Suite(&configSuite{})

var processing = status.StatusInfo{Status: status.Maintenance, Message: "Processing osd-devices config"}

func (s *configSuite) TestReconcileConfigAppliesOnce(c *gc.C) {
	defer s.setupMocks(c).Finish()

	nvme := configured(osd.Disk{OSD: 0, Path: "/dev/nvme0n1", Location: "node-1"})

	s.cluster.EXPECT().Ready(gomock.Any()).Return(true, nil).Times(2)
	s.status.EXPECT().SetStatus(gomock.Any(), processing).Return(nil)
	s.cluster.EXPECT().AddByMatch(gomock.Any(), "eq(@type,'nvme')", deviceflags.Flags{Wipe: true}).Return(nil)
	s.cluster.EXPECT().ListDisks(gomock.Any(), true).Return(nvme, nil)
	s.cluster.EXPECT().ListDisks(gomock.Any(), false).Return(nvme, nil)

	svc := s.service()

	outcome, err := svc.ReconcileConfig(context.Background(), "eq(@type,'nvme')", "wipe:osd")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(outcome, jc.DeepEquals, osd.AppliedOutcome())

	// The same expression and flags, written differently, is a no-op.
	outcome, err = svc.ReconcileConfig(context.Background(), "  eq(@type,'nvme') ", " WIPE:OSD,wipe:osd")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(outcome, jc.DeepEquals, osd.SkippedOutcome())

	c.Check(s.records(c), jc.DeepEquals, []osd.Record{
		{Number: 0, DiskID: "/dev/nvme0n1", Source: osd.SourceConfigMatch},
	})
	cache, ok, err := s.state.ConfigCache(context.Background())
	c.Assert(err, jc.ErrorIsNil)
	c.Check(ok, jc.IsTrue)
	c.Check(cache, gc.Equals, osd.ConfigCache{
		Expression: "eq(@type,'nvme')",
		Flags:      deviceflags.Flags{Wipe: true},
	})
}

func (s *configSuite) TestReconcileConfigFlagsChangeReapplies(c *gc.C) {
	defer s.setupMocks(c).Finish()

	c.Assert(s.state.SetConfigCache(context.Background(), osd.ConfigCache{Expression: "eq(@type,'nvme')"}), jc.ErrorIsNil)

	s.cluster.EXPECT().Ready(gomock.Any()).Return(true, nil)
	s.status.EXPECT().SetStatus(gomock.Any(), processing).Return(nil)
	s.cluster.EXPECT().AddByMatch(gomock.Any(), "eq(@type,'nvme')", deviceflags.Flags{Encrypt: true}).Return(osderrors.NoDevicesMatched)

	outcome, err := s.service().ReconcileConfig(context.Background(), "eq(@type,'nvme')", "encrypt:osd")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(outcome.Kind, gc.Equals, osd.Applied)
}

func (s *configSuite) TestReconcileConfigNoDevicesMatched(c *gc.C) {
	defer s.setupMocks(c,
		osd.Record{Number: 2, DiskID: "/dev/sdb", Source: osd.SourceAction},
	).Finish()

	s.cluster.EXPECT().Ready(gomock.Any()).Return(true, nil)
	s.status.EXPECT().SetStatus(gomock.Any(), processing).Return(nil)
	s.cluster.EXPECT().AddByMatch(gomock.Any(), "eq(@type,'hdd')", deviceflags.Flags{}).
		Return(errors.Annotate(osderrors.NoDevicesMatched, "Error: no devices matched"))

	outcome, err := s.service().ReconcileConfig(context.Background(), "eq(@type,'hdd')", "")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(outcome.Kind, gc.Equals, osd.Applied)
	c.Check(*outcome.Status, gc.Equals, status.Ready())

	cache, ok, err := s.state.ConfigCache(context.Background())
	c.Assert(err, jc.ErrorIsNil)
	c.Check(ok, jc.IsTrue)
	c.Check(cache.Expression, gc.Equals, "eq(@type,'hdd')")
	c.Check(s.records(c), gc.HasLen, 1)
}

func (s *configSuite) TestReconcileConfigFailureBlocksWithoutCaching(c *gc.C) {
	defer s.setupMocks(c).Finish()

	s.cluster.EXPECT().Ready(gomock.Any()).Return(true, nil).Times(2)
	s.status.EXPECT().SetStatus(gomock.Any(), processing).Return(nil).Times(2)
	s.cluster.EXPECT().AddByMatch(gomock.Any(), "eq(@type,'nvme')", deviceflags.Flags{}).
		Return(errors.New("Error: failed to parse expression")).Times(2)

	svc := s.service()
	for i := 0; i < 2; i++ {
		outcome, err := svc.ReconcileConfig(context.Background(), "eq(@type,'nvme')", "")
		c.Assert(err, jc.ErrorIsNil)
		c.Check(outcome, jc.DeepEquals, osd.BlockedOutcome("Failed to add OSDs via config: Error: failed to parse expression"))
	}

	_, ok, err := s.state.ConfigCache(context.Background())
	c.Assert(err, jc.ErrorIsNil)
	c.Check(ok, jc.IsFalse)
}

func (s *configSuite) TestReconcileConfigInvalidFlags(c *gc.C) {
	defer s.setupMocks(c).Finish()

	s.cluster.EXPECT().Ready(gomock.Any()).Return(true, nil)

	outcome, err := s.service().ReconcileConfig(context.Background(), "eq(@type,'nvme')", "wipe:osd,bogus")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(outcome, jc.DeepEquals, osd.BlockedOutcome(
		`Invalid device-add-flags: unknown flag "bogus", valid flags: encrypt:osd, wipe:osd`,
	))
	s.state.CheckNoCalls(c)
}

func (s *configSuite) TestReconcileConfigNotReady(c *gc.C) {
	defer s.setupMocks(c).Finish()

	s.cluster.EXPECT().Ready(gomock.Any()).Return(false, nil)

	outcome, err := s.service().ReconcileConfig(context.Background(), "eq(@type,'nvme')", "")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(outcome, jc.DeepEquals, osd.DeferredOutcome())
	s.state.CheckNoCalls(c)
}

func (s *configSuite) TestReconcileConfigReadyError(c *gc.C) {
	defer s.setupMocks(c).Finish()

	s.cluster.EXPECT().Ready(gomock.Any()).Return(false, errors.Timeoutf("microceph status"))

	_, err := s.service().ReconcileConfig(context.Background(), "eq(@type,'nvme')", "")
	c.Check(err, jc.ErrorIs, errors.Timeout)
}

func (s *configSuite) TestReconcileConfigClearedKeepsRecords(c *gc.C) {
	records := []osd.Record{
		{Number: 0, DiskID: "/dev/nvme0n1", Source: osd.SourceConfigMatch},
		{Number: 1, DiskID: "osd-standalone/0", Source: osd.SourceLifecycle},
	}
	defer s.setupMocks(c, records...).Finish()
	c.Assert(s.state.SetConfigCache(context.Background(), osd.ConfigCache{Expression: "eq(@type,'nvme')"}), jc.ErrorIsNil)
	s.state.ResetCalls()

	// No status expectation: a cleared expression leaves the unit status alone.
	outcome, err := s.service().ReconcileConfig(context.Background(), "   ", "wipe:osd")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(outcome, jc.DeepEquals, osd.SkippedOutcome())

	s.state.CheckCallNames(c, "DeleteConfigCache")
	c.Check(s.records(c), jc.DeepEquals, records)

	_, ok, err := s.state.ConfigCache(context.Background())
	c.Assert(err, jc.ErrorIsNil)
	c.Check(ok, jc.IsFalse)
}

func (s *configSuite) TestReconcileConfigClearedThenReappliedCallsAgain(c *gc.C) {
	defer s.setupMocks(c).Finish()

	s.cluster.EXPECT().Ready(gomock.Any()).Return(true, nil).Times(2)
	s.status.EXPECT().SetStatus(gomock.Any(), processing).Return(nil).Times(2)
	s.cluster.EXPECT().AddByMatch(gomock.Any(), "eq(@type,'nvme')", deviceflags.Flags{}).
		Return(osderrors.NoDevicesMatched).Times(2)

	svc := s.service()
	_, err := svc.ReconcileConfig(context.Background(), "eq(@type,'nvme')", "")
	c.Assert(err, jc.ErrorIsNil)
	_, err = svc.ReconcileConfig(context.Background(), "", "")
	c.Assert(err, jc.ErrorIsNil)
	_, err = svc.ReconcileConfig(context.Background(), "eq(@type,'nvme')", "")
	c.Assert(err, jc.ErrorIsNil)
}

func (s *configSuite) TestReconcileConfigStatusFailureIsNotFatal(c *gc.C) {
	defer s.setupMocks(c).Finish()

	s.cluster.EXPECT().Ready(gomock.Any()).Return(true, nil)
	s.status.EXPECT().SetStatus(gomock.Any(), processing).Return(errors.New("status-set failed"))
	s.cluster.EXPECT().AddByMatch(gomock.Any(), "eq(@type,'nvme')", deviceflags.Flags{}).Return(osderrors.NoDevicesMatched)

	outcome, err := s.service().ReconcileConfig(context.Background(), "eq(@type,'nvme')", "")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(outcome.Kind, gc.Equals, osd.Applied)
}

func (s *configSuite) TestReconcileConfigClearedKeepsBlockedStatus(c *gc.C) {
	defer s.setupMocks(c).Finish()

	// Blocked by an earlier failure; clearing the expression must not
	// report the unit as ready.
	s.cluster.EXPECT().Ready(gomock.Any()).Return(true, nil)
	s.status.EXPECT().SetStatus(gomock.Any(), processing).Return(nil)
	s.cluster.EXPECT().AddByMatch(gomock.Any(), "eq(@type,'nvme')", deviceflags.Flags{}).
		Return(errors.New("Error: failed to parse expression"))

	svc := s.service()
	outcome, err := svc.ReconcileConfig(context.Background(), "eq(@type,'nvme')", "")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(outcome.Kind, gc.Equals, osd.Blocked)

	outcome, err = svc.ReconcileConfig(context.Background(), "", "")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(outcome, jc.DeepEquals, osd.SkippedOutcome())
	c.Check(outcome.Status, gc.IsNil)
}

func (s *configSuite) TestReconcileConfigRecordFailureStillCaches(c *gc.C) {
	defer s.setupMocks(c).Finish()

	s.cluster.EXPECT().Ready(gomock.Any()).Return(true, nil).Times(2)
	s.status.EXPECT().SetStatus(gomock.Any(), processing).Return(nil)
	s.cluster.EXPECT().AddByMatch(gomock.Any(), "eq(@type,'nvme')", deviceflags.Flags{Wipe: true}).Return(nil)
	s.cluster.EXPECT().ListDisks(gomock.Any(), true).Return(osd.DiskList{}, errors.Timeoutf("microceph disk list"))

	svc := s.service()
	outcome, err := svc.ReconcileConfig(context.Background(), "eq(@type,'nvme')", "wipe:osd")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(outcome, jc.DeepEquals, osd.AppliedOutcome())

	cache, ok, err := s.state.ConfigCache(context.Background())
	c.Assert(err, jc.ErrorIsNil)
	c.Check(ok, jc.IsTrue)
	c.Check(cache, gc.Equals, osd.ConfigCache{
		Expression: "eq(@type,'nvme')",
		Flags:      deviceflags.Flags{Wipe: true},
	})

	// A retried hook must not add the same devices again.
	outcome, err = svc.ReconcileConfig(context.Background(), "eq(@type,'nvme')", "wipe:osd")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(outcome, jc.DeepEquals, osd.SkippedOutcome())
	c.Check(s.records(c), gc.HasLen, 0)
}
