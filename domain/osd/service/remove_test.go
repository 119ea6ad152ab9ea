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
)

type removeSuite struct {
	baseSuite
}

var _ = gc.Suite(&removeSuite{})

var tracked = []osd.Record{
	{Number: 1, DiskID: "osd-standalone/0", Source: osd.SourceLifecycle},
	{Number: 3, DiskID: "osd-standalone/1", Source: osd.SourceLifecycle},
}

func (s *removeSuite) TestRemoveDetachingUntracked(c *gc.C) {
	defer s.setupMocks(c, tracked...).Finish()

	outcome, err := s.service().RemoveDetaching(context.Background(), "osd-standalone/7")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(outcome, jc.DeepEquals, osd.SkippedOutcome())
	c.Check(s.records(c), jc.DeepEquals, tracked)
}

func (s *removeSuite) TestRemoveDetaching(c *gc.C) {
	defer s.setupMocks(c, tracked...).Finish()

	gomock.InOrder(
		s.cluster.EXPECT().Remove(gomock.Any(), 3, false).Return(nil),
		s.cluster.EXPECT().ListDisks(gomock.Any(), false).Return(configured(osd.Disk{OSD: 1}), nil),
	)

	outcome, err := s.service().RemoveDetaching(context.Background(), "osd-standalone/1")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(outcome.Kind, gc.Equals, osd.Applied)
	c.Check(s.records(c), jc.DeepEquals, tracked[:1])
}

func (s *removeSuite) TestRemoveDetachingSafetyConflictForces(c *gc.C) {
	defer s.setupMocks(c, tracked...).Finish()

	gomock.InOrder(
		s.cluster.EXPECT().Remove(gomock.Any(), 3, false).
			Return(errors.Annotate(osderrors.SafetyPolicyViolation, "Error: need at least 3 OSDs")),
		s.cluster.EXPECT().Remove(gomock.Any(), 3, true).Return(nil),
		s.cluster.EXPECT().ListDisks(gomock.Any(), false).Return(configured(osd.Disk{OSD: 1}), nil),
	)

	outcome, err := s.service().RemoveDetaching(context.Background(), "osd-standalone/1")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(outcome.Kind, gc.Equals, osd.Blocked)
	c.Check(*outcome.Status, gc.Equals, status.StatusInfo{
		Status:  status.Blocked,
		Message: "Storage osd-standalone/1 detached, provide replacement for osd.3.",
	})
	c.Check(s.records(c), jc.DeepEquals, tracked[:1])
}

func (s *removeSuite) TestRemoveDetachingForcedFailurePrunes(c *gc.C) {
	defer s.setupMocks(c, tracked...).Finish()

	gomock.InOrder(
		s.cluster.EXPECT().Remove(gomock.Any(), 3, false).Return(osderrors.SafetyPolicyViolation),
		s.cluster.EXPECT().Remove(gomock.Any(), 3, true).Return(errors.New("Error: osd busy")),
		s.cluster.EXPECT().ListDisks(gomock.Any(), false).Return(configured(osd.Disk{OSD: 1}), nil),
	)

	_, err := s.service().RemoveDetaching(context.Background(), "osd-standalone/1")
	c.Assert(err, gc.ErrorMatches, "forcefully removing osd.3: Error: osd busy")
	c.Check(s.records(c), jc.DeepEquals, tracked[:1])
}

func (s *removeSuite) TestRemoveDetachingOtherFailure(c *gc.C) {
	defer s.setupMocks(c, tracked...).Finish()

	s.cluster.EXPECT().Remove(gomock.Any(), 1, false).Return(errors.New("Error: connection refused"))

	_, err := s.service().RemoveDetaching(context.Background(), "osd-standalone/0")
	c.Assert(err, gc.ErrorMatches, "removing osd.1: Error: connection refused")
	c.Check(s.records(c), jc.DeepEquals, tracked)
}

func (s *removeSuite) TestRemoveDetachingPruneFailureIsNotFatal(c *gc.C) {
	defer s.setupMocks(c, tracked...).Finish()

	s.cluster.EXPECT().Remove(gomock.Any(), 1, false).Return(nil)
	s.cluster.EXPECT().ListDisks(gomock.Any(), false).Return(osd.DiskList{}, errors.New("boom"))

	outcome, err := s.service().RemoveDetaching(context.Background(), "osd-standalone/0")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(outcome.Kind, gc.Equals, osd.Applied)
	c.Check(s.records(c), jc.DeepEquals, tracked[1:])
}
