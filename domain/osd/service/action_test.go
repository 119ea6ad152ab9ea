// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package service

import (
	"context"

	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	"go.uber.org/mock/gomock"
	gc "gopkg.in/check.v1"

	"github.com/canonical/microceph-osd/domain/osd"
	osderrors "github.com/canonical/microceph-osd/domain/osd/errors"
	"github.com/canonical/microceph-osd/internal/deviceflags"
)

type actionSuite struct {
	baseSuite
}

var _ = gc.Suite(&actionSuite{})

func (s *actionSuite) TestSpecs(c *gc.C) {
	c.Check(AddOSDArgs{}.Specs(), gc.HasLen, 0)
	c.Check(AddOSDArgs{DeviceIDs: " /dev/sdb,, /dev/sdc ", LoopSpec: "4G,3"}.Specs(), jc.DeepEquals, []string{
		"loop,4G,3", "/dev/sdb", "/dev/sdc",
	})
}

func (s *actionSuite) TestAddOSDsNotReady(c *gc.C) {
	defer s.setupMocks(c).Finish()

	s.cluster.EXPECT().Ready(gomock.Any()).Return(false, nil)

	_, err := s.service().AddOSDs(context.Background(), AddOSDArgs{DeviceIDs: "/dev/sdb"})
	c.Check(err, jc.ErrorIs, osderrors.NotReady)
	c.Check(err, gc.ErrorMatches, "node not yet joined in microceph cluster")
}

func (s *actionSuite) TestAddOSDsNoSpecs(c *gc.C) {
	defer s.setupMocks(c).Finish()

	s.cluster.EXPECT().Ready(gomock.Any()).Return(true, nil)

	_, err := s.service().AddOSDs(context.Background(), AddOSDArgs{DeviceIDs: " , "})
	c.Check(err, jc.ErrorIs, errors.NotValid)
}

func (s *actionSuite) TestAddOSDsPartialFailure(c *gc.C) {
	defer s.setupMocks(c).Finish()

	flags := deviceflags.Flags{Wipe: true}
	disks := configured(osd.Disk{OSD: 2, Path: "/dev/sdc"})

	gomock.InOrder(
		s.cluster.EXPECT().Ready(gomock.Any()).Return(true, nil),
		s.cluster.EXPECT().AddSpec(gomock.Any(), "loop,4G,1", flags).Return(errors.New("Error: loop devices unsupported")),
		s.cluster.EXPECT().AddSpec(gomock.Any(), "/dev/sdc", flags).Return(nil),
		s.cluster.EXPECT().ListDisks(gomock.Any(), true).Return(disks, nil),
		s.cluster.EXPECT().ListDisks(gomock.Any(), false).Return(disks, nil),
	)

	results, err := s.service().AddOSDs(context.Background(), AddOSDArgs{
		DeviceIDs: "/dev/sdc",
		LoopSpec:  "4G,1",
		Wipe:      true,
	})
	c.Check(err, gc.ErrorMatches, "1 of 2 specs failed")
	c.Check(results, jc.DeepEquals, []AddOSDResult{
		{Spec: "loop,4G,1", Status: AddOSDFailure, Message: "Error: loop devices unsupported"},
		{Spec: "/dev/sdc", Status: AddOSDSuccess},
	})
	c.Check(s.records(c), jc.DeepEquals, []osd.Record{
		{Number: 2, DiskID: "/dev/sdc", Source: osd.SourceAction},
	})
}

func (s *actionSuite) TestAddOSDsAllFailedSkipsSync(c *gc.C) {
	defer s.setupMocks(c).Finish()

	s.cluster.EXPECT().Ready(gomock.Any()).Return(true, nil)
	s.cluster.EXPECT().AddSpec(gomock.Any(), "/dev/sdb", deviceflags.Flags{}).Return(errors.New("Error: no such device"))

	results, err := s.service().AddOSDs(context.Background(), AddOSDArgs{DeviceIDs: "/dev/sdb"})
	c.Check(err, gc.ErrorMatches, "1 of 1 specs failed")
	c.Check(results, gc.HasLen, 1)
}

func (s *actionSuite) TestAddOSDsSyncFailureIsNotFatal(c *gc.C) {
	defer s.setupMocks(c).Finish()

	s.cluster.EXPECT().Ready(gomock.Any()).Return(true, nil)
	s.cluster.EXPECT().AddSpec(gomock.Any(), "/dev/sdb", deviceflags.Flags{Encrypt: true}).Return(nil)
	s.cluster.EXPECT().ListDisks(gomock.Any(), true).Return(osd.DiskList{}, errors.New("boom"))

	results, err := s.service().AddOSDs(context.Background(), AddOSDArgs{DeviceIDs: "/dev/sdb", Encrypt: true})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(results, jc.DeepEquals, []AddOSDResult{{Spec: "/dev/sdb", Status: AddOSDSuccess}})
}

func (s *actionSuite) TestListDisks(c *gc.C) {
	defer s.setupMocks(c).Finish()

	list := osd.DiskList{
		Configured: []osd.Disk{{OSD: 1, Path: "/dev/sdb", Attributes: map[string]any{"osd": 1}}},
		Available:  []osd.Disk{{OSD: -1, Path: "/dev/sdc"}},
	}
	s.cluster.EXPECT().Ready(gomock.Any()).Return(true, nil)
	s.cluster.EXPECT().ListDisks(gomock.Any(), true).Return(list, nil)

	got, err := s.service().ListDisks(context.Background(), true)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(got, jc.DeepEquals, list)
}

func (s *actionSuite) TestListDisksNotReady(c *gc.C) {
	defer s.setupMocks(c).Finish()

	s.cluster.EXPECT().Ready(gomock.Any()).Return(false, nil)

	_, err := s.service().ListDisks(context.Background(), false)
	c.Check(err, jc.ErrorIs, osderrors.NotReady)
}
