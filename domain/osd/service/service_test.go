// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package service

import (
	"context"

	"github.com/juju/errors"
	"github.com/juju/testing"
	"go.uber.org/mock/gomock"
	gc "gopkg.in/check.v1"

	"github.com/canonical/microceph-osd/domain/osd"
	osdtesting "github.com/canonical/microceph-osd/domain/osd/testing"
)

// baseSuite wires a Service to gomock collaborators and an in-memory
// index.
type baseSuite struct {
	testing.IsolationSuite

	state   *osdtesting.MemoryState
	cluster *MockCluster
	storage *MockStorageProvider
	status  *MockStatusSetter

	devices map[string]string
}

func (s *baseSuite) setupMocks(c *gc.C, records ...osd.Record) *gomock.Controller {
	ctrl := gomock.NewController(c)

	s.state = osdtesting.NewMemoryState(records...)
	s.cluster = NewMockCluster(ctrl)
	s.storage = NewMockStorageProvider(ctrl)
	s.status = NewMockStatusSetter(ctrl)
	s.devices = make(map[string]string)

	return ctrl
}

func (s *baseSuite) service() *Service {
	return NewService(s.state, s.cluster, s.storage, s.status, s.resolveDevice)
}

func (s *baseSuite) resolveDevice(path string) (string, error) {
	name, ok := s.devices[path]
	if !ok {
		return "", errors.NotFoundf("device %q", path)
	}
	return name, nil
}

func (s *baseSuite) records(c *gc.C) []osd.Record {
	records, err := s.state.Records(context.Background())
	c.Assert(err, gc.IsNil)
	return records
}

func configured(disks ...osd.Disk) osd.DiskList {
	return osd.DiskList{Configured: disks}
}
