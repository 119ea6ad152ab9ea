// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package testing provides test doubles for the osd domain.
package testing

import (
	"context"
	"sync"

	"github.com/juju/errors"
	"github.com/juju/testing"

	"github.com/canonical/microceph-osd/domain/osd"
	osderrors "github.com/canonical/microceph-osd/domain/osd/errors"
)

// MemoryState is an in-memory OSD index and config cache. Calls are
// recorded on the embedded Stub, and errors queued with SetErrors are
// returned in call order.
type MemoryState struct {
	testing.Stub

	mu       sync.Mutex
	records  []osd.Record
	cache    osd.ConfigCache
	hasCache bool
}

// NewMemoryState returns a MemoryState holding records.
func NewMemoryState(records ...osd.Record) *MemoryState {
	st := &MemoryState{}
	for _, r := range records {
		st.records = osd.UpsertRecord(st.records, r)
	}
	return st
}

// Records is part of the service State interface.
func (s *MemoryState) Records(ctx context.Context) ([]osd.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AddCall("Records")
	if err := s.NextErr(); err != nil {
		return nil, err
	}
	return append([]osd.Record(nil), s.records...), nil
}

// RecordByDiskID is part of the service State interface.
func (s *MemoryState) RecordByDiskID(ctx context.Context, diskID string) (osd.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AddCall("RecordByDiskID", diskID)
	if err := s.NextErr(); err != nil {
		return osd.Record{}, err
	}
	for _, r := range s.records {
		if r.DiskID == diskID {
			return r, nil
		}
	}
	return osd.Record{}, errors.Annotatef(osderrors.RecordNotFound, "disk %q", diskID)
}

// SetRecord is part of the service State interface.
func (s *MemoryState) SetRecord(ctx context.Context, record osd.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AddCall("SetRecord", record)
	if err := s.NextErr(); err != nil {
		return err
	}
	if err := record.Validate(); err != nil {
		return errors.Trace(err)
	}
	s.records = osd.UpsertRecord(s.records, record)
	return nil
}

// DeleteRecord is part of the service State interface.
func (s *MemoryState) DeleteRecord(ctx context.Context, number int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AddCall("DeleteRecord", number)
	if err := s.NextErr(); err != nil {
		return err
	}
	var kept []osd.Record
	for _, r := range s.records {
		if r.Number != number {
			kept = append(kept, r)
		}
	}
	s.records = kept
	return nil
}

// PruneRecords is part of the service State interface.
func (s *MemoryState) PruneRecords(ctx context.Context, live []int) ([]osd.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AddCall("PruneRecords", live)
	if err := s.NextErr(); err != nil {
		return nil, err
	}
	var stale []osd.Record
	s.records, stale = osd.PartitionLive(s.records, live)
	return stale, nil
}

// ConfigCache is part of the service State interface.
func (s *MemoryState) ConfigCache(ctx context.Context) (osd.ConfigCache, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AddCall("ConfigCache")
	if err := s.NextErr(); err != nil {
		return osd.ConfigCache{}, false, err
	}
	return s.cache, s.hasCache, nil
}

// SetConfigCache is part of the service State interface.
func (s *MemoryState) SetConfigCache(ctx context.Context, cache osd.ConfigCache) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AddCall("SetConfigCache", cache)
	if err := s.NextErr(); err != nil {
		return err
	}
	s.cache, s.hasCache = cache, true
	return nil
}

// DeleteConfigCache is part of the service State interface.
func (s *MemoryState) DeleteConfigCache(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AddCall("DeleteConfigCache")
	if err := s.NextErr(); err != nil {
		return err
	}
	s.cache, s.hasCache = osd.ConfigCache{}, false
	return nil
}
