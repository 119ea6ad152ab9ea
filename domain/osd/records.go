// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package osd

import (
	"sort"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
)

// Validate returns an error satisfying errors.NotValid if the record
// cannot be stored.
func (r Record) Validate() error {
	if r.Number < 0 {
		return errors.NotValidf("osd number %d", r.Number)
	}
	if r.DiskID == "" {
		return errors.NotValidf("empty disk id for osd.%d", r.Number)
	}
	if !r.Source.IsValid() {
		return errors.NotValidf("source %q for osd.%d", r.Source, r.Number)
	}
	return nil
}

// UpsertRecord returns records with r stored under its OSD number. Any
// other record for the same disk is replaced, so a disk maps to at most
// one OSD. The result is sorted by number.
func UpsertRecord(records []Record, r Record) []Record {
	result := make([]Record, 0, len(records)+1)
	for _, existing := range records {
		if existing.Number == r.Number || existing.DiskID == r.DiskID {
			continue
		}
		result = append(result, existing)
	}
	result = append(result, r)
	SortRecords(result)
	return result
}

// PartitionLive splits records into those whose OSD number is in live and
// those that are not.
func PartitionLive(records []Record, live []int) (kept, stale []Record) {
	liveSet := set.NewInts(live...)
	for _, r := range records {
		if liveSet.Contains(r.Number) {
			kept = append(kept, r)
		} else {
			stale = append(stale, r)
		}
	}
	return kept, stale
}

// SortRecords sorts records by OSD number.
func SortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Number < records[j].Number
	})
}
