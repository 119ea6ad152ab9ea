// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package state

import (
	"context"
	"os"
	"sync"

	"github.com/juju/errors"
	"github.com/juju/utils/v4"

	"github.com/canonical/microceph-osd/domain/osd"
	osderrors "github.com/canonical/microceph-osd/domain/osd/errors"
)

// document is the on-disk layout of a FileState.
type document struct {
	Records     []osd.Record     `yaml:"records,omitempty"`
	ConfigCache *osd.ConfigCache `yaml:"config-cache,omitempty"`
}

// FileState holds the OSD index and config cache in a YAML file. Every
// mutation rewrites the file atomically.
type FileState struct {
	mu   sync.Mutex
	path string
}

// NewFileState returns a FileState using path. The file is created on
// first write.
func NewFileState(path string) *FileState {
	return &FileState{path: path}
}

func (f *FileState) read() (document, error) {
	var doc document
	if err := utils.ReadYaml(f.path, &doc); err != nil {
		if os.IsNotExist(err) {
			return document{}, nil
		}
		return document{}, errors.Annotatef(err, "reading osd state %q", f.path)
	}
	return doc, nil
}

func (f *FileState) write(doc document) error {
	osd.SortRecords(doc.Records)
	return errors.Annotatef(utils.WriteYaml(f.path, doc), "writing osd state %q", f.path)
}

// Records returns every record, sorted by OSD number.
func (f *FileState) Records(ctx context.Context) ([]osd.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return nil, errors.Trace(err)
	}
	osd.SortRecords(doc.Records)
	return doc.Records, nil
}

// RecordByDiskID returns the record for the disk, or an error satisfying
// RecordNotFound.
func (f *FileState) RecordByDiskID(ctx context.Context, diskID string) (osd.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return osd.Record{}, errors.Trace(err)
	}
	for _, r := range doc.Records {
		if r.DiskID == diskID {
			return r, nil
		}
	}
	return osd.Record{}, errors.Annotatef(osderrors.RecordNotFound, "disk %q", diskID)
}

// SetRecord stores the record under its OSD number.
func (f *FileState) SetRecord(ctx context.Context, record osd.Record) error {
	if err := record.Validate(); err != nil {
		return errors.Trace(err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return errors.Trace(err)
	}
	doc.Records = osd.UpsertRecord(doc.Records, record)
	return f.write(doc)
}

// DeleteRecord removes the record for the OSD number, if any.
func (f *FileState) DeleteRecord(ctx context.Context, number int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return errors.Trace(err)
	}
	var kept []osd.Record
	for _, r := range doc.Records {
		if r.Number != number {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(doc.Records) {
		return nil
	}
	doc.Records = kept
	return f.write(doc)
}

// PruneRecords removes every record whose OSD number is not in live and
// returns the removed records.
func (f *FileState) PruneRecords(ctx context.Context, live []int) ([]osd.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return nil, errors.Trace(err)
	}
	kept, stale := osd.PartitionLive(doc.Records, live)
	if len(stale) == 0 {
		return nil, nil
	}
	doc.Records = kept
	if err := f.write(doc); err != nil {
		return nil, errors.Trace(err)
	}
	return stale, nil
}

// ConfigCache returns the cached declarative configuration and whether
// one is present.
func (f *FileState) ConfigCache(ctx context.Context) (osd.ConfigCache, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return osd.ConfigCache{}, false, errors.Trace(err)
	}
	if doc.ConfigCache == nil {
		return osd.ConfigCache{}, false, nil
	}
	return *doc.ConfigCache, true, nil
}

// SetConfigCache stores the declarative configuration that was applied.
func (f *FileState) SetConfigCache(ctx context.Context, cache osd.ConfigCache) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return errors.Trace(err)
	}
	doc.ConfigCache = &cache
	return f.write(doc)
}

// DeleteConfigCache forgets the cached declarative configuration.
func (f *FileState) DeleteConfigCache(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return errors.Trace(err)
	}
	if doc.ConfigCache == nil {
		return nil
	}
	doc.ConfigCache = nil
	return f.write(doc)
}
