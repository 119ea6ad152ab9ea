// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package state

import (
	"github.com/canonical/microceph-osd/domain/osd"
	"github.com/canonical/microceph-osd/internal/deviceflags"
)

// dbRecord is a row of the osd_record table.
type dbRecord struct {
	Number int    `db:"number"`
	DiskID string `db:"disk_id"`
	Source string `db:"source"`
}

func (r dbRecord) toRecord() osd.Record {
	return osd.Record{
		Number: r.Number,
		DiskID: r.DiskID,
		Source: osd.Source(r.Source),
	}
}

// dbConfigCache is the single row of the config_cache table.
type dbConfigCache struct {
	Expression string `db:"expression"`
	Wipe       bool   `db:"wipe"`
	Encrypt    bool   `db:"encrypt"`
}

func (c dbConfigCache) toConfigCache() osd.ConfigCache {
	return osd.ConfigCache{
		Expression: c.Expression,
		Flags: deviceflags.Flags{
			Wipe:    c.Wipe,
			Encrypt: c.Encrypt,
		},
	}
}
