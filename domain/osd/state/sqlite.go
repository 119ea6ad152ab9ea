// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package state

import (
	"context"
	"database/sql"

	"github.com/canonical/sqlair"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/canonical/microceph-osd/domain/osd"
	osderrors "github.com/canonical/microceph-osd/domain/osd/errors"
)

var logger = loggo.GetLogger("microceph.domain.osd.state")

const schema = `
CREATE TABLE IF NOT EXISTS osd_record (
    number  INTEGER PRIMARY KEY,
    disk_id TEXT NOT NULL UNIQUE,
    source  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS config_cache (
    id         INTEGER PRIMARY KEY CHECK (id = 0),
    expression TEXT NOT NULL,
    wipe       BOOLEAN NOT NULL,
    encrypt    BOOLEAN NOT NULL
);`

// SQLiteState holds the OSD index and config cache in a SQLite database.
type SQLiteState struct {
	sqldb *sql.DB
	db    *sqlair.DB

	selectRecords      *sqlair.Statement
	selectRecordByDisk *sqlair.Statement
	deleteDiskRecord   *sqlair.Statement
	upsertRecord       *sqlair.Statement
	deleteRecord       *sqlair.Statement
	selectConfigCache  *sqlair.Statement
	upsertConfigCache  *sqlair.Statement
	deleteConfigCache  *sqlair.Statement
}

// NewSQLiteState opens the database at path, creating the schema if
// needed.
func NewSQLiteState(ctx context.Context, path string) (*SQLiteState, error) {
	sqldb, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, errors.Annotatef(err, "opening osd database %q", path)
	}
	if _, err := sqldb.ExecContext(ctx, schema); err != nil {
		_ = sqldb.Close()
		return nil, errors.Annotate(err, "creating osd schema")
	}

	st := &SQLiteState{
		sqldb: sqldb,
		db:    sqlair.NewDB(sqldb),
	}
	if err := st.prepare(); err != nil {
		_ = sqldb.Close()
		return nil, errors.Trace(err)
	}
	return st, nil
}

func (s *SQLiteState) prepare() error {
	var err error
	prepare := func(query string, typeSamples ...any) *sqlair.Statement {
		if err != nil {
			return nil
		}
		var stmt *sqlair.Statement
		stmt, err = sqlair.Prepare(query, typeSamples...)
		return stmt
	}

	s.selectRecords = prepare(`
SELECT &dbRecord.*
FROM   osd_record
ORDER BY number`, dbRecord{})

	s.selectRecordByDisk = prepare(`
SELECT &dbRecord.*
FROM   osd_record
WHERE  disk_id = $dbRecord.disk_id`, dbRecord{})

	s.deleteDiskRecord = prepare(`
DELETE FROM osd_record
WHERE  disk_id = $dbRecord.disk_id
AND    number != $dbRecord.number`, dbRecord{})

	s.upsertRecord = prepare(`
INSERT INTO osd_record (number, disk_id, source)
VALUES ($dbRecord.number, $dbRecord.disk_id, $dbRecord.source)
ON CONFLICT (number) DO UPDATE SET
    disk_id = excluded.disk_id,
    source = excluded.source`, dbRecord{})

	s.deleteRecord = prepare(`
DELETE FROM osd_record
WHERE  number = $dbRecord.number`, dbRecord{})

	s.selectConfigCache = prepare(`
SELECT &dbConfigCache.*
FROM   config_cache
WHERE  id = 0`, dbConfigCache{})

	s.upsertConfigCache = prepare(`
INSERT INTO config_cache (id, expression, wipe, encrypt)
VALUES (0, $dbConfigCache.expression, $dbConfigCache.wipe, $dbConfigCache.encrypt)
ON CONFLICT (id) DO UPDATE SET
    expression = excluded.expression,
    wipe = excluded.wipe,
    encrypt = excluded.encrypt`, dbConfigCache{})

	s.deleteConfigCache = prepare(`DELETE FROM config_cache`)

	return errors.Annotate(err, "preparing osd statements")
}

// Close closes the database.
func (s *SQLiteState) Close() error {
	return s.sqldb.Close()
}

func (s *SQLiteState) txn(ctx context.Context, fn func(context.Context, *sqlair.TX) error) error {
	tx, err := s.db.Begin(ctx, nil)
	if err != nil {
		return errors.Annotate(err, "beginning transaction")
	}
	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Warningf("rolling back transaction: %v", rbErr)
		}
		return err
	}
	return errors.Annotate(tx.Commit(), "committing transaction")
}

func (s *SQLiteState) records(ctx context.Context, tx *sqlair.TX) ([]osd.Record, error) {
	var rows []dbRecord
	err := tx.Query(ctx, s.selectRecords).GetAll(&rows)
	if errors.Is(err, sqlair.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Annotate(err, "selecting osd records")
	}
	records := make([]osd.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toRecord())
	}
	return records, nil
}

// Records returns every record, sorted by OSD number.
func (s *SQLiteState) Records(ctx context.Context) ([]osd.Record, error) {
	var records []osd.Record
	err := s.txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		var err error
		records, err = s.records(ctx, tx)
		return err
	})
	return records, errors.Trace(err)
}

// RecordByDiskID returns the record for the disk, or an error satisfying
// RecordNotFound.
func (s *SQLiteState) RecordByDiskID(ctx context.Context, diskID string) (osd.Record, error) {
	row := dbRecord{DiskID: diskID}
	err := s.txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		return tx.Query(ctx, s.selectRecordByDisk, row).Get(&row)
	})
	if errors.Is(err, sqlair.ErrNoRows) {
		return osd.Record{}, errors.Annotatef(osderrors.RecordNotFound, "disk %q", diskID)
	} else if err != nil {
		return osd.Record{}, errors.Annotatef(err, "selecting osd record for disk %q", diskID)
	}
	return row.toRecord(), nil
}

// SetRecord stores the record under its OSD number.
func (s *SQLiteState) SetRecord(ctx context.Context, record osd.Record) error {
	if err := record.Validate(); err != nil {
		return errors.Trace(err)
	}
	row := dbRecord{
		Number: record.Number,
		DiskID: record.DiskID,
		Source: string(record.Source),
	}
	err := s.txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		if err := tx.Query(ctx, s.deleteDiskRecord, row).Run(); err != nil {
			return errors.Trace(err)
		}
		return errors.Trace(tx.Query(ctx, s.upsertRecord, row).Run())
	})
	return errors.Annotatef(err, "setting record for osd.%d", record.Number)
}

// DeleteRecord removes the record for the OSD number, if any.
func (s *SQLiteState) DeleteRecord(ctx context.Context, number int) error {
	err := s.txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		return tx.Query(ctx, s.deleteRecord, dbRecord{Number: number}).Run()
	})
	return errors.Annotatef(err, "deleting record for osd.%d", number)
}

// PruneRecords removes every record whose OSD number is not in live and
// returns the removed records.
func (s *SQLiteState) PruneRecords(ctx context.Context, live []int) ([]osd.Record, error) {
	var stale []osd.Record
	err := s.txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		records, err := s.records(ctx, tx)
		if err != nil {
			return errors.Trace(err)
		}
		_, stale = osd.PartitionLive(records, live)
		for _, r := range stale {
			if err := tx.Query(ctx, s.deleteRecord, dbRecord{Number: r.Number}).Run(); err != nil {
				return errors.Annotatef(err, "deleting record for osd.%d", r.Number)
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Annotate(err, "pruning osd records")
	}
	return stale, nil
}

// ConfigCache returns the cached declarative configuration and whether
// one is present.
func (s *SQLiteState) ConfigCache(ctx context.Context) (osd.ConfigCache, bool, error) {
	var row dbConfigCache
	err := s.txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		return tx.Query(ctx, s.selectConfigCache).Get(&row)
	})
	if errors.Is(err, sqlair.ErrNoRows) {
		return osd.ConfigCache{}, false, nil
	} else if err != nil {
		return osd.ConfigCache{}, false, errors.Annotate(err, "selecting config cache")
	}
	return row.toConfigCache(), true, nil
}

// SetConfigCache stores the declarative configuration that was applied.
func (s *SQLiteState) SetConfigCache(ctx context.Context, cache osd.ConfigCache) error {
	row := dbConfigCache{
		Expression: cache.Expression,
		Wipe:       cache.Flags.Wipe,
		Encrypt:    cache.Flags.Encrypt,
	}
	err := s.txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		return tx.Query(ctx, s.upsertConfigCache, row).Run()
	})
	return errors.Annotate(err, "setting config cache")
}

// DeleteConfigCache forgets the cached declarative configuration.
func (s *SQLiteState) DeleteConfigCache(ctx context.Context) error {
	err := s.txn(ctx, func(ctx context.Context, tx *sqlair.TX) error {
		return tx.Query(ctx, s.deleteConfigCache).Run()
	})
	return errors.Annotate(err, "deleting config cache")
}
