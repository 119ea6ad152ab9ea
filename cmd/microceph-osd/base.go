// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"context"
	"path/filepath"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo"

	"github.com/canonical/microceph-osd/domain/osd/service"
	"github.com/canonical/microceph-osd/domain/osd/state"
)

var logger = loggo.GetLogger("microceph.cmd.microceph-osd")

const (
	defaultStateDir = "/var/lib/microceph-osd"
	defaultLogLevel = "<root>=INFO"

	storeYAML   = "yaml"
	storeSQLite = "sqlite"

	yamlIndexFile   = "osd-index.yaml"
	sqliteIndexFile = "osd-index.db"
	queueFile       = "deferred.yaml"
)

// baseCommand holds the flags shared by every subcommand.
type baseCommand struct {
	stateDir string
	store    string
	logLevel string
}

func (c *baseCommand) SetFlags(f *gnuflag.FlagSet) {
	f.StringVar(&c.stateDir, "state-dir", defaultStateDir, "Directory holding the OSD index and deferred signals")
	f.StringVar(&c.store, "store", storeYAML, "OSD index store (yaml|sqlite)")
	f.StringVar(&c.logLevel, "log-level", defaultLogLevel, "Logging configuration, as accepted by loggo")
}

func (c *baseCommand) Init(args []string) error {
	switch c.store {
	case storeYAML, storeSQLite:
	default:
		return errors.NotValidf("store %q", c.store)
	}
	if c.stateDir == "" {
		return errors.NotValidf("empty state-dir")
	}
	if err := loggo.ConfigureLoggers(c.logLevel); err != nil {
		return errors.Annotate(err, "configuring loggers")
	}
	return nil
}

// indexState is a service.State that may hold resources.
type indexState interface {
	service.State
	Close() error
}

type fileState struct {
	*state.FileState
}

func (fileState) Close() error { return nil }

// openState opens the configured OSD index store.
func (c *baseCommand) openState(ctx context.Context) (indexState, error) {
	switch c.store {
	case storeSQLite:
		st, err := state.NewSQLiteState(ctx, filepath.Join(c.stateDir, sqliteIndexFile))
		if err != nil {
			return nil, errors.Trace(err)
		}
		return st, nil
	default:
		return fileState{state.NewFileState(filepath.Join(c.stateDir, yamlIndexFile))}, nil
	}
}
