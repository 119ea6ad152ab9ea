// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package hooktools runs the Juju hook tools available to a charm while
// it handles a hook or action.
package hooktools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/juju/retry"

	"github.com/canonical/microceph-osd/core/status"
	"github.com/canonical/microceph-osd/core/storage"
	"github.com/canonical/microceph-osd/internal/command"
)

var logger = loggo.GetLogger("microceph.hooktools")

const (
	// storageGetAttempts and storageGetDelay bound how long storage-get
	// is retried; the location may not be available when the hook
	// fires.
	storageGetAttempts = 10
	storageGetDelay    = 5 * time.Second
)

// Client runs hook tools.
type Client struct {
	runner command.Runner
	clock  clock.Clock
}

// NewClient returns a Client running tools with runner.
func NewClient(runner command.Runner, clock clock.Clock) *Client {
	return &Client{
		runner: runner,
		clock:  clock,
	}
}

func (c *Client) run(ctx context.Context, tool string, args ...string) ([]byte, error) {
	res, err := c.runner.Run(ctx, tool, args...)
	if err != nil {
		return nil, errors.Annotatef(err, "running %s", tool)
	}
	return res.Stdout, nil
}

func (c *Client) runJSON(ctx context.Context, out any, tool string, args ...string) error {
	stdout, err := c.run(ctx, tool, append([]string{"--format=json"}, args...)...)
	if err != nil {
		return errors.Trace(err)
	}
	if err := json.Unmarshal(stdout, out); err != nil {
		return errors.Annotatef(err, "parsing %s output", tool)
	}
	return nil
}

// StorageList returns the attached storage instances of the named
// directive.
func (c *Client) StorageList(ctx context.Context, name storage.Name) ([]storage.ID, error) {
	var ids []string
	if err := c.runJSON(ctx, &ids, "storage-list", name.String()); err != nil {
		return nil, errors.Trace(err)
	}
	return storage.FilterByName(ids, name), nil
}

// StorageLocation returns the location of a storage instance. The tool is
// retried while it fails or reports no location.
func (c *Client) StorageLocation(ctx context.Context, id storage.ID) (string, error) {
	var location string
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			location = ""
			if err := c.runJSON(ctx, &location, "storage-get", "-s", id.String(), "location"); err != nil {
				return errors.Trace(err)
			}
			if location == "" {
				return errors.NotFoundf("location of %s", id)
			}
			return nil
		},
		NotifyFunc: func(err error, attempt int) {
			logger.Debugf("storage-get for %s failed (attempt %d): %v", id, attempt, err)
		},
		Attempts: storageGetAttempts,
		Delay:    storageGetDelay,
		Clock:    c.clock,
		Stop:     ctx.Done(),
	})
	if err != nil {
		return "", errors.Annotatef(retry.LastError(err), "getting location of %s", id)
	}
	return location, nil
}

// ConfigGet returns the charm configuration.
func (c *Client) ConfigGet(ctx context.Context) (map[string]any, error) {
	var config map[string]any
	if err := c.runJSON(ctx, &config, "config-get"); err != nil {
		return nil, errors.Trace(err)
	}
	return config, nil
}

// ActionGet returns the parameters of the running action.
func (c *Client) ActionGet(ctx context.Context) (map[string]any, error) {
	var params map[string]any
	if err := c.runJSON(ctx, &params, "action-get"); err != nil {
		return nil, errors.Trace(err)
	}
	return params, nil
}

// ActionSet records results of the running action. Values are passed as
// given, so structured values must already be encoded.
func (c *Client) ActionSet(ctx context.Context, results map[string]string) error {
	if len(results) == 0 {
		return nil
	}
	keys := make([]string, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]string, 0, len(keys))
	for _, k := range keys {
		args = append(args, fmt.Sprintf("%s=%s", k, results[k]))
	}
	_, err := c.run(ctx, "action-set", args...)
	return errors.Trace(err)
}

// ActionFail marks the running action as failed.
func (c *Client) ActionFail(ctx context.Context, message string) error {
	_, err := c.run(ctx, "action-fail", message)
	return errors.Trace(err)
}

// SetStatus sets the workload status of the unit.
func (c *Client) SetStatus(ctx context.Context, info status.StatusInfo) error {
	if !status.ValidWorkloadStatus(info.Status) {
		return errors.NotValidf("workload status %q", info.Status)
	}
	_, err := c.run(ctx, "status-set", info.Status.String(), info.Message)
	return errors.Trace(err)
}

// Log writes a message to the unit's debug log.
func (c *Client) Log(ctx context.Context, level loggo.Level, message string) error {
	_, err := c.run(ctx, "juju-log", "-l", level.String(), message)
	return errors.Trace(err)
}
