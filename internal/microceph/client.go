// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package microceph drives the microceph CLI on the local host. It is the
// only place that knows the CLI's arguments and its diagnostic text.
package microceph

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/canonical/microceph-osd/domain/osd"
	"github.com/canonical/microceph-osd/internal/command"
	"github.com/canonical/microceph-osd/internal/deviceflags"
)

var logger = loggo.GetLogger("microceph.microceph")

// DefaultTimeout bounds every microceph invocation.
const DefaultTimeout = 180 * time.Second

// Observer is notified after every microceph invocation.
type Observer func(operation string, elapsed time.Duration, err error)

// Config holds the dependencies of a Client.
type Config struct {
	// Binary is the microceph executable, Command when empty.
	Binary string

	Runner  command.Runner
	Clock   clock.Clock
	Timeout time.Duration

	// Observer is optional.
	Observer Observer
}

// Validate returns an error if the config cannot be used to create a
// Client.
func (c Config) Validate() error {
	if c.Runner == nil {
		return errors.NotValidf("nil Runner")
	}
	if c.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if c.Timeout < 0 {
		return errors.NotValidf("negative Timeout")
	}
	return nil
}

// Client runs microceph commands.
type Client struct {
	binary   string
	runner   command.Runner
	clock    clock.Clock
	timeout  time.Duration
	observer Observer
}

// NewClient returns a Client for the given config.
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	c := &Client{
		binary:   config.Binary,
		runner:   config.Runner,
		clock:    config.Clock,
		timeout:  config.Timeout,
		observer: config.Observer,
	}
	if c.binary == "" {
		c.binary = Command
	}
	if c.timeout == 0 {
		c.timeout = DefaultTimeout
	}
	return c, nil
}

// Ready reports whether the local node has joined the cluster. A status
// probe that runs and fails means the node is not ready; only a timeout
// is an error.
func (c *Client) Ready(ctx context.Context) (bool, error) {
	_, err := c.run(ctx, "status", StatusArgs())
	if err == nil {
		return true, nil
	}
	if errors.Is(err, errors.Timeout) {
		return false, errors.Annotate(err, "probing microceph status")
	}
	logger.Debugf("microceph not ready: %v", err)
	return false, nil
}

// AddByMatch enrolls every available disk matched by expr. An error
// satisfying NoDevicesMatched is returned when nothing matched.
func (c *Client) AddByMatch(ctx context.Context, expr string, flags deviceflags.Flags) error {
	_, err := c.run(ctx, "disk-add-match", DiskAddMatchArgs(expr, flags))
	return err
}

// AddByPath enrolls the given device paths in one call.
func (c *Client) AddByPath(ctx context.Context, paths []string, flags deviceflags.Flags) error {
	if len(paths) == 0 {
		return errors.NotValidf("empty device path list")
	}
	_, err := c.run(ctx, "disk-add", DiskAddArgs(paths, flags))
	return err
}

// AddSpec enrolls a single device path or loop spec.
func (c *Client) AddSpec(ctx context.Context, spec string, flags deviceflags.Flags) error {
	_, err := c.run(ctx, "disk-add", DiskAddArgs([]string{spec}, flags))
	return err
}

// Remove removes an OSD. When force is false the cluster may refuse with
// an error satisfying SafetyPolicyViolation.
func (c *Client) Remove(ctx context.Context, number int, force bool) error {
	_, err := c.run(ctx, "disk-remove", DiskRemoveArgs(number, force))
	return err
}

// ListDisks returns the configured and available disks, restricted to the
// local host when hostOnly is set.
func (c *Client) ListDisks(ctx context.Context, hostOnly bool) (osd.DiskList, error) {
	res, err := c.run(ctx, "disk-list", DiskListArgs(hostOnly))
	if err != nil {
		return osd.DiskList{}, err
	}
	list, err := parseDiskList(res.Stdout)
	return list, errors.Annotate(err, "parsing microceph disk list")
}

func (c *Client) run(ctx context.Context, operation string, args []string) (command.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := c.clock.Now()
	res, err := c.runner.Run(ctx, c.binary, args...)
	if c.observer != nil {
		c.observer(operation, c.clock.Now().Sub(start), err)
	}
	if err != nil {
		return res, classify(err)
	}
	return res, nil
}

type diskListing struct {
	ConfiguredDisks []map[string]any
	AvailableDisks  []map[string]any
}

func parseDiskList(data []byte) (osd.DiskList, error) {
	var listing diskListing
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&listing); err != nil {
		return osd.DiskList{}, errors.Trace(err)
	}

	var list osd.DiskList
	for _, raw := range listing.ConfiguredDisks {
		disk, err := toDisk(raw)
		if err != nil {
			return osd.DiskList{}, errors.Trace(err)
		}
		list.Configured = append(list.Configured, disk)
	}
	for _, raw := range listing.AvailableDisks {
		disk, err := toDisk(raw)
		if err != nil {
			return osd.DiskList{}, errors.Trace(err)
		}
		disk.OSD = -1
		list.Available = append(list.Available, disk)
	}
	return list, nil
}

func toDisk(raw map[string]any) (osd.Disk, error) {
	disk := osd.Disk{
		Attributes: make(map[string]any, len(raw)),
	}
	for k, v := range raw {
		disk.Attributes[strings.ToLower(k)] = v
	}
	disk.Location, _ = disk.Attributes["location"].(string)
	disk.Path, _ = disk.Attributes["path"].(string)

	if n, ok := disk.Attributes["osd"].(json.Number); ok {
		number, err := n.Int64()
		if err != nil {
			return osd.Disk{}, errors.NotValidf("osd number %q", n)
		}
		disk.OSD = int(number)
	}
	return disk, nil
}

// DeviceName returns the kernel name of the block device at path,
// following udev symlinks such as /dev/disk/by-id entries.
func DeviceName(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", errors.Annotatef(err, "resolving device %q", path)
	}
	return filepath.Base(resolved), nil
}
