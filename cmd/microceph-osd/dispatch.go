// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo"

	"github.com/canonical/microceph-osd/domain/osd/service"
	"github.com/canonical/microceph-osd/internal/cmd"
	"github.com/canonical/microceph-osd/internal/command"
	"github.com/canonical/microceph-osd/internal/dispatch"
	"github.com/canonical/microceph-osd/internal/hooktools"
	"github.com/canonical/microceph-osd/internal/metrics"
	"github.com/canonical/microceph-osd/internal/microceph"
)

const dispatchCommandName = "dispatch"

const defaultLockTimeout = 10 * time.Minute

const dispatchDoc = `
Handles the hook or action Juju is dispatching, as named by
JUJU_DISPATCH_PATH. Actions unrelated to OSDs are ignored.

Signals that arrive before the node has joined the microceph cluster are
deferred and handled again by the next hook, whichever it is.
`

type dispatchCommand struct {
	baseCommand

	getenv      func(string) string
	runner      command.Runner
	clock       clock.Clock
	metricsFile string
	cliTimeout  time.Duration
	lockTimeout time.Duration
	microceph   string
}

func newDispatchCommand(getenv func(string) string) *dispatchCommand {
	return &dispatchCommand{
		getenv: getenv,
		runner: command.ExecRunner{},
		clock:  clock.WallClock,
	}
}

func (c *dispatchCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:    "microceph-osd " + dispatchCommandName,
		Purpose: "Reconcile OSDs for the dispatched hook or action.",
		Doc:     dispatchDoc,
	}
}

func (c *dispatchCommand) SetFlags(f *gnuflag.FlagSet) {
	c.baseCommand.SetFlags(f)
	f.StringVar(&c.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")
	f.DurationVar(&c.cliTimeout, "cli-timeout", microceph.DefaultTimeout, "Timeout for each microceph invocation")
	f.DurationVar(&c.lockTimeout, "lock-timeout", defaultLockTimeout, "Timeout acquiring the machine lock")
	f.StringVar(&c.microceph, "microceph", microceph.Command, "The microceph executable")
}

func (c *dispatchCommand) Init(args []string) error {
	if err := cmd.CheckEmpty(args); err != nil {
		return errors.Trace(err)
	}
	if c.cliTimeout <= 0 {
		return errors.NotValidf("cli-timeout %v", c.cliTimeout)
	}
	return c.baseCommand.Init(args)
}

func (c *dispatchCommand) Run(ctx *cmd.Context) error {
	queue := dispatch.NewDeferredQueue(filepath.Join(c.stateDir, queueFile))
	info, ok := dispatch.SignalFromEnv(c.getenv)
	if !ok {
		if !dispatch.IsHook(c.getenv) {
			logger.Debugf("nothing to do for %q", c.getenv(dispatch.EnvDispatchPath))
			return nil
		}
		empty, err := queue.Empty()
		if err != nil {
			return errors.Trace(err)
		}
		if empty {
			logger.Debugf("nothing deferred, nothing to do for %q", c.getenv(dispatch.EnvDispatchPath))
			return nil
		}
	}

	tools := hooktools.NewClient(c.runner, c.clock)
	if err := loggo.RegisterWriter("juju-log", hooktools.NewLogWriter(tools, loggo.WARNING)); err != nil {
		logger.Debugf("forwarding logs to juju-log: %v", err)
	}
	defer func() { _, _ = loggo.RemoveWriter("juju-log") }()

	if err := os.MkdirAll(c.stateDir, 0700); err != nil {
		return errors.Annotatef(err, "creating state dir %q", c.stateDir)
	}

	collector := metrics.NewMetricsCollector()
	cluster, err := microceph.NewClient(microceph.Config{
		Binary:   c.microceph,
		Runner:   c.runner,
		Clock:    c.clock,
		Timeout:  c.cliTimeout,
		Observer: collector.ObserveCLI,
	})
	if err != nil {
		return errors.Trace(err)
	}

	st, err := c.openState(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	defer st.Close()

	dispatcher, err := dispatch.NewDispatcher(dispatch.Config{
		Service:   service.NewService(st, cluster, tools, tools, microceph.DeviceName),
		HookTools: tools,
		Queue:     queue,
		Lock:      dispatch.MachineLock(c.clock, c.lockTimeout),
		Metrics:   collector,
	})
	if err != nil {
		return errors.Trace(err)
	}

	var what string
	if ok {
		what = info.String()
		logger.Infof("handling %s", what)
		err = dispatcher.Dispatch(ctx, info)
	} else {
		what = "deferred signals"
		logger.Infof("replaying deferred signals for %q", c.getenv(dispatch.EnvDispatchPath))
		err = dispatcher.Replay(ctx)
	}

	if c.metricsFile != "" {
		if mErr := metrics.WriteTextfile(ctx.AbsPath(c.metricsFile), collector); mErr != nil {
			logger.Warningf("%v", mErr)
		}
	}
	return errors.Annotatef(err, "handling %s", what)
}
