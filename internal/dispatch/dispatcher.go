// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package dispatch turns a Juju dispatch into calls on the OSD service
// and applies the outcome: workload status, deferral and action results.
package dispatch

import (
	"context"
	"encoding/json"

	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/canonical/microceph-osd/core/signal"
	"github.com/canonical/microceph-osd/core/status"
	"github.com/canonical/microceph-osd/core/storage"
	"github.com/canonical/microceph-osd/domain/osd"
	"github.com/canonical/microceph-osd/domain/osd/service"
	"github.com/canonical/microceph-osd/internal/charmconfig"
)

var logger = loggo.GetLogger("microceph.dispatch")

// Actions handled by the engine.
const (
	AddOSDAction    = "add-osd"
	ListDisksAction = "list-disks"
)

// OSDService is the OSD domain service.
type OSDService interface {
	ReconcileConfig(ctx context.Context, expression, flags string) (osd.Outcome, error)
	EnrollAttached(ctx context.Context) (osd.Outcome, error)
	RemoveDetaching(ctx context.Context, id storage.ID) (osd.Outcome, error)
	AddOSDs(ctx context.Context, args service.AddOSDArgs) ([]service.AddOSDResult, error)
	ListDisks(ctx context.Context, hostOnly bool) (osd.DiskList, error)
	Records(ctx context.Context) ([]osd.Record, error)
}

// HookTools is the subset of hook tools the dispatcher uses.
type HookTools interface {
	ConfigGet(ctx context.Context) (map[string]any, error)
	ActionGet(ctx context.Context) (map[string]any, error)
	ActionSet(ctx context.Context, results map[string]string) error
	ActionFail(ctx context.Context, message string) error
	SetStatus(ctx context.Context, info status.StatusInfo) error
}

// Queue persists deferred signals.
type Queue interface {
	Push(info signal.Info) error
	Take() ([]signal.Info, error)
}

// Metrics records what a dispatch did.
type Metrics interface {
	ObserveOutcome(signal string, outcome osd.OutcomeKind, err error)
	SetIndexRecords(records []osd.Record)
}

// Config holds the dependencies of a Dispatcher.
type Config struct {
	Service   OSDService
	HookTools HookTools
	Queue     Queue
	Lock      LockFunc

	// Metrics is optional.
	Metrics Metrics
}

// Validate returns an error if the config cannot be used to create a
// Dispatcher.
func (c Config) Validate() error {
	if c.Service == nil {
		return errors.NotValidf("nil Service")
	}
	if c.HookTools == nil {
		return errors.NotValidf("nil HookTools")
	}
	if c.Queue == nil {
		return errors.NotValidf("nil Queue")
	}
	if c.Lock == nil {
		return errors.NotValidf("nil Lock")
	}
	return nil
}

// Dispatcher handles one signal per process.
type Dispatcher struct {
	config Config
}

// NewDispatcher returns a Dispatcher for the given config.
func NewDispatcher(config Config) (*Dispatcher, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &Dispatcher{config: config}, nil
}

// IsObserver reports whether handling info leaves the index and the
// cluster untouched, so it needs neither the lock nor the deferred queue.
func IsObserver(info signal.Info) bool {
	return info.Kind == signal.Action && info.Action == ListDisksAction
}

// Dispatch handles info. Hook signals first replay any deferred signals.
// An error is returned when the hook must fail so Juju retries it; action
// failures are reported through the action instead.
func (d *Dispatcher) Dispatch(ctx context.Context, info signal.Info) error {
	if err := info.Validate(); err != nil {
		return errors.Trace(err)
	}
	if IsObserver(info) {
		return errors.Trace(d.handleAction(ctx, info))
	}

	releaser, err := d.config.Lock()
	if err != nil {
		return errors.Trace(err)
	}
	defer releaser.Release()

	if info.Kind == signal.Action {
		err = d.handleAction(ctx, info)
	} else {
		if err := d.replay(ctx, info); err != nil {
			return errors.Trace(err)
		}
		err = d.handleHook(ctx, info)
	}
	d.recordIndex(ctx)
	return errors.Trace(err)
}

// Replay handles the deferred signals on behalf of a hook the engine
// does not otherwise act on.
func (d *Dispatcher) Replay(ctx context.Context) error {
	releaser, err := d.config.Lock()
	if err != nil {
		return errors.Trace(err)
	}
	defer releaser.Release()

	err = d.replay(ctx, signal.Info{})
	d.recordIndex(ctx)
	return errors.Trace(err)
}

// replay handles the deferred signals, skipping any identical to the
// current one. A failed replay puts the unhandled signals back.
func (d *Dispatcher) replay(ctx context.Context, current signal.Info) error {
	queued, err := d.config.Queue.Take()
	if err != nil {
		return errors.Trace(err)
	}
	for i, info := range queued {
		if info == current {
			continue
		}
		logger.Debugf("replaying deferred %s", info)
		if err := d.handleHook(ctx, info); err != nil {
			for _, pending := range queued[i:] {
				if pushErr := d.config.Queue.Push(pending); pushErr != nil {
					logger.Errorf("requeueing %s: %v", pending, pushErr)
				}
			}
			return errors.Annotatef(err, "replaying deferred %s", info)
		}
	}
	return nil
}

func (d *Dispatcher) handleHook(ctx context.Context, info signal.Info) error {
	outcome, err := d.runHook(ctx, info)
	d.observe(info, outcome.Kind, err)
	if err != nil {
		return errors.Trace(err)
	}
	logger.Debugf("%s: %s", info, outcome.Kind)

	if outcome.Kind == osd.Deferred {
		if err := d.config.Queue.Push(info); err != nil {
			return errors.Trace(err)
		}
	}
	if outcome.Status != nil {
		if err := d.config.HookTools.SetStatus(ctx, *outcome.Status); err != nil {
			return errors.Annotatef(err, "setting status %q", outcome.Status)
		}
	}
	return nil
}

func (d *Dispatcher) runHook(ctx context.Context, info signal.Info) (osd.Outcome, error) {
	switch info.Kind {
	case signal.ConfigChanged:
		attrs, err := d.config.HookTools.ConfigGet(ctx)
		if err != nil {
			return osd.Outcome{}, errors.Trace(err)
		}
		cfg, err := charmconfig.Parse(attrs)
		if err != nil {
			return osd.Outcome{}, errors.Trace(err)
		}
		return d.config.Service.ReconcileConfig(ctx, cfg.OSDDevices, cfg.DeviceAddFlags)
	case signal.StorageAttached:
		return d.config.Service.EnrollAttached(ctx)
	case signal.StorageDetaching:
		return d.config.Service.RemoveDetaching(ctx, storage.ID(info.StorageID))
	}
	return osd.Outcome{}, errors.NotSupportedf("hook signal %q", info.Kind)
}

func (d *Dispatcher) handleAction(ctx context.Context, info signal.Info) error {
	results, err := d.runAction(ctx, info)
	// A failed action is reported to the operator, not retried.
	kind := osd.Applied
	if err != nil {
		kind = osd.Blocked
	}
	d.observe(info, kind, nil)

	if err == nil {
		return errors.Trace(d.config.HookTools.ActionSet(ctx, results))
	}
	logger.Warningf("action %s failed: %v", info.Action, err)
	if results == nil {
		results = map[string]string{"message": err.Error()}
	}
	if setErr := d.config.HookTools.ActionSet(ctx, results); setErr != nil {
		return errors.Trace(setErr)
	}
	return errors.Trace(d.config.HookTools.ActionFail(ctx, err.Error()))
}

func (d *Dispatcher) runAction(ctx context.Context, info signal.Info) (map[string]string, error) {
	params, err := d.config.HookTools.ActionGet(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}

	switch info.Action {
	case AddOSDAction:
		p, err := charmconfig.ParseAddOSD(params)
		if err != nil {
			return nil, errors.Trace(err)
		}
		results, addErr := d.config.Service.AddOSDs(ctx, service.AddOSDArgs{
			DeviceIDs: p.DeviceID,
			LoopSpec:  p.LoopSpec,
			Wipe:      p.Wipe,
			Encrypt:   p.Encrypt,
		})
		if results == nil {
			return nil, errors.Trace(addErr)
		}
		encoded, err := encodeAddOSDResults(results)
		if err != nil {
			return nil, errors.Trace(err)
		}
		return map[string]string{"result": encoded}, addErr

	case ListDisksAction:
		hostOnly, err := charmconfig.ParseListDisks(params)
		if err != nil {
			return nil, errors.Trace(err)
		}
		list, err := d.config.Service.ListDisks(ctx, hostOnly)
		if err != nil {
			return nil, errors.Trace(err)
		}
		return encodeDiskList(list)
	}
	return nil, errors.NotSupportedf("action %q", info.Action)
}

func (d *Dispatcher) observe(info signal.Info, kind osd.OutcomeKind, err error) {
	if d.config.Metrics == nil {
		return
	}
	name := string(info.Kind)
	if info.Kind == signal.Action {
		name = info.Action
	}
	d.config.Metrics.ObserveOutcome(name, kind, err)
}

func (d *Dispatcher) recordIndex(ctx context.Context) {
	if d.config.Metrics == nil {
		return
	}
	records, err := d.config.Service.Records(ctx)
	if err != nil {
		logger.Warningf("reading osd index for metrics: %v", err)
		return
	}
	d.config.Metrics.SetIndexRecords(records)
}

type addOSDResult struct {
	Spec    string `json:"spec"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func encodeAddOSDResults(results []service.AddOSDResult) (string, error) {
	out := make([]addOSDResult, 0, len(results))
	for _, r := range results {
		out = append(out, addOSDResult{
			Spec:    r.Spec,
			Status:  string(r.Status),
			Message: r.Message,
		})
	}
	data, err := json.Marshal(out)
	return string(data), errors.Trace(err)
}

func encodeDiskList(list osd.DiskList) (map[string]string, error) {
	attributes := func(disks []osd.Disk) []map[string]any {
		out := make([]map[string]any, 0, len(disks))
		for _, disk := range disks {
			out = append(out, disk.Attributes)
		}
		return out
	}
	osds, err := json.Marshal(attributes(list.Configured))
	if err != nil {
		return nil, errors.Trace(err)
	}
	available, err := json.Marshal(attributes(list.Available))
	if err != nil {
		return nil, errors.Trace(err)
	}
	return map[string]string{
		"osds":                string(osds),
		"unpartitioned-disks": string(available),
	}, nil
}
