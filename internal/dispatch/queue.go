// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package dispatch

import (
	"os"

	"github.com/juju/errors"
	"github.com/juju/utils/v4"

	"github.com/canonical/microceph-osd/core/signal"
)

// DeferredQueue persists deferred signals between dispatches.
type DeferredQueue struct {
	path string
}

// NewDeferredQueue returns a DeferredQueue stored at path.
func NewDeferredQueue(path string) *DeferredQueue {
	return &DeferredQueue{path: path}
}

type queueDoc struct {
	Signals []signal.Info `yaml:"signals"`
}

func (q *DeferredQueue) read() ([]signal.Info, error) {
	var doc queueDoc
	if err := utils.ReadYaml(q.path, &doc); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Annotatef(err, "reading deferred queue %q", q.path)
	}
	return doc.Signals, nil
}

func (q *DeferredQueue) write(signals []signal.Info) error {
	err := utils.WriteYaml(q.path, queueDoc{Signals: signals})
	return errors.Annotatef(err, "writing deferred queue %q", q.path)
}

// Push queues info unless an identical signal is already queued.
func (q *DeferredQueue) Push(info signal.Info) error {
	signals, err := q.read()
	if err != nil {
		return errors.Trace(err)
	}
	for _, queued := range signals {
		if queued == info {
			return nil
		}
	}
	return q.write(append(signals, info))
}

// Empty reports whether no signal is queued.
func (q *DeferredQueue) Empty() (bool, error) {
	signals, err := q.read()
	if err != nil {
		return false, errors.Trace(err)
	}
	return len(signals) == 0, nil
}

// Take returns the queued signals in order and empties the queue.
func (q *DeferredQueue) Take() ([]signal.Info, error) {
	signals, err := q.read()
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(signals) == 0 {
		return nil, nil
	}
	if err := q.write(nil); err != nil {
		return nil, errors.Trace(err)
	}
	return signals, nil
}
