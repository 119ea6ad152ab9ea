// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package dispatch

import (
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/mutex/v2"
)

// LockName is the machine wide lock held while the index or the cluster
// is mutated.
const LockName = "microceph-osd"

// Releaser releases an acquired lock.
type Releaser interface {
	Release()
}

// LockFunc acquires the lock serialising mutating signals.
type LockFunc func() (Releaser, error)

// MachineLock returns a LockFunc acquiring the named machine lock, giving
// up after timeout.
func MachineLock(clk clock.Clock, timeout time.Duration) LockFunc {
	return func() (Releaser, error) {
		releaser, err := mutex.Acquire(mutex.Spec{
			Name:    LockName,
			Clock:   clk,
			Delay:   250 * time.Millisecond,
			Timeout: timeout,
		})
		if err != nil {
			return nil, errors.Annotatef(err, "acquiring %q lock", LockName)
		}
		return releaser, nil
	}
}
