// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package signal provides types that define the signals the OSD
// reconciliation engine reacts to.
package signal

import (
	"fmt"

	"github.com/juju/errors"

	"github.com/canonical/microceph-osd/core/storage"
)

// Kind enumerates the signals the engine handles.
type Kind string

const (
	// StorageAttached is delivered when an osd-standalone storage
	// instance is attached to the unit.
	StorageAttached Kind = "storage-attached"

	// StorageDetaching is delivered before a storage instance is
	// removed from the unit.
	StorageDetaching Kind = "storage-detaching"

	// ConfigChanged is delivered when the charm configuration changes.
	ConfigChanged Kind = "config-changed"

	// Action is delivered when an operator runs an action.
	Action Kind = "action"
)

// IsStorage reports whether the kind is scoped to a storage instance.
func (k Kind) IsStorage() bool {
	return k == StorageAttached || k == StorageDetaching
}

// Info holds details required to handle a signal. Not all fields are
// relevant to all Kind values.
type Info struct {
	Kind Kind `yaml:"kind"`

	// StorageID identifies the storage instance associated with the
	// signal. It is only set when Kind is a storage kind.
	StorageID string `yaml:"storage-id,omitempty"`

	// Action is the name of the action to run. It is only set when Kind
	// is Action.
	Action string `yaml:"action,omitempty"`
}

// Validate returns an error if the info is not valid.
func (i Info) Validate() error {
	switch i.Kind {
	case StorageAttached, StorageDetaching:
		if _, err := storage.NewID(i.StorageID); err != nil {
			return errors.NotValidf("%q signal with storage id %q", i.Kind, i.StorageID)
		}
		return nil
	case ConfigChanged:
		return nil
	case Action:
		if i.Action == "" {
			return errors.NotValidf("%q signal without action name", i.Kind)
		}
		return nil
	}
	return errors.NotValidf("signal kind %q", i.Kind)
}

// String implements fmt.Stringer.
func (i Info) String() string {
	switch {
	case i.Kind.IsStorage():
		return fmt.Sprintf("%s(%s)", i.Kind, i.StorageID)
	case i.Kind == Action:
		return fmt.Sprintf("%s(%s)", i.Kind, i.Action)
	}
	return string(i.Kind)
}
