// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package storage

import (
	"strings"

	"github.com/juju/errors"
	"github.com/juju/names/v5"
)

const (
	// InvalidStorageName is returned when a storage name is not valid.
	InvalidStorageName = errors.ConstError("invalid storage name")

	// InvalidStorageID is returned when a storage ID is not valid.
	InvalidStorageID = errors.ConstError("invalid storage ID")
)

// Name is the name of a storage directive declared by the charm,
// e.g. "osd-standalone".
type Name string

// NewName returns a validated storage name.
func NewName(name string) (Name, error) {
	// A name is valid when it forms a valid storage ID.
	if strings.Contains(name, "/") || !names.IsValidStorage(name+"/0") {
		return "", errors.Annotatef(InvalidStorageName, "%q", name)
	}
	return Name(name), nil
}

// String implements fmt.Stringer.
func (n Name) String() string {
	return string(n)
}

// ID identifies a storage instance attached to a unit, e.g.
// "osd-standalone/2".
type ID string

// NewID returns a validated storage ID.
func NewID(id string) (ID, error) {
	if !names.IsValidStorage(id) {
		return "", errors.Annotatef(InvalidStorageID, "%q", id)
	}
	return ID(id), nil
}

// MustParseID returns an ID for a value known to be valid. It panics
// otherwise, so it is only suitable for tests and constants.
func MustParseID(id string) ID {
	result, err := NewID(id)
	if err != nil {
		panic(err)
	}
	return result
}

// String implements fmt.Stringer.
func (id ID) String() string {
	return string(id)
}

// Name returns the storage directive the instance belongs to.
func (id ID) Name() Name {
	name, err := names.StorageName(string(id))
	if err != nil {
		return ""
	}
	return Name(name)
}

// FilterByName returns the ids belonging to the named storage directive,
// dropping anything that is not a valid storage ID.
func FilterByName(ids []string, name Name) []ID {
	var result []ID
	for _, raw := range ids {
		id, err := NewID(raw)
		if err != nil {
			continue
		}
		if id.Name() == name {
			result = append(result, id)
		}
	}
	return result
}
