// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package charmconfig coerces the charm options and action parameters the
// OSD engine consumes.
package charmconfig

import (
	"github.com/juju/errors"
	"github.com/juju/schema"
)

const (
	// OSDDevices is the device selection expression option.
	OSDDevices = "osd-devices"

	// DeviceAddFlags is the comma separated flags option applied to
	// OSDDevices enrollments.
	DeviceAddFlags = "device-add-flags"
)

// Config holds the OSD related charm options.
type Config struct {
	OSDDevices     string
	DeviceAddFlags string
}

var configChecker = schema.FieldMap(schema.Fields{
	OSDDevices:     schema.String(),
	DeviceAddFlags: schema.String(),
}, schema.Defaults{
	OSDDevices:     "",
	DeviceAddFlags: "",
})

// Parse coerces the output of config-get. Options unrelated to OSDs are
// ignored.
func Parse(attrs map[string]any) (Config, error) {
	relevant := make(map[string]any, 2)
	for _, name := range []string{OSDDevices, DeviceAddFlags} {
		if v, ok := attrs[name]; ok && v != nil {
			relevant[name] = v
		}
	}
	coerced, err := configChecker.Coerce(relevant, nil)
	if err != nil {
		return Config{}, errors.NewNotValid(err, "charm config")
	}
	m := coerced.(map[string]any)
	return Config{
		OSDDevices:     m[OSDDevices].(string),
		DeviceAddFlags: m[DeviceAddFlags].(string),
	}, nil
}

// AddOSDParams holds the add-osd action parameters.
type AddOSDParams struct {
	DeviceID string
	LoopSpec string
	Wipe     bool
	Encrypt  bool
}

var addOSDChecker = schema.FieldMap(schema.Fields{
	"device-id": schema.String(),
	"loop-spec": schema.String(),
	"wipe":      schema.Bool(),
	"encrypt":   schema.Bool(),
}, schema.Defaults{
	"device-id": "",
	"loop-spec": "",
	"wipe":      false,
	"encrypt":   false,
})

// ParseAddOSD coerces the output of action-get for add-osd.
func ParseAddOSD(params map[string]any) (AddOSDParams, error) {
	coerced, err := addOSDChecker.Coerce(dropNil(params), nil)
	if err != nil {
		return AddOSDParams{}, errors.NewNotValid(err, "add-osd parameters")
	}
	m := coerced.(map[string]any)
	return AddOSDParams{
		DeviceID: m["device-id"].(string),
		LoopSpec: m["loop-spec"].(string),
		Wipe:     m["wipe"].(bool),
		Encrypt:  m["encrypt"].(bool),
	}, nil
}

var listDisksChecker = schema.FieldMap(schema.Fields{
	"host-only": schema.Bool(),
}, schema.Defaults{
	"host-only": false,
})

// ParseListDisks coerces the output of action-get for list-disks and
// returns the host-only parameter.
func ParseListDisks(params map[string]any) (bool, error) {
	coerced, err := listDisksChecker.Coerce(dropNil(params), nil)
	if err != nil {
		return false, errors.NewNotValid(err, "list-disks parameters")
	}
	return coerced.(map[string]any)["host-only"].(bool), nil
}

func dropNil(params map[string]any) map[string]any {
	result := make(map[string]any, len(params))
	for k, v := range params {
		if v != nil {
			result[k] = v
		}
	}
	return result
}
