// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package dispatch

import (
	"path"
	"strings"

	"github.com/canonical/microceph-osd/core/signal"
)

// Environment variables set by Juju for every dispatch.
const (
	EnvDispatchPath = "JUJU_DISPATCH_PATH"
	EnvStorageID    = "JUJU_STORAGE_ID"
	EnvActionName   = "JUJU_ACTION_NAME"
)

// IsHook reports whether the dispatch is for a hook, handled or not.
func IsHook(getenv func(string) string) bool {
	dir, name := path.Split(getenv(EnvDispatchPath))
	return strings.TrimSuffix(dir, "/") == "hooks" && name != ""
}

// SignalFromEnv derives the signal being dispatched. It returns false when
// the hook or action is not one the engine handles.
func SignalFromEnv(getenv func(string) string) (signal.Info, bool) {
	dispatchPath := getenv(EnvDispatchPath)
	dir, name := path.Split(dispatchPath)

	switch strings.TrimSuffix(dir, "/") {
	case "hooks":
		switch {
		case name == "config-changed":
			return signal.Info{Kind: signal.ConfigChanged}, true
		case strings.HasSuffix(name, "-storage-attached"):
			return signal.Info{Kind: signal.StorageAttached, StorageID: getenv(EnvStorageID)}, true
		case strings.HasSuffix(name, "-storage-detaching"):
			return signal.Info{Kind: signal.StorageDetaching, StorageID: getenv(EnvStorageID)}, true
		}
	case "actions":
		action := getenv(EnvActionName)
		if action == "" {
			action = name
		}
		switch action {
		case AddOSDAction, ListDisksAction:
			return signal.Info{Kind: signal.Action, Action: action}, true
		}
	}
	return signal.Info{}, false
}
