// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hooktools

import (
	"context"
	"fmt"

	"github.com/juju/loggo"
)

// LogWriter is a loggo.Writer forwarding entries at or above a level to
// juju-log, so they appear in the model's debug-log.
type LogWriter struct {
	client   *Client
	minLevel loggo.Level
}

// NewLogWriter returns a LogWriter forwarding entries at minLevel and
// above.
func NewLogWriter(client *Client, minLevel loggo.Level) *LogWriter {
	return &LogWriter{
		client:   client,
		minLevel: minLevel,
	}
}

// Write implements loggo.Writer.
func (w *LogWriter) Write(entry loggo.Entry) {
	if entry.Level < w.minLevel {
		return
	}
	// Failing to forward must not log, or the entry would loop back here.
	_ = w.client.Log(context.Background(), entry.Level, fmt.Sprintf("%s: %s", entry.Module, entry.Message))
}
