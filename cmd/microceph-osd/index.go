// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"fmt"
	"io"

	"github.com/juju/ansiterm"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"

	"github.com/canonical/microceph-osd/domain/osd"
	"github.com/canonical/microceph-osd/internal/cmd"
)

const indexCommandName = "index"

const indexDoc = `
Shows the OSDs recorded on this unit, with the disk each one is backed by
and how it was enrolled. The index is read without taking the machine lock.
`

type indexCommand struct {
	baseCommand
	out cmd.Output
}

func newIndexCommand() *indexCommand {
	return &indexCommand{}
}

func (c *indexCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:    "microceph-osd " + indexCommandName,
		Purpose: "Show the OSD index of this unit.",
		Doc:     indexDoc,
	}
}

func (c *indexCommand) SetFlags(f *gnuflag.FlagSet) {
	c.baseCommand.SetFlags(f)
	c.out.AddFlags(f, "tabular", map[string]cmd.Formatter{
		"yaml":    cmd.FormatYaml,
		"json":    cmd.FormatJson,
		"tabular": formatIndexTabular,
	})
}

func (c *indexCommand) Init(args []string) error {
	if err := cmd.CheckEmpty(args); err != nil {
		return errors.Trace(err)
	}
	return c.baseCommand.Init(args)
}

// indexEntry is the serialised form of a record.
type indexEntry struct {
	OSD    int    `yaml:"osd" json:"osd"`
	DiskID string `yaml:"disk-id" json:"disk-id"`
	Source string `yaml:"source" json:"source"`
}

func (c *indexCommand) Run(ctx *cmd.Context) error {
	st, err := c.openState(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	defer st.Close()

	records, err := st.Records(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	entries := make([]indexEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, indexEntry{
			OSD:    r.Number,
			DiskID: r.DiskID,
			Source: string(r.Source),
		})
	}
	return c.out.Write(ctx, entries)
}

var sourceColor = map[string]*ansiterm.Context{
	string(osd.SourceLifecycle):   ansiterm.Foreground(ansiterm.Green),
	string(osd.SourceConfigMatch): ansiterm.Foreground(ansiterm.BrightBlue),
	string(osd.SourceAction):      ansiterm.Foreground(ansiterm.Yellow),
}

func formatIndexTabular(w io.Writer, value any) error {
	entries, ok := value.([]indexEntry)
	if !ok {
		return errors.Errorf("expected []indexEntry, got %T", value)
	}
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No OSDs recorded.")
		return errors.Trace(err)
	}

	tw := ansiterm.NewTabWriter(w, 0, 1, 1, ' ', 0)
	fmt.Fprintln(tw, "OSD\tDisk\tSource")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t", e.OSD, e.DiskID)
		if ctx, ok := sourceColor[e.Source]; ok {
			ctx.Fprintf(tw, "%s", e.Source)
		} else {
			fmt.Fprint(tw, e.Source)
		}
		fmt.Fprintln(tw)
	}
	return errors.Trace(tw.Flush())
}
