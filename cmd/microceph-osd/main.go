// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Command microceph-osd is run by the charm for every Juju dispatch. It
// reconciles the OSDs of the local microceph node with attached storage,
// charm config and operator actions.
package main

import (
	"fmt"
	"os"

	"github.com/canonical/microceph-osd/internal/cmd"
)

func main() {
	os.Exit(Main(os.Args[1:], os.Getenv))
}

// Main runs the subcommand named by args, dispatching the current hook or
// action when none is given.
func Main(args []string, getenv func(string) string) int {
	ctx, err := cmd.DefaultContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR %v\n", err)
		return 2
	}
	return run(ctx, args, getenv)
}

func run(ctx *cmd.Context, args []string, getenv func(string) string) int {
	var c cmd.Command
	switch {
	case len(args) > 0 && args[0] == indexCommandName:
		c, args = newIndexCommand(), args[1:]
	case len(args) > 0 && args[0] == dispatchCommandName:
		c, args = newDispatchCommand(getenv), args[1:]
	default:
		c = newDispatchCommand(getenv)
	}
	return cmd.Main(c, ctx, args)
}
