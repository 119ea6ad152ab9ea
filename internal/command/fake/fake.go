// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package fake provides a command.Runner that replays expected commands
// in order.
package fake

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/kballard/go-shellquote"
	gc "gopkg.in/check.v1"

	"github.com/canonical/microceph-osd/internal/command"
)

// ExpectedCmd is a command the Runner expects to be run, with the result
// it replays.
type ExpectedCmd struct {
	Name string
	Args []string

	Stdout   string
	Stderr   string
	ExitCode int

	// Err, when set, is returned as the exec failure. A non-zero
	// ExitCode without Err fails with "exit status N".
	Err error
}

// Matches reports whether the command line is the expected one.
func (e *ExpectedCmd) Matches(name string, args ...string) bool {
	return e.Name == name && slices.Equal(e.Args, args)
}

func (e *ExpectedCmd) String() string {
	return shellquote.Join(append([]string{e.Name}, e.Args...)...)
}

// Runner is a command.Runner that expects an exact sequence of commands.
type Runner struct {
	mu         sync.Mutex
	cmds       []*ExpectedCmd
	next       int
	calls      [][]string
	unexpected []string
}

var _ command.Runner = (*Runner)(nil)

// ExpectCommands appends cmds to the expected sequence.
func (r *Runner) ExpectCommands(cmds ...*ExpectedCmd) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, cmds...)
}

// Run implements command.Runner.
func (r *Runner) Run(ctx context.Context, name string, args ...string) (command.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	argv := append([]string{name}, args...)
	r.calls = append(r.calls, argv)

	if r.next >= len(r.cmds) {
		r.unexpected = append(r.unexpected, shellquote.Join(argv...))
		return command.Result{}, fmt.Errorf("unexpected command %q", shellquote.Join(argv...))
	}
	cmd := r.cmds[r.next]
	if !cmd.Matches(name, args...) {
		r.unexpected = append(r.unexpected, fmt.Sprintf("%s (expected %s)", shellquote.Join(argv...), cmd))
		return command.Result{}, fmt.Errorf("unexpected command %q, expected %q", shellquote.Join(argv...), cmd)
	}
	r.next++

	res := command.Result{
		Stdout:   []byte(cmd.Stdout),
		Stderr:   []byte(cmd.Stderr),
		ExitCode: cmd.ExitCode,
	}
	err := cmd.Err
	if err == nil && cmd.ExitCode != 0 {
		err = fmt.Errorf("exit status %d", cmd.ExitCode)
	}
	if err != nil {
		return res, command.NewError(argv, res, err)
	}
	return res, nil
}

// Calls returns every command line run so far.
func (r *Runner) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// CheckComplete asserts that every expected command ran and nothing else
// did.
func (r *Runner) CheckComplete(c *gc.C) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.Check(r.unexpected, gc.HasLen, 0)
	c.Check(r.next, gc.Equals, len(r.cmds), gc.Commentf("expected %d command executions, got %d", len(r.cmds), r.next))
}
