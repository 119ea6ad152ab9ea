// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package command runs the external tools the engine drives: the
// microceph CLI and the Juju hook tools.
package command

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/kballard/go-shellquote"
)

var logger = loggo.GetLogger("microceph.command")

// Runner runs a command to completion.
type Runner interface {
	// Run runs name with args. A command that runs but exits non-zero
	// returns its captured output alongside an *Error.
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// Result holds the captured output of a command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Error describes a failed command.
type Error struct {
	Args     []string
	Stderr   string
	ExitCode int
	Err      error
}

// NewError returns an Error for the command line args that produced res
// and failed with err. A context deadline is reported as errors.Timeout.
func NewError(args []string, res Result, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", errors.Timeout, err)
	}
	return &Error{
		Args:     args,
		Stderr:   string(res.Stderr),
		ExitCode: res.ExitCode,
		Err:      err,
	}
}

// Error implements error. The tool's own diagnostic is preferred over the
// generic exec failure.
func (e *Error) Error() string {
	if msg := strings.TrimSpace(e.Stderr); msg != "" {
		return msg
	}
	return fmt.Sprintf("command %q failed: %v", shellquote.Join(e.Args...), e.Err)
}

// Unwrap returns the underlying exec error.
func (e *Error) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands as child processes.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	argv := append([]string{name}, args...)
	logger.Debugf("running %s", shellquote.Join(argv...))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	return res, NewError(argv, res, err)
}
