// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package deviceflags parses the device-add-flags charm option into the
// options passed to "microceph disk add".
package deviceflags

import (
	"fmt"
	"strings"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
)

const (
	// Wipe requests that the device is wiped before it is enrolled.
	Wipe = "wipe:osd"

	// Encrypt requests that the OSD is created on an encrypted device.
	Encrypt = "encrypt:osd"
)

var validFlags = set.NewStrings(Wipe, Encrypt)

// ValidFlags returns the recognised flag tokens, sorted.
func ValidFlags() []string {
	return validFlags.SortedValues()
}

// Flags holds the options applied when enrolling devices.
type Flags struct {
	Wipe    bool `yaml:"wipe"`
	Encrypt bool `yaml:"encrypt"`
}

// String returns the canonical expression for the flags.
func (f Flags) String() string {
	var tokens []string
	if f.Encrypt {
		tokens = append(tokens, Encrypt)
	}
	if f.Wipe {
		tokens = append(tokens, Wipe)
	}
	return strings.Join(tokens, ",")
}

// ValidationError is returned by Parse when an expression holds a token
// that is not a recognised flag.
type ValidationError struct {
	// Token is the offending token, trimmed and lower-cased.
	Token string
	Valid []string
}

// Error implements error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("unknown flag %q, valid flags: %s", e.Token, strings.Join(e.Valid, ", "))
}

// Is allows the error to satisfy errors.NotValid.
func (e *ValidationError) Is(target error) bool {
	return target == errors.NotValid
}

// Parse parses a comma separated flag expression. Tokens are matched
// case-insensitively, surrounding whitespace and empty tokens are
// ignored, and repeating a token has no further effect.
func Parse(expr string) (Flags, error) {
	var flags Flags
	for _, raw := range strings.Split(expr, ",") {
		token := strings.TrimSpace(raw)
		switch strings.ToLower(token) {
		case "":
		case Wipe:
			flags.Wipe = true
		case Encrypt:
			flags.Encrypt = true
		default:
			return Flags{}, &ValidationError{
				Token: strings.ToLower(token),
				Valid: ValidFlags(),
			}
		}
	}
	return flags, nil
}

// Args returns the "microceph disk add" arguments for the flags.
func (f Flags) Args() []string {
	var args []string
	if f.Wipe {
		args = append(args, "--wipe")
	}
	if f.Encrypt {
		args = append(args, "--encrypt")
	}
	return args
}
