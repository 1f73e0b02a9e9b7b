// SPDX-License-Identifier: MPL-2.0

// Package runscript executes capability setup scripts. Two runners are
// available: native (the system shell) and virtual (the mvdan.cc/sh
// interpreter, for hosts without a usable /bin/sh). Scripts receive their
// capability's environment map explicitly through Options; the process-wide
// environment is never mutated.
package runscript

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"mvdan.cc/sh/v3/syntax"
)

// Runner executes a rendered setup script.
type Runner interface {
	// Name identifies the runner in logs and config ("native", "virtual").
	Name() string

	// Run executes script. A non-zero script exit is reported as an
	// *ExitStatusError; any other error means the script could not run.
	Run(ctx context.Context, script []byte, opts Options) error
}

// Options carries the execution context for one script run.
type Options struct {
	// Env is the capability's environment map, appended to the inherited
	// process environment for the child only.
	Env map[string]string

	// Dir is the working directory; empty means the current directory.
	Dir string

	// Stdout and Stderr receive the script's output. Nil discards.
	Stdout io.Writer
	Stderr io.Writer
}

// ExitStatusError reports a script that ran to completion with a non-zero
// exit status.
type ExitStatusError struct {
	Code int
}

func (e *ExitStatusError) Error() string {
	return fmt.Sprintf("script exited with status %d", e.Code)
}

// New returns the runner for the given name.
func New(name string) (Runner, error) {
	switch name {
	case "", "native":
		return &NativeRunner{}, nil
	case "virtual":
		return &VirtualRunner{}, nil
	default:
		return nil, fmt.Errorf("unknown script runner %q (want native or virtual)", name)
	}
}

// CheckSyntax parses script as POSIX-ish shell and reports syntax errors
// without executing anything. name is used in error positions.
func CheckSyntax(script []byte, name string) error {
	if _, err := syntax.NewParser().Parse(strings.NewReader(string(script)), name); err != nil {
		return fmt.Errorf("shell syntax error: %w", err)
	}
	return nil
}

// environSlice merges the inherited environment with extra, extra winning on
// conflicts. Keys are appended in sorted order so output is deterministic.
func environSlice(extra map[string]string) []string {
	env := os.Environ()
	keys := maps.Keys(extra)
	slices.Sort(keys)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
