// SPDX-License-Identifier: MPL-2.0

package runscript

import (
	"context"
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// VirtualRunner executes scripts with the embedded mvdan.cc/sh interpreter.
// It needs no shell binary on the host, which matters on freshly-imaged
// routers where /bin/sh may not exist yet.
type VirtualRunner struct{}

// Name implements Runner.
func (r *VirtualRunner) Name() string { return "virtual" }

// Run implements Runner.
func (r *VirtualRunner) Run(ctx context.Context, script []byte, opts Options) error {
	prog, err := syntax.NewParser().Parse(strings.NewReader(string(script)), "setup.sh")
	if err != nil {
		return fmt.Errorf("parse script: %w", err)
	}

	runnerOpts := []interp.RunnerOption{
		interp.Env(expand.ListEnviron(environSlice(opts.Env)...)),
		interp.StdIO(nil, orDiscard(opts.Stdout), orDiscard(opts.Stderr)),
	}
	if opts.Dir != "" {
		runnerOpts = append(runnerOpts, interp.Dir(opts.Dir))
	}

	runner, err := interp.New(runnerOpts...)
	if err != nil {
		return fmt.Errorf("create interpreter: %w", err)
	}

	if err := runner.Run(ctx, prog); err != nil {
		if status, ok := interp.IsExitStatus(err); ok {
			return &ExitStatusError{Code: int(status)}
		}
		return fmt.Errorf("execute script: %w", err)
	}
	return nil
}
