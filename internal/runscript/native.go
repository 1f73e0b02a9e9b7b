// SPDX-License-Identifier: MPL-2.0

package runscript

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// NativeRunner executes scripts through the system shell. The script is
// written to a private temp file (mode 0700) and removed afterwards, so the
// rendered working copy never lingers on disk.
type NativeRunner struct {
	// Shell overrides the shell binary; default /bin/sh.
	Shell string
}

// Name implements Runner.
func (r *NativeRunner) Name() string { return "native" }

// Run implements Runner.
func (r *NativeRunner) Run(ctx context.Context, script []byte, opts Options) error {
	shell := r.Shell
	if shell == "" {
		shell = "/bin/sh"
	}
	if _, err := exec.LookPath(shell); err != nil {
		return fmt.Errorf("shell %s not available: %w", shell, err)
	}

	tmp, err := os.CreateTemp("", "capctl-setup-*.sh")
	if err != nil {
		return fmt.Errorf("create script working copy: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(script); err != nil {
		tmp.Close()
		return fmt.Errorf("write script working copy: %w", err)
	}
	if err := tmp.Chmod(0o700); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod script working copy: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close script working copy: %w", err)
	}

	cmd := exec.CommandContext(ctx, shell, tmp.Name())
	cmd.Dir = opts.Dir
	cmd.Env = environSlice(opts.Env)
	cmd.Stdout = orDiscard(opts.Stdout)
	cmd.Stderr = orDiscard(opts.Stderr)

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitStatusError{Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("execute script: %w", err)
	}
	return nil
}
