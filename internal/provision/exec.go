// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"
)

// runCommand executes an external command, captures its output, and converts
// a non-zero exit into an *ExternalCommandError carrying that output.
func runCommand(ctx context.Context, logger *log.Logger, name string, args ...string) error {
	cmdline := name + " " + strings.Join(args, " ")
	logger.Debug("running command", "cmd", cmdline)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExternalCommandError{
				Cmd:      cmdline,
				ExitCode: exitErr.ExitCode(),
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
			}
		}
		return fmt.Errorf("run %q: %w", cmdline, err)
	}

	if out := strings.TrimSpace(stdout.String()); out != "" {
		logger.Debug("command output", "cmd", name, "stdout", out)
	}
	return nil
}
