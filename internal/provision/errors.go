// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"fmt"
	"strings"
)

// PermissionError means the process lacks the privilege provisioning needs.
// It is raised once, before any phase runs.
type PermissionError struct {
	// UID is the effective user ID the process ran with.
	UID int
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("provisioning requires root privileges (running as uid %d)", e.UID)
}

// ExternalCommandError reports a package, service, or setup-script command
// that exited non-zero. Captured output is included so failures on headless
// hosts are diagnosable from the one error message.
type ExternalCommandError struct {
	// Cmd is the command line that failed.
	Cmd string

	// ExitCode is the command's exit status.
	ExitCode int

	// Stdout and Stderr hold the captured output, possibly empty.
	Stdout string
	Stderr string
}

func (e *ExternalCommandError) Error() string {
	var msg strings.Builder
	fmt.Fprintf(&msg, "command %q exited with status %d", e.Cmd, e.ExitCode)
	if out := strings.TrimSpace(e.Stdout); out != "" {
		fmt.Fprintf(&msg, "\n  stdout: %s", out)
	}
	if errOut := strings.TrimSpace(e.Stderr); errOut != "" {
		fmt.Fprintf(&msg, "\n  stderr: %s", errOut)
	}
	return msg.String()
}

// MissingReferenceError reports an owner or mode map entry whose path is not
// part of the capability's copied config tree.
type MissingReferenceError struct {
	// Capability is the capability whose metadata is broken.
	Capability string

	// Source is the artifact holding the dangling entry ("owners" or "modes").
	Source string

	// Path is the referenced config-tree relative path, after substitution.
	Path string
}

func (e *MissingReferenceError) Error() string {
	return fmt.Sprintf("capability %s: %s entry references %q, which is not in the config tree",
		e.Capability, e.Source, e.Path)
}
