// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"

	"github.com/charmbracelet/log"
)

// PackageManager is the contract provisioning has with the OS package
// installer: refresh the index once per run, then install ordered package
// lists. Install must succeed for all packages or fail the call.
type PackageManager interface {
	Refresh(ctx context.Context) error
	Install(ctx context.Context, packages []string) error
}

// AptManager drives apt-get non-interactively. It is the default
// PackageManager on the Debian-based routers this tool targets.
type AptManager struct {
	// Command overrides the apt-get binary, mainly for tests.
	Command string

	// Logger receives command traces; nil uses the default logger.
	Logger *log.Logger
}

func (m *AptManager) command() string {
	if m.Command == "" {
		return "apt-get"
	}
	return m.Command
}

func (m *AptManager) logger() *log.Logger {
	if m.Logger == nil {
		return log.Default()
	}
	return m.Logger
}

// Refresh implements PackageManager with apt-get update.
func (m *AptManager) Refresh(ctx context.Context) error {
	return runCommand(ctx, m.logger(), m.command(), "update")
}

// Install implements PackageManager with apt-get install --assume-yes.
func (m *AptManager) Install(ctx context.Context, packages []string) error {
	if len(packages) == 0 {
		return nil
	}
	args := append([]string{"install", "--assume-yes"}, packages...)
	return runCommand(ctx, m.logger(), m.command(), args...)
}
