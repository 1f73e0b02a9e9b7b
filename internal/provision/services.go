// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
)

// ServiceManager is the contract with the init system: enable a unit for
// future boots, restart it to pick up fresh configuration, and check
// liveness.
type ServiceManager interface {
	Enable(ctx context.Context, service string) error
	Restart(ctx context.Context, service string) error
	IsActive(ctx context.Context, service string) (bool, error)
}

// SystemdManager drives systemctl. It is the default ServiceManager.
type SystemdManager struct {
	// Command overrides the systemctl binary, mainly for tests.
	Command string

	// Logger receives command traces; nil uses the default logger.
	Logger *log.Logger
}

func (m *SystemdManager) command() string {
	if m.Command == "" {
		return "systemctl"
	}
	return m.Command
}

func (m *SystemdManager) logger() *log.Logger {
	if m.Logger == nil {
		return log.Default()
	}
	return m.Logger
}

// Enable implements ServiceManager.
func (m *SystemdManager) Enable(ctx context.Context, service string) error {
	return runCommand(ctx, m.logger(), m.command(), "enable", service)
}

// Restart implements ServiceManager.
func (m *SystemdManager) Restart(ctx context.Context, service string) error {
	return runCommand(ctx, m.logger(), m.command(), "restart", service)
}

// IsActive implements ServiceManager. systemctl is-active exits non-zero for
// inactive units, which is a liveness answer rather than a command failure.
func (m *SystemdManager) IsActive(ctx context.Context, service string) (bool, error) {
	err := runCommand(ctx, m.logger(), m.command(), "is-active", "--quiet", service)
	if err == nil {
		return true, nil
	}
	var cmdErr *ExternalCommandError
	if errors.As(err, &cmdErr) {
		return false, nil
	}
	return false, err
}
