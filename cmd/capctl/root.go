// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"capctl/internal/config"
	"capctl/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"

	// verbose forces debug logging regardless of --log-level.
	verbose bool
	// cfgFile is the --config override.
	cfgFile string
	// logLevel is one of error, warn, info, debug.
	logLevel string

	// cfg is the loaded configuration, available to all commands.
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "capctl",
		Short: "Capability-based host provisioning",
		Long: TitleStyle.Render("capctl") + SubtitleStyle.Render(" - capability-based host provisioning") + `

capctl applies an ordered list of capabilities to the local host. A
capability is a directory contributing any of: OS packages, a setup
script, a templated config-file tree with ownership metadata, and
systemd services. Provisioning runs in four phases, each covering the
whole list before the next starts: install, setup, configure, activate.

` + SubtitleStyle.Render("Examples:") + `
  capctl list                      Show capabilities under the root
  capctl validate                  Check capability metadata and scripts
  capctl apply --plan plan.toml    Provision the host
  capctl apply --dry-run ntp dhcp  Preview without touching the system
  capctl explain ntp               Show a capability's documentation`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/capctl/config.cue)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "log level: error, warn, info, debug")

	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(serveCmd)
}

func versionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// Execute runs the root command; called by main.
func Execute() {
	err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(versionString()),
		fang.WithNotifySignal(os.Interrupt),
	)
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

func initRootConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatError(err))
		cfg = config.Default()
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	if verbose {
		level = "debug"
	}
	if parsed, parseErr := log.ParseLevel(level); parseErr == nil {
		log.SetLevel(parsed)
	} else {
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+fmt.Sprintf("unknown log level %q, using info", level))
		log.SetLevel(log.InfoLevel)
	}
	log.SetReportTimestamp(false)
}

// formatError renders an error for the terminal, using the issue context
// when available.
func formatError(err error) string {
	var issueErr *issue.Error
	if errors.As(err, &issueErr) {
		return issueErr.Format(verbose)
	}
	return err.Error()
}
