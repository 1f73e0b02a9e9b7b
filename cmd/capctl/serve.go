// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"capctl/internal/statusd"
)

var (
	serveAddress string
	serveHostKey string
	serveRoot    string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve capability status over SSH",
		Long: `Serve runs a read-only SSH server that prints a provisioning status
report to every connecting client: which capabilities exist under the
root and what each contributes. Useful for checking headless hosts
without shell access.`,
		RunE: runServe,
	}
)

func init() {
	serveCmd.Flags().StringVar(&serveAddress, "address", "", "listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveHostKey, "host-key", "", "SSH host key path (overrides config)")
	serveCmd.Flags().StringVar(&serveRoot, "root", "", "capability root directory (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	opts := statusd.Options{
		Address:        cfg.Serve.Address,
		HostKeyPath:    cfg.Serve.HostKeyPath,
		CapabilityRoot: cfg.CapabilityRoot,
		Log:            log.Default(),
	}
	if serveAddress != "" {
		opts.Address = serveAddress
	}
	if serveHostKey != "" {
		opts.HostKeyPath = serveHostKey
	}
	if serveRoot != "" {
		opts.CapabilityRoot = serveRoot
	}

	srv, err := statusd.New(opts)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return &ExitError{Code: 1, Err: err}
		}
		return nil
	case <-cmd.Context().Done():
	}

	log.Info("shutting down status server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return &ExitError{Code: 1, Err: err}
	}
	return nil
}
