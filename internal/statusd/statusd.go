// SPDX-License-Identifier: MPL-2.0

// Package statusd serves a read-only capability status report over SSH.
// Routers are headless; `ssh router -p 2223` answering with the capability
// inventory beats attaching a console cable. Sessions are read-only and
// non-interactive: every connection gets the report and is closed.
package statusd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"

	"capctl/pkg/capability"
)

// Options configures the status server.
type Options struct {
	// Address is the listen address, host:port.
	Address string

	// HostKeyPath is where the SSH host key lives; wish generates one there
	// when absent.
	HostKeyPath string

	// CapabilityRoot is the directory scanned for capabilities.
	CapabilityRoot string

	// Log receives connection logs; nil uses the default logger.
	Log *log.Logger
}

// Server is a running (or startable) status server.
type Server struct {
	opts Options
	srv  *ssh.Server
}

// New builds the server. Any offered public key is accepted: the report
// discloses only what `capctl list` prints locally, and the listener is
// expected to be bound to a management interface.
func New(opts Options) (*Server, error) {
	s := &Server{opts: opts}

	srv, err := wish.NewServer(
		wish.WithAddress(opts.Address),
		wish.WithHostKeyPath(opts.HostKeyPath),
		wish.WithPublicKeyAuth(func(ssh.Context, ssh.PublicKey) bool { return true }),
		wish.WithMiddleware(s.reportMiddleware),
	)
	if err != nil {
		return nil, fmt.Errorf("create status server: %w", err)
	}

	s.srv = srv
	return s, nil
}

// ListenAndServe blocks serving sessions until Shutdown or a listener error.
func (s *Server) ListenAndServe() error {
	s.logger().Info("status server listening", "address", s.opts.Address)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
		return fmt.Errorf("status server: %w", err)
	}
	return nil
}

// Shutdown stops accepting sessions and drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) reportMiddleware(next ssh.Handler) ssh.Handler {
	return func(sess ssh.Session) {
		s.logger().Info("status session", "user", sess.User(), "remote", sess.RemoteAddr())
		fmt.Fprint(sess, Report(s.opts.CapabilityRoot))
		// Read-only server: no shell, no next handler.
	}
}

func (s *Server) logger() *log.Logger {
	if s.opts.Log == nil {
		return log.Default()
	}
	return s.opts.Log
}

// Report renders the capability inventory under root as plain text, one line
// per capability with its artifact counts, or a note when the root holds
// none. Load failures are reported inline rather than aborting: the whole
// point of the status endpoint is seeing what is broken.
func Report(root string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "capability root: %s\n", root)

	names, err := capability.Discover(root)
	if err != nil {
		fmt.Fprintf(&b, "error: %v\n", err)
		return b.String()
	}
	if len(names) == 0 {
		b.WriteString("no capabilities found\n")
		return b.String()
	}

	for _, name := range names {
		c, err := capability.Load(root + "/" + name)
		if err != nil {
			fmt.Fprintf(&b, "%-16s INVALID: %v\n", name, err)
			continue
		}
		fmt.Fprintf(&b, "%-16s packages=%d services=%d setup=%v config=%v\n",
			c.Name, len(c.Packages), len(c.Services), c.HasSetup(), c.HasConfigTree())
	}
	return b.String()
}
