// SPDX-License-Identifier: MPL-2.0

// Integration tests that run the full provisioning pipeline against a real
// Debian container: packages come from apt, setup scripts execute inside the
// container. Requires Docker (or a compatible engine) to be available.

package provision

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/testcontainers/testcontainers-go"

	"capctl/internal/runscript"
	"capctl/pkg/capability"
)

// checkTestcontainersAvailable safely checks whether testcontainers can be
// used; its provider detection can panic on hosts without a container engine.
func checkTestcontainersAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return false
	}
	defer provider.Close()
	return true
}

// containerHost adapts a running container to the PackageManager and Runner
// contracts, so Apply drives a real apt and a real shell.
type containerHost struct {
	ctr testcontainers.Container
}

func (h *containerHost) exec(ctx context.Context, cmd []string) error {
	code, reader, err := h.ctr.Exec(ctx, cmd)
	if err != nil {
		return err
	}
	if code != 0 {
		out, _ := io.ReadAll(reader)
		return &ExternalCommandError{
			Cmd:      fmt.Sprintf("%v", cmd),
			ExitCode: code,
			Stdout:   string(out),
		}
	}
	return nil
}

func (h *containerHost) Refresh(ctx context.Context) error {
	return h.exec(ctx, []string{"apt-get", "update"})
}

func (h *containerHost) Install(ctx context.Context, packages []string) error {
	cmd := append([]string{"apt-get", "install", "--assume-yes"}, packages...)
	return h.exec(ctx, cmd)
}

func (h *containerHost) Name() string { return "container" }

func (h *containerHost) Run(ctx context.Context, script []byte, opts runscript.Options) error {
	cmd := []string{"env"}
	for k, v := range opts.Env {
		cmd = append(cmd, k+"="+v)
	}
	cmd = append(cmd, "sh", "-c", string(script))
	return h.exec(ctx, cmd)
}

func startDebianContainer(t *testing.T) *containerHost {
	t.Helper()

	ctx := context.Background()
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image: "debian:bookworm-slim",
			Cmd:   []string{"sleep", "infinity"},
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("skipping: cannot start container: %v", err)
	}
	t.Cleanup(func() {
		timeout, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = ctr.Terminate(timeout)
	})

	return &containerHost{ctr: ctr}
}

func writeIntegrationCapability(t *testing.T, root string) {
	t.Helper()

	dir := filepath.Join(root, "tooling")
	if err := os.MkdirAll(filepath.Join(dir, capability.ConfigDirName, "etc"), 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		capability.PackagesFile: "ca-certificates\n",
		capability.EnvFile:      "MARKER=/tmp/setup-ran\n",
		capability.SetupScript:  "#!/bin/sh\ntouch \"$MARKER\"\n",
		filepath.Join(capability.ConfigDirName, "etc", "tooling.conf"): "host = ${HOST}\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// TestApply_DebianContainer provisions a real Debian image end to end:
// apt installs the package, the setup script runs inside the container,
// and the config tree lands on the (host-side) root.
func TestApply_DebianContainer(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if !checkTestcontainersAvailable() {
		t.Skip("skipping: testcontainers provider not available")
	}

	host := startDebianContainer(t)
	capRoot := t.TempDir()
	writeIntegrationCapability(t, capRoot)

	c, err := capability.Load(filepath.Join(capRoot, "tooling"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	c.Vars["HOST"] = "router"

	destRoot := t.TempDir()
	events := &[]string{}
	p := &Provisioner{
		Packages:      host,
		Services:      newFakeServices(events), // no systemd inside the container
		Runner:        host,
		Root:          destRoot,
		Policy:        PolicyAbort,
		LivenessPause: time.Millisecond,
		Chown:         func(string, string) error { return nil },
		Log:           log.New(io.Discard),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report, err := p.Apply(ctx, []*capability.Capability{c})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if got := report.InstalledPackages["tooling"]; len(got) != 1 || got[0] != "ca-certificates" {
		t.Errorf("InstalledPackages = %v, want [ca-certificates]", got)
	}
	if err := host.exec(ctx, []string{"dpkg", "-s", "ca-certificates"}); err != nil {
		t.Errorf("package not installed in container: %v", err)
	}
	if err := host.exec(ctx, []string{"test", "-f", "/tmp/setup-ran"}); err != nil {
		t.Errorf("setup script did not run in container: %v", err)
	}

	conf, err := os.ReadFile(filepath.Join(destRoot, "etc", "tooling.conf"))
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if string(conf) != "host = router\n" {
		t.Errorf("config content = %q, want %q", conf, "host = router\n")
	}
}

// TestApply_DebianContainer_BadPackage verifies apt failures surface as
// ExternalCommandError with captured output.
func TestApply_DebianContainer_BadPackage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if !checkTestcontainersAvailable() {
		t.Skip("skipping: testcontainers provider not available")
	}

	host := startDebianContainer(t)
	capRoot := t.TempDir()
	dir := filepath.Join(capRoot, "broken")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, capability.PackagesFile), []byte("definitely-not-a-real-package\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := capability.Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	events := &[]string{}
	p := &Provisioner{
		Packages:      host,
		Services:      newFakeServices(events),
		Runner:        host,
		Root:          t.TempDir(),
		Policy:        PolicyAbort,
		LivenessPause: time.Millisecond,
		Chown:         func(string, string) error { return nil },
		Log:           log.New(io.Discard),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if _, err := p.Apply(ctx, []*capability.Capability{c}); err == nil {
		t.Fatal("Apply() expected error for unknown package, got nil")
	}
}
