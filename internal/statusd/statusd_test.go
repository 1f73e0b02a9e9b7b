// SPDX-License-Identifier: MPL-2.0

package statusd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestReport(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"ntp/packages":              "ntp\n",
		"ntp/services":              "ntp.service\n",
		"ntp/setup.sh":              "true\n",
		"ntp/config.d/etc/ntp.conf": "server pool.ntp.org\n",
		"dhcp/services":             "isc-dhcp-server.service\n",
	})

	report := Report(root)

	if !strings.Contains(report, "ntp") || !strings.Contains(report, "dhcp") {
		t.Errorf("report missing capabilities:\n%s", report)
	}
	if !strings.Contains(report, "packages=1 services=1 setup=true config=true") {
		t.Errorf("ntp line wrong:\n%s", report)
	}
	if !strings.Contains(report, "packages=0 services=1 setup=false config=false") {
		t.Errorf("dhcp line wrong:\n%s", report)
	}
}

func TestReport_EmptyRoot(t *testing.T) {
	t.Parallel()

	report := Report(t.TempDir())
	if !strings.Contains(report, "no capabilities found") {
		t.Errorf("report = %q", report)
	}
}

func TestReport_BrokenCapabilityIsInlined(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"bad/owners": "etc/x root:root trailing-field\n",
	})

	report := Report(root)
	if !strings.Contains(report, "INVALID") {
		t.Errorf("broken capability not flagged:\n%s", report)
	}
}

func TestNew_BadAddress(t *testing.T) {
	t.Parallel()

	// Construction validates options lazily; listening on a garbage address
	// must fail rather than hang.
	srv, err := New(Options{Address: "this is not an address", CapabilityRoot: t.TempDir()})
	if err != nil {
		return // constructor may reject it outright, also fine
	}
	if err := srv.ListenAndServe(); err == nil {
		t.Error("expected listen error")
		_ = srv.Shutdown(context.Background())
	}
}
