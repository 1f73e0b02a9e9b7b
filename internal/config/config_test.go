// SPDX-License-Identifier: MPL-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	// Keep the search away from any real user config.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ActivationPolicy != "abort" || cfg.Runner != "native" || cfg.LogLevel != "info" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.Serve.Address == "" {
		t.Error("serve address default missing")
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ConfigFileName)
	content := `
capability_root: "/srv/capabilities"
activation_policy: "continue"
runner: "virtual"
serve: address: "0.0.0.0:2222"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.CapabilityRoot != "/srv/capabilities" {
		t.Errorf("CapabilityRoot = %q", cfg.CapabilityRoot)
	}
	if cfg.ActivationPolicy != "continue" || cfg.Runner != "virtual" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Serve.Address != "0.0.0.0:2222" {
		t.Errorf("Serve.Address = %q", cfg.Serve.Address)
	}
	// Unset fields keep their defaults.
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want default", cfg.LogLevel)
	}
}

func TestLoad_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "bad policy", content: `activation_policy: "retry"`},
		{name: "bad runner", content: `runner: "container"`},
		{name: "unknown field", content: `colour_scheme: "dark"`},
		{name: "empty root", content: `capability_root: ""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), ConfigFileName)
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Errorf("expected schema error for %q", tt.content)
			}
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "absent.cue")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestUserConfigDir_HonorsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	dir, err := UserConfigDir()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dir != filepath.Join("/tmp/xdg", AppName) {
		t.Errorf("dir = %q", dir)
	}
}
