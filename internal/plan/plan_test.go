// SPDX-License-Identifier: MPL-2.0

package plan

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writePlan(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), DefaultFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	p, err := Load(writePlan(t, `
capabilities = ["base", "ntp", "dhcp"]
activation_policy = "continue"
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(p.Capabilities, []string{"base", "ntp", "dhcp"}) {
		t.Errorf("Capabilities = %v", p.Capabilities)
	}
	if p.ActivationPolicy != "continue" {
		t.Errorf("ActivationPolicy = %q", p.ActivationPolicy)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantIn  string
	}{
		{
			name:    "empty list",
			content: `capabilities = []`,
			wantIn:  "no capabilities",
		},
		{
			name:    "duplicate capability",
			content: `capabilities = ["ntp", "ntp"]`,
			wantIn:  "more than once",
		},
		{
			name:    "blank capability",
			content: `capabilities = ["ntp", ""]`,
			wantIn:  "empty",
		},
		{
			name: "bad policy",
			content: `
capabilities = ["ntp"]
activation_policy = "retry"
`,
			wantIn: "activation policy",
		},
		{
			name:    "not toml",
			content: `capabilities = [`,
			wantIn:  "parse plan",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Load(writePlan(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantIn) {
				t.Errorf("error %q does not mention %q", err, tt.wantIn)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing plan file")
	}
}
