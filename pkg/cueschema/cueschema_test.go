// SPDX-License-Identifier: MPL-2.0

package cueschema

import (
	"strings"
	"testing"
)

const testSchema = `
#Thing: {
	name:      string & !=""
	packages?: [...string]
	count?:    int & >=0
}
`

type thing struct {
	Name     string   `json:"name"`
	Packages []string `json:"packages,omitempty"`
	Count    int      `json:"count,omitempty"`
}

func TestDecode(t *testing.T) {
	t.Parallel()

	data := []byte(`
name: "ntp"
packages: ["ntp", "ntpdate"]
`)

	got, err := Decode[thing](testSchema, data, "#Thing", "thing.cue")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "ntp" || len(got.Packages) != 2 || got.Packages[1] != "ntpdate" {
		t.Errorf("decoded = %+v", got)
	}
}

func TestDecode_SchemaViolation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{name: "wrong type", data: `name: "x"` + "\n" + `count: "many"`},
		{name: "empty name", data: `name: ""`},
		{name: "unknown field rejected by closed definition", data: `name: "x"` + "\n" + `bogus: true`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := Decode[thing](testSchema, []byte(tt.data), "#Thing", "thing.cue"); err == nil {
				t.Errorf("expected error for %q", tt.data)
			}
		})
	}
}

func TestDecode_ErrorNamesFile(t *testing.T) {
	t.Parallel()

	_, err := Decode[thing](testSchema, []byte(`count: []`), "#Thing", "router/thing.cue")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "router/thing.cue") {
		t.Errorf("error %q does not name the file", err)
	}
}

func TestDecode_SyntaxError(t *testing.T) {
	t.Parallel()

	if _, err := Decode[thing](testSchema, []byte(`name: "unterminated`), "#Thing", "bad.cue"); err == nil {
		t.Fatal("expected syntax error")
	}
}

func TestDecode_OversizeFile(t *testing.T) {
	t.Parallel()

	big := make([]byte, MaxFileSize+1)
	if _, err := Decode[thing](testSchema, big, "#Thing", "big.cue"); err == nil {
		t.Fatal("expected size error")
	}
}

func TestDecodeMap(t *testing.T) {
	t.Parallel()

	got, err := DecodeMap(testSchema, []byte(`name: "dhcp"`), "#Thing", "thing.cue")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["name"] != "dhcp" {
		t.Errorf("decoded map = %v", got)
	}
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path []string
		want string
	}{
		{path: nil, want: ""},
		{path: []string{"files"}, want: "files"},
		{path: []string{"files", "0", "mode"}, want: "files[0].mode"},
		{path: []string{"vars", "PORT"}, want: "vars.PORT"},
	}

	for _, tt := range tests {
		if got := formatPath(tt.path); got != tt.want {
			t.Errorf("formatPath(%v) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
