// SPDX-License-Identifier: MPL-2.0

package template

import (
	"reflect"
	"testing"
)

func TestRenderString(t *testing.T) {
	t.Parallel()

	vars := map[string]string{
		"PORT":    "123",
		"IFACE":   "br0",
		"EMPTY":   "",
		"NTP_SRV": "pool.ntp.org",
	}

	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "single placeholder",
			src:  "listen ${PORT}",
			want: "listen 123",
		},
		{
			name: "multiple placeholders",
			src:  "server ${NTP_SRV} iface ${IFACE}",
			want: "server pool.ntp.org iface br0",
		},
		{
			name: "adjacent placeholders",
			src:  "${IFACE}${PORT}",
			want: "br0123",
		},
		{
			name: "empty value",
			src:  "x=${EMPTY};",
			want: "x=;",
		},
		{
			name: "unresolved placeholder passes through",
			src:  "listen ${MISSING}",
			want: "listen ${MISSING}",
		},
		{
			name: "mixed resolved and unresolved",
			src:  "${PORT}/${MISSING}/${IFACE}",
			want: "123/${MISSING}/br0",
		},
		{
			name: "bare dollar",
			src:  "cost is $5",
			want: "cost is $5",
		},
		{
			name: "dollar brace without name",
			src:  "a ${} b",
			want: "a ${} b",
		},
		{
			name: "unterminated placeholder",
			src:  "a ${PORT",
			want: "a ${PORT",
		},
		{
			name: "name starting with digit is not a placeholder",
			src:  "${1PORT}",
			want: "${1PORT}",
		},
		{
			name: "no placeholders",
			src:  "plain text\n",
			want: "plain text\n",
		},
		{
			name: "empty source",
			src:  "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := RenderString(tt.src, vars); got != tt.want {
				t.Errorf("RenderString(%q) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestRenderString_NoVars(t *testing.T) {
	t.Parallel()

	src := "listen ${PORT}"
	if got := RenderString(src, nil); got != src {
		t.Errorf("nil vars: got %q, want source unchanged", got)
	}
	if got := RenderString(src, map[string]string{}); got != src {
		t.Errorf("empty vars: got %q, want source unchanged", got)
	}
}

func TestRender_Bytes(t *testing.T) {
	t.Parallel()

	src := []byte("listen ${PORT}\n")
	got := Render(src, map[string]string{"PORT": "123"})
	if string(got) != "listen 123\n" {
		t.Errorf("Render = %q", got)
	}
	if string(src) != "listen ${PORT}\n" {
		t.Errorf("Render mutated its input: %q", src)
	}
}

func TestPlaceholders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "order of first appearance, deduplicated",
			src:  "${B} ${A} ${B} ${C}",
			want: []string{"B", "A", "C"},
		},
		{
			name: "malformed placeholders ignored",
			src:  "${} ${1X} ${OK}",
			want: []string{"OK"},
		},
		{
			name: "none",
			src:  "plain",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Placeholders([]byte(tt.src))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Placeholders(%q) = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}
