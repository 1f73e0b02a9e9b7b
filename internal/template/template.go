// SPDX-License-Identifier: MPL-2.0

// Package template renders ${NAME} placeholders against a capability's
// variable map. Rendering is pure (bytes in, bytes out) so it can be tested
// without touching the filesystem; callers decide where rendered output goes.
package template

import "strings"

// Render substitutes ${NAME} placeholders in src with values from vars.
// A placeholder whose name is not bound in vars is left untouched, as is any
// '$' that does not introduce a well-formed placeholder. A nil or empty vars
// map returns a copy of src unchanged.
func Render(src []byte, vars map[string]string) []byte {
	return []byte(RenderString(string(src), vars))
}

// RenderString is Render for strings.
func RenderString(src string, vars map[string]string) string {
	if len(vars) == 0 || !strings.Contains(src, "${") {
		return src
	}

	var out strings.Builder
	out.Grow(len(src))

	for i := 0; i < len(src); {
		if src[i] == '$' && i+1 < len(src) && src[i+1] == '{' {
			if name, next, ok := scanPlaceholder(src, i); ok {
				if value, bound := vars[name]; bound {
					out.WriteString(value)
				} else {
					// Unresolved placeholders pass through verbatim.
					out.WriteString(src[i:next])
				}
				i = next
				continue
			}
		}
		out.WriteByte(src[i])
		i++
	}

	return out.String()
}

// Placeholders returns the placeholder names referenced by src, in order of
// first appearance, without duplicates.
func Placeholders(src []byte) []string {
	s := string(src)
	var names []string
	seen := map[string]bool{}

	for i := 0; i < len(s); {
		if s[i] == '$' && i+1 < len(s) && s[i+1] == '{' {
			if name, next, ok := scanPlaceholder(s, i); ok {
				if !seen[name] {
					seen[name] = true
					names = append(names, name)
				}
				i = next
				continue
			}
		}
		i++
	}

	return names
}

// scanPlaceholder parses a "${NAME}" placeholder starting at s[start]. It
// returns the placeholder name, the index just past the closing brace, and
// whether the placeholder was well formed. Names are [A-Za-z_][A-Za-z0-9_]*.
func scanPlaceholder(s string, start int) (name string, next int, ok bool) {
	i := start + 2
	for i < len(s) && isNameByte(s[i], i == start+2) {
		i++
	}
	if i == start+2 || i >= len(s) || s[i] != '}' {
		return "", 0, false
	}
	return s[start+2 : i], i + 1, true
}

func isNameByte(c byte, first bool) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		return true
	case c >= '0' && c <= '9':
		return !first
	default:
		return false
	}
}
