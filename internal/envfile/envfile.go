// SPDX-License-Identifier: MPL-2.0

// Package envfile parses a capability's env artifact: one NAME=value
// assignment per line. The resulting map feeds placeholder substitution for
// the capability's setup script, config tree, and owner/mode maps.
package envfile

import (
	"fmt"
	"os"
	"strings"
)

// Load reads path and parses it into a fresh environment map. A missing file
// is not an error; it yields a nil map, which callers treat as "no
// substitution for this capability".
func Load(path string) (map[string]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}

	env := make(map[string]string)
	if err := Parse(env, content, path); err != nil {
		return nil, err
	}
	return env, nil
}

// Parse parses env-list content into env. Later assignments override earlier
// ones for the same name.
//
// Accepted syntax, per line:
//   - # comment lines and blank lines are skipped
//   - NAME=value (unquoted; a trailing " # comment" is stripped)
//   - NAME="value" (double-quoted; \n \r \t \\ \" \$ escapes)
//   - NAME='value' (single-quoted, literal)
//   - an optional leading "export " is ignored
//
// The filename parameter is only used in error messages.
func Parse(env map[string]string, content []byte, filename string) error {
	for i, line := range strings.Split(string(content), "\n") {
		lineNum := i + 1

		line = strings.TrimSuffix(line, "\r")
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

		name, value, found := strings.Cut(line, "=")
		if !found {
			return fmt.Errorf("%s:%d: missing '=' in assignment", filename, lineNum)
		}

		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("%s:%d: empty variable name", filename, lineNum)
		}

		parsed, err := parseValue(value)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", filename, lineNum, err)
		}
		env[name] = parsed
	}

	return nil
}

func parseValue(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}

	switch value[0] {
	case '"':
		if len(value) < 2 || value[len(value)-1] != '"' {
			return "", fmt.Errorf("unterminated double quote")
		}
		return unescape(value[1 : len(value)-1]), nil
	case '\'':
		if len(value) < 2 || value[len(value)-1] != '\'' {
			return "", fmt.Errorf("unterminated single quote")
		}
		return value[1 : len(value)-1], nil
	}

	// Unquoted: strip a trailing inline comment.
	if idx := strings.Index(value, " #"); idx != -1 {
		value = strings.TrimSpace(value[:idx])
	}
	return value, nil
}

func unescape(value string) string {
	var out strings.Builder
	out.Grow(len(value))

	for i := 0; i < len(value); {
		if value[i] == '\\' && i+1 < len(value) {
			switch value[i+1] {
			case 'n':
				out.WriteByte('\n')
			case 'r':
				out.WriteByte('\r')
			case 't':
				out.WriteByte('\t')
			case '\\':
				out.WriteByte('\\')
			case '"':
				out.WriteByte('"')
			case '$':
				out.WriteByte('$')
			default:
				out.WriteByte('\\')
				out.WriteByte(value[i+1])
			}
			i += 2
			continue
		}
		out.WriteByte(value[i])
		i++
	}

	return out.String()
}
