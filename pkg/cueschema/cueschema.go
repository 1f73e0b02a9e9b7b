// SPDX-License-Identifier: MPL-2.0

// Package cueschema validates user-supplied CUE files against an embedded
// schema and decodes them into Go structs. It backs both the capability
// manifest (capability.cue) and the tool configuration (config.cue).
package cueschema

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// MaxFileSize bounds the size of files handed to the CUE evaluator so a
// runaway file cannot exhaust memory. Manifests and configs are tiny; 1MB is
// generous.
const MaxFileSize = 1 << 20

// Decode compiles schema, compiles data, unifies data with the definition at
// schemaPath (e.g. "#Capability"), validates, and decodes into T. The
// filename is used only for error messages.
func Decode[T any](schema string, data []byte, schemaPath, filename string) (*T, error) {
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("%s: file size %d exceeds maximum %d bytes", filename, len(data), MaxFileSize)
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(schema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: compile schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(filename))
	if userValue.Err() != nil {
		return nil, FormatError(userValue.Err(), filename)
	}

	root := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if root.Err() != nil {
		return nil, fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, root.Err())
	}

	unified := root.Unify(userValue)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, FormatError(err, filename)
	}

	var out T
	if err := unified.Decode(&out); err != nil {
		return nil, FormatError(err, filename)
	}
	return &out, nil
}

// DecodeMap is Decode for callers that want the raw key/value shape, such as
// the config loader that merges into viper. Optional fields are allowed to
// stay open, so validation is non-concrete.
func DecodeMap(schema string, data []byte, schemaPath, filename string) (map[string]any, error) {
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("%s: file size %d exceeds maximum %d bytes", filename, len(data), MaxFileSize)
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(schema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: compile schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(filename))
	if userValue.Err() != nil {
		return nil, FormatError(userValue.Err(), filename)
	}

	root := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if root.Err() != nil {
		return nil, fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, root.Err())
	}

	unified := root.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return nil, FormatError(err, filename)
	}

	var out map[string]any
	if err := unified.Decode(&out); err != nil {
		return nil, FormatError(err, filename)
	}
	return out, nil
}

// FormatError flattens a CUE error into "<file>: <path>: <message>" lines so
// the user sees which field failed instead of a raw evaluator dump.
func FormatError(err error, filename string) error {
	if err == nil {
		return nil
	}

	cueErrs := cueerrors.Errors(err)
	if len(cueErrs) == 0 {
		return fmt.Errorf("%s: %w", filename, err)
	}

	var lines []string
	for _, e := range cueErrs {
		path := formatPath(cueerrors.Path(e))
		msg := e.Error()
		if path != "" && strings.HasPrefix(msg, path) {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, path), ":"))
		}
		if path != "" {
			lines = append(lines, fmt.Sprintf("%s: %s", path, msg))
		} else {
			lines = append(lines, msg)
		}
	}

	if len(lines) == 1 {
		return fmt.Errorf("%s: %s", filename, lines[0])
	}
	return fmt.Errorf("%s: validation failed:\n  %s", filename, strings.Join(lines, "\n  "))
}

// formatPath renders a CUE error path ["files", "0", "mode"] as
// "files[0].mode".
func formatPath(path []string) string {
	var out strings.Builder
	for i, part := range path {
		if i > 0 && isIndex(part) {
			out.WriteString("[")
			out.WriteString(part)
			out.WriteString("]")
			continue
		}
		if i > 0 {
			out.WriteString(".")
		}
		out.WriteString(part)
	}
	return out.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
