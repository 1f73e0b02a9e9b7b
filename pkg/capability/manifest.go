// SPDX-License-Identifier: MPL-2.0

package capability

import (
	_ "embed"
	"fmt"
	"os"

	"capctl/pkg/cueschema"
)

//go:embed capability_schema.cue
var manifestSchema string

// Manifest is the decoded form of a capability.cue file. It mirrors the flat
// artifacts in a single declarative document.
type Manifest struct {
	// Packages lists OS packages to install.
	Packages []string `json:"packages,omitempty"`

	// Services lists systemd units to activate.
	Services []string `json:"services,omitempty"`

	// Vars is the substitution environment map.
	Vars map[string]string `json:"vars,omitempty"`

	// Files maps config-tree relative paths to ownership/mode metadata.
	Files map[string]FileMeta `json:"files,omitempty"`
}

// FileMeta is per-file ownership and permission metadata.
type FileMeta struct {
	// Owner is a "user:group" string.
	Owner string `json:"owner,omitempty"`

	// Mode is an octal permission string such as "644".
	Mode string `json:"mode,omitempty"`
}

// ParseManifest reads and validates a capability.cue file.
func ParseManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	return ParseManifestBytes(data, path)
}

// ParseManifestBytes validates manifest content against the embedded CUE
// schema and decodes it.
func ParseManifestBytes(data []byte, path string) (*Manifest, error) {
	return cueschema.Decode[Manifest](manifestSchema, data, "#Capability", path)
}

// applyManifest overlays a manifest onto a capability loaded from flat
// artifacts. Non-empty manifest fields win; the Files map splits into the
// owner and mode maps.
func applyManifest(c *Capability, path string) error {
	m, err := ParseManifest(path)
	if err != nil {
		return err
	}

	if len(m.Packages) > 0 {
		c.Packages = m.Packages
	}
	if len(m.Services) > 0 {
		c.Services = m.Services
	}
	if len(m.Vars) > 0 {
		c.Vars = m.Vars
	}

	if len(m.Files) > 0 {
		owners := make(map[string]string)
		modes := make(map[string]string)
		for rel, meta := range m.Files {
			if meta.Owner != "" {
				owners[rel] = meta.Owner
			}
			if meta.Mode != "" {
				modes[rel] = meta.Mode
			}
		}
		if len(owners) > 0 {
			c.Owners = owners
		}
		if len(modes) > 0 {
			c.Modes = modes
		}
	}

	return nil
}
