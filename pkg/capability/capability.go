// SPDX-License-Identifier: MPL-2.0

// Package capability models a self-describing unit of host configuration: a
// directory that contributes OS packages, an optional setup script, a
// templated config-file tree with ownership and mode metadata, and systemd
// services. The package loads capabilities from disk; applying them is the
// job of internal/provision.
package capability

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Artifact names that make up the on-disk capability layout. Every artifact
// is optional; a directory is a capability as soon as it carries one of them.
const (
	PackagesFile  = "packages"
	ServicesFile  = "services"
	EnvFile       = "env"
	SetupScript   = "setup.sh"
	ConfigDirName = "config.d"
	OwnersFile    = "owners"
	ModesFile     = "modes"
	ManifestFile  = "capability.cue"
	ReadmeFile    = "README.md"
)

// Capability is a loaded capability, ready for provisioning.
type Capability struct {
	// Name is the capability's directory basename and unique identifier.
	Name string

	// Dir is the absolute path of the capability directory.
	Dir string

	// Packages lists OS packages to install, in order.
	Packages []string

	// Services lists systemd units to enable and restart, in order.
	Services []string

	// Vars is the capability's environment map for ${NAME} substitution.
	// A nil map disables substitution for every templated artifact.
	Vars map[string]string

	// SetupPath is the absolute path of setup.sh, or "" when absent.
	SetupPath string

	// ConfigDir is the absolute path of config.d, or "" when absent.
	ConfigDir string

	// Owners maps config-tree relative paths to "user:group" strings.
	Owners map[string]string

	// Modes maps config-tree relative paths to octal mode strings like "644".
	Modes map[string]string
}

// HasSetup reports whether the capability carries a setup script.
func (c *Capability) HasSetup() bool { return c.SetupPath != "" }

// HasConfigTree reports whether the capability carries a config.d tree.
func (c *Capability) HasConfigTree() bool { return c.ConfigDir != "" }

// ConfigTree walks config.d and returns the relative paths of all
// directories and regular files, each slice sorted. Directories sort
// parents-before-children, which is the order they must be created in.
func (c *Capability) ConfigTree() (dirs, files []string, err error) {
	if c.ConfigDir == "" {
		return nil, nil, nil
	}

	err = filepath.WalkDir(c.ConfigDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, relErr := filepath.Rel(c.ConfigDir, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			dirs = append(dirs, rel)
			return nil
		}
		if !d.Type().IsRegular() {
			return fmt.Errorf("config tree entry %s of capability %s is not a regular file", rel, c.Name)
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walk config tree of capability %s: %w", c.Name, err)
	}

	sort.Strings(dirs)
	sort.Strings(files)
	return dirs, files, nil
}

// Validate checks the capability's static metadata: non-empty identifiers,
// well-formed owner and mode strings, and owner/mode references that use
// clean relative paths. It does not verify that referenced paths exist in
// the config tree; that check happens at provisioning time, after template
// substitution.
func (c *Capability) Validate() []error {
	var errs []error

	for i, pkg := range c.Packages {
		if strings.TrimSpace(pkg) == "" {
			errs = append(errs, fmt.Errorf("capability %s: package %d is empty", c.Name, i))
		}
	}
	for i, svc := range c.Services {
		if strings.TrimSpace(svc) == "" {
			errs = append(errs, fmt.Errorf("capability %s: service %d is empty", c.Name, i))
		}
	}

	for path, owner := range c.Owners {
		if err := checkRelPath(path); err != nil {
			errs = append(errs, fmt.Errorf("capability %s: owner entry %q: %w", c.Name, path, err))
		}
		if err := CheckOwner(owner); err != nil {
			errs = append(errs, fmt.Errorf("capability %s: owner entry %q: %w", c.Name, path, err))
		}
	}
	for path, mode := range c.Modes {
		if err := checkRelPath(path); err != nil {
			errs = append(errs, fmt.Errorf("capability %s: mode entry %q: %w", c.Name, path, err))
		}
		if err := CheckMode(mode); err != nil {
			errs = append(errs, fmt.Errorf("capability %s: mode entry %q: %w", c.Name, path, err))
		}
	}

	return errs
}

// CheckOwner validates a "user:group" string. Templated values (containing
// ${...}) are accepted; they are re-checked after substitution.
func CheckOwner(owner string) error {
	if strings.Contains(owner, "${") {
		return nil
	}
	user, group, found := strings.Cut(owner, ":")
	if !found || user == "" || group == "" {
		return fmt.Errorf("owner %q is not of the form user:group", owner)
	}
	return nil
}

// CheckMode validates an octal mode string such as "644" or "0755".
// Templated values are accepted, as for CheckOwner.
func CheckMode(mode string) error {
	if strings.Contains(mode, "${") {
		return nil
	}
	if mode == "" {
		return fmt.Errorf("mode is empty")
	}
	if _, err := strconv.ParseUint(mode, 8, 32); err != nil {
		return fmt.Errorf("mode %q is not an octal permission string", mode)
	}
	return nil
}

// ParseMode converts an octal mode string into a file mode.
func ParseMode(mode string) (os.FileMode, error) {
	if err := CheckMode(mode); err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(mode, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("mode %q is not an octal permission string", mode)
	}
	return os.FileMode(n), nil
}

func checkRelPath(path string) error {
	if path == "" {
		return fmt.Errorf("path is empty")
	}
	if filepath.IsAbs(path) {
		return fmt.Errorf("path must be relative to the config tree")
	}
	clean := filepath.Clean(filepath.FromSlash(path))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path escapes the config tree")
	}
	return nil
}
