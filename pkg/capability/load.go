// SPDX-License-Identifier: MPL-2.0

package capability

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"capctl/internal/envfile"
)

// Load reads the capability at dir. Flat artifacts (packages, services, env,
// owners, modes) are read first; when a capability.cue manifest is present,
// its non-empty fields override the corresponding flat artifact.
func Load(dir string) (*Capability, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve capability dir %s: %w", dir, err)
	}

	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("capability directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("capability path %s is not a directory", dir)
	}

	c := &Capability{
		Name: filepath.Base(absDir),
		Dir:  absDir,
	}

	if c.Packages, err = readListFile(filepath.Join(absDir, PackagesFile)); err != nil {
		return nil, err
	}
	if c.Services, err = readListFile(filepath.Join(absDir, ServicesFile)); err != nil {
		return nil, err
	}
	if c.Vars, err = envfile.Load(filepath.Join(absDir, EnvFile)); err != nil {
		return nil, err
	}
	if c.Owners, err = readMapFile(filepath.Join(absDir, OwnersFile)); err != nil {
		return nil, err
	}
	if c.Modes, err = readMapFile(filepath.Join(absDir, ModesFile)); err != nil {
		return nil, err
	}

	if setup := filepath.Join(absDir, SetupScript); isFile(setup) {
		c.SetupPath = setup
	}
	if cfg := filepath.Join(absDir, ConfigDirName); isDir(cfg) {
		c.ConfigDir = cfg
	}

	if manifest := filepath.Join(absDir, ManifestFile); isFile(manifest) {
		if err := applyManifest(c, manifest); err != nil {
			return nil, err
		}
	}

	if errs := c.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid capability %s: %w", c.Name, joinErrors(errs))
	}

	return c, nil
}

// LoadAll loads the named capabilities from root, preserving plan order.
func LoadAll(root string, names []string) ([]*Capability, error) {
	caps := make([]*Capability, 0, len(names))
	for _, name := range names {
		c, err := Load(filepath.Join(root, name))
		if err != nil {
			return nil, err
		}
		caps = append(caps, c)
	}
	return caps, nil
}

// Discover returns the sorted names of all capability directories under
// root: directories that carry at least one capability artifact.
func Discover(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("scan capability root %s: %w", root, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if IsCapabilityDir(filepath.Join(root, entry.Name())) {
			names = append(names, entry.Name())
		}
	}

	sort.Strings(names)
	return names, nil
}

// IsCapabilityDir reports whether dir carries at least one capability
// artifact.
func IsCapabilityDir(dir string) bool {
	for _, name := range []string{PackagesFile, ServicesFile, EnvFile, SetupScript, OwnersFile, ModesFile, ManifestFile} {
		if isFile(filepath.Join(dir, name)) {
			return true
		}
	}
	return isDir(filepath.Join(dir, ConfigDirName))
}

// readListFile reads a flat identifier list: one entry per line, blank lines
// and # comments skipped. Missing files yield a nil slice.
func readListFile(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var items []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		items = append(items, line)
	}
	return items, nil
}

// readMapFile reads an owner or mode mapping: "relative/path value" per
// line, whitespace separated, blank lines and # comments skipped. Missing
// files yield a nil map.
func readMapFile(path string) (map[string]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	m := make(map[string]string)
	for i, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%s:%d: expected \"relative/path value\", got %q", path, i+1, line)
		}
		m[fields[0]] = fields[1]
	}
	return m, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func joinErrors(errs []error) error {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
