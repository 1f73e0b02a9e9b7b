// SPDX-License-Identifier: MPL-2.0

// Package plan reads the provisioning plan: the externally supplied, ordered
// list of capabilities to apply in one run, with optional per-run policy
// overrides. Plans are TOML files, conventionally named plan.toml next to
// the capability directories.
package plan

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// DefaultFileName is the plan file looked up inside the capability root when
// no explicit plan path is given.
const DefaultFileName = "plan.toml"

// Plan is one run's worth of provisioning input. Capability order is
// significant: capabilities may rely on earlier entries' packages or config.
type Plan struct {
	// Capabilities is the ordered list of capability names to apply.
	Capabilities []string `toml:"capabilities"`

	// ActivationPolicy optionally overrides the configured policy for this
	// run ("abort" or "continue").
	ActivationPolicy string `toml:"activation_policy,omitempty"`
}

// Load reads and validates a plan file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan %s: %w", path, err)
	}

	var p Plan
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse plan %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan %s: %w", path, err)
	}
	return &p, nil
}

// Validate checks the plan's shape: at least one capability, no blanks, no
// duplicates (a repeated capability almost certainly means a copy-paste slip,
// and re-applying mid-run would defeat the phase barrier).
func (p *Plan) Validate() error {
	if len(p.Capabilities) == 0 {
		return fmt.Errorf("plan lists no capabilities")
	}

	seen := make(map[string]bool, len(p.Capabilities))
	for i, name := range p.Capabilities {
		if name == "" {
			return fmt.Errorf("capability %d is empty", i)
		}
		if seen[name] {
			return fmt.Errorf("capability %q listed more than once", name)
		}
		seen[name] = true
	}

	if p.ActivationPolicy != "" && p.ActivationPolicy != "abort" && p.ActivationPolicy != "continue" {
		return fmt.Errorf("unknown activation policy %q (want abort or continue)", p.ActivationPolicy)
	}
	return nil
}
