// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"capctl/internal/plan"
	"capctl/internal/runscript"
	"capctl/pkg/capability"
)

var (
	validateRoot string
	validatePlan string

	validateCmd = &cobra.Command{
		Use:   "validate [capability...]",
		Short: "Check capability metadata, scripts, and the plan",
		Long: `Validate loads every capability (or only the named ones), checks its
metadata against the schema, parses its setup script for shell syntax
errors, and verifies the plan file when one exists. Nothing is changed
on the host.`,
		RunE: runValidate,
	}
)

func init() {
	validateCmd.Flags().StringVar(&validateRoot, "root", "", "capability root directory (overrides config)")
	validateCmd.Flags().StringVar(&validatePlan, "plan", "", "plan file to check (default is <capability-root>/plan.toml)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	capRoot := cfg.CapabilityRoot
	if validateRoot != "" {
		capRoot = validateRoot
	}

	names := args
	if len(names) == 0 {
		discovered, err := capability.Discover(capRoot)
		if err != nil {
			return &ExitError{Code: 1, Err: err}
		}
		names = discovered
	}

	failures := 0
	for _, name := range names {
		errs := validateCapability(filepath.Join(capRoot, name))
		if len(errs) == 0 {
			fmt.Printf("%s %s\n", SuccessStyle.Render("ok"), NameStyle.Render(name))
			continue
		}
		failures++
		fmt.Printf("%s %s\n", ErrorStyle.Render("FAIL"), NameStyle.Render(name))
		for _, err := range errs {
			fmt.Printf("  %s\n", err)
		}
	}

	if err := validatePlanFile(capRoot, names); err != nil {
		failures++
		fmt.Printf("%s plan: %s\n", ErrorStyle.Render("FAIL"), err)
	}

	if failures > 0 {
		return &ExitError{Code: 1, Err: fmt.Errorf("%d validation failure(s)", failures)}
	}
	fmt.Println(SuccessStyle.Render(fmt.Sprintf("%d capability(ies) valid", len(names))))
	return nil
}

// validateCapability loads one capability directory and returns every
// problem found, including shell syntax errors in its setup script.
func validateCapability(dir string) []error {
	c, err := capability.Load(dir)
	if err != nil {
		return []error{err}
	}

	var errs []error
	if c.HasSetup() {
		script, readErr := os.ReadFile(c.SetupPath)
		if readErr != nil {
			errs = append(errs, readErr)
		} else if synErr := runscript.CheckSyntax(script, capability.SetupScript); synErr != nil {
			errs = append(errs, synErr)
		}
	}
	return errs
}

// validatePlanFile checks the plan when one is present or explicitly
// given, including that every entry names a known capability.
func validatePlanFile(capRoot string, known []string) error {
	planPath := validatePlan
	if planPath == "" {
		planPath = filepath.Join(capRoot, plan.DefaultFileName)
		if _, err := os.Stat(planPath); err != nil {
			return nil // no plan is fine
		}
	}

	pl, err := plan.Load(planPath)
	if err != nil {
		return err
	}

	knownSet := make(map[string]bool, len(known))
	for _, name := range known {
		knownSet[name] = true
	}
	for _, name := range pl.Capabilities {
		if !knownSet[name] {
			return fmt.Errorf("plan lists unknown capability %q", name)
		}
	}
	return nil
}
