// SPDX-License-Identifier: MPL-2.0

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"capctl/internal/issue"
	"capctl/internal/plan"
	"capctl/internal/provision"
	"capctl/internal/runscript"
	"capctl/pkg/capability"
)

var (
	applyPlanFile string
	applyRoot     string
	applyPolicy   string
	applyRunner   string
	applyDryRun   bool

	applyCmd = &cobra.Command{
		Use:   "apply [capability...]",
		Short: "Provision the host from an ordered capability list",
		Long: `Apply provisions the host in four phases, each covering every listed
capability before the next phase starts: install packages, run setup
scripts, copy config trees, activate services.

The capability order comes from (first match wins): positional
arguments, --plan, or plan.toml inside the capability root.`,
		RunE: runApply,
	}
)

func init() {
	applyCmd.Flags().StringVar(&applyPlanFile, "plan", "", "plan file (default is <capability-root>/plan.toml)")
	applyCmd.Flags().StringVar(&applyRoot, "root", "", "capability root directory (overrides config)")
	applyCmd.Flags().StringVar(&applyPolicy, "policy", "", "activation failure policy: abort or continue")
	applyCmd.Flags().StringVar(&applyRunner, "runner", "", "setup script runner: native or virtual")
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "log every action without touching the host")
}

func runApply(cmd *cobra.Command, args []string) error {
	capRoot := cfg.CapabilityRoot
	if applyRoot != "" {
		capRoot = applyRoot
	}

	names, policyOverride, err := resolvePlan(capRoot, args)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	policyStr := cfg.ActivationPolicy
	if policyOverride != "" {
		policyStr = policyOverride
	}
	if applyPolicy != "" {
		policyStr = applyPolicy
	}
	policy, err := provision.ParsePolicy(policyStr)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	runnerName := cfg.Runner
	if applyRunner != "" {
		runnerName = applyRunner
	}
	runner, err := runscript.New(runnerName)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	caps, err := capability.LoadAll(capRoot, names)
	if err != nil {
		wrapped := issue.Wrap(err, "load capabilities", capRoot).
			With("Check that every plan entry names a directory under the capability root",
				"Run 'capctl validate' for details")
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+formatError(wrapped))
		return &ExitError{Code: 1, Err: wrapped}
	}

	p := provision.New(log.Default())
	p.Runner = runner
	p.Policy = policy
	p.RequireRoot = true
	p.DryRun = applyDryRun

	if applyDryRun {
		log.Info("dry run: no changes will be made")
	}

	report, err := p.Apply(cmd.Context(), caps)
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+formatError(provisionIssue(err)))
		code := 1
		var permErr *provision.PermissionError
		if errors.As(err, &permErr) {
			code = 77 // sysexits EX_NOPERM
		}
		return &ExitError{Code: code, Err: err}
	}

	printApplySummary(report)
	return nil
}

// resolvePlan returns the ordered capability names and any per-plan policy
// override, from positional args, --plan, or the default plan file.
func resolvePlan(capRoot string, args []string) (names []string, policy string, err error) {
	if len(args) > 0 {
		if applyPlanFile != "" {
			return nil, "", fmt.Errorf("pass either positional capabilities or --plan, not both")
		}
		return args, "", nil
	}

	planPath := applyPlanFile
	if planPath == "" {
		planPath = filepath.Join(capRoot, plan.DefaultFileName)
		if _, statErr := os.Stat(planPath); statErr != nil {
			return nil, "", fmt.Errorf("no capabilities given and no %s found in %s", plan.DefaultFileName, capRoot)
		}
	}

	pl, err := plan.Load(planPath)
	if err != nil {
		return nil, "", err
	}
	return pl.Capabilities, pl.ActivationPolicy, nil
}

// provisionIssue attaches remediation hints to the provisioning error
// taxonomy before display.
func provisionIssue(err error) error {
	var permErr *provision.PermissionError
	if errors.As(err, &permErr) {
		return issue.Wrap(err, "apply capabilities", "").
			With("Re-run with sudo or as root")
	}

	var refErr *provision.MissingReferenceError
	if errors.As(err, &refErr) {
		return issue.Wrap(err, "apply capabilities", refErr.Capability).
			With(fmt.Sprintf("Add %s to the capability's config tree, or remove the %s entry", refErr.Path, refErr.Source))
	}

	var cmdErr *provision.ExternalCommandError
	if errors.As(err, &cmdErr) {
		return issue.Wrap(err, "apply capabilities", "").
			With("The host may be partially configured; fix the cause and re-run")
	}

	return issue.Wrap(err, "apply capabilities", "")
}

func printApplySummary(report *provision.Report) {
	if applyDryRun {
		fmt.Println(TitleStyle.Render("Dry run complete"))
	} else {
		fmt.Println(SuccessStyle.Render("Provisioning complete"))
	}

	for name, pkgs := range report.InstalledPackages {
		fmt.Printf("  %s: %d package(s)\n", NameStyle.Render(name), len(pkgs))
	}
	if n := len(report.SetupRan); n > 0 {
		fmt.Printf("  setup scripts run: %d\n", n)
	}
	if n := len(report.FilesWritten); n > 0 {
		fmt.Printf("  config files written: %d\n", n)
	}
	for _, svc := range report.ServicesActivated {
		fmt.Printf("  %s %s\n", SuccessStyle.Render("active:"), svc)
	}
}
