// SPDX-License-Identifier: MPL-2.0

// Package provision applies an ordered list of capabilities to the host in
// four phases, each running full-width across the whole list before the
// next begins: install packages, run setup scripts, copy config trees, and
// activate services. All side effects are external (package manager, init
// system, filesystem); the provisioner only coordinates ordering and error
// policy, so re-running after a failure is the supported remediation.
package provision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"capctl/internal/runscript"
	"capctl/internal/template"
	"capctl/pkg/capability"
)

// ActivationPolicy decides what a failed service liveness check does to the
// rest of the run. The two behaviors both exist in the field; neither is
// obviously right, so the choice is explicit configuration.
type ActivationPolicy string

const (
	// PolicyAbort stops the run at the first service that fails to come up.
	PolicyAbort ActivationPolicy = "abort"

	// PolicyContinue skips the failed capability's remaining services,
	// carries on with the rest of the list, and reports all failures at the
	// end of the run.
	PolicyContinue ActivationPolicy = "continue"
)

// ParsePolicy validates a policy string from config or flags.
func ParsePolicy(s string) (ActivationPolicy, error) {
	switch ActivationPolicy(s) {
	case "", PolicyAbort:
		return PolicyAbort, nil
	case PolicyContinue:
		return PolicyContinue, nil
	default:
		return "", fmt.Errorf("unknown activation policy %q (want abort or continue)", s)
	}
}

const (
	defaultLivenessAttempts = 5
	defaultLivenessPause    = 500 * time.Millisecond
)

// Provisioner applies capabilities. Zero-value fields get working defaults
// from New; construct through New unless a test needs full control.
type Provisioner struct {
	// Packages installs OS packages. Defaults to AptManager.
	Packages PackageManager

	// Services manages init-system units. Defaults to SystemdManager.
	Services ServiceManager

	// Runner executes setup scripts. Defaults to the native shell runner.
	Runner runscript.Runner

	// Root is the directory config trees are copied under. Defaults to "/";
	// tests point it at a scratch directory.
	Root string

	// Policy decides how activation failures propagate.
	Policy ActivationPolicy

	// RequireRoot enables the effective-uid-0 precondition check. The CLI
	// sets it; tests leave it off.
	RequireRoot bool

	// DryRun records every action in the report without touching the host.
	DryRun bool

	// LivenessAttempts and LivenessPause bound the is-active poll.
	LivenessAttempts int
	LivenessPause    time.Duration

	// Chown applies an already-validated "user:group" string to a path.
	// Defaults to ChownByName; tests substitute a recorder.
	Chown func(path, owner string) error

	// Log receives progress. Defaults to log.Default().
	Log *log.Logger
}

// New returns a Provisioner wired with the real apt, systemd, shell-runner,
// and chown implementations.
func New(logger *log.Logger) *Provisioner {
	return &Provisioner{
		Packages: &AptManager{Logger: logger},
		Services: &SystemdManager{Logger: logger},
		Runner:   &runscript.NativeRunner{},
		Root:     "/",
		Policy:   PolicyAbort,
		Chown:    ChownByName,
		Log:      logger,
	}
}

// Apply provisions the capabilities in order, phase-major: every
// capability's packages install before any setup script runs, all setup
// completes before any config file is copied, and all config is in place
// before any service is activated. The returned report is valid even when
// err is non-nil and describes everything completed up to the failure.
func (p *Provisioner) Apply(ctx context.Context, caps []*capability.Capability) (*Report, error) {
	report := newReport()

	if p.RequireRoot && !p.DryRun {
		if uid := os.Geteuid(); uid != 0 {
			return report, &PermissionError{UID: uid}
		}
	}

	if err := p.installPhase(ctx, caps, report); err != nil {
		return report, err
	}
	if err := p.setupPhase(ctx, caps, report); err != nil {
		return report, err
	}
	if err := p.configurePhase(caps, report); err != nil {
		return report, err
	}
	if err := p.activatePhase(ctx, caps, report); err != nil {
		return report, err
	}

	return report, report.FailureSummary()
}

func (p *Provisioner) installPhase(ctx context.Context, caps []*capability.Capability, report *Report) error {
	anyPackages := false
	for _, c := range caps {
		if len(c.Packages) > 0 {
			anyPackages = true
			break
		}
	}
	if !anyPackages {
		p.logger().Debug("no packages in any capability, skipping install phase")
		return nil
	}

	// One index refresh per run, no matter how many capabilities follow.
	p.logger().Info("refreshing package index")
	if !p.DryRun {
		if err := p.Packages.Refresh(ctx); err != nil {
			return fmt.Errorf("refresh package index: %w", err)
		}
	}

	for _, c := range caps {
		if len(c.Packages) == 0 {
			continue
		}
		p.logger().Info("installing packages", "capability", c.Name, "count", len(c.Packages))
		if !p.DryRun {
			if err := p.Packages.Install(ctx, c.Packages); err != nil {
				return fmt.Errorf("install packages for capability %s: %w", c.Name, err)
			}
		}
		report.InstalledPackages[c.Name] = append([]string(nil), c.Packages...)
	}
	return nil
}

func (p *Provisioner) setupPhase(ctx context.Context, caps []*capability.Capability, report *Report) error {
	for _, c := range caps {
		if !c.HasSetup() {
			p.logger().Debug("no setup script", "capability", c.Name)
			continue
		}

		script, err := os.ReadFile(c.SetupPath)
		if err != nil {
			return fmt.Errorf("read setup script of capability %s: %w", c.Name, err)
		}
		// Substitution is all-or-nothing per capability: a nil env map means
		// the script runs byte-for-byte as authored.
		script = template.Render(script, c.Vars)

		p.logger().Info("running setup script", "capability", c.Name)
		if !p.DryRun {
			err := p.runner().Run(ctx, script, runscript.Options{
				Env:    c.Vars,
				Dir:    c.Dir,
				Stdout: os.Stdout,
				Stderr: os.Stderr,
			})
			if err != nil {
				return fmt.Errorf("setup script of capability %s: %w", c.Name, err)
			}
		}
		report.SetupRan = append(report.SetupRan, c.Name)
	}
	return nil
}

func (p *Provisioner) configurePhase(caps []*capability.Capability, report *Report) error {
	for _, c := range caps {
		if !c.HasConfigTree() {
			p.logger().Debug("no config tree", "capability", c.Name)
			continue
		}
		if err := p.configureCapability(c, report); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provisioner) configureCapability(c *capability.Capability, report *Report) error {
	dirs, files, err := c.ConfigTree()
	if err != nil {
		return err
	}

	root := p.root()

	// Directories first: a file copy under a missing directory fails.
	for _, rel := range dirs {
		dest := filepath.Join(root, rel)
		p.logger().Debug("creating directory", "capability", c.Name, "path", dest)
		if !p.DryRun {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", dest, err)
			}
		}
		report.DirsCreated = append(report.DirsCreated, dest)
	}

	copied := make(map[string]bool, len(files))
	for _, rel := range files {
		src := filepath.Join(c.ConfigDir, rel)
		dest := filepath.Join(root, rel)

		content, err := os.ReadFile(src)
		if err != nil {
			return fmt.Errorf("read config template %s: %w", src, err)
		}
		content = template.Render(content, c.Vars)

		info, err := os.Stat(src)
		if err != nil {
			return fmt.Errorf("stat config template %s: %w", src, err)
		}

		p.logger().Debug("writing config file", "capability", c.Name, "path", dest)
		if !p.DryRun {
			// The template's own mode is the temporary default; the mode map
			// overrides it below.
			if err := os.WriteFile(dest, content, info.Mode().Perm()); err != nil {
				return fmt.Errorf("write config file %s: %w", dest, err)
			}
		}
		copied[filepath.ToSlash(rel)] = true
		report.FilesWritten = append(report.FilesWritten, dest)
	}

	if err := p.applyOwners(c, copied); err != nil {
		return err
	}
	return p.applyModes(c, copied)
}

func (p *Provisioner) applyOwners(c *capability.Capability, copied map[string]bool) error {
	for rel, owner := range c.Owners {
		// Owner entries are templated like everything else the capability
		// carries: both the path and the user:group value.
		rel = template.RenderString(rel, c.Vars)
		owner = template.RenderString(owner, c.Vars)

		if !copied[filepath.ToSlash(filepath.Clean(rel))] {
			return &MissingReferenceError{Capability: c.Name, Source: capability.OwnersFile, Path: rel}
		}
		if err := capability.CheckOwner(owner); err != nil {
			return fmt.Errorf("capability %s: %w", c.Name, err)
		}

		dest := filepath.Join(p.root(), rel)
		p.logger().Debug("setting owner", "capability", c.Name, "path", dest, "owner", owner)
		if p.DryRun {
			continue
		}
		if err := p.chown()(dest, owner); err != nil {
			return fmt.Errorf("set owner of %s: %w", dest, err)
		}
	}
	return nil
}

func (p *Provisioner) applyModes(c *capability.Capability, copied map[string]bool) error {
	for rel, mode := range c.Modes {
		rel = template.RenderString(rel, c.Vars)
		mode = template.RenderString(mode, c.Vars)

		if !copied[filepath.ToSlash(filepath.Clean(rel))] {
			return &MissingReferenceError{Capability: c.Name, Source: capability.ModesFile, Path: rel}
		}
		perm, err := capability.ParseMode(mode)
		if err != nil {
			return fmt.Errorf("capability %s: %w", c.Name, err)
		}

		dest := filepath.Join(p.root(), rel)
		p.logger().Debug("setting mode", "capability", c.Name, "path", dest, "mode", mode)
		if p.DryRun {
			continue
		}
		if err := os.Chmod(dest, perm); err != nil {
			return fmt.Errorf("set mode of %s: %w", dest, err)
		}
	}
	return nil
}

func (p *Provisioner) activatePhase(ctx context.Context, caps []*capability.Capability, report *Report) error {
	for _, c := range caps {
		if len(c.Services) == 0 {
			p.logger().Debug("no services", "capability", c.Name)
			continue
		}

		for _, service := range c.Services {
			err := p.activateService(ctx, c.Name, service, report)
			if err == nil {
				continue
			}
			failure := ActivationFailure{Capability: c.Name, Service: service, Err: err}
			if p.Policy == PolicyContinue {
				p.logger().Error("service failed activation, continuing", "capability", c.Name, "service", service, "err", err)
				report.ActivationFailures = append(report.ActivationFailures, failure)
				// Remaining services of this capability likely depend on the
				// failed one; skip them and move to the next capability.
				break
			}
			return fmt.Errorf("activate service %s of capability %s: %w", service, c.Name, err)
		}
	}
	return nil
}

func (p *Provisioner) activateService(ctx context.Context, capName, service string, report *Report) error {
	p.logger().Info("activating service", "capability", capName, "service", service)
	if p.DryRun {
		report.ServicesActivated = append(report.ServicesActivated, service)
		return nil
	}

	if err := p.Services.Enable(ctx, service); err != nil {
		return err
	}
	if err := p.Services.Restart(ctx, service); err != nil {
		return err
	}

	attempts := p.LivenessAttempts
	if attempts <= 0 {
		attempts = defaultLivenessAttempts
	}
	pause := p.LivenessPause
	if pause <= 0 {
		pause = defaultLivenessPause
	}

	alive, err := poll(ctx, attempts, pause, func() (bool, error) {
		return p.Services.IsActive(ctx, service)
	})
	if err != nil {
		return err
	}
	if !alive {
		return fmt.Errorf("service did not report active after %d checks", attempts)
	}

	report.ServicesActivated = append(report.ServicesActivated, service)
	return nil
}

func (p *Provisioner) root() string {
	if p.Root == "" {
		return "/"
	}
	return p.Root
}

func (p *Provisioner) runner() runscript.Runner {
	if p.Runner == nil {
		return &runscript.NativeRunner{}
	}
	return p.Runner
}

func (p *Provisioner) chown() func(path, owner string) error {
	if p.Chown == nil {
		return ChownByName
	}
	return p.Chown
}

func (p *Provisioner) logger() *log.Logger {
	if p.Log == nil {
		return log.Default()
	}
	return p.Log
}
