// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"fmt"
	"strings"
)

// Report records what a provisioning run did (or, under dry-run, would do).
type Report struct {
	// InstalledPackages maps capability name to the packages installed for it.
	InstalledPackages map[string][]string

	// SetupRan lists capabilities whose setup script was executed, in order.
	SetupRan []string

	// FilesWritten lists destination paths written during configure, in order.
	FilesWritten []string

	// DirsCreated lists destination directories created during configure.
	DirsCreated []string

	// ServicesActivated lists services that enabled, restarted, and reported
	// active, in order.
	ServicesActivated []string

	// ActivationFailures lists services that failed liveness verification.
	// Only populated under PolicyContinue; PolicyAbort stops at the first.
	ActivationFailures []ActivationFailure
}

// ActivationFailure identifies one service that did not come up.
type ActivationFailure struct {
	Capability string
	Service    string
	Err        error
}

func (f ActivationFailure) String() string {
	if f.Err != nil {
		return fmt.Sprintf("%s/%s: %v", f.Capability, f.Service, f.Err)
	}
	return fmt.Sprintf("%s/%s: did not report active", f.Capability, f.Service)
}

func newReport() *Report {
	return &Report{InstalledPackages: make(map[string][]string)}
}

// FailureSummary renders all activation failures as one error, or nil when
// every service came up.
func (r *Report) FailureSummary() error {
	if len(r.ActivationFailures) == 0 {
		return nil
	}
	msgs := make([]string, len(r.ActivationFailures))
	for i, f := range r.ActivationFailures {
		msgs[i] = f.String()
	}
	return fmt.Errorf("%d service(s) failed activation: %s", len(msgs), strings.Join(msgs, "; "))
}
