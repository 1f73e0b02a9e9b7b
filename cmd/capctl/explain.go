// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"capctl/pkg/capability"
)

var (
	explainRoot string

	explainCmd = &cobra.Command{
		Use:   "explain <capability>",
		Short: "Show a capability's documentation and contents",
		Long: `Explain renders the capability's README.md (when present) and
summarizes what applying it would do: packages installed, services
activated, config files copied, and whether a setup script runs.`,
		Args: cobra.ExactArgs(1),
		RunE: runExplain,
	}
)

func init() {
	explainCmd.Flags().StringVar(&explainRoot, "root", "", "capability root directory (overrides config)")
}

func runExplain(cmd *cobra.Command, args []string) error {
	capRoot := cfg.CapabilityRoot
	if explainRoot != "" {
		capRoot = explainRoot
	}

	dir := filepath.Join(capRoot, args[0])
	c, err := capability.Load(dir)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	if readme, readErr := os.ReadFile(filepath.Join(dir, capability.ReadmeFile)); readErr == nil {
		rendered, renderErr := renderMarkdown(string(readme))
		if renderErr != nil {
			rendered = string(readme)
		}
		fmt.Print(rendered)
	} else {
		fmt.Println(TitleStyle.Render(c.Name))
	}

	fmt.Println(SubtitleStyle.Render("Applying this capability will:"))
	if len(c.Packages) > 0 {
		fmt.Printf("  install packages: %s\n", strings.Join(c.Packages, ", "))
	}
	if c.HasSetup() {
		fmt.Println("  run setup.sh")
	}
	if c.HasConfigTree() {
		_, files, treeErr := c.ConfigTree()
		if treeErr != nil {
			return &ExitError{Code: 1, Err: treeErr}
		}
		fmt.Printf("  copy %d config file(s)\n", len(files))
	}
	if len(c.Services) > 0 {
		fmt.Printf("  activate services: %s\n", strings.Join(c.Services, ", "))
	}
	if len(c.Vars) > 0 {
		fmt.Printf("  substitute %d variable(s)\n", len(c.Vars))
	}
	return nil
}

func renderMarkdown(md string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
