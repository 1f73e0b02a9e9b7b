// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"capctl/pkg/capability"
)

var (
	listRoot string

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Show the capabilities under the capability root",
		RunE:  runList,
	}
)

func init() {
	listCmd.Flags().StringVar(&listRoot, "root", "", "capability root directory (overrides config)")
}

func runList(cmd *cobra.Command, args []string) error {
	capRoot := cfg.CapabilityRoot
	if listRoot != "" {
		capRoot = listRoot
	}

	names, err := capability.Discover(capRoot)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}
	if len(names) == 0 {
		fmt.Println(SubtitleStyle.Render("no capabilities found in " + capRoot))
		return nil
	}

	fmt.Println(TitleStyle.Render("Capabilities") + SubtitleStyle.Render(" ("+capRoot+")"))
	for _, name := range names {
		c, loadErr := capability.Load(filepath.Join(capRoot, name))
		if loadErr != nil {
			fmt.Printf("  %s %s\n", NameStyle.Render(name), ErrorStyle.Render("(invalid)"))
			continue
		}
		fmt.Printf("  %s %s\n", NameStyle.Render(name), SubtitleStyle.Render(describeCapability(c)))
	}
	return nil
}

func describeCapability(c *capability.Capability) string {
	desc := fmt.Sprintf("packages=%d services=%d", len(c.Packages), len(c.Services))
	if c.HasSetup() {
		desc += " setup"
	}
	if c.HasConfigTree() {
		desc += " config"
	}
	return desc
}
