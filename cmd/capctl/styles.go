// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/charmbracelet/lipgloss"

// Shared color palette, tuned for dark terminals.
const (
	colorPrimary   = lipgloss.Color("#7C3AED")
	colorMuted     = lipgloss.Color("#6B7280")
	colorSuccess   = lipgloss.Color("#10B981")
	colorError     = lipgloss.Color("#EF4444")
	colorWarning   = lipgloss.Color("#F59E0B")
	colorHighlight = lipgloss.Color("#3B82F6")
)

var (
	// TitleStyle is for primary headers.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	// SubtitleStyle is for secondary text and descriptions.
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	// SuccessStyle marks positive outcomes.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	// ErrorStyle marks failures.
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorError)

	// WarningStyle marks caution states.
	WarningStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	// NameStyle is for capability and service names.
	NameStyle = lipgloss.NewStyle().
			Foreground(colorHighlight)
)
