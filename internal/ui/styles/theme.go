// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components for the application. Colors adapt to
// the terminal's detected capability and the configured light/dark mode.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	// Header and status
	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	StatusBar   lipgloss.Style
	StatusKey   lipgloss.Style
	StatusModel lipgloss.Style

	// Message rendering
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	SystemLabel    lipgloss.Style
	InfoText       lipgloss.Style
	MessageBody    lipgloss.Style
	AttachmentTag  lipgloss.Style
	ErrorMarker    lipgloss.Style

	// Input area
	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style

	// Transient notices
	Notice  lipgloss.Style
	Spinner lipgloss.Style
}

// palette holds the raw colors for a theme variant.
type palette struct {
	accent    lipgloss.Color
	secondary lipgloss.Color
	muted     lipgloss.Color
	errorc    lipgloss.Color
	body      lipgloss.Color
	surface   lipgloss.Color
}

var darkPalette = palette{
	accent:    lipgloss.Color("#7aa2f7"),
	secondary: lipgloss.Color("#9ece6a"),
	muted:     lipgloss.Color("#565f89"),
	errorc:    lipgloss.Color("#f7768e"),
	body:      lipgloss.Color("#c0caf5"),
	surface:   lipgloss.Color("#1a1b26"),
}

var lightPalette = palette{
	accent:    lipgloss.Color("#2e5aac"),
	secondary: lipgloss.Color("#3f7d20"),
	muted:     lipgloss.Color("#8a8fa3"),
	errorc:    lipgloss.Color("#c4314b"),
	body:      lipgloss.Color("#24292f"),
	surface:   lipgloss.Color("#f6f8fa"),
}

// NewTheme creates a theme for the given mode ("dark" or "light").
func NewTheme(mode string) *Theme {
	isDark := mode != "light"
	p := darkPalette
	if !isDark {
		p = lightPalette
	}

	return &Theme{
		IsDark:       isDark,
		ColorProfile: termenv.ColorProfile(),

		Header: lipgloss.NewStyle().
			Background(p.surface).
			Padding(0, 1),
		HeaderTitle: lipgloss.NewStyle().
			Foreground(p.accent).
			Bold(true),
		StatusBar: lipgloss.NewStyle().
			Foreground(p.muted),
		StatusKey: lipgloss.NewStyle().
			Foreground(p.accent),
		StatusModel: lipgloss.NewStyle().
			Foreground(p.secondary).
			Bold(true),

		UserLabel: lipgloss.NewStyle().
			Foreground(p.accent).
			Bold(true),
		AssistantLabel: lipgloss.NewStyle().
			Foreground(p.secondary).
			Bold(true),
		SystemLabel: lipgloss.NewStyle().
			Foreground(p.muted).
			Bold(true),
		InfoText: lipgloss.NewStyle().
			Foreground(p.muted).
			Italic(true),
		MessageBody: lipgloss.NewStyle().
			Foreground(p.body),
		AttachmentTag: lipgloss.NewStyle().
			Foreground(p.muted).
			Italic(true),
		ErrorMarker: lipgloss.NewStyle().
			Foreground(p.errorc).
			Bold(true),

		InputContainer: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(p.muted).
			Padding(0, 1),
		InputPrompt: lipgloss.NewStyle().
			Foreground(p.accent),

		Notice: lipgloss.NewStyle().
			Foreground(p.errorc),
		Spinner: lipgloss.NewStyle().
			Foreground(p.accent),
	}
}
