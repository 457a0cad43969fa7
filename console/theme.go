// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme is the console's colour palette, in ANSI 256-colour codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color

	Connected    lipgloss.Color
	Disconnected lipgloss.Color
	ToggleOn     lipgloss.Color
	Abort        lipgloss.Color

	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color
}

// DefaultTheme is the built-in dark-terminal colour scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),

	Connected:    lipgloss.Color("114"), // green
	Disconnected: lipgloss.Color("196"), // red
	ToggleOn:     lipgloss.Color("220"), // amber
	Abort:        lipgloss.Color("196"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),
}

// styles are the theme's lipgloss styles bound to one renderer.
type styles struct {
	header       lipgloss.Style
	section      lipgloss.Style
	normal       lipgloss.Style
	faint        lipgloss.Style
	help         lipgloss.Style
	connected    lipgloss.Style
	disconnected lipgloss.Style
	toggleOn     lipgloss.Style
	abort        lipgloss.Style
	selected     lipgloss.Style
}

func newStyles(renderer *lipgloss.Renderer, theme Theme) styles {
	return styles{
		header:       renderer.NewStyle().Bold(true).Foreground(theme.HeaderForeground),
		section:      renderer.NewStyle().Foreground(theme.BorderColor),
		normal:       renderer.NewStyle().Foreground(theme.NormalText),
		faint:        renderer.NewStyle().Foreground(theme.FaintText),
		help:         renderer.NewStyle().Foreground(theme.HelpText),
		connected:    renderer.NewStyle().Bold(true).Foreground(theme.Connected),
		disconnected: renderer.NewStyle().Bold(true).Foreground(theme.Disconnected),
		toggleOn:     renderer.NewStyle().Bold(true).Foreground(theme.ToggleOn),
		abort:        renderer.NewStyle().Bold(true).Foreground(theme.Abort),
		selected: renderer.NewStyle().
			Background(theme.SelectedBackground).
			Foreground(theme.SelectedForeground),
	}
}

// NewRenderer returns a lipgloss renderer for w with a fixed 256-colour
// profile. Tests use termenv.Ascii for uncoloured output.
func NewRenderer(w io.Writer, profile termenv.Profile) *lipgloss.Renderer {
	renderer := lipgloss.NewRenderer(w, termenv.WithProfile(profile))
	renderer.SetColorProfile(profile)
	return renderer
}
