// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/cristian-bicheru/Zero-DAQ-Software/wire"
)

// KeyMap defines the console's key bindings.
type KeyMap struct {
	Fill     key.Binding
	Vent     key.Binding
	Heating  key.Binding
	Ignitor  key.Binding
	Sequence key.Binding
	Abort    key.Binding

	Up   key.Binding
	Down key.Binding
	Load key.Binding

	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Fill: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "fill valve"),
	),
	Vent: key.NewBinding(
		key.WithKeys("v"),
		key.WithHelp("v", "vent valve"),
	),
	Heating: key.NewBinding(
		key.WithKeys("h"),
		key.WithHelp("h", "tank heating"),
	),
	Ignitor: key.NewBinding(
		key.WithKeys("i"),
		key.WithHelp("i", "ignitor"),
	),
	Sequence: key.NewBinding(
		key.WithKeys("S"),
		key.WithHelp("S", "startup sequence"),
	),
	Abort: key.NewBinding(
		key.WithKeys("A", "esc"),
		key.WithHelp("A/Esc", "ABORT"),
	),
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "previous program"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "next program"),
	),
	Load: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "load program"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "q"),
		key.WithHelp("q", "quit"),
	),
}

// toggle is one two-state button: pressing it sends on when it is off
// and off when it is on.
type toggle struct {
	label   string
	binding func(KeyMap) key.Binding
	on, off wire.ActionKind
}

var toggles = []toggle{
	{"Fill", func(k KeyMap) key.Binding { return k.Fill }, wire.OpenFill, wire.CloseFill},
	{"Vent", func(k KeyMap) key.Binding { return k.Vent }, wire.OpenVent, wire.CloseVent},
	{"Heating", func(k KeyMap) key.Binding { return k.Heating }, wire.EnableTankHeating, wire.DisableTankHeating},
	{"Ignitor", func(k KeyMap) key.Binding { return k.Ignitor }, wire.FireIgnitor, wire.SafeIgnitor},
	{"Sequence", func(k KeyMap) key.Binding { return k.Sequence }, wire.BeginBurnPhase, wire.AbortBurnPhase},
}
