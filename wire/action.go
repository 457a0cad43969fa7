// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import "fmt"

// ActionKind is the operator action carried by an Action message. The
// numeric values are the wire ordinals.
type ActionKind uint8

const (
	OpenFill ActionKind = iota + 1
	CloseFill
	EnableTankHeating
	DisableTankHeating
	FireIgnitor
	SafeIgnitor
	BeginBurnPhase
	AbortBurnPhase
	Abort
	OpenVent
	CloseVent

	// actionCount is the number of defined actions.
	actionCount = int(CloseVent)
)

var actionNames = [...]string{
	OpenFill:           "open_fill",
	CloseFill:          "close_fill",
	EnableTankHeating:  "enable_tank_heating",
	DisableTankHeating: "disable_tank_heating",
	FireIgnitor:        "fire_ignitor",
	SafeIgnitor:        "safe_ignitor",
	BeginBurnPhase:     "begin_burn_phase",
	AbortBurnPhase:     "abort_burn_phase",
	Abort:              "abort",
	OpenVent:           "open_vent",
	CloseVent:          "close_vent",
}

// Fails to compile if an action is added without a name.
var _ = [1]struct{}{}[len(actionNames)-1-actionCount]

// Actions returns every defined action in ordinal order.
func Actions() []ActionKind {
	kinds := make([]ActionKind, 0, actionCount)
	for k := OpenFill; int(k) <= actionCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// Valid reports whether k is a defined action.
func (k ActionKind) Valid() bool {
	return k >= OpenFill && int(k) <= actionCount
}

func (k ActionKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("action(%d)", uint8(k))
	}
	return actionNames[k]
}

// ParseActionKind is the inverse of String.
func ParseActionKind(name string) (ActionKind, error) {
	for k := OpenFill; int(k) <= actionCount; k++ {
		if actionNames[k] == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, name)
}
