// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package hardware

import "fmt"

// Valve identifies a servo-driven ball valve.
type Valve int

const (
	FillValve Valve = iota
	VentValve
	FuelValve
	OxidizerValve

	valveCount
)

var valveNames = [valveCount]string{
	FillValve:     "fill",
	VentValve:     "vent",
	FuelValve:     "fuel",
	OxidizerValve: "oxidizer",
}

func (v Valve) String() string {
	if v < 0 || v >= valveCount {
		return fmt.Sprintf("valve(%d)", int(v))
	}
	return valveNames[v]
}

// ParseValve is the inverse of String.
func ParseValve(name string) (Valve, error) {
	for v, n := range valveNames {
		if n == name {
			return Valve(v), nil
		}
	}
	return 0, fmt.Errorf("unknown valve %q", name)
}

// Relay identifies a relay-switched device.
type Relay int

const (
	Ignitor Relay = iota
	TankHeater
	WarningLight
	DangerLight

	relayCount
)

var relayNames = [relayCount]string{
	Ignitor:      "ignitor",
	TankHeater:   "tank_heater",
	WarningLight: "warning_light",
	DangerLight:  "danger_light",
}

func (r Relay) String() string {
	if r < 0 || r >= relayCount {
		return fmt.Sprintf("relay(%d)", int(r))
	}
	return relayNames[r]
}

// LightStatus is the state shown on the stand's warning lights.
type LightStatus int

const (
	LightSafe LightStatus = iota
	LightWarning
	LightDanger
)

func (s LightStatus) String() string {
	switch s {
	case LightSafe:
		return "safe"
	case LightWarning:
		return "warning"
	case LightDanger:
		return "danger"
	}
	return fmt.Sprintf("light(%d)", int(s))
}
