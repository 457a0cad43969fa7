// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package sensor

import (
	"fmt"
	"strings"
)

// Kind is the physical quantity a sensor measures.
type Kind int

const (
	Thrust Kind = iota + 1
	TankMass
	Thermocouple
	TankPressure
	CCPressure
	BatteryLevel
	LoadCell
	FuelValveThrottle
	OxidizerValveThrottle
	MassFlow

	kindCount = int(MassFlow)
)

// kindInfo is the static catalogue entry of a Kind. The first unit is
// the one used on the wire and in the data log.
type kindInfo struct {
	name  string
	units []string
	low   float64
	high  float64
	noise float64
}

var catalogue = [...]kindInfo{
	Thrust:                {"THRUST", []string{"lbf", "kN"}, -20, 220, 1},
	TankMass:              {"TANK_MASS", []string{"kg", "lb"}, 0, 35, 0.1},
	Thermocouple:          {"THERMOCOUPLE", []string{"degC", "K"}, -20, 300, 0.1},
	TankPressure:          {"TANK_PRESSURE", []string{"psi", "MPa", "bar"}, 0, 1000, 10},
	CCPressure:            {"CC_PRESSURE", []string{"psi", "MPa", "bar"}, 0, 300, 3},
	BatteryLevel:          {"BATTERY_LEVEL", []string{"dimensionless"}, 0, 100, 1},
	LoadCell:              {"LOAD_CELL", []string{"kg", "lb"}, 0, 10, 0.1},
	FuelValveThrottle:     {"FUEL_VALVE_THROTTLE", []string{"dimensionless"}, 0, 1, 0},
	OxidizerValveThrottle: {"OXIDIZER_VALVE_THROTTLE", []string{"dimensionless"}, 0, 1, 0},
	MassFlow:              {"MDOT", []string{"kg/s", "g/s"}, 0, 1, 0.01},
}

var _ = [1]struct{}{}[len(catalogue)-1-kindCount]

// Kinds returns every defined Kind in ordinal order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, kindCount)
	for k := Thrust; int(k) <= kindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// Valid reports whether k is a defined Kind.
func (k Kind) Valid() bool {
	return k >= Thrust && int(k) <= kindCount
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return catalogue[k].name
}

// Unit is the default unit, used in the data log header.
func (k Kind) Unit() string {
	if !k.Valid() {
		return ""
	}
	return catalogue[k].units[0]
}

// Units lists every unit the console can display k in, default first.
func (k Kind) Units() []string {
	if !k.Valid() {
		return nil
	}
	return append([]string(nil), catalogue[k].units...)
}

// Range is the expected display range in the default unit.
func (k Kind) Range() (low, high float64) {
	if !k.Valid() {
		return 0, 0
	}
	return catalogue[k].low, catalogue[k].high
}

// Noise is the measured standard deviation of k's readings in the
// default unit.
func (k Kind) Noise() float64 {
	if !k.Valid() {
		return 0
	}
	return catalogue[k].noise
}

// ParseKind accepts the catalogue name in any case.
func ParseKind(name string) (Kind, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for _, k := range Kinds() {
		if catalogue[k].name == upper {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown sensor type %q", name)
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid sensor %s", k)
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
