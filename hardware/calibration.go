// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package hardware

import (
	"fmt"
	"math"
)

// Calibration holds the servo duty cycles of one valve: fully closed,
// just cracking open, and fully open. Throttle in (0, 1] maps linearly
// from Cracking to Open.
type Calibration struct {
	Closed   float64 `yaml:"closed"`
	Cracking float64 `yaml:"cracking"`
	Open     float64 `yaml:"open"`
}

// Duty returns the servo duty for throttle t, clamped to [0, 1]. Zero
// throttle is the cracking point, not closed; use Closed to shut the
// valve.
func (c Calibration) Duty(t float64) float64 {
	return c.Cracking + (c.Open-c.Cracking)*clampUnit(t)
}

// Validate checks that every duty is a fraction in [0, 1].
func (c Calibration) Validate() error {
	for name, duty := range map[string]float64{"closed": c.Closed, "cracking": c.Cracking, "open": c.Open} {
		if math.IsNaN(duty) || duty < 0 || duty > 1 {
			return fmt.Errorf("%s duty %v outside [0, 1]", name, duty)
		}
	}
	return nil
}

// DefaultCalibrations returns the bench-measured duties of the stand's
// valves, keyed by valve name.
func DefaultCalibrations() map[string]Calibration {
	return map[string]Calibration{
		FuelValve.String():     {Closed: 0.98, Cracking: 0.93, Open: 0.74},
		OxidizerValve.String(): {Closed: 0.95, Cracking: 0.91, Open: 0.71},
		FillValve.String():     {Closed: 0.98, Cracking: 0.92, Open: 0.74},
		VentValve.String():     {Closed: 0.95, Cracking: 0.89, Open: 0.71},
	}
}

func clampUnit(t float64) float64 {
	if math.IsNaN(t) || t < 0 {
		return 0
	}
	return min(t, 1)
}
