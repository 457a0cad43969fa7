// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package sensor

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// Descriptor is one configured sensor.
type Descriptor struct {
	Name string `yaml:"name"`
	Kind Kind   `yaml:"type"`
	ID   uint8  `yaml:"id"`

	// Rate is the sampling rate in Hz. Zero marks a derived sensor
	// that the controller never reads.
	Rate int `yaml:"rate,omitempty"`

	// Number selects among several sensors of the same Kind, from 1.
	Number int `yaml:"number,omitempty"`

	// Tab is the console page the sensor is shown on, from 1.
	Tab int `yaml:"tab,omitempty"`

	Calibration *Calibration `yaml:"calibration,omitempty"`
}

// Physical reports whether the sensor is sampled by the controller.
func (d Descriptor) Physical() bool { return d.Rate > 0 }

// Unit is the sensor's default unit.
func (d Descriptor) Unit() string { return d.Kind.Unit() }

// Column is the sensor's data log header cell.
func (d Descriptor) Column() string {
	return fmt.Sprintf("%s [%s]", d.Name, d.Unit())
}

// Calibrate converts a raw reading to the default unit. Without a
// calibration the reading passes through unchanged.
func (d Descriptor) Calibrate(raw float64) float64 {
	if d.Calibration == nil {
		return raw
	}
	return d.Calibration.Apply(raw)
}

// Validate checks one descriptor in isolation.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return errors.New("sensor has no name")
	}
	if !d.Kind.Valid() {
		return fmt.Errorf("sensor %q: invalid %s", d.Name, d.Kind)
	}
	if d.Rate < 0 {
		return fmt.Errorf("sensor %q: negative rate %d", d.Name, d.Rate)
	}
	if d.Number < 0 || d.Tab < 0 {
		return fmt.Errorf("sensor %q: number and tab count from 1", d.Name)
	}
	if d.Calibration != nil {
		if err := d.Calibration.Validate(); err != nil {
			return fmt.Errorf("sensor %q calibration: %w", d.Name, err)
		}
	}
	return nil
}

// ValidateSet checks every descriptor and rejects duplicate ids and
// names.
func ValidateSet(sensors []Descriptor) error {
	ids := make(map[uint8]string, len(sensors))
	names := make(map[string]bool, len(sensors))
	for _, d := range sensors {
		if err := d.Validate(); err != nil {
			return err
		}
		if other, ok := ids[d.ID]; ok {
			return fmt.Errorf("sensors %q and %q share id %d", other, d.Name, d.ID)
		}
		if names[d.Name] {
			return fmt.Errorf("duplicate sensor name %q", d.Name)
		}
		ids[d.ID] = d.Name
		names[d.Name] = true
	}
	return nil
}

// Calibration maps a raw reading to the default unit. With no Table it
// is linear: (raw - Offset) * Scale. With a Table it interpolates
// linearly between the points, clamping outside them.
type Calibration struct {
	Offset float64 `yaml:"offset,omitempty"`
	Scale  float64 `yaml:"scale,omitempty"`
	Table  []Point `yaml:"table,omitempty"`
}

// Point is one entry of a calibration table.
type Point struct {
	Raw   float64 `yaml:"raw"`
	Value float64 `yaml:"value"`
}

// Apply converts raw.
func (c *Calibration) Apply(raw float64) float64 {
	if len(c.Table) == 0 {
		return (raw - c.Offset) * c.Scale
	}
	i, _ := slices.BinarySearchFunc(c.Table, raw, func(p Point, x float64) int {
		switch {
		case p.Raw < x:
			return -1
		case p.Raw > x:
			return 1
		}
		return 0
	})
	switch {
	case i == 0:
		return c.Table[0].Value
	case i == len(c.Table):
		return c.Table[len(c.Table)-1].Value
	}
	lo, hi := c.Table[i-1], c.Table[i]
	return lo.Value + (hi.Value-lo.Value)*(raw-lo.Raw)/(hi.Raw-lo.Raw)
}

// Validate rejects a zero linear scale and tables that are not strictly
// increasing in Raw.
func (c *Calibration) Validate() error {
	if len(c.Table) == 0 {
		if c.Scale == 0 || math.IsNaN(c.Scale) || math.IsInf(c.Scale, 0) {
			return fmt.Errorf("linear scale %v", c.Scale)
		}
		return nil
	}
	if len(c.Table) < 2 {
		return errors.New("table needs at least two points")
	}
	for i := 1; i < len(c.Table); i++ {
		if !(c.Table[i].Raw > c.Table[i-1].Raw) {
			return fmt.Errorf("table raw values must increase (entry %d)", i)
		}
	}
	return nil
}
