// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package sensor

import (
	"errors"
	"fmt"

	"github.com/cristian-bicheru/Zero-DAQ-Software/hardware"
)

// Reader takes one raw reading of a sensor. Read is called only from
// the Scheduler goroutine.
type Reader interface {
	Read(d Descriptor) (float64, error)
}

// ReaderFunc adapts a function to Reader.
type ReaderFunc func(d Descriptor) (float64, error)

func (f ReaderFunc) Read(d Descriptor) (float64, error) { return f(d) }

// ErrNoReader is returned by Mux for a Kind with no registered reader.
var ErrNoReader = errors.New("no reader for sensor type")

// Mux routes reads by Kind.
type Mux struct {
	readers  map[Kind]Reader
	fallback Reader
}

// NewMux returns a Mux that sends unregistered kinds to fallback, which
// may be nil.
func NewMux(fallback Reader) *Mux {
	return &Mux{readers: make(map[Kind]Reader), fallback: fallback}
}

// Handle registers r for every kind given.
func (m *Mux) Handle(r Reader, kinds ...Kind) {
	for _, k := range kinds {
		m.readers[k] = r
	}
}

func (m *Mux) Read(d Descriptor) (float64, error) {
	if r, ok := m.readers[d.Kind]; ok {
		return r.Read(d)
	}
	if m.fallback != nil {
		return m.fallback.Read(d)
	}
	return 0, fmt.Errorf("%w: %s", ErrNoReader, d.Kind)
}

// ThrottleSource reports the last commanded valve throttle.
// *hardware.Peripherals implements it.
type ThrottleSource interface {
	Throttle(v hardware.Valve) float64
}

var _ ThrottleSource = (*hardware.Peripherals)(nil)

// ValveReader reads the valve throttle sensors from the commanded
// throttle. It handles FuelValveThrottle and OxidizerValveThrottle.
type ValveReader struct {
	Source ThrottleSource
}

func (r ValveReader) Read(d Descriptor) (float64, error) {
	switch d.Kind {
	case FuelValveThrottle:
		return r.Source.Throttle(hardware.FuelValve), nil
	case OxidizerValveThrottle:
		return r.Source.Throttle(hardware.OxidizerValve), nil
	}
	return 0, fmt.Errorf("%w: valve reader cannot read %s", ErrNoReader, d.Kind)
}
