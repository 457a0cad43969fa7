// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package hardware

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Driver moves the stand's outputs. Implementations need not be safe
// for concurrent use; Peripherals serializes every call.
type Driver interface {
	// SetServo sets the PWM duty of a valve's servo, in [0, 1].
	SetServo(v Valve, duty float64) error

	// SetRelay energizes or de-energizes a relay.
	SetRelay(r Relay, on bool) error

	// Close releases the hardware interface.
	Close() error
}

// ErrDriverClosed is returned by Simulator after Close.
var ErrDriverClosed = errors.New("hardware driver closed")

// Simulator is a Driver that records output state instead of moving
// anything. It is the driver for bench runs and tests.
type Simulator struct {
	logger *slog.Logger

	mu     sync.Mutex
	duty   [valveCount]float64
	relay  [relayCount]bool
	closed bool
}

var _ Driver = (*Simulator)(nil)

// NewSimulator returns a Simulator with every servo at zero duty and
// every relay off. logger may be nil.
func NewSimulator(logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Simulator{logger: logger}
}

func (s *Simulator) SetServo(v Valve, duty float64) error {
	if v < 0 || v >= valveCount {
		return fmt.Errorf("set servo: unknown %s", v)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrDriverClosed
	}
	s.duty[v] = duty
	s.logger.Debug("servo set", "valve", v.String(), "duty", duty)
	return nil
}

func (s *Simulator) SetRelay(r Relay, on bool) error {
	if r < 0 || r >= relayCount {
		return fmt.Errorf("set relay: unknown %s", r)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrDriverClosed
	}
	s.relay[r] = on
	s.logger.Debug("relay set", "relay", r.String(), "on", on)
	return nil
}

func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Duty returns the last duty set on v's servo.
func (s *Simulator) Duty(v Valve) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duty[v]
}

// Relay reports whether r is energized.
func (s *Simulator) Relay(r Relay) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.relay[r]
}

// Closed reports whether Close was called.
func (s *Simulator) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
