// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package hardware

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/cristian-bicheru/Zero-DAQ-Software/wire"
)

// Unset is the throttle reported for a valve that has not been
// commanded since startup.
const Unset = -1.0

// DefaultVentThrottle is the throttle the open_vent action commands.
const DefaultVentThrottle = 1.0

// Config holds the calibration and collaborators of a Peripherals
// handle. Zero values get defaults.
type Config struct {
	Logger *slog.Logger

	// Calibrations is keyed by valve name ("fill", "vent", "fuel",
	// "oxidizer"). Missing valves use DefaultCalibrations.
	Calibrations map[string]Calibration

	// VentThrottle is the throttle used by the open_vent action.
	VentThrottle float64
}

// Peripherals is the stand's single actuation handle. It is safe for
// concurrent use.
type Peripherals struct {
	driver       Driver
	logger       *slog.Logger
	calibration  [valveCount]Calibration
	ventThrottle float64

	mu       sync.Mutex
	throttle [valveCount]float64
	relay    [relayCount]bool
}

// New returns a Peripherals over driver. It does not move any output;
// call SetDefaults to put the stand in its safe state.
func New(driver Driver, config Config) (*Peripherals, error) {
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.VentThrottle == 0 {
		config.VentThrottle = DefaultVentThrottle
	}
	if math.IsNaN(config.VentThrottle) || config.VentThrottle < 0 || config.VentThrottle > 1 {
		return nil, fmt.Errorf("vent throttle %v outside [0, 1]", config.VentThrottle)
	}

	p := &Peripherals{
		driver:       driver,
		logger:       config.Logger,
		ventThrottle: config.VentThrottle,
	}
	defaults := DefaultCalibrations()
	for name := range config.Calibrations {
		if _, err := ParseValve(name); err != nil {
			return nil, fmt.Errorf("calibration: %w", err)
		}
	}
	for v := range valveCount {
		c, ok := config.Calibrations[v.String()]
		if !ok {
			c = defaults[v.String()]
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("%s valve calibration: %w", v, err)
		}
		p.calibration[v] = c
		p.throttle[v] = Unset
	}
	return p, nil
}

// SetThrottle moves v to throttle t, clamped to [0, 1]. Zero throttle
// leaves the valve at its cracking point; use CloseValve to shut it.
func (p *Peripherals) SetThrottle(v Valve, t float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.setThrottle(v, t)
}

func (p *Peripherals) setThrottle(v Valve, t float64) error {
	t = clampUnit(t)
	if err := p.driver.SetServo(v, p.calibration[v].Duty(t)); err != nil {
		return fmt.Errorf("throttle %s valve to %.3f: %w", v, t, err)
	}
	p.throttle[v] = t
	return nil
}

// OpenValve moves v fully open.
func (p *Peripherals) OpenValve(v Valve) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.openValve(v)
}

func (p *Peripherals) openValve(v Valve) error {
	if err := p.driver.SetServo(v, p.calibration[v].Open); err != nil {
		return fmt.Errorf("open %s valve: %w", v, err)
	}
	p.throttle[v] = 1
	return nil
}

// CloseValve moves v to its closed duty.
func (p *Peripherals) CloseValve(v Valve) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeValve(v)
}

func (p *Peripherals) closeValve(v Valve) error {
	if err := p.driver.SetServo(v, p.calibration[v].Closed); err != nil {
		return fmt.Errorf("close %s valve: %w", v, err)
	}
	p.throttle[v] = 0
	return nil
}

// Throttle returns the last throttle commanded on v, or Unset.
func (p *Peripherals) Throttle(v Valve) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.throttle[v]
}

// Fire energizes r.
func (p *Peripherals) Fire(r Relay) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.setRelay(r, true)
}

// Safe de-energizes r.
func (p *Peripherals) Safe(r Relay) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.setRelay(r, false)
}

// Energized reports the last commanded state of r.
func (p *Peripherals) Energized(r Relay) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.relay[r]
}

func (p *Peripherals) setRelay(r Relay, on bool) error {
	if err := p.driver.SetRelay(r, on); err != nil {
		verb := "safe"
		if on {
			verb = "fire"
		}
		return fmt.Errorf("%s %s: %w", verb, r, err)
	}
	p.relay[r] = on
	return nil
}

// CloseProp closes the fuel and oxidizer valves. Both are attempted
// even if the first fails.
func (p *Peripherals) CloseProp() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeProp()
}

func (p *Peripherals) closeProp() error {
	return errors.Join(p.closeValve(FuelValve), p.closeValve(OxidizerValve))
}

// SafeIgnitionAndCloseProp safes the ignitor and closes both propellant
// valves as one step, so no other command lands between them.
func (p *Peripherals) SafeIgnitionAndCloseProp() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Join(p.setRelay(Ignitor, false), p.closeProp())
}

// Abort is the full stand abort: close both propellant valves, close
// the fill valve, then vent the tank fully open. Every step is
// attempted.
func (p *Peripherals) Abort() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Join(p.closeProp(), p.closeValve(FillValve), p.openValve(VentValve))
}

// SetDefaults closes every valve and de-energizes every relay.
func (p *Peripherals) SetDefaults() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.setDefaults()
}

func (p *Peripherals) setDefaults() error {
	var errs []error
	for v := range valveCount {
		errs = append(errs, p.closeValve(v))
	}
	for r := range relayCount {
		errs = append(errs, p.setRelay(r, false))
	}
	return errors.Join(errs...)
}

// Teardown puts the stand in its safe state and closes the driver.
func (p *Peripherals) Teardown() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.setDefaults()
	if closeErr := p.driver.Close(); closeErr != nil {
		err = errors.Join(err, fmt.Errorf("close driver: %w", closeErr))
	}
	p.logger.Info("peripherals torn down", "error", err)
	return err
}

// SetLightStatus drives the warning and danger lights.
func (p *Peripherals) SetLightStatus(s LightStatus) error {
	var warning, danger bool
	switch s {
	case LightSafe:
	case LightWarning:
		warning = true
	case LightDanger:
		warning, danger = true, true
	default:
		return fmt.Errorf("unknown light status %d", int(s))
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Join(p.setRelay(WarningLight, warning), p.setRelay(DangerLight, danger))
}

// Execute performs one of the single-output actions. Abort and burn
// phase actions are sequences owned by the controller and are rejected
// here.
func (p *Peripherals) Execute(kind wire.ActionKind) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch kind {
	case wire.OpenFill:
		return p.openValve(FillValve)
	case wire.CloseFill:
		return p.closeValve(FillValve)
	case wire.OpenVent:
		return p.setThrottle(VentValve, p.ventThrottle)
	case wire.CloseVent:
		return p.closeValve(VentValve)
	case wire.FireIgnitor:
		return p.setRelay(Ignitor, true)
	case wire.SafeIgnitor:
		return p.setRelay(Ignitor, false)
	case wire.EnableTankHeating:
		return p.setRelay(TankHeater, true)
	case wire.DisableTankHeating:
		return p.setRelay(TankHeater, false)
	}
	return fmt.Errorf("%w: %s is not a peripheral action", ErrUnsupportedAction, kind)
}

// ErrUnsupportedAction is returned by Execute for actions that are not
// a single output change.
var ErrUnsupportedAction = errors.New("unsupported action")
