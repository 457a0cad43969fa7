// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package program

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cristian-bicheru/Zero-DAQ-Software/hardware"
	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/clock"
	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/metric"
)

var (
	// ErrBusy is returned by Load and Start unless the Sequencer is
	// idle.
	ErrBusy = errors.New("engine program already running")

	// ErrNoProgram is returned by Start before a program is loaded.
	ErrNoProgram = errors.New("no engine program loaded")
)

// DefaultTick is the interpolation period.
const DefaultTick = 10 * time.Millisecond

// ignitionLevel is the interpolated ignitor level above which the
// ignitor is fired.
const ignitionLevel = 0.5

// State is the Sequencer's run state.
type State int

const (
	Idle State = iota
	Running
	Aborting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Aborting:
		return "aborting"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Outcome is how a run ended.
type Outcome int

const (
	// Completed runs reached the last row.
	Completed Outcome = iota
	// Aborted runs were cancelled by Abort.
	Aborted
	// Failed runs stopped because a valve or relay command failed.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result describes a finished run.
type Result struct {
	Program *Program
	Outcome Outcome
	Elapsed time.Duration

	// Err is the actuation error that failed the run, joined with any
	// error from the safe exit sequence.
	Err error
}

// Actuator is the part of the stand a program drives.
// *hardware.Peripherals implements it.
type Actuator interface {
	SetThrottle(v hardware.Valve, t float64) error
	Fire(r hardware.Relay) error
	Safe(r hardware.Relay) error

	// SafeIgnitionAndCloseProp safes the ignitor and closes both
	// propellant valves.
	SafeIgnitionAndCloseProp() error
}

var _ Actuator = (*hardware.Peripherals)(nil)

// Config holds the Sequencer's collaborators. Zero values get defaults.
type Config struct {
	Logger  *slog.Logger
	Clock   clock.Clock
	Metrics *metric.Metrics
	Tick    time.Duration
}

// Sequencer runs one program at a time against an Actuator. It is safe
// for concurrent use.
type Sequencer struct {
	actuator Actuator
	logger   *slog.Logger
	clock    clock.Clock
	metrics  *metric.Metrics
	tick     time.Duration

	mu      sync.Mutex
	state   State
	program *Program
	cancel  chan struct{}
	done    chan struct{}

	subscribersMu sync.Mutex
	onStart       []func(*Program)
	onComplete    []func(Result)
}

// NewSequencer returns an idle Sequencer with no program.
func NewSequencer(actuator Actuator, config Config) *Sequencer {
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Tick <= 0 {
		config.Tick = DefaultTick
	}
	s := &Sequencer{
		actuator: actuator,
		logger:   config.Logger,
		clock:    config.Clock,
		metrics:  metric.OrNew(config.Metrics),
		tick:     config.Tick,
	}
	s.metrics.SequencerState.Set(float64(Idle))
	return s
}

// OnStart registers fn to run synchronously in Start, before the first
// valve moves.
func (s *Sequencer) OnStart(fn func(*Program)) {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()
	s.onStart = append(s.onStart, fn)
}

// OnComplete registers fn to run on the execution goroutine after a run
// has ended and the Sequencer is idle again.
func (s *Sequencer) OnComplete(fn func(Result)) {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()
	s.onComplete = append(s.onComplete, fn)
}

// State returns the run state.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Program returns the loaded program, or nil.
func (s *Sequencer) Program() *Program {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.program
}

// Load replaces the loaded program.
func (s *Sequencer) Load(p *Program) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle {
		return ErrBusy
	}
	s.program = p
	s.logger.Info("engine program loaded",
		"program", p.Name, "rows", len(p.Rows), "duration", p.Duration(), "digest", p.DigestHex())
	return nil
}

// Start runs the loaded program on a new goroutine.
func (s *Sequencer) Start() error {
	s.mu.Lock()
	if s.state != Idle {
		s.mu.Unlock()
		return ErrBusy
	}
	p := s.program
	if p == nil {
		s.mu.Unlock()
		return ErrNoProgram
	}
	s.setStateLocked(Running)
	cancel, done := make(chan struct{}), make(chan struct{})
	s.cancel, s.done = cancel, done
	s.mu.Unlock()

	s.subscribersMu.Lock()
	onStart := s.onStart
	s.subscribersMu.Unlock()
	for _, fn := range onStart {
		fn(p)
	}

	s.logger.Warn("executing engine program", "program", p.Name, "digest", p.DigestHex())
	go s.run(p, cancel, done)
	return nil
}

// Abort cancels the running program and waits until the safe exit
// sequence has run. When no program is running it only logs a warning.
func (s *Sequencer) Abort() {
	s.mu.Lock()
	switch s.state {
	case Idle:
		s.mu.Unlock()
		s.logger.Warn("abort requested but no engine program is running")
		return
	case Running:
		s.setStateLocked(Aborting)
		close(s.cancel)
	}
	done := s.done
	s.mu.Unlock()
	<-done
}

func (s *Sequencer) setStateLocked(state State) {
	s.state = state
	s.metrics.SequencerState.Set(float64(state))
}

func (s *Sequencer) run(p *Program, cancel <-chan struct{}, done chan<- struct{}) {
	start := s.clock.Now()
	result := Result{Program: p, Outcome: Completed}
	ignited := false
	i := 0

loop:
	for {
		select {
		case <-cancel:
			result.Outcome = Aborted
			break loop
		default:
		}

		elapsed := s.clock.Now().Sub(start).Seconds()
		hi := p.Rows[i+1]
		if elapsed > hi.Time {
			i++
			if i+1 == len(p.Rows) {
				break
			}
			continue
		}
		lo := p.Rows[i]

		lerp := 1.0
		if hi.Time != lo.Time {
			lerp = min(max((elapsed-lo.Time)/(hi.Time-lo.Time), 0), 1)
		}
		fuel := lo.Fuel + (hi.Fuel-lo.Fuel)*lerp
		oxidizer := lo.Oxidizer + (hi.Oxidizer-lo.Oxidizer)*lerp
		ignitor := lo.Ignitor + (hi.Ignitor-lo.Ignitor)*lerp

		if err := s.step(fuel, oxidizer, ignitor, &ignited); err != nil {
			s.logger.Error("engine program actuation failed", "program", p.Name, "elapsed", elapsed, "error", err)
			result.Outcome = Failed
			result.Err = err
			break
		}

		select {
		case <-s.clock.After(s.tick):
		case <-cancel:
			result.Outcome = Aborted
			break loop
		}
	}

	if err := s.actuator.SafeIgnitionAndCloseProp(); err != nil {
		s.logger.Error("safe exit sequence failed", "program", p.Name, "error", err)
		result.Err = errors.Join(result.Err, err)
	}
	result.Elapsed = s.clock.Now().Sub(start)

	s.metrics.ProgramRuns.WithLabelValues(result.Outcome.String()).Inc()
	s.logger.Warn("engine program finished",
		"program", p.Name, "outcome", result.Outcome.String(), "elapsed", result.Elapsed)

	s.mu.Lock()
	s.setStateLocked(Idle)
	s.mu.Unlock()
	close(done)

	s.subscribersMu.Lock()
	onComplete := s.onComplete
	s.subscribersMu.Unlock()
	for _, fn := range onComplete {
		fn(result)
	}
}

// step commands one interpolated waypoint. The ignitor fires when the
// level rises above ignitionLevel and is safed when it falls back.
func (s *Sequencer) step(fuel, oxidizer, ignitor float64, ignited *bool) error {
	if err := s.actuator.SetThrottle(hardware.FuelValve, fuel); err != nil {
		return err
	}
	if err := s.actuator.SetThrottle(hardware.OxidizerValve, oxidizer); err != nil {
		return err
	}
	switch {
	case ignitor > ignitionLevel && !*ignited:
		if err := s.actuator.Fire(hardware.Ignitor); err != nil {
			return err
		}
		*ignited = true
		s.logger.Warn("ignitor fired")
	case ignitor <= ignitionLevel && *ignited:
		if err := s.actuator.Safe(hardware.Ignitor); err != nil {
			return err
		}
		*ignited = false
		s.logger.Warn("ignitor safed")
	}
	return nil
}
