// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/cristian-bicheru/Zero-DAQ-Software/hardware"
	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/metric"
	"github.com/cristian-bicheru/Zero-DAQ-Software/program"
	"github.com/cristian-bicheru/Zero-DAQ-Software/wire"
)

// ErrProgramRunning is reported for direct actions issued while an
// engine program is running.
var ErrProgramRunning = errors.New("direct actions are locked out while an engine program is running")

// Actuator is the peripheral surface the router commands.
// *hardware.Peripherals implements it.
type Actuator interface {
	Abort() error
	SafeIgnitionAndCloseProp() error
	Execute(wire.ActionKind) error
}

var _ Actuator = (*hardware.Peripherals)(nil)

// Sequencer is the program surface the router drives.
// *program.Sequencer implements it.
type Sequencer interface {
	State() program.State
	Load(*program.Program) error
	Start() error
	Abort()
}

var _ Sequencer = (*program.Sequencer)(nil)

// Programs loads programs by name. program.Library implements it.
type Programs interface {
	Load(name string) (*program.Program, error)
}

var _ Programs = program.Library{}

// Action results recorded in the actions metric.
const (
	resultOK       = "ok"
	resultRejected = "rejected"
	resultFailed   = "failed"
)

// actionDefinition describes how one operator action is carried out.
type actionDefinition struct {
	// duringRun permits the action while a program is running.
	duringRun bool
	handler   func(r *Router, kind wire.ActionKind) error
}

// actionTable holds the actions that are not a plain peripheral
// command. Actions not in this table go to Actuator.Execute.
var actionTable = map[wire.ActionKind]actionDefinition{
	wire.Abort:          {duringRun: true, handler: (*Router).abort},
	wire.AbortBurnPhase: {duringRun: true, handler: (*Router).abortBurnPhase},
	wire.BeginBurnPhase: {handler: (*Router).beginBurnPhase},
}

var directAction = actionDefinition{handler: (*Router).execute}

// RouterConfig holds a Router's collaborators. Zero values get
// defaults.
type RouterConfig struct {
	Logger  *slog.Logger
	Metrics *metric.Metrics
}

// Router dispatches inbound console messages. Its methods run on the
// link's receive goroutine, so an Abort blocks further dispatch until
// the valves are safe.
type Router struct {
	actuator  Actuator
	sequencer Sequencer
	programs  Programs
	logger    *slog.Logger
	metrics   *metric.Metrics
}

var _ wire.Handler = (*Router)(nil)

// NewRouter creates a Router.
func NewRouter(actuator Actuator, sequencer Sequencer, programs Programs, config RouterConfig) *Router {
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &Router{
		actuator:  actuator,
		sequencer: sequencer,
		programs:  programs,
		logger:    config.Logger,
		metrics:   metric.OrNew(config.Metrics),
	}
}

// HandleAction performs one operator action.
func (r *Router) HandleAction(m wire.Action) {
	if err := r.Dispatch(m.Kind); err != nil {
		if errors.Is(err, ErrProgramRunning) {
			r.logger.Warn("action rejected", "action", m.Kind.String(), "error", err)
			return
		}
		r.logger.Error("action failed", "action", m.Kind.String(), "error", err)
	}
}

// Dispatch performs kind and returns what went wrong, if anything.
func (r *Router) Dispatch(kind wire.ActionKind) error {
	if !kind.Valid() {
		r.metrics.Actions.WithLabelValues(kind.String(), resultRejected).Inc()
		return fmt.Errorf("%w: %d", wire.ErrUnknownAction, uint8(kind))
	}
	definition, ok := actionTable[kind]
	if !ok {
		definition = directAction
	}
	if !definition.duringRun && r.sequencer.State() != program.Idle {
		r.metrics.Actions.WithLabelValues(kind.String(), resultRejected).Inc()
		return ErrProgramRunning
	}

	r.logger.Info("performing action", "action", kind.String())
	if err := definition.handler(r, kind); err != nil {
		r.metrics.Actions.WithLabelValues(kind.String(), resultFailed).Inc()
		return err
	}
	r.metrics.Actions.WithLabelValues(kind.String(), resultOK).Inc()
	return nil
}

func (r *Router) abort(wire.ActionKind) error {
	r.sequencer.Abort()
	if err := r.actuator.Abort(); err != nil {
		return fmt.Errorf("abort sequence: %w", err)
	}
	r.logger.Warn("abort complete: propellant and fill closed, vent open")
	return nil
}

func (r *Router) abortBurnPhase(wire.ActionKind) error {
	r.sequencer.Abort()
	if err := r.actuator.SafeIgnitionAndCloseProp(); err != nil {
		return fmt.Errorf("burn phase abort: %w", err)
	}
	r.logger.Warn("burn phase aborted: ignitor safe, propellant closed")
	return nil
}

func (r *Router) beginBurnPhase(wire.ActionKind) error {
	return r.sequencer.Start()
}

func (r *Router) execute(kind wire.ActionKind) error {
	return r.actuator.Execute(kind)
}

// HandleEngineProgramSettings loads the named program. Program lists
// travel only from controller to console.
func (r *Router) HandleEngineProgramSettings(m wire.EngineProgramSettings) {
	if !m.Assigning {
		r.logger.Error("ignoring program list sent to the controller")
		return
	}
	if m.Payload == "" {
		r.logger.Error("ignoring program selection with no program name")
		return
	}
	if err := r.LoadProgram(m.Payload); err != nil {
		r.logger.Error("engine program not loaded", "program", m.Payload, "error", err)
	}
}

// LoadProgram reads the named program and hands it to the sequencer.
func (r *Router) LoadProgram(name string) error {
	p, err := r.programs.Load(name)
	if err != nil {
		return err
	}
	return r.sequencer.Load(p)
}

// HandleSensorData rejects sensor data, which only the controller
// produces.
func (r *Router) HandleSensorData(m wire.SensorData) {
	r.logger.Error("protocol violation: controller received sensor data", "readings", len(m.Readings))
}

// HandleNotification rejects notifications, which only the controller
// produces.
func (r *Router) HandleNotification(m wire.Notification) {
	r.logger.Error("protocol violation: controller received a notification", "length", len(m.Text))
}
