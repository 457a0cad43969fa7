// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/cristian-bicheru/Zero-DAQ-Software/hardware"
	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/clock"
	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/logging"
	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/metric"
	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/runrecord"
	"github.com/cristian-bicheru/Zero-DAQ-Software/link"
	"github.com/cristian-bicheru/Zero-DAQ-Software/program"
	"github.com/cristian-bicheru/Zero-DAQ-Software/sensor"
	"github.com/cristian-bicheru/Zero-DAQ-Software/wire"
)

// Link is the console connection. *link.Link implements it.
type Link interface {
	Handle(wire.Handler)
	OnConnectionChange(link.ConnectionHook)
	Send(wire.Message) error
	Run(ctx context.Context) error
}

var _ Link = (*link.Link)(nil)

// Scheduler produces sensor snapshots. *sensor.Scheduler implements
// it.
type Scheduler interface {
	OnSnapshot(func(wire.SensorData))
	Run(ctx context.Context) error
}

var _ Scheduler = (*sensor.Scheduler)(nil)

// Peripherals is the full hardware surface the controller needs.
type Peripherals interface {
	Actuator
	SetDefaults() error
	SetLightStatus(hardware.LightStatus) error
	Teardown() error
}

var _ Peripherals = (*hardware.Peripherals)(nil)

// Library lists and loads engine programs. program.Library implements
// it.
type Library interface {
	Programs
	List() ([]string, error)
}

var _ Library = program.Library{}

// Config holds the Controller's collaborators. Peripherals, Sequencer,
// Library and Link are required.
type Config struct {
	Logger  *slog.Logger
	Clock   clock.Clock
	Metrics *metric.Metrics

	Peripherals Peripherals
	Sequencer   *program.Sequencer
	Library     Library
	Link        Link

	// Scheduler is optional; without it no sensor data is sent.
	Scheduler Scheduler

	// Forwarder, if set, mirrors log lines to the console.
	Forwarder *logging.Forwarder

	// RunRecordPath is where an in-progress run is recorded. Empty
	// disables crash detection.
	RunRecordPath string
}

// Controller is the test-stand side of the link.
type Controller struct {
	logger        *slog.Logger
	clock         clock.Clock
	peripherals   Peripherals
	sequencer     *program.Sequencer
	library       Library
	link          Link
	scheduler     Scheduler
	forwarder     *logging.Forwarder
	runRecordPath string
	router        *Router

	shutdownOnce sync.Once
	shutdownErr  error
}

// New wires the collaborators together. Nothing runs until Run.
func New(config Config) (*Controller, error) {
	if config.Peripherals == nil || config.Sequencer == nil || config.Library == nil || config.Link == nil {
		return nil, errors.New("controller: peripherals, sequencer, library and link are required")
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	c := &Controller{
		logger:        config.Logger,
		clock:         config.Clock,
		peripherals:   config.Peripherals,
		sequencer:     config.Sequencer,
		library:       config.Library,
		link:          config.Link,
		scheduler:     config.Scheduler,
		forwarder:     config.Forwarder,
		runRecordPath: config.RunRecordPath,
		router: NewRouter(config.Peripherals, config.Sequencer, config.Library, RouterConfig{
			Logger:  config.Logger,
			Metrics: config.Metrics,
		}),
	}

	c.link.Handle(c.router)
	c.link.OnConnectionChange(c.connectionChanged)
	if c.scheduler != nil {
		c.scheduler.OnSnapshot(c.sendSnapshot)
	}
	c.sequencer.OnStart(c.programStarted)
	c.sequencer.OnComplete(c.programFinished)
	return c, nil
}

// Router returns the inbound message router.
func (c *Controller) Router() *Router { return c.router }

// Recover forces every output to its default state and, when a run
// record survives from a previous process, reports the interrupted run
// and clears the record.
func (c *Controller) Recover() error {
	if err := c.peripherals.SetDefaults(); err != nil {
		return fmt.Errorf("setting peripheral defaults: %w", err)
	}
	if c.runRecordPath == "" {
		return nil
	}
	record, found, err := runrecord.Check(c.runRecordPath)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	c.logger.Error("previous engine program run was interrupted; outputs forced safe",
		"program", record.Program,
		"digest", record.Digest,
		"started", record.Started,
		"pid", record.PID,
	)
	if err := c.peripherals.SetLightStatus(hardware.LightWarning); err != nil {
		c.logger.Error("setting warning light", "error", err)
	}
	return runrecord.Clear(c.runRecordPath)
}

// Run runs the link and the scheduler until ctx is done or one of them
// fails, then shuts down.
func (c *Controller) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if c.forwarder != nil {
		c.forwarder.SetSink(c.forwardLine)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	runPart := func(name string, run func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer cancel()
			if err := run(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
			}
		}()
	}
	runPart("link", c.link.Run)
	if c.scheduler != nil {
		runPart("scheduler", c.scheduler.Run)
	}
	wg.Wait()

	errs = append(errs, c.Shutdown())
	return errors.Join(errs...)
}

// Shutdown halts any running program, stops log forwarding and tears
// down the peripherals. It runs once; later calls return the first
// result.
func (c *Controller) Shutdown() error {
	c.shutdownOnce.Do(func() {
		if c.sequencer.State() != program.Idle {
			c.logger.Warn("shutting down during an engine program; aborting")
			c.sequencer.Abort()
		}
		if c.forwarder != nil {
			c.forwarder.SetSink(nil)
		}
		if err := c.peripherals.Teardown(); err != nil {
			c.shutdownErr = fmt.Errorf("peripheral teardown: %w", err)
			return
		}
		c.logger.Info("peripherals torn down")
	})
	return c.shutdownErr
}

// connectionChanged advertises the program library to a newly
// connected console.
func (c *Controller) connectionChanged(state link.State) error {
	if state != link.Connected {
		return nil
	}
	names, err := c.library.List()
	if err != nil {
		return fmt.Errorf("listing engine programs: %w", err)
	}
	return c.link.Send(wire.ProgramList(names))
}

func (c *Controller) sendSnapshot(snapshot wire.SensorData) {
	if err := c.link.Send(snapshot); err != nil {
		c.logger.Debug("sensor snapshot not sent", "error", err)
	}
}

// forwardLine must not log above Debug: it runs inside the Forwarder.
func (c *Controller) forwardLine(line string) {
	if err := c.link.Send(wire.Notification{Text: line}); err != nil {
		c.logger.Debug("log line not forwarded", "error", err)
	}
}

func (c *Controller) programStarted(p *program.Program) {
	if err := c.peripherals.SetLightStatus(hardware.LightDanger); err != nil {
		c.logger.Error("setting danger light", "error", err)
	}
	if c.runRecordPath == "" {
		return
	}
	record := runrecord.Record{
		Program: p.Name,
		Digest:  p.DigestHex(),
		Started: c.clock.Now(),
		PID:     os.Getpid(),
	}
	if err := runrecord.Write(c.runRecordPath, record); err != nil {
		c.logger.Error("writing run record", "path", c.runRecordPath, "error", err)
	}
}

func (c *Controller) programFinished(result program.Result) {
	status := hardware.LightSafe
	if result.Outcome != program.Completed || result.Err != nil {
		status = hardware.LightWarning
	}
	if err := c.peripherals.SetLightStatus(status); err != nil {
		c.logger.Error("setting status light", "error", err)
	}
	if c.runRecordPath != "" {
		if err := runrecord.Clear(c.runRecordPath); err != nil {
			c.logger.Error("clearing run record", "path", c.runRecordPath, "error", err)
		}
	}
	if err := c.link.Send(wire.Notification{Text: summarize(result)}); err != nil {
		c.logger.Debug("run summary not sent", "error", err)
	}
}

func summarize(result program.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "engine program %s %s after %.2f s", result.Program.Name, result.Outcome, result.Elapsed.Seconds())
	if result.Err != nil {
		fmt.Fprintf(&b, ": %v", result.Err)
	}
	return b.String()
}
