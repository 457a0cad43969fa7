// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"github.com/cristian-bicheru/Zero-DAQ-Software/controller"
	"github.com/cristian-bicheru/Zero-DAQ-Software/hardware"
	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/config"
	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/datalog"
	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/logging"
	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/metric"
	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/netutil"
	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/process"
	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/version"
	"github.com/cristian-bicheru/Zero-DAQ-Software/link"
	"github.com/cristian-bicheru/Zero-DAQ-Software/program"
	"github.com/cristian-bicheru/Zero-DAQ-Software/sensor"
	"github.com/cristian-bicheru/Zero-DAQ-Software/transport"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

type flags struct {
	configPath     string
	dest           string
	metricsAddress string
	logLevel       string
	showVersion    bool
}

func parseFlags(args []string) (flags, error) {
	var f flags
	flagSet := pflag.NewFlagSet("zero-controller", pflag.ContinueOnError)
	flagSet.StringVar(&f.configPath, "config", "", "path to the YAML configuration (default: $"+config.EnvironmentVariable+", then built-in defaults)")
	flagSet.StringVar(&f.dest, "dest", "", "monitor address host:port to connect to (overrides the configured transport)")
	flagSet.StringVar(&f.metricsAddress, "metrics-address", "", "serve Prometheus metrics on this address (e.g. :9100)")
	flagSet.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flagSet.BoolVar(&f.showVersion, "version", false, "print version information and exit")
	err := flagSet.Parse(args)
	if err == nil && flagSet.NArg() > 0 {
		err = fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}
	return f, err
}

// applyFlags overlays the command line on the loaded configuration.
func applyFlags(cfg *config.Config, f flags) {
	if f.dest != "" {
		cfg.Transport.Role = config.RoleConnect
		cfg.Transport.Address = f.dest
	}
	if f.metricsAddress != "" {
		cfg.Metrics.Address = f.metricsAddress
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
}

func run() error {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if f.showVersion {
		version.Print("zero-controller")
		return nil
	}

	cfg, found, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	applyFlags(cfg, f)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}
	level, _ := logging.ParseLevel(cfg.Logging.Level)
	forwardLevel, _ := logging.ParseLevel(cfg.Logging.ForwardLevel)

	started := time.Now()
	compression := cfg.Datalog.Compression
	logFile, err := datalog.Create(cfg.Datalog.Directory, datalog.FileName("LOG ", started, ".log", compression), compression, nil)
	if err != nil {
		return err
	}
	forwarder := logging.NewForwarder(forwardLevel)
	logger := logging.New(level, logging.FileHandler(logFile, level), forwarder)
	defer func() {
		if err := logFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "close log file: %v\n", err)
		}
	}()
	logger.Info("zero-controller starting",
		"version", version.Info(),
		"config_file", found,
		"role", cfg.Transport.Role,
		"address", cfg.Transport.Address,
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := metric.New(registry)

	peripherals, err := hardware.New(hardware.NewSimulator(logger.With("component", "driver")), hardware.Config{
		Logger:       logger.With("component", "hardware"),
		Calibrations: cfg.Valves.Calibration,
		VentThrottle: cfg.Valves.VentThrottle,
	})
	if err != nil {
		return err
	}
	logger.Warn("no hardware driver configured, using the simulator driver")

	scheduler, dataFile, err := newScheduler(cfg, peripherals, metrics, logger, started)
	if err != nil {
		return errors.Join(err, peripherals.Teardown())
	}
	defer func() {
		if err := dataFile.Close(); err != nil {
			logger.Error("closing data log failed", "error", err)
		}
	}()

	socket := transport.New(transport.Config{
		Logger:         logger.With("component", "transport"),
		Metrics:        metrics,
		StallThreshold: cfg.Transport.StallThreshold,
	})
	if err := configureSocket(socket, cfg.Transport); err != nil {
		return errors.Join(err, peripherals.Teardown())
	}
	if err := socket.Run(); err != nil {
		return errors.Join(err, peripherals.Teardown())
	}
	defer socket.Stop()
	lnk := link.New(socket, link.Config{
		Logger:            logger.With("component", "link"),
		Metrics:           metrics,
		HeartbeatInterval: cfg.Transport.HeartbeatInterval,
		Timeout:           cfg.Transport.Timeout,
	})

	library := program.Library{Dir: cfg.Programs.Directory, Logger: logger.With("component", "programs")}
	sequencer := program.NewSequencer(peripherals, program.Config{
		Logger:  logger.With("component", "sequencer"),
		Metrics: metrics,
		Tick:    cfg.Programs.Tick,
	})
	ctrl, err := controller.New(controller.Config{
		Logger:        logger,
		Metrics:       metrics,
		Peripherals:   peripherals,
		Sequencer:     sequencer,
		Library:       library,
		Link:          lnk,
		Scheduler:     scheduler,
		Forwarder:     forwarder,
		RunRecordPath: cfg.RunRecord.Path,
	})
	if err != nil {
		return errors.Join(err, peripherals.Teardown())
	}
	if err := ctrl.Recover(); err != nil {
		return errors.Join(err, ctrl.Shutdown())
	}

	ctx, stop := process.SignalContext(context.Background())
	defer stop()

	if cfg.Metrics.Address != "" {
		listener, err := net.Listen("tcp", cfg.Metrics.Address)
		if err != nil {
			return errors.Join(fmt.Errorf("metrics listener: %w", err), ctrl.Shutdown())
		}
		go func() {
			if err := netutil.ServeHTTP(ctx, listener, metric.Handler(registry), logger); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	err = ctrl.Run(ctx)
	logger.Info("zero-controller stopped", "uptime", time.Since(started).Round(time.Millisecond))
	return err
}

// newScheduler builds the sensor scheduler and the CSV data log its
// rows go to. The header row is written before the scheduler runs.
func newScheduler(cfg *config.Config, peripherals *hardware.Peripherals, metrics *metric.Metrics, logger *slog.Logger, started time.Time) (*sensor.Scheduler, *datalog.Writer, error) {
	reader := sensor.NewMux(sensor.NewSimulator(cfg.Scheduler.SimulatorSeed))
	reader.Handle(sensor.ValveReader{Source: peripherals}, sensor.FuelValveThrottle, sensor.OxidizerValveThrottle)

	scheduler, err := sensor.NewScheduler(cfg.Sensors, reader, sensor.Config{
		Logger:           logger.With("component", "scheduler"),
		Metrics:          metrics,
		PublishInterval:  cfg.Scheduler.PublishInterval,
		ErrorLogInterval: cfg.Scheduler.ErrorLogInterval,
	})
	if err != nil {
		return nil, nil, err
	}

	compression := cfg.Datalog.Compression
	dataFile, err := datalog.Create(cfg.Datalog.Directory, datalog.FileName("", started, ".csv", compression), compression, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := dataFile.WriteRow(scheduler.Header()); err != nil {
		return nil, nil, errors.Join(err, dataFile.Close())
	}
	scheduler.OnRow(func(row string) {
		if err := dataFile.WriteRow(row); err != nil {
			logger.Debug("data row dropped", "error", err)
		}
	})
	return scheduler, dataFile, nil
}

func configureSocket(socket *transport.Socket, t config.TransportConfig) error {
	if t.Role == config.RoleBind {
		return socket.Bind(t.Address)
	}
	return socket.Connect(t.Address)
}
