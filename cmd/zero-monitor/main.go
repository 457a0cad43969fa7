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
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"github.com/spf13/pflag"

	"github.com/cristian-bicheru/Zero-DAQ-Software/console"
	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/config"
	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/datalog"
	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/logging"
	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/process"
	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/version"
	"github.com/cristian-bicheru/Zero-DAQ-Software/link"
	"github.com/cristian-bicheru/Zero-DAQ-Software/transport"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

type flags struct {
	configPath  string
	address     string
	connect     bool
	logLevel    string
	logLines    int
	showVersion bool
}

func parseFlags(args []string) (flags, error) {
	var f flags
	flagSet := pflag.NewFlagSet("zero-monitor", pflag.ContinueOnError)
	flagSet.StringVar(&f.configPath, "config", "", "path to the YAML configuration (default: $"+config.EnvironmentVariable+", then built-in defaults)")
	flagSet.StringVar(&f.address, "address", "", "link address host:port (default: all interfaces on the configured port)")
	flagSet.BoolVar(&f.connect, "connect", false, "dial the controller instead of listening for it")
	flagSet.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flagSet.IntVar(&f.logLines, "log-lines", console.DefaultLogLines, "notification lines kept on screen")
	flagSet.BoolVar(&f.showVersion, "version", false, "print version information and exit")
	err := flagSet.Parse(args)
	if err == nil && flagSet.NArg() > 0 {
		err = fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}
	return f, err
}

// linkEndpoint picks the monitor's role and address. The monitor takes
// the side the controller does not: it dials when the controller binds
// and otherwise listens on every interface at the controller's port.
func linkEndpoint(t config.TransportConfig, f flags) (role, address string, err error) {
	role = config.RoleBind
	if f.connect || t.Role == config.RoleBind {
		role = config.RoleConnect
	}
	if f.address != "" {
		return role, f.address, nil
	}
	if role == config.RoleConnect {
		return role, t.Address, nil
	}
	_, port, err := net.SplitHostPort(t.Address)
	if err != nil {
		return "", "", fmt.Errorf("transport address %q: %w", t.Address, err)
	}
	if _, err := strconv.Atoi(port); err != nil {
		return "", "", fmt.Errorf("transport address %q: bad port", t.Address)
	}
	return role, net.JoinHostPort("0.0.0.0", port), nil
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
		version.Print("zero-monitor")
		return nil
	}

	cfg, _, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	role, address, err := linkEndpoint(cfg.Transport, f)
	if err != nil {
		return err
	}
	level, _ := logging.ParseLevel(cfg.Logging.Level)
	forwardLevel, _ := logging.ParseLevel(cfg.Logging.ForwardLevel)

	// The terminal belongs to the console, so nothing logs to stderr.
	compression := cfg.Datalog.Compression
	logFile, err := datalog.Create(cfg.Datalog.Directory, datalog.FileName("MONITOR LOG ", time.Now(), ".log", compression), compression, nil)
	if err != nil {
		return err
	}
	defer logFile.Close()
	forwarder := logging.NewForwarder(forwardLevel)
	logger := slog.New(logging.Fanout{logging.FileHandler(logFile, level), forwarder})
	logger.Info("zero-monitor starting", "version", version.Info(), "role", role, "address", address)

	bridge := console.NewBridge(console.DefaultBuffer, logger.With("component", "console"))
	defer bridge.Close()
	forwarder.SetSink(bridge.Log)
	defer forwarder.SetSink(nil)

	socket := transport.New(transport.Config{
		Logger:         logger.With("component", "transport"),
		StallThreshold: cfg.Transport.StallThreshold,
	})
	defer socket.Stop()
	if role == config.RoleConnect {
		err = socket.Connect(address)
	} else {
		err = socket.Bind(address)
	}
	if err != nil {
		return err
	}
	if err := socket.Run(); err != nil {
		return err
	}

	lnk := link.New(socket, link.Config{
		Logger:            logger.With("component", "link"),
		HeartbeatInterval: cfg.Transport.HeartbeatInterval,
		Timeout:           cfg.Transport.Timeout,
	})
	bridge.Attach(lnk)

	ctx, stop := process.SignalContext(context.Background())
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	linkDone := make(chan error, 1)
	go func() { linkDone <- lnk.Run(ctx) }()

	model := console.NewModel(console.Config{
		Sensors:  cfg.Sensors,
		Sender:   lnk,
		Events:   bridge.Events(),
		Renderer: console.NewRenderer(os.Stdout, termenv.ColorProfile()),
		LogLines: f.logLines,
	})
	ui := tea.NewProgram(model, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		ui.Quit()
	}()
	_, uiErr := ui.Run()

	// Unblock the link's receive goroutine before waiting for it.
	bridge.Close()
	cancel()
	linkErr := <-linkDone
	if dropped := bridge.Dropped(); dropped > 0 {
		logger.Info("sensor snapshots dropped by a busy console", "count", dropped)
	}
	logger.Info("zero-monitor stopped")
	return errors.Join(uiErr, linkErr)
}
