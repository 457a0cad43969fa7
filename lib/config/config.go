// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cristian-bicheru/Zero-DAQ-Software/hardware"
	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/datalog"
	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/logging"
	"github.com/cristian-bicheru/Zero-DAQ-Software/program"
	"github.com/cristian-bicheru/Zero-DAQ-Software/sensor"
)

// EnvironmentVariable names the config file when no --config flag is
// given.
const EnvironmentVariable = "ZERO_CONFIG"

// Default ports of the two peers. The controller dials the console's
// port pair; the console listens on it.
const (
	DefaultMonitorPort    = 9376
	DefaultControllerPort = 9378
)

// Transport roles.
const (
	RoleBind    = "bind"
	RoleConnect = "connect"
)

// Config is the station configuration shared by the controller and
// the console.
type Config struct {
	Transport TransportConfig `yaml:"transport"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Datalog   DatalogConfig   `yaml:"datalog"`
	Programs  ProgramsConfig  `yaml:"programs"`
	RunRecord RunRecordConfig `yaml:"run_record"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Valves    ValvesConfig    `yaml:"valves"`

	// Sensors lists every sensor of the stand, physical and derived.
	Sensors []sensor.Descriptor `yaml:"sensors"`
}

// TransportConfig configures the link between controller and console.
type TransportConfig struct {
	// Role is "connect" (dial Address) or "bind" (listen on it).
	// Default: connect.
	Role string `yaml:"role"`

	// Address is the base host:port; the link also uses the next port.
	// Default: 127.0.0.1:9376.
	Address string `yaml:"address"`

	// HeartbeatInterval is the keep-alive period. Default: 100ms.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// Timeout is the silence after which the peer is considered lost.
	// Default: 500ms.
	Timeout time.Duration `yaml:"timeout"`

	// StallThreshold is how slow a write must be before queued sensor
	// data is conflated to the latest value. Default: 50ms.
	StallThreshold time.Duration `yaml:"stall_threshold"`
}

// SchedulerConfig configures sensor sampling.
type SchedulerConfig struct {
	// PublishInterval is the minimum gap between snapshots sent to the
	// console. Default: 1/60 s.
	PublishInterval time.Duration `yaml:"publish_interval"`

	// ErrorLogInterval is the minimum gap between two logged failures
	// of the same sensor. Default: 1s.
	ErrorLogInterval time.Duration `yaml:"error_log_interval"`

	// SimulatorSeed seeds the simulated sensor readings.
	SimulatorSeed uint64 `yaml:"simulator_seed"`
}

// DatalogConfig configures the persistent sensor and process logs.
type DatalogConfig struct {
	// Directory receives the CSV and LOG files. Default: Data.
	Directory string `yaml:"directory"`

	// Compression is none, gzip, zstd or lz4. Default: gzip.
	Compression datalog.Compression `yaml:"compression"`
}

// ProgramsConfig configures the engine program library.
type ProgramsConfig struct {
	// Directory holds the .prog files. Default: ../Engine Test Programs.
	Directory string `yaml:"directory"`

	// Tick is the interpolation period. Default: 10ms.
	Tick time.Duration `yaml:"tick"`
}

// RunRecordConfig configures crash detection during program runs.
type RunRecordConfig struct {
	// Path of the record file. Default: Data/run.cbor.
	Path string `yaml:"path"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Address to serve /metrics on. Empty disables the endpoint.
	Address string `yaml:"address"`
}

// LoggingConfig configures process logging.
type LoggingConfig struct {
	// Level is debug, info, warn or error. Default: info.
	Level string `yaml:"level"`

	// ForwardLevel is the lowest level forwarded to the console as
	// notifications. Default: info.
	ForwardLevel string `yaml:"forward_level"`
}

// ValvesConfig configures the servo valves.
type ValvesConfig struct {
	// VentThrottle is the throttle the open_vent action commands.
	// Default: 1.
	VentThrottle float64 `yaml:"vent_throttle"`

	// Calibration is keyed by valve name: fill, vent, fuel, oxidizer.
	Calibration map[string]hardware.Calibration `yaml:"calibration"`
}

// Default returns the bench stand configuration.
func Default() *Config {
	return &Config{
		Transport: TransportConfig{
			Role:              RoleConnect,
			Address:           net.JoinHostPort("127.0.0.1", strconv.Itoa(DefaultMonitorPort)),
			HeartbeatInterval: 100 * time.Millisecond,
			Timeout:           500 * time.Millisecond,
			StallThreshold:    50 * time.Millisecond,
		},
		Scheduler: SchedulerConfig{
			PublishInterval:  sensor.DefaultPublishInterval,
			ErrorLogInterval: sensor.DefaultErrorLogInterval,
			SimulatorSeed:    1,
		},
		Datalog: DatalogConfig{
			Directory:   "Data",
			Compression: datalog.Gzip,
		},
		Programs: ProgramsConfig{
			Directory: program.DefaultDir,
			Tick:      program.DefaultTick,
		},
		RunRecord: RunRecordConfig{Path: filepath.Join("Data", "run.cbor")},
		Logging:   LoggingConfig{Level: "info", ForwardLevel: "info"},
		Valves: ValvesConfig{
			VentThrottle: hardware.DefaultVentThrottle,
			Calibration:  hardware.DefaultCalibrations(),
		},
		Sensors: DefaultSensors(),
	}
}

// DefaultSensors is the sensor set of the bench stand.
func DefaultSensors() []sensor.Descriptor {
	return []sensor.Descriptor{
		{Name: "Thrust", Kind: sensor.Thrust, ID: 1, Rate: 80, Tab: 1},
		{Name: "CC Pressure", Kind: sensor.CCPressure, ID: 2, Rate: 40, Tab: 1},
		{Name: "Tank Pressure", Kind: sensor.TankPressure, ID: 3, Rate: 40, Tab: 1},
		{Name: "Tank Mass", Kind: sensor.TankMass, ID: 4, Tab: 1},
		{Name: "Mass Flow", Kind: sensor.MassFlow, ID: 5, Tab: 1},
		{Name: "TC 1", Kind: sensor.Thermocouple, ID: 6, Rate: 10, Number: 1, Tab: 2},
		{Name: "TC 2", Kind: sensor.Thermocouple, ID: 7, Rate: 10, Number: 2, Tab: 2},
		{Name: "TC 3", Kind: sensor.Thermocouple, ID: 8, Rate: 10, Number: 3, Tab: 2},
		{Name: "TC 4", Kind: sensor.Thermocouple, ID: 9, Rate: 10, Number: 4, Tab: 2},
		{Name: "TC 5", Kind: sensor.Thermocouple, ID: 10, Rate: 10, Number: 5, Tab: 2},
		{Name: "Load Cell 1", Kind: sensor.LoadCell, ID: 11, Rate: 80, Number: 1, Tab: 2},
		{Name: "Load Cell 2", Kind: sensor.LoadCell, ID: 12, Rate: 80, Number: 2, Tab: 2},
		{Name: "Load Cell 3", Kind: sensor.LoadCell, ID: 13, Rate: 80, Number: 3, Tab: 2},
		{Name: "Fuel Valve", Kind: sensor.FuelValveThrottle, ID: 14, Rate: 20, Tab: 3},
		{Name: "Oxidizer Valve", Kind: sensor.OxidizerValveThrottle, ID: 15, Rate: 20, Tab: 3},
		{Name: "Battery", Kind: sensor.BatteryLevel, ID: 16, Rate: 1, Number: 1, Tab: 3},
		{Name: "Servo Battery", Kind: sensor.BatteryLevel, ID: 17, Rate: 1, Number: 2, Tab: 3},
	}
}

// Load loads path, or the file named by ZERO_CONFIG when path is
// empty. With neither it returns Default and found=false.
func Load(path string) (cfg *Config, found bool, err error) {
	if path == "" {
		path = os.Getenv(EnvironmentVariable)
	}
	if path == "" {
		return Default(), false, nil
	}
	cfg, err = LoadFile(path)
	if err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

// LoadFile merges the file at path over Default and expands path
// variables. It does not validate.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) expandVariables() {
	c.Datalog.Directory = expandVars(c.Datalog.Directory)
	c.Programs.Directory = expandVars(c.Programs.Directory)
	c.RunRecord.Path = expandVars(c.RunRecord.Path)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} from the environment.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	switch c.Transport.Role {
	case RoleBind, RoleConnect:
	default:
		errs = append(errs, fmt.Errorf("transport.role must be %q or %q, got %q", RoleBind, RoleConnect, c.Transport.Role))
	}
	if err := validateAddress(c.Transport.Address); err != nil {
		errs = append(errs, fmt.Errorf("transport.address: %w", err))
	}
	if c.Transport.HeartbeatInterval <= 0 {
		errs = append(errs, errors.New("transport.heartbeat_interval must be positive"))
	}
	if c.Transport.Timeout <= c.Transport.HeartbeatInterval {
		errs = append(errs, errors.New("transport.timeout must exceed transport.heartbeat_interval"))
	}
	if c.Transport.StallThreshold <= 0 {
		errs = append(errs, errors.New("transport.stall_threshold must be positive"))
	}

	if c.Scheduler.PublishInterval <= 0 {
		errs = append(errs, errors.New("scheduler.publish_interval must be positive"))
	}
	if c.Scheduler.ErrorLogInterval <= 0 {
		errs = append(errs, errors.New("scheduler.error_log_interval must be positive"))
	}

	if c.Datalog.Directory == "" {
		errs = append(errs, errors.New("datalog.directory is required"))
	}
	if c.Programs.Directory == "" {
		errs = append(errs, errors.New("programs.directory is required"))
	}
	if c.Programs.Tick <= 0 {
		errs = append(errs, errors.New("programs.tick must be positive"))
	}
	if c.RunRecord.Path == "" {
		errs = append(errs, errors.New("run_record.path is required"))
	}
	if c.Metrics.Address != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Address); err != nil {
			errs = append(errs, fmt.Errorf("metrics.address: %w", err))
		}
	}
	for name, level := range map[string]string{"logging.level": c.Logging.Level, "logging.forward_level": c.Logging.ForwardLevel} {
		if _, err := logging.ParseLevel(level); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if c.Valves.VentThrottle <= 0 || c.Valves.VentThrottle > 1 {
		errs = append(errs, fmt.Errorf("valves.vent_throttle must be in (0, 1], got %v", c.Valves.VentThrottle))
	}
	for name, calibration := range c.Valves.Calibration {
		if _, err := hardware.ParseValve(name); err != nil {
			errs = append(errs, fmt.Errorf("valves.calibration: %w", err))
			continue
		}
		if err := calibration.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("valves.calibration.%s: %w", name, err))
		} else if calibration.Cracking == calibration.Open {
			errs = append(errs, fmt.Errorf("valves.calibration.%s: cracking and open duties are equal", name))
		}
	}

	errs = append(errs, validateSensors(c.Sensors))
	return errors.Join(errs...)
}

func validateAddress(address string) error {
	_, portText, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	port, err := strconv.Atoi(portText)
	if err != nil || port < 1 || port > 65534 {
		return fmt.Errorf("port must be in 1..65534, got %q", portText)
	}
	return nil
}

// validateSensors also requires every rate to divide the highest rate,
// so each sensor is sampled at exactly its configured rate.
func validateSensors(sensors []sensor.Descriptor) error {
	if err := sensor.ValidateSet(sensors); err != nil {
		return fmt.Errorf("sensors: %w", err)
	}
	maxRate := 0
	for _, d := range sensors {
		maxRate = max(maxRate, d.Rate)
	}
	if maxRate == 0 {
		return errors.New("sensors: no sensor has a rate")
	}
	var errs []error
	for _, d := range sensors {
		if d.Physical() && maxRate%d.Rate != 0 {
			errs = append(errs, fmt.Errorf("sensors: %q rate %d Hz does not divide the loop rate %d Hz", d.Name, d.Rate, maxRate))
		}
	}
	return errors.Join(errs...)
}

// EnsurePaths creates the datalog directory and the run record's
// parent directory.
func (c *Config) EnsurePaths() error {
	for _, path := range []string{c.Datalog.Directory, filepath.Dir(c.RunRecord.Path)} {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}
