// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/datalog"
	"github.com/cristian-bicheru/Zero-DAQ-Software/sensor"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zero.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Transport.Role != RoleConnect {
		t.Errorf("expected role=connect, got %s", cfg.Transport.Role)
	}
	if cfg.Transport.Address != "127.0.0.1:9376" {
		t.Errorf("expected address=127.0.0.1:9376, got %s", cfg.Transport.Address)
	}
	if cfg.Datalog.Compression != datalog.Gzip {
		t.Errorf("expected gzip compression, got %s", cfg.Datalog.Compression)
	}
	if cfg.Programs.Directory != "../Engine Test Programs" {
		t.Errorf("expected programs directory ../Engine Test Programs, got %s", cfg.Programs.Directory)
	}
	if len(cfg.Valves.Calibration) != 4 {
		t.Errorf("expected 4 valve calibrations, got %d", len(cfg.Valves.Calibration))
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config does not validate: %v", err)
	}
}

func TestLoad_FallsBackToDefault(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	cfg, found, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if found {
		t.Error("expected found=false with no flag and no ZERO_CONFIG")
	}
	if cfg.Transport.Address != Default().Transport.Address {
		t.Errorf("expected default address, got %s", cfg.Transport.Address)
	}
}

func TestLoad_UsesEnvironmentVariable(t *testing.T) {
	path := writeConfig(t, "transport:\n  address: 10.0.0.2:9376\n")
	t.Setenv(EnvironmentVariable, path)

	cfg, found, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !found {
		t.Error("expected found=true")
	}
	if cfg.Transport.Address != "10.0.0.2:9376" {
		t.Errorf("expected address from ZERO_CONFIG, got %s", cfg.Transport.Address)
	}
}

func TestLoad_FlagWinsOverEnvironment(t *testing.T) {
	t.Setenv(EnvironmentVariable, writeConfig(t, "transport:\n  role: bind\n"))
	flagPath := writeConfig(t, "transport:\n  role: connect\n")

	cfg, _, err := Load(flagPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Transport.Role != RoleConnect {
		t.Errorf("expected role from --config, got %s", cfg.Transport.Role)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
transport:
  role: bind
  address: 0.0.0.0:9376
  timeout: 750ms
datalog:
  compression: zstd
valves:
  calibration:
    vent:
      closed: 0.9
      cracking: 0.85
      open: 0.7
sensors:
  - name: Thrust
    type: thrust
    id: 1
    rate: 100
  - name: Chamber
    type: cc_pressure
    id: 2
    rate: 50
    calibration:
      offset: 0.5
      scale: 250
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Transport.Role != RoleBind {
		t.Errorf("expected role=bind, got %s", cfg.Transport.Role)
	}
	if cfg.Transport.Timeout != 750*time.Millisecond {
		t.Errorf("expected timeout=750ms, got %v", cfg.Transport.Timeout)
	}
	if cfg.Transport.HeartbeatInterval != 100*time.Millisecond {
		t.Errorf("expected default heartbeat to survive, got %v", cfg.Transport.HeartbeatInterval)
	}
	if cfg.Datalog.Compression != datalog.Zstd {
		t.Errorf("expected zstd, got %s", cfg.Datalog.Compression)
	}

	if got := cfg.Valves.Calibration["vent"].Closed; got != 0.9 {
		t.Errorf("expected vent closed=0.9, got %v", got)
	}
	if got := cfg.Valves.Calibration["fuel"].Closed; got != 0.98 {
		t.Errorf("expected fuel calibration to keep its default, got %v", got)
	}

	if len(cfg.Sensors) != 2 {
		t.Fatalf("expected the file's sensors to replace the defaults, got %d", len(cfg.Sensors))
	}
	if cfg.Sensors[1].Kind != sensor.CCPressure || cfg.Sensors[1].Calibration.Scale != 250 {
		t.Errorf("unexpected second sensor: %+v", cfg.Sensors[1])
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFile_BadYAML(t *testing.T) {
	if _, err := LoadFile(writeConfig(t, "transport: [unclosed\n")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadFile_ExpandsVariables(t *testing.T) {
	t.Setenv("ZERO_DATA", "/srv/zero")
	path := writeConfig(t, `
datalog:
  directory: ${ZERO_DATA}/logs
programs:
  directory: ${ZERO_PROGRAMS:-/opt/programs}
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Datalog.Directory != "/srv/zero/logs" {
		t.Errorf("expected /srv/zero/logs, got %s", cfg.Datalog.Directory)
	}
	if cfg.Programs.Directory != "/opt/programs" {
		t.Errorf("expected default from ${VAR:-default}, got %s", cfg.Programs.Directory)
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Transport.Role = "listen"
	cfg.Transport.Address = "localhost"
	cfg.Transport.Timeout = cfg.Transport.HeartbeatInterval
	cfg.Programs.Tick = 0
	cfg.Logging.Level = "verbose"
	cfg.Valves.VentThrottle = 0
	cfg.Valves.Calibration["purge"] = cfg.Valves.Calibration["vent"]

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{
		"transport.role",
		"transport.address",
		"transport.timeout",
		"programs.tick",
		"logging.level",
		"valves.vent_throttle",
		"valves.calibration",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %s, got: %v", want, err)
		}
	}
}

func TestValidate_SensorRatesDivideLoopRate(t *testing.T) {
	cfg := Default()
	cfg.Sensors = []sensor.Descriptor{
		{Name: "Thrust", Kind: sensor.Thrust, ID: 1, Rate: 80},
		{Name: "TC 1", Kind: sensor.Thermocouple, ID: 2, Rate: 30},
		{Name: "Mass Flow", Kind: sensor.MassFlow, ID: 3},
	}

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), `"TC 1" rate 30 Hz`) {
		t.Fatalf("expected rate divisibility error, got %v", err)
	}
}

func TestValidate_SensorsNeedARate(t *testing.T) {
	cfg := Default()
	cfg.Sensors = []sensor.Descriptor{{Name: "Mass Flow", Kind: sensor.MassFlow, ID: 1}}

	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "no sensor has a rate") {
		t.Fatalf("expected no-rate error, got %v", err)
	}
}

func TestValidate_DuplicateSensorID(t *testing.T) {
	cfg := Default()
	cfg.Sensors[1].ID = cfg.Sensors[0].ID

	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "share id") {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
}

func TestEnsurePaths(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.Datalog.Directory = filepath.Join(root, "data")
	cfg.RunRecord.Path = filepath.Join(root, "state", "run.cbor")

	if err := cfg.EnsurePaths(); err != nil {
		t.Fatalf("EnsurePaths: %v", err)
	}
	for _, dir := range []string{cfg.Datalog.Directory, filepath.Dir(cfg.RunRecord.Path)} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("expected directory %s: %v", dir, err)
		}
	}
}
