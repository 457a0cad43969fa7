// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the test stand's station configuration.
//
// Configuration is a single YAML file named by the --config flag or, if
// no flag is given, the ZERO_CONFIG environment variable. There is no
// directory search. With neither set the binaries run on [Default],
// which describes the bench stand and points at a console on
// localhost.
//
// [LoadFile] merges the file over [Default]: sections the file leaves
// out keep their defaults, a sensors list replaces the default list
// outright, and valve calibrations replace the defaults per valve.
// ${HOME} and ${VAR:-default} are expanded in path fields; no other
// environment variable overrides a value.
//
// Key exports:
//
//   - [Config] with Transport, Scheduler, Datalog, Programs,
//     RunRecord, Metrics, Logging, Valves and Sensors sections
//   - [Default], [Load] and [LoadFile]
//   - [Config.Validate], which reports every problem at once
package config
