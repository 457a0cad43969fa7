// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

// zero-controller runs on the test stand. It samples the sensors,
// writes the data and log files, streams snapshots to the monitor and
// executes the monitor's actions and engine programs.
//
// On start it forces every output to its safe default and reports any
// run record left behind by a controller that died mid-program. On
// SIGINT or SIGTERM it aborts a running program, stops the link and
// tears the peripherals down.
//
// Without a hardware driver the stand runs against the simulator
// driver and simulated sensor readings.
package main
