// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

// Package hardware is the actuation side of the test stand: four servo
// ball valves (fill, vent, fuel, oxidizer) and four relays (ignitor,
// tank heater, warning light, danger light).
//
// A Driver moves one output at a time. Peripherals is the single handle
// the rest of the controller uses: it maps valve throttle to servo duty
// through per-valve calibration, remembers each valve's last commanded
// throttle, and serializes every command behind one mutex so the
// sequencer and the router never interleave half-applied sequences.
package hardware
