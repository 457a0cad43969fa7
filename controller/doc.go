// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

// Package controller wires the test stand together: it routes operator
// messages from the console to the program sequencer and the hardware
// peripherals, and routes sensor snapshots, log lines and program
// lists back to the console.
//
// [Router] is the wire.Handler for inbound messages. It applies the
// abort policy: Abort halts any running program, then closes the
// propellant and fill valves and opens the vent; AbortBurnPhase halts
// the program, then safes the ignitor and closes the propellant valves
// and leaves the vent alone. Every other action maps 1:1 onto a
// peripheral command, and is refused while a program is running.
//
// [Controller] owns the process-level lifecycle: it subscribes the
// router and the scheduler to the link, keeps the run record and the
// status lights in step with the sequencer, recovers from a run that
// was interrupted by a crash, and on shutdown aborts any run and tears
// down the peripherals.
package controller
