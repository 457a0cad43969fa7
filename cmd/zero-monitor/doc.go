// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

// zero-monitor is the operator console. It takes the opposite side of
// the link to the controller (binding on all interfaces unless the
// controller's configuration binds), shows the live sensor values,
// connection state, notifications and engine programs, and sends the
// operator's actions.
//
// Its own log goes to a "MONITOR LOG" file in the data directory;
// warnings and errors are also shown in the console.
package main
