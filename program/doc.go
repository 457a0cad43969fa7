// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

// Package program loads and executes engine test programs.
//
// A program is a text file of rows "time,fuel,oxidizer,ignitor": time
// in seconds from the start of the burn, valve throttles in [0, 1], and
// an ignitor level that fires the ignitor while above one half. The
// Sequencer interpolates linearly between consecutive rows every 10 ms
// and, however a run ends, closes both propellant valves and safes the
// ignitor.
package program
