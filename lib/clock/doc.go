// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock is the time source for every loop in the control
// plane: the sensor scheduler's pacing sleep, the sequencer's tick,
// the link heartbeat and the liveness timeout.
//
// Loops take a Clock instead of calling the time package. Binaries pass
// Real(); tests pass Fake() and step time explicitly:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go sequencer.Run(...)
//	c.WaitForTimers(1)              // the loop has parked on its tick
//	c.Advance(10 * time.Millisecond) // exactly one tick fires
//
// WaitForTimers is what makes this deterministic: it blocks until the
// goroutine under test has registered its next wait, so Advance never
// races the goroutine it is meant to wake.
package clock
