// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

// Package metric defines the Prometheus instruments for the control
// plane. A single Metrics value is created by the binary, registered
// on its registry and passed to each component. Components handed a
// nil *Metrics create an unregistered set so the instruments are always
// safe to touch.
package metric
