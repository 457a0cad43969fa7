// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging builds the slog loggers used by the binaries.
//
// Stderr gets a text handler when it is a terminal and a JSON handler
// otherwise. Extra handlers (the on-disk log, the Forwarder that ships
// operator-visible records to the console as notifications) are
// combined with Fanout.
package logging
