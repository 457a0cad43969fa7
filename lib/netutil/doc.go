// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil holds small network helpers shared by the transport
// and the binaries: classification of routine connection teardown
// errors, and a context-bound HTTP server for the metrics endpoint.
package netutil
