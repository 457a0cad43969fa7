// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides entrypoint helpers shared by the Zero
// binaries: reporting a fatal error before the structured logger
// exists, and a context that is cancelled by SIGINT or SIGTERM.
package process
