// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the Zero
// binaries.
//
// Four package-level variables are injected at build time via
// -ldflags -X:
//
//   - [GitCommit]: short git SHA of the build
//   - [GitDirty]: "true" if there were uncommitted changes
//   - [BuildTime]: UTC timestamp of the build
//   - [Version]: semantic version string, set manually for releases
//
// When GitCommit is not injected, the VCS stamp the Go toolchain embeds
// in the binary is used instead, so a plain "go build" from a checkout
// still reports its commit.
package version
