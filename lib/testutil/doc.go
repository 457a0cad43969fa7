// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds helpers shared by the package tests: bounded
// channel waits that turn a hang into a test failure, and loopback
// port allocation for the transport tests.
package testutil
