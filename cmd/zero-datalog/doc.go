// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

// zero-datalog works with the controller's data and log files.
//
//	zero-datalog convert <file> [output]   decompress to plain text
//	zero-datalog stats <file> [column...]  per-column statistics
//
// Compression is detected from the file contents. convert writes to
// the input name without its compression suffix when no output is
// given, or to stdout for "-".
package main
