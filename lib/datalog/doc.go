// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

// Package datalog writes the controller's persistent logs: the sensor
// CSV and the structured process log.
//
// A Writer accepts rows from the sampling loop without blocking on disk
// I/O: rows are queued in memory and a single goroutine compresses and
// writes them. Close drains the queue, so a clean shutdown never loses
// a row. Files are named after the local time they were created, the
// way the test team files them:
//
//	2026 Oct 18 03.04 PM.csv.gz
//	LOG 2026 Oct 18 03.04 PM.log.gz
//
// Open reads any supported compression back, detected from the
// content rather than the file name.
package datalog
