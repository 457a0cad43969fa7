// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

// Package sensor describes the stand's sensors and samples them.
//
// A Descriptor names one configured sensor: its wire id, its Kind, and
// the rate it is sampled at. Sensors without a rate are derived
// quantities computed by the console and are never read here.
//
// The Scheduler runs a single loop at the highest configured rate. Each
// sensor is read every max_rate/rate iterations, with sensor k offset
// by k so slow sensors do not all land on the same iteration. Readings
// are averaged between publishes and delivered as wire.SensorData
// snapshots at no more than 60 Hz; every iteration's raw row also goes
// to the row subscribers for the persistent CSV log.
package sensor
