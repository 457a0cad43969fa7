// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the controller's CBOR configuration.
//
// The wire protocol to the console is a fixed binary layout and never
// goes through here. CBOR is used for small on-disk state files, such
// as the run record, where a self-describing format that survives
// schema additions is worth more than a hand-packed layout.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2), so the
// same value always produces the same bytes, and writes times as
// RFC 3339 strings with nanoseconds.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
package codec
