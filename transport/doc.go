// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport moves opaque frames between exactly two endpoints,
// the test-stand controller and the operator console.
//
// A Socket owns two TCP streams, one per direction, each driven by its
// own goroutine and decoupled from callers by an in-memory queue. Send
// enqueues and returns; Receive blocks for the next inbound frame. One
// side binds a base address and the other connects to it:
//
//	binder                      connector
//	listen port    (inbound)  <- dial port    (outbound)
//	listen port+1  (outbound) -> dial port+1  (inbound)
//
// On the stream, every frame is preceded by its length as a 4-byte
// big-endian integer.
//
// Delivery is at-most-once and latest-wins. While the outbound stream
// is down, and on the first write after it (re)connects or after a
// write stalls, queued frames are conflated: only the newest frame of
// each kind (leading byte) survives, so a slow or absent peer sees
// current state instead of a backlog. Inbound frames are never
// conflated.
package transport
