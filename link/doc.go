// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

// Package link turns a frame transport into a typed message link with
// liveness tracking.
//
// A Link runs three goroutines: a heartbeat sender that emits the
// wire.Heartbeat sentinel every 100ms whatever the connection state, a
// receiver that decodes inbound frames and dispatches them to
// registered wire.Handlers, and a Monitor that owns the
// Connected/Disconnected state machine.
//
// Every inbound frame, heartbeat or not, counts as proof of life. The
// Monitor polls once per timeout window; when the newest frame is older
// than the timeout it declares the peer lost and then parks until the
// next frame arrives. Connection hooks run on the Monitor goroutine and
// are isolated: an error or panic in one is logged and the others still
// run.
package link
