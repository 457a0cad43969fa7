// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package transport

import (
	"log/slog"
	"net"
)

func tune(conn net.Conn, _ *slog.Logger) {
	if tcp, ok := conn.(*net.TCPConn); ok {
		tcp.SetNoDelay(true)
	}
}
