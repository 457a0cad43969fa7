// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package transport

import (
	"log/slog"
	"net"

	"golang.org/x/sys/unix"
)

const (
	// notSentLowWater caps unsent bytes in the kernel send buffer.
	// Writes block once this much is queued, which is what lets the
	// send loop see a stall and conflate instead of filling a
	// multi-megabyte socket buffer with stale snapshots.
	notSentLowWater = 16 * 1024

	// userTimeoutMillis drops a connection whose sent data has gone
	// unacknowledged this long.
	userTimeoutMillis = 3000
)

func tune(conn net.Conn, logger *slog.Logger) {
	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	tcp.SetNoDelay(true)
	raw, err := tcp.SyscallConn()
	if err != nil {
		logger.Debug("socket options unavailable", "error", err)
		return
	}
	var optErr error
	err = raw.Control(func(fd uintptr) {
		if e := unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NOTSENT_LOWAT, notSentLowWater); e != nil {
			optErr = e
			return
		}
		optErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_USER_TIMEOUT, userTimeoutMillis)
	})
	if err == nil {
		err = optErr
	}
	if err != nil {
		logger.Debug("setting socket options", "error", err)
	}
}
