// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"net"
	"testing"
)

// PortPair returns a loopback base address "127.0.0.1:P" where both P
// and P+1 were free when probed. The link binds the pair, so a single
// free port is not enough.
func PortPair(t *testing.T) string {
	t.Helper()
	for range 50 {
		first, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("probing free port: %v", err)
		}
		port := first.Addr().(*net.TCPAddr).Port
		second, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port+1))
		first.Close()
		if err != nil {
			continue
		}
		second.Close()
		return fmt.Sprintf("127.0.0.1:%d", port)
	}
	t.Fatalf("no adjacent free port pair found on loopback")
	return ""
}
