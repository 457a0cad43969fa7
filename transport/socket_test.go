// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/metric"
	ztestutil "github.com/cristian-bicheru/Zero-DAQ-Software/lib/testutil"
)

// probeKind marks frames used only to discover that a stream is up.
const probeKind = 0xEE

func newSocket(t *testing.T) *Socket {
	t.Helper()
	s := New(Config{StallThreshold: time.Minute})
	t.Cleanup(s.Stop)
	return s
}

// linkPair returns a running binder and connector on a free port pair.
func linkPair(t *testing.T) (binder, connector *Socket) {
	t.Helper()
	address := ztestutil.PortPair(t)
	binder, connector = newSocket(t), newSocket(t)
	if err := binder.Bind(address); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := connector.Connect(address); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := binder.Run(); err != nil {
		t.Fatalf("binder Run: %v", err)
	}
	if err := connector.Run(); err != nil {
		t.Fatalf("connector Run: %v", err)
	}
	return binder, connector
}

// awaitStream sends probes from one side until the other receives one.
func awaitStream(t *testing.T, from, to *Socket) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if err := from.Send([]byte{probeKind}); err != nil {
			t.Fatalf("Send probe: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		frame, err := to.Receive(ctx)
		cancel()
		if err == nil && len(frame) == 1 && frame[0] == probeKind {
			return
		}
	}
	t.Fatal("stream never came up")
}

// receiveData returns the next frame that is not a probe.
func receiveData(t *testing.T, s *Socket) []byte {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		frame, err := s.Receive(ctx)
		if err != nil {
			t.Fatalf("Receive: %v", err)
		}
		if len(frame) == 1 && frame[0] == probeKind {
			continue
		}
		return frame
	}
}

func TestRunRequiresAddress(t *testing.T) {
	s := newSocket(t)
	if err := s.Run(); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Run = %v, want ErrNotConfigured", err)
	}
}

func TestConfigureRejectsBadAddress(t *testing.T) {
	s := newSocket(t)
	for _, address := range []string{"localhost", "127.0.0.1:http", "127.0.0.1:65535", "127.0.0.1:0"} {
		if err := s.Bind(address); err == nil {
			t.Errorf("Bind(%q) succeeded", address)
		}
	}
	if s.Role() != RoleNone {
		t.Fatalf("Role = %v after failed Bind", s.Role())
	}
}

func TestConfigureAfterRun(t *testing.T) {
	s := newSocket(t)
	address := ztestutil.PortPair(t)
	if err := s.Bind(address); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := s.Connect(address); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("Connect after Run = %v, want ErrAlreadyRunning", err)
	}
	if err := s.Bind(address); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("Bind after Run = %v, want ErrAlreadyRunning", err)
	}
	if err := s.Run(); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Run = %v, want ErrAlreadyRunning", err)
	}
	if s.Role() != RoleBind {
		t.Fatalf("Role = %v, want bind", s.Role())
	}
}

func TestBindFailsWhenPortTaken(t *testing.T) {
	address := ztestutil.PortPair(t)
	first, second := newSocket(t), newSocket(t)
	first.Bind(address)
	second.Bind(address)
	if err := first.Run(); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if err := second.Run(); err == nil {
		t.Fatal("second Run on the same port pair succeeded")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	binder, connector := linkPair(t)
	awaitStream(t, connector, binder)

	done := make(chan struct{})
	go func() {
		connector.Stop()
		connector.Stop()
		binder.Stop()
		binder.Stop()
		close(done)
	}()
	ztestutil.RequireClosed(t, done, 10*time.Second, "Stop did not return")

	if err := connector.Send([]byte("x")); !errors.Is(err, ErrStopped) {
		t.Fatalf("Send after Stop = %v, want ErrStopped", err)
	}
	if _, err := binder.Receive(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("Receive after Stop = %v, want ErrStopped", err)
	}
	if err := binder.Run(); !errors.Is(err, ErrStopped) {
		t.Fatalf("Run after Stop = %v, want ErrStopped", err)
	}
}

func TestStopBeforeRun(t *testing.T) {
	s := New(Config{})
	s.Stop()
	s.Stop()
	if err := s.Connect("127.0.0.1:9378"); err != nil {
		t.Fatalf("Connect after Stop: %v", err)
	}
	if err := s.Run(); !errors.Is(err, ErrStopped) {
		t.Fatalf("Run after Stop = %v, want ErrStopped", err)
	}
}

func TestReceiveHonoursContext(t *testing.T) {
	s := newSocket(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Receive(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Receive = %v, want context.Canceled", err)
	}
}

func TestDuplexDeliveryInOrder(t *testing.T) {
	binder, connector := linkPair(t)
	awaitStream(t, connector, binder)
	awaitStream(t, binder, connector)

	sent := [][]byte{{0x01, 'a'}, {0x01, 'b'}, {0x03, 'c'}, {0x01, 'd'}}
	for _, frame := range sent {
		if err := connector.Send(frame); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	for _, want := range sent {
		if got := receiveData(t, binder); string(got) != string(want) {
			t.Fatalf("binder received %q, want %q", got, want)
		}
	}

	if err := binder.Send([]byte{0x02, 9}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := receiveData(t, connector); string(got) != string([]byte{0x02, 9}) {
		t.Fatalf("connector received %q", got)
	}
}

func TestSendWhileDisconnectedKeepsLatestPerKind(t *testing.T) {
	metrics := metric.New(nil)
	s := New(Config{Metrics: metrics})
	defer s.Stop()

	for _, frame := range [][]byte{{0x01, 1}, {0x01, 2}, {0x04, 'p'}, {0x01, 3}} {
		if err := s.Send(frame); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	got, _ := s.outbound.drain(false)
	if len(got) != 2 || string(got[0]) != string([]byte{0x04, 'p'}) || string(got[1]) != string([]byte{0x01, 3}) {
		t.Fatalf("queued frames = %v, want [04 70] [01 03]", got)
	}
	if n := testutil.ToFloat64(metrics.FramesConflated); n != 2 {
		t.Fatalf("conflated = %v, want 2", n)
	}
}

func TestSendRejectsOversizedFrame(t *testing.T) {
	s := newSocket(t)
	if err := s.Send(make([]byte, MaxFrameLength+1)); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("Send = %v, want ErrFrameTooLarge", err)
	}
}

func TestConnectorReconnectsToRestartedBinder(t *testing.T) {
	address := ztestutil.PortPair(t)
	connector := newSocket(t)
	connector.Connect(address)
	if err := connector.Run(); err != nil {
		t.Fatalf("connector Run: %v", err)
	}

	first := newSocket(t)
	first.Bind(address)
	if err := first.Run(); err != nil {
		t.Fatalf("first binder Run: %v", err)
	}
	awaitStream(t, connector, first)
	awaitStream(t, first, connector)
	first.Stop()

	second := newSocket(t)
	second.Bind(address)
	if err := second.Run(); err != nil {
		t.Fatalf("second binder Run: %v", err)
	}
	awaitStream(t, connector, second)
	awaitStream(t, second, connector)
}

func TestBinderAcceptsReplacementPeer(t *testing.T) {
	address := ztestutil.PortPair(t)
	binder := newSocket(t)
	binder.Bind(address)
	if err := binder.Run(); err != nil {
		t.Fatalf("binder Run: %v", err)
	}

	for range 2 {
		peer := newSocket(t)
		peer.Connect(address)
		if err := peer.Run(); err != nil {
			t.Fatalf("peer Run: %v", err)
		}
		awaitStream(t, peer, binder)
		awaitStream(t, binder, peer)
		peer.Stop()
	}
}

func TestPortPair(t *testing.T) {
	t.Parallel()
	base, next, err := portPair("10.0.0.2:9376")
	if err != nil {
		t.Fatalf("portPair: %v", err)
	}
	if base != "10.0.0.2:9376" || next != "10.0.0.2:9377" {
		t.Fatalf("portPair = %s, %s", base, next)
	}
	if _, next, _ := portPair("[::1]:9378"); next != "[::1]:9379" {
		t.Fatalf("IPv6 next = %s", next)
	}
}
