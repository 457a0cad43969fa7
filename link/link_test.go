// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package link

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/clock"
	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/metric"
	ztestutil "github.com/cristian-bicheru/Zero-DAQ-Software/lib/testutil"
	"github.com/cristian-bicheru/Zero-DAQ-Software/transport"
	"github.com/cristian-bicheru/Zero-DAQ-Software/wire"
)

// fakeConn is an in-memory Conn. Closing inbound makes Receive report a
// stopped transport.
type fakeConn struct {
	sent    chan []byte
	inbound chan []byte
	failure error
}

func newFakeConn() *fakeConn {
	return &fakeConn{sent: make(chan []byte, 64), inbound: make(chan []byte, 64)}
}

func (f *fakeConn) Send(frame []byte) error {
	select {
	case f.sent <- frame:
	default:
	}
	return nil
}

func (f *fakeConn) Receive(ctx context.Context) ([]byte, error) {
	if f.failure != nil {
		return nil, f.failure
	}
	select {
	case frame, ok := <-f.inbound:
		if !ok {
			return nil, transport.ErrStopped
		}
		return frame, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// channelHandler forwards every message to a channel.
type channelHandler chan wire.Message

func (h channelHandler) HandleSensorData(m wire.SensorData) {
	h <- m
}

func (h channelHandler) HandleAction(m wire.Action) {
	h <- m
}

func (h channelHandler) HandleNotification(m wire.Notification) {
	h <- m
}

func (h channelHandler) HandleEngineProgramSettings(m wire.EngineProgramSettings) {
	h <- m
}

type panickingHandler struct{ channelHandler }

func (panickingHandler) HandleAction(wire.Action) { panic("handler bug") }

func runLink(t *testing.T, l *Link) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := ztestutil.RequireReceive(t, done, wait, "link Run did not return"); err != nil {
			t.Errorf("Run = %v", err)
		}
	})
}

func TestHeartbeatEveryInterval(t *testing.T) {
	c := clock.Fake(epoch)
	conn := newFakeConn()
	l := New(conn, Config{Clock: c})
	runLink(t, l)

	for range 3 {
		c.WaitForTimers(1)
		c.Advance(DefaultHeartbeatInterval)
		frame := ztestutil.RequireReceive(t, conn.sent, wait, "heartbeat")
		if !bytes.Equal(frame, wire.Heartbeat) {
			t.Fatalf("sent %q, want heartbeat", frame)
		}
	}
	if l.State() != Disconnected {
		t.Fatal("heartbeats alone must not connect the link")
	}
}

func TestInboundFramesDispatchAndConnect(t *testing.T) {
	c := clock.Fake(epoch)
	conn := newFakeConn()
	metrics := metric.New(nil)
	l := New(conn, Config{Clock: c, Metrics: metrics})
	messages := make(channelHandler, 8)
	l.Handle(messages)
	states := make(chan State, 4)
	l.OnConnectionChange(func(s State) error {
		states <- s
		return nil
	})
	runLink(t, l)

	conn.inbound <- wire.Heartbeat
	if got := ztestutil.RequireReceive(t, states, wait, "connect on heartbeat"); got != Connected {
		t.Fatalf("state = %v", got)
	}

	conn.inbound <- []byte{0x09, 0x00}
	conn.inbound <- wire.Encode(wire.Action{Kind: wire.Abort})
	got := ztestutil.RequireReceive(t, messages, wait, "dispatched action")
	if got != (wire.Action{Kind: wire.Abort}) {
		t.Fatalf("dispatched %#v", got)
	}
	if n := testutil.ToFloat64(metrics.DecodeErrors); n != 1 {
		t.Fatalf("decode errors = %v, want 1", n)
	}
	if len(messages) != 0 {
		t.Fatalf("heartbeat or bad frame was dispatched: %#v", <-messages)
	}
}

func TestHandlerPanicDoesNotStopDispatch(t *testing.T) {
	conn := newFakeConn()
	l := New(conn, Config{Clock: clock.Fake(epoch)})
	messages := make(channelHandler, 8)
	l.Handle(panickingHandler{messages})
	l.Handle(messages)
	runLink(t, l)

	conn.inbound <- wire.Encode(wire.Action{Kind: wire.OpenVent})
	conn.inbound <- wire.Encode(wire.Notification{Text: "after"})
	ztestutil.RequireReceive(t, messages, wait, "second handler got the action")
	for {
		m := ztestutil.RequireReceive(t, messages, wait, "notification")
		if m == (wire.Notification{Text: "after"}) {
			return
		}
	}
}

func TestSendEncodes(t *testing.T) {
	conn := newFakeConn()
	l := New(conn, Config{})
	if err := l.Send(wire.Notification{Text: "valves closed"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	frame := ztestutil.RequireReceive(t, conn.sent, wait, "sent frame")
	if !bytes.Equal(frame, wire.Encode(wire.Notification{Text: "valves closed"})) {
		t.Fatalf("sent %q", frame)
	}
}

func TestRunEndsCleanlyWhenTransportStops(t *testing.T) {
	conn := newFakeConn()
	l := New(conn, Config{Clock: clock.Fake(epoch), Logger: slog.New(slog.DiscardHandler)})
	close(conn.inbound)
	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run = %v, want nil", err)
	}
}

func TestRunReportsTransportFailure(t *testing.T) {
	conn := newFakeConn()
	conn.failure = errors.New("socket exploded")
	l := New(conn, Config{Clock: clock.Fake(epoch)})
	if err := l.Run(context.Background()); err == nil || !errors.Is(err, conn.failure) {
		t.Fatalf("Run = %v, want wrapped transport failure", err)
	}
}
