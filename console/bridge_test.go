// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"testing"
	"time"

	ztestutil "github.com/cristian-bicheru/Zero-DAQ-Software/lib/testutil"
	"github.com/cristian-bicheru/Zero-DAQ-Software/link"
	"github.com/cristian-bicheru/Zero-DAQ-Software/wire"
)

const wait = 5 * time.Second

func TestBridgeTranslatesMessages(t *testing.T) {
	b := NewBridge(8, nil)

	wire.Notification{Text: "valves closed"}.Accept(b)
	wire.ProgramList([]string{"burn", "cold flow"}).Accept(b)
	if err := b.ConnectionChanged(link.Connected); err != nil {
		t.Fatal(err)
	}
	wire.SensorData{Timestamp: 1.5}.Accept(b)

	if e := ztestutil.RequireReceive(t, b.Events(), wait, "notification"); e != (NotificationEvent{Text: "valves closed", Remote: true}) {
		t.Fatalf("got %#v", e)
	}
	programs, ok := ztestutil.RequireReceive(t, b.Events(), wait, "programs").(ProgramsEvent)
	if !ok || len(programs.Names) != 2 || programs.Names[1] != "cold flow" {
		t.Fatalf("got %#v", programs)
	}
	if e := ztestutil.RequireReceive(t, b.Events(), wait, "connection"); e != (ConnectionEvent{State: link.Connected}) {
		t.Fatalf("got %#v", e)
	}
	sensor, ok := ztestutil.RequireReceive(t, b.Events(), wait, "sensor data").(SensorEvent)
	if !ok || sensor.Data.Timestamp != 1.5 {
		t.Fatalf("got %#v", sensor)
	}
}

func TestBridgeIgnoresControllerBoundMessages(t *testing.T) {
	b := NewBridge(8, nil)
	wire.Action{Kind: wire.Abort}.Accept(b)
	wire.EngineProgramSettings{Assigning: true, Payload: "burn"}.Accept(b)
	ztestutil.RequireNoReceive(t, b.Events(), 10*time.Millisecond, "controller-bound message reached the console")
}

func TestBridgeDropsSensorDataWhenFull(t *testing.T) {
	b := NewBridge(1, nil)
	wire.SensorData{Timestamp: 1}.Accept(b)
	wire.SensorData{Timestamp: 2}.Accept(b)
	if b.Dropped() != 1 {
		t.Fatalf("dropped = %d, want 1", b.Dropped())
	}
}

func TestBridgeCloseUnblocksDelivery(t *testing.T) {
	b := NewBridge(1, nil)
	wire.Notification{Text: "fills the buffer"}.Accept(b)

	done := make(chan struct{})
	go func() {
		wire.Notification{Text: "blocked"}.Accept(b)
		b.Log("also dropped")
		close(done)
	}()
	b.Close()
	b.Close()
	ztestutil.RequireClosed(t, done, wait, "delivery still blocked after Close")
}
