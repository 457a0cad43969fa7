// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/cristian-bicheru/Zero-DAQ-Software/link"
	"github.com/cristian-bicheru/Zero-DAQ-Software/wire"
)

// Event is something the console displays. The concrete types are
// SensorEvent, NotificationEvent, ProgramsEvent and ConnectionEvent.
type Event interface {
	event()
}

// SensorEvent carries one snapshot from the controller.
type SensorEvent struct {
	Data wire.SensorData
}

// NotificationEvent carries one log line. Remote is true for lines
// forwarded by the controller.
type NotificationEvent struct {
	Text   string
	Remote bool
}

// ProgramsEvent carries the controller's program library.
type ProgramsEvent struct {
	Names []string
}

// ConnectionEvent reports a liveness transition.
type ConnectionEvent struct {
	State link.State
}

func (SensorEvent) event()       {}
func (NotificationEvent) event() {}
func (ProgramsEvent) event()     {}
func (ConnectionEvent) event()   {}

// DefaultBuffer is the Bridge's event capacity.
const DefaultBuffer = 256

// Bridge turns link traffic into console events. Sensor snapshots are
// dropped when the console falls behind; every other event waits for
// room, so no log line or state change is lost.
type Bridge struct {
	logger  *slog.Logger
	events  chan Event
	dropped atomic.Uint64

	closed    chan struct{}
	closeOnce sync.Once
}

var _ wire.Handler = (*Bridge)(nil)

// NewBridge creates a Bridge holding up to buffer events. A
// non-positive buffer means DefaultBuffer.
func NewBridge(buffer int, logger *slog.Logger) *Bridge {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Bridge{logger: logger, events: make(chan Event, buffer), closed: make(chan struct{})}
}

// Close stops event delivery. Events sent afterwards are discarded, so
// link goroutines never block on a console that has quit.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() { close(b.closed) })
}

// deliver waits for room unless the Bridge is closed.
func (b *Bridge) deliver(e Event) {
	select {
	case b.events <- e:
	case <-b.closed:
	}
}

// Events returns the channel the Model listens on.
func (b *Bridge) Events() <-chan Event { return b.events }

// Dropped returns how many sensor snapshots were discarded.
func (b *Bridge) Dropped() uint64 { return b.dropped.Load() }

// Attach registers the Bridge on l.
func (b *Bridge) Attach(l *link.Link) {
	l.Handle(b)
	l.OnConnectionChange(b.ConnectionChanged)
}

func (b *Bridge) HandleSensorData(m wire.SensorData) {
	select {
	case b.events <- SensorEvent{Data: m}:
	default:
		b.dropped.Add(1)
	}
}

func (b *Bridge) HandleNotification(m wire.Notification) {
	b.deliver(NotificationEvent{Text: m.Text, Remote: true})
}

func (b *Bridge) HandleEngineProgramSettings(m wire.EngineProgramSettings) {
	if m.Assigning {
		b.logger.Error("protocol violation: console received a program selection", "program", m.Payload)
		return
	}
	b.deliver(ProgramsEvent{Names: m.ProgramNames()})
}

func (b *Bridge) HandleAction(m wire.Action) {
	b.logger.Error("protocol violation: console received an action", "action", m.Kind.String())
}

// ConnectionChanged is a link.ConnectionHook.
func (b *Bridge) ConnectionChanged(state link.State) error {
	b.deliver(ConnectionEvent{State: state})
	return nil
}

// Log is a logging.Sink that shows the console's own log lines.
func (b *Bridge) Log(line string) {
	select {
	case b.events <- NotificationEvent{Text: line}:
	default:
	}
}
