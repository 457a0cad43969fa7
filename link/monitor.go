// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package link

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/clock"
	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/metric"
)

// State is the liveness of the peer.
type State int32

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// ConnectionHook is called on every state transition.
type ConnectionHook func(State) error

// DefaultTimeout is how long the peer may be silent before it is
// considered lost.
const DefaultTimeout = 500 * time.Millisecond

// Monitor tracks peer liveness from inbound frame arrivals.
type Monitor struct {
	clock   clock.Clock
	timeout time.Duration
	logger  *slog.Logger
	metrics *metric.Metrics

	// Written by Observe from the receive goroutine.
	frames    atomic.Uint64
	lastFrame atomic.Int64 // unix nanoseconds
	wake      chan struct{}

	state atomic.Int32

	hooksMu sync.Mutex
	hooks   []ConnectionHook
}

// NewMonitor creates a Monitor in the Disconnected state. A
// non-positive timeout means DefaultTimeout.
func NewMonitor(c clock.Clock, timeout time.Duration, logger *slog.Logger, metrics *metric.Metrics) *Monitor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Monitor{
		clock:   c,
		timeout: timeout,
		logger:  logger,
		metrics: metric.OrNew(metrics),
		wake:    make(chan struct{}, 1),
	}
}

// OnConnectionChange registers hook for future transitions.
func (m *Monitor) OnConnectionChange(hook ConnectionHook) {
	m.hooksMu.Lock()
	defer m.hooksMu.Unlock()
	m.hooks = append(m.hooks, hook)
}

// State returns the current state.
func (m *Monitor) State() State {
	return State(m.state.Load())
}

// LastFrame returns the arrival time of the newest frame, or the zero
// time if none has arrived.
func (m *Monitor) LastFrame() time.Time {
	nanos := m.lastFrame.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

// Observe records the arrival of a frame.
func (m *Monitor) Observe() {
	m.lastFrame.Store(m.clock.Now().UnixNano())
	m.frames.Add(1)
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Run drives the state machine until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	// Frame count at the last transition to Disconnected. Only a frame
	// counted after it may reconnect, so a wake left over from before
	// the timeout cannot.
	var seen uint64
	for {
		if m.State() == Disconnected {
			for m.frames.Load() == seen {
				select {
				case <-m.wake:
				case <-ctx.Done():
					return
				}
			}
			m.transition(Connected)
			continue
		}

		select {
		case <-m.clock.After(m.timeout):
		case <-ctx.Done():
			return
		}
		count := m.frames.Load()
		if m.clock.Now().Sub(m.LastFrame()) > m.timeout {
			seen = count
			m.transition(Disconnected)
		}
	}
}

func (m *Monitor) transition(state State) {
	m.state.Store(int32(state))
	if state == Connected {
		m.metrics.Connected.Set(1)
		m.logger.Info("peer connected")
	} else {
		m.metrics.Connected.Set(0)
		m.logger.Warn("peer lost", "silence", m.clock.Now().Sub(m.LastFrame()).String())
	}
	m.metrics.Transitions.WithLabelValues(state.String()).Inc()

	m.hooksMu.Lock()
	hooks := append([]ConnectionHook(nil), m.hooks...)
	m.hooksMu.Unlock()
	for _, hook := range hooks {
		m.runHook(hook, state)
	}
}

func (m *Monitor) runHook(hook ConnectionHook, state State) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("connection hook panicked", "state", state.String(), "panic", r)
		}
	}()
	if err := hook(state); err != nil {
		m.logger.Error("connection hook failed", "state", state.String(), "error", err)
	}
}
