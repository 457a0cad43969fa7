// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package link

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/clock"
	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/metric"
	"github.com/cristian-bicheru/Zero-DAQ-Software/transport"
	"github.com/cristian-bicheru/Zero-DAQ-Software/wire"
)

// Conn is the frame transport under a Link. *transport.Socket
// implements it.
type Conn interface {
	Send(frame []byte) error
	Receive(ctx context.Context) ([]byte, error)
}

var _ Conn = (*transport.Socket)(nil)

// DefaultHeartbeatInterval is the heartbeat period (10 Hz).
const DefaultHeartbeatInterval = 100 * time.Millisecond

// Config holds a Link's collaborators. Zero values get defaults.
type Config struct {
	Logger            *slog.Logger
	Clock             clock.Clock
	Metrics           *metric.Metrics
	HeartbeatInterval time.Duration
	Timeout           time.Duration
}

// Link is a typed, liveness-tracked message link over a Conn.
type Link struct {
	conn              Conn
	logger            *slog.Logger
	clock             clock.Clock
	metrics           *metric.Metrics
	heartbeatInterval time.Duration
	monitor           *Monitor

	handlersMu sync.Mutex
	handlers   []wire.Handler
}

// New creates a Link over conn. Register handlers and hooks before
// calling Run.
func New(conn Conn, config Config) *Link {
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.HeartbeatInterval <= 0 {
		config.HeartbeatInterval = DefaultHeartbeatInterval
	}
	metrics := metric.OrNew(config.Metrics)
	return &Link{
		conn:              conn,
		logger:            config.Logger,
		clock:             config.Clock,
		metrics:           metrics,
		heartbeatInterval: config.HeartbeatInterval,
		monitor:           NewMonitor(config.Clock, config.Timeout, config.Logger, metrics),
	}
}

// Handle registers h to receive every decoded inbound message. Handlers
// run on the receive goroutine in registration order and must not
// block.
func (l *Link) Handle(h wire.Handler) {
	l.handlersMu.Lock()
	defer l.handlersMu.Unlock()
	l.handlers = append(l.handlers, h)
}

// OnConnectionChange registers a liveness transition hook.
func (l *Link) OnConnectionChange(hook ConnectionHook) {
	l.monitor.OnConnectionChange(hook)
}

// State returns the peer's liveness.
func (l *Link) State() State {
	return l.monitor.State()
}

// Send encodes m and queues it for the peer.
func (l *Link) Send(m wire.Message) error {
	if err := l.conn.Send(wire.Encode(m)); err != nil {
		return fmt.Errorf("send %s: %w", m.Type(), err)
	}
	return nil
}

// Run starts the heartbeat, receive and monitor goroutines and blocks
// until ctx is done or the Conn fails. A stopped transport ends Run
// without error.
func (l *Link) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg         sync.WaitGroup
		receiveErr error
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		l.monitor.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		l.heartbeat(ctx)
	}()
	go func() {
		defer wg.Done()
		defer cancel()
		receiveErr = l.receive(ctx)
	}()
	wg.Wait()
	return receiveErr
}

func (l *Link) heartbeat(ctx context.Context) {
	ticker := l.clock.NewTicker(l.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
		if err := l.conn.Send(wire.Heartbeat); err != nil {
			if errors.Is(err, transport.ErrStopped) {
				return
			}
			l.logger.Debug("heartbeat send failed", "error", err)
		}
	}
}

func (l *Link) receive(ctx context.Context) error {
	for {
		frame, err := l.conn.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, transport.ErrStopped) {
				return nil
			}
			return fmt.Errorf("receive: %w", err)
		}
		l.monitor.Observe()
		if wire.IsHeartbeat(frame) {
			continue
		}
		message, err := wire.Decode(frame)
		if err != nil {
			l.metrics.DecodeErrors.Inc()
			l.logger.Error("dropping undecodable frame", "error", err, "length", len(frame))
			continue
		}
		l.dispatch(message)
	}
}

func (l *Link) dispatch(message wire.Message) {
	l.handlersMu.Lock()
	handlers := append([]wire.Handler(nil), l.handlers...)
	l.handlersMu.Unlock()
	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					l.logger.Error("message handler panicked", "type", message.Type().String(), "panic", r)
				}
			}()
			message.Accept(h)
		}()
	}
}
