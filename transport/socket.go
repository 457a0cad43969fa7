// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/clock"
	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/metric"
	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/netutil"
)

var (
	// ErrAlreadyRunning is returned by Bind, Connect and Run once Run
	// has succeeded.
	ErrAlreadyRunning = errors.New("transport already running")

	// ErrNotConfigured is returned by Run before Bind or Connect.
	ErrNotConfigured = errors.New("transport has no address: call Bind or Connect first")

	// ErrStopped is returned by Send, Receive and Run after Stop.
	ErrStopped = errors.New("transport stopped")
)

// Role says which side of the port pair a Socket takes.
type Role int

const (
	RoleNone Role = iota
	RoleBind
	RoleConnect
)

func (r Role) String() string {
	switch r {
	case RoleBind:
		return "bind"
	case RoleConnect:
		return "connect"
	}
	return "none"
}

// Reconnect backoff for the connecting side. Starts at initialBackoff
// and doubles per failed dial up to maxBackoff.
const (
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = 2 * time.Second
)

// Config holds the Socket's collaborators and tuning. Zero values get
// defaults.
type Config struct {
	Logger  *slog.Logger
	Clock   clock.Clock
	Metrics *metric.Metrics

	// StallThreshold is how long a write may take before the next
	// batch is conflated. Default 50ms.
	StallThreshold time.Duration

	// WriteTimeout bounds a single batch write. A write that times out
	// drops the connection. Default 2s.
	WriteTimeout time.Duration

	// DialTimeout bounds a single connection attempt. Default 2s.
	DialTimeout time.Duration
}

// Socket is a duplex frame link over a pair of TCP streams. It is safe
// for concurrent use.
type Socket struct {
	logger         *slog.Logger
	clock          clock.Clock
	metrics        *metric.Metrics
	stallThreshold time.Duration
	writeTimeout   time.Duration
	dialer         net.Dialer

	outbound *frameQueue
	inbound  *frameQueue

	mu      sync.Mutex
	role    Role
	address string
	running bool
	streams []*stream

	ctx      context.Context // cancelled by Stop; aborts dials
	cancel   context.CancelFunc
	stopped  chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates an unconfigured Socket.
func New(config Config) *Socket {
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.StallThreshold <= 0 {
		config.StallThreshold = 50 * time.Millisecond
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 2 * time.Second
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = 2 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Socket{
		logger:         config.Logger,
		clock:          config.Clock,
		metrics:        metric.OrNew(config.Metrics),
		stallThreshold: config.StallThreshold,
		writeTimeout:   config.WriteTimeout,
		dialer:         net.Dialer{Timeout: config.DialTimeout},
		outbound:       newFrameQueue(),
		inbound:        newFrameQueue(),
		ctx:            ctx,
		cancel:         cancel,
		stopped:        make(chan struct{}),
	}
	// Nothing drains the outbound queue until a peer connects.
	s.outbound.setLatestOnly(true)
	return s
}

// Bind configures the Socket to listen on address and the port after
// it. The listeners are opened by Run.
func (s *Socket) Bind(address string) error {
	return s.configure(RoleBind, address)
}

// Connect configures the Socket to dial address and the port after it.
func (s *Socket) Connect(address string) error {
	return s.configure(RoleConnect, address)
}

func (s *Socket) configure(role Role, address string) error {
	if _, _, err := portPair(address); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}
	s.role = role
	s.address = address
	return nil
}

// Role returns the configured role.
func (s *Socket) Role() Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// Run opens the listeners (bind) and starts the stream goroutines. It
// returns once both are started; connection establishment happens in
// the background.
func (s *Socket) Run() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.stopped:
		return ErrStopped
	default:
	}
	if s.running {
		return ErrAlreadyRunning
	}
	if s.role == RoleNone {
		return ErrNotConfigured
	}

	base, next, err := portPair(s.address)
	if err != nil {
		return err
	}

	var in, out *stream
	switch s.role {
	case RoleBind:
		inListener, err := net.Listen("tcp", base)
		if err != nil {
			return fmt.Errorf("bind inbound stream on %s: %w", base, err)
		}
		outListener, err := net.Listen("tcp", next)
		if err != nil {
			inListener.Close()
			return fmt.Errorf("bind outbound stream on %s: %w", next, err)
		}
		in = s.newStream("inbound", inListener, "")
		out = s.newStream("outbound", outListener, "")
		s.logger.Info("transport listening", "inbound", base, "outbound", next)
	case RoleConnect:
		in = s.newStream("inbound", nil, next)
		out = s.newStream("outbound", nil, base)
		s.logger.Info("transport connecting", "inbound", next, "outbound", base)
	}
	s.streams = []*stream{in, out}
	s.running = true

	for _, st := range s.streams {
		if st.listener != nil {
			s.wg.Add(1)
			go st.acceptLoop()
		}
	}
	s.wg.Add(2)
	go s.receiveLoop(in)
	go s.sendLoop(out)
	return nil
}

// Send queues frame for the peer and returns without waiting for the
// network.
func (s *Socket) Send(frame []byte) error {
	if len(frame) > MaxFrameLength {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(frame))
	}
	select {
	case <-s.stopped:
		return ErrStopped
	default:
	}
	if replaced := s.outbound.push(frame); replaced > 0 {
		s.metrics.FramesConflated.Add(float64(replaced))
	}
	return nil
}

// Receive blocks until an inbound frame is available, ctx is done, or
// the Socket is stopped.
func (s *Socket) Receive(ctx context.Context) ([]byte, error) {
	for {
		select {
		case <-s.stopped:
			return nil, ErrStopped
		default:
		}
		if frame, ok := s.inbound.pop(); ok {
			return frame, nil
		}
		select {
		case <-s.inbound.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.stopped:
			return nil, ErrStopped
		}
	}
}

// Stop closes the streams and waits for the goroutines to exit. Frames
// still queued are discarded. Stop is idempotent and may be called
// before Run.
func (s *Socket) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopped)
		s.cancel()
		s.mu.Lock()
		streams := s.streams
		s.mu.Unlock()
		for _, st := range streams {
			st.shutdown()
		}
	})
	s.wg.Wait()
}

func (s *Socket) isStopped() bool {
	select {
	case <-s.stopped:
		return true
	default:
		return false
	}
}

func (s *Socket) sendLoop(st *stream) {
	defer s.wg.Done()
	for {
		conn, ok := st.connect()
		if !ok {
			return
		}
		s.outbound.setLatestOnly(false)
		writer := bufio.NewWriter(conn)

		// The first batch on a fresh connection carries only current
		// state.
		conflateNext := true
		for {
			frames, ok := s.takeOutbound(conflateNext)
			if !ok {
				st.release(conn)
				return
			}
			start := s.clock.Now()
			if err := s.writeBatch(conn, writer, frames); err != nil {
				if !s.isStopped() {
					s.logger.Warn("outbound stream lost", "error", err, "dropped_frames", len(frames))
				}
				break
			}
			conflateNext = s.clock.Now().Sub(start) > s.stallThreshold
		}
		st.release(conn)
		if dropped := s.outbound.setLatestOnly(true); dropped > 0 {
			s.metrics.FramesConflated.Add(float64(dropped))
		}
	}
}

// takeOutbound waits for queued frames. It returns false once the
// Socket is stopped.
func (s *Socket) takeOutbound(conflateFrames bool) ([][]byte, bool) {
	for {
		frames, dropped := s.outbound.drain(conflateFrames)
		if dropped > 0 {
			s.metrics.FramesConflated.Add(float64(dropped))
		}
		if len(frames) > 0 {
			return frames, true
		}
		select {
		case <-s.outbound.notify:
		case <-s.stopped:
			return nil, false
		}
	}
}

func (s *Socket) writeBatch(conn net.Conn, writer *bufio.Writer, frames [][]byte) error {
	if err := conn.SetWriteDeadline(s.clock.Now().Add(s.writeTimeout)); err != nil {
		return err
	}
	for _, frame := range frames {
		if err := writeFrame(writer, frame); err != nil {
			return err
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	s.metrics.FramesSent.Add(float64(len(frames)))
	return nil
}

func (s *Socket) receiveLoop(st *stream) {
	defer s.wg.Done()
	for {
		conn, ok := st.connect()
		if !ok {
			return
		}
		reader := bufio.NewReader(conn)
		for {
			frame, err := readFrame(reader)
			if err != nil {
				switch {
				case s.isStopped():
				case netutil.IsExpectedCloseError(err):
					s.logger.Info("inbound stream closed by peer")
				default:
					s.logger.Warn("inbound stream lost", "error", err)
				}
				break
			}
			s.metrics.FramesReceived.Inc()
			s.inbound.push(frame)
		}
		st.release(conn)
	}
}

// portPair returns address and the address one port above it.
func portPair(address string) (string, string, error) {
	host, portText, err := net.SplitHostPort(address)
	if err != nil {
		return "", "", fmt.Errorf("parse transport address %q: %w", address, err)
	}
	port, err := strconv.Atoi(portText)
	if err != nil || port < 1 || port > 65534 {
		return "", "", fmt.Errorf("transport address %q: port must be in 1..65534", address)
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), net.JoinHostPort(host, strconv.Itoa(port+1)), nil
}
