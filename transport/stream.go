// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"net"
	"sync"
)

// stream is one direction of the link. On the binding side an accept
// goroutine feeds it connections; on the connecting side it dials on
// demand.
type stream struct {
	socket   *Socket
	name     string
	listener net.Listener // bind role
	address  string       // connect role

	// accepted holds the newest accepted connection not yet adopted.
	accepted chan net.Conn

	mu   sync.Mutex
	conn net.Conn
}

func (s *Socket) newStream(name string, listener net.Listener, address string) *stream {
	return &stream{
		socket:   s,
		name:     name,
		listener: listener,
		address:  address,
		accepted: make(chan net.Conn, 1),
	}
}

// connect returns the next connection for this stream. It returns false
// once the Socket is stopped.
func (st *stream) connect() (net.Conn, bool) {
	s := st.socket
	if st.listener != nil {
		select {
		case conn := <-st.accepted:
			return st.adopt(conn)
		case <-s.stopped:
			return nil, false
		}
	}

	backoff := initialBackoff
	for {
		conn, err := s.dialer.DialContext(s.ctx, "tcp", st.address)
		if err == nil {
			return st.adopt(conn)
		}
		if s.isStopped() {
			return nil, false
		}
		s.logger.Debug("dial failed", "stream", st.name, "address", st.address, "error", err, "backoff", backoff)
		select {
		case <-s.clock.After(backoff):
		case <-s.stopped:
			return nil, false
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// adopt makes conn the stream's current connection, unless Stop got
// there first.
func (st *stream) adopt(conn net.Conn) (net.Conn, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.socket.isStopped() {
		conn.Close()
		return nil, false
	}
	tune(conn, st.socket.logger)
	st.conn = conn
	st.socket.metrics.Reconnects.WithLabelValues(st.name).Inc()
	st.socket.logger.Info("stream connected", "stream", st.name, "remote", conn.RemoteAddr().String())
	return conn, true
}

// release closes conn if it is still the current connection.
func (st *stream) release(conn net.Conn) {
	st.mu.Lock()
	defer st.mu.Unlock()
	conn.Close()
	if st.conn == conn {
		st.conn = nil
	}
}

// supersede closes the current connection so the stream loop moves on
// to a newer one.
func (st *stream) supersede() {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.conn != nil {
		st.conn.Close()
	}
}

// shutdown unblocks everything the stream may be waiting on. Called
// once, after the Socket's stopped channel is closed.
func (st *stream) shutdown() {
	if st.listener != nil {
		st.listener.Close()
	}
	st.supersede()
}

// acceptLoop runs on the binding side. A new connection replaces the
// current one: a peer that reconnects is the same peer, and its old
// connection may never see a FIN.
func (st *stream) acceptLoop() {
	s := st.socket
	defer s.wg.Done()
	defer func() {
		select {
		case conn := <-st.accepted:
			conn.Close()
		default:
		}
	}()

	for {
		conn, err := st.listener.Accept()
		if err != nil {
			if s.isStopped() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("accept failed", "stream", st.name, "error", err)
			select {
			case <-s.clock.After(initialBackoff):
			case <-s.stopped:
				return
			}
			continue
		}

		select {
		case stale := <-st.accepted:
			stale.Close()
		default:
		}
		st.supersede()
		// Only this goroutine sends on accepted, and it was just
		// drained, so this never blocks.
		st.accepted <- conn
	}
}
