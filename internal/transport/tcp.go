// Package transport sends emitted keys to the receiving computer.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ayusman/ghostglove/internal/keymap"
	"github.com/ayusman/ghostglove/internal/log"
)

// Default timeouts.
const (
	DefaultDialTimeout  = 3 * time.Second
	DefaultWriteTimeout = time.Second
)

// ErrOffline is returned by Send when there is no connection.
var ErrOffline = errors.New("transport offline")

// TCPSender writes each key label as raw UTF-8 bytes to a TCP peer. There is
// no framing; the receiver types whatever arrives.
type TCPSender struct {
	addr         string
	dialTimeout  time.Duration
	writeTimeout time.Duration

	mu   sync.Mutex
	conn net.Conn
}

// NewTCPSender creates a sender for addr (host:port). Non-positive timeouts
// use the defaults.
func NewTCPSender(addr string, dialTimeout time.Duration) *TCPSender {
	if dialTimeout <= 0 {
		dialTimeout = DefaultDialTimeout
	}
	return &TCPSender{
		addr:         addr,
		dialTimeout:  dialTimeout,
		writeTimeout: DefaultWriteTimeout,
	}
}

// Addr returns the peer address.
func (s *TCPSender) Addr() string {
	return s.addr
}

// Connect dials the peer. On failure the sender stays offline and the
// error is returned for the caller to report; the pipeline keeps running.
func (s *TCPSender) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return nil
	}

	d := net.Dialer{Timeout: s.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		log.Warn("could not connect to receiver, proceeding in offline mode", "addr", s.addr, "error", err)
		return fmt.Errorf("connect %s: %w", s.addr, err)
	}

	s.conn = conn
	log.Info("connected to receiver", "addr", s.addr)
	return nil
}

// Online reports whether a connection is open.
func (s *TCPSender) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Send writes label. A failed write closes the connection, after which every
// Send returns ErrOffline until Connect succeeds again.
func (s *TCPSender) Send(label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return ErrOffline
	}

	s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	if _, err := s.conn.Write([]byte(label)); err != nil {
		s.conn.Close()
		s.conn = nil
		log.Warn("receiver disconnected", "addr", s.addr, "error", err)
		return fmt.Errorf("send %q: %w", label, err)
	}
	return nil
}

// Emit sends the label of hit.
func (s *TCPSender) Emit(hit keymap.Result) error {
	return s.Send(hit.Label)
}

// Close closes the connection if one is open.
func (s *TCPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
