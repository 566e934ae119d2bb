// Package transport carries length-prefixed frames over one point-to-point
// connection, either raw TCP or a binary WebSocket tunnel.
package transport

import (
	"bufio"
	"errors"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/cheese-duel/internal/wire"
)

// Session is one live connection to the peer. It is driven by a single
// goroutine; only Close may be called concurrently.
type Session struct {
	conn     net.Conn
	r        *bufio.Reader
	maxFrame int
	remote   string
	log      *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

// FromConn wraps an already connected stream, such as one end of net.Pipe.
func FromConn(conn net.Conn, opts ...Option) *Session {
	return newSession(conn, "", buildOptions(opts))
}

func newSession(conn net.Conn, remote string, o options) *Session {
	if remote == "" && conn.RemoteAddr() != nil {
		remote = conn.RemoteAddr().String()
	}
	return &Session{
		conn:     conn,
		r:        bufio.NewReader(conn),
		maxFrame: o.maxFrame,
		remote:   remote,
		log:      o.logger.With(zap.String("peer", remote)),
	}
}

// RemoteAddr is the peer address as seen when the session was opened.
func (s *Session) RemoteAddr() string { return s.remote }

// SendFrame writes one complete frame, looping over partial writes.
func (s *Session) SendFrame(frame []byte) error {
	if len(frame) <= wire.HeaderSize {
		return &OpError{Op: "send", Kind: ErrConnectionError, Err: errors.New("refusing to send an empty frame")}
	}
	if err := wire.WriteFrame(s.conn, frame); err != nil {
		err = classify("send", err)
		s.log.Debug("duel_frame_send_failed", zap.Error(err))
		return err
	}
	s.log.Debug("duel_frame_sent", zap.Int("bytes", len(frame)))
	return nil
}

// ReceiveFrame blocks until one whole frame has arrived and returns it,
// header included.
func (s *Session) ReceiveFrame() ([]byte, error) {
	frame, err := wire.ReadFrame(s.r, s.maxFrame)
	if err != nil {
		err = classify("receive", err)
		s.log.Debug("duel_frame_receive_failed", zap.Error(err))
		return nil, err
	}
	s.log.Debug("duel_frame_received", zap.Int("bytes", len(frame)))
	return frame, nil
}

// Close shuts the connection down. Later calls return the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.closeErr = &OpError{Op: "close", Kind: ErrConnectionError, Err: err}
		}
		s.log.Debug("duel_connection_closed")
	})
	return s.closeErr
}
