package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"nhooyr.io/websocket"

	"github.com/park285/cheese-duel/internal/wire"
)

var (
	// ErrConnectionClosed means the peer went away before a complete frame arrived.
	ErrConnectionClosed = errors.New("connection closed by peer")
	// ErrConnectionError covers every other I/O fault.
	ErrConnectionError = errors.New("connection error")
)

// OpError records which operation failed and how it was classified.
// errors.Is matches both Kind and the underlying cause.
type OpError struct {
	Op   string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// classify maps a raw I/O error onto the two transport sentinels.
// Framing errors pass through untouched so callers can still match
// wire.ErrMalformedMessage.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, wire.ErrMalformedMessage) {
		return err
	}
	var opErr *OpError
	if errors.As(err, &opErr) {
		return err
	}
	if isPeerClosed(err) {
		return &OpError{Op: op, Kind: ErrConnectionClosed, Err: err}
	}
	return &OpError{Op: op, Kind: ErrConnectionError, Err: err}
}

func isPeerClosed(err error) bool {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.ErrClosedPipe):
		return true
	case errors.Is(err, syscall.EPIPE), errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.ECONNABORTED):
		return true
	case errors.Is(err, net.ErrClosed):
		return true
	}
	return websocket.CloseStatus(err) != -1
}
