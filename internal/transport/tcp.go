package transport

import (
	"context"
	"errors"
	"net"
	"strconv"

	"go.uber.org/zap"
)

// Acceptor hands out the single peer session a host waits for.
type Acceptor interface {
	Accept(ctx context.Context) (*Session, error)
	Addr() net.Addr
	Close() error
}

// Dial connects to a host. address is host[:port]; the port defaults to DefaultPort.
func Dial(ctx context.Context, address string, opts ...Option) (*Session, error) {
	o := buildOptions(opts)
	addr := WithDefaultPort(address)

	d := net.Dialer{Timeout: o.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &OpError{Op: "dial", Kind: ErrConnectionError, Err: err}
	}
	if err := setNoDelay(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	o.logger.Info("duel_connected", zap.String("addr", addr), zap.String("transport", "tcp"))
	return newSession(conn, addr, o), nil
}

// WithDefaultPort appends DefaultPort when address has none.
func WithDefaultPort(address string) string {
	if _, _, err := net.SplitHostPort(address); err == nil {
		return address
	}
	return net.JoinHostPort(address, strconv.Itoa(DefaultPort))
}

func setNoDelay(conn net.Conn) error {
	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	if err := tcp.SetNoDelay(true); err != nil {
		return &OpError{Op: "nodelay", Kind: ErrConnectionError, Err: err}
	}
	return nil
}

// Listener accepts raw TCP peers.
type Listener struct {
	ln net.Listener
	o  options
}

func Listen(address string, opts ...Option) (*Listener, error) {
	o := buildOptions(opts)
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, &OpError{Op: "listen", Kind: ErrConnectionError, Err: err}
	}
	o.logger.Info("duel_listen", zap.String("addr", ln.Addr().String()), zap.String("transport", "tcp"))
	return &Listener{ln: ln, o: o}, nil
}

func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

func (l *Listener) Close() error { return l.ln.Close() }

// Accept waits for one peer. Cancelling ctx closes the listener.
func (l *Listener) Accept(ctx context.Context) (*Session, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := l.ln.Accept()
		ch <- result{c, err}
	}()

	select {
	case <-ctx.Done():
		_ = l.ln.Close()
		if r := <-ch; r.conn != nil {
			_ = r.conn.Close()
		}
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			if errors.Is(r.err, net.ErrClosed) {
				return nil, &OpError{Op: "accept", Kind: ErrConnectionClosed, Err: r.err}
			}
			return nil, &OpError{Op: "accept", Kind: ErrConnectionError, Err: r.err}
		}
		if err := setNoDelay(r.conn); err != nil {
			_ = r.conn.Close()
			return nil, err
		}
		l.o.logger.Info("duel_peer_accepted", zap.String("peer", r.conn.RemoteAddr().String()))
		return newSession(r.conn, "", l.o), nil
	}
}
