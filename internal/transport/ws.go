package transport

import (
	"context"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/cheese-duel/internal/wire"
)

// DialWebSocket connects to a host started with ListenWebSocket. Frames are
// tunnelled unchanged inside binary WebSocket messages.
func DialWebSocket(ctx context.Context, url string, opts ...Option) (*Session, error) {
	o := buildOptions(opts)
	dialCtx, cancel := context.WithTimeout(ctx, o.dialTimeout)
	defer cancel()

	c, _, err := websocket.Dial(dialCtx, url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		return nil, &OpError{Op: "dial", Kind: ErrConnectionError, Err: err}
	}
	c.SetReadLimit(int64(o.maxFrame + wire.HeaderSize))
	o.logger.Info("duel_connected", zap.String("addr", url), zap.String("transport", "ws"))
	return newSession(websocket.NetConn(context.Background(), c, websocket.MessageBinary), url, o), nil
}

// WSListener serves a single WebSocket upgrade on path. Any further upgrade
// attempt is answered with 503.
type WSListener struct {
	ln    net.Listener
	srv   *http.Server
	o     options
	taken atomic.Bool

	conns     chan *wsConn
	closed    chan struct{}
	closeOnce sync.Once
}

func ListenWebSocket(address, path string, opts ...Option) (*WSListener, error) {
	o := buildOptions(opts)
	if path == "" {
		path = "/"
	}
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, &OpError{Op: "listen", Kind: ErrConnectionError, Err: err}
	}
	l := &WSListener{
		ln:     ln,
		o:      o,
		conns:  make(chan *wsConn),
		closed: make(chan struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(path, l.handle)
	l.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := l.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			o.logger.Warn("duel_ws_serve_failed", zap.Error(err))
		}
	}()
	o.logger.Info("duel_listen", zap.String("addr", ln.Addr().String()), zap.String("path", path), zap.String("transport", "ws"))
	return l, nil
}

func (l *WSListener) handle(w http.ResponseWriter, r *http.Request) {
	if !l.taken.CompareAndSwap(false, true) {
		http.Error(w, "a duel is already in progress", http.StatusServiceUnavailable)
		return
	}
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		l.taken.Store(false)
		l.o.logger.Warn("duel_ws_accept_failed", zap.Error(err))
		return
	}
	c.SetReadLimit(int64(l.o.maxFrame + wire.HeaderSize))
	conn := &wsConn{
		Conn:   websocket.NetConn(context.Background(), c, websocket.MessageBinary),
		remote: r.RemoteAddr,
		done:   make(chan struct{}),
	}
	select {
	case l.conns <- conn:
	case <-l.closed:
		_ = c.Close(websocket.StatusGoingAway, "host closed")
		return
	}
	<-conn.done
}

func (l *WSListener) Addr() net.Addr { return l.ln.Addr() }

// Accept waits for the upgraded peer.
func (l *WSListener) Accept(ctx context.Context) (*Session, error) {
	select {
	case <-ctx.Done():
		_ = l.Close()
		return nil, ctx.Err()
	case <-l.closed:
		return nil, &OpError{Op: "accept", Kind: ErrConnectionClosed, Err: net.ErrClosed}
	case c := <-l.conns:
		l.o.logger.Info("duel_peer_accepted", zap.String("peer", c.remote), zap.String("transport", "ws"))
		return newSession(c, c.remote, l.o), nil
	}
}

// Close stops the HTTP server. An already accepted session stays open.
func (l *WSListener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.closed)
		err = l.srv.Close()
	})
	return err
}

// wsConn releases the upgrade handler once the session is done with it.
type wsConn struct {
	net.Conn
	remote string
	once   sync.Once
	done   chan struct{}
}

func (c *wsConn) Close() error {
	err := c.Conn.Close()
	c.once.Do(func() { close(c.done) })
	return err
}
