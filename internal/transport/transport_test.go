package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/park285/cheese-duel/internal/domain"
	"github.com/park285/cheese-duel/internal/wire"
)

func loopbackPair(t *testing.T, opts ...Option) (host, joiner *Session) {
	t.Helper()
	ln, err := Listen("127.0.0.1:0", opts...)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	accepted := make(chan *Session, 1)
	acceptErr := make(chan error, 1)
	go func() {
		s, err := ln.Accept(ctx)
		if err != nil {
			acceptErr <- err
			return
		}
		accepted <- s
	}()

	joiner, err = Dial(ctx, ln.Addr().String(), opts...)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	select {
	case host = <-accepted:
	case err := <-acceptErr:
		t.Fatalf("Accept: %v", err)
	}
	t.Cleanup(func() {
		_ = host.Close()
		_ = joiner.Close()
	})
	return host, joiner
}

func TestSendReceiveBothDirections(t *testing.T) {
	host, joiner := loopbackPair(t)

	e4 := wire.EncodeMove(domain.Move{From: domain.MustSquare("e2"), To: domain.MustSquare("e4")})
	if err := host.SendFrame(e4); err != nil {
		t.Fatalf("host SendFrame: %v", err)
	}
	got, err := joiner.ReceiveFrame()
	if err != nil {
		t.Fatalf("joiner ReceiveFrame: %v", err)
	}
	if string(got) != string(e4) {
		t.Fatalf("frame mismatch: %q vs %q", got, e4)
	}

	e5 := wire.EncodeMove(domain.Move{From: domain.MustSquare("e7"), To: domain.MustSquare("e5")})
	if err := joiner.SendFrame(e5); err != nil {
		t.Fatalf("joiner SendFrame: %v", err)
	}
	got, err = host.ReceiveFrame()
	if err != nil {
		t.Fatalf("host ReceiveFrame: %v", err)
	}
	if mv, err := wire.DecodeMove(got); err != nil || mv.To != domain.MustSquare("e5") {
		t.Fatalf("decoded %v, %v", mv, err)
	}
}

func TestBackToBackFramesStayDistinct(t *testing.T) {
	host, joiner := loopbackPair(t)
	a := wire.EncodeMove(domain.Move{From: domain.MustSquare("d2"), To: domain.MustSquare("d4")})
	b, _ := wire.EncodeSnapshot("rnbqkbnr/pppppppp/8/8/3P4/8/PPP1PPPP/RNBQKBNR b KQkq - 0 1")
	if err := host.SendFrame(append(append([]byte{}, a...), b...)); err != nil {
		t.Fatalf("SendFrame: %v", err)
	}
	for i, want := range [][]byte{a, b} {
		got, err := joiner.ReceiveFrame()
		if err != nil {
			t.Fatalf("ReceiveFrame #%d: %v", i, err)
		}
		if string(got) != string(want) {
			t.Fatalf("frame #%d mismatch", i)
		}
	}
}

func TestPeerCloseIsConnectionClosed(t *testing.T) {
	host, joiner := loopbackPair(t)
	if err := host.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := host.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	_, err := joiner.ReceiveFrame()
	if !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("expected ErrConnectionClosed, got %v", err)
	}
	var opErr *OpError
	if !errors.As(err, &opErr) || opErr.Op != "receive" {
		t.Fatalf("expected *OpError for receive, got %T", err)
	}
}

func TestPeerCloseMidFrame(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		raw, err := net.Dial("tcp", ln.Addr().String())
		if err != nil {
			return
		}
		frame := wire.EncodeMove(domain.Move{From: domain.MustSquare("g1"), To: domain.MustSquare("f3")})
		_, _ = raw.Write(frame[:len(frame)-2])
		_ = raw.Close()
	}()

	s, err := ln.Accept(ctx)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	defer s.Close()
	if _, err := s.ReceiveFrame(); !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("expected ErrConnectionClosed, got %v", err)
	}
}

func TestOversizeHeaderIsMalformed(t *testing.T) {
	ln, err := Listen("127.0.0.1:0", WithMaxFrameSize(128))
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		raw, err := net.Dial("tcp", ln.Addr().String())
		if err != nil {
			return
		}
		defer raw.Close()
		var hdr [wire.HeaderSize]byte
		binary.BigEndian.PutUint32(hdr[:], 4096)
		_, _ = raw.Write(hdr[:])
		time.Sleep(100 * time.Millisecond)
	}()

	s, err := ln.Accept(ctx)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	defer s.Close()
	if _, err := s.ReceiveFrame(); !errors.Is(err, wire.ErrMalformedMessage) {
		t.Fatalf("expected ErrMalformedMessage, got %v", err)
	}
}

func TestAcceptHonoursContext(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ln.Accept(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDialRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := Dial(ctx, addr); !errors.Is(err, ErrConnectionError) {
		t.Fatalf("expected ErrConnectionError, got %v", err)
	}
}

func TestWithDefaultPort(t *testing.T) {
	cases := map[string]string{
		"192.168.0.7":    "192.168.0.7:5000",
		"localhost:6000": "localhost:6000",
		"example.org":    "example.org:5000",
		"[::1]:5001":     "[::1]:5001",
	}
	for in, want := range cases {
		if got := WithDefaultPort(in); got != want {
			t.Fatalf("WithDefaultPort(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWebSocketCarriesFrames(t *testing.T) {
	ln, err := ListenWebSocket("127.0.0.1:0", "/duel")
	if err != nil {
		t.Fatalf("ListenWebSocket: %v", err)
	}
	defer ln.Close()
	url := "ws://" + ln.Addr().String() + "/duel"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	accepted := make(chan *Session, 1)
	go func() {
		s, err := ln.Accept(ctx)
		if err == nil {
			accepted <- s
		}
	}()

	joiner, err := DialWebSocket(ctx, url)
	if err != nil {
		t.Fatalf("DialWebSocket: %v", err)
	}
	defer joiner.Close()

	var host *Session
	select {
	case host = <-accepted:
	case <-ctx.Done():
		t.Fatalf("host never accepted")
	}
	defer host.Close()

	frame := wire.EncodeMove(domain.Move{From: domain.MustSquare("c2"), To: domain.MustSquare("c4")})
	if err := joiner.SendFrame(frame); err != nil {
		t.Fatalf("SendFrame: %v", err)
	}
	got, err := host.ReceiveFrame()
	if err != nil {
		t.Fatalf("ReceiveFrame: %v", err)
	}
	if string(got) != string(frame) {
		t.Fatalf("frame mismatch")
	}

	if _, err := DialWebSocket(ctx, url); err == nil {
		t.Fatalf("second peer should be refused")
	}

	go joiner.Close()
	if _, err := host.ReceiveFrame(); !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("expected ErrConnectionClosed after peer close, got %v", err)
	}
}
