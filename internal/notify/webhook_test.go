package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/park285/cheese-duel/internal/domain"
	"github.com/park285/cheese-duel/internal/rules"
	"github.com/park285/cheese-duel/internal/session"
	"github.com/park285/cheese-duel/internal/turn"
)

func serve(t *testing.T, h fasthttp.RequestHandler) *fasthttputil.InmemoryListener {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: h}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })
	return ln
}

func dialer(ln *fasthttputil.InmemoryListener) Option {
	return WithDial(func(string) (net.Conn, error) { return ln.Dial() })
}

func sampleResult() session.Result {
	e2e4, _ := domain.ParseMove("e2", "e4")
	e7e5, _ := domain.ParseMove("e7", "e5")
	return session.Result{
		SessionID: "s-1",
		Role:      session.Host,
		Local:     domain.First,
		State:     turn.GameOver,
		Outcome:   rules.Outcome{Reason: rules.Resignation, Winner: domain.First, Loser: domain.Second},
		Plies:     2,
		Moves:     []domain.Move{e2e4, e7e5},
		Snapshot:  "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e6 0 2",
	}
}

func TestWebhookPostsResult(t *testing.T) {
	var got Payload
	var token string
	ln := serve(t, func(ctx *fasthttp.RequestCtx) {
		token = string(ctx.Request.Header.Peek("X-Token"))
		if err := json.Unmarshal(ctx.PostBody(), &got); err != nil {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
		}
	})
	w := NewWebhook("http://duel.test/hook", dialer(ln), WithPlayer("alice"),
		WithHeaderProvider(func() map[string]string { return map[string]string{"X-Token": "t0k"} }))

	if err := w.ObserveResult(context.Background(), sampleResult()); err != nil {
		t.Fatalf("ObserveResult: %v", err)
	}
	if token != "t0k" {
		t.Fatalf("header not sent, got %q", token)
	}
	if got.Session != "s-1" || got.Winner != "white" || got.Plies != 2 || got.State != "game_over" {
		t.Fatalf("unexpected payload %+v", got)
	}
	if strings.Join(got.Moves, " ") != "e2e4 e7e5" {
		t.Fatalf("moves = %v", got.Moves)
	}
	if !strings.Contains(got.Text, "alice vs peer") {
		t.Fatalf("text = %q", got.Text)
	}
}

func TestWebhookRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ln := serve(t, func(ctx *fasthttp.RequestCtx) {
		if calls.Add(1) < 3 {
			ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
		}
	})
	w := NewWebhook("http://duel.test/hook", dialer(ln), WithRetry(3))
	if err := w.ObserveResult(context.Background(), sampleResult()); err != nil {
		t.Fatalf("ObserveResult: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestWebhookDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	ln := serve(t, func(ctx *fasthttp.RequestCtx) {
		calls.Add(1)
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.SetBodyString("nope")
	})
	w := NewWebhook("http://duel.test/hook", dialer(ln), WithRetry(3))
	err := w.ObserveResult(context.Background(), sampleResult())
	if err == nil || !strings.Contains(err.Error(), "status=400") {
		t.Fatalf("expected status error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 attempt, got %d", calls.Load())
	}
}

func TestWebhookAbortedResultCarriesCause(t *testing.T) {
	r := sampleResult()
	r.State = turn.Aborted
	r.Outcome = rules.Outcome{}
	r.Cause = errors.New("peer vanished")
	p := NewWebhook("http://duel.test/hook").payload(r)
	if p.Cause != "peer vanished" || p.Winner != "" {
		t.Fatalf("unexpected payload %+v", p)
	}
	if !strings.Contains(p.Text, "aborted") {
		t.Fatalf("text = %q", p.Text)
	}
}

func TestBackoffIsCapped(t *testing.T) {
	if backoffDuration(1) != 100*time.Millisecond || backoffDuration(20) != backoffDuration(6) {
		t.Fatalf("unexpected backoff progression")
	}
}
