// Package notify posts finished duel results to an HTTP webhook.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/cheese-duel/internal/domain"
	"github.com/park285/cheese-duel/internal/msgcat"
	"github.com/park285/cheese-duel/internal/obslog"
	"github.com/park285/cheese-duel/internal/session"
)

// HeaderProvider allows injecting per-request headers
type HeaderProvider func() map[string]string

// Payload is the JSON body posted for one result.
type Payload struct {
	Type    string   `json:"type"`
	Session string   `json:"session"`
	Role    string   `json:"role"`
	Player  string   `json:"player,omitempty"`
	Local   string   `json:"local"`
	State   string   `json:"state"`
	Outcome string   `json:"outcome"`
	Winner  string   `json:"winner,omitempty"`
	Cause   string   `json:"cause,omitempty"`
	Plies   int      `json:"plies"`
	Moves   []string `json:"moves"`
	FEN     string   `json:"fen"`
	Text    string   `json:"text"`
}

type Webhook struct {
	url     string
	player  string
	http    *fasthttp.Client
	headers HeaderProvider
	msgs    *msgcat.Catalog
	log     *zap.Logger

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Webhook)

func WithTimeout(d time.Duration) Option {
	return func(w *Webhook) { w.defaultTimeout = d }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(w *Webhook) { w.headers = h }
}

func WithRetry(max int) Option {
	return func(w *Webhook) { w.retryMax = max }
}

func WithPlayer(name string) Option {
	return func(w *Webhook) { w.player = name }
}

func WithCatalog(c *msgcat.Catalog) Option {
	return func(w *Webhook) { w.msgs = c }
}

// WithDial swaps the dialer; tests use it with an in-memory listener.
func WithDial(dial fasthttp.DialFunc) Option {
	return func(w *Webhook) { w.http.Dial = dial }
}

func NewWebhook(url string, opts ...Option) *Webhook {
	w := &Webhook{
		url:            strings.TrimSpace(url),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 4},
		log:            obslog.L(),
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.msgs == nil {
		w.msgs = msgcat.MustDefault()
	}
	return w
}

var _ session.ResultObserver = (*Webhook)(nil)

func (w *Webhook) ObserveResult(ctx context.Context, r session.Result) error {
	p := w.payload(r)
	if err := w.post(ctx, p); err != nil {
		return err
	}
	w.log.Info("duel_result_posted", zap.String("session", r.SessionID), zap.String("state", p.State))
	return nil
}

func (w *Webhook) payload(r session.Result) Payload {
	moves := make([]string, 0, len(r.Moves))
	for _, m := range r.Moves {
		moves = append(moves, m.UCI())
	}
	p := Payload{
		Type:    "duel_result",
		Session: r.SessionID,
		Role:    r.Role.String(),
		Player:  w.player,
		Local:   r.Local.String(),
		State:   r.State.String(),
		Outcome: r.Outcome.String(),
		Plies:   r.Plies,
		Moves:   moves,
		FEN:     r.Snapshot,
	}
	if r.Outcome.Winner.Valid() {
		p.Winner = r.Outcome.Winner.String()
	}
	summary := p.Outcome
	if r.Cause != nil {
		p.Cause = r.Cause.Error()
		summary = "aborted"
	}
	white, black := "peer", "peer"
	if w.player != "" {
		if r.Local == domain.First {
			white = w.player
		} else {
			black = w.player
		}
	}
	p.Text = w.msgs.Text("notify.result", map[string]any{
		"White":   white,
		"Black":   black,
		"Session": r.SessionID,
		"Summary": summary,
		"Plies":   r.Plies,
	})
	return p
}

func (w *Webhook) post(ctx context.Context, in Payload) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(w.url)
	req.Header.SetContentType("application/json")
	if w.headers != nil {
		for k, v := range w.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	req.SetBody(payload)

	attempts := w.retryMax
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := w.http.DoDeadline(req, resp, w.computeDeadline(ctx))
		if err == nil {
			status := resp.StatusCode()
			if status >= 200 && status < 300 {
				return nil
			}
			err = fmt.Errorf("webhook error: status=%d body=%s", status, truncate(string(resp.Body()), 512))
			if !shouldRetryStatus(status) {
				return err
			}
		} else {
			err = fmt.Errorf("webhook request failed: %w", err)
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
			return lastErr
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func (w *Webhook) computeDeadline(ctx context.Context) time.Time {
	limit := time.Now().Add(w.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(limit) {
		return dl
	}
	return limit
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	attempt = max(1, min(attempt, 6))
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond // 100ms, 200ms ...
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
