// Package session drives one duel: handshake, strict alternation between the
// local player and the peer, and teardown.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/cheese-duel/internal/domain"
	"github.com/park285/cheese-duel/internal/notation"
	"github.com/park285/cheese-duel/internal/obslog"
	"github.com/park285/cheese-duel/internal/rules"
	"github.com/park285/cheese-duel/internal/transport"
	"github.com/park285/cheese-duel/internal/turn"
	"github.com/park285/cheese-duel/internal/wire"
)

var ErrConfig = errors.New("invalid session config")

type Config struct {
	Role      Role
	Transport Transport
	Input     Input
	Renderer  Renderer

	// Host only. HostSide is the side the host plays; the joiner learns its
	// own side from the hello frame, along with SessionID and Verify.
	HostSide  domain.Side
	SessionID string
	Verify    bool

	NewEngine       func() rules.Engine
	PlyObservers    []PlyObserver
	ResultObservers []ResultObserver
	Logger          *zap.Logger
}

// Session is driven by exactly one goroutine through Run.
type Session struct {
	cfg   Config
	tr    Transport
	log   *zap.Logger
	id    string
	local domain.Side
	check bool

	coord *turn.Coordinator
	moves []domain.Move
	last  *turn.Applied
}

func New(cfg Config) (*Session, error) {
	if cfg.Transport == nil || cfg.Input == nil || cfg.Renderer == nil {
		return nil, fmt.Errorf("%w: transport, input and renderer are required", ErrConfig)
	}
	if cfg.Role == Host && !cfg.HostSide.Valid() {
		return nil, fmt.Errorf("%w: host side %v", ErrConfig, cfg.HostSide)
	}
	if cfg.NewEngine == nil {
		cfg.NewEngine = func() rules.Engine { return rules.NewChess() }
	}
	if cfg.Logger == nil {
		cfg.Logger = obslog.L()
	}
	s := &Session{cfg: cfg, tr: cfg.Transport, log: cfg.Logger.With(zap.String("role", cfg.Role.String()))}
	if cfg.Role == Host {
		s.id = cfg.SessionID
		if s.id == "" {
			s.id = uuid.NewString()
		}
		s.local = cfg.HostSide
		s.check = cfg.Verify
	}
	return s, nil
}

// Run plays the game to the end. The error is nil when the game finished
// normally and the abort cause otherwise. The transport is closed on return,
// and cancelling ctx closes it early.
func (s *Session) Run(ctx context.Context) (Result, error) {
	defer s.tr.Close()
	stop := context.AfterFunc(ctx, func() { _ = s.tr.Close() })
	defer stop()

	if err := s.handshake(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		s.log.Warn("duel_handshake_failed", zap.Error(err))
		res := Result{SessionID: s.id, Role: s.cfg.Role, Local: s.local, State: turn.Aborted, Cause: err}
		s.finish(ctx, res)
		return res, err
	}

	s.coord = turn.New(s.cfg.NewEngine(), s.local)
	s.log = s.log.With(zap.String("session", s.id), zap.String("local", s.local.String()))
	s.log.Info("duel_start", zap.Bool("verify", s.check))
	s.cfg.Renderer.Render(s.view())

	for !s.coord.State().Terminal() {
		var err error
		switch s.coord.State() {
		case turn.AwaitingLocalMove:
			err = s.localTurn(ctx)
		case turn.AwaitingRemoteMove:
			err = s.remoteTurn(ctx)
		}
		if err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			s.coord.Abort(err)
		}
	}

	res := s.result()
	s.finish(ctx, res)
	if res.State == turn.Aborted {
		return res, res.Cause
	}
	return res, nil
}

func (s *Session) handshake() error {
	if s.cfg.Role == Host {
		frame, err := wire.Encode(wire.HelloMessage(wire.Hello{
			Version: wire.ProtocolVersion,
			Session: s.id,
			Side:    s.local.Opponent().String(),
			Verify:  s.check,
		}))
		if err != nil {
			return err
		}
		return s.tr.SendFrame(frame)
	}

	frame, err := s.tr.ReceiveFrame()
	if err != nil {
		return protocolErr(err)
	}
	msg, err := wire.Decode(frame)
	if err != nil {
		return protocolErr(err)
	}
	if msg.Kind != wire.KindHello {
		return fmt.Errorf("%w: expected hello, got %s", turn.ErrProtocolViolation, msg.Kind)
	}
	if msg.Hello.Version != wire.ProtocolVersion {
		return fmt.Errorf("%w: protocol version %d, want %d", turn.ErrProtocolViolation, msg.Hello.Version, wire.ProtocolVersion)
	}
	side, err := domain.ParseSide(msg.Hello.Side)
	if err != nil {
		return fmt.Errorf("%w: %v", turn.ErrProtocolViolation, err)
	}
	s.id, s.local, s.check = msg.Hello.Session, side, msg.Hello.Verify
	return nil
}

func (s *Session) localTurn(ctx context.Context) error {
	v := s.view()
	in, err := s.cfg.Input.Next(ctx, v)
	if err != nil {
		if errors.Is(err, notation.ErrNotAMove) {
			s.cfg.Renderer.Reject(err)
			return nil
		}
		s.sendBye(wire.ByeQuit)
		return fmt.Errorf("local input: %w", err)
	}

	switch in.Kind {
	case notation.KindBoard:
		s.cfg.Renderer.Render(v)
		return nil
	case notation.KindHelp:
		s.cfg.Renderer.Help()
		return nil
	case notation.KindResign:
		if _, err := s.coord.Resign(); err != nil {
			return err
		}
		s.sendBye(wire.ByeResign)
		return nil
	}

	a, err := s.coord.SubmitLocalMove(in.Move)
	if err != nil {
		if errors.Is(err, turn.ErrNotYourTurn) || errors.Is(err, turn.ErrIllegalMove) {
			s.cfg.Renderer.Reject(err)
			return nil
		}
		return err
	}
	if err := s.tr.SendFrame(wire.EncodeMove(a.Move)); err != nil {
		return err
	}
	s.applied(ctx, a)

	// A finished game exchanges no further frames.
	if s.check && !a.Outcome.Over() {
		return s.awaitSnapshot()
	}
	return nil
}

// awaitSnapshot reads the peer's position after our move and compares it.
func (s *Session) awaitSnapshot() error {
	frame, err := s.tr.ReceiveFrame()
	if err != nil {
		return protocolErr(err)
	}
	msg, err := wire.Decode(frame)
	if err != nil {
		return protocolErr(err)
	}
	switch msg.Kind {
	case wire.KindSnapshot:
		if err := s.coord.VerifySnapshot(msg.Snapshot); err != nil && s.coord.State() == turn.Aborted {
			return err
		}
		return nil
	case wire.KindBye:
		return s.peerBye(msg.Bye)
	default:
		return fmt.Errorf("%w: expected fen after our move, got %s", turn.ErrProtocolViolation, msg.Kind)
	}
}

func (s *Session) remoteTurn(ctx context.Context) error {
	s.cfg.Renderer.Waiting(s.view())
	frame, err := s.tr.ReceiveFrame()
	if err != nil {
		return protocolErr(err)
	}
	msg, err := wire.Decode(frame)
	if err != nil {
		return protocolErr(err)
	}

	switch msg.Kind {
	case wire.KindMove:
		a, err := s.coord.ApplyRemoteMove(msg.Move)
		if err != nil {
			return err
		}
		if s.check && !a.Outcome.Over() {
			reply, err := wire.EncodeSnapshot(a.Snapshot)
			if err != nil {
				return err
			}
			if err := s.tr.SendFrame(reply); err != nil {
				return err
			}
		}
		s.applied(ctx, a)
		return nil
	case wire.KindBye:
		return s.peerBye(msg.Bye)
	default:
		return fmt.Errorf("%w: unexpected %s frame", turn.ErrProtocolViolation, msg.Kind)
	}
}

func (s *Session) peerBye(reason string) error {
	s.log.Info("duel_peer_bye", zap.String("reason", reason))
	if reason == wire.ByeResign {
		_, err := s.coord.RemoteResigned()
		return err
	}
	return &transport.OpError{Op: "bye", Kind: transport.ErrConnectionClosed, Err: fmt.Errorf("peer left: %s", reason)}
}

func (s *Session) sendBye(reason string) {
	frame, err := wire.Encode(wire.ByeMessage(reason))
	if err != nil {
		return
	}
	if err := s.tr.SendFrame(frame); err != nil {
		s.log.Debug("duel_bye_not_sent", zap.Error(err))
	}
}

func (s *Session) applied(ctx context.Context, a turn.Applied) {
	s.moves = append(s.moves, a.Move)
	s.last = &a
	v := s.view()
	s.cfg.Renderer.Render(v)
	for _, o := range s.cfg.PlyObservers {
		if err := o.ObservePly(ctx, a, v); err != nil {
			s.log.Warn("duel_ply_observer_failed", zap.Int("ply", a.Ply), zap.Error(err))
		}
	}
}

func (s *Session) view() View {
	v := View{
		SessionID: s.id,
		Board:     s.coord.Board(),
		Ply:       s.coord.Ply(),
		Local:     s.local,
		ToMove:    s.coord.SideToMove(),
		Snapshot:  s.coord.Snapshot(),
	}
	if s.last != nil {
		mv := s.last.Move
		v.Last, v.LastSide = &mv, s.last.Side
	}
	return v
}

func (s *Session) result() Result {
	return Result{
		SessionID: s.id,
		Role:      s.cfg.Role,
		Local:     s.local,
		State:     s.coord.State(),
		Outcome:   s.coord.Outcome(),
		Cause:     s.coord.Cause(),
		Plies:     s.coord.Ply() - 1,
		Moves:     append([]domain.Move(nil), s.moves...),
		Snapshot:  s.coord.Snapshot(),
	}
}

func (s *Session) finish(ctx context.Context, res Result) {
	_ = s.tr.Close()
	s.log.Info("duel_end",
		zap.String("state", res.State.String()),
		zap.String("outcome", res.Outcome.String()),
		zap.Int("plies", res.Plies),
		zap.Error(res.Cause))
	s.cfg.Renderer.Finished(res)
	// Result observers run even when ctx is already cancelled.
	octx := context.WithoutCancel(ctx)
	for _, o := range s.cfg.ResultObservers {
		if err := o.ObserveResult(octx, res); err != nil {
			s.log.Warn("duel_result_observer_failed", zap.Error(err))
		}
	}
}

// protocolErr marks framing and decoding failures as protocol violations;
// transport errors pass through.
func protocolErr(err error) error {
	if errors.Is(err, wire.ErrMalformedMessage) {
		return fmt.Errorf("%w: %w", turn.ErrProtocolViolation, err)
	}
	return err
}
