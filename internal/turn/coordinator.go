// Package turn owns the ply counter and decides, for every candidate move,
// whether it may be played and by whom.
package turn

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/cheese-duel/internal/domain"
	"github.com/park285/cheese-duel/internal/obslog"
	"github.com/park285/cheese-duel/internal/rules"
)

var (
	ErrNotYourTurn       = errors.New("not your turn")
	ErrIllegalMove       = errors.New("illegal move")
	ErrProtocolViolation = errors.New("protocol violation")
	ErrGameOver          = errors.New("game is over")
)

// MoveError carries the rejected move. It matches ErrIllegalMove through errors.Is.
type MoveError struct {
	Move   domain.Move
	Reason string
}

func (e *MoveError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%v: %s", ErrIllegalMove, e.Move)
	}
	return fmt.Sprintf("%v: %s: %s", ErrIllegalMove, e.Move, e.Reason)
}

func (e *MoveError) Unwrap() error { return ErrIllegalMove }

type State int

const (
	AwaitingLocalMove State = iota
	AwaitingRemoteMove
	GameOver
	Aborted
)

func (s State) String() string {
	switch s {
	case AwaitingLocalMove:
		return "awaiting_local_move"
	case AwaitingRemoteMove:
		return "awaiting_remote_move"
	case GameOver:
		return "game_over"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further moves can be exchanged.
func (s State) Terminal() bool { return s == GameOver || s == Aborted }

// Applied describes one move that made it onto the board. Ply is the ply the
// move was played on; the coordinator has already advanced past it.
type Applied struct {
	Move     domain.Move
	Side     domain.Side
	Ply      int
	Board    rules.Board
	Snapshot string
	Outcome  rules.Outcome
}

// Coordinator is not safe for concurrent use; one session goroutine drives it.
type Coordinator struct {
	engine  rules.Engine
	local   domain.Side
	ply     int
	state   State
	outcome rules.Outcome
	cause   error
	log     *zap.Logger
}

// New panics if local is not First or Second.
func New(engine rules.Engine, local domain.Side) *Coordinator {
	if !local.Valid() {
		panic("turn: local side must be First or Second")
	}
	c := &Coordinator{
		engine: engine,
		local:  local,
		ply:    1,
		log:    obslog.L().With(zap.String("local", local.String())),
	}
	c.state = c.awaiting()
	return c
}

func (c *Coordinator) State() State { return c.state }
func (c *Coordinator) Ply() int { return c.ply }
func (c *Coordinator) Local() domain.Side { return c.local }
func (c *Coordinator) Remote() domain.Side { return c.local.Opponent() }
func (c *Coordinator) Outcome() rules.Outcome { return c.outcome }
func (c *Coordinator) Board() rules.Board { return c.engine.Board() }
func (c *Coordinator) Snapshot() string { return c.engine.Snapshot() }

// Cause is the error that aborted the game, if any.
func (c *Coordinator) Cause() error { return c.cause }

// SideToMove is derived from the ply counter alone.
func (c *Coordinator) SideToMove() domain.Side { return domain.SideForPly(c.ply) }

// SubmitLocalMove validates and applies a move typed by the local player.
// Nothing changes when it returns ErrNotYourTurn or ErrIllegalMove.
func (c *Coordinator) SubmitLocalMove(m domain.Move) (Applied, error) {
	if c.state.Terminal() {
		return Applied{}, fmt.Errorf("%w (%s)", ErrGameOver, c.state)
	}
	if c.state != AwaitingLocalMove || c.SideToMove() != c.local {
		return Applied{}, fmt.Errorf("%w: ply %d belongs to %s", ErrNotYourTurn, c.ply, c.SideToMove())
	}
	if err := c.checkEngineTurn(); err != nil {
		return Applied{}, err
	}
	m = rules.ImplicitPromotion(c.engine.Board(), m)
	if !c.engine.IsLegal(m, c.local) {
		return Applied{}, &MoveError{Move: m}
	}
	if err := c.engine.Apply(m, c.local); err != nil {
		return Applied{}, &MoveError{Move: m, Reason: err.Error()}
	}
	a, err := c.advance(m, c.local)
	if err == nil {
		c.log.Info("duel_local_move", zap.String("move", m.String()), zap.Int("ply", a.Ply))
	}
	return a, err
}

// ApplyRemoteMove applies a move received from the peer. Any failure here is
// the peer's fault and aborts the game.
func (c *Coordinator) ApplyRemoteMove(m domain.Move) (Applied, error) {
	if c.state.Terminal() {
		return Applied{}, fmt.Errorf("%w (%s)", ErrGameOver, c.state)
	}
	remote := c.Remote()
	if c.state != AwaitingRemoteMove || c.SideToMove() != remote {
		return Applied{}, c.violation(fmt.Errorf("%w: peer moved %s on ply %d which belongs to %s",
			ErrProtocolViolation, m, c.ply, c.SideToMove()))
	}
	if err := c.checkEngineTurn(); err != nil {
		return Applied{}, err
	}
	m = rules.ImplicitPromotion(c.engine.Board(), m)
	if !c.engine.IsLegal(m, remote) {
		return Applied{}, c.violation(fmt.Errorf("%w: %w: %s", ErrProtocolViolation, ErrIllegalMove, m))
	}
	if err := c.engine.Apply(m, remote); err != nil {
		return Applied{}, c.violation(fmt.Errorf("%w: %w: %v", ErrProtocolViolation, ErrIllegalMove, err))
	}
	a, err := c.advance(m, remote)
	if err == nil {
		c.log.Info("duel_remote_move", zap.String("move", m.String()), zap.Int("ply", a.Ply))
	}
	return a, err
}

func (c *Coordinator) advance(m domain.Move, side domain.Side) (Applied, error) {
	played := c.ply
	c.ply++

	a := Applied{
		Move:     domain.Move{From: m.From, To: m.To, Promotion: m.Promotion},
		Side:     side,
		Ply:      played,
		Board:    c.engine.Board(),
		Snapshot: c.engine.Snapshot(),
		Outcome:  c.terminal(),
	}
	if a.Outcome.Over() {
		c.finish(a.Outcome)
		return a, nil
	}
	if err := c.checkEngineTurn(); err != nil {
		return a, err
	}
	c.state = c.awaiting()
	return a, nil
}

// terminal asks the engine whether the side now to move is mated or
// stalemated; automatic draws come from the engine's outcome.
func (c *Coordinator) terminal() rules.Outcome {
	toMove := c.engine.WhoseTurn()
	switch {
	case c.engine.IsCheckmate(toMove):
		return rules.Outcome{Reason: rules.Checkmate, Winner: toMove.Opponent(), Loser: toMove}
	case c.engine.IsStalemate(toMove):
		return rules.Outcome{Reason: rules.Stalemate, Loser: toMove}
	}
	if out := c.engine.Outcome(); out.Reason == rules.Draw {
		return out
	}
	return rules.Outcome{}
}

// checkEngineTurn enforces that the rules engine and the ply counter agree.
func (c *Coordinator) checkEngineTurn() error {
	if got, want := c.engine.WhoseTurn(), c.SideToMove(); got != want {
		return c.violation(fmt.Errorf("%w: engine says %s to move, ply %d says %s",
			ErrProtocolViolation, got, c.ply, want))
	}
	return nil
}

func (c *Coordinator) awaiting() State {
	if c.SideToMove() == c.local {
		return AwaitingLocalMove
	}
	return AwaitingRemoteMove
}

func (c *Coordinator) finish(out rules.Outcome) {
	c.state = GameOver
	c.outcome = out
	c.log.Info("duel_game_over",
		zap.String("reason", out.Reason.String()),
		zap.String("winner", out.Winner.String()),
		zap.Int("plies", c.ply-1))
}

func (c *Coordinator) violation(err error) error {
	c.Abort(err)
	return err
}

// Abort ends the game without a result. A finished game stays finished and
// the first cause wins.
func (c *Coordinator) Abort(cause error) {
	if c.state.Terminal() {
		return
	}
	c.state = Aborted
	c.cause = cause
	c.log.Warn("duel_abort", zap.Int("ply", c.ply), zap.Error(cause))
}

// VerifySnapshot compares the peer's view of the position with ours. Only
// placement, side to move, castling rights and en passant square count; the
// move clocks are ignored.
func (c *Coordinator) VerifySnapshot(fen string) error {
	if c.state == Aborted {
		return fmt.Errorf("%w (%s)", ErrGameOver, c.state)
	}
	if _, err := c.engine.FromSnapshot(fen); err != nil {
		err = fmt.Errorf("%w: %w", ErrProtocolViolation, err)
		if c.state == GameOver {
			c.log.Warn("duel_snapshot_unreadable_after_end", zap.Error(err))
			return err
		}
		return c.violation(err)
	}
	ours := c.engine.Snapshot()
	if positionKey(fen) != positionKey(ours) {
		err := fmt.Errorf("%w: peer position %q differs from %q", ErrProtocolViolation, fen, ours)
		if c.state == GameOver {
			c.log.Warn("duel_snapshot_mismatch_after_end", zap.Error(err))
			return err
		}
		return c.violation(err)
	}
	return nil
}

func positionKey(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) > 4 {
		fields = fields[:4]
	}
	return strings.Join(fields, " ")
}

// Resign ends the game in the opponent's favour.
func (c *Coordinator) Resign() (rules.Outcome, error) {
	return c.resign(c.local)
}

// RemoteResigned records that the peer gave up.
func (c *Coordinator) RemoteResigned() (rules.Outcome, error) {
	return c.resign(c.Remote())
}

func (c *Coordinator) resign(loser domain.Side) (rules.Outcome, error) {
	if c.state.Terminal() {
		return c.outcome, fmt.Errorf("%w (%s)", ErrGameOver, c.state)
	}
	out := rules.Outcome{Reason: rules.Resignation, Winner: loser.Opponent(), Loser: loser}
	c.finish(out)
	return out, nil
}
