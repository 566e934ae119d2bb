package session

import (
	"context"

	"github.com/park285/cheese-duel/internal/domain"
	"github.com/park285/cheese-duel/internal/notation"
	"github.com/park285/cheese-duel/internal/rules"
	"github.com/park285/cheese-duel/internal/turn"
)

// Role says which end of the connection this process is.
type Role int

const (
	Host Role = iota
	Joiner
)

func (r Role) String() string {
	if r == Host {
		return "host"
	}
	return "joiner"
}

// View is what the renderer and the input collaborator see of the game.
type View struct {
	SessionID string
	Board     rules.Board
	Ply       int
	Local     domain.Side
	ToMove    domain.Side
	Snapshot  string
	Last      *domain.Move
	LastSide  domain.Side
}

// Transport is the framed byte stream to the peer.
type Transport interface {
	SendFrame(frame []byte) error
	ReceiveFrame() ([]byte, error)
	Close() error
}

// Input supplies the local player's next line. Lines that are not moves come
// back as errors matching notation.ErrNotAMove; the loop re-prompts on those.
// Any other error ends the session.
type Input interface {
	Next(ctx context.Context, v View) (notation.Input, error)
}

// Renderer presents the game. It must not block on the network.
type Renderer interface {
	Render(v View)
	Reject(err error)
	Waiting(v View)
	Help()
	Finished(r Result)
}

// PlyObserver is told about every applied move. Errors are logged only.
type PlyObserver interface {
	ObservePly(ctx context.Context, a turn.Applied, v View) error
}

// ResultObserver is told once, after the game ends. Errors are logged only.
type ResultObserver interface {
	ObserveResult(ctx context.Context, r Result) error
}

// Result summarises a finished or aborted session.
type Result struct {
	SessionID string
	Role      Role
	Local     domain.Side
	State     turn.State
	Outcome   rules.Outcome
	Cause     error
	Plies     int
	Moves     []domain.Move
	Snapshot  string
}

// Won reports whether the local side won.
func (r Result) Won() bool {
	return r.State == turn.GameOver && r.Outcome.Winner == r.Local
}
