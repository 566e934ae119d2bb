// Package rules adapts github.com/corentings/chess/v2 to the small engine
// surface the turn coordinator needs.
package rules

import (
	"errors"
	"strings"

	"github.com/park285/cheese-duel/internal/domain"
)

var (
	ErrIllegal   = errors.New("illegal move")
	ErrWrongSide = errors.New("not that side's turn")
	ErrSnapshot  = errors.New("invalid position snapshot")
)

// Engine is everything the coordinator asks of a rules implementation.
type Engine interface {
	IsLegal(m domain.Move, side domain.Side) bool
	Apply(m domain.Move, side domain.Side) error
	WhoseTurn() domain.Side
	IsCheckmate(side domain.Side) bool
	IsStalemate(side domain.Side) bool
	Outcome() Outcome
	Snapshot() string
	FromSnapshot(fen string) (Engine, error)
	Board() Board
}

// Reason says why a game ended.
type Reason int

const (
	NotOver Reason = iota
	Checkmate
	Stalemate
	Draw
	Resignation
)

func (r Reason) String() string {
	switch r {
	case Checkmate:
		return "checkmate"
	case Stalemate:
		return "stalemate"
	case Draw:
		return "draw"
	case Resignation:
		return "resignation"
	default:
		return "in progress"
	}
}

// Outcome is the terminal state of a game. Winner is NoSide for stalemate and draws.
// Loser is the side that was mated, stalemated or resigned.
type Outcome struct {
	Reason Reason
	Winner domain.Side
	Loser  domain.Side
	Detail string
}

func (o Outcome) Over() bool { return o.Reason != NotOver }

func (o Outcome) String() string {
	switch o.Reason {
	case NotOver:
		return o.Reason.String()
	case Checkmate, Resignation:
		return o.Reason.String() + ", " + o.Winner.String() + " wins"
	case Stalemate:
		return "stalemate, " + o.Loser.String() + " cannot move"
	default:
		if o.Detail != "" {
			return "draw by " + o.Detail
		}
		return "draw"
	}
}

// Board is an 8x8 grid indexed [rank][file] from a1. White pieces are
// uppercase letters, black lowercase, empty squares zero.
type Board [8][8]byte

func (b Board) At(sq domain.Square) byte {
	if sq.IsZero() {
		return 0
	}
	return b[sq.RankIndex()][sq.FileIndex()]
}

// String prints the board with rank 8 on top, '.' for empty squares.
func (b Board) String() string {
	var sb strings.Builder
	for r := 7; r >= 0; r-- {
		sb.WriteByte(byte('1' + r))
		sb.WriteByte(' ')
		for f := 0; f < 8; f++ {
			c := b[r][f]
			if c == 0 {
				c = '.'
			}
			sb.WriteByte(c)
			if f < 7 {
				sb.WriteByte(' ')
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  a b c d e f g h\n")
	return sb.String()
}

// SideOf reports which side owns the piece letter.
func SideOf(piece byte) domain.Side {
	switch {
	case piece >= 'A' && piece <= 'Z':
		return domain.First
	case piece >= 'a' && piece <= 'z':
		return domain.Second
	default:
		return domain.NoSide
	}
}

// ImplicitPromotion fills in a queen when a pawn reaches the last rank
// without a promotion letter. Any other move comes back unchanged.
func ImplicitPromotion(b Board, m domain.Move) domain.Move {
	if m.Promotion != 0 {
		return m
	}
	p := b.At(m.From)
	if (p == 'P' && m.To.Rank() == '8') || (p == 'p' && m.To.Rank() == '1') {
		m.Promotion = 'q'
	}
	return m
}
