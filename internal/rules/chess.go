package rules

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/cheese-duel/internal/domain"
)

// Chess is the Engine backed by corentings/chess.
type Chess struct {
	game *nchess.Game
}

var _ Engine = (*Chess)(nil)

func NewChess() *Chess {
	return &Chess{game: nchess.NewGame()}
}

// FromSnapshot builds a fresh engine positioned at fen.
func (c *Chess) FromSnapshot(fen string) (Engine, error) {
	return ChessFromFEN(fen)
}

func ChessFromFEN(fen string) (*Chess, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" || fen == "startpos" {
		return NewChess(), nil
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshot, err)
	}
	return &Chess{game: nchess.NewGame(opt)}, nil
}

func (c *Chess) WhoseTurn() domain.Side {
	return sideOf(c.game.Position().Turn())
}

// IsLegal reports whether side may play m now. A pawn reaching the last rank
// without a promotion letter is treated as promoting to a queen.
func (c *Chess) IsLegal(m domain.Move, side domain.Side) bool {
	if c.game.Outcome() != nchess.NoOutcome || side != c.WhoseTurn() {
		return false
	}
	uci := c.uciFor(m)
	for _, mv := range c.game.ValidMoves() {
		if mv.String() == uci {
			return true
		}
	}
	return false
}

func (c *Chess) Apply(m domain.Move, side domain.Side) error {
	if side != c.WhoseTurn() {
		return fmt.Errorf("%w: %s to move, got %s", ErrWrongSide, c.WhoseTurn(), side)
	}
	if !c.IsLegal(m, side) {
		return fmt.Errorf("%w: %s", ErrIllegal, m)
	}
	if err := c.game.PushNotationMove(c.uciFor(m), nchess.UCINotation{}, nil); err != nil {
		return fmt.Errorf("%w: %v", ErrIllegal, err)
	}
	return nil
}

func (c *Chess) IsCheckmate(side domain.Side) bool {
	return c.game.Method() == nchess.Checkmate && c.WhoseTurn() == side
}

func (c *Chess) IsStalemate(side domain.Side) bool {
	return c.game.Method() == nchess.Stalemate && c.WhoseTurn() == side
}

func (c *Chess) Outcome() Outcome {
	switch c.game.Outcome() {
	case nchess.NoOutcome:
		return Outcome{}
	case nchess.WhiteWon, nchess.BlackWon:
		winner := domain.First
		if c.game.Outcome() == nchess.BlackWon {
			winner = domain.Second
		}
		reason := Checkmate
		if c.game.Method() == nchess.Resignation {
			reason = Resignation
		}
		return Outcome{Reason: reason, Winner: winner, Loser: winner.Opponent()}
	default:
		if c.game.Method() == nchess.Stalemate {
			return Outcome{Reason: Stalemate, Loser: c.WhoseTurn()}
		}
		return Outcome{Reason: Draw, Detail: drawDetail(c.game.Method())}
	}
}

func drawDetail(m nchess.Method) string {
	switch m {
	case nchess.InsufficientMaterial:
		return "insufficient material"
	case nchess.FivefoldRepetition:
		return "fivefold repetition"
	case nchess.SeventyFiveMoveRule:
		return "seventy-five move rule"
	case nchess.ThreefoldRepetition:
		return "threefold repetition"
	case nchess.FiftyMoveRule:
		return "fifty move rule"
	default:
		return ""
	}
}

func (c *Chess) Snapshot() string { return c.game.FEN() }

func (c *Chess) Board() Board {
	var b Board
	board := c.game.Position().Board()
	for file := nchess.FileA; file <= nchess.FileH; file++ {
		for rank := nchess.Rank1; rank <= nchess.Rank8; rank++ {
			p := board.Piece(nchess.NewSquare(file, rank))
			if p == nchess.NoPiece {
				continue
			}
			b[int(rank)][int(file)] = pieceLetter(p)
		}
	}
	return b
}

// ResolveSAN turns standard algebraic notation (Nf3, exd5, O-O) into a Move
// for the side to play.
func (c *Chess) ResolveSAN(san string) (domain.Move, error) {
	mv, err := nchess.AlgebraicNotation{}.Decode(c.game.Position(), strings.TrimSpace(san))
	if err != nil {
		return domain.Move{}, fmt.Errorf("%w: %v", ErrIllegal, err)
	}
	out, err := domain.ParseMove(mv.S1().String(), mv.S2().String())
	if err != nil {
		return domain.Move{}, err
	}
	if p := promoLetter(mv.Promo()); p != 0 {
		return out.WithPromotion(p)
	}
	return out, nil
}

// uciFor renders m in UCI, adding the implicit queen promotion.
func (c *Chess) uciFor(m domain.Move) string {
	return ImplicitPromotion(c.Board(), m).UCI()
}

func sideOf(c nchess.Color) domain.Side {
	switch c {
	case nchess.White:
		return domain.First
	case nchess.Black:
		return domain.Second
	default:
		return domain.NoSide
	}
}

func pieceLetter(p nchess.Piece) byte {
	var l byte
	switch p.Type() {
	case nchess.King:
		l = 'k'
	case nchess.Queen:
		l = 'q'
	case nchess.Rook:
		l = 'r'
	case nchess.Bishop:
		l = 'b'
	case nchess.Knight:
		l = 'n'
	case nchess.Pawn:
		l = 'p'
	default:
		return 0
	}
	if p.Color() == nchess.White {
		l -= 'a' - 'A'
	}
	return l
}

func promoLetter(pt nchess.PieceType) byte {
	switch pt {
	case nchess.Queen:
		return 'q'
	case nchess.Rook:
		return 'r'
	case nchess.Bishop:
		return 'b'
	case nchess.Knight:
		return 'n'
	default:
		return 0
	}
}
