// Package notation turns what a player types into a validated Move.
//
// Accepted forms:
//
//	e2 e4    e2-e4    Ng1 f3    Ng1-f3    e7 e8=Q
//	e2e4     e7e8q
//	O-O      O-O-O    0-0       0-0-0
//	Nf3      exd5     (standard algebraic, needs a SANResolver)
package notation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/park285/cheese-duel/internal/domain"
)

// ErrNotAMove matches every *ParseError.
var ErrNotAMove = errors.New("not a move")

// ParseError explains why an input line was not understood.
type ParseError struct {
	Input  string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%q: %s: %v", e.Input, e.Reason, e.Err)
	}
	return fmt.Sprintf("%q: %s", e.Input, e.Reason)
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrNotAMove}
	}
	return []error{ErrNotAMove, e.Err}
}

// SANResolver resolves standard algebraic notation against the live position.
type SANResolver interface {
	ResolveSAN(san string) (domain.Move, error)
}

// Parser is bound to the side the player controls, which castling needs.
type Parser struct {
	Side domain.Side
	SAN  SANResolver
}

// Parse is shorthand for a Parser without SAN support.
func Parse(input string, side domain.Side) (domain.Move, error) {
	return Parser{Side: side}.Parse(input)
}

func (p Parser) Parse(input string) (domain.Move, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return domain.Move{}, &ParseError{Input: input, Reason: "empty input"}
	}
	if mv, ok, err := p.castle(s); ok {
		return mv, err
	}

	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '-' || r == ','
	})
	switch len(tokens) {
	case 2:
		return p.twoSquares(input, tokens[0], tokens[1])
	case 1:
		if mv, ok := compact(tokens[0]); ok {
			return mv, nil
		}
		if p.SAN != nil {
			mv, err := p.SAN.ResolveSAN(tokens[0])
			if err != nil {
				return domain.Move{}, &ParseError{Input: input, Reason: "not playable here", Err: err}
			}
			return mv, nil
		}
		return domain.Move{}, &ParseError{Input: input, Reason: "expected two squares such as e2 e4"}
	default:
		return domain.Move{}, &ParseError{Input: input, Reason: "expected two squares such as e2 e4"}
	}
}

func (p Parser) castle(s string) (domain.Move, bool, error) {
	t := strings.ToUpper(strings.TrimRight(s, "+#"))
	t = strings.ReplaceAll(t, "0", "O")
	var kingTo byte
	switch t {
	case "O-O":
		kingTo = 'g'
	case "O-O-O":
		kingTo = 'c'
	default:
		return domain.Move{}, false, nil
	}
	rank := byte('1')
	switch p.Side {
	case domain.First:
	case domain.Second:
		rank = '8'
	default:
		return domain.Move{}, true, &ParseError{Input: s, Reason: "castling needs to know which side you play"}
	}
	from, _ := domain.NewSquare('e', rank)
	to, _ := domain.NewSquare(kingTo, rank)
	mv, _ := domain.NewMove(from, to)
	return mv.WithPiece('K'), true, nil
}

func (p Parser) twoSquares(input, a, b string) (domain.Move, error) {
	piece, a := splitPiece(a)
	_, b = splitPiece(strings.TrimPrefix(b, "x"))
	b = strings.TrimRight(b, "+#")

	var promo byte
	if i := strings.IndexByte(b, '='); i >= 0 {
		if i != len(b)-2 {
			return domain.Move{}, &ParseError{Input: input, Reason: "promotion must be one letter"}
		}
		promo, b = b[i+1], b[:i]
	} else if len(b) == 3 && isPromoLetter(b[2]) {
		promo, b = b[2], b[:2]
	}

	mv, err := domain.ParseMove(a, b)
	if err != nil {
		return domain.Move{}, &ParseError{Input: input, Reason: "bad square", Err: err}
	}
	if promo != 0 {
		if mv, err = mv.WithPromotion(promo); err != nil {
			return domain.Move{}, &ParseError{Input: input, Reason: "bad promotion", Err: err}
		}
	}
	if piece != 0 {
		mv = mv.WithPiece(piece)
	}
	return mv, nil
}

// splitPiece strips an uppercase piece letter in front of a square: Nb1 -> N, b1.
func splitPiece(tok string) (byte, string) {
	if len(tok) == 3 && strings.IndexByte("KQRBNP", tok[0]) >= 0 {
		return tok[0], tok[1:]
	}
	return 0, tok
}

// compact parses the UCI form e2e4 / e7e8q.
func compact(tok string) (domain.Move, bool) {
	if len(tok) != 4 && len(tok) != 5 {
		return domain.Move{}, false
	}
	mv, err := domain.ParseMove(tok[:2], tok[2:4])
	if err != nil {
		return domain.Move{}, false
	}
	if len(tok) == 5 {
		if mv, err = mv.WithPromotion(tok[4]); err != nil {
			return domain.Move{}, false
		}
	}
	return mv, true
}

func isPromoLetter(c byte) bool {
	return strings.IndexByte("qrbnQRBN", c) >= 0
}
