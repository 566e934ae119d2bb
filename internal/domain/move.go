package domain

import (
	"fmt"
	"strings"
)

// Move is an ordered (from, to) pair of distinct squares.
//
// Piece is an optional notation hint ('N', 'B', ...) left over from input parsing;
// it is never transmitted and is ignored by Equal. Promotion is one of q, r, b, n
// or zero.
type Move struct {
	From      Square
	To        Square
	Piece     byte
	Promotion byte
}

// NewMove builds a Move and enforces from != to.
func NewMove(from, to Square) (Move, error) {
	if from.IsZero() || to.IsZero() {
		return Move{}, ErrInvalidSquare
	}
	if from == to {
		return Move{}, fmt.Errorf("%w: %s", ErrSameSquare, from)
	}
	return Move{From: from, To: to}, nil
}

// ParseMove builds a Move from two square tokens.
func ParseMove(from, to string) (Move, error) {
	f, err := ParseSquare(from)
	if err != nil {
		return Move{}, err
	}
	t, err := ParseSquare(to)
	if err != nil {
		return Move{}, err
	}
	return NewMove(f, t)
}

// WithPromotion returns a copy carrying the promotion piece.
func (m Move) WithPromotion(p byte) (Move, error) {
	if p == 0 {
		m.Promotion = 0
		return m, nil
	}
	p = lowerPiece(p)
	if !strings.ContainsRune("qrbn", rune(p)) {
		return Move{}, fmt.Errorf("%w: %q", ErrInvalidPromo, string(p))
	}
	m.Promotion = p
	return m, nil
}

// WithPiece returns a copy carrying the disambiguation hint.
func (m Move) WithPiece(p byte) Move {
	m.Piece = p
	return m
}

// Equal compares the semantic parts of two moves.
func (m Move) Equal(o Move) bool {
	return m.From == o.From && m.To == o.To && m.Promotion == o.Promotion
}

// UCI renders the move in long algebraic form: e2e4, e7e8q.
func (m Move) UCI() string {
	s := m.From.String() + m.To.String()
	if m.Promotion != 0 {
		s += string(m.Promotion)
	}
	return s
}

func (m Move) String() string {
	if m.Promotion != 0 {
		return fmt.Sprintf("%s-%s=%c", m.From, m.To, m.Promotion-('a'-'A'))
	}
	return fmt.Sprintf("%s-%s", m.From, m.To)
}

func lowerPiece(p byte) byte {
	if p >= 'A' && p <= 'Z' {
		return p + ('a' - 'A')
	}
	return p
}
