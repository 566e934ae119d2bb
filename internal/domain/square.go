package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidSquare = errors.New("invalid square")
	ErrSameSquare    = errors.New("origin and destination are the same square")
	ErrInvalidPromo  = errors.New("invalid promotion piece")
)

// Square is one cell of the 8x8 board, file a-h and rank 1-8.
// The zero value is not a valid square.
type Square struct {
	file byte
	rank byte
}

// NewSquare validates file ('a'..'h', either case) and rank ('1'..'8').
func NewSquare(file, rank byte) (Square, error) {
	if file >= 'A' && file <= 'H' {
		file += 'a' - 'A'
	}
	if file < 'a' || file > 'h' || rank < '1' || rank > '8' {
		return Square{}, fmt.Errorf("%w: %q", ErrInvalidSquare, string([]byte{file, rank}))
	}
	return Square{file: file, rank: rank}, nil
}

// ParseSquare parses a 2-character token such as "e4".
func ParseSquare(s string) (Square, error) {
	t := strings.TrimSpace(s)
	if len(t) != 2 {
		return Square{}, fmt.Errorf("%w: %q", ErrInvalidSquare, s)
	}
	return NewSquare(t[0], t[1])
}

// MustSquare is ParseSquare for literals in tests and tables.
func MustSquare(s string) Square {
	sq, err := ParseSquare(s)
	if err != nil {
		panic(err)
	}
	return sq
}

func (s Square) File() byte { return s.file }
func (s Square) Rank() byte { return s.rank }

// FileIndex is 0 for the a-file.
func (s Square) FileIndex() int { return int(s.file - 'a') }

// RankIndex is 0 for the first rank.
func (s Square) RankIndex() int { return int(s.rank - '1') }

func (s Square) IsZero() bool { return s.file == 0 && s.rank == 0 }

func (s Square) String() string {
	if s.IsZero() {
		return "-"
	}
	return string([]byte{s.file, s.rank})
}
