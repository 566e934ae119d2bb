package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Side identifies a player. First moves on odd plies (white), Second on even plies (black).
type Side int

const (
	NoSide Side = iota
	First
	Second
)

// SideForPly derives the side to move from a 1-based ply counter.
func SideForPly(ply int) Side {
	if ply%2 == 1 {
		return First
	}
	return Second
}

func (s Side) Opponent() Side {
	switch s {
	case First:
		return Second
	case Second:
		return First
	default:
		return NoSide
	}
}

func (s Side) Valid() bool { return s == First || s == Second }

// String uses the chess colour names; they are also the wire tokens.
func (s Side) String() string {
	switch s {
	case First:
		return "white"
	case Second:
		return "black"
	default:
		return "none"
	}
}

// ParseSide accepts the wire tokens and their one-letter forms.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w", "first":
		return First, nil
	case "black", "b", "second":
		return Second, nil
	default:
		return NoSide, fmt.Errorf("unknown side %q", s)
	}
}

// ColorChoice is the host's preference for the side it controls.
type ColorChoice string

const (
	ColorWhite  ColorChoice = "white"
	ColorBlack  ColorChoice = "black"
	ColorRandom ColorChoice = "random"
)

func ParseColorChoice(s string) ColorChoice {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "white", "w":
		return ColorWhite
	case "black", "b":
		return ColorBlack
	default:
		return ColorRandom
	}
}

// Resolve turns the preference into a concrete side. Random uses crypto/rand.
func (c ColorChoice) Resolve() Side {
	switch c {
	case ColorWhite:
		return First
	case ColorBlack:
		return Second
	default:
		if n, err := rand.Int(rand.Reader, big.NewInt(2)); err == nil && n.Int64() == 0 {
			return Second
		}
		return First
	}
}
