package domain

import (
	"errors"
	"testing"
)

func TestParseSquare(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"e2", "e2", true},
		{"E2", "e2", true},
		{" h8 ", "h8", true},
		{"a1", "a1", true},
		{"i1", "", false},
		{"a9", "", false},
		{"a0", "", false},
		{"e", "", false},
		{"e22", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		sq, err := ParseSquare(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("ParseSquare(%q): %v", tc.in, err)
			}
			if sq.String() != tc.want {
				t.Fatalf("ParseSquare(%q) = %s, want %s", tc.in, sq, tc.want)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidSquare) {
			t.Fatalf("ParseSquare(%q): expected ErrInvalidSquare, got %v", tc.in, err)
		}
	}
}

func TestNewMoveRejectsSameSquare(t *testing.T) {
	if _, err := ParseMove("e2", "e2"); !errors.Is(err, ErrSameSquare) {
		t.Fatalf("expected ErrSameSquare, got %v", err)
	}
	if _, err := NewMove(Square{}, MustSquare("e4")); !errors.Is(err, ErrInvalidSquare) {
		t.Fatalf("expected ErrInvalidSquare for zero square, got %v", err)
	}
}

func TestMoveEqualIgnoresPieceHint(t *testing.T) {
	m, err := ParseMove("b1", "c3")
	if err != nil {
		t.Fatalf("ParseMove: %v", err)
	}
	if !m.Equal(m.WithPiece('N')) {
		t.Fatalf("piece hint must not affect equality")
	}
	p, err := m.WithPromotion('Q')
	if err != nil {
		t.Fatalf("WithPromotion: %v", err)
	}
	if m.Equal(p) {
		t.Fatalf("promotion must affect equality")
	}
	if p.UCI() != "b1c3q" {
		t.Fatalf("UCI = %s", p.UCI())
	}
	if _, err := m.WithPromotion('k'); !errors.Is(err, ErrInvalidPromo) {
		t.Fatalf("expected ErrInvalidPromo, got %v", err)
	}
}

func TestSideForPly(t *testing.T) {
	for ply := 1; ply <= 10; ply++ {
		want := First
		if ply%2 == 0 {
			want = Second
		}
		if got := SideForPly(ply); got != want {
			t.Fatalf("SideForPly(%d) = %s, want %s", ply, got, want)
		}
	}
	if First.Opponent() != Second || Second.Opponent() != First {
		t.Fatalf("Opponent mismatch")
	}
}

func TestColorChoiceResolve(t *testing.T) {
	if ParseColorChoice("w").Resolve() != First {
		t.Fatalf("white should resolve to First")
	}
	if ParseColorChoice("BLACK").Resolve() != Second {
		t.Fatalf("black should resolve to Second")
	}
	for i := 0; i < 16; i++ {
		if s := ColorRandom.Resolve(); !s.Valid() {
			t.Fatalf("random resolved to invalid side %v", s)
		}
	}
}
