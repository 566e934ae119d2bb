package notation

import (
	"errors"
	"testing"

	"github.com/park285/cheese-duel/internal/domain"
	"github.com/park285/cheese-duel/internal/rules"
)

func TestParseForms(t *testing.T) {
	cases := []struct {
		in    string
		side  domain.Side
		want  string
		piece byte
	}{
		{"e2 e4", domain.First, "e2e4", 0},
		{"  e2-e4 ", domain.First, "e2e4", 0},
		{"E2 E4", domain.First, "e2e4", 0},
		{"Nb1 Nc3", domain.First, "b1c3", 'N'},
		{"Ng1-f3", domain.First, "g1f3", 'N'},
		{"e2e4", domain.First, "e2e4", 0},
		{"e7e8q", domain.First, "e7e8q", 0},
		{"e7 e8=Q", domain.First, "e7e8q", 0},
		{"e7 e8n", domain.First, "e7e8n", 0},
		{"d4 xe5", domain.First, "d4e5", 0},
		{"O-O", domain.First, "e1g1", 'K'},
		{"O-O-O", domain.First, "e1c1", 'K'},
		{"0-0", domain.Second, "e8g8", 'K'},
		{"o-o-o", domain.Second, "e8c8", 'K'},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in, tc.side)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.in, err)
		}
		if got.UCI() != tc.want || got.Piece != tc.piece {
			t.Fatalf("Parse(%q) = %s piece %q, want %s piece %q", tc.in, got.UCI(), got.Piece, tc.want, tc.piece)
		}
	}
}

func TestParseRejects(t *testing.T) {
	for _, in := range []string{"", "   ", "hello", "e2", "e2 e2", "e2 e9", "i2 e4", "e2 e4 e5", "e7 e8=K", "O-O-O-O"} {
		_, err := Parse(in, domain.First)
		if !errors.Is(err, ErrNotAMove) {
			t.Fatalf("Parse(%q): expected ErrNotAMove, got %v", in, err)
		}
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("Parse(%q): expected *ParseError, got %T", in, err)
		}
	}
	_, err := Parse("e2 e2", domain.First)
	if !errors.Is(err, domain.ErrSameSquare) {
		t.Fatalf("same-square input should keep the domain cause, got %v", err)
	}
}

func TestCastlingNeedsSide(t *testing.T) {
	if _, err := Parse("O-O", domain.NoSide); !errors.Is(err, ErrNotAMove) {
		t.Fatalf("expected ErrNotAMove, got %v", err)
	}
}

func TestSANWithResolver(t *testing.T) {
	p := Parser{Side: domain.First, SAN: rules.NewChess()}
	got, err := p.Parse("Nf3")
	if err != nil {
		t.Fatalf("Parse(Nf3): %v", err)
	}
	if got.UCI() != "g1f3" {
		t.Fatalf("Nf3 = %s", got.UCI())
	}
	if _, err := p.Parse("Nf6"); !errors.Is(err, ErrNotAMove) {
		t.Fatalf("Nf6 is not white's move, got %v", err)
	}
	if _, err := (Parser{Side: domain.First}).Parse("Nf3"); !errors.Is(err, ErrNotAMove) {
		t.Fatalf("SAN without resolver should be rejected, got %v", err)
	}
}

func TestParseInputCommands(t *testing.T) {
	p := Parser{Side: domain.First}
	for line, want := range map[string]Kind{"resign": KindResign, " Board ": KindBoard, "help": KindHelp, "?": KindHelp} {
		in, err := p.ParseInput(line)
		if err != nil || in.Kind != want {
			t.Fatalf("ParseInput(%q) = %+v, %v", line, in, err)
		}
	}
	in, err := p.ParseInput("e2 e4")
	if err != nil || in.Kind != KindMove || in.Move.UCI() != "e2e4" {
		t.Fatalf("ParseInput(move) = %+v, %v", in, err)
	}
}
