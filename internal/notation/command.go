package notation

import (
	"strings"

	"github.com/park285/cheese-duel/internal/domain"
)

// Kind separates moves from the few console commands.
type Kind int

const (
	KindMove Kind = iota
	KindResign
	KindBoard
	KindHelp
)

// Input is one parsed console line.
type Input struct {
	Kind Kind
	Move domain.Move
}

var commands = map[string]Kind{
	"resign": KindResign,
	"board":  KindBoard,
	"help":   KindHelp,
	"?":      KindHelp,
}

// ParseInput recognises commands first, then moves.
func (p Parser) ParseInput(line string) (Input, error) {
	if k, ok := commands[strings.ToLower(strings.TrimSpace(line))]; ok {
		return Input{Kind: k}, nil
	}
	mv, err := p.Parse(line)
	if err != nil {
		return Input{}, err
	}
	return Input{Kind: KindMove, Move: mv}, nil
}
