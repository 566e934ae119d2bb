package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pterm/pterm"

	"github.com/park285/cheese-duel/internal/msgcat"
	"github.com/park285/cheese-duel/internal/notation"
	"github.com/park285/cheese-duel/internal/rules"
	"github.com/park285/cheese-duel/internal/session"
)

type line struct {
	text string
	err  error
}

// LineInput reads one command per line. A single reader goroutine feeds the
// lines so Next can give up on ctx without losing input.
type LineInput struct {
	In   io.Reader
	Out  io.Writer
	Msgs *msgcat.Catalog

	once  sync.Once
	lines chan line
}

func NewLineInput(msgs *msgcat.Catalog) *LineInput {
	return &LineInput{In: os.Stdin, Out: os.Stdout, Msgs: msgs}
}

var _ session.Input = (*LineInput)(nil)

func (in *LineInput) start() {
	in.lines = make(chan line)
	go func() {
		sc := bufio.NewScanner(in.In)
		for sc.Scan() {
			in.lines <- line{text: sc.Text()}
		}
		err := sc.Err()
		if err == nil {
			err = io.EOF
		}
		in.lines <- line{err: err}
		close(in.lines)
	}()
}

func (in *LineInput) Next(ctx context.Context, v session.View) (notation.Input, error) {
	in.once.Do(in.start)
	fmt.Fprint(in.Out, pterm.LightCyan(in.Msgs.Text("turn.prompt", map[string]any{"Side": v.ToMove, "Ply": v.Ply})))

	var l line
	select {
	case <-ctx.Done():
		return notation.Input{}, ctx.Err()
	case got, ok := <-in.lines:
		if !ok {
			return notation.Input{}, io.EOF
		}
		l = got
	}
	if l.err != nil {
		return notation.Input{}, l.err
	}

	p := notation.Parser{Side: v.Local}
	if eng, err := rules.ChessFromFEN(v.Snapshot); err == nil {
		p.SAN = eng
	}
	return p.ParseInput(l.text)
}
