// Package console is the terminal front end: board drawing, prompts and the
// start menu.
package console

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"

	"github.com/park285/cheese-duel/internal/domain"
	"github.com/park285/cheese-duel/internal/msgcat"
	"github.com/park285/cheese-duel/internal/notation"
	"github.com/park285/cheese-duel/internal/rules"
	"github.com/park285/cheese-duel/internal/session"
	"github.com/park285/cheese-duel/internal/transport"
	"github.com/park285/cheese-duel/internal/turn"
)

// Renderer draws the game with pterm onto Out.
type Renderer struct {
	Out  io.Writer
	Msgs *msgcat.Catalog
}

func NewRenderer(msgs *msgcat.Catalog) *Renderer {
	return &Renderer{Out: os.Stdout, Msgs: msgs}
}

var _ session.Renderer = (*Renderer)(nil)

func (r *Renderer) Render(v session.View) {
	last := ""
	if v.Last != nil {
		last = v.Last.String()
	}
	header := r.Msgs.Text("board.header", map[string]any{"Ply": v.Ply, "Side": v.Local, "Last": last})
	box := pterm.DefaultBox.WithHorizontalPadding(2).
		WithTitle(pterm.LightYellow(header)).WithTitleTopCenter()
	fmt.Fprintln(r.Out, box.Sprint(boardText(v.Board, v.Local == domain.Second)))
	if v.Last != nil {
		key := "turn.remote"
		if v.LastSide == v.Local {
			key = "turn.local"
		}
		fmt.Fprint(r.Out, pterm.Info.Sprintln(r.Msgs.Text(key, map[string]any{"Move": v.Last.String()})))
	}
}

func (r *Renderer) Reject(err error) {
	var msg string
	switch {
	case errors.Is(err, notation.ErrNotAMove):
		reason := err.Error()
		var pe *notation.ParseError
		if errors.As(err, &pe) {
			reason = pe.Reason
		}
		msg = r.Msgs.Text("reject.not_a_move", map[string]any{"Reason": reason})
	case errors.Is(err, turn.ErrNotYourTurn):
		msg = r.Msgs.Text("reject.not_your_turn", nil)
	case errors.Is(err, turn.ErrIllegalMove):
		mv := "?"
		var me *turn.MoveError
		if errors.As(err, &me) {
			mv = me.Move.String()
		}
		msg = r.Msgs.Text("reject.illegal", map[string]any{"Move": mv})
	default:
		msg = err.Error()
	}
	fmt.Fprint(r.Out, pterm.Error.Sprintln(msg))
}

func (r *Renderer) Waiting(v session.View) {
	fmt.Fprint(r.Out, pterm.Info.Sprintln(r.Msgs.Text("turn.waiting", map[string]any{"Side": v.ToMove})))
}

func (r *Renderer) Help() {
	fmt.Fprint(r.Out, pterm.Info.Sprint(r.Msgs.Text("help.text", nil)))
}

func (r *Renderer) Finished(res session.Result) {
	msg, ok := r.endMessage(res)
	if ok {
		fmt.Fprint(r.Out, pterm.Success.Sprintln(msg))
		return
	}
	fmt.Fprint(r.Out, pterm.Error.Sprintln(msg))
}

// endMessage picks the closing line; ok is false for aborted sessions.
func (r *Renderer) endMessage(res session.Result) (string, bool) {
	if res.State != turn.GameOver {
		if errors.Is(res.Cause, transport.ErrConnectionClosed) {
			return r.Msgs.Text("end.closed", nil), false
		}
		reason := "unknown"
		if res.Cause != nil {
			reason = res.Cause.Error()
		}
		return r.Msgs.Text("end.aborted", map[string]any{"Reason": reason}), false
	}
	o := res.Outcome
	data := map[string]any{"Winner": o.Winner, "Loser": o.Loser, "Detail": o.Detail}
	switch o.Reason {
	case rules.Checkmate:
		return r.Msgs.Text("end.checkmate", data), true
	case rules.Stalemate:
		return r.Msgs.Text("end.stalemate", data), true
	case rules.Resignation:
		if o.Loser == res.Local {
			return r.Msgs.Text("end.resign_local", data), true
		}
		return r.Msgs.Text("end.resign_remote", data), true
	default:
		return r.Msgs.Text("end.draw", data), true
	}
}

// boardText lays the board out rank by rank. flip puts black at the bottom.
func boardText(b rules.Board, flip bool) string {
	var sb strings.Builder
	files := "a b c d e f g h"
	for i := 0; i < 8; i++ {
		rank := 7 - i
		if flip {
			rank = i
		}
		fmt.Fprintf(&sb, "%d ", rank+1)
		for j := 0; j < 8; j++ {
			file := j
			if flip {
				file = 7 - j
			}
			sb.WriteString(pieceCell(b[rank][file], (rank+file)%2 == 0))
			if j < 7 {
				sb.WriteByte(' ')
			}
		}
		sb.WriteByte('\n')
	}
	if flip {
		files = "h g f e d c b a"
	}
	sb.WriteString("  " + files)
	return sb.String()
}

func pieceCell(p byte, dark bool) string {
	switch {
	case p == 0 && dark:
		return pterm.FgDarkGray.Sprint(".")
	case p == 0:
		return pterm.FgGray.Sprint(".")
	case rules.SideOf(p) == domain.First:
		return pterm.LightWhite(string(p))
	default:
		return pterm.LightRed(string(p))
	}
}
