package boardimg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/park285/cheese-duel/internal/domain"
	"github.com/park285/cheese-duel/internal/obslog"
	"github.com/park285/cheese-duel/internal/session"
	"github.com/park285/cheese-duel/internal/turn"
)

// Exporter writes one PNG per applied ply into Dir.
type Exporter struct {
	Dir string
	Log *zap.Logger
}

func NewExporter(dir string) *Exporter {
	return &Exporter{Dir: dir, Log: obslog.L()}
}

var _ session.PlyObserver = (*Exporter)(nil)

func (e *Exporter) ObservePly(ctx context.Context, a turn.Applied, v session.View) error {
	opts := Options{
		Highlight: &Highlight{From: a.Move.From, To: a.Move.To, Side: a.Side},
		Header:    fmt.Sprintf("Ply %d  %s", a.Ply, a.Move.UCI()),
		Turn:      fmt.Sprintf("%s to move", v.ToMove),
		Flip:      v.Local == domain.Second,
	}
	if a.Outcome.Over() {
		opts.Turn = a.Outcome.String()
	}
	data, err := RenderPNG(ctx, a.Board, opts)
	if err != nil {
		return err
	}
	path := e.Path(v.SessionID, a.Ply)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create board dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write board png: %w", err)
	}
	if e.Log != nil {
		e.Log.Debug("duel_board_png", zap.String("path", path), zap.Int("ply", a.Ply))
	}
	return nil
}

// Path is where the image for ply is written.
func (e *Exporter) Path(sessionID string, ply int) string {
	prefix := sessionID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	if prefix == "" {
		prefix = "duel"
	}
	return filepath.Join(e.Dir, fmt.Sprintf("%s-ply%03d.png", prefix, ply))
}
