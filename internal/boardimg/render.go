// Package boardimg draws a board position to PNG.
package boardimg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"math"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/cheese-duel/internal/domain"
	"github.com/park285/cheese-duel/internal/rules"
)

// Highlight marks the last move. Side decides the style: white moves get
// square overlays, black moves an arrow.
type Highlight struct {
	From domain.Square
	To   domain.Square
	Side domain.Side
}

type Options struct {
	Highlight *Highlight
	Header    string
	Turn      string
	// Flip draws the board from black's side.
	Flip bool
}

const (
	squareSize   = 64
	boardSize    = squareSize * 8
	sideMargin   = 32
	topMargin    = 72
	bottomMargin = 32
	panelHeight  = 26
	panelRadius  = 8
)

var (
	lightSquare        = color.RGBA{233, 207, 163, 255}
	darkSquare         = color.RGBA{187, 136, 96, 255}
	backgroundColor    = color.RGBA{20, 22, 33, 255}
	whiteMoveFill      = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	blackMoveArrow     = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	hudPanelColor      = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	hudTextPrimary     = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	coordinateTextColr = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

// RenderPNG encodes b as a PNG image.
func RenderPNG(ctx context.Context, b rules.Board, opts Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	width := boardSize + sideMargin*2
	height := boardSize + topMargin + bottomMargin
	origin := image.Point{X: sideMargin, Y: topMargin}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawHUD(img, opts, origin)
	drawSquares(img, origin)
	if opts.Highlight != nil && opts.Highlight.Side == domain.First {
		drawSquareOverlay(img, opts.Highlight.From, origin, opts.Flip, whiteMoveFill)
		drawSquareOverlay(img, opts.Highlight.To, origin, opts.Flip, whiteMoveFill)
	}
	if err := drawPieces(img, b, origin, opts.Flip); err != nil {
		return nil, err
	}
	if opts.Highlight != nil && opts.Highlight.Side != domain.First {
		drawArrow(img, opts.Highlight.From, opts.Highlight.To, origin, opts.Flip, blackMoveArrow)
	}
	drawCoordinates(img, origin, opts.Flip)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// cell maps board indexes to the on-screen column and row.
func cell(file, rank int, flip bool) (col, row int) {
	if flip {
		return 7 - file, rank
	}
	return file, 7 - rank
}

func squareRect(sq domain.Square, origin image.Point, flip bool) image.Rectangle {
	col, row := cell(sq.FileIndex(), sq.RankIndex(), flip)
	x := origin.X + col*squareSize
	y := origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func drawSquares(dst *image.RGBA, origin image.Point) {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			clr := lightSquare
			if (row+col)%2 == 1 {
				clr = darkSquare
			}
			x := origin.X + col*squareSize
			y := origin.Y + row*squareSize
			imagedraw.Draw(dst, image.Rect(x, y, x+squareSize, y+squareSize), image.NewUniform(clr), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(dst *image.RGBA, b rules.Board, origin image.Point, flip bool) error {
	for rank := 0; rank < 8; rank++ {
		for file := 0; file < 8; file++ {
			p := b[rank][file]
			if p == 0 {
				continue
			}
			pimg, err := renderPieceImage(p, squareSize)
			if err != nil {
				return err
			}
			col, row := cell(file, rank, flip)
			x := origin.X + col*squareSize
			y := origin.Y + row*squareSize
			imagedraw.Draw(dst, image.Rect(x, y, x+squareSize, y+squareSize), pimg, image.Point{}, imagedraw.Over)
		}
	}
	return nil
}

func drawSquareOverlay(img *image.RGBA, sq domain.Square, origin image.Point, flip bool, clr color.Color) {
	if sq.IsZero() {
		return
	}
	imagedraw.Draw(img, squareRect(sq, origin, flip), image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawHUD(img *image.RGBA, opts Options, origin image.Point) {
	drawer := &font.Drawer{Dst: img, Face: basicfont.Face7x13}
	header := strings.TrimSpace(opts.Header)
	if header == "" {
		header = "Cheese Duel"
	}
	turn := strings.TrimSpace(opts.Turn)

	top := origin.Y - panelHeight - 14
	left := image.Rect(origin.X, top, origin.X+boardSize/2-6, top+panelHeight)
	drawRoundedPanel(img, left, panelRadius, hudPanelColor)
	drawCenteredString(drawer, left, header, hudTextPrimary)
	if turn != "" {
		right := image.Rect(origin.X+boardSize/2+6, top, origin.X+boardSize, top+panelHeight)
		drawRoundedPanel(img, right, panelRadius, hudPanelColor)
		drawCenteredString(drawer, right, turn, hudTextPrimary)
	}
}

func drawCoordinates(img *image.RGBA, origin image.Point, flip bool) {
	drawer := &font.Drawer{Dst: img, Face: basicfont.Face7x13, Src: image.NewUniform(coordinateTextColr)}
	ascent := basicfont.Face7x13.Metrics().Ascent.Ceil()
	for i := 0; i < 8; i++ {
		col, row := cell(i, i, flip)
		file := string(rune('a' + i))
		rank := string(rune('1' + i))
		drawCenteredText(drawer, file, origin.X+col*squareSize+squareSize/2, origin.Y+boardSize+ascent+6)
		drawCenteredText(drawer, rank, origin.X-sideMargin/2, origin.Y+row*squareSize+squareSize/2+ascent/2)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := rect.Min.X + (rect.Dx()-width)/2
	if x < rect.Min.X {
		x = rect.Min.X
	}
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if rect.Empty() {
		return
	}
	if r := min(rect.Dx(), rect.Dy()) / 2; radius > r {
		radius = r
	}
	fill := image.NewUniform(clr)
	imagedraw.Draw(img, image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	for _, c := range []image.Point{
		{rect.Min.X + radius, rect.Min.Y + radius},
		{rect.Max.X - radius - 1, rect.Min.Y + radius},
		{rect.Min.X + radius, rect.Max.Y - radius - 1},
		{rect.Max.X - radius - 1, rect.Max.Y - radius - 1},
	} {
		drawQuarterDisc(img, c, radius, rect, clr)
	}
}

// drawQuarterDisc fills the part of a disc that falls in a panel corner.
func drawQuarterDisc(img *image.RGBA, center image.Point, radius int, bounds image.Rectangle, clr color.Color) {
	rr := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			p := image.Pt(center.X+x, center.Y+y)
			if x*x+y*y > rr || !p.In(bounds) {
				continue
			}
			inCore := p.X >= bounds.Min.X+radius && p.X < bounds.Max.X-radius
			inSide := p.Y >= bounds.Min.Y+radius && p.Y < bounds.Max.Y-radius
			if inCore || inSide {
				continue
			}
			blendPixel(img, p.X, p.Y, clr)
		}
	}
}

type pointF struct{ X, Y float64 }

func drawArrow(img *image.RGBA, from, to domain.Square, origin image.Point, flip bool, clr color.Color) {
	if from.IsZero() || to.IsZero() || from == to {
		return
	}
	a, b := squareRect(from, origin, flip), squareRect(to, origin, flip)
	sx, sy := float64(a.Min.X+squareSize/2), float64(a.Min.Y+squareSize/2)
	ex, ey := float64(b.Min.X+squareSize/2), float64(b.Min.Y+squareSize/2)

	dx, dy := ex-sx, ey-sy
	length := math.Hypot(dx, dy)
	dirX, dirY := dx/length, dy/length
	perpX, perpY := -dirY, dirX

	baseLength := length - float64(squareSize)*0.45
	if baseLength < float64(squareSize)*0.35 {
		baseLength = length * 0.6
	}
	half := float64(squareSize) * 0.18
	head := float64(squareSize) * 0.32
	bx, by := sx+dirX*baseLength, sy+dirY*baseLength

	fillTriangle(img,
		pointF{sx - perpX*half, sy - perpY*half},
		pointF{sx + perpX*half, sy + perpY*half},
		pointF{bx + perpX*half, by + perpY*half}, clr)
	fillTriangle(img,
		pointF{sx - perpX*half, sy - perpY*half},
		pointF{bx + perpX*half, by + perpY*half},
		pointF{bx - perpX*half, by - perpY*half}, clr)
	fillTriangle(img,
		pointF{ex, ey},
		pointF{bx - perpX*head/2, by - perpY*head/2},
		pointF{bx + perpX*head/2, by + perpY*head/2}, clr)
}

func fillTriangle(img *image.RGBA, a, b, c pointF, clr color.Color) {
	minX := int(math.Floor(math.Min(a.X, math.Min(b.X, c.X))))
	maxX := int(math.Ceil(math.Max(a.X, math.Max(b.X, c.X))))
	minY := int(math.Floor(math.Min(a.Y, math.Min(b.Y, c.Y))))
	maxY := int(math.Ceil(math.Max(a.Y, math.Max(b.Y, c.Y))))
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if inTriangle(float64(x)+0.5, float64(y)+0.5, a, b, c) {
				blendPixel(img, x, y, clr)
			}
		}
	}
}

func inTriangle(x, y float64, a, b, c pointF) bool {
	denom := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if denom == 0 {
		return false
	}
	alpha := ((b.Y-c.Y)*(x-c.X) + (c.X-b.X)*(y-c.Y)) / denom
	beta := ((c.Y-a.Y)*(x-c.X) + (a.X-c.X)*(y-c.Y)) / denom
	return alpha >= 0 && beta >= 0 && 1-alpha-beta >= 0
}

// blendPixel composites clr over the pixel at (x, y).
func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	sr, sg, sb, sa := clr.RGBA()
	if sa == 0 {
		return
	}
	d := img.RGBAAt(x, y)
	inv := 65535 - sa
	img.SetRGBA(x, y, color.RGBA{
		R: uint8((sr + uint32(d.R)*0x101*inv/65535) >> 8),
		G: uint8((sg + uint32(d.G)*0x101*inv/65535) >> 8),
		B: uint8((sb + uint32(d.B)*0x101*inv/65535) >> 8),
		A: uint8((sa + uint32(d.A)*0x101*inv/65535) >> 8),
	})
}
