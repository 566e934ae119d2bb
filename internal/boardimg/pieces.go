package boardimg

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Piece outlines on a 45x45 canvas, one SVG body per piece letter.
var pieceBodies = map[byte]string{
	'p': `<circle cx="22.5" cy="13" r="5.5"/>
<path d="M16 35 L18.5 21 L26.5 21 L29 35 Z"/>
<rect x="12" y="35" width="21" height="4"/>`,
	'r': `<path d="M11 9 L15 9 L15 12 L20 12 L20 9 L25 9 L25 12 L30 12 L30 9 L34 9 L34 16 L31 18 L31 32 L14 32 L14 18 L11 16 Z"/>
<rect x="9" y="33" width="27" height="5"/>`,
	'n': `<path d="M14 38 L15 28 C14 22 17 17 21 14 L20 8 L24 12 C30 12 34 18 33 27 L32 38 Z"/>
<path d="M21 14 L11 24 L13 28 L19 25 Z"/>`,
	'b': `<ellipse cx="22.5" cy="22" rx="7" ry="10"/>
<circle cx="22.5" cy="9" r="2.5"/>
<rect x="12" y="33" width="21" height="5"/>`,
	'q': `<path d="M9 14 L14 30 L31 30 L36 14 L29 24 L22.5 11 L16 24 Z"/>
<circle cx="9" cy="12" r="2.5"/>
<circle cx="22.5" cy="9" r="2.5"/>
<circle cx="36" cy="12" r="2.5"/>
<rect x="12" y="31" width="21" height="6"/>`,
	'k': `<path d="M21 4 L24 4 L24 8 L28 8 L28 11 L24 11 L24 15 L21 15 L21 11 L17 11 L17 8 L21 8 Z"/>
<path d="M12 20 C12 14 33 14 33 20 L30 32 L15 32 Z"/>
<rect x="12" y="32" width="21" height="6"/>`,
}

const pieceSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="45" height="45" viewBox="0 0 45 45">
<g fill="%s" stroke="%s" stroke-width="1.5" stroke-linejoin="round">
%s
</g>
</svg>`

type pieceCacheKey struct {
	piece byte
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

// pieceSource returns the SVG document for a piece letter (uppercase white).
func pieceSource(piece byte) (string, error) {
	lower := piece
	fill, stroke := "#f8f8f8", "#1b1b1b"
	if piece >= 'a' && piece <= 'z' {
		fill, stroke = "#2a2a2a", "#000000"
	} else {
		lower = piece + ('a' - 'A')
	}
	body, ok := pieceBodies[lower]
	if !ok {
		return "", fmt.Errorf("unknown piece %q", string(piece))
	}
	return fmt.Sprintf(pieceSVG, fill, stroke, body), nil
}

func renderPieceImage(piece byte, size int) (image.Image, error) {
	key := pieceCacheKey{piece: piece, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	src, err := pieceSource(piece)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()
	return img, nil
}
