package ui

import (
	"errors"
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"lumen/pkg/gpu"
	"lumen/pkg/scene"
)

// Glyph locates one rasterized character inside the atlas
type Glyph struct {
	// Atlas is the glyph rectangle in atlas pixels
	Atlas image.Rectangle
	// Offset is the top-left corner of the bitmap relative to the pen
	// position on the baseline
	Offset  mgl32.Vec2
	Advance float32
}

// Font is a single-channel glyph atlas
type Font struct {
	glyphs  map[rune]Glyph
	atlas   *scene.Texture
	height  float32
	ascent  float32
	width   int
	heightP int
}

// NewFont rasterizes runes from face into an atlas. Runes the face does not
// provide are skipped.
func NewFont(name string, face font.Face, runes []rune) (*Font, error) {
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	lineHeight := metrics.Height.Ceil()
	if lineHeight <= 0 {
		return nil, fmt.Errorf("font %s: invalid line height", name)
	}

	const atlasWidth = 256
	const padding = 1

	type placed struct {
		r       rune
		mask    image.Image
		maskp   image.Point
		bounds  image.Rectangle
		advance fixed.Int26_6
		dst     image.Rectangle
	}

	// Lay glyphs out in rows before allocating the atlas
	var items []placed
	x, y, rowHeight := padding, padding, 0
	for _, r := range runes {
		dr, mask, maskp, advance, ok := face.Glyph(fixed.P(0, ascent), r)
		if !ok {
			continue
		}
		w, h := dr.Dx(), dr.Dy()
		if x+w+padding > atlasWidth {
			x = padding
			y += rowHeight + padding
			rowHeight = 0
		}
		items = append(items, placed{
			r: r, mask: mask, maskp: maskp, bounds: dr, advance: advance,
			dst: image.Rect(x, y, x+w, y+h),
		})
		x += w + padding
		if h > rowHeight {
			rowHeight = h
		}
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("font %s: face has none of the requested glyphs", name)
	}

	atlasHeight := y + rowHeight + padding
	atlas := image.NewGray(image.Rect(0, 0, atlasWidth, atlasHeight))
	f := &Font{
		glyphs:  make(map[rune]Glyph, len(items)),
		height:  float32(lineHeight),
		ascent:  float32(ascent),
		width:   atlasWidth,
		heightP: atlasHeight,
	}
	for _, it := range items {
		draw.DrawMask(atlas, it.dst, image.White, image.Point{}, it.mask, it.maskp, draw.Over)
		f.glyphs[it.r] = Glyph{
			Atlas:   it.dst,
			Offset:  mgl32.Vec2{float32(it.bounds.Min.X), float32(it.bounds.Min.Y - ascent)},
			Advance: float32(it.advance) / 64,
		}
	}

	tex, err := scene.NewTexture(name, atlasWidth, atlasHeight, gpu.PixelR8, atlas.Pix)
	if err != nil {
		return nil, err
	}
	f.atlas = tex
	return f, nil
}

// ASCII returns the printable ASCII range
func ASCII() []rune {
	runes := make([]rune, 0, 95)
	for r := rune(32); r < 127; r++ {
		runes = append(runes, r)
	}
	return runes
}

// DefaultFont builds an ASCII atlas from the 7x13 bitmap face
func DefaultFont() (*Font, error) {
	return NewFont("basicfont-7x13", basicfont.Face7x13, ASCII())
}

// Atlas returns the R8 atlas texture
func (f *Font) Atlas() *scene.Texture {
	return f.atlas
}

// Glyph returns the glyph for r
func (f *Font) Glyph(r rune) (Glyph, bool) {
	g, ok := f.glyphs[r]
	return g, ok
}

// Height is the line height in pixels
func (f *Font) Height() float32 {
	return f.height
}

// Ascent is the distance from the top of a line to its baseline
func (f *Font) Ascent() float32 {
	return f.ascent
}

// AtlasSize returns the atlas dimensions in pixels
func (f *Font) AtlasSize() (int, int) {
	return f.width, f.heightP
}

// Validate reports whether the atlas can be uploaded
func (f *Font) Validate() error {
	if f == nil {
		return errors.New("nil font")
	}
	if f.atlas == nil {
		return errors.New("font has no atlas")
	}
	w, h := f.atlas.Size()
	if w <= 0 || h <= 0 || len(f.atlas.Bytes()) != w*h {
		return fmt.Errorf("font atlas %s is malformed", f.atlas.Path())
	}
	return nil
}

// MeasureText returns the advance width of text
func (f *Font) MeasureText(text string) float32 {
	var w float32
	for _, r := range text {
		if g, ok := f.glyphs[r]; ok {
			w += g.Advance
		}
	}
	return w
}
