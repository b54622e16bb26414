// Package ui records 2D draw commands for the UI compositing pass. Widgets
// push primitives into a DrawingContext and commit them as commands; the
// renderer replays the commands in order.
package ui

import (
	"image/color"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"lumen/pkg/scene"
)

// Rect is an axis-aligned rectangle in pixels, origin at the top-left
type Rect struct {
	X, Y, W, H float32
}

// Vertex is one UI vertex
type Vertex struct {
	Pos      mgl32.Vec2
	TexCoord mgl32.Vec2
	Color    color.NRGBA
}

// CommandKind tells how a command's triangles are used
type CommandKind int

const (
	// CommandGeometry draws colored or textured triangles
	CommandGeometry CommandKind = iota
	// CommandClip writes the triangles into the stencil buffer only,
	// limiting deeper nesting levels to the covered area
	CommandClip
)

// TextureKind selects what a command samples
type TextureKind int

const (
	TextureNone TextureKind = iota
	TextureFont
	TextureImage
)

// CommandTexture is the texture reference of a command
type CommandTexture struct {
	Kind  TextureKind
	Font  *Font
	Image *scene.Texture
}

// NoTexture draws plain vertex colors
func NoTexture() CommandTexture {
	return CommandTexture{Kind: TextureNone}
}

// FontTexture samples a font atlas
func FontTexture(f *Font) CommandTexture {
	return CommandTexture{Kind: TextureFont, Font: f}
}

// ImageTexture samples an image
func ImageTexture(t *scene.Texture) CommandTexture {
	return CommandTexture{Kind: TextureImage, Image: t}
}

// Command is a committed range of triangles
type Command struct {
	Bounds        Rect
	Kind          CommandKind
	Texture       CommandTexture
	Nesting       uint8
	TriangleStart int
	TriangleCount int
}

// DrawingContext accumulates vertices, triangles and commands for a frame
type DrawingContext struct {
	vertices  []Vertex
	triangles [][3]uint32
	commands  []Command

	committed int
	nesting   uint8
}

func NewDrawingContext() *DrawingContext {
	return &DrawingContext{}
}

// Clear drops everything recorded so far
func (dc *DrawingContext) Clear() {
	dc.vertices = dc.vertices[:0]
	dc.triangles = dc.triangles[:0]
	dc.commands = dc.commands[:0]
	dc.committed = 0
	dc.nesting = 0
}

func (dc *DrawingContext) Vertices() []Vertex {
	return dc.vertices
}

func (dc *DrawingContext) Triangles() [][3]uint32 {
	return dc.triangles
}

func (dc *DrawingContext) Commands() []Command {
	return dc.commands
}

// IsEmpty reports whether no command was committed
func (dc *DrawingContext) IsEmpty() bool {
	return len(dc.commands) == 0
}

// SetNesting sets the clip level for following commits. Level 0 is
// unclipped; geometry at level n is visible only inside clips of level n.
func (dc *DrawingContext) SetNesting(level uint8) {
	dc.nesting = level
}

func (dc *DrawingContext) Nesting() uint8 {
	return dc.nesting
}

func (dc *DrawingContext) pushQuad(a, b, c, d Vertex) {
	base := uint32(len(dc.vertices))
	dc.vertices = append(dc.vertices, a, b, c, d)
	dc.triangles = append(dc.triangles, [3]uint32{base, base + 1, base + 2}, [3]uint32{base, base + 2, base + 3})
}

// PushRectFilled adds a solid rectangle mapped to the whole texture
func (dc *DrawingContext) PushRectFilled(r Rect, c color.NRGBA) {
	dc.PushRectUV(r, Rect{0, 0, 1, 1}, c)
}

// PushRectUV adds a rectangle sampling uv (normalized texture rect)
func (dc *DrawingContext) PushRectUV(r Rect, uv Rect, c color.NRGBA) {
	dc.pushQuad(
		Vertex{Pos: mgl32.Vec2{r.X, r.Y}, TexCoord: mgl32.Vec2{uv.X, uv.Y}, Color: c},
		Vertex{Pos: mgl32.Vec2{r.X + r.W, r.Y}, TexCoord: mgl32.Vec2{uv.X + uv.W, uv.Y}, Color: c},
		Vertex{Pos: mgl32.Vec2{r.X + r.W, r.Y + r.H}, TexCoord: mgl32.Vec2{uv.X + uv.W, uv.Y + uv.H}, Color: c},
		Vertex{Pos: mgl32.Vec2{r.X, r.Y + r.H}, TexCoord: mgl32.Vec2{uv.X, uv.Y + uv.H}, Color: c},
	)
}

// PushRect adds a rectangle outline of the given thickness
func (dc *DrawingContext) PushRect(r Rect, thickness float32, c color.NRGBA) {
	t := math32.Min(thickness, math32.Min(r.W, r.H)/2)
	dc.PushRectFilled(Rect{r.X, r.Y, r.W, t}, c)
	dc.PushRectFilled(Rect{r.X, r.Y + r.H - t, r.W, t}, c)
	dc.PushRectFilled(Rect{r.X, r.Y + t, t, r.H - 2*t}, c)
	dc.PushRectFilled(Rect{r.X + r.W - t, r.Y + t, t, r.H - 2*t}, c)
}

// PushText lays out a single line starting at pos (top-left of the line).
// Runes missing from the font advance nothing.
func (dc *DrawingContext) PushText(f *Font, text string, pos mgl32.Vec2, c color.NRGBA) {
	aw, ah := f.AtlasSize()
	penX := pos[0]
	baseline := pos[1] + f.Ascent()
	for _, r := range text {
		g, ok := f.Glyph(r)
		if !ok {
			continue
		}
		w, h := float32(g.Atlas.Dx()), float32(g.Atlas.Dy())
		if w > 0 && h > 0 {
			dc.PushRectUV(
				Rect{penX + g.Offset[0], baseline + g.Offset[1], w, h},
				Rect{
					float32(g.Atlas.Min.X) / float32(aw),
					float32(g.Atlas.Min.Y) / float32(ah),
					w / float32(aw),
					h / float32(ah),
				},
				c,
			)
		}
		penX += g.Advance
	}
}

// Commit turns the triangles pushed since the last commit into a command.
// Nothing is recorded when no triangles were pushed.
func (dc *DrawingContext) Commit(kind CommandKind, texture CommandTexture) {
	count := len(dc.triangles) - dc.committed
	if count <= 0 {
		return
	}
	dc.commands = append(dc.commands, Command{
		Bounds:        dc.bounds(dc.committed, count),
		Kind:          kind,
		Texture:       texture,
		Nesting:       dc.nesting,
		TriangleStart: dc.committed,
		TriangleCount: count,
	})
	dc.committed = len(dc.triangles)
}

// CommitGeometry commits a drawable command
func (dc *DrawingContext) CommitGeometry(texture CommandTexture) {
	dc.Commit(CommandGeometry, texture)
}

// CommitClip commits a clip region at the current nesting level
func (dc *DrawingContext) CommitClip() {
	dc.Commit(CommandClip, NoTexture())
}

func (dc *DrawingContext) bounds(start, count int) Rect {
	minX, minY := math32.Inf(1), math32.Inf(1)
	maxX, maxY := math32.Inf(-1), math32.Inf(-1)
	for _, t := range dc.triangles[start : start+count] {
		for _, i := range t {
			p := dc.vertices[i].Pos
			minX, minY = math32.Min(minX, p[0]), math32.Min(minY, p[1])
			maxX, maxY = math32.Max(maxX, p[0]), math32.Max(maxY, p[1])
		}
	}
	return Rect{minX, minY, maxX - minX, maxY - minY}
}
