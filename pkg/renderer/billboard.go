package renderer

import (
	"image/color"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"lumen/internal/logger"
	"lumen/internal/util"
	"lumen/pkg/gpu"
)

// billboardLayout is position, texture coordinates and a normalized color
var billboardLayout = gpu.VertexLayout{
	Stride: 9,
	Attributes: []gpu.VertexAttribute{
		{Location: 0, Components: 3, Offset: 0},
		{Location: 1, Components: 2, Offset: 3},
		{Location: 2, Components: 4, Offset: 5},
	},
}

var billboardCorners = [4]mgl32.Vec2{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}

// billboard is one camera-facing quad before expansion. texture is only
// set for sprites; a particle system binds one texture for all its quads.
type billboard struct {
	center   mgl32.Vec3
	size     float32
	rotation float32
	color    color.NRGBA
	texture  *gpu.Texture
	distance float32
}

// sortBackToFront orders billboards farthest from eye first so alpha
// blending composites correctly
func sortBackToFront(items []billboard, eye mgl32.Vec3) {
	for i := range items {
		items[i].distance = items[i].center.Sub(eye).LenSqr()
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].distance > items[j].distance
	})
}

// billboardBatch expands billboards into quads spanned by the camera's
// side and up vectors
type billboardBatch struct {
	vertices []float32
	indices  []uint32
}

func (b *billboardBatch) reset() {
	b.vertices = b.vertices[:0]
	b.indices = b.indices[:0]
}

func (b *billboardBatch) push(item billboard, side, up mgl32.Vec3) {
	base := uint32(len(b.vertices) / billboardLayout.Stride)
	r := float32(item.color.R) / 255
	g := float32(item.color.G) / 255
	bl := float32(item.color.B) / 255
	a := float32(item.color.A) / 255

	for _, corner := range billboardCorners {
		cx, cy := util.RotatePoint2D(corner.X(), corner.Y(), item.rotation)
		p := item.center.Add(side.Mul(cx * item.size)).Add(up.Mul(cy * item.size))
		u := (corner.X() + 1) / 2
		v := (1 - corner.Y()) / 2
		b.vertices = append(b.vertices, p.X(), p.Y(), p.Z(), u, v, r, g, bl, a)
	}
	b.indices = append(b.indices, base, base+1, base+2, base, base+2, base+3)
}

// passFailures logs the first failure of a pass as a warning and the
// repeats of every later frame at debug level
type passFailures struct {
	log    *logger.Logger
	warned bool
}

func (p *passFailures) report(format string, v ...interface{}) {
	if p.warned {
		p.log.Debugf(format, v...)
		return
	}
	p.warned = true
	p.log.Warnf(format, v...)
}
