package scene

import (
	"sync/atomic"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Vertex is the interleaved layout uploaded for meshes
type Vertex struct {
	Position mgl32.Vec3
	TexCoord mgl32.Vec2
	Normal   mgl32.Vec3
	Tangent  mgl32.Vec4
}

// VertexFloats is the number of floats per Vertex
const VertexFloats = 12

var surfaceIDs atomic.Uint64

// SurfaceData is shareable triangle geometry. The renderer keeps one GPU
// buffer per SurfaceData and re-uploads it when Version changes.
type SurfaceData struct {
	id        uint64
	version   uint64
	vertices  []Vertex
	triangles [][3]uint32
}

// NewSurfaceData wraps vertices and triangles
func NewSurfaceData(vertices []Vertex, triangles [][3]uint32) *SurfaceData {
	return &SurfaceData{
		id:        surfaceIDs.Add(1),
		version:   1,
		vertices:  vertices,
		triangles: triangles,
	}
}

// ID is unique per SurfaceData for the life of the process
func (d *SurfaceData) ID() uint64 {
	return d.id
}

// Version changes whenever the geometry is replaced
func (d *SurfaceData) Version() uint64 {
	return d.version
}

func (d *SurfaceData) Vertices() []Vertex {
	return d.vertices
}

func (d *SurfaceData) Triangles() [][3]uint32 {
	return d.triangles
}

// IsEmpty reports whether there is nothing to draw
func (d *SurfaceData) IsEmpty() bool {
	return d == nil || len(d.vertices) == 0 || len(d.triangles) == 0
}

// SetGeometry replaces the geometry and bumps the version
func (d *SurfaceData) SetGeometry(vertices []Vertex, triangles [][3]uint32) {
	d.vertices = vertices
	d.triangles = triangles
	d.version++
}

// Flatten returns the interleaved vertex floats and the index list
func (d *SurfaceData) Flatten() ([]float32, []uint32) {
	floats := make([]float32, 0, len(d.vertices)*VertexFloats)
	for _, v := range d.vertices {
		floats = append(floats,
			v.Position[0], v.Position[1], v.Position[2],
			v.TexCoord[0], v.TexCoord[1],
			v.Normal[0], v.Normal[1], v.Normal[2],
			v.Tangent[0], v.Tangent[1], v.Tangent[2], v.Tangent[3],
		)
	}
	indices := make([]uint32, 0, len(d.triangles)*3)
	for _, t := range d.triangles {
		indices = append(indices, t[0], t[1], t[2])
	}
	return floats, indices
}

// BoundingSphere returns a local-space sphere enclosing every vertex,
// centered on the bounding box.
func (d *SurfaceData) BoundingSphere() (mgl32.Vec3, float32) {
	if len(d.vertices) == 0 {
		return mgl32.Vec3{}, 0
	}
	lo, hi := d.vertices[0].Position, d.vertices[0].Position
	for _, v := range d.vertices[1:] {
		for i := 0; i < 3; i++ {
			lo[i] = math32.Min(lo[i], v.Position[i])
			hi[i] = math32.Max(hi[i], v.Position[i])
		}
	}
	center := lo.Add(hi).Mul(0.5)
	var radius float32
	for _, v := range d.vertices {
		radius = math32.Max(radius, v.Position.Sub(center).Len())
	}
	return center, radius
}

// CalculateTangents derives per-vertex tangents from texture coordinates.
// W holds the bitangent handedness.
func (d *SurfaceData) CalculateTangents() {
	tan := make([]mgl32.Vec3, len(d.vertices))
	bitan := make([]mgl32.Vec3, len(d.vertices))

	for _, t := range d.triangles {
		v0, v1, v2 := d.vertices[t[0]], d.vertices[t[1]], d.vertices[t[2]]
		e1 := v1.Position.Sub(v0.Position)
		e2 := v2.Position.Sub(v0.Position)
		s1, t1 := v1.TexCoord[0]-v0.TexCoord[0], v1.TexCoord[1]-v0.TexCoord[1]
		s2, t2 := v2.TexCoord[0]-v0.TexCoord[0], v2.TexCoord[1]-v0.TexCoord[1]

		det := s1*t2 - s2*t1
		if math32.Abs(det) < 1e-8 {
			continue
		}
		r := 1 / det
		sdir := e1.Mul(t2).Sub(e2.Mul(t1)).Mul(r)
		tdir := e2.Mul(s1).Sub(e1.Mul(s2)).Mul(r)
		for _, i := range t {
			tan[i] = tan[i].Add(sdir)
			bitan[i] = bitan[i].Add(tdir)
		}
	}

	for i := range d.vertices {
		n := d.vertices[i].Normal
		t := tan[i].Sub(n.Mul(n.Dot(tan[i])))
		if t.Len() < 1e-8 {
			t = mgl32.Vec3{1, 0, 0}
		} else {
			t = t.Normalize()
		}
		w := float32(1)
		if n.Cross(t).Dot(bitan[i]) < 0 {
			w = -1
		}
		d.vertices[i].Tangent = t.Vec4(w)
	}
	d.version++
}

// MakeQuad creates a unit quad in the XY plane facing -Z
func MakeQuad() *SurfaceData {
	n := mgl32.Vec3{0, 0, -1}
	vertices := []Vertex{
		{Position: mgl32.Vec3{-0.5, -0.5, 0}, TexCoord: mgl32.Vec2{0, 1}, Normal: n},
		{Position: mgl32.Vec3{0.5, -0.5, 0}, TexCoord: mgl32.Vec2{1, 1}, Normal: n},
		{Position: mgl32.Vec3{0.5, 0.5, 0}, TexCoord: mgl32.Vec2{1, 0}, Normal: n},
		{Position: mgl32.Vec3{-0.5, 0.5, 0}, TexCoord: mgl32.Vec2{0, 0}, Normal: n},
	}
	d := NewSurfaceData(vertices, [][3]uint32{{0, 1, 2}, {0, 2, 3}})
	d.CalculateTangents()
	return d
}

// MakeCube creates a unit cube centered on the origin
func MakeCube() *SurfaceData {
	type face struct {
		normal, u, v mgl32.Vec3
	}
	faces := []face{
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
	}
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}

	var vertices []Vertex
	var triangles [][3]uint32
	for _, f := range faces {
		base := uint32(len(vertices))
		for _, c := range corners {
			p := f.normal.Add(f.u.Mul(c[0])).Add(f.v.Mul(c[1])).Mul(0.5)
			vertices = append(vertices, Vertex{
				Position: p,
				TexCoord: mgl32.Vec2{(c[0] + 1) / 2, (1 - c[1]) / 2},
				Normal:   f.normal,
			})
		}
		triangles = append(triangles, [3]uint32{base, base + 1, base + 2}, [3]uint32{base, base + 2, base + 3})
	}

	d := NewSurfaceData(vertices, triangles)
	d.CalculateTangents()
	return d
}

// MakeSphere creates a UV sphere of the given radius
func MakeSphere(slices, stacks int, radius float32) *SurfaceData {
	if slices < 3 {
		slices = 3
	}
	if stacks < 2 {
		stacks = 2
	}

	var vertices []Vertex
	for i := 0; i <= stacks; i++ {
		v := float32(i) / float32(stacks)
		phi := v * math32.Pi
		for j := 0; j <= slices; j++ {
			u := float32(j) / float32(slices)
			theta := u * 2 * math32.Pi
			n := mgl32.Vec3{
				math32.Sin(phi) * math32.Cos(theta),
				math32.Cos(phi),
				math32.Sin(phi) * math32.Sin(theta),
			}
			vertices = append(vertices, Vertex{
				Position: n.Mul(radius),
				TexCoord: mgl32.Vec2{u, v},
				Normal:   n,
			})
		}
	}

	var triangles [][3]uint32
	row := uint32(slices + 1)
	for i := uint32(0); i < uint32(stacks); i++ {
		for j := uint32(0); j < uint32(slices); j++ {
			a := i*row + j
			b := a + row
			triangles = append(triangles, [3]uint32{a, b, a + 1}, [3]uint32{a + 1, b, b + 1})
		}
	}

	d := NewSurfaceData(vertices, triangles)
	d.CalculateTangents()
	return d
}
