package scene

import (
	"image/color"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Surface is one draw of a mesh: geometry plus material
type Surface struct {
	data           *SurfaceData
	diffuseTexture *Texture
	normalTexture  *Texture
	color          color.NRGBA
}

// NewSurface creates an untextured white surface
func NewSurface(data *SurfaceData) *Surface {
	return &Surface{
		data:  data,
		color: color.NRGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

func (s *Surface) Data() *SurfaceData {
	return s.data
}

// DiffuseTexture returns the material diffuse map, nil when unset
func (s *Surface) DiffuseTexture() *Texture {
	return s.diffuseTexture
}

func (s *Surface) SetDiffuseTexture(t *Texture) {
	s.diffuseTexture = t
}

// NormalTexture returns the material normal map, nil when unset
func (s *Surface) NormalTexture() *Texture {
	return s.normalTexture
}

func (s *Surface) SetNormalTexture(t *Texture) {
	s.normalTexture = t
}

func (s *Surface) Color() color.NRGBA {
	return s.color
}

func (s *Surface) SetColor(c color.NRGBA) {
	s.color = c
}

// Mesh renders its surfaces into the G-Buffer
type Mesh struct {
	NodeBase
	surfaces []*Surface
}

func NewMesh(name string, surfaces ...*Surface) *Mesh {
	return &Mesh{NodeBase: newBase(name), surfaces: surfaces}
}

func (*Mesh) Kind() Kind {
	return KindMesh
}

func (m *Mesh) Surfaces() []*Surface {
	return m.surfaces
}

func (m *Mesh) AddSurface(s *Surface) {
	m.surfaces = append(m.surfaces, s)
}

// WorldBoundingSphere encloses every surface after the global transform
func (m *Mesh) WorldBoundingSphere() (mgl32.Vec3, float32) {
	type sphere struct {
		center mgl32.Vec3
		radius float32
	}
	var spheres []sphere
	var center mgl32.Vec3
	for _, s := range m.surfaces {
		if s.data.IsEmpty() {
			continue
		}
		c, r := s.data.BoundingSphere()
		spheres = append(spheres, sphere{c, r})
		center = center.Add(c)
	}
	if len(spheres) == 0 {
		return m.GlobalPosition(), 0
	}
	center = center.Mul(1 / float32(len(spheres)))

	var radius float32
	for _, s := range spheres {
		radius = math32.Max(radius, s.center.Sub(center).Len()+s.radius)
	}

	g := m.GlobalTransform()
	scale := math32.Max(g.Col(0).Vec3().Len(), math32.Max(g.Col(1).Vec3().Len(), g.Col(2).Vec3().Len()))
	return mgl32.TransformCoordinate(center, g), radius * scale
}
