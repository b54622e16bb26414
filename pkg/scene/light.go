package scene

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
)

// LightKind selects the light model
type LightKind int

const (
	PointLight LightKind = iota
	SpotLight
	DirectionalLight
)

func (k LightKind) String() string {
	switch k {
	case PointLight:
		return "Point"
	case SpotLight:
		return "Spot"
	case DirectionalLight:
		return "Directional"
	default:
		return "Unknown"
	}
}

// Light illuminates the G-Buffer during the deferred lighting pass. Spot
// lights shine along the node's look vector; directional lights along it
// too and ignore position and radius.
type Light struct {
	NodeBase

	kind   LightKind
	color  color.NRGBA
	radius float32

	hotspotAngle float32
	falloffDelta float32

	texture *Texture
}

func newLight(name string, kind LightKind) *Light {
	return &Light{
		NodeBase: newBase(name),
		kind:     kind,
		color:    color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		radius:   10,
	}
}

// NewPointLight creates an omnidirectional light reaching radius units
func NewPointLight(name string, radius float32) *Light {
	l := newLight(name, PointLight)
	l.radius = radius
	return l
}

// NewSpotLight creates a cone light. Full intensity is kept inside
// hotspot; it fades to zero over falloffDelta further radians.
func NewSpotLight(name string, radius, hotspot, falloffDelta float32) *Light {
	l := newLight(name, SpotLight)
	l.radius = radius
	l.hotspotAngle = hotspot
	l.falloffDelta = falloffDelta
	return l
}

// NewDirectionalLight creates a light infinitely far away
func NewDirectionalLight(name string) *Light {
	return newLight(name, DirectionalLight)
}

func (*Light) Kind() Kind {
	return KindLight
}

func (l *Light) LightKind() LightKind {
	return l.kind
}

func (l *Light) Color() color.NRGBA {
	return l.color
}

func (l *Light) SetColor(c color.NRGBA) {
	l.color = c
}

func (l *Light) Radius() float32 {
	return l.radius
}

func (l *Light) SetRadius(r float32) {
	l.radius = r
}

func (l *Light) HotspotAngle() float32 {
	return l.hotspotAngle
}

func (l *Light) FalloffDelta() float32 {
	return l.falloffDelta
}

// Direction is the normalized world-space direction light travels in
func (l *Light) Direction() mgl32.Vec3 {
	d := l.LookVector()
	if d.Len() == 0 {
		return mgl32.Vec3{0, 0, 1}
	}
	return d.Normalize()
}

// Texture is the cookie projected by spot lights; nil projects plain white
func (l *Light) Texture() *Texture {
	return l.texture
}

func (l *Light) SetTexture(t *Texture) {
	l.texture = t
}
