package scene

import (
	"image/color"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"lumen/internal/util"
)

// EmitterKind is the spawn volume of an emitter
type EmitterKind int

const (
	EmitterSphere EmitterKind = iota
	EmitterCuboid
	EmitterCylinder
)

func (k EmitterKind) String() string {
	switch k {
	case EmitterSphere:
		return "Sphere"
	case EmitterCuboid:
		return "Cuboid"
	case EmitterCylinder:
		return "Cylinder"
	default:
		return "Unknown"
	}
}

// EmitterKinds lists every emitter shape in display order
var EmitterKinds = []EmitterKind{EmitterSphere, EmitterCuboid, EmitterCylinder}

// Range is an inclusive float interval sampled uniformly
type Range struct {
	Min, Max float32
}

func (r Range) sample(rng *util.Random) float32 {
	return rng.Range(r.Min, r.Max)
}

// Emitter spawns particles inside a volume at a fixed rate
type Emitter struct {
	kind     EmitterKind
	Position mgl32.Vec3

	// Sphere
	Radius float32
	// Cuboid half extents
	HalfExtents mgl32.Vec3
	// Cylinder, also uses Radius
	Height float32

	// MaxParticles caps live particles from this emitter; 0 means no cap
	MaxParticles       int
	ParticlesPerSecond float32
	Lifetime           Range
	Size               Range
	SizeModifier       Range
	VelocityX          Range
	VelocityY          Range
	VelocityZ          Range
	Rotation           Range
	RotationSpeed      Range
	Color              color.NRGBA

	alive       int
	accumulator float32
}

func newEmitter(kind EmitterKind) *Emitter {
	return &Emitter{
		kind:               kind,
		MaxParticles:       100,
		ParticlesPerSecond: 25,
		Lifetime:           Range{1, 3},
		Size:               Range{0.1, 0.2},
		SizeModifier:       Range{0, 0},
		VelocityX:          Range{-0.1, 0.1},
		VelocityY:          Range{0.2, 0.5},
		VelocityZ:          Range{-0.1, 0.1},
		RotationSpeed:      Range{-0.5, 0.5},
		Rotation:           Range{0, 2 * math32.Pi},
		Color:              color.NRGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

// NewSphereEmitter spawns inside a sphere
func NewSphereEmitter(radius float32) *Emitter {
	e := newEmitter(EmitterSphere)
	e.Radius = radius
	return e
}

// NewCuboidEmitter spawns inside an axis-aligned box
func NewCuboidEmitter(halfExtents mgl32.Vec3) *Emitter {
	e := newEmitter(EmitterCuboid)
	e.HalfExtents = halfExtents
	return e
}

// NewCylinderEmitter spawns inside a Y-aligned cylinder
func NewCylinderEmitter(radius, height float32) *Emitter {
	e := newEmitter(EmitterCylinder)
	e.Radius = radius
	e.Height = height
	return e
}

func (e *Emitter) Kind() EmitterKind {
	return e.kind
}

// AliveParticles returns how many particles spawned by e are still live
func (e *Emitter) AliveParticles() int {
	return e.alive
}

// samplePosition returns a point inside the volume relative to the system
func (e *Emitter) samplePosition(rng *util.Random) mgl32.Vec3 {
	var p mgl32.Vec3
	switch e.kind {
	case EmitterSphere:
		// uniform in volume
		r := e.Radius * math32.Cbrt(rng.Range(0, 1))
		theta := rng.Angle()
		z := rng.Range(-1, 1)
		s := math32.Sqrt(1 - z*z)
		p = mgl32.Vec3{r * s * math32.Cos(theta), r * s * math32.Sin(theta), r * z}
	case EmitterCuboid:
		p = mgl32.Vec3{
			rng.Range(-e.HalfExtents[0], e.HalfExtents[0]),
			rng.Range(-e.HalfExtents[1], e.HalfExtents[1]),
			rng.Range(-e.HalfExtents[2], e.HalfExtents[2]),
		}
	case EmitterCylinder:
		r := e.Radius * math32.Sqrt(rng.Range(0, 1))
		theta := rng.Angle()
		p = mgl32.Vec3{r * math32.Cos(theta), rng.Range(0, e.Height), r * math32.Sin(theta)}
	}
	return p.Add(e.Position)
}

// spawnCount advances the emission clock and returns how many particles
// should be born this tick.
func (e *Emitter) spawnCount(dt float32) int {
	e.accumulator += e.ParticlesPerSecond * dt
	n := int(e.accumulator)
	e.accumulator -= float32(n)
	if e.MaxParticles > 0 && e.alive+n > e.MaxParticles {
		n = e.MaxParticles - e.alive
		if n < 0 {
			n = 0
		}
	}
	return n
}

func (e *Emitter) emit(rng *util.Random) Particle {
	lifetime := e.Lifetime.sample(rng)
	return Particle{
		Position:        e.samplePosition(rng),
		Velocity:        mgl32.Vec3{e.VelocityX.sample(rng), e.VelocityY.sample(rng), e.VelocityZ.sample(rng)},
		Size:            e.Size.sample(rng),
		SizeModifier:    e.SizeModifier.sample(rng),
		Rotation:        e.Rotation.sample(rng),
		RotationSpeed:   e.RotationSpeed.sample(rng),
		Lifetime:        lifetime,
		InitialLifetime: lifetime,
		Color:           e.Color,
	}
}
