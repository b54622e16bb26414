package scene

import (
	"fmt"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"

	"lumen/internal/util"
)

// DefaultSoftBoundarySharpnessFactor is the factor new systems start with
const DefaultSoftBoundarySharpnessFactor = 2.5

// Particle is one simulated sprite. Position is relative to the system.
type Particle struct {
	Position        mgl32.Vec3
	Velocity        mgl32.Vec3
	Size            float32
	SizeModifier    float32
	Rotation        float32
	RotationSpeed   float32
	Lifetime        float32
	InitialLifetime float32
	Color           color.NRGBA

	emitter int
	alive   bool
}

// Alive reports whether the particle is still simulated
func (p *Particle) Alive() bool {
	return p.alive
}

// ParticleSystem simulates particles spawned by its emitters. Simulation
// happens in Update; renderers only read the live set.
type ParticleSystem struct {
	NodeBase

	particles    []Particle
	freeList     []int
	emitters     []*Emitter
	texture      *Texture
	acceleration mgl32.Vec3
	enabled      bool

	softBoundarySharpnessFactor float32

	rng *util.Random
}

// NewParticleSystem creates an enabled system with standard gravity and no
// emitters.
func NewParticleSystem(name string) *ParticleSystem {
	return &ParticleSystem{
		NodeBase:                    newBase(name),
		acceleration:                mgl32.Vec3{0, -9.81, 0},
		enabled:                     true,
		softBoundarySharpnessFactor: DefaultSoftBoundarySharpnessFactor,
		rng:                         util.NewRandom(0),
	}
}

func (*ParticleSystem) Kind() Kind {
	return KindParticleSystem
}

// SetSeed makes spawning reproducible
func (ps *ParticleSystem) SetSeed(seed int64) {
	ps.rng = util.NewRandom(seed)
}

// Texture returns the particle texture; nil renders plain white
func (ps *ParticleSystem) Texture() *Texture {
	return ps.texture
}

func (ps *ParticleSystem) SetTexture(t *Texture) {
	ps.texture = t
}

func (ps *ParticleSystem) Acceleration() mgl32.Vec3 {
	return ps.acceleration
}

func (ps *ParticleSystem) SetAcceleration(a mgl32.Vec3) {
	ps.acceleration = a
}

func (ps *ParticleSystem) Enabled() bool {
	return ps.enabled
}

func (ps *ParticleSystem) SetEnabled(enabled bool) {
	ps.enabled = enabled
}

// SoftBoundarySharpnessFactor controls how quickly particles fade near
// scene geometry. Larger values give a sharper edge.
func (ps *ParticleSystem) SoftBoundarySharpnessFactor() float32 {
	return ps.softBoundarySharpnessFactor
}

func (ps *ParticleSystem) SetSoftBoundarySharpnessFactor(factor float32) {
	ps.softBoundarySharpnessFactor = factor
}

// Emitters returns a copy of the emitter list
func (ps *ParticleSystem) Emitters() []*Emitter {
	return append([]*Emitter(nil), ps.emitters...)
}

// AddEmitter appends e
func (ps *ParticleSystem) AddEmitter(e *Emitter) {
	ps.emitters = append(ps.emitters, e)
}

// InsertEmitter puts e at index, shifting later emitters
func (ps *ParticleSystem) InsertEmitter(index int, e *Emitter) error {
	if index < 0 || index > len(ps.emitters) {
		return fmt.Errorf("emitter index %d out of range [0, %d]", index, len(ps.emitters))
	}
	ps.emitters = append(ps.emitters, nil)
	copy(ps.emitters[index+1:], ps.emitters[index:])
	ps.emitters[index] = e
	ps.reindex(index, +1)
	return nil
}

// RemoveEmitter detaches and returns the emitter at index. Particles it
// already spawned keep living.
func (ps *ParticleSystem) RemoveEmitter(index int) (*Emitter, error) {
	if index < 0 || index >= len(ps.emitters) {
		return nil, fmt.Errorf("emitter index %d out of range [0, %d)", index, len(ps.emitters))
	}
	e := ps.emitters[index]
	ps.emitters = append(ps.emitters[:index], ps.emitters[index+1:]...)
	for i := range ps.particles {
		if ps.particles[i].emitter == index {
			ps.particles[i].emitter = -1
		}
	}
	ps.reindex(index+1, -1)
	return e, nil
}

// reindex shifts the emitter index of particles spawned by emitters at or
// after from.
func (ps *ParticleSystem) reindex(from, delta int) {
	for i := range ps.particles {
		if ps.particles[i].emitter >= from {
			ps.particles[i].emitter += delta
		}
	}
}

// Update spawns and advances particles by dt seconds. Disabled systems
// are frozen.
func (ps *ParticleSystem) Update(dt float32) {
	if !ps.enabled || dt <= 0 {
		return
	}

	for i := range ps.particles {
		p := &ps.particles[i]
		if !p.alive {
			continue
		}
		p.Lifetime -= dt
		if p.Lifetime <= 0 {
			ps.kill(i)
			continue
		}
		p.Velocity = p.Velocity.Add(ps.acceleration.Mul(dt))
		p.Position = p.Position.Add(p.Velocity.Mul(dt))
		p.Size += p.SizeModifier * dt
		if p.Size < 0 {
			p.Size = 0
		}
		p.Rotation += p.RotationSpeed * dt
	}

	for idx, e := range ps.emitters {
		for n := e.spawnCount(dt); n > 0; n-- {
			p := e.emit(ps.rng)
			p.emitter = idx
			p.alive = true
			e.alive++
			ps.spawn(p)
		}
	}
}

func (ps *ParticleSystem) spawn(p Particle) {
	if n := len(ps.freeList); n > 0 {
		i := ps.freeList[n-1]
		ps.freeList = ps.freeList[:n-1]
		ps.particles[i] = p
		return
	}
	ps.particles = append(ps.particles, p)
}

func (ps *ParticleSystem) kill(i int) {
	p := &ps.particles[i]
	p.alive = false
	if p.emitter >= 0 && p.emitter < len(ps.emitters) {
		ps.emitters[p.emitter].alive--
	}
	ps.freeList = append(ps.freeList, i)
}

// Spawn inserts a live particle directly, bypassing emitters
func (ps *ParticleSystem) Spawn(p Particle) {
	p.alive = true
	p.emitter = -1
	if p.InitialLifetime == 0 {
		p.InitialLifetime = p.Lifetime
	}
	ps.spawn(p)
}

// AliveCount returns the number of live particles
func (ps *ParticleSystem) AliveCount() int {
	return len(ps.particles) - len(ps.freeList)
}

// AliveParticles returns copies of the live particles
func (ps *ParticleSystem) AliveParticles() []Particle {
	out := make([]Particle, 0, ps.AliveCount())
	for _, p := range ps.particles {
		if p.alive {
			out = append(out, p)
		}
	}
	return out
}

// Clear kills every particle
func (ps *ParticleSystem) Clear() {
	ps.particles = ps.particles[:0]
	ps.freeList = ps.freeList[:0]
	for _, e := range ps.emitters {
		e.alive = 0
		e.accumulator = 0
	}
}
