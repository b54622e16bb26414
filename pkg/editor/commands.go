package editor

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"lumen/pkg/scene"
)

// Command is a reversible scene edit. Revert undoes the last Execute.
type Command interface {
	Name() string
	Execute(g *scene.Graph) error
	Revert(g *scene.Graph) error
}

func particleSystem(g *scene.Graph, node scene.Handle) (*scene.ParticleSystem, error) {
	ps, ok := scene.Lookup[*scene.ParticleSystem](g, node)
	if !ok {
		return nil, fmt.Errorf("node %d is not a particle system", node)
	}
	return ps, nil
}

// swapCommand exchanges its value with the node's, so Execute and Revert
// are the same operation.
type swapCommand[T any] struct {
	name  string
	node  scene.Handle
	value T
	get   func(*scene.ParticleSystem) T
	set   func(*scene.ParticleSystem, T)
}

func (c *swapCommand[T]) Name() string {
	return c.name
}

func (c *swapCommand[T]) swap(g *scene.Graph) error {
	ps, err := particleSystem(g, c.node)
	if err != nil {
		return fmt.Errorf("%s: %w", c.name, err)
	}
	old := c.get(ps)
	c.set(ps, c.value)
	c.value = old
	return nil
}

func (c *swapCommand[T]) Execute(g *scene.Graph) error {
	return c.swap(g)
}

func (c *swapCommand[T]) Revert(g *scene.Graph) error {
	return c.swap(g)
}

type SetParticleSystemTexture struct {
	swapCommand[*scene.Texture]
}

func NewSetParticleSystemTexture(node scene.Handle, texture *scene.Texture) *SetParticleSystemTexture {
	return &SetParticleSystemTexture{swapCommand[*scene.Texture]{
		name:  "Set Particle System Texture",
		node:  node,
		value: texture,
		get:   (*scene.ParticleSystem).Texture,
		set:   (*scene.ParticleSystem).SetTexture,
	}}
}

type SetParticleSystemAcceleration struct {
	swapCommand[mgl32.Vec3]
}

func NewSetParticleSystemAcceleration(node scene.Handle, acceleration mgl32.Vec3) *SetParticleSystemAcceleration {
	return &SetParticleSystemAcceleration{swapCommand[mgl32.Vec3]{
		name:  "Set Particle System Acceleration",
		node:  node,
		value: acceleration,
		get:   (*scene.ParticleSystem).Acceleration,
		set:   (*scene.ParticleSystem).SetAcceleration,
	}}
}

type SetParticleSystemEnabled struct {
	swapCommand[bool]
}

func NewSetParticleSystemEnabled(node scene.Handle, enabled bool) *SetParticleSystemEnabled {
	return &SetParticleSystemEnabled{swapCommand[bool]{
		name:  "Set Particle System Enabled",
		node:  node,
		value: enabled,
		get:   (*scene.ParticleSystem).Enabled,
		set:   (*scene.ParticleSystem).SetEnabled,
	}}
}

type SetSoftBoundarySharpnessFactor struct {
	swapCommand[float32]
}

func NewSetSoftBoundarySharpnessFactor(node scene.Handle, factor float32) *SetSoftBoundarySharpnessFactor {
	return &SetSoftBoundarySharpnessFactor{swapCommand[float32]{
		name:  "Set Soft Boundary Sharpness Factor",
		node:  node,
		value: factor,
		get:   (*scene.ParticleSystem).SoftBoundarySharpnessFactor,
		set:   (*scene.ParticleSystem).SetSoftBoundarySharpnessFactor,
	}}
}

// AddParticleSystemEmitter appends an emitter; Revert takes it back off
// the end.
type AddParticleSystemEmitter struct {
	node    scene.Handle
	emitter *scene.Emitter
}

func NewAddParticleSystemEmitter(node scene.Handle, emitter *scene.Emitter) *AddParticleSystemEmitter {
	return &AddParticleSystemEmitter{node: node, emitter: emitter}
}

func (c *AddParticleSystemEmitter) Name() string {
	return "Add Particle System Emitter"
}

func (c *AddParticleSystemEmitter) Execute(g *scene.Graph) error {
	ps, err := particleSystem(g, c.node)
	if err != nil {
		return fmt.Errorf("add emitter: %w", err)
	}
	ps.AddEmitter(c.emitter)
	return nil
}

func (c *AddParticleSystemEmitter) Revert(g *scene.Graph) error {
	ps, err := particleSystem(g, c.node)
	if err != nil {
		return fmt.Errorf("revert add emitter: %w", err)
	}
	last := len(ps.Emitters()) - 1
	if last < 0 {
		return fmt.Errorf("revert add emitter: node %d has no emitters", c.node)
	}
	c.emitter, err = ps.RemoveEmitter(last)
	return err
}

// DeleteEmitter removes the emitter at an index and keeps it so Revert
// can put it back in the same place.
type DeleteEmitter struct {
	node    scene.Handle
	index   int
	emitter *scene.Emitter
}

func NewDeleteEmitter(node scene.Handle, index int) *DeleteEmitter {
	return &DeleteEmitter{node: node, index: index}
}

func (c *DeleteEmitter) Name() string {
	return "Delete Emitter"
}

func (c *DeleteEmitter) Execute(g *scene.Graph) error {
	ps, err := particleSystem(g, c.node)
	if err != nil {
		return fmt.Errorf("delete emitter: %w", err)
	}
	e, err := ps.RemoveEmitter(c.index)
	if err != nil {
		return fmt.Errorf("delete emitter: %w", err)
	}
	c.emitter = e
	return nil
}

func (c *DeleteEmitter) Revert(g *scene.Graph) error {
	if c.emitter == nil {
		return fmt.Errorf("revert delete emitter: command was not executed")
	}
	ps, err := particleSystem(g, c.node)
	if err != nil {
		return fmt.Errorf("revert delete emitter: %w", err)
	}
	if err := ps.InsertEmitter(c.index, c.emitter); err != nil {
		return fmt.Errorf("revert delete emitter: %w", err)
	}
	c.emitter = nil
	return nil
}
