package scene

import (
	"iter"

	"github.com/go-gl/mathgl/mgl32"
)

// Scene is an independent graph rendered with its own camera
type Scene struct {
	Graph   *Graph
	Enabled bool
}

func NewScene() *Scene {
	return &Scene{Graph: NewGraph(), Enabled: true}
}

// Update advances the graph
func (s *Scene) Update(frameSize mgl32.Vec2, dt float32) {
	s.Graph.Update(frameSize, dt)
}

// Container is the ordered set of scenes handed to the renderer
type Container struct {
	scenes []*Scene
}

func NewContainer() *Container {
	return &Container{}
}

// Add appends a scene; scenes render in insertion order
func (c *Container) Add(s *Scene) {
	c.scenes = append(c.scenes, s)
}

// Remove drops s if present
func (c *Container) Remove(s *Scene) {
	for i, other := range c.scenes {
		if other == s {
			c.scenes = append(c.scenes[:i], c.scenes[i+1:]...)
			return
		}
	}
}

func (c *Container) Len() int {
	return len(c.scenes)
}

// All yields enabled scenes in order
func (c *Container) All() iter.Seq[*Scene] {
	return func(yield func(*Scene) bool) {
		for _, s := range c.scenes {
			if s.Enabled && !yield(s) {
				return
			}
		}
	}
}

// Update advances every enabled scene
func (c *Container) Update(frameSize mgl32.Vec2, dt float32) {
	for s := range c.All() {
		s.Update(frameSize, dt)
	}
}
