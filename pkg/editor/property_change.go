// Package editor turns particle system property edits into commands that
// can be executed against, and reverted from, a scene graph.
package editor

import (
	"github.com/go-gl/mathgl/mgl32"

	"lumen/pkg/scene"
)

// PropertyChange is one edit reported by the inspector. The set of
// variants is closed; only types in this package implement it.
type PropertyChange interface {
	propertyChange()
}

// TextureChanged replaces the particle texture. A nil Texture clears it.
type TextureChanged struct {
	Texture *scene.Texture
}

type AccelerationChanged struct {
	Acceleration mgl32.Vec3
}

type EnabledChanged struct {
	Enabled bool
}

type SoftBoundaryFactorChanged struct {
	Factor float32
}

// EmitterAdded asks for a new emitter; the shape is picked afterwards
// through the handler's emitter selector.
type EmitterAdded struct{}

type EmitterRemoved struct {
	Index int
}

// EmitterChanged reports an edit inside an existing emitter. Emitter
// fields are edited in place and produce no command.
type EmitterChanged struct {
	Index int
}

func (TextureChanged) propertyChange()            {}
func (AccelerationChanged) propertyChange()       {}
func (EnabledChanged) propertyChange()            {}
func (SoftBoundaryFactorChanged) propertyChange() {}
func (EmitterAdded) propertyChange()              {}
func (EmitterRemoved) propertyChange()            {}
func (EmitterChanged) propertyChange()            {}
