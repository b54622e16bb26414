package editor

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"lumen/internal/logger"
	"lumen/pkg/scene"
)

// Sender receives the commands a handler produces
type Sender interface {
	Send(cmd Command)
}

// SenderFunc adapts a function to Sender
type SenderFunc func(cmd Command)

func (f SenderFunc) Send(cmd Command) {
	f(cmd)
}

// Executor is a Sender that applies every command to a graph right away
type Executor struct {
	Graph *scene.Graph
	Log   *logger.Logger
}

func (e *Executor) Send(cmd Command) {
	if err := cmd.Execute(e.Graph); err != nil {
		e.Log.Errorf("Command %q failed: %v", cmd.Name(), err)
		return
	}
	e.Log.Debugf("Executed %q", cmd.Name())
}

// NewEmitter builds an emitter of kind with editor defaults
func NewEmitter(kind scene.EmitterKind) (*scene.Emitter, error) {
	switch kind {
	case scene.EmitterSphere:
		return scene.NewSphereEmitter(0.5), nil
	case scene.EmitterCuboid:
		return scene.NewCuboidEmitter(mgl32.Vec3{0.5, 0.5, 0.5}), nil
	case scene.EmitterCylinder:
		return scene.NewCylinderEmitter(0.5, 1), nil
	default:
		return nil, fmt.Errorf("unknown emitter kind %d", kind)
	}
}

// ParticleSystemHandler maps inspector edits of one particle system to
// commands. Adding an emitter is two steps: EmitterAdded opens the emitter
// selector, SelectEmitter picks the shape and closes it.
type ParticleSystemHandler struct {
	log *logger.Logger

	selectorOpen bool
	selectorNode scene.Handle
}

func NewParticleSystemHandler(log *logger.Logger) *ParticleSystemHandler {
	if log == nil {
		log = logger.NewLogger("info")
	}
	return &ParticleSystemHandler{log: log.WithPrefix("editor"), selectorNode: scene.NoHandle}
}

// Handle sends the command for change on node. Changes that have no
// command are accepted and produce nothing.
func (h *ParticleSystemHandler) Handle(node scene.Handle, change PropertyChange, sender Sender) error {
	switch c := change.(type) {
	case TextureChanged:
		sender.Send(NewSetParticleSystemTexture(node, c.Texture))
	case AccelerationChanged:
		sender.Send(NewSetParticleSystemAcceleration(node, c.Acceleration))
	case EnabledChanged:
		sender.Send(NewSetParticleSystemEnabled(node, c.Enabled))
	case SoftBoundaryFactorChanged:
		sender.Send(NewSetSoftBoundarySharpnessFactor(node, c.Factor))
	case EmitterAdded:
		h.selectorOpen = true
		h.selectorNode = node
	case EmitterRemoved:
		sender.Send(NewDeleteEmitter(node, c.Index))
	case EmitterChanged:
	default:
		h.log.Warnf("Unhandled property change %T", change)
		return fmt.Errorf("unhandled property change %T", change)
	}
	return nil
}

// SelectorOpen reports whether an emitter shape is being asked for
func (h *ParticleSystemHandler) SelectorOpen() bool {
	return h.selectorOpen
}

// SelectEmitter answers the open selector with kind
func (h *ParticleSystemHandler) SelectEmitter(kind scene.EmitterKind, sender Sender) error {
	if !h.selectorOpen {
		return fmt.Errorf("no emitter selection pending")
	}
	emitter, err := NewEmitter(kind)
	if err != nil {
		return err
	}
	sender.Send(NewAddParticleSystemEmitter(h.selectorNode, emitter))
	h.CloseSelector()
	return nil
}

// CloseSelector dismisses the selector without adding anything
func (h *ParticleSystemHandler) CloseSelector() {
	h.selectorOpen = false
	h.selectorNode = scene.NoHandle
}
