package gpu

import (
	"github.com/go-gl/mathgl/mgl32"
)

// State is the binding context threaded through every pass. It forwards to
// the device and remembers what is currently bound so stale handles can be
// detected. A State must only be used from the thread owning the context.
type State struct {
	device Device

	program     Handle
	programGen  uint64
	framebuffer Handle
	viewport    [4]int
	pipeline    PipelineState

	diagnostics []BackendDiagnostic
}

// NewState creates a binding context over device
func NewState(device Device) *State {
	return &State{
		device:   device,
		pipeline: DefaultPipelineState(),
	}
}

// Device returns the backend the context forwards to
func (s *State) Device() Device {
	return s.device
}

// SetFramebuffer binds fb as the render target. Nil selects the back buffer.
func (s *State) SetFramebuffer(fb *FrameBuffer) {
	handle := Handle(0)
	if fb != nil {
		handle = fb.handle
	}
	s.framebuffer = handle
	s.device.BindFramebuffer(handle)
}

// Framebuffer returns the handle of the bound render target
func (s *State) Framebuffer() Handle {
	return s.framebuffer
}

// SetViewport sets the rectangle rendering is mapped to
func (s *State) SetViewport(x, y, width, height int) {
	s.viewport = [4]int{x, y, width, height}
	s.device.SetViewport(x, y, width, height)
}

// Viewport returns the last viewport set through the context
func (s *State) Viewport() (x, y, width, height int) {
	return s.viewport[0], s.viewport[1], s.viewport[2], s.viewport[3]
}

// Apply sets the fixed-function pipeline state
func (s *State) Apply(p PipelineState) {
	s.pipeline = p
	s.device.ApplyPipelineState(p)
}

// Pipeline returns the last applied pipeline state
func (s *State) Pipeline() PipelineState {
	return s.pipeline
}

// Clear clears the bound framebuffer
func (s *State) Clear(values ClearValues) {
	s.device.Clear(values)
}

// ClearColor clears only the color buffers of the bound framebuffer
func (s *State) ClearColor(color mgl32.Vec4) {
	s.device.Clear(ClearValues{Color: &color})
}

// BindTexture binds t to the sampler unit. A nil texture unbinds the unit.
func (s *State) BindTexture(unit uint32, t *Texture) {
	handle := Handle(0)
	if t != nil {
		handle = t.handle
	}
	s.device.BindTexture(unit, handle)
}

// ReadPixels reads RGBA8 pixels, top row first, from the bound framebuffer
func (s *State) ReadPixels(x, y, width, height int) ([]byte, error) {
	return s.device.ReadPixels(x, y, width, height)
}

func (s *State) useProgram(program Handle) uint64 {
	s.program = program
	s.programGen++
	s.device.UseProgram(program)
	return s.programGen
}

func (s *State) isCurrent(program Handle, gen uint64) bool {
	return s.program == program && s.programGen == gen
}

func (s *State) forgetProgram(program Handle) {
	if s.program == program {
		s.program = 0
		s.programGen++
	}
}

// Report records a diagnostic raised by the wrapper layer itself
func (s *State) Report(d BackendDiagnostic) {
	s.diagnostics = append(s.diagnostics, d)
}

// Diagnostics drains diagnostics recorded by the wrappers together with the
// error codes raised by the backend since the last call.
func (s *State) Diagnostics() []BackendDiagnostic {
	out := s.diagnostics
	s.diagnostics = nil
	return append(out, s.device.Errors()...)
}
