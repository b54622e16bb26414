package gpu

import (
	"fmt"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
)

// Program is a linked shader program
type Program struct {
	state    *State
	handle   Handle
	name     string
	released bool
}

// NewProgram compiles and links a program. The name is only used in
// diagnostics.
func NewProgram(state *State, name, vertexSource, fragmentSource string) (*Program, error) {
	handle, err := state.device.CompileProgram(vertexSource, fragmentSource)
	if err != nil {
		if compileErr, ok := err.(*ShaderCompileError); ok {
			compileErr.Program = name
			return nil, compileErr
		}
		return nil, fmt.Errorf("failed to create program %s: %w", name, err)
	}

	return &Program{state: state, handle: handle, name: name}, nil
}

func (p *Program) Name() string {
	return p.name
}

func (p *Program) Handle() Handle {
	return p.handle
}

// UniformLocation resolves a uniform by name. Missing uniforms, including
// ones the compiler optimized out, return an invalid location.
func (p *Program) UniformLocation(name string) UniformLocation {
	return p.state.device.UniformLocation(p.handle, name)
}

// Bind makes the program current and returns the handle used to set its
// uniforms. The returned value goes stale as soon as any other program is
// bound through the same State.
func (p *Program) Bind() *BoundProgram {
	gen := p.state.useProgram(p.handle)
	return &BoundProgram{program: p, gen: gen}
}

// Release deletes the program. Safe to call more than once.
func (p *Program) Release() {
	if p == nil || p.released {
		return
	}
	p.released = true
	p.state.forgetProgram(p.handle)
	p.state.device.DeleteProgram(p.handle)
}

// BoundProgram sets uniforms on the currently bound program. Calls made
// after another program was bound are dropped and reported as diagnostics
// instead of silently writing into the wrong program.
type BoundProgram struct {
	program *Program
	gen     uint64
}

func (b *BoundProgram) current() bool {
	if b.program.state.isCurrent(b.program.handle, b.gen) {
		return true
	}
	b.program.state.Report(BackendDiagnostic{
		Name:    "STALE_PROGRAM_BINDING",
		Message: fmt.Sprintf("uniform write to %s after another program was bound", b.program.name),
	})
	return false
}

func (b *BoundProgram) SetInt(location UniformLocation, value int32) {
	if b.current() {
		b.program.state.device.SetUniformInt(location, value)
	}
}

func (b *BoundProgram) SetFloat(location UniformLocation, value float32) {
	if b.current() {
		b.program.state.device.SetUniformFloat(location, value)
	}
}

func (b *BoundProgram) SetBool(location UniformLocation, value bool) {
	v := int32(0)
	if value {
		v = 1
	}
	b.SetInt(location, v)
}

func (b *BoundProgram) SetVec2(location UniformLocation, value mgl32.Vec2) {
	if b.current() {
		b.program.state.device.SetUniformVec2(location, value)
	}
}

func (b *BoundProgram) SetVec3(location UniformLocation, value mgl32.Vec3) {
	if b.current() {
		b.program.state.device.SetUniformVec3(location, value)
	}
}

func (b *BoundProgram) SetVec4(location UniformLocation, value mgl32.Vec4) {
	if b.current() {
		b.program.state.device.SetUniformVec4(location, value)
	}
}

func (b *BoundProgram) SetMat4(location UniformLocation, value mgl32.Mat4) {
	if b.current() {
		b.program.state.device.SetUniformMat4(location, value)
	}
}

// SetColor converts an 8-bit color to a normalized vec4
func (b *BoundProgram) SetColor(location UniformLocation, c color.NRGBA) {
	b.SetVec4(location, mgl32.Vec4{
		float32(c.R) / 255,
		float32(c.G) / 255,
		float32(c.B) / 255,
		float32(c.A) / 255,
	})
}

// SetTexture binds t to unit and points the sampler uniform at it
func (b *BoundProgram) SetTexture(location UniformLocation, unit uint32, t *Texture) {
	if !b.current() {
		return
	}
	b.program.state.BindTexture(unit, t)
	b.program.state.device.SetUniformInt(location, int32(unit))
}
