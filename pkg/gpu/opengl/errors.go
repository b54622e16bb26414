package opengl

import (
	"github.com/go-gl/gl/v4.1-core/gl"

	"lumen/pkg/gpu"
)

// Not exposed by the 4.1 core bindings
const (
	glStackOverflow  = 0x0503
	glStackUnderflow = 0x0504
)

var errorNames = map[uint32]string{
	gl.INVALID_ENUM:                  "GL_INVALID_ENUM",
	gl.INVALID_VALUE:                 "GL_INVALID_VALUE",
	gl.INVALID_OPERATION:             "GL_INVALID_OPERATION",
	glStackOverflow:                  "GL_STACK_OVERFLOW",
	glStackUnderflow:                 "GL_STACK_UNDERFLOW",
	gl.OUT_OF_MEMORY:                 "GL_OUT_OF_MEMORY",
	gl.INVALID_FRAMEBUFFER_OPERATION: "GL_INVALID_FRAMEBUFFER_OPERATION",
}

// errorName maps a glGetError code to its symbolic name
func errorName(code uint32) string {
	if name, ok := errorNames[code]; ok {
		return name
	}
	return "UNKNOWN"
}

// Errors drains the GL error queue. A broken context can report the same
// error forever, so the number of reads is bounded.
func (d *Device) Errors() []gpu.BackendDiagnostic {
	d.collectErrors()
	var out []gpu.BackendDiagnostic
	for _, code := range d.pending {
		out = append(out, gpu.BackendDiagnostic{Code: code, Name: errorName(code)})
	}
	d.pending = d.pending[:0]
	return out
}

func (d *Device) collectErrors() {
	for i := 0; i < 16; i++ {
		code := gl.GetError()
		if code == gl.NO_ERROR {
			return
		}
		d.pending = append(d.pending, code)
	}
}
