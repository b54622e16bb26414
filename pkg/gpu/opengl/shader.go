package opengl

import (
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"lumen/pkg/gpu"
)

// CompileProgram compiles both stages and links them
func (d *Device) CompileProgram(vertexSource, fragmentSource string) (gpu.Handle, error) {
	vertexShader, err := compileShader(vertexSource, gl.VERTEX_SHADER, gpu.StageVertex)
	if err != nil {
		return 0, err
	}

	fragmentShader, err := compileShader(fragmentSource, gl.FRAGMENT_SHADER, gpu.StageFragment)
	if err != nil {
		gl.DeleteShader(vertexShader)
		return 0, err
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))

		gl.DeleteProgram(program)
		gl.DeleteShader(vertexShader)
		gl.DeleteShader(fragmentShader)

		return 0, &gpu.ShaderCompileError{Stage: gpu.StageLink, Log: strings.TrimRight(log, "\x00")}
	}

	// Shaders are owned by the program once linked
	gl.DetachShader(program, vertexShader)
	gl.DetachShader(program, fragmentShader)
	gl.DeleteShader(vertexShader)
	gl.DeleteShader(fragmentShader)

	return gpu.Handle(program), nil
}

func compileShader(source string, shaderType uint32, stage gpu.ShaderStage) (uint32, error) {
	shader := gl.CreateShader(shaderType)

	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))

		gl.DeleteShader(shader)

		return 0, &gpu.ShaderCompileError{Stage: stage, Log: strings.TrimRight(log, "\x00")}
	}

	return shader, nil
}

func (d *Device) UniformLocation(program gpu.Handle, name string) gpu.UniformLocation {
	return gpu.UniformLocation(gl.GetUniformLocation(uint32(program), gl.Str(name+"\x00")))
}

func (d *Device) UseProgram(program gpu.Handle) {
	gl.UseProgram(uint32(program))
}

func (d *Device) SetUniformInt(location gpu.UniformLocation, value int32) {
	gl.Uniform1i(int32(location), value)
}

func (d *Device) SetUniformFloat(location gpu.UniformLocation, value float32) {
	gl.Uniform1f(int32(location), value)
}

func (d *Device) SetUniformVec2(location gpu.UniformLocation, value mgl32.Vec2) {
	gl.Uniform2fv(int32(location), 1, &value[0])
}

func (d *Device) SetUniformVec3(location gpu.UniformLocation, value mgl32.Vec3) {
	gl.Uniform3fv(int32(location), 1, &value[0])
}

func (d *Device) SetUniformVec4(location gpu.UniformLocation, value mgl32.Vec4) {
	gl.Uniform4fv(int32(location), 1, &value[0])
}

func (d *Device) SetUniformMat4(location gpu.UniformLocation, value mgl32.Mat4) {
	gl.UniformMatrix4fv(int32(location), 1, false, &value[0])
}

func (d *Device) DeleteProgram(program gpu.Handle) {
	gl.DeleteProgram(uint32(program))
}
