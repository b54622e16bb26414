// Package headless implements gpu.Device without a graphics context. It
// keeps every object in memory and records draws and clears together with
// the state bound at the time, so rendering can be verified in tests and on
// machines without a display.
package headless

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"lumen/pkg/gpu"
)

// Backend error codes, matching the OpenGL values
const (
	ErrInvalidEnum      uint32 = 0x0500
	ErrInvalidValue     uint32 = 0x0501
	ErrInvalidOperation uint32 = 0x0502
	ErrOutOfMemory      uint32 = 0x0505
)

var errorNames = map[uint32]string{
	ErrInvalidEnum:      "GL_INVALID_ENUM",
	ErrInvalidValue:     "GL_INVALID_VALUE",
	ErrInvalidOperation: "GL_INVALID_OPERATION",
	ErrOutOfMemory:      "GL_OUT_OF_MEMORY",
}

var uniformPattern = regexp.MustCompile(`uniform\s+\w+\s+(\w+)\s*(?:\[\s*\d+\s*\])?\s*;`)

// TextureObject is the in-memory state of a texture
type TextureObject struct {
	Desc       gpu.TextureDesc
	Data       []byte
	Anisotropy float32
	Uploads    int
}

// ProgramObject is the in-memory state of a linked program
type ProgramObject struct {
	VertexSource   string
	FragmentSource string
	Uniforms       map[string]gpu.UniformLocation
	Values         map[gpu.UniformLocation]interface{}
}

func (p *ProgramObject) nameOf(loc gpu.UniformLocation) string {
	for name, l := range p.Uniforms {
		if l == loc {
			return name
		}
	}
	return ""
}

// FramebufferObject is the in-memory state of a framebuffer
type FramebufferObject struct {
	Attachments []gpu.Attachment
}

// GeometryObject is the in-memory state of a geometry buffer
type GeometryObject struct {
	Layout   gpu.VertexLayout
	Usage    gpu.BufferUsage
	Vertices []float32
	Indices  []uint32
	Updates  int
}

// DrawCall is a snapshot of the state a draw was issued with
type DrawCall struct {
	Program     gpu.Handle
	Framebuffer gpu.Handle
	Geometry    gpu.Handle
	Offset      int
	Count       int
	Textures    map[uint32]gpu.Handle
	Uniforms    map[string]interface{}
	Pipeline    gpu.PipelineState
	Viewport    [4]int
}

// Texture returns the handle bound to the unit a sampler uniform points at
func (d DrawCall) Texture(sampler string) gpu.Handle {
	unit, ok := d.Uniforms[sampler].(int32)
	if !ok {
		return 0
	}
	return d.Textures[uint32(unit)]
}

// ClearCall records a clear of a framebuffer
type ClearCall struct {
	Framebuffer gpu.Handle
	Values      gpu.ClearValues
}

// Device is the recording backend. The exported hooks inject failures.
type Device struct {
	// FailCompile returns a non-empty log to make compilation fail
	FailCompile func(vertexSource, fragmentSource string) string
	// FailTexture makes texture creation fail when it returns an error
	FailTexture func(desc gpu.TextureDesc) error

	maxAnisotropy float32
	next          gpu.Handle

	textures     map[gpu.Handle]*TextureObject
	programs     map[gpu.Handle]*ProgramObject
	framebuffers map[gpu.Handle]*FramebufferObject
	geometries   map[gpu.Handle]*GeometryObject

	program     gpu.Handle
	framebuffer gpu.Handle
	units       map[uint32]gpu.Handle
	viewport    [4]int
	pipeline    gpu.PipelineState

	backBuffer       []byte
	backBufferWidth  int
	backBufferHeight int

	draws          []DrawCall
	clears         []ClearCall
	textureUploads int
	errors         []uint32
}

// NewDevice creates an empty recording device
func NewDevice() *Device {
	return &Device{
		maxAnisotropy: 16,
		textures:      make(map[gpu.Handle]*TextureObject),
		programs:      make(map[gpu.Handle]*ProgramObject),
		framebuffers:  make(map[gpu.Handle]*FramebufferObject),
		geometries:    make(map[gpu.Handle]*GeometryObject),
		units:         make(map[uint32]gpu.Handle),
		pipeline:      gpu.DefaultPipelineState(),
	}
}

func (d *Device) alloc() gpu.Handle {
	d.next++
	return d.next
}

// RaiseError queues a backend error code, as a driver would
func (d *Device) RaiseError(code uint32) {
	d.errors = append(d.errors, code)
}

// SetMaxAnisotropy changes the level reported by MaxAnisotropy
func (d *Device) SetMaxAnisotropy(level float32) {
	d.maxAnisotropy = level
}

func (d *Device) CreateTexture(desc gpu.TextureDesc, data []byte) (gpu.Handle, error) {
	if d.FailTexture != nil {
		if err := d.FailTexture(desc); err != nil {
			return 0, err
		}
	}
	obj := &TextureObject{Desc: desc, Anisotropy: 1}
	if data != nil {
		obj.Data = append([]byte(nil), data...)
		obj.Uploads++
		d.textureUploads++
	} else {
		obj.Data = make([]byte, desc.ByteSize())
	}
	h := d.alloc()
	d.textures[h] = obj
	// creation leaves the texture bound to unit 0
	d.units[0] = h
	return h, nil
}

func (d *Device) UploadTexture(texture gpu.Handle, desc gpu.TextureDesc, data []byte) error {
	obj, ok := d.textures[texture]
	if !ok {
		d.RaiseError(ErrInvalidValue)
		return fmt.Errorf("unknown texture %d", texture)
	}
	obj.Data = append(obj.Data[:0], data...)
	obj.Uploads++
	d.textureUploads++
	d.units[0] = texture
	return nil
}

func (d *Device) SetTextureAnisotropy(texture gpu.Handle, level float32) {
	if obj, ok := d.textures[texture]; ok {
		obj.Anisotropy = level
		d.units[0] = texture
	}
}

func (d *Device) MaxAnisotropy() float32 {
	return d.maxAnisotropy
}

func (d *Device) BindTexture(unit uint32, texture gpu.Handle) {
	if texture != 0 {
		if _, ok := d.textures[texture]; !ok {
			d.RaiseError(ErrInvalidValue)
			return
		}
	}
	d.units[unit] = texture
}

func (d *Device) DeleteTexture(texture gpu.Handle) {
	delete(d.textures, texture)
	for unit, h := range d.units {
		if h == texture {
			d.units[unit] = 0
		}
	}
}

func (d *Device) CompileProgram(vertexSource, fragmentSource string) (gpu.Handle, error) {
	if d.FailCompile != nil {
		if log := d.FailCompile(vertexSource, fragmentSource); log != "" {
			return 0, &gpu.ShaderCompileError{Stage: gpu.StageFragment, Log: log}
		}
	}

	obj := &ProgramObject{
		VertexSource:   vertexSource,
		FragmentSource: fragmentSource,
		Uniforms:       make(map[string]gpu.UniformLocation),
		Values:         make(map[gpu.UniformLocation]interface{}),
	}
	next := gpu.UniformLocation(0)
	for _, src := range []string{vertexSource, fragmentSource} {
		for _, m := range uniformPattern.FindAllStringSubmatch(src, -1) {
			if _, ok := obj.Uniforms[m[1]]; !ok {
				obj.Uniforms[m[1]] = next
				next++
			}
		}
	}

	h := d.alloc()
	d.programs[h] = obj
	return h, nil
}

func (d *Device) UniformLocation(program gpu.Handle, name string) gpu.UniformLocation {
	obj, ok := d.programs[program]
	if !ok {
		d.RaiseError(ErrInvalidValue)
		return -1
	}
	if loc, ok := obj.Uniforms[name]; ok {
		return loc
	}
	return -1
}

func (d *Device) UseProgram(program gpu.Handle) {
	if program != 0 {
		if _, ok := d.programs[program]; !ok {
			d.RaiseError(ErrInvalidValue)
			return
		}
	}
	d.program = program
}

func (d *Device) setUniform(location gpu.UniformLocation, value interface{}) {
	if !location.Valid() {
		return
	}
	obj, ok := d.programs[d.program]
	if !ok {
		d.RaiseError(ErrInvalidOperation)
		return
	}
	obj.Values[location] = value
}

func (d *Device) SetUniformInt(location gpu.UniformLocation, value int32) {
	d.setUniform(location, value)
}

func (d *Device) SetUniformFloat(location gpu.UniformLocation, value float32) {
	d.setUniform(location, value)
}

func (d *Device) SetUniformVec2(location gpu.UniformLocation, value mgl32.Vec2) {
	d.setUniform(location, value)
}

func (d *Device) SetUniformVec3(location gpu.UniformLocation, value mgl32.Vec3) {
	d.setUniform(location, value)
}

func (d *Device) SetUniformVec4(location gpu.UniformLocation, value mgl32.Vec4) {
	d.setUniform(location, value)
}

func (d *Device) SetUniformMat4(location gpu.UniformLocation, value mgl32.Mat4) {
	d.setUniform(location, value)
}

func (d *Device) DeleteProgram(program gpu.Handle) {
	delete(d.programs, program)
	if d.program == program {
		d.program = 0
	}
}

func (d *Device) CreateFramebuffer(attachments []gpu.Attachment) (gpu.Handle, error) {
	for _, a := range attachments {
		if _, ok := d.textures[a.Texture]; !ok {
			return 0, fmt.Errorf("framebuffer incomplete: attachment %d does not exist", a.Texture)
		}
	}
	h := d.alloc()
	d.framebuffers[h] = &FramebufferObject{Attachments: append([]gpu.Attachment(nil), attachments...)}
	return h, nil
}

func (d *Device) BindFramebuffer(framebuffer gpu.Handle) {
	if framebuffer != 0 {
		if _, ok := d.framebuffers[framebuffer]; !ok {
			d.RaiseError(ErrInvalidOperation)
			return
		}
	}
	d.framebuffer = framebuffer
}

func (d *Device) DeleteFramebuffer(framebuffer gpu.Handle) {
	delete(d.framebuffers, framebuffer)
	if d.framebuffer == framebuffer {
		d.framebuffer = 0
	}
}

func (d *Device) CreateGeometry(layout gpu.VertexLayout, usage gpu.BufferUsage) (gpu.Handle, error) {
	h := d.alloc()
	d.geometries[h] = &GeometryObject{Layout: layout, Usage: usage}
	return h, nil
}

func (d *Device) UpdateGeometry(geometry gpu.Handle, vertices []float32, indices []uint32) {
	obj, ok := d.geometries[geometry]
	if !ok {
		d.RaiseError(ErrInvalidValue)
		return
	}
	obj.Vertices = append(obj.Vertices[:0], vertices...)
	obj.Indices = append(obj.Indices[:0], indices...)
	obj.Updates++
}

func (d *Device) DrawGeometry(geometry gpu.Handle, offset, count int) {
	if _, ok := d.geometries[geometry]; !ok {
		d.RaiseError(ErrInvalidValue)
		return
	}
	call := DrawCall{
		Program:     d.program,
		Framebuffer: d.framebuffer,
		Geometry:    geometry,
		Offset:      offset,
		Count:       count,
		Textures:    make(map[uint32]gpu.Handle, len(d.units)),
		Uniforms:    make(map[string]interface{}),
		Pipeline:    d.pipeline,
		Viewport:    d.viewport,
	}
	for unit, h := range d.units {
		if h != 0 {
			call.Textures[unit] = h
		}
	}
	if obj, ok := d.programs[d.program]; ok {
		for loc, v := range obj.Values {
			call.Uniforms[obj.nameOf(loc)] = v
		}
	} else {
		d.RaiseError(ErrInvalidOperation)
	}
	d.draws = append(d.draws, call)
}

func (d *Device) DeleteGeometry(geometry gpu.Handle) {
	delete(d.geometries, geometry)
}

func (d *Device) SetViewport(x, y, width, height int) {
	if width < 0 || height < 0 {
		d.RaiseError(ErrInvalidValue)
		return
	}
	d.viewport = [4]int{x, y, width, height}
}

func (d *Device) ApplyPipelineState(state gpu.PipelineState) {
	d.pipeline = state
}

// Clear records the call and writes the clear color into RGBA8 color
// targets. Depth and stencil contents are not simulated.
func (d *Device) Clear(values gpu.ClearValues) {
	d.clears = append(d.clears, ClearCall{Framebuffer: d.framebuffer, Values: values})
	if values.Color == nil || !d.pipeline.ColorWrite {
		return
	}
	rgba := colorBytes(*values.Color)

	if d.framebuffer == 0 {
		w, h := d.viewport[2], d.viewport[3]
		if w != d.backBufferWidth || h != d.backBufferHeight {
			d.backBuffer = make([]byte, w*h*4)
			d.backBufferWidth, d.backBufferHeight = w, h
		}
		fill(d.backBuffer, rgba)
		return
	}

	for _, a := range d.framebuffers[d.framebuffer].Attachments {
		if a.Kind != gpu.AttachColor {
			continue
		}
		if tex, ok := d.textures[a.Texture]; ok && tex.Desc.Pixel == gpu.PixelRGBA8 {
			fill(tex.Data, rgba)
		}
	}
}

// UndefinedByte fills a discarded back buffer
const UndefinedByte = 0xcd

// DiscardBackBuffer overwrites the back buffer with UndefinedByte
func (d *Device) DiscardBackBuffer() {
	fill(d.backBuffer, [4]byte{UndefinedByte, UndefinedByte, UndefinedByte, UndefinedByte})
}

func colorBytes(c mgl32.Vec4) [4]byte {
	var out [4]byte
	for i := range out {
		v := c[i]
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		out[i] = byte(v*255 + 0.5)
	}
	return out
}

func fill(pix []byte, rgba [4]byte) {
	for i := 0; i+3 < len(pix); i += 4 {
		copy(pix[i:i+4], rgba[:])
	}
}

// ReadPixels copies from the first RGBA8 color attachment of the bound
// framebuffer, or from the back buffer.
func (d *Device) ReadPixels(x, y, width, height int) ([]byte, error) {
	var src []byte
	var srcWidth, srcHeight int

	if d.framebuffer == 0 {
		src, srcWidth, srcHeight = d.backBuffer, d.backBufferWidth, d.backBufferHeight
	} else {
		for _, a := range d.framebuffers[d.framebuffer].Attachments {
			tex := d.textures[a.Texture]
			if a.Kind == gpu.AttachColor && tex != nil && tex.Desc.Pixel == gpu.PixelRGBA8 {
				src, srcWidth, srcHeight = tex.Data, tex.Desc.Kind.Width, tex.Desc.Kind.Height
				break
			}
		}
	}
	if src == nil {
		return nil, errors.New("bound framebuffer has no readable color attachment")
	}
	if x < 0 || y < 0 || x+width > srcWidth || y+height > srcHeight {
		return nil, fmt.Errorf("read rectangle %dx%d+%d+%d outside %dx%d", width, height, x, y, srcWidth, srcHeight)
	}

	out := make([]byte, 0, width*height*4)
	for row := y; row < y+height; row++ {
		start := (row*srcWidth + x) * 4
		out = append(out, src[start:start+width*4]...)
	}
	return out, nil
}

func (d *Device) Errors() []gpu.BackendDiagnostic {
	if len(d.errors) == 0 {
		return nil
	}
	out := make([]gpu.BackendDiagnostic, 0, len(d.errors))
	for _, code := range d.errors {
		name, ok := errorNames[code]
		if !ok {
			name = "UNKNOWN"
		}
		out = append(out, gpu.BackendDiagnostic{Code: code, Name: name})
	}
	d.errors = nil
	return out
}

// Draws returns every draw recorded since the last Reset
func (d *Device) Draws() []DrawCall {
	return d.draws
}

// DrawsWith returns draws issued while program was bound
func (d *Device) DrawsWith(program gpu.Handle) []DrawCall {
	var out []DrawCall
	for _, c := range d.draws {
		if c.Program == program {
			out = append(out, c)
		}
	}
	return out
}

// Clears returns every clear recorded since the last Reset
func (d *Device) Clears() []ClearCall {
	return d.clears
}

// TextureUploads counts texture creations with data plus explicit uploads
func (d *Device) TextureUploads() int {
	return d.textureUploads
}

// Texture returns the in-memory state of a live texture
func (d *Device) Texture(h gpu.Handle) (*TextureObject, bool) {
	t, ok := d.textures[h]
	return t, ok
}

// Program returns the in-memory state of a live program
func (d *Device) Program(h gpu.Handle) (*ProgramObject, bool) {
	p, ok := d.programs[h]
	return p, ok
}

// Geometry returns the in-memory state of a live geometry buffer
func (d *Device) Geometry(h gpu.Handle) (*GeometryObject, bool) {
	g, ok := d.geometries[h]
	return g, ok
}

// Framebuffer returns the in-memory state of a live framebuffer
func (d *Device) Framebuffer(h gpu.Handle) (*FramebufferObject, bool) {
	f, ok := d.framebuffers[h]
	return f, ok
}

// LiveTextures returns the handles of all textures not yet deleted, sorted
func (d *Device) LiveTextures() []gpu.Handle {
	out := make([]gpu.Handle, 0, len(d.textures))
	for h := range d.textures {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// LiveObjects counts every backend object not yet deleted
func (d *Device) LiveObjects() int {
	return len(d.textures) + len(d.programs) + len(d.framebuffers) + len(d.geometries)
}

// BoundTexture returns the texture bound to a unit
func (d *Device) BoundTexture(unit uint32) gpu.Handle {
	return d.units[unit]
}

// BoundProgram returns the current program
func (d *Device) BoundProgram() gpu.Handle {
	return d.program
}

// BoundFramebuffer returns the current framebuffer
func (d *Device) BoundFramebuffer() gpu.Handle {
	return d.framebuffer
}

// Reset forgets recorded draws and clears but keeps all objects
func (d *Device) Reset() {
	d.draws = nil
	d.clears = nil
}
