// Package gpu wraps a graphics backend behind typed resources (textures,
// programs, framebuffers, geometry buffers) and an explicit binding context.
//
// Backend state such as the bound program, textures and framebuffer is
// global and mutable. Every pass receives a *State and performs all binding
// through it, so the order of bindings is visible at call sites.
package gpu

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Handle identifies a backend object. Zero is never a valid object; as a
// framebuffer it names the window's back buffer.
type Handle uint32

// PixelKind is the storage format of a texture
type PixelKind int

const (
	PixelR8 PixelKind = iota
	PixelRG8
	PixelRGB8
	PixelRGBA8
	PixelRGBA16F
	PixelF32
	PixelD24S8
)

var pixelKindNames = map[PixelKind]string{
	PixelR8:      "R8",
	PixelRG8:     "RG8",
	PixelRGB8:    "RGB8",
	PixelRGBA8:   "RGBA8",
	PixelRGBA16F: "RGBA16F",
	PixelF32:     "F32",
	PixelD24S8:   "D24S8",
}

func (k PixelKind) String() string {
	if name, ok := pixelKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("PixelKind(%d)", int(k))
}

// BytesPerPixel returns the size of one texel as uploaded by the CPU
func (k PixelKind) BytesPerPixel() int {
	switch k {
	case PixelR8:
		return 1
	case PixelRG8:
		return 2
	case PixelRGB8:
		return 3
	case PixelRGBA8, PixelF32, PixelD24S8:
		return 4
	case PixelRGBA16F:
		return 8
	default:
		return 0
	}
}

// IsDepth reports whether the kind can only be used as a depth attachment
func (k PixelKind) IsDepth() bool {
	return k == PixelF32 || k == PixelD24S8
}

// HasStencil reports whether the kind carries a stencil channel
func (k PixelKind) HasStencil() bool {
	return k == PixelD24S8
}

// Valid reports whether k is a known pixel kind
func (k PixelKind) Valid() bool {
	_, ok := pixelKindNames[k]
	return ok
}

// TextureKind describes texture dimensions. Only rectangles are supported.
type TextureKind struct {
	Width  int
	Height int
}

// Rectangle is a 2D texture kind of the given size
func Rectangle(width, height int) TextureKind {
	return TextureKind{Width: width, Height: height}
}

// TextureDesc is everything a backend needs to allocate a texture
type TextureDesc struct {
	Kind    TextureKind
	Pixel   PixelKind
	Mipmaps bool
}

// ByteSize is the number of bytes expected for a full upload
func (d TextureDesc) ByteSize() int {
	return d.Kind.Width * d.Kind.Height * d.Pixel.BytesPerPixel()
}

// AttachmentKind tells where a texture is attached on a framebuffer
type AttachmentKind int

const (
	AttachColor AttachmentKind = iota
	AttachDepth
	AttachDepthStencil
)

// Attachment binds a texture to a framebuffer slot. Color attachments are
// numbered in the order they appear.
type Attachment struct {
	Kind    AttachmentKind
	Texture Handle
}

// VertexAttribute is one float attribute inside an interleaved vertex
type VertexAttribute struct {
	Location   uint32
	Components int // 1..4 floats
	Offset     int // in floats
}

// VertexLayout describes an interleaved float vertex
type VertexLayout struct {
	Stride     int // in floats
	Attributes []VertexAttribute
}

// BufferUsage hints how often geometry is rewritten
type BufferUsage int

const (
	StaticDraw BufferUsage = iota
	DynamicDraw
	StreamDraw
)

// CompareFunc is used by depth and stencil tests
type CompareFunc int

const (
	CompareAlways CompareFunc = iota
	CompareNever
	CompareLess
	CompareLessEqual
	CompareEqual
	CompareNotEqual
	CompareGreater
	CompareGreaterEqual
)

// StencilOp is the action applied to the stencil value
type StencilOp int

const (
	StencilKeep StencilOp = iota
	StencilZero
	StencilReplace
	StencilIncr
	StencilDecr
	StencilInvert
)

// BlendMode selects a fixed blend equation
type BlendMode int

const (
	BlendNone BlendMode = iota
	// BlendAlpha is src*a + dst*(1-a)
	BlendAlpha
	// BlendAdditive is src + dst
	BlendAdditive
)

// StencilState configures the stencil test
type StencilState struct {
	Enabled   bool
	Func      CompareFunc
	Ref       int32
	Mask      uint32
	WriteMask uint32
	Fail      StencilOp
	DepthFail StencilOp
	Pass      StencilOp
}

// PipelineState is the fixed-function state applied before drawing
type PipelineState struct {
	DepthTest  bool
	DepthWrite bool
	DepthFunc  CompareFunc
	ColorWrite bool
	CullFace   bool
	Blend      BlendMode
	Stencil    StencilState
}

// DefaultPipelineState draws opaque geometry with depth testing
func DefaultPipelineState() PipelineState {
	return PipelineState{
		DepthTest:  true,
		DepthWrite: true,
		DepthFunc:  CompareLess,
		ColorWrite: true,
		Stencil: StencilState{
			Func:      CompareAlways,
			Mask:      0xFF,
			WriteMask: 0xFF,
		},
	}
}

// ClearValues selects which buffers of the bound framebuffer are cleared.
// Nil fields are left untouched.
type ClearValues struct {
	Color   *mgl32.Vec4
	Depth   *float32
	Stencil *int32
}

// ClearAll returns values clearing color, depth and stencil at once
func ClearAll(color mgl32.Vec4, depth float32, stencil int32) ClearValues {
	return ClearValues{Color: &color, Depth: &depth, Stencil: &stencil}
}

// UniformLocation addresses a uniform of a linked program. -1 means the
// uniform does not exist and writes to it are ignored.
type UniformLocation int32

// Valid reports whether the location refers to an active uniform
func (l UniformLocation) Valid() bool {
	return l >= 0
}

// Device is the backend contract. Implementations are not safe for
// concurrent use; calls happen on the thread owning the graphics context.
type Device interface {
	CreateTexture(desc TextureDesc, data []byte) (Handle, error)
	UploadTexture(texture Handle, desc TextureDesc, data []byte) error
	SetTextureAnisotropy(texture Handle, level float32)
	MaxAnisotropy() float32
	BindTexture(unit uint32, texture Handle)
	DeleteTexture(texture Handle)

	// CompileProgram compiles and links a program. Failures are returned as
	// *ShaderCompileError carrying the backend's info log.
	CompileProgram(vertexSource, fragmentSource string) (Handle, error)
	UniformLocation(program Handle, name string) UniformLocation
	UseProgram(program Handle)
	SetUniformInt(location UniformLocation, value int32)
	SetUniformFloat(location UniformLocation, value float32)
	SetUniformVec2(location UniformLocation, value mgl32.Vec2)
	SetUniformVec3(location UniformLocation, value mgl32.Vec3)
	SetUniformVec4(location UniformLocation, value mgl32.Vec4)
	SetUniformMat4(location UniformLocation, value mgl32.Mat4)
	DeleteProgram(program Handle)

	CreateFramebuffer(attachments []Attachment) (Handle, error)
	BindFramebuffer(framebuffer Handle)
	DeleteFramebuffer(framebuffer Handle)

	CreateGeometry(layout VertexLayout, usage BufferUsage) (Handle, error)
	UpdateGeometry(geometry Handle, vertices []float32, indices []uint32)
	// DrawGeometry draws count indices starting at offset as triangles
	DrawGeometry(geometry Handle, offset, count int)
	DeleteGeometry(geometry Handle)

	SetViewport(x, y, width, height int)
	ApplyPipelineState(state PipelineState)
	Clear(values ClearValues)
	// ReadPixels returns tightly packed RGBA8 rows, top row first, from the
	// bound framebuffer.
	ReadPixels(x, y, width, height int) ([]byte, error)

	// Errors drains backend error codes raised since the last call
	Errors() []BackendDiagnostic
}
