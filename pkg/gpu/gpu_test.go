package gpu_test

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumen/pkg/gpu"
	"lumen/pkg/gpu/headless"
)

const testVertex = `#version 410 core
layout(location = 0) in vec3 vertexPosition;
uniform mat4 worldViewProjection;
void main() { gl_Position = worldViewProjection * vec4(vertexPosition, 1.0); }
`

const testFragment = `#version 410 core
uniform sampler2D diffuseTexture;
uniform vec4 color;
out vec4 FragColor;
void main() { FragColor = color * texture(diffuseTexture, vec2(0.0)); }
`

func newState() (*gpu.State, *headless.Device) {
	dev := headless.NewDevice()
	return gpu.NewState(dev), dev
}

func TestTextureCreationValidatesSize(t *testing.T) {
	state, _ := newState()

	_, err := gpu.NewTexture(state, gpu.Rectangle(0, 4), gpu.PixelRGBA8, nil, false)
	var rce *gpu.ResourceCreationError
	require.ErrorAs(t, err, &rce)
	assert.Equal(t, "texture", rce.Resource)

	_, err = gpu.NewTexture(state, gpu.Rectangle(2, 2), gpu.PixelRGBA8, make([]byte, 3), false)
	require.ErrorAs(t, err, &rce)
	assert.Contains(t, rce.Reason, "expected 16 bytes")

	_, err = gpu.NewTexture(state, gpu.Rectangle(2, 2), gpu.PixelD24S8, nil, true)
	require.ErrorAs(t, err, &rce)
}

func TestTextureCreationPropagatesBackendFailure(t *testing.T) {
	state, dev := newState()
	dev.FailTexture = func(desc gpu.TextureDesc) error {
		if desc.Pixel == gpu.PixelRGBA16F {
			return errors.New("unsupported")
		}
		return nil
	}

	_, err := gpu.NewTexture(state, gpu.Rectangle(4, 4), gpu.PixelRGBA16F, nil, false)
	var rce *gpu.ResourceCreationError
	require.ErrorAs(t, err, &rce)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestTextureUploadAndRelease(t *testing.T) {
	state, dev := newState()
	tex, err := gpu.NewTexture(state, gpu.Rectangle(1, 1), gpu.PixelRGBA8, []byte{1, 2, 3, 4}, true)
	require.NoError(t, err)

	obj, ok := dev.Texture(tex.Handle())
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4}, obj.Data)

	require.NoError(t, tex.Upload([]byte{5, 6, 7, 8}))
	assert.Equal(t, []byte{5, 6, 7, 8}, obj.Data)
	assert.Equal(t, 2, dev.TextureUploads())
	assert.Error(t, tex.Upload([]byte{1}))

	tex.Release()
	tex.Release()
	_, ok = dev.Texture(tex.Handle())
	assert.False(t, ok)
	assert.Error(t, tex.Upload([]byte{5, 6, 7, 8}))
}

func TestAnisotropyIsClampedToBackendMaximum(t *testing.T) {
	state, dev := newState()
	dev.SetMaxAnisotropy(8)
	tex, err := gpu.NewTexture(state, gpu.Rectangle(1, 1), gpu.PixelRGBA8, nil, false)
	require.NoError(t, err)

	tex.SetAnisotropy(32)
	assert.Equal(t, float32(8), tex.Anisotropy())

	tex.SetAnisotropy(0)
	assert.Equal(t, float32(1), tex.Anisotropy())

	tex.SetMaxAnisotropy()
	obj, _ := dev.Texture(tex.Handle())
	assert.Equal(t, float32(8), obj.Anisotropy)
}

func TestProgramCompileErrorCarriesName(t *testing.T) {
	state, dev := newState()
	dev.FailCompile = func(vs, fs string) string { return "0:3: syntax error" }

	_, err := gpu.NewProgram(state, "FlatShader", testVertex, testFragment)
	var sce *gpu.ShaderCompileError
	require.ErrorAs(t, err, &sce)
	assert.Equal(t, "FlatShader", sce.Program)
	assert.Contains(t, sce.Error(), "syntax error")
}

func TestBoundProgramSetsUniforms(t *testing.T) {
	state, dev := newState()
	program, err := gpu.NewProgram(state, "Test", testVertex, testFragment)
	require.NoError(t, err)
	tex, err := gpu.NewTexture(state, gpu.Rectangle(1, 1), gpu.PixelRGBA8, nil, false)
	require.NoError(t, err)

	wvp := program.UniformLocation("worldViewProjection")
	colorLoc := program.UniformLocation("color")
	sampler := program.UniformLocation("diffuseTexture")
	require.True(t, wvp.Valid())
	assert.False(t, program.UniformLocation("missing").Valid())

	bound := program.Bind()
	bound.SetMat4(wvp, mgl32.Ident4())
	bound.SetVec4(colorLoc, mgl32.Vec4{1, 0, 0, 1})
	bound.SetTexture(sampler, 3, tex)
	bound.SetFloat(program.UniformLocation("missing"), 1)

	obj, _ := dev.Program(program.Handle())
	assert.Equal(t, mgl32.Ident4(), obj.Values[wvp])
	assert.Equal(t, int32(3), obj.Values[sampler])
	assert.Equal(t, tex.Handle(), dev.BoundTexture(3))
	assert.Empty(t, state.Diagnostics())
}

func TestStaleBoundProgramIsDiagnosed(t *testing.T) {
	state, dev := newState()
	first, err := gpu.NewProgram(state, "First", testVertex, testFragment)
	require.NoError(t, err)
	second, err := gpu.NewProgram(state, "Second", testVertex, testFragment)
	require.NoError(t, err)

	stale := first.Bind()
	second.Bind()
	stale.SetVec4(first.UniformLocation("color"), mgl32.Vec4{1, 1, 1, 1})

	obj, _ := dev.Program(second.Handle())
	assert.Empty(t, obj.Values, "write must not leak into the bound program")

	diags := state.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, "STALE_PROGRAM_BINDING", diags[0].Name)
	assert.Contains(t, diags[0].Message, "First")
}

func TestFramebufferAttachmentsMustMatch(t *testing.T) {
	state, _ := newState()
	depth, err := gpu.NewTexture(state, gpu.Rectangle(4, 4), gpu.PixelD24S8, nil, false)
	require.NoError(t, err)
	small, err := gpu.NewTexture(state, gpu.Rectangle(2, 2), gpu.PixelRGBA8, nil, false)
	require.NoError(t, err)
	colorTex, err := gpu.NewTexture(state, gpu.Rectangle(4, 4), gpu.PixelRGBA8, nil, false)
	require.NoError(t, err)

	_, err = gpu.NewFrameBuffer(state, depth, []*gpu.Texture{small})
	assert.Error(t, err)

	_, err = gpu.NewFrameBuffer(state, colorTex, nil)
	assert.Error(t, err, "color texture as depth attachment")

	fb, err := gpu.NewFrameBuffer(state, depth, []*gpu.Texture{colorTex})
	require.NoError(t, err)
	assert.Equal(t, 1, fb.ColorCount())
	assert.Same(t, depth, fb.DepthStencil())
	assert.Nil(t, fb.Color(1))
}

func TestClearWritesColorAndReadPixels(t *testing.T) {
	state, dev := newState()
	colorTex, err := gpu.NewTexture(state, gpu.Rectangle(2, 1), gpu.PixelRGBA8, nil, false)
	require.NoError(t, err)
	fb, err := gpu.NewFrameBuffer(state, nil, []*gpu.Texture{colorTex})
	require.NoError(t, err)

	state.SetFramebuffer(fb)
	state.ClearColor(mgl32.Vec4{1, 0, 0, 1})

	pix, err := state.ReadPixels(0, 0, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{255, 0, 0, 255, 255, 0, 0, 255}, pix)
	require.Len(t, dev.Clears(), 1)
	assert.Equal(t, fb.Handle(), dev.Clears()[0].Framebuffer)

	fb.Release()
	assert.Equal(t, gpu.Handle(0), state.Framebuffer())
}

func TestGeometryValidatesIndices(t *testing.T) {
	state, dev := newState()
	layout := gpu.VertexLayout{Stride: 3, Attributes: []gpu.VertexAttribute{{Location: 0, Components: 3}}}
	geom, err := gpu.NewGeometryBuffer(state, layout, gpu.StaticDraw)
	require.NoError(t, err)

	tri := []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}
	assert.Error(t, geom.Set(tri, []uint32{0, 1, 3}))
	assert.Error(t, geom.Set(tri[:4], []uint32{0, 1, 2}))
	require.NoError(t, geom.Set(tri, []uint32{0, 1, 2}))
	assert.Equal(t, 3, geom.VertexCount())

	assert.Error(t, geom.DrawPart(3, 3))
	require.NoError(t, geom.DrawPart(0, 3))
	assert.Len(t, dev.Draws(), 1)

	_, err = gpu.NewGeometryBuffer(state, gpu.VertexLayout{Stride: 2, Attributes: []gpu.VertexAttribute{{Components: 3}}}, gpu.StaticDraw)
	assert.Error(t, err)
}

func TestBackendErrorsSurfaceAsDiagnostics(t *testing.T) {
	state, dev := newState()
	dev.RaiseError(headless.ErrInvalidEnum)

	diags := state.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, "GL_INVALID_ENUM", diags[0].Name)
	assert.Empty(t, state.Diagnostics())
}

func TestPixelsFromImage(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 2, 2))
	gray.SetGray(1, 0, color.Gray{Y: 200})
	kind, size, pix := gpu.PixelsFromImage(gray)
	assert.Equal(t, gpu.PixelR8, kind)
	assert.Equal(t, gpu.Rectangle(2, 2), size)
	assert.Equal(t, []byte{0, 200, 0, 0}, pix)

	rgba := image.NewRGBA(image.Rect(0, 0, 1, 1))
	rgba.Set(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	kind, _, pix = gpu.PixelsFromImage(rgba)
	assert.Equal(t, gpu.PixelRGBA8, kind)
	assert.Equal(t, []byte{10, 20, 30, 255}, pix)
}
