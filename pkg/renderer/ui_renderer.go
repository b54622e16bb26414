package renderer

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"

	"lumen/pkg/gpu"
	"lumen/pkg/scene"
	"lumen/pkg/ui"
)

// uiLayout is position, texture coordinates and a normalized color
var uiLayout = gpu.VertexLayout{
	Stride: 8,
	Attributes: []gpu.VertexAttribute{
		{Location: 0, Components: 2, Offset: 0},
		{Location: 1, Components: 2, Offset: 2},
		{Location: 2, Components: 4, Offset: 4},
	},
}

type uiShader struct {
	program             *gpu.Program
	worldViewProjection gpu.UniformLocation
	diffuseTexture      gpu.UniformLocation
	isFont              gpu.UniformLocation
}

func newUIShader(state *gpu.State) (*uiShader, error) {
	program, err := gpu.NewProgram(state, "UIShader", uiVertexShaderSource, uiFragmentShaderSource)
	if err != nil {
		return nil, err
	}
	return &uiShader{
		program:             program,
		worldViewProjection: program.UniformLocation("worldViewProjection"),
		diffuseTexture:      program.UniformLocation("diffuseTexture"),
		isFont:              program.UniformLocation("isFont"),
	}, nil
}

// clipPipeline increments the stencil inside the clip shape where the
// parent level passed, without touching color
func clipPipeline(nesting uint8) gpu.PipelineState {
	return gpu.PipelineState{
		ColorWrite: false,
		Blend:      gpu.BlendNone,
		Stencil: gpu.StencilState{
			Enabled:   true,
			Func:      gpu.CompareEqual,
			Ref:       int32(nesting) - 1,
			Mask:      0xFF,
			WriteMask: 0xFF,
			Fail:      gpu.StencilKeep,
			DepthFail: gpu.StencilKeep,
			Pass:      gpu.StencilIncr,
		},
	}
}

// uiGeometryPipeline draws where the stencil matches the nesting level.
// Level 0 is drawn everywhere.
func uiGeometryPipeline(nesting uint8) gpu.PipelineState {
	return gpu.PipelineState{
		ColorWrite: true,
		Blend:      gpu.BlendAlpha,
		Stencil: gpu.StencilState{
			Enabled:   nesting != 0,
			Func:      gpu.CompareEqual,
			Ref:       int32(nesting),
			Mask:      0xFF,
			WriteMask: 0,
			Fail:      gpu.StencilKeep,
			DepthFail: gpu.StencilKeep,
			Pass:      gpu.StencilKeep,
		},
	}
}

// UIRenderer replays a drawing context onto the back buffer
type UIRenderer struct {
	shader   *uiShader
	geometry *gpu.GeometryBuffer

	vertices []float32
	indices  []uint32
}

func NewUIRenderer(state *gpu.State) (*UIRenderer, error) {
	shader, err := newUIShader(state)
	if err != nil {
		return nil, err
	}
	geometry, err := gpu.NewGeometryBuffer(state, uiLayout, gpu.StreamDraw)
	if err != nil {
		shader.program.Release()
		return nil, err
	}
	return &UIRenderer{shader: shader, geometry: geometry}, nil
}

// Render draws every command of dc in order. The first command that cannot
// be drawn stops the pass with a *UIRenderError; commands before it stay
// drawn.
func (r *UIRenderer) Render(state *gpu.State, width, height int, dc *ui.DrawingContext, whiteDummy *gpu.Texture) error {
	if dc == nil || dc.IsEmpty() {
		return nil
	}

	r.vertices = r.vertices[:0]
	for _, v := range dc.Vertices() {
		r.vertices = append(r.vertices,
			v.Pos.X(), v.Pos.Y(), v.TexCoord.X(), v.TexCoord.Y(),
			float32(v.Color.R)/255, float32(v.Color.G)/255, float32(v.Color.B)/255, float32(v.Color.A)/255)
	}
	r.indices = r.indices[:0]
	for _, t := range dc.Triangles() {
		r.indices = append(r.indices, t[0], t[1], t[2])
	}
	if err := r.geometry.Set(r.vertices, r.indices); err != nil {
		return &UIRenderError{CommandIndex: -1, Reason: "invalid geometry", Err: err}
	}

	state.SetFramebuffer(nil)
	state.SetViewport(0, 0, width, height)
	state.Apply(gpu.DefaultPipelineState())
	zero := int32(0)
	state.Clear(gpu.ClearValues{Stencil: &zero})

	shader := r.shader
	bound := shader.program.Bind()
	bound.SetMat4(shader.worldViewProjection, mgl32.Ortho(0, float32(width), float32(height), 0, -1, 1))

	triangles := len(dc.Triangles())
	for i, cmd := range dc.Commands() {
		if cmd.TriangleStart < 0 || cmd.TriangleCount < 0 || cmd.TriangleStart+cmd.TriangleCount > triangles {
			return &UIRenderError{CommandIndex: i, Reason: "triangle range outside the drawing context"}
		}

		switch cmd.Kind {
		case ui.CommandClip:
			if cmd.Nesting == 0 {
				return &UIRenderError{CommandIndex: i, Reason: "clip command at nesting level 0"}
			}
			state.Apply(clipPipeline(cmd.Nesting))
			if cmd.Nesting == 1 {
				state.Clear(gpu.ClearValues{Stencil: &zero})
			}
			bound.SetTexture(shader.diffuseTexture, 0, whiteDummy)
			bound.SetBool(shader.isFont, false)
		case ui.CommandGeometry:
			texture, isFont, err := r.resolveTexture(state, cmd.Texture, whiteDummy)
			if err != nil {
				return &UIRenderError{CommandIndex: i, Reason: "texture unavailable", Err: err}
			}
			state.Apply(uiGeometryPipeline(cmd.Nesting))
			bound.SetTexture(shader.diffuseTexture, 0, texture)
			bound.SetBool(shader.isFont, isFont)
		default:
			return &UIRenderError{CommandIndex: i, Reason: "unknown command kind"}
		}

		if err := r.geometry.DrawPart(cmd.TriangleStart*3, cmd.TriangleCount*3); err != nil {
			return &UIRenderError{CommandIndex: i, Reason: "draw failed", Err: err}
		}
	}
	return nil
}

// resolveTexture uploads font atlases and images on first use
func (r *UIRenderer) resolveTexture(state *gpu.State, t ui.CommandTexture, whiteDummy *gpu.Texture) (*gpu.Texture, bool, error) {
	upload := func(kind gpu.TextureKind, pixel gpu.PixelKind, bytes []byte) (*gpu.Texture, error) {
		return gpu.NewTexture(state, kind, pixel, bytes, false)
	}

	switch t.Kind {
	case ui.TextureNone:
		return whiteDummy, false, nil
	case ui.TextureFont:
		if err := t.Font.Validate(); err != nil {
			return nil, false, err
		}
		tex, err := residentTexture(t.Font.Atlas(), upload)
		return tex, true, err
	case ui.TextureImage:
		if t.Image == nil {
			return nil, false, errors.New("image command without a texture")
		}
		tex, err := residentTexture(t.Image, upload)
		return tex, false, err
	default:
		return nil, false, errors.New("unknown texture kind")
	}
}

func residentTexture(tex *scene.Texture, upload func(gpu.TextureKind, gpu.PixelKind, []byte) (*gpu.Texture, error)) (*gpu.Texture, error) {
	if _, err := tex.EnsureResident(upload); err != nil {
		return nil, err
	}
	return tex.GPUTexture(), nil
}

// Release frees the shader and the UI buffer
func (r *UIRenderer) Release() {
	r.geometry.Release()
	r.shader.program.Release()
}
