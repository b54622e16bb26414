package renderer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"lumen/internal/logger"
	"lumen/pkg/gpu"
	"lumen/pkg/scene"
)

// gbufferTargets are the frame-sized textures and the framebuffers built on
// them. The lit frame texture shares the G-Buffer depth-stencil so later
// passes depth test against scene geometry.
type gbufferTargets struct {
	width, height int

	depthStencil *gpu.Texture
	diffuse      *gpu.Texture
	normal       *gpu.Texture
	frame        *gpu.Texture

	geometry *gpu.FrameBuffer
	lit      *gpu.FrameBuffer
	// colorOnly draws into the frame texture while the depth texture is
	// bound for sampling
	colorOnly *gpu.FrameBuffer
}

func newGBufferTargets(state *gpu.State, width, height int) (*gbufferTargets, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	kind := gpu.Rectangle(width, height)
	t := &gbufferTargets{width: width, height: height}

	var err error
	if t.depthStencil, err = gpu.NewTexture(state, kind, gpu.PixelD24S8, nil, false); err != nil {
		return nil, err
	}
	if t.diffuse, err = gpu.NewTexture(state, kind, gpu.PixelRGBA8, nil, false); err != nil {
		t.release()
		return nil, err
	}
	if t.normal, err = gpu.NewTexture(state, kind, gpu.PixelRGBA8, nil, false); err != nil {
		t.release()
		return nil, err
	}
	if t.frame, err = gpu.NewTexture(state, kind, gpu.PixelRGBA8, nil, false); err != nil {
		t.release()
		return nil, err
	}
	if t.geometry, err = gpu.NewFrameBuffer(state, t.depthStencil, []*gpu.Texture{t.diffuse, t.normal}); err != nil {
		t.release()
		return nil, err
	}
	if t.lit, err = gpu.NewFrameBuffer(state, t.depthStencil, []*gpu.Texture{t.frame}); err != nil {
		t.release()
		return nil, err
	}
	if t.colorOnly, err = gpu.NewFrameBuffer(state, nil, []*gpu.Texture{t.frame}); err != nil {
		t.release()
		return nil, err
	}
	return t, nil
}

func (t *gbufferTargets) release() {
	t.colorOnly.Release()
	t.lit.Release()
	t.geometry.Release()
	t.frame.Release()
	t.normal.Release()
	t.diffuse.Release()
	t.depthStencil.Release()
}

type gbufferShader struct {
	program             *gpu.Program
	worldMatrix         gpu.UniformLocation
	worldViewProjection gpu.UniformLocation
	diffuseTexture      gpu.UniformLocation
	normalTexture       gpu.UniformLocation
	diffuseColor        gpu.UniformLocation
}

func newGBufferShader(state *gpu.State) (*gbufferShader, error) {
	program, err := gpu.NewProgram(state, "GBufferShader", gbufferVertexShaderSource, gbufferFragmentShaderSource)
	if err != nil {
		return nil, err
	}
	return &gbufferShader{
		program:             program,
		worldMatrix:         program.UniformLocation("worldMatrix"),
		worldViewProjection: program.UniformLocation("worldViewProjection"),
		diffuseTexture:      program.UniformLocation("diffuseTexture"),
		normalTexture:       program.UniformLocation("normalTexture"),
		diffuseColor:        program.UniformLocation("diffuseColor"),
	}, nil
}

// gbufferPipeline marks every covered pixel with stencil 1 so the lighting
// passes only shade pixels this scene wrote
var gbufferPipeline = gpu.PipelineState{
	DepthTest:  true,
	DepthWrite: true,
	DepthFunc:  gpu.CompareLess,
	ColorWrite: true,
	CullFace:   true,
	Blend:      gpu.BlendNone,
	Stencil: gpu.StencilState{
		Enabled:   true,
		Func:      gpu.CompareAlways,
		Ref:       1,
		Mask:      0xFF,
		WriteMask: 0xFF,
		Fail:      gpu.StencilKeep,
		DepthFail: gpu.StencilKeep,
		Pass:      gpu.StencilReplace,
	},
}

// GBuffer is the geometry pass. It owns the frame-sized render targets and
// rasterizes visible meshes into albedo, normal and depth.
type GBuffer struct {
	targets *gbufferTargets
	shader  *gbufferShader
	cache   *GeometryCache
	log     *logger.Logger

	// surfaces already reported as broken, so a bad asset logs once
	reported map[uint64]bool
}

// NewGBuffer compiles the geometry shader and allocates targets of the
// given size
func NewGBuffer(state *gpu.State, width, height int, log *logger.Logger) (*GBuffer, error) {
	shader, err := newGBufferShader(state)
	if err != nil {
		return nil, err
	}
	targets, err := newGBufferTargets(state, width, height)
	if err != nil {
		shader.program.Release()
		return nil, err
	}
	return &GBuffer{
		targets:  targets,
		shader:   shader,
		cache:    NewGeometryCache(),
		log:      log,
		reported: make(map[uint64]bool),
	}, nil
}

// Resize recreates the targets. The new set is built before the old one is
// released, so on failure the G-Buffer keeps its previous size.
func (gb *GBuffer) Resize(state *gpu.State, width, height int) error {
	targets, err := newGBufferTargets(state, width, height)
	if err != nil {
		return err
	}
	gb.targets.release()
	gb.targets = targets
	return nil
}

func (gb *GBuffer) Width() int {
	return gb.targets.width
}

func (gb *GBuffer) Height() int {
	return gb.targets.height
}

// DepthStencil is shared by the geometry and lit framebuffers
func (gb *GBuffer) DepthStencil() *gpu.Texture {
	return gb.targets.depthStencil
}

func (gb *GBuffer) DiffuseTexture() *gpu.Texture {
	return gb.targets.diffuse
}

func (gb *GBuffer) NormalTexture() *gpu.Texture {
	return gb.targets.normal
}

// FrameTexture holds the lit image composited onto the back buffer
func (gb *GBuffer) FrameTexture() *gpu.Texture {
	return gb.targets.frame
}

// FrameBuffer renders into the frame texture with the scene depth attached
func (gb *GBuffer) FrameBuffer() *gpu.FrameBuffer {
	return gb.targets.lit
}

// Geometry returns the cache of uploaded surfaces
func (gb *GBuffer) Geometry() *GeometryCache {
	return gb.cache
}

// Fill clears the targets and draws every visible mesh of graph as seen by
// camera. Unset or not yet uploaded material textures fall back to the
// dummies. Surfaces that cannot be drawn are skipped. It returns the
// number of surfaces drawn.
func (gb *GBuffer) Fill(state *gpu.State, width, height int, graph *scene.Graph, camera *scene.Camera, whiteDummy, normalDummy *gpu.Texture) int {
	state.SetFramebuffer(gb.targets.geometry)
	setCameraViewport(state, camera, width, height)
	state.Apply(gbufferPipeline)
	state.Clear(gpu.ClearAll(mgl32.Vec4{0, 0, 0, 0}, 1, 0))

	shader := gb.shader
	bound := shader.program.Bind()
	viewProjection := camera.ViewProjectionMatrix()
	frustum := camera.Frustum()

	drawn := 0
	for n := range graph.LinearIter() {
		mesh, ok := n.(*scene.Mesh)
		if !ok || !mesh.GloballyVisible() {
			continue
		}
		center, radius := mesh.WorldBoundingSphere()
		if !frustum.IntersectsSphere(center, radius) {
			continue
		}

		world := mesh.GlobalTransform()
		bound.SetMat4(shader.worldMatrix, world)
		bound.SetMat4(shader.worldViewProjection, viewProjection.Mul4(world))

		for i, surface := range mesh.Surfaces() {
			data := surface.Data()
			if data.IsEmpty() {
				gb.reportOnce(data, "Mesh %s surface %d has no geometry, skipping", mesh.Name(), i)
				continue
			}
			buffer, err := gb.cache.Get(state, data)
			if err != nil {
				gb.reportOnce(data, "Mesh %s surface %d: %v", mesh.Name(), i, err)
				continue
			}

			bound.SetTexture(shader.diffuseTexture, 0, residentOr(surface.DiffuseTexture(), whiteDummy))
			bound.SetTexture(shader.normalTexture, 1, residentOr(surface.NormalTexture(), normalDummy))
			bound.SetColor(shader.diffuseColor, surface.Color())
			buffer.Draw()
			drawn++
		}
	}
	return drawn
}

func (gb *GBuffer) reportOnce(data *scene.SurfaceData, format string, v ...interface{}) {
	var id uint64
	if data != nil {
		id = data.ID()
	}
	if gb.reported[id] {
		return
	}
	gb.reported[id] = true
	gb.log.Warnf(format, v...)
}

// Release frees the targets, the shader and all cached geometry
func (gb *GBuffer) Release() {
	gb.cache.Clear()
	gb.targets.release()
	gb.shader.program.Release()
}

// residentOr returns the GPU copy of tex, or fallback when tex is unset or
// not uploaded yet
func residentOr(tex *scene.Texture, fallback *gpu.Texture) *gpu.Texture {
	if tex == nil {
		return fallback
	}
	if g := tex.GPUTexture(); g != nil {
		return g
	}
	return fallback
}

// setCameraViewport maps the camera's top-left based viewport onto the
// bottom-left based backend viewport
func setCameraViewport(state *gpu.State, camera *scene.Camera, width, height int) {
	x, y, w, h := camera.ViewportPixels(mgl32.Vec2{float32(width), float32(height)})
	state.SetViewport(x, height-y-h, w, h)
}
