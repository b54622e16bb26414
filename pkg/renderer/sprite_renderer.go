package renderer

import (
	"lumen/internal/logger"
	"lumen/pkg/gpu"
	"lumen/pkg/scene"
)

type spriteShader struct {
	program              *gpu.Program
	viewProjectionMatrix gpu.UniformLocation
	diffuseTexture       gpu.UniformLocation
}

func newSpriteShader(state *gpu.State) (*spriteShader, error) {
	program, err := gpu.NewProgram(state, "SpriteShader", billboardVertexShaderSource, spriteFragmentShaderSource)
	if err != nil {
		return nil, err
	}
	return &spriteShader{
		program:              program,
		viewProjectionMatrix: program.UniformLocation("viewProjectionMatrix"),
		diffuseTexture:       program.UniformLocation("diffuseTexture"),
	}, nil
}

// Sprites are occluded by scene geometry but do not occlude each other
var spritePipeline = gpu.PipelineState{
	DepthTest:  true,
	DepthWrite: false,
	DepthFunc:  gpu.CompareLess,
	ColorWrite: true,
	Blend:      gpu.BlendAlpha,
	Stencil: gpu.StencilState{
		Func:      gpu.CompareAlways,
		Mask:      0xFF,
		WriteMask: 0xFF,
	},
}

// SpriteRenderer draws unlit camera-facing quads on top of the lit frame
type SpriteRenderer struct {
	shader   *spriteShader
	geometry *gpu.GeometryBuffer

	batch    billboardBatch
	sprites  []billboard
	failures passFailures
}

func NewSpriteRenderer(state *gpu.State, log *logger.Logger) (*SpriteRenderer, error) {
	shader, err := newSpriteShader(state)
	if err != nil {
		return nil, err
	}
	geometry, err := gpu.NewGeometryBuffer(state, billboardLayout, gpu.DynamicDraw)
	if err != nil {
		shader.program.Release()
		return nil, err
	}
	return &SpriteRenderer{shader: shader, geometry: geometry, failures: passFailures{log: log}}, nil
}

// Render draws the visible sprites of every scene with a camera into the
// lit frame. It returns the number of sprites drawn.
func (r *SpriteRenderer) Render(state *gpu.State, width, height int, scenes *scene.Container, gbuffer *GBuffer,
	whiteDummy *gpu.Texture) int {
	drawn := 0
	for sc := range scenes.All() {
		camera, ok := sc.Graph.FirstCamera()
		if !ok {
			continue
		}

		r.sprites = r.sprites[:0]
		for n := range sc.Graph.LinearIter() {
			sprite, ok := n.(*scene.Sprite)
			if !ok || !sprite.GloballyVisible() {
				continue
			}
			r.sprites = append(r.sprites, billboard{
				center:   sprite.GlobalPosition(),
				size:     sprite.Size(),
				rotation: sprite.Rotation(),
				color:    sprite.Color(),
				texture:  residentOr(sprite.Texture(), whiteDummy),
			})
		}
		if len(r.sprites) == 0 {
			continue
		}

		sortBackToFront(r.sprites, camera.GlobalPosition())

		side, up := camera.SideVector().Normalize(), camera.UpVector().Normalize()
		r.batch.reset()
		for _, sprite := range r.sprites {
			r.batch.push(sprite, side, up)
		}
		if err := r.geometry.Set(r.batch.vertices, r.batch.indices); err != nil {
			r.failures.report("Sprite batch of %d quads rejected: %v", len(r.sprites), err)
			continue
		}

		state.SetFramebuffer(gbuffer.FrameBuffer())
		setCameraViewport(state, camera, width, height)
		state.Apply(spritePipeline)

		shader := r.shader
		bound := shader.program.Bind()
		bound.SetMat4(shader.viewProjectionMatrix, camera.ViewProjectionMatrix())
		for quad, sprite := range r.sprites {
			bound.SetTexture(shader.diffuseTexture, 0, sprite.texture)
			if err := r.geometry.DrawPart(quad*6, 6); err != nil {
				r.failures.report("Sprite quad %d not drawn: %v", quad, err)
				continue
			}
			drawn++
		}
	}
	return drawn
}

// Release frees the shader and the sprite buffer
func (r *SpriteRenderer) Release() {
	r.geometry.Release()
	r.shader.program.Release()
}
