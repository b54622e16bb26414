package renderer

import (
	"github.com/go-gl/mathgl/mgl32"

	"lumen/internal/logger"
	"lumen/internal/util"
	"lumen/pkg/config"
	"lumen/pkg/gpu"
	"lumen/pkg/scene"
)

type particleShader struct {
	program               *gpu.Program
	viewProjectionMatrix  gpu.UniformLocation
	diffuseTexture        gpu.UniformLocation
	depthBufferTexture    gpu.UniformLocation
	invScreenSize         gpu.UniformLocation
	projParams            gpu.UniformLocation
	softBoundaryFadeWidth gpu.UniformLocation
}

func newParticleShader(state *gpu.State) (*particleShader, error) {
	program, err := gpu.NewProgram(state, "ParticleSystemShader", billboardVertexShaderSource, particleFragmentShaderSource)
	if err != nil {
		return nil, err
	}
	return &particleShader{
		program:               program,
		viewProjectionMatrix:  program.UniformLocation("viewProjectionMatrix"),
		diffuseTexture:        program.UniformLocation("diffuseTexture"),
		depthBufferTexture:    program.UniformLocation("depthBufferTexture"),
		invScreenSize:         program.UniformLocation("invScreenSize"),
		projParams:            program.UniformLocation("projParams"),
		softBoundaryFadeWidth: program.UniformLocation("softBoundaryFadeWidth"),
	}, nil
}

// The depth texture is sampled rather than attached, so the depth test is
// done in the fragment shader
var particlePipeline = gpu.PipelineState{
	DepthTest:  false,
	DepthWrite: false,
	ColorWrite: true,
	Blend:      gpu.BlendAlpha,
	Stencil: gpu.StencilState{
		Func:      gpu.CompareAlways,
		Mask:      0xFF,
		WriteMask: 0xFF,
	},
}

// SoftFadeWidth maps a sharpness factor onto the view-space distance over
// which particles fade in front of geometry. Factor 0 gives maxWidth; a
// factor at or above maxFactor gives 0, a hard depth test.
func SoftFadeWidth(factor, maxFactor, maxWidth float32) float32 {
	if maxFactor <= 0 {
		return 0
	}
	return maxWidth * (1 - util.Clamp(factor, 0, maxFactor)/maxFactor)
}

// SoftParticleOpacity is the fade the particle shader applies to a fragment
// at particleDepth in front of scene geometry at sceneDepth
func SoftParticleOpacity(sceneDepth, particleDepth, fadeWidth float32) float32 {
	diff := sceneDepth - particleDepth
	if fadeWidth > 0 {
		return util.SmoothStep(0, fadeWidth, diff)
	}
	return util.Step(0, diff)
}

// ParticleSystemRenderer rasterizes the live particles of every particle
// system as soft camera-facing billboards
type ParticleSystemRenderer struct {
	shader   *particleShader
	geometry *gpu.GeometryBuffer
	soft     config.SoftParticles

	batch    billboardBatch
	items    []billboard
	failures passFailures
}

func NewParticleSystemRenderer(state *gpu.State, soft config.SoftParticles, log *logger.Logger) (*ParticleSystemRenderer, error) {
	shader, err := newParticleShader(state)
	if err != nil {
		return nil, err
	}
	geometry, err := gpu.NewGeometryBuffer(state, billboardLayout, gpu.DynamicDraw)
	if err != nil {
		shader.program.Release()
		return nil, err
	}
	return &ParticleSystemRenderer{shader: shader, geometry: geometry, soft: soft, failures: passFailures{log: log}}, nil
}

// SetSoftParticles replaces the fade tuning
func (r *ParticleSystemRenderer) SetSoftParticles(soft config.SoftParticles) {
	r.soft = soft
}

// Render draws every visible particle system of every scene with a camera
// into the frame texture. It returns the number of particles drawn.
func (r *ParticleSystemRenderer) Render(state *gpu.State, scenes *scene.Container, whiteDummy *gpu.Texture,
	width, height int, gbuffer *GBuffer) int {
	drawn := 0
	for sc := range scenes.All() {
		camera, ok := sc.Graph.FirstCamera()
		if !ok {
			continue
		}

		state.SetFramebuffer(gbuffer.targets.colorOnly)
		setCameraViewport(state, camera, width, height)
		state.Apply(particlePipeline)

		shader := r.shader
		bound := shader.program.Bind()
		bound.SetMat4(shader.viewProjectionMatrix, camera.ViewProjectionMatrix())
		bound.SetTexture(shader.depthBufferTexture, 1, gbuffer.DepthStencil())
		bound.SetVec2(shader.invScreenSize, mgl32.Vec2{1 / float32(width), 1 / float32(height)})
		bound.SetVec2(shader.projParams, mgl32.Vec2{camera.ZNear(), camera.ZFar()})

		eye := camera.GlobalPosition()
		side, up := camera.SideVector().Normalize(), camera.UpVector().Normalize()

		for n := range sc.Graph.LinearIter() {
			system, ok := n.(*scene.ParticleSystem)
			if !ok || !system.GloballyVisible() {
				continue
			}
			particles := system.AliveParticles()
			if len(particles) == 0 {
				continue
			}

			world := system.GlobalTransform()
			r.items = r.items[:0]
			for _, p := range particles {
				r.items = append(r.items, billboard{
					center:   mgl32.TransformCoordinate(p.Position, world),
					size:     p.Size,
					rotation: p.Rotation,
					color:    p.Color,
				})
			}
			sortBackToFront(r.items, eye)

			r.batch.reset()
			for _, item := range r.items {
				r.batch.push(item, side, up)
			}
			if err := r.geometry.Set(r.batch.vertices, r.batch.indices); err != nil {
				r.failures.report("Particle system %s: batch of %d particles rejected: %v", system.Name(), len(particles), err)
				continue
			}

			fade := SoftFadeWidth(system.SoftBoundarySharpnessFactor(), r.soft.MaxSharpnessFactor, r.soft.MaxFadeWidth)
			bound.SetFloat(shader.softBoundaryFadeWidth, fade)
			bound.SetTexture(shader.diffuseTexture, 0, residentOr(system.Texture(), whiteDummy))
			r.geometry.Draw()
			drawn += len(particles)
		}
	}
	return drawn
}

// Release frees the shader and the particle buffer
func (r *ParticleSystemRenderer) Release() {
	r.geometry.Release()
	r.shader.program.Release()
}
