package renderer

import (
	"image/color"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"lumen/internal/util"
	"lumen/pkg/gpu"
	"lumen/pkg/scene"
)

type ambientShader struct {
	program             *gpu.Program
	worldViewProjection gpu.UniformLocation
	diffuseTexture      gpu.UniformLocation
	ambientColor        gpu.UniformLocation
	invFrameSize        gpu.UniformLocation
}

func newAmbientShader(state *gpu.State) (*ambientShader, error) {
	program, err := gpu.NewProgram(state, "AmbientLightShader", flatVertexShaderSource, ambientFragmentShaderSource)
	if err != nil {
		return nil, err
	}
	return &ambientShader{
		program:             program,
		worldViewProjection: program.UniformLocation("worldViewProjection"),
		diffuseTexture:      program.UniformLocation("diffuseTexture"),
		ambientColor:        program.UniformLocation("ambientColor"),
		invFrameSize:        program.UniformLocation("invFrameSize"),
	}, nil
}

type lightShader struct {
	program             *gpu.Program
	worldViewProjection gpu.UniformLocation
	depthTexture        gpu.UniformLocation
	colorTexture        gpu.UniformLocation
	normalTexture       gpu.UniformLocation
	cookieTexture       gpu.UniformLocation
	invViewProj         gpu.UniformLocation
	cookieMatrix        gpu.UniformLocation
	viewportRect        gpu.UniformLocation
	invFrameSize        gpu.UniformLocation
	cameraPosition      gpu.UniformLocation
	lightPosition       gpu.UniformLocation
	lightDirection      gpu.UniformLocation
	lightColor          gpu.UniformLocation
	lightRadius         gpu.UniformLocation
	coneAngleCos        gpu.UniformLocation
	hotspotCos          gpu.UniformLocation
	lightKind           gpu.UniformLocation
}

func newLightShader(state *gpu.State) (*lightShader, error) {
	program, err := gpu.NewProgram(state, "DeferredLightShader", flatVertexShaderSource, lightFragmentShaderSource)
	if err != nil {
		return nil, err
	}
	return &lightShader{
		program:             program,
		worldViewProjection: program.UniformLocation("worldViewProjection"),
		depthTexture:        program.UniformLocation("depthTexture"),
		colorTexture:        program.UniformLocation("colorTexture"),
		normalTexture:       program.UniformLocation("normalTexture"),
		cookieTexture:       program.UniformLocation("cookieTexture"),
		invViewProj:         program.UniformLocation("invViewProj"),
		cookieMatrix:        program.UniformLocation("cookieMatrix"),
		viewportRect:        program.UniformLocation("viewportRect"),
		invFrameSize:        program.UniformLocation("invFrameSize"),
		cameraPosition:      program.UniformLocation("cameraPosition"),
		lightPosition:       program.UniformLocation("lightPosition"),
		lightDirection:      program.UniformLocation("lightDirection"),
		lightColor:          program.UniformLocation("lightColor"),
		lightRadius:         program.UniformLocation("lightRadius"),
		coneAngleCos:        program.UniformLocation("coneAngleCos"),
		hotspotCos:          program.UniformLocation("hotspotCos"),
		lightKind:           program.UniformLocation("lightKind"),
	}, nil
}

// lightingPipeline shades only pixels the geometry pass of the current
// scene covered
func lightingPipeline(blend gpu.BlendMode) gpu.PipelineState {
	return gpu.PipelineState{
		DepthTest:  false,
		DepthWrite: false,
		ColorWrite: true,
		Blend:      blend,
		Stencil: gpu.StencilState{
			Enabled:   true,
			Func:      gpu.CompareEqual,
			Ref:       1,
			Mask:      0xFF,
			WriteMask: 0,
			Fail:      gpu.StencilKeep,
			DepthFail: gpu.StencilKeep,
			Pass:      gpu.StencilKeep,
		},
	}
}

// DeferredLightRenderer shades the G-Buffer into the frame texture: an
// ambient term first, then one additive fullscreen pass per light.
type DeferredLightRenderer struct {
	quad    *gpu.GeometryBuffer
	ambient *ambientShader
	light   *lightShader
}

func NewDeferredLightRenderer(state *gpu.State) (*DeferredLightRenderer, error) {
	ambient, err := newAmbientShader(state)
	if err != nil {
		return nil, err
	}
	light, err := newLightShader(state)
	if err != nil {
		ambient.program.Release()
		return nil, err
	}
	quad, err := newUnitQuad(state)
	if err != nil {
		ambient.program.Release()
		light.program.Release()
		return nil, err
	}
	return &DeferredLightRenderer{quad: quad, ambient: ambient, light: light}, nil
}

// Render lights sc as seen by camera. It returns the number of lights
// drawn, the ambient term not included.
func (r *DeferredLightRenderer) Render(state *gpu.State, width, height int, sc *scene.Scene, camera *scene.Camera,
	gbuffer *GBuffer, whiteDummy *gpu.Texture, ambient color.NRGBA) int {
	state.SetFramebuffer(gbuffer.FrameBuffer())
	state.SetViewport(0, 0, width, height)

	frame := frameMatrix(width, height)
	invFrameSize := mgl32.Vec2{1 / float32(width), 1 / float32(height)}

	state.Apply(lightingPipeline(gpu.BlendNone))
	{
		shader := r.ambient
		bound := shader.program.Bind()
		bound.SetMat4(shader.worldViewProjection, frame)
		bound.SetTexture(shader.diffuseTexture, 0, gbuffer.DiffuseTexture())
		bound.SetColor(shader.ambientColor, ambient)
		bound.SetVec2(shader.invFrameSize, invFrameSize)
		r.quad.Draw()
	}

	state.Apply(lightingPipeline(gpu.BlendAdditive))
	shader := r.light
	bound := shader.program.Bind()
	bound.SetMat4(shader.worldViewProjection, frame)
	bound.SetTexture(shader.depthTexture, 0, gbuffer.DepthStencil())
	bound.SetTexture(shader.colorTexture, 1, gbuffer.DiffuseTexture())
	bound.SetTexture(shader.normalTexture, 2, gbuffer.NormalTexture())
	bound.SetMat4(shader.invViewProj, camera.InverseViewProjectionMatrix())
	x, y, w, h := camera.ViewportPixels(mgl32.Vec2{float32(width), float32(height)})
	bound.SetVec4(shader.viewportRect, mgl32.Vec4{float32(x), float32(height - y - h), float32(w), float32(h)})
	bound.SetVec2(shader.invFrameSize, invFrameSize)
	bound.SetVec3(shader.cameraPosition, camera.GlobalPosition())

	frustum := camera.Frustum()
	drawn := 0
	for n := range sc.Graph.LinearIter() {
		light, ok := n.(*scene.Light)
		if !ok || !light.GloballyVisible() {
			continue
		}
		position := light.GlobalPosition()
		if light.LightKind() != scene.DirectionalLight && !frustum.IntersectsSphere(position, light.Radius()) {
			continue
		}

		bound.SetInt(shader.lightKind, int32(light.LightKind()))
		bound.SetVec3(shader.lightPosition, position)
		bound.SetVec3(shader.lightDirection, light.Direction())
		bound.SetColor(shader.lightColor, light.Color())
		bound.SetFloat(shader.lightRadius, light.Radius())

		if light.LightKind() == scene.SpotLight {
			outer := light.HotspotAngle() + light.FalloffDelta()
			bound.SetFloat(shader.coneAngleCos, math32.Cos(outer))
			bound.SetFloat(shader.hotspotCos, math32.Cos(light.HotspotAngle()))
			bound.SetMat4(shader.cookieMatrix, spotCookieMatrix(light, outer))
			bound.SetTexture(shader.cookieTexture, 3, residentOr(light.Texture(), whiteDummy))
		} else {
			bound.SetMat4(shader.cookieMatrix, mgl32.Ident4())
			bound.SetTexture(shader.cookieTexture, 3, whiteDummy)
		}

		r.quad.Draw()
		drawn++
	}
	return drawn
}

// spotCookieMatrix projects world positions into the light's cone
func spotCookieMatrix(light *scene.Light, outer float32) mgl32.Mat4 {
	fov := util.Clamp(2*outer, 0.01, math32.Pi-0.01)
	far := light.Radius()
	if far <= 0.01 {
		far = 1
	}
	position := light.GlobalPosition()
	view := mgl32.LookAtV(position, position.Add(light.Direction()), light.UpVector())
	return mgl32.Perspective(fov, 1, 0.01, far).Mul4(view)
}

// Release frees the shaders and the quad
func (r *DeferredLightRenderer) Release() {
	r.quad.Release()
	r.ambient.program.Release()
	r.light.program.Release()
}
