package renderer

import (
	"bytes"
	"errors"
	"image/color"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumen/internal/logger"
	"lumen/pkg/config"
	"lumen/pkg/gpu"
	"lumen/pkg/gpu/headless"
	"lumen/pkg/scene"
	"lumen/pkg/ui"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type textureList []*scene.Texture

func (l textureList) Textures() []*scene.Texture {
	return l
}

type fixture struct {
	renderer *Renderer
	device   *headless.Device
	state    *gpu.State
	clock    *fakeClock
	log      *bytes.Buffer
	context  *headless.Context
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		device:  headless.NewDevice(),
		clock:   &fakeClock{now: time.Unix(1000, 0)},
		log:     &bytes.Buffer{},
		context: &headless.Context{},
	}
	f.state = gpu.NewState(f.device)
	opts = append([]Option{
		WithLogger(logger.NewWriterLogger("debug", f.log)),
		WithClock(f.clock.Now),
	}, opts...)

	r, err := New(f.state, 800, 600, opts...)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	f.renderer = r
	return f
}

func (f *fixture) drawsWith(program *gpu.Program) []headless.DrawCall {
	return f.device.DrawsWith(program.Handle())
}

// litScene is a camera at the origin looking down +Z at a cube lit by one
// point light
func litScene() (*scene.Scene, *scene.Mesh) {
	sc := scene.NewScene()
	sc.Graph.Add(scene.NewCamera("camera"))

	cube := scene.NewMesh("cube", scene.NewSurface(scene.MakeCube()))
	cube.SetPosition(mgl32.Vec3{0, 0, 5})
	sc.Graph.Add(cube)

	light := scene.NewPointLight("light", 10)
	light.SetPosition(mgl32.Vec3{0, 2, 3})
	sc.Graph.Add(light)

	sc.Update(mgl32.Vec2{800, 600}, 0)
	return sc, cube
}

func containerOf(scenes ...*scene.Scene) *scene.Container {
	c := scene.NewContainer()
	for _, s := range scenes {
		c.Add(s)
	}
	return c
}

func TestNewCreatesDummyTextures(t *testing.T) {
	f := newFixture(t)

	white, ok := f.device.Texture(f.renderer.whiteDummy.Handle())
	require.True(t, ok)
	assert.Equal(t, []byte{255, 255, 255, 255}, white.Data)

	normal, ok := f.device.Texture(f.renderer.normalDummy.Handle())
	require.True(t, ok)
	assert.Equal(t, []byte{128, 128, 255, 255}, normal.Data)

	w, h := f.renderer.FrameSize()
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)
	assert.Equal(t, color.NRGBA{R: 100, G: 100, B: 100, A: 255}, f.renderer.AmbientColor())
}

func TestRenderEndToEnd(t *testing.T) {
	f := newFixture(t)
	sc, _ := litScene()

	err := f.renderer.Render(containerOf(sc), nil, f.context)
	require.NoError(t, err)
	assert.Equal(t, 1, f.context.Swaps())

	stats := f.renderer.Statistics()
	assert.Equal(t, 0, stats.FramesPerSecond, "no full second has passed yet")
	assert.Equal(t, 1, stats.DrawnSurfaces)
	assert.Equal(t, 1, stats.LightsDrawn)

	require.Len(t, f.drawsWith(f.renderer.gbuffer.shader.program), 1)

	ambient := f.drawsWith(f.renderer.lights.ambient.program)
	require.Len(t, ambient, 1)
	v := float32(100) / 255
	assert.Equal(t, mgl32.Vec4{v, v, v, 1}, ambient[0].Uniforms["ambientColor"])
	assert.Equal(t, f.renderer.gbuffer.DiffuseTexture().Handle(), ambient[0].Texture("diffuseTexture"))

	lights := f.drawsWith(f.renderer.lights.light.program)
	require.Len(t, lights, 1)
	assert.Equal(t, gpu.BlendAdditive, lights[0].Pipeline.Blend)
	assert.Equal(t, gpu.CompareEqual, lights[0].Pipeline.Stencil.Func)

	blit := f.drawsWith(f.renderer.flat.program)
	require.Len(t, blit, 1)
	assert.Equal(t, gpu.Handle(0), blit[0].Framebuffer)
	assert.Equal(t, f.renderer.gbuffer.FrameTexture().Handle(), blit[0].Texture("diffuseTexture"))
	assert.Equal(t, frameMatrix(800, 600), blit[0].Uniforms["worldViewProjection"])
}

func TestRenderAmbientOnly(t *testing.T) {
	f := newFixture(t)
	sc := scene.NewScene()
	sc.Graph.Add(scene.NewCamera("camera"))
	cube := scene.NewMesh("cube", scene.NewSurface(scene.MakeCube()))
	cube.SetPosition(mgl32.Vec3{0, 0, 5})
	sc.Graph.Add(cube)
	sc.Update(mgl32.Vec2{800, 600}, 0)

	require.NoError(t, f.renderer.Render(containerOf(sc), nil, f.context))
	assert.Equal(t, 1, f.context.Swaps())

	stats := f.renderer.Statistics()
	assert.Equal(t, 0, stats.FramesPerSecond)
	assert.Equal(t, 1, stats.DrawnSurfaces)
	assert.Equal(t, 0, stats.LightsDrawn)

	require.Len(t, f.drawsWith(f.renderer.gbuffer.shader.program), 1)
	ambient := f.drawsWith(f.renderer.lights.ambient.program)
	require.Len(t, ambient, 1)
	assert.Equal(t, gpu.BlendNone, ambient[0].Pipeline.Blend)
	assert.Empty(t, f.drawsWith(f.renderer.lights.light.program))
	assert.Len(t, f.drawsWith(f.renderer.flat.program), 1)
}

func TestHiddenParentSkipsDescendants(t *testing.T) {
	f := newFixture(t)
	sc := scene.NewScene()
	sc.Graph.Add(scene.NewCamera("camera"))

	group := scene.NewPivot("group")
	group.SetPosition(mgl32.Vec3{0, 0, 5})
	gh := sc.Graph.Add(group)
	cube := sc.Graph.Add(scene.NewMesh("cube", scene.NewSurface(scene.MakeCube())))
	light := sc.Graph.Add(scene.NewPointLight("light", 10))
	require.NoError(t, sc.Graph.Link(cube, gh))
	require.NoError(t, sc.Graph.Link(light, gh))
	group.SetVisible(false)
	sc.Update(mgl32.Vec2{800, 600}, 0)

	require.NoError(t, f.renderer.Render(containerOf(sc), nil, nil))
	assert.Zero(t, f.renderer.Statistics().DrawnSurfaces)
	assert.Zero(t, f.renderer.Statistics().LightsDrawn)
	assert.Empty(t, f.drawsWith(f.renderer.gbuffer.shader.program))

	group.SetVisible(true)
	sc.Update(mgl32.Vec2{800, 600}, 0)
	require.NoError(t, f.renderer.Render(containerOf(sc), nil, nil))
	assert.Equal(t, 1, f.renderer.Statistics().DrawnSurfaces)
}

func TestSceneWithoutCameraIsSkipped(t *testing.T) {
	f := newFixture(t)
	sc := scene.NewScene()
	sc.Graph.Add(scene.NewMesh("cube", scene.NewSurface(scene.MakeCube())))
	sc.Graph.Add(scene.NewPointLight("light", 5))
	sc.Update(mgl32.Vec2{800, 600}, 0)

	require.NoError(t, f.renderer.Render(containerOf(sc), nil, f.context))

	assert.Empty(t, f.drawsWith(f.renderer.gbuffer.shader.program))
	assert.Empty(t, f.drawsWith(f.renderer.lights.ambient.program))
	assert.Empty(t, f.drawsWith(f.renderer.lights.light.program))
	assert.Len(t, f.drawsWith(f.renderer.flat.program), 1, "the frame is still composited")
	assert.Equal(t, 1, f.context.Swaps())
}

func TestMissingMaterialTexturesUseDummies(t *testing.T) {
	f := newFixture(t)
	sc, cube := litScene()

	pending, err := scene.NewTexture("pending.png", 1, 1, gpu.PixelRGBA8, []byte{1, 2, 3, 4})
	require.NoError(t, err)
	cube.Surfaces()[0].SetDiffuseTexture(pending)

	require.NoError(t, f.renderer.Render(containerOf(sc), nil, nil))
	draws := f.drawsWith(f.renderer.gbuffer.shader.program)
	require.Len(t, draws, 1)
	assert.Equal(t, f.renderer.whiteDummy.Handle(), draws[0].Texture("diffuseTexture"), "not resident yet")
	assert.Equal(t, f.renderer.normalDummy.Handle(), draws[0].Texture("normalTexture"), "unset")

	assert.Equal(t, 1, f.renderer.UploadResources(textureList{pending}))
	f.device.Reset()
	require.NoError(t, f.renderer.Render(containerOf(sc), nil, nil))
	draws = f.drawsWith(f.renderer.gbuffer.shader.program)
	require.Len(t, draws, 1)
	assert.Equal(t, pending.GPUTexture().Handle(), draws[0].Texture("diffuseTexture"))
}

func TestLightCulling(t *testing.T) {
	f := newFixture(t)
	sc, _ := litScene()

	behind := scene.NewPointLight("behind", 1)
	behind.SetPosition(mgl32.Vec3{0, 0, -50})
	sc.Graph.Add(behind)

	sun := scene.NewDirectionalLight("sun")
	sun.SetPosition(mgl32.Vec3{0, 0, -50})
	sc.Graph.Add(sun)

	spot := scene.NewSpotLight("spot", 20, mgl32.DegToRad(30), mgl32.DegToRad(10))
	spot.SetPosition(mgl32.Vec3{0, 0, 1})
	sc.Graph.Add(spot)

	hidden := scene.NewPointLight("hidden", 10)
	hidden.SetVisible(false)
	sc.Graph.Add(hidden)
	sc.Update(mgl32.Vec2{800, 600}, 0)

	require.NoError(t, f.renderer.Render(containerOf(sc), nil, nil))
	draws := f.drawsWith(f.renderer.lights.light.program)
	require.Len(t, draws, 3, "point, directional and spot; the light behind the camera is culled")
	assert.Equal(t, 3, f.renderer.Statistics().LightsDrawn)

	kinds := map[int32]headless.DrawCall{}
	for _, d := range draws {
		kinds[d.Uniforms["lightKind"].(int32)] = d
	}
	assert.Contains(t, kinds, int32(scene.DirectionalLight))

	spotDraw, ok := kinds[int32(scene.SpotLight)]
	require.True(t, ok)
	assert.Equal(t, f.renderer.whiteDummy.Handle(), spotDraw.Texture("cookieTexture"))
	assert.InDelta(t, 0.766044, spotDraw.Uniforms["coneAngleCos"], 1e-5)
	assert.InDelta(t, 0.866025, spotDraw.Uniforms["hotspotCos"], 1e-5)
	assert.Equal(t, f.renderer.gbuffer.DepthStencil().Handle(), spotDraw.Texture("depthTexture"))
}

func TestStatisticsFramesPerSecond(t *testing.T) {
	f := newFixture(t)
	scenes := containerOf()

	for i := 0; i < 4; i++ {
		require.NoError(t, f.renderer.Render(scenes, nil, nil))
		assert.Equal(t, 0, f.renderer.Statistics().FramesPerSecond)
		f.clock.Advance(250 * time.Millisecond)
	}

	require.NoError(t, f.renderer.Render(scenes, nil, nil))
	assert.Equal(t, 5, f.renderer.Statistics().FramesPerSecond)

	// the next window starts counting from zero
	f.clock.Advance(500 * time.Millisecond)
	require.NoError(t, f.renderer.Render(scenes, nil, nil))
	assert.Equal(t, 5, f.renderer.Statistics().FramesPerSecond)
	f.clock.Advance(500 * time.Millisecond)
	require.NoError(t, f.renderer.Render(scenes, nil, nil))
	assert.Equal(t, 2, f.renderer.Statistics().FramesPerSecond)
}

func TestStatisticsFrameTimes(t *testing.T) {
	start := time.Unix(0, 0)
	var s Statistics
	s.beginFrame(start)
	s.endFrame(start.Add(10 * time.Millisecond))
	s.finalize(start.Add(16 * time.Millisecond))

	assert.InDelta(t, 0.010, s.PureFrameTime, 1e-6)
	assert.InDelta(t, 0.016, s.CappedFrameTime, 1e-6)
	assert.GreaterOrEqual(t, s.CappedFrameTime, s.PureFrameTime)
}

func TestUploadResourcesIsIdempotent(t *testing.T) {
	f := newFixture(t)

	a, err := scene.NewTexture("a.png", 2, 2, gpu.PixelRGBA8, make([]byte, 16))
	require.NoError(t, err)
	b, err := scene.NewTexture("b.png", 1, 1, gpu.PixelR8, []byte{7})
	require.NoError(t, err)
	resources := textureList{a, b, nil}

	before := f.device.TextureUploads()
	assert.Equal(t, 2, f.renderer.UploadResources(resources))
	assert.Equal(t, before+2, f.device.TextureUploads())

	obj, ok := f.device.Texture(a.GPUTexture().Handle())
	require.True(t, ok)
	assert.True(t, obj.Desc.Mipmaps)
	assert.Equal(t, float32(16), obj.Anisotropy)

	assert.Equal(t, 0, f.renderer.UploadResources(resources))
	assert.Equal(t, before+2, f.device.TextureUploads())
}

func TestUploadFailureIsLoggedAndRetried(t *testing.T) {
	f := newFixture(t)
	tex, err := scene.NewTexture("broken.png", 1, 1, gpu.PixelRGBA8, []byte{1, 2, 3, 4})
	require.NoError(t, err)

	f.device.FailTexture = func(gpu.TextureDesc) error { return errors.New("out of memory") }
	assert.Equal(t, 0, f.renderer.UploadResources(textureList{tex}))
	assert.Contains(t, f.log.String(), "broken.png")
	assert.False(t, tex.IsResident())

	f.device.FailTexture = nil
	assert.Equal(t, 1, f.renderer.UploadResources(textureList{tex}))
	assert.True(t, tex.IsResident())
}

func TestSetFrameSizeReplacesTargets(t *testing.T) {
	f := newFixture(t)
	live := len(f.device.LiveTextures())
	oldFrame := f.renderer.gbuffer.FrameTexture().Handle()

	require.NoError(t, f.renderer.SetFrameSize(1024, 768))
	assert.Len(t, f.device.LiveTextures(), live, "old targets are released")
	assert.NotContains(t, f.device.LiveTextures(), oldFrame)
	assert.Equal(t, 1024, f.renderer.gbuffer.FrameTexture().Width())

	w, h := f.renderer.FrameSize()
	assert.Equal(t, [2]int{1024, 768}, [2]int{w, h})

	err := f.renderer.SetFrameSize(0, 768)
	var rerr *RendererError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, KindFrameResource, rerr.Kind)
	w, h = f.renderer.FrameSize()
	assert.Equal(t, [2]int{1024, 768}, [2]int{w, h}, "previous size stays in effect")
	assert.Len(t, f.device.LiveTextures(), live)

	sc, _ := litScene()
	require.NoError(t, f.renderer.Render(containerOf(sc), nil, nil))
	blit := f.drawsWith(f.renderer.flat.program)
	require.NotEmpty(t, blit)
	assert.Equal(t, [4]int{0, 0, 1024, 768}, blit[len(blit)-1].Viewport)
}

func TestNewFailsCleanlyOnShaderError(t *testing.T) {
	device := headless.NewDevice()
	device.FailCompile = func(_, fragment string) string {
		if strings.Contains(fragment, "lightKind") {
			return "0:12: syntax error"
		}
		return ""
	}

	r, err := New(gpu.NewState(device), 800, 600, WithLogger(logger.NewWriterLogger("error", &bytes.Buffer{})))
	assert.Nil(t, r)

	var rerr *RendererError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, KindInitialization, rerr.Kind)

	var compileErr *gpu.ShaderCompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, "DeferredLightShader", compileErr.Program)
	assert.Zero(t, device.LiveObjects(), "partially built passes are released")
}

func TestUIErrorStillPresentsFrame(t *testing.T) {
	f := newFixture(t)
	dc := ui.NewDrawingContext()
	dc.PushRectFilled(ui.Rect{X: 0, Y: 0, W: 10, H: 10}, color.NRGBA{A: 255})
	dc.CommitGeometry(ui.NoTexture())
	dc.PushRectFilled(ui.Rect{X: 10, Y: 10, W: 10, H: 10}, color.NRGBA{A: 255})
	dc.CommitGeometry(ui.ImageTexture(nil))

	f.clock.Advance(time.Second)
	err := f.renderer.Render(containerOf(), dc, f.context)

	var rerr *RendererError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, KindUIRender, rerr.Kind)
	var uiErr *UIRenderError
	require.ErrorAs(t, err, &uiErr)
	assert.Equal(t, 1, uiErr.CommandIndex)

	assert.Equal(t, 1, f.context.Swaps())
	assert.Len(t, f.drawsWith(f.renderer.ui.shader.program), 1, "commands before the failure are drawn")
}

func TestPresentFailureIsLoggedNotReturned(t *testing.T) {
	f := newFixture(t)
	f.context.SwapErr = errors.New("surface lost")

	require.NoError(t, f.renderer.Render(containerOf(), nil, f.context))
	assert.Contains(t, f.log.String(), "surface lost")
}

func TestBackendDiagnosticsAreLogged(t *testing.T) {
	f := newFixture(t)
	f.device.RaiseError(headless.ErrInvalidOperation)

	require.NoError(t, f.renderer.Render(containerOf(), nil, nil))
	assert.Contains(t, f.log.String(), "GL_INVALID_OPERATION")
}

func TestBackendDiagnosticsCanBeDisabled(t *testing.T) {
	cfg := config.DefaultConfig().Renderer
	cfg.CheckBackendErrors = false
	f := newFixture(t, WithConfig(cfg))
	f.device.RaiseError(headless.ErrInvalidOperation)

	require.NoError(t, f.renderer.Render(containerOf(), nil, nil))
	assert.NotContains(t, f.log.String(), "GL_INVALID_OPERATION")
}

func TestConfigAmbientColor(t *testing.T) {
	cfg := config.DefaultConfig().Renderer
	cfg.AmbientColor = config.RGB{R: 10, G: 20, B: 30}
	f := newFixture(t, WithConfig(cfg))
	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 255}, f.renderer.AmbientColor())

	f.renderer.SetAmbientColor(color.NRGBA{R: 255, A: 255})
	sc, _ := litScene()
	require.NoError(t, f.renderer.Render(containerOf(sc), nil, nil))
	ambient := f.drawsWith(f.renderer.lights.ambient.program)
	require.Len(t, ambient, 1)
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, ambient[0].Uniforms["ambientColor"])
}

func TestCaptureFrame(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.renderer.Render(containerOf(), nil, nil))

	img, err := f.renderer.CaptureFrame()
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
	assert.Equal(t, 600, img.Bounds().Dy())
	assert.Equal(t, color.NRGBA{A: 255}, img.NRGBAAt(400, 300))
}

func TestRenderAndCaptureReadsBeforePresent(t *testing.T) {
	f := newFixture(t)
	f.context.Device = f.device

	img, err := f.renderer.RenderAndCapture(containerOf(), nil, f.context)
	require.NoError(t, err)
	assert.Equal(t, 1, f.context.Swaps())
	require.NotNil(t, img)
	assert.Equal(t, color.NRGBA{A: 255}, img.NRGBAAt(400, 300))

	// after the swap only undefined contents remain
	stale, err := f.renderer.CaptureFrame()
	require.NoError(t, err)
	assert.Equal(t, uint8(headless.UndefinedByte), stale.NRGBAAt(400, 300).R)
}

func TestRenderAndCaptureKeepsFrameOnUIError(t *testing.T) {
	f := newFixture(t)
	dc := ui.NewDrawingContext()
	dc.PushRectFilled(ui.Rect{X: 0, Y: 0, W: 10, H: 10}, color.NRGBA{A: 255})
	dc.CommitGeometry(ui.ImageTexture(nil))

	img, err := f.renderer.RenderAndCapture(containerOf(), dc, nil)
	var rerr *RendererError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, KindUIRender, rerr.Kind)
	assert.NotNil(t, img)
}

func TestCloseReleasesEverything(t *testing.T) {
	device := headless.NewDevice()
	r, err := New(gpu.NewState(device), 64, 64, WithLogger(logger.NewWriterLogger("error", &bytes.Buffer{})))
	require.NoError(t, err)

	sc, _ := litScene()
	require.NoError(t, r.Render(containerOf(sc), nil, nil))
	r.Close()
	assert.Zero(t, device.LiveObjects())
}

func TestFrameMatrixCoversFrame(t *testing.T) {
	m := frameMatrix(800, 600)
	topLeft := mgl32.TransformCoordinate(mgl32.Vec3{0, 0, 0}, m)
	bottomRight := mgl32.TransformCoordinate(mgl32.Vec3{1, 1, 0}, m)
	assert.InDeltaSlice(t, []float32{-1, 1}, topLeft[:2], 1e-6)
	assert.InDeltaSlice(t, []float32{1, -1}, bottomRight[:2], 1e-6)
}
