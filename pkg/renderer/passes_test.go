package renderer

import (
	"image/color"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumen/pkg/gpu"
	"lumen/pkg/gpu/headless"
	"lumen/pkg/scene"
	"lumen/pkg/ui"
)

func TestSoftFadeWidth(t *testing.T) {
	tests := []struct {
		name   string
		factor float32
		want   float32
	}{
		{"zero factor is softest", 0, 1},
		{"negative factor is clamped", -5, 1},
		{"halfway", 50, 0.5},
		{"max factor is a hard test", 100, 0},
		{"above max is clamped", 250, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SoftFadeWidth(tt.factor, 100, 1), 1e-6)
		})
	}
	assert.Zero(t, SoftFadeWidth(1, 0, 1), "no valid range disables the fade")
}

func TestSoftParticleOpacity(t *testing.T) {
	soft := SoftFadeWidth(0, 100, 1)
	assert.InDelta(t, 0.5, SoftParticleOpacity(10, 9.5, soft), 1e-6)
	assert.Zero(t, SoftParticleOpacity(10, 10.5, soft), "behind geometry")
	assert.Equal(t, float32(1), SoftParticleOpacity(10, 8, soft), "far in front")

	hard := SoftFadeWidth(100, 100, 1)
	for _, particleDepth := range []float32{9.999, 9.5, 5} {
		assert.Equal(t, float32(1), SoftParticleOpacity(10, particleDepth, hard))
	}
	assert.Zero(t, SoftParticleOpacity(10, 10.001, hard))
}

func particleScene(factor float32, depths ...float32) (*scene.Scene, *scene.ParticleSystem) {
	sc := scene.NewScene()
	sc.Graph.Add(scene.NewCamera("camera"))

	ps := scene.NewParticleSystem("smoke")
	ps.SetSoftBoundarySharpnessFactor(factor)
	for _, z := range depths {
		ps.Spawn(scene.Particle{
			Position: mgl32.Vec3{0, 0, z},
			Size:     0.5,
			Lifetime: 10,
			Color:    color.NRGBA{R: 255, G: 255, B: 255, A: 128},
		})
	}
	sc.Graph.Add(ps)
	sc.Graph.Add(scene.NewParticleSystem("empty"))
	sc.Update(mgl32.Vec2{800, 600}, 0)
	return sc, ps
}

func TestParticlePassDrawsSortedBillboards(t *testing.T) {
	f := newFixture(t)
	sc, _ := particleScene(0, 4, 6, 5)

	require.NoError(t, f.renderer.Render(containerOf(sc), nil, nil))

	draws := f.drawsWith(f.renderer.particles.shader.program)
	require.Len(t, draws, 1, "the empty system draws nothing")
	call := draws[0]
	assert.Equal(t, 18, call.Count)
	assert.Equal(t, f.renderer.gbuffer.targets.colorOnly.Handle(), call.Framebuffer)
	assert.Equal(t, gpu.BlendAlpha, call.Pipeline.Blend)
	assert.False(t, call.Pipeline.DepthWrite)
	assert.Equal(t, float32(1), call.Uniforms["softBoundaryFadeWidth"])
	assert.Equal(t, f.renderer.gbuffer.DepthStencil().Handle(), call.Texture("depthBufferTexture"))
	assert.Equal(t, f.renderer.whiteDummy.Handle(), call.Texture("diffuseTexture"))

	geometry, ok := f.device.Geometry(call.Geometry)
	require.True(t, ok)
	stride := billboardLayout.Stride
	require.Len(t, geometry.Vertices, 12*stride)
	assert.Equal(t, float32(6), geometry.Vertices[2], "farthest particle first")
	assert.Equal(t, float32(5), geometry.Vertices[4*stride+2])
	assert.Equal(t, float32(4), geometry.Vertices[8*stride+2])
	assert.InDelta(t, 128.0/255, geometry.Vertices[8], 1e-6, "vertex alpha")
}

func TestParticleSharpnessAtMaximumIsHardEdge(t *testing.T) {
	f := newFixture(t)
	sc, _ := particleScene(100, 5)

	require.NoError(t, f.renderer.Render(containerOf(sc), nil, nil))
	draws := f.drawsWith(f.renderer.particles.shader.program)
	require.Len(t, draws, 1)
	assert.Equal(t, float32(0), draws[0].Uniforms["softBoundaryFadeWidth"])
}

func TestSpritePassUsesSpriteTextures(t *testing.T) {
	f := newFixture(t)
	sc := scene.NewScene()
	sc.Graph.Add(scene.NewCamera("camera"))

	tex, err := scene.NewTexture("flare.png", 1, 1, gpu.PixelRGBA8, []byte{255, 200, 0, 255})
	require.NoError(t, err)
	near := scene.NewSprite("near")
	near.SetPosition(mgl32.Vec3{0, 0, 2})
	near.SetTexture(tex)
	sc.Graph.Add(near)

	far := scene.NewSprite("far")
	far.SetPosition(mgl32.Vec3{0, 0, 8})
	sc.Graph.Add(far)
	sc.Update(mgl32.Vec2{800, 600}, 0)
	f.renderer.UploadResources(textureList{tex})

	require.NoError(t, f.renderer.Render(containerOf(sc), nil, nil))
	draws := f.drawsWith(f.renderer.sprites.shader.program)
	require.Len(t, draws, 2)
	assert.Equal(t, f.renderer.whiteDummy.Handle(), draws[0].Texture("diffuseTexture"), "far sprite first")
	assert.Equal(t, tex.GPUTexture().Handle(), draws[1].Texture("diffuseTexture"))
	assert.Equal(t, 6, draws[1].Offset)
	assert.Equal(t, f.renderer.gbuffer.FrameBuffer().Handle(), draws[0].Framebuffer)
	assert.True(t, draws[0].Pipeline.DepthTest)
	assert.False(t, draws[0].Pipeline.DepthWrite)

	// the composite blit follows the sprites
	all := f.device.Draws()
	last := all[len(all)-1]
	assert.Equal(t, f.renderer.flat.program.Handle(), last.Program)
}

func TestUIClippingAndFonts(t *testing.T) {
	f := newFixture(t)
	font, err := ui.DefaultFont()
	require.NoError(t, err)

	dc := ui.NewDrawingContext()
	dc.SetNesting(1)
	dc.PushRectFilled(ui.Rect{X: 10, Y: 10, W: 100, H: 50}, color.NRGBA{A: 255})
	dc.CommitClip()
	dc.PushRectFilled(ui.Rect{X: 0, Y: 0, W: 200, H: 200}, color.NRGBA{R: 255, A: 255})
	dc.CommitGeometry(ui.NoTexture())
	dc.SetNesting(0)
	dc.PushText(font, "fps", mgl32.Vec2{4, 4}, color.NRGBA{G: 255, A: 255})
	dc.CommitGeometry(ui.FontTexture(font))

	require.NoError(t, f.renderer.Render(containerOf(), dc, nil))
	draws := f.drawsWith(f.renderer.ui.shader.program)
	require.Len(t, draws, 3)

	clip := draws[0]
	assert.False(t, clip.Pipeline.ColorWrite)
	assert.Equal(t, gpu.StencilIncr, clip.Pipeline.Stencil.Pass)
	assert.Equal(t, int32(0), clip.Pipeline.Stencil.Ref)

	clipped := draws[1]
	assert.True(t, clipped.Pipeline.Stencil.Enabled)
	assert.Equal(t, gpu.CompareEqual, clipped.Pipeline.Stencil.Func)
	assert.Equal(t, int32(1), clipped.Pipeline.Stencil.Ref)
	assert.Equal(t, int32(0), clipped.Uniforms["isFont"])

	text := draws[2]
	assert.False(t, text.Pipeline.Stencil.Enabled)
	assert.Equal(t, int32(1), text.Uniforms["isFont"])
	require.True(t, font.Atlas().IsResident(), "atlas uploaded on first use")
	assert.Equal(t, font.Atlas().GPUTexture().Handle(), text.Texture("diffuseTexture"))
	assert.Equal(t, gpu.Handle(0), text.Framebuffer)
	assert.Equal(t, mgl32.Ortho(0, 800, 600, 0, -1, 1), text.Uniforms["worldViewProjection"])

	uploads := f.device.TextureUploads()
	require.NoError(t, f.renderer.Render(containerOf(), dc, nil))
	assert.Equal(t, uploads, f.device.TextureUploads(), "atlas stays resident")
	font.Atlas().Release()
}

func TestUIRejectsMalformedCommands(t *testing.T) {
	f := newFixture(t)
	r := f.renderer

	dc := ui.NewDrawingContext()
	dc.PushRectFilled(ui.Rect{W: 10, H: 10}, color.NRGBA{A: 255})
	dc.CommitClip()
	err := r.ui.Render(f.state, 800, 600, dc, r.whiteDummy)
	var uiErr *UIRenderError
	require.ErrorAs(t, err, &uiErr)
	assert.Equal(t, 0, uiErr.CommandIndex)

	dc = ui.NewDrawingContext()
	dc.PushRectFilled(ui.Rect{W: 10, H: 10}, color.NRGBA{A: 255})
	dc.CommitGeometry(ui.FontTexture(nil))
	require.ErrorAs(t, r.ui.Render(f.state, 800, 600, dc, r.whiteDummy), &uiErr)
	assert.Equal(t, 0, uiErr.CommandIndex)

	assert.NoError(t, r.ui.Render(f.state, 800, 600, nil, r.whiteDummy))
	assert.NoError(t, r.ui.Render(f.state, 800, 600, ui.NewDrawingContext(), r.whiteDummy))
}

func TestGeometryCacheReuploadsAndEvicts(t *testing.T) {
	device := headless.NewDevice()
	state := gpu.NewState(device)
	cache := NewGeometryCache()
	data := scene.MakeQuad()

	first, err := cache.Get(state, data)
	require.NoError(t, err)
	second, err := cache.Get(state, data)
	require.NoError(t, err)
	assert.Same(t, first, second)

	obj, ok := device.Geometry(first.Handle())
	require.True(t, ok)
	assert.Equal(t, 1, obj.Updates)

	data.SetGeometry(data.Vertices(), data.Triangles())
	_, err = cache.Get(state, data)
	require.NoError(t, err)
	assert.Equal(t, 2, obj.Updates, "new version re-uploads")

	for i := 0; i <= geometryCacheTTL; i++ {
		cache.Advance()
	}
	assert.Zero(t, cache.Len())
	_, ok = device.Geometry(first.Handle())
	assert.False(t, ok)
}

func TestGBufferSkipsBrokenSurfaces(t *testing.T) {
	f := newFixture(t)
	sc := scene.NewScene()
	sc.Graph.Add(scene.NewCamera("camera"))

	broken := scene.NewSurfaceData(
		[]scene.Vertex{{Position: mgl32.Vec3{0, 0, 0}}},
		[][3]uint32{{0, 1, 2}},
	)
	mesh := scene.NewMesh("mesh", scene.NewSurface(nil), scene.NewSurface(broken), scene.NewSurface(scene.MakeCube()))
	mesh.SetPosition(mgl32.Vec3{0, 0, 5})
	sc.Graph.Add(mesh)
	sc.Update(mgl32.Vec2{800, 600}, 0)

	for i := 0; i < 2; i++ {
		require.NoError(t, f.renderer.Render(containerOf(sc), nil, nil))
	}
	assert.Equal(t, 1, f.renderer.Statistics().DrawnSurfaces)
	assert.Len(t, f.drawsWith(f.renderer.gbuffer.shader.program), 2)
	assert.Equal(t, 1, strings.Count(f.log.String(), "surface 1"), "broken surface is reported once")
}

func TestBillboardPassFailuresAreLogged(t *testing.T) {
	f := newFixture(t)
	f.log.Reset()

	for _, failures := range []*passFailures{&f.renderer.sprites.failures, &f.renderer.particles.failures} {
		err := f.renderer.sprites.geometry.Set([]float32{0, 0, 0}, nil)
		require.Error(t, err, "a partial vertex is rejected")
		failures.report("batch rejected: %v", err)
		failures.report("batch rejected: %v", err)
	}

	out := f.log.String()
	assert.Equal(t, 2, strings.Count(out, "[WARN ]"), "one warning per pass")
	assert.Equal(t, 4, strings.Count(out, "batch rejected"))
	assert.Contains(t, out, "sprites] batch rejected")
	assert.Contains(t, out, "particles] batch rejected")
}

func TestSortBackToFront(t *testing.T) {
	items := []billboard{
		{center: mgl32.Vec3{0, 0, 2}},
		{center: mgl32.Vec3{0, 0, 9}},
		{center: mgl32.Vec3{0, 0, 5}},
		{center: mgl32.Vec3{0, 0, 5}, size: 1},
	}
	sortBackToFront(items, mgl32.Vec3{})

	var depths []float32
	for _, it := range items {
		depths = append(depths, it.center.Z())
	}
	assert.Equal(t, []float32{9, 5, 5, 2}, depths)
	assert.Zero(t, items[1].size, "ties keep their order")
	assert.Equal(t, float32(81), items[0].distance)
}
