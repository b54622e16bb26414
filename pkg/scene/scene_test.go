package scene

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

func TestGraphHierarchyAndTransforms(t *testing.T) {
	g := NewGraph()
	parent := NewPivot("parent")
	parent.SetPosition(mgl32.Vec3{1, 0, 0})
	child := NewMesh("child")
	child.SetPosition(mgl32.Vec3{0, 2, 0})

	ph := g.Add(parent)
	ch := g.Add(child)
	require.NoError(t, g.Link(ch, ph))
	assert.Error(t, g.Link(ph, ch), "cycle")
	assert.Error(t, g.Link(ph, NoHandle))

	g.Update(mgl32.Vec2{100, 100}, 0)
	position := child.GlobalPosition()
	assert.InDeltaSlice(t, []float32{1, 2, 0}, position[:], 1e-6)
	assert.Equal(t, []Handle{ch}, parent.Children())

	g.Remove(ph)
	assert.False(t, g.IsValid(ph))
	assert.False(t, g.IsValid(ch))
	assert.Equal(t, 1, g.Len())

	// freed slots are reused
	h := g.Add(NewPivot("reuse"))
	assert.True(t, h == ph || h == ch)
}

func TestHiddenParentHidesSubtree(t *testing.T) {
	g := NewGraph()
	parent := NewPivot("group")
	child := NewMesh("child")
	grandchild := NewSprite("grandchild")
	ph := g.Add(parent)
	ch := g.Add(child)
	gh := g.Add(grandchild)
	require.NoError(t, g.Link(ch, ph))
	require.NoError(t, g.Link(gh, ch))

	g.Update(mgl32.Vec2{100, 100}, 0)
	assert.True(t, grandchild.GloballyVisible())

	parent.SetVisible(false)
	g.Update(mgl32.Vec2{100, 100}, 0)
	assert.False(t, parent.GloballyVisible())
	assert.True(t, child.Visible(), "own flag untouched")
	assert.False(t, child.GloballyVisible())
	assert.False(t, grandchild.GloballyVisible())

	parent.SetVisible(true)
	child.SetVisible(false)
	g.Update(mgl32.Vec2{100, 100}, 0)
	assert.True(t, parent.GloballyVisible())
	assert.False(t, grandchild.GloballyVisible())
}

func TestLinearIterAndFirstCamera(t *testing.T) {
	g := NewGraph()
	g.Add(NewMesh("mesh"))
	disabled := NewCamera("off")
	disabled.SetEnabled(false)
	g.Add(disabled)
	first := NewCamera("first")
	g.Add(first)
	g.Add(NewCamera("second"))

	kinds := map[Kind]int{}
	for n := range g.LinearIter() {
		kinds[n.Kind()]++
	}
	assert.Equal(t, 3, kinds[KindCamera])
	assert.Equal(t, 1, kinds[KindMesh])
	assert.Equal(t, 1, kinds[KindPivot])

	cam, ok := g.FirstCamera()
	require.True(t, ok)
	assert.Same(t, first, cam)

	_, ok = NewGraph().FirstCamera()
	assert.False(t, ok)
}

func TestLookupByType(t *testing.T) {
	g := NewGraph()
	h := g.Add(NewParticleSystem("ps"))

	ps, ok := Lookup[*ParticleSystem](g, h)
	require.True(t, ok)
	assert.Equal(t, "ps", ps.Name())

	_, ok = Lookup[*Mesh](g, h)
	assert.False(t, ok)
	_, ok = Lookup[*Mesh](g, Handle(99))
	assert.False(t, ok)
}

func TestCameraFrustumCulling(t *testing.T) {
	g := NewGraph()
	cam := NewCamera("cam")
	g.Add(cam)
	g.Update(mgl32.Vec2{800, 600}, 0)

	f := cam.Frustum()
	assert.True(t, f.IntersectsSphere(mgl32.Vec3{0, 0, 5}, 1), "in front")
	assert.False(t, f.IntersectsSphere(mgl32.Vec3{0, 0, -5}, 1), "behind")
	assert.True(t, f.IntersectsSphere(mgl32.Vec3{0, 0, -0.5}, 1), "straddling the near plane")
	assert.False(t, f.IntersectsSphere(mgl32.Vec3{0, 0, 5000}, 1), "beyond far plane")
	assert.False(t, f.ContainsPoint(mgl32.Vec3{100, 0, 5}))

	x, y, w, h := cam.ViewportPixels(mgl32.Vec2{800, 600})
	assert.Equal(t, [4]int{0, 0, 800, 600}, [4]int{x, y, w, h})
}

func TestMeshWorldBoundingSphere(t *testing.T) {
	g := NewGraph()
	mesh := NewMesh("cube", NewSurface(MakeCube()))
	mesh.SetPosition(mgl32.Vec3{0, 0, 10})
	mesh.Local().Scale = mgl32.Vec3{2, 2, 2}
	g.Add(mesh)
	g.Update(mgl32.Vec2{1, 1}, 0)

	center, radius := mesh.WorldBoundingSphere()
	assert.InDeltaSlice(t, []float32{0, 0, 10}, center[:], 1e-5)
	assert.InDelta(t, 2*0.8660254, radius, 1e-4)

	empty := NewMesh("empty", NewSurface(nil))
	_, radius = empty.WorldBoundingSphere()
	assert.Zero(t, radius)
}

func TestSurfaceFlattenAndTangents(t *testing.T) {
	quad := MakeQuad()
	floats, indices := quad.Flatten()
	assert.Len(t, floats, 4*VertexFloats)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, indices)

	for _, v := range quad.Vertices() {
		assert.InDelta(t, 1, v.Tangent.Vec3().Len(), 1e-5)
		assert.InDelta(t, 0, v.Tangent.Vec3().Dot(v.Normal), 1e-5)
	}

	before := quad.Version()
	quad.SetGeometry(nil, nil)
	assert.Greater(t, quad.Version(), before)
	assert.True(t, quad.IsEmpty())
}

func TestParticleSystemEmitsUpToCap(t *testing.T) {
	ps := NewParticleSystem("ps")
	ps.SetSeed(42)
	e := NewSphereEmitter(1)
	e.ParticlesPerSecond = 10
	e.MaxParticles = 5
	e.Lifetime = Range{100, 100}
	ps.AddEmitter(e)

	ps.Update(0.25)
	assert.Equal(t, 2, ps.AliveCount())

	ps.Update(10)
	assert.Equal(t, 5, ps.AliveCount())
	assert.Equal(t, 5, e.AliveParticles())

	for _, p := range ps.AliveParticles() {
		assert.True(t, p.Alive())
	}
}

func TestParticlesDieAndSlotsAreReused(t *testing.T) {
	ps := NewParticleSystem("ps")
	ps.SetAcceleration(mgl32.Vec3{})
	ps.Spawn(Particle{Lifetime: 0.5, Velocity: mgl32.Vec3{1, 0, 0}, Size: 1, SizeModifier: -4})

	ps.Update(0.1)
	alive := ps.AliveParticles()
	require.Len(t, alive, 1)
	assert.InDelta(t, 0.1, alive[0].Position[0], 1e-6)
	assert.InDelta(t, 0.6, alive[0].Size, 1e-6)

	ps.Update(0.5)
	assert.Zero(t, ps.AliveCount())

	ps.Spawn(Particle{Lifetime: 1})
	assert.Equal(t, 1, ps.AliveCount())
	assert.Len(t, ps.particles, 1)
}

func TestDisabledParticleSystemIsFrozen(t *testing.T) {
	ps := NewParticleSystem("ps")
	ps.AddEmitter(NewCuboidEmitter(mgl32.Vec3{1, 1, 1}))
	ps.SetEnabled(false)
	ps.Update(5)
	assert.Zero(t, ps.AliveCount())
}

func TestEmitterShapesStayInsideVolume(t *testing.T) {
	ps := NewParticleSystem("ps")
	ps.SetSeed(7)

	sphere := NewSphereEmitter(2)
	cuboid := NewCuboidEmitter(mgl32.Vec3{1, 2, 3})
	cylinder := NewCylinderEmitter(1, 4)
	for i := 0; i < 200; i++ {
		assert.LessOrEqual(t, sphere.samplePosition(ps.rng).Len(), float32(2.0001))

		p := cuboid.samplePosition(ps.rng)
		assert.LessOrEqual(t, p[2], float32(3))
		assert.GreaterOrEqual(t, p[1], float32(-2))

		c := cylinder.samplePosition(ps.rng)
		assert.LessOrEqual(t, mgl32.Vec2{c[0], c[2]}.Len(), float32(1.0001))
		assert.GreaterOrEqual(t, c[1], float32(0))
		assert.LessOrEqual(t, c[1], float32(4))
	}
}

func TestRemoveAndInsertEmitter(t *testing.T) {
	ps := NewParticleSystem("ps")
	a, b := NewSphereEmitter(1), NewCylinderEmitter(1, 1)
	ps.AddEmitter(a)
	ps.AddEmitter(b)

	removed, err := ps.RemoveEmitter(0)
	require.NoError(t, err)
	assert.Same(t, a, removed)
	assert.Equal(t, []*Emitter{b}, ps.Emitters())

	_, err = ps.RemoveEmitter(3)
	assert.Error(t, err)

	require.NoError(t, ps.InsertEmitter(0, a))
	assert.Equal(t, []*Emitter{a, b}, ps.Emitters())
	assert.Error(t, ps.InsertEmitter(5, a))
}

func TestTextureEnsureResidentUploadsOnce(t *testing.T) {
	state := gpu.NewState(headless.NewDevice())
	tex, err := NewTexture("white.png", 1, 1, gpu.PixelRGBA8, []byte{255, 255, 255, 255})
	require.NoError(t, err)

	calls := 0
	upload := func(kind gpu.TextureKind, pixel gpu.PixelKind, bytes []byte) (*gpu.Texture, error) {
		calls++
		return gpu.NewTexture(state, kind, pixel, bytes, true)
	}

	uploaded, err := tex.EnsureResident(upload)
	require.NoError(t, err)
	assert.True(t, uploaded)
	uploaded, err = tex.EnsureResident(upload)
	require.NoError(t, err)
	assert.False(t, uploaded)
	assert.Equal(t, 1, calls)
	assert.True(t, tex.IsResident())

	tex.Release()
	assert.False(t, tex.IsResident())

	_, err = tex.EnsureResident(func(gpu.TextureKind, gpu.PixelKind, []byte) (*gpu.Texture, error) {
		return nil, errors.New("out of memory")
	})
	assert.ErrorContains(t, err, "white.png")
	assert.False(t, tex.IsResident())
}

func TestTextureFromImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(1, 0, color.NRGBA{R: 1, G: 2, B: 3, A: 4})

	tex, err := NewTextureFromImage("img", img)
	require.NoError(t, err)
	w, h := tex.Size()
	assert.Equal(t, 2, w)
	assert.Equal(t, 1, h)
	assert.Equal(t, gpu.PixelRGBA8, tex.PixelKind())
	assert.Equal(t, []byte{0, 0, 0, 0, 1, 2, 3, 4}, tex.Bytes())

	_, err = NewTexture("bad", 2, 2, gpu.PixelRGBA8, []byte{1})
	assert.Error(t, err)
}

func TestContainerSkipsDisabledScenes(t *testing.T) {
	c := NewContainer()
	a, b := NewScene(), NewScene()
	b.Enabled = false
	c.Add(a)
	c.Add(b)

	var seen []*Scene
	for s := range c.All() {
		seen = append(seen, s)
	}
	assert.Equal(t, []*Scene{a}, seen)

	c.Remove(a)
	assert.Equal(t, 1, c.Len())
}
