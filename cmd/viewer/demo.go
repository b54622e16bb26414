package main

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl32"

	"lumen/pkg/scene"
)

// demoScene is a lit room with a smoke column, a spot light and a
// sprite. It returns the handle of the particle system.
func demoScene(cookie, smoke *scene.Texture) (*scene.Scene, scene.Handle) {
	sc := scene.NewScene()
	g := sc.Graph

	camera := scene.NewCamera("camera")
	camera.SetPosition(mgl32.Vec3{0, 1.5, -4})
	g.Add(camera)

	floor := scene.NewMesh("floor", scene.NewSurface(scene.MakeCube()))
	floor.Local().Position = mgl32.Vec3{0, -0.55, 4}
	floor.Local().Scale = mgl32.Vec3{10, 0.1, 10}
	g.Add(floor)

	cube := scene.NewMesh("cube", scene.NewSurface(scene.MakeCube()))
	cube.SetPosition(mgl32.Vec3{-1.5, 0, 5})
	g.Add(cube)

	ball := scene.NewSurface(scene.MakeSphere(24, 16, 0.6))
	ball.SetColor(color.NRGBA{R: 220, G: 120, B: 80, A: 255})
	sphere := scene.NewMesh("sphere", ball)
	sphere.SetPosition(mgl32.Vec3{1.5, 0.1, 5})
	g.Add(sphere)

	warm := scene.NewPointLight("warm", 6)
	warm.SetColor(color.NRGBA{R: 255, G: 200, B: 150, A: 255})
	warm.SetPosition(mgl32.Vec3{-2, 2, 3})
	g.Add(warm)

	spot := scene.NewSpotLight("spot", 12, mgl32.DegToRad(20), mgl32.DegToRad(10))
	spot.SetPosition(mgl32.Vec3{1.5, 4, 5})
	// aim down
	spot.Local().Rotation = mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{1, 0, 0})
	spot.SetTexture(cookie)
	g.Add(spot)

	smokeColumn := scene.NewParticleSystem("smoke")
	smokeColumn.SetTexture(smoke)
	smokeColumn.SetAcceleration(mgl32.Vec3{0, 0.2, 0})
	emitter := scene.NewCylinderEmitter(0.3, 0.1)
	emitter.Color = color.NRGBA{R: 200, G: 200, B: 200, A: 120}
	smokeColumn.AddEmitter(emitter)
	smokeColumn.SetPosition(mgl32.Vec3{0, -0.5, 6})
	particles := g.Add(smokeColumn)

	flare := scene.NewSprite("flare")
	flare.SetPosition(mgl32.Vec3{-2, 2, 3})
	flare.SetSize(0.2)
	flare.SetColor(color.NRGBA{R: 255, G: 220, B: 160, A: 200})
	g.Add(flare)

	return sc, particles
}
