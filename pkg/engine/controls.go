package engine

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"lumen/internal/util"
	"lumen/pkg/scene"
)

// Controls is the input of one frame, already mapped from devices
type Controls struct {
	// Move is along the camera's side, world up and look axes, in units of
	// FlyCamera.Speed
	Move mgl32.Vec3
	// Look is the mouse motion in pixels while looking around
	Look mgl32.Vec2
	// Zoom is the wheel motion since the last frame
	Zoom float32

	ToggleOverlay bool
	Capture       bool
	Quit          bool
}

const (
	maxPitch = math32.Pi/2 - 0.01
	minFov   = 10 * math32.Pi / 180
	maxFov   = 120 * math32.Pi / 180
	zoomStep = 2 * math32.Pi / 180
)

// FlyCamera steers a camera with free movement and mouse look
type FlyCamera struct {
	Speed       float32 // units per second
	Sensitivity float32 // radians per pixel

	yaw, pitch float32
}

func NewFlyCamera() *FlyCamera {
	return &FlyCamera{Speed: 4, Sensitivity: 0.003}
}

// Apply moves cam by one frame of controls. The camera's matrices change
// on the next graph update.
func (f *FlyCamera) Apply(cam *scene.Camera, controls Controls, dt float32) {
	f.yaw -= controls.Look.X() * f.Sensitivity
	f.pitch = util.Clamp(f.pitch+controls.Look.Y()*f.Sensitivity, -maxPitch, maxPitch)

	rotation := mgl32.QuatRotate(f.yaw, mgl32.Vec3{0, 1, 0}).
		Mul(mgl32.QuatRotate(f.pitch, mgl32.Vec3{1, 0, 0}))
	local := cam.Local()
	local.Rotation = rotation

	if controls.Move.Len() > 0 {
		step := f.Speed * dt
		side := rotation.Rotate(mgl32.Vec3{1, 0, 0})
		look := rotation.Rotate(mgl32.Vec3{0, 0, 1})
		local.Position = local.Position.
			Add(side.Mul(controls.Move.X() * step)).
			Add(mgl32.Vec3{0, controls.Move.Y() * step, 0}).
			Add(look.Mul(controls.Move.Z() * step))
	}

	if controls.Zoom != 0 {
		cam.SetFov(util.Clamp(cam.Fov()-controls.Zoom*zoomStep, minFov, maxFov))
	}
}

// Orientation returns the accumulated yaw and pitch in radians
func (f *FlyCamera) Orientation() (yaw, pitch float32) {
	return f.yaw, f.pitch
}
