package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Rect is a viewport in normalized [0,1] frame coordinates
type Rect struct {
	X, Y, W, H float32
}

// Camera is a perspective camera. Its matrices are recalculated by
// Graph.Update and only read by the renderer.
type Camera struct {
	NodeBase

	fov      float32
	zNear    float32
	zFar     float32
	viewport Rect
	enabled  bool

	view       mgl32.Mat4
	projection mgl32.Mat4
}

// NewCamera creates a camera with a 75 degree vertical field of view
// covering the whole frame.
func NewCamera(name string) *Camera {
	return &Camera{
		NodeBase:   newBase(name),
		fov:        mgl32.DegToRad(75),
		zNear:      0.025,
		zFar:       2048,
		viewport:   Rect{0, 0, 1, 1},
		enabled:    true,
		view:       mgl32.Ident4(),
		projection: mgl32.Ident4(),
	}
}

func (*Camera) Kind() Kind {
	return KindCamera
}

func (c *Camera) Fov() float32 {
	return c.fov
}

// SetFov sets the vertical field of view in radians
func (c *Camera) SetFov(fov float32) {
	c.fov = fov
}

func (c *Camera) ZNear() float32 {
	return c.zNear
}

func (c *Camera) ZFar() float32 {
	return c.zFar
}

func (c *Camera) SetZRange(near, far float32) {
	c.zNear, c.zFar = near, far
}

func (c *Camera) Viewport() Rect {
	return c.viewport
}

func (c *Camera) SetViewport(r Rect) {
	c.viewport = r
}

func (c *Camera) Enabled() bool {
	return c.enabled
}

func (c *Camera) SetEnabled(enabled bool) {
	c.enabled = enabled
}

// ViewportPixels maps the normalized viewport onto a frame of frameSize
func (c *Camera) ViewportPixels(frameSize mgl32.Vec2) (x, y, w, h int) {
	return int(c.viewport.X * frameSize[0]),
		int(c.viewport.Y * frameSize[1]),
		int(c.viewport.W * frameSize[0]),
		int(c.viewport.H * frameSize[1])
}

// Calculate rebuilds the view and projection matrices from the global
// transform and the aspect ratio of the viewport.
func (c *Camera) Calculate(frameSize mgl32.Vec2) {
	_, _, w, h := c.ViewportPixels(frameSize)
	aspect := float32(1)
	if w > 0 && h > 0 {
		aspect = float32(w) / float32(h)
	}
	c.projection = mgl32.Perspective(c.fov, aspect, c.zNear, c.zFar)

	eye := c.GlobalPosition()
	c.view = mgl32.LookAtV(eye, eye.Add(c.LookVector()), c.UpVector())
}

func (c *Camera) ViewMatrix() mgl32.Mat4 {
	return c.view
}

func (c *Camera) ProjectionMatrix() mgl32.Mat4 {
	return c.projection
}

// ViewProjectionMatrix returns projection * view
func (c *Camera) ViewProjectionMatrix() mgl32.Mat4 {
	return c.projection.Mul4(c.view)
}

// InverseViewProjectionMatrix maps clip space back to world space
func (c *Camera) InverseViewProjectionMatrix() mgl32.Mat4 {
	return c.ViewProjectionMatrix().Inv()
}

// Frustum returns the culling volume of the current matrices
func (c *Camera) Frustum() Frustum {
	return FrustumFromMatrix(c.ViewProjectionMatrix())
}
