package platform

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"lumen/pkg/engine"
)

// trackedKeys are the keys Controls reads
var trackedKeys = []glfw.Key{
	glfw.KeyW, glfw.KeyA, glfw.KeyS, glfw.KeyD,
	glfw.KeySpace, glfw.KeyLeftControl,
	glfw.KeyLeftShift, glfw.KeyF1, glfw.KeyF12, glfw.KeyEscape,
}

// InputHandler keeps keyboard and mouse state for the current and the
// previous frame
type InputHandler struct {
	window            *glfw.Window
	currentKeys       map[glfw.Key]bool
	previousKeys      map[glfw.Key]bool
	currentMousePos   [2]float64
	previousMousePos  [2]float64
	currentMouseBtns  map[glfw.MouseButton]bool
	previousMouseBtns map[glfw.MouseButton]bool
	mouseDelta        [2]float64
	mouseWheelDelta   float64
}

func NewInputHandler(window *glfw.Window) *InputHandler {
	handler := &InputHandler{
		window:            window,
		currentKeys:       make(map[glfw.Key]bool),
		previousKeys:      make(map[glfw.Key]bool),
		currentMouseBtns:  make(map[glfw.MouseButton]bool),
		previousMouseBtns: make(map[glfw.MouseButton]bool),
	}
	x, y := window.GetCursorPos()
	handler.currentMousePos = [2]float64{x, y}
	return handler
}

// Scroll accumulates wheel motion until the next Controls call
func (ih *InputHandler) Scroll(yoffset float64) {
	ih.mouseWheelDelta += yoffset
}

// Update samples the devices; call it once per frame after polling events
func (ih *InputHandler) Update() {
	for k, v := range ih.currentKeys {
		ih.previousKeys[k] = v
	}
	for b, v := range ih.currentMouseBtns {
		ih.previousMouseBtns[b] = v
	}

	ih.previousMousePos = ih.currentMousePos
	x, y := ih.window.GetCursorPos()
	ih.currentMousePos = [2]float64{x, y}
	ih.mouseDelta[0] = ih.currentMousePos[0] - ih.previousMousePos[0]
	ih.mouseDelta[1] = ih.currentMousePos[1] - ih.previousMousePos[1]

	for _, key := range trackedKeys {
		ih.currentKeys[key] = ih.window.GetKey(key) == glfw.Press
	}
	for btn := glfw.MouseButton1; btn <= glfw.MouseButtonLast; btn++ {
		ih.currentMouseBtns[btn] = ih.window.GetMouseButton(btn) == glfw.Press
	}
}

func (ih *InputHandler) IsKeyDown(key glfw.Key) bool {
	return ih.currentKeys[key]
}

// IsKeyPressed reports a key that went down this frame
func (ih *InputHandler) IsKeyPressed(key glfw.Key) bool {
	return ih.currentKeys[key] && !ih.previousKeys[key]
}

func (ih *InputHandler) IsMouseButtonDown(button glfw.MouseButton) bool {
	return ih.currentMouseBtns[button]
}

// Controls maps the sampled state: WASD moves, space and control rise and
// sink, shift runs, the right mouse button looks around, F1 toggles the
// overlay, F12 captures and escape quits.
func (ih *InputHandler) Controls() engine.Controls {
	var move mgl32.Vec3
	axis := func(positive, negative glfw.Key) float32 {
		switch {
		case ih.IsKeyDown(positive) && !ih.IsKeyDown(negative):
			return 1
		case ih.IsKeyDown(negative) && !ih.IsKeyDown(positive):
			return -1
		}
		return 0
	}
	// the camera's side axis points to screen left
	move[0] = axis(glfw.KeyA, glfw.KeyD)
	move[1] = axis(glfw.KeySpace, glfw.KeyLeftControl)
	move[2] = axis(glfw.KeyW, glfw.KeyS)
	if ih.IsKeyDown(glfw.KeyLeftShift) {
		move = move.Mul(3)
	}

	var look mgl32.Vec2
	if ih.IsMouseButtonDown(glfw.MouseButtonRight) {
		look = mgl32.Vec2{float32(ih.mouseDelta[0]), float32(ih.mouseDelta[1])}
	}

	zoom := float32(ih.mouseWheelDelta)
	ih.mouseWheelDelta = 0

	return engine.Controls{
		Move:          move,
		Look:          look,
		Zoom:          zoom,
		ToggleOverlay: ih.IsKeyPressed(glfw.KeyF1),
		Capture:       ih.IsKeyPressed(glfw.KeyF12),
		Quit:          ih.IsKeyDown(glfw.KeyEscape),
	}
}
