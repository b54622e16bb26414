// Package platform opens the GLFW window and OpenGL context the viewer
// renders into and maps keyboard and mouse state to engine controls.
package platform

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"

	"lumen/internal/logger"
	"lumen/pkg/config"
	"lumen/pkg/engine"
)

// Window owns the GLFW window and its OpenGL 4.1 core context. It must be
// created and used on the main thread.
type Window struct {
	window *glfw.Window
	input  *InputHandler
	logger *logger.Logger

	width, height int
}

// NewWindow initializes GLFW, opens a window and makes its context current
func NewWindow(cfg config.WindowConfig, log *logger.Logger) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GLFW: %v", err)
	}

	// Set window hints
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.StencilBits, 8)
	glfw.WindowHint(glfw.DepthBits, 24)

	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create GLFW window: %v", err)
	}

	window.MakeContextCurrent()
	if cfg.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	w := &Window{
		window: window,
		input:  NewInputHandler(window),
		logger: log.WithPrefix("window"),
	}
	w.width, w.height = window.GetFramebufferSize()

	// HiDPI displays report a framebuffer larger than the window
	window.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.width, w.height = width, height
		w.logger.Debugf("Framebuffer resized to %dx%d", width, height)
	})
	window.SetScrollCallback(func(_ *glfw.Window, _, yoffset float64) {
		w.input.Scroll(yoffset)
	})

	return w, nil
}

func (w *Window) SwapBuffers() error {
	w.window.SwapBuffers()
	return nil
}

func (w *Window) ShouldClose() bool {
	return w.window.ShouldClose()
}

func (w *Window) PollEvents() {
	glfw.PollEvents()
	w.input.Update()
}

// FramebufferSize returns the size last reported by GLFW, in pixels
func (w *Window) FramebufferSize() (int, int) {
	return w.width, w.height
}

func (w *Window) Controls() engine.Controls {
	return w.input.Controls()
}

// Close destroys the window and terminates GLFW
func (w *Window) Close() {
	w.window.Destroy()
	glfw.Terminate()
}
