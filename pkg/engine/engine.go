// Package engine runs the viewer loop: it polls the window, steers the
// camera, advances the scenes and hands each frame to the renderer.
package engine

import (
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"lumen/internal/logger"
	"lumen/pkg/config"
	"lumen/pkg/renderer"
	"lumen/pkg/resource"
	"lumen/pkg/scene"
)

// Window is the presentation surface and input source of the loop
type Window interface {
	renderer.Context
	ShouldClose() bool
	PollEvents()
	FramebufferSize() (width, height int)
	Controls() Controls
}

// Option configures an Engine
type Option func(*Engine)

// WithClock replaces time.Now and time.Sleep for the frame cap
func WithClock(now func() time.Time, sleep func(time.Duration)) Option {
	return func(e *Engine) {
		e.clock = now
		e.sleep = sleep
	}
}

// WithCaptureDir sets where captured frames are written
func WithCaptureDir(dir string) Option {
	return func(e *Engine) {
		e.captureDir = dir
	}
}

// Engine represents the main viewer loop
type Engine struct {
	window    Window
	renderer  *renderer.Renderer
	scenes    *scene.Container
	resources renderer.ResourceManager
	overlay   *Overlay
	camera    *FlyCamera
	logger    *logger.Logger

	clock      func() time.Time
	sleep      func(time.Duration)
	frameRate  int
	captureDir string
	captures   int
	captureTo  string

	reloads    chan *config.Config
	isRunning  atomic.Bool
	lastUpdate time.Time
}

// NewEngine wires a renderer to a window. resources may be nil.
func NewEngine(window Window, r *renderer.Renderer, scenes *scene.Container, resources renderer.ResourceManager,
	cfg *config.Config, log *logger.Logger, opts ...Option) (*Engine, error) {
	overlay, err := NewOverlay()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize overlay: %w", err)
	}

	if resources == nil {
		resources = resource.NewStore(log)
	}

	e := &Engine{
		window:     window,
		renderer:   r,
		scenes:     scenes,
		resources:  resources,
		overlay:    overlay,
		camera:     NewFlyCamera(),
		logger:     log.WithPrefix("engine"),
		clock:      time.Now,
		sleep:      time.Sleep,
		frameRate:  cfg.Window.FrameRate,
		captureDir: ".",
		reloads:    make(chan *config.Config, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run starts the main loop and returns when the window closes or Stop is
// called
func (e *Engine) Run() {
	e.isRunning.Store(true)
	e.lastUpdate = e.clock()

	for e.isRunning.Load() && !e.window.ShouldClose() {
		currentTime := e.clock()
		deltaTime := float32(currentTime.Sub(e.lastUpdate).Seconds())
		e.lastUpdate = currentTime

		if err := e.Step(deltaTime); err != nil {
			e.logger.Warnf("Frame failed: %v", err)
		}

		// Cap the frame rate
		if e.frameRate > 0 {
			frameTime := e.clock().Sub(currentTime)
			targetFrameTime := time.Second / time.Duration(e.frameRate)
			if frameTime < targetFrameTime {
				e.sleep(targetFrameTime - frameTime)
			}
		}
	}

	e.logger.Info("Shutting down engine...")
}

// Stop ends Run after the current frame. It is safe to call from any
// goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

// Step runs one frame advancing the scenes by deltaTime seconds. The
// returned error comes from the UI pass or the capture read back; the
// frame was presented anyway. A frame that cannot be saved is only logged.
func (e *Engine) Step(deltaTime float32) error {
	e.window.PollEvents()
	e.applyReloads()
	e.syncFrameSize()

	controls := e.window.Controls()
	if controls.Quit {
		e.isRunning.Store(false)
	}
	if controls.ToggleOverlay {
		e.overlay.Visible = !e.overlay.Visible
	}
	if camera, ok := e.activeCamera(); ok {
		e.camera.Apply(camera, controls, deltaTime)
	}

	width, height := e.renderer.FrameSize()
	e.scenes.Update(mgl32.Vec2{float32(width), float32(height)}, deltaTime)
	e.renderer.UploadResources(e.resources)

	dc := e.overlay.Build(e.renderer.Statistics())

	path := e.captureTo
	e.captureTo = ""
	if controls.Capture && path == "" {
		e.captures++
		path = fmt.Sprintf("%s/frame-%04d.webp", e.captureDir, e.captures)
	}
	if path == "" {
		return e.renderer.Render(e.scenes, dc, e.window)
	}

	img, err := e.renderer.RenderAndCapture(e.scenes, dc, e.window)
	if img == nil {
		e.logger.Errorf("Capture failed: %v", err)
		return err
	}
	if saveErr := e.saveFrame(img, path); saveErr != nil {
		e.logger.Errorf("Capture failed: %v", saveErr)
	}
	return err
}

// CaptureNext saves the next rendered frame to path; the format follows
// the extension
func (e *Engine) CaptureNext(path string) {
	e.captureTo = path
}

func (e *Engine) saveFrame(img image.Image, path string) error {
	if err := resource.SaveImage(img, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	e.logger.Infof("Saved frame to %s", path)
	return nil
}

// ApplyConfig queues cfg for the next frame. It is safe to call from any
// goroutine; only the latest queued config is applied.
func (e *Engine) ApplyConfig(cfg *config.Config) {
	for {
		select {
		case e.reloads <- cfg:
			return
		default:
			select {
			case <-e.reloads:
			default:
			}
		}
	}
}

func (e *Engine) applyReloads() {
	select {
	case cfg := <-e.reloads:
		e.renderer.SetAmbientColor(cfg.Renderer.AmbientColor.NRGBA())
		e.renderer.SetSoftParticles(cfg.Renderer.SoftParticles)
		e.frameRate = cfg.Window.FrameRate
		e.logger.Info("Configuration reloaded")
	default:
	}
}

// syncFrameSize follows the window size. A minimized window reports zero
// and keeps the previous targets.
func (e *Engine) syncFrameSize() {
	width, height := e.window.FramebufferSize()
	if width <= 0 || height <= 0 {
		return
	}
	if w, h := e.renderer.FrameSize(); w == width && h == height {
		return
	}
	if err := e.renderer.SetFrameSize(width, height); err != nil {
		e.logger.Errorf("Failed to resize frame: %v", err)
	}
}

func (e *Engine) activeCamera() (*scene.Camera, bool) {
	for sc := range e.scenes.All() {
		if camera, ok := sc.Graph.FirstCamera(); ok {
			return camera, true
		}
	}
	return nil, false
}

// Close releases what the engine owns. The renderer and window belong to
// the caller.
func (e *Engine) Close() {
	e.overlay.Release()
}
