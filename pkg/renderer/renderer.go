// Package renderer draws scene containers with a deferred pipeline:
// geometry into a G-Buffer, lighting into a frame texture, particles and
// sprites on top, then a blit to the back buffer followed by the UI.
package renderer

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"lumen/internal/logger"
	"lumen/pkg/config"
	"lumen/pkg/gpu"
	"lumen/pkg/scene"
	"lumen/pkg/ui"
)

// ResourceManager lists the textures UploadResources makes resident
type ResourceManager interface {
	Textures() []*scene.Texture
}

// Context presents a finished frame
type Context interface {
	SwapBuffers() error
}

// Option configures a Renderer
type Option func(*Renderer)

// WithLogger sets the logger. The default logs INFO to stdout.
func WithLogger(log *logger.Logger) Option {
	return func(r *Renderer) {
		r.log = log
	}
}

// WithClock replaces time.Now for frame statistics
func WithClock(clock func() time.Time) Option {
	return func(r *Renderer) {
		r.clock = clock
	}
}

// WithConfig applies the renderer section of the configuration
func WithConfig(cfg config.RendererConfig) Option {
	return func(r *Renderer) {
		r.cfg = cfg
	}
}

type flatShader struct {
	program             *gpu.Program
	worldViewProjection gpu.UniformLocation
	diffuseTexture      gpu.UniformLocation
}

func newFlatShader(state *gpu.State) (*flatShader, error) {
	program, err := gpu.NewProgram(state, "FlatShader", flatVertexShaderSource, flatFragmentShaderSource)
	if err != nil {
		return nil, err
	}
	return &flatShader{
		program:             program,
		worldViewProjection: program.UniformLocation("worldViewProjection"),
		diffuseTexture:      program.UniformLocation("diffuseTexture"),
	}, nil
}

// compositePipeline copies the frame texture over the whole back buffer
var compositePipeline = gpu.PipelineState{
	ColorWrite: true,
	DepthWrite: true,
	Blend:      gpu.BlendNone,
	Stencil: gpu.StencilState{
		Func:      gpu.CompareAlways,
		Mask:      0xFF,
		WriteMask: 0xFF,
	},
}

// Renderer owns every pass and the frame-sized targets they share. It must
// be used from the thread owning the graphics context.
type Renderer struct {
	state *gpu.State
	log   *logger.Logger
	clock func() time.Time
	cfg   config.RendererConfig

	width, height int
	ambientColor  color.NRGBA
	statistics    Statistics

	whiteDummy  *gpu.Texture
	normalDummy *gpu.Texture
	quad        *gpu.GeometryBuffer
	flat        *flatShader

	gbuffer   *GBuffer
	lights    *DeferredLightRenderer
	particles *ParticleSystemRenderer
	sprites   *SpriteRenderer
	ui        *UIRenderer
}

// New builds every pass for a width x height frame. On failure nothing is
// left allocated and a *RendererError of KindInitialization is returned.
func New(state *gpu.State, width, height int, opts ...Option) (*Renderer, error) {
	r := &Renderer{
		state:  state,
		clock:  time.Now,
		cfg:    config.DefaultConfig().Renderer,
		width:  width,
		height: height,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.NewLogger("info")
	}
	r.log = r.log.WithPrefix("renderer")
	r.ambientColor = r.cfg.AmbientColor.NRGBA()

	if err := r.init(); err != nil {
		r.Close()
		return nil, &RendererError{Kind: KindInitialization, Op: "new", Err: err}
	}
	r.log.Infof("Renderer initialized: %dx%d", width, height)
	return r, nil
}

func (r *Renderer) init() error {
	var err error
	one := gpu.Rectangle(1, 1)
	if r.whiteDummy, err = gpu.NewTexture(r.state, one, gpu.PixelRGBA8, []byte{255, 255, 255, 255}, false); err != nil {
		return fmt.Errorf("white dummy: %w", err)
	}
	if r.normalDummy, err = gpu.NewTexture(r.state, one, gpu.PixelRGBA8, []byte{128, 128, 255, 255}, false); err != nil {
		return fmt.Errorf("normal dummy: %w", err)
	}
	if r.quad, err = newUnitQuad(r.state); err != nil {
		return err
	}
	if r.flat, err = newFlatShader(r.state); err != nil {
		return err
	}
	if r.gbuffer, err = NewGBuffer(r.state, r.width, r.height, r.log.WithPrefix("gbuffer")); err != nil {
		return err
	}
	if r.lights, err = NewDeferredLightRenderer(r.state); err != nil {
		return err
	}
	if r.particles, err = NewParticleSystemRenderer(r.state, r.cfg.SoftParticles, r.log.WithPrefix("particles")); err != nil {
		return err
	}
	if r.sprites, err = NewSpriteRenderer(r.state, r.log.WithPrefix("sprites")); err != nil {
		return err
	}
	if r.ui, err = NewUIRenderer(r.state); err != nil {
		return err
	}
	return nil
}

// Render draws one frame of scenes, overlays dc and presents through ctx.
// A nil ctx renders without presenting. Scenes without a camera are
// skipped. Backend diagnostics and presentation failures are logged, not
// returned. A UI failure is returned after the frame was presented.
func (r *Renderer) Render(scenes *scene.Container, dc *ui.DrawingContext, ctx Context) error {
	_, err := r.render(scenes, dc, ctx, false)
	return err
}

// RenderAndCapture is Render that also reads the finished frame back,
// top row first, before it is presented. The back buffer contents are
// undefined after a swap, so this is the way to capture a presented frame.
func (r *Renderer) RenderAndCapture(scenes *scene.Container, dc *ui.DrawingContext, ctx Context) (*image.NRGBA, error) {
	return r.render(scenes, dc, ctx, true)
}

func (r *Renderer) render(scenes *scene.Container, dc *ui.DrawingContext, ctx Context, capture bool) (*image.NRGBA, error) {
	state := r.state
	r.statistics.beginFrame(r.clock())

	state.SetFramebuffer(r.gbuffer.targets.colorOnly)
	state.SetViewport(0, 0, r.width, r.height)
	state.Apply(gpu.DefaultPipelineState())
	state.ClearColor(mgl32.Vec4{0, 0, 0, 1})

	if scenes == nil {
		scenes = scene.NewContainer()
	}
	for sc := range scenes.All() {
		camera, ok := sc.Graph.FirstCamera()
		if !ok {
			continue
		}
		r.statistics.DrawnSurfaces += r.gbuffer.Fill(state, r.width, r.height, sc.Graph, camera, r.whiteDummy, r.normalDummy)
		r.statistics.LightsDrawn += r.lights.Render(state, r.width, r.height, sc, camera, r.gbuffer, r.whiteDummy, r.ambientColor)
	}

	r.particles.Render(state, scenes, r.whiteDummy, r.width, r.height, r.gbuffer)
	r.sprites.Render(state, r.width, r.height, scenes, r.gbuffer, r.whiteDummy)

	state.SetFramebuffer(nil)
	state.SetViewport(0, 0, r.width, r.height)
	state.Apply(compositePipeline)
	state.Clear(gpu.ClearAll(mgl32.Vec4{0, 0, 0, 1}, 1, 0))

	bound := r.flat.program.Bind()
	bound.SetMat4(r.flat.worldViewProjection, frameMatrix(r.width, r.height))
	bound.SetTexture(r.flat.diffuseTexture, 0, r.gbuffer.FrameTexture())
	r.quad.Draw()

	uiErr := r.ui.Render(state, r.width, r.height, dc, r.whiteDummy)
	if uiErr != nil {
		r.log.Errorf("UI pass aborted: %v", uiErr)
	}

	var frame *image.NRGBA
	var captureErr error
	if capture {
		frame, captureErr = r.CaptureFrame()
	}

	r.statistics.endFrame(r.clock())

	if ctx != nil {
		if err := ctx.SwapBuffers(); err != nil {
			r.log.Errorf("Failed to present frame: %v", err)
		}
	}

	if r.cfg.CheckBackendErrors {
		for _, d := range state.Diagnostics() {
			r.log.Warnf("Backend diagnostic: %s", d)
		}
	}

	r.gbuffer.Geometry().Advance()
	r.statistics.finalize(r.clock())

	if uiErr != nil {
		return frame, &RendererError{Kind: KindUIRender, Op: "render", Err: uiErr}
	}
	if captureErr != nil {
		return nil, &RendererError{Kind: KindCapture, Op: "render", Err: captureErr}
	}
	return frame, nil
}

// SetFrameSize recreates the frame targets. On failure the previous size
// stays in effect and a *RendererError of KindFrameResource is returned.
func (r *Renderer) SetFrameSize(width, height int) error {
	if err := r.gbuffer.Resize(r.state, width, height); err != nil {
		return &RendererError{Kind: KindFrameResource, Op: "set frame size", Err: err}
	}
	r.width, r.height = width, height
	r.log.Debugf("Frame size changed to %dx%d", width, height)
	return nil
}

// FrameSize returns the size the frame targets were built for
func (r *Renderer) FrameSize() (width, height int) {
	return r.width, r.height
}

func (r *Renderer) SetAmbientColor(c color.NRGBA) {
	r.ambientColor = c
}

func (r *Renderer) AmbientColor() color.NRGBA {
	return r.ambientColor
}

// SetSoftParticles retunes the particle fade without rebuilding passes
func (r *Renderer) SetSoftParticles(soft config.SoftParticles) {
	r.cfg.SoftParticles = soft
	r.particles.SetSoftParticles(soft)
}

// Statistics returns a copy of the last frame's statistics
func (r *Renderer) Statistics() Statistics {
	return r.statistics
}

// UploadResources makes every texture of rm resident with mipmaps and
// anisotropic filtering. Textures already resident are skipped; a texture
// that fails to upload is logged and retried on the next call. It returns
// the number of textures uploaded.
func (r *Renderer) UploadResources(rm ResourceManager) int {
	upload := func(kind gpu.TextureKind, pixel gpu.PixelKind, bytes []byte) (*gpu.Texture, error) {
		tex, err := gpu.NewTexture(r.state, kind, pixel, bytes, true)
		if err != nil {
			return nil, err
		}
		tex.SetAnisotropy(r.cfg.MaxAnisotropy)
		return tex, nil
	}

	uploaded := 0
	for _, t := range rm.Textures() {
		if t == nil {
			continue
		}
		ran, err := t.EnsureResident(upload)
		if err != nil {
			r.log.Errorf("Failed to upload texture: %v", err)
			continue
		}
		if ran {
			uploaded++
		}
	}
	if uploaded > 0 {
		r.log.Debugf("Uploaded %d textures", uploaded)
	}
	return uploaded
}

// CaptureFrame reads the back buffer, top row first. It only holds the
// frame until it is presented; use RenderAndCapture for presented frames.
func (r *Renderer) CaptureFrame() (*image.NRGBA, error) {
	r.state.SetFramebuffer(nil)
	r.state.SetViewport(0, 0, r.width, r.height)
	pix, err := r.state.ReadPixels(0, 0, r.width, r.height)
	if err != nil {
		return nil, fmt.Errorf("capture frame: %w", err)
	}
	return gpu.ImageFromPixels(r.width, r.height, pix), nil
}

// Close releases every GPU object the renderer owns. Textures uploaded by
// UploadResources belong to their scene.Texture and are not released.
func (r *Renderer) Close() {
	if r.ui != nil {
		r.ui.Release()
		r.ui = nil
	}
	if r.sprites != nil {
		r.sprites.Release()
		r.sprites = nil
	}
	if r.particles != nil {
		r.particles.Release()
		r.particles = nil
	}
	if r.lights != nil {
		r.lights.Release()
		r.lights = nil
	}
	if r.gbuffer != nil {
		r.gbuffer.Release()
		r.gbuffer = nil
	}
	if r.flat != nil {
		r.flat.program.Release()
		r.flat = nil
	}
	r.quad.Release()
	r.quad = nil
	r.normalDummy.Release()
	r.normalDummy = nil
	r.whiteDummy.Release()
	r.whiteDummy = nil
}
