// Package opengl implements gpu.Device on top of an OpenGL 4.1 core
// context. The context must be current on the calling thread for every call.
package opengl

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"lumen/pkg/gpu"
)

// EXT_texture_filter_anisotropic, core only since 4.6
const (
	glTextureMaxAnisotropy    = 0x84FE
	glMaxTextureMaxAnisotropy = 0x84FF
)

type pixelFormat struct {
	internal int32
	format   uint32
	xtype    uint32
}

var pixelFormats = map[gpu.PixelKind]pixelFormat{
	gpu.PixelR8:      {gl.R8, gl.RED, gl.UNSIGNED_BYTE},
	gpu.PixelRG8:     {gl.RG8, gl.RG, gl.UNSIGNED_BYTE},
	gpu.PixelRGB8:    {gl.RGB8, gl.RGB, gl.UNSIGNED_BYTE},
	gpu.PixelRGBA8:   {gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE},
	gpu.PixelRGBA16F: {gl.RGBA16F, gl.RGBA, gl.HALF_FLOAT},
	gpu.PixelF32:     {gl.DEPTH_COMPONENT32F, gl.DEPTH_COMPONENT, gl.FLOAT},
	gpu.PixelD24S8:   {gl.DEPTH24_STENCIL8, gl.DEPTH_STENCIL, gl.UNSIGNED_INT_24_8},
}

type geometry struct {
	vao, vbo, ebo uint32
	usage         uint32
}

// Device issues GL calls directly
type Device struct {
	pending       []uint32
	maxAnisotropy float32
	geometries    map[gpu.Handle]*geometry
	viewport      [4]int
}

// New loads the GL function pointers for the current context
func New() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	d := &Device{
		maxAnisotropy: 1,
		geometries:    make(map[gpu.Handle]*geometry),
	}

	var limit float32
	gl.GetFloatv(glMaxTextureMaxAnisotropy, &limit)
	if gl.GetError() == gl.NO_ERROR && limit > 1 {
		d.maxAnisotropy = limit
	}

	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)

	return d, nil
}

// Version returns the driver's GL version string
func Version() string {
	return gl.GoStr(gl.GetString(gl.VERSION))
}

func ptr(data []byte) unsafe.Pointer {
	if len(data) == 0 {
		return nil
	}
	return gl.Ptr(data)
}

func (d *Device) CreateTexture(desc gpu.TextureDesc, data []byte) (gpu.Handle, error) {
	format, ok := pixelFormats[desc.Pixel]
	if !ok {
		return 0, fmt.Errorf("unsupported pixel kind %s", desc.Pixel)
	}

	var texture uint32
	gl.GenTextures(1, &texture)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, texture)

	// Earlier errors are kept for Errors so the check below only sees this
	// allocation
	d.collectErrors()

	gl.TexImage2D(gl.TEXTURE_2D, 0, format.internal, int32(desc.Kind.Width), int32(desc.Kind.Height),
		0, format.format, format.xtype, ptr(data))
	if code := gl.GetError(); code != gl.NO_ERROR {
		gl.DeleteTextures(1, &texture)
		return 0, fmt.Errorf("glTexImage2D: %s", errorName(code))
	}

	switch {
	case desc.Pixel.IsDepth():
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	case desc.Mipmaps:
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
		if data != nil {
			gl.GenerateMipmap(gl.TEXTURE_2D)
		}
	default:
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	}

	wrap := int32(gl.REPEAT)
	if data == nil {
		// render targets
		wrap = gl.CLAMP_TO_EDGE
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrap)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrap)

	gl.BindTexture(gl.TEXTURE_2D, 0)
	return gpu.Handle(texture), nil
}

func (d *Device) UploadTexture(texture gpu.Handle, desc gpu.TextureDesc, data []byte) error {
	format, ok := pixelFormats[desc.Pixel]
	if !ok {
		return fmt.Errorf("unsupported pixel kind %s", desc.Pixel)
	}

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, uint32(texture))
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(desc.Kind.Width), int32(desc.Kind.Height),
		format.format, format.xtype, ptr(data))
	if desc.Mipmaps {
		gl.GenerateMipmap(gl.TEXTURE_2D)
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return nil
}

func (d *Device) SetTextureAnisotropy(texture gpu.Handle, level float32) {
	if d.maxAnisotropy <= 1 {
		return
	}
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, uint32(texture))
	gl.TexParameterf(gl.TEXTURE_2D, glTextureMaxAnisotropy, level)
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

func (d *Device) MaxAnisotropy() float32 {
	return d.maxAnisotropy
}

func (d *Device) BindTexture(unit uint32, texture gpu.Handle) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_2D, uint32(texture))
}

func (d *Device) DeleteTexture(texture gpu.Handle) {
	t := uint32(texture)
	gl.DeleteTextures(1, &t)
}

func (d *Device) CreateFramebuffer(attachments []gpu.Attachment) (gpu.Handle, error) {
	var fbo uint32
	gl.GenFramebuffers(1, &fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)

	var drawBuffers []uint32
	for _, a := range attachments {
		switch a.Kind {
		case gpu.AttachDepthStencil:
			gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_STENCIL_ATTACHMENT, gl.TEXTURE_2D, uint32(a.Texture), 0)
		case gpu.AttachDepth:
			gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, uint32(a.Texture), 0)
		default:
			slot := gl.COLOR_ATTACHMENT0 + uint32(len(drawBuffers))
			gl.FramebufferTexture2D(gl.FRAMEBUFFER, slot, gl.TEXTURE_2D, uint32(a.Texture), 0)
			drawBuffers = append(drawBuffers, slot)
		}
	}

	if len(drawBuffers) > 0 {
		gl.DrawBuffers(int32(len(drawBuffers)), &drawBuffers[0])
	} else {
		gl.DrawBuffer(gl.NONE)
		gl.ReadBuffer(gl.NONE)
	}

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		gl.DeleteFramebuffers(1, &fbo)
		return 0, fmt.Errorf("framebuffer is not complete: status 0x%X", status)
	}

	return gpu.Handle(fbo), nil
}

func (d *Device) BindFramebuffer(framebuffer gpu.Handle) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(framebuffer))
}

func (d *Device) DeleteFramebuffer(framebuffer gpu.Handle) {
	f := uint32(framebuffer)
	gl.DeleteFramebuffers(1, &f)
}

var bufferUsages = map[gpu.BufferUsage]uint32{
	gpu.StaticDraw:  gl.STATIC_DRAW,
	gpu.DynamicDraw: gl.DYNAMIC_DRAW,
	gpu.StreamDraw:  gl.STREAM_DRAW,
}

func (d *Device) CreateGeometry(layout gpu.VertexLayout, usage gpu.BufferUsage) (gpu.Handle, error) {
	g := &geometry{usage: bufferUsages[usage]}

	gl.GenVertexArrays(1, &g.vao)
	gl.BindVertexArray(g.vao)

	gl.GenBuffers(1, &g.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, g.vbo)
	gl.GenBuffers(1, &g.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, g.ebo)

	stride := int32(layout.Stride * 4)
	for _, a := range layout.Attributes {
		gl.VertexAttribPointer(a.Location, int32(a.Components), gl.FLOAT, false, stride, gl.PtrOffset(a.Offset*4))
		gl.EnableVertexAttribArray(a.Location)
	}

	gl.BindVertexArray(0)

	h := gpu.Handle(g.vao)
	d.geometries[h] = g
	return h, nil
}

func (d *Device) UpdateGeometry(handle gpu.Handle, vertices []float32, indices []uint32) {
	g, ok := d.geometries[handle]
	if !ok {
		return
	}

	gl.BindVertexArray(g.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, g.vbo)
	if len(vertices) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), g.usage)
	} else {
		gl.BufferData(gl.ARRAY_BUFFER, 0, nil, g.usage)
	}
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, g.ebo)
	if len(indices) > 0 {
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, gl.Ptr(indices), g.usage)
	} else {
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, 0, nil, g.usage)
	}
	gl.BindVertexArray(0)
}

func (d *Device) DrawGeometry(handle gpu.Handle, offset, count int) {
	g, ok := d.geometries[handle]
	if !ok {
		return
	}
	gl.BindVertexArray(g.vao)
	gl.DrawElements(gl.TRIANGLES, int32(count), gl.UNSIGNED_INT, gl.PtrOffset(offset*4))
	gl.BindVertexArray(0)
}

func (d *Device) DeleteGeometry(handle gpu.Handle) {
	g, ok := d.geometries[handle]
	if !ok {
		return
	}
	gl.DeleteBuffers(1, &g.vbo)
	gl.DeleteBuffers(1, &g.ebo)
	gl.DeleteVertexArrays(1, &g.vao)
	delete(d.geometries, handle)
}

func (d *Device) SetViewport(x, y, width, height int) {
	d.viewport = [4]int{x, y, width, height}
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

var compareFuncs = map[gpu.CompareFunc]uint32{
	gpu.CompareAlways:       gl.ALWAYS,
	gpu.CompareNever:        gl.NEVER,
	gpu.CompareLess:         gl.LESS,
	gpu.CompareLessEqual:    gl.LEQUAL,
	gpu.CompareEqual:        gl.EQUAL,
	gpu.CompareNotEqual:     gl.NOTEQUAL,
	gpu.CompareGreater:      gl.GREATER,
	gpu.CompareGreaterEqual: gl.GEQUAL,
}

var stencilOps = map[gpu.StencilOp]uint32{
	gpu.StencilKeep:    gl.KEEP,
	gpu.StencilZero:    gl.ZERO,
	gpu.StencilReplace: gl.REPLACE,
	gpu.StencilIncr:    gl.INCR,
	gpu.StencilDecr:    gl.DECR,
	gpu.StencilInvert:  gl.INVERT,
}

func enable(capability uint32, on bool) {
	if on {
		gl.Enable(capability)
	} else {
		gl.Disable(capability)
	}
}

func (d *Device) ApplyPipelineState(s gpu.PipelineState) {
	enable(gl.DEPTH_TEST, s.DepthTest)
	gl.DepthMask(s.DepthWrite)
	gl.DepthFunc(compareFuncs[s.DepthFunc])
	gl.ColorMask(s.ColorWrite, s.ColorWrite, s.ColorWrite, s.ColorWrite)

	enable(gl.CULL_FACE, s.CullFace)
	if s.CullFace {
		gl.CullFace(gl.BACK)
	}

	switch s.Blend {
	case gpu.BlendAlpha:
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	case gpu.BlendAdditive:
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.ONE, gl.ONE)
	default:
		gl.Disable(gl.BLEND)
	}

	enable(gl.STENCIL_TEST, s.Stencil.Enabled)
	gl.StencilMask(s.Stencil.WriteMask)
	gl.StencilFunc(compareFuncs[s.Stencil.Func], s.Stencil.Ref, s.Stencil.Mask)
	gl.StencilOp(stencilOps[s.Stencil.Fail], stencilOps[s.Stencil.DepthFail], stencilOps[s.Stencil.Pass])
}

func (d *Device) Clear(values gpu.ClearValues) {
	var mask uint32
	if values.Color != nil {
		c := *values.Color
		gl.ClearColor(c[0], c[1], c[2], c[3])
		mask |= gl.COLOR_BUFFER_BIT
	}
	if values.Depth != nil {
		gl.ClearDepth(float64(*values.Depth))
		mask |= gl.DEPTH_BUFFER_BIT
	}
	if values.Stencil != nil {
		gl.ClearStencil(*values.Stencil)
		mask |= gl.STENCIL_BUFFER_BIT
	}
	if mask != 0 {
		gl.Clear(mask)
	}
}

// ReadPixels flips GL's bottom-up rows. y is measured from the top of the
// current viewport.
func (d *Device) ReadPixels(x, y, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid read size %dx%d", width, height)
	}
	glY := d.viewport[3] - y - height
	pix := make([]byte, width*height*4)
	gl.ReadPixels(int32(x), int32(glY), int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pix))
	if code := gl.GetError(); code != gl.NO_ERROR {
		return nil, fmt.Errorf("glReadPixels: %s", errorName(code))
	}

	stride := width * 4
	row := make([]byte, stride)
	for top, bottom := 0, height-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := pix[top*stride : (top+1)*stride]
		b := pix[bottom*stride : (bottom+1)*stride]
		copy(row, a)
		copy(a, b)
		copy(b, row)
	}
	return pix, nil
}

var _ gpu.Device = (*Device)(nil)
