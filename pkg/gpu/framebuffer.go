package gpu

import "fmt"

// FrameBuffer is an offscreen render target. It does not own its
// attachments; the caller releases the textures separately.
type FrameBuffer struct {
	state        *State
	handle       Handle
	depthStencil *Texture
	colors       []*Texture
	released     bool
}

// NewFrameBuffer attaches an optional depth(-stencil) texture and the color
// textures in order. All attachments must share one size.
func NewFrameBuffer(state *State, depthStencil *Texture, colors []*Texture) (*FrameBuffer, error) {
	var attachments []Attachment
	var width, height int

	check := func(t *Texture) error {
		if width == 0 && height == 0 {
			width, height = t.Width(), t.Height()
			return nil
		}
		if t.Width() != width || t.Height() != height {
			return &ResourceCreationError{
				Resource: "framebuffer",
				Reason:   fmt.Sprintf("attachment size %dx%d does not match %dx%d", t.Width(), t.Height(), width, height),
			}
		}
		return nil
	}

	if depthStencil != nil {
		if !depthStencil.PixelKind().IsDepth() {
			return nil, &ResourceCreationError{
				Resource: "framebuffer",
				Reason:   fmt.Sprintf("%s is not a depth format", depthStencil.PixelKind()),
			}
		}
		kind := AttachDepth
		if depthStencil.PixelKind().HasStencil() {
			kind = AttachDepthStencil
		}
		width, height = depthStencil.Width(), depthStencil.Height()
		attachments = append(attachments, Attachment{Kind: kind, Texture: depthStencil.handle})
	}

	for _, c := range colors {
		if c.PixelKind().IsDepth() {
			return nil, &ResourceCreationError{
				Resource: "framebuffer",
				Reason:   fmt.Sprintf("%s cannot be a color attachment", c.PixelKind()),
			}
		}
		if err := check(c); err != nil {
			return nil, err
		}
		attachments = append(attachments, Attachment{Kind: AttachColor, Texture: c.handle})
	}

	if len(attachments) == 0 {
		return nil, &ResourceCreationError{Resource: "framebuffer", Reason: "no attachments"}
	}

	handle, err := state.device.CreateFramebuffer(attachments)
	if err != nil {
		return nil, &ResourceCreationError{Resource: "framebuffer", Reason: "incomplete", Err: err}
	}

	return &FrameBuffer{
		state:        state,
		handle:       handle,
		depthStencil: depthStencil,
		colors:       append([]*Texture(nil), colors...),
	}, nil
}

func (fb *FrameBuffer) Handle() Handle {
	return fb.handle
}

// DepthStencil returns the depth attachment, if any
func (fb *FrameBuffer) DepthStencil() *Texture {
	return fb.depthStencil
}

// Color returns the i-th color attachment
func (fb *FrameBuffer) Color(i int) *Texture {
	if i < 0 || i >= len(fb.colors) {
		return nil
	}
	return fb.colors[i]
}

// ColorCount returns the number of color attachments
func (fb *FrameBuffer) ColorCount() int {
	return len(fb.colors)
}

// Release deletes the framebuffer object but not its attachments
func (fb *FrameBuffer) Release() {
	if fb == nil || fb.released {
		return
	}
	fb.released = true
	if fb.state.framebuffer == fb.handle {
		fb.state.SetFramebuffer(nil)
	}
	fb.state.device.DeleteFramebuffer(fb.handle)
}
