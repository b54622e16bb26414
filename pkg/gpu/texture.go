package gpu

import (
	"fmt"
)

// Texture is a GPU-resident image. Creation and upload temporarily bind the
// texture in backend state; callers must not rely on earlier bindings
// surviving those calls.
type Texture struct {
	state      *State
	handle     Handle
	desc       TextureDesc
	anisotropy float32
	released   bool
}

// NewTexture allocates a texture and optionally uploads data. Data may be
// nil to allocate storage only (render targets). When non-nil it must hold
// exactly width*height*bpp bytes.
func NewTexture(state *State, kind TextureKind, pixel PixelKind, data []byte, mipmaps bool) (*Texture, error) {
	desc := TextureDesc{Kind: kind, Pixel: pixel, Mipmaps: mipmaps}
	if err := validateTexture(desc, data); err != nil {
		return nil, err
	}

	handle, err := state.device.CreateTexture(desc, data)
	if err != nil {
		return nil, &ResourceCreationError{
			Resource: "texture",
			Reason:   fmt.Sprintf("%dx%d %s", kind.Width, kind.Height, pixel),
			Err:      err,
		}
	}

	return &Texture{
		state:      state,
		handle:     handle,
		desc:       desc,
		anisotropy: 1,
	}, nil
}

func validateTexture(desc TextureDesc, data []byte) error {
	if !desc.Pixel.Valid() {
		return &ResourceCreationError{Resource: "texture", Reason: fmt.Sprintf("unknown pixel kind %s", desc.Pixel)}
	}
	if desc.Kind.Width <= 0 || desc.Kind.Height <= 0 {
		return &ResourceCreationError{
			Resource: "texture",
			Reason:   fmt.Sprintf("invalid size %dx%d", desc.Kind.Width, desc.Kind.Height),
		}
	}
	if desc.Pixel.IsDepth() && desc.Mipmaps {
		return &ResourceCreationError{Resource: "texture", Reason: "depth textures cannot have mipmaps"}
	}
	if data != nil && len(data) != desc.ByteSize() {
		return &ResourceCreationError{
			Resource: "texture",
			Reason:   fmt.Sprintf("expected %d bytes of %s data, got %d", desc.ByteSize(), desc.Pixel, len(data)),
		}
	}
	return nil
}

// Upload replaces the texture contents. The size and pixel kind are fixed at
// creation.
func (t *Texture) Upload(data []byte) error {
	if t.released {
		return fmt.Errorf("upload to released texture %d", t.handle)
	}
	if len(data) != t.desc.ByteSize() {
		return &ResourceCreationError{
			Resource: "texture",
			Reason:   fmt.Sprintf("upload expected %d bytes, got %d", t.desc.ByteSize(), len(data)),
		}
	}
	return t.state.device.UploadTexture(t.handle, t.desc, data)
}

// SetAnisotropy sets the anisotropic filtering level, clamped to what the
// backend supports. Values below 1 disable it.
func (t *Texture) SetAnisotropy(level float32) {
	if t.released {
		return
	}
	if limit := t.state.device.MaxAnisotropy(); level > limit {
		level = limit
	}
	if level < 1 {
		level = 1
	}
	t.anisotropy = level
	t.state.device.SetTextureAnisotropy(t.handle, level)
}

// SetMaxAnisotropy enables the highest anisotropic filtering level
func (t *Texture) SetMaxAnisotropy() {
	t.SetAnisotropy(t.state.device.MaxAnisotropy())
}

// Anisotropy returns the level last applied
func (t *Texture) Anisotropy() float32 {
	return t.anisotropy
}

func (t *Texture) Handle() Handle {
	return t.handle
}

func (t *Texture) Kind() TextureKind {
	return t.desc.Kind
}

func (t *Texture) PixelKind() PixelKind {
	return t.desc.Pixel
}

func (t *Texture) Width() int {
	return t.desc.Kind.Width
}

func (t *Texture) Height() int {
	return t.desc.Kind.Height
}

// Release frees the backend object. It is safe to call more than once.
func (t *Texture) Release() {
	if t == nil || t.released {
		return
	}
	t.released = true
	t.state.device.DeleteTexture(t.handle)
}
