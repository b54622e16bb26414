package scene

import (
	"fmt"
	"image"
	"sync"

	"lumen/pkg/gpu"
)

// Texture is a decoded image plus the GPU copy created for it on first use.
// Loaders may fill textures from other goroutines, so every field is
// guarded by the mutex.
type Texture struct {
	mu     sync.Mutex
	path   string
	width  int
	height int
	pixel  gpu.PixelKind
	bytes  []byte
	gpu    *gpu.Texture
}

// NewTexture wraps tightly packed pixels
func NewTexture(path string, width, height int, pixel gpu.PixelKind, bytes []byte) (*Texture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("texture %s: invalid size %dx%d", path, width, height)
	}
	if want := width * height * pixel.BytesPerPixel(); len(bytes) != want {
		return nil, fmt.Errorf("texture %s: expected %d bytes, got %d", path, want, len(bytes))
	}
	return &Texture{path: path, width: width, height: height, pixel: pixel, bytes: bytes}, nil
}

// NewTextureFromImage converts a decoded image
func NewTextureFromImage(path string, img image.Image) (*Texture, error) {
	pixel, kind, bytes := gpu.PixelsFromImage(img)
	return NewTexture(path, kind.Width, kind.Height, pixel, bytes)
}

func (t *Texture) Path() string {
	return t.path
}

func (t *Texture) Size() (width, height int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.width, t.height
}

func (t *Texture) PixelKind() gpu.PixelKind {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pixel
}

// Bytes returns the CPU pixels. The slice must not be modified.
func (t *Texture) Bytes() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bytes
}

// GPUTexture returns the resident copy or nil
func (t *Texture) GPUTexture() *gpu.Texture {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gpu
}

// IsResident reports whether a GPU copy exists
func (t *Texture) IsResident() bool {
	return t.GPUTexture() != nil
}

// EnsureResident calls upload with the CPU pixels when no GPU copy exists
// yet and stores the result. It reports whether upload ran.
func (t *Texture) EnsureResident(upload func(kind gpu.TextureKind, pixel gpu.PixelKind, bytes []byte) (*gpu.Texture, error)) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.gpu != nil {
		return false, nil
	}
	tex, err := upload(gpu.Rectangle(t.width, t.height), t.pixel, t.bytes)
	if err != nil {
		return true, fmt.Errorf("texture %s: %w", t.path, err)
	}
	t.gpu = tex
	return true, nil
}

// Release frees the GPU copy. The CPU pixels stay so the texture can be
// uploaded again.
func (t *Texture) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gpu != nil {
		t.gpu.Release()
		t.gpu = nil
	}
}
