package scene

import "image/color"

// Sprite is an unlit camera-facing quad
type Sprite struct {
	NodeBase

	size     float32
	rotation float32
	color    color.NRGBA
	texture  *Texture
}

func NewSprite(name string) *Sprite {
	return &Sprite{
		NodeBase: newBase(name),
		size:     0.2,
		color:    color.NRGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

func (*Sprite) Kind() Kind {
	return KindSprite
}

// Size is the half extent of the quad in world units
func (s *Sprite) Size() float32 {
	return s.size
}

func (s *Sprite) SetSize(size float32) {
	s.size = size
}

// Rotation is the in-screen rotation in radians
func (s *Sprite) Rotation() float32 {
	return s.rotation
}

func (s *Sprite) SetRotation(r float32) {
	s.rotation = r
}

func (s *Sprite) Color() color.NRGBA {
	return s.color
}

func (s *Sprite) SetColor(c color.NRGBA) {
	s.color = c
}

// Texture returns the sprite texture; nil renders plain color
func (s *Sprite) Texture() *Texture {
	return s.texture
}

func (s *Sprite) SetTexture(t *Texture) {
	s.texture = t
}
