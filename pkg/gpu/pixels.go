package gpu

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// PixelsFromImage converts a decoded image into upload-ready bytes. Gray
// images stay single channel; everything else becomes non-premultiplied
// RGBA8.
func PixelsFromImage(img image.Image) (PixelKind, TextureKind, []byte) {
	b := img.Bounds()
	kind := Rectangle(b.Dx(), b.Dy())

	switch src := img.(type) {
	case *image.Gray:
		if src.Stride == b.Dx() && src.Rect.Min == (image.Point{}) {
			return PixelR8, kind, append([]byte(nil), src.Pix...)
		}
		gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(gray, gray.Bounds(), src, b.Min, draw.Src)
		return PixelR8, kind, gray.Pix
	case *image.NRGBA:
		if src.Stride == 4*b.Dx() && src.Rect.Min == (image.Point{}) {
			return PixelRGBA8, kind, append([]byte(nil), src.Pix...)
		}
	}

	nrgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	return PixelRGBA8, kind, nrgba.Pix
}

// ImageFromPixels wraps RGBA8 rows, top row first, as an image
func ImageFromPixels(width, height int, pixels []byte) *image.NRGBA {
	return &image.NRGBA{
		Pix:    pixels,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}
}

// SolidPixels fills a width*height RGBA8 buffer with c
func SolidPixels(width, height int, c color.NRGBA) []byte {
	pix := make([]byte, width*height*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = c.R, c.G, c.B, c.A
	}
	return pix
}
