package resource

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
)

// Format is an image container format
type Format int

const (
	FormatNone Format = iota
	FormatPNG
	FormatJPEG
	FormatBMP
	FormatTGA
	FormatWebP
)

func (f Format) String() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatJPEG:
		return "jpeg"
	case FormatBMP:
		return "bmp"
	case FormatTGA:
		return "tga"
	case FormatWebP:
		return "webp"
	default:
		return "none"
	}
}

// FormatFromExt maps a file extension, with or without the dot, to a Format
func FormatFromExt(ext string) (Format, error) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	switch ext {
	case "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "bmp":
		return FormatBMP, nil
	case "tga":
		return FormatTGA, nil
	case "webp":
		return FormatWebP, nil
	case "":
		return FormatNone, fmt.Errorf("empty extension")
	}
	return FormatNone, fmt.Errorf("extension %q not recognized", ext)
}

var (
	pngMagic  = []byte("\x89PNG\r\n\x1a\n")
	jpegMagic = []byte{0xff, 0xd8}
	bmpMagic  = []byte("BM")
)

// SniffFormat identifies the container from its leading bytes. TGA has no
// signature and is reported for anything unrecognized.
func SniffFormat(header []byte) Format {
	switch {
	case bytes.HasPrefix(header, pngMagic):
		return FormatPNG
	case bytes.HasPrefix(header, jpegMagic):
		return FormatJPEG
	case len(header) >= 12 && string(header[0:4]) == "RIFF" && string(header[8:12]) == "WEBP":
		return FormatWebP
	case bytes.HasPrefix(header, bmpMagic):
		return FormatBMP
	}
	return FormatTGA
}

// DecodeImage reads png, jpeg, bmp, webp or tga. The format is picked from
// the leading bytes; image.Decode is not used because the tga decoder
// registers an empty signature that matches every input.
func DecodeImage(r io.Reader) (image.Image, error) {
	br := bufio.NewReader(r)
	header, err := br.Peek(12)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return DecodeFormat(br, SniffFormat(header))
}

// DecodeFormat reads r as the given format
func DecodeFormat(r io.Reader, format Format) (image.Image, error) {
	switch format {
	case FormatPNG:
		return png.Decode(r)
	case FormatJPEG:
		return jpeg.Decode(r)
	case FormatBMP:
		return bmp.Decode(r)
	case FormatTGA:
		return tga.Decode(r)
	case FormatWebP:
		return nativewebp.Decode(r)
	default:
		return nil, fmt.Errorf("cannot decode %s", format)
	}
}

// OpenImage decodes the image stored at path. A known extension selects
// the decoder; otherwise the content is sniffed.
func OpenImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var img image.Image
	if format, extErr := FormatFromExt(filepath.Ext(path)); extErr == nil {
		img, err = DecodeFormat(bufio.NewReader(f), format)
	} else {
		img, err = DecodeImage(f)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// EncodeImage writes img in the given format. TGA is decode-only.
func EncodeImage(w io.Writer, img image.Image, format Format) error {
	switch format {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatWebP:
		return EncodeWebP(w, img)
	default:
		return fmt.Errorf("cannot encode %s", format)
	}
}

// EncodeWebP writes img as lossless WebP
func EncodeWebP(w io.Writer, img image.Image) error {
	if err := nativewebp.Encode(w, img, nil); err != nil {
		return fmt.Errorf("webp encode: %w", err)
	}
	return nil
}

// SaveImage writes img to path, picking the format from the extension
func SaveImage(img image.Image, path string) error {
	format, err := FormatFromExt(filepath.Ext(path))
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := EncodeImage(bw, img, format); err != nil {
		f.Close()
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
