package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/webp"
	xdraw "golang.org/x/image/draw"
)

const (
	// APICeilingBytes is the edit service's hard PNG size limit.
	APICeilingBytes = 4 * 1024 * 1024
	// SafeThresholdBytes leaves headroom under the ceiling; anything larger
	// is re-rendered at the reduced size.
	SafeThresholdBytes = int(3.5 * 1024 * 1024)
	// ReducedSize is the fallback edge length when the encoding is too big.
	ReducedSize = 512
	// DefaultAPISize is the preferred edit resolution.
	DefaultAPISize = 1024
)

// allowedExtensions mirrors the upload form contract.
var allowedExtensions = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true, "webp": true,
}

// AllowedFilename reports whether the upload filename carries an accepted
// image extension.
func AllowedFilename(name string) bool {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return false
	}
	return allowedExtensions[strings.ToLower(name[idx+1:])]
}

// Decode parses png, jpeg, gif or webp bytes into an image. The stdlib has
// no webp decoder, so RIFF-sniffed payloads go through go-webp.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, errors.New("imaging: empty payload")
	}
	if isWEBP(data) {
		img, err := webp.Decode(bytes.NewReader(data), &decoder.Options{})
		if err != nil {
			return nil, fmt.Errorf("imaging: decode webp: %w", err)
		}
		return img, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("imaging: decode: %w", err)
	}
	return img, nil
}

func isWEBP(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}

// Normalize re-encodes data as a PNG guaranteed to fit under the external
// service's size ceiling. Compliant input keeps its pixel dimensions;
// oversized encodings are downscaled to fit within ReducedSize. It never
// upscales, so normalizing twice is a no-op dimension-wise.
func Normalize(data []byte) ([]byte, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	flat := flattenToRGB(img)
	encoded, err := encodePNG(flat)
	if err != nil {
		return nil, err
	}
	if len(encoded) <= SafeThresholdBytes {
		return encoded, nil
	}
	reduced := scaleToFit(flat, ReducedSize)
	return encodePNG(reduced)
}

// PrepareForEdit renders data as a square PNG at the requested edge length,
// ready for the edit endpoint. When even the square render exceeds the safety
// threshold it drops to ReducedSize. The returned size is the actual edge
// length, which callers must reuse for mask rendering and the API size
// parameter.
func PrepareForEdit(data []byte, size int) ([]byte, int, error) {
	if size <= 0 {
		size = DefaultAPISize
	}
	img, err := Decode(data)
	if err != nil {
		return nil, 0, err
	}
	square := scaleToSquare(flattenToRGB(img), size)
	encoded, err := encodePNG(square)
	if err != nil {
		return nil, 0, err
	}
	if len(encoded) <= SafeThresholdBytes {
		return encoded, size, nil
	}
	square = scaleToSquare(square, ReducedSize)
	encoded, err = encodePNG(square)
	if err != nil {
		return nil, 0, err
	}
	return encoded, ReducedSize, nil
}

// Dimensions returns the pixel width and height of an encoded image.
func Dimensions(data []byte) (int, int, error) {
	if isWEBP(data) {
		img, err := Decode(data)
		if err != nil {
			return 0, 0, err
		}
		b := img.Bounds()
		return b.Dx(), b.Dy(), nil
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("imaging: decode config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// flattenToRGB composites any alpha channel onto a white background, matching
// what the edit endpoint expects for photographic input.
func flattenToRGB(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(out, out.Bounds(), &image.Uniform{color.White}, image.Point{}, xdraw.Src)
	xdraw.Draw(out, out.Bounds(), img, b.Min, xdraw.Over)
	return out
}

// scaleToFit shrinks img so both edges fit within max, preserving aspect.
// Images already within bounds are returned untouched.
func scaleToFit(img *image.RGBA, max int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= max && h <= max {
		return img
	}
	if w >= h {
		h = h * max / w
		w = max
	} else {
		w = w * max / h
		h = max
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}

// scaleToSquare resizes img to size x size, stretching when the input is not
// square. The edit endpoint only accepts square input.
func scaleToSquare(img *image.RGBA, size int) *image.RGBA {
	b := img.Bounds()
	if b.Dx() == size && b.Dy() == size {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("imaging: encode png: %w", err)
	}
	return buf.Bytes(), nil
}
