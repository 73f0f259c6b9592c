package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"
)

func encodeTestPNG(t *testing.T, width, height int, noisy bool) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	rng := rand.New(rand.NewSource(1))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if noisy {
				img.SetRGBA(x, y, color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255})
			} else {
				img.SetRGBA(x, y, color.RGBA{40, 80, 120, 255})
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

func TestNormalizeKeepsCompliantDimensions(t *testing.T) {
	src := encodeTestPNG(t, 640, 480, false)
	out, err := Normalize(src)
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	w, h, err := Dimensions(out)
	if err != nil {
		t.Fatalf("Dimensions() error: %v", err)
	}
	if w != 640 || h != 480 {
		t.Fatalf("dimensions changed: got %dx%d, want 640x480", w, h)
	}
	if len(out) > SafeThresholdBytes {
		t.Fatalf("normalized output %d bytes exceeds threshold", len(out))
	}
}

func TestNormalizeShrinksOversizedEncoding(t *testing.T) {
	// Random pixels defeat PNG compression, so a large enough canvas
	// reliably crosses the safety threshold.
	src := encodeTestPNG(t, 1400, 1400, true)
	if len(src) <= SafeThresholdBytes {
		t.Skipf("test image only %d bytes, cannot exercise the threshold", len(src))
	}
	out, err := Normalize(src)
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	w, h, err := Dimensions(out)
	if err != nil {
		t.Fatalf("Dimensions() error: %v", err)
	}
	if w > ReducedSize || h > ReducedSize {
		t.Fatalf("oversized input not reduced: got %dx%d", w, h)
	}
	if len(out) > SafeThresholdBytes {
		t.Fatalf("reduced output %d bytes still exceeds threshold", len(out))
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	src := encodeTestPNG(t, 300, 200, false)
	once, err := Normalize(src)
	if err != nil {
		t.Fatalf("first Normalize() error: %v", err)
	}
	twice, err := Normalize(once)
	if err != nil {
		t.Fatalf("second Normalize() error: %v", err)
	}
	w1, h1, _ := Dimensions(once)
	w2, h2, _ := Dimensions(twice)
	if w1 != w2 || h1 != h2 {
		t.Fatalf("dimensions drifted: %dx%d then %dx%d", w1, h1, w2, h2)
	}
}

func TestPrepareForEditSquares(t *testing.T) {
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 2000, 1000))
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	out, size, err := PrepareForEdit(buf.Bytes(), DefaultAPISize)
	if err != nil {
		t.Fatalf("PrepareForEdit() error: %v", err)
	}
	if size != DefaultAPISize {
		t.Fatalf("size = %d, want %d", size, DefaultAPISize)
	}
	w, h, err := Dimensions(out)
	if err != nil {
		t.Fatalf("Dimensions() error: %v", err)
	}
	if w != size || h != size {
		t.Fatalf("output is %dx%d, want %dx%d square", w, h, size, size)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("not an image")); err == nil {
		t.Fatal("Decode accepted garbage")
	}
	if _, err := Decode(nil); err == nil {
		t.Fatal("Decode accepted empty payload")
	}
}

func TestAllowedFilename(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"selfie.png", true},
		{"selfie.JPG", true},
		{"selfie.jpeg", true},
		{"animated.gif", true},
		{"modern.webp", true},
		{"archive.zip", false},
		{"noextension", false},
		{"trailingdot.", false},
		{"double.tar.png", true},
	}
	for _, tt := range tests {
		if got := AllowedFilename(tt.name); got != tt.want {
			t.Errorf("AllowedFilename(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
