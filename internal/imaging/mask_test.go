package imaging

import (
	"bytes"
	"image"
	"image/png"
	"testing"
)

func decodeMask(t *testing.T, kind MaskKind, size int) *image.NRGBA {
	t.Helper()
	data, err := RenderMask(kind, size)
	if err != nil {
		t.Fatalf("RenderMask(%s) error: %v", kind, err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("mask is not a decodable png: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != size || b.Dy() != size {
		t.Fatalf("mask is %dx%d, want %dx%d", b.Dx(), b.Dy(), size, size)
	}
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(x, y, img.At(x, y))
		}
	}
	return out
}

func alphaAt(m *image.NRGBA, x, y int) uint8 {
	return m.NRGBAAt(x, y).A
}

func TestFaceMaskRegions(t *testing.T) {
	const size = 256
	m := decodeMask(t, MaskFace, size)

	// Center of the face ellipse must be editable.
	face := faceRegion(size)
	cx, cy := (face.Min.X+face.Max.X)/2, (face.Min.Y+face.Max.Y)/2
	if a := alphaAt(m, cx, cy); a != 0 {
		t.Fatalf("face center alpha = %d, want 0 (editable)", a)
	}
	// Corners stay preserved.
	if a := alphaAt(m, 1, 1); a != 255 {
		t.Fatalf("corner alpha = %d, want 255 (preserved)", a)
	}
}

func TestSafeRadiusMaskIsDonut(t *testing.T) {
	const size = 256
	m := decodeMask(t, MaskSafeRadius, size)

	face := faceRegion(size)
	cx, cy := (face.Min.X+face.Max.X)/2, (face.Min.Y+face.Max.Y)/2

	// The face itself is preserved.
	if a := alphaAt(m, cx, cy); a != 255 {
		t.Fatalf("face center alpha = %d, want 255 (preserved)", a)
	}
	// A point just outside the face ellipse, inside the ring, is editable.
	ringX := face.Max.X + 5
	if a := alphaAt(m, ringX, cy); a != 0 {
		t.Fatalf("ring alpha = %d, want 0 (editable)", a)
	}
	// Far background is preserved.
	if a := alphaAt(m, size-2, size-2); a != 255 {
		t.Fatalf("background alpha = %d, want 255 (preserved)", a)
	}
}

func TestFullHeadMaskCoversEarArea(t *testing.T) {
	const size = 256
	m := decodeMask(t, MaskFullHead, size)

	head := headRegion(size)
	cx := (head.Min.X + head.Max.X) / 2
	// Top of the head region (where ears sit) must be editable; the face
	// mask would keep this preserved.
	earY := head.Min.Y + head.Dy()/10
	if a := alphaAt(m, cx, earY); a != 0 {
		t.Fatalf("ear area alpha = %d, want 0 (editable)", a)
	}
	if a := alphaAt(m, 1, size-2); a != 255 {
		t.Fatalf("background alpha = %d, want 255 (preserved)", a)
	}
}

func TestHeadBodyMaskReachesTorso(t *testing.T) {
	const size = 256
	m := decodeMask(t, MaskHeadBody, size)

	// A torso point well below the head must be editable here and
	// preserved under the full-head mask.
	torsoX, torsoY := size/2, size*70/100
	if a := alphaAt(m, torsoX, torsoY); a != 0 {
		t.Fatalf("torso alpha = %d, want 0 (editable)", a)
	}
	headOnly := decodeMask(t, MaskFullHead, size)
	if a := alphaAt(headOnly, torsoX, torsoY); a != 255 {
		t.Fatalf("full-head mask torso alpha = %d, want 255 (preserved)", a)
	}
}
