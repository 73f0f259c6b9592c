package imaging

import (
	"image"
	"image/color"
)

// Masks constrain which pixels an edit call may alter: alpha-zero pixels are
// editable, fully opaque pixels are preserved. Geometry is proportional to
// the square render size so masks stay valid after a size reduction.

// MaskKind names a region-of-interest mask shape.
type MaskKind string

const (
	// MaskFace exposes the central face ellipse; everything else is kept.
	MaskFace MaskKind = "face"
	// MaskSafeRadius exposes only a donut ring around the face, keeping the
	// face itself and the background. Used for adding ears and fur without
	// touching the face.
	MaskSafeRadius MaskKind = "safe_radius"
	// MaskFullHead exposes the whole head: face, ear area and hair outline.
	MaskFullHead MaskKind = "full_head"
	// MaskHeadBody exposes the head plus shoulders and upper torso.
	MaskHeadBody MaskKind = "head_body"
)

// safeRadiusExpansion is how much wider the editable ring extends beyond the
// face ellipse, as a fraction of the face region. Sized generously so ears
// and fur have room.
const safeRadiusExpansion = 0.60

// RenderMask produces an RGBA PNG mask of the given kind at size x size.
func RenderMask(kind MaskKind, size int) ([]byte, error) {
	var img *image.RGBA
	switch kind {
	case MaskSafeRadius:
		img = safeRadiusMask(size)
	case MaskFullHead:
		img = fullHeadMask(size)
	case MaskHeadBody:
		img = headBodyMask(size)
	default:
		img = faceMask(size)
	}
	return encodePNG(img)
}

var (
	opaque   = color.RGBA{0, 0, 0, 255}
	editable = color.RGBA{255, 255, 255, 0}
)

func faceRegion(size int) image.Rectangle {
	region := size / 2
	left := (size - region) / 2
	top := size / 5
	return image.Rect(left, top, left+region, top+region)
}

func headRegion(size int) image.Rectangle {
	region := size * 65 / 100
	left := (size - region) / 2
	top := size * 5 / 100
	return image.Rect(left, top, left+region, top+region)
}

func faceMask(size int) *image.RGBA {
	m := filled(size, opaque)
	fillEllipse(m, faceRegion(size), editable)
	return m
}

func safeRadiusMask(size int) *image.RGBA {
	face := faceRegion(size)
	expand := int(float64(face.Dx()) * safeRadiusExpansion)
	ring := image.Rect(face.Min.X-expand, face.Min.Y-expand, face.Max.X+expand, face.Max.Y+expand)

	m := filled(size, opaque)
	fillEllipse(m, ring, editable)
	// Re-cover the inner face so only the ring stays editable.
	fillEllipse(m, face, opaque)
	return m
}

func fullHeadMask(size int) *image.RGBA {
	m := filled(size, opaque)
	fillEllipse(m, headRegion(size), editable)
	return m
}

func headBodyMask(size int) *image.RGBA {
	head := headRegion(size)

	bodyWidth := size * 75 / 100
	bodyLeft := (size - bodyWidth) / 2
	bodyTop := head.Max.Y - head.Dy()/5
	bodyBottom := size * 75 / 100
	body := image.Rect(bodyLeft, bodyTop, bodyLeft+bodyWidth, bodyBottom)

	m := filled(size, opaque)
	fillEllipse(m, head, editable)
	fillEllipse(m, body, editable)
	return m
}

func filled(size int, c color.RGBA) *image.RGBA {
	m := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			m.SetRGBA(x, y, c)
		}
	}
	return m
}

// fillEllipse paints the ellipse inscribed in rect, clipped to the image.
func fillEllipse(m *image.RGBA, rect image.Rectangle, c color.RGBA) {
	if rect.Dx() <= 0 || rect.Dy() <= 0 {
		return
	}
	cx := float64(rect.Min.X+rect.Max.X) / 2
	cy := float64(rect.Min.Y+rect.Max.Y) / 2
	rx := float64(rect.Dx()) / 2
	ry := float64(rect.Dy()) / 2

	clip := rect.Intersect(m.Bounds())
	for y := clip.Min.Y; y < clip.Max.Y; y++ {
		for x := clip.Min.X; x < clip.Max.X; x++ {
			dx := (float64(x) + 0.5 - cx) / rx
			dy := (float64(y) + 0.5 - cy) / ry
			if dx*dx+dy*dy <= 1 {
				m.SetRGBA(x, y, c)
			}
		}
	}
}
