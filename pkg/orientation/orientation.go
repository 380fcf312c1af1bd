// Package orientation models the eight image orientations (the dihedral
// group of order 8) used for EXIF correction and manual rotate/flip.
//
// An Orientation is "rotate clockwise by a number of quarter turns, then
// mirror horizontally if flipped". Source space is the raw image as stored;
// display space is the image after the orientation is applied.
package orientation

import (
	"fmt"
	"strings"

	"github.com/menta2k/image-layout/pkg/geometry"
)

// Orientation is an element of the dihedral group D4.
// Bits 0-1 hold the clockwise quarter turns and bit 2 the flip.
type Orientation uint8

const flipBit = 4

// The eight orientations. Their EXIF tag values are 1 through 8 in the
// order Identity, FlipH, Rotate180, FlipV, Transpose, Rotate90,
// Transverse, Rotate270.
const (
	Identity   Orientation = 0
	Rotate90   Orientation = 1
	Rotate180  Orientation = 2
	Rotate270  Orientation = 3
	FlipH      Orientation = flipBit | 0
	Transpose  Orientation = flipBit | 1
	FlipV      Orientation = flipBit | 2
	Transverse Orientation = flipBit | 3
)

// All lists every orientation in EXIF order
var All = [8]Orientation{Identity, FlipH, Rotate180, FlipV, Transpose, Rotate90, Transverse, Rotate270}

var names = map[Orientation]string{
	Identity:   "identity",
	FlipH:      "flip-h",
	Rotate180:  "rotate-180",
	FlipV:      "flip-v",
	Transpose:  "transpose",
	Rotate90:   "rotate-90",
	Transverse: "transverse",
	Rotate270:  "rotate-270",
}

// New builds an orientation from clockwise quarter turns and a flip
func New(quarterTurns int, flip bool) Orientation {
	o := Orientation(((quarterTurns % 4) + 4) % 4)
	if flip {
		o |= flipBit
	}
	return o
}

// FromExif maps an EXIF orientation tag (1-8). Any other value is rejected.
func FromExif(v uint8) (Orientation, bool) {
	if v < 1 || v > 8 {
		return Identity, false
	}
	return All[v-1], true
}

// FromQuarterTurns returns the rotation by n clockwise quarter turns
func FromQuarterTurns(n int) Orientation {
	return New(n, false)
}

// FromDegrees returns the clockwise rotation by deg, which must be a multiple of 90
func FromDegrees(deg int) (Orientation, bool) {
	if deg%90 != 0 {
		return Identity, false
	}
	return FromQuarterTurns(deg / 90), true
}

// Parse accepts the names produced by String
func Parse(s string) (Orientation, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for o, name := range names {
		if name == s {
			return o, nil
		}
	}
	return Identity, fmt.Errorf("unknown orientation %q", s)
}

// Exif returns the EXIF tag value (1-8)
func (o Orientation) Exif() uint8 {
	for i, e := range All {
		if e == o.norm() {
			return uint8(i + 1)
		}
	}
	return 1
}

// Rotation returns the clockwise quarter turns (0-3)
func (o Orientation) Rotation() int { return int(o & 3) }

// Flipped reports whether a horizontal mirror follows the rotation
func (o Orientation) Flipped() bool { return o&flipBit != 0 }

// IsIdentity reports whether o leaves the image unchanged
func (o Orientation) IsIdentity() bool { return o.norm() == Identity }

// SwapsAxes reports whether o exchanges width and height
func (o Orientation) SwapsAxes() bool { return o.Rotation()%2 == 1 }

// Then composes o with next: the result applies o first, then next.
func (o Orientation) Then(next Orientation) Orientation {
	if !o.Flipped() {
		return New(o.Rotation()+next.Rotation(), next.Flipped())
	}
	return New(o.Rotation()-next.Rotation(), !next.Flipped())
}

// Inverse returns the element that undoes o
func (o Orientation) Inverse() Orientation {
	if o.Flipped() {
		return o.norm()
	}
	return New(-o.Rotation(), false)
}

// TransformDimensions returns the display size of a w x h source
func (o Orientation) TransformDimensions(w, h uint32) (uint32, uint32) {
	if o.SwapsAxes() {
		return h, w
	}
	return w, h
}

// TransformSize is TransformDimensions for a Size
func (o Orientation) TransformSize(s geometry.Size) geometry.Size {
	w, h := o.TransformDimensions(s.Width, s.Height)
	return geometry.Size{Width: w, Height: h}
}

// TransformRectToSource maps r, given in display coordinates, back into
// the coordinates of the sw x sh source image.
func (o Orientation) TransformRectToSource(r geometry.Rect, sw, sh uint32) geometry.Rect {
	x, y, w, h := r.X, r.Y, r.Width, r.Height
	switch o.norm() {
	case FlipH:
		return geometry.Rect{X: mirror(sw, x, w), Y: y, Width: w, Height: h}
	case Rotate180:
		return geometry.Rect{X: mirror(sw, x, w), Y: mirror(sh, y, h), Width: w, Height: h}
	case FlipV:
		return geometry.Rect{X: x, Y: mirror(sh, y, h), Width: w, Height: h}
	case Rotate90:
		return geometry.Rect{X: y, Y: mirror(sh, x, w), Width: h, Height: w}
	case Transpose:
		return geometry.Rect{X: y, Y: x, Width: h, Height: w}
	case Rotate270:
		return geometry.Rect{X: mirror(sw, y, h), Y: x, Width: h, Height: w}
	case Transverse:
		return geometry.Rect{X: mirror(sw, y, h), Y: mirror(sh, x, w), Width: h, Height: w}
	default:
		return r
	}
}

// TransformRectToDisplay maps r, given in the coordinates of the sw x sh
// source image, into display coordinates.
func (o Orientation) TransformRectToDisplay(r geometry.Rect, sw, sh uint32) geometry.Rect {
	dw, dh := o.TransformDimensions(sw, sh)
	return o.Inverse().TransformRectToSource(r, dw, dh)
}

// transformPoint maps a source pixel of a w x h image to display space
func (o Orientation) transformPoint(x, y, w, h uint32) (uint32, uint32) {
	var dx, dy uint32
	switch o.Rotation() {
	case 1:
		dx, dy = h-1-y, x
	case 2:
		dx, dy = w-1-x, h-1-y
	case 3:
		dx, dy = y, w-1-x
	default:
		dx, dy = x, y
	}
	if o.Flipped() {
		dw, _ := o.TransformDimensions(w, h)
		dx = dw - 1 - dx
	}
	return dx, dy
}

func (o Orientation) norm() Orientation { return o & 7 }

func (o Orientation) String() string {
	if name, ok := names[o.norm()]; ok {
		return name
	}
	return fmt.Sprintf("orientation(%d)", uint8(o))
}

// MarshalText encodes the orientation by name
func (o Orientation) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText decodes a name written by MarshalText
func (o *Orientation) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// mirror reflects the span [off, off+ext) inside [0, bound)
func mirror(bound, off, ext uint32) uint32 {
	if off+ext >= bound {
		return 0
	}
	return bound - off - ext
}
