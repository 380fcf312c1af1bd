// Package geometry holds the value types shared by the layout planner:
// sizes, rectangles, crop requests, gravity and canvas colors.
package geometry

import (
	"fmt"
	"image"
)

// Size represents a width x height in pixels
type Size struct {
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
}

// NewSize creates a Size from width and height
func NewSize(w, h uint32) Size {
	return Size{Width: w, Height: h}
}

// IsZero reports whether either axis is zero
func (s Size) IsZero() bool {
	return s.Width == 0 || s.Height == 0
}

// Transpose returns the size with width and height swapped
func (s Size) Transpose() Size {
	return Size{Width: s.Height, Height: s.Width}
}

// Fits reports whether s fits inside other on both axes
func (s Size) Fits(other Size) bool {
	return s.Width <= other.Width && s.Height <= other.Height
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Point is a pixel offset
type Point struct {
	X uint32 `json:"x"`
	Y uint32 `json:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Rect is an axis-aligned pixel region. The zero Rect means "no rect";
// a real region always has width and height of at least one pixel.
type Rect struct {
	X      uint32 `json:"x"`
	Y      uint32 `json:"y"`
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
}

// NewRect creates a Rect from its origin and size
func NewRect(x, y, w, h uint32) Rect {
	return Rect{X: x, Y: y, Width: w, Height: h}
}

// FullRect returns the rect covering a whole w x h image
func FullRect(w, h uint32) Rect {
	return Rect{Width: w, Height: h}
}

// IsEmpty reports whether r has no area
func (r Rect) IsEmpty() bool {
	return r.Width == 0 || r.Height == 0
}

// Size returns the rect dimensions
func (r Rect) Size() Size {
	return Size{Width: r.Width, Height: r.Height}
}

// Origin returns the top-left corner
func (r Rect) Origin() Point {
	return Point{X: r.X, Y: r.Y}
}

// Right returns the exclusive right edge
func (r Rect) Right() uint32 { return r.X + r.Width }

// Bottom returns the exclusive bottom edge
func (r Rect) Bottom() uint32 { return r.Y + r.Height }

// Translate moves the rect by dx, dy
func (r Rect) Translate(dx, dy uint32) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, Width: r.Width, Height: r.Height}
}

// Intersect returns the overlap of r and o, or the zero Rect if they do not overlap
func (r Rect) Intersect(o Rect) Rect {
	x0 := max(r.X, o.X)
	y0 := max(r.Y, o.Y)
	x1 := min(r.Right(), o.Right())
	y1 := min(r.Bottom(), o.Bottom())
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Contains reports whether o lies entirely inside r
func (r Rect) Contains(o Rect) bool {
	return o.X >= r.X && o.Y >= r.Y && o.Right() <= r.Right() && o.Bottom() <= r.Bottom()
}

// Covers reports whether r is exactly the full w x h image
func (r Rect) Covers(w, h uint32) bool {
	return r.X == 0 && r.Y == 0 && r.Width == w && r.Height == h
}

// ClampTo clamps r into a w x h image. The origin is pulled inside the
// image and width and height are kept at least one pixel.
func (r Rect) ClampTo(w, h uint32) Rect {
	if w == 0 || h == 0 {
		return Rect{}
	}
	x := min(r.X, w-1)
	y := min(r.Y, h-1)
	return Rect{
		X:      x,
		Y:      y,
		Width:  max(1, min(r.Width, w-x)),
		Height: max(1, min(r.Height, h-y)),
	}
}

// Image converts r to an image.Rectangle
func (r Rect) Image() image.Rectangle {
	return image.Rect(int(r.X), int(r.Y), int(r.Right()), int(r.Bottom()))
}

// RectFromImage converts an image.Rectangle, dropping negative coordinates
func RectFromImage(ir image.Rectangle) Rect {
	ir = ir.Canon()
	x0, y0 := max(ir.Min.X, 0), max(ir.Min.Y, 0)
	x1, y1 := max(ir.Max.X, x0), max(ir.Max.Y, y0)
	return Rect{X: uint32(x0), Y: uint32(y0), Width: uint32(x1 - x0), Height: uint32(y1 - y0)}
}

func (r Rect) String() string {
	if r.IsEmpty() {
		return "none"
	}
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}
