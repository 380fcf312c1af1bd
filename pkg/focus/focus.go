// Package focus locates the dominant subject of an image and turns it into
// a crop gravity. It only reads pixels; the planner consumes its output as
// an ordinary geometry.Gravity.
package focus

import (
	"context"
	"image"
	"strings"

	"github.com/menta2k/image-layout/pkg/geometry"
)

// Box is a bounding box with coordinates normalized to [0,1]
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// IsEmpty reports whether the box has no area
func (b Box) IsEmpty() bool { return b.W <= 0 || b.H <= 0 }

// Clamp returns b with every coordinate in [0,1]
func (b Box) Clamp() Box {
	return Box{X: clamp(b.X, 0, 1), Y: clamp(b.Y, 0, 1), W: clamp(b.W, 0, 1), H: clamp(b.H, 0, 1)}
}

// Rect converts the box to pixels of a w x h image
func (b Box) Rect(w, h uint32) geometry.Rect {
	b = b.Clamp()
	x0 := uint32(b.X*float64(w) + 0.5)
	y0 := uint32(b.Y*float64(h) + 0.5)
	x1 := uint32(clamp(b.X+b.W, 0, 1)*float64(w) + 0.5)
	y1 := uint32(clamp(b.Y+b.H, 0, 1)*float64(h) + 0.5)
	return geometry.NewRect(x0, y0, max(x1, x0+1)-x0, max(y1, y0+1)-y0).ClampTo(w, h)
}

// Subject is the primary subject found in an image
type Subject struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
	Cx         float64 `json:"cx"`
	Cy         float64 `json:"cy"`
}

// Result is the outcome of a Finder
type Result struct {
	Primary     Subject  `json:"primary"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Found reports whether a subject was located
func (r Result) Found() bool {
	return !strings.EqualFold(r.Primary.Label, "none") && !r.Primary.Box.IsEmpty()
}

// Finder locates the primary subject of an image
type Finder interface {
	Find(ctx context.Context, img image.Image) (Result, error)
}

// NoSubject is the result returned when nothing stands out
func NoSubject(description string, tags ...string) Result {
	return Result{
		Primary: Subject{
			Label: "none",
			Box:   Box{X: 0.25, Y: 0.25, W: 0.5, H: 0.5},
			Cx:    0.5,
			Cy:    0.5,
		},
		Description: description,
		Tags:        tags,
	}
}

// NearestToCenter returns the point of the box closest to the image center
func NearestToCenter(b Box) (float64, float64) {
	b = b.Clamp()
	return clamp(0.5, b.X, b.X+b.W), clamp(0.5, b.Y, b.Y+b.H)
}

// Gravity turns a result into crop gravity. A subject that covers the
// center, or no subject at all, yields center gravity.
func Gravity(r Result) geometry.Gravity {
	if !r.Found() {
		return geometry.Center
	}
	x, y := NearestToCenter(r.Primary.Box)
	if x == 0.5 && y == 0.5 {
		return geometry.Center
	}
	return geometry.GravityPercent(x, y)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
