package geometry

import (
	"fmt"
	"math"
)

// Gravity anchors a crop or padded image inside a larger region.
// The zero value is center gravity.
type Gravity struct {
	percent bool
	x, y    float64
}

// Center is the default gravity
var Center = Gravity{}

// Named anchors
var (
	TopLeft     = GravityPercent(0, 0)
	Top         = GravityPercent(0.5, 0)
	TopRight    = GravityPercent(1, 0)
	Left        = GravityPercent(0, 0.5)
	Right       = GravityPercent(1, 0.5)
	BottomLeft  = GravityPercent(0, 1)
	Bottom      = GravityPercent(0.5, 1)
	BottomRight = GravityPercent(1, 1)
)

// GravityPercent creates a gravity at fractions x, y of the leftover space.
// Values are clamped to [0,1].
func GravityPercent(x, y float64) Gravity {
	return Gravity{percent: true, x: clampUnit(x), y: clampUnit(y)}
}

// IsCenter reports whether g is center gravity
func (g Gravity) IsCenter() bool { return !g.percent }

// Fractions returns the anchor as fractions; center is (0.5, 0.5)
func (g Gravity) Fractions() (float64, float64) {
	if !g.percent {
		return 0.5, 0.5
	}
	return g.x, g.y
}

// OffsetX splits the leftover horizontal space delta
func (g Gravity) OffsetX(delta uint32) uint32 {
	if !g.percent {
		return delta / 2
	}
	return offset(delta, g.x)
}

// OffsetY splits the leftover vertical space delta
func (g Gravity) OffsetY(delta uint32) uint32 {
	if !g.percent {
		return delta / 2
	}
	return offset(delta, g.y)
}

// Place returns the offset of inner positioned inside outer
func (g Gravity) Place(inner, outer Size) Point {
	return Point{
		X: g.OffsetX(outer.Width - min(inner.Width, outer.Width)),
		Y: g.OffsetY(outer.Height - min(inner.Height, outer.Height)),
	}
}

func offset(delta uint32, frac float64) uint32 {
	v := uint32(math.Floor(float64(delta) * frac))
	return min(v, delta)
}

func (g Gravity) String() string {
	if !g.percent {
		return "center"
	}
	return fmt.Sprintf("%.4g%%,%.4g%%", g.x*100, g.y*100)
}

// MarshalText encodes center as "center" and percentages as "x,y" fractions
func (g Gravity) MarshalText() ([]byte, error) {
	if !g.percent {
		return []byte("center"), nil
	}
	return []byte(fmt.Sprintf("%g,%g", g.x, g.y)), nil
}

// UnmarshalText parses the format written by MarshalText
func (g *Gravity) UnmarshalText(text []byte) error {
	s := string(text)
	if s == "" || s == "center" {
		*g = Center
		return nil
	}
	var x, y float64
	if _, err := fmt.Sscanf(s, "%g,%g", &x, &y); err != nil {
		return fmt.Errorf("invalid gravity %q: %w", s, err)
	}
	*g = GravityPercent(x, y)
	return nil
}
