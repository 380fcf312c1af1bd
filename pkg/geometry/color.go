package geometry

import (
	"fmt"
	"image/color"
	"math"
)

// ColorSpace identifies how a CanvasColor stores its channels
type ColorSpace uint8

const (
	// ColorTransparent is fully transparent black
	ColorTransparent ColorSpace = iota
	// ColorSRGB is 8-bit sRGB with straight alpha
	ColorSRGB
	// ColorLinear is linear-light float with straight alpha
	ColorLinear
)

// CanvasColor is the fill used outside the placed image.
// The zero value is transparent.
type CanvasColor struct {
	space      ColorSpace
	r, g, b, a uint8
	lin        [4]float32
}

// Transparent is the default canvas color
var Transparent = CanvasColor{}

// SRGB creates an 8-bit sRGB color
func SRGB(r, g, b, a uint8) CanvasColor {
	return CanvasColor{space: ColorSRGB, r: r, g: g, b: b, a: a}
}

// Linear creates a linear-light float color
func Linear(r, g, b, a float32) CanvasColor {
	return CanvasColor{space: ColorLinear, lin: [4]float32{r, g, b, a}}
}

// Space returns how the color is stored
func (c CanvasColor) Space() ColorSpace { return c.space }

// IsTransparent reports whether the color is the transparent variant
func (c CanvasColor) IsTransparent() bool { return c.space == ColorTransparent }

// Equal compares colors bit-exactly, so NaN equals itself and -0 differs from 0
func (c CanvasColor) Equal(o CanvasColor) bool {
	return c.Key() == o.Key()
}

// Key returns a comparable value suitable for use as a map key
func (c CanvasColor) Key() [5]uint32 {
	switch c.space {
	case ColorSRGB:
		return [5]uint32{uint32(ColorSRGB), uint32(c.r), uint32(c.g), uint32(c.b), uint32(c.a)}
	case ColorLinear:
		return [5]uint32{
			uint32(ColorLinear),
			math.Float32bits(c.lin[0]),
			math.Float32bits(c.lin[1]),
			math.Float32bits(c.lin[2]),
			math.Float32bits(c.lin[3]),
		}
	default:
		return [5]uint32{}
	}
}

// NRGBA converts the color for pixel executors
func (c CanvasColor) NRGBA() color.NRGBA {
	switch c.space {
	case ColorSRGB:
		return color.NRGBA{R: c.r, G: c.g, B: c.b, A: c.a}
	case ColorLinear:
		return color.NRGBA{
			R: to8(linearToSRGB(c.lin[0])),
			G: to8(linearToSRGB(c.lin[1])),
			B: to8(linearToSRGB(c.lin[2])),
			A: to8(float64(c.lin[3])),
		}
	default:
		return color.NRGBA{}
	}
}

func (c CanvasColor) String() string {
	switch c.space {
	case ColorSRGB:
		return fmt.Sprintf("#%02x%02x%02x%02x", c.r, c.g, c.b, c.a)
	case ColorLinear:
		return fmt.Sprintf("linear(%g,%g,%g,%g)", c.lin[0], c.lin[1], c.lin[2], c.lin[3])
	default:
		return "transparent"
	}
}

// MarshalText encodes the color using String
func (c CanvasColor) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts the formats written by MarshalText
func (c *CanvasColor) UnmarshalText(text []byte) error {
	s := string(text)
	if s == "" || s == "transparent" {
		*c = Transparent
		return nil
	}
	var r, g, b, a uint8
	if n, err := fmt.Sscanf(s, "#%2x%2x%2x%2x", &r, &g, &b, &a); err == nil && n == 4 {
		*c = SRGB(r, g, b, a)
		return nil
	}
	var lr, lg, lb, la float32
	if n, err := fmt.Sscanf(s, "linear(%g,%g,%g,%g)", &lr, &lg, &lb, &la); err == nil && n == 4 {
		*c = Linear(lr, lg, lb, la)
		return nil
	}
	return fmt.Errorf("invalid canvas color %q", s)
}

func linearToSRGB(v float32) float64 {
	x := float64(v)
	if x <= 0.0031308 {
		return 12.92 * x
	}
	return 1.055*math.Pow(x, 1/2.4) - 0.055
}

func to8(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(v * 255))
}
