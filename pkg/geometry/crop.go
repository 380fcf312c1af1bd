package geometry

import (
	"encoding/json"
	"fmt"
	"math"
)

// CropKind identifies how a SourceCrop is expressed
type CropKind uint8

const (
	// CropNone means no crop was requested
	CropNone CropKind = iota
	// CropPixels is an absolute pixel rectangle
	CropPixels
	// CropPercent is a rectangle of fractions in [0,1] of the source size
	CropPercent
)

func (k CropKind) String() string {
	switch k {
	case CropPixels:
		return "pixels"
	case CropPercent:
		return "percent"
	default:
		return "none"
	}
}

// SourceCrop is an unresolved crop request. The zero value is "no crop".
type SourceCrop struct {
	kind   CropKind
	pixels Rect
	x, y   float64
	w, h   float64
}

// PixelCrop creates an absolute crop
func PixelCrop(r Rect) SourceCrop {
	return SourceCrop{kind: CropPixels, pixels: r}
}

// PercentCrop creates a crop whose origin and size are fractions of the
// source dimensions. Values are clamped to [0,1].
func PercentCrop(x, y, w, h float64) SourceCrop {
	return SourceCrop{
		kind: CropPercent,
		x:    clampUnit(x),
		y:    clampUnit(y),
		w:    clampUnit(w),
		h:    clampUnit(h),
	}
}

// Kind returns how the crop is expressed
func (c SourceCrop) Kind() CropKind { return c.kind }

// IsSet reports whether a crop was requested
func (c SourceCrop) IsSet() bool { return c.kind != CropNone }

// Pixels returns the pixel rect of a CropPixels crop
func (c SourceCrop) Pixels() Rect { return c.pixels }

// Percent returns the fractions of a CropPercent crop
func (c SourceCrop) Percent() (x, y, w, h float64) { return c.x, c.y, c.w, c.h }

// Resolve converts the crop into a pixel rect inside a w x h source.
// Percentages are rounded independently and the result is clamped, so an
// empty crop still yields a one pixel region.
func (c SourceCrop) Resolve(w, h uint32) Rect {
	var r Rect
	switch c.kind {
	case CropPixels:
		r = c.pixels
	case CropPercent:
		fw, fh := float64(w), float64(h)
		r = Rect{
			X:      uint32(math.Round(c.x * fw)),
			Y:      uint32(math.Round(c.y * fh)),
			Width:  uint32(math.Round(c.w * fw)),
			Height: uint32(math.Round(c.h * fh)),
		}
	default:
		return FullRect(w, h)
	}
	return r.ClampTo(w, h)
}

func (c SourceCrop) String() string {
	switch c.kind {
	case CropPixels:
		return c.pixels.String()
	case CropPercent:
		return fmt.Sprintf("%.4g%%x%.4g%%+%.4g%%+%.4g%%", c.w*100, c.h*100, c.x*100, c.y*100)
	default:
		return "none"
	}
}

type sourceCropJSON struct {
	Kind   string   `json:"kind"`
	Rect   *Rect    `json:"rect,omitempty"`
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
}

// MarshalJSON encodes the crop as a tagged object
func (c SourceCrop) MarshalJSON() ([]byte, error) {
	out := sourceCropJSON{Kind: c.kind.String()}
	switch c.kind {
	case CropPixels:
		r := c.pixels
		out.Rect = &r
	case CropPercent:
		x, y, w, h := c.x, c.y, c.w, c.h
		out.X, out.Y, out.Width, out.Height = &x, &y, &w, &h
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the tagged object written by MarshalJSON
func (c *SourceCrop) UnmarshalJSON(data []byte) error {
	var in sourceCropJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Kind {
	case "", "none":
		*c = SourceCrop{}
	case "pixels":
		if in.Rect == nil {
			return fmt.Errorf("pixel crop requires rect")
		}
		*c = PixelCrop(*in.Rect)
	case "percent":
		*c = PercentCrop(deref(in.X), deref(in.Y), deref(in.Width), deref(in.Height))
	default:
		return fmt.Errorf("unknown crop kind %q", in.Kind)
	}
	return nil
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
