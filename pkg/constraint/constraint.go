// Package constraint resolves a fit mode and target dimensions against a
// source size into concrete crop, resize and canvas geometry.
package constraint

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/menta2k/image-layout/pkg/geometry"
)

var (
	// ErrZeroSourceDimension is returned when either source axis is zero
	ErrZeroSourceDimension = errors.New("source dimension is zero")
	// ErrZeroTargetDimension is returned when a specified target axis is zero
	ErrZeroTargetDimension = errors.New("target dimension is zero")
)

// Mode is a policy for reconciling the source aspect ratio with the target
type Mode uint8

const (
	// Distort resizes to exactly the target, ignoring aspect ratio
	Distort Mode = iota
	// Fit scales to the largest size inside the target
	Fit
	// Within is Fit that never upscales
	Within
	// FitCrop crops to the target aspect ratio, then resizes to the target
	FitCrop
	// WithinCrop is FitCrop that never upscales
	WithinCrop
	// FitPad fits inside the target and pads the rest of the canvas
	FitPad
	// WithinPad is FitPad that never upscales
	WithinPad
	// AspectCrop crops to the target aspect ratio without resizing
	AspectCrop
)

var modeNames = [...]string{
	Distort:    "distort",
	Fit:        "fit",
	Within:     "within",
	FitCrop:    "fit_crop",
	WithinCrop: "within_crop",
	FitPad:     "fit_pad",
	WithinPad:  "within_pad",
	AspectCrop: "aspect_crop",
}

// Modes lists every mode
var Modes = []Mode{Distort, Fit, Within, FitCrop, WithinCrop, FitPad, WithinPad, AspectCrop}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// ParseMode accepts mode names with '_', '-' or no separator
func ParseMode(s string) (Mode, error) {
	key := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(s))
	for i, name := range modeNames {
		if strings.ReplaceAll(name, "_", "") == key {
			return Mode(i), nil
		}
	}
	return Distort, fmt.Errorf("unknown mode %q", s)
}

// MarshalText encodes the mode by name
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name
func (m *Mode) UnmarshalText(text []byte) error {
	v, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// neverUpscales reports whether the mode leaves sources that already fit alone
func (m Mode) neverUpscales() bool {
	return m == Within || m == WithinCrop || m == WithinPad
}

// Dimension is an optional target axis. The zero value is unspecified.
type Dimension struct {
	value uint32
	set   bool
}

// Px specifies a target axis in pixels
func Px(v uint32) Dimension {
	return Dimension{value: v, set: true}
}

// Get returns the value and whether it was specified
func (d Dimension) Get() (uint32, bool) { return d.value, d.set }

// IsSet reports whether the axis was specified
func (d Dimension) IsSet() bool { return d.set }

func (d Dimension) String() string {
	if !d.set {
		return "auto"
	}
	return fmt.Sprintf("%d", d.value)
}

// MarshalJSON encodes an unspecified axis as null
func (d Dimension) MarshalJSON() ([]byte, error) {
	if !d.set {
		return []byte("null"), nil
	}
	return json.Marshal(d.value)
}

// UnmarshalJSON decodes null or a pixel count
func (d *Dimension) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Dimension{}
		return nil
	}
	var v uint32
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid dimension: %w", err)
	}
	*d = Px(v)
	return nil
}

// Constraint is a fit-mode request against a source image
type Constraint struct {
	Mode        Mode                 `json:"mode"`
	Width       Dimension            `json:"width"`
	Height      Dimension            `json:"height"`
	Gravity     geometry.Gravity     `json:"gravity"`
	CanvasColor geometry.CanvasColor `json:"canvas_color"`
	Crop        geometry.SourceCrop  `json:"crop"`
}

// New creates a constraint with both target axes
func New(mode Mode, w, h uint32) Constraint {
	return Constraint{Mode: mode, Width: Px(w), Height: Px(h)}
}

// WidthOnly creates a constraint whose height follows the source aspect ratio
func WidthOnly(mode Mode, w uint32) Constraint {
	return Constraint{Mode: mode, Width: Px(w)}
}

// HeightOnly creates a constraint whose width follows the source aspect ratio
func HeightOnly(mode Mode, h uint32) Constraint {
	return Constraint{Mode: mode, Height: Px(h)}
}

// WithGravity returns a copy anchored by g
func (c Constraint) WithGravity(g geometry.Gravity) Constraint {
	c.Gravity = g
	return c
}

// WithCanvasColor returns a copy padded with col
func (c Constraint) WithCanvasColor(col geometry.CanvasColor) Constraint {
	c.CanvasColor = col
	return c
}

// WithCrop returns a copy that crops the source before fitting
func (c Constraint) WithCrop(crop geometry.SourceCrop) Constraint {
	c.Crop = crop
	return c
}

func (c Constraint) String() string {
	return fmt.Sprintf("%s %sx%s", c.Mode, c.Width, c.Height)
}
