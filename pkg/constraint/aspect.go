package constraint

import (
	"fmt"
	"strconv"
	"strings"
)

// AspectRatio represents common aspect ratios
type AspectRatio struct {
	Width  uint32
	Height uint32
	Name   string
}

// Common aspect ratios
var (
	Square     = AspectRatio{1, 1, "square"}
	Portrait   = AspectRatio{3, 4, "portrait"}
	Landscape  = AspectRatio{4, 3, "landscape"}
	Widescreen = AspectRatio{16, 9, "widescreen"}
	Instagram  = AspectRatio{4, 5, "instagram"}
	Story      = AspectRatio{9, 16, "story"}
)

// CommonAspectRatios returns a list of commonly used aspect ratios
func CommonAspectRatios() []AspectRatio {
	return []AspectRatio{Square, Portrait, Landscape, Widescreen, Instagram, Story}
}

// ParseAspectRatio accepts a preset name or "W:H"
func ParseAspectRatio(s string) (AspectRatio, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, r := range CommonAspectRatios() {
		if r.Name == s {
			return r, nil
		}
	}
	w, h, ok := strings.Cut(s, ":")
	if !ok {
		return AspectRatio{}, fmt.Errorf("invalid aspect ratio %q", s)
	}
	wv, err := strconv.ParseUint(w, 10, 32)
	if err != nil || wv == 0 {
		return AspectRatio{}, fmt.Errorf("invalid aspect ratio width %q", w)
	}
	hv, err := strconv.ParseUint(h, 10, 32)
	if err != nil || hv == 0 {
		return AspectRatio{}, fmt.Errorf("invalid aspect ratio height %q", h)
	}
	return AspectRatio{Width: uint32(wv), Height: uint32(hv), Name: s}, nil
}

// Ratio returns width / height
func (a AspectRatio) Ratio() float64 {
	return float64(a.Width) / float64(a.Height)
}

// Constraint returns an AspectCrop constraint for the ratio
func (a AspectRatio) Constraint() Constraint {
	return New(AspectCrop, a.Width, a.Height)
}

func (a AspectRatio) String() string {
	return fmt.Sprintf("%s (%d:%d)", a.Name, a.Width, a.Height)
}
