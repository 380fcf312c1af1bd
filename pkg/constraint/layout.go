package constraint

import (
	"fmt"

	"github.com/menta2k/image-layout/pkg/geometry"
)

// Layout is resolved geometry: read SourceCrop from a Source-sized image,
// resize it to ResizeTo and place it on Canvas at Placement.
type Layout struct {
	Source      geometry.Size        `json:"source"`
	SourceCrop  geometry.Rect        `json:"source_crop"`
	ResizeTo    geometry.Size        `json:"resize_to"`
	Canvas      geometry.Size        `json:"canvas"`
	Placement   geometry.Point       `json:"placement"`
	CanvasColor geometry.CanvasColor `json:"canvas_color"`
}

// Passthrough returns the layout that leaves a w x h image untouched
func Passthrough(w, h uint32) Layout {
	s := geometry.NewSize(w, h)
	return Layout{Source: s, ResizeTo: s, Canvas: s}
}

// HasCrop reports whether only part of the source is read
func (l Layout) HasCrop() bool { return !l.SourceCrop.IsEmpty() }

// CropRect returns the region read from the source, the full source when uncropped
func (l Layout) CropRect() geometry.Rect {
	if l.HasCrop() {
		return l.SourceCrop
	}
	return geometry.FullRect(l.Source.Width, l.Source.Height)
}

// IsIdentity reports whether the layout leaves the source untouched
func (l Layout) IsIdentity() bool {
	return !l.HasCrop() && l.ResizeTo == l.Source && l.Canvas == l.Source
}

// IsPadded reports whether the canvas extends past the placed image
func (l Layout) IsPadded() bool {
	return l.Canvas != l.ResizeTo || l.Placement != (geometry.Point{})
}

// Retained returns the fraction of source area that survives the crop
func (l Layout) Retained() float64 {
	if l.Source.IsZero() {
		return 0
	}
	r := l.CropRect()
	return float64(r.Width) * float64(r.Height) / (float64(l.Source.Width) * float64(l.Source.Height))
}

func (l Layout) String() string {
	return fmt.Sprintf("source %v crop %v resize %v canvas %v at %v", l.Source, l.SourceCrop, l.ResizeTo, l.Canvas, l.Placement)
}
