package pipeline

import (
	"fmt"

	"github.com/menta2k/image-layout/pkg/constraint"
	"github.com/menta2k/image-layout/pkg/geometry"
	"github.com/menta2k/image-layout/pkg/orientation"
)

// Padding holds the margins added by a Pad command
type Padding struct {
	Left   uint32 `json:"left"`
	Top    uint32 `json:"top"`
	Right  uint32 `json:"right"`
	Bottom uint32 `json:"bottom"`
}

// IdealLayout is the geometry a perfect executor would produce.
// Layout is expressed in oriented space; SourceCrop is the same crop
// expressed in the coordinates of the un-oriented source.
type IdealLayout struct {
	Source      geometry.Size           `json:"source"`
	Orientation orientation.Orientation `json:"orientation"`
	Layout      constraint.Layout       `json:"layout"`
	SourceCrop  geometry.Rect           `json:"source_crop"`
	Padding     Padding                 `json:"padding"`
	Padded      bool                    `json:"padded"`
}

// OrientedSize returns the source size after orientation
func (l IdealLayout) OrientedSize() geometry.Size {
	return l.Orientation.TransformSize(l.Source)
}

// DecoderRequest is advisory work a decoder may perform. Crop is in source
// space; PrescaleTo is the final resize target in oriented space.
type DecoderRequest struct {
	Crop        geometry.Rect           `json:"crop"`
	PrescaleTo  geometry.Size           `json:"prescale_to"`
	Orientation orientation.Orientation `json:"orientation"`
}

// Plan folds the commands into an ideal layout for a w x h source and the
// matching decoder request.
//
// Orientation commands compose in order. Only the first crop, constrain
// and pad commands take effect.
func Plan(cmds []Command, w, h uint32) (IdealLayout, DecoderRequest, error) {
	if w == 0 || h == 0 {
		return IdealLayout{}, DecoderRequest{}, fmt.Errorf("plan %dx%d: %w", w, h, constraint.ErrZeroSourceDimension)
	}

	net := orientation.Identity
	var (
		crop *Crop
		con  *Constrain
		pad  *Pad
	)
	for _, cmd := range cmds {
		switch c := cmd.(type) {
		case AutoOrient:
			net = net.Then(c.Orientation())
		case Rotate:
			net = net.Then(c.Orientation())
		case Flip:
			net = net.Then(c.Orientation())
		case Crop:
			if crop == nil {
				crop = &c
			}
		case Constrain:
			if con == nil {
				con = &c
			}
		case Pad:
			if pad == nil {
				pad = &c
			}
		}
	}

	dw, dh := net.TransformDimensions(w, h)

	var layout constraint.Layout
	switch {
	case con != nil:
		c := con.Constraint
		if crop != nil {
			c.Crop = crop.Crop
		}
		var err error
		if layout, err = c.Compute(dw, dh); err != nil {
			return IdealLayout{}, DecoderRequest{}, fmt.Errorf("plan %dx%d: %w", w, h, err)
		}
	case crop != nil:
		var err error
		if layout, err = (constraint.Constraint{Crop: crop.Crop}).Compute(dw, dh); err != nil {
			return IdealLayout{}, DecoderRequest{}, fmt.Errorf("plan %dx%d: %w", w, h, err)
		}
	default:
		layout = constraint.Passthrough(dw, dh)
	}

	ideal := IdealLayout{
		Source:      geometry.NewSize(w, h),
		Orientation: net,
	}
	if pad != nil {
		layout.Canvas.Width += pad.Left + pad.Right
		layout.Canvas.Height += pad.Top + pad.Bottom
		layout.Placement.X += pad.Left
		layout.Placement.Y += pad.Top
		layout.CanvasColor = pad.Color
		ideal.Padding = Padding{Left: pad.Left, Top: pad.Top, Right: pad.Right, Bottom: pad.Bottom}
		ideal.Padded = true
	}
	ideal.Layout = layout

	if layout.HasCrop() {
		ideal.SourceCrop = net.TransformRectToSource(layout.SourceCrop, w, h)
	}

	return ideal, DecoderRequest{
		Crop:        ideal.SourceCrop,
		PrescaleTo:  layout.ResizeTo,
		Orientation: net,
	}, nil
}
