package pipeline

import (
	"github.com/menta2k/image-layout/pkg/geometry"
	"github.com/menta2k/image-layout/pkg/orientation"
)

// DecoderOffer is a decoder's report of what it actually produced.
// CropApplied is in source space, zero when the decoder did not crop.
// Size is the decoded buffer size, which may be smaller than the applied
// region when the decoder also prescaled.
type DecoderOffer struct {
	Size               geometry.Size           `json:"size"`
	CropApplied        geometry.Rect           `json:"crop_applied"`
	OrientationApplied orientation.Orientation `json:"orientation_applied"`
}

// NoOffer is the report of a decoder that ignored the request
func NoOffer(ideal IdealLayout) DecoderOffer {
	return DecoderOffer{Size: ideal.Source}
}

// ExactOffer is the report of a decoder that honoured every part of the
// request except prescaling
func ExactOffer(ideal IdealLayout, req DecoderRequest) DecoderOffer {
	region := ideal.Source
	if !req.Crop.IsEmpty() {
		region = req.Crop.Size()
	}
	return DecoderOffer{
		Size:               req.Orientation.TransformSize(region),
		CropApplied:        req.Crop,
		OrientationApplied: req.Orientation,
	}
}

// LayoutPlan is the reconciled execution plan. An executor applies, in
// order: Trim to the decoder output, RemainingOrientation, a resize to
// ResizeTo unless ResizeIsIdentity, and placement on Canvas at Placement.
type LayoutPlan struct {
	Request              DecoderRequest          `json:"request"`
	Offer                DecoderOffer            `json:"offer"`
	Trim                 geometry.Rect           `json:"trim"`
	RemainingOrientation orientation.Orientation `json:"remaining_orientation"`
	ResizeTo             geometry.Size           `json:"resize_to"`
	ResizeIsIdentity     bool                    `json:"resize_is_identity"`
	Canvas               geometry.Size           `json:"canvas"`
	Placement            geometry.Point          `json:"placement"`
	CanvasColor          geometry.CanvasColor    `json:"canvas_color"`
}

// HasTrim reports whether the decoder output must be trimmed
func (p LayoutPlan) HasTrim() bool { return !p.Trim.IsEmpty() }

// TrimmedSize returns the decoder output size after the trim
func (p LayoutPlan) TrimmedSize() geometry.Size {
	if p.HasTrim() {
		return p.Trim.Size()
	}
	return p.Offer.Size
}

// Steps describes the executor work in order, omitting no-ops
func (p LayoutPlan) Steps() []string {
	var steps []string
	if p.HasTrim() {
		steps = append(steps, "trim "+p.Trim.String())
	}
	if !p.RemainingOrientation.IsIdentity() {
		steps = append(steps, "orient "+p.RemainingOrientation.String())
	}
	if !p.ResizeIsIdentity {
		steps = append(steps, "resize "+p.TrimmedSize().String()+" -> "+p.ResizeTo.String())
	}
	if p.Canvas != p.ResizeTo || p.Placement != (geometry.Point{}) {
		steps = append(steps, "place at "+p.Placement.String()+" on "+p.Canvas.String()+" "+p.CanvasColor.String())
	}
	return steps
}

// Finalize reconciles the decoder's report with the ideal layout.
// It never fails: every offer yields a plan, though an offer that misreports
// the decoder output yields a plan that does not match the ideal layout.
func Finalize(ideal IdealLayout, req DecoderRequest, offer DecoderOffer) LayoutPlan {
	applied := offer.OrientationApplied
	residual := applied.Inverse().Then(ideal.Orientation)

	region := geometry.FullRect(ideal.Source.Width, ideal.Source.Height)
	if !offer.CropApplied.IsEmpty() {
		region = offer.CropApplied
	}

	trim := sourceTrim(req.Crop, offer.CropApplied, region)
	if !trim.IsEmpty() {
		if !applied.IsIdentity() {
			trim = applied.TransformRectToDisplay(trim, region.Width, region.Height)
		}
		expected := applied.TransformSize(region.Size())
		if offer.Size != expected {
			trim = scaleRect(trim, expected, offer.Size)
		}
		trim = trim.ClampTo(offer.Size.Width, offer.Size.Height)
		if trim.Covers(offer.Size.Width, offer.Size.Height) {
			trim = geometry.Rect{}
		}
	}

	plan := LayoutPlan{
		Request:              req,
		Offer:                offer,
		Trim:                 trim,
		RemainingOrientation: residual,
		ResizeTo:             ideal.Layout.ResizeTo,
		Canvas:               ideal.Layout.Canvas,
		Placement:            ideal.Layout.Placement,
		CanvasColor:          ideal.Layout.CanvasColor,
	}
	plan.ResizeIsIdentity = residual.TransformSize(plan.TrimmedSize()) == plan.ResizeTo
	return plan
}

// sourceTrim returns the requested crop relative to the region the decoder
// actually read, both in source space
func sourceTrim(requested, applied, region geometry.Rect) geometry.Rect {
	switch {
	case requested.IsEmpty():
		return geometry.Rect{}
	case applied.IsEmpty():
		return requested
	case applied == requested:
		return geometry.Rect{}
	}
	t := geometry.Rect{
		X:      subFloor(requested.X, applied.X),
		Y:      subFloor(requested.Y, applied.Y),
		Width:  requested.Width,
		Height: requested.Height,
	}
	return t.ClampTo(region.Width, region.Height)
}

// scaleRect maps r from a from-sized buffer onto a to-sized one, widening
// to whole pixels
func scaleRect(r geometry.Rect, from, to geometry.Size) geometry.Rect {
	if from.IsZero() {
		return r
	}
	x0 := uint64(r.X) * uint64(to.Width) / uint64(from.Width)
	y0 := uint64(r.Y) * uint64(to.Height) / uint64(from.Height)
	x1 := ceilDiv(uint64(r.Right())*uint64(to.Width), uint64(from.Width))
	y1 := ceilDiv(uint64(r.Bottom())*uint64(to.Height), uint64(from.Height))
	return geometry.Rect{
		X:      uint32(x0),
		Y:      uint32(y0),
		Width:  uint32(max(x1-x0, 1)),
		Height: uint32(max(y1-y0, 1)),
	}
}

func subFloor(a, b uint32) uint32 {
	if a <= b {
		return 0
	}
	return a - b
}

func ceilDiv(n, d uint64) uint64 {
	return (n + d - 1) / d
}
