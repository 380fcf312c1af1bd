package constraint

import (
	"fmt"
	"math"

	"github.com/menta2k/image-layout/pkg/geometry"
)

// Compute resolves c against a w x h source
func Compute(c Constraint, w, h uint32) (Layout, error) {
	return c.Compute(w, h)
}

// Compute resolves the constraint against a w x h source.
//
// An explicit crop is resolved first and its size becomes the effective
// source. A missing target axis is derived from the effective aspect ratio.
// The final crop never equals the full source; that case is reported as
// no crop.
func (c Constraint) Compute(w, h uint32) (Layout, error) {
	if w == 0 || h == 0 {
		return Layout{}, fmt.Errorf("compute %s on %dx%d: %w", c.Mode, w, h, ErrZeroSourceDimension)
	}
	tw, hasW := c.Width.Get()
	th, hasH := c.Height.Get()
	if (hasW && tw == 0) || (hasH && th == 0) {
		return Layout{}, fmt.Errorf("compute %s to %sx%s: %w", c.Mode, c.Width, c.Height, ErrZeroTargetDimension)
	}

	user := geometry.FullRect(w, h)
	if c.Crop.IsSet() {
		user = c.Crop.Resolve(w, h)
	}
	eff := user.Size()

	if !hasW && !hasH {
		return finish(Layout{
			Source:      geometry.NewSize(w, h),
			ResizeTo:    eff,
			Canvas:      eff,
			CanvasColor: c.CanvasColor,
		}, user, geometry.FullRect(eff.Width, eff.Height)), nil
	}

	if !hasW {
		tw = max(1, roundDiv(uint64(th)*uint64(eff.Width), uint64(eff.Height)))
	}
	if !hasH {
		th = max(1, roundDiv(uint64(tw)*uint64(eff.Height), uint64(eff.Width)))
	}
	target := geometry.NewSize(tw, th)

	var g grid
	if hasW != hasH && c.Mode != AspectCrop {
		g = singleAxis(c.Mode, eff, target, hasW)
	} else {
		g = dispatch(c.Mode, eff, target, c.Gravity)
	}

	return finish(Layout{
		Source:      geometry.NewSize(w, h),
		ResizeTo:    g.resize,
		Canvas:      g.canvas,
		Placement:   g.place,
		CanvasColor: c.CanvasColor,
	}, user, g.crop), nil
}

// grid is a mode result relative to the effective source
type grid struct {
	crop   geometry.Rect
	resize geometry.Size
	canvas geometry.Size
	place  geometry.Point
}

func identity(eff geometry.Size) grid {
	return grid{crop: geometry.FullRect(eff.Width, eff.Height), resize: eff, canvas: eff}
}

func resized(eff, to geometry.Size) grid {
	return grid{crop: geometry.FullRect(eff.Width, eff.Height), resize: to, canvas: to}
}

// singleAxis handles a constraint with exactly one caller-specified axis.
// The derived axis already matches the source aspect, so only a resize
// remains; re-running the two-axis path would compound rounding.
func singleAxis(mode Mode, eff, target geometry.Size, widthGiven bool) grid {
	if mode.neverUpscales() {
		if (widthGiven && eff.Width <= target.Width) || (!widthGiven && eff.Height <= target.Height) {
			return identity(eff)
		}
	}
	return resized(eff, target)
}

func dispatch(mode Mode, eff, target geometry.Size, gravity geometry.Gravity) grid {
	fits := eff.Fits(target)
	switch mode {
	case Distort:
		return resized(eff, target)
	case Fit:
		return resized(eff, fitInside(eff, target))
	case Within:
		if fits {
			return identity(eff)
		}
		return resized(eff, fitInside(eff, target))
	case FitCrop:
		return fitCrop(eff, target, gravity)
	case WithinCrop:
		switch {
		case fits:
			return identity(eff)
		case eff.Width > target.Width && eff.Height > target.Height:
			return fitCrop(eff, target, gravity)
		default:
			size := geometry.NewSize(min(eff.Width, target.Width), min(eff.Height, target.Height))
			return grid{crop: place(eff, size, gravity), resize: size, canvas: size}
		}
	case FitPad:
		return fitPad(eff, target, gravity)
	case WithinPad:
		if fits {
			return identity(eff)
		}
		return fitPad(eff, target, gravity)
	case AspectCrop:
		crop := cropToAspect(eff, target, gravity)
		return grid{crop: crop, resize: crop.Size(), canvas: crop.Size()}
	default:
		return identity(eff)
	}
}

func fitCrop(eff, target geometry.Size, gravity geometry.Gravity) grid {
	return grid{crop: cropToAspect(eff, target, gravity), resize: target, canvas: target}
}

func fitPad(eff, target geometry.Size, gravity geometry.Gravity) grid {
	size := fitInside(eff, target)
	return grid{
		crop:   geometry.FullRect(eff.Width, eff.Height),
		resize: size,
		canvas: target,
		place:  gravity.Place(size, target),
	}
}

// fitInside returns the largest size with the aspect of src inside target.
// The limiting axis is the one with the smaller target/source ratio.
func fitInside(src, target geometry.Size) geometry.Size {
	sw, sh := uint64(src.Width), uint64(src.Height)
	tw, th := uint64(target.Width), uint64(target.Height)
	if tw*sh <= th*sw {
		return geometry.NewSize(target.Width, max(1, roundDiv(tw*sh, sw)))
	}
	return geometry.NewSize(max(1, roundDiv(th*sw, sh)), target.Height)
}

// cropToAspect returns the largest region of src with the target aspect,
// positioned by gravity
func cropToAspect(src, target geometry.Size, gravity geometry.Gravity) geometry.Rect {
	sw, sh := uint64(src.Width), uint64(src.Height)
	tw, th := uint64(target.Width), uint64(target.Height)
	size := src
	switch {
	case sw*th > tw*sh:
		size.Width = max(1, roundDiv(sh*tw, th))
	case sw*th < tw*sh:
		size.Height = max(1, roundDiv(sw*th, tw))
	}
	return place(src, size, gravity)
}

// place positions a size-sized region inside src
func place(src, size geometry.Size, gravity geometry.Gravity) geometry.Rect {
	p := gravity.Place(size, src)
	return geometry.NewRect(p.X, p.Y, size.Width, size.Height)
}

// finish maps a crop relative to the user crop back into source space,
// intersects it with the user crop and normalises a full-source crop away
func finish(l Layout, user, rel geometry.Rect) Layout {
	crop := rel.Translate(user.X, user.Y).Intersect(user)
	if crop.IsEmpty() {
		crop = user
	}
	if crop.Covers(l.Source.Width, l.Source.Height) {
		crop = geometry.Rect{}
	}
	l.SourceCrop = crop
	return l
}

// roundDiv returns n/d rounded half up, saturated at math.MaxUint32
func roundDiv(n, d uint64) uint32 {
	q, r := n/d, n%d
	if r >= d-r {
		q++
	}
	if q > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(q)
}
