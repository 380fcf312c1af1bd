package processing

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/menta2k/image-layout/pkg/geometry"
	"github.com/menta2k/image-layout/pkg/pipeline"
)

// Execute applies a finalized plan to the decoder output: trim, residual
// orientation, resize and placement, skipping steps the plan marks as no-ops
func Execute(img image.Image, plan pipeline.LayoutPlan) image.Image {
	if plan.HasTrim() {
		img = imaging.Crop(img, plan.Trim.Image().Add(img.Bounds().Min))
	}
	if !plan.RemainingOrientation.IsIdentity() {
		img = Orient(img, plan.RemainingOrientation)
	}
	if !plan.ResizeIsIdentity {
		img = imaging.Resize(img, int(plan.ResizeTo.Width), int(plan.ResizeTo.Height), imaging.Lanczos)
	}
	if plan.Canvas != plan.ResizeTo || plan.Placement != (geometry.Point{}) {
		bg := imaging.New(int(plan.Canvas.Width), int(plan.Canvas.Height), plan.CanvasColor.NRGBA())
		img = imaging.Paste(bg, img, image.Pt(int(plan.Placement.X), int(plan.Placement.Y)))
	}
	return img
}

// CreateDebugOverlay draws the planned source crop and the decoder's block
// aligned crop on the un-oriented source
func CreateDebugOverlay(img image.Image, ideal pipeline.IdealLayout, plan pipeline.LayoutPlan) image.Image {
	nrgba := imaging.Clone(img)
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()

	gold := color.NRGBA{255, 204, 0, 255}
	blue := color.NRGBA{0, 170, 255, 255}
	red := color.NRGBA{255, 0, 0, 255}
	stroke := int(math.Max(2, 0.004*float64(min(w, h))))

	if !plan.Offer.CropApplied.IsEmpty() {
		drawBox(nrgba, plan.Offer.CropApplied, blue, 1)
	}
	if !ideal.SourceCrop.IsEmpty() {
		drawBox(nrgba, ideal.SourceCrop, gold, stroke)
		c := ideal.SourceCrop
		cx, cy := int(c.X+c.Width/2), int(c.Y+c.Height/2)
		drawHLine(nrgba, cy, cx-6, cx+6, red)
		drawVLine(nrgba, cx, cy-6, cy+6, red)
	}
	return nrgba
}

func drawBox(img *image.NRGBA, r geometry.Rect, c color.NRGBA, stroke int) {
	x0, y0, x1, y1 := int(r.X), int(r.Y), int(r.Right()), int(r.Bottom())
	for s := 0; s < stroke; s++ {
		drawHLine(img, y0+s, x0, x1, c)
		drawHLine(img, y1-1-s, x0, x1, c)
		drawVLine(img, x0+s, y0, y1, c)
		drawVLine(img, x1-1-s, y0, y1, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	b := img.Bounds()
	if y < 0 || y >= b.Dy() {
		return
	}
	x0, x1 = max(min(x0, x1), 0), min(max(x0, x1), b.Dx())
	for x := x0; x < x1; x++ {
		img.SetNRGBA(x, y, c)
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	b := img.Bounds()
	if x < 0 || x >= b.Dx() {
		return
	}
	y0, y1 = max(min(y0, y1), 0), min(max(y0, y1), b.Dy())
	for y := y0; y < y1; y++ {
		img.SetNRGBA(x, y, c)
	}
}
