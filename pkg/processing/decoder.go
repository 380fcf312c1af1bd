package processing

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/menta2k/image-layout/pkg/geometry"
	"github.com/menta2k/image-layout/pkg/orientation"
	"github.com/menta2k/image-layout/pkg/pipeline"
)

// Decoder takes on as much of a DecoderRequest as it can and reports
// truthfully what it did
type Decoder interface {
	Decode(img image.Image, req pipeline.DecoderRequest) (image.Image, pipeline.DecoderOffer)
}

// BlockDecoder behaves like a DCT decoder: it crops only on block
// boundaries, may downscale by a power of two and may apply orientation.
type BlockDecoder struct {
	// BlockSize aligns the crop; 0 disables cropping
	BlockSize uint32
	// Orient applies the requested orientation
	Orient bool
	// Prescale allows 1/2, 1/4 and 1/8 downscaling
	Prescale bool
}

// NewBlockDecoder returns a decoder with 8 pixel blocks that orients and
// prescales
func NewBlockDecoder() *BlockDecoder {
	return &BlockDecoder{BlockSize: 8, Orient: true, Prescale: true}
}

// Decode implements Decoder
func (d *BlockDecoder) Decode(img image.Image, req pipeline.DecoderRequest) (image.Image, pipeline.DecoderOffer) {
	b := img.Bounds()
	sw, sh := uint32(b.Dx()), uint32(b.Dy())
	var offer pipeline.DecoderOffer

	region := geometry.FullRect(sw, sh)
	if d.BlockSize > 0 && !req.Crop.IsEmpty() {
		aligned := alignRect(req.Crop, d.BlockSize, sw, sh)
		if !aligned.Covers(sw, sh) {
			region = aligned
			offer.CropApplied = aligned
			img = imaging.Crop(img, aligned.Image().Add(b.Min))
		}
	}

	size := region.Size()
	if d.Prescale && !req.PrescaleTo.IsZero() {
		wanted := region.Size()
		if !req.Crop.IsEmpty() {
			wanted = req.Crop.Size()
		}
		need := req.Orientation.Inverse().TransformSize(req.PrescaleTo)
		if f := prescaleFactor(wanted, need); f > 1 {
			size = geometry.NewSize(ceilDivU32(size.Width, f), ceilDivU32(size.Height, f))
			img = imaging.Resize(img, int(size.Width), int(size.Height), imaging.Box)
		}
	}

	if d.Orient && !req.Orientation.IsIdentity() {
		img = Orient(img, req.Orientation)
		offer.OrientationApplied = req.Orientation
		size = req.Orientation.TransformSize(size)
	}
	offer.Size = size
	return img, offer
}

// alignRect widens r to multiples of block, clamped to the source
func alignRect(r geometry.Rect, block, w, h uint32) geometry.Rect {
	x0 := r.X / block * block
	y0 := r.Y / block * block
	x1 := min(ceilDivU32(r.Right(), block)*block, w)
	y1 := min(ceilDivU32(r.Bottom(), block)*block, h)
	return geometry.NewRect(x0, y0, x1-x0, y1-y0)
}

// prescaleFactor returns the largest of 8, 4 or 2 that keeps the wanted
// region at least as large as need, or 1
func prescaleFactor(wanted, need geometry.Size) uint32 {
	for _, f := range []uint32{8, 4, 2} {
		if wanted.Width/f >= need.Width && wanted.Height/f >= need.Height {
			return f
		}
	}
	return 1
}

func ceilDivU32(n, d uint32) uint32 {
	return uint32((uint64(n) + uint64(d) - 1) / uint64(d))
}

// Orient applies o to img. Clockwise turns map onto imaging's
// counter-clockwise rotations.
func Orient(img image.Image, o orientation.Orientation) image.Image {
	switch o.Rotation() {
	case 1:
		img = imaging.Rotate270(img)
	case 2:
		img = imaging.Rotate180(img)
	case 3:
		img = imaging.Rotate90(img)
	}
	if o.Flipped() {
		img = imaging.FlipH(img)
	}
	return img
}
