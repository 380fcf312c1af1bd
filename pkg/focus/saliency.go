package focus

import (
	"context"
	"image"
	"math"
	"sort"

	"github.com/disintegration/imaging"
)

// minConfidence separates a subject from texture that is everywhere
const minConfidence = 0.05

// SaliencyConfig tunes the offline subject finder
type SaliencyConfig struct {
	// EdgeThreshold is the minimum window score considered a subject
	EdgeThreshold float64 `toml:"edge_threshold" json:"edge_threshold"`
	// ContrastWeight scales local edge strength
	ContrastWeight float64 `toml:"contrast_weight" json:"contrast_weight"`
	// ColorWeight scales brightness
	ColorWeight float64 `toml:"color_weight" json:"color_weight"`
	// MinSubjectRatio is the smallest window area as a fraction of the image
	MinSubjectRatio float64 `toml:"min_subject_ratio" json:"min_subject_ratio"`
	// AnalysisSize bounds the longer edge of the analysed thumbnail
	AnalysisSize int `toml:"analysis_size" json:"analysis_size"`
}

// DefaultSaliencyConfig returns the tuning used by NewSaliencyFinder
func DefaultSaliencyConfig() SaliencyConfig {
	return SaliencyConfig{
		EdgeThreshold:   0.01,
		ContrastWeight:  0.3,
		ColorWeight:     0.2,
		MinSubjectRatio: 0.05,
		AnalysisSize:    128,
	}
}

// SaliencyFinder finds subjects from edge and brightness contrast without
// any model
type SaliencyFinder struct {
	config SaliencyConfig
}

// NewSaliencyFinder creates a finder with the default tuning
func NewSaliencyFinder() *SaliencyFinder {
	return &SaliencyFinder{config: DefaultSaliencyConfig()}
}

// NewSaliencyFinderWithConfig creates a finder with custom tuning
func NewSaliencyFinderWithConfig(c SaliencyConfig) *SaliencyFinder {
	if c.AnalysisSize <= 0 {
		c.AnalysisSize = DefaultSaliencyConfig().AnalysisSize
	}
	return &SaliencyFinder{config: c}
}

// region is a candidate window in thumbnail pixels
type region struct {
	x, y, size int
	score      float64
}

// Find implements Finder
func (f *SaliencyFinder) Find(ctx context.Context, img image.Image) (Result, error) {
	thumb := imaging.Fit(img, f.config.AnalysisSize, f.config.AnalysisSize, imaging.Box)
	w, h := thumb.Bounds().Dx(), thumb.Bounds().Dy()
	if w < 3 || h < 3 {
		return NoSubject("image too small"), nil
	}

	sal := f.saliencyMap(thumb)
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	regions := f.regions(sal, w, h)
	if len(regions) == 0 {
		return NoSubject("uniform image", "uniform"), nil
	}
	best := regions[0]

	// the map has no values on the outer ring
	var mean float64
	for _, row := range sal[1 : h-1] {
		for _, v := range row[1 : w-1] {
			mean += v
		}
	}
	mean /= float64((w - 2) * (h - 2))

	confidence := clamp((best.score-mean)/best.score, 0, 1)
	if confidence < minConfidence {
		return NoSubject("uniform image", "uniform"), nil
	}

	box := Box{
		X: float64(best.x) / float64(w),
		Y: float64(best.y) / float64(h),
		W: float64(best.size) / float64(w),
		H: float64(best.size) / float64(h),
	}
	return Result{
		Primary: Subject{
			Label:      "salient region",
			Confidence: confidence,
			Box:        box,
			Cx:         box.X + box.W/2,
			Cy:         box.Y + box.H/2,
		},
		Description: "highest contrast region",
		Tags:        []string{"saliency"},
	}, nil
}

// saliencyMap scores every interior pixel by neighbour color difference
// and brightness
func (f *SaliencyFinder) saliencyMap(img *image.NRGBA) [][]float64 {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	out := make([][]float64, h)
	for i := range out {
		out[i] = make([]float64, w)
	}

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			c := img.NRGBAAt(x, y)
			var edge float64
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					n := img.NRGBAAt(x+dx, y+dy)
					dr := float64(c.R) - float64(n.R)
					dg := float64(c.G) - float64(n.G)
					db := float64(c.B) - float64(n.B)
					edge += math.Sqrt(dr*dr + dg*dg + db*db)
				}
			}
			edge /= 8 * 255
			brightness := (float64(c.R) + float64(c.G) + float64(c.B)) / (3 * 255)
			out[y][x] = f.config.ContrastWeight*edge + f.config.ColorWeight*brightness
		}
	}
	return out
}

// regions slides square windows over the map and returns those above the
// threshold, best first. Windows smaller than MinSubjectRatio are skipped.
func (f *SaliencyFinder) regions(sal [][]float64, w, h int) []region {
	// summed-area table
	sum := make([][]float64, h+1)
	for i := range sum {
		sum[i] = make([]float64, w+1)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum[y+1][x+1] = sal[y][x] + sum[y][x+1] + sum[y+1][x] - sum[y][x]
		}
	}

	minArea := f.config.MinSubjectRatio * float64(w*h)
	short := min(w, h)

	var out []region
	for _, div := range []int{8, 4, 3, 2} {
		size := short / div
		if size < 2 || float64(size*size) < minArea {
			continue
		}
		step := max(size/4, 1)
		for y := 0; y+size <= h; y += step {
			for x := 0; x+size <= w; x += step {
				total := sum[y+size][x+size] - sum[y][x+size] - sum[y+size][x] + sum[y][x]
				score := total / float64(size*size)
				if score > f.config.EdgeThreshold {
					out = append(out, region{x: x, y: y, size: size, score: score})
				}
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}
