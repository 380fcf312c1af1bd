package constraint

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/menta2k/image-layout/pkg/geometry"
)

func size(w, h uint32) geometry.Size { return geometry.NewSize(w, h) }

func rect(x, y, w, h uint32) geometry.Rect { return geometry.NewRect(x, y, w, h) }

func TestModeTable(t *testing.T) {
	crop := rect(166, 0, 667, 500)
	tests := []struct {
		mode Mode
		want Layout
	}{
		{Distort, Layout{ResizeTo: size(400, 300), Canvas: size(400, 300)}},
		{Fit, Layout{ResizeTo: size(400, 200), Canvas: size(400, 200)}},
		{Within, Layout{ResizeTo: size(400, 200), Canvas: size(400, 200)}},
		{FitCrop, Layout{SourceCrop: crop, ResizeTo: size(400, 300), Canvas: size(400, 300)}},
		{WithinCrop, Layout{SourceCrop: crop, ResizeTo: size(400, 300), Canvas: size(400, 300)}},
		{FitPad, Layout{ResizeTo: size(400, 200), Canvas: size(400, 300), Placement: geometry.Point{X: 0, Y: 50}}},
		{WithinPad, Layout{ResizeTo: size(400, 200), Canvas: size(400, 300), Placement: geometry.Point{X: 0, Y: 50}}},
		{AspectCrop, Layout{SourceCrop: crop, ResizeTo: size(667, 500), Canvas: size(667, 500)}},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			got, err := New(tt.mode, 400, 300).Compute(1000, 500)
			if err != nil {
				t.Fatalf("Compute() error = %v", err)
			}
			tt.want.Source = size(1000, 500)
			if diff := cmp.Diff(tt.want, got, cmp.AllowUnexported(geometry.CanvasColor{})); diff != "" {
				t.Errorf("Compute() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWithinModesKeepSmallSources(t *testing.T) {
	for _, mode := range []Mode{Within, WithinCrop, WithinPad} {
		got, err := New(mode, 400, 300).Compute(200, 100)
		if err != nil {
			t.Fatalf("%v: %v", mode, err)
		}
		if !got.IsIdentity() {
			t.Errorf("%v: expected identity, got %v", mode, got)
		}
	}

	got, _ := New(Fit, 400, 300).Compute(200, 100)
	if got.ResizeTo != size(400, 200) {
		t.Errorf("Fit should upscale, got %v", got.ResizeTo)
	}
}

func TestWithinCropMixed(t *testing.T) {
	got, err := New(WithinCrop, 400, 300).Compute(600, 200)
	if err != nil {
		t.Fatal(err)
	}
	want := Layout{
		Source:     size(600, 200),
		SourceCrop: rect(100, 0, 400, 200),
		ResizeTo:   size(400, 200),
		Canvas:     size(400, 200),
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(geometry.CanvasColor{})); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSingleAxisShortcut(t *testing.T) {
	for _, mode := range Modes {
		if mode == AspectCrop {
			continue
		}
		t.Run(mode.String(), func(t *testing.T) {
			got, err := WidthOnly(mode, 500).Compute(1000, 500)
			if err != nil {
				t.Fatal(err)
			}
			if got.ResizeTo != size(500, 250) || got.Canvas != size(500, 250) {
				t.Errorf("resize %v canvas %v, want 500x250", got.ResizeTo, got.Canvas)
			}
			if got.HasCrop() || got.IsPadded() {
				t.Errorf("unexpected crop or pad: %v", got)
			}
		})
	}
}

func TestDerivedAxisSaturates(t *testing.T) {
	got, err := WidthOnly(Distort, 100000).Compute(1, 100000)
	if err != nil {
		t.Fatal(err)
	}
	if want := size(100000, math.MaxUint32); got.ResizeTo != want {
		t.Errorf("resize = %v, want %v", got.ResizeTo, want)
	}

	got, err = HeightOnly(Fit, math.MaxUint32).Compute(math.MaxUint32, 1)
	if err != nil {
		t.Fatal(err)
	}
	if want := size(math.MaxUint32, math.MaxUint32); got.ResizeTo != want {
		t.Errorf("resize = %v, want %v", got.ResizeTo, want)
	}
}

func TestRoundDiv(t *testing.T) {
	const max32 = uint64(math.MaxUint32)
	tests := []struct {
		n, d uint64
		want uint32
	}{
		{5, 2, 3},
		{4, 3, 1},
		{3, 2, 2},
		{7, 7, 1},
		{max32 * max32, max32, math.MaxUint32},
		{max32*max32 - 1, 1, math.MaxUint32},
		{max32 * max32, max32 + 1, math.MaxUint32 - 1},
	}
	for _, tt := range tests {
		if got := roundDiv(tt.n, tt.d); got != tt.want {
			t.Errorf("roundDiv(%d, %d) = %d, want %d", tt.n, tt.d, got, tt.want)
		}
	}
}

func TestSingleAxisNoUpscale(t *testing.T) {
	tests := []struct {
		name string
		c    Constraint
		want geometry.Size
	}{
		{"within keeps smaller", WidthOnly(Within, 2000), size(1000, 500)},
		{"within pad keeps smaller", HeightOnly(WithinPad, 600), size(1000, 500)},
		{"fit upscales", WidthOnly(Fit, 2000), size(2000, 1000)},
		{"height only", HeightOnly(Fit, 100), size(200, 100)},
		{"fit crop height only", HeightOnly(FitCrop, 333), size(666, 333)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.c.Compute(1000, 500)
			if err != nil {
				t.Fatal(err)
			}
			if got.ResizeTo != tt.want || got.Canvas != tt.want {
				t.Errorf("got resize %v canvas %v, want %v", got.ResizeTo, got.Canvas, tt.want)
			}
		})
	}
}

func TestAspectCropSingleAxis(t *testing.T) {
	got, err := WidthOnly(AspectCrop, 500).Compute(1000, 500)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsIdentity() {
		t.Errorf("same-aspect aspect crop should be identity, got %v", got)
	}
}

func TestNoTargetIsPassthrough(t *testing.T) {
	got, err := Constraint{Mode: FitPad}.Compute(640, 480)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Passthrough(640, 480), got, cmp.AllowUnexported(geometry.CanvasColor{})); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestExplicitCropNarrowedByMode(t *testing.T) {
	c := New(FitCrop, 400, 300).WithCrop(geometry.PixelCrop(rect(100, 0, 500, 500)))
	got, err := c.Compute(1000, 500)
	if err != nil {
		t.Fatal(err)
	}
	if want := rect(100, 62, 500, 375); got.SourceCrop != want {
		t.Errorf("SourceCrop = %v, want %v", got.SourceCrop, want)
	}
	if got.ResizeTo != size(400, 300) {
		t.Errorf("ResizeTo = %v", got.ResizeTo)
	}
}

func TestExplicitCropWithoutTarget(t *testing.T) {
	c := Constraint{Crop: geometry.PercentCrop(0.5, 0, 0.5, 1)}
	got, err := c.Compute(1000, 500)
	if err != nil {
		t.Fatal(err)
	}
	if got.SourceCrop != rect(500, 0, 500, 500) || got.ResizeTo != size(500, 500) || got.Canvas != size(500, 500) {
		t.Errorf("unexpected layout %v", got)
	}
}

func TestNormalizesFullCrop(t *testing.T) {
	tests := []struct {
		name string
		c    Constraint
	}{
		{"explicit full crop", New(Within, 2000, 2000).WithCrop(geometry.PixelCrop(rect(0, 0, 1000, 500)))},
		{"percent full crop", New(Fit, 100, 50).WithCrop(geometry.PercentCrop(0, 0, 1, 1))},
		{"same aspect fit crop", New(FitCrop, 500, 250)},
		{"same aspect aspect crop", New(AspectCrop, 2, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.c.Compute(1000, 500)
			if err != nil {
				t.Fatal(err)
			}
			if got.HasCrop() {
				t.Errorf("crop %v should normalise away", got.SourceCrop)
			}
			again, _ := tt.c.WithCrop(geometry.PixelCrop(got.CropRect())).Compute(1000, 500)
			if again.HasCrop() {
				t.Errorf("normalisation not idempotent: %v", again.SourceCrop)
			}
		})
	}
}

func TestGravity(t *testing.T) {
	tests := []struct {
		name      string
		c         Constraint
		wantCrop  geometry.Rect
		wantPlace geometry.Point
	}{
		{"crop top left", New(FitCrop, 400, 300).WithGravity(geometry.TopLeft), rect(0, 0, 667, 500), geometry.Point{}},
		{"crop bottom right", New(FitCrop, 400, 300).WithGravity(geometry.BottomRight), rect(333, 0, 667, 500), geometry.Point{}},
		{"pad top left", New(FitPad, 400, 300).WithGravity(geometry.TopLeft), geometry.Rect{}, geometry.Point{}},
		{"pad bottom", New(FitPad, 400, 300).WithGravity(geometry.Bottom), geometry.Rect{}, geometry.Point{X: 0, Y: 100}},
		{"pad quarter", New(FitPad, 400, 300).WithGravity(geometry.GravityPercent(0, 0.25)), geometry.Rect{}, geometry.Point{X: 0, Y: 25}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.c.Compute(1000, 500)
			if err != nil {
				t.Fatal(err)
			}
			if got.SourceCrop != tt.wantCrop {
				t.Errorf("SourceCrop = %v, want %v", got.SourceCrop, tt.wantCrop)
			}
			if got.Placement != tt.wantPlace {
				t.Errorf("Placement = %v, want %v", got.Placement, tt.wantPlace)
			}
		})
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		c    Constraint
		w, h uint32
		want error
	}{
		{"zero source width", New(Fit, 10, 10), 0, 10, ErrZeroSourceDimension},
		{"zero source height", New(Fit, 10, 10), 10, 0, ErrZeroSourceDimension},
		{"zero target width", New(Fit, 0, 10), 10, 10, ErrZeroTargetDimension},
		{"zero target height only", HeightOnly(Fit, 0), 10, 10, ErrZeroTargetDimension},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.c.Compute(tt.w, tt.h)
			if !errors.Is(err, tt.want) {
				t.Errorf("Compute() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLayoutInvariants(t *testing.T) {
	sources := []geometry.Size{size(1, 1), size(3, 7), size(1000, 500), size(499, 1001), size(4032, 3024)}
	targets := []geometry.Size{size(1, 1), size(17, 5), size(400, 300), size(300, 400), size(2000, 2000)}
	for _, src := range sources {
		for _, tgt := range targets {
			for _, mode := range Modes {
				l, err := New(mode, tgt.Width, tgt.Height).Compute(src.Width, src.Height)
				if err != nil {
					t.Fatalf("%v %v->%v: %v", mode, src, tgt, err)
				}
				crop := l.CropRect()
				if !geometry.FullRect(src.Width, src.Height).Contains(crop) {
					t.Errorf("%v %v->%v: crop %v outside source", mode, src, tgt, crop)
				}
				if l.HasCrop() && l.SourceCrop.Covers(src.Width, src.Height) {
					t.Errorf("%v %v->%v: full crop not normalised", mode, src, tgt)
				}
				if l.Placement.X+l.ResizeTo.Width > l.Canvas.Width || l.Placement.Y+l.ResizeTo.Height > l.Canvas.Height {
					t.Errorf("%v %v->%v: %v at %v overflows canvas %v", mode, src, tgt, l.ResizeTo, l.Placement, l.Canvas)
				}
				if l.ResizeTo.IsZero() {
					t.Errorf("%v %v->%v: empty resize", mode, src, tgt)
				}
				if r := l.Retained(); r <= 0 || r > 1 || (r == 1) == l.HasCrop() {
					t.Errorf("%v %v->%v: retained %v with crop %v", mode, src, tgt, r, l.SourceCrop)
				}
			}
		}
	}
}

func TestRetained(t *testing.T) {
	l, err := New(FitCrop, 300, 200).Compute(3000, 4000)
	if err != nil {
		t.Fatal(err)
	}
	if got := l.Retained(); got != 0.5 {
		t.Errorf("Retained() = %v, want 0.5 for crop %v", got, l.SourceCrop)
	}
	if got := Passthrough(10, 10).Retained(); got != 1 {
		t.Errorf("passthrough Retained() = %v", got)
	}
	if got := (Layout{}).Retained(); got != 0 {
		t.Errorf("zero layout Retained() = %v", got)
	}
}

func TestAspectRatioPresets(t *testing.T) {
	got, err := Widescreen.Constraint().Compute(1000, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if want := rect(0, 218, 1000, 563); got.SourceCrop != want {
		t.Errorf("widescreen crop = %v, want %v", got.SourceCrop, want)
	}

	r, err := ParseAspectRatio("instagram")
	if err != nil || r != Instagram {
		t.Errorf("ParseAspectRatio(instagram) = %v, %v", r, err)
	}
	r, err = ParseAspectRatio("21:9")
	if err != nil || r.Width != 21 || r.Height != 9 {
		t.Errorf("ParseAspectRatio(21:9) = %v, %v", r, err)
	}
	for _, bad := range []string{"wide", "0:9", "16:x"} {
		if _, err := ParseAspectRatio(bad); err == nil {
			t.Errorf("ParseAspectRatio(%q) accepted", bad)
		}
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range Modes {
		for _, s := range []string{m.String(), strings.ReplaceAll(m.String(), "_", "-"), strings.ToUpper(m.String())} {
			got, err := ParseMode(s)
			if err != nil || got != m {
				t.Errorf("ParseMode(%q) = %v, %v", s, got, err)
			}
		}
	}
	if _, err := ParseMode("zoom"); err == nil {
		t.Error("ParseMode(zoom) accepted")
	}
}

func TestConstraintJSON(t *testing.T) {
	c := WidthOnly(FitPad, 300).WithGravity(geometry.Top).WithCanvasColor(geometry.SRGB(255, 0, 0, 255))
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"height":null`) || !strings.Contains(string(data), `"mode":"fit_pad"`) {
		t.Errorf("unexpected JSON %s", data)
	}
	var back Constraint
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	opts := cmp.Options{
		cmp.AllowUnexported(Dimension{}, geometry.Gravity{}, geometry.CanvasColor{}, geometry.SourceCrop{}),
	}
	if diff := cmp.Diff(c, back, opts); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func BenchmarkCompute(b *testing.B) {
	c := New(FitCrop, 400, 300).WithGravity(geometry.GravityPercent(0.3, 0.6))
	for i := 0; i < b.N; i++ {
		if _, err := c.Compute(4032, 3024); err != nil {
			b.Fatal(err)
		}
	}
}
