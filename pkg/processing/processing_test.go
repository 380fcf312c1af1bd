package processing

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/menta2k/image-layout/pkg/constraint"
	"github.com/menta2k/image-layout/pkg/geometry"
	"github.com/menta2k/image-layout/pkg/orientation"
	"github.com/menta2k/image-layout/pkg/pipeline"
)

var (
	red  = color.NRGBA{255, 0, 0, 255}
	blue = color.NRGBA{0, 0, 255, 255}
)

// halves returns a w x h image whose left half is red and right half blue
func halves(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.SetNRGBA(x, y, red)
			} else {
				img.SetNRGBA(x, y, blue)
			}
		}
	}
	return img
}

func isRed(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r > 0xC000 && g < 0x4000 && b < 0x4000
}

func isBlue(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return b > 0xC000 && r < 0x4000 && g < 0x4000
}

func exifJPEG(order binary.ByteOrder, value uint16) []byte {
	tiff := make([]byte, 8+2+12+4)
	if order == binary.LittleEndian {
		copy(tiff, "II")
	} else {
		copy(tiff, "MM")
	}
	order.PutUint16(tiff[2:], 42)
	order.PutUint32(tiff[4:], 8)
	order.PutUint16(tiff[8:], 1)
	order.PutUint16(tiff[10:], tagOrientation)
	order.PutUint16(tiff[12:], typeShort)
	order.PutUint32(tiff[14:], 1)
	order.PutUint16(tiff[18:], value)

	var buf bytes.Buffer
	buf.Write([]byte{0xFF, markerSOI})
	// an unrelated APP0 segment first
	buf.Write([]byte{0xFF, 0xE0, 0x00, 0x04, 'h', 'i'})
	seg := append([]byte("Exif\x00\x00"), tiff...)
	buf.Write([]byte{0xFF, markerAPP1})
	binary.Write(&buf, binary.BigEndian, uint16(len(seg)+2))
	buf.Write(seg)
	buf.Write([]byte{0xFF, markerEOI})
	return buf.Bytes()
}

func TestReadOrientation(t *testing.T) {
	var plain bytes.Buffer
	if err := jpeg.Encode(&plain, halves(8, 8), nil); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		data   []byte
		want   uint8
		wantOK bool
	}{
		{"big endian", exifJPEG(binary.BigEndian, 6), 6, true},
		{"little endian", exifJPEG(binary.LittleEndian, 8), 8, true},
		{"out of range", exifJPEG(binary.BigEndian, 9), 0, false},
		{"no exif", plain.Bytes(), 0, false},
		{"not jpeg", []byte("\x89PNG\r\n\x1a\n"), 0, false},
		{"truncated", []byte{0xFF, 0xD8, 0xFF}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ReadOrientation(bytes.NewReader(tt.data))
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ReadOrientation = %d, %v; want %d, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestOrientMatchesGeometry(t *testing.T) {
	const w, h = 5, 3
	src := image.NewNRGBA(image.Rect(0, 0, w, h))
	src.SetNRGBA(1, 0, red)

	for _, o := range orientation.All {
		t.Run(o.String(), func(t *testing.T) {
			out := Orient(src, o)
			dw, dh := o.TransformDimensions(w, h)
			if b := out.Bounds(); b.Dx() != int(dw) || b.Dy() != int(dh) {
				t.Fatalf("size = %v, want %dx%d", b.Size(), dw, dh)
			}
			p := o.TransformRectToDisplay(geometry.NewRect(1, 0, 1, 1), w, h)
			if !isRed(out.At(int(p.X), int(p.Y))) {
				t.Errorf("marked pixel not at %v", p.Origin())
			}
		})
	}
}

func TestAlignRect(t *testing.T) {
	got := alignRect(geometry.NewRect(10, 10, 50, 50), 8, 100, 100)
	if want := geometry.NewRect(8, 8, 56, 56); got != want {
		t.Errorf("alignRect = %v, want %v", got, want)
	}
	got = alignRect(geometry.NewRect(90, 0, 10, 10), 8, 100, 100)
	if want := geometry.NewRect(88, 0, 12, 16); got != want {
		t.Errorf("alignRect at edge = %v, want %v", got, want)
	}
}

func TestBlockDecoderOffer(t *testing.T) {
	src := halves(100, 100)
	ideal, req, err := pipeline.New().
		Crop(geometry.PixelCrop(geometry.NewRect(10, 10, 50, 50))).
		Plan(100, 100)
	if err != nil {
		t.Fatal(err)
	}

	img, offer := (&BlockDecoder{BlockSize: 8}).Decode(src, req)
	want := pipeline.DecoderOffer{
		Size:        geometry.NewSize(56, 56),
		CropApplied: geometry.NewRect(8, 8, 56, 56),
	}
	if diff := cmp.Diff(want, offer); diff != "" {
		t.Fatalf("offer mismatch (-want +got):\n%s", diff)
	}
	if b := img.Bounds(); b.Dx() != 56 || b.Dy() != 56 {
		t.Fatalf("decoded size = %v", b.Size())
	}

	plan := pipeline.Finalize(ideal, req, offer)
	if want := geometry.NewRect(2, 2, 50, 50); plan.Trim != want {
		t.Errorf("trim = %v, want %v", plan.Trim, want)
	}
	out := Execute(img, plan)
	if b := out.Bounds(); b.Dx() != 50 || b.Dy() != 50 {
		t.Errorf("output size = %v", b.Size())
	}
}

func TestBlockDecoderPrescale(t *testing.T) {
	src := halves(400, 400)
	ideal, req, err := pipeline.New().
		Constrain(constraint.New(constraint.Fit, 100, 100)).
		Plan(400, 400)
	if err != nil {
		t.Fatal(err)
	}
	img, offer := NewBlockDecoder().Decode(src, req)
	if offer.Size != geometry.NewSize(100, 100) {
		t.Fatalf("prescaled size = %v, want 100x100", offer.Size)
	}
	plan := pipeline.Finalize(ideal, req, offer)
	if !plan.ResizeIsIdentity || plan.HasTrim() {
		t.Errorf("plan should have no remaining work: %v", plan.Steps())
	}
	out := Execute(img, plan)
	if !isRed(out.At(10, 50)) || !isBlue(out.At(90, 50)) {
		t.Error("content lost in prescale")
	}
}

func TestProcess(t *testing.T) {
	tests := []struct {
		name    string
		decoder Decoder
	}{
		{"decoder does nothing", &BlockDecoder{}},
		{"decoder does everything", NewBlockDecoder()},
		{"decoder crops only", &BlockDecoder{BlockSize: 16}},
		{"decoder orients only", &BlockDecoder{Orient: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProcessor(WithDecoder(tt.decoder))
			src := Source{Image: halves(200, 100), Exif: 6}
			cmds := pipeline.New().
				AutoOrient(src.Exif).
				Constrain(constraint.New(constraint.FitPad, 60, 60)).
				Pad(0, 0, 0, 10, geometry.SRGB(0, 255, 0, 255)).
				Commands()

			res, err := p.Process(context.Background(), src, cmds)
			if err != nil {
				t.Fatal(err)
			}
			b := res.Image.Bounds()
			if b.Dx() != 60 || b.Dy() != 70 {
				t.Fatalf("output size = %v, want 60x70", b.Size())
			}
			// rotated clockwise: the red left half ends up on top
			if !isRed(res.Image.At(30, 5)) || !isBlue(res.Image.At(30, 55)) {
				t.Error("orientation not applied")
			}
			if _, g, _, _ := res.Image.At(30, 65).RGBA(); g == 0 {
				t.Error("padding should be green")
			}
		})
	}
}

func TestProcessCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewProcessor().Process(ctx, Source{Image: halves(10, 10)}, nil)
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestOpenAndSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.jpg")
	if err := os.WriteFile(path, exifJPEG(binary.BigEndian, 3), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewProcessor().Open(context.Background(), path); err == nil {
		t.Error("expected a decode error for a header-only JPEG")
	}

	for _, format := range []string{"png", "jpg", "webp"} {
		out := filepath.Join(dir, "out."+format)
		if err := SaveImage(halves(16, 8), out, format, 90, false); err != nil {
			t.Fatalf("save %s: %v", format, err)
		}
		src, err := NewProcessor().Open(context.Background(), out)
		if err != nil {
			t.Fatalf("open %s: %v", format, err)
		}
		if b := src.Image.Bounds(); b.Dx() != 16 || b.Dy() != 8 {
			t.Errorf("%s size = %v", format, b.Size())
		}
		if src.Exif != 0 {
			t.Errorf("%s exif = %d, want none", format, src.Exif)
		}
	}

	if err := SaveImage(halves(2, 2), filepath.Join(dir, "x.gif"), "gif", 90, false); err == nil {
		t.Error("expected unsupported format error")
	}
}

func TestOpenURL(t *testing.T) {
	var body bytes.Buffer
	if err := png.Encode(&body, halves(12, 6)); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write(body.Bytes())
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewProcessor(WithHTTPClient(srv.Client()))
	src, err := p.Open(context.Background(), srv.URL+"/a.png")
	if err != nil {
		t.Fatal(err)
	}
	if b := src.Image.Bounds(); b.Dx() != 12 || b.Dy() != 6 {
		t.Errorf("size = %v", b.Size())
	}
	if _, err := p.Open(context.Background(), srv.URL+"/page"); !errors.Is(err, ErrNotImage) {
		t.Errorf("html err = %v, want ErrNotImage", err)
	}
	if _, err := p.Open(context.Background(), srv.URL+"/missing.png"); err == nil {
		t.Error("expected an error for HTTP 404")
	}
}

func TestDebugOverlay(t *testing.T) {
	src := halves(64, 64)
	ideal, req, err := pipeline.New().
		Crop(geometry.PixelCrop(geometry.NewRect(10, 10, 20, 20))).
		Plan(64, 64)
	if err != nil {
		t.Fatal(err)
	}
	_, offer := NewBlockDecoder().Decode(src, req)
	out := CreateDebugOverlay(src, ideal, pipeline.Finalize(ideal, req, offer))
	if got := out.At(10, 15); got != (color.NRGBA{255, 204, 0, 255}) {
		t.Errorf("crop outline missing, got %v", got)
	}
	if got := src.At(10, 15); got != red {
		t.Error("source must not be modified")
	}
}
