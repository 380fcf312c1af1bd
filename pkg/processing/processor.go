// Package processing is the pixel side of the planner: it loads sources,
// plays the decoder role, executes finalized plans and saves the result.
package processing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/image-layout/pkg/pipeline"
)

var (
	// ErrUnsupportedFormat is returned when a source cannot be decoded or
	// an output format is unknown
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrNotImage is returned when a URL does not serve an image
	ErrNotImage = errors.New("not an image")
)

const userAgent = "image-layout/1.0"

// Source is a decoded image with the orientation tag read from its bytes.
// Image is never auto-oriented; orientation is part of the plan.
type Source struct {
	Image image.Image
	Exif  uint8
	Name  string
}

// Processor loads, decodes and renders images
type Processor struct {
	logger  *log.Logger
	client  *http.Client
	decoder Decoder
}

// Option configures a Processor
type Option func(*Processor)

// WithLogger sets the logger used for stage events
func WithLogger(l *log.Logger) Option { return func(p *Processor) { p.logger = l } }

// WithDecoder replaces the default block decoder
func WithDecoder(d Decoder) Option { return func(p *Processor) { p.decoder = d } }

// WithHTTPClient sets the client used for URL sources
func WithHTTPClient(c *http.Client) Option { return func(p *Processor) { p.client = c } }

// NewProcessor creates a new image processor
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		logger:  log.New(io.Discard),
		client:  &http.Client{Timeout: 30 * time.Second},
		decoder: NewBlockDecoder(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Open loads a file path or http(s) URL and reads its orientation tag
func (p *Processor) Open(ctx context.Context, source string) (Source, error) {
	var (
		data []byte
		err  error
	)
	if isURL(source) {
		data, err = p.fetch(ctx, source)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return Source{}, err
	}
	img, err := decodeImageFromBytes(data)
	if err != nil {
		return Source{}, fmt.Errorf("decode %s: %w", source, err)
	}
	exif, _ := ReadOrientation(bytes.NewReader(data))
	p.logger.Debug("opened source", "name", source, "size", img.Bounds().Size(), "exif", exif)
	return Source{Image: img, Exif: exif, Name: source}, nil
}

func (p *Processor) fetch(ctx context.Context, imageURL string) ([]byte, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %s", resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("%s: %w (Content-Type: %s)", imageURL, ErrNotImage, ct)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return data, nil
}

// LoadImage decodes a file without applying its orientation tag
func LoadImage(path string) (image.Image, error) {
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := decodeImageFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func decodeImageFromBytes(data []byte) (image.Image, error) {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, ErrUnsupportedFormat
}

// Encode writes img in the given format (jpg, png or webp)
func Encode(w io.Writer, img image.Image, format string, quality int) error {
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	switch strings.ToLower(format) {
	case "webp":
		return webp.Encode(w, img, &webp.Options{Quality: float32(quality)})
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		return enc.Encode(w, img)
	case "jpg", "jpeg", "":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	default:
		return fmt.Errorf("encode %q: %w", format, ErrUnsupportedFormat)
	}
}

// ContentType returns the MIME type for an output format
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case "webp":
		return "image/webp"
	case "png":
		return "image/png"
	default:
		return "image/jpeg"
	}
}

// SaveImage saves an image to a file with the specified format and quality
func SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return webp.Encode(f, img, &webp.Options{Lossless: lossless, Quality: float32(quality)})
	case "png":
		return imaging.Save(img, path)
	case "jpg", "jpeg", "":
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	default:
		return fmt.Errorf("save %s: %w", path, ErrUnsupportedFormat)
	}
}

// Result is everything Process computed for one source
type Result struct {
	Ideal   pipeline.IdealLayout
	Request pipeline.DecoderRequest
	Plan    pipeline.LayoutPlan
	Image   image.Image
}

// Process plans cmds against src, lets the decoder take its share of the
// work, finalizes against what it reports and executes the rest
func (p *Processor) Process(ctx context.Context, src Source, cmds []pipeline.Command) (*Result, error) {
	b := src.Image.Bounds()
	ideal, req, err := pipeline.Plan(cmds, uint32(b.Dx()), uint32(b.Dy()))
	if err != nil {
		return nil, err
	}
	p.logger.Debug("planned", "source", ideal.Source, "orientation", ideal.Orientation, "layout", ideal.Layout)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	decoded, offer := p.decoder.Decode(src.Image, req)
	p.logger.Debug("decoded", "size", offer.Size, "crop", offer.CropApplied, "orientation", offer.OrientationApplied)

	plan := pipeline.Finalize(ideal, req, offer)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := Execute(decoded, plan)
	p.logger.Info("rendered", "name", src.Name, "canvas", plan.Canvas, "steps", len(plan.Steps()))

	return &Result{Ideal: ideal, Request: req, Plan: plan, Image: out}, nil
}
