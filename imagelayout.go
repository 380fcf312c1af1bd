// Package imagelayout plans image layouts: given a source size, its EXIF
// orientation and a list of commands (orient, crop, constrain, pad) it
// computes where every pixel ends up, without touching pixels.
//
// Basic usage:
//
//	package main
//
//	import (
//		"fmt"
//		"log"
//
//		imagelayout "github.com/menta2k/image-layout"
//	)
//
//	func main() {
//		l, err := imagelayout.New()
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		// A 4000x3000 photo tagged EXIF 6, cropped to fill 300x200
//		report, err := l.PlanQuery("w=300&h=200&mode=crop", 4000, 3000, 6)
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Println(report.Ideal.SourceCrop, report.Plan.Steps())
//	}
//
// The module consists of these components:
//
// 1. Geometry (pkg/geometry, pkg/orientation): sizes, rectangles, gravity and the eight EXIF orientations
// 2. Constraint (pkg/constraint): the fit modes that turn a target box into a crop, a resize and a canvas
// 3. Pipeline (pkg/pipeline): command folding into an ideal layout and reconciliation with a decoder
// 4. Processing (pkg/processing): a reference executor that applies a plan to real pixels
// 5. Focus (pkg/focus): subject finders that supply crop gravity
//
// Query strings follow the familiar w/h/mode/scale/anchor parameter set
// (see pkg/riapi).
package imagelayout

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"

	"github.com/menta2k/image-layout/internal/config"
	"github.com/menta2k/image-layout/pkg/focus"
	"github.com/menta2k/image-layout/pkg/pipeline"
	"github.com/menta2k/image-layout/pkg/processing"
	"github.com/menta2k/image-layout/pkg/riapi"
)

// Version of the image layout library
const Version = "1.0.0"

// Layout ties configuration, a processor and an optional subject finder
// together
type Layout struct {
	cfg       *config.Config
	logger    *log.Logger
	finder    focus.Finder
	finderSet bool
	processor *processing.Processor
}

// Option configures a Layout
type Option func(*Layout)

// WithConfig replaces the default configuration
func WithConfig(cfg *config.Config) Option { return func(l *Layout) { l.cfg = cfg } }

// WithLogger sets the logger used by the layout and its processor
func WithLogger(logger *log.Logger) Option { return func(l *Layout) { l.logger = logger } }

// WithFinder overrides the subject finder chosen by the configuration.
// A nil finder disables automatic gravity.
func WithFinder(f focus.Finder) Option {
	return func(l *Layout) {
		l.finder = f
		l.finderSet = true
	}
}

// New creates a Layout. The configuration is validated and drives the
// decoder and the focus backend.
func New(opts ...Option) (*Layout, error) {
	l := &Layout{cfg: config.Default()}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = log.New(io.Discard)
	}
	if err := l.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if !l.finderSet {
		f, err := NewFinder(l.cfg.Focus)
		if err != nil {
			return nil, err
		}
		l.finder = f
	}

	l.processor = processing.NewProcessor(
		processing.WithLogger(l.logger),
		processing.WithDecoder(NewDecoder(l.cfg.Decoder)),
	)
	return l, nil
}

// NewDecoder builds the block decoder described by c
func NewDecoder(c config.DecoderConfig) *processing.BlockDecoder {
	d := &processing.BlockDecoder{
		BlockSize: c.BlockSize,
		Orient:    c.Orientation,
		Prescale:  c.Prescale,
	}
	if !c.Crop {
		d.BlockSize = 0
	}
	return d
}

// NewFinder builds the subject finder selected by c, or nil for none
func NewFinder(c config.FocusConfig) (focus.Finder, error) {
	switch c.Backend {
	case "", config.FocusNone:
		return nil, nil
	case config.FocusSaliency:
		return focus.NewSaliencyFinderWithConfig(c.Saliency), nil
	case config.FocusOllama:
		client, err := focus.NewOllamaClient(c.URL, http.DefaultClient)
		if err != nil {
			return nil, fmt.Errorf("ollama client: %w", err)
		}
		return focus.NewModelFinder(client, c.Model), nil
	default:
		return nil, fmt.Errorf("unknown focus backend %q", c.Backend)
	}
}

// Config returns the active configuration
func (l *Layout) Config() *config.Config { return l.cfg }

// Processor returns the processor used by ProcessFile
func (l *Layout) Processor() *processing.Processor { return l.processor }

// Finder returns the subject finder, nil when automatic gravity is off
func (l *Layout) Finder() focus.Finder { return l.finder }

// Report is the full planning result for one source
type Report struct {
	Instructions *riapi.Instructions     `json:"instructions,omitempty"`
	Warnings     []riapi.Warning         `json:"warnings,omitempty"`
	Ideal        pipeline.IdealLayout    `json:"ideal"`
	Request      pipeline.DecoderRequest `json:"request"`
	Plan         pipeline.LayoutPlan     `json:"plan"`
}

// Plan computes the layout of cmds over a w x h source. The plan is
// finalized against a decoder that does nothing.
func (l *Layout) Plan(cmds []pipeline.Command, w, h uint32) (*Report, error) {
	ideal, req, err := pipeline.Plan(cmds, w, h)
	if err != nil {
		return nil, err
	}
	return &Report{
		Ideal:   ideal,
		Request: req,
		Plan:    pipeline.Finalize(ideal, req, pipeline.NoOffer(ideal)),
	}, nil
}

// ParseQuery parses a query string after filling in the configured defaults
func (l *Layout) ParseQuery(query string) (riapi.Instructions, []riapi.Warning, error) {
	values, err := url.ParseQuery(query)
	if err != nil {
		return riapi.Instructions{}, nil, fmt.Errorf("parse query: %w", err)
	}
	l.cfg.ApplyDefaults(values)
	ins, warnings := riapi.Parse(values)
	return ins, warnings, nil
}

// PlanQuery plans a query string over a w x h source tagged with the EXIF
// orientation exif (0 when unknown)
func (l *Layout) PlanQuery(query string, w, h uint32, exif uint8) (*Report, error) {
	ins, warnings, err := l.ParseQuery(query)
	if err != nil {
		return nil, err
	}
	for _, warn := range warnings {
		l.logger.Warn("ignored query parameter", "key", warn.Key, "value", warn.Value, "reason", warn.Message)
	}
	report, err := l.Plan(ins.Pipeline(exif).Commands(), w, h)
	if err != nil {
		return nil, err
	}
	report.Instructions = &ins
	report.Warnings = warnings
	return report, nil
}

// Output is the result of ProcessFile
type Output struct {
	*processing.Result
	Instructions riapi.Instructions
	Warnings     []riapi.Warning
	Focus        *focus.Result
	Source       processing.Source
}

// ProcessFile opens input (a path or URL), plans query against it and
// executes the plan. When a finder is configured and the query neither
// anchors nor crops, the subject position becomes the crop gravity.
func (l *Layout) ProcessFile(ctx context.Context, input, query string) (*Output, error) {
	src, err := l.processor.Open(ctx, input)
	if err != nil {
		return nil, err
	}
	ins, warnings, err := l.ParseQuery(query)
	if err != nil {
		return nil, err
	}

	out := &Output{Instructions: ins, Warnings: warnings, Source: src}
	if l.wantsFocus(ins) {
		res, err := l.findSubject(ctx, src, ins)
		if err != nil {
			return nil, fmt.Errorf("find subject: %w", err)
		}
		out.Focus = &res
		if res.Found() {
			ins.Gravity = focus.Gravity(res)
			out.Instructions = ins
			l.logger.Debug("subject gravity", "label", res.Primary.Label, "gravity", ins.Gravity)
		}
	}

	result, err := l.processor.Process(ctx, src, ins.Pipeline(src.Exif).Commands())
	if err != nil {
		return nil, err
	}
	out.Result = result
	return out, nil
}

// wantsFocus reports whether a subject position can become gravity: the
// query constrains the whole image and leaves the anchor at its default
func (l *Layout) wantsFocus(ins riapi.Instructions) bool {
	if l.finder == nil || !ins.HasConstraint() || !ins.Gravity.IsCenter() {
		return false
	}
	return !ins.Crop.IsSet()
}

// findSubject runs the finder on the source turned by every orientation
// the plan folds in ahead of the constraint, so the result is in the
// frame gravity applies to
func (l *Layout) findSubject(ctx context.Context, src processing.Source, ins riapi.Instructions) (focus.Result, error) {
	b := src.Image.Bounds()
	ideal, _, err := pipeline.Plan(ins.Pipeline(src.Exif).Commands(), uint32(b.Dx()), uint32(b.Dy()))
	if err != nil {
		return focus.Result{}, err
	}
	img := src.Image
	if !ideal.Orientation.IsIdentity() {
		img = processing.Orient(img, ideal.Orientation)
	}
	l.logger.Debug("finding subject", "orientation", ideal.Orientation, "size", img.Bounds().Size())
	return l.finder.Find(ctx, img)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
