package focus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"
)

// DefaultPrompt asks a vision model for the dominant subject as JSON
const DefaultPrompt = `You are an image subject locator.

Return JSON only:
{
  "primary": {
    "label": "string",
    "confidence": 0.0,
    "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0},
    "cx": 0.0,
    "cy": 0.0
  },
  "description": "short neutral sentence (at most 20 words)",
  "tags": ["tag1", "tag2", "tag3", "tag4", "tag5"]
}

HARD RULES
- All coordinates are normalized to [0,1] (NOT pixels).
- The box should tightly include the visually dominant subject (prefer people/vehicles/animals; else the most central salient object).
- Description must be brief and factual. Do not guess real identities.
- Tags: lowercase, concise, no punctuation or duplicates.
- If no subject is found, return:
  {
    "primary":{"label":"none","confidence":0.0,"box":{"x":0.25,"y":0.25,"w":0.50,"h":0.50},"cx":0.5,"cy":0.5},
    "description":"centered generic scene",
    "tags":["generic","center","subject","photo","scene"]
  }
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// VisionClient sends one image and a prompt to a vision model and returns
// the raw reply
type VisionClient interface {
	Query(ctx context.Context, model, prompt string, jpegData []byte) (string, error)
}

// ModelFinder locates subjects with a vision model
type ModelFinder struct {
	client  VisionClient
	model   string
	prompt  string
	maxDim  int
	quality int
}

// ModelOption configures a ModelFinder
type ModelOption func(*ModelFinder)

// WithPrompt replaces DefaultPrompt
func WithPrompt(p string) ModelOption { return func(f *ModelFinder) { f.prompt = p } }

// WithMaxDimension bounds the longer edge of the image sent to the model
func WithMaxDimension(px int) ModelOption { return func(f *ModelFinder) { f.maxDim = px } }

// NewModelFinder creates a finder that queries model through client
func NewModelFinder(client VisionClient, model string, opts ...ModelOption) *ModelFinder {
	f := &ModelFinder{client: client, model: model, prompt: DefaultPrompt, maxDim: 768, quality: 85}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Find implements Finder
func (f *ModelFinder) Find(ctx context.Context, img image.Image) (Result, error) {
	data, err := f.encode(img)
	if err != nil {
		return Result{}, fmt.Errorf("encode for model: %w", err)
	}
	raw, err := f.client.Query(ctx, f.model, f.prompt, data)
	if err != nil {
		return Result{}, fmt.Errorf("query %s: %w", f.model, err)
	}
	if strings.TrimSpace(raw) == "" {
		return Result{}, fmt.Errorf("query %s: empty response", f.model)
	}
	return validate(parseResult(raw)), nil
}

func (f *ModelFinder) encode(img image.Image) ([]byte, error) {
	if f.maxDim > 0 {
		b := img.Bounds()
		if b.Dx() > f.maxDim || b.Dy() > f.maxDim {
			img = imaging.Fit(img, f.maxDim, f.maxDim, imaging.Lanczos)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: f.quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// parseResult decodes a model reply, falling back to NoSubject when the
// reply holds no usable JSON
func parseResult(raw string) Result {
	raw = sanitizeModelJSON(raw)
	if !strings.HasPrefix(raw, "{") {
		return NoSubject("model returned non-JSON response", "unclear", "non-json", "fallback")
	}
	var r Result
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return NoSubject("failed to parse model response", "parse-error", "fallback")
	}
	return r
}

var (
	reBlockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineComment  = regexp.MustCompile(`(?m)//.*$`)
	reTrailing     = regexp.MustCompile(`,(\s*[}\]])`)
)

// sanitizeModelJSON removes code fences, comments and trailing commas
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.Trim(strings.TrimSpace(raw), "`")
	raw = reBlockComment.ReplaceAllString(raw, "")
	raw = reLineComment.ReplaceAllString(raw, "")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}

var fallbackIndicators = []string{"unclear", "empty", "parse", "error", "fallback", "non-json", "generic"}

// validate clamps the box, recomputes a center that lies outside it and
// demotes replies that describe themselves as failures
func validate(r Result) Result {
	r.Primary.Box = normalizeBox(r.Primary.Box)
	r.Tags = normalizeTags(r.Tags)
	r.Primary.Confidence = clamp(r.Primary.Confidence, 0, 1)

	b := r.Primary.Box
	if r.Primary.Cx < b.X || r.Primary.Cx > b.X+b.W || r.Primary.Cy < b.Y || r.Primary.Cy > b.Y+b.H ||
		math.IsNaN(r.Primary.Cx) || math.IsNaN(r.Primary.Cy) {
		r.Primary.Cx, r.Primary.Cy = b.X+b.W/2, b.Y+b.H/2
	}

	if strings.EqualFold(r.Primary.Label, "none") {
		return r
	}
	label := strings.ToLower(r.Primary.Label)
	desc := strings.ToLower(r.Description)
	for _, indicator := range fallbackIndicators {
		if strings.Contains(label, indicator) || strings.Contains(desc, indicator) {
			r.Primary.Label = "none"
			r.Primary.Confidence = 0
			break
		}
	}
	return r
}

// normalizeBox clamps the box to the unit square. Boxes that are obviously
// in percent are rescaled.
func normalizeBox(b Box) Box {
	if b.X > 1 || b.Y > 1 || b.W > 1 || b.H > 1 {
		if b.X <= 100 && b.Y <= 100 && b.W <= 100 && b.H <= 100 {
			b = Box{X: b.X / 100, Y: b.Y / 100, W: b.W / 100, H: b.H / 100}
		}
	}
	b = b.Clamp()
	b.W = math.Min(b.W, 1-b.X)
	b.H = math.Min(b.H, 1-b.Y)
	return b
}

// normalizeTags lowercases, dedupes and keeps at most five tags
func normalizeTags(tags []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, 5)
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) == 5 {
			break
		}
	}
	return out
}
