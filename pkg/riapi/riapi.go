// Package riapi translates URL query instructions (w=, h=, mode=, crop=,
// bgcolor= and friends) into layout constraints and pipeline commands.
//
// Parsing never fails: invalid values are skipped and reported as warnings.
package riapi

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/menta2k/image-layout/pkg/colors"
	"github.com/menta2k/image-layout/pkg/constraint"
	"github.com/menta2k/image-layout/pkg/geometry"
	"github.com/menta2k/image-layout/pkg/pipeline"
)

// Warning reports an instruction that was ignored
type Warning struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s=%s: %s", w.Key, w.Value, w.Message)
}

// Instructions are the typed result of parsing a query
type Instructions struct {
	Width      constraint.Dimension `json:"width"`
	Height     constraint.Dimension `json:"height"`
	Mode       string               `json:"mode"`
	Scale      string               `json:"scale"`
	Gravity    geometry.Gravity     `json:"gravity"`
	Background geometry.CanvasColor `json:"bgcolor"`
	Crop       geometry.SourceCrop  `json:"crop"`
	AutoRotate bool                 `json:"autorotate"`

	// SourceRotate and SourceFlip apply before cropping, Rotate and Flip after fitting
	SourceRotate int             `json:"srotate"`
	SourceFlip   []pipeline.Axis `json:"sflip,omitempty"`
	Rotate       int             `json:"rotate"`
	Flip         []pipeline.Axis `json:"flip,omitempty"`

	Pad     *pipeline.Padding `json:"pad,omitempty"`
	Format  string            `json:"format,omitempty"`
	Quality int               `json:"quality,omitempty"`
}

// Mode and scale names
const (
	ModeMax        = "max"
	ModePad        = "pad"
	ModeCrop       = "crop"
	ModeStretch    = "stretch"
	ModeAspectCrop = "aspectcrop"

	ScaleDown   = "down"
	ScaleBoth   = "both"
	ScaleUp     = "up"
	ScaleCanvas = "canvas"
)

var anchors = map[string]geometry.Gravity{
	"topleft":      geometry.TopLeft,
	"topcenter":    geometry.Top,
	"topright":     geometry.TopRight,
	"middleleft":   geometry.Left,
	"middlecenter": geometry.Center,
	"middleright":  geometry.Right,
	"bottomleft":   geometry.BottomLeft,
	"bottomcenter": geometry.Bottom,
	"bottomright":  geometry.BottomRight,
}

// ParseQuery parses a raw query string such as "w=400&h=300&mode=crop"
func ParseQuery(raw string) (Instructions, []Warning) {
	values, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		ins, warnings := Parse(values)
		return ins, append(warnings, Warning{Key: "query", Value: raw, Message: err.Error()})
	}
	return Parse(values)
}

// Parse reads instructions from query values. Keys are case-insensitive;
// when a key repeats, its first value is used.
func Parse(values url.Values) (Instructions, []Warning) {
	p := parser{values: lowerKeys(values)}
	ins := Instructions{Scale: ScaleDown, AutoRotate: true}

	ins.Width = p.dimension("w", "width")
	ins.Height = p.dimension("h", "height")
	maxW := p.dimension("maxwidth")
	maxH := p.dimension("maxheight")

	mode, hasMode := p.get("mode")
	switch mode = strings.ToLower(mode); {
	case !hasMode:
	case mode == ModeMax, mode == ModePad, mode == ModeCrop, mode == ModeStretch, mode == ModeAspectCrop:
		ins.Mode = mode
	default:
		p.warn("mode", mode, "expected max, pad, crop, stretch or aspectcrop")
	}

	if ins.Mode == "" {
		if !ins.Width.IsSet() && !ins.Height.IsSet() && (maxW.IsSet() || maxH.IsSet()) {
			ins.Mode = ModeMax
		} else {
			ins.Mode = ModePad
		}
	}
	ins.Width = capDimension(ins.Width, maxW)
	ins.Height = capDimension(ins.Height, maxH)

	if scale, ok := p.get("scale"); ok {
		switch scale = strings.ToLower(scale); scale {
		case ScaleDown, ScaleBoth, ScaleUp, ScaleCanvas:
			ins.Scale = scale
		case "upscalecanvas":
			ins.Scale = ScaleCanvas
		case "downscaleonly":
			ins.Scale = ScaleDown
		case "upscaleonly":
			ins.Scale = ScaleUp
		default:
			p.warn("scale", scale, "expected down, both, up or canvas")
		}
	}

	if anchor, ok := p.get("anchor"); ok {
		if g, found := anchors[strings.ToLower(anchor)]; found {
			ins.Gravity = g
		} else {
			p.warn("anchor", anchor, "unknown anchor")
		}
	}
	if raw, ok := p.get("c.gravity"); ok {
		if nums, err := parseFloats(raw, 2); err != nil || nums[0] < 0 || nums[0] > 100 || nums[1] < 0 || nums[1] > 100 {
			p.warn("c.gravity", raw, "expected two percentages between 0 and 100")
		} else {
			ins.Gravity = geometry.GravityPercent(nums[0]/100, nums[1]/100)
		}
	}

	if raw, ok := p.get("bgcolor"); ok {
		if c, err := colors.Parse(raw); err != nil {
			p.warn("bgcolor", raw, err.Error())
		} else {
			ins.Background = c
		}
	}

	ins.Crop = p.crop()

	if raw, ok := p.get("autorotate"); ok {
		if b, err := strconv.ParseBool(raw); err != nil {
			p.warn("autorotate", raw, "expected true or false")
		} else {
			ins.AutoRotate = b
		}
	}
	ins.SourceRotate = p.rotation("srotate")
	ins.Rotate = p.rotation("rotate")
	ins.SourceFlip = p.flip("sflip")
	ins.Flip = p.flip("flip")
	ins.Pad = p.pad()

	if raw, ok := p.get("format"); ok {
		switch f := strings.ToLower(raw); f {
		case "jpg", "jpeg":
			ins.Format = "jpg"
		case "png", "webp":
			ins.Format = f
		default:
			p.warn("format", raw, "expected jpg, png or webp")
		}
	}
	if raw, ok := p.get("quality"); ok {
		if q, err := strconv.Atoi(raw); err != nil || q < 1 || q > 100 {
			p.warn("quality", raw, "expected an integer between 1 and 100")
		} else {
			ins.Quality = q
		}
	}

	return ins, p.warnings
}

// HasConstraint reports whether any target dimension was given
func (ins Instructions) HasConstraint() bool {
	return ins.Width.IsSet() || ins.Height.IsSet()
}

// FitMode maps the mode and scale pair onto a constraint mode
func (ins Instructions) FitMode() constraint.Mode {
	upscale := ins.Scale == ScaleBoth || ins.Scale == ScaleUp
	switch ins.Mode {
	case ModeStretch:
		return constraint.Distort
	case ModeCrop:
		if upscale || ins.Scale == ScaleCanvas {
			return constraint.FitCrop
		}
		return constraint.WithinCrop
	case ModeAspectCrop:
		return constraint.AspectCrop
	case ModeMax:
		if upscale {
			return constraint.Fit
		}
		if ins.Scale == ScaleCanvas {
			return constraint.WithinPad
		}
		return constraint.Within
	default:
		if upscale || ins.Scale == ScaleCanvas {
			return constraint.FitPad
		}
		return constraint.WithinPad
	}
}

// Constraint builds the layout constraint, if the instructions ask for one
func (ins Instructions) Constraint() (constraint.Constraint, bool) {
	if !ins.HasConstraint() {
		return constraint.Constraint{}, false
	}
	return constraint.Constraint{
		Mode:        ins.FitMode(),
		Width:       ins.Width,
		Height:      ins.Height,
		Gravity:     ins.Gravity,
		CanvasColor: ins.Background,
	}, true
}

// Pipeline builds the command list. exif is the source's EXIF orientation
// tag, or 0 when unknown.
func (ins Instructions) Pipeline(exif uint8) *pipeline.Pipeline {
	p := pipeline.New()
	if ins.AutoRotate && exif != 0 {
		p.AutoOrient(exif)
	}
	if ins.SourceRotate != 0 {
		p.Rotate(ins.SourceRotate)
	}
	for _, axis := range ins.SourceFlip {
		p.Flip(axis)
	}
	if ins.Crop.IsSet() {
		p.Crop(ins.Crop)
	}
	if c, ok := ins.Constraint(); ok {
		p.Constrain(c)
	}
	if ins.Rotate != 0 {
		p.Rotate(ins.Rotate)
	}
	for _, axis := range ins.Flip {
		p.Flip(axis)
	}
	if ins.Pad != nil {
		pd := ins.Pad
		p.Pad(pd.Left, pd.Top, pd.Right, pd.Bottom, ins.Background)
	}
	return p
}

// Encode renders the instructions back into a canonical query string that
// parses to the same instructions. Percent crops are written with unit 1.
func (ins Instructions) Encode() string {
	v := url.Values{}
	if w, ok := ins.Width.Get(); ok {
		v.Set("w", strconv.FormatUint(uint64(w), 10))
	}
	if h, ok := ins.Height.Get(); ok {
		v.Set("h", strconv.FormatUint(uint64(h), 10))
	}
	v.Set("mode", ins.Mode)
	v.Set("scale", ins.Scale)
	if !ins.Gravity.IsCenter() {
		x, y := ins.Gravity.Fractions()
		v.Set("c.gravity", fmt.Sprintf("%g,%g", x*100, y*100))
	}
	if !ins.Background.IsTransparent() {
		v.Set("bgcolor", strings.TrimPrefix(ins.Background.String(), "#"))
	}
	switch ins.Crop.Kind() {
	case geometry.CropPixels:
		r := ins.Crop.Pixels()
		v.Set("crop", fmt.Sprintf("%d,%d,%d,%d", r.X, r.Y, r.Right(), r.Bottom()))
	case geometry.CropPercent:
		x, y, w, h := ins.Crop.Percent()
		v.Set("crop", formatFloats(x, y, x+w, y+h))
		v.Set("cropxunits", "1")
		v.Set("cropyunits", "1")
	}
	if !ins.AutoRotate {
		v.Set("autorotate", "false")
	}
	if ins.SourceRotate != 0 {
		v.Set("srotate", strconv.Itoa(ins.SourceRotate*90))
	}
	if len(ins.SourceFlip) > 0 {
		v.Set("sflip", encodeFlip(ins.SourceFlip))
	}
	if ins.Rotate != 0 {
		v.Set("rotate", strconv.Itoa(ins.Rotate*90))
	}
	if len(ins.Flip) > 0 {
		v.Set("flip", encodeFlip(ins.Flip))
	}
	if pd := ins.Pad; pd != nil {
		v.Set("pad", fmt.Sprintf("%d,%d,%d,%d", pd.Left, pd.Top, pd.Right, pd.Bottom))
	}
	if ins.Format != "" {
		v.Set("format", ins.Format)
	}
	if ins.Quality != 0 {
		v.Set("quality", strconv.Itoa(ins.Quality))
	}
	return v.Encode()
}

func encodeFlip(axes []pipeline.Axis) string {
	var h, v bool
	for _, a := range axes {
		if a == pipeline.Horizontal {
			h = !h
		} else {
			v = !v
		}
	}
	switch {
	case h && v:
		return "both"
	case h:
		return "h"
	case v:
		return "v"
	default:
		return "none"
	}
}

func formatFloats(fs ...float64) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

type parser struct {
	values   url.Values
	warnings []Warning
}

func lowerKeys(values url.Values) url.Values {
	out := make(url.Values, len(values))
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		lk := strings.ToLower(k)
		out[lk] = append(out[lk], values[k]...)
	}
	return out
}

func (p *parser) get(keys ...string) (string, bool) {
	for _, k := range keys {
		if vs, ok := p.values[k]; ok && len(vs) > 0 {
			return strings.TrimSpace(vs[0]), true
		}
	}
	return "", false
}

func (p *parser) warn(key, value, msg string) {
	p.warnings = append(p.warnings, Warning{Key: key, Value: value, Message: msg})
}

func (p *parser) dimension(keys ...string) constraint.Dimension {
	raw, ok := p.get(keys...)
	if !ok || raw == "" {
		return constraint.Dimension{}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 1 || f > 1<<31 {
		p.warn(keys[0], raw, "expected a positive pixel count")
		return constraint.Dimension{}
	}
	return constraint.Px(uint32(f))
}

func (p *parser) rotation(key string) int {
	raw, ok := p.get(key)
	if !ok {
		return 0
	}
	deg, err := strconv.Atoi(raw)
	if err != nil || deg%90 != 0 {
		p.warn(key, raw, "expected a multiple of 90")
		return 0
	}
	return ((deg/90)%4 + 4) % 4
}

func (p *parser) flip(key string) []pipeline.Axis {
	raw, ok := p.get(key)
	if !ok {
		return nil
	}
	switch strings.ToLower(raw) {
	case "", "none":
		return nil
	case "h", "x":
		return []pipeline.Axis{pipeline.Horizontal}
	case "v", "y":
		return []pipeline.Axis{pipeline.Vertical}
	case "both", "xy":
		return []pipeline.Axis{pipeline.Horizontal, pipeline.Vertical}
	default:
		p.warn(key, raw, "expected h, v, both or none")
		return nil
	}
}

// crop reads crop=x1,y1,x2,y2. With cropxunits/cropyunits the coordinates
// are fractions of that many units; otherwise they are pixels.
func (p *parser) crop() geometry.SourceCrop {
	raw, ok := p.get("crop")
	if !ok {
		return geometry.SourceCrop{}
	}
	nums, err := parseFloats(raw, 4)
	if err != nil {
		p.warn("crop", raw, "expected x1,y1,x2,y2")
		return geometry.SourceCrop{}
	}
	x1, y1, x2, y2 := nums[0], nums[1], nums[2], nums[3]
	xu := p.units("cropxunits")
	yu := p.units("cropyunits")

	if xu > 0 || yu > 0 {
		if xu == 0 || yu == 0 {
			p.warn("crop", raw, "cropxunits and cropyunits must be given together")
			return geometry.SourceCrop{}
		}
		if x2 <= x1 || y2 <= y1 {
			p.warn("crop", raw, "crop must have positive size")
			return geometry.SourceCrop{}
		}
		return geometry.PercentCrop(x1/xu, y1/yu, (x2-x1)/xu, (y2-y1)/yu)
	}

	if x1 < 0 || y1 < 0 || x2 <= 0 || y2 <= 0 {
		p.warn("crop", raw, "edge-relative crop coordinates need cropxunits and cropyunits")
		return geometry.SourceCrop{}
	}
	if x2 <= x1 || y2 <= y1 {
		p.warn("crop", raw, "crop must have positive size")
		return geometry.SourceCrop{}
	}
	return geometry.PixelCrop(geometry.NewRect(uint32(x1), uint32(y1), uint32(x2-x1), uint32(y2-y1)))
}

func (p *parser) units(key string) float64 {
	raw, ok := p.get(key)
	if !ok {
		return 0
	}
	u, err := strconv.ParseFloat(raw, 64)
	if err != nil || u < 0 {
		p.warn(key, raw, "expected a non-negative number")
		return 0
	}
	return u
}

// pad reads pad=all or pad=left,top,right,bottom
func (p *parser) pad() *pipeline.Padding {
	raw, ok := p.get("pad")
	if !ok {
		return nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 1 && len(parts) != 4 {
		p.warn("pad", raw, "expected one or four values")
		return nil
	}
	var v [4]uint32
	for i := range v {
		s := parts[0]
		if len(parts) == 4 {
			s = parts[i]
		}
		n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
		if err != nil {
			p.warn("pad", raw, "expected non-negative integers")
			return nil
		}
		v[i] = uint32(n)
	}
	return &pipeline.Padding{Left: v[0], Top: v[1], Right: v[2], Bottom: v[3]}
}

func parseFloats(raw string, n int) ([]float64, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d values, got %d", n, len(parts))
	}
	out := make([]float64, n)
	for i, s := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

func capDimension(d, limit constraint.Dimension) constraint.Dimension {
	lv, ok := limit.Get()
	if !ok {
		return d
	}
	if v, set := d.Get(); !set || v > lv {
		return limit
	}
	return d
}
