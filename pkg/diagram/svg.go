// Package diagram renders a computed layout as an SVG for inspection.
// It only reads plans; nothing it produces feeds back into planning.
package diagram

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/menta2k/image-layout/pkg/geometry"
	"github.com/menta2k/image-layout/pkg/pipeline"
)

const (
	defaultPanel = 240.0
	panelGap     = 48.0
	margin       = 24.0
	titleHeight  = 28.0
	footerHeight = 72.0

	fontFamily = `ui-monospace, 'SF Mono', Menlo, Consolas, monospace`

	colorImage  = "#dfe7f1"
	colorStroke = "#44515f"
	colorCrop   = "#ffcc00"
	colorDecode = "#00aaff"
	colorPlaced = "#34c759"
)

type SVGOption func(*svgRenderer)

type svgRenderer struct {
	panel  float64
	plan   *pipeline.LayoutPlan
	title  string
	labels bool
}

// WithPanelSize sets the edge length of each panel in SVG units
func WithPanelSize(px float64) SVGOption {
	return func(r *svgRenderer) {
		if px > 0 {
			r.panel = px
		}
	}
}

// WithPlan adds the decoder crop, trim and residual steps of a finalized plan
func WithPlan(p pipeline.LayoutPlan) SVGOption { return func(r *svgRenderer) { r.plan = &p } }

// WithTitle sets a heading
func WithTitle(t string) SVGOption { return func(r *svgRenderer) { r.title = t } }

// WithoutLabels hides dimension captions
func WithoutLabels() SVGOption { return func(r *svgRenderer) { r.labels = false } }

// RenderSVG draws three panels: the source with its crop, the oriented and
// resized image, and the output canvas with the placed image.
func RenderSVG(ideal pipeline.IdealLayout, opts ...SVGOption) []byte {
	r := svgRenderer{panel: defaultPanel, labels: true}
	for _, opt := range opts {
		opt(&r)
	}

	width := 2*margin + 3*r.panel + 2*panelGap
	height := 2*margin + titleHeight + r.panel + footerHeight

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		width, height, width, height)
	fmt.Fprintf(&buf, `  <rect width="100%%" height="100%%" fill="#ffffff"/>`+"\n")
	if r.title != "" {
		fmt.Fprintf(&buf, `  <text x="%.1f" y="%.1f" font-family="%s" font-size="16" font-weight="bold" fill="#222">%s</text>`+"\n",
			margin, margin+16, fontFamily, escapeXML(r.title))
	}

	top := margin + titleHeight
	r.sourcePanel(&buf, margin, top, ideal)
	r.orientedPanel(&buf, margin+r.panel+panelGap, top, ideal)
	r.canvasPanel(&buf, margin+2*(r.panel+panelGap), top, ideal)
	r.arrows(&buf, top)
	r.footer(&buf, top+r.panel+20, ideal)

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

// frame fits a size x size area into the panel and returns its origin and scale
func (r *svgRenderer) frame(x, y float64, s geometry.Size) (float64, float64, float64) {
	if s.IsZero() {
		return x, y, 1
	}
	scale := min(r.panel/float64(s.Width), r.panel/float64(s.Height))
	ox := x + (r.panel-float64(s.Width)*scale)/2
	oy := y + (r.panel-float64(s.Height)*scale)/2
	return ox, oy, scale
}

func (r *svgRenderer) sourcePanel(buf *bytes.Buffer, x, y float64, ideal pipeline.IdealLayout) {
	ox, oy, scale := r.frame(x, y, ideal.Source)
	drawRect(buf, ox, oy, scale, geometry.FullRect(ideal.Source.Width, ideal.Source.Height), colorImage, colorStroke, "")
	if r.plan != nil && !r.plan.Offer.CropApplied.IsEmpty() {
		drawRect(buf, ox, oy, scale, r.plan.Offer.CropApplied, "none", colorDecode, "6 3")
	}
	if !ideal.SourceCrop.IsEmpty() {
		drawRect(buf, ox, oy, scale, ideal.SourceCrop, "none", colorCrop, "")
	}
	r.caption(buf, x, y, "source "+ideal.Source.String())
}

func (r *svgRenderer) orientedPanel(buf *bytes.Buffer, x, y float64, ideal pipeline.IdealLayout) {
	oriented := ideal.OrientedSize()
	ox, oy, scale := r.frame(x, y, oriented)
	drawRect(buf, ox, oy, scale, geometry.FullRect(oriented.Width, oriented.Height), colorImage, colorStroke, "")
	if ideal.Layout.HasCrop() {
		drawRect(buf, ox, oy, scale, ideal.Layout.SourceCrop, "none", colorCrop, "")
	}
	r.caption(buf, x, y, fmt.Sprintf("%s %s", ideal.Orientation, oriented))
}

func (r *svgRenderer) canvasPanel(buf *bytes.Buffer, x, y float64, ideal pipeline.IdealLayout) {
	l := ideal.Layout
	ox, oy, scale := r.frame(x, y, l.Canvas)
	fill := "#ffffff"
	if !l.CanvasColor.IsTransparent() {
		c := l.CanvasColor.NRGBA()
		fill = fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	drawRect(buf, ox, oy, scale, geometry.FullRect(l.Canvas.Width, l.Canvas.Height), fill, colorStroke, "4 4")
	placed := geometry.NewRect(l.Placement.X, l.Placement.Y, l.ResizeTo.Width, l.ResizeTo.Height)
	drawRect(buf, ox, oy, scale, placed, colorImage, colorPlaced, "")
	r.caption(buf, x, y, "canvas "+l.Canvas.String())
}

func (r *svgRenderer) caption(buf *bytes.Buffer, x, y float64, text string) {
	if !r.labels {
		return
	}
	fmt.Fprintf(buf, `  <text x="%.1f" y="%.1f" text-anchor="middle" font-family="%s" font-size="12" fill="#444">%s</text>`+"\n",
		x+r.panel/2, y+r.panel+14, fontFamily, escapeXML(text))
}

func (r *svgRenderer) arrows(buf *bytes.Buffer, top float64) {
	cy := top + r.panel/2
	for i := 0; i < 2; i++ {
		x0 := margin + float64(i+1)*r.panel + float64(i)*panelGap + 8
		x1 := x0 + panelGap - 16
		fmt.Fprintf(buf, `  <path d="M %.1f %.1f L %.1f %.1f M %.1f %.1f L %.1f %.1f L %.1f %.1f" fill="none" stroke="#888" stroke-width="2"/>`+"\n",
			x0, cy, x1, cy, x1-6, cy-5, x1, cy, x1-6, cy+5)
	}
}

func (r *svgRenderer) footer(buf *bytes.Buffer, y float64, ideal pipeline.IdealLayout) {
	if !r.labels {
		return
	}
	lines := []string{fmt.Sprintf("resize %s -> %s at %s", ideal.Layout.CropRect().Size(), ideal.Layout.ResizeTo, ideal.Layout.Placement)}
	if r.plan != nil {
		steps := r.plan.Steps()
		if len(steps) == 0 {
			steps = []string{"no work after decode"}
		}
		lines = append(lines, "executor: "+strings.Join(steps, ", "))
	}
	for i, line := range lines {
		fmt.Fprintf(buf, `  <text x="%.1f" y="%.1f" font-family="%s" font-size="12" fill="#222">%s</text>`+"\n",
			margin, y+float64(i+1)*16, fontFamily, escapeXML(line))
	}
}

func drawRect(buf *bytes.Buffer, ox, oy, scale float64, r geometry.Rect, fill, stroke, dash string) {
	extra := ""
	if dash != "" {
		extra = fmt.Sprintf(` stroke-dasharray="%s"`, dash)
	}
	fmt.Fprintf(buf, `  <rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s" stroke="%s" stroke-width="2"%s/>`+"\n",
		ox+float64(r.X)*scale, oy+float64(r.Y)*scale, float64(r.Width)*scale, float64(r.Height)*scale, fill, stroke, extra)
}

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")

func escapeXML(s string) string { return xmlEscaper.Replace(s) }
