// Package pipeline turns an ordered list of layout commands into an ideal
// layout and a decoder request, then reconciles what a decoder actually
// produced into a pixel-exact execution plan.
package pipeline

import (
	"fmt"

	"github.com/menta2k/image-layout/pkg/constraint"
	"github.com/menta2k/image-layout/pkg/geometry"
	"github.com/menta2k/image-layout/pkg/orientation"
)

// Command is one pipeline step. The set of commands is closed.
type Command interface {
	command()
	String() string
}

// Axis selects a mirror direction
type Axis uint8

const (
	// Horizontal mirrors left to right
	Horizontal Axis = iota
	// Vertical mirrors top to bottom
	Vertical
)

func (a Axis) String() string {
	if a == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// MarshalText encodes the axis by name
func (a Axis) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// AutoOrient corrects the image using its EXIF orientation tag.
// Values outside 1-8 are treated as no orientation.
type AutoOrient struct {
	Exif uint8
}

// Rotate turns the image clockwise by a number of quarter turns
type Rotate struct {
	QuarterTurns int
}

// Flip mirrors the image
type Flip struct {
	Axis Axis
}

// Crop selects a region of the oriented image
type Crop struct {
	Crop geometry.SourceCrop
}

// Constrain fits the oriented image to a constraint
type Constrain struct {
	Constraint constraint.Constraint
}

// Pad adds margins around the final image
type Pad struct {
	Left, Top, Right, Bottom uint32
	Color                    geometry.CanvasColor
}

func (AutoOrient) command() {}
func (Rotate) command()     {}
func (Flip) command()       {}
func (Crop) command()       {}
func (Constrain) command()  {}
func (Pad) command()        {}

func (c AutoOrient) String() string { return fmt.Sprintf("auto-orient(exif=%d)", c.Exif) }
func (c Rotate) String() string     { return fmt.Sprintf("rotate(%d)", c.QuarterTurns*90) }
func (c Flip) String() string       { return "flip(" + c.Axis.String() + ")" }
func (c Crop) String() string       { return "crop(" + c.Crop.String() + ")" }
func (c Constrain) String() string  { return "constrain(" + c.Constraint.String() + ")" }
func (c Pad) String() string {
	return fmt.Sprintf("pad(%d,%d,%d,%d %v)", c.Left, c.Top, c.Right, c.Bottom, c.Color)
}

// Orientation returns the group element the command applies
func (c AutoOrient) Orientation() orientation.Orientation {
	o, ok := orientation.FromExif(c.Exif)
	if !ok {
		return orientation.Identity
	}
	return o
}

// Orientation returns the group element the command applies
func (c Rotate) Orientation() orientation.Orientation {
	return orientation.FromQuarterTurns(c.QuarterTurns)
}

// Orientation returns the group element the command applies
func (c Flip) Orientation() orientation.Orientation {
	if c.Axis == Vertical {
		return orientation.FlipV
	}
	return orientation.FlipH
}

// Pipeline collects commands in order
type Pipeline struct {
	cmds []Command
}

// New creates an empty pipeline
func New(cmds ...Command) *Pipeline {
	return &Pipeline{cmds: append([]Command(nil), cmds...)}
}

// Add appends commands
func (p *Pipeline) Add(cmds ...Command) *Pipeline {
	p.cmds = append(p.cmds, cmds...)
	return p
}

// AutoOrient appends an EXIF orientation correction
func (p *Pipeline) AutoOrient(exif uint8) *Pipeline {
	return p.Add(AutoOrient{Exif: exif})
}

// Rotate appends a clockwise rotation by quarter turns
func (p *Pipeline) Rotate(quarterTurns int) *Pipeline {
	return p.Add(Rotate{QuarterTurns: quarterTurns})
}

// Flip appends a mirror
func (p *Pipeline) Flip(axis Axis) *Pipeline {
	return p.Add(Flip{Axis: axis})
}

// Crop appends a crop of the oriented image
func (p *Pipeline) Crop(c geometry.SourceCrop) *Pipeline {
	return p.Add(Crop{Crop: c})
}

// Constrain appends a fit constraint
func (p *Pipeline) Constrain(c constraint.Constraint) *Pipeline {
	return p.Add(Constrain{Constraint: c})
}

// Pad appends margins
func (p *Pipeline) Pad(left, top, right, bottom uint32, color geometry.CanvasColor) *Pipeline {
	return p.Add(Pad{Left: left, Top: top, Right: right, Bottom: bottom, Color: color})
}

// Commands returns a copy of the command list
func (p *Pipeline) Commands() []Command {
	return append([]Command(nil), p.cmds...)
}

// Len returns the number of commands
func (p *Pipeline) Len() int { return len(p.cmds) }

// Plan runs the first planning phase over the pipeline's commands
func (p *Pipeline) Plan(w, h uint32) (IdealLayout, DecoderRequest, error) {
	return Plan(p.cmds, w, h)
}
