// Package colors parses user-facing color strings into canvas colors.
package colors

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"

	"github.com/menta2k/image-layout/pkg/geometry"
)

// ErrInvalidColor is returned for strings that are neither hex nor a known name
var ErrInvalidColor = errors.New("invalid color")

// Parse converts s into a canvas color. It accepts "transparent", CSS3
// color names and hex in RGB, RGBA, RRGGBB or RRGGBBAA form, with or
// without a leading '#'.
func Parse(s string) (geometry.CanvasColor, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return geometry.Transparent, fmt.Errorf("%w: empty string", ErrInvalidColor)
	}
	if v == "transparent" {
		return geometry.Transparent, nil
	}
	if c, ok := colornames.Map[v]; ok {
		return geometry.SRGB(c.R, c.G, c.B, c.A), nil
	}
	if c, ok := parseHex(strings.TrimPrefix(v, "#")); ok {
		return c, nil
	}
	return geometry.Transparent, fmt.Errorf("%w: %q", ErrInvalidColor, s)
}

// MustParse is Parse for trusted constants
func MustParse(s string) geometry.CanvasColor {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

func parseHex(h string) (geometry.CanvasColor, bool) {
	switch len(h) {
	case 3, 4:
		var ch [4]uint8
		ch[3] = 0xff
		for i := 0; i < len(h); i++ {
			n, err := strconv.ParseUint(h[i:i+1], 16, 8)
			if err != nil {
				return geometry.Transparent, false
			}
			ch[i] = uint8(n * 17)
		}
		return geometry.SRGB(ch[0], ch[1], ch[2], ch[3]), true
	case 6, 8:
		var ch [4]uint8
		ch[3] = 0xff
		for i := 0; i < len(h)/2; i++ {
			n, err := strconv.ParseUint(h[2*i:2*i+2], 16, 8)
			if err != nil {
				return geometry.Transparent, false
			}
			ch[i] = uint8(n)
		}
		return geometry.SRGB(ch[0], ch[1], ch[2], ch[3]), true
	default:
		return geometry.Transparent, false
	}
}
