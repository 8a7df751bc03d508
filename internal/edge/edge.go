// Package edge models the painted faces of a closed page stack: which
// edges are active, where their artwork comes from, and the per-leaf
// slices derived from it.
package edge

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Name identifies one painted face of the stack.
type Name string

const (
	Side   Name = "side"
	Top    Name = "top"
	Bottom Name = "bottom"
)

// Names lists all edges in a stable order.
var Names = []Name{Side, Top, Bottom}

// Valid reports whether n is a known edge name.
func (n Name) Valid() bool {
	return n == Side || n == Top || n == Bottom
}

// Mode selects which edges get artwork.
type Mode string

const (
	SideOnly Mode = "side-only"
	AllEdges Mode = "all-edges"
)

// Valid reports whether m is a known edge mode.
func (m Mode) Valid() bool {
	return m == SideOnly || m == AllEdges
}

// ScaleMode controls how the source image maps onto the page stack.
type ScaleMode string

const (
	ScaleFill        ScaleMode = "fill"
	ScaleFit         ScaleMode = "fit"
	ScaleStretch     ScaleMode = "stretch"
	ScaleNone        ScaleMode = "none"
	ScaleExtendSides ScaleMode = "extend-sides"
)

// Valid reports whether m is a known scale mode.
func (m ScaleMode) Valid() bool {
	switch m {
	case ScaleFill, ScaleFit, ScaleStretch, ScaleNone, ScaleExtendSides:
		return true
	}
	return false
}

// Entry is one edge's artwork: either raster image bytes or a flat color.
type Entry struct {
	Image []byte
	Color string // "#rrggbb", set when Image is nil
}

// IsColor reports whether the entry is a flat color.
func (e *Entry) IsColor() bool {
	return e != nil && len(e.Image) == 0 && e.Color != ""
}

// ImageSet holds the optional artwork per edge.
type ImageSet struct {
	Side   *Entry
	Top    *Entry
	Bottom *Entry
}

// Entry returns the artwork for the named edge, or nil.
func (s ImageSet) Entry(n Name) *Entry {
	switch n {
	case Side:
		return s.Side
	case Top:
		return s.Top
	case Bottom:
		return s.Bottom
	}
	return nil
}

// EffectiveMode resolves the requested edge mode against the available
// artwork. all-edges silently downgrades to side-only unless all three
// edges carry artwork; side-only without a side entry is invalid.
func EffectiveMode(s ImageSet, requested Mode) (Mode, error) {
	if !requested.Valid() {
		return "", fmt.Errorf("unknown edge mode %q", requested)
	}
	mode := requested
	if mode == AllEdges {
		if s.Top == nil || s.Bottom == nil || s.Side == nil {
			mode = SideOnly
		}
	}
	if s.Side == nil {
		return "", fmt.Errorf("edge mode %s requires a side image or color", mode)
	}
	return mode, nil
}

// Active returns the edges that receive artwork under mode.
func Active(mode Mode) []Name {
	if mode == AllEdges {
		return []Name{Side, Top, Bottom}
	}
	return []Name{Side}
}

// ParseColor parses a "#rrggbb" or "#rrggbbaa" hex color.
func ParseColor(s string) (color.NRGBA, error) {
	raw := strings.TrimPrefix(s, "#")
	if len(raw) != 6 && len(raw) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: want #rrggbb", s)
	}
	v, err := strconv.ParseUint(raw, 16, 64)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	c := color.NRGBA{A: 0xff}
	if len(raw) == 8 {
		c.A = uint8(v)
		v >>= 8
	}
	c.B = uint8(v)
	c.G = uint8(v >> 8)
	c.R = uint8(v >> 16)
	return c, nil
}
