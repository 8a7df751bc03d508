// Package geom holds the print geometry shared by every pipeline stage:
// leaf arithmetic, bleed expansion, and edge strip placement.
package geom

import "math"

const (
	// PointsPerInch is the PDF user-space unit density.
	PointsPerInch = 72.0

	// BleedInches is the printed margin beyond the trim line.
	BleedInches = 0.125

	// SafetyBufferInches extends the edge strip past the bleed so the
	// image survives binding tolerance.
	SafetyBufferInches = 0.125

	// BleedPoints is BleedInches in points.
	BleedPoints = BleedInches * PointsPerInch

	// StripThicknessPoints is the width of the painted edge strip:
	// bleed plus safety buffer.
	StripThicknessPoints = (BleedInches + SafetyBufferInches) * PointsPerInch
)

// PageThicknessInches maps paper type to single-leaf thickness.
var PageThicknessInches = map[string]float64{
	"bw":       0.0032,
	"standard": 0.0032,
	"premium":  0.0037,
}

// DefaultPaperType is used when the request does not name a paper type.
const DefaultPaperType = "standard"

// LeafThickness returns the thickness in inches of one leaf for the given
// paper type, falling back to the standard stock.
func LeafThickness(paperType string) float64 {
	if t, ok := PageThicknessInches[paperType]; ok {
		return t
	}
	return PageThicknessInches[DefaultPaperType]
}

// Leaves returns the number of physical sheets for numPages printed pages.
// The last leaf may carry a single page.
func Leaves(numPages int) int {
	if numPages <= 0 {
		return 0
	}
	return (numPages + 1) / 2
}

// LeafOf returns the leaf index for a 0-based global page index.
func LeafOf(page int) int {
	return page / 2
}

// OuterRight reports whether the outer edge of a 0-based page index is the
// right side of the sheet. Even pages face right; odd pages mirror.
func OuterRight(page int) bool {
	return page%2 == 0
}

// LeafPosition returns the normalized position of leaf in [0,1] used to
// address the source edge image. A single-leaf document maps to 0.
func LeafPosition(leaf, numLeaves int) float64 {
	if numLeaves <= 1 {
		return 0
	}
	return float64(leaf) / float64(numLeaves-1)
}

// StackThicknessPoints returns the closed-stack thickness in points.
func StackThicknessPoints(numLeaves int, paperType string) float64 {
	return float64(numLeaves) * LeafThickness(paperType) * PointsPerInch
}

// BleedMode selects whether bleed is added to the page or assumed present.
type BleedMode string

const (
	BleedAdd      BleedMode = "add"
	BleedExisting BleedMode = "existing"
)

// Valid reports whether m is a known bleed mode.
func (m BleedMode) Valid() bool {
	return m == BleedAdd || m == BleedExisting
}

// PageSize is a page extent in points.
type PageSize struct {
	Width  float64
	Height float64
}

// TargetSize returns the output page size for an original page. Under
// BleedAdd the outer edge gains one bleed unit and the height gains two;
// under BleedExisting the page is left untouched.
func TargetSize(orig PageSize, mode BleedMode) PageSize {
	if mode != BleedAdd {
		return orig
	}
	return PageSize{
		Width:  orig.Width + BleedPoints,
		Height: orig.Height + 2*BleedPoints,
	}
}

// Box is a page boundary rectangle in points. Coordinates may be negative:
// the original content keeps its coordinate system and the box grows
// around it.
type Box struct {
	X0, Y0, X1, Y1 float64
}

// ExpandedMediaBox returns the media box that realizes TargetSize while
// keeping the original content flush against the spine. The original page
// is assumed to occupy [0,0,w,h]. outerRight places the added bleed on the
// right edge, otherwise on the left.
func ExpandedMediaBox(orig PageSize, mode BleedMode, outerRight bool) Box {
	if mode != BleedAdd {
		return Box{0, 0, orig.Width, orig.Height}
	}
	if outerRight {
		return Box{0, -BleedPoints, orig.Width + BleedPoints, orig.Height + BleedPoints}
	}
	return Box{-BleedPoints, -BleedPoints, orig.Width, orig.Height + BleedPoints}
}

// StripPixelSize returns the integer pixel extent of an edge slice at
// 72dpi, matching the point extent of the strip on the page. Side slices
// are strip×height, top and bottom slices are width×strip.
func StripPixelSize(target PageSize, side bool) (w, h int) {
	if side {
		return pxCeil(StripThicknessPoints), pxCeil(target.Height)
	}
	return pxCeil(target.Width), pxCeil(StripThicknessPoints)
}

func pxCeil(pts float64) int {
	n := int(math.Ceil(pts))
	if n < 1 {
		return 1
	}
	return n
}
