package slicer

import "github.com/bindery/foredge/internal/edge"

// outOfExtent is the policy for stack positions the source image does not
// reach under the current scale mode.
type outOfExtent int

const (
	// insideAlways marks modes whose mapping covers the whole stack.
	insideAlways outOfExtent = iota
	// transparent leaves unreached positions empty.
	transparent
	// clamp repeats the nearest edge pixel.
	clamp
)

// window is the source-image region one leaf samples, in source pixels.
// Coordinates may lie outside the image; the policy says what to do there.
type window struct {
	leaf0, leaf1   float64 // along the leaf (stack depth) axis
	cross0, cross1 float64 // across the page
	policy         outOfExtent
}

// computeWindow maps leaf L of numLeaves onto the source image.
//
// The stack extent is the physical face being painted: stackLeaf points of
// depth by stackCross points across. The source spans imgLeaf×imgCross
// pixels with the leaf axis first. Each scale mode defines a placement of
// the image over the stack; the window is the preimage of leaf L's band.
func computeWindow(mode edge.ScaleMode, leaf, numLeaves int, imgLeaf, imgCross, stackLeaf, stackCross float64) window {
	band0 := stackLeaf * float64(leaf) / float64(numLeaves)
	band1 := stackLeaf * float64(leaf+1) / float64(numLeaves)

	var sLeaf, sCross float64 // stack points per source pixel
	var offLeaf, offCross float64
	policy := insideAlways

	switch mode {
	case edge.ScaleStretch:
		sLeaf = stackLeaf / imgLeaf
		sCross = stackCross / imgCross
	case edge.ScaleFill:
		s := max(stackLeaf/imgLeaf, stackCross/imgCross)
		sLeaf, sCross = s, s
		offLeaf = (stackLeaf - imgLeaf*s) / 2
		offCross = (stackCross - imgCross*s) / 2
	case edge.ScaleFit, edge.ScaleExtendSides:
		s := min(stackLeaf/imgLeaf, stackCross/imgCross)
		sLeaf, sCross = s, s
		offLeaf = (stackLeaf - imgLeaf*s) / 2
		offCross = (stackCross - imgCross*s) / 2
		policy = transparent
		if mode == edge.ScaleExtendSides {
			policy = clamp
		}
	case edge.ScaleNone:
		// Native resolution: one source pixel per point.
		sLeaf, sCross = 1, 1
		offLeaf = (stackLeaf - imgLeaf) / 2
		offCross = (stackCross - imgCross) / 2
		policy = transparent
	default:
		// Unknown modes behave like stretch; validated upstream.
		sLeaf = stackLeaf / imgLeaf
		sCross = stackCross / imgCross
	}

	return window{
		leaf0:  (band0 - offLeaf) / sLeaf,
		leaf1:  (band1 - offLeaf) / sLeaf,
		cross0: (0 - offCross) / sCross,
		cross1: (stackCross - offCross) / sCross,
		policy: policy,
	}
}
