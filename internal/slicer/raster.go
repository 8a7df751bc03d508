package slicer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	_ "image/gif"
	_ "image/jpeg"

	xdraw "golang.org/x/image/draw"
)

// DecodeImage decodes PNG/JPEG/GIF edge artwork.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode edge image: %w", err)
	}
	return img, nil
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode slice: %w", err)
	}
	return buf.Bytes(), nil
}

// Solid returns a w×h raster filled with c.
func Solid(c color.NRGBA, w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// MirrorH flips img horizontally. Odd pages show the mirrored slice so the
// image reads continuously across a spread.
func MirrorH(src image.Image) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.Set(b.Dx()-1-x, y, src.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

// renderWindow draws the source region described by w into a dstW×dstH
// strip, honoring the out-of-extent policy. vertical selects whether the
// window's leaf axis is the source Y axis (top/bottom edges) instead of X
// (side edge).
func renderWindow(src image.Image, w window, vertical bool, dstW, dstH int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, dstW, dstH))

	// Window in source XY coordinates.
	x0, x1 := w.leaf0, w.leaf1
	y0, y1 := w.cross0, w.cross1
	if vertical {
		x0, x1 = w.cross0, w.cross1
		y0, y1 = w.leaf0, w.leaf1
	}

	b := src.Bounds()
	iw, ih := float64(b.Dx()), float64(b.Dy())

	switch w.policy {
	case clamp:
		x0, x1 = clampRange(x0, x1, iw)
		y0, y1 = clampRange(y0, y1, ih)
	case transparent:
		// Intersect the window with the image and shrink the
		// destination proportionally; the rest stays empty.
		var fx0, fx1, fy0, fy1 float64
		x0, x1, fx0, fx1 = intersectRange(x0, x1, iw)
		y0, y1, fy0, fy1 = intersectRange(y0, y1, ih)
		if x0 >= x1 || y0 >= y1 {
			return dst
		}
		sub := image.Rect(
			int(math.Round(float64(dstW)*fx0)), int(math.Round(float64(dstH)*fy0)),
			int(math.Round(float64(dstW)*fx1)), int(math.Round(float64(dstH)*fy1)),
		)
		xdraw.CatmullRom.Scale(dst, sub, src, roundRect(b, x0, y0, x1, y1), xdraw.Src, nil)
		return dst
	}

	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, roundRect(b, x0, y0, x1, y1), xdraw.Src, nil)
	return dst
}

// clampRange pulls [v0,v1) inside [0,ext), keeping at least one pixel so
// edge pixels repeat.
func clampRange(v0, v1, ext float64) (float64, float64) {
	if v0 < 0 {
		v0 = 0
	}
	if v1 > ext {
		v1 = ext
	}
	if v1-v0 < 1 {
		if v0 >= ext-1 {
			v0, v1 = ext-1, ext
		} else {
			v1 = v0 + 1
		}
	}
	return v0, v1
}

// intersectRange intersects [v0,v1) with [0,ext) and returns the clipped
// range plus the clipped fractions of the original span.
func intersectRange(v0, v1, ext float64) (c0, c1, f0, f1 float64) {
	span := v1 - v0
	c0, c1 = v0, v1
	if c0 < 0 {
		c0 = 0
	}
	if c1 > ext {
		c1 = ext
	}
	if span <= 0 || c0 >= c1 {
		return c0, c0, 0, 0
	}
	return c0, c1, (c0 - v0) / span, (c1 - v0) / span
}

func roundRect(b image.Rectangle, x0, y0, x1, y1 float64) image.Rectangle {
	r := image.Rect(
		b.Min.X+int(math.Floor(x0)),
		b.Min.Y+int(math.Floor(y0)),
		b.Min.X+int(math.Ceil(x1)),
		b.Min.Y+int(math.Ceil(y1)),
	)
	if r.Dx() < 1 {
		r.Max.X = r.Min.X + 1
	}
	if r.Dy() < 1 {
		r.Max.Y = r.Min.Y + 1
	}
	return r.Intersect(b)
}
