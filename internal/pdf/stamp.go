package pdf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Anchor positions a stamp against a page edge.
type Anchor string

const (
	AnchorBottomLeft  Anchor = "bl"
	AnchorBottomRight Anchor = "br"
	AnchorTopLeft     Anchor = "tl"
)

// Stamp is one image placed on one page.
type Stamp struct {
	// Page is the 1-based page number within the document.
	Page int

	// PNG is the raster to place, pre-scaled so one pixel is one point.
	PNG []byte

	// Pos anchors the image; the raster's own extent does the rest.
	Pos Anchor

	// Opacity in (0,1]; 1 is opaque.
	Opacity float64
}

// ApplyStamps places the given stamps on the document in one pass. Each
// image is rendered at native size (1px = 1pt) with no rotation, so a
// strip raster generated for the page extent lands exactly on the edge.
func ApplyStamps(data []byte, stamps []Stamp) ([]byte, error) {
	if len(stamps) == 0 {
		return data, nil
	}
	dir, err := os.MkdirTemp("", "foredge-stamp-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	in, err := stage(dir, "in.pdf", data)
	if err != nil {
		return nil, err
	}
	out := filepath.Join(dir, "out.pdf")

	m := make(map[int]*model.Watermark, len(stamps))
	for i, s := range stamps {
		imgPath, err := stage(dir, fmt.Sprintf("stamp_%04d.png", i), s.PNG)
		if err != nil {
			return nil, err
		}
		wm, err := imageWatermark(imgPath, s.Pos, s.Opacity)
		if err != nil {
			return nil, err
		}
		m[s.Page] = wm
	}

	if err := api.AddWatermarksMapFile(in, out, m, relaxedConf()); err != nil {
		return nil, fmt.Errorf("failed to stamp %d pages: %w", len(stamps), err)
	}
	return os.ReadFile(out)
}

// ApplyStamp places a single stamp on one page.
func ApplyStamp(data []byte, s Stamp) ([]byte, error) {
	return ApplyStamps(data, []Stamp{s})
}

func imageWatermark(imgPath string, pos Anchor, opacity float64) (*model.Watermark, error) {
	if opacity <= 0 || opacity > 1 {
		opacity = 1
	}
	desc := fmt.Sprintf("pos:%s, off:0 0, scale:1 abs, rot:0, op:%.2f", pos, opacity)
	wm, err := pdfcpu.ParseImageWatermarkDetails(imgPath, desc, true, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("failed to build image stamp: %w", err)
	}
	return wm, nil
}
