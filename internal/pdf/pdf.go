// Package pdf wraps the pdfcpu operations the pipeline needs: page
// counting, range extraction, box rewriting, image stamping, and merging.
// Stages exchange document bytes through the artifact store, so every
// helper here takes and returns byte slices, staging through temp files
// for pdfcpu's file-based API.
package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/bindery/foredge/internal/geom"
)

// relaxedConf returns a pdfcpu configuration tolerant of the slightly
// malformed files print shops hand in.
func relaxedConf() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// stage writes data into a temp file inside dir and returns its path.
func stage(dir, name string, data []byte) (string, error) {
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", name, err)
	}
	return p, nil
}

// PageCount returns the number of pages in the document.
func PageCount(data []byte) (int, error) {
	dir, err := os.MkdirTemp("", "foredge-pdf-*")
	if err != nil {
		return 0, err
	}
	defer os.RemoveAll(dir)

	in, err := stage(dir, "in.pdf", data)
	if err != nil {
		return 0, err
	}
	n, err := api.PageCountFile(in)
	if err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return n, nil
}

// FirstPageSize returns the media box extent of page 1 in points.
func FirstPageSize(data []byte) (geom.PageSize, error) {
	dir, err := os.MkdirTemp("", "foredge-pdf-*")
	if err != nil {
		return geom.PageSize{}, err
	}
	defer os.RemoveAll(dir)

	in, err := stage(dir, "in.pdf", data)
	if err != nil {
		return geom.PageSize{}, err
	}
	dims, err := api.PageDimsFile(in)
	if err != nil {
		return geom.PageSize{}, fmt.Errorf("failed to read page dimensions: %w", err)
	}
	if len(dims) == 0 {
		return geom.PageSize{}, fmt.Errorf("document has no pages")
	}
	return geom.PageSize{Width: dims[0].Width, Height: dims[0].Height}, nil
}

// ExtractRange returns pages [start,end] (0-based, inclusive) as a
// standalone document.
func ExtractRange(data []byte, start, end int) ([]byte, error) {
	if start < 0 || end < start {
		return nil, fmt.Errorf("invalid page range %d-%d", start, end)
	}
	dir, err := os.MkdirTemp("", "foredge-pdf-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	in, err := stage(dir, "in.pdf", data)
	if err != nil {
		return nil, err
	}
	out := filepath.Join(dir, "out.pdf")
	sel := []string{fmt.Sprintf("%d-%d", start+1, end+1)}
	if err := api.TrimFile(in, out, sel, relaxedConf()); err != nil {
		return nil, fmt.Errorf("failed to extract pages %d-%d: %w", start, end, err)
	}
	return os.ReadFile(out)
}

// ExtractPage returns a single page (0-based) as a standalone document.
func ExtractPage(data []byte, page int) ([]byte, error) {
	return ExtractRange(data, page, page)
}

// Validate runs a structural validation with the same relaxed mode the
// rest of the pipeline reads with, so a page that extracts and merges
// cleanly is not rejected here.
func Validate(data []byte) error {
	dir, err := os.MkdirTemp("", "foredge-pdf-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	in, err := stage(dir, "in.pdf", data)
	if err != nil {
		return err
	}
	if err := api.ValidateFile(in, relaxedConf()); err != nil {
		return fmt.Errorf("document failed validation: %w", err)
	}
	return nil
}

// Merge concatenates parts in order into one document.
func Merge(parts [][]byte) ([]byte, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("nothing to merge")
	}
	dir, err := os.MkdirTemp("", "foredge-pdf-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	inFiles := make([]string, len(parts))
	for i, p := range parts {
		f, err := stage(dir, fmt.Sprintf("part_%04d.pdf", i), p)
		if err != nil {
			return nil, err
		}
		inFiles[i] = f
	}
	out := filepath.Join(dir, "out.pdf")
	if err := api.MergeCreateFile(inFiles, out, false, relaxedConf()); err != nil {
		return nil, fmt.Errorf("failed to merge %d documents: %w", len(parts), err)
	}
	return os.ReadFile(out)
}

// Append merges parts onto acc in order and returns the grown document.
func Append(acc []byte, parts [][]byte) ([]byte, error) {
	if len(acc) == 0 {
		return Merge(parts)
	}
	if len(parts) == 0 {
		return acc, nil
	}
	dir, err := os.MkdirTemp("", "foredge-pdf-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	out, err := stage(dir, "acc.pdf", acc)
	if err != nil {
		return nil, err
	}
	inFiles := make([]string, len(parts))
	for i, p := range parts {
		f, err := stage(dir, fmt.Sprintf("part_%04d.pdf", i), p)
		if err != nil {
			return nil, err
		}
		inFiles[i] = f
	}
	if err := api.MergeAppendFile(inFiles, out, false, relaxedConf()); err != nil {
		return nil, fmt.Errorf("failed to append %d documents: %w", len(parts), err)
	}
	return os.ReadFile(out)
}

// Optimize rewrites the document, releasing intermediate structures the
// merge otherwise accumulates. Used as the serialize-and-reload step
// between merge batches.
func Optimize(data []byte) ([]byte, error) {
	dir, err := os.MkdirTemp("", "foredge-pdf-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	in, err := stage(dir, "in.pdf", data)
	if err != nil {
		return nil, err
	}
	out := filepath.Join(dir, "out.pdf")
	if err := api.OptimizeFile(in, out, relaxedConf()); err != nil {
		return nil, fmt.Errorf("failed to optimize document: %w", err)
	}
	return os.ReadFile(out)
}

// SetBoxes rewrites the media and crop boxes of the selected pages
// (1-based), growing or shrinking the page without touching content
// coordinates.
func SetBoxes(data []byte, pages []int, box geom.Box) ([]byte, error) {
	if len(pages) == 0 {
		return data, nil
	}
	dir, err := os.MkdirTemp("", "foredge-pdf-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	in, err := stage(dir, "in.pdf", data)
	if err != nil {
		return nil, err
	}
	out := filepath.Join(dir, "out.pdf")

	spec := fmt.Sprintf("media:[%.2f %.2f %.2f %.2f], crop:[%.2f %.2f %.2f %.2f]",
		box.X0, box.Y0, box.X1, box.Y1,
		box.X0, box.Y0, box.X1, box.Y1)
	pb, err := api.PageBoundaries(spec, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page boundaries: %w", err)
	}
	if err := api.AddBoxesFile(in, out, pageSelection(pages), pb, relaxedConf()); err != nil {
		return nil, fmt.Errorf("failed to rewrite page boxes: %w", err)
	}
	return os.ReadFile(out)
}

func pageSelection(pages []int) []string {
	sel := make([]string, len(pages))
	for i, p := range pages {
		sel[i] = strconv.Itoa(p)
	}
	return sel
}
