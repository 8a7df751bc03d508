package pdf

import (
	"image/color"
	"testing"

	"github.com/bindery/foredge/internal/geom"
	"github.com/bindery/foredge/internal/slicer"
)

var letter = geom.PageSize{Width: 612, Height: 792}

func TestBlankDocument(t *testing.T) {
	t.Run("single page", func(t *testing.T) {
		data := BlankPage(letter)
		n, err := PageCount(data)
		if err != nil {
			t.Fatalf("PageCount error = %v", err)
		}
		if n != 1 {
			t.Errorf("pages = %d, want 1", n)
		}
		size, err := FirstPageSize(data)
		if err != nil {
			t.Fatalf("FirstPageSize error = %v", err)
		}
		if size != letter {
			t.Errorf("size = %+v, want %+v", size, letter)
		}
	})

	t.Run("many pages", func(t *testing.T) {
		data := BlankDocument(letter, 37)
		n, err := PageCount(data)
		if err != nil {
			t.Fatalf("PageCount error = %v", err)
		}
		if n != 37 {
			t.Errorf("pages = %d, want 37", n)
		}
	})

	t.Run("validates", func(t *testing.T) {
		if err := Validate(BlankDocument(letter, 3)); err != nil {
			t.Errorf("Validate error = %v", err)
		}
	})
}

func TestExtractRange(t *testing.T) {
	data := BlankDocument(letter, 10)

	part, err := ExtractRange(data, 2, 6)
	if err != nil {
		t.Fatalf("ExtractRange error = %v", err)
	}
	n, err := PageCount(part)
	if err != nil {
		t.Fatalf("PageCount error = %v", err)
	}
	if n != 5 {
		t.Errorf("extracted pages = %d, want 5", n)
	}

	single, err := ExtractPage(data, 0)
	if err != nil {
		t.Fatalf("ExtractPage error = %v", err)
	}
	if n, _ := PageCount(single); n != 1 {
		t.Errorf("single extraction pages = %d, want 1", n)
	}

	if _, err := ExtractRange(data, 4, 2); err == nil {
		t.Error("inverted range should fail")
	}
}

func TestMergeAndAppend(t *testing.T) {
	a := BlankDocument(letter, 3)
	b := BlankDocument(letter, 4)
	c := BlankDocument(letter, 2)

	merged, err := Merge([][]byte{a, b})
	if err != nil {
		t.Fatalf("Merge error = %v", err)
	}
	if n, _ := PageCount(merged); n != 7 {
		t.Errorf("merged pages = %d, want 7", n)
	}

	grown, err := Append(merged, [][]byte{c})
	if err != nil {
		t.Fatalf("Append error = %v", err)
	}
	if n, _ := PageCount(grown); n != 9 {
		t.Errorf("appended pages = %d, want 9", n)
	}

	// Appending to an empty accumulator starts a new document.
	fresh, err := Append(nil, [][]byte{a, c})
	if err != nil {
		t.Fatalf("Append to empty error = %v", err)
	}
	if n, _ := PageCount(fresh); n != 5 {
		t.Errorf("fresh pages = %d, want 5", n)
	}
}

func TestOptimizePreservesPages(t *testing.T) {
	data := BlankDocument(letter, 12)
	out, err := Optimize(data)
	if err != nil {
		t.Fatalf("Optimize error = %v", err)
	}
	if n, _ := PageCount(out); n != 12 {
		t.Errorf("optimized pages = %d, want 12", n)
	}
}

func TestSetBoxes(t *testing.T) {
	data := BlankDocument(letter, 2)
	box := geom.ExpandedMediaBox(letter, geom.BleedAdd, true)

	out, err := SetBoxes(data, []int{1}, box)
	if err != nil {
		t.Fatalf("SetBoxes error = %v", err)
	}
	size, err := FirstPageSize(out)
	if err != nil {
		t.Fatalf("FirstPageSize error = %v", err)
	}
	want := geom.TargetSize(letter, geom.BleedAdd)
	if size.Width != want.Width || size.Height != want.Height {
		t.Errorf("page size = %+v, want %+v", size, want)
	}
}

func TestApplyStamps(t *testing.T) {
	data := BlankDocument(letter, 4)
	strip, err := slicer.EncodePNG(slicer.Solid(color.NRGBA{R: 128, G: 64, B: 32, A: 255}, 18, 792))
	if err != nil {
		t.Fatal(err)
	}

	out, err := ApplyStamps(data, []Stamp{
		{Page: 1, PNG: strip, Pos: AnchorBottomRight, Opacity: 1},
		{Page: 2, PNG: strip, Pos: AnchorBottomLeft, Opacity: 1},
	})
	if err != nil {
		t.Fatalf("ApplyStamps error = %v", err)
	}
	if n, _ := PageCount(out); n != 4 {
		t.Errorf("stamped pages = %d, want 4", n)
	}
	if err := Validate(out); err != nil {
		t.Errorf("stamped document invalid: %v", err)
	}

	// No stamps is a no-op.
	same, err := ApplyStamps(data, nil)
	if err != nil || len(same) != len(data) {
		t.Errorf("empty stamp set must return input unchanged")
	}
}
