package edge

import (
	"context"
	"errors"
	"image/color"
	"testing"

	"github.com/bindery/foredge/internal/store"
)

func entry() *Entry { return &Entry{Image: []byte("png")} }

func TestEffectiveMode(t *testing.T) {
	t.Run("all edges with full set", func(t *testing.T) {
		set := ImageSet{Side: entry(), Top: entry(), Bottom: entry()}
		mode, err := EffectiveMode(set, AllEdges)
		if err != nil {
			t.Fatalf("EffectiveMode error = %v", err)
		}
		if mode != AllEdges {
			t.Errorf("mode = %s, want all-edges", mode)
		}
	})

	t.Run("all edges without bottom downgrades to side-only", func(t *testing.T) {
		set := ImageSet{Side: entry(), Top: entry()}
		mode, err := EffectiveMode(set, AllEdges)
		if err != nil {
			t.Fatalf("EffectiveMode error = %v", err)
		}
		if mode != SideOnly {
			t.Errorf("mode = %s, want side-only downgrade", mode)
		}
	})

	t.Run("side-only without side image fails", func(t *testing.T) {
		_, err := EffectiveMode(ImageSet{Top: entry()}, SideOnly)
		if err == nil {
			t.Fatal("expected error for missing side entry")
		}
	})

	t.Run("unknown mode fails", func(t *testing.T) {
		_, err := EffectiveMode(ImageSet{Side: entry()}, Mode("diagonal"))
		if err == nil {
			t.Fatal("expected error for unknown mode")
		}
	})
}

func TestActive(t *testing.T) {
	if got := Active(SideOnly); len(got) != 1 || got[0] != Side {
		t.Errorf("Active(side-only) = %v", got)
	}
	if got := Active(AllEdges); len(got) != 3 {
		t.Errorf("Active(all-edges) = %v", got)
	}
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#1a2b3c")
	if err != nil {
		t.Fatalf("ParseColor error = %v", err)
	}
	want := color.NRGBA{R: 0x1a, G: 0x2b, B: 0x3c, A: 0xff}
	if c != want {
		t.Errorf("color = %+v, want %+v", c, want)
	}

	c, err = ParseColor("80ff0040")
	if err != nil {
		t.Fatalf("ParseColor error = %v", err)
	}
	want = color.NRGBA{R: 0x80, G: 0xff, B: 0x00, A: 0x40}
	if c != want {
		t.Errorf("color = %+v, want %+v", c, want)
	}

	for _, bad := range []string{"", "#ff", "#gggggg", "#12345"} {
		if _, err := ParseColor(bad); err == nil {
			t.Errorf("ParseColor(%q) should fail", bad)
		}
	}
}

func TestSetRoundtrip(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()

	set := &Set{
		DesignID:  "d1",
		Edge:      Side,
		Variant:   VariantRaw,
		NumLeaves: 2,
		ScaleMode: ScaleFill,
		WidthPx:   18,
		HeightPx:  594,
		Slices: []Slice{
			{Kind: SliceMaterialized, Key: "designs/d1/slices/side/raw/0000.png", Leaf: 0, TotalLeaves: 2},
			{Kind: SliceMaterialized, Key: "designs/d1/slices/side/raw/0001.png", Leaf: 1, TotalLeaves: 2},
		},
	}
	if err := set.Save(ctx, st); err != nil {
		t.Fatalf("Save error = %v", err)
	}

	got, err := LoadSet(ctx, st, "d1", Side, VariantRaw)
	if err != nil {
		t.Fatalf("LoadSet error = %v", err)
	}
	if got.NumLeaves != 2 || len(got.Slices) != 2 || got.Slices[1].Key != set.Slices[1].Key {
		t.Errorf("roundtrip mismatch: %+v", got)
	}

	if _, err := LoadSet(ctx, st, "d1", Top, VariantRaw); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing manifest error = %v, want ErrNotFound", err)
	}
}

func TestSetValidate(t *testing.T) {
	set := &Set{DesignID: "d", Edge: Side, Variant: VariantRaw, NumLeaves: 3,
		Slices: []Slice{{Kind: SliceDerivedColor, Color: "#ffffff"}}}
	if err := set.Validate(); err == nil {
		t.Error("cardinality mismatch must fail validation")
	}
}
