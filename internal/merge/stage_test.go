package merge

import (
	"context"
	"testing"

	"github.com/bindery/foredge/internal/faults"
	"github.com/bindery/foredge/internal/geom"
	"github.com/bindery/foredge/internal/pdf"
	"github.com/bindery/foredge/internal/store"
)

func TestMergeKeys(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	letter := geom.PageSize{Width: 612, Height: 792}

	if err := st.Put(ctx, "a.pdf", pdf.BlankDocument(letter, 2)); err != nil {
		t.Fatal(err)
	}
	if err := st.Put(ctx, "b.pdf", pdf.BlankDocument(letter, 3)); err != nil {
		t.Fatal(err)
	}

	s := NewStage(st, nil)
	res, err := s.MergeKeys(ctx, StageRequest{
		RunID:    "r1",
		Keys:     []string{"a.pdf", "b.pdf"},
		OutKey:   "out.pdf",
		Optimize: true,
	})
	if err != nil {
		t.Fatalf("MergeKeys error = %v", err)
	}
	if res.Pages != 5 {
		t.Errorf("pages = %d, want 5", res.Pages)
	}

	out, err := st.Get(ctx, "out.pdf")
	if err != nil {
		t.Fatalf("merged document missing: %v", err)
	}
	if n, err := pdf.PageCount(out); err != nil || n != 5 {
		t.Errorf("stored page count = %d (%v), want 5", n, err)
	}
}

func TestMergeKeysCorruptInput(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	if err := st.Put(ctx, "bad.pdf", []byte("not a pdf")); err != nil {
		t.Fatal(err)
	}

	s := NewStage(st, nil)
	_, err := s.MergeKeys(ctx, StageRequest{
		RunID:  "r1",
		Keys:   []string{"bad.pdf"},
		OutKey: "out.pdf",
	})
	if !faults.Is(err, faults.KindDecode) {
		t.Fatalf("error = %v, want decode fault for unreadable input", err)
	}
	if faults.IsRetryable(err) {
		t.Error("an unreadable document must not be retried")
	}
}

func TestMergeKeysMissingInput(t *testing.T) {
	s := NewStage(store.NewMemory(), nil)
	_, err := s.MergeKeys(context.Background(), StageRequest{
		RunID:  "r1",
		Keys:   []string{"missing.pdf"},
		OutKey: "out.pdf",
	})
	if !faults.Is(err, faults.KindTransient) {
		t.Fatalf("error = %v, want transient fault for missing input", err)
	}
}
