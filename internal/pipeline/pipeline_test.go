package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bindery/foredge/internal/edge"
	"github.com/bindery/foredge/internal/faults"
	"github.com/bindery/foredge/internal/geom"
	"github.com/bindery/foredge/internal/invoke"
	"github.com/bindery/foredge/internal/pdf"
	"github.com/bindery/foredge/internal/split"
	"github.com/bindery/foredge/internal/store"
)

var letter = geom.PageSize{Width: 612, Height: 792}

// countingInvoker observes how often the splitter crosses the invocation
// boundary.
type countingInvoker struct {
	*invoke.Local
	splits atomic.Int32
}

func (c *countingInvoker) Split(ctx context.Context, req split.StageRequest) (*split.StageResult, error) {
	c.splits.Add(1)
	return c.Local.Split(ctx, req)
}

func fastRetry() faults.Policy {
	return faults.Policy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func newTestPipeline(st store.Store) (*Pipeline, *countingInvoker) {
	inv := &countingInvoker{Local: invoke.NewLocal(st, nil, invoke.Timeouts{})}
	p := New(Config{
		Store:       st,
		Invoker:     inv,
		Retry:       fastRetry(),
		SyncCleanup: true,
	})
	return p, inv
}

func sideColorRequest(source []byte) Request {
	return Request{
		Source:    source,
		DesignID:  "d1",
		Images:    edge.ImageSet{Side: &edge.Entry{Color: "#336699"}},
		Mode:      edge.SideOnly,
		Bleed:     geom.BleedAdd,
		PaperType: "standard",
	}
}

func TestRunEndToEnd(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	p, _ := newTestPipeline(st)

	var progress []int
	req := sideColorRequest(pdf.BlankDocument(letter, 30))
	req.OnProgress = func(pct int) { progress = append(progress, pct) }

	res, err := p.Run(ctx, req)
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}
	if res.Pages != 30 {
		t.Errorf("pages = %d, want 30", res.Pages)
	}
	if n, err := pdf.PageCount(res.Final); err != nil || n != 30 {
		t.Errorf("final page count = %d (%v), want 30", n, err)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %+v", res.Warnings)
	}
	if res.Slices.DesignID != "d1" || res.Slices.Variant != edge.VariantMasked {
		t.Errorf("slice handle = %+v", res.Slices)
	}

	// Progress is monotonically non-decreasing and ends at 100.
	for i := 1; i < len(progress); i++ {
		if progress[i] < progress[i-1] {
			t.Fatalf("progress went backwards: %v", progress)
		}
	}
	if len(progress) == 0 || progress[len(progress)-1] != 100 {
		t.Errorf("progress = %v, want final 100", progress)
	}

	// Run artifacts are cleaned up, design artifacts survive.
	if keys, _ := st.List(ctx, "runs/"); len(keys) != 0 {
		t.Errorf("run artifacts not cleaned up: %v", keys)
	}
	if keys, _ := st.List(ctx, store.DesignPrefix("d1")); len(keys) == 0 {
		t.Error("design artifacts must persist for reuse")
	}
}

func TestRunDirectPathSkipsSplit(t *testing.T) {
	st := store.NewMemory()
	p, inv := newTestPipeline(st)

	res, err := p.Run(context.Background(), sideColorRequest(pdf.BlankDocument(letter, 8)))
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}
	if inv.splits.Load() != 0 {
		t.Errorf("split invoked %d times for an 8-page document, want 0", inv.splits.Load())
	}
	if n, err := pdf.PageCount(res.Final); err != nil || n != 8 {
		t.Errorf("final page count = %d (%v), want 8", n, err)
	}
}

func TestRunReusesMaskedSlices(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	p, _ := newTestPipeline(st)

	first, err := p.Run(ctx, sideColorRequest(pdf.BlankDocument(letter, 12)))
	if err != nil {
		t.Fatalf("first run error = %v", err)
	}
	if first.Reused {
		t.Error("first run cannot reuse slices")
	}

	second, err := p.Run(ctx, sideColorRequest(pdf.BlankDocument(letter, 12)))
	if err != nil {
		t.Fatalf("second run error = %v", err)
	}
	if !second.Reused {
		t.Error("second run with the same design and geometry must reuse masked slices")
	}
}

func TestRunRegeneratesWhenGeometryChanges(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	p, _ := newTestPipeline(st)

	if _, err := p.Run(ctx, sideColorRequest(pdf.BlankDocument(letter, 12))); err != nil {
		t.Fatalf("first run error = %v", err)
	}
	// Same design, different page count: the slice cardinality no longer
	// matches, so the slices regenerate.
	res, err := p.Run(ctx, sideColorRequest(pdf.BlankDocument(letter, 18)))
	if err != nil {
		t.Fatalf("second run error = %v", err)
	}
	if res.Reused {
		t.Error("changed leaf count must invalidate the cached slices")
	}
}

func TestRunValidation(t *testing.T) {
	st := store.NewMemory()
	p, _ := newTestPipeline(st)
	ctx := context.Background()
	doc := pdf.BlankDocument(letter, 4)

	cases := []struct {
		name string
		req  Request
	}{
		{"empty source", Request{
			Images: edge.ImageSet{Side: &edge.Entry{Color: "#fff000"}},
			Mode:   edge.SideOnly, Bleed: geom.BleedAdd,
		}},
		{"missing side entry", Request{
			Source: doc,
			Mode:   edge.SideOnly, Bleed: geom.BleedAdd,
		}},
		{"bad bleed mode", Request{
			Source: doc,
			Images: edge.ImageSet{Side: &edge.Entry{Color: "#fff000"}},
			Mode:   edge.SideOnly, Bleed: "halfway",
		}},
		{"bad scale mode", Request{
			Source: doc,
			Images: edge.ImageSet{Side: &edge.Entry{Color: "#fff000"}},
			Mode:   edge.SideOnly, Bleed: geom.BleedAdd, ScaleMode: "zoom",
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := p.Run(ctx, c.req)
			if !faults.Is(err, faults.KindValidation) {
				t.Errorf("error = %v, want validation fault", err)
			}
		})
	}
}

func TestAnalyze(t *testing.T) {
	a, err := Analyze(pdf.BlankDocument(letter, 11))
	if err != nil {
		t.Fatalf("Analyze error = %v", err)
	}
	if a.Pages != 11 || a.Leaves != 6 {
		t.Errorf("pages/leaves = %d/%d, want 11/6", a.Pages, a.Leaves)
	}
	if a.WidthInches != 8.5 || a.HeightInches != 11 {
		t.Errorf("size = %gx%g in, want 8.5x11", a.WidthInches, a.HeightInches)
	}
}

func TestAnalyzeRejectsGarbage(t *testing.T) {
	if _, err := Analyze([]byte("not a pdf")); !faults.Is(err, faults.KindDecode) {
		t.Errorf("error = %v, want decode fault", err)
	}
}
