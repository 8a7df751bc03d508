package invoke

import (
	"context"
	"testing"
	"time"

	"github.com/bindery/foredge/internal/faults"
	"github.com/bindery/foredge/internal/split"
	"github.com/bindery/foredge/internal/store"
)

func TestTimeoutSurfacesAsResourceLimit(t *testing.T) {
	st := store.NewMemory()
	l := NewLocal(st, nil, Timeouts{Split: time.Nanosecond})

	// The budget expires before the stage can touch the store, so the
	// deadline propagates out through the stage's error wrapping.
	time.Sleep(time.Millisecond)
	_, err := l.Split(context.Background(), split.StageRequest{RunID: "r1", Start: 0, End: 9})
	if err == nil {
		t.Fatal("expected a deadline error")
	}
	if !faults.IsResourceLimit(err) {
		t.Errorf("error = %v, want a resource-limit signal for the ladder", err)
	}
}

func TestDefaultTimeoutsFillZeroValues(t *testing.T) {
	l := NewLocal(store.NewMemory(), nil, Timeouts{})
	want := DefaultTimeouts()
	if l.timeouts != want {
		t.Errorf("timeouts = %+v, want defaults %+v", l.timeouts, want)
	}
}
