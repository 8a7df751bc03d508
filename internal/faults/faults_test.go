package faults

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestKindOf(t *testing.T) {
	err := Transient("split", errors.New("connection reset"))
	if KindOf(err) != KindTransient {
		t.Errorf("KindOf = %s, want %s", KindOf(err), KindTransient)
	}

	wrapped := fmt.Errorf("invoking stage: %w", err)
	if KindOf(wrapped) != KindTransient {
		t.Error("kind must survive wrapping")
	}

	if KindOf(errors.New("plain")) != "" {
		t.Error("plain error must have no kind")
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient", Transient("merge", errors.New("timeout")), true},
		{"deadline", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), true},
		{"validation", Validationf("render", "missing side image"), false},
		{"decode", Decode("slices", errors.New("bad png")), false},
		{"capacity", Capacityf("split", "too many chunks"), false},
		{"unclassified", errors.New("mystery"), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := IsRetryable(c.err); got != c.want {
				t.Errorf("IsRetryable = %v, want %v", got, c.want)
			}
		})
	}
}

func TestPolicyDo(t *testing.T) {
	fast := Policy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := fast.Do(context.Background(), "op", func() error {
			calls++
			if calls < 3 {
				return Transient("op", errors.New("flaky"))
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Do error = %v", err)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
	})

	t.Run("does not retry validation faults", func(t *testing.T) {
		calls := 0
		err := fast.Do(context.Background(), "op", func() error {
			calls++
			return Validationf("op", "bad input")
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("exhausts attempts on persistent transient fault", func(t *testing.T) {
		calls := 0
		err := fast.Do(context.Background(), "op", func() error {
			calls++
			return Transient("op", errors.New("still down"))
		})
		if err == nil {
			t.Fatal("expected error after exhaustion")
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
		if !Is(err, KindTransient) {
			t.Errorf("exhausted error lost its kind: %v", err)
		}
	})
}
