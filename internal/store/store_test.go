package store

import (
	"context"
	"errors"
	"testing"
)

// both implementations must satisfy the same contract.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	fsStore, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS error = %v", err)
	}
	return map[string]Store{
		"memory": NewMemory(),
		"fs":     fsStore,
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("get missing", func(t *testing.T) {
				_, err := s.Get(ctx, "runs/x/missing.pdf")
				if !errors.Is(err, ErrNotFound) {
					t.Errorf("Get missing = %v, want ErrNotFound", err)
				}
			})

			t.Run("put get roundtrip", func(t *testing.T) {
				key := "runs/r1/chunks/chunk_0000.pdf"
				if err := s.Put(ctx, key, []byte("payload")); err != nil {
					t.Fatalf("Put error = %v", err)
				}
				got, err := s.Get(ctx, key)
				if err != nil {
					t.Fatalf("Get error = %v", err)
				}
				if string(got) != "payload" {
					t.Errorf("Get = %q, want payload", got)
				}
				ok, err := s.Exists(ctx, key)
				if err != nil || !ok {
					t.Errorf("Exists = %v, %v, want true", ok, err)
				}
			})

			t.Run("list by prefix", func(t *testing.T) {
				for _, k := range []string{
					"runs/r2/chunks/chunk_0001.pdf",
					"runs/r2/chunks/chunk_0000.pdf",
					"designs/d1/slices/side/raw.json",
				} {
					if err := s.Put(ctx, k, []byte("x")); err != nil {
						t.Fatalf("Put error = %v", err)
					}
				}
				keys, err := s.List(ctx, "runs/r2/")
				if err != nil {
					t.Fatalf("List error = %v", err)
				}
				if len(keys) != 2 {
					t.Fatalf("List = %v, want 2 keys", keys)
				}
				if keys[0] != "runs/r2/chunks/chunk_0000.pdf" {
					t.Errorf("keys not sorted: %v", keys)
				}
			})

			t.Run("delete", func(t *testing.T) {
				key := "runs/r3/final.pdf"
				if err := s.Put(ctx, key, []byte("x")); err != nil {
					t.Fatalf("Put error = %v", err)
				}
				if err := s.Delete(ctx, key); err != nil {
					t.Fatalf("Delete error = %v", err)
				}
				ok, _ := s.Exists(ctx, key)
				if ok {
					t.Error("artifact still exists after delete")
				}
				// Deleting again is not an error.
				if err := s.Delete(ctx, key); err != nil {
					t.Errorf("second Delete error = %v", err)
				}
			})
		})
	}
}

func TestDeletePrefix(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	for _, k := range []string{
		"runs/r1/source.pdf",
		"runs/r1/chunks/chunk_0000.pdf",
		"runs/r1/final.pdf",
		"designs/d1/slices/side/masked.json",
	} {
		if err := s.Put(ctx, k, []byte("x")); err != nil {
			t.Fatalf("Put error = %v", err)
		}
	}

	if err := DeletePrefix(ctx, s, RunPrefix("r1")); err != nil {
		t.Fatalf("DeletePrefix error = %v", err)
	}

	keys, _ := s.List(ctx, "")
	if len(keys) != 1 || keys[0] != "designs/d1/slices/side/masked.json" {
		t.Errorf("surviving keys = %v, want only the design artifact", keys)
	}
}
