// Package store abstracts the object storage substrate. All cross-stage
// state passes through a Store: stages share no in-memory state, and
// isolation across concurrent runs comes purely from key prefixes.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("artifact not found")

// Store reads and writes opaque artifacts by key. Keys use forward
// slashes regardless of platform.
type Store interface {
	// Put writes data under key, replacing any existing artifact.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the artifact stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Exists reports whether key holds an artifact.
	Exists(ctx context.Context, key string) (bool, error)

	// List returns all keys under prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// DeletePrefix removes every artifact under prefix. Best effort: the first
// error is returned but remaining keys are still attempted.
func DeletePrefix(ctx context.Context, s Store, prefix string) error {
	keys, err := s.List(ctx, prefix)
	if err != nil {
		return err
	}
	var firstErr error
	for _, k := range keys {
		if err := s.Delete(ctx, k); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
