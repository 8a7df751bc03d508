// Package faults defines the pipeline error taxonomy and the shared retry
// policy used at every network-class boundary.
package faults

import (
	"context"
	"errors"
	"fmt"
)

// ErrResourceLimit marks an invocation that hit its time or memory
// budget. Retryable under the generic contract, but the chunk splitter
// treats it as a signal to fall to a smaller batch size instead.
var ErrResourceLimit = errors.New("resource limit exceeded")

// IsResourceLimit reports whether err is a resource-limit or timeout
// signal.
func IsResourceLimit(err error) bool {
	return errors.Is(err, ErrResourceLimit) || errors.Is(err, context.DeadlineExceeded)
}

// Kind classifies a pipeline fault. The kind decides whether an operation
// is retried, downgraded to a warning, or fatal.
type Kind string

const (
	// KindValidation marks malformed or incomplete input. Never retried.
	KindValidation Kind = "validation"

	// KindDecode marks an unreadable source image or document. Fatal.
	KindDecode Kind = "decode"

	// KindTransient marks a network/storage hiccup, cold start, timeout
	// or resource limit. Retried, promoted to fatal after exhaustion.
	KindTransient Kind = "transient_io"

	// KindPageContent marks a single page that failed to embed. Never
	// propagated as a run failure; downgraded to a warning.
	KindPageContent Kind = "page_content"

	// KindCapacity marks a job exceeding a hard ceiling, raised before
	// any processing work begins. Fatal.
	KindCapacity Kind = "capacity"
)

// Fault is a stage-qualified pipeline error.
type Fault struct {
	Kind  Kind
	Stage string
	Err   error
}

func (f *Fault) Error() string {
	if f.Stage != "" {
		return fmt.Sprintf("%s: %s: %v", f.Stage, f.Kind, f.Err)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// New wraps err as a fault of the given kind.
func New(kind Kind, stage string, err error) *Fault {
	return &Fault{Kind: kind, Stage: stage, Err: err}
}

// Validationf builds a validation fault from a format string.
func Validationf(stage, format string, args ...any) *Fault {
	return &Fault{Kind: KindValidation, Stage: stage, Err: fmt.Errorf(format, args...)}
}

// Decode wraps err as a decode fault.
func Decode(stage string, err error) *Fault {
	return &Fault{Kind: KindDecode, Stage: stage, Err: err}
}

// Transient wraps err as a retryable I/O fault.
func Transient(stage string, err error) *Fault {
	return &Fault{Kind: KindTransient, Stage: stage, Err: err}
}

// PageContent wraps err as an isolated page-level fault.
func PageContent(stage string, err error) *Fault {
	return &Fault{Kind: KindPageContent, Stage: stage, Err: err}
}

// Capacityf builds a capacity fault from a format string.
func Capacityf(stage, format string, args ...any) *Fault {
	return &Fault{Kind: KindCapacity, Stage: stage, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the fault kind of err, or "" if err carries none.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// Is reports whether err is a fault of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsRetryable reports whether err matches a retryable signature: an
// explicit transient fault or an exceeded deadline. Validation and decode
// faults are never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	switch KindOf(err) {
	case KindTransient:
		return true
	case "":
		// Unclassified errors at a network boundary default to
		// non-retryable; callers wrap transport errors explicitly.
		return false
	default:
		return false
	}
}
