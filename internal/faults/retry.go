package faults

import (
	"context"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
)

// Policy is the single retry contract applied at every network boundary:
// bounded attempts with exponential backoff, retrying only retryable
// signatures.
type Policy struct {
	Attempts  uint
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Logger    *slog.Logger
}

// DefaultPolicy returns the pipeline-wide retry policy.
func DefaultPolicy(logger *slog.Logger) Policy {
	return Policy{
		Attempts:  3,
		BaseDelay: time.Second,
		MaxDelay:  5 * time.Second,
		Logger:    logger,
	}
}

// Do runs fn under the policy. Non-retryable errors abort immediately;
// retryable errors are reattempted with exponential backoff until the
// attempt budget is exhausted, then returned as-is.
func (p Policy) Do(ctx context.Context, op string, fn func() error) error {
	return p.DoIf(ctx, op, fn, IsRetryable)
}

// DoIf is Do with a caller-supplied retryable predicate. The splitter
// uses it to keep resource-limit signals out of the retry loop so its
// batch-size ladder sees them instead.
func (p Policy) DoIf(ctx context.Context, op string, fn func() error, retryable func(error) bool) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attempts := p.Attempts
	if attempts == 0 {
		attempts = 3
	}
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}

	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(base),
		retry.MaxDelay(maxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(retryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("retrying operation",
				"op", op,
				"attempt", n+1,
				"error", err,
			)
		}),
	)
}
