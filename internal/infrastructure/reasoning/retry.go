package reasoning

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"homematch/internal/bootstrap/logging"
	"homematch/internal/ports"
)

// RetryingCompleter retries transient completer failures with exponential
// backoff. Context cancellation stops retrying immediately.
type RetryingCompleter struct {
	next     ports.Completer
	maxTries uint
	initial  time.Duration
}

var _ ports.Completer = (*RetryingCompleter)(nil)

// WithRetry wraps next so it is attempted up to 1+maxRetries times.
func WithRetry(next ports.Completer, maxRetries int) *RetryingCompleter {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RetryingCompleter{next: next, maxTries: uint(maxRetries) + 1, initial: 300 * time.Millisecond}
}

func (r *RetryingCompleter) Name() string { return r.next.Name() }

func (r *RetryingCompleter) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "reasoning.retry"), slog.String("completer", r.next.Name()))

	attempt := 0
	operation := func() (string, error) {
		attempt++
		out, err := r.next.Complete(ctx, req)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", backoff.Permanent(err)
		}
		logging.Warn(logCtx, "completion attempt failed", slog.Int("attempt", attempt), slog.String("err", err.Error()))
		return "", err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.initial

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(r.maxTries),
	)
}
