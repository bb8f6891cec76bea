package matching

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"homematch/internal/bootstrap/logging"
	"homematch/internal/errs"
)

type jobMatcher interface {
	MatchJob(ctx context.Context, jobID string) (Report, error)
}

// Dispatcher runs matching in the background. Callers never wait on it and
// never see its errors.
type Dispatcher struct {
	matcher jobMatcher
	budget  time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher bounds each background attempt by budget.
func NewDispatcher(matcher jobMatcher, budget time.Duration) *Dispatcher {
	if budget <= 0 {
		budget = 30 * time.Second
	}
	return &Dispatcher{matcher: matcher, budget: budget}
}

// Dispatch starts matching for jobID and returns immediately. The request
// context's cancellation does not reach the background attempt.
func (d *Dispatcher) Dispatch(ctx context.Context, jobID string) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "usecase.matching.dispatcher"), slog.String("job_id", jobID))

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		logging.Warn(logCtx, "dispatcher closed, matching dropped")
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	bg := context.WithoutCancel(logCtx)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logging.Error(bg, "matching panicked", slog.String("panic", fmt.Sprint(r)))
			}
		}()

		runCtx, cancel := context.WithTimeout(bg, d.budget)
		defer cancel()

		report, err := d.matcher.MatchJob(runCtx, jobID)
		if err != nil {
			logging.Warn(bg, "matching unavailable", slog.Any("err", errs.Loggable(err)))
			return
		}
		logging.Info(bg, "matching finished", slog.String("outcome", string(report.Outcome)), slog.Int("matches", len(report.Matches)))
	}()
}

// Wait blocks until every dispatched attempt has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close stops accepting work and waits for in-flight attempts or ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errs.Wrap(ctx.Err(), "wait for matching")
	}
}
