package pdfrelay

import (
	"context"
	"time"

	"github.com/ambiyansyah-risyal/pdfrelay/internal/backoff"
)

// DefaultRetryClassifier is the canonical failure classification: retryable
// iff the attempt was a timeout/cancellation, an opaque network failure
// (status 0), or a server failure (status >= 500). Client failures (4xx)
// and decode failures propagate immediately.
func DefaultRetryClassifier(env *Envelope, err error) bool {
	if err != nil {
		return IsTransient(err)
	}
	if env == nil {
		return false
	}
	return env.Status >= 500 || env.Status == 0
}

// attemptFunc is one full request attempt producing an envelope or an
// error.
type attemptFunc func(ctx context.Context) (*Envelope, error)

// retryController wraps an attempt with failure classification and
// exponential backoff. The delay strictly doubles each retry starting at
// baseDelay; total attempts = maxRetries + 1. When retries are exhausted
// the last attempt's result is surfaced as-is.
type retryController struct {
	strategy backoff.Strategy
	classify RetryClassifier
}

func newRetryController(classify RetryClassifier) *retryController {
	if classify == nil {
		classify = DefaultRetryClassifier
	}
	return &retryController{
		strategy: backoff.Exponential{},
		classify: classify,
	}
}

// run executes the attempt with up to maxRetries retries. The backoff delay
// between attempt k and k+1 (1-based retry index k) is baseDelay * 2^(k-1).
// onRetry, if non-nil, observes each scheduled retry. Suspension is
// cancellation-aware: a cancelled parent context cuts the wait short and
// surfaces the last failure.
func (r *retryController) run(ctx context.Context, attempt attemptFunc, maxRetries int, baseDelay time.Duration, onRetry func(retry int, delay time.Duration)) (*Envelope, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}

	var env *Envelope
	var err error
	for i := 0; ; i++ {
		env, err = attempt(ctx)
		if !r.classify(env, err) {
			return env, err
		}
		if i >= maxRetries {
			// Exhausted: the failure from the last attempt stands.
			return env, err
		}

		delay := r.strategy.Delay(i, baseDelay)
		if onRetry != nil {
			onRetry(i+1, delay)
		}
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return env, err
		}
	}
}
