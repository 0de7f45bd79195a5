package workers

import (
	"context"
	"fmt"
	"math"
	"time"

	"wawebhook/config"
	"wawebhook/logger"
	"wawebhook/tools"
)

// RetryPolicy is a bounded exponential backoff: wait = Interval * Exponential^attempt.
type RetryPolicy struct {
	MaxAttempts int
	Interval    time.Duration
	Exponential float64
}

func NewRetryPolicy(conf config.ProcessingConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: conf.RetryCount,
		Interval:    conf.RetryInterval(),
		Exponential: conf.RetryExponential,
	}
}

// Backoff is the wait after the failed attempt number attempt (1-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return time.Duration(float64(p.Interval) * math.Pow(p.Exponential, float64(attempt)))
}

// Budget is the longest Run can take when every attempt lasts perAttempt and fails.
func (p RetryPolicy) Budget(perAttempt time.Duration) time.Duration {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	total := time.Duration(attempts) * perAttempt
	for attempt := 1; attempt < attempts; attempt++ {
		total += p.Backoff(attempt)
	}
	return total
}

// DrainTimeout bounds a task submitted right before shutdown: each attempt
// waits the debounce and makes two provider calls.
func DrainTimeout(conf config.Configuration) time.Duration {
	perAttempt := conf.Processing.ConcatenationWait() + 2*conf.WhatsApp.RequestTimeout()
	return NewRetryPolicy(conf.Processing).Budget(perAttempt)
}

type Runner struct {
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
	log    *logger.Logger
}

func NewRunner(policy RetryPolicy, log *logger.Logger) *Runner {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Runner{
		policy: policy,
		sleep:  tools.Sleep,
		log:    log.With("component", "Runner"),
	}
}

// Run calls fn until it succeeds or MaxAttempts is reached. There is no wait
// after the last attempt. The last error is returned once attempts run out.
func (r *Runner) Run(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		err = r.attempt(ctx, fn)
		if err == nil {
			if attempt > 1 {
				r.log.Info("Task succeeded after retry", "task", name, "attempt", attempt)
			}
			return nil
		}

		if attempt == r.policy.MaxAttempts {
			break
		}
		wait := r.policy.Backoff(attempt)
		r.log.Warn("Task failed, retrying", "task", name, "attempt", attempt, "wait", wait.String(), "error", err)
		if sleepErr := r.sleep(ctx, wait); sleepErr != nil {
			r.log.Error("Task retry aborted", "task", name, "attempt", attempt, "error", sleepErr)
			return fmt.Errorf("%s: %w", name, sleepErr)
		}
	}

	r.log.Error("Task failed, attempts exhausted", "task", name, "attempts", r.policy.MaxAttempts, "error", err)
	return err
}

func (r *Runner) attempt(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn(ctx)
}
