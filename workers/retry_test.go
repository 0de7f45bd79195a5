package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"wawebhook/config"
	"wawebhook/logger"
)

func newTestRunner(policy RetryPolicy) (*Runner, *[]time.Duration) {
	var waits []time.Duration
	r := NewRunner(policy, logger.NewNop())
	r.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return r, &waits
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := NewRetryPolicy(config.ProcessingConfig{RetryCount: 3, RetryIntervalSec: 3, RetryExponential: 3})

	if p.MaxAttempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", p.MaxAttempts)
	}
	for attempt, want := range map[int]time.Duration{1: 9 * time.Second, 2: 27 * time.Second, 3: 81 * time.Second} {
		if got := p.Backoff(attempt); got != want {
			t.Fatalf("Backoff(%d) = %v, want %v", attempt, got, want)
		}
	}
}

func TestRetryPolicy_Budget(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, Interval: 3 * time.Second, Exponential: 3}

	// 3 attempts of 10s plus the 9s and 27s waits between them
	if got := p.Budget(10 * time.Second); got != 66*time.Second {
		t.Fatalf("expected 66s, got %v", got)
	}
	if got := (RetryPolicy{}).Budget(time.Second); got != time.Second {
		t.Fatalf("expected a single attempt budget, got %v", got)
	}
}

func TestDrainTimeout(t *testing.T) {
	conf := config.Configuration{}
	conf.Processing = config.ProcessingConfig{ConcatenationWaitSec: 30, RetryCount: 3, RetryIntervalSec: 3, RetryExponential: 3}
	conf.WhatsApp.RequestTimeoutSec = 30

	// each attempt: 30s debounce plus two 30s provider calls
	want := 3*90*time.Second + 9*time.Second + 27*time.Second
	if got := DrainTimeout(conf); got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestRunner_SucceedsOnThirdAttempt(t *testing.T) {
	r, waits := newTestRunner(RetryPolicy{MaxAttempts: 3, Interval: 3 * time.Second, Exponential: 3})

	calls := 0
	err := r.Run(context.Background(), "test", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	want := []time.Duration{9 * time.Second, 27 * time.Second}
	if len(*waits) != len(want) {
		t.Fatalf("expected waits %v, got %v", want, *waits)
	}
	for i := range want {
		if (*waits)[i] != want[i] {
			t.Fatalf("expected waits %v, got %v", want, *waits)
		}
	}
}

func TestRunner_ExhaustsAttempts(t *testing.T) {
	r, waits := newTestRunner(RetryPolicy{MaxAttempts: 3, Interval: time.Second, Exponential: 2})

	boom := errors.New("boom")
	calls := 0
	err := r.Run(context.Background(), "test", func(context.Context) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if len(*waits) != 2 {
		t.Fatalf("expected no wait after the last attempt, got %v", *waits)
	}
}

func TestRunner_RecoversPanics(t *testing.T) {
	r, _ := newTestRunner(RetryPolicy{MaxAttempts: 2, Interval: time.Second, Exponential: 1})

	calls := 0
	err := r.Run(context.Background(), "test", func(context.Context) error {
		calls++
		if calls == 1 {
			panic("kaboom")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected panic to count as a failed attempt, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestRunner_StopsWhenContextCanceled(t *testing.T) {
	r := NewRunner(RetryPolicy{MaxAttempts: 5, Interval: time.Hour, Exponential: 1}, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := r.Run(ctx, "test", func(context.Context) error {
		calls++
		cancel()
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}
