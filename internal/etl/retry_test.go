package etl

import (
	"context"
	"errors"
	"testing"
	"time"
)

type sleepRecorder struct {
	waits []time.Duration
}

func (r *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return ctx.Err()
}

func TestRetryPolicy_SucceedsAfterFailures(t *testing.T) {
	rec := &sleepRecorder{}
	p := RetryPolicy{
		MaxAttempts: 3,
		Backoff:     func(error) time.Duration { return 5 * time.Second },
		Sleep:       rec.Sleep,
	}

	calls := 0
	err := p.Do(context.Background(), func(attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("boom")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(rec.waits) != 2 {
		t.Errorf("waits = %v, want two sleeps", rec.waits)
	}
}

func TestRetryPolicy_ReturnsLastError(t *testing.T) {
	rec := &sleepRecorder{}
	p := RetryPolicy{MaxAttempts: 3, Sleep: rec.Sleep}

	last := errors.New("third")
	errs := []error{errors.New("first"), errors.New("second"), last}
	err := p.Do(context.Background(), func(attempt int) error { return errs[attempt-1] })
	if !errors.Is(err, last) {
		t.Fatalf("err = %v, want %v", err, last)
	}
	if len(rec.waits) != 2 {
		t.Errorf("no sleep expected after the final attempt, got %d sleeps", len(rec.waits))
	}
}

func TestRetryPolicy_BackoffDependsOnError(t *testing.T) {
	rec := &sleepRecorder{}
	limited := &APIError{StatusCode: 429}
	p := RetryPolicy{
		MaxAttempts: 3,
		Sleep:       rec.Sleep,
		Backoff: func(err error) time.Duration {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.RateLimited() {
				return 30 * time.Second
			}
			return 5 * time.Second
		},
	}

	_ = p.Do(context.Background(), func(attempt int) error {
		if attempt == 1 {
			return limited
		}
		return errors.New("network")
	})
	want := []time.Duration{30 * time.Second, 5 * time.Second}
	if len(rec.waits) != 2 || rec.waits[0] != want[0] || rec.waits[1] != want[1] {
		t.Errorf("waits = %v, want %v", rec.waits, want)
	}
}

func TestRetryPolicy_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := RetryPolicy{MaxAttempts: 5, Sleep: (&sleepRecorder{}).Sleep}

	calls := 0
	err := p.Do(ctx, func(int) error {
		calls++
		cancel()
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := SleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("SleepContext on cancelled ctx = %v", err)
	}
	if err := SleepContext(context.Background(), 0); err != nil {
		t.Errorf("SleepContext(0) = %v", err)
	}
}
