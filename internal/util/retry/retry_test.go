package retry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestWithExponentialBackoff_Success(t *testing.T) {
	t.Parallel()
	attempts := 0
	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		return nil
	})
	if err != nil {
		t.Errorf("expected no error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got: %d", attempts)
	}
}

func TestWithExponentialBackoff_SuccessAfterRetries(t *testing.T) {
	t.Parallel()
	attempts := 0
	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("connection refused")
		}
		return nil
	}, WithInitialDelay(time.Millisecond))
	if err != nil {
		t.Errorf("expected no error after retries, got: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got: %d", attempts)
	}
}

func TestWithExponentialBackoff_Exhausted(t *testing.T) {
	t.Parallel()
	attempts := 0
	lastErr := errors.New("no route to host")
	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		return lastErr
	}, WithMaxRetries(2), WithInitialDelay(time.Millisecond))

	if !errors.Is(err, lastErr) {
		t.Fatalf("expected error wrapping %v, got: %v", lastErr, err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got: %d", attempts)
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestWithExponentialBackoff_ContextCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := WithExponentialBackoff(ctx, func() error {
		attempts++
		return errors.New("busy")
	}, WithInitialDelay(time.Second))

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected a single attempt before cancellation, got %d", attempts)
	}
}

func TestWithExponentialBackoff_FatalStops(t *testing.T) {
	t.Parallel()
	attempts := 0
	authErr := errors.New("401 unauthorized")
	err := WithExponentialBackoff(context.Background(), func() error {
		attempts++
		return Fatal(authErr)
	})

	if attempts != 1 {
		t.Errorf("fatal error must not be retried, got %d attempts", attempts)
	}
	if !errors.Is(err, authErr) || !IsFatal(err) {
		t.Errorf("expected fatal error wrapping %v, got: %v", authErr, err)
	}
}

func TestWithExponentialBackoff_OnRetryAndBackoff(t *testing.T) {
	t.Parallel()
	var delays []time.Duration
	var attemptsSeen []int

	_ = WithExponentialBackoff(context.Background(), func() error {
		return errors.New("busy")
	},
		WithMaxRetries(4),
		WithInitialDelay(time.Millisecond),
		WithMaxDelay(4*time.Millisecond),
		WithMultiplier(2),
		WithOnRetry(func(attempt int, _ error, delay time.Duration) {
			attemptsSeen = append(attemptsSeen, attempt)
			delays = append(delays, delay)
		}),
	)

	want := []time.Duration{time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond, 4 * time.Millisecond}
	if len(delays) != len(want) {
		t.Fatalf("expected %d retries, got %d", len(want), len(delays))
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay %d = %v, want %v", i, delays[i], want[i])
		}
		if attemptsSeen[i] != i+1 {
			t.Errorf("attempt %d reported as %d", i+1, attemptsSeen[i])
		}
	}
}

func TestFatal(t *testing.T) {
	t.Parallel()
	if Fatal(nil) != nil {
		t.Error("Fatal(nil) should be nil")
	}
	if IsFatal(errors.New("plain")) {
		t.Error("plain error should not be fatal")
	}

	base := errors.New("base")
	wrapped := Fatal(base)
	if wrapped.Error() != "base" {
		t.Errorf("expected message 'base', got %q", wrapped.Error())
	}
	if !errors.Is(wrapped, base) {
		t.Error("Fatal should unwrap to the original error")
	}
}
