package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fastPolicy keeps test runtimes sane while preserving the attempt bound.
func fastPolicy(attempts int) Policy {
	return Policy{
		Attempts:   attempts,
		Multiplier: time.Millisecond,
		MinWait:    time.Millisecond,
		MaxWait:    5 * time.Millisecond,
	}
}

func TestDoSucceedsWithinBudget(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success on 3rd attempt, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoExhaustsAndReturnsLastError(t *testing.T) {
	calls := 0
	lastErr := errors.New("still failing")
	err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("earlier failure")
		}
		return lastErr
	})
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	// The caller must see the final underlying error, not an earlier one
	// and not a wrapper.
	if !errors.Is(err, lastErr) {
		t.Errorf("expected last error %v, got %v", lastErr, err)
	}
}

func TestDoPermanentStopsImmediately(t *testing.T) {
	calls := 0
	cfgErr := errors.New("missing credential")
	err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) error {
		calls++
		return Permanent(cfgErr)
	})
	if calls != 1 {
		t.Errorf("expected 1 call for permanent error, got %d", calls)
	}
	if !errors.Is(err, cfgErr) {
		t.Errorf("expected wrapped %v, got %v", cfgErr, err)
	}
	if !IsPermanent(err) {
		t.Error("expected error to report as permanent")
	}
}

func TestDoContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, fastPolicy(3), func(ctx context.Context) error {
		t.Fatal("fn should not run with cancelled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestWaitClamping(t *testing.T) {
	p := Policy{
		Attempts:   5,
		Multiplier: time.Second,
		MinWait:    2 * time.Second,
		MaxWait:    10 * time.Second,
	}
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 2 * time.Second},  // 1s raised to floor
		{1, 2 * time.Second},  // 2s
		{2, 4 * time.Second},  // 4s
		{3, 8 * time.Second},  // 8s
		{4, 10 * time.Second}, // 16s clamped to ceiling
	}
	for _, tc := range cases {
		if got := p.wait(tc.attempt); got != tc.want {
			t.Errorf("wait(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}
