package model

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

// recordingRetrier returns a retrier whose sleeps are captured instead of
// actually waiting.
func recordingRetrier(maxRetries int, delay time.Duration) (retrier, *[]time.Duration) {
	var slept []time.Duration
	r := newRetrier(maxRetries, delay)
	r.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return r, &slept
}

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	r, slept := recordingRetrier(3, time.Second)

	attempts := 0
	err := r.do(context.Background(), "op", "m", time.Second, func(ctx context.Context) error {
		attempts++
		return nil
	})

	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
	if len(*slept) != 0 {
		t.Errorf("Expected no sleeps, got %v", *slept)
	}
}

func TestRetry_ExhaustsAllAttempts(t *testing.T) {
	r, slept := recordingRetrier(3, time.Second)

	attempts := 0
	err := r.do(context.Background(), "op", "m", time.Second, func(ctx context.Context) error {
		attempts++
		return errors.New("transient")
	})

	if err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	// max_retries = 3 means 4 attempts total
	if attempts != 4 {
		t.Errorf("Expected 4 attempts, got %d", attempts)
	}

	want := []time.Duration{1 * time.Second, 2 * time.Second, 3 * time.Second}
	if len(*slept) != len(want) {
		t.Fatalf("Expected %d sleeps, got %v", len(want), *slept)
	}
	for i, d := range want {
		if (*slept)[i] != d {
			t.Errorf("Sleep %d: expected %s, got %s", i, d, (*slept)[i])
		}
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	r, slept := recordingRetrier(3, 100*time.Millisecond)

	attempts := 0
	err := r.do(context.Background(), "op", "m", time.Second, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Expected eventual success, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
	if len(*slept) != 2 {
		t.Errorf("Expected 2 sleeps, got %v", *slept)
	}
}

func TestRetry_NonRetryableShortCircuits(t *testing.T) {
	cases := []error{
		&StatusError{Status: http.StatusUnauthorized},
		&StatusError{Status: http.StatusTooManyRequests},
		&StatusError{Status: http.StatusBadRequest, Body: []byte(`{"error":{"type":"content_filter","message":"no"}}`)},
	}
	for _, cause := range cases {
		r, slept := recordingRetrier(3, time.Second)
		attempts := 0
		err := r.do(context.Background(), "op", "m", time.Second, func(ctx context.Context) error {
			attempts++
			return cause
		})

		var me *Error
		if !errors.As(err, &me) {
			t.Fatalf("Expected *Error, got %T", err)
		}
		if attempts != 1 {
			t.Errorf("%v: expected exactly 1 attempt, got %d", me.Kind, attempts)
		}
		if len(*slept) != 0 {
			t.Errorf("%v: expected no backoff sleeps, got %v", me.Kind, *slept)
		}
	}
}

func TestRetry_ZeroRetries(t *testing.T) {
	r, _ := recordingRetrier(0, time.Second)
	attempts := 0
	err := r.do(context.Background(), "op", "m", time.Second, func(ctx context.Context) error {
		attempts++
		return errors.New("fail")
	})

	if err == nil {
		t.Fatal("Expected error")
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt with max_retries=0, got %d", attempts)
	}
}

func TestRetry_CancelledDuringBackoff(t *testing.T) {
	r := newRetrier(3, 10*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := r.do(ctx, "op", "m", time.Second, func(ctx context.Context) error {
		attempts++
		return errors.New("transient")
	})

	if err == nil {
		t.Fatal("Expected error after cancellation")
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt before cancellation, got %d", attempts)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Backoff did not abort on cancellation, took %s", elapsed)
	}
}

func TestSleepContext_Expires(t *testing.T) {
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("Expected nil, got %v", err)
	}
}
