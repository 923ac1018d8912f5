package remote

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func retryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 1 * time.Millisecond,
		MaxWait:     10 * time.Millisecond,
		Multiplier:  2.0,
	}
}

// scriptedDoer returns the scripted errors in order, then nil.
type scriptedDoer struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (s *scriptedDoer) Do(_ context.Context, _ *Call) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	d := &scriptedDoer{}
	if err := WithRetry(d, retryConfig()).Do(context.Background(), &Call{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.calls != 1 {
		t.Fatalf("expected 1 call, got %d", d.calls)
	}
}

func TestRetry_ByErrorClass(t *testing.T) {
	down := &ErrUnavailable{Err: errors.New("down")}
	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   bool
	}{
		{"unavailable then success", []error{down}, 2, false},
		{"unavailable exhausts attempts", []error{down, down, down}, 3, true},
		{"rate limit retried", []error{&ErrRateLimit{Err: errors.New("slow")}}, 2, false},
		{"auth not retried", []error{&ErrAuth{Err: errors.New("401")}}, 1, true},
		{"conflict not retried", []error{&ErrConflict{Err: errors.New("409")}}, 1, true},
		{"rejected not retried", []error{&ErrRejected{Err: errors.New("422")}}, 1, true},
		{"unclassified not retried", []error{errors.New("encode")}, 1, true},
		{"invalid response retried once", []error{
			&ErrInvalidResponse{Err: errors.New("bad")},
			&ErrInvalidResponse{Err: errors.New("bad")},
		}, 2, true},
		{"context canceled not retried", []error{context.Canceled}, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &scriptedDoer{errs: tt.errs}
			err := WithRetry(d, retryConfig()).Do(context.Background(), &Call{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if d.calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", d.calls, tt.wantCalls)
			}
		})
	}
}

func TestRetry_RespectsRetryAfter(t *testing.T) {
	d := &scriptedDoer{errs: []error{&ErrRateLimit{RetryAfter: 20 * time.Millisecond, Err: errors.New("429")}}}
	cfg := retryConfig()
	cfg.MaxWait = time.Second

	start := time.Now()
	if err := WithRetry(d, cfg).Do(context.Background(), &Call{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("elapsed %v, want at least the Retry-After delay", elapsed)
	}
}

func TestRetry_ContextCanceledDuringBackoff(t *testing.T) {
	d := &scriptedDoer{errs: []error{&ErrUnavailable{}, &ErrUnavailable{}}}
	cfg := retryConfig()
	cfg.InitialWait = time.Second
	cfg.MaxWait = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := WithRetry(d, cfg).Do(ctx, &Call{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if d.calls != 1 {
		t.Errorf("calls = %d, want 1", d.calls)
	}
}

func TestDelay_JitterBounds(t *testing.T) {
	r := &RetryDoer{config: RetryConfig{MaxAttempts: 5, InitialWait: 100 * time.Millisecond, MaxWait: time.Second, Multiplier: 2}}
	for attempt := range 4 {
		base := float64(100*time.Millisecond) * float64(int(1)<<attempt)
		if base > float64(time.Second) {
			base = float64(time.Second)
		}
		for range 50 {
			w := float64(r.delay(attempt, errors.New("x")))
			if w < base*0.8 || w > base*1.2 {
				t.Fatalf("attempt %d: wait %v outside ±20%% of %v", attempt, time.Duration(w), time.Duration(base))
			}
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want retryClass
	}{
		{"unavailable", &ErrUnavailable{Err: errors.New("down")}, retryTransient},
		{"rate limit", &ErrRateLimit{Err: errors.New("slow")}, retryTransient},
		{"invalid body", &ErrInvalidResponse{Err: errors.New("eof")}, retryOnce},
		{"auth", &ErrAuth{Err: errors.New("401")}, retryNever},
		{"conflict", &ErrConflict{Err: errors.New("409")}, retryNever},
		{"rejected", &ErrRejected{Err: errors.New("422")}, retryNever},
		{"too large", ErrResponseTooLarge, retryNever},
		{"canceled", context.Canceled, retryNever},
		{"unknown", errors.New("boom"), retryNever},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err); got != tt.want {
				t.Errorf("classify = %d, want %d", got, tt.want)
			}
		})
	}
}
