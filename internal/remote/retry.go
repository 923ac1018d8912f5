package remote

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig bounds how hard a foreground call tries before giving up.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultRetryConfig allows three attempts, waiting 500ms then 1s, capped
// at 5s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 500 * time.Millisecond,
		MaxWait:     5 * time.Second,
		Multiplier:  2.0,
	}
}

// retryClass says how a failed survey call may be repeated.
type retryClass int

const (
	// retryNever covers cancellation, auth, conflicts, rejections and
	// anything unrecognized. Repeating a submission on an unknown failure
	// could record it twice.
	retryNever retryClass = iota
	// retryOnce covers an undecodable body.
	retryOnce
	// retryTransient covers an unavailable or rate-limited service.
	retryTransient
)

func classify(err error) retryClass {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return retryNever
	}
	var (
		inv *ErrInvalidResponse
		rl  *ErrRateLimit
		un  *ErrUnavailable
	)
	switch {
	case errors.As(err, &inv):
		return retryOnce
	case errors.As(err, &rl), errors.As(err, &un):
		return retryTransient
	default:
		return retryNever
	}
}

// RetryDoer repeats transient survey calls. The caller sees only the last
// error; waits grow exponentially with ±20% jitter, or follow the server's
// Retry-After up to MaxWait.
type RetryDoer struct {
	inner  Doer
	config RetryConfig
}

// WithRetry wraps d. MaxAttempts below 1 means a single attempt.
func WithRetry(d Doer, cfg RetryConfig) Doer {
	cfg.MaxAttempts = max(cfg.MaxAttempts, 1)
	return &RetryDoer{inner: d, config: cfg}
}

func (r *RetryDoer) Do(ctx context.Context, c *Call) error {
	usedOnce := false
	for attempt := 1; ; attempt++ {
		err := r.inner.Do(ctx, c)
		if err == nil {
			return nil
		}

		switch classify(err) {
		case retryNever:
			return err
		case retryOnce:
			if usedOnce {
				return err
			}
			usedOnce = true
		}
		if attempt >= r.config.MaxAttempts {
			return err
		}

		timer := time.NewTimer(r.delay(attempt-1, err))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// delay returns the pause after the given zero-based failed attempt.
func (r *RetryDoer) delay(attempt int, err error) time.Duration {
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		if r.config.MaxWait > 0 {
			return min(rl.RetryAfter, r.config.MaxWait)
		}
		return rl.RetryAfter
	}

	base := float64(r.config.InitialWait) * math.Pow(r.config.Multiplier, float64(attempt))
	base = min(base, float64(r.config.MaxWait))
	jittered := base * (0.8 + 0.4*rand.Float64())
	return time.Duration(max(jittered, 0))
}
