package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
)

// PrometheusObserver exports remote call metrics to Prometheus.
type PrometheusObserver struct {
	requests *promclient.CounterVec
	duration *promclient.HistogramVec
}

// NewPrometheusObserver registers the remote call collectors on reg.
// Registering twice on the same registry reuses the existing collectors.
func NewPrometheusObserver(namespace string, reg promclient.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "finwell"
	}
	if reg == nil {
		reg = promclient.DefaultRegisterer
	}
	o := &PrometheusObserver{
		requests: promclient.NewCounterVec(promclient.CounterOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "requests_total",
			Help:      "Remote service calls by operation and outcome.",
		}, []string{"op", "outcome"}),
		duration: promclient.NewHistogramVec(promclient.HistogramOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "request_duration_seconds",
			Help:      "Latency of remote service calls.",
			Buckets:   promclient.DefBuckets,
		}, []string{"op"}),
	}

	if err := reg.Register(o.requests); err != nil {
		var are promclient.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, fmt.Errorf("register request counter: %w", err)
		}
		existing, ok := are.ExistingCollector.(*promclient.CounterVec)
		if !ok {
			return nil, fmt.Errorf("register request counter: %w", err)
		}
		o.requests = existing
	}
	if err := reg.Register(o.duration); err != nil {
		var are promclient.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, fmt.Errorf("register duration histogram: %w", err)
		}
		existing, ok := are.ExistingCollector.(*promclient.HistogramVec)
		if !ok {
			return nil, fmt.Errorf("register duration histogram: %w", err)
		}
		o.duration = existing
	}
	return o, nil
}

// Record tracks one call attempt.
func (o *PrometheusObserver) Record(op string, d time.Duration, err error) {
	if o == nil {
		return
	}
	o.duration.WithLabelValues(op).Observe(d.Seconds())
	o.requests.WithLabelValues(op, Outcome(err)).Inc()
}

// Outcome names the error class of err for metric labels.
func Outcome(err error) string {
	var (
		rl  *ErrRateLimit
		un  *ErrUnavailable
		ae  *ErrAuth
		ce  *ErrConflict
		re  *ErrRejected
		inv *ErrInvalidResponse
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &rl):
		return "rate_limited"
	case errors.As(err, &un):
		return "unavailable"
	case errors.As(err, &ae):
		return "auth"
	case errors.As(err, &ce):
		return "conflict"
	case errors.As(err, &re):
		return "rejected"
	case errors.As(err, &inv):
		return "invalid_response"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// MetricsDoer is a decorator that records every attempt on an observer.
type MetricsDoer struct {
	inner    Doer
	observer *PrometheusObserver
}

// WithMetrics wraps a Doer with Prometheus instrumentation. A nil observer
// records nothing.
func WithMetrics(d Doer, o *PrometheusObserver) Doer {
	return &MetricsDoer{inner: d, observer: o}
}

func (m *MetricsDoer) Do(ctx context.Context, c *Call) error {
	start := time.Now()
	err := m.inner.Do(ctx, c)
	m.observer.Record(c.Op, time.Since(start), err)
	return err
}
