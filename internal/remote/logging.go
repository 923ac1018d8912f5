package remote

import (
	"context"
	"log/slog"
	"time"
)

// LoggingDoer is a decorator that logs every attempt.
type LoggingDoer struct {
	inner  Doer
	logger *slog.Logger
}

// WithLogging wraps a Doer with structured request logging.
func WithLogging(d Doer, logger *slog.Logger) Doer {
	return &LoggingDoer{inner: d, logger: logger}
}

func (l *LoggingDoer) Do(ctx context.Context, c *Call) error {
	start := time.Now()
	err := l.inner.Do(ctx, c)

	attrs := []any{
		"op", c.Op,
		"method", c.Method,
		"path", c.Path,
		"authenticated", c.Token != "",
		"latency_ms", time.Since(start).Milliseconds(),
	}
	if err != nil {
		l.logger.WarnContext(ctx, "remote call failed", append(attrs, "error", err)...)
		return err
	}
	l.logger.DebugContext(ctx, "remote call", attrs...)
	return nil
}
