package remote

import (
	"context"
	"log/slog"
)

// CredentialClearer drops stored survey credentials.
type CredentialClearer interface {
	ClearSurveyCredentials() error
}

// CredentialResetDoer clears stored credentials when the service refuses
// them, so the next call runs as a guest instead of failing again.
type CredentialResetDoer struct {
	inner   Doer
	clearer CredentialClearer
	logger  *slog.Logger
}

// WithCredentialReset wraps a Doer so that authentication failures clear
// the survey credentials.
func WithCredentialReset(d Doer, clearer CredentialClearer, logger *slog.Logger) Doer {
	return &CredentialResetDoer{inner: d, clearer: clearer, logger: logger}
}

func (r *CredentialResetDoer) Do(ctx context.Context, c *Call) error {
	err := r.inner.Do(ctx, c)
	if err == nil || !IsAuth(err) || c.Token == "" {
		return err
	}
	if clearErr := r.clearer.ClearSurveyCredentials(); clearErr != nil {
		r.logger.WarnContext(ctx, "clear credentials after auth failure", "op", c.Op, "error", clearErr)
	} else {
		r.logger.InfoContext(ctx, "credentials cleared after auth failure", "op", c.Op)
	}
	return err
}
