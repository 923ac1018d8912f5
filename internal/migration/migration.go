// Package migration moves guest data to the service after a user signs in.
package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abhisek/finwell/internal/logging"
	"github.com/abhisek/finwell/internal/remote"
	"github.com/abhisek/finwell/internal/store"
	"github.com/abhisek/finwell/internal/survey"
)

// ErrNotAuthenticated is returned when migration is attempted as a guest.
var ErrNotAuthenticated = errors.New("migration requires an authenticated session")

// ErrSessionLost is returned when the service rejects the credentials
// partway through a migration. Guest data is left in place.
var ErrSessionLost = errors.New("signed out during migration")

// ClearPolicy decides when local guest data is removed after a run.
type ClearPolicy int

const (
	// ClearAlways clears guest data once the run finishes, even if some
	// items failed. Failed items are lost.
	ClearAlways ClearPolicy = iota
	// ClearOnFullSuccess keeps guest data unless every item migrated.
	ClearOnFullSuccess
)

func (p ClearPolicy) String() string {
	if p == ClearOnFullSuccess {
		return "on_full_success"
	}
	return "always"
}

// ParseClearPolicy accepts "always" or "on_full_success".
func ParseClearPolicy(s string) (ClearPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "always":
		return ClearAlways, nil
	case "on_full_success", "on-full-success":
		return ClearOnFullSuccess, nil
	default:
		return ClearAlways, fmt.Errorf("unknown clear policy %q", s)
	}
}

// Authenticator reports whether survey calls should go to the service.
type Authenticator interface {
	IsAuthenticatedForSurvey() bool
}

// Backend is the part of the service migration talks to.
type Backend interface {
	remote.ProfileBackend
	Submit(ctx context.Context, req remote.ScoreRequest) (*remote.RecordPayload, error)
}

// Report summarizes a migration run.
type Report struct {
	HadProfile      bool
	ProfileMigrated bool
	Records         int
	Submitted       int
	Failed          int
	Cleared         bool
}

// Complete reports whether every item made it to the service.
func (r *Report) Complete() bool {
	return r.Failed == 0 && (!r.HadProfile || r.ProfileMigrated)
}

// Coordinator runs guest-to-account migration.
type Coordinator struct {
	cache   *store.LocalCache
	backend Backend
	auth    Authenticator
	policy  ClearPolicy
	logger  *slog.Logger
}

// NewCoordinator creates a Coordinator. A nil logger discards output.
func NewCoordinator(cache *store.LocalCache, backend Backend, auth Authenticator, policy ClearPolicy, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Coordinator{cache: cache, backend: backend, auth: auth, policy: policy, logger: logger}
}

// MigrateGuestData uploads the guest profile and resubmits every guest
// result. Individual failures are logged and skipped; whether guest data is
// cleared afterwards depends on the clear policy. With no guest data it
// does nothing.
//
// An authentication failure ends the batch: the remaining items are not
// sent, guest data is kept regardless of policy, and the error is returned
// with the partial report.
func (c *Coordinator) MigrateGuestData(ctx context.Context) (*Report, error) {
	if !c.auth.IsAuthenticatedForSurvey() {
		return nil, ErrNotAuthenticated
	}

	profile, err := c.cache.GuestProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("read guest profile: %w", err)
	}
	records, err := c.cache.GuestHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("read guest history: %w", err)
	}

	report := &Report{HadProfile: profile != nil, Records: len(records)}
	if profile == nil && len(records) == 0 {
		return report, nil
	}

	if profile != nil {
		if err := c.migrateProfile(ctx, *profile); err != nil {
			if remote.IsAuth(err) {
				return report, c.abort(ctx, report, err)
			}
			c.logger.WarnContext(ctx, "profile migration failed", "error", err)
		} else {
			report.ProfileMigrated = true
		}
	}

	for _, rec := range records {
		if err := c.resubmit(ctx, rec, profile); err != nil {
			report.Failed++
			if remote.IsAuth(err) {
				return report, c.abort(ctx, report, err)
			}
			c.logger.WarnContext(ctx, "record migration failed", "record_id", rec.ID, "error", err)
			continue
		}
		report.Submitted++
	}

	if c.policy == ClearAlways || report.Complete() {
		if err := c.cache.ClearGuestData(ctx); err != nil {
			return report, fmt.Errorf("clear guest data: %w", err)
		}
		report.Cleared = true
	}

	c.logger.InfoContext(ctx, "guest data migrated",
		"profile", report.ProfileMigrated,
		"submitted", report.Submitted,
		"failed", report.Failed,
		"cleared", report.Cleared,
		"policy", c.policy.String(),
	)
	return report, nil
}

func (c *Coordinator) abort(ctx context.Context, report *Report, err error) error {
	c.logger.WarnContext(ctx, "guest migration stopped, credentials rejected",
		"submitted", report.Submitted,
		"records", report.Records,
		"error", err,
	)
	return fmt.Errorf("%w: %w", ErrSessionLost, err)
}

// migrateProfile creates the profile, replacing it when one already exists.
func (c *Coordinator) migrateProfile(ctx context.Context, p survey.Profile) error {
	err := c.backend.CreateProfile(ctx, p)
	if err == nil || !remote.IsConflict(err) {
		return err
	}
	return c.backend.UpdateProfile(ctx, p)
}

func (c *Coordinator) resubmit(ctx context.Context, rec survey.ScoreRecord, fallback *survey.Profile) error {
	if len(rec.Responses) == 0 {
		return errors.New("record has no responses")
	}
	profile := rec.Profile
	if profile == nil {
		profile = fallback
	}
	_, err := c.backend.Submit(ctx, remote.ScoreRequest{Responses: rec.Responses, Profile: profile})
	return err
}
