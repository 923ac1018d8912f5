// Package assessment scores and submits completed questionnaires.
package assessment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/finwell/internal/history"
	"github.com/abhisek/finwell/internal/logging"
	"github.com/abhisek/finwell/internal/remote"
	"github.com/abhisek/finwell/internal/scoring"
	"github.com/abhisek/finwell/internal/store"
	"github.com/abhisek/finwell/internal/survey"
)

// ErrProfileRequired is returned when an authenticated user submits without
// a profile.
var ErrProfileRequired = errors.New("a profile is required to submit while signed in")

// SubmitError is a failed remote submission. Message is safe to show to the
// user; Retryable tells whether resubmitting the same answers may succeed.
type SubmitError struct {
	Message   string
	Retryable bool
	Err       error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }

// Backend is the part of the service assessment talks to.
type Backend interface {
	remote.ScoringBackend
	remote.ProfileBackend
}

// Authenticator reports whether survey calls should go to the service.
type Authenticator interface {
	IsAuthenticatedForSurvey() bool
}

// SessionCompleter closes the in-progress session after a submission.
type SessionCompleter interface {
	CompleteSession(ctx context.Context, id string) *survey.Session
}

// Recorder stores a completed result.
type Recorder interface {
	AppendRecord(ctx context.Context, rec survey.ScoreRecord) error
}

// Preview is a score shown before submission. Local is set when the service
// could not be reached and the score was computed on the device.
type Preview struct {
	survey.ScoreRecord
	Local bool
}

// SubmitInput is a completed questionnaire.
type SubmitInput struct {
	SessionID string
	Responses map[string]int
	Profile   *survey.Profile
}

// Service ties scoring, submission, history and session completion together.
type Service struct {
	backend  Backend
	sessions SessionCompleter
	records  Recorder
	cache    *store.LocalCache
	auth     Authenticator
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a Service. A nil logger discards output.
func NewService(backend Backend, sessions SessionCompleter, records Recorder, cache *store.LocalCache, auth Authenticator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{
		backend:  backend,
		sessions: sessions,
		records:  records,
		cache:    cache,
		auth:     auth,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Preview scores responses without recording them. When the service is
// unreachable the score is computed locally.
func (s *Service) Preview(ctx context.Context, responses map[string]int, profile *survey.Profile) (*Preview, error) {
	opts := profile.ScoringOptions()
	if err := scoring.Validate(responses, opts); err != nil {
		return nil, err
	}

	payload, err := s.backend.Preview(ctx, remote.ScoreRequest{Responses: responses, Profile: profile})
	if err == nil {
		return &Preview{ScoreRecord: history.RecordFromPayload(*payload)}, nil
	}
	if !remote.IsTransient(err) && !remote.IsAuth(err) {
		return nil, fmt.Errorf("preview: %w", err)
	}

	s.logger.InfoContext(ctx, "scoring locally", "reason", err)
	res, err := scoring.ComputeScore(responses, opts)
	if err != nil {
		return nil, err
	}
	return &Preview{
		ScoreRecord: survey.ScoreRecord{
			Profile:          profile,
			Responses:        maps.Clone(responses),
			TotalScore:       res.TotalScore,
			MaxPossibleScore: res.MaxPossibleScore,
			Interpretation:   res.Interpretation,
			PillarScores:     res.PillarScores,
			Advice:           scoring.GenerateAdvice(res.PillarScores, res.TotalScore),
			CreatedAt:        s.now(),
		},
		Local: true,
	}, nil
}

// Submit validates and records a completed questionnaire. On success the
// result is added to history, a guest's profile is kept for later
// migration and the session is completed.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*survey.ScoreRecord, error) {
	if err := scoring.Validate(in.Responses, in.Profile.ScoringOptions()); err != nil {
		return nil, err
	}

	authenticated := s.auth.IsAuthenticatedForSurvey()
	if authenticated && in.Profile == nil {
		return nil, ErrProfileRequired
	}

	req := remote.ScoreRequest{SessionID: in.SessionID, Responses: in.Responses, Profile: in.Profile}
	var (
		payload *remote.RecordPayload
		err     error
	)
	if authenticated {
		payload, err = s.backend.Submit(ctx, req)
	} else {
		payload, err = s.backend.SubmitGuest(ctx, req)
	}
	if err != nil {
		return nil, &SubmitError{Message: userMessage(err), Retryable: remote.IsTransient(err), Err: err}
	}

	rec := history.RecordFromPayload(*payload)
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	if len(rec.Responses) == 0 {
		rec.Responses = maps.Clone(in.Responses)
	}
	if rec.Profile == nil {
		rec.Profile = in.Profile
	}

	if err := s.records.AppendRecord(ctx, rec); err != nil {
		s.logger.WarnContext(ctx, "record result locally", "record_id", rec.ID, "error", err)
	}
	if !authenticated && in.Profile != nil {
		if err := s.cache.SaveGuestProfile(ctx, in.Profile); err != nil {
			s.logger.WarnContext(ctx, "save guest profile", "error", err)
		}
	}
	if in.SessionID != "" {
		s.sessions.CompleteSession(ctx, in.SessionID)
	}

	s.logger.InfoContext(ctx, "assessment submitted",
		"record_id", rec.ID,
		"total", rec.TotalScore,
		"max", rec.MaxPossibleScore,
		"guest", !authenticated,
	)
	return &rec, nil
}

// SaveProfile stores the profile locally for guests or on the service for
// signed-in users, replacing an existing remote profile.
func (s *Service) SaveProfile(ctx context.Context, p survey.Profile) error {
	if !s.auth.IsAuthenticatedForSurvey() {
		if err := s.cache.SaveGuestProfile(ctx, &p); err != nil {
			return fmt.Errorf("save guest profile: %w", err)
		}
		return nil
	}

	err := s.backend.CreateProfile(ctx, p)
	if remote.IsConflict(err) {
		err = s.backend.UpdateProfile(ctx, p)
	}
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func userMessage(err error) string {
	var (
		rl *remote.ErrRateLimit
		re *remote.ErrRejected
	)
	switch {
	case remote.IsAuth(err):
		return "Your sign-in has expired. Sign in again and resubmit; your answers are kept."
	case errors.As(err, &rl):
		return "The scoring service is busy. Please try again in a moment."
	case errors.As(err, &re):
		return "The scoring service could not accept these answers."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Submission was interrupted. Please try again."
	default:
		return "We couldn't reach the scoring service. Your answers are kept; please try again."
	}
}
