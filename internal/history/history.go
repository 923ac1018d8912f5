// Package history serves completed assessment results, from the remote
// service for authenticated users and from local storage for guests.
package history

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/abhisek/finwell/internal/logging"
	"github.com/abhisek/finwell/internal/remote"
	"github.com/abhisek/finwell/internal/scoring"
	"github.com/abhisek/finwell/internal/store"
	"github.com/abhisek/finwell/internal/survey"
)

// Authenticator reports whether survey calls should go to the service.
type Authenticator interface {
	IsAuthenticatedForSurvey() bool
}

// Repository reads and appends ScoreRecords.
type Repository struct {
	cache   *store.LocalCache
	backend remote.HistoryBackend
	auth    Authenticator
	logger  *slog.Logger
}

// NewRepository creates a Repository. A nil logger discards output.
func NewRepository(cache *store.LocalCache, backend remote.HistoryBackend, auth Authenticator, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Repository{cache: cache, backend: backend, auth: auth, logger: logger}
}

// GetHistory returns past results, newest first. Authenticated users get
// the service's history; if that call fails, the local cache is served
// instead.
func (r *Repository) GetHistory(ctx context.Context) ([]survey.ScoreRecord, error) {
	if r.auth.IsAuthenticatedForSurvey() {
		payloads, err := r.backend.History(ctx)
		if err == nil {
			records := make([]survey.ScoreRecord, 0, len(payloads))
			for _, p := range payloads {
				records = append(records, RecordFromPayload(p))
			}
			sortNewestFirst(records)
			return records, nil
		}
		r.logger.WarnContext(ctx, "remote history unavailable, using local cache", "error", err)
	}

	records, err := r.cache.GuestHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("read local history: %w", err)
	}
	sortNewestFirst(records)
	return records, nil
}

// AppendRecord stores a guest result locally. Authenticated results live on
// the service, so this is a no-op for them.
func (r *Repository) AppendRecord(ctx context.Context, rec survey.ScoreRecord) error {
	if r.auth.IsAuthenticatedForSurvey() {
		return nil
	}
	records, err := r.cache.GuestHistory(ctx)
	if err != nil {
		return fmt.Errorf("read local history: %w", err)
	}
	records = append(records, rec)
	if err := r.cache.SaveGuestHistory(ctx, records); err != nil {
		return fmt.Errorf("write local history: %w", err)
	}
	return nil
}

// GuestRecords returns the locally stored guest results in insertion order.
func (r *Repository) GuestRecords(ctx context.Context) ([]survey.ScoreRecord, error) {
	return r.cache.GuestHistory(ctx)
}

// ClearGuestRecords drops the locally stored guest results.
func (r *Repository) ClearGuestRecords(ctx context.Context) error {
	return r.cache.ClearGuestHistory(ctx)
}

func sortNewestFirst(records []survey.ScoreRecord) {
	slices.SortStableFunc(records, func(a, b survey.ScoreRecord) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

// RecordFromPayload maps a service payload to a ScoreRecord, filling in
// anything the service left out. Payloads without a full per-pillar
// breakdown get pillar scores synthesized from the overall score and are
// marked approximate.
func RecordFromPayload(p remote.RecordPayload) survey.ScoreRecord {
	total := p.RoundedTotal()
	hasChildren := p.MaxPossibleScore == scoring.ChildrenMaxScore || (p.Profile != nil && p.Profile.HasChildren)

	maxScore := p.MaxPossibleScore
	if maxScore <= 0 {
		maxScore = scoring.MaxPossibleScore(hasChildren)
	}

	rec := survey.ScoreRecord{
		ID:               p.ID,
		Profile:          p.Profile,
		Responses:        p.Responses,
		TotalScore:       total,
		MaxPossibleScore: maxScore,
		Interpretation:   cmp.Or(p.Interpretation, scoring.OverallInterpretation(total)),
		PillarScores:     p.PillarScores,
		Advice:           p.Advice,
		CreatedAt:        p.CreatedAt,
	}

	if !hasFullBreakdown(p.PillarScores) {
		rec.PillarScores = SynthesizePillars(p.TotalScore, maxScore, hasChildren)
		rec.Approximate = true
	}
	if len(rec.Advice) == 0 {
		rec.Advice = scoring.GenerateAdvice(rec.PillarScores, total)
	}
	return rec
}

func hasFullBreakdown(pillars []scoring.PillarScore) bool {
	if len(pillars) < len(scoring.Pillars) {
		return false
	}
	for _, want := range scoring.Pillars {
		if !slices.ContainsFunc(pillars, func(ps scoring.PillarScore) bool { return ps.Pillar == want }) {
			return false
		}
	}
	return true
}

// SynthesizePillars spreads an overall score evenly over every pillar: each
// gets the same 0..5 score, with points proportional to its budget.
func SynthesizePillars(total float64, maxScore int, hasChildren bool) []scoring.PillarScore {
	score := 0.0
	if maxScore > 0 {
		score = total / float64(maxScore) * scoring.MaxAnswer
	}
	score = math.Round(min(max(score, 0), scoring.MaxAnswer)*100) / 100

	out := make([]scoring.PillarScore, 0, len(scoring.Pillars))
	for _, p := range scoring.Pillars {
		budget := scoring.PillarBudget(p, hasChildren)
		out = append(out, scoring.PillarScore{
			Pillar:     p,
			Score:      score,
			Points:     int(math.Round(score / scoring.MaxAnswer * float64(budget))),
			MaxPoints:  budget,
			Percentage: score * 100 / scoring.MaxAnswer,
			Band:       scoring.InterpretationBand(score),
		})
	}
	return out
}
