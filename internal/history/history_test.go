package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/finwell/internal/identity"
	"github.com/abhisek/finwell/internal/remote"
	"github.com/abhisek/finwell/internal/scoring"
	"github.com/abhisek/finwell/internal/store"
	"github.com/abhisek/finwell/internal/survey"
)

func newRepo(t *testing.T, authenticated bool) (*Repository, *remote.MockBackend, *store.LocalCache) {
	t.Helper()
	creds := identity.NewMemoryCredentials(nil)
	if authenticated {
		creds.Set(identity.FullSessionToken, "tok")
	}
	cache := store.NewLocalCache(store.NewMemoryKV())
	backend := remote.NewMockBackend()
	return NewRepository(cache, backend, identity.NewResolver(creds), nil), backend, cache
}

func at(day int) time.Time {
	return time.Date(2026, 5, day, 12, 0, 0, 0, time.UTC)
}

func TestGuest_AppendAndListNewestFirst(t *testing.T) {
	repo, backend, _ := newRepo(t, false)
	ctx := context.Background()

	for i, day := range []int{3, 9, 1} {
		rec := survey.ScoreRecord{ID: string(rune('a' + i)), TotalScore: 40, CreatedAt: at(day)}
		require.NoError(t, repo.AppendRecord(ctx, rec))
	}

	got, err := repo.GetHistory(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"b", "a", "c"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Zero(t, backend.CallCount(remote.OpHistory))

	// Insertion order is preserved in the raw guest list.
	raw, err := repo.GuestRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", raw[0].ID)

	require.NoError(t, repo.ClearGuestRecords(ctx))
	got, err = repo.GetHistory(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAuthenticated_AppendIsNoOp(t *testing.T) {
	repo, _, cache := newRepo(t, true)
	ctx := context.Background()

	require.NoError(t, repo.AppendRecord(ctx, survey.ScoreRecord{ID: "x"}))
	local, err := cache.GuestHistory(ctx)
	require.NoError(t, err)
	assert.Empty(t, local)
}

func TestAuthenticated_RemoteHistory(t *testing.T) {
	repo, backend, _ := newRepo(t, true)
	ctx := context.Background()

	res, err := scoring.ComputeScore(allThrees(false), scoring.Options{})
	require.NoError(t, err)
	backend.HistoryEntries = []remote.RecordPayload{
		{ID: "old", TotalScore: 45, MaxPossibleScore: 75, PillarScores: res.PillarScores, CreatedAt: at(1)},
		{ID: "new", TotalScore: 45, MaxPossibleScore: 75, PillarScores: res.PillarScores, CreatedAt: at(2)},
	}

	got, err := repo.GetHistory(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].ID)
	assert.False(t, got[0].Approximate)
	assert.Equal(t, scoring.BandGood, got[0].Interpretation)
	assert.NotEmpty(t, got[0].Advice)
}

func TestAuthenticated_RemoteFailureFallsBackToLocal(t *testing.T) {
	repo, backend, cache := newRepo(t, true)
	ctx := context.Background()
	require.NoError(t, cache.SaveGuestHistory(ctx, []survey.ScoreRecord{{ID: "local", CreatedAt: at(4)}}))
	backend.FailNext(remote.OpHistory, &remote.ErrUnavailable{Err: errors.New("down")})

	got, err := repo.GetHistory(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "local", got[0].ID)
}

func TestRecordFromPayload_SynthesizesMissingPillars(t *testing.T) {
	tests := []struct {
		name      string
		payload   remote.RecordPayload
		wantScore float64
		wantMax   int
	}{
		{
			name:      "no breakdown",
			payload:   remote.RecordPayload{ID: "p", TotalScore: 60, MaxPossibleScore: 75},
			wantScore: 4,
			wantMax:   75,
		},
		{
			name: "partial breakdown",
			payload: remote.RecordPayload{
				ID: "p", TotalScore: 40, MaxPossibleScore: 80,
				PillarScores: []scoring.PillarScore{{Pillar: scoring.PillarIncomeStream, Score: 2}},
			},
			wantScore: 2.5,
			wantMax:   80,
		},
		{
			name:      "missing max uses catalog",
			payload:   remote.RecordPayload{ID: "p", TotalScore: 37.5},
			wantScore: 2.5,
			wantMax:   75,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := RecordFromPayload(tt.payload)
			assert.True(t, rec.Approximate)
			assert.Equal(t, tt.wantMax, rec.MaxPossibleScore)
			require.Len(t, rec.PillarScores, len(scoring.Pillars))

			budget := 0
			for i, ps := range rec.PillarScores {
				assert.Equal(t, scoring.Pillars[i], ps.Pillar)
				assert.InDelta(t, tt.wantScore, ps.Score, 1e-9)
				assert.Equal(t, scoring.InterpretationBand(tt.wantScore), ps.Band)
				budget += ps.MaxPoints
			}
			assert.Equal(t, tt.wantMax, budget)
			assert.NotEmpty(t, rec.Advice)
		})
	}
}

func TestRecordFromPayload_RoundsFractionalTotal(t *testing.T) {
	rec := RecordFromPayload(remote.RecordPayload{TotalScore: 59.6, MaxPossibleScore: 75})
	assert.Equal(t, 60, rec.TotalScore)
	assert.Equal(t, scoring.BandExcellent, rec.Interpretation)
}

func allThrees(hasChildren bool) map[string]int {
	out := map[string]int{}
	for _, q := range scoring.Questions(hasChildren) {
		out[q.ID] = 3
	}
	return out
}
