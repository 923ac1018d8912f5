package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pillarsWithScores(scores map[Pillar]float64) []PillarScore {
	out := make([]PillarScore, 0, len(Pillars))
	for _, p := range Pillars {
		s, ok := scores[p]
		if !ok {
			s = 4
		}
		out = append(out, PillarScore{Pillar: p, Score: s, Band: InterpretationBand(s)})
	}
	return out
}

func TestGenerateAdvice_MaintenanceWhenNothingWeak(t *testing.T) {
	advice := GenerateAdvice(pillarsWithScores(nil), 62)

	require.Len(t, advice, 2)
	assert.Equal(t, overallAdvice[BandExcellent], advice[0])
	assert.Equal(t, maintenanceAdvice, advice[1])
}

func TestGenerateAdvice_LowestThreeInOrder(t *testing.T) {
	pillars := pillarsWithScores(map[Pillar]float64{
		PillarIncomeStream:       2.5,
		PillarSavingsHabit:       1.0,
		PillarDebtManagement:     2.0,
		PillarProtection:         2.9,
		PillarRetirementPlanning: 1.5,
	})

	advice := GenerateAdvice(pillars, 33)

	require.Len(t, advice, 1+MaxPillarAdvice)
	assert.Equal(t, overallAdvice[BandNeedsImprovement], advice[0])
	assert.Equal(t, pillarAdvice[PillarSavingsHabit][2], advice[1])
	assert.Equal(t, pillarAdvice[PillarRetirementPlanning][2], advice[2])
	assert.Equal(t, pillarAdvice[PillarDebtManagement][1], advice[3])
}

func TestGenerateAdvice_TiesBrokenByDeclaredOrder(t *testing.T) {
	pillars := pillarsWithScores(map[Pillar]float64{
		PillarFuturePlanning:  2.0,
		PillarProtection:      2.0,
		PillarMonthlyExpenses: 2.0,
		PillarIncomeStream:    2.0,
	})

	advice := GenerateAdvice(pillars, 40)

	require.Len(t, advice, 4)
	assert.Equal(t, pillarAdvice[PillarIncomeStream][1], advice[1])
	assert.Equal(t, pillarAdvice[PillarMonthlyExpenses][1], advice[2])
	assert.Equal(t, pillarAdvice[PillarProtection][1], advice[3])
}

func TestGenerateAdvice_FewerThanThreeWeak(t *testing.T) {
	pillars := pillarsWithScores(map[Pillar]float64{PillarDebtManagement: 2.8})

	advice := GenerateAdvice(pillars, 50)

	require.Len(t, advice, 2)
	assert.Equal(t, overallAdvice[BandGood], advice[0])
	assert.Equal(t, pillarAdvice[PillarDebtManagement][0], advice[1])
}

func TestPillarAdvice_LowerScoreIsMoreUrgent(t *testing.T) {
	for _, p := range Pillars {
		prev := -1
		for score := 2.99; score >= 1.0; score -= 0.01 {
			msg, ok := PillarAdvice(p, score)
			require.True(t, ok)
			idx := indexOf(pillarAdvice[p], msg)
			require.GreaterOrEqual(t, idx, prev, "pillar %s score %v", p, score)
			prev = idx
		}
		assert.Equal(t, len(pillarAdvice[p])-1, prev, "pillar %s should reach the most urgent entry", p)
	}

	_, ok := PillarAdvice(PillarProtection, 3.0)
	assert.False(t, ok)
}

func TestGenerateAdvice_Deterministic(t *testing.T) {
	responses := uniformResponses(2, true)
	res, err := ComputeScore(responses, Options{HasChildren: true})
	require.NoError(t, err)

	first := GenerateAdvice(res.PillarScores, res.TotalScore)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, GenerateAdvice(res.PillarScores, res.TotalScore))
	}
}

func indexOf(entries []string, msg string) int {
	for i, e := range entries {
		if e == msg {
			return i
		}
	}
	return -1
}
