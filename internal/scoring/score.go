package scoring

import (
	"errors"
	"fmt"
)

// ErrInvalidResponses is wrapped by every ValidationError.
var ErrInvalidResponses = errors.New("invalid survey responses")

// ValidationError reports a response set that cannot be scored.
type ValidationError struct {
	QuestionID string
	Reason     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("question %s: %s", e.QuestionID, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidResponses }

// Options carries the profile flags that change the catalog.
type Options struct {
	HasChildren bool
}

// PillarScore is the scored state of a single pillar.
type PillarScore struct {
	Pillar     Pillar  `json:"pillar_key"`
	Score      float64 `json:"score"`
	Points     int     `json:"points"`
	MaxPoints  int     `json:"max_points"`
	Percentage float64 `json:"percentage"`
	Band       Band    `json:"interpretation_band"`
}

// Result is the output of ComputeScore.
type Result struct {
	TotalScore       int           `json:"total_score"`
	MaxPossibleScore int           `json:"max_possible_score"`
	PillarScores     []PillarScore `json:"pillar_scores"`
	Interpretation   Band          `json:"interpretation"`
}

// Validate checks that every applicable question has an answer in range.
// Unknown keys and the conditional answer for respondents without children
// are ignored.
func Validate(responses map[string]int, opts Options) error {
	for _, q := range Questions(opts.HasChildren) {
		v, ok := responses[q.ID]
		if !ok {
			return &ValidationError{QuestionID: q.ID, Reason: "missing answer"}
		}
		if v < MinAnswer || v > MaxAnswer {
			return &ValidationError{
				QuestionID: q.ID,
				Reason:     fmt.Sprintf("answer %d out of range %d-%d", v, MinAnswer, MaxAnswer),
			}
		}
	}
	return nil
}

// ComputeScore scores a complete response set. It is deterministic and
// performs no I/O.
func ComputeScore(responses map[string]int, opts Options) (*Result, error) {
	if err := Validate(responses, opts); err != nil {
		return nil, err
	}

	sums := make(map[Pillar]int, len(Pillars))
	counts := make(map[Pillar]int, len(Pillars))
	for _, q := range Questions(opts.HasChildren) {
		sums[q.Pillar] += responses[q.ID]
		counts[q.Pillar]++
	}

	pillars := make([]PillarScore, 0, len(Pillars))
	for _, p := range Pillars {
		n := counts[p]
		var score float64
		if n > 0 {
			score = float64(sums[p]) / float64(n)
		}
		pillars = append(pillars, PillarScore{
			Pillar:     p,
			Score:      score,
			Points:     sums[p],
			MaxPoints:  n * MaxAnswer,
			Percentage: score * 100 / MaxAnswer,
			Band:       InterpretationBand(score),
		})
	}

	total := TotalFromPillars(pillars)
	return &Result{
		TotalScore:       total,
		MaxPossibleScore: MaxPossibleScore(opts.HasChildren),
		PillarScores:     pillars,
		Interpretation:   OverallInterpretation(total),
	}, nil
}

// TotalFromPillars sums the per-pillar contributions.
func TotalFromPillars(pillars []PillarScore) int {
	total := 0
	for _, p := range pillars {
		total += p.Points
	}
	return total
}

// TotalFromResponses sums the flat response list over applicable questions.
// For valid input it always equals TotalFromPillars of ComputeScore's result.
func TotalFromResponses(responses map[string]int, opts Options) int {
	total := 0
	for _, q := range Questions(opts.HasChildren) {
		total += responses[q.ID]
	}
	return total
}

// MaxFromPillars sums the pillar budgets.
func MaxFromPillars(pillars []PillarScore) int {
	total := 0
	for _, p := range pillars {
		total += p.MaxPoints
	}
	return total
}
