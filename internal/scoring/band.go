package scoring

// Band is an interpretation bucket for a pillar score or an overall total.
type Band string

const (
	BandExcellent        Band = "excellent"
	BandGood             Band = "good"
	BandNeedsImprovement Band = "needs_improvement"
	BandAtRisk           Band = "at_risk"
)

// Label returns a human-readable band name.
func (b Band) Label() string {
	switch b {
	case BandExcellent:
		return "Excellent"
	case BandGood:
		return "Good"
	case BandNeedsImprovement:
		return "Needs Improvement"
	case BandAtRisk:
		return "At Risk"
	default:
		return string(b)
	}
}

// Rank orders bands from worst (0) to best (3).
func (b Band) Rank() int {
	switch b {
	case BandExcellent:
		return 3
	case BandGood:
		return 2
	case BandNeedsImprovement:
		return 1
	default:
		return 0
	}
}

// InterpretationBand classifies a pillar score on the 0-5 scale.
func InterpretationBand(score float64) Band {
	switch {
	case score >= 4.0:
		return BandExcellent
	case score >= 3.0:
		return BandGood
	case score >= 2.0:
		return BandNeedsImprovement
	default:
		return BandAtRisk
	}
}

// Overall thresholds are absolute points on the 0-75/80 scale. They are not
// rescaled for the 80-point variant.
const (
	OverallExcellentMin        = 60
	OverallGoodMin             = 45
	OverallNeedsImprovementMin = 30
)

// OverallInterpretation classifies a total score.
func OverallInterpretation(total int) Band {
	switch {
	case total >= OverallExcellentMin:
		return BandExcellent
	case total >= OverallGoodMin:
		return BandGood
	case total >= OverallNeedsImprovementMin:
		return BandNeedsImprovement
	default:
		return BandAtRisk
	}
}
