package scoring

import "sort"

// MaxPillarAdvice caps the number of pillar-specific messages.
const MaxPillarAdvice = 3

// adviceThreshold is the pillar score below which a pillar gets advice.
const adviceThreshold = 3.0

var overallAdvice = map[Band]string{
	BandExcellent:        "Your finances are in excellent shape. Keep reviewing your plan once a year.",
	BandGood:             "You are on solid ground. A few targeted changes will make your position stronger.",
	BandNeedsImprovement: "Some areas of your finances need attention. Start with the pillars highlighted below.",
	BandAtRisk:           "Your finances are under strain. Focus on the most urgent areas first and consider talking to an adviser.",
}

const maintenanceAdvice = "No pillar is below the healthy range. Maintain your current habits and check in again in six months."

// pillarAdvice entries go from mild to urgent.
var pillarAdvice = map[Pillar][]string{
	PillarIncomeStream: {
		"Look for ways to grow your income, such as upskilling or negotiating a raise.",
		"Build a second income stream so a single disruption does not stop your cash flow.",
		"Your income is fragile. Prioritise stabilising your main source of income now.",
	},
	PillarMonthlyExpenses: {
		"Review your subscriptions and recurring bills for easy savings.",
		"Set a monthly budget and track spending against it every week.",
		"Your spending exceeds what you can sustain. Cut non-essential expenses immediately.",
	},
	PillarSavingsHabit: {
		"Automate a small transfer into savings on payday.",
		"Aim for an emergency fund covering three months of expenses.",
		"You have little or no safety net. Start an emergency fund today, even with a small amount.",
	},
	PillarDebtManagement: {
		"Pay more than the minimum on your highest-interest debt.",
		"List all debts and plan a repayment order to reduce interest costs.",
		"Debt repayments are straining your income. Stop taking new debt and seek a consolidation plan.",
	},
	PillarRetirementPlanning: {
		"Check whether you can increase your retirement contributions.",
		"Estimate how much you need at retirement and set a monthly target.",
		"You are not preparing for retirement. Start regular contributions as soon as possible.",
	},
	PillarProtection: {
		"Review your insurance coverage once a year.",
		"Make sure your health cover handles major medical costs.",
		"You and your dependants are exposed. Get basic health and life cover in place.",
	},
	PillarFuturePlanning: {
		"Write down your financial goals and review them every quarter.",
		"Start investing towards your long-term goals with a simple, diversified plan.",
		"You have no plan for the future. Set one concrete savings goal this month.",
	},
}

// GenerateAdvice builds the advice list for a scored assessment: the
// overall-band message followed by up to three messages for the weakest
// pillars, or a single maintenance message when no pillar is below 3.0.
func GenerateAdvice(pillars []PillarScore, total int) []string {
	advice := []string{overallAdvice[OverallInterpretation(total)]}

	weak := make([]PillarScore, 0, len(pillars))
	for _, p := range pillars {
		if p.Score < adviceThreshold {
			weak = append(weak, p)
		}
	}
	if len(weak) == 0 {
		return append(advice, maintenanceAdvice)
	}

	sort.SliceStable(weak, func(i, j int) bool {
		if weak[i].Score != weak[j].Score {
			return weak[i].Score < weak[j].Score
		}
		return pillarOrder(weak[i].Pillar) < pillarOrder(weak[j].Pillar)
	})
	if len(weak) > MaxPillarAdvice {
		weak = weak[:MaxPillarAdvice]
	}

	for _, p := range weak {
		if msg, ok := PillarAdvice(p.Pillar, p.Score); ok {
			advice = append(advice, msg)
		}
	}
	return advice
}

// PillarAdvice picks the catalog entry for a pillar scoring below 3.0.
// Lower scores select later, more urgent entries.
func PillarAdvice(p Pillar, score float64) (string, bool) {
	entries := pillarAdvice[p]
	if len(entries) == 0 || score >= adviceThreshold {
		return "", false
	}
	return entries[adviceIndex(score, len(entries))], true
}

// adviceIndex maps [1.0, 3.0) onto entry indices, clamped at both ends.
func adviceIndex(score float64, n int) int {
	span := adviceThreshold - MinAnswer
	idx := int((adviceThreshold - score) * float64(n) / span)
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return idx
}

func pillarOrder(p Pillar) int {
	for i, q := range Pillars {
		if q == p {
			return i
		}
	}
	return len(Pillars)
}
