package scoring

// Pillar is one of the seven independently scored financial-health dimensions.
type Pillar string

const (
	PillarIncomeStream       Pillar = "income_stream"
	PillarMonthlyExpenses    Pillar = "monthly_expenses"
	PillarSavingsHabit       Pillar = "savings_habit"
	PillarDebtManagement     Pillar = "debt_management"
	PillarRetirementPlanning Pillar = "retirement_planning"
	PillarProtection         Pillar = "protection"
	PillarFuturePlanning     Pillar = "future_planning"
)

// Pillars lists every pillar in declared order. Declared order breaks ties
// when ranking pillars for advice.
var Pillars = []Pillar{
	PillarIncomeStream,
	PillarMonthlyExpenses,
	PillarSavingsHabit,
	PillarDebtManagement,
	PillarRetirementPlanning,
	PillarProtection,
	PillarFuturePlanning,
}

// Answer scale bounds for every single-choice question.
const (
	MinAnswer = 1
	MaxAnswer = 5
)

// Maximum totals for the two catalog variants.
const (
	BaseMaxScore     = 75
	ChildrenMaxScore = 80
)

// ConditionalQuestionID is the child/education planning question, asked only
// when the profile reports children.
const ConditionalQuestionID = "q16"

// Question is a single-choice catalog entry tagged with exactly one pillar.
type Question struct {
	ID          string
	Pillar      Pillar
	Text        string
	Conditional bool
}

var catalog = []Question{
	{ID: "q1", Pillar: PillarIncomeStream, Text: "How stable is your main source of income?"},
	{ID: "q2", Pillar: PillarIncomeStream, Text: "Do you have more than one source of income?"},
	{ID: "q3", Pillar: PillarMonthlyExpenses, Text: "How often do your monthly expenses stay within your budget?"},
	{ID: "q4", Pillar: PillarMonthlyExpenses, Text: "Do you track where your money goes each month?"},
	{ID: "q5", Pillar: PillarSavingsHabit, Text: "How much of your income do you save each month?"},
	{ID: "q6", Pillar: PillarSavingsHabit, Text: "How many months of expenses does your emergency fund cover?"},
	{ID: "q7", Pillar: PillarSavingsHabit, Text: "Do you save before you spend?"},
	{ID: "q8", Pillar: PillarDebtManagement, Text: "What share of your income goes to debt repayments?"},
	{ID: "q9", Pillar: PillarDebtManagement, Text: "Do you pay your credit card balance in full each month?"},
	{ID: "q10", Pillar: PillarRetirementPlanning, Text: "Are you contributing regularly to a retirement fund?"},
	{ID: "q11", Pillar: PillarRetirementPlanning, Text: "Do you know how much you will need at retirement?"},
	{ID: "q12", Pillar: PillarProtection, Text: "Do you have health insurance that covers major expenses?"},
	{ID: "q13", Pillar: PillarProtection, Text: "Would your dependants be protected if you lost your income?"},
	{ID: "q14", Pillar: PillarFuturePlanning, Text: "Do you have written financial goals for the next five years?"},
	{ID: "q15", Pillar: PillarFuturePlanning, Text: "Are you investing towards your long-term goals?"},
	{ID: ConditionalQuestionID, Pillar: PillarFuturePlanning, Text: "Are you saving for your children's education?", Conditional: true},
}

var byID = func() map[string]Question {
	m := make(map[string]Question, len(catalog))
	for _, q := range catalog {
		m[q.ID] = q
	}
	return m
}()

// Catalog returns every question, including the conditional one.
func Catalog() []Question {
	out := make([]Question, len(catalog))
	copy(out, catalog)
	return out
}

// Questions returns the questions applicable to a respondent.
func Questions(hasChildren bool) []Question {
	out := make([]Question, 0, len(catalog))
	for _, q := range catalog {
		if q.Conditional && !hasChildren {
			continue
		}
		out = append(out, q)
	}
	return out
}

// QuestionByID looks up a catalog entry.
func QuestionByID(id string) (Question, bool) {
	q, ok := byID[id]
	return q, ok
}

// IsKnownQuestion reports whether id belongs to the catalog.
func IsKnownQuestion(id string) bool {
	_, ok := byID[id]
	return ok
}

// TotalSteps is the number of answer steps a respondent goes through.
func TotalSteps(hasChildren bool) int {
	return len(Questions(hasChildren))
}

// PillarBudget returns the maximum points a pillar can contribute.
func PillarBudget(p Pillar, hasChildren bool) int {
	n := 0
	for _, q := range Questions(hasChildren) {
		if q.Pillar == p {
			n++
		}
	}
	return n * MaxAnswer
}

// MaxPossibleScore returns 75, or 80 when the conditional question applies.
func MaxPossibleScore(hasChildren bool) int {
	if hasChildren {
		return ChildrenMaxScore
	}
	return BaseMaxScore
}
