// Package survey holds the data model shared by the session, history,
// migration and assessment packages.
package survey

import (
	"time"

	"github.com/abhisek/finwell/internal/scoring"
)

// Profile is the respondent's demographic profile. It gates the conditional
// question and is sent with submissions.
type Profile struct {
	Name             string `json:"name,omitempty"`
	AgeRange         string `json:"age_range,omitempty"`
	Gender           string `json:"gender,omitempty"`
	EmploymentStatus string `json:"employment_status,omitempty"`
	IncomeRange      string `json:"income_range,omitempty"`
	CompanyCode      string `json:"company_code,omitempty"`
	HasChildren      bool   `json:"has_children"`
	Email            string `json:"email,omitempty"`
	Phone            string `json:"phone,omitempty"`
}

// ScoringOptions returns the scoring flags derived from the profile.
func (p *Profile) ScoringOptions() scoring.Options {
	if p == nil {
		return scoring.Options{}
	}
	return scoring.Options{HasChildren: p.HasChildren}
}

// Status is the lifecycle state of a survey session.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// ScoreRecord is an immutable, completed assessment result.
type ScoreRecord struct {
	ID               string                `json:"id"`
	Profile          *Profile              `json:"profile,omitempty"`
	Responses        map[string]int        `json:"responses,omitempty"`
	TotalScore       int                   `json:"total_score"`
	MaxPossibleScore int                   `json:"max_possible_score"`
	Interpretation   scoring.Band          `json:"interpretation,omitempty"`
	PillarScores     []scoring.PillarScore `json:"pillar_scores,omitempty"`
	Advice           []string              `json:"advice,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`

	// Approximate marks pillar scores synthesized from a single overall value
	// rather than computed per pillar.
	Approximate bool `json:"approximate,omitempty"`
}
