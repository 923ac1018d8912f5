package remote

import (
	"math"
	"time"

	"github.com/abhisek/finwell/internal/scoring"
	"github.com/abhisek/finwell/internal/survey"
)

// CreateSessionRequest opens a session on the service.
type CreateSessionRequest struct {
	LocalID    string `json:"local_id,omitempty"`
	TotalSteps int    `json:"total_steps"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

// SessionState is the full merged state of a session, sent on every update.
type SessionState struct {
	CurrentStep int            `json:"current_step"`
	TotalSteps  int            `json:"total_steps"`
	Responses   map[string]int `json:"responses"`
	Status      survey.Status  `json:"status"`
}

// ScoreRequest asks the service to score (and optionally record) a set of
// responses.
type ScoreRequest struct {
	SessionID string          `json:"session_id,omitempty"`
	Responses map[string]int  `json:"responses"`
	Profile   *survey.Profile `json:"profile,omitempty"`
}

// RecordPayload is the service's representation of a scored assessment.
// TotalScore may be fractional and PillarScores may be incomplete or absent.
type RecordPayload struct {
	ID               string                `json:"id"`
	Profile          *survey.Profile       `json:"profile,omitempty"`
	Responses        map[string]int        `json:"responses,omitempty"`
	TotalScore       float64               `json:"total_score"`
	MaxPossibleScore int                   `json:"max_possible_score"`
	Interpretation   scoring.Band          `json:"interpretation,omitempty"`
	PillarScores     []scoring.PillarScore `json:"pillar_scores,omitempty"`
	Advice           []string              `json:"advice,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
}

type historyResponse struct {
	Submissions []RecordPayload `json:"submissions"`
}

// RoundedTotal converts the service total to the whole-point scale used
// locally.
func (p *RecordPayload) RoundedTotal() int {
	return int(math.Round(p.TotalScore))
}
