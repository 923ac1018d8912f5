package survey

import (
	"maps"
	"time"

	"github.com/abhisek/finwell/internal/scoring"
)

// Session is an in-progress assessment attempt.
type Session struct {
	ID             string         `json:"session_id"`
	LocalID        string         `json:"local_id,omitempty"`
	RemoteID       string         `json:"remote_id,omitempty"`
	CurrentStep    int            `json:"current_step"`
	TotalSteps     int            `json:"total_steps"`
	Responses      map[string]int `json:"responses"`
	Email          string         `json:"email,omitempty"`
	Phone          string         `json:"phone,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	LastActivityAt time.Time      `json:"last_activity_at"`
	Status         Status         `json:"status"`
}

// NewSession creates an in-progress session at step 0.
func NewSession(id string, totalSteps int, now time.Time) *Session {
	if totalSteps < 0 {
		totalSteps = 0
	}
	return &Session{
		ID:             id,
		LocalID:        id,
		TotalSteps:     totalSteps,
		Responses:      make(map[string]int),
		StartedAt:      now,
		LastActivityAt: now,
		Status:         StatusInProgress,
	}
}

// Matches reports whether id names this session, either by its current
// identifier or by the local identifier it was created with.
func (s *Session) Matches(id string) bool {
	if s == nil || id == "" {
		return false
	}
	return id == s.ID || id == s.LocalID || id == s.RemoteID
}

// HasChildren reports whether the session includes the conditional question.
// It is derived from TotalSteps so mirrors written before the flag existed
// still classify correctly.
func (s *Session) HasChildren() bool {
	return s.TotalSteps >= scoring.TotalSteps(true)
}

// Apply merges an update into the session. Responses merge key-wise with the
// delta winning. The step never regresses and never exceeds TotalSteps.
// Entries outside the question catalog or the answer scale, and the
// conditional question on a session without children, are returned as
// rejected and not merged.
func (s *Session) Apply(step int, delta map[string]int, at time.Time) (rejected []string) {
	if s.Responses == nil {
		s.Responses = make(map[string]int, len(delta))
	}
	for id, v := range delta {
		if !scoring.IsKnownQuestion(id) || v < scoring.MinAnswer || v > scoring.MaxAnswer ||
			(id == scoring.ConditionalQuestionID && !s.HasChildren()) {
			rejected = append(rejected, id)
			continue
		}
		s.Responses[id] = v
	}

	if step > s.TotalSteps {
		step = s.TotalSteps
	}
	if step > s.CurrentStep {
		s.CurrentStep = step
	}
	s.LastActivityAt = at
	return rejected
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Responses = maps.Clone(s.Responses)
	if c.Responses == nil {
		c.Responses = make(map[string]int)
	}
	return &c
}
