package survey

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/abhisek/finwell/internal/scoring"
)

func TestSessionApply_StepNeverRegresses(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewSession("s1", 15, now)

	s.Apply(5, map[string]int{"q1": 3, "q2": 4}, now.Add(time.Second))
	s.Apply(3, map[string]int{"q3": 5}, now.Add(2*time.Second))

	if s.CurrentStep != 5 {
		t.Errorf("CurrentStep = %d, want 5", s.CurrentStep)
	}
	want := map[string]int{"q1": 3, "q2": 4, "q3": 5}
	if len(s.Responses) != len(want) {
		t.Fatalf("responses = %v, want %v", s.Responses, want)
	}
	for k, v := range want {
		if s.Responses[k] != v {
			t.Errorf("responses[%s] = %d, want %d", k, s.Responses[k], v)
		}
	}
	if !s.LastActivityAt.Equal(now.Add(2 * time.Second)) {
		t.Errorf("LastActivityAt = %v, want %v", s.LastActivityAt, now.Add(2*time.Second))
	}
}

func TestSessionApply_RunningMax(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	s := NewSession("s1", 16, time.Now())

	maxSeen := 0
	for i := 0; i < 300; i++ {
		step := rng.IntN(17)
		s.Apply(step, nil, time.Now())
		if step > maxSeen {
			maxSeen = step
		}
		if s.CurrentStep != maxSeen {
			t.Fatalf("after call %d (step=%d): CurrentStep = %d, want %d", i, step, s.CurrentStep, maxSeen)
		}
	}
}

func TestSessionApply_ClampsToTotalSteps(t *testing.T) {
	s := NewSession("s1", 15, time.Now())
	s.Apply(40, nil, time.Now())
	if s.CurrentStep != 15 {
		t.Errorf("CurrentStep = %d, want 15", s.CurrentStep)
	}
	s.Apply(-3, nil, time.Now())
	if s.CurrentStep != 15 {
		t.Errorf("CurrentStep = %d after negative step, want 15", s.CurrentStep)
	}
}

func TestSessionApply_LastWriteWinsAndRejects(t *testing.T) {
	s := NewSession("s1", 15, time.Now())
	s.Apply(1, map[string]int{"q1": 2}, time.Now())
	rejected := s.Apply(2, map[string]int{"q1": 5, "bogus": 3, "q2": 9}, time.Now())

	if s.Responses["q1"] != 5 {
		t.Errorf("q1 = %d, want 5", s.Responses["q1"])
	}
	if _, ok := s.Responses["bogus"]; ok {
		t.Error("unknown question should not be merged")
	}
	if _, ok := s.Responses["q2"]; ok {
		t.Error("out-of-range answer should not be merged")
	}
	if len(rejected) != 2 {
		t.Errorf("rejected = %v, want 2 entries", rejected)
	}

	rejected = s.Apply(3, map[string]int{"q3": 4, scoring.ConditionalQuestionID: 5}, time.Now())
	if _, ok := s.Responses[scoring.ConditionalQuestionID]; ok {
		t.Error("conditional answer merged into a session without children")
	}
	if len(rejected) != 1 || rejected[0] != scoring.ConditionalQuestionID {
		t.Errorf("rejected = %v, want [%s]", rejected, scoring.ConditionalQuestionID)
	}
	if s.Responses["q3"] != 4 {
		t.Errorf("q3 = %d, want 4", s.Responses["q3"])
	}

	withChildren := NewSession("s2", scoring.TotalSteps(true), time.Now())
	if !withChildren.HasChildren() || s.HasChildren() {
		t.Error("HasChildren should follow TotalSteps")
	}
	if rejected := withChildren.Apply(1, map[string]int{scoring.ConditionalQuestionID: 5}, time.Now()); len(rejected) != 0 {
		t.Errorf("rejected = %v, want none", rejected)
	}
	if withChildren.Responses[scoring.ConditionalQuestionID] != 5 {
		t.Error("conditional answer should be kept when the session has children")
	}
}

func TestSessionMatches(t *testing.T) {
	s := NewSession("local-1", 15, time.Now())
	s.RemoteID = "remote-9"
	s.ID = s.RemoteID

	for _, id := range []string{"local-1", "remote-9"} {
		if !s.Matches(id) {
			t.Errorf("expected session to match %q", id)
		}
	}
	if s.Matches("other") || s.Matches("") {
		t.Error("unexpected match")
	}
}

func TestSessionClone_IsDeep(t *testing.T) {
	s := NewSession("s1", 15, time.Now())
	s.Apply(1, map[string]int{"q1": 1}, time.Now())

	c := s.Clone()
	c.Responses["q1"] = 5
	if s.Responses["q1"] != 1 {
		t.Error("clone shares responses map with original")
	}
}
