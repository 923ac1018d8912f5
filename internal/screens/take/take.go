// Package take is the interactive survey screen. It resumes the session in
// progress or starts one, records every answer as it is chosen and submits
// the questionnaire once all questions are answered.
package take

import (
	"context"
	"errors"
	"maps"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/bubbles/v2/key"

	"github.com/abhisek/finwell/internal/assessment"
	"github.com/abhisek/finwell/internal/scoring"
	"github.com/abhisek/finwell/internal/session"
	"github.com/abhisek/finwell/internal/survey"
	"github.com/abhisek/finwell/internal/ui/components"
)

// Sessions is the session lifecycle the screen drives.
type Sessions interface {
	ResumeSession(ctx context.Context) (*survey.Session, bool)
	StartSession(ctx context.Context, totalSteps int, contact session.Contact) string
	UpdateSession(ctx context.Context, id string, step int, delta map[string]int)
}

// Submitter scores and records a completed questionnaire.
type Submitter interface {
	Submit(ctx context.Context, in assessment.SubmitInput) (*survey.ScoreRecord, error)
}

// Options configure a new session. Profile decides whether the conditional
// question is asked and is sent with the submission.
type Options struct {
	Profile *survey.Profile
	Contact session.Contact
}

type phase int

const (
	phaseLoading phase = iota
	phaseAsking
	phaseReview
	phaseSubmitting
	phaseDone
)

// ScaleLabels are the option texts for the 1-5 answer scale.
var ScaleLabels = []string{"Not at all", "Rarely", "Sometimes", "Mostly", "Always"}

// TakeScreen walks the respondent through the questionnaire.
type TakeScreen struct {
	ctx       context.Context
	sessions  Sessions
	submitter Submitter
	opts      Options
	keys      keyMap

	phase     phase
	sessionID string
	resumed   bool
	questions []scoring.Question
	responses map[string]int
	index     int
	choice    components.MultiChoice

	record    *survey.ScoreRecord
	errMsg    string
	retryable bool

	showingQuitConfirm bool
	width              int
}

// New creates the screen. Nothing is read until Init runs.
func New(ctx context.Context, sessions Sessions, submitter Submitter, opts Options) *TakeScreen {
	return &TakeScreen{
		ctx:       ctx,
		sessions:  sessions,
		submitter: submitter,
		opts:      opts,
		keys:      defaultKeyMap(),
		responses: make(map[string]int),
	}
}

// Init resumes or starts the session.
func (s *TakeScreen) Init() tea.Cmd {
	return s.loadSession()
}

// Record returns the submitted result, or nil if the survey was left early.
func (s *TakeScreen) Record() *survey.ScoreRecord {
	return s.record
}

// Update handles messages.
func (s *TakeScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		return s, nil

	case sessionReadyMsg:
		s.handleSessionReady(msg)
		return s, nil

	case answerSavedMsg:
		return s, nil

	case submitResultMsg:
		s.handleSubmitResult(msg)
		return s, nil

	case tea.KeyPressMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

func (s *TakeScreen) handleSessionReady(msg sessionReadyMsg) {
	sess := msg.session
	s.sessionID = sess.ID
	s.resumed = msg.resumed
	s.questions = scoring.Questions(sess.HasChildren())
	s.responses = maps.Clone(sess.Responses)
	if s.responses == nil {
		s.responses = make(map[string]int)
	}
	s.goTo(s.nextUnanswered(0))
}

func (s *TakeScreen) handleSubmitResult(msg submitResultMsg) {
	if msg.err != nil {
		s.phase = phaseReview
		s.errMsg, s.retryable = submitMessage(msg.err)
		return
	}
	s.record = msg.record
	s.errMsg = ""
	s.phase = phaseDone
}

func (s *TakeScreen) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, s.keys.Exit) {
		return s, tea.Quit
	}

	if s.showingQuitConfirm {
		switch msg.String() {
		case "y", "Y":
			return s, tea.Quit
		case "n", "N", "esc":
			s.showingQuitConfirm = false
		}
		return s, nil
	}

	switch s.phase {
	case phaseDone:
		switch msg.String() {
		case "q", "enter", "esc":
			return s, tea.Quit
		}
		return s, nil
	case phaseLoading, phaseSubmitting:
		return s, nil
	}

	if key.Matches(msg, s.keys.Quit) {
		s.showingQuitConfirm = true
		return s, nil
	}
	if key.Matches(msg, s.keys.Back) {
		if s.phase == phaseReview {
			s.goTo(len(s.questions) - 1)
		} else if s.index > 0 {
			s.goTo(s.index - 1)
		}
		return s, nil
	}

	if s.phase == phaseReview {
		if key.Matches(msg, s.keys.Submit) {
			return s, s.submit()
		}
		return s, nil
	}

	s.choice, _ = s.choice.Update(msg)
	if !s.choice.Submitted {
		return s, nil
	}
	return s, s.answer(s.choice.Value())
}

// answer records v for the current question and moves on to the next
// unanswered one, or to review when none is left.
func (s *TakeScreen) answer(v int) tea.Cmd {
	q := s.questions[s.index]
	step := s.index + 1
	s.responses[q.ID] = v
	s.errMsg = ""

	save := s.saveAnswer(s.sessionID, step, q.ID, v)
	s.goTo(s.nextUnanswered(s.index + 1))
	return save
}

// goTo shows question i, or the review when i is past the last question.
func (s *TakeScreen) goTo(i int) {
	if i >= len(s.questions) {
		s.index = len(s.questions)
		s.phase = phaseReview
		return
	}
	s.index = i
	s.phase = phaseAsking
	q := s.questions[i]
	s.choice = components.NewMultiChoice(q.Text, ScaleLabels, s.responses[q.ID]-1)
}

// nextUnanswered returns the first unanswered question at or after from,
// wrapping to the start, or len(questions) when all are answered.
func (s *TakeScreen) nextUnanswered(from int) int {
	n := len(s.questions)
	for k := 0; k < n; k++ {
		i := (from + k) % n
		if _, ok := s.responses[s.questions[i].ID]; !ok {
			return i
		}
	}
	return n
}

func (s *TakeScreen) answered() int {
	n := 0
	for _, q := range s.questions {
		if _, ok := s.responses[q.ID]; ok {
			n++
		}
	}
	return n
}

func (s *TakeScreen) loadSession() tea.Cmd {
	ctx, sessions, opts := s.ctx, s.sessions, s.opts
	return func() tea.Msg {
		if sess, ok := sessions.ResumeSession(ctx); ok {
			return sessionReadyMsg{session: sess, resumed: true}
		}
		total := scoring.TotalSteps(opts.Profile.ScoringOptions().HasChildren)
		id := sessions.StartSession(ctx, total, opts.Contact)
		return sessionReadyMsg{session: survey.NewSession(id, total, time.Now().UTC())}
	}
}

func (s *TakeScreen) saveAnswer(id string, step int, questionID string, v int) tea.Cmd {
	ctx, sessions := s.ctx, s.sessions
	return func() tea.Msg {
		sessions.UpdateSession(ctx, id, step, map[string]int{questionID: v})
		return answerSavedMsg{step: step}
	}
}

func (s *TakeScreen) submit() tea.Cmd {
	s.phase = phaseSubmitting
	s.errMsg = ""

	ctx, sessions, submitter := s.ctx, s.sessions, s.submitter
	in := assessment.SubmitInput{
		SessionID: s.sessionID,
		Responses: maps.Clone(s.responses),
		Profile:   s.opts.Profile,
	}
	return func() tea.Msg {
		// The session may have been adopted under its remote identifier.
		if cur, ok := sessions.ResumeSession(ctx); ok && cur.Matches(in.SessionID) {
			in.SessionID = cur.ID
		}
		rec, err := submitter.Submit(ctx, in)
		return submitResultMsg{record: rec, err: err}
	}
}

// submitMessage turns a submission error into text for the respondent and
// reports whether trying again may help.
func submitMessage(err error) (string, bool) {
	var se *assessment.SubmitError
	switch {
	case errors.As(err, &se):
		return se.Message, se.Retryable
	case errors.Is(err, assessment.ErrProfileRequired):
		return "A profile is required while signed in. Run 'finwell profile' first; your answers are kept.", false
	default:
		return err.Error(), false
	}
}
