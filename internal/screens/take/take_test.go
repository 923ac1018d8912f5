package take

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/finwell/internal/assessment"
	"github.com/abhisek/finwell/internal/identity"
	"github.com/abhisek/finwell/internal/remote"
	"github.com/abhisek/finwell/internal/scoring"
	"github.com/abhisek/finwell/internal/session"
	"github.com/abhisek/finwell/internal/store"
	"github.com/abhisek/finwell/internal/survey"
)

type update struct {
	id    string
	step  int
	delta map[string]int
}

// mockSessions implements Sessions for testing.
type mockSessions struct {
	mu        sync.Mutex
	current   *survey.Session
	starts    []int
	updates   []update
	startedID string
}

func (m *mockSessions) ResumeSession(_ context.Context) (*survey.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, false
	}
	return m.current.Clone(), true
}

func (m *mockSessions) StartSession(_ context.Context, totalSteps int, _ session.Contact) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts = append(m.starts, totalSteps)
	id := m.startedID
	if id == "" {
		id = "local-1"
	}
	return id
}

func (m *mockSessions) UpdateSession(_ context.Context, id string, step int, delta map[string]int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, update{id: id, step: step, delta: delta})
}

// mockSubmitter implements Submitter for testing.
type mockSubmitter struct {
	inputs []assessment.SubmitInput
	errs   []error
}

func (m *mockSubmitter) Submit(_ context.Context, in assessment.SubmitInput) (*survey.ScoreRecord, error) {
	m.inputs = append(m.inputs, in)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return nil, err
	}
	res, err := scoring.ComputeScore(in.Responses, in.Profile.ScoringOptions())
	if err != nil {
		return nil, err
	}
	return &survey.ScoreRecord{
		ID:               "rec-1",
		Responses:        in.Responses,
		TotalScore:       res.TotalScore,
		MaxPossibleScore: res.MaxPossibleScore,
		Interpretation:   res.Interpretation,
		PillarScores:     res.PillarScores,
	}, nil
}

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func specialKey(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

func testTakeScreen(opts Options) (*TakeScreen, *mockSessions, *mockSubmitter) {
	sessions := &mockSessions{}
	submitter := &mockSubmitter{}
	return New(context.Background(), sessions, submitter, opts), sessions, submitter
}

// send delivers msg and returns the screen and command.
func send(t *testing.T, s *TakeScreen, msg tea.Msg) (*TakeScreen, tea.Cmd) {
	t.Helper()
	m, cmd := s.Update(msg)
	ts, ok := m.(*TakeScreen)
	if !ok {
		t.Fatalf("Update returned %T", m)
	}
	return ts, cmd
}

// run executes cmd and feeds its message back into the screen.
func run(t *testing.T, s *TakeScreen, cmd tea.Cmd) *TakeScreen {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	s, _ = send(t, s, cmd())
	return s
}

func start(t *testing.T, s *TakeScreen) *TakeScreen {
	t.Helper()
	return run(t, s, s.Init())
}

func answerAll(t *testing.T, s *TakeScreen, r rune) *TakeScreen {
	t.Helper()
	for s.phase == phaseAsking {
		var cmd tea.Cmd
		s, cmd = send(t, s, keyPress(r))
		s = run(t, s, cmd)
	}
	return s
}

func TestTakeScreen_StartsSessionWhenNothingResumable(t *testing.T) {
	s, sessions, _ := testTakeScreen(Options{})
	s = start(t, s)

	if len(sessions.starts) != 1 || sessions.starts[0] != scoring.TotalSteps(false) {
		t.Fatalf("starts = %v, want [%d]", sessions.starts, scoring.TotalSteps(false))
	}
	if s.phase != phaseAsking || s.index != 0 {
		t.Errorf("phase = %v index = %d, want asking at 0", s.phase, s.index)
	}
	if len(s.questions) != 15 {
		t.Errorf("questions = %d, want 15", len(s.questions))
	}
	if s.resumed {
		t.Error("new session reported as resumed")
	}
}

func TestTakeScreen_ChildrenProfileAsksConditionalQuestion(t *testing.T) {
	s, sessions, _ := testTakeScreen(Options{Profile: &survey.Profile{HasChildren: true}})
	s = start(t, s)

	if sessions.starts[0] != scoring.TotalSteps(true) {
		t.Errorf("total steps = %d, want %d", sessions.starts[0], scoring.TotalSteps(true))
	}
	last := s.questions[len(s.questions)-1]
	if last.ID != scoring.ConditionalQuestionID {
		t.Errorf("last question = %s, want %s", last.ID, scoring.ConditionalQuestionID)
	}
}

func TestTakeScreen_ResumeSkipsAnsweredQuestions(t *testing.T) {
	s, sessions, _ := testTakeScreen(Options{})
	sessions.current = &survey.Session{
		ID:         "remote-7",
		TotalSteps: 15,
		Responses:  map[string]int{"q1": 4, "q2": 2},
		Status:     survey.StatusInProgress,
	}
	s = start(t, s)

	if len(sessions.starts) != 0 {
		t.Errorf("started %d sessions, want 0", len(sessions.starts))
	}
	if !s.resumed || s.sessionID != "remote-7" {
		t.Errorf("resumed = %v id = %q", s.resumed, s.sessionID)
	}
	if s.index != 2 {
		t.Errorf("index = %d, want 2", s.index)
	}
	if !strings.Contains(s.render(), "Question 3 of 15") {
		t.Error("expected progress header for question 3")
	}
}

func TestTakeScreen_DigitAnswersAndSaves(t *testing.T) {
	s, sessions, _ := testTakeScreen(Options{})
	s = start(t, s)

	s, cmd := send(t, s, keyPress('3'))
	if s.index != 1 {
		t.Errorf("index = %d, want 1", s.index)
	}
	s = run(t, s, cmd)

	if len(sessions.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(sessions.updates))
	}
	u := sessions.updates[0]
	if u.id != "local-1" || u.step != 1 || len(u.delta) != 1 || u.delta["q1"] != 3 {
		t.Errorf("update = %+v, want local-1 step 1 {q1:3}", u)
	}
}

func TestTakeScreen_ArrowKeysAndEnter(t *testing.T) {
	s, sessions, _ := testTakeScreen(Options{})
	s = start(t, s)

	s, _ = send(t, s, specialKey(tea.KeyDown))
	s, _ = send(t, s, specialKey(tea.KeyDown))
	s, _ = send(t, s, specialKey(tea.KeyDown))
	s, _ = send(t, s, specialKey(tea.KeyUp))
	s, cmd := send(t, s, specialKey(tea.KeyEnter))
	run(t, s, cmd)

	if got := sessions.updates[0].delta["q1"]; got != 3 {
		t.Errorf("q1 = %d, want 3", got)
	}
}

func TestTakeScreen_BackRestoresPreviousAnswer(t *testing.T) {
	s, sessions, _ := testTakeScreen(Options{})
	s = start(t, s)

	s, cmd := send(t, s, keyPress('4'))
	s = run(t, s, cmd)
	s, _ = send(t, s, specialKey(tea.KeyLeft))

	if s.index != 0 {
		t.Fatalf("index = %d, want 0", s.index)
	}
	if s.choice.Selected != 3 {
		t.Errorf("selected = %d, want previous answer preselected", s.choice.Selected)
	}

	s, cmd = send(t, s, keyPress('2'))
	run(t, s, cmd)
	last := sessions.updates[len(sessions.updates)-1]
	if last.step != 1 || last.delta["q1"] != 2 {
		t.Errorf("update = %+v, want step 1 {q1:2}", last)
	}
}

func TestTakeScreen_SubmitAfterLastAnswer(t *testing.T) {
	s, sessions, submitter := testTakeScreen(Options{})
	s = start(t, s)
	s = answerAll(t, s, '4')

	if s.phase != phaseReview {
		t.Fatalf("phase = %v, want review", s.phase)
	}
	if len(sessions.updates) != 15 {
		t.Errorf("updates = %d, want 15", len(sessions.updates))
	}
	if len(submitter.inputs) != 0 {
		t.Fatal("submitted before confirmation")
	}

	s, cmd := send(t, s, specialKey(tea.KeyEnter))
	if s.phase != phaseSubmitting {
		t.Errorf("phase = %v, want submitting", s.phase)
	}
	s = run(t, s, cmd)

	if len(submitter.inputs) != 1 {
		t.Fatalf("submits = %d, want 1", len(submitter.inputs))
	}
	in := submitter.inputs[0]
	if in.SessionID != "local-1" || len(in.Responses) != 15 {
		t.Errorf("input = %+v", in)
	}
	if s.phase != phaseDone || s.Record() == nil {
		t.Fatalf("phase = %v record = %v", s.phase, s.Record())
	}
	if s.Record().TotalScore != 60 {
		t.Errorf("total = %d, want 60", s.Record().TotalScore)
	}
	if !strings.Contains(s.render(), "60 / 75") {
		t.Error("expected score in view")
	}

	_, cmd = send(t, s, keyPress('q'))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected QuitMsg")
	}
}

func TestTakeScreen_SubmitUsesAdoptedSessionID(t *testing.T) {
	s, sessions, submitter := testTakeScreen(Options{})
	s = start(t, s)
	s = answerAll(t, s, '5')

	sessions.current = &survey.Session{ID: "remote-1", LocalID: "local-1", RemoteID: "remote-1", TotalSteps: 15, Status: survey.StatusInProgress}
	s, cmd := send(t, s, specialKey(tea.KeyEnter))
	run(t, s, cmd)

	if got := submitter.inputs[0].SessionID; got != "remote-1" {
		t.Errorf("session id = %q, want remote-1", got)
	}
}

func TestTakeScreen_SubmitFailureAllowsRetry(t *testing.T) {
	s, _, submitter := testTakeScreen(Options{})
	submitter.errs = []error{&assessment.SubmitError{
		Message:   "We couldn't reach the scoring service.",
		Retryable: true,
		Err:       &remote.ErrUnavailable{},
	}}
	s = start(t, s)
	s = answerAll(t, s, '3')

	s, cmd := send(t, s, specialKey(tea.KeyEnter))
	s = run(t, s, cmd)

	if s.phase != phaseReview || !s.retryable {
		t.Fatalf("phase = %v retryable = %v", s.phase, s.retryable)
	}
	if !strings.Contains(s.render(), "couldn't reach") {
		t.Error("expected error message in view")
	}

	s, cmd = send(t, s, specialKey(tea.KeyEnter))
	s = run(t, s, cmd)
	if s.phase != phaseDone || len(submitter.inputs) != 2 {
		t.Errorf("phase = %v submits = %d", s.phase, len(submitter.inputs))
	}
}

func TestTakeScreen_ProfileRequiredMessage(t *testing.T) {
	s, _, submitter := testTakeScreen(Options{})
	submitter.errs = []error{assessment.ErrProfileRequired}
	s = start(t, s)
	s = answerAll(t, s, '3')

	s, cmd := send(t, s, specialKey(tea.KeyEnter))
	s = run(t, s, cmd)

	if s.retryable || !strings.Contains(s.errMsg, "finwell profile") {
		t.Errorf("errMsg = %q retryable = %v", s.errMsg, s.retryable)
	}
}

func TestTakeScreen_QuitConfirm(t *testing.T) {
	s, _, _ := testTakeScreen(Options{})
	s = start(t, s)

	s, _ = send(t, s, specialKey(tea.KeyEscape))
	if !s.showingQuitConfirm {
		t.Fatal("expected quit confirmation dialog")
	}
	s, _ = send(t, s, keyPress('n'))
	if s.showingQuitConfirm {
		t.Error("expected quit confirmation to be dismissed")
	}

	s, _ = send(t, s, specialKey(tea.KeyEscape))
	_, cmd := send(t, s, keyPress('y'))
	if cmd == nil {
		t.Fatal("expected a command after quit confirmation")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected QuitMsg")
	}
}

func TestTakeScreen_KeysIgnoredWhileLoading(t *testing.T) {
	s, sessions, _ := testTakeScreen(Options{})

	s, cmd := send(t, s, keyPress('3'))
	if cmd != nil || len(sessions.updates) != 0 {
		t.Error("expected no action before the session is ready")
	}
	if !strings.Contains(s.render(), "Loading") {
		t.Error("expected loading view")
	}
}

func TestTakeScreen_GuestSessionStore(t *testing.T) {
	cache := store.NewLocalCache(store.NewMemoryKV())
	sessions := session.NewStore(cache, remote.NewMockBackend(),
		identity.NewResolver(identity.NewMemoryCredentials(nil)), session.Options{})
	t.Cleanup(sessions.Wait)

	s := New(context.Background(), sessions, &mockSubmitter{}, Options{})
	s = start(t, s)
	for range 5 {
		var cmd tea.Cmd
		s, cmd = send(t, s, keyPress('2'))
		s = run(t, s, cmd)
	}

	sess, ok := sessions.ResumeSession(context.Background())
	if !ok {
		t.Fatal("expected resumable session")
	}
	if len(sess.Responses) != 5 || sess.CurrentStep != 5 {
		t.Errorf("responses = %v step = %d", sess.Responses, sess.CurrentStep)
	}

	// A new screen picks up where the first one stopped.
	again := start(t, New(context.Background(), sessions, &mockSubmitter{}, Options{}))
	if !again.resumed || again.index != 5 {
		t.Errorf("resumed = %v index = %d, want resumed at 5", again.resumed, again.index)
	}
}

func TestSubmitMessage(t *testing.T) {
	msg, retry := submitMessage(errors.New("boom"))
	if msg != "boom" || retry {
		t.Errorf("got %q %v", msg, retry)
	}
}
