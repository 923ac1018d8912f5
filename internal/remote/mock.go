package remote

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/abhisek/finwell/internal/scoring"
	"github.com/abhisek/finwell/internal/survey"
)

// MockBackend is a deterministic in-memory Backend for tests. Failures are
// queued per operation and returned in FIFO order before normal handling.
type MockBackend struct {
	mu       sync.Mutex
	calls    map[string]int
	failures map[string][]error
	seq      int

	// CreateSessionGate, when set, blocks CreateSession until it is closed
	// or receives a value.
	CreateSessionGate chan struct{}

	Sessions      map[string]SessionState
	Completed     []string
	Profile       *survey.Profile
	ProfileWrites []string
	Submissions   []ScoreRequest
	// HistoryEntries is returned by History; successful Submit calls append
	// to it.
	HistoryEntries []RecordPayload
}

// NewMockBackend creates an empty MockBackend.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		calls:    make(map[string]int),
		failures: make(map[string][]error),
		Sessions: make(map[string]SessionState),
	}
}

var _ Backend = (*MockBackend)(nil)

// FailNext queues errors for the next calls to op.
func (m *MockBackend) FailNext(op string, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = append(m.failures[op], errs...)
}

// CallCount returns how many times op was called.
func (m *MockBackend) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// SessionState returns the last state recorded for a remote session.
func (m *MockBackend) SessionState(id string) (SessionState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Sessions[id]
	return s, ok
}

// SubmissionCount returns the number of recorded submissions.
func (m *MockBackend) SubmissionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Submissions)
}

// begin records a call and pops a queued failure. Callers hold m.mu.
func (m *MockBackend) begin(op string) error {
	m.calls[op]++
	q := m.failures[op]
	if len(q) == 0 {
		return nil
	}
	m.failures[op] = q[1:]
	return q[0]
}

func (m *MockBackend) CreateSession(ctx context.Context, req CreateSessionRequest) (string, error) {
	if m.CreateSessionGate != nil {
		select {
		case <-m.CreateSessionGate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpCreateSession); err != nil {
		return "", err
	}
	m.seq++
	id := fmt.Sprintf("remote-%d", m.seq)
	m.Sessions[id] = SessionState{TotalSteps: req.TotalSteps, Responses: map[string]int{}, Status: survey.StatusInProgress}
	return id, nil
}

func (m *MockBackend) UpdateSession(_ context.Context, id string, state SessionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpUpdateSession); err != nil {
		return err
	}
	if _, ok := m.Sessions[id]; !ok {
		return &ErrRejected{Err: &StatusError{Code: 404, Message: "unknown session"}}
	}
	state.Responses = maps.Clone(state.Responses)
	m.Sessions[id] = state
	return nil
}

func (m *MockBackend) CompleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpCompleteSession); err != nil {
		return err
	}
	m.Completed = append(m.Completed, id)
	if s, ok := m.Sessions[id]; ok {
		s.Status = survey.StatusCompleted
		m.Sessions[id] = s
	}
	return nil
}

func (m *MockBackend) CreateProfile(_ context.Context, p survey.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpCreateProfile); err != nil {
		return err
	}
	if m.Profile != nil {
		return &ErrConflict{Err: &StatusError{Code: 409, Message: "profile exists"}}
	}
	m.Profile = &p
	m.ProfileWrites = append(m.ProfileWrites, OpCreateProfile)
	return nil
}

func (m *MockBackend) UpdateProfile(_ context.Context, p survey.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpUpdateProfile); err != nil {
		return err
	}
	m.Profile = &p
	m.ProfileWrites = append(m.ProfileWrites, OpUpdateProfile)
	return nil
}

func (m *MockBackend) Preview(_ context.Context, req ScoreRequest) (*RecordPayload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpPreview); err != nil {
		return nil, err
	}
	return scorePayload("", req)
}

func (m *MockBackend) Submit(ctx context.Context, req ScoreRequest) (*RecordPayload, error) {
	return m.submit(OpSubmit, req)
}

func (m *MockBackend) SubmitGuest(ctx context.Context, req ScoreRequest) (*RecordPayload, error) {
	return m.submit(OpSubmitGuest, req)
}

func (m *MockBackend) submit(op string, req ScoreRequest) (*RecordPayload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(op); err != nil {
		return nil, err
	}
	m.seq++
	p, err := scorePayload(fmt.Sprintf("sub-%d", m.seq), req)
	if err != nil {
		return nil, err
	}
	m.Submissions = append(m.Submissions, req)
	if op == OpSubmit {
		m.HistoryEntries = append(m.HistoryEntries, *p)
	}
	return p, nil
}

func (m *MockBackend) History(_ context.Context) ([]RecordPayload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpHistory); err != nil {
		return nil, err
	}
	out := make([]RecordPayload, len(m.HistoryEntries))
	copy(out, m.HistoryEntries)
	return out, nil
}

// scorePayload scores req the way the service does.
func scorePayload(id string, req ScoreRequest) (*RecordPayload, error) {
	res, err := scoring.ComputeScore(req.Responses, req.Profile.ScoringOptions())
	if err != nil {
		return nil, &ErrRejected{Err: err}
	}
	return &RecordPayload{
		ID:               id,
		Profile:          req.Profile,
		Responses:        maps.Clone(req.Responses),
		TotalScore:       float64(res.TotalScore),
		MaxPossibleScore: res.MaxPossibleScore,
		Interpretation:   res.Interpretation,
		PillarScores:     res.PillarScores,
		Advice:           scoring.GenerateAdvice(res.PillarScores, res.TotalScore),
		CreatedAt:        time.Now().UTC().Truncate(time.Second),
	}, nil
}

