// Package stubserver is an in-memory implementation of the remote survey
// API for local development and integration tests.
package stubserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abhisek/finwell/internal/logging"
	"github.com/abhisek/finwell/internal/remote"
	"github.com/abhisek/finwell/internal/scoring"
	"github.com/abhisek/finwell/internal/survey"
)

// Options configures a Server.
type Options struct {
	// Permissive accepts any bearer token, treating it as its own account.
	Permissive bool
	Logger     *slog.Logger
}

type account struct {
	profile     *survey.Profile
	sessions    map[string]*remote.SessionState
	submissions []remote.RecordPayload
}

// Server holds all state in memory. It is safe for concurrent use.
type Server struct {
	mu          sync.Mutex
	permissive  bool
	tokens      map[string]string
	accounts    map[string]*account
	failures    map[string][]int
	omitPillars bool
	seq         int

	logger   *slog.Logger
	engine   *gin.Engine
	registry *prometheus.Registry
	requests *prometheus.CounterVec
}

// New creates a Server with its routes registered.
func New(opts Options) *Server {
	s := &Server{
		permissive: opts.Permissive,
		tokens:     make(map[string]string),
		accounts:   make(map[string]*account),
		failures:   make(map[string][]int),
		logger:     opts.Logger,
		registry:   prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finwell_stub",
			Name:      "requests_total",
			Help:      "Requests served by the stub API by operation and status.",
		}, []string{"op", "status"}),
	}
	if s.logger == nil {
		s.logger = logging.Nop()
	}
	s.registry.MustRegister(s.requests)

	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests())
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	api := r.Group("/api/v1")
	s.route(api, http.MethodPost, "/scores/preview", remote.OpPreview, false, s.preview)
	s.route(api, http.MethodPost, "/submissions", remote.OpSubmit, true, s.submit)
	s.route(api, http.MethodPost, "/submissions/guest", remote.OpSubmitGuest, false, s.submitGuest)
	s.route(api, http.MethodGet, "/submissions", remote.OpHistory, true, s.history)
	s.route(api, http.MethodPost, "/sessions", remote.OpCreateSession, true, s.createSession)
	s.route(api, http.MethodPatch, "/sessions/:id", remote.OpUpdateSession, true, s.updateSession)
	s.route(api, http.MethodDelete, "/sessions/:id", remote.OpCompleteSession, true, s.completeSession)
	s.route(api, http.MethodPost, "/profile", remote.OpCreateProfile, true, s.createProfile)
	s.route(api, http.MethodPut, "/profile", remote.OpUpdateProfile, true, s.updateProfile)

	s.engine = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// RegisterToken maps a bearer token to an account.
func (s *Server) RegisterToken(token, accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = accountID
}

// RevokeToken makes a token unknown again.
func (s *Server) RevokeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// FailNext makes the next requests for op fail with the given statuses.
func (s *Server) FailNext(op string, statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], statuses...)
}

// SetOmitPillars strips per-pillar breakdowns from history responses.
func (s *Server) SetOmitPillars(omit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.omitPillars = omit
}

// Submissions returns the number of submissions recorded for an account.
func (s *Server) Submissions(accountID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[accountID]; ok {
		return len(a.submissions)
	}
	return 0
}

// Profile returns the stored profile for an account.
func (s *Server) Profile(accountID string) *survey.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[accountID]; ok {
		return a.profile
	}
	return nil
}

// Session returns the stored state of a session.
func (s *Server) Session(accountID, id string) (remote.SessionState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return remote.SessionState{}, false
	}
	st, ok := a.sessions[id]
	if !ok {
		return remote.SessionState{}, false
	}
	return *st, true
}

// ListenAndServe serves on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("stub server listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

const accountKey = "account"

// route registers a handler behind fault injection and, when auth is set,
// bearer-token checks. Optional-auth routes still resolve a valid token.
func (s *Server) route(g *gin.RouterGroup, method, path, op string, auth bool, h gin.HandlerFunc) {
	g.Handle(method, path, func(c *gin.Context) {
		c.Set("op", op)
		if status, ok := s.popFailure(op); ok {
			c.AbortWithStatusJSON(status, gin.H{"error": "injected failure"})
			return
		}

		accountID, known := s.authenticate(c)
		if auth && !known {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
			return
		}
		if known {
			c.Set(accountKey, accountID)
		}
		h(c)
	})
}

func (s *Server) popFailure(op string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.failures[op]
	if len(q) == 0 {
		return 0, false
	}
	s.failures[op] = q[1:]
	return q[0], true
}

func (s *Server) authenticate(c *gin.Context) (string, bool) {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.tokens[token]; ok {
		return id, true
	}
	if s.permissive {
		return token, true
	}
	return "", false
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		op := c.GetString("op")
		if op == "" {
			op = "other"
		}
		status := c.Writer.Status()
		s.requests.WithLabelValues(op, strconv.Itoa(status)).Inc()
		s.logger.Debug("stub request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
		)
	}
}

// accountLocked returns the account for the request, creating it. Callers
// hold s.mu.
func (s *Server) accountLocked(c *gin.Context) *account {
	id := c.GetString(accountKey)
	a, ok := s.accounts[id]
	if !ok {
		a = &account{sessions: make(map[string]*remote.SessionState)}
		s.accounts[id] = a
	}
	return a
}

func (s *Server) nextIDLocked(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func score(req remote.ScoreRequest) (*remote.RecordPayload, error) {
	res, err := scoring.ComputeScore(req.Responses, req.Profile.ScoringOptions())
	if err != nil {
		return nil, err
	}
	return &remote.RecordPayload{
		Profile:          req.Profile,
		Responses:        maps.Clone(req.Responses),
		TotalScore:       float64(res.TotalScore),
		MaxPossibleScore: res.MaxPossibleScore,
		Interpretation:   res.Interpretation,
		PillarScores:     res.PillarScores,
		Advice:           scoring.GenerateAdvice(res.PillarScores, res.TotalScore),
	}, nil
}

func bindScoreRequest(c *gin.Context) (*remote.RecordPayload, bool) {
	var req remote.ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format", "details": err.Error()})
		return nil, false
	}
	payload, err := score(req)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return nil, false
	}
	return payload, true
}

func (s *Server) preview(c *gin.Context) {
	payload, ok := bindScoreRequest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, payload)
}

func (s *Server) submit(c *gin.Context) {
	payload, ok := bindScoreRequest(c)
	if !ok {
		return
	}
	s.mu.Lock()
	payload.ID = s.nextIDLocked("sub")
	payload.CreatedAt = time.Now().UTC()
	a := s.accountLocked(c)
	a.submissions = append(a.submissions, *payload)
	s.mu.Unlock()

	c.JSON(http.StatusCreated, payload)
}

func (s *Server) submitGuest(c *gin.Context) {
	payload, ok := bindScoreRequest(c)
	if !ok {
		return
	}
	s.mu.Lock()
	payload.ID = s.nextIDLocked("guest")
	s.mu.Unlock()
	payload.CreatedAt = time.Now().UTC()

	c.JSON(http.StatusCreated, payload)
}

func (s *Server) history(c *gin.Context) {
	s.mu.Lock()
	a := s.accountLocked(c)
	out := make([]remote.RecordPayload, len(a.submissions))
	copy(out, a.submissions)
	if s.omitPillars {
		for i := range out {
			out[i].PillarScores = nil
			out[i].Advice = nil
		}
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"submissions": out})
}

func (s *Server) createSession(c *gin.Context) {
	var req remote.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format", "details": err.Error()})
		return
	}

	s.mu.Lock()
	id := s.nextIDLocked("sess")
	s.accountLocked(c).sessions[id] = &remote.SessionState{
		TotalSteps: req.TotalSteps,
		Responses:  map[string]int{},
		Status:     survey.StatusInProgress,
	}
	s.mu.Unlock()

	c.JSON(http.StatusCreated, gin.H{"session_id": id})
}

func (s *Server) updateSession(c *gin.Context) {
	var state remote.SessionState
	if err := c.ShouldBindJSON(&state); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format", "details": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sessions := s.accountLocked(c).sessions
	existing, ok := sessions[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if existing.Status == survey.StatusCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "session already completed"})
		return
	}
	if state.TotalSteps == 0 {
		state.TotalSteps = existing.TotalSteps
	}
	if state.Status == "" {
		state.Status = existing.Status
	}
	sessions[c.Param("id")] = &state
	c.JSON(http.StatusOK, state)
}

func (s *Server) completeSession(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.accountLocked(c).sessions[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	st.Status = survey.StatusCompleted
	c.Status(http.StatusNoContent)
}

func (s *Server) createProfile(c *gin.Context) {
	var p survey.Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format", "details": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accountLocked(c)
	if a.profile != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "profile already exists"})
		return
	}
	a.profile = &p
	c.JSON(http.StatusCreated, p)
}

func (s *Server) updateProfile(c *gin.Context) {
	var p survey.Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format", "details": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accountLocked(c).profile = &p
	c.JSON(http.StatusOK, p)
}
