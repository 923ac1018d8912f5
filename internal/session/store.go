// Package session keeps the in-progress survey session in a local mirror
// and synchronizes it with the remote service in the background.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/finwell/internal/logging"
	"github.com/abhisek/finwell/internal/remote"
	"github.com/abhisek/finwell/internal/store"
	"github.com/abhisek/finwell/internal/survey"
)

// DefaultBackgroundTimeout bounds each detached remote task.
const DefaultBackgroundTimeout = 15 * time.Second

// Authenticator reports whether survey calls should go to the service.
type Authenticator interface {
	IsAuthenticatedForSurvey() bool
}

// Contact is optional contact information captured at session start.
type Contact struct {
	Email string
	Phone string
}

// Options configures a Store. Zero values select defaults.
type Options struct {
	Logger            *slog.Logger
	Now               func() time.Time
	NewID             func() string
	BackgroundTimeout time.Duration
}

// Store owns the current survey session. The local mirror is written
// synchronously and is the source of truth for the device; remote calls run
// detached and never fail the caller.
type Store struct {
	cache     *store.LocalCache
	backend   remote.SessionBackend
	auth      Authenticator
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
	bgTimeout time.Duration

	// mu serializes read-modify-write of the mirror.
	mu  sync.Mutex
	seq uint64

	// pushMu orders remote state pushes; sentSeq is the newest state sent.
	pushMu  sync.Mutex
	sentSeq uint64

	tasks sync.WaitGroup
}

// NewStore creates a session Store.
func NewStore(cache *store.LocalCache, backend remote.SessionBackend, auth Authenticator, opts Options) *Store {
	s := &Store{
		cache:     cache,
		backend:   backend,
		auth:      auth,
		logger:    opts.Logger,
		now:       opts.Now,
		newID:     opts.NewID,
		bgTimeout: opts.BackgroundTimeout,
	}
	if s.logger == nil {
		s.logger = logging.Nop()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.bgTimeout <= 0 {
		s.bgTimeout = DefaultBackgroundTimeout
	}
	return s
}

// StartSession creates a session with a local identifier, mirrors it and,
// when authenticated, opens the remote counterpart in the background. The
// local identifier is returned immediately and stays valid after the mirror
// adopts the remote one.
func (s *Store) StartSession(ctx context.Context, totalSteps int, contact Contact) string {
	id := s.newID()
	sess := survey.NewSession(id, totalSteps, s.now())
	sess.Email = contact.Email
	sess.Phone = contact.Phone

	s.mu.Lock()
	s.saveLocked(ctx, sess)
	s.mu.Unlock()

	if s.auth.IsAuthenticatedForSurvey() {
		req := remote.CreateSessionRequest{
			LocalID:    id,
			TotalSteps: sess.TotalSteps,
			Email:      contact.Email,
			Phone:      contact.Phone,
		}
		s.detach(ctx, remote.OpCreateSession, func(ctx context.Context) error {
			remoteID, err := s.backend.CreateSession(ctx, req)
			if err != nil {
				return err
			}
			return s.adoptRemoteID(ctx, id, remoteID)
		})
	}

	s.logger.InfoContext(ctx, "session started", "session_id", id, "total_steps", sess.TotalSteps)
	return id
}

// adoptRemoteID points the mirror at the remote identifier and pushes any
// progress made while the create call was in flight. A session completed
// in the meantime is closed remotely instead.
func (s *Store) adoptRemoteID(ctx context.Context, localID, remoteID string) error {
	s.mu.Lock()
	sess, err := s.cache.CurrentSession(ctx)
	if err != nil || sess == nil || !sess.Matches(localID) {
		s.mu.Unlock()
		s.logger.InfoContext(ctx, "session ended before remote create finished", "session_id", localID, "remote_id", remoteID)
		return s.backend.CompleteSession(ctx, remoteID)
	}

	sess.ID = remoteID
	sess.RemoteID = remoteID
	s.saveLocked(ctx, sess)
	snapshot, seq := sess.Clone(), s.nextSeqLocked()
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "session id corrected", "local_id", localID, "remote_id", remoteID)
	if snapshot.CurrentStep == 0 && len(snapshot.Responses) == 0 {
		return nil
	}
	return s.push(ctx, snapshot, seq)
}

// UpdateSession merges responses into the session and advances its step.
// Unknown session identifiers are ignored. Invalid answers are dropped and
// logged.
func (s *Store) UpdateSession(ctx context.Context, id string, step int, delta map[string]int) {
	s.mu.Lock()
	sess := s.loadLocked(ctx, id)
	if sess == nil {
		s.mu.Unlock()
		return
	}

	if rejected := sess.Apply(step, delta, s.now()); len(rejected) > 0 {
		s.logger.WarnContext(ctx, "dropped invalid answers", "session_id", id, "keys", rejected)
	}
	s.saveLocked(ctx, sess)
	snapshot, seq := sess.Clone(), s.nextSeqLocked()
	s.mu.Unlock()

	if snapshot.RemoteID == "" || !s.auth.IsAuthenticatedForSurvey() {
		return
	}
	s.detach(ctx, remote.OpUpdateSession, func(ctx context.Context) error {
		return s.push(ctx, snapshot, seq)
	})
}

// CompleteSession marks the session completed, clears the local mirror and
// closes the remote session in the background. It returns the completed
// session, or nil when id does not name the current session.
func (s *Store) CompleteSession(ctx context.Context, id string) *survey.Session {
	s.mu.Lock()
	sess := s.loadLocked(ctx, id)
	if sess == nil {
		s.mu.Unlock()
		return nil
	}

	sess.Status = survey.StatusCompleted
	sess.LastActivityAt = s.now()
	if err := s.cache.ClearCurrentSession(ctx); err != nil {
		s.logger.WarnContext(ctx, "clear session mirror", "session_id", id, "error", err)
	}
	s.mu.Unlock()

	if sess.RemoteID != "" && s.auth.IsAuthenticatedForSurvey() {
		remoteID := sess.RemoteID
		s.detach(ctx, remote.OpCompleteSession, func(ctx context.Context) error {
			return s.backend.CompleteSession(ctx, remoteID)
		})
	}

	s.logger.InfoContext(ctx, "session completed", "session_id", sess.ID, "responses", len(sess.Responses))
	return sess
}

// ResumeSession returns the mirrored in-progress session. It never touches
// the network.
func (s *Store) ResumeSession(ctx context.Context) (*survey.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.cache.CurrentSession(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "read session mirror", "error", err)
		return nil, false
	}
	if sess == nil || sess.Status == survey.StatusCompleted {
		return nil, false
	}
	return sess, true
}

// Wait blocks until every detached remote task has finished.
func (s *Store) Wait() {
	s.tasks.Wait()
}

func (s *Store) loadLocked(ctx context.Context, id string) *survey.Session {
	sess, err := s.cache.CurrentSession(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "read session mirror", "error", err)
		return nil
	}
	if sess == nil || !sess.Matches(id) {
		s.logger.DebugContext(ctx, "no matching session", "session_id", id)
		return nil
	}
	return sess
}

func (s *Store) saveLocked(ctx context.Context, sess *survey.Session) {
	if err := s.cache.SaveCurrentSession(ctx, sess); err != nil {
		s.logger.WarnContext(ctx, "write session mirror", "session_id", sess.ID, "error", err)
	}
}

func (s *Store) nextSeqLocked() uint64 {
	s.seq++
	return s.seq
}

// push sends a full session state unless a newer one has already gone out.
func (s *Store) push(ctx context.Context, sess *survey.Session, seq uint64) error {
	s.pushMu.Lock()
	defer s.pushMu.Unlock()
	if seq <= s.sentSeq {
		return nil
	}
	err := s.backend.UpdateSession(ctx, sess.RemoteID, remote.SessionState{
		CurrentStep: sess.CurrentStep,
		TotalSteps:  sess.TotalSteps,
		Responses:   sess.Responses,
		Status:      sess.Status,
	})
	if err == nil {
		s.sentSeq = seq
	}
	return err
}

// detach runs fn in the background on a context that survives the caller's
// cancellation but is bounded by the background timeout.
func (s *Store) detach(ctx context.Context, op string, fn func(context.Context) error) {
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.bgTimeout)
		defer cancel()
		if err := fn(bg); err != nil {
			s.logger.WarnContext(bg, "background session sync failed", "op", op, "error", err)
		}
	}()
}
