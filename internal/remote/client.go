package remote

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/abhisek/finwell/internal/logging"
	"github.com/abhisek/finwell/internal/survey"
)

// SessionBackend mirrors survey sessions on the service.
type SessionBackend interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (string, error)
	UpdateSession(ctx context.Context, id string, state SessionState) error
	CompleteSession(ctx context.Context, id string) error
}

// ProfileBackend manages the authenticated user's profile.
type ProfileBackend interface {
	CreateProfile(ctx context.Context, p survey.Profile) error
	UpdateProfile(ctx context.Context, p survey.Profile) error
}

// ScoringBackend scores and records assessments.
type ScoringBackend interface {
	Preview(ctx context.Context, req ScoreRequest) (*RecordPayload, error)
	Submit(ctx context.Context, req ScoreRequest) (*RecordPayload, error)
	SubmitGuest(ctx context.Context, req ScoreRequest) (*RecordPayload, error)
}

// HistoryBackend lists the authenticated user's past submissions.
type HistoryBackend interface {
	History(ctx context.Context) ([]RecordPayload, error)
}

// Backend is the whole remote service.
type Backend interface {
	SessionBackend
	ProfileBackend
	ScoringBackend
	HistoryBackend
}

// TokenSource supplies the bearer token for each call; "" means guest.
type TokenSource interface {
	BearerToken() string
}

// Client is the HTTP implementation of Backend.
type Client struct {
	doer   Doer
	tokens TokenSource
}

// NewClient creates a Client that sends calls through doer, authenticating
// with the token tokens returns at call time.
func NewClient(doer Doer, tokens TokenSource) *Client {
	return &Client{doer: doer, tokens: tokens}
}

var _ Backend = (*Client)(nil)

func (c *Client) call(ctx context.Context, op, method, path string, body, out any, auth bool) error {
	call := &Call{Op: op, Method: method, Path: path, Body: body, Out: out}
	if auth {
		call.Token = c.tokens.BearerToken()
	}
	return c.doer.Do(ctx, call)
}

func sessionPath(id string) string {
	return "/sessions/" + url.PathEscape(id)
}

func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (string, error) {
	var resp createSessionResponse
	if err := c.call(ctx, OpCreateSession, http.MethodPost, "/sessions", req, &resp, true); err != nil {
		return "", err
	}
	if resp.SessionID == "" {
		return "", &ErrInvalidResponse{Err: errors.New("missing session_id")}
	}
	return resp.SessionID, nil
}

func (c *Client) UpdateSession(ctx context.Context, id string, state SessionState) error {
	return c.call(ctx, OpUpdateSession, http.MethodPatch, sessionPath(id), state, nil, true)
}

func (c *Client) CompleteSession(ctx context.Context, id string) error {
	return c.call(ctx, OpCompleteSession, http.MethodDelete, sessionPath(id), nil, nil, true)
}

func (c *Client) CreateProfile(ctx context.Context, p survey.Profile) error {
	return c.call(ctx, OpCreateProfile, http.MethodPost, "/profile", p, nil, true)
}

func (c *Client) UpdateProfile(ctx context.Context, p survey.Profile) error {
	return c.call(ctx, OpUpdateProfile, http.MethodPut, "/profile", p, nil, true)
}

// Preview scores responses without recording them. The token is sent when
// present but not required.
func (c *Client) Preview(ctx context.Context, req ScoreRequest) (*RecordPayload, error) {
	var out RecordPayload
	if err := c.call(ctx, OpPreview, http.MethodPost, "/scores/preview", req, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Submit(ctx context.Context, req ScoreRequest) (*RecordPayload, error) {
	var out RecordPayload
	if err := c.call(ctx, OpSubmit, http.MethodPost, "/submissions", req, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitGuest records an anonymous submission. No credentials are sent.
func (c *Client) SubmitGuest(ctx context.Context, req ScoreRequest) (*RecordPayload, error) {
	var out RecordPayload
	if err := c.call(ctx, OpSubmitGuest, http.MethodPost, "/submissions/guest", req, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) History(ctx context.Context) ([]RecordPayload, error) {
	var out historyResponse
	if err := c.call(ctx, OpHistory, http.MethodGet, "/submissions", nil, &out, true); err != nil {
		return nil, err
	}
	return out.Submissions, nil
}

// Stack builds the standard decorator chain around transport. Retries sit
// outside metrics and logging so every attempt is observed, and credential
// reset sees only the final outcome.
func Stack(transport Doer, clearer CredentialClearer, retry RetryConfig, obs *PrometheusObserver, logger *slog.Logger) Doer {
	if logger == nil {
		logger = logging.Nop()
	}
	d := WithLogging(transport, logger)
	d = WithMetrics(d, obs)
	d = WithRetry(d, retry)
	return WithCredentialReset(d, clearer, logger)
}
