package remote

import "context"

// Operation names, used as log fields and metric labels.
const (
	OpPreview         = "preview"
	OpSubmit          = "submit"
	OpSubmitGuest     = "submit_guest"
	OpHistory         = "history"
	OpCreateSession   = "create_session"
	OpUpdateSession   = "update_session"
	OpCompleteSession = "complete_session"
	OpCreateProfile   = "create_profile"
	OpUpdateProfile   = "update_profile"
)

// Call is a single request to the remote service. Body is JSON-encoded when
// non-nil; the response body is decoded into Out when non-nil.
type Call struct {
	Op     string
	Method string
	Path   string
	Token  string
	Body   any
	Out    any
}

// Doer executes a Call. Decorators wrap a Doer to add retry, metrics,
// logging and credential handling around the HTTP transport.
type Doer interface {
	Do(ctx context.Context, c *Call) error
}

// DoerFunc adapts a function to Doer.
type DoerFunc func(ctx context.Context, c *Call) error

func (f DoerFunc) Do(ctx context.Context, c *Call) error { return f(ctx, c) }
