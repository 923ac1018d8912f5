package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultMaxResponseBytes bounds a response body read by HTTPTransport.
const DefaultMaxResponseBytes = 8 << 20

// HTTPTransport is the bottom of the Doer chain. It speaks JSON over HTTP
// and maps status codes to the error types in this package.
type HTTPTransport struct {
	baseURL  string
	client   *http.Client
	maxBytes int64
}

// NewHTTPTransport creates a transport rooted at baseURL, e.g.
// "https://api.example.com/api/v1". timeout bounds each attempt.
func NewHTTPTransport(baseURL string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		maxBytes: DefaultMaxResponseBytes,
	}
}

// SetMaxResponseBytes changes the body size limit. Non-positive values
// restore the default.
func (t *HTTPTransport) SetMaxResponseBytes(n int64) {
	if n <= 0 {
		n = DefaultMaxResponseBytes
	}
	t.maxBytes = n
}

func (t *HTTPTransport) Do(ctx context.Context, c *Call) error {
	var body io.Reader
	if c.Body != nil {
		b, err := json.Marshal(c.Body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", c.Op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, c.Method, t.baseURL+c.Path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", c.Op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &ErrUnavailable{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBytes+1))
	if err != nil {
		return &ErrUnavailable{Err: fmt.Errorf("read body: %w", err)}
	}
	tooLarge := int64(len(raw)) > t.maxBytes
	if tooLarge {
		raw = raw[:t.maxBytes]
	}

	if err := statusError(resp, raw); err != nil {
		return err
	}
	if tooLarge {
		return fmt.Errorf("%s: %w (limit %d bytes)", c.Op, ErrResponseTooLarge, t.maxBytes)
	}

	if c.Out == nil {
		return nil
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return &ErrInvalidResponse{Body: raw, Err: errors.New("empty body")}
	}
	if err := json.Unmarshal(raw, c.Out); err != nil {
		return &ErrInvalidResponse{Body: raw, Err: err}
	}
	return nil
}

// statusError maps a non-2xx response to a typed error.
func statusError(resp *http.Response, body []byte) error {
	code := resp.StatusCode
	if code >= 200 && code < 300 {
		return nil
	}

	se := &StatusError{Code: code, Message: errorMessage(body)}
	switch {
	case code == http.StatusTooManyRequests:
		return &ErrRateLimit{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")), Err: se}
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &ErrAuth{Err: se}
	case code == http.StatusConflict:
		return &ErrConflict{Err: se}
	case code >= 500:
		return &ErrUnavailable{Err: se}
	default:
		return &ErrRejected{Err: se}
	}
}

// errorMessage extracts {"error": "..."} or {"message": "..."} from an error
// body, falling back to the trimmed text.
func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
