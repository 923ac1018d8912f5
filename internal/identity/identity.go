// Package identity classifies who the current user is from the credentials
// held in local storage.
package identity

import (
	"context"
	"fmt"
	"sync"

	"github.com/abhisek/finwell/internal/store"
)

// Credential names as stored locally.
const (
	SimpleSessionToken = "simple_session_token"
	FullSessionToken   = "full_session_token"
	AdminSessionToken  = "admin_session_token"
)

// Mode is the identity mode derived from the stored credentials.
type Mode int

const (
	Guest Mode = iota
	AuthenticatedSimple
	AuthenticatedFull
	AdminOnly
)

func (m Mode) String() string {
	switch m {
	case AuthenticatedSimple:
		return "authenticated (simple session)"
	case AuthenticatedFull:
		return "authenticated (full session)"
	case AdminOnly:
		return "admin only"
	default:
		return "guest"
	}
}

// CredentialProvider reads and writes named credentials. An empty string
// means the credential is absent.
type CredentialProvider interface {
	Get(name string) string
	Set(name, value string) error
	Clear(name string) error
}

// Resolver answers identity questions. It never caches: every call reads
// the provider again, so a cleared credential is seen on the next call.
type Resolver struct {
	creds CredentialProvider
}

// NewResolver creates a Resolver over creds.
func NewResolver(creds CredentialProvider) *Resolver {
	return &Resolver{creds: creds}
}

// CurrentMode classifies the present credentials.
func (r *Resolver) CurrentMode() Mode {
	switch {
	case r.creds.Get(FullSessionToken) != "":
		return AuthenticatedFull
	case r.creds.Get(SimpleSessionToken) != "":
		return AuthenticatedSimple
	case r.creds.Get(AdminSessionToken) != "":
		return AdminOnly
	default:
		return Guest
	}
}

// IsAuthenticatedForSurvey reports whether a simple or full session token is
// present. An admin token alone does not count.
func (r *Resolver) IsAuthenticatedForSurvey() bool {
	return r.creds.Get(FullSessionToken) != "" || r.creds.Get(SimpleSessionToken) != ""
}

// BearerToken returns the token to send to the remote service: the full
// session token, else the simple one. The admin token is never returned.
func (r *Resolver) BearerToken() string {
	if t := r.creds.Get(FullSessionToken); t != "" {
		return t
	}
	return r.creds.Get(SimpleSessionToken)
}

// ClearSurveyCredentials removes the simple and full session tokens.
func (r *Resolver) ClearSurveyCredentials() error {
	if err := r.creds.Clear(FullSessionToken); err != nil {
		return fmt.Errorf("clear %s: %w", FullSessionToken, err)
	}
	if err := r.creds.Clear(SimpleSessionToken); err != nil {
		return fmt.Errorf("clear %s: %w", SimpleSessionToken, err)
	}
	return nil
}

// MemoryCredentials is an in-memory CredentialProvider.
type MemoryCredentials struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryCredentials creates a provider seeded with initial values.
func NewMemoryCredentials(initial map[string]string) *MemoryCredentials {
	m := &MemoryCredentials{values: make(map[string]string, len(initial))}
	for k, v := range initial {
		m.values[k] = v
	}
	return m
}

func (m *MemoryCredentials) Get(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[name]
}

func (m *MemoryCredentials) Set(name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[name] = value
	return nil
}

func (m *MemoryCredentials) Clear(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, name)
	return nil
}

// StoreCredentials keeps credentials in the local key-value store under
// their own names.
type StoreCredentials struct {
	kv store.KV
}

// NewStoreCredentials creates a provider backed by kv.
func NewStoreCredentials(kv store.KV) *StoreCredentials {
	return &StoreCredentials{kv: kv}
}

// Get returns "" when the credential is missing or unreadable.
func (s *StoreCredentials) Get(name string) string {
	v, ok, err := s.kv.Get(context.Background(), name)
	if err != nil || !ok {
		return ""
	}
	return string(v)
}

func (s *StoreCredentials) Set(name, value string) error {
	if value == "" {
		return s.Clear(name)
	}
	return s.kv.Put(context.Background(), name, []byte(value))
}

func (s *StoreCredentials) Clear(name string) error {
	return s.kv.Delete(context.Background(), name)
}
