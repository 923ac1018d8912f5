package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/abhisek/finwell/internal/survey"
)

// Keys used by the survey lifecycle in local storage.
const (
	KeyCurrentSession = "survey.current_session"
	KeyGuestHistory   = "survey.guest_history"
	KeyGuestProfile   = "survey.guest_profile"
)

// LocalCache is the typed view of local storage used by the session,
// history and migration packages. Values are JSON documents; unknown fields
// are ignored and missing fields take their zero value so older entries
// still load.
type LocalCache struct {
	kv KV
}

// NewLocalCache wraps kv.
func NewLocalCache(kv KV) *LocalCache {
	return &LocalCache{kv: kv}
}

// CurrentSession returns the mirrored in-progress session, or nil.
func (c *LocalCache) CurrentSession(ctx context.Context) (*survey.Session, error) {
	var s survey.Session
	ok, err := c.load(ctx, KeyCurrentSession, &s)
	if err != nil || !ok {
		return nil, err
	}
	if s.Responses == nil {
		s.Responses = make(map[string]int)
	}
	return &s, nil
}

// SaveCurrentSession overwrites the mirrored session.
func (c *LocalCache) SaveCurrentSession(ctx context.Context, s *survey.Session) error {
	return c.save(ctx, KeyCurrentSession, s)
}

// ClearCurrentSession removes the mirrored session.
func (c *LocalCache) ClearCurrentSession(ctx context.Context) error {
	return c.kv.Delete(ctx, KeyCurrentSession)
}

// GuestHistory returns locally recorded guest results in stored order.
func (c *LocalCache) GuestHistory(ctx context.Context) ([]survey.ScoreRecord, error) {
	var records []survey.ScoreRecord
	if _, err := c.load(ctx, KeyGuestHistory, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// SaveGuestHistory overwrites the guest history list.
func (c *LocalCache) SaveGuestHistory(ctx context.Context, records []survey.ScoreRecord) error {
	return c.save(ctx, KeyGuestHistory, records)
}

// ClearGuestHistory removes the guest history list.
func (c *LocalCache) ClearGuestHistory(ctx context.Context) error {
	return c.kv.Delete(ctx, KeyGuestHistory)
}

// GuestProfile returns the locally saved guest profile, or nil.
func (c *LocalCache) GuestProfile(ctx context.Context) (*survey.Profile, error) {
	var p survey.Profile
	ok, err := c.load(ctx, KeyGuestProfile, &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

// SaveGuestProfile overwrites the guest profile.
func (c *LocalCache) SaveGuestProfile(ctx context.Context, p *survey.Profile) error {
	return c.save(ctx, KeyGuestProfile, p)
}

// ClearGuestData removes the guest history and guest profile.
func (c *LocalCache) ClearGuestData(ctx context.Context) error {
	return c.kv.Delete(ctx, KeyGuestHistory, KeyGuestProfile)
}

// ClearSurveyData removes every survey key, including the current session.
func (c *LocalCache) ClearSurveyData(ctx context.Context) error {
	keys, err := c.kv.Keys(ctx, "survey.")
	if err != nil {
		return err
	}
	return c.kv.Delete(ctx, keys...)
}

func (c *LocalCache) load(ctx context.Context, key string, dst any) (bool, error) {
	raw, ok, err := c.kv.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (c *LocalCache) save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.kv.Put(ctx, key, raw)
}
