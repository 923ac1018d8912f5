package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/abhisek/finwell/internal/scoring"
	"github.com/abhisek/finwell/internal/survey"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestKV_PutGetDelete(t *testing.T) {
	kvs := map[string]KV{
		"sqlite": openTestStore(t).KV(),
		"memory": NewMemoryKV(),
	}

	for name, kv := range kvs {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, ok, err := kv.Get(ctx, "missing"); err != nil || ok {
				t.Fatalf("get missing: ok=%v err=%v", ok, err)
			}

			if err := kv.Put(ctx, "a.one", []byte("1")); err != nil {
				t.Fatalf("put: %v", err)
			}
			if err := kv.Put(ctx, "a.one", []byte("2")); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			if err := kv.Put(ctx, "b.two", []byte("x")); err != nil {
				t.Fatalf("put: %v", err)
			}

			v, ok, err := kv.Get(ctx, "a.one")
			if err != nil || !ok {
				t.Fatalf("get: ok=%v err=%v", ok, err)
			}
			if string(v) != "2" {
				t.Errorf("value = %q, want %q", v, "2")
			}

			keys, err := kv.Keys(ctx, "a.")
			if err != nil {
				t.Fatalf("keys: %v", err)
			}
			if len(keys) != 1 || keys[0] != "a.one" {
				t.Errorf("keys = %v, want [a.one]", keys)
			}

			if err := kv.Delete(ctx, "a.one", "b.two"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			keys, _ = kv.Keys(ctx, "")
			if len(keys) != 0 {
				t.Errorf("keys after delete = %v, want none", keys)
			}
		})
	}
}

func TestKV_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.KV().Put(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	v, ok, err := s.KV().Get(ctx, "k")
	if err != nil || !ok || string(v) != "v" {
		t.Fatalf("get after reopen: v=%q ok=%v err=%v", v, ok, err)
	}
}

func TestLocalCache_SessionRoundTrip(t *testing.T) {
	c := NewLocalCache(openTestStore(t).KV())
	ctx := context.Background()

	got, err := c.CurrentSession(ctx)
	if err != nil || got != nil {
		t.Fatalf("empty cache: session=%v err=%v", got, err)
	}

	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	s := survey.NewSession("local-1", scoring.TotalSteps(false), now)
	s.Apply(2, map[string]int{"q1": 4, "q2": 5}, now.Add(time.Minute))
	s.Email = "a@b.c"

	if err := c.SaveCurrentSession(ctx, s); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err = c.CurrentSession(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ID != "local-1" || got.CurrentStep != 2 || got.Email != "a@b.c" {
		t.Errorf("loaded session = %+v", got)
	}
	if got.Responses["q1"] != 4 || got.Responses["q2"] != 5 {
		t.Errorf("responses = %v", got.Responses)
	}
	if !got.LastActivityAt.Equal(now.Add(time.Minute)) {
		t.Errorf("LastActivityAt = %v", got.LastActivityAt)
	}

	if err := c.ClearCurrentSession(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got, _ := c.CurrentSession(ctx); got != nil {
		t.Error("session still present after clear")
	}
}

func TestLocalCache_ToleratesUnknownAndMissingFields(t *testing.T) {
	kv := NewMemoryKV()
	c := NewLocalCache(kv)
	ctx := context.Background()

	raw := `{"session_id":"old","current_step":3,"legacy_flag":true}`
	if err := kv.Put(ctx, KeyCurrentSession, []byte(raw)); err != nil {
		t.Fatal(err)
	}

	s, err := c.CurrentSession(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.ID != "old" || s.CurrentStep != 3 {
		t.Errorf("session = %+v", s)
	}
	if s.Responses == nil {
		t.Error("responses should default to an empty map")
	}
}

func TestLocalCache_GuestData(t *testing.T) {
	c := NewLocalCache(NewMemoryKV())
	ctx := context.Background()

	records := []survey.ScoreRecord{
		{ID: "r1", TotalScore: 40, MaxPossibleScore: 75},
		{ID: "r2", TotalScore: 55, MaxPossibleScore: 80},
	}
	if err := c.SaveGuestHistory(ctx, records); err != nil {
		t.Fatal(err)
	}
	if err := c.SaveGuestProfile(ctx, &survey.Profile{Name: "Ada", HasChildren: true}); err != nil {
		t.Fatal(err)
	}
	if err := c.SaveCurrentSession(ctx, survey.NewSession("s", 15, time.Now())); err != nil {
		t.Fatal(err)
	}

	got, err := c.GuestHistory(ctx)
	if err != nil || len(got) != 2 || got[1].ID != "r2" {
		t.Fatalf("guest history = %v err=%v", got, err)
	}
	p, err := c.GuestProfile(ctx)
	if err != nil || p == nil || !p.HasChildren {
		t.Fatalf("guest profile = %+v err=%v", p, err)
	}

	if err := c.ClearGuestData(ctx); err != nil {
		t.Fatal(err)
	}
	if got, _ := c.GuestHistory(ctx); len(got) != 0 {
		t.Errorf("guest history after clear = %v", got)
	}
	if p, _ := c.GuestProfile(ctx); p != nil {
		t.Errorf("guest profile after clear = %+v", p)
	}
	if s, _ := c.CurrentSession(ctx); s == nil {
		t.Error("ClearGuestData must not touch the current session")
	}

	if err := c.ClearSurveyData(ctx); err != nil {
		t.Fatal(err)
	}
	if s, _ := c.CurrentSession(ctx); s != nil {
		t.Error("ClearSurveyData should remove the current session")
	}
}
