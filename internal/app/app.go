// Package app wires the survey lifecycle components from configuration.
package app

import (
	"cmp"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/abhisek/finwell/internal/assessment"
	"github.com/abhisek/finwell/internal/config"
	"github.com/abhisek/finwell/internal/history"
	"github.com/abhisek/finwell/internal/identity"
	"github.com/abhisek/finwell/internal/logging"
	"github.com/abhisek/finwell/internal/migration"
	"github.com/abhisek/finwell/internal/remote"
	"github.com/abhisek/finwell/internal/session"
	"github.com/abhisek/finwell/internal/store"
)

// Options controls how App is assembled. Zero values select the defaults.
type Options struct {
	// ConfigPath is an explicit config file. Empty uses the default
	// location, which may be absent.
	ConfigPath string
	// DBPath overrides storage.path and FINWELL_DB.
	DBPath string
	// BaseURL overrides api.base_url.
	BaseURL string
	// LogOutput receives structured logs. Defaults to stderr.
	LogOutput io.Writer
	// Registry collects client metrics. A fresh registry is used when nil.
	Registry *prometheus.Registry
	// Backend replaces the HTTP client, for tests.
	Backend remote.Backend
}

// App holds every long-lived component for one process.
type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	Store       *store.Store
	Cache       *store.LocalCache
	Credentials *identity.StoreCredentials
	Identity    *identity.Resolver
	Registry    *prometheus.Registry
	Remote      remote.Backend
	Sessions    *session.Store
	History     *history.Repository
	Migration   *migration.Coordinator
	Assessment  *assessment.Service
}

// New loads configuration, opens local storage and builds the component
// graph. Close must be called to flush background work.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.BaseURL != "" {
		cfg.API.BaseURL = opts.BaseURL
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: opts.LogOutput,
	})

	dbPath, err := resolveDBPath(opts.DBPath, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	logger.Debug("store opened", "path", dbPath)

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Store:    st,
		Cache:    store.NewLocalCache(st.KV()),
		Registry: cmp.Or(opts.Registry, prometheus.NewRegistry()),
	}
	a.Credentials = identity.NewStoreCredentials(st.KV())
	a.Identity = identity.NewResolver(a.Credentials)

	a.Remote = opts.Backend
	if a.Remote == nil {
		obs, err := remote.NewPrometheusObserver("", a.Registry)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		transport := remote.NewHTTPTransport(cfg.API.BaseURL, cfg.API.Timeout)
		doer := remote.Stack(transport, a.Identity, cfg.RemoteRetry(), obs, logger)
		a.Remote = remote.NewClient(doer, a.Identity)
	}

	a.Sessions = session.NewStore(a.Cache, a.Remote, a.Identity, session.Options{
		Logger:            logger.With("component", "session"),
		BackgroundTimeout: cfg.API.BackgroundTimeout,
	})
	a.History = history.NewRepository(a.Cache, a.Remote, a.Identity, logger.With("component", "history"))
	a.Migration = migration.NewCoordinator(a.Cache, a.Remote, a.Identity, cfg.ClearPolicy(), logger.With("component", "migration"))
	a.Assessment = assessment.NewService(a.Remote, a.Sessions, a.History, a.Cache, a.Identity, logger.With("component", "assessment"))

	return a, nil
}

// Close waits for detached session sync and closes the store.
func (a *App) Close() error {
	a.Sessions.Wait()
	return a.Store.Close()
}

// Mode reports the current authentication mode.
func (a *App) Mode() identity.Mode {
	return a.Identity.CurrentMode()
}

// resolveDBPath applies the flag, then the config file, then the default
// lookup (FINWELL_DB, XDG data dir).
func resolveDBPath(flag, configured string) (string, error) {
	if p := cmp.Or(flag, configured); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}
