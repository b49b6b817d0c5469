// Package cli wires configuration into stores, services and adapters for the
// questline commands.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/questline/internal/adapters/http"
	"github.com/aretw0/questline/internal/config"
	"github.com/aretw0/questline/internal/metrics"
	"github.com/aretw0/questline/pkg/adapters/file"
	"github.com/aretw0/questline/pkg/adapters/memory"
	"github.com/aretw0/questline/pkg/adapters/redis"
	"github.com/aretw0/questline/pkg/adapters/sqlite"
	"github.com/aretw0/questline/pkg/domain"
	"github.com/aretw0/questline/pkg/engine"
	"github.com/aretw0/questline/pkg/observability"
	"github.com/aretw0/questline/pkg/persistence/middleware"
	"github.com/aretw0/questline/pkg/ports"
	"github.com/aretw0/questline/pkg/session"
	"github.com/aretw0/questline/pkg/templates"
)

// Stores holds the persistence selected by the configuration.
type Stores struct {
	Templates ports.TemplateStore
	Sessions  ports.SessionStore

	// Locker is nil unless the redis backend runs with locking enabled.
	Locker ports.DistributedLocker

	closers []func() error
}

// Close releases database handles and client connections.
func (s *Stores) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// OpenStores builds the template and session stores for cfg.Store.Backend.
// Sessions are wrapped with encryption when a key is configured.
func OpenStores(cfg *config.Config) (*Stores, error) {
	stores, err := openBackend(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Store.EncryptionKey == "" {
		return stores, nil
	}

	keys, err := middleware.ParseKeys(cfg.Store.EncryptionKey, cfg.Store.PreviousKeys...)
	if err == nil {
		var mw middleware.Middleware
		if mw, err = middleware.NewEncryptionMiddleware(keys); err == nil {
			stores.Sessions = middleware.Chain(stores.Sessions, mw)
			return stores, nil
		}
	}
	_ = stores.Close()
	return nil, fmt.Errorf("store encryption: %w", err)
}

func openBackend(cfg *config.Config) (*Stores, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return &Stores{
			Templates: memory.NewTemplateStore(),
			Sessions:  memory.NewSessionStore(),
		}, nil

	case config.BackendFile:
		return &Stores{
			Templates: file.NewTemplateStore(cfg.Store.Dir),
			Sessions:  file.NewSessionStore(cfg.Store.Dir),
		}, nil

	case config.BackendRedis:
		client := redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		st := &Stores{
			Templates: redis.NewTemplateStore(client, redis.WithPrefix(cfg.Redis.Prefix)),
			Sessions:  redis.NewSessionStore(client, redis.WithPrefix(cfg.Redis.Prefix), redis.WithTTL(cfg.Redis.TTL)),
			closers:   []func() error{client.Close},
		}
		if cfg.Redis.Lock {
			st.Locker = redis.NewLocker(client, cfg.Redis.Prefix)
		}
		return st, nil

	case config.BackendSQLite:
		path := cfg.SQLite.Path
		if !filepath.IsAbs(path) && filepath.Dir(path) == "." {
			path = filepath.Join(cfg.Store.Dir, path)
		}
		db, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		return &Stores{
			Templates: db.Templates(),
			Sessions:  db.Sessions(),
			closers:   []func() error{db.Close},
		}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// App is the assembled runtime shared by the serve, mcp and session commands.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Engine    *engine.Engine
	Stores    *Stores
	Templates *templates.Service
	Sessions  *session.Manager

	// Metrics is nil when disabled in the configuration.
	Metrics *metrics.Metrics
	Streams *http.StreamManager
}

// New opens the configured stores and builds the services on top of them.
// Extra hooks run after the logging, metrics and stream hooks.
func New(cfg *config.Config, logger *slog.Logger, extra ...domain.LifecycleHooks) (*App, error) {
	stores, err := OpenStores(cfg)
	if err != nil {
		return nil, err
	}

	eng := engine.New(engine.WithSelfLoops(cfg.Engine.AllowSelfLoops))
	app := &App{
		Config:  cfg,
		Logger:  logger,
		Engine:  eng,
		Stores:  stores,
		Streams: http.NewStreamManager(logger),
	}

	hooks := []domain.LifecycleHooks{observability.LoggingHooks(logger), app.Streams.Hooks()}
	if cfg.HTTP.Metrics {
		app.Metrics = metrics.New()
		hooks = append(hooks, app.Metrics.Hooks())
	}
	hooks = append(hooks, extra...)

	app.Templates = templates.NewService(stores.Templates,
		templates.WithEngine(eng),
		templates.WithLogger(logger),
	)

	opts := []session.Option{
		session.WithEngine(eng),
		session.WithLogger(logger),
		session.WithHooks(observability.Combine(hooks...)),
	}
	if stores.Locker != nil {
		opts = append(opts, session.WithLocker(stores.Locker), session.WithLockTTL(cfg.Redis.LockTTL))
	}
	app.Sessions = session.NewManager(stores.Templates, stores.Sessions, opts...)

	return app, nil
}

// HTTPServer builds the JSON API over the app's services.
func (a *App) HTTPServer(version string) *http.Server {
	opts := []http.Option{
		http.WithLogger(a.Logger),
		http.WithStreams(a.Streams),
		http.WithVersion(version),
	}
	if a.Metrics != nil {
		opts = append(opts, http.WithMetrics(a.Metrics))
	}
	return http.NewServer(a.Templates, a.Sessions, opts...)
}

// Close releases the stores.
func (a *App) Close() error {
	return a.Stores.Close()
}
