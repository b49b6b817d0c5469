package cli_test

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/questline/internal/cli"
	"github.com/aretw0/questline/internal/config"
	"github.com/aretw0/questline/internal/logging"
	"github.com/aretw0/questline/pkg/adapters/file"
	"github.com/aretw0/questline/pkg/adapters/memory"
	"github.com/aretw0/questline/pkg/adapters/redis"
	"github.com/aretw0/questline/pkg/adapters/sqlite"
	"github.com/aretw0/questline/pkg/templates"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func configFor(t *testing.T, backend string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Backend = backend
	cfg.Store.Dir = t.TempDir()
	cfg.SQLite.Path = filepath.Join(cfg.Store.Dir, "questline.db")
	if backend == config.BackendRedis {
		cfg.Redis.Addr = miniredis.RunT(t).Addr()
	}
	return cfg
}

func TestOpenStores_Backends(t *testing.T) {
	tests := []struct {
		backend    string
		templates  any
		sessions   any
		wantLocker bool
	}{
		{config.BackendMemory, &memory.TemplateStore{}, &memory.SessionStore{}, false},
		{config.BackendFile, &file.TemplateStore{}, &file.SessionStore{}, false},
		{config.BackendSQLite, &sqlite.TemplateStore{}, &sqlite.SessionStore{}, false},
		{config.BackendRedis, &redis.TemplateStore{}, &redis.SessionStore{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			stores, err := cli.OpenStores(configFor(t, tt.backend))
			require.NoError(t, err)
			t.Cleanup(func() { _ = stores.Close() })

			assert.IsType(t, tt.templates, stores.Templates)
			assert.IsType(t, tt.sessions, stores.Sessions)
			assert.Equal(t, tt.wantLocker, stores.Locker != nil)
		})
	}
}

func TestOpenStores_RedisWithoutLock(t *testing.T) {
	cfg := configFor(t, config.BackendRedis)
	cfg.Redis.Lock = false

	stores, err := cli.OpenStores(cfg)
	require.NoError(t, err)
	defer stores.Close()
	assert.Nil(t, stores.Locker)
}

func TestOpenStores_Encryption(t *testing.T) {
	cfg := configFor(t, config.BackendFile)
	cfg.Store.EncryptionKey = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="

	app, err := cli.New(cfg, logging.NewNop())
	require.NoError(t, err)
	defer app.Close()
	assert.NotEqual(t, reflect.TypeOf(&file.SessionStore{}), reflect.TypeOf(app.Stores.Sessions))

	ctx := context.Background()
	res, err := app.Templates.Create(ctx, templates.Input{
		Name:        "Heist",
		EntryNodeID: 1,
		Nodes:       []templates.NodeInput{{ID: 1, Description: "Plan"}},
	})
	require.NoError(t, err)
	snap, err := app.Sessions.Start(ctx, res.Template.ID, "secret table", "guild-7")
	require.NoError(t, err)

	raw, err := file.NewSessionStore(cfg.Store.Dir).Load(ctx, snap.Session.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "guild-7", raw.GuildID)

	got, err := app.Sessions.Get(ctx, snap.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, "guild-7", got.Session.GuildID)

	cfg.Store.EncryptionKey = "c2hvcnQ="
	_, err = cli.OpenStores(cfg)
	assert.ErrorContains(t, err, "store encryption")
}

func TestOpenStores_UnknownBackend(t *testing.T) {
	cfg := configFor(t, config.BackendMemory)
	cfg.Store.Backend = "postgres"

	_, err := cli.OpenStores(cfg)
	assert.ErrorContains(t, err, "postgres")
}

func TestNew_WiresServicesAndHooks(t *testing.T) {
	for _, backend := range []string{config.BackendFile, config.BackendSQLite, config.BackendRedis} {
		t.Run(backend, func(t *testing.T) {
			app, err := cli.New(configFor(t, backend), logging.NewNop())
			require.NoError(t, err)
			t.Cleanup(func() { _ = app.Close() })
			require.NotNil(t, app.Metrics)

			ctx := context.Background()
			res, err := app.Templates.Create(ctx, templates.Input{
				Name:        "Heist",
				EntryNodeID: 1,
				Nodes: []templates.NodeInput{
					{ID: 1, Description: "Plan", Destinations: []int{2}},
					{ID: 2, Description: "Vault"},
				},
			})
			require.NoError(t, err)

			snap, err := app.Sessions.Start(ctx, res.Template.ID, "run", "g1")
			require.NoError(t, err)
			adv, err := app.Sessions.Advance(ctx, snap.Session.ID, 2)
			require.NoError(t, err)
			assert.True(t, adv.Complete)

			count, err := testutil.GatherAndCount(app.Metrics.Registry(), "questline_sessions_completed_total")
			require.NoError(t, err)
			assert.Equal(t, 1, count)
		})
	}
}

func TestNew_MetricsDisabled(t *testing.T) {
	cfg := configFor(t, config.BackendMemory)
	cfg.HTTP.Metrics = false

	app, err := cli.New(cfg, logging.NewNop())
	require.NoError(t, err)
	assert.Nil(t, app.Metrics)
	assert.NotNil(t, app.HTTPServer("test").Handler())
}

func TestNew_SelfLoopsFromConfig(t *testing.T) {
	cfg := configFor(t, config.BackendMemory)
	cfg.Engine.AllowSelfLoops = true

	app, err := cli.New(cfg, logging.NewNop())
	require.NoError(t, err)
	assert.True(t, app.Engine.AllowsSelfLoops())
}
