package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/questline/pkg/adapters/redis"
	"github.com/aretw0/questline/pkg/domain"
	"github.com/aretw0/questline/pkg/ports/tests"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStores_Contract(t *testing.T) {
	_, client := newClient(t)

	tests.RunSessionStoreContract(t, redis.NewSessionStore(client))
	tests.RunTemplateStoreContract(t, redis.NewTemplateStore(client))
}

func TestRedisSessionStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := redis.NewSessionStore(client, redis.WithTTL(time.Second), redis.WithClock(clock))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &domain.GameSession{ID: 5, TemplateID: 1, CurrentNodeID: 1}))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, ids)

	// Expire the key in redis and move the index clock past the score.
	mr.FastForward(2 * time.Second)
	now = now.Add(2 * time.Second)

	_, err = store.Load(ctx, 5)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids, "expired entries are pruned from the index on List")
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	sessions := redis.NewSessionStore(client, redis.WithPrefix("custom:app:"))
	templates := redis.NewTemplateStore(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, sessions.Save(ctx, &domain.GameSession{ID: 3, CurrentNodeID: 1}))
	require.NoError(t, templates.Save(ctx, domain.NewTemplate(9, "Prefixed", 1, time.Now())))

	assert.True(t, mr.Exists("custom:app:session:3"), "Expected session key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:session:index"), "Expected session index with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:template:9"), "Expected template key with custom prefix to exist")
	assert.False(t, mr.Exists("questline:session:3"))
}

func TestRedisStore_NextIDUsesCounter(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewTemplateStore(client)
	ctx := context.Background()

	a, err := store.NextID(ctx)
	require.NoError(t, err)
	b, err := store.NextID(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
	v, err := mr.Get("questline:template:seq")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

func TestRedisStore_DeleteRemovesFromIndex(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewTemplateStore(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.NewTemplate(1, "A", 1, time.Now())))
	require.NoError(t, store.Save(ctx, domain.NewTemplate(2, "B", 1, time.Now())))
	require.NoError(t, store.Delete(ctx, 1))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, ids)
}
