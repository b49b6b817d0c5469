package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"testing"
	"time"

	"github.com/aretw0/questline/pkg/adapters/memory"
	"github.com/aretw0/questline/pkg/domain"
	"github.com/aretw0/questline/pkg/persistence/middleware"
	"github.com/aretw0/questline/pkg/ports"
	"github.com/aretw0/questline/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, middleware.KeySize)
	_, err := rand.Read(k)
	require.NoError(t, err)
	return k
}

func newSession(id int) *domain.GameSession {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &domain.GameSession{
		ID:            id,
		Name:          "Friday table",
		TemplateID:    1,
		GuildID:       "guild-42",
		CreatedAt:     now,
		UpdatedAt:     now,
		CurrentNodeID: 1,
		Nodes: map[int]domain.SessionNode{
			1: {ID: 1, SessionID: id, TemplateNodeID: 1, Description: "The bridge"},
			2: {ID: 2, SessionID: id, TemplateNodeID: 2, Description: "Goblins attack"},
		},
	}
}

func wrap(t *testing.T, next ports.SessionStore, cfg middleware.EncryptionConfig) ports.SessionStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	require.NoError(t, err)
	return middleware.Chain(next, mw)
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	tests.RunSessionStoreContract(t, wrap(t, memory.NewSessionStore(), middleware.EncryptionConfig{ActiveKey: generateKey(t)}))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewSessionStore()
	secure := wrap(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})

	original := newSession(7)
	require.NoError(t, secure.Save(ctx, original))
	assert.Equal(t, "Friday table", original.Name, "caller's session must not be mutated")

	stored, err := underlying.Load(ctx, 7)
	require.NoError(t, err)
	assert.NotContains(t, stored.Name, "Friday")
	assert.NotContains(t, stored.GuildID, "guild")
	assert.NotContains(t, stored.Nodes[2].Description, "Goblins")
	assert.Equal(t, 1, stored.CurrentNodeID)

	loaded, err := secure.Load(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)

	ids, err := secure.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{7}, ids)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewSessionStore()
	oldKey, newKey := generateKey(t), generateKey(t)

	oldStore := wrap(t, underlying, middleware.EncryptionConfig{ActiveKey: oldKey})
	require.NoError(t, oldStore.Save(ctx, newSession(1)))

	newStore := wrap(t, underlying, middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	loaded, err := newStore.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "guild-42", loaded.GuildID)

	require.NoError(t, newStore.Save(ctx, loaded))
	_, err = oldStore.Load(ctx, 1)
	assert.Error(t, err, "old key alone cannot open data sealed with the new key")
}

func TestEncryptionMiddleware_RejectsPlaintext(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewSessionStore()
	require.NoError(t, underlying.Save(ctx, newSession(3)))

	secure := wrap(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	_, err := secure.Load(ctx, 3)
	assert.ErrorIs(t, err, middleware.ErrNotEncrypted)

	_, err = secure.Load(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestNewEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	assert.ErrorContains(t, err, "32 bytes")
}

func TestParseKeys(t *testing.T) {
	active := base64.StdEncoding.EncodeToString(generateKey(t))
	old := base64.StdEncoding.EncodeToString(generateKey(t))

	cfg, err := middleware.ParseKeys(active, old)
	require.NoError(t, err)
	assert.Len(t, cfg.ActiveKey, middleware.KeySize)
	assert.Len(t, cfg.FallbackKeys, 1)

	_, err = middleware.ParseKeys("not base64!")
	assert.Error(t, err)

	_, err = middleware.ParseKeys(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorContains(t, err, "active key")
}
