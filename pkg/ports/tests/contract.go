// Package tests holds reusable contract suites for port implementations.
package tests

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/questline/pkg/domain"
	"github.com/aretw0/questline/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTemplate(id int) *domain.Template {
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	tpl := domain.NewTemplate(id, "Contract template", 1, at)
	_ = tpl.AddNode(domain.TemplateNode{ID: 1, Description: "start", Destinations: []int{2}}, at)
	_ = tpl.AddNode(domain.TemplateNode{ID: 2, Description: "end"}, at)
	return tpl
}

func sampleSession(id int) *domain.GameSession {
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	executed := at.Add(time.Minute)
	return &domain.GameSession{
		ID:            id,
		Name:          "Contract session",
		TemplateID:    1,
		GuildID:       "guild-1",
		CreatedAt:     at,
		UpdatedAt:     executed,
		CurrentNodeID: 2,
		Nodes: map[int]domain.SessionNode{
			1: {ID: 1, SessionID: id, TemplateNodeID: 1, Description: "start"},
			2: {
				ID: 2, SessionID: id, TemplateNodeID: 2, Description: "end",
				ExecutedAt: &executed,
				Executions: []domain.Execution{{Seq: 1, At: executed}},
			},
		},
		History: []domain.Step{{Seq: 1, NodeID: 2, At: executed}},
	}
}

// RunTemplateStoreContract verifies that a TemplateStore implementation adheres
// to the interface contract.
func RunTemplateStoreContract(t *testing.T, store ports.TemplateStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("Save and Load", func(t *testing.T) {
		id, err := store.NextID(ctx)
		require.NoError(t, err)

		tpl := sampleTemplate(id)
		require.NoError(t, store.Save(ctx, tpl))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, tpl.Name, loaded.Name)
		assert.Equal(t, tpl.EntryNodeID, loaded.EntryNodeID)
		assert.Equal(t, []int{2}, loaded.Nodes[1].Destinations)
		assert.Equal(t, "end", loaded.Nodes[2].Description)
		assert.True(t, tpl.UpdatedAt.Equal(loaded.UpdatedAt))
	})

	t.Run("Load Returns Copy", func(t *testing.T) {
		id, err := store.NextID(ctx)
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, sampleTemplate(id)))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		loaded.Name = "mutated"

		again, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Contract template", again.Name)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, -1)
		assert.ErrorIs(t, err, domain.ErrTemplateNotFound)
	})

	t.Run("NextID Is Unique", func(t *testing.T) {
		a, err := store.NextID(ctx)
		require.NoError(t, err)
		b, err := store.NextID(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("Delete and List", func(t *testing.T) {
		id1, err := store.NextID(ctx)
		require.NoError(t, err)
		id2, err := store.NextID(ctx)
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, sampleTemplate(id1)))
		require.NoError(t, store.Save(ctx, sampleTemplate(id2)))

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
		assert.IsIncreasing(t, ids)

		require.NoError(t, store.Delete(ctx, id1))
		_, err = store.Load(ctx, id1)
		assert.ErrorIs(t, err, domain.ErrTemplateNotFound, "Load after Delete should return ErrTemplateNotFound")

		ids, err = store.List(ctx)
		require.NoError(t, err)
		assert.NotContains(t, ids, id1)

		assert.NoError(t, store.Delete(ctx, id1), "deleting twice is not an error")
	})
}

// RunSessionStoreContract verifies that a SessionStore implementation adheres
// to the interface contract.
func RunSessionStoreContract(t *testing.T, store ports.SessionStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("Save and Load", func(t *testing.T) {
		id, err := store.NextID(ctx)
		require.NoError(t, err)

		sess := sampleSession(id)
		require.NoError(t, store.Save(ctx, sess))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, sess.CurrentNodeID, loaded.CurrentNodeID)
		assert.Equal(t, sess.GuildID, loaded.GuildID)
		require.Len(t, loaded.Nodes, 2)
		assert.Nil(t, loaded.Nodes[1].ExecutedAt)
		require.NotNil(t, loaded.Nodes[2].ExecutedAt)
		assert.True(t, sess.Nodes[2].ExecutedAt.Equal(*loaded.Nodes[2].ExecutedAt))
		require.Len(t, loaded.History, 1)
		assert.Equal(t, 2, loaded.History[0].NodeID)
	})

	t.Run("Load Returns Copy", func(t *testing.T) {
		id, err := store.NextID(ctx)
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, sampleSession(id)))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		loaded.CurrentNodeID = 99

		again, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 2, again.CurrentNodeID)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, -1)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete and List", func(t *testing.T) {
		id1, err := store.NextID(ctx)
		require.NoError(t, err)
		id2, err := store.NextID(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, id1, id2)

		require.NoError(t, store.Save(ctx, sampleSession(id1)))
		require.NoError(t, store.Save(ctx, sampleSession(id2)))

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)

		require.NoError(t, store.Delete(ctx, id1))
		_, err = store.Load(ctx, id1)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)

		ids, err = store.List(ctx)
		require.NoError(t, err)
		assert.NotContains(t, ids, id1)
	})
}
