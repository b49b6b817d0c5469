package dsl

import (
	"testing"
	"time"

	"github.com/aretw0/questline/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_SimpleFlow(t *testing.T) {
	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	b := New(3, "Goblin ambush").At(at)

	b.Add(1).Text("Party arrives at the bridge").Go(2, 3)
	b.Add(2).Text("Goblins attack").Go(4)
	b.Add(3).Text("Party sneaks past").Go(4)
	b.Add(4).Text("Camp for the night").Terminal()

	tpl, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, 3, tpl.ID)
	assert.Equal(t, "Goblin ambush", tpl.Name)
	assert.Equal(t, 1, tpl.EntryNodeID, "first added node is the default entry")
	assert.Equal(t, at, tpl.CreatedAt)
	assert.Len(t, tpl.Nodes, 4)

	start, ok := tpl.Node(1)
	require.True(t, ok)
	assert.Equal(t, []int{2, 3}, start.Destinations)
	assert.Equal(t, 3, start.TemplateID)

	end, _ := tpl.Node(4)
	assert.True(t, end.IsTerminal())
}

func TestBuilder_ExplicitEntry(t *testing.T) {
	b := New(1, "flow")
	b.Add(5).Text("late start").Go(6)
	b.Add(6).Text("finish")
	b.Entry(6)

	tpl := b.MustBuild()
	assert.Equal(t, 6, tpl.EntryNodeID)
}

func TestBuilder_AddReturnsExisting(t *testing.T) {
	b := New(1, "flow")
	b.Add(1).Text("start")
	b.Add(1).Go(2)
	b.Add(2).Text("end")

	tpl := b.MustBuild()
	n, _ := tpl.Node(1)
	assert.Equal(t, "start", n.Description)
	assert.Equal(t, []int{2}, n.Destinations)
}

func TestBuilder_Errors(t *testing.T) {
	_, err := New(1, "  ").Build()
	assert.ErrorIs(t, err, domain.ErrEmptyName)

	b := New(1, "flow")
	b.Add(1)
	_, err = b.Build()
	assert.ErrorIs(t, err, domain.ErrEmptyDescription)
}
