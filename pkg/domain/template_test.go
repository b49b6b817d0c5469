package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/aretw0/questline/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTemplate(t *testing.T) (*domain.Template, time.Time) {
	t.Helper()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tpl := domain.NewTemplate(10, "  One Shot  ", 1, created)
	require.NoError(t, tpl.AddNode(domain.TemplateNode{ID: 1, Description: " start "}, created))
	require.NoError(t, tpl.AddNode(domain.TemplateNode{ID: 2, Description: "fight"}, created))
	require.NoError(t, tpl.AddNode(domain.TemplateNode{ID: 3, Description: "end"}, created))
	return tpl, created
}

func TestTemplate_AddNode(t *testing.T) {
	tpl, created := newTestTemplate(t)

	assert.Equal(t, "One Shot", tpl.Name)
	n, ok := tpl.Node(1)
	require.True(t, ok)
	assert.Equal(t, "start", n.Description, "description should be trimmed")
	assert.Equal(t, 10, n.TemplateID, "template id should be forced to the owner")

	err := tpl.AddNode(domain.TemplateNode{ID: 1, Description: "again"}, created)
	assert.ErrorIs(t, err, domain.ErrDuplicateNode)

	err = tpl.AddNode(domain.TemplateNode{ID: 4, Description: "   "}, created)
	assert.ErrorIs(t, err, domain.ErrEmptyDescription)
}

func TestTemplate_EditsAdvanceUpdatedAt(t *testing.T) {
	tpl, created := newTestTemplate(t)
	later := created.Add(time.Hour)

	require.NoError(t, tpl.Connect(1, 2, later))
	assert.Equal(t, later, tpl.UpdatedAt)
	assert.Equal(t, created, tpl.CreatedAt)

	evenLater := later.Add(time.Hour)
	require.NoError(t, tpl.UpdateDescription(2, "boss fight", evenLater))
	assert.Equal(t, evenLater, tpl.UpdatedAt)
}

func TestTemplate_ConnectDisconnect(t *testing.T) {
	tpl, at := newTestTemplate(t)

	require.NoError(t, tpl.Connect(1, 2, at))
	require.NoError(t, tpl.Connect(1, 3, at))
	require.NoError(t, tpl.Connect(1, 2, at), "connecting twice is a no-op")

	n, _ := tpl.Node(1)
	assert.Equal(t, []int{2, 3}, n.Destinations)

	err := tpl.Connect(1, 99, at)
	var dangling *domain.DanglingReferenceError
	require.True(t, errors.As(err, &dangling))
	assert.Equal(t, 99, dangling.Destination)

	assert.ErrorIs(t, tpl.Connect(42, 1, at), domain.ErrUnknownNode)

	require.NoError(t, tpl.Disconnect(1, 2, at))
	n, _ = tpl.Node(1)
	assert.Equal(t, []int{3}, n.Destinations)
}

func TestTemplate_RemoveNodeStripsInboundEdges(t *testing.T) {
	tpl, at := newTestTemplate(t)
	require.NoError(t, tpl.Connect(1, 2, at))
	require.NoError(t, tpl.Connect(1, 3, at))
	require.NoError(t, tpl.Connect(2, 3, at))

	require.NoError(t, tpl.RemoveNode(3, at))

	_, ok := tpl.Node(3)
	assert.False(t, ok)
	n1, _ := tpl.Node(1)
	n2, _ := tpl.Node(2)
	assert.Equal(t, []int{2}, n1.Destinations)
	assert.Empty(t, n2.Destinations)

	assert.ErrorIs(t, tpl.RemoveNode(3, at), domain.ErrUnknownNode)
}

func TestTemplate_SetEntry(t *testing.T) {
	tpl, at := newTestTemplate(t)

	require.NoError(t, tpl.SetEntry(2, at))
	assert.Equal(t, 2, tpl.EntryNodeID)

	assert.ErrorIs(t, tpl.SetEntry(50, at), domain.ErrInvalidEntryPoint)
}

func TestTemplate_CloneIsDeep(t *testing.T) {
	tpl, at := newTestTemplate(t)
	require.NoError(t, tpl.Connect(1, 2, at))

	cp := tpl.Clone()
	require.NoError(t, cp.Connect(1, 3, at))

	orig, _ := tpl.Node(1)
	assert.Equal(t, []int{2}, orig.Destinations, "clone edits must not leak into the original")
}

func TestAggregateError_MatchesMembers(t *testing.T) {
	err := &domain.AggregateError{Errors: []error{
		&domain.DanglingReferenceError{NodeID: 1, Destination: 9},
		&domain.SelfLoopError{NodeID: 2},
	}}

	assert.ErrorIs(t, err, domain.ErrDanglingReference)
	assert.ErrorIs(t, err, domain.ErrIllegalSelfLoop)
	assert.NotErrorIs(t, err, domain.ErrInvalidEntryPoint)
	assert.Len(t, domain.ValidationErrors(err), 2)
	assert.Contains(t, err.Error(), "2 validation errors")
}
