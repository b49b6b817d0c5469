package engine_test

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/aretw0/questline/pkg/domain"
	"github.com/aretw0/questline/pkg/dsl"
	"github.com/aretw0/questline/pkg/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepClock returns a clock that advances one second per call.
func stepClock() func() time.Time {
	t := time.Date(2026, 10, 1, 19, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func branching(t *testing.T) *domain.Template {
	t.Helper()
	b := dsl.New(1, "branching")
	b.Add(1).Text("start").Go(2, 3)
	b.Add(2).Text("left").Go(1)
	b.Add(3).Text("right")
	tpl, err := b.Build()
	require.NoError(t, err)
	return tpl
}

func TestValidate_WellFormed(t *testing.T) {
	eng := engine.New()
	b := dsl.New(1, "linear")
	b.Add(1).Text("a").Go(2)
	b.Add(2).Text("b").Go(3)
	b.Add(3).Text("c")

	res := eng.Validate(b.MustBuild())

	assert.True(t, res.Valid())
	assert.NoError(t, res.Err())
	assert.Empty(t, res.Unreachable)
	assert.False(t, res.HasCycle)
	assert.Equal(t, []int{3}, res.Terminal)
}

func TestValidate_DanglingReference(t *testing.T) {
	eng := engine.New()
	b := dsl.New(1, "broken")
	b.Add(1).Text("start").Go(2, 9)
	b.Add(2).Text("end")

	res := eng.Validate(b.MustBuild())

	require.False(t, res.Valid())
	assert.ErrorIs(t, res.Err(), domain.ErrDanglingReference)

	var dangling *domain.DanglingReferenceError
	require.True(t, errors.As(res.Errors[0], &dangling))
	assert.Equal(t, 1, dangling.NodeID)
	assert.Equal(t, 9, dangling.Destination)
}

func TestValidate_InvalidEntryPoint(t *testing.T) {
	eng := engine.New()
	b := dsl.New(1, "no entry")
	b.Add(1).Text("start")
	b.Entry(42)

	res := eng.Validate(b.MustBuild())

	assert.ErrorIs(t, res.Err(), domain.ErrInvalidEntryPoint)
	assert.Nil(t, res.Unreachable, "reachability cannot be computed without an entry node")
}

func TestValidate_SelfLoop(t *testing.T) {
	b := dsl.New(1, "loop")
	b.Add(1).Text("wait a turn").Go(1, 2)
	b.Add(2).Text("done")
	tpl := b.MustBuild()

	res := engine.New().Validate(tpl)
	assert.ErrorIs(t, res.Err(), domain.ErrIllegalSelfLoop)
	assert.True(t, res.HasCycle)

	res = engine.New(engine.WithSelfLoops(true)).Validate(tpl)
	assert.True(t, res.Valid())
	assert.True(t, res.HasCycle, "a permitted self-loop is still reported as a cycle")
	assert.Equal(t, []int{1, 1}, res.Cycle)
}

func TestValidate_ErrorOrder(t *testing.T) {
	b := dsl.New(1, "everything wrong")
	b.Add(1).Text("a").Go(1, 7)
	b.Entry(5)

	res := engine.New().Validate(b.MustBuild())

	require.Len(t, res.Errors, 3)
	assert.ErrorIs(t, res.Errors[0], domain.ErrDanglingReference)
	assert.ErrorIs(t, res.Errors[1], domain.ErrInvalidEntryPoint)
	assert.ErrorIs(t, res.Errors[2], domain.ErrIllegalSelfLoop)
}

func TestValidate_AdvisoryFindings(t *testing.T) {
	b := dsl.New(1, "islands")
	b.Add(1).Text("start").Go(2)
	b.Add(2).Text("back").Go(1)
	b.Add(3).Text("orphan").Go(4)
	b.Add(4).Text("orphan end")

	res := engine.New().Validate(b.MustBuild())

	assert.True(t, res.Valid(), "advisories never fail validation")
	assert.Equal(t, []int{3, 4}, res.Unreachable)
	assert.True(t, res.HasCycle)
	assert.Equal(t, []int{1, 2, 1}, res.Cycle)
	assert.True(t, res.Warnings())
}

func TestNextNodes_DeclaredOrder(t *testing.T) {
	b := dsl.New(1, "order")
	b.Add(1).Text("hub").Go(4, 2, 3)
	b.Add(2).Text("b")
	b.Add(3).Text("c")
	b.Add(4).Text("a")

	next, err := engine.New().NextNodes(b.MustBuild(), 1)
	require.NoError(t, err)

	ids := make([]int, 0, len(next))
	for _, n := range next {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []int{4, 2, 3}, ids)
}

func TestNextNodes_UnknownNode(t *testing.T) {
	_, err := engine.New().NextNodes(branching(t), 99)
	assert.ErrorIs(t, err, domain.ErrUnknownNode)
}

func TestReachableSet_Cycle(t *testing.T) {
	b := dsl.New(1, "ping pong")
	b.Add(1).Text("ping").Go(2)
	b.Add(2).Text("pong").Go(1)

	set, err := engine.New().ReachableSet(b.MustBuild(), 1)
	require.NoError(t, err)
	assert.Equal(t, map[int]struct{}{1: {}, 2: {}}, set)

	_, err = engine.New().ReachableSet(b.MustBuild(), 3)
	assert.ErrorIs(t, err, domain.ErrUnknownNode)
}

func TestCreateSessionOverlay(t *testing.T) {
	tpl := branching(t)
	overlay := engine.New().CreateSessionOverlay(tpl)

	require.Len(t, overlay, len(tpl.Nodes))
	for id, n := range tpl.Nodes {
		sn, ok := overlay[id]
		require.True(t, ok, "missing overlay for node %d", id)
		assert.Equal(t, n.Description, sn.Description)
		assert.Equal(t, id, sn.TemplateNodeID)
		assert.Nil(t, sn.ExecutedAt)
		assert.Empty(t, sn.Executions)
	}
}

func TestAdvance_IllegalTransition(t *testing.T) {
	b := dsl.New(1, "fork")
	b.Add(1).Text("start").Go(2, 3)
	b.Add(2).Text("two")
	b.Add(3).Text("three")
	b.Add(4).Text("four")
	tpl := b.MustBuild()

	eng := engine.New()
	sess, err := eng.NewSession(tpl, 1, "run", "")
	require.NoError(t, err)

	_, err = eng.Advance(tpl, sess, 4)
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)

	var terr *domain.TransitionError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, []int{2, 3}, terr.Allowed)
}

func TestAdvance_RevisitAppendsRecords(t *testing.T) {
	tpl := branching(t)
	eng := engine.New(engine.WithClock(stepClock()))

	sess, err := eng.NewSession(tpl, 1, "run", "guild")
	require.NoError(t, err)

	sess, err = eng.Advance(tpl, sess, 2)
	require.NoError(t, err)
	firstTwo := *sess.Nodes[2].ExecutedAt

	sess, err = eng.Advance(tpl, sess, 1)
	require.NoError(t, err)
	sess, err = eng.Advance(tpl, sess, 2)
	require.NoError(t, err)

	two := sess.Nodes[2]
	require.Len(t, two.Executions, 2)
	assert.Equal(t, firstTwo, *two.ExecutedAt, "executedAt is immutable once set")
	assert.True(t, two.Executions[1].At.After(two.Executions[0].At))
	assert.NotEqual(t, two.Executions[0].Seq, two.Executions[1].Seq)

	one := sess.Nodes[1]
	require.Len(t, one.Executions, 1)
	assert.Equal(t, 2, one.Executions[0].Seq)

	assert.Len(t, sess.History, 3)
	assert.Equal(t, []int{2, 1}, sess.Visited())
}

func TestAdvance_DoesNotMutateInput(t *testing.T) {
	tpl := branching(t)
	eng := engine.New()

	before, err := eng.NewSession(tpl, 1, "run", "")
	require.NoError(t, err)

	after, err := eng.Advance(tpl, before, 3)
	require.NoError(t, err)

	assert.Equal(t, 1, before.CurrentNodeID)
	assert.Nil(t, before.Nodes[3].ExecutedAt)
	assert.Empty(t, before.History)
	assert.Equal(t, 3, after.CurrentNodeID)
}

func TestAdvance_TemplateMismatch(t *testing.T) {
	tpl := branching(t)
	eng := engine.New()
	sess, err := eng.NewSession(tpl, 1, "run", "")
	require.NoError(t, err)

	other := tpl.Clone()
	other.ID = 2
	_, err = eng.Advance(other, sess, 2)
	assert.ErrorIs(t, err, domain.ErrTemplateMismatch)
}

func TestAdvance_NodeAddedAfterSessionStart(t *testing.T) {
	tpl := branching(t)
	eng := engine.New()
	sess, err := eng.NewSession(tpl, 1, "run", "")
	require.NoError(t, err)

	edited := tpl.Clone()
	require.NoError(t, edited.AddNode(domain.TemplateNode{ID: 10, Description: "secret door"}, time.Now()))
	require.NoError(t, edited.Connect(1, 10, time.Now()))

	sess, err = eng.Advance(edited, sess, 10)
	require.NoError(t, err)

	sn, ok := sess.Node(10)
	require.True(t, ok)
	assert.Equal(t, "secret door", sn.Description)
	assert.Equal(t, 4, sn.ID)
	assert.NotNil(t, sn.ExecutedAt)
}

func TestEndToEnd_StartToEnd(t *testing.T) {
	b := dsl.New(1, "tiny")
	b.Add(1).Text("start").Go(2)
	b.Add(2).Text("end")
	tpl := b.MustBuild()
	eng := engine.New()

	overlay := eng.CreateSessionOverlay(tpl)
	require.Len(t, overlay, 2)
	assert.False(t, overlay[1].Executed())
	assert.False(t, overlay[2].Executed())

	sess, err := eng.NewSession(tpl, 1, "tiny run", "")
	require.NoError(t, err)
	assert.False(t, eng.IsComplete(tpl, sess))

	sess, err = eng.Advance(tpl, sess, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, sess.CurrentNodeID)
	assert.True(t, sess.Nodes[2].Executed())
	assert.False(t, sess.Nodes[1].Executed())
	assert.True(t, eng.IsComplete(tpl, sess))
}

func TestCanReach(t *testing.T) {
	b := dsl.New(1, "one way")
	b.Add(1).Text("start").Go(2, 3)
	b.Add(2).Text("dead end")
	b.Add(3).Text("other end")
	tpl := b.MustBuild()
	eng := engine.New()

	sess, err := eng.NewSession(tpl, 1, "run", "")
	require.NoError(t, err)
	ok, err := eng.CanReach(tpl, sess, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	sess, err = eng.Advance(tpl, sess, 2)
	require.NoError(t, err)
	ok, err = eng.CanReach(tpl, sess, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = eng.CanReach(tpl, sess, 77)
	assert.ErrorIs(t, err, domain.ErrUnknownNode)
}

func TestNewSession_InvalidEntry(t *testing.T) {
	b := dsl.New(1, "no entry")
	b.Add(1).Text("start")
	b.Entry(2)

	_, err := engine.New().NewSession(b.MustBuild(), 1, "run", "")
	assert.ErrorIs(t, err, domain.ErrInvalidEntryPoint)
}

// Random graphs whose destinations all resolve must validate cleanly, and
// traversal must terminate no matter how many cycles they contain.
func TestRandomGraphs(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	eng := engine.New()

	for i := 0; i < 200; i++ {
		size := 1 + rng.Intn(12)
		b := dsl.New(i, "random")
		for id := 1; id <= size; id++ {
			nb := b.Add(id).Text("step")
			for k := rng.Intn(4); k > 0; k-- {
				dest := 1 + rng.Intn(size)
				if dest != id {
					nb.Go(dest)
				}
			}
		}
		tpl := b.MustBuild()

		res := eng.Validate(tpl)
		require.True(t, res.Valid(), "graph %d: %v", i, res.Err())

		set, err := eng.ReachableSet(tpl, tpl.EntryNodeID)
		require.NoError(t, err)
		assert.Equal(t, len(tpl.Nodes)-len(res.Unreachable), len(set))
	}
}
