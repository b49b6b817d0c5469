package mcp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	"github.com/aretw0/questline/internal/logging"
	mcpAdapter "github.com/aretw0/questline/pkg/adapters/mcp"
	"github.com/aretw0/questline/pkg/adapters/memory"
	"github.com/aretw0/questline/pkg/session"
	"github.com/aretw0/questline/pkg/templates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type toolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StructuredContent json.RawMessage `json:"structuredContent"`
	IsError           bool            `json:"isError"`
}

type harness struct {
	server     *mcpAdapter.Server
	templateID int
	seq        int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithLogger(t, logging.NewNop())
}

func newHarnessWithLogger(t *testing.T, logger *slog.Logger) *harness {
	t.Helper()
	store := memory.NewTemplateStore()
	svc := templates.NewService(store)
	mgr := session.NewManager(store, memory.NewSessionStore())

	res, err := svc.Create(context.Background(), templates.Input{
		Name:        "Goblin ambush",
		EntryNodeID: 1,
		Nodes: []templates.NodeInput{
			{ID: 1, Description: "Bridge", Destinations: []int{2, 3}},
			{ID: 2, Description: "Fight", Destinations: []int{3}},
			{ID: 3, Description: "Camp"},
		},
	})
	require.NoError(t, err)

	return &harness{
		server:     mcpAdapter.NewServer(svc, mgr, "test", logger),
		templateID: res.Template.ID,
	}
}

func (h *harness) rpc(t *testing.T, method string, params any) json.RawMessage {
	t.Helper()
	h.seq++
	msg, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      h.seq,
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)

	reply := h.server.MCPServer().HandleMessage(context.Background(), msg)
	data, err := json.Marshal(reply)
	require.NoError(t, err)

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(data, &envelope))
	require.Nil(t, envelope.Error, string(data))
	return envelope.Result
}

func (h *harness) call(t *testing.T, tool string, args map[string]any) toolResult {
	t.Helper()
	raw := h.rpc(t, "tools/call", map[string]any{"name": tool, "arguments": args})
	var res toolResult
	require.NoError(t, json.Unmarshal(raw, &res))
	require.NotEmpty(t, res.Content)
	return res
}

func TestNilLoggerStaysQuiet(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	h := newHarnessWithLogger(t, nil)
	res := h.call(t, "start_session", map[string]any{"template_id": h.templateID})
	require.False(t, res.IsError, res.Content[0].Text)
	var view mcpAdapter.SessionView
	require.NoError(t, json.Unmarshal(res.StructuredContent, &view))

	res = h.call(t, "advance_session", map[string]any{"session_id": view.ID, "to_node_id": 1})
	assert.True(t, res.IsError)
	assert.Empty(t, buf.String(), "rejected advances are not logged to the process default")
}

func TestTools_Listed(t *testing.T) {
	h := newHarness(t)
	raw := h.rpc(t, "tools/list", map[string]any{})

	var out struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))

	var names []string
	for _, tool := range out.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"list_templates", "validate_template", "next_nodes", "render_graph",
		"start_session", "get_session", "advance_session",
	}, names)
}

func TestListAndValidateTemplates(t *testing.T) {
	h := newHarness(t)

	res := h.call(t, "list_templates", nil)
	require.False(t, res.IsError)
	var views []mcpAdapter.TemplateView
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].Text), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "Goblin ambush", views[0].Name)
	assert.True(t, views[0].Valid)

	res = h.call(t, "validate_template", map[string]any{"template_id": h.templateID})
	require.False(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, `"valid":true`)
	assert.Contains(t, res.Content[0].Text, `"terminal":[3]`)

	res = h.call(t, "validate_template", map[string]any{"template_id": 999})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "template not found")
}

func TestNextNodes(t *testing.T) {
	h := newHarness(t)

	res := h.call(t, "next_nodes", map[string]any{"template_id": h.templateID, "node_id": 1})
	require.False(t, res.IsError)
	var nodes []mcpAdapter.NodeView
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].Text), &nodes))
	require.Len(t, nodes, 2)
	assert.Equal(t, 2, nodes[0].ID)
	assert.Equal(t, 3, nodes[1].ID)

	res = h.call(t, "next_nodes", map[string]any{"template_id": h.templateID})
	assert.True(t, res.IsError)
}

func TestSessionTools(t *testing.T) {
	h := newHarness(t)

	res := h.call(t, "start_session", map[string]any{"template_id": h.templateID, "name": "Friday", "guild_id": "g1"})
	require.False(t, res.IsError, res.Content[0].Text)
	var view mcpAdapter.SessionView
	require.NoError(t, json.Unmarshal(res.StructuredContent, &view))
	assert.Equal(t, 1, view.CurrentNodeID)
	assert.Equal(t, "g1", view.GuildID)
	assert.False(t, view.Complete)
	assert.Len(t, view.Next, 2)

	res = h.call(t, "advance_session", map[string]any{"session_id": view.ID, "to_node_id": 2})
	require.False(t, res.IsError, res.Content[0].Text)
	require.NoError(t, json.Unmarshal(res.StructuredContent, &view))
	assert.Equal(t, 2, view.CurrentNodeID)
	assert.Equal(t, 1, view.Steps)

	res = h.call(t, "advance_session", map[string]any{"session_id": view.ID, "to_node_id": 1})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "illegal transition")

	res = h.call(t, "advance_session", map[string]any{"session_id": view.ID, "to_node_id": 3})
	require.False(t, res.IsError)
	require.NoError(t, json.Unmarshal(res.StructuredContent, &view))
	assert.True(t, view.Complete)
	assert.Empty(t, view.Next)

	res = h.call(t, "get_session", map[string]any{"session_id": view.ID})
	require.False(t, res.IsError)
	require.NoError(t, json.Unmarshal(res.StructuredContent, &view))
	assert.Equal(t, 2, view.Steps)

	res = h.call(t, "get_session", map[string]any{"session_id": 404})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "session not found")
}

func TestRenderGraph(t *testing.T) {
	h := newHarness(t)

	res := h.call(t, "render_graph", map[string]any{"template_id": h.templateID})
	require.False(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "graph TD")
	assert.Contains(t, res.Content[0].Text, "n1 --> n2")

	start := h.call(t, "start_session", map[string]any{"template_id": h.templateID})
	var view mcpAdapter.SessionView
	require.NoError(t, json.Unmarshal(start.StructuredContent, &view))

	res = h.call(t, "render_graph", map[string]any{"session_id": view.ID})
	require.False(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "class n1 current")

	res = h.call(t, "render_graph", map[string]any{})
	assert.True(t, res.IsError)
}

func TestTemplatesResource(t *testing.T) {
	h := newHarness(t)
	raw := h.rpc(t, "resources/read", map[string]any{"uri": mcpAdapter.TemplatesURI})

	var out struct {
		Contents []struct {
			URI  string `json:"uri"`
			Text string `json:"text"`
		} `json:"contents"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Len(t, out.Contents, 1)
	assert.Equal(t, mcpAdapter.TemplatesURI, out.Contents[0].URI)
	assert.Contains(t, out.Contents[0].Text, fmt.Sprintf(`"id":%d`, h.templateID))
}
