package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/aretw0/questline/internal/logging"
	"github.com/aretw0/questline/internal/presentation/graph"
	"github.com/aretw0/questline/pkg/domain"
	"github.com/aretw0/questline/pkg/session"
	"github.com/aretw0/questline/pkg/templates"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

// TemplatesURI is the resource listing every stored template.
const TemplatesURI = "questline://templates"

// NodeView is a template node as shown to an assistant.
type NodeView struct {
	ID           int    `json:"id" jsonschema_description:"Template node id"`
	Description  string `json:"description" jsonschema_description:"What happens at this node"`
	Destinations []int  `json:"destinations" jsonschema_description:"Node ids reachable from here"`
}

// SessionView is the structured result of the session tools.
type SessionView struct {
	ID            int        `json:"id" jsonschema_description:"Session id"`
	Name          string     `json:"name"`
	TemplateID    int        `json:"template_id"`
	GuildID       string     `json:"guild_id,omitempty"`
	CurrentNodeID int        `json:"current_node_id" jsonschema_description:"Node the session is positioned at"`
	Steps         int        `json:"steps" jsonschema_description:"Number of advances taken"`
	Complete      bool       `json:"complete" jsonschema_description:"True when the current node is terminal"`
	Next          []NodeView `json:"next" jsonschema_description:"Nodes the session may advance to"`
}

// TemplateView is a list entry of the templates resource.
type TemplateView struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	EntryNodeID int    `json:"entry_node_id"`
	Nodes       int    `json:"nodes"`
	Valid       bool   `json:"valid"`
}

// Server exposes templates and sessions as MCP tools.
type Server struct {
	templates *templates.Service
	sessions  *session.Manager
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(tpls *templates.Service, sessions *session.Manager, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		templates: tpls,
		sessions:  sessions,
		logger:    logger,
		mcpServer: server.NewMCPServer("questline-mcp", version,
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on port until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := net.JoinHostPort("", strconv.Itoa(port))
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop MCP server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_templates",
		mcp.WithDescription("List every stored quest template."),
	), s.handleListTemplates)

	s.mcpServer.AddTool(mcp.NewTool("validate_template",
		mcp.WithDescription("Check a template for dangling references, bad entry points, unreachable nodes and cycles."),
		mcp.WithNumber("template_id", mcp.Required(), mcp.Description("Template id")),
	), s.handleValidateTemplate)

	s.mcpServer.AddTool(mcp.NewTool("next_nodes",
		mcp.WithDescription("List the nodes reachable in one step from a template node."),
		mcp.WithNumber("template_id", mcp.Required(), mcp.Description("Template id")),
		mcp.WithNumber("node_id", mcp.Required(), mcp.Description("Node to look from")),
	), s.handleNextNodes)

	s.mcpServer.AddTool(mcp.NewTool("render_graph",
		mcp.WithDescription("Render a template as a Mermaid flowchart, optionally highlighting a session's progress."),
		mcp.WithNumber("template_id", mcp.Description("Template to render (ignored when session_id is set)")),
		mcp.WithNumber("session_id", mcp.Description("Session whose progress to overlay")),
	), s.handleRenderGraph)

	s.mcpServer.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Start a game session at the entry node of a template."),
		mcp.WithNumber("template_id", mcp.Required(), mcp.Description("Template id")),
		mcp.WithString("name", mcp.Description("Session name")),
		mcp.WithString("guild_id", mcp.Description("Discord guild the session belongs to")),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleStartSession))

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Show where a session is and where it can go next."),
		mcp.WithNumber("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleGetSession))

	s.mcpServer.AddTool(mcp.NewTool("advance_session",
		mcp.WithDescription("Move a session to one of the destinations of its current node."),
		mcp.WithNumber("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithNumber("to_node_id", mcp.Required(), mcp.Description("Destination node id")),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleAdvanceSession))
}

func (s *Server) handleListTemplates(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	views, err := s.templateViews(ctx)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("list failed", err), nil
	}
	return jsonResult(views)
}

func (s *Server) handleValidateTemplate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireInt("template_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.templates.Validate(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report := struct {
		Valid       bool     `json:"valid"`
		Errors      []string `json:"errors"`
		Unreachable []int    `json:"unreachable,omitempty"`
		HasCycle    bool     `json:"has_cycle"`
		Cycle       []int    `json:"cycle,omitempty"`
		Terminal    []int    `json:"terminal,omitempty"`
	}{
		Valid:       res.Valid(),
		Errors:      make([]string, 0, len(res.Errors)),
		Unreachable: res.Unreachable,
		HasCycle:    res.HasCycle,
		Cycle:       res.Cycle,
		Terminal:    res.Terminal,
	}
	for _, e := range res.Errors {
		report.Errors = append(report.Errors, e.Error())
	}
	return jsonResult(report)
}

func (s *Server) handleNextNodes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tplID, err := request.RequireInt("template_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nodeID, err := request.RequireInt("node_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	next, err := s.templates.Next(ctx, tplID, nodeID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(nodeViews(next))
}

func (s *Server) handleRenderGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if sessionID := request.GetInt("session_id", -1); sessionID >= 0 {
		tpl, sess, err := s.sessions.Template(ctx, sessionID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(graph.GenerateMermaid(tpl, graph.SessionOverlay(sess))), nil
	}

	tplID := request.GetInt("template_id", -1)
	if tplID < 0 {
		return mcp.NewToolResultError("template_id or session_id is required"), nil
	}
	tpl, err := s.templates.Get(ctx, tplID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(tpl, nil)), nil
}

func (s *Server) handleStartSession(ctx context.Context, request mcp.CallToolRequest, _ map[string]any) (SessionView, error) {
	tplID, err := request.RequireInt("template_id")
	if err != nil {
		return SessionView{}, err
	}
	snap, err := s.sessions.Start(ctx, tplID, request.GetString("name", ""), request.GetString("guild_id", ""))
	if err != nil {
		return SessionView{}, fmt.Errorf("start failed: %w", err)
	}
	return newSessionView(snap), nil
}

func (s *Server) handleGetSession(ctx context.Context, request mcp.CallToolRequest, _ map[string]any) (SessionView, error) {
	id, err := request.RequireInt("session_id")
	if err != nil {
		return SessionView{}, err
	}
	snap, err := s.sessions.Get(ctx, id)
	if err != nil {
		return SessionView{}, err
	}
	return newSessionView(snap), nil
}

func (s *Server) handleAdvanceSession(ctx context.Context, request mcp.CallToolRequest, _ map[string]any) (SessionView, error) {
	id, err := request.RequireInt("session_id")
	if err != nil {
		return SessionView{}, err
	}
	to, err := request.RequireInt("to_node_id")
	if err != nil {
		return SessionView{}, err
	}
	res, err := s.sessions.Advance(ctx, id, to)
	if err != nil {
		s.logger.Warn("MCP advance rejected", "session_id", id, "to_node_id", to, "error", err)
		return SessionView{}, fmt.Errorf("advance failed: %w", err)
	}
	return newSessionView(&res.Snapshot), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(TemplatesURI, "Quest Templates",
		mcp.WithResourceDescription("Every stored template with its validity."),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		views, err := s.templateViews(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list templates: %w", err)
		}
		data, err := json.Marshal(views)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      TemplatesURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}

func (s *Server) templateViews(ctx context.Context) ([]TemplateView, error) {
	tpls, err := s.templates.List(ctx)
	if err != nil {
		return nil, err
	}
	engine := s.templates.Engine()
	views := make([]TemplateView, 0, len(tpls))
	for _, t := range tpls {
		views = append(views, TemplateView{
			ID:          t.ID,
			Name:        t.Name,
			EntryNodeID: t.EntryNodeID,
			Nodes:       len(t.Nodes),
			Valid:       engine.Validate(t).Valid(),
		})
	}
	return views, nil
}

func newSessionView(snap *session.Snapshot) SessionView {
	sess := snap.Session
	return SessionView{
		ID:            sess.ID,
		Name:          sess.Name,
		TemplateID:    sess.TemplateID,
		GuildID:       sess.GuildID,
		CurrentNodeID: sess.CurrentNodeID,
		Steps:         len(sess.History),
		Complete:      snap.Complete,
		Next:          nodeViews(snap.Next),
	}
}

func nodeViews(nodes []domain.TemplateNode) []NodeView {
	out := make([]NodeView, 0, len(nodes))
	for _, n := range nodes {
		dests := n.Destinations
		if dests == nil {
			dests = []int{}
		}
		out = append(out, NodeView{ID: n.ID, Description: n.Description, Destinations: dests})
	}
	return out
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
