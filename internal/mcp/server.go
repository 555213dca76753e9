// Package mcpserver exposes the page builder to AI agents over the Model
// Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/render"
	"pagebuilder/internal/service"
)

// Server is the MCP server for the page builder.
// It exposes tools, resources, and prompts so agents can edit block trees.
type Server struct {
	mcp      *server.MCPServer
	editor   *service.EditorService
	renderer *render.Renderer
	approval Approver
	emitter  service.EventEmitter
	log      *zap.Logger

	// Active release (set by open_release / set_active_release)
	mu              sync.Mutex
	activeReleaseID string
}

// Deps holds all dependencies passed from the App layer to the MCP server.
type Deps struct {
	Editor   *service.EditorService
	Renderer *render.Renderer
	Approval Approver // defaults to AutoApprove
	Emitter  service.EventEmitter
	Logger   *zap.Logger
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	if deps.Approval == nil {
		deps.Approval = AutoApprove{}
	}
	if deps.Emitter == nil {
		deps.Emitter = service.NopEmitter{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Renderer == nil {
		deps.Renderer = render.New(deps.Editor.Registry())
	}
	s := &Server{
		editor:   deps.Editor,
		renderer: deps.Renderer,
		approval: deps.Approval,
		emitter:  deps.Emitter,
		log:      deps.Logger.Named("mcp"),
	}

	s.mcp = server.NewMCPServer(
		"pagebuilder-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerReleaseTools()
	s.registerBlockTools()
	s.registerHistoryTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// MCP returns the underlying server, for in-process transports.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.log.Info("starting stdio server")
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

func (s *Server) setActive(releaseID string) {
	s.mu.Lock()
	s.activeReleaseID = releaseID
	s.mu.Unlock()
}

func (s *Server) active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeReleaseID
}

// session returns the session named by releaseId, falling back to the
// active release. The release is opened on first use.
func (s *Server) session(ctx context.Context, args map[string]any) (*service.Session, error) {
	releaseID, _ := args["releaseId"].(string)
	if releaseID == "" {
		releaseID = s.active()
	}
	if releaseID == "" {
		return nil, fmt.Errorf("no releaseId provided and no active release set (use open_release first)")
	}
	return s.editor.Open(ctx, releaseID)
}

// blockFor resolves the blockId argument inside the session's tree.
func blockFor(sess *service.Session, args map[string]any) (domain.Block, error) {
	id, _ := args["blockId"].(string)
	if id == "" {
		return domain.Block{}, fmt.Errorf("blockId is required")
	}
	b, ok := sess.Store.GetBlock(id)
	if !ok {
		return domain.Block{}, fmt.Errorf("block %s not found", id)
	}
	return b, nil
}

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func boolPtr(v bool) *bool { return &v }
