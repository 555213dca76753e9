package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerHistoryTools() {
	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the last change to the release's tree"),
		mcp.WithString("releaseId", mcp.Description("Release ID (optional, defaults to active release)")),
	), s.handleUndo)

	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the last undone change"),
		mcp.WithString("releaseId", mcp.Description("Release ID (optional, defaults to active release)")),
	), s.handleRedo)
}

func (s *Server) handleUndo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	if !sess.Store.Undo() {
		return textResult("Nothing to undo"), nil
	}
	return jsonResult(sess.State())
}

func (s *Server) handleRedo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	if !sess.Store.Redo() {
		return textResult("Nothing to redo"), nil
	}
	return jsonResult(sess.State())
}
