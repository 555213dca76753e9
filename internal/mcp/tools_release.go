package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerReleaseTools() {
	// ── list_releases ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_releases",
		mcp.WithDescription("List releases stored locally"),
	), s.handleListReleases)

	// ── open_release ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("open_release",
		mcp.WithDescription("Open a release for editing and make it the active release. Unknown releases start as an empty page."),
		mcp.WithString("releaseId", mcp.Description("Release ID"), mcp.Required()),
	), s.handleOpenRelease)

	// ── create_release ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_release",
		mcp.WithDescription("Create a new release with an empty page and make it active"),
		mcp.WithString("name", mcp.Description("Release name"), mcp.Required()),
	), s.handleCreateRelease)

	// ── save_release ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("save_release",
		mcp.WithDescription("Save the release: sends theme_schema to the backend and stores it locally"),
		mcp.WithString("releaseId", mcp.Description("Release ID (optional, defaults to active release)")),
	), s.handleSaveRelease)

	// ── render_preview ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("render_preview",
		mcp.WithDescription("Render the release as HTML"),
		mcp.WithString("releaseId", mcp.Description("Release ID (optional, defaults to active release)")),
		mcp.WithBoolean("document", mcp.Description("Wrap in a full HTML document (default false)")),
	), s.handleRenderPreview)

	// ── snapshot_release ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("snapshot_release",
		mcp.WithDescription("Store a named revision of the current tree"),
		mcp.WithString("label", mcp.Description("Revision label"), mcp.Required()),
		mcp.WithString("releaseId", mcp.Description("Release ID (optional, defaults to active release)")),
	), s.handleSnapshotRelease)

	// ── list_revisions ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_revisions",
		mcp.WithDescription("List stored revisions of a release, newest first"),
		mcp.WithString("releaseId", mcp.Description("Release ID (optional, defaults to active release)")),
	), s.handleListRevisions)

	// ── restore_revision (destructive) ─────────────────
	s.mcp.AddTool(mcp.NewTool("restore_revision",
		mcp.WithDescription("🛑 DESTRUCTIVE: Replace the tree with a stored revision. Undoable, but requires user approval."),
		mcp.WithString("revisionId", mcp.Description("Revision ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRestoreRevision)

	// ── export_release ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("export_release",
		mcp.WithDescription("Write the release's block tree to a JSON file"),
		mcp.WithString("path", mcp.Description("Destination file path"), mcp.Required()),
		mcp.WithString("releaseId", mcp.Description("Release ID (optional, defaults to active release)")),
	), s.handleExportRelease)
}

func (s *Server) handleListReleases(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	releases, err := s.editor.ListReleases()
	if err != nil {
		return nil, fmt.Errorf("list releases: %w", err)
	}
	type summary struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Blocks int    `json:"blocks"`
	}
	out := make([]summary, 0, len(releases))
	for _, r := range releases {
		out = append(out, summary{ID: r.ID, Name: r.Name, Blocks: len(r.ThemeSchema)})
	}
	return jsonResult(out)
}

func (s *Server) handleOpenRelease(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	releaseID := req.GetString("releaseId", "")
	if releaseID == "" {
		return nil, fmt.Errorf("releaseId is required")
	}
	sess, err := s.editor.Open(ctx, releaseID)
	if err != nil {
		return nil, err
	}
	s.setActive(releaseID)
	return jsonResult(sess.State())
}

func (s *Server) handleCreateRelease(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	sess, err := s.editor.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	s.setActive(sess.ReleaseID)
	return jsonResult(sess.State())
}

func (s *Server) handleSaveRelease(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	if err := s.editor.Save(ctx, sess.ReleaseID); err != nil {
		return nil, fmt.Errorf("save failed, changes are kept: %w", err)
	}
	return textResult(fmt.Sprintf("Release %s saved", sess.ReleaseID)), nil
}

func (s *Server) handleRenderPreview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	sess, err := s.session(ctx, args)
	if err != nil {
		return nil, err
	}
	blocks := sess.Store.Blocks()
	var html string
	if doc, _ := args["document"].(bool); doc {
		html, err = s.renderer.Document(blocks)
	} else {
		html, err = s.renderer.Render(blocks)
	}
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return textResult(html), nil
}

func (s *Server) handleSnapshotRelease(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	label, _ := args["label"].(string)
	if label == "" {
		return nil, fmt.Errorf("label is required")
	}
	sess, err := s.session(ctx, args)
	if err != nil {
		return nil, err
	}
	rev, err := s.editor.Snapshot(sess.ReleaseID, label)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]string{"id": rev.ID, "label": rev.Label})
}

func (s *Server) handleListRevisions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	revs, err := s.editor.Revisions(sess.ReleaseID)
	if err != nil {
		return nil, err
	}
	type summary struct {
		ID        string `json:"id"`
		Label     string `json:"label"`
		CreatedAt string `json:"createdAt"`
	}
	out := make([]summary, 0, len(revs))
	for _, r := range revs {
		out = append(out, summary{ID: r.ID, Label: r.Label, CreatedAt: r.CreatedAt.Format("2006-01-02 15:04:05")})
	}
	return jsonResult(out)
}

func (s *Server) handleRestoreRevision(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	revisionID := req.GetString("revisionId", "")
	if revisionID == "" {
		return nil, fmt.Errorf("revisionId is required")
	}
	if _, err := s.approval.Request(ctx, "restore_revision", "Replace the tree with revision "+revisionID); err != nil {
		return nil, err
	}
	if err := s.editor.Restore(revisionID); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Revision %s restored (undo to revert)", revisionID)), nil
}

func (s *Server) handleExportRelease(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	sess, err := s.session(ctx, args)
	if err != nil {
		return nil, err
	}
	if err := s.editor.Export(sess.ReleaseID, path); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Exported %s to %s", sess.ReleaseID, path)), nil
}
