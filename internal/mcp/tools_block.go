package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/registry"
)

func (s *Server) registerBlockTools() {
	// ── list_block_types ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_block_types",
		mcp.WithDescription("List registered block types with their editable fields and default properties"),
	), s.handleListBlockTypes)

	// ── get_tree ───────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_tree",
		mcp.WithDescription("Get the full block tree of a release, with selection and undo/redo availability"),
		mcp.WithString("releaseId", mcp.Description("Release ID (optional, defaults to active release)")),
	), s.handleGetTree)

	// ── get_block ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_block",
		mcp.WithDescription("Get one block with its fields, containers and breadcrumb path"),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("releaseId", mcp.Description("Release ID (optional, defaults to active release)")),
	), s.handleGetBlock)

	// ── add_block ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_block",
		mcp.WithDescription("Add a block. Without a target it is appended at the top level. "+
			"To nest it, pass containerId and containerType: a block id with type \"children\", or a container id from get_block."),
		mcp.WithString("type", mcp.Description("Block type (see list_block_types)"), mcp.Required()),
		mcp.WithString("properties", mcp.Description("JSON object merged over the type's default properties (optional)")),
		mcp.WithString("containerId", mcp.Description("Target block or container ID (optional)")),
		mcp.WithString("containerType", mcp.Description("\"children\" or the container's type (optional)")),
		mcp.WithNumber("index", mcp.Description("Position within the target list (optional, default end)")),
		mcp.WithString("releaseId", mcp.Description("Release ID (optional, defaults to active release)")),
	), s.handleAddBlock)

	// ── update_block_properties ────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_block_properties",
		mcp.WithDescription("Merge properties into a block. Values are validated against the block's fields."),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("properties", mcp.Description("JSON object of properties to set"), mcp.Required()),
		mcp.WithString("releaseId", mcp.Description("Release ID (optional, defaults to active release)")),
	), s.handleUpdateBlockProperties)

	// ── move_block ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_block",
		mcp.WithDescription("Move a block into another block's children or a container. Omit the target to move it to the top level."),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("containerId", mcp.Description("Target block or container ID (optional)")),
		mcp.WithString("containerType", mcp.Description("\"children\" or the container's type (optional)")),
		mcp.WithNumber("index", mcp.Description("Position within the target list (optional, default end)")),
		mcp.WithString("releaseId", mcp.Description("Release ID (optional, defaults to active release)")),
	), s.handleMoveBlock)

	// ── duplicate_block ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("duplicate_block",
		mcp.WithDescription("Duplicate a block and its subtree right after the original"),
		mcp.WithString("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("releaseId", mcp.Description("Release ID (optional, defaults to active release)")),
	), s.handleDuplicateBlock)

	// ── remove_block (destructive) ─────────────────────
	s.mcp.AddTool(mcp.NewTool("remove_block",
		mcp.WithDescription("🛑 DESTRUCTIVE: Remove a block and everything nested in it. Requires user approval."),
		mcp.WithString("blockId", mcp.Description("Block ID to remove"), mcp.Required()),
		mcp.WithString("releaseId", mcp.Description("Release ID (optional, defaults to active release)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRemoveBlock)
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleListBlockTypes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	type typeInfo struct {
		Type            domain.BlockType `json:"type"`
		Label           string           `json:"label"`
		Category        string           `json:"category"`
		AcceptsChildren bool             `json:"acceptsChildren"`
		Fields          []registry.Field `json:"fields"`
		Defaults        map[string]any   `json:"defaults"`
	}
	reg := s.editor.Registry()
	var out []typeInfo
	for _, d := range reg.Definitions() {
		out = append(out, typeInfo{
			Type:            d.Type,
			Label:           d.Label,
			Category:        d.Category,
			AcceptsChildren: d.AcceptsChildren,
			Fields:          d.Fields,
			Defaults:        reg.DefaultProperties(d.Type),
		})
	}
	return jsonResult(out)
}

func (s *Server) handleGetTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	return jsonResult(sess.State())
}

func (s *Server) handleGetBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	sess, err := s.session(ctx, args)
	if err != nil {
		return nil, err
	}
	b, err := blockFor(sess, args)
	if err != nil {
		return nil, err
	}
	insp, err := sess.Panel.Inspect(b.ID)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]any{
		"block":       b,
		"inspector":   insp,
		"breadcrumbs": sess.Panel.Breadcrumbs(b.ID),
	})
}

func (s *Server) handleAddBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	blockType, _ := args["type"].(string)
	if blockType == "" {
		return nil, fmt.Errorf("type is required")
	}
	if _, ok := s.editor.Registry().Lookup(domain.BlockType(blockType)); !ok {
		return nil, fmt.Errorf("unknown block type %q", blockType)
	}
	props, err := parseProperties(args, "properties")
	if err != nil {
		return nil, err
	}
	sess, err := s.session(ctx, args)
	if err != nil {
		return nil, err
	}

	id := sess.Store.AddBlock(domain.BlockType(blockType), props)
	if id == "" {
		return nil, fmt.Errorf("a release has exactly one page block; add content inside it instead")
	}
	s.place(sess.Store, id, args, false)
	sess.Store.Select(id)

	b, _ := sess.Store.GetBlock(id)
	loc, _ := sess.Store.Locate(id)
	return jsonResult(map[string]any{"block": b, "location": loc})
}

func (s *Server) handleUpdateBlockProperties(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	sess, err := s.session(ctx, args)
	if err != nil {
		return nil, err
	}
	b, err := blockFor(sess, args)
	if err != nil {
		return nil, err
	}
	props, err := parseProperties(args, "properties")
	if err != nil {
		return nil, err
	}
	if len(props) == 0 {
		return nil, fmt.Errorf("properties is required")
	}
	if err := sess.Panel.Apply(b.ID, props); err != nil {
		return nil, err
	}
	updated, _ := sess.Store.GetBlock(b.ID)
	return jsonResult(updated)
}

func (s *Server) handleMoveBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	sess, err := s.session(ctx, args)
	if err != nil {
		return nil, err
	}
	b, err := blockFor(sess, args)
	if err != nil {
		return nil, err
	}
	if b.ID == sess.Store.PageID() {
		return nil, fmt.Errorf("the page block cannot be moved")
	}
	s.place(sess.Store, b.ID, args, true)
	loc, _ := sess.Store.Locate(b.ID)
	return jsonResult(loc)
}

func (s *Server) handleDuplicateBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	sess, err := s.session(ctx, args)
	if err != nil {
		return nil, err
	}
	b, err := blockFor(sess, args)
	if err != nil {
		return nil, err
	}
	id := sess.Store.DuplicateBlock(b.ID)
	if id == "" {
		return nil, fmt.Errorf("block %s cannot be duplicated", b.ID)
	}
	dup, _ := sess.Store.GetBlock(id)
	return jsonResult(dup)
}

func (s *Server) handleRemoveBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	sess, err := s.session(ctx, args)
	if err != nil {
		return nil, err
	}
	b, err := blockFor(sess, args)
	if err != nil {
		return nil, err
	}
	if b.ID == sess.Store.PageID() {
		return nil, fmt.Errorf("the page block cannot be removed")
	}

	desc := fmt.Sprintf("Remove %s block %s", b.Type, b.ID)
	if n := countNested(b); n > 0 {
		desc += fmt.Sprintf(" and %d nested block(s)", n)
	}
	if _, err := s.approval.Request(ctx, "remove_block", desc); err != nil {
		return nil, err
	}

	sess.Panel.Remove(b.ID)
	return textResult(strings.TrimSpace(desc) + " (undo to restore)"), nil
}

// placer is the part of the tree store place needs.
type placer interface {
	MoveBlock(id, containerID, containerType string)
	ReorderBlock(id string, index int)
}

// place moves id to the containerId/containerType target, then to index.
// Without a target the block only moves when toTop is set.
func (s *Server) place(p placer, id string, args map[string]any, toTop bool) {
	containerID, _ := args["containerId"].(string)
	containerType, _ := args["containerType"].(string)
	if containerID != "" && containerType == "" {
		containerType = domain.ContainerTypeChildren
	}
	if containerID != "" || toTop {
		p.MoveBlock(id, containerID, containerType)
	}
	if idx := getIndex(args, "index"); idx >= 0 {
		p.ReorderBlock(id, idx)
	}
}

func countNested(b domain.Block) int {
	n := 0
	for _, c := range b.Children {
		n += 1 + countNested(c)
	}
	for _, ct := range b.Containers {
		for _, c := range ct.Children {
			n += 1 + countNested(c)
		}
	}
	return n
}
