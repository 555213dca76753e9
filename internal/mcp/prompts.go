package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("landing_page",
		mcp.WithPromptDescription("Guide through building a landing page: hero heading, intro text, a grid of features and a call to action"),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("What the page is about"),
			mcp.RequiredArgument(),
		),
	), s.handleLandingPagePrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("release_page",
		mcp.WithPromptDescription("Build a music release page with tracks, a playlist and upcoming events"),
		mcp.WithArgument("artist",
			mcp.ArgumentDescription("Artist or release name"),
			mcp.RequiredArgument(),
		),
	), s.handleReleasePagePrompt)
}

func (s *Server) handleLandingPagePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := req.Params.Arguments["topic"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Build a landing page for: %s", topic),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Build a landing page about %q in the active release.

1. Call get_tree to find the page block id.
2. add_block type "heading" with {"text": ..., "level": "1"} inside the page (containerId = page id, containerType = "children").
3. add_block type "text" with a short markdown introduction.
4. add_block type "grid" with {"columns": 3}; then get_block on it to read its cell container ids.
5. Put one "heading" + "text" pair in each cell (containerId = cell id, containerType = "cell").
6. add_block type "button" with a label and href as the call to action.
7. render_preview to check the result, then save_release.`, topic),
				},
			},
		},
	}, nil
}

func (s *Server) handleReleasePagePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	artist := req.Params.Arguments["artist"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Build a release page for: %s", artist),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Build a release page for %q in the active release.

1. Call list_block_types to see the fields of "track", "playlist" and "event".
2. add_block a "heading" and an "image" for the cover inside the page.
3. add_block "tabs" with {"tabs": ["Music", "Live"]}; get_block it to read the tab container ids.
4. In the Music tab add "track" and "playlist" blocks; in the Live tab add "event" blocks.
5. render_preview, then save_release.`, artist),
				},
			},
		},
	}, nil
}
