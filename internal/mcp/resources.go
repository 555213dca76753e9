package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerResources() {
	// ── pagebuilder://releases ─────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		"pagebuilder://releases",
		"All Releases",
		mcp.WithMIMEType("application/json"),
	), s.handleReleasesResource)

	// ── pagebuilder://release/{releaseId}/tree ─────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"pagebuilder://release/{releaseId}/tree",
			"Block tree of a release",
		),
		s.handleReleaseTreeResource,
	)
}

func (s *Server) handleReleasesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	releases, err := s.editor.ListReleases()
	if err != nil {
		return nil, err
	}

	type releaseSummary struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	summaries := make([]releaseSummary, 0, len(releases))
	for _, r := range releases {
		summaries = append(summaries, releaseSummary{ID: r.ID, Name: r.Name})
	}

	data, _ := json.MarshalIndent(summaries, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "pagebuilder://releases",
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleReleaseTreeResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	releaseID := releaseIDFromURI(uri)
	if releaseID == "" {
		return nil, fmt.Errorf("could not extract releaseId from URI: %s", uri)
	}

	sess, err := s.editor.Open(ctx, releaseID)
	if err != nil {
		return nil, err
	}

	data, _ := json.MarshalIndent(sess.Store.Blocks(), "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// releaseIDFromURI extracts {releaseId} from pagebuilder://release/{releaseId}/tree.
func releaseIDFromURI(uri string) string {
	const prefix = "pagebuilder://release/"
	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	rest := strings.TrimPrefix(uri, prefix)
	id, ok := strings.CutSuffix(rest, "/tree")
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}
