package render_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagebuilder/internal/blocktree"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/registry"
	"pagebuilder/internal/render"
)

func TestRender_NestedTree(t *testing.T) {
	reg := registry.Default()
	s := blocktree.New(reg)
	grid := s.AddBlock(domain.BlockTypeGrid, nil)
	s.MoveBlock(grid, s.PageID(), domain.ContainerTypeChildren)
	g, _ := s.GetBlock(grid)
	txt := s.AddBlock(domain.BlockTypeText, map[string]any{"markdown": "**new single** out now"})
	s.MoveBlock(txt, g.Containers[1].ID, domain.ContainerTypeCell)
	h := s.AddBlock(domain.BlockTypeHeading, map[string]any{"text": "<script>x</script>", "level": "1"})
	s.MoveBlock(h, s.PageID(), domain.ContainerTypeChildren)

	html, err := render.New(reg).Render(s.Blocks())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(html, `<main class="pb-page"`))
	assert.Contains(t, html, `data-container-id="`+g.Containers[1].ID+`"`)
	assert.Contains(t, html, "<strong>new single</strong>")
	assert.Contains(t, html, "&lt;script&gt;")
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "<h1 ")
}

func TestRender_UnknownTypeDegrades(t *testing.T) {
	r := render.New(registry.Default())
	html, err := r.Render([]domain.Block{{ID: "x", Type: "legacy"}})
	require.NoError(t, err)
	assert.Equal(t, "<!-- unknown block x (legacy) -->", html)
}

func TestDocument_UsesPageTitle(t *testing.T) {
	reg := registry.Default()
	s := blocktree.New(reg)
	s.UpdateBlockProperties(s.PageID(), map[string]any{"title": "EP launch"})
	doc, err := render.New(reg).Document(s.Blocks())
	require.NoError(t, err)
	assert.Contains(t, doc, "<title>EP launch</title>")
}

func TestRender_FiltersUnsafeURLs(t *testing.T) {
	reg := registry.Default()
	s := blocktree.New(reg)
	btn := s.AddBlock(domain.BlockTypeButton, map[string]any{"label": "Listen", "href": "javascript:alert(document.cookie)"})
	s.MoveBlock(btn, s.PageID(), domain.ContainerTypeChildren)
	img := s.AddBlock(domain.BlockTypeImage, map[string]any{"src": "javascript:alert(1)", "alt": "cover"})
	s.MoveBlock(img, s.PageID(), domain.ContainerTypeChildren)
	ok := s.AddBlock(domain.BlockTypeButton, map[string]any{"label": "Tickets", "href": "https://example.com/tickets?a=1&b=2"})
	s.MoveBlock(ok, s.PageID(), domain.ContainerTypeChildren)

	html, err := render.New(reg).Render(s.Blocks())
	require.NoError(t, err)

	assert.NotContains(t, html, "javascript:")
	assert.Contains(t, html, `href="#ZgotmplZ"`)
	assert.Contains(t, html, `src="#ZgotmplZ"`)
	assert.Contains(t, html, `href="https://example.com/tickets?a=1&amp;b=2"`)
}

func TestRender_FiltersUnsafeStyleValues(t *testing.T) {
	reg := registry.Default()
	s := blocktree.New(reg)
	s.UpdateBlockProperties(s.PageID(), map[string]any{"background": `red;}</style><script>alert(1)</script>`})
	sec := s.AddBlock(domain.BlockTypeSection, map[string]any{"background": "expression(alert(1))"})
	s.MoveBlock(sec, s.PageID(), domain.ContainerTypeChildren)
	div := s.AddBlock(domain.BlockTypeDivider, map[string]any{"color": "#333333"})
	s.MoveBlock(div, s.PageID(), domain.ContainerTypeChildren)

	html, err := render.New(reg).Render(s.Blocks())
	require.NoError(t, err)

	assert.NotContains(t, html, "<script>")
	assert.NotContains(t, html, "expression(")
	assert.Contains(t, html, "background:ZgotmplZ")
	assert.Contains(t, html, "border-color:#333333")
}
