// Package render turns a block forest into an HTML preview by dispatching
// each block to its registry renderer.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/registry"
)

// Renderer renders blocks through the registry. Text blocks are Markdown,
// rendered by goldmark with raw HTML disabled.
type Renderer struct {
	reg *registry.Registry
	md  goldmark.Markdown
}

func New(reg *registry.Registry) *Renderer {
	return &Renderer{
		reg: reg,
		md:  goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Render renders the whole forest.
func (r *Renderer) Render(blocks []domain.Block) (string, error) {
	out, err := r.RenderBlocks(blocks)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// RenderBlocks renders an ordered block list. Unknown block types become
// an HTML comment placeholder so legacy documents still render.
func (r *Renderer) RenderBlocks(blocks []domain.Block) (template.HTML, error) {
	var sb strings.Builder
	for _, b := range blocks {
		def, ok := r.reg.Lookup(b.Type)
		if !ok || def.Render == nil {
			fmt.Fprintf(&sb, "<!-- unknown block %s (%s) -->", template.HTMLEscapeString(b.ID),
				strings.ReplaceAll(template.HTMLEscapeString(string(b.Type)), "--", ""))
			continue
		}
		html, err := def.Render(r, b)
		if err != nil {
			return "", fmt.Errorf("render %s %s: %w", b.Type, b.ID, err)
		}
		sb.WriteString(string(html))
	}
	return template.HTML(sb.String()), nil
}

// Markdown converts Markdown source to HTML.
func (r *Renderer) Markdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

var documentTmpl = template.Must(template.New("doc").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// Document renders the forest as a standalone HTML document titled after
// the page root.
func (r *Renderer) Document(blocks []domain.Block) (string, error) {
	body, err := r.RenderBlocks(blocks)
	if err != nil {
		return "", err
	}
	title := "Untitled page"
	for _, b := range blocks {
		if b.Type == domain.BlockTypePage {
			title = registry.String(b.Properties, "title", title)
			break
		}
	}
	var buf bytes.Buffer
	if err := documentTmpl.Execute(&buf, struct {
		Title string
		Body  template.HTML
	}{title, body}); err != nil {
		return "", fmt.Errorf("render document: %w", err)
	}
	return buf.String(), nil
}
