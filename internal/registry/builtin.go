package registry

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/google/uuid"

	"pagebuilder/internal/domain"
)

const (
	maxGridColumns = 12
	maxTabs        = 20
)

func floatPtr(v float64) *float64 { return &v }

// Default returns a registry with every built-in block kind registered.
func Default() *Registry {
	r := New()
	for _, def := range builtins() {
		r.Register(def)
	}
	return r
}

func builtins() []Definition {
	return []Definition{
		{
			Type:            domain.BlockTypePage,
			Label:           "Page",
			Category:        "layout",
			Icon:            "file",
			AcceptsChildren: true,
			Fields: []Field{
				{Name: "title", Label: "Title", Kind: FieldText},
				{Name: "background", Label: "Background", Kind: FieldColor},
				{Name: "maxWidth", Label: "Max width", Kind: FieldNumber, Min: floatPtr(320), Max: floatPtr(2560)},
			},
			DefaultProperties: func() map[string]any {
				return map[string]any{"title": "Untitled page", "background": "#ffffff", "maxWidth": float64(1200)}
			},
			Render: renderPage,
		},
		{
			Type:            domain.BlockTypeSection,
			Label:           "Section",
			Category:        "layout",
			Icon:            "square",
			AcceptsChildren: true,
			Fields: []Field{
				{Name: "padding", Label: "Padding", Kind: FieldNumber, Min: floatPtr(0), Max: floatPtr(256)},
				{Name: "background", Label: "Background", Kind: FieldColor},
			},
			DefaultProperties: func() map[string]any {
				return map[string]any{"padding": float64(24), "background": ""}
			},
			Render: renderSection,
		},
		{
			Type:     domain.BlockTypeGrid,
			Label:    "Grid",
			Category: "layout",
			Icon:     "grid",
			Fields: []Field{
				{Name: "columns", Label: "Columns", Kind: FieldNumber, Min: floatPtr(1), Max: floatPtr(maxGridColumns)},
				{Name: "gap", Label: "Gap", Kind: FieldNumber, Min: floatPtr(0), Max: floatPtr(128)},
			},
			DefaultProperties: func() map[string]any {
				return map[string]any{"columns": float64(2), "gap": float64(16)}
			},
			Containers: gridCells,
			Render:     renderGrid,
		},
		{
			Type:     domain.BlockTypeTabs,
			Label:    "Tabs",
			Category: "layout",
			Icon:     "folder",
			Fields: []Field{
				{Name: "tabs", Label: "Tabs", Kind: FieldList},
			},
			DefaultProperties: func() map[string]any {
				return map[string]any{"tabs": []any{"Tab 1", "Tab 2"}}
			},
			Containers: tabPanes,
			Render:     renderTabs,
		},
		{
			Type:     domain.BlockTypeHeading,
			Label:    "Heading",
			Category: "content",
			Icon:     "heading",
			Fields: []Field{
				{Name: "text", Label: "Text", Kind: FieldText},
				{Name: "level", Label: "Level", Kind: FieldSelect, Options: []string{"1", "2", "3", "4", "5", "6"}},
				{Name: "align", Label: "Alignment", Kind: FieldSelect, Options: []string{"left", "center", "right"}},
			},
			DefaultProperties: func() map[string]any {
				return map[string]any{"text": "Heading", "level": "2", "align": "left"}
			},
			Render: renderHeading,
		},
		{
			Type:     domain.BlockTypeText,
			Label:    "Text",
			Category: "content",
			Icon:     "align-left",
			Fields: []Field{
				{Name: "markdown", Label: "Content", Kind: FieldTextarea},
			},
			DefaultProperties: func() map[string]any {
				return map[string]any{"markdown": "Write something..."}
			},
			Render: renderText,
		},
		{
			Type:     domain.BlockTypeImage,
			Label:    "Image",
			Category: "media",
			Icon:     "image",
			Fields: []Field{
				{Name: "src", Label: "Source", Kind: FieldURL},
				{Name: "alt", Label: "Alt text", Kind: FieldText},
				{Name: "width", Label: "Width", Kind: FieldNumber, Min: floatPtr(0)},
			},
			DefaultProperties: func() map[string]any {
				return map[string]any{"src": "", "alt": "", "width": float64(0)}
			},
			Render: renderImage,
		},
		{
			Type:     domain.BlockTypeButton,
			Label:    "Button",
			Category: "content",
			Icon:     "pointer",
			Fields: []Field{
				{Name: "label", Label: "Label", Kind: FieldText},
				{Name: "href", Label: "Link", Kind: FieldURL},
				{Name: "variant", Label: "Variant", Kind: FieldSelect, Options: []string{"primary", "secondary", "ghost"}},
			},
			DefaultProperties: func() map[string]any {
				return map[string]any{"label": "Click me", "href": "#", "variant": "primary"}
			},
			Render: renderButton,
		},
		{
			Type:     domain.BlockTypeSpacer,
			Label:    "Spacer",
			Category: "layout",
			Icon:     "move-vertical",
			Fields: []Field{
				{Name: "height", Label: "Height", Kind: FieldNumber, Min: floatPtr(0), Max: floatPtr(512)},
			},
			DefaultProperties: func() map[string]any {
				return map[string]any{"height": float64(32)}
			},
			Render: renderSpacer,
		},
		{
			Type:     domain.BlockTypeDivider,
			Label:    "Divider",
			Category: "layout",
			Icon:     "minus",
			Fields: []Field{
				{Name: "color", Label: "Color", Kind: FieldColor},
			},
			DefaultProperties: func() map[string]any {
				return map[string]any{"color": "#e5e5e5"}
			},
			Render: renderDivider,
		},
		{
			Type:     domain.BlockTypeTrack,
			Label:    "Track",
			Category: "music",
			Icon:     "music",
			Fields: []Field{
				{Name: "trackId", Label: "Track", Kind: FieldText},
				{Name: "showArtwork", Label: "Show artwork", Kind: FieldBool},
			},
			DefaultProperties: func() map[string]any {
				return map[string]any{"trackId": "", "showArtwork": true}
			},
			Render: renderResource("track", "trackId"),
		},
		{
			Type:     domain.BlockTypePlaylist,
			Label:    "Playlist",
			Category: "music",
			Icon:     "list-music",
			Fields: []Field{
				{Name: "playlistId", Label: "Playlist", Kind: FieldText},
				{Name: "layout", Label: "Layout", Kind: FieldSelect, Options: []string{"list", "cards"}},
			},
			DefaultProperties: func() map[string]any {
				return map[string]any{"playlistId": "", "layout": "list"}
			},
			Render: renderResource("playlist", "playlistId"),
		},
		{
			Type:     domain.BlockTypeEvent,
			Label:    "Event",
			Category: "music",
			Icon:     "calendar",
			Fields: []Field{
				{Name: "eventId", Label: "Event", Kind: FieldText},
				{Name: "showTickets", Label: "Show tickets", Kind: FieldBool},
			},
			DefaultProperties: func() map[string]any {
				return map[string]any{"eventId": "", "showTickets": true}
			},
			Render: renderResource("event", "eventId"),
		},
	}
}

// ── Container derivers ─────────────────────────────────────

func gridCells(b domain.Block) []domain.ChildContainer {
	n := Int(b.Properties, "columns", 2)
	if n < 1 {
		n = 1
	}
	if n > maxGridColumns {
		n = maxGridColumns
	}
	out := make([]domain.ChildContainer, n)
	for i := range out {
		out[i] = domain.ChildContainer{ID: uuid.New().String(), Type: domain.ContainerTypeCell, Children: []domain.Block{}}
	}
	return out
}

func tabPanes(b domain.Block) []domain.ChildContainer {
	tabs := StringList(b.Properties, "tabs")
	if len(tabs) > maxTabs {
		tabs = tabs[:maxTabs]
	}
	out := make([]domain.ChildContainer, len(tabs))
	for i := range tabs {
		out[i] = domain.ChildContainer{ID: uuid.New().String(), Type: domain.ContainerTypeTab, Children: []domain.Block{}}
	}
	return out
}

// ── Renderers ──────────────────────────────────────────────

// Block markup goes through html/template so property values are escaped
// for where they land: URLs in href/src are filtered, style values are
// CSS-filtered, text is HTML-escaped.
var blockTmpl = template.Must(template.New("blocks").Parse(`
{{define "page"}}<main class="pb-page" data-block-id="{{.ID}}" style="background:{{.Background}};max-width:{{.MaxWidth}}px">{{.Inner}}</main>{{end}}
{{define "section"}}<section class="pb-section" data-block-id="{{.ID}}" style="padding:{{.Padding}}px{{with .Background}};background:{{.}}{{end}}">{{.Inner}}</section>{{end}}
{{define "grid"}}<div class="pb-grid" data-block-id="{{.ID}}" style="display:grid;grid-template-columns:repeat({{len .Cells}},1fr);gap:{{.Gap}}px">{{range .Cells}}<div class="pb-cell" data-container-id="{{.ID}}">{{.Inner}}</div>{{end}}</div>{{end}}
{{define "tabs"}}<div class="pb-tabs" data-block-id="{{.ID}}"><ul role="tablist">{{range .Cells}}<li role="tab">{{.Label}}</li>{{end}}</ul>{{range .Cells}}<div role="tabpanel" data-container-id="{{.ID}}">{{.Inner}}</div>{{end}}</div>{{end}}
{{define "text"}}<div class="pb-text" data-block-id="{{.ID}}">{{.Inner}}</div>{{end}}
{{define "image"}}{{if .Src}}<img class="pb-image" data-block-id="{{.ID}}" src="{{.Src}}" alt="{{.Alt}}"{{if .Width}} width="{{.Width}}"{{end}}>{{else}}<div class="pb-image pb-empty" data-block-id="{{.ID}}"></div>{{end}}{{end}}
{{define "button"}}<a class="pb-button pb-button-{{.Variant}}" data-block-id="{{.ID}}" href="{{.Href}}">{{.Label}}</a>{{end}}
{{define "spacer"}}<div class="pb-spacer" data-block-id="{{.ID}}" style="height:{{.Height}}px"></div>{{end}}
{{define "divider"}}<hr class="pb-divider" data-block-id="{{.ID}}" style="border-color:{{.Color}}">{{end}}
{{define "h1"}}<h1 data-block-id="{{.ID}}" style="text-align:{{.Align}}">{{.Text}}</h1>{{end}}
{{define "h2"}}<h2 data-block-id="{{.ID}}" style="text-align:{{.Align}}">{{.Text}}</h2>{{end}}
{{define "h3"}}<h3 data-block-id="{{.ID}}" style="text-align:{{.Align}}">{{.Text}}</h3>{{end}}
{{define "h4"}}<h4 data-block-id="{{.ID}}" style="text-align:{{.Align}}">{{.Text}}</h4>{{end}}
{{define "h5"}}<h5 data-block-id="{{.ID}}" style="text-align:{{.Align}}">{{.Text}}</h5>{{end}}
{{define "h6"}}<h6 data-block-id="{{.ID}}" style="text-align:{{.Align}}">{{.Text}}</h6>{{end}}
{{define "track"}}<div class="pb-embed pb-track" data-block-id="{{.ID}}" data-track-id="{{.Ref}}"></div>{{end}}
{{define "playlist"}}<div class="pb-embed pb-playlist" data-block-id="{{.ID}}" data-playlist-id="{{.Ref}}"></div>{{end}}
{{define "event"}}<div class="pb-embed pb-event" data-block-id="{{.ID}}" data-event-id="{{.Ref}}"></div>{{end}}
`))

func execute(name string, data any) (template.HTML, error) {
	var sb strings.Builder
	if err := blockTmpl.ExecuteTemplate(&sb, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return template.HTML(sb.String()), nil
}

// cell is one rendered container of a grid or tabs block.
type cell struct {
	ID    string
	Label string
	Inner template.HTML
}

func renderCells(r Renderer, b domain.Block, labels []string) ([]cell, error) {
	out := make([]cell, 0, len(b.Containers))
	for i, c := range b.Containers {
		inner, err := r.RenderBlocks(c.Children)
		if err != nil {
			return nil, err
		}
		label := fmt.Sprintf("Tab %d", i+1)
		if i < len(labels) {
			label = labels[i]
		}
		out = append(out, cell{ID: c.ID, Label: label, Inner: inner})
	}
	return out, nil
}

func renderPage(r Renderer, b domain.Block) (template.HTML, error) {
	inner, err := r.RenderBlocks(b.Children)
	if err != nil {
		return "", err
	}
	return execute("page", map[string]any{
		"ID":         b.ID,
		"Background": String(b.Properties, "background", "#ffffff"),
		"MaxWidth":   Int(b.Properties, "maxWidth", 1200),
		"Inner":      inner,
	})
}

func renderSection(r Renderer, b domain.Block) (template.HTML, error) {
	inner, err := r.RenderBlocks(b.Children)
	if err != nil {
		return "", err
	}
	return execute("section", map[string]any{
		"ID":         b.ID,
		"Padding":    Int(b.Properties, "padding", 24),
		"Background": String(b.Properties, "background", ""),
		"Inner":      inner,
	})
}

func renderGrid(r Renderer, b domain.Block) (template.HTML, error) {
	cells, err := renderCells(r, b, nil)
	if err != nil {
		return "", err
	}
	return execute("grid", map[string]any{"ID": b.ID, "Gap": Int(b.Properties, "gap", 16), "Cells": cells})
}

func renderTabs(r Renderer, b domain.Block) (template.HTML, error) {
	cells, err := renderCells(r, b, StringList(b.Properties, "tabs"))
	if err != nil {
		return "", err
	}
	return execute("tabs", map[string]any{"ID": b.ID, "Cells": cells})
}

func renderHeading(_ Renderer, b domain.Block) (template.HTML, error) {
	level := Int(b.Properties, "level", 2)
	if level < 1 || level > 6 {
		level = 2
	}
	return execute(fmt.Sprintf("h%d", level), map[string]any{
		"ID":    b.ID,
		"Align": String(b.Properties, "align", "left"),
		"Text":  String(b.Properties, "text", ""),
	})
}

func renderText(r Renderer, b domain.Block) (template.HTML, error) {
	md, err := r.Markdown(String(b.Properties, "markdown", ""))
	if err != nil {
		return "", fmt.Errorf("render text block %s: %w", b.ID, err)
	}
	return execute("text", map[string]any{"ID": b.ID, "Inner": md})
}

func renderImage(_ Renderer, b domain.Block) (template.HTML, error) {
	return execute("image", map[string]any{
		"ID":    b.ID,
		"Src":   String(b.Properties, "src", ""),
		"Alt":   String(b.Properties, "alt", ""),
		"Width": Int(b.Properties, "width", 0),
	})
}

func renderButton(_ Renderer, b domain.Block) (template.HTML, error) {
	return execute("button", map[string]any{
		"ID":      b.ID,
		"Variant": String(b.Properties, "variant", "primary"),
		"Href":    String(b.Properties, "href", "#"),
		"Label":   String(b.Properties, "label", ""),
	})
}

func renderSpacer(_ Renderer, b domain.Block) (template.HTML, error) {
	return execute("spacer", map[string]any{"ID": b.ID, "Height": Int(b.Properties, "height", 32)})
}

func renderDivider(_ Renderer, b domain.Block) (template.HTML, error) {
	return execute("divider", map[string]any{"ID": b.ID, "Color": String(b.Properties, "color", "#e5e5e5")})
}

// renderResource renders an embed placeholder for a platform resource
// (track, playlist, event). The host page hydrates it client-side.
func renderResource(kind, idKey string) RenderFunc {
	return func(_ Renderer, b domain.Block) (template.HTML, error) {
		return execute(kind, map[string]any{"ID": b.ID, "Ref": String(b.Properties, idKey, "")})
	}
}
