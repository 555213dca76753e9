package registry

import (
	"fmt"
	"html/template"
	"sort"
	"sync"

	"pagebuilder/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Block Registry — type tag → definition dispatch table
// ─────────────────────────────────────────────────────────────

// Renderer is what a block's RenderFunc may call back into: nested block
// lists (children, container panes) and markdown.
type Renderer interface {
	RenderBlocks(blocks []domain.Block) (template.HTML, error)
	Markdown(src string) (template.HTML, error)
}

// RenderFunc renders one block to HTML.
type RenderFunc func(r Renderer, b domain.Block) (template.HTML, error)

// ContainerFunc derives the containers a block should have from its
// properties. Returned containers carry fresh ids and no children.
type ContainerFunc func(b domain.Block) []domain.ChildContainer

// FieldKind selects the property editor widget for a field.
type FieldKind string

const (
	FieldText     FieldKind = "text"
	FieldTextarea FieldKind = "textarea"
	FieldNumber   FieldKind = "number"
	FieldSelect   FieldKind = "select"
	FieldColor    FieldKind = "color"
	FieldBool     FieldKind = "bool"
	FieldList     FieldKind = "list"
	FieldURL      FieldKind = "url"
)

// Field describes one editable property of a block type.
type Field struct {
	Name    string    `json:"name"`
	Label   string    `json:"label"`
	Kind    FieldKind `json:"kind"`
	Options []string  `json:"options,omitempty"`
	Min     *float64  `json:"min,omitempty"`
	Max     *float64  `json:"max,omitempty"`
}

// Definition is everything the editor knows about one block type.
type Definition struct {
	Type              domain.BlockType      `json:"type"`
	Label             string                `json:"label"`
	Category          string                `json:"category"`
	Icon              string                `json:"icon"`
	AcceptsChildren   bool                  `json:"acceptsChildren"`
	Fields            []Field               `json:"fields"`
	DefaultProperties func() map[string]any `json:"-"`
	Containers        ContainerFunc         `json:"-"`
	Render            RenderFunc            `json:"-"`
}

// Registry manages registered block definitions.
type Registry struct {
	mu   sync.RWMutex
	defs map[domain.BlockType]Definition
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{defs: make(map[domain.BlockType]Definition)}
}

// Register adds a definition. Panics on duplicate registration.
func (r *Registry) Register(def Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Type]; exists {
		panic(fmt.Sprintf("block registry: duplicate registration for block type %q", def.Type))
	}
	r.defs[def.Type] = def
}

// Lookup returns the definition for a type. ok is false for unknown types.
func (r *Registry) Lookup(t domain.BlockType) (Definition, bool) {
	if r == nil {
		return Definition{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[t]
	return def, ok
}

// Types returns every registered type tag, sorted.
func (r *Registry) Types() []domain.BlockType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.BlockType, 0, len(r.defs))
	for t := range r.defs {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Definitions returns all definitions in palette order (category, label).
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	out := make([]Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// ForEach iterates all registered definitions.
func (r *Registry) ForEach(fn func(Definition)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.defs {
		fn(d)
	}
}

// DefaultProperties returns a fresh copy of the type's default properties,
// or an empty map for unknown types.
func (r *Registry) DefaultProperties(t domain.BlockType) map[string]any {
	def, ok := r.Lookup(t)
	if !ok || def.DefaultProperties == nil {
		return map[string]any{}
	}
	return domain.CloneProperties(def.DefaultProperties())
}

// Containers derives the containers for b. Unknown types and types without
// a deriver yield an empty list.
func (r *Registry) Containers(b domain.Block) []domain.ChildContainer {
	def, ok := r.Lookup(b.Type)
	if !ok || def.Containers == nil {
		return []domain.ChildContainer{}
	}
	cs := def.Containers(b)
	if cs == nil {
		return []domain.ChildContainer{}
	}
	return cs
}
