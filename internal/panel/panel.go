// Package panel is the property panel model: breadcrumbs for the current
// selection, the editable fields of a block, and validated writes back
// through the block tree store.
package panel

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/registry"
)

var (
	ErrNotFound     = errors.New("panel: block not found")
	ErrInvalidValue = errors.New("panel: invalid value")
	ErrUnknownField = errors.New("panel: unknown field")
)

// Tree is the subset of the block tree store the panel reads and writes.
type Tree interface {
	GetBlock(id string) (domain.Block, bool)
	Path(id string) []domain.Block
	Selected() string
	UpdateBlockProperties(id string, partial map[string]any)
	RemoveBlock(id string)
	MoveBlock(id, containerID, containerType string)
}

// Crumb is one step of the root-to-selection breadcrumb trail.
type Crumb struct {
	ID    string           `json:"id"`
	Type  domain.BlockType `json:"type"`
	Label string           `json:"label"`
}

// FieldValue pairs a field definition with the block's current value.
type FieldValue struct {
	registry.Field
	Value any `json:"value"`
}

// ContainerSummary describes one container of the inspected block.
type ContainerSummary struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// Inspector is everything the property panel shows for one block.
type Inspector struct {
	ID         string             `json:"id"`
	Type       domain.BlockType   `json:"type"`
	Label      string             `json:"label"`
	Known      bool               `json:"known"`
	Fields     []FieldValue       `json:"fields"`
	Containers []ContainerSummary `json:"containers"`
	Children   int                `json:"children"`
}

// Panel reads the tree and registry to drive the property panel.
type Panel struct {
	tree Tree
	reg  *registry.Registry
}

func New(tree Tree, reg *registry.Registry) *Panel {
	return &Panel{tree: tree, reg: reg}
}

// Breadcrumbs walks from the root to id (the current selection when id is
// empty). Unknown ids yield an empty trail.
func (p *Panel) Breadcrumbs(id string) []Crumb {
	if id == "" {
		id = p.tree.Selected()
	}
	path := p.tree.Path(id)
	out := make([]Crumb, 0, len(path))
	for _, b := range path {
		out = append(out, Crumb{ID: b.ID, Type: b.Type, Label: p.label(b)})
	}
	return out
}

// label is the display name of a block: its own title or text when it has
// one, the definition label otherwise, the raw tag for unknown types.
func (p *Panel) label(b domain.Block) string {
	for _, key := range []string{"title", "text", "label"} {
		if s := registry.String(b.Properties, key, ""); s != "" {
			return s
		}
	}
	if def, ok := p.reg.Lookup(b.Type); ok {
		return def.Label
	}
	return string(b.Type)
}

// Inspect returns the panel model for block id.
func (p *Panel) Inspect(id string) (*Inspector, error) {
	b, ok := p.tree.GetBlock(id)
	if !ok {
		return nil, fmt.Errorf("inspect %s: %w", id, ErrNotFound)
	}
	in := &Inspector{
		ID:         b.ID,
		Type:       b.Type,
		Label:      p.label(b),
		Fields:     []FieldValue{},
		Containers: make([]ContainerSummary, 0, len(b.Containers)),
		Children:   len(b.Children),
	}
	if def, ok := p.reg.Lookup(b.Type); ok {
		in.Known = true
		defaults := p.reg.DefaultProperties(b.Type)
		for _, f := range def.Fields {
			v, set := b.Properties[f.Name]
			if !set {
				v = defaults[f.Name]
			}
			in.Fields = append(in.Fields, FieldValue{Field: f, Value: v})
		}
	}
	for _, c := range b.Containers {
		in.Containers = append(in.Containers, ContainerSummary{ID: c.ID, Type: c.Type, Count: len(c.Children)})
	}
	return in, nil
}

// Apply validates changes against the block's field definitions, coerces
// them to their canonical types and writes them through the store. Blocks
// of unknown type accept any change as-is.
func (p *Panel) Apply(id string, changes map[string]any) error {
	b, ok := p.tree.GetBlock(id)
	if !ok {
		return fmt.Errorf("apply %s: %w", id, ErrNotFound)
	}
	def, known := p.reg.Lookup(b.Type)
	if !known {
		p.tree.UpdateBlockProperties(id, changes)
		return nil
	}
	fields := make(map[string]registry.Field, len(def.Fields))
	for _, f := range def.Fields {
		fields[f.Name] = f
	}
	clean := make(map[string]any, len(changes))
	for name, raw := range changes {
		f, ok := fields[name]
		if !ok {
			return fmt.Errorf("apply %s: %q: %w", id, name, ErrUnknownField)
		}
		v, err := Coerce(f, raw)
		if err != nil {
			return fmt.Errorf("apply %s: %q: %w", id, name, err)
		}
		clean[name] = v
	}
	if len(clean) == 0 {
		return nil
	}
	p.tree.UpdateBlockProperties(id, clean)
	return nil
}

// Remove deletes a block through the store.
func (p *Panel) Remove(id string) {
	p.tree.RemoveBlock(id)
}

// Move relocates a block through the store.
func (p *Panel) Move(id, containerID, containerType string) {
	p.tree.MoveBlock(id, containerID, containerType)
}

// Coerce converts raw into the canonical type for field f.
func Coerce(f registry.Field, raw any) (any, error) {
	switch f.Kind {
	case registry.FieldNumber:
		n, err := toFloat(raw)
		if err != nil {
			return nil, err
		}
		if f.Min != nil && n < *f.Min {
			return nil, fmt.Errorf("%w: %v below minimum %v", ErrInvalidValue, n, *f.Min)
		}
		if f.Max != nil && n > *f.Max {
			return nil, fmt.Errorf("%w: %v above maximum %v", ErrInvalidValue, n, *f.Max)
		}
		return n, nil
	case registry.FieldBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, v)
			}
			return b, nil
		}
		return nil, fmt.Errorf("%w: %T is not a boolean", ErrInvalidValue, raw)
	case registry.FieldSelect:
		s := fmt.Sprint(raw)
		if n, ok := raw.(float64); ok {
			s = strconv.FormatFloat(n, 'f', -1, 64)
		}
		for _, o := range f.Options {
			if o == s {
				return s, nil
			}
		}
		return nil, fmt.Errorf("%w: %q not one of %v", ErrInvalidValue, s, f.Options)
	case registry.FieldList:
		switch v := raw.(type) {
		case []any:
			return v, nil
		case []string:
			out := make([]any, len(v))
			for i, s := range v {
				out[i] = s
			}
			return out, nil
		case string:
			out := []any{}
			for _, part := range strings.Split(v, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
			return out, nil
		}
		return nil, fmt.Errorf("%w: %T is not a list", ErrInvalidValue, raw)
	case registry.FieldColor:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %T is not a color", ErrInvalidValue, raw)
		}
		if s != "" && !strings.HasPrefix(s, "#") {
			return nil, fmt.Errorf("%w: %q is not a hex color", ErrInvalidValue, s)
		}
		return s, nil
	default:
		s, ok := raw.(string)
		if !ok {
			return fmt.Sprint(raw), nil
		}
		return s, nil
	}
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, v)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w: %T is not a number", ErrInvalidValue, raw)
}
