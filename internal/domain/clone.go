package domain

// CloneProperties returns a deep copy of a properties map. Nested maps and
// slices produced by JSON decoding are copied; scalar values are shared.
func CloneProperties(p map[string]any) map[string]any {
	if p == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneProperties(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case []map[string]any:
		out := make([]map[string]any, len(t))
		for i, e := range t {
			out[i] = CloneProperties(e)
		}
		return out
	default:
		return v
	}
}

// Clone returns a deep copy of the block and its whole subtree. Ids are kept.
func (b Block) Clone() Block {
	out := Block{
		ID:         b.ID,
		Type:       b.Type,
		Properties: CloneProperties(b.Properties),
		Children:   CloneBlocks(b.Children),
	}
	if b.Containers != nil {
		out.Containers = make([]ChildContainer, len(b.Containers))
		for i, c := range b.Containers {
			out.Containers[i] = ChildContainer{ID: c.ID, Type: c.Type, Children: CloneBlocks(c.Children)}
		}
	}
	return out
}

// CloneBlocks deep-copies an ordered block list. A nil list stays nil.
func CloneBlocks(blocks []Block) []Block {
	if blocks == nil {
		return nil
	}
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		out[i] = b.Clone()
	}
	return out
}
