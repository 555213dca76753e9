package blocktree

import "pagebuilder/internal/domain"

// Pure helpers over a block forest. Callers own the slices they pass in;
// the store only ever hands them private deep copies.

// Find returns a pointer to the first block with id, searching each
// block's children before its containers (depth first).
func Find(list []domain.Block, id string) *domain.Block {
	for i := range list {
		if list[i].ID == id {
			return &list[i]
		}
		if b := Find(list[i].Children, id); b != nil {
			return b
		}
		for j := range list[i].Containers {
			if b := Find(list[i].Containers[j].Children, id); b != nil {
				return b
			}
		}
	}
	return nil
}

// FindContainer returns the container with id anywhere in the forest.
func FindContainer(list []domain.Block, id string) *domain.ChildContainer {
	for i := range list {
		for j := range list[i].Containers {
			if list[i].Containers[j].ID == id {
				return &list[i].Containers[j]
			}
			if c := FindContainer(list[i].Containers[j].Children, id); c != nil {
				return c
			}
		}
		if c := FindContainer(list[i].Children, id); c != nil {
			return c
		}
	}
	return nil
}

// Detach removes the first block with id from whichever list holds it and
// returns the updated top-level list plus the detached block.
func Detach(list []domain.Block, id string) ([]domain.Block, domain.Block, bool) {
	for i := range list {
		if list[i].ID == id {
			b := list[i]
			return without(list, i), b, true
		}
		if rest, b, ok := Detach(list[i].Children, id); ok {
			list[i].Children = rest
			return list, b, true
		}
		for j := range list[i].Containers {
			if rest, b, ok := Detach(list[i].Containers[j].Children, id); ok {
				list[i].Containers[j].Children = rest
				return list, b, true
			}
		}
	}
	return list, domain.Block{}, false
}

// Remove filters every block with id out of the forest at any depth.
// Lists emptied by the removal stay as empty lists.
func Remove(list []domain.Block, id string) ([]domain.Block, bool) {
	removed := false
	out := make([]domain.Block, 0, len(list))
	for _, b := range list {
		if b.ID == id {
			removed = true
			continue
		}
		if rest, ok := Remove(b.Children, id); ok {
			b.Children = rest
			removed = true
		}
		for j := range b.Containers {
			if rest, ok := Remove(b.Containers[j].Children, id); ok {
				b.Containers[j].Children = rest
				removed = true
			}
		}
		out = append(out, b)
	}
	if !removed {
		return list, false
	}
	return out, true
}

// Insert appends b at the end of the target list: the children of the block
// containerID when containerType is "children", otherwise the container
// with id containerID. It reports whether the target was found.
func Insert(list []domain.Block, containerID, containerType string, b domain.Block) bool {
	if containerType == domain.ContainerTypeChildren {
		target := Find(list, containerID)
		if target == nil {
			return false
		}
		target.Children = append(target.Children, b)
		return true
	}
	c := FindContainer(list, containerID)
	if c == nil {
		return false
	}
	c.Children = append(c.Children, b)
	return true
}

// Locate reports where the block with id lives.
func Locate(list []domain.Block, id string) (domain.Location, bool) {
	return locate(list, id, domain.Location{})
}

func locate(list []domain.Block, id string, at domain.Location) (domain.Location, bool) {
	for i := range list {
		if list[i].ID == id {
			at.Index = i
			return at, true
		}
		child := domain.Location{ParentID: list[i].ID, ContainerID: list[i].ID, ContainerType: domain.ContainerTypeChildren}
		if loc, ok := locate(list[i].Children, id, child); ok {
			return loc, true
		}
		for _, c := range list[i].Containers {
			cl := domain.Location{ParentID: list[i].ID, ContainerID: c.ID, ContainerType: c.Type}
			if loc, ok := locate(c.Children, id, cl); ok {
				return loc, true
			}
		}
	}
	return domain.Location{}, false
}

// Siblings returns a pointer to the list a location addresses, or nil.
func Siblings(forest *[]domain.Block, loc domain.Location) *[]domain.Block {
	switch {
	case loc.TopLevel():
		return forest
	case loc.ContainerType == domain.ContainerTypeChildren:
		if b := Find(*forest, loc.ContainerID); b != nil {
			return &b.Children
		}
	default:
		if c := FindContainer(*forest, loc.ContainerID); c != nil {
			return &c.Children
		}
	}
	return nil
}

// Path returns the chain of blocks from a top-level block down to id,
// inclusive. Empty when id is not in the forest.
func Path(list []domain.Block, id string) []domain.Block {
	for _, b := range list {
		if b.ID == id {
			return []domain.Block{b}
		}
		if p := Path(b.Children, id); p != nil {
			return append([]domain.Block{b}, p...)
		}
		for _, c := range b.Containers {
			if p := Path(c.Children, id); p != nil {
				return append([]domain.Block{b}, p...)
			}
		}
	}
	return nil
}

// Regenerate assigns fresh ids to b, its containers and every nested block.
func Regenerate(b domain.Block, newID func() string) domain.Block {
	b.ID = newID()
	for i := range b.Children {
		b.Children[i] = Regenerate(b.Children[i], newID)
	}
	for i := range b.Containers {
		b.Containers[i].ID = newID()
		for j := range b.Containers[i].Children {
			b.Containers[i].Children[j] = Regenerate(b.Containers[i].Children[j], newID)
		}
	}
	return b
}

// CollectIDs returns every block and container id in the forest, in
// depth-first order.
func CollectIDs(list []domain.Block) []string {
	var ids []string
	var walk func([]domain.Block)
	walk = func(bs []domain.Block) {
		for _, b := range bs {
			ids = append(ids, b.ID)
			walk(b.Children)
			for _, c := range b.Containers {
				ids = append(ids, c.ID)
				walk(c.Children)
			}
		}
	}
	walk(list)
	return ids
}

// Count returns how many blocks in the forest carry id.
func Count(list []domain.Block, id string) int {
	n := 0
	for _, b := range list {
		if b.ID == id {
			n++
		}
		n += Count(b.Children, id)
		for _, c := range b.Containers {
			n += Count(c.Children, id)
		}
	}
	return n
}

// Walk visits every block depth first. Returning false stops the walk.
func Walk(list []domain.Block, fn func(b *domain.Block) bool) bool {
	for i := range list {
		if !fn(&list[i]) {
			return false
		}
		if !Walk(list[i].Children, fn) {
			return false
		}
		for j := range list[i].Containers {
			if !Walk(list[i].Containers[j].Children, fn) {
				return false
			}
		}
	}
	return true
}

// moveIndex moves the element at from to position to within list.
func moveIndex(list []domain.Block, from, to int) []domain.Block {
	if from == to {
		return list
	}
	b := list[from]
	list = without(list, from)
	out := make([]domain.Block, 0, len(list)+1)
	out = append(out, list[:to]...)
	out = append(out, b)
	return append(out, list[to:]...)
}

func without(list []domain.Block, i int) []domain.Block {
	out := make([]domain.Block, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...)
}
