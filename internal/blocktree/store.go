package blocktree

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/registry"
)

// DefaultHistoryLimit caps the undo stack when no limit is configured.
const DefaultHistoryLimit = 100

// ─────────────────────────────────────────────────────────────
// Block Tree Store — forest + linear undo/redo history
// ─────────────────────────────────────────────────────────────

// Store holds an ordered forest of blocks and its edit history.
//
// Every mutation works on a private deep copy of the forest and commits it
// as the new state, so the previous state can be pushed to the history
// stack as-is. Exactly one top-level "page" block acts as the root; it is
// never removed, moved or duplicated.
type Store struct {
	mu       sync.Mutex
	reg      *registry.Registry
	log      *zap.Logger
	newID    func() string
	limit    int
	blocks   []domain.Block
	past     [][]domain.Block
	future   [][]domain.Block
	pageID   string
	selected string
	version  uint64

	listenerMu sync.RWMutex
	listeners  []func([]domain.Block)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for debug output on no-op mutations.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithHistoryLimit caps the number of undo snapshots kept. Zero or a
// negative value keeps every snapshot.
func WithHistoryLimit(n int) Option {
	return func(s *Store) { s.limit = n }
}

// WithIDGenerator replaces the uuid-based id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// New creates a store holding a single page block, which is selected.
func New(reg *registry.Registry, opts ...Option) *Store {
	s := &Store{
		reg:   reg,
		log:   zap.NewNop(),
		newID: func() string { return uuid.New().String() },
		limit: DefaultHistoryLimit,
	}
	for _, o := range opts {
		o(s)
	}
	page := s.build(domain.BlockTypePage, nil)
	s.blocks = []domain.Block{page}
	s.pageID = page.ID
	s.selected = page.ID
	return s
}

// OnChange registers fn to receive a copy of the forest after every
// committed change (mutation, undo, redo, load).
func (s *Store) OnChange(fn func([]domain.Block)) {
	s.listenerMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenerMu.Unlock()
}

func (s *Store) notify(snapshot []domain.Block) {
	s.listenerMu.RLock()
	ls := append([]func([]domain.Block){}, s.listeners...)
	s.listenerMu.RUnlock()
	for _, fn := range ls {
		fn(domain.CloneBlocks(snapshot))
	}
}

// build creates a block of type t from registry defaults merged with props
// and derives its initial containers.
func (s *Store) build(t domain.BlockType, props map[string]any) domain.Block {
	merged := s.reg.DefaultProperties(t)
	for k, v := range domain.CloneProperties(props) {
		merged[k] = v
	}
	b := domain.Block{
		ID:         s.newID(),
		Type:       t,
		Properties: merged,
		Children:   []domain.Block{},
	}
	b.Containers = s.freshContainers(b)
	return b
}

func (s *Store) freshContainers(b domain.Block) []domain.ChildContainer {
	cs := s.reg.Containers(b)
	for i := range cs {
		cs[i].ID = s.newID()
		if cs[i].Children == nil {
			cs[i].Children = []domain.Block{}
		}
	}
	return cs
}

// mutate runs fn against a private copy of the forest and commits the
// result when fn reports a change. The previous forest becomes the newest
// undo snapshot and the redo stack is cleared.
func (s *Store) mutate(fn func(forest []domain.Block) ([]domain.Block, bool)) bool {
	s.mu.Lock()
	next, changed := fn(domain.CloneBlocks(s.blocks))
	if !changed {
		s.mu.Unlock()
		return false
	}
	s.past = append(s.past, s.blocks)
	if s.limit > 0 && len(s.past) > s.limit {
		s.past = append([][]domain.Block(nil), s.past[len(s.past)-s.limit:]...)
	}
	s.future = nil
	s.blocks = next
	s.version++
	s.fixSelection()
	snapshot := s.blocks
	s.mu.Unlock()

	s.notify(snapshot)
	return true
}

// fixSelection re-reads the page root, which Replace and undo can swap,
// and falls back to it when the selected block is gone. Caller holds s.mu.
func (s *Store) fixSelection() {
	for _, b := range s.blocks {
		if b.Type == domain.BlockTypePage {
			s.pageID = b.ID
			break
		}
	}
	if s.selected == "" || Find(s.blocks, s.selected) == nil {
		s.selected = s.pageID
	}
}

func (s *Store) debug(op, id string, fields ...zap.Field) {
	s.log.Debug("block tree: "+op+" ignored", append([]zap.Field{zap.String("id", id)}, fields...)...)
}

// ── Mutations ──────────────────────────────────────────────

// AddBlock creates a block of type t from the registry defaults merged with
// props, appends it at the top level and returns its id. A second page
// block is never created; the call returns "" instead.
func (s *Store) AddBlock(t domain.BlockType, props map[string]any) string {
	if t == domain.BlockTypePage {
		s.debug("add", "", zap.String("reason", "page root already exists"))
		return ""
	}
	b := s.build(t, props)
	s.mutate(func(forest []domain.Block) ([]domain.Block, bool) {
		return append(forest, b), true
	})
	return b.ID
}

// UpdateBlockProperties merges partial into the block's properties and
// re-derives its containers. Unknown ids are a logged no-op.
func (s *Store) UpdateBlockProperties(id string, partial map[string]any) {
	ok := s.mutate(func(forest []domain.Block) ([]domain.Block, bool) {
		b := Find(forest, id)
		if b == nil {
			return forest, false
		}
		if b.Properties == nil {
			b.Properties = map[string]any{}
		}
		for k, v := range domain.CloneProperties(partial) {
			b.Properties[k] = v
		}
		s.reconcileContainers(b)
		return forest, true
	})
	if !ok {
		s.debug("update", id, zap.String("reason", "not found"))
	}
}

// reconcileContainers re-derives b's containers from its properties.
// Container i of the derived list keeps the id and children of the
// existing container i. Children of containers that no longer exist move to
// the last remaining container, or to b's own children when none remain.
func (s *Store) reconcileContainers(b *domain.Block) {
	derived := s.reg.Containers(*b)
	var orphans []domain.Block
	for i, old := range b.Containers {
		if i < len(derived) {
			derived[i].ID = old.ID
			derived[i].Children = old.Children
			continue
		}
		orphans = append(orphans, old.Children...)
	}
	for i := len(b.Containers); i < len(derived); i++ {
		derived[i].ID = s.newID()
		if derived[i].Children == nil {
			derived[i].Children = []domain.Block{}
		}
	}
	if len(orphans) > 0 {
		if n := len(derived); n > 0 {
			derived[n-1].Children = append(derived[n-1].Children, orphans...)
		} else {
			b.Children = append(b.Children, orphans...)
		}
	}
	b.Containers = derived
}

// MoveBlock detaches the block with id from wherever it lives and appends
// it to the target list: the children of block containerID when
// containerType is "children", otherwise the container containerID. When
// the target cannot be found the block is reinserted at the top level.
func (s *Store) MoveBlock(id, containerID, containerType string) {
	if id == s.PageID() {
		s.debug("move", id, zap.String("reason", "page root"))
		return
	}
	ok := s.mutate(func(forest []domain.Block) ([]domain.Block, bool) {
		forest, b, found := Detach(forest, id)
		if !found {
			return forest, false
		}
		if !Insert(forest, containerID, containerType, b) {
			s.log.Debug("block tree: move target not found, reinserting at top level",
				zap.String("id", id), zap.String("containerId", containerID), zap.String("containerType", containerType))
			forest = append(forest, b)
		}
		return forest, true
	})
	if !ok {
		s.debug("move", id, zap.String("reason", "not found"))
	}
}

// ReorderBlock moves the block with id to newIndex within its current
// sibling list. The index is clamped to the list bounds.
func (s *Store) ReorderBlock(id string, newIndex int) {
	ok := s.mutate(func(forest []domain.Block) ([]domain.Block, bool) {
		loc, found := Locate(forest, id)
		if !found {
			return forest, false
		}
		list := Siblings(&forest, loc)
		if list == nil {
			return forest, false
		}
		if newIndex < 0 {
			newIndex = 0
		}
		if newIndex > len(*list)-1 {
			newIndex = len(*list) - 1
		}
		if newIndex == loc.Index {
			return forest, false
		}
		*list = moveIndex(*list, loc.Index, newIndex)
		return forest, true
	})
	if !ok {
		s.debug("reorder", id, zap.Int("index", newIndex))
	}
}

// RemoveBlock removes the block with id, and its subtree, from the forest.
// The page root is never removed.
func (s *Store) RemoveBlock(id string) {
	if id == s.PageID() {
		s.debug("remove", id, zap.String("reason", "page root"))
		return
	}
	ok := s.mutate(func(forest []domain.Block) ([]domain.Block, bool) {
		return Remove(forest, id)
	})
	if !ok {
		s.debug("remove", id, zap.String("reason", "not found"))
	}
}

// DuplicateBlock clones the block with id, gives the clone and everything
// nested in it fresh ids, and inserts it right after the original.
// Returns the clone's id, or "" when nothing was duplicated.
func (s *Store) DuplicateBlock(id string) string {
	if id == s.PageID() {
		s.debug("duplicate", id, zap.String("reason", "page root"))
		return ""
	}
	var newID string
	s.mutate(func(forest []domain.Block) ([]domain.Block, bool) {
		loc, found := Locate(forest, id)
		if !found {
			return forest, false
		}
		list := Siblings(&forest, loc)
		if list == nil {
			return forest, false
		}
		clone := Regenerate((*list)[loc.Index].Clone(), s.newID)
		out := make([]domain.Block, 0, len(*list)+1)
		out = append(out, (*list)[:loc.Index+1]...)
		out = append(out, clone)
		*list = append(out, (*list)[loc.Index+1:]...)
		newID = clone.ID
		return forest, true
	})
	if newID == "" {
		s.debug("duplicate", id, zap.String("reason", "not found"))
	}
	return newID
}

// ── History ────────────────────────────────────────────────

// Undo restores the state before the last mutation. No-op when the past
// stack is empty; reports whether anything changed.
func (s *Store) Undo() bool {
	s.mu.Lock()
	if len(s.past) == 0 {
		s.mu.Unlock()
		return false
	}
	last := len(s.past) - 1
	s.future = append(s.future, s.blocks)
	s.blocks = s.past[last]
	s.past = s.past[:last]
	s.version++
	s.fixSelection()
	snapshot := s.blocks
	s.mu.Unlock()

	s.notify(snapshot)
	return true
}

// Redo re-applies the last undone mutation. No-op when the future stack is
// empty; reports whether anything changed.
func (s *Store) Redo() bool {
	s.mu.Lock()
	if len(s.future) == 0 {
		s.mu.Unlock()
		return false
	}
	last := len(s.future) - 1
	s.past = append(s.past, s.blocks)
	s.blocks = s.future[last]
	s.future = s.future[:last]
	s.version++
	s.fixSelection()
	snapshot := s.blocks
	s.mu.Unlock()

	s.notify(snapshot)
	return true
}

func (s *Store) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.past) > 0
}

func (s *Store) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.future) > 0
}

// ── Queries ────────────────────────────────────────────────

// GetBlock returns a copy of the first block with id (children searched
// before containers).
func (s *Store) GetBlock(id string) (domain.Block, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := Find(s.blocks, id)
	if b == nil {
		return domain.Block{}, false
	}
	return b.Clone(), true
}

// GetBlockContainers derives the containers for b through the registry.
func (s *Store) GetBlockContainers(b domain.Block) []domain.ChildContainer {
	return s.reg.Containers(b)
}

// Locate reports where the block with id currently lives.
func (s *Store) Locate(id string) (domain.Location, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Locate(s.blocks, id)
}

// Path returns copies of the blocks from the top level down to id.
func (s *Store) Path(id string) []domain.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneBlocks(Path(s.blocks, id))
}

// Blocks returns a deep copy of the whole forest.
func (s *Store) Blocks() []domain.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneBlocks(s.blocks)
}

// PageID returns the id of the page root.
func (s *Store) PageID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageID
}

// Version increases on every committed change, undo and redo included.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Registry returns the registry the store builds blocks from.
func (s *Store) Registry() *registry.Registry {
	return s.reg
}

// ── Selection ──────────────────────────────────────────────

// Select marks id as the selected block. Unknown ids select the page.
func (s *Store) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = id
	s.fixSelection()
}

// Selected returns the selected block id.
func (s *Store) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// ── Load / serialization ───────────────────────────────────

// Load replaces the forest, clears history and selects the page root.
// The loaded forest is normalized: exactly one top-level page block,
// unique ids and non-nil child lists.
func (s *Store) Load(blocks []domain.Block) {
	forest := s.normalize(domain.CloneBlocks(blocks))

	s.mu.Lock()
	s.blocks = forest
	s.pageID = forest[0].ID
	s.past = nil
	s.future = nil
	s.selected = s.pageID
	s.version++
	snapshot := s.blocks
	s.mu.Unlock()

	s.notify(snapshot)
}

// Replace swaps in a whole new forest as a regular mutation, so it can be
// undone. Used when restoring a revision or reloading a linked file.
func (s *Store) Replace(blocks []domain.Block) {
	forest := s.normalize(domain.CloneBlocks(blocks))
	s.mutate(func([]domain.Block) ([]domain.Block, bool) {
		return forest, true
	})
}

func (s *Store) normalize(forest []domain.Block) []domain.Block {
	seen := make(map[string]bool)
	var fix func(list []domain.Block) []domain.Block
	fix = func(list []domain.Block) []domain.Block {
		if list == nil {
			list = []domain.Block{}
		}
		for i := range list {
			b := &list[i]
			if b.ID == "" || seen[b.ID] {
				old := b.ID
				b.ID = s.newID()
				s.log.Debug("block tree: regenerated duplicate id on load", zap.String("old", old), zap.String("new", b.ID))
			}
			seen[b.ID] = true
			if b.Properties == nil {
				b.Properties = map[string]any{}
			}
			b.Children = fix(b.Children)
			if b.Containers == nil {
				b.Containers = []domain.ChildContainer{}
			}
			for j := range b.Containers {
				c := &b.Containers[j]
				if c.ID == "" || seen[c.ID] {
					c.ID = s.newID()
				}
				seen[c.ID] = true
				c.Children = fix(c.Children)
			}
		}
		return list
	}

	// The first top-level page is the root. Pages anywhere else keep their
	// content but are demoted to sections so only one root exists.
	root := -1
	for i := range forest {
		if forest[i].Type == domain.BlockTypePage {
			root = i
			break
		}
	}
	Walk(forest, func(b *domain.Block) bool {
		if b.Type == domain.BlockTypePage && (root < 0 || b != &forest[root]) {
			s.log.Warn("block tree: demoting extra page block to section", zap.String("id", b.ID))
			b.Type = domain.BlockTypeSection
		}
		return true
	})
	if root < 0 {
		forest = append([]domain.Block{s.build(domain.BlockTypePage, nil)}, forest...)
	} else if root > 0 {
		page := forest[root]
		forest = append([]domain.Block{page}, without(forest, root)...)
	}
	return fix(forest)
}

// MarshalJSON encodes the forest as a JSON array of blocks.
func (s *Store) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Blocks())
}

// UnmarshalJSON decodes a JSON array of blocks and loads it.
func (s *Store) UnmarshalJSON(data []byte) error {
	var blocks []domain.Block
	if err := json.Unmarshal(data, &blocks); err != nil {
		return fmt.Errorf("decode block forest: %w", err)
	}
	s.Load(blocks)
	return nil
}

// CanDrop reports whether the block with id may be dropped on a target: the
// block containerID for "children", the container containerID otherwise, or
// the top level when both are empty. A "children" target must be a block
// kind that accepts children, and no target may lie inside the dropped
// block's own subtree.
func (s *Store) CanDrop(id, containerID, containerType string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if containerID == "" && containerType == "" {
		return true
	}
	var own []domain.Block
	if b := Find(s.blocks, id); b != nil {
		own = []domain.Block{*b}
	}
	if containerType == domain.ContainerTypeChildren {
		target := Find(s.blocks, containerID)
		if target == nil || Find(own, containerID) != nil {
			return false
		}
		def, ok := s.reg.Lookup(target.Type)
		return ok && def.AcceptsChildren
	}
	return FindContainer(s.blocks, containerID) != nil && FindContainer(own, containerID) == nil
}
