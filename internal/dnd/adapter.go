// Package dnd turns pointer drag gestures into block tree mutations.
//
// Drag-over events only update transient hover state; the tree is mutated
// at most once, when the drag ends.
package dnd

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"pagebuilder/internal/domain"
)

var (
	ErrAlreadyDragging = errors.New("dnd: a drag is already in progress")
	ErrNotDragging     = errors.New("dnd: no drag in progress")
	ErrUnknownBlock    = errors.New("dnd: unknown block")
)

type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// Outcome is how a drag ended.
type Outcome string

const (
	DroppedOnContainer Outcome = "dropped-on-container"
	DroppedOnSelf      Outcome = "dropped-on-self"
	DroppedNowhere     Outcome = "dropped-nowhere"
	Cancelled          Outcome = "cancelled"
)

// Target is a drop zone: a block's children list ("children") or a
// container. The zero Target addresses the top level.
type Target struct {
	ContainerID   string `json:"containerId"`
	ContainerType string `json:"containerType"`
}

// Tree is the subset of the block tree store the adapter drives.
type Tree interface {
	Locate(id string) (domain.Location, bool)
	CanDrop(id, containerID, containerType string) bool
	MoveBlock(id, containerID, containerType string)
	ReorderBlock(id string, index int)
}

// Adapter is the drag state machine for one editor.
type Adapter struct {
	mu      sync.Mutex
	tree    Tree
	log     *zap.Logger
	state   State
	blockID string
	source  domain.Location
	hover   *Target
}

// New creates an idle adapter over tree.
func New(tree Tree, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{tree: tree, log: log}
}

// Start begins dragging blockID and records where it came from.
func (a *Adapter) Start(blockID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == Dragging {
		return ErrAlreadyDragging
	}
	loc, ok := a.tree.Locate(blockID)
	if !ok {
		return ErrUnknownBlock
	}
	a.state = Dragging
	a.blockID = blockID
	a.source = loc
	a.hover = nil
	return nil
}

// Over records the drop zone under the pointer. It never touches the tree.
func (a *Adapter) Over(t *Target) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != Dragging {
		return
	}
	if t == nil {
		a.hover = nil
		return
	}
	cp := *t
	a.hover = &cp
}

// Hover returns the current hover target, if any.
func (a *Adapter) Hover() *Target {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.hover == nil {
		return nil
	}
	cp := *a.hover
	return &cp
}

// State returns the adapter's current state.
func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Dragged returns the id of the block being dragged, or "".
func (a *Adapter) Dragged() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.blockID
}

// Drop ends the drag on t at index. A nil, unknown or invalid target (a
// block that takes no children, or a list inside the dragged block) leaves
// the tree untouched. Dropping into the list the block came from reorders that list
// (a negative index means the end); any other target moves the block there.
func (a *Adapter) Drop(t *Target, index int) (Outcome, error) {
	a.mu.Lock()
	if a.state != Dragging {
		a.mu.Unlock()
		return "", ErrNotDragging
	}
	id, source := a.blockID, a.source
	a.reset()
	a.mu.Unlock()

	if t == nil || !a.tree.CanDrop(id, t.ContainerID, t.ContainerType) {
		a.log.Debug("dnd: drop without valid target", zap.String("id", id))
		return DroppedNowhere, nil
	}

	dest := domain.Location{ContainerID: t.ContainerID, ContainerType: t.ContainerType}
	if dest.SameList(source) {
		// The source location may be stale if the tree changed mid-drag.
		if cur, ok := a.tree.Locate(id); ok && cur.SameList(source) {
			source = cur
		}
		if index < 0 || index != source.Index {
			a.tree.ReorderBlock(id, reorderIndex(index))
		}
		return DroppedOnSelf, nil
	}

	a.tree.MoveBlock(id, t.ContainerID, t.ContainerType)
	return DroppedOnContainer, nil
}

// Cancel aborts the drag without mutating the tree.
func (a *Adapter) Cancel() Outcome {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reset()
	return Cancelled
}

func (a *Adapter) reset() {
	a.state = Idle
	a.blockID = ""
	a.source = domain.Location{}
	a.hover = nil
}

// reorderIndex maps "end of list" to an index the store clamps to the last
// position.
func reorderIndex(index int) int {
	if index < 0 {
		return int(^uint(0) >> 1)
	}
	return index
}
