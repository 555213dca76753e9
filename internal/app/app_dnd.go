package app

import (
	"pagebuilder/internal/dnd"
	"pagebuilder/internal/domain"
)

// ============================================================
// Drag and drop
// ============================================================

// DragStart begins dragging a block.
func (a *App) DragStart(blockID string) error {
	sess, err := a.session()
	if err != nil {
		return err
	}
	return sess.Drag.Start(blockID)
}

// DragOver records the drop zone under the pointer. An empty containerId
// with an empty containerType addresses the top level.
func (a *App) DragOver(containerID, containerType string) {
	sess, err := a.session()
	if err != nil {
		return
	}
	sess.Drag.Over(&dnd.Target{ContainerID: containerID, ContainerType: containerType})
}

// DragLeave clears the hover target.
func (a *App) DragLeave() {
	if sess, err := a.session(); err == nil {
		sess.Drag.Over(nil)
	}
}

// DropBlock ends the drag on the hovered target at index (-1 for the end).
func (a *App) DropBlock(index int) (DropResult, error) {
	sess, err := a.session()
	if err != nil {
		return DropResult{}, err
	}
	outcome, err := sess.Drag.Drop(sess.Drag.Hover(), index)
	if err != nil {
		return DropResult{}, err
	}
	return DropResult{Outcome: string(outcome), State: sess.State()}, nil
}

// DragCancel aborts the drag, e.g. on Escape.
func (a *App) DragCancel() domain.EditorState {
	sess, err := a.session()
	if err != nil {
		return domain.EditorState{}
	}
	sess.Drag.Cancel()
	return sess.State()
}
